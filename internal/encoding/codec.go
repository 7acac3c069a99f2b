package encoding

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/fxamacker/cbor/v2"

	"github.com/bft-labs/udpship/internal/domain"
)

// Codec names accepted by NewCodec.
const (
	CodecJSON = "json"
	CodecCBOR = "cbor"
)

// Codec serializes a sanitized envelope.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
}

// jsonAPI matches encoding/json output: sorted map keys, HTML escaping.
var jsonAPI = sonic.ConfigStd

// decodeAPI keeps numbers as json.Number so large integers survive a round trip.
var decodeAPI = sonic.Config{
	UseNumber:      true,
	CopyString:     true,
	ValidateString: true,
}.Froze()

// cborMode uses Core Deterministic Encoding so equal envelopes produce equal bytes.
var cborMode cbor.EncMode

func init() {
	var err error
	cborMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("encoding: CBOR encoder initialization failed: " + err.Error())
	}
}

// NewCodec returns the codec registered under name. An empty name means JSON.
func NewCodec(name string) (Codec, error) {
	switch name {
	case "", CodecJSON:
		return jsonCodec{}, nil
	case CodecCBOR:
		return cborCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown codec %q", domain.ErrInvalidConfig, name)
	}
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return CodecJSON }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return jsonAPI.Marshal(v)
}

type cborCodec struct{}

func (cborCodec) Name() string { return CodecCBOR }

func (cborCodec) Marshal(v any) ([]byte, error) {
	if env, ok := v.(domain.Envelope); ok {
		events := make([]domain.Event, len(env.Events))
		for i, ev := range env.Events {
			events[i] = cborNumbers(ev)
		}
		env.Events = events
		v = env
	}
	return cborMode.Marshal(v)
}

// cborNumbers replaces json.Number leaves of a sanitized tree, which CBOR
// would write as text, with int64, uint64 or float64 in that order.
func cborNumbers(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = cborNumbers(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cborNumbers(e)
		}
		return out
	case json.Number:
		s := string(x)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return u
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return s
	default:
		return v
	}
}

// DecodeJSON parses one JSON document into a generic value.
// Numbers are kept as json.Number.
func DecodeJSON(data []byte) (any, error) {
	var out any
	if err := decodeAPI.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
