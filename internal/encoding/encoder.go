package encoding

import (
	"fmt"

	"github.com/bft-labs/udpship/internal/domain"
)

// Encoder turns an envelope into the bytes of one datagram.
type Encoder struct {
	codec      Codec
	compressor Compressor
}

// NewEncoder builds an encoder from codec and compression names.
// Unknown names are reported as domain.ErrInvalidConfig.
func NewEncoder(codec, compression string) (*Encoder, error) {
	c, err := NewCodec(codec)
	if err != nil {
		return nil, err
	}
	comp, err := NewCompressor(compression)
	if err != nil {
		return nil, err
	}
	return &Encoder{codec: c, compressor: comp}, nil
}

// Encode sanitizes every event of env, serializes the envelope and compresses it.
// env is not modified.
func (e *Encoder) Encode(env domain.Envelope) ([]byte, error) {
	events := make([]domain.Event, len(env.Events))
	for i, ev := range env.Events {
		events[i] = Sanitize(ev)
	}
	safe := env
	safe.Events = events

	payload, err := e.codec.Marshal(safe)
	if err != nil {
		return nil, fmt.Errorf("%w: %s marshal: %v", domain.ErrEncode, e.codec.Name(), err)
	}
	payload, err = e.compressor.Compress(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrEncode, e.compressor.Name(), err)
	}
	return payload, nil
}

// Codec returns the configured codec name.
func (e *Encoder) Codec() string { return e.codec.Name() }

// Compression returns the configured compression name.
func (e *Encoder) Compression() string { return e.compressor.Name() }
