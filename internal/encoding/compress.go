package encoding

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/bft-labs/udpship/internal/domain"
)

// Compression names accepted by NewCompressor.
const (
	CompressionNone = "none"
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
	CompressionLZ4  = "lz4"
)

// Compressor transforms a serialized payload before it is sent.
type Compressor interface {
	Name() string
	Compress(p []byte) ([]byte, error)
}

// NewCompressor returns the compressor registered under name.
// An empty name means no compression.
func NewCompressor(name string) (Compressor, error) {
	switch name {
	case "", CompressionNone:
		return noneCompressor{}, nil
	case CompressionGzip:
		return gzipCompressor{}, nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		return &zstdCompressor{enc: enc}, nil
	case CompressionLZ4:
		return lz4Compressor{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown compression %q", domain.ErrInvalidConfig, name)
	}
}

type noneCompressor struct{}

func (noneCompressor) Name() string                      { return CompressionNone }
func (noneCompressor) Compress(p []byte) ([]byte, error) { return p, nil }

type gzipCompressor struct{}

func (gzipCompressor) Name() string { return CompressionGzip }

func (gzipCompressor) Compress(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(p); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

// zstdCompressor shares one encoder; EncodeAll is safe for concurrent use.
type zstdCompressor struct {
	enc *zstd.Encoder
}

func (*zstdCompressor) Name() string { return CompressionZstd }

func (z *zstdCompressor) Compress(p []byte) ([]byte, error) {
	return z.enc.EncodeAll(p, make([]byte, 0, len(p)/2)), nil
}

type lz4Compressor struct{}

func (lz4Compressor) Name() string { return CompressionLZ4 }

func (lz4Compressor) Compress(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(p); err != nil {
		return nil, fmt.Errorf("lz4 write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lz4 close: %w", err)
	}
	return buf.Bytes(), nil
}
