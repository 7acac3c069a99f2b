package app

import (
	"fmt"

	"github.com/bft-labs/udpship/internal/adapters/udp"
	"github.com/bft-labs/udpship/internal/domain"
	"github.com/bft-labs/udpship/internal/encoding"
)

// Default configuration values.
const (
	DefaultThreshold = 20
	DefaultSchema    = "udpship"
	DefaultUDPType   = udp.NetworkUDP4
)

// Config is resolved once at construction and never changes afterwards.
// Build it from DefaultConfig: Threshold has no fallback, so a zero value
// means flush on every push.
type Config struct {
	// Threshold is the number of buffered events that triggers a flush.
	// 0 flushes every event on its own.
	Threshold int

	// Schema tags every envelope so receivers can recognise the format.
	Schema string

	// UDPType selects the socket family, "udp4" or "udp6".
	UDPType string

	// Host identifies the emitting process. Empty means the resolved hostname.
	Host string

	// Codec is "json" (default) or "cbor".
	Codec string

	// Compression is "none" (default), "gzip", "zstd" or "lz4".
	Compression string
}

// DefaultConfig returns a Config with sensible default values.
// Host is left empty so it is resolved at construction.
func DefaultConfig() Config {
	return Config{
		Threshold:   DefaultThreshold,
		Schema:      DefaultSchema,
		UDPType:     DefaultUDPType,
		Codec:       encoding.CodecJSON,
		Compression: encoding.CompressionNone,
	}
}

// SetDefaults fills empty string fields. Threshold is left alone because 0
// is meaningful.
func (c *Config) SetDefaults() {
	if c.Schema == "" {
		c.Schema = DefaultSchema
	}
	if c.UDPType == "" {
		c.UDPType = DefaultUDPType
	}
	if c.Codec == "" {
		c.Codec = encoding.CodecJSON
	}
	if c.Compression == "" {
		c.Compression = encoding.CompressionNone
	}
}

// Validate checks the configuration. Errors wrap domain.ErrInvalidConfig.
func (c Config) Validate() error {
	if c.Threshold < 0 {
		return fmt.Errorf("%w: threshold must not be negative, got %d", domain.ErrInvalidConfig, c.Threshold)
	}
	switch c.UDPType {
	case udp.NetworkUDP4, udp.NetworkUDP6:
	default:
		return fmt.Errorf("%w: udp type must be %s or %s, got %q", domain.ErrInvalidConfig, udp.NetworkUDP4, udp.NetworkUDP6, c.UDPType)
	}
	if _, err := encoding.NewCodec(c.Codec); err != nil {
		return err
	}
	if _, err := encoding.NewCompressor(c.Compression); err != nil {
		return err
	}
	return nil
}
