package cliconfig

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bft-labs/udpship/internal/app"
	"github.com/bft-labs/udpship/internal/source"
	"github.com/bft-labs/udpship/pkg/log"
)

// StdinInput selects standard input as the event source.
const StdinInput = "-"

// offsetSuffix derives the offset file from the followed file's path.
const offsetSuffix = ".offset"

// Config holds CLI configuration for udpship.
type Config struct {
	Endpoint string

	Threshold   int
	Schema      string
	UDPType     string
	Host        string
	Codec       string
	Compression string

	Input        string
	Follow       bool
	OffsetFile   string
	PollInterval time.Duration

	MetricsAddr string
	LogLevel    string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	lib := app.DefaultConfig()
	return Config{
		Threshold:    lib.Threshold,
		Schema:       lib.Schema,
		UDPType:      lib.UDPType,
		Codec:        lib.Codec,
		Compression:  lib.Compression,
		Input:        StdinInput,
		PollInterval: source.DefaultPollInterval,
		LogLevel:     "info",
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if c.Input == "" {
		c.Input = StdinInput
	}
	if c.Follow && c.Input == StdinInput {
		return fmt.Errorf("follow needs a file input, not stdin")
	}
	if c.Follow && c.OffsetFile == "" {
		c.OffsetFile = c.Input + offsetSuffix
	}
	if !c.Follow && c.OffsetFile != "" {
		return fmt.Errorf("offset-file only applies with follow")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	return c.Transport().Validate()
}

// Transport returns the library configuration for the transport.
func (c Config) Transport() app.Config {
	return app.Config{
		Threshold:   c.Threshold,
		Schema:      c.Schema,
		UDPType:     c.UDPType,
		Host:        c.Host,
		Codec:       c.Codec,
		Compression: c.Compression,
	}
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value from a pointer if not nil and flag not changed.
// Zero is a valid value, so absence is expressed with nil.
func (s *configSetter) setInt(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
