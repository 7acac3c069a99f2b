package cliconfig

import (
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config but uses strings for durations and pointers for
// values whose zero is meaningful. Both TOML and YAML files are accepted.
type FileConfig struct {
	Endpoint     string `toml:"endpoint" yaml:"endpoint"`
	Threshold    *int   `toml:"threshold" yaml:"threshold"`
	Schema       string `toml:"schema" yaml:"schema"`
	UDPType      string `toml:"udp_type" yaml:"udp_type"`
	Host         string `toml:"host" yaml:"host"`
	Codec        string `toml:"codec" yaml:"codec"`
	Compression  string `toml:"compression" yaml:"compression"`
	Input        string `toml:"input" yaml:"input"`
	Follow       *bool  `toml:"follow" yaml:"follow"`
	OffsetFile   string `toml:"offset_file" yaml:"offset_file"`
	PollInterval string `toml:"poll_interval" yaml:"poll_interval"`
	MetricsAddr  string `toml:"metrics_addr" yaml:"metrics_addr"`
	LogLevel     string `toml:"log_level" yaml:"log_level"`
}

// LoadFileConfig reads and parses a config file from the given path.
// Files ending in .yaml or .yml are parsed as YAML, anything else as TOML.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &fc)
	default:
		err = toml.Unmarshal(b, &fc)
	}
	if err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.udpship/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".udpship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("endpoint", fc.Endpoint, &cfg.Endpoint)
	s.setString("schema", fc.Schema, &cfg.Schema)
	s.setString("udp-type", fc.UDPType, &cfg.UDPType)
	s.setString("host", fc.Host, &cfg.Host)
	s.setString("codec", fc.Codec, &cfg.Codec)
	s.setString("compression", fc.Compression, &cfg.Compression)
	s.setString("input", fc.Input, &cfg.Input)
	s.setString("offset-file", fc.OffsetFile, &cfg.OffsetFile)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("poll", fc.PollInterval, &cfg.PollInterval); err != nil {
		return err
	}

	s.setInt("threshold", fc.Threshold, &cfg.Threshold)
	s.setBool("follow", fc.Follow, &cfg.Follow)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
