package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (UDPSHIP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("endpoint", os.Getenv("UDPSHIP_ENDPOINT"), &cfg.Endpoint)
	s.setString("schema", os.Getenv("UDPSHIP_SCHEMA"), &cfg.Schema)
	s.setString("udp-type", os.Getenv("UDPSHIP_UDP_TYPE"), &cfg.UDPType)
	s.setString("host", os.Getenv("UDPSHIP_HOST"), &cfg.Host)
	s.setString("codec", os.Getenv("UDPSHIP_CODEC"), &cfg.Codec)
	s.setString("compression", os.Getenv("UDPSHIP_COMPRESSION"), &cfg.Compression)
	s.setString("input", os.Getenv("UDPSHIP_INPUT"), &cfg.Input)
	s.setString("offset-file", os.Getenv("UDPSHIP_OFFSET_FILE"), &cfg.OffsetFile)
	s.setString("metrics-addr", os.Getenv("UDPSHIP_METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("log-level", os.Getenv("UDPSHIP_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("poll", os.Getenv("UDPSHIP_POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setIntFromString("threshold", os.Getenv("UDPSHIP_THRESHOLD"), &cfg.Threshold); err != nil {
		return err
	}

	s.setBoolFromString("follow", os.Getenv("UDPSHIP_FOLLOW"), &cfg.Follow)

	return nil
}
