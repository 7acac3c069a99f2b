// Package log provides the logging abstraction used by udpship components.
//
// The Logger interface keeps the transport independent of any concrete
// logging library. A zerolog-backed adapter is used by the CLI; embedders
// that do not care about logs get the no-op logger by default.
//
// # Usage
//
//	logger := log.NewZerologAdapter(os.Stderr, zerolog.InfoLevel)
//	logger.Info("flushed batch", log.Int("events", 20), log.String("flush_id", id))
//
// Implement Logger to route udpship logs into an existing logging setup.
package log
