package domain

import "errors"

// Domain errors represent error conditions in the udpship domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrInvalidEndpoint is returned when the destination address cannot be parsed.
	ErrInvalidEndpoint = errors.New("udpship: invalid endpoint")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("udpship: invalid configuration")

	// ErrClosed is returned by Push and Complete once completion has started.
	ErrClosed = errors.New("udpship: transport closed")

	// ErrSend wraps socket-level failures reported for a single flush.
	ErrSend = errors.New("udpship: send failed")

	// ErrEncode wraps codec or compression failures for a single flush.
	ErrEncode = errors.New("udpship: encode failed")

	// ErrInvalidTransition is returned when a lifecycle transition is not allowed.
	ErrInvalidTransition = errors.New("udpship: invalid state transition")
)
