package ports

import "time"

// FlushReport describes the outcome of one flush.
type FlushReport struct {
	// ID is the ULID assigned to the flush
	ID string

	// Events is the number of events in the envelope
	Events int

	// Bytes is the encoded payload size, zero when encoding failed
	Bytes int

	// Duration spans from envelope construction to send completion
	Duration time.Duration

	// Final is true for the drain-triggered flush
	Final bool

	// Err is nil on success
	Err error
}

// FlushObserver is notified once per flush, from the goroutine that
// completes the send and never while the transport lock is held.
// Implementations must return quickly.
type FlushObserver interface {
	OnFlush(report FlushReport)
}

// FlushObservers fans a report out to several observers.
type FlushObservers []FlushObserver

// OnFlush forwards the report to every non-nil observer in order.
func (o FlushObservers) OnFlush(report FlushReport) {
	for _, obs := range o {
		if obs != nil {
			obs.OnFlush(report)
		}
	}
}
