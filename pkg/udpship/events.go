package udpship

import (
	"time"

	"github.com/bft-labs/udpship/internal/app"
	"github.com/bft-labs/udpship/internal/ports"
)

// EventHandler receives notifications about transport operations.
// Callbacks run without any transport lock held and may call Transport
// methods such as Pending or Push. Send callbacks run on the socket's writer
// goroutine, so a handler that blocks delays later sends.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnSendSuccess(event SendSuccessEvent)
	OnSendError(event SendErrorEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to
// override only the callbacks you need.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnSendSuccess(SendSuccessEvent) {}
func (BaseEventHandler) OnSendError(SendErrorEvent)     {}

// StateChangeEvent describes a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// SendSuccessEvent describes a datagram handed to the kernel.
type SendSuccessEvent struct {
	FlushID    string
	EventCount int
	BytesSent  int
	Duration   time.Duration
	Final      bool
}

// SendErrorEvent describes a flush whose batch was lost.
type SendErrorEvent struct {
	FlushID    string
	Error      error
	EventCount int
	Final      bool
}

// eventEmitterWrapper adapts EventHandler to the internal observer interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnFlush(report ports.FlushReport) {
	if e.handler == nil {
		return
	}
	if report.Err != nil {
		e.handler.OnSendError(SendErrorEvent{
			FlushID:    report.ID,
			Error:      report.Err,
			EventCount: report.Events,
			Final:      report.Final,
		})
		return
	}
	e.handler.OnSendSuccess(SendSuccessEvent{
		FlushID:    report.ID,
		EventCount: report.Events,
		BytesSent:  report.Bytes,
		Duration:   report.Duration,
		Final:      report.Final,
	})
}
