package udpship

import (
	"context"
	"fmt"

	"github.com/bft-labs/udpship/internal/adapters/metrics"
	"github.com/bft-labs/udpship/internal/app"
	"github.com/bft-labs/udpship/internal/ports"
)

// Config holds the transport configuration.
//
// Start from DefaultConfig() and change what you need. Empty string fields
// fall back to their defaults, but Threshold does not: a literal Config{}
// has Threshold 0 and sends every event in its own datagram.
type Config = app.Config

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return app.DefaultConfig()
}

// Event is one structured record, usually a map[string]any.
type Event = any

// State is the lifecycle state of a Transport.
type State int

const (
	// StateOpen accepts pushes.
	StateOpen State = iota
	// StateDraining rejects pushes while the final flush is in flight.
	StateDraining
	// StateClosed means the socket has been released.
	StateClosed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "Open"
	case StateDraining:
		return "Draining"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Transport batches events and ships them as UDP datagrams.
// It is safe for concurrent use.
type Transport struct {
	t *app.Transport
}

// New creates a transport sending to endpoint ("udp://host:port").
// The socket is opened here; configuration and address errors are
// returned synchronously and wrap ErrInvalidConfig or ErrInvalidEndpoint.
func New(endpoint string, cfg Config, opts ...Option) (*Transport, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	observers := ports.FlushObservers{emitter}

	if o.registerer != nil {
		collector := metrics.NewCollector(o.registerer)
		if err := collector.Register(); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		observers = append(observers, collector)
	}

	deps := app.Dependencies{
		SocketFactory: o.socketFactory,
		Logger:        o.logger,
		Observer:      observers,
		StateObserver: emitter,
		HostResolver:  o.hostResolver,
		Clock:         o.clock,
	}
	if o.tracerProvider != nil {
		deps.Tracer = o.tracerProvider.Tracer(app.TracerName)
	}

	t, err := app.NewTransport(endpoint, cfg, deps)
	if err != nil {
		return nil, err
	}
	return &Transport{t: t}, nil
}

// Push buffers ev. The push that reaches the threshold waits for the
// resulting send and returns its error; others return nil without I/O.
// After Complete it returns ErrClosed.
func (t *Transport) Push(ctx context.Context, ev Event) error {
	return t.t.Push(ctx, ev)
}

// Complete flushes the remaining events, even none, closes the socket and
// returns the outcome of that last send. Later calls return ErrClosed.
func (t *Transport) Complete(ctx context.Context) error {
	return t.t.Complete(ctx)
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (t *Transport) Status() State {
	return convertState(t.t.State())
}

// Closed reports whether Complete has finished.
func (t *Transport) Closed() bool {
	return t.t.Closed()
}

// Pending returns the number of buffered events.
func (t *Transport) Pending() int {
	return t.t.Pending()
}

// Endpoint returns the parsed destination.
func (t *Transport) Endpoint() Endpoint {
	return t.t.Endpoint()
}

// Config returns the configuration after defaults were applied and the
// host name was resolved.
func (t *Transport) Config() Config {
	return t.t.Config()
}

// Host returns the host name written into every envelope.
func (t *Transport) Host() string {
	return t.t.Host()
}

func convertState(s app.State) State {
	switch s {
	case app.StateOpen:
		return StateOpen
	case app.StateDraining:
		return StateDraining
	default:
		return StateClosed
	}
}
