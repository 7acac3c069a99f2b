package udpship

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/bft-labs/udpship/internal/domain"
	"github.com/bft-labs/udpship/internal/ports"
	"github.com/bft-labs/udpship/pkg/log"
)

// Logger is the structured logging interface from pkg/log.
type Logger = log.Logger

// Endpoint is a parsed destination address.
type Endpoint = domain.Endpoint

// DatagramSocket is the network-facing port. Send must call done exactly
// once with the outcome of a single write.
type DatagramSocket = ports.DatagramSocket

// SocketFactory opens a DatagramSocket for "udp4" or "udp6".
type SocketFactory = ports.SocketFactory

// Option configures optional behavior of a Transport.
type Option func(*options)

type options struct {
	logger         Logger
	eventHandler   EventHandler
	socketFactory  SocketFactory
	hostResolver   func() (string, error)
	clock          func() time.Time
	registerer     prometheus.Registerer
	tracerProvider trace.TracerProvider
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for transport events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithSocketFactory replaces the UDP socket, mostly for tests.
func WithSocketFactory(factory SocketFactory) Option {
	return func(o *options) {
		o.socketFactory = factory
	}
}

// WithHostResolver replaces os.Hostname when Config.Host is empty.
func WithHostResolver(resolve func() (string, error)) Option {
	return func(o *options) {
		o.hostResolver = resolve
	}
}

// WithClock sets the clock used for envelope timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithMetrics registers flush metrics with reg.
// A nil reg means prometheus.DefaultRegisterer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		o.registerer = reg
	}
}

// WithTracerProvider sets where flush spans go. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}
