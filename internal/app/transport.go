package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/bft-labs/udpship/internal/adapters/udp"
	"github.com/bft-labs/udpship/internal/domain"
	"github.com/bft-labs/udpship/internal/encoding"
	"github.com/bft-labs/udpship/internal/ports"
	"github.com/bft-labs/udpship/pkg/log"
)

// TracerName is the instrumentation scope of flush spans.
const TracerName = "github.com/bft-labs/udpship"

// unknownHost is embedded in envelopes when the hostname cannot be resolved.
const unknownHost = "unknown"

// Dependencies holds the collaborators of a Transport. Zero values are
// replaced with defaults by NewTransport.
type Dependencies struct {
	SocketFactory ports.SocketFactory
	Logger        ports.Logger
	Observer      ports.FlushObserver
	StateObserver StateObserver
	HostResolver  func() (string, error)
	Clock         func() time.Time
	Tracer        trace.Tracer
}

func (d *Dependencies) setDefaults() {
	if d.Logger == nil {
		d.Logger = log.NewNoopLogger()
	}
	if d.SocketFactory == nil {
		d.SocketFactory = udp.Factory(d.Logger)
	}
	if d.HostResolver == nil {
		d.HostResolver = os.Hostname
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Tracer == nil {
		d.Tracer = otel.Tracer(TracerName)
	}
}

// Transport is the producer-facing side: events are pushed one at a time,
// batched, and flushed to the endpoint as single datagrams.
type Transport struct {
	// mu serializes the lifecycle check, the accumulator and flush
	// initiation so batches leave in push order.
	mu        sync.Mutex
	acc       *Accumulator
	flusher   *Flusher
	lifecycle *Lifecycle

	socket    ports.DatagramSocket
	closeOnce sync.Once
	closeErr  error

	endpoint domain.Endpoint
	host     string
	config   Config
	logger   ports.Logger
}

// NewTransport validates cfg, parses endpoint ("scheme://host:port"),
// resolves the host name and opens the socket. All failures are returned
// synchronously and leave nothing open.
func NewTransport(endpoint string, cfg Config, deps Dependencies) (*Transport, error) {
	deps.setDefaults()

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ep, err := domain.ParseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	enc, err := encoding.NewEncoder(cfg.Codec, cfg.Compression)
	if err != nil {
		return nil, err
	}

	host := cfg.Host
	if host == "" {
		host = resolveHost(deps.HostResolver, deps.Logger)
	}
	cfg.Host = host

	socket, err := deps.SocketFactory(cfg.UDPType)
	if err != nil {
		return nil, fmt.Errorf("create socket: %w", err)
	}

	t := &Transport{
		acc: NewAccumulator(cfg.Threshold),
		flusher: NewFlusher(FlusherConfig{
			Socket:   socket,
			Encoder:  enc,
			Endpoint: ep,
			Host:     host,
			Schema:   cfg.Schema,
			Clock:    deps.Clock,
			Logger:   deps.Logger,
			Observer: deps.Observer,
			Tracer:   deps.Tracer,
		}),
		lifecycle: NewLifecycle(deps.Logger, deps.StateObserver),
		socket:    socket,
		endpoint:  ep,
		host:      host,
		config:    cfg,
		logger:    deps.Logger,
	}

	deps.Logger.Info("transport opened",
		ports.Stringer("endpoint", ep),
		ports.String("udp_type", cfg.UDPType),
		ports.Int("threshold", cfg.Threshold),
		ports.String("schema", cfg.Schema),
		ports.String("host", host),
		ports.String("codec", enc.Codec()),
		ports.String("compression", enc.Compression()),
	)

	return t, nil
}

// Push buffers ev. Below the threshold it returns nil without any I/O.
// The push that reaches the threshold flushes the batch and waits for the
// send to complete or ctx to be done, whichever comes first; a failed send
// is returned but the batch is not retried. After Complete has been called
// Push returns domain.ErrClosed.
func (t *Transport) Push(ctx context.Context, ev domain.Event) error {
	t.mu.Lock()
	if !t.lifecycle.Accepting() {
		t.mu.Unlock()
		return domain.ErrClosed
	}
	batch, flush := t.acc.Add(ev)
	if !flush {
		t.mu.Unlock()
		return nil
	}
	result := t.flusher.Flush(ctx, batch, false)
	t.mu.Unlock()

	return wait(ctx, result)
}

// Complete drains the transport: it stops accepting pushes, flushes whatever
// is buffered (an empty batch still produces a zero-event envelope), waits
// for that send, closes the socket and returns the send and close errors.
// Only the first call does any work; later calls return domain.ErrClosed.
//
// If ctx is done before the final send or the socket close completes, the
// transport still ends up closed, the close finishes in the background and
// ctx.Err() is returned.
func (t *Transport) Complete(ctx context.Context) error {
	t.mu.Lock()
	notify, err := t.lifecycle.Transition(StateDraining, "complete requested")
	if err != nil {
		t.mu.Unlock()
		return domain.ErrClosed
	}
	batch := t.acc.Take()
	t.mu.Unlock()
	notify()

	// Pushes can no longer start a flush, so this one is the last in line.
	sendErr := wait(ctx, t.flusher.Flush(ctx, batch, true))
	closeErr := t.closeSocket(ctx)
	if sendErr != nil && errors.Is(closeErr, sendErr) {
		closeErr = nil
	}

	if err := t.lifecycle.TransitionTo(StateClosed, "drained"); err != nil {
		t.logger.Error("close transition failed", ports.Err(err))
	}

	t.logger.Info("transport closed",
		ports.Stringer("endpoint", t.endpoint),
		ports.Int("events", len(batch)),
		ports.Bool("send_ok", sendErr == nil),
	)

	return errors.Join(sendErr, closeErr)
}

// closeSocket closes the socket once. It stops waiting when ctx is done and
// returns ctx.Err(); the close itself still runs to completion.
func (t *Transport) closeSocket(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		t.closeOnce.Do(func() {
			if err := t.socket.Close(); err != nil {
				t.closeErr = fmt.Errorf("close socket: %w", err)
			}
		})
	}()

	select {
	case <-done:
		return t.closeErr
	case <-ctx.Done():
		t.logger.Warn("socket close still pending", ports.Err(ctx.Err()))
		return ctx.Err()
	}
}

// State returns the lifecycle state.
func (t *Transport) State() State {
	return t.lifecycle.State()
}

// Closed reports whether Complete has finished and the socket is released.
func (t *Transport) Closed() bool {
	return t.lifecycle.State() == StateClosed
}

// Pending returns the number of buffered, not yet flushed events.
func (t *Transport) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.acc.Len()
}

// Endpoint returns the parsed destination.
func (t *Transport) Endpoint() domain.Endpoint {
	return t.endpoint
}

// Host returns the host name embedded in every envelope.
func (t *Transport) Host() string {
	return t.host
}

// Config returns the resolved configuration.
func (t *Transport) Config() Config {
	return t.config
}

func wait(ctx context.Context, result <-chan error) error {
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func resolveHost(resolve func() (string, error), logger ports.Logger) string {
	host, err := resolve()
	if err != nil || host == "" {
		logger.Warn("could not resolve hostname", ports.Err(err), ports.String("fallback", unknownHost))
		return unknownHost
	}
	return host
}
