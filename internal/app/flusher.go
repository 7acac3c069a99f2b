package app

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bft-labs/udpship/internal/domain"
	"github.com/bft-labs/udpship/internal/encoding"
	"github.com/bft-labs/udpship/internal/ports"
)

// Flusher wraps a batch in an envelope, encodes it and performs exactly one
// best-effort send. It never retries and never splits a payload.
type Flusher struct {
	socket   ports.DatagramSocket
	encoder  *encoding.Encoder
	endpoint domain.Endpoint
	host     string
	schema   string
	clock    func() time.Time
	logger   ports.Logger
	observer ports.FlushObserver
	tracer   trace.Tracer
}

// FlusherConfig holds the collaborators of a Flusher.
type FlusherConfig struct {
	Socket   ports.DatagramSocket
	Encoder  *encoding.Encoder
	Endpoint domain.Endpoint
	Host     string
	Schema   string
	Clock    func() time.Time
	Logger   ports.Logger
	Observer ports.FlushObserver
	Tracer   trace.Tracer
}

// NewFlusher creates a flusher. Clock defaults to time.Now.
func NewFlusher(cfg FlusherConfig) *Flusher {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Flusher{
		socket:   cfg.Socket,
		encoder:  cfg.Encoder,
		endpoint: cfg.Endpoint,
		host:     cfg.Host,
		schema:   cfg.Schema,
		clock:    clock,
		logger:   cfg.Logger,
		observer: cfg.Observer,
		tracer:   cfg.Tracer,
	}
}

// Flush encodes events and hands the payload to the socket. The returned
// channel receives exactly one value: the encode error, or the outcome of the
// send once the socket reports it. Send failures wrap domain.ErrSend. The
// observer is never called on the caller's goroutine, and always before the
// result is delivered. ctx only parents the trace span; it does not cancel
// the send.
func (f *Flusher) Flush(ctx context.Context, events []domain.Event, final bool) <-chan error {
	result := make(chan error, 1)

	now := f.clock()
	started := time.Now()
	report := ports.FlushReport{
		ID:     newFlushID(now),
		Events: len(events),
		Final:  final,
	}

	_, span := f.tracer.Start(ctx, "udpship.flush", trace.WithAttributes(
		attribute.String("udpship.flush_id", report.ID),
		attribute.Int("udpship.events", report.Events),
		attribute.Bool("udpship.final", final),
		attribute.String("net.peer.name", f.endpoint.Host),
		attribute.Int("net.peer.port", f.endpoint.Port),
	))

	payload, err := f.encoder.Encode(domain.NewEnvelope(f.host, f.schema, now, events))
	if err != nil {
		report.Err = err
		report.Duration = time.Since(started)
		// Flush runs under the transport lock; observers must not.
		go func() {
			f.finish(span, report)
			result <- err
		}()
		return result
	}
	report.Bytes = len(payload)

	f.socket.Send(payload, f.endpoint, func(sendErr error) {
		if sendErr != nil {
			sendErr = fmt.Errorf("%w: %w", domain.ErrSend, sendErr)
		}
		report.Err = sendErr
		report.Duration = time.Since(started)
		f.finish(span, report)
		result <- sendErr
	})

	return result
}

func (f *Flusher) finish(span trace.Span, report ports.FlushReport) {
	defer span.End()
	span.SetAttributes(attribute.Int("udpship.bytes", report.Bytes))

	if report.Err != nil {
		span.RecordError(report.Err)
		span.SetStatus(codes.Error, "flush failed")
		f.logger.Error("flush failed",
			ports.Err(report.Err),
			ports.String("flush_id", report.ID),
			ports.Int("events", report.Events),
			ports.Int("bytes", report.Bytes),
			ports.Bool("final", report.Final),
		)
	} else {
		f.logger.Debug("flushed batch",
			ports.String("flush_id", report.ID),
			ports.Int("events", report.Events),
			ports.Int("bytes", report.Bytes),
			ports.Bool("final", report.Final),
			ports.Duration("duration", report.Duration),
		)
	}

	if f.observer != nil {
		f.observer.OnFlush(report)
	}
}
