package udpship

import (
	"context"
	"io"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/bft-labs/udpship/internal/source"
	"github.com/bft-labs/udpship/pkg/log"
)

// SourceStats counts what a source did with its input.
type SourceStats = source.Stats

// ReadNDJSON pushes every line of r into t as one JSON event until EOF.
// Blank and malformed lines are skipped. It stops early with ErrClosed once
// t is completed, or with ctx.Err(). A nil logger discards log output.
func ReadNDJSON(ctx context.Context, r io.Reader, t *Transport, logger Logger) (SourceStats, error) {
	return source.ReadNDJSON(ctx, r, t, orNoop(logger))
}

// Subscribe pushes the JSON payload of every message on topic into t and
// acks it. It runs until ctx is done, the subscription ends or t is completed.
func Subscribe(ctx context.Context, sub message.Subscriber, topic string, t *Transport, logger Logger) (SourceStats, error) {
	return source.Subscribe(ctx, sub, topic, t, orNoop(logger))
}

func orNoop(logger Logger) Logger {
	if logger == nil {
		return log.NewNoopLogger()
	}
	return logger
}
