package source

import (
	"bytes"
	"context"
	"errors"

	"github.com/bft-labs/udpship/internal/domain"
	"github.com/bft-labs/udpship/internal/encoding"
	"github.com/bft-labs/udpship/internal/ports"
)

// Pusher accepts events one at a time.
type Pusher interface {
	Push(ctx context.Context, ev domain.Event) error
}

// Stats counts what a source did with its input.
type Stats struct {
	// Pushed events were accepted by the pusher
	Pushed int

	// Skipped inputs were blank or not valid JSON
	Skipped int

	// Failed pushes belonged to a batch whose send failed
	Failed int
}

// pushJSON decodes one JSON document and pushes it. It returns a non-nil
// error only when the source must stop: the pusher is closed or ctx is done.
func pushJSON(ctx context.Context, data []byte, p Pusher, logger ports.Logger, stats *Stats) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		stats.Skipped++
		return nil
	}

	ev, err := encoding.DecodeJSON(data)
	if err != nil {
		stats.Skipped++
		logger.Warn("skipping malformed event", ports.Err(err), ports.Int("bytes", len(data)))
		return nil
	}

	err = p.Push(ctx, ev)
	switch {
	case err == nil:
		stats.Pushed++
		return nil
	case errors.Is(err, domain.ErrClosed):
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		// the flusher has already logged the failure
		stats.Pushed++
		stats.Failed++
		return nil
	}
}
