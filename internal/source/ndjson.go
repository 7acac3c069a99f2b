package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bft-labs/udpship/internal/ports"
)

// ReadNDJSON pushes every line of r as one event until EOF. Blank and
// malformed lines are skipped; a final line without a trailing newline is
// still pushed. It returns early with domain.ErrClosed or ctx.Err().
func ReadNDJSON(ctx context.Context, r io.Reader, p Pusher, logger ports.Logger) (Stats, error) {
	var stats Stats
	reader := bufio.NewReader(r)

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 {
			if err := pushJSON(ctx, line, p, logger, &stats); err != nil {
				return stats, err
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return stats, nil
			}
			return stats, fmt.Errorf("read events: %w", readErr)
		}
	}
}
