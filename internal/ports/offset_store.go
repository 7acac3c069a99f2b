package ports

import (
	"context"

	"github.com/bft-labs/udpship/internal/domain"
)

// OffsetStore persists the read position of a followed event file.
type OffsetStore interface {
	// Load retrieves the last saved offset.
	// Returns a zero Offset and nil error if nothing was saved yet.
	Load(ctx context.Context) (domain.Offset, error)

	// Save persists the offset atomically.
	Save(ctx context.Context, offset domain.Offset) error
}
