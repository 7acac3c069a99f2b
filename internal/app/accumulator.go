package app

import "github.com/bft-labs/udpship/internal/domain"

// Accumulator holds the events that have not been flushed yet and decides
// when a flush is due. It is not safe for concurrent use; Transport
// serializes access so that flushes are initiated strictly in push order.
type Accumulator struct {
	threshold int
	batch     []domain.Event
}

// NewAccumulator creates an accumulator that asks for a flush once threshold
// events are buffered. A threshold of 0 asks for a flush on every Add.
func NewAccumulator(threshold int) *Accumulator {
	return &Accumulator{
		threshold: threshold,
		batch:     newBatch(threshold),
	}
}

// Add appends ev. When the batch reaches the threshold, Add hands the whole
// batch back with flush set and starts a new, empty one.
func (a *Accumulator) Add(ev domain.Event) (batch []domain.Event, flush bool) {
	a.batch = append(a.batch, ev)
	if len(a.batch) < a.threshold {
		return nil, false
	}
	return a.Take(), true
}

// Take hands back the current batch, possibly empty, and starts a new one.
// The returned slice is never appended to again.
func (a *Accumulator) Take() []domain.Event {
	batch := a.batch
	a.batch = newBatch(a.threshold)
	return batch
}

// Len returns the number of buffered events.
func (a *Accumulator) Len() int {
	return len(a.batch)
}

// maxPrealloc caps the capacity reserved for a new batch.
const maxPrealloc = 1024

func newBatch(threshold int) []domain.Event {
	return make([]domain.Event, 0, max(1, min(threshold, maxPrealloc)))
}
