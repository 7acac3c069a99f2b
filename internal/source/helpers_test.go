package source

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/udpship/internal/domain"
	"github.com/bft-labs/udpship/internal/ports"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...ports.Field) {}
func (nopLogger) Info(string, ...ports.Field)  {}
func (nopLogger) Warn(string, ...ports.Field)  {}
func (nopLogger) Error(string, ...ports.Field) {}

// fakePusher records events. errs maps a 0-based push index to the error
// that push returns; once closed it returns domain.ErrClosed.
type fakePusher struct {
	mu     sync.Mutex
	events []domain.Event
	calls  int
	errs   map[int]error
	closed bool
}

func (p *fakePusher) Push(ctx context.Context, ev domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return domain.ErrClosed
	}
	idx := p.calls
	p.calls++
	if err := p.errs[idx]; err != nil {
		return err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePusher) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *fakePusher) Events() []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Event{}, p.events...)
}

// ids renders the "id" field of every recorded event.
func (p *fakePusher) ids() []string {
	var out []string
	for _, ev := range p.Events() {
		m, _ := ev.(map[string]any)
		out = append(out, fmt.Sprint(m["id"]))
	}
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// memoryStore is an in-memory ports.OffsetStore.
type memoryStore struct {
	mu     sync.Mutex
	offset domain.Offset
	saves  int
}

func (s *memoryStore) Load(context.Context) (domain.Offset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset, nil
}

func (s *memoryStore) Save(_ context.Context, offset domain.Offset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset = offset
	s.saves++
	return nil
}

func (s *memoryStore) Offset() domain.Offset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}
