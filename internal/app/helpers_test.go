package app

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/udpship/internal/domain"
	"github.com/bft-labs/udpship/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct {
	mu     sync.Mutex
	errors []string
}

func (*mockLogger) Debug(msg string, fields ...ports.Field) {}
func (*mockLogger) Info(msg string, fields ...ports.Field)  {}
func (*mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (m *mockLogger) Error(msg string, fields ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) Errors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.errors...)
}

// fakeSocket records payloads. With hold set, completions are queued until
// release is called; otherwise they fire from a goroutine right away.
type fakeSocket struct {
	mu       sync.Mutex
	sent     [][]byte
	targets  []domain.Endpoint
	failures map[int]error
	hold     bool
	pending  []func()
	closed   int
	closeErr error
	// closeGate, when set, blocks Close until it is closed.
	closeGate chan struct{}
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{failures: make(map[int]error)}
}

func (s *fakeSocket) Send(payload []byte, endpoint domain.Endpoint, done func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := len(s.sent)
	s.sent = append(s.sent, append([]byte(nil), payload...))
	s.targets = append(s.targets, endpoint)

	err := s.failures[idx]
	if s.closed > 0 {
		err = errors.New("socket closed")
	}
	complete := func() { done(err) }
	if s.hold {
		s.pending = append(s.pending, complete)
		return
	}
	go complete()
}

func (s *fakeSocket) Close() error {
	s.release()
	if s.closeGate != nil {
		<-s.closeGate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return s.closeErr
}

// failAt makes the n-th send (0-based) fail with err.
func (s *fakeSocket) failAt(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[n] = err
}

func (s *fakeSocket) holdCompletions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hold = true
}

func (s *fakeSocket) release() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.hold = false
	s.mu.Unlock()

	for _, complete := range pending {
		complete()
	}
}

func (s *fakeSocket) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte{}, s.sent...)
}

func (s *fakeSocket) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSocket) factory() ports.SocketFactory {
	return func(string) (ports.DatagramSocket, error) { return s, nil }
}

// recordingObserver collects flush reports.
type recordingObserver struct {
	mu      sync.Mutex
	reports []ports.FlushReport
}

func (o *recordingObserver) OnFlush(report ports.FlushReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reports = append(o.reports, report)
}

func (o *recordingObserver) Reports() []ports.FlushReport {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]ports.FlushReport{}, o.reports...)
}

// mockEmitter tracks state change events for testing.
type mockEmitter struct {
	mu     sync.Mutex
	events []stateChangeEvent
}

type stateChangeEvent struct {
	previous State
	current  State
	reason   string
}

func (m *mockEmitter) OnStateChange(previous, current State, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, stateChangeEvent{previous, current, reason})
}

func (m *mockEmitter) Events() []stateChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stateChangeEvent{}, m.events...)
}

type wireEnvelope struct {
	Host      string           `json:"host"`
	Schema    string           `json:"schema"`
	TimeStamp int64            `json:"timeStamp"`
	Events    []map[string]any `json:"events"`
}

func decodeEnvelope(t *testing.T, payload []byte) wireEnvelope {
	t.Helper()
	var env wireEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		t.Fatalf("decode envelope %q: %v", payload, err)
	}
	return env
}

// eventIDs returns the "id" field of every event, as float64 per encoding/json.
func eventIDs(env wireEnvelope) []float64 {
	ids := make([]float64, 0, len(env.Events))
	for _, ev := range env.Events {
		id, _ := ev["id"].(float64)
		ids = append(ids, id)
	}
	return ids
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
