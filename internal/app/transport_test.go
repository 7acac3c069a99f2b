package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/udpship/internal/domain"
	"github.com/bft-labs/udpship/internal/encoding"
	"github.com/bft-labs/udpship/internal/ports"
)

const testEndpoint = "udp://127.0.0.1:9999"

func newTestTransport(t *testing.T, threshold int, socket *fakeSocket) *Transport {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Threshold = threshold
	cfg.Host = "host-a"

	tr, err := NewTransport(testEndpoint, cfg, Dependencies{
		SocketFactory: socket.factory(),
		Logger:        &mockLogger{},
		Clock:         func() time.Time { return time.UnixMilli(1700000000000) },
	})
	if err != nil {
		t.Fatalf("NewTransport: %v", err)
	}
	return tr
}

func push(t *testing.T, tr *Transport, ids ...int) {
	t.Helper()
	for _, id := range ids {
		if err := tr.Push(context.Background(), map[string]any{"id": id}); err != nil {
			t.Fatalf("Push(%d): %v", id, err)
		}
	}
}

func sentIDs(t *testing.T, socket *fakeSocket) [][]float64 {
	t.Helper()
	var out [][]float64
	for _, payload := range socket.Sent() {
		out = append(out, eventIDs(decodeEnvelope(t, payload)))
	}
	return out
}

func TestNewTransport_Errors(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		modify   func(*Config)
		want     error
	}{
		{"missing port", "udp://127.0.0.1", nil, domain.ErrInvalidEndpoint},
		{"missing host", "udp://:9999", nil, domain.ErrInvalidEndpoint},
		{"non-numeric port", "udp://127.0.0.1:abc", nil, domain.ErrInvalidEndpoint},
		{"port out of range", "udp://127.0.0.1:70000", nil, domain.ErrInvalidEndpoint},
		{"negative threshold", testEndpoint, func(c *Config) { c.Threshold = -1 }, domain.ErrInvalidConfig},
		{"bad udp type", testEndpoint, func(c *Config) { c.UDPType = "udp5" }, domain.ErrInvalidConfig},
		{"bad codec", testEndpoint, func(c *Config) { c.Codec = "xml" }, domain.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			if tt.modify != nil {
				tt.modify(&cfg)
			}
			opened := false
			factory := func(string) (ports.DatagramSocket, error) {
				opened = true
				return newFakeSocket(), nil
			}

			_, err := NewTransport(tt.endpoint, cfg, Dependencies{SocketFactory: factory})
			if !errors.Is(err, tt.want) {
				t.Errorf("NewTransport() error = %v, want %v", err, tt.want)
			}
			if opened {
				t.Error("socket opened despite construction error")
			}
		})
	}
}

func TestNewTransport_SocketError(t *testing.T) {
	boom := errors.New("no sockets left")
	factory := func(string) (ports.DatagramSocket, error) { return nil, boom }

	_, err := NewTransport(testEndpoint, DefaultConfig(), Dependencies{SocketFactory: factory})
	if !errors.Is(err, boom) {
		t.Errorf("NewTransport() error = %v, want %v", err, boom)
	}
}

func TestNewTransport_HostResolution(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		resolver func() (string, error)
		want     string
	}{
		{"explicit host", "configured", func() (string, error) { return "resolved", nil }, "configured"},
		{"resolved", "", func() (string, error) { return "resolved", nil }, "resolved"},
		{"resolver error", "", func() (string, error) { return "", errors.New("boom") }, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			socket := newFakeSocket()
			cfg := DefaultConfig()
			cfg.Host = tt.host
			cfg.Threshold = 1

			tr, err := NewTransport(testEndpoint, cfg, Dependencies{
				SocketFactory: socket.factory(),
				HostResolver:  tt.resolver,
			})
			if err != nil {
				t.Fatalf("NewTransport: %v", err)
			}
			if tr.Host() != tt.want {
				t.Errorf("Host() = %q, want %q", tr.Host(), tt.want)
			}

			push(t, tr, 1)
			if env := decodeEnvelope(t, socket.Sent()[0]); env.Host != tt.want {
				t.Errorf("envelope host = %q, want %q", env.Host, tt.want)
			}
		})
	}
}

func TestTransport_BelowThresholdNoIO(t *testing.T) {
	socket := newFakeSocket()
	tr := newTestTransport(t, 5, socket)

	push(t, tr, 1, 2, 3, 4)

	if n := len(socket.Sent()); n != 0 {
		t.Errorf("sent %d datagrams below threshold, want 0", n)
	}
	if tr.Pending() != 4 {
		t.Errorf("Pending() = %d, want 4", tr.Pending())
	}
}

func TestTransport_BelowThresholdDoesNotWait(t *testing.T) {
	socket := newFakeSocket()
	socket.holdCompletions()
	tr := newTestTransport(t, 2, socket)

	// the first batch's send never completes while held; a cancelled push
	// returns without waiting for it
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	push(t, tr, 1)
	if err := tr.Push(ctx, map[string]any{"id": 2}); !errors.Is(err, context.Canceled) {
		t.Fatalf("crossing push error = %v, want context.Canceled", err)
	}

	done := make(chan error, 1)
	go func() { done <- tr.Push(context.Background(), map[string]any{"id": 3}) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Push below threshold: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("push below threshold blocked on an in-flight send")
	}
	socket.release()
}

func TestTransport_BatchesInPushOrder(t *testing.T) {
	socket := newFakeSocket()
	tr := newTestTransport(t, 3, socket)

	push(t, tr, 0, 1, 2, 3, 4, 5)

	got := sentIDs(t, socket)
	want := [][]float64{{0, 1, 2}, {3, 4, 5}}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("batches = %v, want %v", got, want)
	}
}

func TestTransport_SendCount(t *testing.T) {
	tests := []struct {
		threshold int
		pushes    int
		sends     int
	}{
		{threshold: 3, pushes: 7, sends: 3},
		{threshold: 3, pushes: 6, sends: 3},
		{threshold: 5, pushes: 2, sends: 1},
		{threshold: 1, pushes: 4, sends: 5},
		{threshold: 10, pushes: 0, sends: 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("T%d_N%d", tt.threshold, tt.pushes), func(t *testing.T) {
			socket := newFakeSocket()
			tr := newTestTransport(t, tt.threshold, socket)

			for i := range tt.pushes {
				push(t, tr, i)
			}
			if err := tr.Complete(context.Background()); err != nil {
				t.Fatalf("Complete: %v", err)
			}

			sent := socket.Sent()
			if len(sent) != tt.sends {
				t.Errorf("sent %d datagrams, want %d", len(sent), tt.sends)
			}

			// every event delivered exactly once, in order
			var all []float64
			for _, ids := range sentIDs(t, socket) {
				all = append(all, ids...)
			}
			if len(all) != tt.pushes {
				t.Fatalf("delivered %d events, want %d", len(all), tt.pushes)
			}
			for i, id := range all {
				if id != float64(i) {
					t.Errorf("event %d has id %v", i, id)
				}
			}
		})
	}
}

func TestTransport_ThresholdZero(t *testing.T) {
	socket := newFakeSocket()
	tr := newTestTransport(t, 0, socket)

	push(t, tr, 7, 8)

	got := sentIDs(t, socket)
	if fmt.Sprint(got) != fmt.Sprint([][]float64{{7}, {8}}) {
		t.Errorf("batches = %v, want one event per datagram", got)
	}
	if tr.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", tr.Pending())
	}
}

func TestTransport_CompleteDrainsRemainder(t *testing.T) {
	socket := newFakeSocket()
	emitter := &mockEmitter{}
	cfg := DefaultConfig()
	cfg.Threshold = 3
	cfg.Host = "host-a"
	cfg.Schema = "schema-a"

	tr, err := NewTransport(testEndpoint, cfg, Dependencies{
		SocketFactory: socket.factory(),
		StateObserver: emitter,
		Clock:         func() time.Time { return time.UnixMilli(42) },
	})
	if err != nil {
		t.Fatalf("NewTransport: %v", err)
	}

	push(t, tr, 0, 1, 2, 3, 4)
	if err := tr.Complete(context.Background()); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	got := sentIDs(t, socket)
	if fmt.Sprint(got) != fmt.Sprint([][]float64{{0, 1, 2}, {3, 4}}) {
		t.Errorf("batches = %v", got)
	}
	last := decodeEnvelope(t, socket.Sent()[1])
	if last.Host != "host-a" || last.Schema != "schema-a" || last.TimeStamp != 42 {
		t.Errorf("final envelope header = %+v", last)
	}

	if !tr.Closed() || tr.State() != StateClosed {
		t.Errorf("state after Complete = %v", tr.State())
	}
	if socket.Closes() != 1 {
		t.Errorf("socket closed %d times, want 1", socket.Closes())
	}

	events := emitter.Events()
	if len(events) != 2 || events[0].current != StateDraining || events[1].current != StateClosed {
		t.Errorf("state events = %+v", events)
	}
}

func TestTransport_CompleteEmpty(t *testing.T) {
	socket := newFakeSocket()
	tr := newTestTransport(t, 3, socket)

	push(t, tr, 0, 1, 2)
	if err := tr.Complete(context.Background()); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	sent := socket.Sent()
	if len(sent) != 2 {
		t.Fatalf("sent %d datagrams, want 2", len(sent))
	}
	if env := decodeEnvelope(t, sent[1]); len(env.Events) != 0 {
		t.Errorf("drain envelope carries %d events, want 0", len(env.Events))
	}
}

func TestTransport_RejectsAfterComplete(t *testing.T) {
	socket := newFakeSocket()
	tr := newTestTransport(t, 3, socket)

	push(t, tr, 1)
	if err := tr.Complete(context.Background()); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if err := tr.Push(context.Background(), map[string]any{"id": 2}); !errors.Is(err, domain.ErrClosed) {
		t.Errorf("Push after Complete = %v, want ErrClosed", err)
	}
	if err := tr.Complete(context.Background()); !errors.Is(err, domain.ErrClosed) {
		t.Errorf("second Complete = %v, want ErrClosed", err)
	}
	if n := len(socket.Sent()); n != 1 {
		t.Errorf("sent %d datagrams, want 1", n)
	}
	if socket.Closes() != 1 {
		t.Errorf("socket closed %d times, want 1", socket.Closes())
	}
}

func TestTransport_RejectsWhileDraining(t *testing.T) {
	socket := newFakeSocket()
	socket.holdCompletions()
	tr := newTestTransport(t, 3, socket)

	done := make(chan error, 1)
	go func() { done <- tr.Complete(context.Background()) }()

	deadline := time.Now().Add(time.Second)
	for tr.State() != StateDraining {
		if time.Now().After(deadline) {
			t.Fatal("transport never started draining")
		}
		time.Sleep(time.Millisecond)
	}

	if err := tr.Push(context.Background(), "late"); !errors.Is(err, domain.ErrClosed) {
		t.Errorf("Push while draining = %v, want ErrClosed", err)
	}

	socket.release()
	if err := <-done; err != nil {
		t.Errorf("Complete: %v", err)
	}
}

func TestTransport_SendFailureIsLossy(t *testing.T) {
	socket := newFakeSocket()
	socket.failAt(0, errors.New("host unreachable"))
	tr := newTestTransport(t, 2, socket)

	push(t, tr, 0)
	err := tr.Push(context.Background(), map[string]any{"id": 1})
	if !errors.Is(err, domain.ErrSend) {
		t.Fatalf("crossing push error = %v, want ErrSend", err)
	}

	// the failed batch is gone; later pushes keep working
	push(t, tr, 2, 3)
	if tr.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", tr.Pending())
	}
	got := sentIDs(t, socket)
	if fmt.Sprint(got) != fmt.Sprint([][]float64{{0, 1}, {2, 3}}) {
		t.Errorf("batches = %v", got)
	}
}

func TestTransport_CompleteReportsSendFailure(t *testing.T) {
	socket := newFakeSocket()
	socket.failAt(0, errors.New("host unreachable"))
	tr := newTestTransport(t, 5, socket)

	push(t, tr, 0)
	err := tr.Complete(context.Background())
	if !errors.Is(err, domain.ErrSend) {
		t.Errorf("Complete error = %v, want ErrSend", err)
	}
	if !tr.Closed() {
		t.Error("transport should be closed even when the final send failed")
	}
}

func TestTransport_CompleteReportsCloseFailure(t *testing.T) {
	socket := newFakeSocket()
	socket.closeErr = errors.New("close failed")
	tr := newTestTransport(t, 5, socket)

	err := tr.Complete(context.Background())
	if err == nil || !errors.Is(err, socket.closeErr) {
		t.Errorf("Complete error = %v, want close error", err)
	}
}

func TestTransport_CompleteCancelled(t *testing.T) {
	socket := newFakeSocket()
	socket.holdCompletions()
	tr := newTestTransport(t, 5, socket)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tr.Complete(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Complete error = %v, want context.Canceled", err)
	}
	if !tr.Closed() {
		t.Error("transport not closed")
	}
	waitFor(t, func() bool { return socket.Closes() == 1 })
}

func TestTransport_CompleteBoundedByContext(t *testing.T) {
	socket := newFakeSocket()
	socket.closeGate = make(chan struct{})
	tr := newTestTransport(t, 5, socket)
	push(t, tr, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := tr.Complete(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Complete error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Complete took %v while the socket close hung", elapsed)
	}
	if !tr.Closed() {
		t.Error("transport not closed")
	}
	if got := len(socket.Sent()); got != 1 {
		t.Errorf("sent %d datagrams, want the final flush", got)
	}

	close(socket.closeGate)
	waitFor(t, func() bool { return socket.Closes() == 1 })
}

func TestTransport_StateObserverCallsBack(t *testing.T) {
	socket := newFakeSocket()
	var tr *Transport
	seen := make(chan int, 2)
	observer := stateObserverFunc(func(_, _ State, _ string) { seen <- tr.Pending() })

	var err error
	tr, err = NewTransport(testEndpoint, DefaultConfig(), Dependencies{
		SocketFactory: socket.factory(),
		Logger:        &mockLogger{},
		StateObserver: observer,
	})
	if err != nil {
		t.Fatalf("NewTransport: %v", err)
	}
	push(t, tr, 1, 2)

	done := make(chan error, 1)
	go func() { done <- tr.Complete(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Complete: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Complete blocked while the observer read Pending")
	}

	for range 2 {
		if got := <-seen; got != 0 {
			t.Errorf("Pending() from observer = %d, want 0", got)
		}
	}
	env := decodeEnvelope(t, socket.Sent()[0])
	if len(env.Events) != 2 {
		t.Errorf("drain envelope carries %d events, want 2", len(env.Events))
	}
}

type stateObserverFunc func(previous, current State, reason string)

func (f stateObserverFunc) OnStateChange(previous, current State, reason string) {
	f(previous, current, reason)
}

func TestTransport_CyclicEvent(t *testing.T) {
	socket := newFakeSocket()
	tr := newTestTransport(t, 1, socket)

	a := map[string]any{"id": 1}
	b := map[string]any{"peer": a}
	a["peer"] = b

	if err := tr.Push(context.Background(), a); err != nil {
		t.Fatalf("Push: %v", err)
	}
	env := decodeEnvelope(t, socket.Sent()[0])
	peer, ok := env.Events[0]["peer"].(map[string]any)
	if !ok {
		t.Fatalf("peer = %#v", env.Events[0]["peer"])
	}
	if peer["peer"] != encoding.CircularMarker {
		t.Errorf("back reference = %v, want %q", peer["peer"], encoding.CircularMarker)
	}

	// the producer's event is untouched
	if a["peer"].(map[string]any)["peer"].(map[string]any)["id"] != 1 {
		t.Error("event mutated by encoding")
	}
}

func TestTransport_ConcurrentPushes(t *testing.T) {
	socket := newFakeSocket()
	tr := newTestTransport(t, 7, socket)

	const producers, perProducer = 8, 50
	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perProducer {
				if err := tr.Push(context.Background(), map[string]any{"id": p*perProducer + i}); err != nil {
					t.Errorf("Push: %v", err)
				}
			}
		}()
	}
	wg.Wait()
	if err := tr.Complete(context.Background()); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	seen := make(map[float64]bool)
	batches := sentIDs(t, socket)
	for i, ids := range batches {
		if i < len(batches)-1 && len(ids) != 7 {
			t.Errorf("batch %d has %d events, want 7", i, len(ids))
		}
		for _, id := range ids {
			if seen[id] {
				t.Errorf("event %v delivered twice", id)
			}
			seen[id] = true
		}
	}
	if len(seen) != producers*perProducer {
		t.Errorf("delivered %d distinct events, want %d", len(seen), producers*perProducer)
	}
}
