// Package udp implements ports.DatagramSocket on top of a single unconnected
// UDP socket.
package udp

import (
	"fmt"
	"net"
	"sync"

	"github.com/bft-labs/udpship/internal/domain"
	"github.com/bft-labs/udpship/internal/ports"
)

// Socket families accepted by Open.
const (
	NetworkUDP4 = "udp4"
	NetworkUDP6 = "udp6"
)

// queueSize bounds sends handed over but not yet written.
const queueSize = 64

type sendRequest struct {
	payload  []byte
	endpoint domain.Endpoint
	done     func(error)
}

// Socket writes datagrams from a single goroutine, in the order Send was
// called, and reports each outcome through the request's callback.
type Socket struct {
	network string
	conn    *net.UDPConn
	logger  ports.Logger

	mu      sync.RWMutex
	closed  bool
	queue   chan sendRequest
	stopped chan struct{}

	closeOnce sync.Once
	closeErr  error

	// addrs caches resolved endpoints; only the writer goroutine touches it.
	addrs map[domain.Endpoint]*net.UDPAddr
}

// Open creates an unbound socket of the given family ("udp4" or "udp6").
func Open(network string, logger ports.Logger) (*Socket, error) {
	switch network {
	case NetworkUDP4, NetworkUDP6:
	default:
		return nil, fmt.Errorf("%w: unsupported udp type %q", domain.ErrInvalidConfig, network)
	}

	conn, err := net.ListenUDP(network, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s socket: %w", network, err)
	}

	s := &Socket{
		network: network,
		conn:    conn,
		logger:  logger,
		queue:   make(chan sendRequest, queueSize),
		stopped: make(chan struct{}),
		addrs:   make(map[domain.Endpoint]*net.UDPAddr),
	}
	go s.writeLoop()
	return s, nil
}

// Factory adapts Open to ports.SocketFactory.
func Factory(logger ports.Logger) ports.SocketFactory {
	return func(network string) (ports.DatagramSocket, error) {
		return Open(network, logger)
	}
}

// Send queues payload for a single write to endpoint.
// After Close, done is called with net.ErrClosed without any write.
func (s *Socket) Send(payload []byte, endpoint domain.Endpoint, done func(error)) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		go done(fmt.Errorf("send to %s: %w", endpoint, net.ErrClosed))
		return
	}
	s.queue <- sendRequest{payload: payload, endpoint: endpoint, done: done}
}

// Close waits for queued sends to be written, then closes the socket.
// Only the first call does any work.
func (s *Socket) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()

		<-s.stopped
		s.closeErr = s.conn.Close()
		s.logger.Debug("udp socket closed", ports.String("network", s.network))
	})
	return s.closeErr
}

// LocalAddr returns the address the OS bound the socket to.
func (s *Socket) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *Socket) writeLoop() {
	defer close(s.stopped)
	for req := range s.queue {
		req.done(s.write(req.payload, req.endpoint))
	}
}

func (s *Socket) write(payload []byte, endpoint domain.Endpoint) error {
	addr, err := s.resolve(endpoint)
	if err != nil {
		return err
	}
	if _, err := s.conn.WriteToUDP(payload, addr); err != nil {
		return fmt.Errorf("write to %s: %w", endpoint, err)
	}
	return nil
}

// resolve looks endpoint up once; later sends reuse the address.
func (s *Socket) resolve(endpoint domain.Endpoint) (*net.UDPAddr, error) {
	if addr, ok := s.addrs[endpoint]; ok {
		return addr, nil
	}
	addr, err := net.ResolveUDPAddr(s.network, endpoint.String())
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", endpoint, err)
	}
	s.addrs[endpoint] = addr
	return addr, nil
}

var _ ports.DatagramSocket = (*Socket)(nil)
