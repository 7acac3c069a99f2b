package ports

import "github.com/bft-labs/udpship/internal/domain"

// DatagramSocket is a connectionless, best-effort datagram sender.
// Implementations own exactly one OS socket for their lifetime.
type DatagramSocket interface {
	// Send hands payload to the socket addressed to endpoint and returns
	// without waiting for the write. done is invoked exactly once with the
	// outcome of the single write attempt, never from inside Send itself. Sends are at-most-once: there is
	// no retry and no fragmentation.
	Send(payload []byte, endpoint domain.Endpoint, done func(error))

	// Close completes every send already handed over, then releases the socket.
	Close() error
}

// SocketFactory opens a DatagramSocket for the given network ("udp4" or "udp6").
type SocketFactory func(network string) (DatagramSocket, error)
