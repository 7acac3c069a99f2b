package domain

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// Endpoint is the destination of every datagram.
// Only the host and port of the configured address are kept.
type Endpoint struct {
	Host string
	Port int
}

// ParseEndpoint parses a URI-shaped address such as "udp://127.0.0.1:33333".
// The scheme is accepted but ignored. A missing host or a missing, non-numeric
// or out-of-range port is reported as ErrInvalidEndpoint.
func ParseEndpoint(address string) (Endpoint, error) {
	u, err := url.Parse(address)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %q: %v", ErrInvalidEndpoint, address, err)
	}
	if u.Host == "" {
		return Endpoint{}, fmt.Errorf("%w: %q: missing host", ErrInvalidEndpoint, address)
	}

	host := u.Hostname()
	if host == "" {
		return Endpoint{}, fmt.Errorf("%w: %q: missing host", ErrInvalidEndpoint, address)
	}

	rawPort := u.Port()
	if rawPort == "" {
		return Endpoint{}, fmt.Errorf("%w: %q: missing port", ErrInvalidEndpoint, address)
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil || port <= 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("%w: %q: bad port %q", ErrInvalidEndpoint, address, rawPort)
	}

	return Endpoint{Host: host, Port: port}, nil
}

// String returns the endpoint in host:port form, bracketing IPv6 literals.
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}
