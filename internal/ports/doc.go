// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// # Port Interfaces
//
//   - [DatagramSocket]: Fire-and-forget datagram send with asynchronous completion
//   - [FlushObserver]: Receives one report per flush (metrics, event handlers)
//   - [OffsetStore]: Persists the read position of a followed event file
//   - [Logger]: Structured logging abstraction
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with a UDP
// socket, Prometheus collectors and a JSON offset file.
package ports
