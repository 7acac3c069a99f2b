// Package source feeds events into a transport.
//
// Three sources are provided:
//
//   - [ReadNDJSON]: one JSON document per line from any io.Reader
//   - [Follower]: tails a newline-delimited JSON file, resuming from a
//     persisted offset and waking on fsnotify events
//   - [Subscribe]: consumes a Watermill topic, one event per message
//
// All of them stop when the transport reports domain.ErrClosed and keep
// going after a failed send; lost batches are the transport's policy.
package source
