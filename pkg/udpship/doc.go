// Package udpship provides an embeddable event-batching UDP transport.
//
// Events pushed into a [Transport] are buffered until a configurable
// threshold is reached, then wrapped in an envelope carrying the host name,
// a schema tag and a millisecond timestamp, serialized (cycles become
// "[Circular]") and sent as one datagram. Delivery is best effort: there are
// no retries and a failed batch is dropped.
//
// # Basic Usage
//
//	cfg := udpship.DefaultConfig()
//	cfg.Threshold = 50
//
//	t, err := udpship.New("udp://collector.local:33333", cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for ev := range events {
//	    if err := t.Push(ctx, ev); err != nil {
//	        log.Printf("push: %v", err)
//	    }
//	}
//
//	// flushes the remainder and closes the socket
//	if err := t.Complete(ctx); err != nil {
//	    log.Printf("final flush: %v", err)
//	}
//
// # Backpressure
//
// Push returns immediately while the batch is below the threshold. The push
// that fills the batch waits until the datagram has been handed to the
// kernel (or ctx is done) and reports the send error, if any.
//
// # Wire Format
//
// With the default JSON codec every datagram is
//
//	{"host":"<host>","schema":"<schema>","timeStamp":<unix ms>,"events":[...]}
//
// [Config.Codec] selects CBOR instead and [Config.Compression] wraps the
// payload in gzip, zstd or lz4.
//
// # Event Handling
//
// Implement [EventHandler] (embedding [BaseEventHandler] for no-op
// defaults) and pass it via [WithEventHandler] to observe state changes and
// per-flush outcomes. Handlers run synchronously on the sending goroutine
// and must not call back into the Transport.
//
// # Lifecycle States
//
// A Transport is [StateOpen] until Complete is called, [StateDraining]
// while the final flush is in flight and [StateClosed] afterwards.
package udpship
