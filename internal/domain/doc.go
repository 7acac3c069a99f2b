// Package domain contains the core entities and value objects for udpship.
//
// This package is the innermost layer of the shipper. It has no dependencies
// on infrastructure concerns (sockets, file system, logging) and contains only
// the data shapes the rest of the module agrees on.
//
// # Entities
//
//   - [Event]: An opaque structured record pushed by a producer
//   - [Envelope]: The unit transmitted per flush (host, schema, timestamp, events)
//   - [Endpoint]: The destination host and port, parsed once at construction
//   - [Offset]: Persistent read position of a followed event file
//
// Events are owned by the producer until pushed. After that they are only
// read, never mutated, by the encoder.
package domain
