// Package encoding turns envelopes into datagram payloads.
//
// Encoding happens in three steps:
//
//  1. [Sanitize] walks each event and produces a plain, acyclic tree of
//     maps, slices and scalars. A reference reached again while it is still
//     being walked is replaced with [CircularMarker].
//  2. A [Codec] serializes the envelope (JSON by default, CBOR optionally).
//  3. A [Compressor] optionally compresses the serialized bytes.
//
// [Encoder] bundles the three steps and is what the flusher uses.
package encoding
