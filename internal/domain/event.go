package domain

import "time"

// Event is a single structured record handed over by a producer.
// It is usually a map[string]any decoded from JSON, but any value is accepted;
// the encoder turns it into a plain, acyclic tree before serialization.
type Event = any

// Envelope wraps one batch of events with the metadata receivers need.
// A fresh Envelope is built for every flush and discarded after encoding.
type Envelope struct {
	Host      string  `json:"host" cbor:"host"`
	Schema    string  `json:"schema" cbor:"schema"`
	TimeStamp int64   `json:"timeStamp" cbor:"timeStamp"`
	Events    []Event `json:"events" cbor:"events"`
}

// NewEnvelope builds an envelope stamped with the given wall-clock time.
// A nil events slice is normalized to an empty one so receivers always see a list.
func NewEnvelope(host, schema string, now time.Time, events []Event) Envelope {
	if events == nil {
		events = []Event{}
	}
	return Envelope{
		Host:      host,
		Schema:    schema,
		TimeStamp: now.UnixMilli(),
		Events:    events,
	}
}
