package log

import (
	"fmt"
	"time"
)

// Logger is the structured logger used throughout udpship. Messages are
// short lowercase phrases; context goes into fields.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is one key/value pair attached to a log line. Adapters pick the
// encoding from the dynamic type of Value.
type Field struct {
	Key   string
	Value any
}

// String is used for identifiers such as flush ids, topics and paths.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int is used for event and byte counts.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 is used for file offsets and sizes.
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration is used for flush latency and poll intervals.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Stringer defers formatting of values like endpoints and lifecycle
// states until the line is actually written.
func Stringer(key string, value fmt.Stringer) Field {
	return Field{Key: key, Value: value}
}

// Err attaches err under the "error" key.
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Any attaches a composite value, such as the resolved CLI configuration.
func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}
