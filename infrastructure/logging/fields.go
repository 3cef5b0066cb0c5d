package logging

import (
	"strings"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// Field adds structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Str adds a string under key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Str(key, value) }
}

// Int adds an integer under key.
func Int(key string, n int) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Int(key, n) }
}

func boolean(key string, b bool) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Bool(key, b) }
}

// Construction fields.

func ReportID(id string) Field { return Str("report_id", id) }
func Model(name string) Field { return Str("model", name) }
func Strategy(s string) Field { return Str("strategy", s) }
func SequenceLength(n int) Field { return Int("sequence_length", n) }
func Exact(exact bool) Field { return boolean("exact", exact) }
func Cached(cached bool) Field { return boolean("cached", cached) }
func Locations(l []string) Field { return Str("locations", strings.Join(l, ",")) }
func Count(n int) Field { return Int("count", n) }
func Path(p string) Field { return Str("path", p) }
func Component(name string) Field { return Str("component", name) }
func Operation(op string) Field { return Str("operation", op) }

// Duration adds d in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Int64("duration_ms", d.Milliseconds()) }
}

// ErrorField adds err; a nil error adds nothing.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}
