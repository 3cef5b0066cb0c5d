// Package logging is the process-wide structured logger, built on bolt.
// Commands call Init once; everything else logs through the level helpers
// and the Field constructors.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/felixgeelhaar/bolt/v3"
)

var (
	defaultLogger *bolt.Logger
	initOnce      sync.Once
)

var levels = map[string]bolt.Level{
	"trace": bolt.TRACE,
	"debug": bolt.DEBUG,
	"info":  bolt.INFO,
	"warn":  bolt.WARN,
	"error": bolt.ERROR,
}

// Config configures the logger.
type Config struct {
	// Level is one of trace, debug, info, warn, error. Unknown levels mean info.
	Level string
	// Format is json or console.
	Format  string
	NoColor bool
	// Output defaults to stderr; stdout carries command results.
	Output io.Writer
}

// DefaultConfig logs info and above to stderr in console format.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "console", Output: os.Stderr}
}

func parseLevel(s string) bolt.Level {
	if l, ok := levels[strings.ToLower(s)]; ok {
		return l
	}
	return bolt.INFO
}

// New builds a logger without touching the process-wide one.
func New(cfg Config) *bolt.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	var h bolt.Handler = bolt.NewConsoleHandler(out)
	if strings.EqualFold(cfg.Format, "json") {
		h = bolt.NewJSONHandler(out)
	}
	return bolt.New(h).SetLevel(parseLevel(cfg.Level))
}

// Init sets up the process-wide logger. Only the first call has an effect;
// use SetLevel to adjust the level later.
func Init(cfg Config) {
	initOnce.Do(func() { defaultLogger = New(cfg) })
}

// Get returns the process-wide logger, initializing it with DefaultConfig
// when Init was never called.
func Get() *bolt.Logger {
	Init(DefaultConfig())
	return defaultLogger
}

// SetLevel changes the level of the process-wide logger.
func SetLevel(level string) {
	Get().SetLevel(parseLevel(level))
}

// LogEvent collects Fields for one log line.
type LogEvent struct {
	event *bolt.Event
}

// NewEvent wraps e.
func NewEvent(e *bolt.Event) *LogEvent {
	return &LogEvent{event: e}
}

// Add applies f and returns the event for chaining.
func (l *LogEvent) Add(f Field) *LogEvent {
	l.event = f(l.event)
	return l
}

// Msg writes the line with msg.
func (l *LogEvent) Msg(msg string) { l.event.Msg(msg) }

// Send writes the line without a message.
func (l *LogEvent) Send() { l.event.Send() }

func Debug() *LogEvent { return NewEvent(Get().Debug()) }
func Info() *LogEvent { return NewEvent(Get().Info()) }
func Warn() *LogEvent { return NewEvent(Get().Warn()) }
func Error() *LogEvent { return NewEvent(Get().Error()) }
