// Package audit implements the append-only warning log that records every
// corrective action the cleaning pipeline takes.
package audit

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is one timestamped corrective action. Events are values; once
// appended they are never modified.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// Log is an ordered, append-only sequence of events. It is safe for
// concurrent use; appends are serialized.
type Log struct {
	mu     sync.Mutex
	events []Event
	now    func() time.Time
	logger *zap.Logger
}

// Option customizes a Log.
type Option func(*Log)

// WithClock overrides the time source used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger echoes every appended event at warn level.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Log) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New returns an empty log.
func New(opts ...Option) *Log {
	l := &Log{now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append records msg with the current time.
func (l *Log) Append(msg string) {
	l.mu.Lock()
	ev := Event{Timestamp: l.now(), Message: msg}
	l.events = append(l.events, ev)
	l.mu.Unlock()
	l.logger.Warn(msg, zap.Time("at", ev.Timestamp))
}

// Appendf formats according to a format specifier and appends the result.
func (l *Log) Appendf(format string, args ...any) {
	l.Append(fmt.Sprintf(format, args...))
}

// Events returns a copy of the recorded events in append order.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

// Messages returns just the message text of each event.
func (l *Log) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Message
	}
	return out
}

// Len returns the number of events appended so far.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
