// Package audit implements the chained audit logger and the action audit
// middleware. A chain is a singly linked list of Logger nodes; every node
// hands events to its Sink and then forwards them to the next node. Sink
// failures never leave a node.
package audit

import (
	"fmt"
	"log/slog"
	"sync"

	idspkg "github.com/drblury/fedstore/internal/runtime/ids"
	metadatapkg "github.com/drblury/fedstore/internal/runtime/metadata"
)

// Properties are the string attributes attached to an audit record.
type Properties = metadatapkg.Metadata

// Sink processes the records reaching one node of the chain.
type Sink interface {
	LogEvent(source, eventName string, properties Properties) error
	LogException(source string, err error, properties Properties) error
}

// SinkFuncs adapts plain functions into a Sink. Nil functions are skipped.
type SinkFuncs struct {
	Event     func(source, eventName string, properties Properties) error
	Exception func(source string, err error, properties Properties) error
}

func (f SinkFuncs) LogEvent(source, eventName string, properties Properties) error {
	if f.Event == nil {
		return nil
	}
	return f.Event(source, eventName, properties)
}

func (f SinkFuncs) LogException(source string, err error, properties Properties) error {
	if f.Exception == nil {
		return nil
	}
	return f.Exception(source, err, properties)
}

// Logger is one node of the audit chain.
type Logger struct {
	identity string
	sink     Sink
	fallback *slog.Logger

	mu   sync.RWMutex
	next *Logger
}

// LoggerOption configures a Logger.
type LoggerOption func(*Logger)

// WithFallback sets the logger that receives sink failures. Defaults to
// slog.Default().
func WithFallback(log *slog.Logger) LoggerOption {
	return func(l *Logger) {
		if log != nil {
			l.fallback = log
		}
	}
}

// New creates a chain node. An empty identity is replaced by a generated one.
// A nil sink makes the node a pure forwarder.
func New(identity string, sink Sink, opts ...LoggerOption) *Logger {
	if identity == "" {
		identity = idspkg.WithPrefix("logger")
	}
	l := &Logger{identity: identity, sink: sink}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Identity returns the node identity used by the cycle check.
func (l *Logger) Identity() string {
	return l.identity
}

// Next returns the node this one forwards to, or nil.
func (l *Logger) Next() *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.next
}

// LogEvent records an event locally and forwards it down the chain.
func (l *Logger) LogEvent(source, eventName string, properties Properties) {
	if l == nil {
		return
	}
	l.guard("event", func() error {
		if l.sink == nil {
			return nil
		}
		return l.sink.LogEvent(source, eventName, properties)
	})
	if next := l.Next(); next != nil {
		l.guard("forward event", func() error {
			next.LogEvent(source, eventName, properties)
			return nil
		})
	}
}

// LogException records an error locally and forwards it down the chain.
func (l *Logger) LogException(source string, err error, properties Properties) {
	if l == nil {
		return
	}
	l.guard("exception", func() error {
		if l.sink == nil {
			return nil
		}
		return l.sink.LogException(source, err, properties)
	})
	if next := l.Next(); next != nil {
		l.guard("forward exception", func() error {
			next.LogException(source, err, properties)
			return nil
		})
	}
}

// SetNextLogger appends candidate at the tail of the chain. The call is a
// no-op when candidate is nil or when any identity reachable from candidate
// is already part of this chain.
func (l *Logger) SetNextLogger(candidate *Logger) {
	if l == nil || candidate == nil {
		return
	}

	incoming := make(map[string]struct{})
	for _, id := range candidate.Identities() {
		incoming[id] = struct{}{}
	}

	tail := l
	seen := make(map[*Logger]struct{})
	for node := l; node != nil; node = node.Next() {
		if _, loop := seen[node]; loop {
			return
		}
		seen[node] = struct{}{}
		if _, dup := incoming[node.identity]; dup {
			return
		}
		tail = node
	}

	tail.mu.Lock()
	if tail.next == nil {
		tail.next = candidate
		tail.mu.Unlock()
		return
	}
	next := tail.next
	tail.mu.Unlock()
	// The tail grew concurrently; keep walking from there.
	next.SetNextLogger(candidate)
}

// Identities lists the identities along the chain starting at l. The walk
// stops at the first repeated node.
func (l *Logger) Identities() []string {
	var ids []string
	seen := make(map[*Logger]struct{})
	for node := l; node != nil; node = node.Next() {
		if _, loop := seen[node]; loop {
			break
		}
		seen[node] = struct{}{}
		ids = append(ids, node.identity)
	}
	return ids
}

// Depth returns the number of nodes in the chain starting at l.
func (l *Logger) Depth() int {
	return len(l.Identities())
}

func (l *Logger) guard(op string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			l.report(op, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := fn(); err != nil {
		l.report(op, err)
	}
}

func (l *Logger) report(op string, err error) {
	log := l.fallback
	if log == nil {
		log = slog.Default()
	}
	log.Warn("audit logger failure", "logger", l.identity, "op", op, "error", err)
}
