// Package report is the observability channel of the pricing core.
//
// Components never log directly. They receive a Reporter bound to their
// component name and report structured events through it; a Channel fans
// each event out to its sinks (slog, the audit trail, metrics).
package report

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Event is one structured observability record.
type Event struct {
	Time      time.Time
	Level     slog.Level
	Message   string
	Context   map[string]any
	Component string
}

// Keys returns the context keys in sorted order.
func (e Event) Keys() []string {
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Reporter is the capability injected into core components.
type Reporter interface {
	Report(level slog.Level, message string, ctx map[string]any)
}

// Sink receives every event published on a Channel.
type Sink interface {
	Handle(e Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(e Event)

// Handle calls f(e).
func (f SinkFunc) Handle(e Event) { f(e) }

// Discard is a Reporter that drops everything.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Report(slog.Level, string, map[string]any) {}

// Channel fans events out to sinks.
type Channel struct {
	sinks []Sink
	now   func() time.Time
}

// NewChannel creates a Channel publishing to sinks in order.
func NewChannel(sinks ...Sink) *Channel {
	return &Channel{sinks: sinks, now: time.Now}
}

// For returns a Reporter that tags events with component.
func (c *Channel) For(component string) Reporter {
	return componentReporter{ch: c, component: component}
}

func (c *Channel) publish(e Event) {
	for _, s := range c.sinks {
		s.Handle(e)
	}
}

type componentReporter struct {
	ch        *Channel
	component string
}

func (r componentReporter) Report(level slog.Level, message string, ctx map[string]any) {
	r.ch.publish(Event{
		Time:      r.ch.now(),
		Level:     level,
		Message:   message,
		Context:   ctx,
		Component: r.component,
	})
}

// SlogSink writes events to a slog.Logger.
type SlogSink struct {
	Logger *slog.Logger
}

// NewSlogSink returns a sink writing to logger, or to slog.Default() if nil.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{Logger: logger}
}

// Handle logs e with its component and context as attributes.
func (s *SlogSink) Handle(e Event) {
	args := make([]any, 0, 2+2*len(e.Context))
	args = append(args, "component", e.Component)
	for _, k := range e.Keys() {
		args = append(args, k, e.Context[k])
	}
	s.Logger.Log(context.Background(), e.Level, e.Message, args...)
}

// Recorder is a Sink that keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Handle stores e.
func (r *Recorder) Handle(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Messages returns the recorded messages, optionally filtered by level.
func (r *Recorder) Messages(levels ...slog.Level) []string {
	var out []string
	for _, e := range r.Events() {
		if len(levels) > 0 && !slices.Contains(levels, e.Level) {
			continue
		}
		out = append(out, e.Message)
	}
	return out
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
