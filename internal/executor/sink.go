package executor

import (
	"steward/internal/logging"
	"steward/internal/types"
)

// LogSink writes every lifecycle event to the executor log category.
type LogSink struct{}

// Emit implements types.EventSink.
func (LogSink) Emit(ev types.Event) {
	logging.Executor("%s", ev.String())
}

// ChannelSink forwards events to a buffered channel, dropping when the
// receiver falls behind so execution never blocks on observers.
type ChannelSink struct {
	ch chan types.Event
}

// NewChannelSink creates a sink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelSink{ch: make(chan types.Event, buffer)}
}

// Events returns the receive side.
func (s *ChannelSink) Events() <-chan types.Event {
	return s.ch
}

// Emit implements types.EventSink.
func (s *ChannelSink) Emit(ev types.Event) {
	select {
	case s.ch <- ev:
	default:
		logging.ExecutorDebug("event dropped: %s", ev.Kind)
	}
}
