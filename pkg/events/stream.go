package events

import (
	"log/slog"
	"sync"
)

// DefaultStreamBuffer is the outbound channel capacity. Sized for bursts of
// AGENT_DELTA events from parallel agents.
const DefaultStreamBuffer = 256

// Stream is a run's single ordered outbound event channel.
//
// Publish is safe for concurrent use; the channel preserves publish order.
// After the first terminal event the stream latches: the channel is closed
// and further publishes are dropped with a warning. The consumer side must
// be drained by exactly one reader (the transport).
type Stream struct {
	runID string
	ch    chan Event

	mu      sync.Mutex
	latched bool
}

// NewStream creates a stream for the given run. buffer <= 0 uses the default.
func NewStream(runID string, buffer int) *Stream {
	if buffer <= 0 {
		buffer = DefaultStreamBuffer
	}
	return &Stream{
		runID: runID,
		ch:    make(chan Event, buffer),
	}
}

// Publish appends e to the stream in order. Returns false when the stream has
// already latched (the event is dropped). A terminal event latches the stream
// and closes the channel so the consumer sees end-of-stream.
func (s *Stream) Publish(e Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latched {
		slog.Warn("Dropping event published after terminal event",
			"run_id", s.runID, "event_type", e.EventType())
		return false
	}

	s.ch <- e

	if e.Terminal() {
		s.latched = true
		close(s.ch)
	}
	return true
}

// Events returns the consumer side of the stream. The channel closes after
// the terminal event (or Abandon).
func (s *Stream) Events() <-chan Event { return s.ch }

// Latched reports whether a terminal event has been published.
func (s *Stream) Latched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latched
}

// Abandon latches and closes the stream without a terminal event. Only for
// teardown paths where the consumer is already gone.
func (s *Stream) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latched {
		return
	}
	s.latched = true
	close(s.ch)
}
