package pipeline

import (
	"sync"
	"time"
)

// EventKind identifies the type of run event.
type EventKind string

const (
	EventRunStart    EventKind = "run_start"
	EventRunEnd      EventKind = "run_end"
	EventChunkStart  EventKind = "chunk_start"
	EventChunkRows   EventKind = "chunk_rows"
	EventChunkFailed EventKind = "chunk_failed"
	EventChunkEmpty  EventKind = "chunk_empty"
	EventRowDone     EventKind = "row_done"
)

// Event is a typed progress event emitted by a Runner.
type Event struct {
	Kind      EventKind      `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	Chunk     int            `json:"chunk,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// EventEmitter delivers run events to the host application via a channel.
type EventEmitter struct {
	ch     chan Event
	closed bool
	mu     sync.Mutex
}

// NewEventEmitter creates an EventEmitter with a buffered channel.
func NewEventEmitter(bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventEmitter{ch: make(chan Event, bufferSize)}
}

// Emit sends an event. Events are dropped when the buffer is full or the
// emitter is closed; a nil emitter drops everything.
func (e *EventEmitter) Emit(ev Event) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case e.ch <- ev:
	default:
	}
}

// Events returns the read-only event channel.
func (e *EventEmitter) Events() <-chan Event {
	return e.ch
}

// Close closes the event channel. Safe to call multiple times.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}
