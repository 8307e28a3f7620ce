package drafting

import (
	"sync"
	"time"

	"github.com/martinemde/lexdraft/unifiedllm"
)

// State is a step of the per-request generation state machine.
type State string

const (
	StateIdle             State = "idle"
	StateValidating       State = "validating"
	StateInvoking         State = "invoking"
	StateRetrying         State = "retrying"
	StateFallbackInvoking State = "fallback_invoking"
	StateSucceeded        State = "succeeded"
	StateFailed           State = "failed"
)

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Mode tells the blocking and streaming paths apart.
type Mode string

const (
	ModeBlocking Mode = "blocking"
	ModeStream   Mode = "stream"
)

// Event records a state transition of one request.
type Event struct {
	RequestID string                      `json:"request_id"`
	Mode      Mode                        `json:"mode"`
	State     State                       `json:"state"`
	Endpoint  unifiedllm.Endpoint         `json:"endpoint"`
	Attempt   int                         `json:"attempt"`
	Delay     time.Duration               `json:"delay,omitempty"`
	Cached    bool                        `json:"cached,omitempty"`
	Err       *unifiedllm.ClassifiedError `json:"-"`
	Elapsed   time.Duration               `json:"elapsed"`
	Time      time.Time                   `json:"time"`
}

// Observer receives events synchronously, in order, from the goroutine
// running the request. Observers must not block.
type Observer func(Event)

// tracker owns the state of a single request. Once a terminal state is
// reached every further transition is dropped.
type tracker struct {
	id        string
	mode      Mode
	start     time.Time
	observers []Observer

	mu    sync.Mutex
	state State
}

func newTracker(id string, mode Mode, observers []Observer) *tracker {
	return &tracker{
		id:        id,
		mode:      mode,
		start:     time.Now(),
		observers: observers,
		state:     StateIdle,
	}
}

func (t *tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *tracker) transition(s State, fill func(*Event)) {
	t.mu.Lock()
	if t.state.Terminal() {
		t.mu.Unlock()
		return
	}
	t.state = s
	t.mu.Unlock()

	now := time.Now()
	ev := Event{
		RequestID: t.id,
		Mode:      t.mode,
		State:     s,
		Elapsed:   now.Sub(t.start),
		Time:      now,
	}
	if fill != nil {
		fill(&ev)
	}
	for _, o := range t.observers {
		o(ev)
	}
}

// EventEmitter buffers events on a channel for consumers that read them
// asynchronously, such as the WebSocket handler.
type EventEmitter struct {
	ch     chan Event
	closed bool
	mu     sync.Mutex
}

// NewEventEmitter creates an EventEmitter with a buffered channel.
func NewEventEmitter(bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &EventEmitter{ch: make(chan Event, bufferSize)}
}

// Observe is an Observer. Events are dropped when the emitter is closed or
// its buffer is full.
func (e *EventEmitter) Observe(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
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
