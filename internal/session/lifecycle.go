package session

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a coaching session.
type State int

const (
	// StateIdle - Session created, not yet listening.
	StateIdle State = iota
	// StateLive - Transcription events are being processed.
	StateLive
	// StateEnded - Transport stopped; events are ignored until the next start.
	StateEnded
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateLive:
		return "LIVE"
	case StateEnded:
		return "ENDED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Errors for invalid lifecycle transitions.
var (
	ErrAlreadyLive = errors.New("session is already live")
	ErrNotLive     = errors.New("session is not live")
)

// Lifecycle manages the state machine for a single session together with the
// "already summarized" guard.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	IDLE ──Start()──→ LIVE ──End()──→ ENDED
//	                   ↑                │
//	                   └────Start()─────┘
//
// Rules:
//   - Start resets the summarized flag; it is the only place that does.
//   - End is idempotent and returns true only for the call that left LIVE.
//   - MarkSummarized returns true exactly once per start.
type Lifecycle struct {
	mu         sync.RWMutex
	state      State
	summarized bool
}

// NewLifecycle creates a lifecycle in IDLE state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateIdle}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsLive returns true if events should be processed.
func (l *Lifecycle) IsLive() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateLive
}

// Start transitions to LIVE and clears the summarized flag.
func (l *Lifecycle) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateLive {
		return ErrAlreadyLive
	}
	l.state = StateLive
	l.summarized = false
	return nil
}

// End transitions to ENDED. Returns true if the session was live.
func (l *Lifecycle) End() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateLive {
		return false
	}
	l.state = StateEnded
	return true
}

// MarkSummarized sets the summarized flag. Returns true only if it was not set.
func (l *Lifecycle) MarkSummarized() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.summarized {
		return false
	}
	l.summarized = true
	return true
}

// Summarized reports whether a recap was already attempted since the last start.
func (l *Lifecycle) Summarized() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.summarized
}
