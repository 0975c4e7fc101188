// Package conversation keeps the ordered record of attributed utterances for one session.
package conversation

import (
	"sync"

	"tone-coach-service/internal/models"
)

// Log is an append-only, insertion-ordered list of utterances.
// Safe for concurrent use.
type Log struct {
	mu         sync.RWMutex
	utterances []models.Utterance
}

// New creates an empty log.
func New() *Log {
	return &Log{}
}

// Append records an utterance.
func (l *Log) Append(u models.Utterance) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.utterances = append(l.utterances, u)
}

// Snapshot returns a copy of the log in insertion order.
func (l *Log) Snapshot() []models.Utterance {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Utterance, len(l.utterances))
	copy(out, l.utterances)
	return out
}

// Len returns the number of utterances recorded.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.utterances)
}

// Reset empties the log. Only called when a new session begins.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.utterances = nil
}
