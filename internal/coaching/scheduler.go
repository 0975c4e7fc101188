// Package coaching accumulates customer speech and decides when it is worth sending
// for analysis. It combines a text buffer with a debounce timer and a cooldown.
package coaching

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tone-coach-service/internal/observability/metrics"
)

// Flush outcomes.
const (
	OutcomeDispatched = "dispatched"
	OutcomeCooldown   = "cooldown"
	OutcomeTooShort   = "too_short"
	OutcomeEmpty      = "empty"
)

// Config holds the throttling parameters.
type Config struct {
	Debounce   time.Duration // quiet period before a flush
	QuickFlush time.Duration // shorter delay after sentence-final punctuation
	Cooldown   time.Duration // minimum gap between analysis calls
	MinChars   int           // minimum trimmed buffer length worth analyzing
}

// DefaultConfig returns the recommended throttling parameters.
func DefaultConfig() Config {
	return Config{
		Debounce:   1200 * time.Millisecond,
		QuickFlush: 300 * time.Millisecond,
		Cooldown:   4000 * time.Millisecond,
		MinChars:   12,
	}
}

// DispatchFunc sends buffered text for analysis. It may block for as long as the
// call takes; its error only matters for logging since the buffer is already cleared.
type DispatchFunc func(ctx context.Context, text string) error

// Scheduler owns the customer buffer, the single pending flush timer and the time of
// the last analysis.
//
// State transitions:
//
//	Queue(text)  ──→ append to buffer, (re)start timer (debounce or quick flush)
//	timer fires  ──→ cooldown active?   clear buffer, no call
//	               └─ too short?        clear buffer, no call
//	               └─ otherwise         clear buffer, dispatch, lastAnalyzeAt = settle time
//
// Dispatches are not serialized: a new cycle can dispatch while an older call is
// still in flight if the cooldown is shorter than the call.
type Scheduler struct {
	cfg      Config
	clock    Clock
	dispatch DispatchFunc
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	mu            sync.Mutex
	buffer        string
	timer         Timer
	generation    uint64
	lastAnalyzeAt time.Time
	inFlight      int
	stopped       bool
}

// NewScheduler creates a Scheduler. A nil clock uses SystemClock.
func NewScheduler(cfg Config, clock Clock, dispatch DispatchFunc) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{
		cfg:      cfg,
		clock:    clock,
		dispatch: dispatch,
		logger:   log.With().Str("component", "scheduler").Logger(),
		metrics:  metrics.DefaultMetrics,
	}
}

// WithLogger replaces the scheduler's logger.
func (s *Scheduler) WithLogger(l zerolog.Logger) *Scheduler {
	s.logger = l
	return s
}

// Queue appends customer text to the buffer and restarts the flush timer. Text that
// ends a sentence uses the quick-flush delay instead of the debounce.
func (s *Scheduler) Queue(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if s.buffer == "" {
		s.buffer = text
	} else {
		s.buffer += " " + text
	}

	delay := s.cfg.Debounce
	if endsSentence(text) {
		delay = s.cfg.QuickFlush
	}
	s.scheduleLocked(delay)
}

// scheduleLocked supersedes any pending timer. A stale timer that already fired and
// is waiting on the lock sees a newer generation and does nothing.
func (s *Scheduler) scheduleLocked(delay time.Duration) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.generation++
	gen := s.generation
	s.timer = s.clock.AfterFunc(delay, func() { s.fire(gen) })
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.generation || s.stopped {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	text, outcome := s.takeLocked()
	if outcome == OutcomeDispatched {
		s.inFlight++
	}
	s.mu.Unlock()

	s.metrics.RecordFlush(outcome)
	if outcome != OutcomeDispatched {
		s.logger.Debug().Str("outcome", outcome).Msg("Flush skipped")
		return
	}

	s.logger.Debug().Int("chars", len(text)).Msg("Dispatching customer text for analysis")
	err := s.dispatch(context.Background(), text)
	if err != nil {
		s.logger.Error().Err(err).Msg("Analysis dispatch failed")
	}

	s.mu.Lock()
	s.lastAnalyzeAt = s.clock.Now()
	s.inFlight--
	s.mu.Unlock()
}

// takeLocked decides the flush outcome and always empties the buffer.
func (s *Scheduler) takeLocked() (string, string) {
	buffered := s.buffer
	s.buffer = ""

	now := s.clock.Now()
	if !s.lastAnalyzeAt.IsZero() && now.Sub(s.lastAnalyzeAt) < s.cfg.Cooldown {
		return "", OutcomeCooldown
	}
	text := strings.TrimSpace(buffered)
	if text == "" {
		return "", OutcomeEmpty
	}
	if utf8.RuneCountInString(text) < s.cfg.MinChars {
		return "", OutcomeTooShort
	}
	return text, OutcomeDispatched
}

// Stop cancels any pending flush and discards the buffer. Calls already in flight
// are not cancelled. Queue is a no-op afterwards until Restart.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
	s.buffer = ""
	s.stopped = true
}

// Restart re-enables a stopped scheduler with a clean state.
func (s *Scheduler) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
	s.buffer = ""
	s.lastAnalyzeAt = time.Time{}
	s.stopped = false
}

// Buffer returns the text waiting to be flushed.
func (s *Scheduler) Buffer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer
}

// Pending reports whether a flush timer is scheduled.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// InFlight returns the number of dispatches that have not settled.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// LastAnalyzeAt returns when the most recent dispatch settled.
func (s *Scheduler) LastAnalyzeAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAnalyzeAt
}

func endsSentence(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	switch t[len(t)-1] {
	case '.', '?', '!':
		return true
	}
	return false
}
