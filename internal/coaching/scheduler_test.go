package coaching

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newFakeClock() *ManualClock {
	return NewManualClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
}

// recorder captures dispatched text.
type recorder struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (r *recorder) dispatch(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return r.err
}

func (r *recorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.texts...)
}

func newTestScheduler() (*Scheduler, *ManualClock, *recorder) {
	clock := newFakeClock()
	rec := &recorder{}
	return NewScheduler(DefaultConfig(), clock, rec.dispatch), clock, rec
}

func TestScheduler_DebounceBurstFlushesOnce(t *testing.T) {
	s, clock, rec := newTestScheduler()

	fragments := []string{"I have been", "waiting for", "over an hour", "and nobody", "called me back"}
	for _, f := range fragments {
		s.Queue(f)
		clock.Advance(500 * time.Millisecond)
	}

	if got := rec.calls(); len(got) != 0 {
		t.Fatalf("expected no dispatch during burst, got %v", got)
	}

	clock.Advance(700 * time.Millisecond)

	got := rec.calls()
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 dispatch after burst, got %d", len(got))
	}
	want := "I have been waiting for over an hour and nobody called me back"
	if got[0] != want {
		t.Errorf("expected %q, got %q", want, got[0])
	}
	if s.Buffer() != "" {
		t.Errorf("expected empty buffer after flush, got %q", s.Buffer())
	}
	if s.Pending() {
		t.Error("expected no pending timer after flush")
	}
}

func TestScheduler_QuickFlushOnSentenceEnd(t *testing.T) {
	s, clock, rec := newTestScheduler()

	s.Queue("Where is my order?")
	clock.Advance(299 * time.Millisecond)
	if len(rec.calls()) != 0 {
		t.Fatal("expected no dispatch before quick flush delay")
	}
	clock.Advance(1 * time.Millisecond)
	if got := rec.calls(); len(got) != 1 || got[0] != "Where is my order?" {
		t.Errorf("expected quick flush dispatch, got %v", got)
	}
}

func TestScheduler_QuickFlushIgnoresTrailingSpace(t *testing.T) {
	s, clock, rec := newTestScheduler()

	s.Queue("This is unacceptable!  ")
	clock.Advance(300 * time.Millisecond)
	if len(rec.calls()) != 1 {
		t.Errorf("expected quick flush for trimmed sentence end, got %v", rec.calls())
	}
}

func TestScheduler_NonTerminalRestoresDebounce(t *testing.T) {
	s, clock, rec := newTestScheduler()

	s.Queue("I called yesterday.")
	clock.Advance(100 * time.Millisecond)
	s.Queue("and again today")
	clock.Advance(300 * time.Millisecond)
	if len(rec.calls()) != 0 {
		t.Fatal("later non-terminal fragment should supersede quick flush")
	}
	clock.Advance(900 * time.Millisecond)
	if got := rec.calls(); len(got) != 1 || got[0] != "I called yesterday. and again today" {
		t.Errorf("unexpected dispatch %v", got)
	}
}

func TestScheduler_CooldownSkipsAndClears(t *testing.T) {
	s, clock, rec := newTestScheduler()

	s.Queue("My package never arrived.")
	clock.Advance(300 * time.Millisecond)
	if len(rec.calls()) != 1 {
		t.Fatalf("expected first dispatch, got %v", rec.calls())
	}

	s.Queue("And I want a refund today.")
	clock.Advance(300 * time.Millisecond)

	if len(rec.calls()) != 1 {
		t.Errorf("expected second flush within cooldown to skip the call, got %v", rec.calls())
	}
	if s.Buffer() != "" {
		t.Errorf("expected buffer cleared after cooldown skip, got %q", s.Buffer())
	}

	// skipped text is discarded, not retried
	clock.Advance(10 * time.Second)
	if len(rec.calls()) != 1 {
		t.Errorf("expected no retry of discarded text, got %v", rec.calls())
	}
}

func TestScheduler_CooldownElapsedAllowsDispatch(t *testing.T) {
	s, clock, rec := newTestScheduler()

	s.Queue("My package never arrived.")
	clock.Advance(300 * time.Millisecond)
	clock.Advance(4 * time.Second)

	s.Queue("And I want a refund today.")
	clock.Advance(300 * time.Millisecond)

	if got := rec.calls(); len(got) != 2 || got[1] != "And I want a refund today." {
		t.Errorf("expected second dispatch after cooldown, got %v", got)
	}
}

func TestScheduler_MinCharsSkipsAndClears(t *testing.T) {
	s, clock, rec := newTestScheduler()

	s.Queue("  ok sure  ")
	clock.Advance(1200 * time.Millisecond)

	if len(rec.calls()) != 0 {
		t.Errorf("expected short text to be skipped, got %v", rec.calls())
	}
	if s.Buffer() != "" {
		t.Errorf("expected buffer cleared after short skip, got %q", s.Buffer())
	}
	if !s.LastAnalyzeAt().IsZero() {
		t.Error("skipped flush must not update lastAnalyzeAt")
	}
}

func TestScheduler_MinCharsCountsRunes(t *testing.T) {
	s, clock, rec := newTestScheduler()

	// 11 runes, more than 12 bytes
	s.Queue("ñññññ ñññññ")
	clock.Advance(1200 * time.Millisecond)
	if len(rec.calls()) != 0 {
		t.Errorf("expected rune count below threshold to skip, got %v", rec.calls())
	}
}

func TestScheduler_DispatchFailureStillUpdatesCooldown(t *testing.T) {
	s, clock, rec := newTestScheduler()
	rec.err = errors.New("network down")

	s.Queue("Nobody answers the phone.")
	clock.Advance(300 * time.Millisecond)

	if len(rec.calls()) != 1 {
		t.Fatalf("expected a dispatch attempt, got %v", rec.calls())
	}
	if s.LastAnalyzeAt().IsZero() {
		t.Error("expected lastAnalyzeAt set after failed dispatch")
	}
	if s.Buffer() != "" {
		t.Errorf("expected buffer cleared after failure, got %q", s.Buffer())
	}

	s.Queue("Seriously, nobody answers.")
	clock.Advance(300 * time.Millisecond)
	if len(rec.calls()) != 1 {
		t.Errorf("expected cooldown after failed dispatch, got %v", rec.calls())
	}
}

func TestScheduler_ConcurrentDispatchAllowed(t *testing.T) {
	clock := newFakeClock()

	var calls int32
	release := make(chan struct{})
	started := make(chan string, 2)
	s := NewScheduler(DefaultConfig(), clock, func(ctx context.Context, text string) error {
		started <- text
		if atomic.AddInt32(&calls, 1) == 1 {
			<-release
		}
		return nil
	})

	// Advance runs the dispatch on the calling goroutine, so the blocking first call
	// is driven from its own goroutine.
	done := make(chan struct{})
	go func() {
		s.Queue("first complaint here.")
		clock.Advance(300 * time.Millisecond)
		close(done)
	}()
	if got := <-started; got != "first complaint here." {
		t.Fatalf("unexpected first dispatch %q", got)
	}
	if s.InFlight() != 1 {
		t.Errorf("expected 1 call in flight, got %d", s.InFlight())
	}

	// lastAnalyzeAt is only set on settle, so the cooldown does not block this cycle.
	s.Queue("second complaint here.")
	clock.Advance(300 * time.Millisecond)

	select {
	case got := <-started:
		if got != "second complaint here." {
			t.Errorf("unexpected second dispatch %q", got)
		}
	default:
		t.Fatal("second dispatch was blocked by the in-flight call")
	}
	if s.InFlight() != 1 {
		t.Errorf("expected first call still in flight, got %d", s.InFlight())
	}

	close(release)
	<-done
	if s.InFlight() != 0 {
		t.Errorf("expected no calls in flight, got %d", s.InFlight())
	}
}

func TestScheduler_SupersededTimerIsNoop(t *testing.T) {
	s, _, rec := newTestScheduler()

	s.Queue("this text is long enough")
	s.mu.Lock()
	stale := s.generation
	s.mu.Unlock()

	s.Queue("more text")
	s.fire(stale)

	if len(rec.calls()) != 0 {
		t.Errorf("stale timer must not flush, got %v", rec.calls())
	}
	if s.Buffer() != "this text is long enough more text" {
		t.Errorf("stale timer must not clear buffer, got %q", s.Buffer())
	}
}

func TestScheduler_StopAndRestart(t *testing.T) {
	s, clock, rec := newTestScheduler()

	s.Queue("this will be discarded")
	s.Stop()
	clock.Advance(5 * time.Second)

	if len(rec.calls()) != 0 {
		t.Errorf("expected no dispatch after stop, got %v", rec.calls())
	}
	if s.Buffer() != "" {
		t.Errorf("expected empty buffer after stop, got %q", s.Buffer())
	}

	s.Queue("ignored while stopped")
	if s.Buffer() != "" {
		t.Error("expected Queue to be a no-op while stopped")
	}

	s.Restart()
	s.Queue("Back again with a question?")
	clock.Advance(300 * time.Millisecond)
	if len(rec.calls()) != 1 {
		t.Errorf("expected dispatch after restart, got %v", rec.calls())
	}
}

func TestEndsSentence(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"done.", true},
		{"really?", true},
		{"wow!", true},
		{"wow! ", true},
		{"and then", false},
		{"", false},
		{"...", true},
		{"so,", false},
	}
	for _, tt := range tests {
		if got := endsSentence(tt.in); got != tt.want {
			t.Errorf("endsSentence(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
