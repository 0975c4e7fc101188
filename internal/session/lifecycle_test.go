package session

import (
	"sync"
	"testing"
)

func TestLifecycle_InitialState(t *testing.T) {
	lc := NewLifecycle()

	if lc.State() != StateIdle {
		t.Errorf("expected StateIdle, got %v", lc.State())
	}
	if lc.IsLive() {
		t.Error("expected IsLive to be false")
	}
	if lc.Summarized() {
		t.Error("expected Summarized to be false")
	}
}

func TestLifecycle_Start(t *testing.T) {
	lc := NewLifecycle()

	if err := lc.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !lc.IsLive() {
		t.Error("expected IsLive after Start")
	}

	if err := lc.Start(); err != ErrAlreadyLive {
		t.Errorf("second start: expected ErrAlreadyLive, got %v", err)
	}
}

func TestLifecycle_End_Idempotent(t *testing.T) {
	lc := NewLifecycle()

	if lc.End() {
		t.Error("expected End from IDLE to return false")
	}

	lc.Start()
	if !lc.End() {
		t.Error("expected first End from LIVE to return true")
	}
	if lc.End() {
		t.Error("expected second End to return false")
	}
	if lc.State() != StateEnded {
		t.Errorf("expected StateEnded, got %v", lc.State())
	}
}

func TestLifecycle_MarkSummarized_OncePerStart(t *testing.T) {
	lc := NewLifecycle()
	lc.Start()

	if !lc.MarkSummarized() {
		t.Error("expected first MarkSummarized to return true")
	}
	if lc.MarkSummarized() {
		t.Error("expected second MarkSummarized to return false")
	}

	lc.End()
	if err := lc.Start(); err != nil {
		t.Fatalf("restart: unexpected error: %v", err)
	}
	if lc.Summarized() {
		t.Error("expected restart to clear the summarized flag")
	}
	if !lc.MarkSummarized() {
		t.Error("expected MarkSummarized to succeed after restart")
	}
}

func TestLifecycle_MarkSummarized_Concurrent(t *testing.T) {
	lc := NewLifecycle()
	lc.Start()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if lc.MarkSummarized() {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("expected exactly one winner, got %d", winners)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateIdle, "IDLE"},
		{StateLive, "LIVE"},
		{StateEnded, "ENDED"},
		{State(99), "UNKNOWN(99)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %v, want %v", tt.state, got, tt.expected)
		}
	}
}

func TestRequestIDs_Next(t *testing.T) {
	gen := NewRequestIDs()

	n1, id1 := gen.Next("sess-123")
	if n1 != 1 || id1 != "sess-123-req-1" {
		t.Errorf("expected 1/'sess-123-req-1', got %d/%s", n1, id1)
	}

	n2, id2 := gen.Next("sess-123")
	if n2 != 2 || id2 != "sess-123-req-2" {
		t.Errorf("expected 2/'sess-123-req-2', got %d/%s", n2, id2)
	}
}

func TestRequestIDs_ThreadSafety(t *testing.T) {
	gen := NewRequestIDs()
	numGoroutines := 100
	resultsPerGoroutine := 10

	var wg sync.WaitGroup
	results := make(chan string, numGoroutines*resultsPerGoroutine)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < resultsPerGoroutine; j++ {
				_, id := gen.Next("sess-concurrent")
				results <- id
			}
		}()
	}

	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for id := range results {
		if seen[id] {
			t.Errorf("duplicate request ID generated: %s", id)
		}
		seen[id] = true
	}

	if len(seen) != numGoroutines*resultsPerGoroutine {
		t.Errorf("expected %d unique request IDs, got %d", numGoroutines*resultsPerGoroutine, len(seen))
	}
}
