package conversation

import (
	"fmt"
	"sync"
	"testing"

	"tone-coach-service/internal/models"
)

func TestLog_AppendPreservesOrder(t *testing.T) {
	l := New()
	l.Append(models.Utterance{Side: models.SideCustomer, Text: "I am upset"})
	l.Append(models.Utterance{Side: models.SideOwner, Text: "let me help"})
	l.Append(models.Utterance{Side: models.SideCustomer, Text: "thanks"})

	got := l.Snapshot()
	if len(got) != 3 {
		t.Fatalf("expected 3 utterances, got %d", len(got))
	}
	want := []string{"I am upset", "let me help", "thanks"}
	for i, w := range want {
		if got[i].Text != w {
			t.Errorf("utterance %d: expected %q, got %q", i, w, got[i].Text)
		}
	}
	if got[1].Side != models.SideOwner {
		t.Errorf("expected owner side, got %s", got[1].Side)
	}
}

func TestLog_SnapshotIsCopy(t *testing.T) {
	l := New()
	l.Append(models.Utterance{Side: models.SideOwner, Text: "original"})

	snap := l.Snapshot()
	snap[0].Text = "mutated"
	snap = append(snap, models.Utterance{Text: "extra"})

	again := l.Snapshot()
	if len(again) != 1 {
		t.Errorf("expected log length 1, got %d", len(again))
	}
	if again[0].Text != "original" {
		t.Errorf("expected snapshot mutation to not leak, got %q", again[0].Text)
	}
}

func TestLog_Reset(t *testing.T) {
	l := New()
	l.Append(models.Utterance{Side: models.SideOwner, Text: "a"})
	l.Reset()

	if l.Len() != 0 {
		t.Errorf("expected empty log after reset, got %d", l.Len())
	}
	if snap := l.Snapshot(); len(snap) != 0 {
		t.Errorf("expected empty snapshot after reset, got %v", snap)
	}

	l.Append(models.Utterance{Side: models.SideCustomer, Text: "b"})
	if l.Len() != 1 {
		t.Errorf("expected log usable after reset, got len %d", l.Len())
	}
}

func TestLog_ConcurrentAppend(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				l.Append(models.Utterance{Side: models.SideOwner, Text: fmt.Sprintf("%d-%d", n, j)})
			}
		}(i)
	}
	wg.Wait()

	if l.Len() != 500 {
		t.Errorf("expected 500 utterances, got %d", l.Len())
	}
}
