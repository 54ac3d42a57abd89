package tracking

import (
	"testing"
	"time"
)

func TestInitLifecycle(t *testing.T) {
	s := NewInitStore(100)
	id := s.Start("corr-1")
	if id == "" {
		t.Fatalf("expected attempt id")
	}
	s.Complete(id, false, 2, "environment_error", "missing url")
	rec, ok := s.Get(id)
	if !ok {
		t.Fatalf("record not found")
	}
	if rec.Success || rec.RetryCount != 2 || rec.ErrorType != "environment_error" {
		t.Fatalf("outcome not recorded: %+v", rec)
	}
	if !rec.Completed || rec.Duration < 0 {
		t.Fatalf("expected completed record with non-negative duration")
	}
	if rec.CorrelationID != "corr-1" {
		t.Fatalf("correlation id not propagated")
	}
}

func TestCompleteUnknownIDIsNoOp(t *testing.T) {
	s := NewInitStore(100)
	s.Complete("missing", true, 0, "", "")
	if s.Len() != 0 {
		t.Fatalf("no-op complete must not create records")
	}
}

func TestCompleteTwiceKeepsFirstOutcome(t *testing.T) {
	s := NewInitStore(100)
	id := s.Start("")
	s.Complete(id, false, 1, "network_error", "timeout")
	s.Complete(id, true, 0, "", "")
	rec, _ := s.Get(id)
	if rec.Success {
		t.Fatalf("second complete must not overwrite outcome")
	}
}

func TestInitEviction(t *testing.T) {
	s := NewInitStore(10)
	ids := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		ids = append(ids, s.Start(""))
	}
	if s.Len() != 10 {
		t.Fatalf("expected 10 live records, got %d", s.Len())
	}
	if _, ok := s.Get(ids[0]); ok {
		t.Fatalf("oldest record should be evicted")
	}
	if _, ok := s.Get(ids[14]); !ok {
		t.Fatalf("newest record should survive")
	}
	// completing an evicted id is absorbed
	s.Complete(ids[0], true, 0, "", "")
}

func TestInitLastCompleted(t *testing.T) {
	s := NewInitStore(100)
	for i := 0; i < 5; i++ {
		id := s.Start("")
		s.Complete(id, i%2 == 0, 0, "", "")
	}
	s.Start("") // pending, must not count
	got := s.LastCompleted(3)
	if len(got) != 3 {
		t.Fatalf("expected 3 completed records, got %d", len(got))
	}
	if got[0].StartedAt.After(got[2].StartedAt) {
		t.Fatalf("expected insertion order")
	}
}

func TestValidationLifecycle(t *testing.T) {
	s := NewValidationStore(100)
	id := s.Start("corr-9")
	s.Complete(id, 12, 10, 1, 1)
	rec, ok := s.Get(id)
	if !ok || !rec.Completed {
		t.Fatalf("run not completed")
	}
	if rec.TotalVariables != 12 || rec.ValidVariables != 10 || rec.InvalidVariables != 1 || rec.MissingVariables != 1 {
		t.Fatalf("counts not recorded: %+v", rec)
	}
}

func TestValidationCompletedSince(t *testing.T) {
	s := NewValidationStore(100)
	id := s.Start("")
	s.Complete(id, 1, 1, 0, 0)
	got := s.CompletedSince(time.Now().UTC().Add(-time.Minute))
	if len(got) != 1 {
		t.Fatalf("expected 1 completed run, got %d", len(got))
	}
	got = s.CompletedSince(time.Now().UTC().Add(time.Minute))
	if len(got) != 0 {
		t.Fatalf("future window must be empty, got %d", len(got))
	}
}
