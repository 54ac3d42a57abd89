package events

import (
	"fmt"
	"testing"
	"time"

	"roomguard/internal/model"
)

func makeEvent(i int, t model.EventType, actor string, ts time.Time) model.Event {
	return model.Event{
		ID:        fmt.Sprintf("ev-%d", i),
		Type:      t,
		Severity:  model.SeverityLow,
		Timestamp: ts,
		Context:   model.EventContext{UserID: actor},
	}
}

func TestCapacityInvariant(t *testing.T) {
	store := NewStore(100)
	now := time.Now().UTC()
	for i := 0; i < 105; i++ {
		store.Append(makeEvent(i, model.EventAuthFailure, "user1", now))
	}
	got := store.Recent(20000)
	if len(got) != 100 {
		t.Fatalf("expected 100 events after overflow, got %d", len(got))
	}
	if got[0].ID != "ev-5" {
		t.Fatalf("expected oldest survivor ev-5, got %s", got[0].ID)
	}
	if got[99].ID != "ev-104" {
		t.Fatalf("expected newest ev-104, got %s", got[99].ID)
	}
	if store.Len() != 100 {
		t.Fatalf("expected Len 100, got %d", store.Len())
	}
}

func TestRecentReturnsAllWhenBelowLimit(t *testing.T) {
	store := NewStore(100)
	now := time.Now().UTC()
	for i := 0; i < 7; i++ {
		store.Append(makeEvent(i, model.EventAuthFailure, "user1", now))
	}
	got := store.Recent(50)
	if len(got) != 7 {
		t.Fatalf("expected 7 events, got %d", len(got))
	}
	got = store.Recent(3)
	if len(got) != 3 || got[0].ID != "ev-4" {
		t.Fatalf("expected last 3 starting at ev-4, got %d starting at %s", len(got), got[0].ID)
	}
	if got = store.Recent(0); len(got) != 7 {
		t.Fatalf("expected non-positive n to return all live events, got %d", len(got))
	}
}

func TestRecentIsACopy(t *testing.T) {
	store := NewStore(10)
	now := time.Now().UTC()
	store.Append(makeEvent(0, model.EventAuthFailure, "user1", now))
	snap := store.Recent(10)
	for i := 1; i < 10; i++ {
		store.Append(makeEvent(i, model.EventAuthFailure, "user1", now))
	}
	if len(snap) != 1 || snap[0].ID != "ev-0" {
		t.Fatalf("snapshot mutated by later writes")
	}
}

func TestSinceFiltersByTimestamp(t *testing.T) {
	store := NewStore(100)
	base := time.Now().UTC()
	store.Append(makeEvent(0, model.EventAuthFailure, "user1", base.Add(-2*time.Hour)))
	store.Append(makeEvent(1, model.EventAuthFailure, "user1", base.Add(-10*time.Minute)))
	store.Append(makeEvent(2, model.EventAuthFailure, "user1", base))
	got := store.Since(base.Add(-15 * time.Minute))
	if len(got) != 2 {
		t.Fatalf("expected 2 events in window, got %d", len(got))
	}
}

func TestMatchSince(t *testing.T) {
	store := NewStore(100)
	base := time.Now().UTC()
	store.Append(makeEvent(0, model.EventAuthFailure, "user1", base))
	store.Append(makeEvent(1, model.EventAuthFailure, "user2", base))
	store.Append(makeEvent(2, model.EventSuspiciousAccess, "user1", base))
	store.Append(makeEvent(3, model.EventAuthFailure, "user1", base.Add(-time.Hour)))
	got := store.MatchSince(model.EventAuthFailure, "user1", base.Add(-15*time.Minute))
	if len(got) != 1 || got[0].ID != "ev-0" {
		t.Fatalf("expected only ev-0, got %d events", len(got))
	}
}

func TestClear(t *testing.T) {
	store := NewStore(10)
	store.Append(makeEvent(0, model.EventAuthFailure, "user1", time.Now().UTC()))
	store.Clear()
	if store.Len() != 0 {
		t.Fatalf("expected empty store after clear")
	}
	if got := store.Recent(10); len(got) != 0 {
		t.Fatalf("expected no events after clear, got %d", len(got))
	}
}

func TestSustainedOverflowKeepsBound(t *testing.T) {
	store := NewStore(1000)
	now := time.Now().UTC()
	for i := 0; i < 20000; i++ {
		store.Append(makeEvent(i, model.EventAuthFailure, "user1", now))
	}
	if store.Len() != 1000 {
		t.Fatalf("expected 1000 live events, got %d", store.Len())
	}
	got := store.Recent(0)
	if got[0].ID != "ev-19000" || got[len(got)-1].ID != "ev-19999" {
		t.Fatalf("wrong survivors after sustained overflow: %s..%s", got[0].ID, got[len(got)-1].ID)
	}
}
