package alerts

import (
	"testing"

	"roomguard/internal/model"
)

func TestUpsertKeysByTypeAndActor(t *testing.T) {
	m := NewManager()
	for i := 0; i < 5; i++ {
		m.Upsert(model.AlertRepeatedFailures, "user123", model.SeverityHigh, model.PatternNone, 0, nil)
	}
	active := m.Active()
	if len(active) != 1 {
		t.Fatalf("expected 1 active alert, got %d", len(active))
	}
	if active[0].Count != 5 {
		t.Fatalf("expected count 5, got %d", active[0].Count)
	}

	m.Upsert(model.AlertRepeatedFailures, "user456", model.SeverityHigh, model.PatternNone, 0, nil)
	if len(m.Active()) != 2 {
		t.Fatalf("expected independent alert for second actor")
	}
}

func TestUpsertOccurrenceCount(t *testing.T) {
	m := NewManager()
	a, created := m.Upsert(model.AlertRepeatedFailures, "user123", model.SeverityHigh, model.PatternNone, 5, nil)
	if !created || a.Count != 5 {
		t.Fatalf("expected new alert with count 5, got created=%v count=%d", created, a.Count)
	}
	a, created = m.Upsert(model.AlertRepeatedFailures, "user123", model.SeverityHigh, model.PatternNone, 6, nil)
	if created || a.Count != 6 {
		t.Fatalf("expected re-fire with count 6, got created=%v count=%d", created, a.Count)
	}
	if a.FirstSeen.After(a.LastSeen) {
		t.Fatalf("first_seen after last_seen")
	}
}

func TestSeverityOnlyEscalates(t *testing.T) {
	m := NewManager()
	m.Upsert(model.AlertSuspiciousPattern, "user1", model.SeverityHigh, model.PatternNone, 0, nil)
	a, _ := m.Upsert(model.AlertSuspiciousPattern, "user1", model.SeverityCritical, model.PatternNone, 0, nil)
	if a.Severity != model.SeverityCritical {
		t.Fatalf("expected escalation to critical, got %s", a.Severity)
	}
	a, _ = m.Upsert(model.AlertSuspiciousPattern, "user1", model.SeverityLow, model.PatternNone, 0, nil)
	if a.Severity != model.SeverityCritical {
		t.Fatalf("severity must not downgrade, got %s", a.Severity)
	}
}

func TestResolveMonotonicity(t *testing.T) {
	m := NewManager()
	a, _ := m.Upsert(model.AlertRepeatedFailures, "user123", model.SeverityHigh, model.PatternNone, 0, nil)
	if !m.Resolve(a.ID) {
		t.Fatalf("expected first resolve to succeed")
	}
	if m.Resolve(a.ID) {
		t.Fatalf("expected second resolve to fail")
	}
	if len(m.Active()) != 0 {
		t.Fatalf("resolved alert still active")
	}
	got, ok := m.Get(a.ID)
	if !ok || !got.Resolved {
		t.Fatalf("resolved alert must stay retrievable by id")
	}
}

func TestResolveUnknownID(t *testing.T) {
	m := NewManager()
	if m.Resolve("nope") {
		t.Fatalf("expected resolve of unknown id to return false")
	}
}

func TestFreshAlertAfterResolution(t *testing.T) {
	m := NewManager()
	a, _ := m.Upsert(model.AlertRepeatedFailures, "user123", model.SeverityHigh, model.PatternNone, 0, nil)
	m.Resolve(a.ID)
	b, created := m.Upsert(model.AlertRepeatedFailures, "user123", model.SeverityHigh, model.PatternNone, 0, nil)
	if !created {
		t.Fatalf("expected fresh alert after resolution")
	}
	if b.ID == a.ID {
		t.Fatalf("fresh alert must not reuse the resolved id")
	}
	if b.Count != 1 {
		t.Fatalf("fresh alert count should restart at 1, got %d", b.Count)
	}
}

func TestDetailsMerge(t *testing.T) {
	m := NewManager()
	m.Upsert(model.AlertRepeatedFailures, "user1", model.SeverityHigh, model.PatternNone, 0, map[string]string{"a": "1", "b": "1"})
	a, _ := m.Upsert(model.AlertRepeatedFailures, "user1", model.SeverityHigh, model.PatternBurst, 0, map[string]string{"b": "2"})
	if a.Details["a"] != "1" || a.Details["b"] != "2" {
		t.Fatalf("expected merged details, got %v", a.Details)
	}
	if a.Pattern != model.PatternBurst {
		t.Fatalf("expected pattern updated to burst, got %q", a.Pattern)
	}
}

func TestActiveCritical(t *testing.T) {
	m := NewManager()
	m.Upsert(model.AlertRepeatedFailures, "u1", model.SeverityHigh, model.PatternNone, 0, nil)
	m.Upsert(model.AlertSuspiciousPattern, "u2", model.SeverityCritical, model.PatternNone, 0, nil)
	if m.ActiveCritical() != 1 {
		t.Fatalf("expected 1 active critical, got %d", m.ActiveCritical())
	}
}
