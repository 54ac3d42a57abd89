package alerts

import (
	"sync"
	"time"

	"roomguard/internal/model"
)

// Manager keeps at most one unresolved alert per (type, actor) key.
// Re-triggering an active alert increments its count instead of duplicating
// it. Resolved alerts stay retrievable by id but leave the active set for
// good; a later occurrence opens a fresh alert under the same key.
type Manager struct {
	mu    sync.RWMutex
	byKey map[string]*model.Alert
	byID  map[string]*model.Alert
	order []*model.Alert
}

func NewManager() *Manager {
	return &Manager{
		byKey: make(map[string]*model.Alert),
		byID:  make(map[string]*model.Alert),
	}
}

func key(t model.AlertType, actor string) string {
	return string(t) + "|" + actor
}

// Upsert creates or re-fires the active alert for (t, actor). The returned
// bool is true when a new alert was created. Count tracks how many
// qualifying occurrences back the alert: callers that know the windowed
// occurrence count pass it; zero means plain increment. Severity only ever
// escalates; details are merged with the newest values winning.
func (m *Manager) Upsert(t model.AlertType, actor string, severity model.Severity, pattern model.Pattern, occurrences int, details map[string]string) (model.Alert, bool) {
	now := time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(t, actor)
	if a, ok := m.byKey[k]; ok {
		if occurrences > a.Count {
			a.Count = occurrences
		} else {
			a.Count++
		}
		a.LastSeen = now
		if severity.Rank() > a.Severity.Rank() {
			a.Severity = severity
		}
		if pattern != model.PatternNone {
			a.Pattern = pattern
		}
		for dk, dv := range details {
			if a.Details == nil {
				a.Details = make(map[string]string)
			}
			a.Details[dk] = dv
		}
		return snapshot(a), false
	}
	count := occurrences
	if count < 1 {
		count = 1
	}
	a := &model.Alert{
		ID:        model.NewAlertID(t, actor),
		Type:      t,
		ActorKey:  actor,
		Severity:  severity,
		Count:     count,
		FirstSeen: now,
		LastSeen:  now,
		Pattern:   pattern,
		Details:   cloneDetails(details),
	}
	m.byKey[k] = a
	m.byID[a.ID] = a
	m.order = append(m.order, a)
	return snapshot(a), true
}

// Active returns copies of all unresolved alerts in creation order.
func (m *Manager) Active() []model.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Alert, 0, len(m.byKey))
	for _, a := range m.order {
		if !a.Resolved {
			out = append(out, snapshot(a))
		}
	}
	return out
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byKey)
}

// ActiveCritical counts unresolved alerts at critical severity.
func (m *Manager) ActiveCritical() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.byKey {
		if a.Severity == model.SeverityCritical {
			n++
		}
	}
	return n
}

func (m *Manager) Get(id string) (model.Alert, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.byID[id]
	if !ok {
		return model.Alert{}, false
	}
	return snapshot(a), true
}

// Resolve marks the alert resolved. Returns true only when the alert exists
// and was not already resolved.
func (m *Manager) Resolve(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok || a.Resolved {
		return false
	}
	a.Resolved = true
	delete(m.byKey, key(a.Type, a.ActorKey))
	return true
}

func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byKey = make(map[string]*model.Alert)
	m.byID = make(map[string]*model.Alert)
	m.order = nil
}

func snapshot(a *model.Alert) model.Alert {
	out := *a
	out.Details = cloneDetails(a.Details)
	return out
}

func cloneDetails(d map[string]string) map[string]string {
	if len(d) == 0 {
		return nil
	}
	out := make(map[string]string, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
