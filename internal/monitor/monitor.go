package monitor

import (
	"log/slog"
	"runtime"
	"time"

	"roomguard/internal/alerts"
	"roomguard/internal/config"
	"roomguard/internal/engine"
	"roomguard/internal/events"
	"roomguard/internal/model"
	"roomguard/internal/notify"
)

// applyFindings feeds analyzer findings through the alert manager and hands
// qualifying alerts to the dispatcher. The dispatcher detaches delivery, so
// this stays synchronous and in-memory.
func applyFindings(findings []engine.Finding, mgr *alerts.Manager, dispatch *notify.Dispatcher, logger *slog.Logger) {
	for _, f := range findings {
		alert, created := mgr.Upsert(f.AlertType, f.Actor, f.Severity, f.Pattern, f.Occurrences, f.Details)
		logger.Warn("alert condition",
			"alert_id", alert.ID,
			"alert_type", alert.Type,
			"actor", alert.ActorKey,
			"severity", alert.Severity,
			"count", alert.Count,
			"pattern", alert.Pattern,
			"created", created,
		)
		dispatch.Dispatch(alert)
	}
}

func healthOf(th config.HealthThresholds, store *events.Store, mgr *alerts.Manager) model.Health {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	fill := store.FillRatio()
	status := model.HealthHealthy
	switch {
	case mgr.ActiveCritical() > 0 || fill >= th.CriticalFillRatio:
		status = model.HealthCritical
	case mgr.ActiveCount() >= th.DegradedAlerts || fill >= th.DegradedFillRatio:
		status = model.HealthDegraded
	}
	return model.Health{
		Status:      status,
		EventsCount: store.Len(),
		AlertsCount: mgr.ActiveCount(),
		MemoryBytes: mem.HeapAlloc,
	}
}

func countEvents(evs []model.Event) (map[model.EventType]int, map[model.Severity]int) {
	byType := make(map[model.EventType]int)
	bySeverity := make(map[model.Severity]int)
	for _, ev := range evs {
		byType[ev.Type]++
		bySeverity[ev.Severity]++
	}
	return byType, bySeverity
}

func windowStart(windowMinutes int) time.Time {
	if windowMinutes <= 0 {
		windowMinutes = 60
	}
	return time.Now().UTC().Add(-time.Duration(windowMinutes) * time.Minute)
}
