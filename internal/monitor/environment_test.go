package monitor

import (
	"testing"

	"roomguard/internal/config"
	"roomguard/internal/model"
)

func TestCriticalMissingVariableAlertsImmediately(t *testing.T) {
	env := NewEnvironment(config.DefaultConfig(), nil, nil)
	env.RecordMissingVariable("NEXT_PUBLIC_SUPABASE_URL", model.EventContext{Caller: "client-init"}, model.SeverityCritical)
	active := env.ActiveAlerts()
	if len(active) != 1 {
		t.Fatalf("expected exactly 1 alert, got %d", len(active))
	}
	a := active[0]
	if a.Type != model.AlertCriticalMissingVariable {
		t.Fatalf("expected critical_missing_variable, got %s", a.Type)
	}
	if a.ActorKey != "NEXT_PUBLIC_SUPABASE_URL" {
		t.Fatalf("expected actor to be the variable name, got %q", a.ActorKey)
	}
	if a.Severity != model.SeverityCritical {
		t.Fatalf("expected critical severity, got %s", a.Severity)
	}
}

func TestNonCriticalMissingVariableNeedsRepeats(t *testing.T) {
	env := NewEnvironment(config.DefaultConfig(), nil, nil)
	env.RecordMissingVariable("OPTIONAL_FLAG", model.EventContext{}, "")
	if len(env.ActiveAlerts()) != 0 {
		t.Fatalf("single non-critical missing variable must not alert")
	}
	env.RecordMissingVariable("OPTIONAL_FLAG", model.EventContext{}, "")
	env.RecordMissingVariable("OPTIONAL_FLAG", model.EventContext{}, "")
	active := env.ActiveAlerts()
	if len(active) != 1 || active[0].Type != model.AlertRepeatedFailures {
		t.Fatalf("expected repeated_failures after third occurrence, got %+v", active)
	}
}

func TestClientInitTrackingScenario(t *testing.T) {
	env := NewEnvironment(config.DefaultConfig(), nil, nil)
	id := env.StartClientInitializationTracking("corr-42")
	env.CompleteClientInitializationTracking(id, false, 2, "environment_error", "missing url")
	rec, ok := env.InitAttempt(id)
	if !ok {
		t.Fatalf("attempt not found")
	}
	if rec.Success || rec.RetryCount != 2 || rec.ErrorType != "environment_error" || rec.ErrorMessage != "missing url" {
		t.Fatalf("outcome not recorded: %+v", rec)
	}
	if rec.Duration < 0 {
		t.Fatalf("expected non-negative duration, got %s", rec.Duration)
	}
}

func TestCompleteUnknownTrackingIDIsAbsorbed(t *testing.T) {
	env := NewEnvironment(config.DefaultConfig(), nil, nil)
	env.CompleteClientInitializationTracking("no-such-id", true, 0, "", "")
	env.CompleteEnvironmentValidationTracking("no-such-id", 0, 0, 0, 0)
	if len(env.ActiveAlerts()) != 0 {
		t.Fatalf("unknown ids must be no-ops")
	}
}

func TestInitFailureRateAlertThroughFacade(t *testing.T) {
	env := NewEnvironment(config.DefaultConfig(), nil, nil)
	for i := 0; i < 10; i++ {
		id := env.StartClientInitializationTracking("")
		env.CompleteClientInitializationTracking(id, false, 1, "network_error", "refused")
	}
	found := false
	for _, a := range env.ActiveAlerts() {
		if a.Type == model.AlertClientInitFailureRate {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected client_init_failure_rate alert after 10 straight failures")
	}
}

func TestStatsDivisionSafety(t *testing.T) {
	env := NewEnvironment(config.DefaultConfig(), nil, nil)
	stats := env.Stats(60)
	if stats.ClientInitSuccessRate != 0 {
		t.Fatalf("expected 0 success rate on empty store, got %v", stats.ClientInitSuccessRate)
	}
	if stats.AverageValidationDuration != 0 {
		t.Fatalf("expected 0 average duration on empty store, got %v", stats.AverageValidationDuration)
	}
}

func TestStatsSuccessRate(t *testing.T) {
	env := NewEnvironment(config.DefaultConfig(), nil, nil)
	for i := 0; i < 4; i++ {
		id := env.StartClientInitializationTracking("")
		env.CompleteClientInitializationTracking(id, i < 3, 0, "", "")
	}
	stats := env.Stats(60)
	if stats.ClientInitSuccessRate != 75 {
		t.Fatalf("expected 75%% success rate, got %v", stats.ClientInitSuccessRate)
	}
}

func TestStatsAverageValidationDuration(t *testing.T) {
	env := NewEnvironment(config.DefaultConfig(), nil, nil)
	id := env.StartEnvironmentValidationTracking("corr-1")
	env.CompleteEnvironmentValidationTracking(id, 12, 10, 1, 1)
	rec, ok := env.ValidationRun(id)
	if !ok || !rec.Completed {
		t.Fatalf("run not completed")
	}
	stats := env.Stats(60)
	if stats.AverageValidationDuration != rec.Duration {
		t.Fatalf("expected average %s, got %s", rec.Duration, stats.AverageValidationDuration)
	}
}

func TestEnvironmentStatsCounts(t *testing.T) {
	env := NewEnvironment(config.DefaultConfig(), nil, nil)
	env.RecordNetworkError("fetch-config", "connection refused", model.EventContext{})
	env.RecordConfigurationError("session.timeout", "not a duration", model.EventContext{})
	stats := env.Stats(60)
	if stats.TotalEvents != 2 {
		t.Fatalf("expected 2 events, got %d", stats.TotalEvents)
	}
	if stats.EventsByType[model.EventNetworkError] != 1 || stats.EventsByType[model.EventConfigurationError] != 1 {
		t.Fatalf("per-type counts wrong: %v", stats.EventsByType)
	}
}

func TestEnvironmentReset(t *testing.T) {
	env := NewEnvironment(config.DefaultConfig(), nil, nil)
	env.RecordMissingVariable("X", model.EventContext{}, model.SeverityCritical)
	id := env.StartClientInitializationTracking("")
	env.Reset()
	if len(env.RecentEvents(10)) != 0 || len(env.ActiveAlerts()) != 0 {
		t.Fatalf("reset did not clear state")
	}
	if _, ok := env.InitAttempt(id); ok {
		t.Fatalf("reset did not clear tracking records")
	}
}
