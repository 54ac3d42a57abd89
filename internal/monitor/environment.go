package monitor

import (
	"log/slog"
	"sync/atomic"
	"time"

	"roomguard/internal/alerts"
	"roomguard/internal/config"
	"roomguard/internal/engine"
	"roomguard/internal/events"
	"roomguard/internal/logging"
	"roomguard/internal/model"
	"roomguard/internal/notify"
	"roomguard/internal/tracking"
)

// Environment monitors runtime configuration health: missing or malformed
// variables, client initialization and validation runs, network and config
// errors. Same never-block, never-fail contract as the security monitor.
type Environment struct {
	logger      *slog.Logger
	events      *events.Store
	alerts      *alerts.Manager
	dispatch    *notify.Dispatcher
	cfg         atomic.Value
	analyzer    atomic.Value
	initStore   *tracking.InitStore
	validations *tracking.ValidationStore
}

func NewEnvironment(cfg *config.Config, logger *slog.Logger, dispatch *notify.Dispatcher) *Environment {
	if logger == nil {
		logger = logging.Discard()
	}
	e := &Environment{
		logger:      logger,
		events:      events.NewStore(cfg.Environment.EventStoreLimit),
		alerts:      alerts.NewManager(),
		dispatch:    dispatch,
		initStore:   tracking.NewInitStore(cfg.Tracking.StoreLimit),
		validations: tracking.NewValidationStore(cfg.Tracking.StoreLimit),
	}
	e.UpdateConfig(cfg)
	return e
}

// UpdateConfig swaps in a reloaded config; see Security.UpdateConfig. The
// tracking sample sizes move with the config, the store capacities do not.
func (e *Environment) UpdateConfig(cfg *config.Config) {
	e.cfg.Store(cfg)
	e.analyzer.Store(engine.NewAnalyzer(cfg.Environment.Rules, cfg.Notify, cfg.Tracking))
}

func (e *Environment) config() *config.Config {
	if v := e.cfg.Load(); v != nil {
		return v.(*config.Config)
	}
	return config.DefaultConfig()
}

func (e *Environment) ruleAnalyzer() *engine.Analyzer {
	return e.analyzer.Load().(*engine.Analyzer)
}

func (e *Environment) RecordEvent(t model.EventType, severity model.Severity, ctx model.EventContext, details model.Details) model.Event {
	now := time.Now().UTC()
	ev := model.Event{
		ID:        model.NewEventID(t, now),
		Type:      t,
		Severity:  severity,
		Timestamp: now,
		Context:   ctx,
		Details:   details,
	}
	e.events.Append(ev)
	findings := e.ruleAnalyzer().Evaluate(e.events, ev)
	applyFindings(findings, e.alerts, e.dispatch, e.logger)
	return ev
}

// RecordMissingVariable defaults severity to medium. A critical severity
// raises its own alert immediately, independent of the repeat counter.
func (e *Environment) RecordMissingVariable(name string, ctx model.EventContext, severity model.Severity) model.Event {
	if severity == "" {
		severity = model.SeverityMedium
	}
	return e.RecordEvent(model.EventMissingVariable, severity, ctx, model.VariableDetails{Variable: name, Reason: "not set"})
}

func (e *Environment) RecordInvalidFormat(name, reason string, ctx model.EventContext) model.Event {
	return e.RecordEvent(model.EventInvalidFormat, model.SeverityMedium, ctx, model.VariableDetails{Variable: name, Reason: reason})
}

func (e *Environment) RecordValidationFailure(name, reason string, ctx model.EventContext) model.Event {
	return e.RecordEvent(model.EventValidationFailed, model.SeverityMedium, ctx, model.VariableDetails{Variable: name, Reason: reason})
}

func (e *Environment) RecordClientInitializationFailure(kind, message string, ctx model.EventContext) model.Event {
	return e.RecordEvent(model.EventClientInitFailed, model.SeverityHigh, ctx, model.ClientInitDetails{Kind: kind, Message: message})
}

func (e *Environment) RecordNetworkError(operation, message string, ctx model.EventContext) model.Event {
	ctx.Operation = operation
	return e.RecordEvent(model.EventNetworkError, model.SeverityMedium, ctx, model.NetworkDetails{Message: message})
}

func (e *Environment) RecordConfigurationError(setting, message string, ctx model.EventContext) model.Event {
	return e.RecordEvent(model.EventConfigurationError, model.SeverityHigh, ctx, model.ConfigDetails{Setting: setting, Message: message})
}

func (e *Environment) StartClientInitializationTracking(correlationID string) string {
	return e.initStore.Start(correlationID)
}

// CompleteClientInitializationTracking fills the attempt's outcome. Unknown
// ids are absorbed. A completed failure re-checks the sampled failure rate.
func (e *Environment) CompleteClientInitializationTracking(id string, success bool, retryCount int, errorType, errorMessage string) {
	e.initStore.Complete(id, success, retryCount, errorType, errorMessage)
	if success {
		return
	}
	if f, ok := e.ruleAnalyzer().EvaluateInitFailureRate(e.initStore); ok {
		applyFindings([]engine.Finding{f}, e.alerts, e.dispatch, e.logger)
	}
}

func (e *Environment) StartEnvironmentValidationTracking(correlationID string) string {
	return e.validations.Start(correlationID)
}

func (e *Environment) CompleteEnvironmentValidationTracking(id string, total, valid, invalid, missing int) {
	e.validations.Complete(id, total, valid, invalid, missing)
	if f, ok := e.ruleAnalyzer().EvaluateValidationDuration(e.validations); ok {
		applyFindings([]engine.Finding{f}, e.alerts, e.dispatch, e.logger)
	}
}

func (e *Environment) InitAttempt(id string) (model.InitAttempt, bool) {
	return e.initStore.Get(id)
}

func (e *Environment) ValidationRun(id string) (model.ValidationRun, bool) {
	return e.validations.Get(id)
}

func (e *Environment) RecentEvents(n int) []model.Event {
	return e.events.Recent(n)
}

func (e *Environment) ActiveAlerts() []model.Alert {
	return e.alerts.Active()
}

func (e *Environment) ResolveAlert(id string) bool {
	return e.alerts.Resolve(id)
}

// Stats aggregates windowed counts plus the tracking rollups. Rates and
// averages are 0 when the window holds no completed records.
func (e *Environment) Stats(windowMinutes int) model.EnvironmentStats {
	since := windowStart(windowMinutes)
	evs := e.events.Since(since)
	byType, bySeverity := countEvents(evs)

	attempts := e.initStore.CompletedSince(since)
	successRate := 0.0
	if len(attempts) > 0 {
		successes := 0
		for _, rec := range attempts {
			if rec.Success {
				successes++
			}
		}
		successRate = float64(successes) / float64(len(attempts)) * 100
	}

	runs := e.validations.CompletedSince(since)
	var avgDuration time.Duration
	if len(runs) > 0 {
		var total time.Duration
		for _, rec := range runs {
			total += rec.Duration
		}
		avgDuration = total / time.Duration(len(runs))
	}

	return model.EnvironmentStats{
		WindowMinutes:             windowMinutes,
		TotalEvents:               len(evs),
		EventsByType:              byType,
		EventsBySeverity:          bySeverity,
		ClientInitSuccessRate:     successRate,
		AverageValidationDuration: avgDuration,
		ActiveAlerts:              e.alerts.ActiveCount(),
	}
}

func (e *Environment) Health() model.Health {
	return healthOf(e.config().Health, e.events, e.alerts)
}

// Reset clears all in-memory state. Test isolation only.
func (e *Environment) Reset() {
	e.events.Clear()
	e.alerts.Clear()
	e.initStore.Clear()
	e.validations.Clear()
}
