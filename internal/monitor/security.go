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
)

// Security is the security monitoring service: auth failures, suspicious
// access, privilege escalation and integrity events. Record methods never
// block and never fail; instrumentation must not destabilize its callers.
type Security struct {
	logger   *slog.Logger
	events   *events.Store
	alerts   *alerts.Manager
	dispatch *notify.Dispatcher
	cfg      atomic.Value
	analyzer atomic.Value
}

func NewSecurity(cfg *config.Config, logger *slog.Logger, dispatch *notify.Dispatcher) *Security {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Security{
		logger:   logger,
		events:   events.NewStore(cfg.Security.EventStoreLimit),
		alerts:   alerts.NewManager(),
		dispatch: dispatch,
	}
	s.UpdateConfig(cfg)
	return s
}

// UpdateConfig swaps in a reloaded config: the rule table, gap thresholds and
// health thresholds take effect on the next recorded event. Store capacities
// are fixed at construction.
func (s *Security) UpdateConfig(cfg *config.Config) {
	s.cfg.Store(cfg)
	s.analyzer.Store(engine.NewAnalyzer(cfg.Security.Rules, cfg.Notify, cfg.Tracking))
}

func (s *Security) config() *config.Config {
	if v := s.cfg.Load(); v != nil {
		return v.(*config.Config)
	}
	return config.DefaultConfig()
}

func (s *Security) ruleAnalyzer() *engine.Analyzer {
	return s.analyzer.Load().(*engine.Analyzer)
}

// RecordEvent fills id and timestamp, appends, and runs threshold/pattern
// analysis synchronously. The returned event is the stored copy.
func (s *Security) RecordEvent(t model.EventType, severity model.Severity, ctx model.EventContext, details model.Details) model.Event {
	now := time.Now().UTC()
	ev := model.Event{
		ID:        model.NewEventID(t, now),
		Type:      t,
		Severity:  severity,
		Timestamp: now,
		Context:   ctx,
		Details:   details,
	}
	s.events.Append(ev)
	findings := s.ruleAnalyzer().Evaluate(s.events, ev)
	applyFindings(findings, s.alerts, s.dispatch, s.logger)
	return ev
}

func (s *Security) RecordAuthFailure(ctx model.EventContext, reason string) model.Event {
	return s.RecordEvent(model.EventAuthFailure, model.SeverityMedium, ctx, model.AuthFailureDetails{Reason: reason})
}

func (s *Security) RecordSuspiciousAccess(ctx model.EventContext, reason string, riskScore float64) model.Event {
	return s.RecordEvent(model.EventSuspiciousAccess, model.SeverityHigh, ctx, model.SuspiciousAccessDetails{Reason: reason, RiskScore: riskScore})
}

func (s *Security) RecordPrivilegeEscalationAttempt(ctx model.EventContext, reason string) model.Event {
	return s.RecordEvent(model.EventPrivilegeEscalation, model.SeverityCritical, ctx, model.AuthFailureDetails{Reason: reason})
}

func (s *Security) RecordDataIntegrityViolation(ctx model.EventContext, table string, records int, reason string) model.Event {
	return s.RecordEvent(model.EventDataIntegrityViolation, model.SeverityCritical, ctx, model.IntegrityDetails{Table: table, RecordCount: records, Reason: reason})
}

func (s *Security) RecordAuthenticatedAPIAccess(ctx model.EventContext, method, path string, status int) model.Event {
	return s.RecordEvent(model.EventAuthenticatedAPIAccess, model.SeverityLow, ctx, model.APIAccessDetails{Method: method, Path: path, Status: status})
}

func (s *Security) RecentEvents(n int) []model.Event {
	return s.events.Recent(n)
}

func (s *Security) ActiveAlerts() []model.Alert {
	return s.alerts.Active()
}

func (s *Security) ResolveAlert(id string) bool {
	return s.alerts.Resolve(id)
}

func (s *Security) Stats(windowMinutes int) model.SecurityStats {
	evs := s.events.Since(windowStart(windowMinutes))
	byType, bySeverity := countEvents(evs)
	return model.SecurityStats{
		WindowMinutes:    windowMinutes,
		TotalEvents:      len(evs),
		EventsByType:     byType,
		EventsBySeverity: bySeverity,
		ActiveAlerts:     s.alerts.ActiveCount(),
	}
}

func (s *Security) Health() model.Health {
	return healthOf(s.config().Health, s.events, s.alerts)
}

// Reset clears all in-memory state. Test isolation only.
func (s *Security) Reset() {
	s.events.Clear()
	s.alerts.Clear()
}
