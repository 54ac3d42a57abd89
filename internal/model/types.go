package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	}
	return -1
}

func (s Severity) AtLeast(min Severity) bool {
	return s.Rank() >= min.Rank()
}

type EventType string

const (
	EventAuthFailure            EventType = "auth_failure"
	EventSuspiciousAccess       EventType = "suspicious_access"
	EventPrivilegeEscalation    EventType = "privilege_escalation_attempt"
	EventDataIntegrityViolation EventType = "data_integrity_violation"
	EventAuthenticatedAPIAccess EventType = "authenticated_api_access"

	EventMissingVariable    EventType = "missing_variable"
	EventInvalidFormat      EventType = "invalid_format"
	EventValidationFailed   EventType = "validation_failed"
	EventClientInitFailed   EventType = "client_init_failed"
	EventNetworkError       EventType = "network_error"
	EventConfigurationError EventType = "configuration_error"
)

// EventContext carries caller-supplied correlation metadata. All fields are
// optional; producers are trusted in-process callers.
type EventContext struct {
	UserID        string `json:"user_id,omitempty"`
	Endpoint      string `json:"endpoint,omitempty"`
	IP            string `json:"ip,omitempty"`
	Operation     string `json:"operation,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Caller        string `json:"caller,omitempty"`
	Attempt       int    `json:"attempt,omitempty"`
}

// Details is the variant-specific payload of an event, one concrete type per
// event family.
type Details interface {
	Fields() map[string]string
}

type AuthFailureDetails struct {
	Reason string `json:"reason,omitempty"`
}

func (d AuthFailureDetails) Fields() map[string]string {
	return map[string]string{"reason": d.Reason}
}

type SuspiciousAccessDetails struct {
	Reason    string  `json:"reason,omitempty"`
	RiskScore float64 `json:"risk_score,omitempty"`
}

func (d SuspiciousAccessDetails) Fields() map[string]string {
	return map[string]string{
		"reason":     d.Reason,
		"risk_score": fmt.Sprintf("%.2f", d.RiskScore),
	}
}

type IntegrityDetails struct {
	Table       string `json:"table,omitempty"`
	RecordCount int    `json:"record_count,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func (d IntegrityDetails) Fields() map[string]string {
	return map[string]string{
		"table":        d.Table,
		"record_count": fmt.Sprintf("%d", d.RecordCount),
		"reason":       d.Reason,
	}
}

type APIAccessDetails struct {
	Method string `json:"method,omitempty"`
	Path   string `json:"path,omitempty"`
	Status int    `json:"status,omitempty"`
}

func (d APIAccessDetails) Fields() map[string]string {
	return map[string]string{
		"method": d.Method,
		"path":   d.Path,
		"status": fmt.Sprintf("%d", d.Status),
	}
}

// VariableDetails covers missing_variable, invalid_format and
// validation_failed events.
type VariableDetails struct {
	Variable string `json:"variable"`
	Reason   string `json:"reason,omitempty"`
}

func (d VariableDetails) Fields() map[string]string {
	return map[string]string{"variable": d.Variable, "reason": d.Reason}
}

type ClientInitDetails struct {
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

func (d ClientInitDetails) Fields() map[string]string {
	return map[string]string{"kind": d.Kind, "message": d.Message}
}

type NetworkDetails struct {
	Message string `json:"message,omitempty"`
}

func (d NetworkDetails) Fields() map[string]string {
	return map[string]string{"message": d.Message}
}

type ConfigDetails struct {
	Setting string `json:"setting,omitempty"`
	Message string `json:"message,omitempty"`
}

func (d ConfigDetails) Fields() map[string]string {
	return map[string]string{"setting": d.Setting, "message": d.Message}
}

// Event is immutable once recorded.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	Severity  Severity     `json:"severity"`
	Timestamp time.Time    `json:"timestamp"`
	Context   EventContext `json:"context"`
	Details   Details      `json:"details,omitempty"`
}

// ActorKey is the identity alerts are aggregated under: the user id, the
// variable name for environment events, or "unknown".
func (e Event) ActorKey() string {
	if e.Context.UserID != "" {
		return e.Context.UserID
	}
	if vd, ok := e.Details.(VariableDetails); ok && vd.Variable != "" {
		return vd.Variable
	}
	return "unknown"
}

func NewEventID(t EventType, ts time.Time) string {
	return fmt.Sprintf("%s-%d-%s", t, ts.UnixNano(), shortID())
}

func shortID() string {
	return uuid.NewString()[:8]
}

type AlertType string

const (
	AlertRepeatedFailures        AlertType = "repeated_failures"
	AlertCriticalMissingVariable AlertType = "critical_missing_variable"
	AlertClientInitFailureRate   AlertType = "client_init_failure_rate"
	AlertValidationDegradation   AlertType = "validation_performance_degradation"
	AlertSuspiciousPattern       AlertType = "suspicious_pattern"
)

type Pattern string

const (
	PatternNone            Pattern = ""
	PatternRapidSuccession Pattern = "rapid_succession"
	PatternBurst           Pattern = "burst_pattern"
)

type Alert struct {
	ID        string            `json:"id"`
	Type      AlertType         `json:"alert_type"`
	ActorKey  string            `json:"actor_key"`
	Severity  Severity          `json:"severity"`
	Count     int               `json:"count"`
	FirstSeen time.Time         `json:"first_seen"`
	LastSeen  time.Time         `json:"last_seen"`
	Pattern   Pattern           `json:"pattern,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	Resolved  bool              `json:"resolved"`
}

func NewAlertID(t AlertType, actor string) string {
	return fmt.Sprintf("%s|%s|%s", t, actor, shortID())
}

// InitAttempt tracks one client initialization, from Start to Complete.
type InitAttempt struct {
	AttemptID     string        `json:"attempt_id"`
	CorrelationID string        `json:"correlation_id,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
	Completed     bool          `json:"completed"`
	Success       bool          `json:"success"`
	RetryCount    int           `json:"retry_count"`
	ErrorType     string        `json:"error_type,omitempty"`
	ErrorMessage  string        `json:"error_message,omitempty"`
}

// ValidationRun tracks one environment validation pass.
type ValidationRun struct {
	ValidationID     string        `json:"validation_id"`
	CorrelationID    string        `json:"correlation_id,omitempty"`
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration"`
	Completed        bool          `json:"completed"`
	TotalVariables   int           `json:"total_variables"`
	ValidVariables   int           `json:"valid_variables"`
	InvalidVariables int           `json:"invalid_variables"`
	MissingVariables int           `json:"missing_variables"`
}

type SecurityStats struct {
	WindowMinutes    int               `json:"window_minutes"`
	TotalEvents      int               `json:"total_events"`
	EventsByType     map[EventType]int `json:"events_by_type"`
	EventsBySeverity map[Severity]int  `json:"events_by_severity"`
	ActiveAlerts     int               `json:"active_alerts"`
}

type EnvironmentStats struct {
	WindowMinutes             int               `json:"window_minutes"`
	TotalEvents               int               `json:"total_events"`
	EventsByType              map[EventType]int `json:"events_by_type"`
	EventsBySeverity          map[Severity]int  `json:"events_by_severity"`
	ClientInitSuccessRate     float64           `json:"client_init_success_rate"`
	AverageValidationDuration time.Duration     `json:"average_validation_duration"`
	ActiveAlerts              int               `json:"active_alerts"`
}

type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthCritical HealthStatus = "critical"
)

type Health struct {
	Status      HealthStatus `json:"status"`
	EventsCount int          `json:"events_count"`
	AlertsCount int          `json:"alerts_count"`
	MemoryBytes uint64       `json:"memory_bytes"`
}
