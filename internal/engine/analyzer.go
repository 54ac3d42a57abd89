package engine

import (
	"fmt"
	"time"

	"roomguard/internal/config"
	"roomguard/internal/events"
	"roomguard/internal/model"
	"roomguard/internal/tracking"
)

// Finding is the analyzer's verdict that an alert condition holds. The owner
// feeds it to the alert manager and decides on dispatch.
type Finding struct {
	AlertType model.AlertType
	Actor     string
	Severity  model.Severity
	Pattern   model.Pattern
	// Occurrences is the windowed occurrence count behind the finding, 0
	// when the rule has no windowed count.
	Occurrences int
	Details     map[string]string
}

// Analyzer applies the declarative rule table to the event store on every
// insert, plus the sampled failure-rate and duration rules over the tracking
// stores. It holds no mutable state of its own.
type Analyzer struct {
	rules    map[model.EventType]config.RuleConfig
	rapidGap time.Duration
	burstGap time.Duration
	tracking config.TrackingConfig
}

func NewAnalyzer(rules map[model.EventType]config.RuleConfig, notify config.NotifyConfig, tracking config.TrackingConfig) *Analyzer {
	return &Analyzer{
		rules:    rules,
		rapidGap: notify.RapidGap,
		burstGap: notify.BurstGap,
		tracking: tracking,
	}
}

// Evaluate runs synchronously after the event is appended. Event types
// without a rule produce no findings; a critical missing_variable fires its
// own alert type at threshold 1, independent of the repeated-failure rule.
func (a *Analyzer) Evaluate(store *events.Store, ev model.Event) []Finding {
	var findings []Finding
	actor := ev.ActorKey()

	if ev.Type == model.EventMissingVariable && ev.Severity == model.SeverityCritical {
		details := map[string]string{"threshold": "1"}
		for k, v := range detailFields(ev) {
			details[k] = v
		}
		findings = append(findings, Finding{
			AlertType:   model.AlertCriticalMissingVariable,
			Actor:       actor,
			Severity:    model.SeverityCritical,
			Occurrences: 1,
			Details:     details,
		})
	}

	rule, ok := a.rules[ev.Type]
	if !ok {
		return findings
	}
	matched := store.MatchSince(ev.Type, actor, ev.Timestamp.Add(-rule.Window))
	if len(matched) < rule.Threshold {
		return findings
	}
	findings = append(findings, Finding{
		AlertType:   rule.AlertType,
		Actor:       actor,
		Severity:    rule.Severity,
		Pattern:     a.classify(matched),
		Occurrences: len(matched),
		Details: map[string]string{
			"event_type":  string(ev.Type),
			"threshold":   fmt.Sprintf("%d", rule.Threshold),
			"window":      rule.Window.String(),
			"occurrences": fmt.Sprintf("%d", len(matched)),
		},
	})
	return findings
}

// classify labels the temporal shape of the matched subsequence from its
// inter-arrival gaps: all gaps under the rapid threshold means the events
// landed effectively together; all under the burst threshold means a tight
// cluster; anything slower gets no label.
func (a *Analyzer) classify(matched []model.Event) model.Pattern {
	if len(matched) < 2 {
		return model.PatternNone
	}
	maxGap := time.Duration(0)
	for i := 1; i < len(matched); i++ {
		gap := matched[i].Timestamp.Sub(matched[i-1].Timestamp)
		if gap < 0 {
			gap = 0
		}
		if gap > maxGap {
			maxGap = gap
		}
	}
	switch {
	case maxGap < a.rapidGap:
		return model.PatternRapidSuccession
	case maxGap < a.burstGap:
		return model.PatternBurst
	}
	return model.PatternNone
}

// EvaluateInitFailureRate checks the sampled client-init failure rate: at
// least FailureThreshold failures across the last SampleSize completed
// attempts.
func (a *Analyzer) EvaluateInitFailureRate(store *tracking.InitStore) (Finding, bool) {
	sample := store.LastCompleted(a.tracking.InitSampleSize)
	if len(sample) < a.tracking.InitSampleSize {
		return Finding{}, false
	}
	failures := 0
	for _, rec := range sample {
		if !rec.Success {
			failures++
		}
	}
	if failures < a.tracking.InitFailureThreshold {
		return Finding{}, false
	}
	return Finding{
		AlertType: model.AlertClientInitFailureRate,
		Actor:     "unknown",
		Severity:  model.SeverityHigh,
		Details: map[string]string{
			"failures":    fmt.Sprintf("%d", failures),
			"sample_size": fmt.Sprintf("%d", len(sample)),
			"threshold":   fmt.Sprintf("%d", a.tracking.InitFailureThreshold),
		},
	}, true
}

// EvaluateValidationDuration checks for degraded validation performance: the
// mean duration over the last SampleSize completed runs above the limit.
func (a *Analyzer) EvaluateValidationDuration(store *tracking.ValidationStore) (Finding, bool) {
	sample := store.LastCompleted(a.tracking.ValidationSampleSize)
	if len(sample) < a.tracking.ValidationSampleSize {
		return Finding{}, false
	}
	var total time.Duration
	for _, rec := range sample {
		total += rec.Duration
	}
	avg := total / time.Duration(len(sample))
	if avg <= a.tracking.ValidationDurationLimit {
		return Finding{}, false
	}
	return Finding{
		AlertType: model.AlertValidationDegradation,
		Actor:     "unknown",
		Severity:  model.SeverityMedium,
		Details: map[string]string{
			"average_duration": avg.String(),
			"limit":            a.tracking.ValidationDurationLimit.String(),
			"sample_size":      fmt.Sprintf("%d", len(sample)),
		},
	}, true
}

func detailFields(ev model.Event) map[string]string {
	if ev.Details == nil {
		return nil
	}
	return ev.Details.Fields()
}
