package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"roomguard/internal/model"
)

type Config struct {
	LogLevel    string            `json:"log_level" yaml:"log_level"`
	Security    MonitorConfig     `json:"security" yaml:"security"`
	Environment MonitorConfig     `json:"environment" yaml:"environment"`
	Tracking    TrackingConfig    `json:"tracking" yaml:"tracking"`
	Notify      NotifyConfig      `json:"notify" yaml:"notify"`
	Archive     ArchiveConfig     `json:"archive" yaml:"archive"`
	API         APIConfig         `json:"api" yaml:"api"`
	Health      HealthThresholds  `json:"health" yaml:"health"`
}

// MonitorConfig holds one monitor's store cap and its alerting rule table,
// keyed by event type. Thresholds are data, not code.
type MonitorConfig struct {
	EventStoreLimit int                            `json:"event_store_limit" yaml:"event_store_limit"`
	Rules           map[model.EventType]RuleConfig `json:"rules" yaml:"rules"`
}

type RuleConfig struct {
	Window    time.Duration   `json:"window" yaml:"window"`
	Threshold int             `json:"threshold" yaml:"threshold"`
	AlertType model.AlertType `json:"alert_type" yaml:"alert_type"`
	Severity  model.Severity  `json:"severity" yaml:"severity"`
}

type TrackingConfig struct {
	StoreLimit int `json:"store_limit" yaml:"store_limit"`

	// Client-init failure rate: alert when at least FailureThreshold of the
	// last SampleSize completed attempts failed.
	InitSampleSize       int `json:"init_sample_size" yaml:"init_sample_size"`
	InitFailureThreshold int `json:"init_failure_threshold" yaml:"init_failure_threshold"`

	ValidationSampleSize    int           `json:"validation_sample_size" yaml:"validation_sample_size"`
	ValidationDurationLimit time.Duration `json:"validation_duration_limit" yaml:"validation_duration_limit"`
}

type NotifyConfig struct {
	// WebhookURL is normally left empty here and supplied through the
	// ROOMGUARD_WEBHOOK_URL environment variable. Empty disables the sink.
	WebhookURL     string         `json:"webhook_url" yaml:"webhook_url"`
	WebhookTimeout time.Duration  `json:"webhook_timeout" yaml:"webhook_timeout"`
	MinSeverity    model.Severity `json:"min_severity" yaml:"min_severity"`
	RapidGap       time.Duration  `json:"rapid_gap" yaml:"rapid_gap"`
	BurstGap       time.Duration  `json:"burst_gap" yaml:"burst_gap"`
	Kafka          KafkaConfig    `json:"kafka" yaml:"kafka"`
}

type KafkaConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled"`
	Brokers []string `json:"brokers" yaml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic"`
}

type ArchiveConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Driver  string `json:"driver" yaml:"driver"`
	DSN     string `json:"dsn" yaml:"dsn"`
}

type APIConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type HealthThresholds struct {
	DegradedAlerts    int     `json:"degraded_alerts" yaml:"degraded_alerts"`
	DegradedFillRatio float64 `json:"degraded_fill_ratio" yaml:"degraded_fill_ratio"`
	CriticalFillRatio float64 `json:"critical_fill_ratio" yaml:"critical_fill_ratio"`
}

const WebhookURLEnv = "ROOMGUARD_WEBHOOK_URL"

func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Security: MonitorConfig{
			EventStoreLimit: 10000,
			Rules: map[model.EventType]RuleConfig{
				model.EventAuthFailure: {
					Window:    15 * time.Minute,
					Threshold: 5,
					AlertType: model.AlertRepeatedFailures,
					Severity:  model.SeverityHigh,
				},
				model.EventSuspiciousAccess: {
					Window:    15 * time.Minute,
					Threshold: 3,
					AlertType: model.AlertSuspiciousPattern,
					Severity:  model.SeverityHigh,
				},
				model.EventPrivilegeEscalation: {
					Window:    15 * time.Minute,
					Threshold: 3,
					AlertType: model.AlertSuspiciousPattern,
					Severity:  model.SeverityCritical,
				},
			},
		},
		Environment: MonitorConfig{
			EventStoreLimit: 5000,
			Rules: map[model.EventType]RuleConfig{
				model.EventMissingVariable: {
					Window:    15 * time.Minute,
					Threshold: 3,
					AlertType: model.AlertRepeatedFailures,
					Severity:  model.SeverityMedium,
				},
				model.EventClientInitFailed: {
					Window:    15 * time.Minute,
					Threshold: 3,
					AlertType: model.AlertRepeatedFailures,
					Severity:  model.SeverityHigh,
				},
			},
		},
		Tracking: TrackingConfig{
			StoreLimit:              2000,
			InitSampleSize:          10,
			InitFailureThreshold:    6,
			ValidationSampleSize:    10,
			ValidationDurationLimit: 1 * time.Second,
		},
		Notify: NotifyConfig{
			WebhookURL:     os.Getenv(WebhookURLEnv),
			WebhookTimeout: 10 * time.Second,
			MinSeverity:    model.SeverityCritical,
			RapidGap:       50 * time.Millisecond,
			BurstGap:       500 * time.Millisecond,
			Kafka:          KafkaConfig{Enabled: false},
		},
		Archive: ArchiveConfig{Enabled: false, Driver: "sqlite", DSN: "file:roomguard.db?_pragma=busy_timeout(5000)"},
		API:     APIConfig{Enabled: true, Addr: ":8081"},
		Health: HealthThresholds{
			DegradedAlerts:    3,
			DegradedFillRatio: 0.8,
			CriticalFillRatio: 0.95,
		},
	}
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()

	trimmed := strings.TrimSpace(string(content))
	if len(trimmed) == 0 {
		return nil, errors.New("config file is empty")
	}
	var decodeErr error
	if looksLikeJSON(trimmed) {
		decodeErr = json.Unmarshal([]byte(trimmed), cfg)
	} else {
		decodeErr = yaml.Unmarshal([]byte(trimmed), cfg)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if path == "" || cfg == nil {
		return errors.New("config path or config is empty")
	}
	var data []byte
	var err error
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Security.EventStoreLimit <= 0 {
		cfg.Security.EventStoreLimit = def.Security.EventStoreLimit
	}
	if cfg.Environment.EventStoreLimit <= 0 {
		cfg.Environment.EventStoreLimit = def.Environment.EventStoreLimit
	}
	if len(cfg.Security.Rules) == 0 {
		cfg.Security.Rules = def.Security.Rules
	}
	if len(cfg.Environment.Rules) == 0 {
		cfg.Environment.Rules = def.Environment.Rules
	}
	if cfg.Tracking.StoreLimit <= 0 {
		cfg.Tracking.StoreLimit = def.Tracking.StoreLimit
	}
	if cfg.Tracking.InitSampleSize <= 0 {
		cfg.Tracking.InitSampleSize = def.Tracking.InitSampleSize
	}
	if cfg.Tracking.InitFailureThreshold <= 0 {
		cfg.Tracking.InitFailureThreshold = def.Tracking.InitFailureThreshold
	}
	if cfg.Tracking.ValidationSampleSize <= 0 {
		cfg.Tracking.ValidationSampleSize = def.Tracking.ValidationSampleSize
	}
	if cfg.Tracking.ValidationDurationLimit <= 0 {
		cfg.Tracking.ValidationDurationLimit = def.Tracking.ValidationDurationLimit
	}
	if cfg.Notify.WebhookTimeout <= 0 {
		cfg.Notify.WebhookTimeout = def.Notify.WebhookTimeout
	}
	if cfg.Notify.MinSeverity == "" {
		cfg.Notify.MinSeverity = def.Notify.MinSeverity
	}
	if cfg.Notify.RapidGap <= 0 {
		cfg.Notify.RapidGap = def.Notify.RapidGap
	}
	if cfg.Notify.BurstGap <= 0 {
		cfg.Notify.BurstGap = def.Notify.BurstGap
	}
	if cfg.Notify.WebhookURL == "" {
		cfg.Notify.WebhookURL = os.Getenv(WebhookURLEnv)
	}
	if cfg.Health.DegradedAlerts <= 0 {
		cfg.Health.DegradedAlerts = def.Health.DegradedAlerts
	}
	if cfg.Health.DegradedFillRatio <= 0 {
		cfg.Health.DegradedFillRatio = def.Health.DegradedFillRatio
	}
	if cfg.Health.CriticalFillRatio <= 0 {
		cfg.Health.CriticalFillRatio = def.Health.CriticalFillRatio
	}
}

func Validate(cfg *Config) error {
	if cfg.API.Enabled && cfg.API.Addr == "" {
		return errors.New("api.addr required when api.enabled is true")
	}
	if cfg.Notify.Kafka.Enabled {
		if len(cfg.Notify.Kafka.Brokers) == 0 || cfg.Notify.Kafka.Topic == "" {
			return errors.New("notify.kafka requires brokers and topic")
		}
	}
	if cfg.Archive.Enabled && cfg.Archive.Driver == "" {
		return errors.New("archive.driver required when archive.enabled is true")
	}
	if cfg.Notify.MinSeverity.Rank() < 0 {
		return fmt.Errorf("notify.min_severity invalid: %q", cfg.Notify.MinSeverity)
	}
	for _, mon := range []MonitorConfig{cfg.Security, cfg.Environment} {
		for et, rule := range mon.Rules {
			if rule.Window <= 0 {
				return fmt.Errorf("rule for %s has non-positive window: %s", et, rule.Window)
			}
			if rule.Threshold <= 0 {
				return fmt.Errorf("rule for %s has non-positive threshold", et)
			}
			if rule.AlertType == "" {
				return fmt.Errorf("rule for %s missing alert_type", et)
			}
		}
	}
	if cfg.Health.DegradedFillRatio >= cfg.Health.CriticalFillRatio {
		return errors.New("health.degraded_fill_ratio must be below critical_fill_ratio")
	}
	return nil
}

type Manager struct {
	path    string
	cfg     atomic.Value
	modTime time.Time
}

func NewManager(path string) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	m := &Manager{path: path}
	m.cfg.Store(cfg)
	info, err := os.Stat(path)
	if err == nil {
		m.modTime = info.ModTime()
	}
	return m, nil
}

func (m *Manager) Get() *Config {
	if v := m.cfg.Load(); v != nil {
		return v.(*Config)
	}
	return DefaultConfig()
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) Reload() (*Config, error) {
	cfg, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	m.cfg.Store(cfg)
	if info, err := os.Stat(m.path); err == nil {
		m.modTime = info.ModTime()
	}
	return cfg, nil
}

// Update fills defaults, validates, persists and swaps in a new config. The
// saved file's mtime is recorded so the watcher does not re-fire on our own
// write.
func (m *Manager) Update(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return err
	}
	if err := Save(m.path, cfg); err != nil {
		return err
	}
	m.cfg.Store(cfg)
	if info, err := os.Stat(m.path); err == nil {
		m.modTime = info.ModTime()
	}
	return nil
}

func (m *Manager) NeedsReload() (bool, error) {
	info, err := os.Stat(m.path)
	if err != nil {
		return false, err
	}
	return info.ModTime().After(m.modTime), nil
}

func (m *Manager) Watch(interval time.Duration, onReload func(*Config), onError func(error), stop <-chan struct{}) {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			needs, err := m.NeedsReload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if !needs {
				continue
			}
			cfg, err := m.Reload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if onReload != nil {
				onReload(cfg)
			}
		case <-stop:
			return
		}
	}
}

func ResolvePath(path string) string {
	if path == "" {
		return path
	}
	if filepath.IsAbs(path) {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	return filepath.Join(cwd, path)
}
