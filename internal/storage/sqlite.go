package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"

	"roomguard/internal/model"
)

type sqliteStore struct {
	baseStore
}

func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:roomguard.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &sqliteStore{baseStore{db: db}}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			alert_id TEXT PRIMARY KEY,
			alert_type TEXT NOT NULL,
			actor_key TEXT NOT NULL,
			severity TEXT NOT NULL,
			count INTEGER NOT NULL,
			first_seen TEXT NOT NULL,
			last_seen TEXT NOT NULL,
			pattern TEXT,
			resolved INTEGER NOT NULL,
			details_json TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_last_seen ON alerts(last_seen)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_type_actor ON alerts(alert_type, actor_key)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) SaveAlert(ctx context.Context, alert model.Alert) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (alert_id, alert_type, actor_key, severity, count, first_seen, last_seen, pattern, resolved, details_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(alert_id) DO UPDATE SET
			severity = excluded.severity,
			count = excluded.count,
			last_seen = excluded.last_seen,
			pattern = excluded.pattern,
			resolved = excluded.resolved,
			details_json = excluded.details_json`,
		alert.ID,
		string(alert.Type),
		alert.ActorKey,
		string(alert.Severity),
		alert.Count,
		alert.FirstSeen.UTC(),
		alert.LastSeen.UTC(),
		string(alert.Pattern),
		alert.Resolved,
		encodeJSON(alert.Details),
	)
	return err
}
