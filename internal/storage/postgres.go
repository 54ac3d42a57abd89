package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"roomguard/internal/model"
)

type postgresStore struct {
	baseStore
}

func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/roomguard?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{baseStore{db: db}}, nil
}

func (s *postgresStore) Init(ctx context.Context) error {
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
			first_seen TIMESTAMPTZ NOT NULL,
			last_seen TIMESTAMPTZ NOT NULL,
			pattern TEXT,
			resolved BOOLEAN NOT NULL,
			details_json JSONB
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

func (s *postgresStore) SaveAlert(ctx context.Context, alert model.Alert) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (alert_id, alert_type, actor_key, severity, count, first_seen, last_seen, pattern, resolved, details_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (alert_id) DO UPDATE SET
			severity = EXCLUDED.severity,
			count = EXCLUDED.count,
			last_seen = EXCLUDED.last_seen,
			pattern = EXCLUDED.pattern,
			resolved = EXCLUDED.resolved,
			details_json = EXCLUDED.details_json`,
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
