package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"roomguard/internal/config"
	"roomguard/internal/model"
)

// Store archives alerts to a database, best-effort. The in-memory core never
// reads the archive back; it exists for offline reporting.
type Store interface {
	Init(ctx context.Context) error
	Close() error
	SaveAlert(ctx context.Context, alert model.Alert) error
}

func NewStore(cfg config.ArchiveConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgres(cfg.DSN)
	default:
		return nil, errors.New("unsupported archive driver")
	}
}

type baseStore struct {
	db *sql.DB
}

func (b *baseStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func encodeJSON(value any) string {
	data, _ := json.Marshal(value)
	return string(data)
}
