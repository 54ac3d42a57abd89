package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"roomguard/internal/config"
	"roomguard/internal/model"
	"roomguard/internal/monitor"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "roomguard.yaml")
	if err := os.WriteFile(path, []byte("log_level: info\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	mgr, err := config.NewManager(path)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	cfg := mgr.Get()
	return &Server{
		cfg:     mgr,
		sec:     monitor.NewSecurity(cfg, nil, nil),
		env:     monitor.NewEnvironment(cfg, nil, nil),
		version: "test",
	}
}

func TestConfigEndpointGet(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.handleConfig(rec, httptest.NewRequest(http.MethodGet, "/config", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got config.Config
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("config not json: %v", err)
	}
	if got.Security.EventStoreLimit != 10000 {
		t.Fatalf("unexpected store limit %d", got.Security.EventStoreLimit)
	}
}

func TestConfigEndpointPutReachesMonitors(t *testing.T) {
	s := testServer(t)
	ctx := model.EventContext{UserID: "user123"}
	s.sec.RecordAuthFailure(ctx, "bad password")
	s.sec.RecordAuthFailure(ctx, "bad password")
	if len(s.sec.ActiveAlerts()) != 0 {
		t.Fatalf("no alert expected at the default threshold")
	}

	next := config.DefaultConfig()
	rule := next.Security.Rules[model.EventAuthFailure]
	rule.Threshold = 2
	next.Security.Rules[model.EventAuthFailure] = rule
	body, err := json.Marshal(next)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	rec := httptest.NewRecorder()
	s.handleConfig(rec, httptest.NewRequest(http.MethodPut, "/config", bytes.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if s.cfg.Get().Security.Rules[model.EventAuthFailure].Threshold != 2 {
		t.Fatalf("manager did not swap the updated config")
	}

	s.sec.RecordAuthFailure(ctx, "bad password")
	if len(s.sec.ActiveAlerts()) != 1 {
		t.Fatalf("updated threshold not applied to the security monitor")
	}
}

func TestConfigEndpointPutRejectsInvalid(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.handleConfig(rec, httptest.NewRequest(http.MethodPut, "/config", bytes.NewReader([]byte("{not json"))))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}
