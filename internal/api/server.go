package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"roomguard/internal/config"
	"roomguard/internal/model"
	"roomguard/internal/monitor"
)

// Server is the operational surface consumed by health checks, reporting
// scripts and operators. The monitoring core itself listens on nothing; this
// server is just another consumer of its API.
type Server struct {
	cfg     *config.Manager
	sec     *monitor.Security
	env     *monitor.Environment
	logger  *slog.Logger
	version string
}

type healthResponse struct {
	Status      model.HealthStatus `json:"status"`
	Time        string             `json:"time"`
	Version     string             `json:"version"`
	Security    model.Health       `json:"security"`
	Environment model.Health       `json:"environment"`
}

func Start(ctx context.Context, cfg *config.Manager, sec *monitor.Security, env *monitor.Environment, logger *slog.Logger, version string) *http.Server {
	if cfg == nil {
		return nil
	}
	current := cfg.Get().API
	if !current.Enabled {
		if logger != nil {
			logger.Info("api disabled")
		}
		return nil
	}
	if logger != nil {
		logger.Info("api enabled", "addr", current.Addr)
	}
	server := &Server{cfg: cfg, sec: sec, env: env, logger: logger, version: version}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.handleHealth)
	mux.HandleFunc("/config", server.handleConfig)
	mux.HandleFunc("/security/events", server.handleSecurityEvents)
	mux.HandleFunc("/security/alerts", server.handleSecurityAlerts)
	mux.HandleFunc("/security/stats", server.handleSecurityStats)
	mux.HandleFunc("/environment/events", server.handleEnvironmentEvents)
	mux.HandleFunc("/environment/alerts", server.handleEnvironmentAlerts)
	mux.HandleFunc("/environment/stats", server.handleEnvironmentStats)
	mux.HandleFunc("/alerts/resolve", server.handleResolve)
	mux.HandleFunc("/admin/reset", server.handleReset)

	httpServer := &http.Server{Addr: current.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctxShutdown)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Error("api server error", "err", err)
			}
		}
	}()
	return httpServer
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sec := s.sec.Health()
	env := s.env.Health()
	status := sec.Status
	if rank(env.Status) > rank(status) {
		status = env.Status
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      status,
		Time:        time.Now().UTC().Format(time.RFC3339Nano),
		Version:     s.version,
		Security:    sec,
		Environment: env,
	})
}

// handleConfig exposes the live config and accepts a full replacement
// document; omitted fields take their defaults. An accepted update is
// persisted through the manager and pushed into both monitors, the same path
// a file-watch reload takes.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.cfg.Get())
	case http.MethodPut:
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var next config.Config
		if err := json.Unmarshal(body, &next); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := s.cfg.Update(&next); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		s.sec.UpdateConfig(&next)
		s.env.UpdateConfig(&next)
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func rank(st model.HealthStatus) int {
	switch st {
	case model.HealthDegraded:
		return 1
	case model.HealthCritical:
		return 2
	}
	return 0
}

func (s *Server) handleSecurityEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	list := s.sec.RecentEvents(queryInt(r, "limit", 100))
	writeJSON(w, http.StatusOK, map[string]any{"events": list, "count": len(list)})
}

func (s *Server) handleSecurityAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	list := s.sec.ActiveAlerts()
	writeJSON(w, http.StatusOK, map[string]any{"alerts": list, "count": len(list)})
}

func (s *Server) handleSecurityStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.sec.Stats(queryInt(r, "window", 60)))
}

func (s *Server) handleEnvironmentEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	list := s.env.RecentEvents(queryInt(r, "limit", 100))
	writeJSON(w, http.StatusOK, map[string]any{"events": list, "count": len(list)})
}

func (s *Server) handleEnvironmentAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	list := s.env.ActiveAlerts()
	writeJSON(w, http.StatusOK, map[string]any{"alerts": list, "count": len(list)})
}

func (s *Server) handleEnvironmentStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.env.Stats(queryInt(r, "window", 60)))
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var req struct {
		Monitor string `json:"monitor"`
		ID      string `json:"id"`
	}
	if err := json.Unmarshal(body, &req); err != nil || req.ID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var resolved bool
	switch req.Monitor {
	case "security":
		resolved = s.sec.ResolveAlert(req.ID)
	case "environment":
		resolved = s.env.ResolveAlert(req.ID)
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resolved": resolved})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.sec.Reset()
	s.env.Reset()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func queryInt(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
