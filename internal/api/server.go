// Package api provides the HTTP observation surface for a running
// simulation. GET endpoints are public and read only published snapshots,
// never the live entity graph. POST endpoints require a bearer token.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/talgya/echochamber/internal/analysis"
	"github.com/talgya/echochamber/internal/dynamics"
	"github.com/talgya/echochamber/internal/persistence"
	"github.com/talgya/echochamber/internal/runner"
	"github.com/talgya/echochamber/internal/stats"
)

// Server serves simulation state over HTTP.
type Server struct {
	Run      *runner.Runner
	Analyzer *analysis.Analyzer
	DB       *persistence.DB
	RunID    string
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	mu      sync.Mutex
	latest  *dynamics.TurnResult
	history []stats.Snapshot
}

// Publish records a completed turn for the read endpoints. Called from the
// runner's turn sink, so handlers never touch the live entity graph.
func (s *Server) Publish(res dynamics.TurnResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &res
	s.history = append(s.history, res.Stats)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/stats/history", s.handleStatsHistory)
	mux.HandleFunc("/api/v1/groups", s.handleGroups)
	mux.HandleFunc("/api/v1/analysis", s.handleAnalysis)
	mux.HandleFunc("/api/v1/events", s.handleEvents)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/reset", s.adminOnly(s.handleReset))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// adminOnly gates a handler behind the bearer admin key.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled", http.StatusForbidden)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+s.AdminKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	// Simulator state is read under the runner's lock, so no turn is mid
	// flight while we look.
	var converged, stopped bool
	s.Run.Do(func() {
		converged = s.Run.Sim.ConvergenceReached()
		stopped = s.Run.Sim.Stopped()
	})

	resp := map[string]any{
		"run_id":    s.RunID,
		"model":     s.Run.Sim.Model(),
		"turn":      0,
		"converged": converged,
		"stopped":   stopped,
		"running":   s.Run.Running(),
		"speed":     s.Run.Speed(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest != nil {
		resp["turn"] = s.latest.Turn
		resp["total_edges"] = s.latest.Stats.TotalEdges
		resp["pro"] = s.latest.Stats.Pro
		resp["con"] = s.latest.Stats.Con
	}
	writeJSON(w, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		http.Error(w, "no turns completed yet", http.StatusNotFound)
		return
	}
	writeJSON(w, s.latest.Stats)
}

func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 200)

	s.mu.Lock()
	hist := s.history
	if len(hist) > limit {
		hist = hist[len(hist)-limit:]
	}
	out := make([]stats.Snapshot, len(hist))
	copy(out, hist)
	s.mu.Unlock()

	writeJSON(w, out)
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		http.Error(w, "no turns completed yet", http.StatusNotFound)
		return
	}
	writeJSON(w, s.latest.Stats.Groups)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	// The analyzer does its own locking.
	writeJSON(w, s.Analyzer.Analysis())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "persistence disabled", http.StatusNotFound)
		return
	}
	limit := queryInt(r, "limit", 100)
	events, err := s.DB.RecentEvents(s.RunID, limit)
	if err != nil {
		http.Error(w, "query events: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, events)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Speed < 0 || req.Speed > 100 {
		http.Error(w, "speed must be in [0, 100]", http.StatusBadRequest)
		return
	}
	s.Run.SetSpeed(req.Speed)
	slog.Info("speed changed", "speed", req.Speed)
	writeJSON(w, map[string]any{"speed": req.Speed})
}

// handleReset discards simulator and analyzer history. The entity graph is
// kept; a fresh population needs a new process run. The simulator reset
// runs under the runner's lock so it never interleaves with a turn.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.Run.Do(func() {
		s.Run.Sim.Reset()
	})
	s.Analyzer.Reset()

	s.mu.Lock()
	s.latest = nil
	s.history = nil
	s.mu.Unlock()

	slog.Info("simulation reset via API")
	writeJSON(w, map[string]any{"reset": true})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
