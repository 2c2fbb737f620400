package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/echochamber/internal/analysis"
	"github.com/talgya/echochamber/internal/config"
	"github.com/talgya/echochamber/internal/dynamics"
	"github.com/talgya/echochamber/internal/entropy"
	"github.com/talgya/echochamber/internal/graph"
	"github.com/talgya/echochamber/internal/runner"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.People = 20
	cfg.Groups = 2

	src := entropy.NewSource(cfg.Seed)
	pop, err := graph.Build(cfg, src)
	require.NoError(t, err)
	sim, err := dynamics.NewSimulator(pop, cfg, src)
	require.NoError(t, err)

	return &Server{
		Run:      runner.New(sim, 0),
		Analyzer: analysis.New(cfg),
		AdminKey: "sekrit",
	}
}

func TestStatusBeforeAndAfterPublish(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.EqualValues(t, 0, status["turn"])

	res := s.Run.Sim.TakeTurn()
	s.Publish(res)

	rec = httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.EqualValues(t, 1, status["turn"])
}

func TestStatsRequiresCompletedTurn(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.handleStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.Publish(s.Run.Sim.TakeTurn())
	rec = httptest.NewRecorder()
	s.handleStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminAuth(t *testing.T) {
	s := testServer(t)
	handler := s.adminOnly(s.handleSpeed)

	// GET rejected outright.
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/speed", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	// Missing token.
	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/api/v1/speed", strings.NewReader(`{"speed":2}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/speed", strings.NewReader(`{"speed":2}`))
	req.Header.Set("Authorization", "Bearer sekrit")
	rec = httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, s.Run.Speed())

	// Empty key disables admin endpoints entirely.
	s.AdminKey = ""
	req = httptest.NewRequest(http.MethodPost, "/api/v1/speed", strings.NewReader(`{"speed":1}`))
	req.Header.Set("Authorization", "Bearer sekrit")
	rec = httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// Admin endpoints fire while the turn loop is running. Resets must be
// serialized with TakeTurn so simulator history is never truncated under a
// turn in flight; run with -race to catch regressions.
func TestAdminEndpointsSafeDuringRun(t *testing.T) {
	s := testServer(t)
	s.Run.OnTurn = s.Publish

	done := make(chan struct{})
	go func() {
		s.Run.Run()
		close(done)
	}()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/reset", nil)
				req.Header.Set("Authorization", "Bearer sekrit")
				s.adminOnly(s.handleReset)(httptest.NewRecorder(), req)

				s.handleStatus(httptest.NewRecorder(),
					httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
				s.handleAnalysis(httptest.NewRecorder(),
					httptest.NewRequest(http.MethodGet, "/api/v1/analysis", nil))
			}
		}()
	}
	wg.Wait()

	s.Run.Stop()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("runner did not stop")
	}
	assert.Empty(t, s.Run.Sim.Population().Validate())
}

func TestCORSMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := corsMiddleware(inner)

	// Allowed localhost dev origin gets the headers.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	// Unknown origins get nothing.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	// Preflight short-circuits.
	req = httptest.NewRequest(http.MethodOptions, "/api/v1/status", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestResetClearsPublishedState(t *testing.T) {
	s := testServer(t)
	s.Publish(s.Run.Sim.TakeTurn())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reset", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	rec := httptest.NewRecorder()
	s.adminOnly(s.handleReset)(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Zero(t, s.Run.Sim.Turn())
	rec = httptest.NewRecorder()
	s.handleStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
