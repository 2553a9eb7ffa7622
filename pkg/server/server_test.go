package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tailor-hq/loom/pkg/config"
	"tailor-hq/loom/pkg/govern"
	"tailor-hq/loom/pkg/govern/budget"
	"tailor-hq/loom/pkg/govern/quota"
)

func newTestServer(t *testing.T) (*Server, *govern.Governor) {
	t.Helper()

	g, err := govern.New(govern.Config{
		Dependencies: map[string]govern.DependencyConfig{
			"openai": {
				Quota:                quota.Config{PerMinute: 10, Daily: 100},
				EstimatedCostPerCall: 0.05,
			},
			"gmail": {
				Quota: quota.Config{PerMinute: 5, Daily: 50},
			},
		},
		Budget: budget.Config{Ceiling: 10, EnforceHardStop: true},
	})
	if err != nil {
		t.Fatalf("govern.New failed: %v", err)
	}

	srv := NewServer(config.ServerConfig{ListenAddress: "127.0.0.1:0"}, config.TelemetryConfig{}, g)
	return srv, g
}

func doRequest(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Healthz(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}
}

func TestServer_StatsListsAllDependencies(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var stats []govern.Stats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("got %d dependencies, want 2", len(stats))
	}
	for _, st := range stats {
		if st.BreakerState != "closed" {
			t.Errorf("%s breaker state = %q, want closed", st.Dependency, st.BreakerState)
		}
	}
}

func TestServer_DependencyStats(t *testing.T) {
	srv, g := newTestServer(t)

	if _, err := g.Authorize(context.Background(), "openai"); err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/stats/openai")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var st govern.Stats
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if st.UsedThisMinute != 1 {
		t.Errorf("used this minute = %d, want 1", st.UsedThisMinute)
	}
}

func TestServer_DependencyStatsUnknown(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/stats/nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unknown dependency") {
		t.Errorf("body = %q, want unknown dependency error", rec.Body.String())
	}
}

func TestServer_BudgetStatus(t *testing.T) {
	srv, g := newTestServer(t)

	g.Report("openai", govern.Outcome{Success: true, Cost: 1.25})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/budget")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var status BudgetStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if status.Spent != 1.25 {
		t.Errorf("spent = %v, want 1.25", status.Spent)
	}
	if status.Ceiling != 10 {
		t.Errorf("ceiling = %v, want 10", status.Ceiling)
	}
	if status.Breakdown["openai"] != 1.25 {
		t.Errorf("breakdown[openai] = %v, want 1.25", status.Breakdown["openai"])
	}
}

func TestServer_BudgetReset(t *testing.T) {
	srv, g := newTestServer(t)

	g.Report("openai", govern.Outcome{Success: true, Cost: 11})
	if g.Budget().Spent() != 11 {
		t.Fatalf("spent = %v, want 11", g.Budget().Spent())
	}

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/budget/reset")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if g.Budget().Spent() != 0 {
		t.Errorf("spent after reset = %v, want 0", g.Budget().Spent())
	}

	var body map[string]float64
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body["spent_before"] != 11 {
		t.Errorf("spent_before = %v, want 11", body["spent_before"])
	}
}

func TestServer_BudgetResetRejectsGet(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/budget/reset")
	if rec.Code != http.StatusMethodNotAllowed && rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 405 or 404", rec.Code)
	}
}

func TestServer_MetricsRouteGatedByConfig(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/metrics")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 when metrics disabled", rec.Code)
	}

	srv.telemetry.Metrics = config.MetricsConfig{Enabled: true, Path: "/metrics"}
	rec = doRequest(t, srv, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 when metrics enabled", rec.Code)
	}
}

func TestServer_RecoveryMiddleware(t *testing.T) {
	srv, _ := newTestServer(t)

	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	handler := srv.recoveryMiddleware(panicking)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "internal server error") {
		t.Errorf("body = %q, want generic error message", rec.Body.String())
	}
}
