package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type mockMetricsStore struct {
	assessments map[string]int64
	scenarios   int64
	processes   int64
	calls       int
}

func (m *mockMetricsStore) CountAssessmentsByStatus(_ context.Context) (map[string]int64, error) {
	m.calls++
	return m.assessments, nil
}

func (m *mockMetricsStore) CountRiskScenarios(_ context.Context) (int64, error) {
	return m.scenarios, nil
}

func (m *mockMetricsStore) CountProcesses(_ context.Context) (int64, error) {
	return m.processes, nil
}

func (m *mockMetricsStore) Health() map[string]any {
	return map[string]any{"total_conns": int32(5), "acquired_conns": int32(1), "idle_conns": int32(4)}
}

func TestMetricsHandlerExposition(t *testing.T) {
	store := &mockMetricsStore{
		assessments: map[string]int64{"pending": 2, "closed": 7},
		scenarios:   13,
		processes:   4,
	}

	handler := Handler(store, zerolog.Nop())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		`stratum_assessments_total{status="pending"} 2`,
		`stratum_assessments_total{status="closed"} 7`,
		`stratum_risk_scenarios_total 13`,
		`stratum_processes_total 4`,
		`stratum_db_connections{state="total_conns"} 5`,
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestCollectorCachesBetweenScrapes(t *testing.T) {
	store := &mockMetricsStore{assessments: map[string]int64{"pending": 1}}
	handler := Handler(store, zerolog.Nop())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	if store.calls != 1 {
		t.Errorf("expected 1 store query across cached scrapes, got %d", store.calls)
	}
}
