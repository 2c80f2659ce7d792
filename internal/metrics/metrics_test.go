package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/temirov/repoctx/internal/types"
)

func counterValue(t *testing.T, metrics *Metrics, name string, labelValue string) float64 {
	t.Helper()
	families, err := metrics.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if labelMatches(metric, labelValue) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelMatches(metric *dto.Metric, value string) bool {
	for _, label := range metric.GetLabel() {
		if label.GetValue() == value {
			return true
		}
	}
	return false
}

func TestObserveFetch(t *testing.T) {
	metrics := New()
	metrics.ObserveFetch(types.FetchStatusFetched)
	metrics.ObserveFetch(types.FetchStatusFetched)
	metrics.ObserveFetch(types.FetchStatusFailed)

	if value := counterValue(t, metrics, "repoctx_fetch_outcomes_total", "fetched"); value != 2 {
		t.Fatalf("expected 2 fetched, got %v", value)
	}
	if value := counterValue(t, metrics, "repoctx_fetch_outcomes_total", "failed"); value != 1 {
		t.Fatalf("expected 1 failed, got %v", value)
	}
}

func TestObserveRunAndHandler(t *testing.T) {
	metrics := New()
	metrics.ObserveRun(ResultSuccess, 120*time.Millisecond)
	metrics.ObserveRun(ResultNotFound, 10*time.Millisecond)

	if value := counterValue(t, metrics, "repoctx_pipeline_runs_total", ResultNotFound); value != 1 {
		t.Fatalf("expected 1 not_found run, got %v", value)
	}

	server := httptest.NewServer(metrics.Handler())
	defer server.Close()
	response, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer response.Body.Close()
	body, _ := io.ReadAll(response.Body)
	for _, expected := range []string{
		`repoctx_pipeline_runs_total{result="success"} 1`,
		"repoctx_pipeline_duration_seconds_count 2",
	} {
		if !strings.Contains(string(body), expected) {
			t.Fatalf("expected %q in exposition:\n%s", expected, body)
		}
	}
}

func TestIndependentRegistries(t *testing.T) {
	first := New()
	second := New()
	first.ObserveFetch(types.FetchStatusTooLarge)
	if value := counterValue(t, second, "repoctx_fetch_outcomes_total", "too_large"); value != 0 {
		t.Fatalf("expected isolated registries, got %v", value)
	}
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveFetch(types.FetchStatusFetched)
	metrics.ObserveRun(ResultSuccess, time.Second)
}
