package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("/api/profile", "GET", 200, 15*time.Millisecond)
	m.ObserveRequest("/api/profile", "GET", 200, 5*time.Millisecond)
	m.ObserveRequest("/api/profile", "GET", 401, time.Millisecond)

	if got := testutil.ToFloat64(m.requests.WithLabelValues("/api/profile", "GET", "200")); got != 2 {
		t.Fatalf("expected 2 ok requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("/api/profile", "GET", "401")); got != 1 {
		t.Fatalf("expected 1 unauthorized request, got %v", got)
	}
}

func TestObserveEvaluation(t *testing.T) {
	m := New()
	m.ObserveEvaluation("v2", "report", 60)
	m.ObserveSearch("memory")

	if got := testutil.ToFloat64(m.evaluations.WithLabelValues("v2", "report")); got != 1 {
		t.Fatalf("expected 1 evaluation, got %v", got)
	}
	if got := testutil.ToFloat64(m.searches.WithLabelValues("memory")); got != 1 {
		t.Fatalf("expected 1 search, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("/", "GET", 200, time.Millisecond)
	m.ObserveEvaluation("v2", "report", 10)
	m.ObserveSearch("memory")
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveEvaluation("v2", "mandatory", 100)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"onboarding_completion_evaluations_total", "onboarding_mandatory_completion_percent_bucket", "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %s in metrics output", want)
		}
	}
}
