package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestMetrics_Recording tests that recorders update their collectors.
func TestMetrics_Recording(t *testing.T) {
	m := New(WithNamespace("test"))

	m.ObserveRequest("GET /api/events", "GET", 200, 15*time.Millisecond)
	m.ObserveRequest("GET /api/events", "GET", 200, 5*time.Millisecond)
	m.ObserveQuery("QueryContext", time.Millisecond, true)
	m.Inc(AssignmentConflict)
	m.Add(RowsImported, 3)
	m.Add(RowsImported, 0)
	m.ObserveDelivery(false)
	m.SetOutboxBacklog(4)

	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET /api/events", "GET", "200")); got != 2 {
		t.Errorf("requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.slowQueries); got != 1 {
		t.Errorf("slow queries = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.workflow.WithLabelValues(RowsImported)); got != 3 {
		t.Errorf("rows imported = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.mailDeliveries.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed deliveries = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.outboxBacklog); got != 4 {
		t.Errorf("backlog = %v, want 4", got)
	}
}

// TestMetrics_Handler tests the exposition endpoint.
func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Inc(EventSubmitted)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(string(body), `refdesk_workflow_events_total{kind="event_submitted"} 1`) {
		t.Errorf("missing workflow counter in:\n%s", body)
	}
}

// TestMetrics_NilSafe tests that a nil receiver is a no-op.
func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("x", "GET", 200, time.Second)
	m.ObserveQuery("x", time.Second, true)
	m.Inc(EventSubmitted)
	m.ObserveDelivery(true)
	m.SetOutboxBacklog(1)
	if m.Registry() != nil {
		t.Error("nil metrics should have nil registry")
	}
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
