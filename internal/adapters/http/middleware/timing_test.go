package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"refdesk/internal/adapters/metrics"
)

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

// TestTiming_RecordsRoute verifies that the matched route labels the request.
func TestTiming_RecordsRoute(t *testing.T) {
	m := metrics.New()
	handler := Timing(m, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetRoute(r, "POST /api/events")
		w.WriteHeader(http.StatusCreated)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/api/events", nil))

	want := `refdesk_http_requests_total{code="201",method="POST",route="POST /api/events"} 1`
	if body := scrape(t, m); !strings.Contains(body, want) {
		t.Errorf("missing %s in:\n%s", want, body)
	}
}

// TestTiming_UnmatchedRoute verifies that unrouted paths share one label.
func TestTiming_UnmatchedRoute(t *testing.T) {
	m := metrics.New()
	handler := Timing(m, 0)(http.NotFoundHandler())

	for _, path := range []string{"/a", "/b", "/c"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
	}

	want := `refdesk_http_requests_total{code="404",method="GET",route="unmatched"} 3`
	if body := scrape(t, m); !strings.Contains(body, want) {
		t.Errorf("missing %s in:\n%s", want, body)
	}
}

// TestTiming_NilMetrics verifies middleware works without instrumentation.
func TestTiming_NilMetrics(t *testing.T) {
	handler := Timing(nil, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/test", nil))
	if rr.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rr.Code)
	}
}

// TestTiming_HandlerPanic verifies that the deferred recording still runs
// when the handler panics.
func TestTiming_HandlerPanic(t *testing.T) {
	m := metrics.New()
	handler := Timing(m, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic to propagate, got nil")
		}
		want := `refdesk_http_requests_total{code="200",method="GET",route="unmatched"} 1`
		if body := scrape(t, m); !strings.Contains(body, want) {
			t.Errorf("missing %s after panic", want)
		}
	}()

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/panic", nil))
}

// TestTiming_DefaultStatus verifies status defaults to 200 when the handler
// writes a body without calling WriteHeader.
func TestTiming_DefaultStatus(t *testing.T) {
	m := metrics.New()
	handler := Timing(m, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/implicit", nil))

	if body := scrape(t, m); !strings.Contains(body, `code="200"`) {
		t.Errorf("expected a 200 sample in:\n%s", body)
	}
}
