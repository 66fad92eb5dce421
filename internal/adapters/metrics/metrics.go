// Package metrics exposes Prometheus instrumentation for the HTTP layer,
// the database wrapper, and the business workflows.
//
// All recording methods are safe on a nil *Metrics so stores and handlers
// can be constructed without instrumentation in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Workflow counters recorded through Inc.
const (
	RegistrationSubmitted = "registration_submitted"
	RegistrationDecided   = "registration_decided"
	LoginFailed           = "login_failed"
	EventSubmitted        = "event_submitted"
	EventDecided          = "event_decided"
	EventCancelled        = "event_cancelled"
	AssignmentCreated     = "assignment_created"
	AssignmentConflict    = "assignment_conflict"
	AssignmentResponded   = "assignment_responded"
	HonorSubmitted        = "honor_submitted"
	HonorDecided          = "honor_decided"
	HonorPaid             = "honor_paid"
	ForumPost             = "forum_post"
	ForumModerated        = "forum_moderated"
	RowsImported          = "rows_imported"
)

// Metrics holds the registry and every collector the service records to.
type Metrics struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry
	runtime   bool

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	queryDuration  *prometheus.HistogramVec
	slowQueries    prometheus.Counter
	workflow       *prometheus.CounterVec
	mailDeliveries *prometheus.CounterVec
	outboxBacklog  prometheus.Gauge
}

// Option configures a Metrics instance.
type Option func(*Metrics)

// WithNamespace sets the metric namespace.
func WithNamespace(ns string) Option {
	return func(m *Metrics) {
		if ns != "" {
			m.namespace = ns
		}
	}
}

// WithHistogramBuckets sets latency buckets in seconds.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Metrics) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// WithRuntimeCollectors adds the Go runtime and process collectors.
func WithRuntimeCollectors() Option {
	return func(m *Metrics) {
		m.runtime = true
	}
}

// New creates a Metrics instance backed by its own registry.
// POST: all collectors are registered; Handler serves them
func New(opts ...Option) *Metrics {
	m := &Metrics{
		namespace: "refdesk",
		buckets:   prometheus.DefBuckets,
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.runtime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	auto := promauto.With(m.registry)
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})
	m.httpDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   m.buckets,
	}, []string{"route", "method"})
	m.queryDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "db",
		Name:      "query_duration_seconds",
		Help:      "Database call latency by operation.",
		Buckets:   m.buckets,
	}, []string{"op"})
	m.slowQueries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "db",
		Name:      "slow_queries_total",
		Help:      "Database calls slower than the configured threshold.",
	})
	m.workflow = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "workflow_events_total",
		Help:      "Business workflow events such as event submissions and assignment conflicts.",
	}, []string{"kind"})
	m.mailDeliveries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "outbox",
		Name:      "deliveries_total",
		Help:      "Outbox delivery attempts by result.",
	}, []string{"result"})
	m.outboxBacklog = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "outbox",
		Name:      "backlog",
		Help:      "Outbox entries still waiting for delivery.",
	})
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// ObserveQuery records one database call.
func (m *Metrics) ObserveQuery(op string, d time.Duration, slow bool) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(op).Observe(d.Seconds())
	if slow {
		m.slowQueries.Inc()
	}
}

// Inc increments a workflow counter.
func (m *Metrics) Inc(kind string) {
	m.Add(kind, 1)
}

// Add adds n to a workflow counter.
func (m *Metrics) Add(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.workflow.WithLabelValues(kind).Add(float64(n))
}

// ObserveDelivery records an outbox delivery attempt.
func (m *Metrics) ObserveDelivery(ok bool) {
	if m == nil {
		return
	}
	result := "sent"
	if !ok {
		result = "failed"
	}
	m.mailDeliveries.WithLabelValues(result).Inc()
}

// SetOutboxBacklog sets the number of undelivered outbox entries.
func (m *Metrics) SetOutboxBacklog(n int) {
	if m == nil {
		return
	}
	m.outboxBacklog.Set(float64(n))
}
