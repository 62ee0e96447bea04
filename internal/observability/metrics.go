package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorCount      *prometheus.CounterVec
	classifications *prometheus.CounterVec
	fieldFallbacks  *prometheus.CounterVec
	ticketsTotal    prometheus.Gauge
	ticketsOpen     prometheus.Gauge
}

// NewMetrics registers collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP error responses by route, method and error code.",
		}, []string{"route", "method", "code"}),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_classifications_total",
			Help: "Classification attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		fieldFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_classification_field_fallbacks_total",
			Help: "Model answers replaced by the field default because they were outside the vocabulary.",
		}, []string{"provider", "field"}),
		ticketsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tickets_total",
			Help: "Tickets in the store at the last stats snapshot.",
		}),
		ticketsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tickets_open",
			Help: "Open tickets at the last stats snapshot.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestCount,
		m.requestDuration,
		m.errorCount,
		m.classifications,
		m.fieldFallbacks,
		m.ticketsTotal,
		m.ticketsOpen,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(route, method, code).Inc()
}

// RecordClassification counts one classification attempt.
func (m *Metrics) RecordClassification(provider, outcome string) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(provider, outcome).Inc()
}

// RecordFieldFallback counts a single field replaced by its default.
func (m *Metrics) RecordFieldFallback(provider, field string) {
	if m == nil {
		return
	}
	m.fieldFallbacks.WithLabelValues(provider, field).Inc()
}

// SetTicketTotals records the latest stats snapshot.
func (m *Metrics) SetTicketTotals(total, open int64) {
	if m == nil {
		return
	}
	m.ticketsTotal.Set(float64(total))
	m.ticketsOpen.Set(float64(open))
}
