// Package metrics holds the Prometheus collectors of an h5view server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a set of collectors registered on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	// Operations counts core operations by name and result
	// ("ok" or an error class such as "read", "expression", "reference").
	Operations *prometheus.CounterVec
	// OperationDuration times core operations by name.
	OperationDuration *prometheus.HistogramVec
	// Validity counts dataset loads by validity mask outcome.
	Validity *prometheus.CounterVec
	// Requests counts HTTP requests by method, route pattern and status code.
	Requests *prometheus.CounterVec
	// RequestDuration times HTTP requests by route pattern.
	RequestDuration *prometheus.HistogramVec
	// Sessions is the number of live sessions.
	Sessions prometheus.Gauge
	// Uploads is the number of stored uploads.
	Uploads prometheus.Gauge
}

// New registers a fresh set of collectors, plus the Go runtime and process
// collectors, on a new registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "h5view_operations_total",
			Help: "Core operations by name and result",
		}, []string{"op", "result"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "h5view_operation_duration_seconds",
			Help:    "Core operation duration",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"op"}),
		Validity: f.NewCounterVec(prometheus.CounterOpts{
			Name: "h5view_validity_mask_total",
			Help: "Dataset loads by validity mask outcome",
		}, []string{"outcome"}),
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "h5view_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "code"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "h5view_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		Sessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "h5view_sessions",
			Help: "Live sessions",
		}),
		Uploads: f.NewGauge(prometheus.GaugeOpts{
			Name: "h5view_uploads",
			Help: "Stored uploads",
		}),
	}
}

// Observe records one finished operation.
func (m *Metrics) Observe(op, result string, start time.Time) {
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	m.Operations.WithLabelValues(op, result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
