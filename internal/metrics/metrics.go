// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "autoservice"

// Snapshot write outcomes
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds every instrument on its own registry, so tests can build as many as they like
type Metrics struct {
	registry *prometheus.Registry

	SnapshotWrites   *prometheus.CounterVec
	ReceiptsRendered *prometheus.CounterVec
	ArchiveFailures  prometheus.Counter
	CheckoutTotal    prometheus.Counter
	RequestDuration  *prometheus.HistogramVec
}

// New creates and registers the instruments
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		SnapshotWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipt_snapshot_writes_total",
			Help:      "Receipt snapshot persistence attempts by sale source and result.",
		}, []string{"source", "result"}),
		ReceiptsRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipts_rendered_total",
			Help:      "Printable receipts rendered by output format.",
		}, []string{"format"}),
		ArchiveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipt_archive_failures_total",
			Help:      "Rendered receipts that could not be archived.",
		}),
		CheckoutTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Completed checkouts.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SnapshotWrites,
		m.ReceiptsRendered,
		m.ArchiveFailures,
		m.CheckoutTotal,
		m.RequestDuration,
	)

	return m
}

// ObserveSnapshotWrite counts one snapshot persistence attempt
func (m *Metrics) ObserveSnapshotWrite(source string, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.SnapshotWrites.WithLabelValues(source, result).Inc()
}

// ObserveRender counts one rendered receipt
func (m *Metrics) ObserveRender(format string) {
	if m == nil {
		return
	}
	m.ReceiptsRendered.WithLabelValues(format).Inc()
}

// ObserveArchiveFailure counts one failed archive write
func (m *Metrics) ObserveArchiveFailure() {
	if m == nil {
		return
	}
	m.ArchiveFailures.Inc()
}

// ObserveCheckout counts one completed checkout
func (m *Metrics) ObserveCheckout() {
	if m == nil {
		return
	}
	m.CheckoutTotal.Inc()
}

// ObserveRequest records the latency of one HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// RegisterDB exposes connection pool statistics for db under the given name
func (m *Metrics) RegisterDB(db *sql.DB, name string) error {
	if m == nil || db == nil {
		return nil
	}
	return m.registry.Register(collectors.NewDBStatsCollector(db, name))
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
