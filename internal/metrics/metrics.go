// Package metrics provides Prometheus-based metrics collection for netsweep.
// It tracks scan engine invocations, sweep phase progress, and discovered
// host counts for operational monitoring.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	// Namespace for all netsweep metrics.
	namespace = "netsweep"

	// Subsystems.
	subsystemScan  = "scan"
	subsystemSweep = "sweep"
)

// Metrics holds all Prometheus metric collectors for the sweep pipeline.
type Metrics struct {
	scansTotal      *prometheus.CounterVec
	scanDuration    *prometheus.HistogramVec
	scanErrors      *prometheus.CounterVec
	activeScans     prometheus.Gauge
	hostsDiscovered *prometheus.CounterVec
	reportsQueued   *prometheus.CounterVec
	sweepDuration   prometheus.Histogram

	registry *prometheus.Registry
}

// New creates a new metrics instance with all collectors registered
// against a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		scansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystemScan,
				Name:      "total",
				Help:      "Total number of scan engine invocations by category and status",
			},
			[]string{"category", "status"},
		),
		scanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystemScan,
				Name:      "duration_seconds",
				Help:      "Duration of scan engine invocations in seconds",
				Buckets:   []float64{0.5, 1.0, 5.0, 10.0, 30.0, 60.0, 300.0, 600.0},
			},
			[]string{"category"},
		),
		scanErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystemScan,
				Name:      "errors_total",
				Help:      "Total number of scan errors by category and error type",
			},
			[]string{"category", "error_type"},
		),
		activeScans: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystemScan,
				Name:      "active",
				Help:      "Number of scan engine invocations currently running",
			},
		),
		hostsDiscovered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystemSweep,
				Name:      "hosts_discovered_total",
				Help:      "Total number of hosts discovered by scan category",
			},
			[]string{"category"},
		),
		reportsQueued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystemSweep,
				Name:      "reports_queued_total",
				Help:      "Total number of signed reports handed to the queue",
			},
			[]string{"category"},
		),
		sweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystemSweep,
				Name:      "duration_seconds",
				Help:      "End-to-end duration of complete sweeps in seconds",
				Buckets:   []float64{10, 60, 300, 900, 1800, 3600, 7200},
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.scansTotal,
		m.scanDuration,
		m.scanErrors,
		m.activeScans,
		m.hostsDiscovered,
		m.reportsQueued,
		m.sweepDuration,
	)

	// Standard Go and process collectors for runtime visibility.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// GetRegistry returns the Prometheus registry for exposition.
func (m *Metrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

// IncrementScansTotal increments the scan counter.
func (m *Metrics) IncrementScansTotal(category, status string) {
	m.scansTotal.WithLabelValues(category, status).Inc()
}

// RecordScanDuration records the duration of a scan engine invocation.
func (m *Metrics) RecordScanDuration(category string, duration time.Duration) {
	m.scanDuration.WithLabelValues(category).Observe(duration.Seconds())
}

// IncrementScanErrors increments the scan error counter.
func (m *Metrics) IncrementScanErrors(category, errorType string) {
	m.scanErrors.WithLabelValues(category, errorType).Inc()
}

// ScanStarted marks one more engine invocation in flight.
func (m *Metrics) ScanStarted() {
	m.activeScans.Inc()
}

// ScanFinished marks one engine invocation as no longer in flight.
func (m *Metrics) ScanFinished() {
	m.activeScans.Dec()
}

// AddHostsDiscovered adds to the discovered host counter for a category.
func (m *Metrics) AddHostsDiscovered(category string, count int) {
	m.hostsDiscovered.WithLabelValues(category).Add(float64(count))
}

// IncrementReportsQueued increments the queued report counter.
func (m *Metrics) IncrementReportsQueued(category string) {
	m.reportsQueued.WithLabelValues(category).Inc()
}

// RecordSweepDuration records the duration of a complete sweep.
func (m *Metrics) RecordSweepDuration(duration time.Duration) {
	m.sweepDuration.Observe(duration.Seconds())
}

// Global metrics instance for convenience access.
var (
	globalMetrics *Metrics
	globalOnce    sync.Once
)

// GetGlobalMetrics returns the global metrics instance, creating it on
// first use.
func GetGlobalMetrics() *Metrics {
	globalOnce.Do(func() {
		globalMetrics = New()
	})
	return globalMetrics
}
