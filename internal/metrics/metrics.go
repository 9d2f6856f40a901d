// Package metrics exposes print counters and latencies for Prometheus
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one process. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	prints       *prometheus.CounterVec
	jobs         *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
	bytesWritten *prometheus.CounterVec
}

// New creates and registers the collectors on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		prints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thermalprint",
			Name:      "client_prints_total",
			Help:      "Receipts printed through a transport driver.",
		}, []string{"driver", "result"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thermalprint",
			Name:      "print_jobs_total",
			Help:      "Print endpoint jobs by printer type and outcome.",
		}, []string{"printer_type", "result"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "thermalprint",
			Name:      "print_job_duration_seconds",
			Help:      "Time from connect to close for print endpoint jobs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"printer_type"}),
		bytesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thermalprint",
			Name:      "bytes_written_total",
			Help:      "ESC/POS bytes written to printers.",
		}, []string{"printer_type"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.prints,
		m.jobs,
		m.jobDuration,
		m.bytesWritten,
	)
	return m
}

// ObservePrint counts a client-side print attempt
func (m *Metrics) ObservePrint(driver string, err error) {
	if m == nil {
		return
	}
	m.prints.WithLabelValues(driver, result(err)).Inc()
}

// ObserveJob records a print endpoint job. reason is empty on success.
func (m *Metrics) ObserveJob(printerType, reason string, elapsed time.Duration, bytes int) {
	if m == nil {
		return
	}
	outcome := "success"
	if reason != "" {
		outcome = reason
	}
	m.jobs.WithLabelValues(printerType, outcome).Inc()
	m.jobDuration.WithLabelValues(printerType).Observe(elapsed.Seconds())
	if bytes > 0 {
		m.bytesWritten.WithLabelValues(printerType).Add(float64(bytes))
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
