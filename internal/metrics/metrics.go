package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/khanhnv2901/seca-scan/internal/domain/finding"
)

// Metrics collects probe and scan statistics. It implements scan.Observer.
type Metrics struct {
	registry *prometheus.Registry

	ProbeRuns       *prometheus.CounterVec
	ProbeDuration   *prometheus.HistogramVec
	FindingsTotal   *prometheus.CounterVec
	ScansTotal      *prometheus.CounterVec
	ScanDuration    prometheus.Histogram
	LastScanSuccess *prometheus.GaugeVec
}

// NewMetrics creates the metric set on its own registry.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.ProbeRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seca_probe_runs_total",
			Help: "Total number of probe runs by probe and completion state",
		},
		[]string{"probe", "state"},
	)

	m.ProbeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seca_probe_duration_seconds",
			Help:    "Duration of probe runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"probe"},
	)

	m.FindingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seca_findings_total",
			Help: "Total number of findings by probe, severity and type",
		},
		[]string{"probe", "severity", "type"},
	)

	m.ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seca_scans_total",
			Help: "Total number of scans by final status",
		},
		[]string{"status"},
	)

	m.ScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seca_scan_duration_seconds",
			Help:    "Duration of whole scans in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	m.LastScanSuccess = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "seca_last_scan_success",
			Help: "Whether the last scan of a target completed (1) or failed (0)",
		},
		[]string{"target"},
	)

	m.registry.MustRegister(
		m.ProbeRuns,
		m.ProbeDuration,
		m.FindingsTotal,
		m.ScansTotal,
		m.ScanDuration,
		m.LastScanSuccess,
	)

	return m
}

// Registry exposes the registry holding the scan metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ProbeFinished records one probe's outcome.
func (m *Metrics) ProbeFinished(_ string, status finding.ProbeStatus, findings []finding.Finding) {
	m.ProbeRuns.WithLabelValues(status.Name, string(status.State)).Inc()
	m.ProbeDuration.WithLabelValues(status.Name).Observe(status.Duration.Seconds())
	for _, f := range findings {
		m.FindingsTotal.WithLabelValues(status.Name, string(f.Severity), string(f.Type)).Inc()
	}
}

// ScanFinished records a completed scan.
func (m *Metrics) ScanFinished(report *finding.ScanReport) {
	if report == nil {
		return
	}
	m.ScansTotal.WithLabelValues(string(report.Status)).Inc()
	m.ScanDuration.Observe(report.Duration.Seconds())
	success := 0.0
	if report.Status == finding.ScanStatusCompleted {
		success = 1
	}
	m.LastScanSuccess.WithLabelValues(report.Target).Set(success)
}

// WriteTextfile writes the current metric values in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
