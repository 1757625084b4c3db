// Package metrics holds the Prometheus collectors exported by the scanner.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Combination outcomes recorded per scanned leg combination.
const (
	OutcomeEmpty     = "empty"
	OutcomeStale     = "stale"
	OutcomeDuplicate = "duplicate"
	OutcomeFiltered  = "filtered"
	OutcomeMatched   = "matched"
)

// ScanMetrics holds the scan collectors. A nil *ScanMetrics records nothing.
type ScanMetrics struct {
	registry *prometheus.Registry

	Combinations *prometheus.CounterVec
	Duration     *prometheus.HistogramVec
	Matches      *prometheus.GaugeVec
	Failures     *prometheus.CounterVec
}

// NewScanMetrics creates the collectors on a dedicated registry.
func NewScanMetrics() *ScanMetrics {
	m := &ScanMetrics{
		registry: prometheus.NewRegistry(),

		Combinations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spreadscan_combinations_total",
				Help: "Leg combinations evaluated by scan and outcome",
			},
			[]string{"scan", "outcome"},
		),

		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spreadscan_scan_duration_seconds",
				Help:    "Wall time of a complete scan in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"scan"},
		),

		Matches: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "spreadscan_scan_matches",
				Help: "Matches returned by the most recent run of a scan",
			},
			[]string{"scan"},
		),

		Failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spreadscan_scan_failures_total",
				Help: "Scans that ended with an error",
			},
			[]string{"scan"},
		),
	}

	m.registry.MustRegister(m.Combinations, m.Duration, m.Matches, m.Failures)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *ScanMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *ScanMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Combination counts one evaluated combination.
func (m *ScanMetrics) Combination(scan, outcome string) {
	if m == nil {
		return
	}
	m.Combinations.WithLabelValues(scan, outcome).Inc()
}

// ScanFinished records the duration and match count of a completed scan.
func (m *ScanMetrics) ScanFinished(scan string, elapsed time.Duration, matches int) {
	if m == nil {
		return
	}
	m.Duration.WithLabelValues(scan).Observe(elapsed.Seconds())
	m.Matches.WithLabelValues(scan).Set(float64(matches))
}

// ScanFailed counts a scan that returned an error.
func (m *ScanMetrics) ScanFailed(scan string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(scan).Inc()
}
