// Package metrics exports Prometheus counters for OASIS fetch activity.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes used as the "outcome" label.
const (
	OutcomeSuccess = "success"
	OutcomeNoData  = "no_data"
	OutcomeArchive = "bad_archive"
	OutcomeInvalid = "invalid_rows"
	OutcomeError   = "error"
)

// Metrics holds the scraper's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	FetchAttempts *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	Windows       *prometheus.CounterVec
	PointsWritten prometheus.Counter
	Runs          *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		FetchAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lmp_fetch_attempts_total",
			Help: "OASIS window fetch attempts by market and outcome",
		}, []string{"market", "outcome"}),
		FetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lmp_fetch_duration_seconds",
			Help:    "Time to fetch and decode one OASIS window",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"market"}),
		Windows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lmp_windows_total",
			Help: "Query windows that reached a terminal state",
		}, []string{"market", "state"}),
		PointsWritten: f.NewCounter(prometheus.CounterOpts{
			Name: "lmp_points_written_total",
			Help: "Price points written to output files",
		}),
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lmp_runs_total",
			Help: "Range runs by market",
		}, []string{"market"}),
	}
}

func (m *Metrics) ObserveFetch(market, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchAttempts.WithLabelValues(market, outcome).Inc()
	m.FetchDuration.WithLabelValues(market).Observe(d.Seconds())
}

func (m *Metrics) WindowDone(market, state string) {
	if m == nil {
		return
	}
	m.Windows.WithLabelValues(market, state).Inc()
}

func (m *Metrics) PointsPersisted(n int) {
	if m == nil {
		return
	}
	m.PointsWritten.Add(float64(n))
}

func (m *Metrics) RunStarted(market string) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(market).Inc()
}

// Handler serves the registry for a /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
