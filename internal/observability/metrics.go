// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// All Record methods are safe on a nil receiver.
type Metrics struct {
	// Simulation metrics
	RunsTotal            *prometheus.CounterVec
	DaysProcessed        prometheus.Counter
	InstrumentsEvaluated *prometheus.CounterVec
	OutcomesTotal        *prometheus.CounterVec
	ScalpExits           *prometheus.CounterVec
	CurrentCapital       prometheus.Gauge

	// Latency metrics
	DayDuration prometheus.Histogram
	RunDuration prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Stream metrics
	StreamClients  prometheus.Gauge
	StreamMessages prometheus.Counter

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered on reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "opening_trade_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "runs_total",
			Help:      "Total number of simulation runs by final status",
		}, []string{"status"}),
		DaysProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "days_processed_total",
			Help:      "Total number of trading days processed",
		}),
		InstrumentsEvaluated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "instruments_evaluated_total",
			Help:      "Total number of instrument evaluations by result status",
		}, []string{"status"}),
		OutcomesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "primary_outcomes_total",
			Help:      "Primary scenario outcomes by bucket and first hit",
		}, []string{"bucket", "first_hit"}),
		ScalpExits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "scalp_states_total",
			Help:      "Scalp variant terminal states",
		}, []string{"state"}),
		CurrentCapital: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "capital",
			Help:      "Capital after the most recent equity point",
		}),

		DayDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "day_duration_seconds",
			Help:      "Time to evaluate all instruments of one day",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "run_duration_seconds",
			Help:      "Time to complete a simulation run",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		StreamClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Connected websocket clients",
		}),
		StreamMessages: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "messages_total",
			Help:      "Total number of messages broadcast",
		}),

		LastSuccessfulRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns an HTTP handler serving the given gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordInstrument records one instrument evaluation.
func (m *Metrics) RecordInstrument(status, bucket, firstHit, scalpState string) {
	if m == nil {
		return
	}
	m.InstrumentsEvaluated.WithLabelValues(status).Inc()
	if bucket != "" {
		m.OutcomesTotal.WithLabelValues(bucket, firstHit).Inc()
	}
	if scalpState != "" {
		m.ScalpExits.WithLabelValues(scalpState).Inc()
	}
}

// RecordDay records a processed day.
func (m *Metrics) RecordDay(seconds float64) {
	if m == nil {
		return
	}
	m.DaysProcessed.Inc()
	m.DayDuration.Observe(seconds)
}

// RecordCapital updates the capital gauge.
func (m *Metrics) RecordCapital(capital float64) {
	if m == nil {
		return
	}
	m.CurrentCapital.Set(capital)
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(status string, seconds float64, finishedUnix int64) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(seconds)
	if status == "completed" {
		m.LastSuccessfulRun.Set(float64(finishedUnix))
	}
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// SetStreamClients updates the connected clients gauge.
func (m *Metrics) SetStreamClients(n int) {
	if m == nil {
		return
	}
	m.StreamClients.Set(float64(n))
}

// RecordStreamMessage counts a broadcast message.
func (m *Metrics) RecordStreamMessage() {
	if m == nil {
		return
	}
	m.StreamMessages.Inc()
}
