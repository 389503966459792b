// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the watcher.
type Metrics struct {
	// Ingestion metrics
	TransactionsFetched    prometheus.Counter
	TradesNormalized       prometheus.Counter
	TransactionsSkipped    *prometheus.CounterVec
	IngestCursorAdvances   prometheus.Counter

	// Detection metrics
	WhaleEventsDetected *prometheus.CounterVec
	WindowVolumeUSD     *prometheus.GaugeVec

	// Strategy metrics
	SignalsEmitted     prometheus.Counter
	SignalsSuppressed  *prometheus.CounterVec
	TokenExposureUSD   *prometheus.GaugeVec

	// Execution metrics
	ExecutionsTotal  *prometheus.CounterVec
	VenueFallbacks   *prometheus.CounterVec
	ExecutionLatency prometheus.Histogram

	// Loop metrics
	CycleDuration       prometheus.Histogram
	CyclesTotal         *prometheus.CounterVec
	LastSuccessfulCycle prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_whale_watch"
	}

	return &Metrics{
		TransactionsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "transactions_fetched_total",
			Help:      "Total number of raw transactions fetched from the source",
		}),
		TradesNormalized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "trades_normalized_total",
			Help:      "Total number of transactions normalized into trades",
		}),
		TransactionsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "transactions_skipped_total",
			Help:      "Total number of transactions skipped by reason",
		}, []string{"reason"}),
		IngestCursorAdvances: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "cursor_advances_total",
			Help:      "Total number of successful cursor advances",
		}),

		WhaleEventsDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detect",
			Name:      "whale_events_total",
			Help:      "Total number of whale events by token and severity",
		}, []string{"token", "severity"}),
		WindowVolumeUSD: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "detect",
			Name:      "window_volume_usd",
			Help:      "Current sliding window USD volume per token",
		}, []string{"token"}),

		SignalsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "signals_emitted_total",
			Help:      "Total number of trade signals emitted",
		}),
		SignalsSuppressed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "signals_suppressed_total",
			Help:      "Total number of whale events that produced no signal, by reason",
		}, []string{"reason"}),
		TokenExposureUSD: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "token_exposure_usd",
			Help:      "Current open exposure per token in USD",
		}, []string{"token"}),

		ExecutionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "executions_total",
			Help:      "Total number of executed signals by terminal status",
		}, []string{"status"}),
		VenueFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "venue_fallbacks_total",
			Help:      "Total number of failed venue attempts that caused a fallback",
		}, []string{"venue", "reason"}),
		ExecutionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "latency_seconds",
			Help:      "Signal execution latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "cycle_duration_seconds",
			Help:      "Watch cycle duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		CyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "cycles_total",
			Help:      "Total number of watch cycles by status",
		}, []string{"status"}),
		LastSuccessfulCycle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of the last successful watch cycle",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordFetched adds to the fetched transactions counter.
func RecordFetched(n int) {
	DefaultMetrics.TransactionsFetched.Add(float64(n))
}

// RecordNormalized increments the normalized trades counter.
func RecordNormalized() {
	DefaultMetrics.TradesNormalized.Inc()
}

// RecordSkipped records a skipped transaction by reason.
func RecordSkipped(reason string) {
	DefaultMetrics.TransactionsSkipped.WithLabelValues(reason).Inc()
}

// RecordWhaleEvent records a detected whale event.
func RecordWhaleEvent(token, severity string) {
	DefaultMetrics.WhaleEventsDetected.WithLabelValues(token, severity).Inc()
}

// RecordWindowVolume updates the window volume gauge for a token.
func RecordWindowVolume(token string, usd float64) {
	DefaultMetrics.WindowVolumeUSD.WithLabelValues(token).Set(usd)
}

// RecordSignalEmitted increments the emitted signals counter.
func RecordSignalEmitted() {
	DefaultMetrics.SignalsEmitted.Inc()
}

// RecordSignalSuppressed records a whale event that produced no signal.
func RecordSignalSuppressed(reason string) {
	DefaultMetrics.SignalsSuppressed.WithLabelValues(reason).Inc()
}

// RecordExposure updates the exposure gauge for a token.
func RecordExposure(token string, usd float64) {
	DefaultMetrics.TokenExposureUSD.WithLabelValues(token).Set(usd)
}

// RecordExecution records a terminal execution outcome.
func RecordExecution(status string, seconds float64) {
	DefaultMetrics.ExecutionsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.ExecutionLatency.Observe(seconds)
}

// RecordVenueFallback records a failed venue attempt.
func RecordVenueFallback(venue, reason string) {
	DefaultMetrics.VenueFallbacks.WithLabelValues(venue, reason).Inc()
}

// RecordCycle records one watch cycle.
func RecordCycle(status string, durationSeconds float64) {
	DefaultMetrics.CyclesTotal.WithLabelValues(status).Inc()
	DefaultMetrics.CycleDuration.Observe(durationSeconds)
}
