package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	observations *prometheus.CounterVec
	anomalies    prometheus.Counter
	decisions    *prometheus.CounterVec
	skips        *prometheus.CounterVec
	outcomes     *prometheus.CounterVec
	profit       prometheus.Counter
	loss         prometheus.Counter
	confidence   prometheus.Gauge
	health       prometheus.Gauge
	mode         *prometheus.GaugeVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		observations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "digitpulse_observations_total",
				Help: "Total ingested tick observations by parity",
			},
			[]string{"parity"},
		),
		anomalies: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "digitpulse_anomalies_total",
				Help: "Total anomalous price jumps flagged",
			},
		),
		decisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "digitpulse_decisions_total",
				Help: "Total committed trade decisions by side",
			},
			[]string{"side"},
		),
		skips: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "digitpulse_skips_total",
				Help: "Total skipped decision cycles by reason",
			},
			[]string{"reason"},
		),
		outcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "digitpulse_outcomes_total",
				Help: "Total resolved trades by result",
			},
			[]string{"result"},
		),
		profit: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "digitpulse_profit_total",
				Help: "Cumulative profit from winning trades",
			},
		),
		loss: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "digitpulse_loss_total",
				Help: "Cumulative loss from losing trades",
			},
		),
		confidence: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "digitpulse_smoothed_confidence",
				Help: "Smoothed decision confidence",
			},
		),
		health: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "digitpulse_engine_health",
				Help: "Engine health score over the recent trade window",
			},
		),
		mode: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "digitpulse_engine_mode",
				Help: "Active operating mode (1 for current, 0 otherwise)",
			},
			[]string{"mode"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "digitpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "digitpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordObservation counts one ingested observation.
func (r *Recorder) RecordObservation(parity string) {
	r.observations.WithLabelValues(parity).Inc()
}

// RecordAnomaly counts one flagged price jump.
func (r *Recorder) RecordAnomaly() {
	r.anomalies.Inc()
}

// RecordDecision counts one committed trade decision.
func (r *Recorder) RecordDecision(side string) {
	r.decisions.WithLabelValues(side).Inc()
}

// RecordSkip counts one skipped decision cycle.
func (r *Recorder) RecordSkip(reason string) {
	r.skips.WithLabelValues(reason).Inc()
}

// RecordOutcome counts a resolved trade and accumulates its P&L.
func (r *Recorder) RecordOutcome(won bool, profit float64) {
	if won {
		r.outcomes.WithLabelValues("won").Inc()
		r.profit.Add(profit)
		return
	}
	r.outcomes.WithLabelValues("lost").Inc()
	if profit < 0 {
		r.loss.Add(-profit)
	}
}

// RecordConfidence sets the smoothed confidence gauge.
func (r *Recorder) RecordConfidence(v float64) {
	r.confidence.Set(v)
}

// RecordHealth sets the engine health gauge.
func (r *Recorder) RecordHealth(v float64) {
	r.health.Set(v)
}

// RecordMode marks the active operating mode.
func (r *Recorder) RecordMode(mode string) {
	for _, m := range []string{"balanced", "precision", "exploration"} {
		v := 0.0
		if m == mode {
			v = 1.0
		}
		r.mode.WithLabelValues(m).Set(v)
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
