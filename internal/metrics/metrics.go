// Package metrics exposes Prometheus collectors for fetches, scans and
// backtests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder records stockscope metrics. A nil Recorder discards everything.
type Recorder struct {
	fetchTotal           *prometheus.CounterVec
	fetchDuration        prometheus.Histogram
	scanDuration         prometheus.Histogram
	opportunitiesTotal   *prometheus.CounterVec
	backtestTradesTotal  *prometheus.CounterVec
	predictionConfidence prometheus.Histogram
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		fetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockscope_fetch_total",
				Help: "Market-data fetches by provider and status",
			},
			[]string{"provider", "status"},
		),
		fetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stockscope_fetch_duration_seconds",
				Help:    "Duration of single-symbol market-data fetches",
				Buckets: prometheus.DefBuckets,
			},
		),
		scanDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stockscope_scan_duration_seconds",
				Help:    "Duration of opportunity scans excluding fetches",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		opportunitiesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockscope_opportunities_total",
				Help: "Ranked opportunities by type",
			},
			[]string{"type"},
		),
		backtestTradesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockscope_backtest_trades_total",
				Help: "Simulated backtest trades by outcome",
			},
			[]string{"outcome"},
		),
		predictionConfidence: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stockscope_prediction_confidence",
				Help:    "Confidence of issued predictions",
				Buckets: prometheus.LinearBuckets(10, 10, 9),
			},
		),
	}
}

// RecordFetch records one fetch attempt
func (r *Recorder) RecordFetch(provider string, ok bool, d time.Duration) {
	if r == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	r.fetchTotal.WithLabelValues(provider, status).Inc()
	r.fetchDuration.Observe(d.Seconds())
}

// RecordScan records a completed scan and its ranked opportunity types
func (r *Recorder) RecordScan(d time.Duration, types []string) {
	if r == nil {
		return
	}
	r.scanDuration.Observe(d.Seconds())
	for _, t := range types {
		r.opportunitiesTotal.WithLabelValues(t).Inc()
	}
}

// RecordTrade records a simulated trade outcome
func (r *Recorder) RecordTrade(outcome string) {
	if r == nil {
		return
	}
	r.backtestTradesTotal.WithLabelValues(outcome).Inc()
}

// RecordPrediction records the confidence of a prediction
func (r *Recorder) RecordPrediction(confidence float64) {
	if r == nil {
		return
	}
	r.predictionConfidence.Observe(confidence)
}
