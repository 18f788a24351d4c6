package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signalsTotal    *prometheus.CounterVec
	ordersSubmitted *prometheus.CounterVec
	fillsProcessed  *prometheus.CounterVec
	realizedPnl     prometheus.Gauge
	lastPrice       *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autotrade_signals_total",
				Help: "Total number of signals by terminal outcome",
			},
			[]string{"outcome"},
		),
		ordersSubmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autotrade_orders_submitted_total",
				Help: "Total number of orders submitted to the broker",
			},
			[]string{"ticker", "action"},
		),
		fillsProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autotrade_fills_processed_total",
				Help: "Total number of fill events processed",
			},
			[]string{"ticker"},
		),
		realizedPnl: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "autotrade_daily_realized_pnl",
				Help: "Realized P&L for the current local calendar day",
			},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "autotrade_last_price",
				Help: "Last observed market price for a ticker",
			},
			[]string{"ticker"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autotrade_operation_duration_seconds",
				Help:    "Duration of pipeline operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSignal records a terminal signal outcome (received, rejected, placed, error).
func (r *Recorder) RecordSignal(outcome string) {
	r.signalsTotal.WithLabelValues(outcome).Inc()
}

// RecordOrderSubmitted records an order handed to the broker.
func (r *Recorder) RecordOrderSubmitted(ticker, action string) {
	r.ordersSubmitted.WithLabelValues(ticker, action).Inc()
}

// RecordFill records a processed fill event.
func (r *Recorder) RecordFill(ticker string) {
	r.fillsProcessed.WithLabelValues(ticker).Inc()
}

// RecordRealizedPnl records today's realized P&L.
func (r *Recorder) RecordRealizedPnl(v float64) {
	r.realizedPnl.Set(v)
}

// RecordLastPrice records the last price for a ticker.
func (r *Recorder) RecordLastPrice(ticker string, price float64) {
	r.lastPrice.WithLabelValues(ticker).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
