// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the bot.
type Metrics struct {
	// Cycle metrics
	CyclesTotal   *prometheus.CounterVec
	CycleDuration prometheus.Histogram

	// Swap metrics
	SwapAttempts  prometheus.Counter
	SwapSuccesses prometheus.Counter
	SwapFailures  *prometheus.CounterVec

	// Balance and price gauges
	SolBalance   prometheus.Gauge
	TokenBalance prometheus.Gauge
	SolPriceUsd  prometheus.Gauge

	// Volume counters
	VolumeBase prometheus.Counter
	VolumeUsd  prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "volume_bot"
	}

	return &Metrics{
		CyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "cycles_total",
			Help:      "Total number of trade cycles by direction and result",
		}, []string{"direction", "result"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "cycle_duration_seconds",
			Help:      "Trade cycle duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}),

		SwapAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "swap_attempts_total",
			Help:      "Total number of swap attempts",
		}),
		SwapSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "swap_successes_total",
			Help:      "Total number of successful swaps",
		}),
		SwapFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "swap_failures_total",
			Help:      "Total number of failed swaps by pipeline stage",
		}, []string{"stage"}),

		SolBalance: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "sol_balance",
			Help:      "Last observed native balance in SOL",
		}),
		TokenBalance: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "token_balance",
			Help:      "Last observed target token balance in whole tokens",
		}),
		SolPriceUsd: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "sol_price_usd",
			Help:      "Last observed SOL/USD price",
		}),

		VolumeBase: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "volume_base_total",
			Help:      "Cumulative traded volume in base-asset units",
		}),
		VolumeUsd: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "volume_usd_total",
			Help:      "Cumulative traded volume in USD",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
