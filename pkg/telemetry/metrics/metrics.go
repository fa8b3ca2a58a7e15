package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"pocketforge/comet/pkg/config"
)

// CacheMetrics tracks cache lifecycle metrics.
//
// Metrics:
//   - comet_cache_files: current number of cached files
//   - comet_cache_remaining_seconds: remaining TTL window
//   - comet_cache_expiries_total: expiry transitions
//   - comet_cache_evictions_total: FIFO evictions
type CacheMetrics struct {
	files     prometheus.Gauge
	remaining prometheus.Gauge
	expiries  prometheus.Counter
	evictions prometheus.Counter
}

// NewCacheMetrics creates and registers cache metrics with the registry.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		files: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_files",
			Help:      "Current number of files in the cache store",
		}),
		remaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_remaining_seconds",
			Help:      "Remaining seconds in the current TTL window",
		}),
		expiries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_expiries_total",
			Help:      "Total cache window expiries",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_evictions_total",
			Help:      "Total FIFO evictions from the cache store",
		}),
	}

	registry.MustRegister(cm.files, cm.remaining, cm.expiries, cm.evictions)
	return cm
}

// SetFiles records the current store size.
func (cm *CacheMetrics) SetFiles(n int) {
	cm.files.Set(float64(n))
}

// SetRemaining records the remaining TTL window.
func (cm *CacheMetrics) SetRemaining(d time.Duration) {
	if d < 0 {
		d = 0
	}
	cm.remaining.Set(d.Seconds())
}

// RecordExpiry counts one expiry transition.
func (cm *CacheMetrics) RecordExpiry() {
	cm.expiries.Inc()
}

// RecordEviction counts one FIFO eviction.
func (cm *CacheMetrics) RecordEviction() {
	cm.evictions.Inc()
}

// CostMetrics tracks cost accounting metrics.
//
// Metrics:
//   - comet_cost_total: total USD cost by model
//   - comet_cost_per_message: per-message cost distribution by model
//   - comet_cache_savings_total: total USD saved by cache reads, by model
type CostMetrics struct {
	costTotal      *prometheus.CounterVec
	costPerMessage *prometheus.HistogramVec
	savingsTotal   *prometheus.CounterVec
}

// NewCostMetrics creates and registers cost metrics with the registry.
func NewCostMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CostMetrics {
	cm := &CostMetrics{
		costTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cost_total",
				Help:      "Total cost in USD by model",
			},
			[]string{"model"},
		),
		costPerMessage: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cost_per_message",
				Help:      "Cost distribution per message in USD",
				// $0.001 to $10 per message
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
			},
			[]string{"model"},
		),
		savingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_savings_total",
				Help:      "Total USD saved by prompt cache reads, by model",
			},
			[]string{"model"},
		),
	}

	registry.MustRegister(cm.costTotal, cm.costPerMessage, cm.savingsTotal)
	return cm
}

// RecordMessageCost records one message's cost and savings.
func (cm *CostMetrics) RecordMessageCost(model string, costUSD, savingsUSD float64) {
	if costUSD > 0 {
		cm.costTotal.WithLabelValues(model).Add(costUSD)
		cm.costPerMessage.WithLabelValues(model).Observe(costUSD)
	}
	if savingsUSD > 0 {
		cm.savingsTotal.WithLabelValues(model).Add(savingsUSD)
	}
}
