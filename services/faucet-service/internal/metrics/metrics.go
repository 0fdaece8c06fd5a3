package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

type FaucetMetrics struct {
	eventsProcessed *prometheus.CounterVec
	payouts         *prometheus.CounterVec
	payoutAmount    *prometheus.CounterVec
	balance         prometheus.Gauge
	cursor          prometheus.Gauge
	eventDuration   prometheus.Histogram
	workerRestarts  prometheus.Counter
	feedFailures    prometheus.Counter
}

var (
	faucetOnce     sync.Once
	faucetRegistry *FaucetMetrics
)

func Faucet() *FaucetMetrics {
	faucetOnce.Do(func() {
		faucetRegistry = &FaucetMetrics{
			eventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "faucet_events_processed_total",
				Help: "Feed events finalized, by outcome.",
			}, []string{"outcome"}),
			payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "faucet_payouts_total",
				Help: "Successful payouts by reward class.",
			}, []string{"class"}),
			payoutAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "faucet_payout_amount_total",
				Help: "Sum of paid amounts by reward class.",
			}, []string{"class"}),
			balance: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "faucet_balance",
				Help: "Last observed funding source balance.",
			}),
			cursor: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "faucet_feed_cursor",
				Help: "Last processed feed position.",
			}),
			eventDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "faucet_event_duration_seconds",
				Help:    "Time spent processing one feed event.",
				Buckets: prometheus.DefBuckets,
			}),
			workerRestarts: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "faucet_worker_restarts_total",
				Help: "Worker restarts issued by the supervisor.",
			}),
			feedFailures: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "faucet_feed_failures_total",
				Help: "Failed feed fetches or aborted events.",
			}),
		}
		prometheus.MustRegister(
			faucetRegistry.eventsProcessed,
			faucetRegistry.payouts,
			faucetRegistry.payoutAmount,
			faucetRegistry.balance,
			faucetRegistry.cursor,
			faucetRegistry.eventDuration,
			faucetRegistry.workerRestarts,
			faucetRegistry.feedFailures,
		)
	})
	return faucetRegistry
}

func (m *FaucetMetrics) ObserveEvent(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.eventsProcessed.WithLabelValues(outcome).Inc()
	m.eventDuration.Observe(took.Seconds())
}

func (m *FaucetMetrics) ObservePayout(class string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.payouts.WithLabelValues(class).Inc()
	m.payoutAmount.WithLabelValues(class).Add(amount.InexactFloat64())
}

func (m *FaucetMetrics) SetBalance(amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.balance.Set(amount.InexactFloat64())
}

func (m *FaucetMetrics) SetCursor(position uint64) {
	if m == nil {
		return
	}
	m.cursor.Set(float64(position))
}

func (m *FaucetMetrics) IncWorkerRestarts() {
	if m == nil {
		return
	}
	m.workerRestarts.Inc()
}

func (m *FaucetMetrics) IncFeedFailures() {
	if m == nil {
		return
	}
	m.feedFailures.Inc()
}
