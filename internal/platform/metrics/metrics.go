// Package metrics exposes Prometheus counters for the deposit protocol.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	depositsInitiated  prometheus.Counter
	depositsSettled    prometheus.Counter
	depositsExpired    prometheus.Counter
	depositsCancelled  prometheus.Counter
	precheckRejections *prometheus.CounterVec
	settlementFailures *prometheus.CounterVec
	starsCredited      prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		depositsInitiated: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "stars_deposit",
				Subsystem: "protocol",
				Name:      "deposits_initiated_total",
				Help:      "Total deposit intents created by the web frontend.",
			},
		),
		depositsSettled: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "stars_deposit",
				Subsystem: "protocol",
				Name:      "deposits_settled_total",
				Help:      "Total deposits settled and credited to the ledger.",
			},
		),
		depositsExpired: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "stars_deposit",
				Subsystem: "protocol",
				Name:      "deposits_expired_total",
				Help:      "Total pending deposits flipped to expired by the sweeper or cancellation.",
			},
		),
		depositsCancelled: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "stars_deposit",
				Subsystem: "protocol",
				Name:      "deposits_cancelled_total",
				Help:      "Total pending deposits cancelled explicitly by their user.",
			},
		),
		precheckRejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stars_deposit",
				Subsystem: "protocol",
				Name:      "precheck_rejections_total",
				Help:      "Total pre-checkout queries rejected, partitioned by reason.",
			},
			[]string{"reason"},
		),
		settlementFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stars_deposit",
				Subsystem: "protocol",
				Name:      "settlement_failures_total",
				Help:      "Total settlement attempts that did not credit, partitioned by reason.",
			},
			[]string{"reason"},
		),
		starsCredited: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "stars_deposit",
				Subsystem: "protocol",
				Name:      "stars_credited_total",
				Help:      "Total Stars credited to user balances through settlement.",
			},
		),
	}
}

// All methods tolerate a nil receiver so components can run without a
// collector wired in.

func (m *Metrics) DepositInitiated() {
	if m == nil {
		return
	}
	m.depositsInitiated.Inc()
}

func (m *Metrics) DepositCancelled() {
	if m == nil {
		return
	}
	m.depositsCancelled.Inc()
}

func (m *Metrics) DepositSettled(amount int64) {
	if m == nil {
		return
	}
	m.depositsSettled.Inc()
	m.starsCredited.Add(float64(amount))
}

func (m *Metrics) DepositsExpired(count int64) {
	if m == nil {
		return
	}
	m.depositsExpired.Add(float64(count))
}

func (m *Metrics) PrecheckRejected(reason string) {
	if m == nil {
		return
	}
	m.precheckRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) SettlementFailed(reason string) {
	if m == nil {
		return
	}
	m.settlementFailures.WithLabelValues(reason).Inc()
}
