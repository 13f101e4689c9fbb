package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the counters exported by the payout pipeline.
type Metrics struct {
	TransfersDispatched prometheus.Counter
	TransfersSucceeded  prometheus.Counter
	TransfersRetried    prometheus.Counter
	TransfersFailed     prometheus.Counter
	SettlementRuns      prometheus.Counter
	SettlementSkips     prometheus.Counter
	FeedReconnects      prometheus.Counter
}

// New registers the payout counters on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the counters on an explicit registerer; tests pass
// a fresh registry to avoid duplicate-registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TransfersDispatched: factory.NewCounter(prometheus.CounterOpts{
			Name: "payout_transfers_dispatched_total",
			Help: "Fund transfers handed to the provider.",
		}),
		TransfersSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Name: "payout_transfers_succeeded_total",
			Help: "Fund transfers settled successfully.",
		}),
		TransfersRetried: factory.NewCounter(prometheus.CounterOpts{
			Name: "payout_transfers_retried_total",
			Help: "Transfer attempts requeued after a provider fault.",
		}),
		TransfersFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "payout_transfers_failed_total",
			Help: "Transfers terminally failed after exhausting retries.",
		}),
		SettlementRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "payout_settlement_runs_total",
			Help: "Settlement cycles that dispatched a batch.",
		}),
		SettlementSkips: factory.NewCounter(prometheus.CounterOpts{
			Name: "payout_settlement_skips_total",
			Help: "Settlement cycles skipped below the minimum aggregate.",
		}),
		FeedReconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "payout_feed_reconnects_total",
			Help: "Change feed reconnect attempts after channel errors.",
		}),
	}
}
