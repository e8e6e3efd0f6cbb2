package settlement

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricBetsEnqueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vfnode_settlement_bets_enqueued_total",
		Help: "Bets accepted by the settlement ingress.",
	})
	metricFlushTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vfnode_settlement_drain_flush_total",
		Help: "Drainer flushes written to the store.",
	})
	metricFlushErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vfnode_settlement_drain_flush_errors_total",
		Help: "Drainer flushes that failed and were retried.",
	})
	metricDrainDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vfnode_settlement_drain_dropped_total",
		Help: "Bets dropped because the drainer buffer exceeded its cap.",
	})
	metricBatchesSuccessTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vfnode_settlement_batches_success_total",
		Help: "Settlement batches confirmed by the driver.",
	})
	metricBatchesFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vfnode_settlement_batches_failed_total",
		Help: "Settlement batches the driver rejected.",
	})
	metricBetsSettledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vfnode_settlement_bets_settled_total",
		Help: "Bets flipped to their terminal settled state.",
	})
	metricBetsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vfnode_settlement_bets_failed_total",
		Help: "Bets flipped to their terminal failed state.",
	})
	metricBetRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vfnode_settlement_bet_retries_total",
		Help: "Bets re-queued after a failed settlement attempt.",
	})
	metricRetryQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vfnode_settlement_retry_queue_depth",
		Help: "Bets currently waiting in the in-memory retry queue.",
	})
	metricIngressQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vfnode_settlement_ingress_queue_depth",
		Help: "Bets buffered between ingress and the drainer.",
	})
	metricBatchSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vfnode_settlement_batch_duration_seconds",
		Help:    "Wall time of one settlement batch, driver included.",
		Buckets: prometheus.DefBuckets,
	})
)
