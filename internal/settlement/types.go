package settlement

import (
	"time"

	"vfnode/internal/store"
)

// Batch is the ephemeral unit handed to the settlement driver: an ordered
// set of pending bets under one fresh batch id.
type Batch struct {
	BatchID   string             `json:"batch_id"`
	Bets      []store.PendingBet `json:"bets"`
	BetCount  int                `json:"bet_count"`
	CreatedAt time.Time          `json:"created_at"`
}

// Stats is the read-mostly counter record served on /settlement/stats.
// Averages are cumulative means over the whole process lifetime.
type Stats struct {
	TotalBetsProcessed      uint64     `json:"total_bets_processed"`
	TotalBatchesProcessed   uint64     `json:"total_batches_processed"`
	SuccessfulBatches       uint64     `json:"successful_batches"`
	FailedBatches           uint64     `json:"failed_batches"`
	AverageBatchSize        float64    `json:"average_batch_size"`
	AverageProcessingTimeMS float64    `json:"average_processing_time_ms"`
	LastSettlementTime      *time.Time `json:"last_settlement_time"`
	CurrentQueueSize        int        `json:"current_queue_size"`
	RetryQueueSize          int        `json:"retry_queue_size"`
	ChannelQueueSize        int        `json:"channel_queue_size"`
}
