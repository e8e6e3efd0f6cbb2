package settlement

import (
	"sync"
	"time"
)

// statsRecorder keeps the lifetime counters behind an RWMutex. Writers are
// the loop goroutine only; readers are the stats endpoint and log loop.
type statsRecorder struct {
	mu sync.RWMutex
	s  Stats
}

// recordSuccess folds one confirmed batch into the cumulative means. Bets
// only count toward the totals when their batch succeeded.
func (r *statsRecorder) recordSuccess(betCount int, processingMS float64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.s.TotalBetsProcessed += uint64(betCount)
	r.s.TotalBatchesProcessed++
	r.s.SuccessfulBatches++
	settledAt := at
	r.s.LastSettlementTime = &settledAt

	r.s.AverageBatchSize = float64(r.s.TotalBetsProcessed) / float64(r.s.TotalBatchesProcessed)
	n := float64(r.s.TotalBatchesProcessed)
	r.s.AverageProcessingTimeMS = (r.s.AverageProcessingTimeMS*(n-1) + processingMS) / n
}

func (r *statsRecorder) recordFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.s.TotalBatchesProcessed++
	r.s.FailedBatches++
}

// snapshot copies the counters and stamps in the live queue depths.
func (r *statsRecorder) snapshot(retryDepth, ingressDepth int) Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.s
	if s.LastSettlementTime != nil {
		t := *s.LastSettlementTime
		s.LastSettlementTime = &t
	}
	s.RetryQueueSize = retryDepth
	s.ChannelQueueSize = ingressDepth
	s.CurrentQueueSize = ingressDepth
	return s
}
