package settlement

import (
	"context"
	"time"

	"vfnode/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// runLoop is the periodic settlement worker. It first re-queues bets that
// survived a crash mid-retry, then settles one batch per tick, strictly
// serially.
func (e *Engine) runLoop(ctx context.Context) {
	log.Info().
		Dur("interval", e.cfg.Interval).
		Int("batch_size", e.cfg.BatchSize).
		Int("max_retries", e.cfg.MaxRetries).
		Msg("settlement loop starting")

	e.recoverRetries(ctx)

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("settlement loop stopped")
			return
		case <-ticker.C:
			if err := e.processBatch(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("settlement batch failed to persist")
			}
		}
	}
}

// recoverRetries reloads pending bets that already had settlement attempts
// when the process last died and puts them back in the retry queue.
func (e *Engine) recoverRetries(ctx context.Context) {
	bets, err := e.store.ListRetrySurvivors(ctx)
	if err != nil {
		log.Error().Err(err).Msg("retry recovery query failed")
		return
	}
	if len(bets) == 0 {
		return
	}
	e.retryQ.push(bets...)
	metricRetryQueueDepth.Set(float64(e.retryQ.len()))
	log.Info().Int("recovered", len(bets)).Msg("re-queued in-flight retries from store")
}

// processBatch settles at most one batch: retry-queue bets first, topped up
// from the store, deduplicated by bet id.
func (e *Engine) processBatch(ctx context.Context) error {
	start := time.Now()
	bets, err := e.collectBatch(ctx)
	if err != nil {
		return err
	}
	if len(bets) == 0 {
		return nil
	}

	batch := &Batch{
		BatchID:   uuid.NewString(),
		Bets:      bets,
		BetCount:  len(bets),
		CreatedAt: time.Now().UTC(),
	}
	heads := 0
	for _, b := range bets {
		if b.Heads {
			heads++
		}
	}
	log.Info().
		Str("batch_id", batch.BatchID).
		Int("bets", batch.BetCount).
		Int("heads", heads).
		Int("tails", batch.BetCount-heads).
		Msg("settling batch")

	sig, settleErr := e.driver.Settle(ctx, batch)
	elapsed := time.Since(start)
	metricBatchSeconds.Observe(elapsed.Seconds())

	if settleErr != nil {
		e.handleBatchFailure(ctx, batch, settleErr)
		e.stats.recordFailure()
		metricBatchesFailedTotal.Inc()
		metricRetryQueueDepth.Set(float64(e.retryQ.len()))
		return nil
	}

	result := store.BatchResult{
		BatchID:          batch.BatchID,
		BetCount:         batch.BetCount,
		ProcessingTimeMS: uint64(elapsed.Milliseconds()),
		TxSignature:      sig,
		Success:          true,
		CreatedAt:        time.Now().UTC(),
	}
	if err := e.store.MarkBatchSettled(ctx, bets, result); err != nil {
		// Rows stay pending and will be collected again next tick; the
		// driver-side settlement is idempotent per bet id downstream.
		return err
	}
	e.stats.recordSuccess(batch.BetCount, float64(result.ProcessingTimeMS), result.CreatedAt)
	metricBatchesSuccessTotal.Inc()
	metricBetsSettledTotal.Add(float64(batch.BetCount))
	metricRetryQueueDepth.Set(float64(e.retryQ.len()))
	log.Info().
		Str("batch_id", batch.BatchID).
		Str("tx_signature", sig).
		Int64("elapsed_ms", elapsed.Milliseconds()).
		Msg("batch settled")
	return nil
}

// collectBatch assembles up to BatchSize bets, retry queue first. Retry-queue
// rows are still status=pending in the store, so the top-up query can return
// them again; the seen set keeps each bet in the batch once.
func (e *Engine) collectBatch(ctx context.Context) ([]store.PendingBet, error) {
	batch := e.retryQ.popN(e.cfg.BatchSize)
	metricRetryQueueDepth.Set(float64(e.retryQ.len()))
	if len(batch) >= e.cfg.BatchSize {
		return batch, nil
	}

	seen := make(map[string]struct{}, len(batch))
	for _, b := range batch {
		seen[b.BetID] = struct{}{}
	}

	rows, err := e.store.ListPendingBets(ctx, e.cfg.BatchSize)
	if err != nil {
		e.retryQ.pushFront(batch...)
		metricRetryQueueDepth.Set(float64(e.retryQ.len()))
		return nil, err
	}
	for _, r := range rows {
		if len(batch) >= e.cfg.BatchSize {
			break
		}
		if _, dup := seen[r.BetID]; dup {
			continue
		}
		batch = append(batch, r)
	}
	return batch, nil
}

// handleBatchFailure splits the batch into bets that get another attempt and
// bets that exhausted their retries, persists both outcomes, and re-queues
// the former.
func (e *Engine) handleBatchFailure(ctx context.Context, batch *Batch, settleErr error) {
	now := time.Now().UTC()
	var retryable, exhausted []store.PendingBet
	for _, b := range batch.Bets {
		b.RetryCount++
		if b.RetryCount <= e.cfg.MaxRetries {
			retryable = append(retryable, b)
		} else {
			exhausted = append(exhausted, b)
		}
	}

	if err := e.store.FinalizeFailedBatch(ctx, retryable, exhausted, settleErr.Error(), now); err != nil {
		// Retry counts stay stale in the store; the in-memory queue still
		// carries the incremented copies, so attempts are not lost.
		log.Error().Err(err).Str("batch_id", batch.BatchID).Msg("failed batch not persisted")
	}

	if len(retryable) > 0 {
		e.retryQ.push(retryable...)
		metricBetRetriesTotal.Add(float64(len(retryable)))
		log.Warn().
			Str("batch_id", batch.BatchID).
			Err(settleErr).
			Int("retrying", len(retryable)).
			Msg("batch failed, bets re-queued")
	}
	if len(exhausted) > 0 {
		metricBetsFailedTotal.Add(float64(len(exhausted)))
		log.Error().
			Str("batch_id", batch.BatchID).
			Err(settleErr).
			Int("abandoned", len(exhausted)).
			Msg("bets exhausted retry budget")
	}
}
