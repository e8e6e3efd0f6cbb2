package settlement

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"vfnode/internal/store"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
)

var (
	flushEntropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	flushEntropyMu sync.Mutex
)

// newFlushID mints a sortable id correlating the log lines of one flush
// attempt, including the retries after a failed one.
func newFlushID() string {
	flushEntropyMu.Lock()
	defer flushEntropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), flushEntropy).String()
}

// runDrainer moves bets from the ingress queue into the store. It flushes
// when the buffer reaches FlushSize or FlushInterval has elapsed with rows
// pending, and keeps the buffer on a failed flush so nothing is lost on a
// transient store error.
func (e *Engine) runDrainer(ctx context.Context) {
	buf := make([]store.PendingBet, 0, e.cfg.FlushSize)
	lastFlush := time.Now()

	for {
		select {
		case <-ctx.Done():
			e.finalFlush(buf)
			return
		default:
		}

		buf = append(buf, e.ingress.drain()...)
		metricIngressQueueDepth.Set(float64(e.ingress.len()))

		if len(buf) >= e.cfg.FlushSize || (len(buf) > 0 && time.Since(lastFlush) > e.cfg.FlushInterval) {
			flushID := newFlushID()
			if err := e.flush(ctx, flushID, buf); err != nil {
				log.Error().Err(err).Str("flush_id", flushID).Int("buffered", len(buf)).Msg("drainer flush failed")
				metricFlushErrorsTotal.Inc()
				buf = e.capBuffer(buf)
			} else {
				buf = buf[:0]
			}
			lastFlush = time.Now()
		}

		time.Sleep(e.cfg.IdleSleep)
	}
}

func (e *Engine) flush(ctx context.Context, flushID string, bets []store.PendingBet) error {
	start := time.Now()
	if err := e.store.InsertPendingBets(ctx, bets); err != nil {
		return err
	}
	metricFlushTotal.Inc()
	log.Debug().
		Str("flush_id", flushID).
		Int("rows", len(bets)).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("drainer flushed bets")
	return nil
}

// finalFlush writes whatever is still buffered or queued during shutdown,
// on a detached context so the write outlives the cancelled one.
func (e *Engine) finalFlush(buf []store.PendingBet) {
	buf = append(buf, e.ingress.drain()...)
	if len(buf) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	flushID := newFlushID()
	if err := e.flush(ctx, flushID, buf); err != nil {
		log.Error().Err(err).Str("flush_id", flushID).Int("lost", len(buf)).Msg("final drainer flush failed")
		return
	}
	log.Info().Str("flush_id", flushID).Int("rows", len(buf)).Msg("final drainer flush complete")
}

// capBuffer bounds the retained buffer after a failed flush, dropping the
// oldest rows once MaxBuffered is exceeded.
func (e *Engine) capBuffer(buf []store.PendingBet) []store.PendingBet {
	if len(buf) <= e.cfg.MaxBuffered {
		return buf
	}
	drop := len(buf) - e.cfg.MaxBuffered
	metricDrainDroppedTotal.Add(float64(drop))
	log.Warn().Int("dropped", drop).Msg("drainer buffer over cap, dropping oldest bets")
	kept := make([]store.PendingBet, e.cfg.MaxBuffered)
	copy(kept, buf[drop:])
	return kept
}
