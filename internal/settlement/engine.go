package settlement

import (
	"context"
	"sync"
	"time"

	"vfnode/internal/store"
	"vfnode/internal/wire"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	defaultBatchSize     = 50
	defaultInterval      = 10 * time.Second
	defaultMaxRetries    = 3
	defaultFlushSize     = 100
	defaultFlushInterval = 10 * time.Millisecond
	defaultIdleSleep     = 1 * time.Millisecond
	defaultMaxBuffered   = 10000
	defaultStatsInterval = 30 * time.Second
)

// Config tunes the pipeline. Zero values take the production defaults; tests
// shrink the intervals to keep runtime low.
type Config struct {
	BatchSize  int
	Interval   time.Duration
	MaxRetries int

	FlushSize     int
	FlushInterval time.Duration
	IdleSleep     time.Duration
	MaxBuffered   int
	StatsInterval time.Duration
}

// Engine owns the whole settlement side of the node: the ingress queue the
// handlers push into, the drainer persisting bets, the periodic loop driving
// batches through the Driver, and the retry queue between failed attempts.
type Engine struct {
	cfg    Config
	store  *store.Store
	driver Driver

	ingress *ingressQueue
	retryQ  *retryQueue
	stats   *statsRecorder

	mu      sync.Mutex
	started bool
	wg      sync.WaitGroup
}

func New(st *store.Store, driver Driver, cfg Config) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.FlushSize <= 0 {
		cfg.FlushSize = defaultFlushSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	if cfg.IdleSleep <= 0 {
		cfg.IdleSleep = defaultIdleSleep
	}
	if cfg.MaxBuffered <= 0 {
		cfg.MaxBuffered = defaultMaxBuffered
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = defaultStatsInterval
	}
	return &Engine{
		cfg:     cfg,
		store:   st,
		driver:  driver,
		ingress: &ingressQueue{},
		retryQ:  &retryQueue{},
		stats:   &statsRecorder{},
	}
}

// Start spawns the drainer, the settlement loop, and the stats logger. The
// goroutines wind down when ctx is cancelled; Wait blocks until they have.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true

	e.wg.Add(3)
	go func() {
		defer e.wg.Done()
		e.runDrainer(ctx)
	}()
	go func() {
		defer e.wg.Done()
		e.runLoop(ctx)
	}()
	go func() {
		defer e.wg.Done()
		e.runStatsLogger(ctx)
	}()
	go func() {
		<-ctx.Done()
		e.ingress.close()
	}()
}

// Wait blocks until every pipeline goroutine has exited.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Enqueue hands one processed coinflip to the pipeline. It never touches the
// store on the request path; the only failure mode is a closed ingress.
func (e *Engine) Enqueue(resp *wire.CoinflipResponse, req *wire.CoinflipRequest) error {
	bet := store.PendingBet{
		BetID:            uuid.NewString(),
		UserSeed:         req.UserSeed,
		Timestamp:        req.Timestamp,
		NodeID:           resp.NodeID,
		Heads:            resp.Heads,
		VrfProof:         resp.Proof.Signature,
		ProcessingTimeMS: resp.ProcessingTimeMS,
		ProcessedAt:      time.Now().UTC(),
		Status:           store.StatusPending,
	}
	if !e.ingress.push(bet) {
		return wire.InvalidInput("settlement channel closed")
	}
	metricBetsEnqueuedTotal.Inc()
	metricIngressQueueDepth.Set(float64(e.ingress.len()))
	log.Debug().Str("bet_id", bet.BetID).Msg("bet enqueued for settlement")
	return nil
}

// Stats returns a point-in-time copy of the pipeline counters.
func (e *Engine) Stats() Stats {
	return e.stats.snapshot(e.retryQ.len(), e.ingress.len())
}

func (e *Engine) runStatsLogger(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.StatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := e.Stats()
			log.Info().
				Uint64("total_bets", s.TotalBetsProcessed).
				Uint64("total_batches", s.TotalBatchesProcessed).
				Uint64("failed_batches", s.FailedBatches).
				Float64("avg_batch_size", s.AverageBatchSize).
				Int("retry_queue", s.RetryQueueSize).
				Int("ingress_queue", s.ChannelQueueSize).
				Msg("settlement stats")
		}
	}
}
