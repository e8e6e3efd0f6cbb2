package settlement

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"vfnode/internal/wire"

	"github.com/google/uuid"
)

// Driver turns one batch into a downstream settlement event and returns its
// transaction signature. The loop invokes drivers strictly serially; real
// chain drivers must be drop-in replacements for the mock.
type Driver interface {
	Settle(ctx context.Context, batch *Batch) (string, error)
}

// MockDriver simulates an on-chain settlement: latency grows with batch
// size and a small fraction of attempts fail.
type MockDriver struct {
	FailureRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewMockDriver(failureRate float64) *MockDriver {
	return &MockDriver{
		FailureRate: failureRate,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (d *MockDriver) Settle(ctx context.Context, batch *Batch) (string, error) {
	delay := 50*time.Millisecond + time.Duration(batch.BetCount)*2*time.Millisecond
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(delay):
	}

	d.mu.Lock()
	roll := d.rng.Float64()
	d.mu.Unlock()
	if roll < d.FailureRate {
		return "", wire.InvalidInput("mock settlement timeout")
	}
	return "mock_settlement_" + strings.ReplaceAll(uuid.NewString(), "-", ""), nil
}
