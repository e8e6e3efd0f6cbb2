package settlement

import (
	"sync"

	"vfnode/internal/store"
)

// ingressQueue is the unbounded FIFO between request handlers and the
// drainer. push is O(1) and never blocks on I/O; many producers, one
// consumer.
type ingressQueue struct {
	mu     sync.Mutex
	items  []store.PendingBet
	closed bool
}

func (q *ingressQueue) push(bet store.PendingBet) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, bet)
	return true
}

// drain hands the whole backlog to the caller and resets the queue.
func (q *ingressQueue) drain() []store.PendingBet {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

func (q *ingressQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *ingressQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// retryQueue holds bets whose settlement attempt failed transiently. FIFO,
// shared between the loop (pop) and the failure path (push).
type retryQueue struct {
	mu    sync.Mutex
	items []store.PendingBet
}

func (q *retryQueue) push(bets ...store.PendingBet) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, bets...)
}

// pushFront returns bets to the head of the queue, preserving their order.
func (q *retryQueue) pushFront(bets ...store.PendingBet) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(append([]store.PendingBet{}, bets...), q.items...)
}

func (q *retryQueue) popN(n int) []store.PendingBet {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n <= 0 || len(q.items) == 0 {
		return nil
	}
	if n > len(q.items) {
		n = len(q.items)
	}
	out := make([]store.PendingBet, n)
	copy(out, q.items[:n])
	q.items = append([]store.PendingBet{}, q.items[n:]...)
	return out
}

func (q *retryQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
