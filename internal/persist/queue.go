package persist

import "sync"

// effectQueue is a thread-safe unbounded FIFO of effects.
//
// Producers (the session, the debouncer's timer goroutine) enqueue from any
// goroutine; the Dispatcher's Run loop is the only consumer. The buffered
// signal channel lets Run wait with a context instead of blocking forever.
type effectQueue struct {
	mu      sync.Mutex
	effects []Effect
	closed  bool
	signal  chan struct{} // buffered, size 1
}

func newEffectQueue() *effectQueue {
	return &effectQueue{
		effects: make([]Effect, 0, 16),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue appends effects in order. Returns false if the queue is closed.
func (q *effectQueue) Enqueue(effs ...Effect) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.effects = append(q.effects, effs...)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front effect without blocking.
func (q *effectQueue) TryDequeue() (Effect, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.effects) == 0 {
		return Effect{}, false
	}
	e := q.effects[0]
	// Clear the slot so node payloads can be collected.
	q.effects[0] = Effect{}
	if len(q.effects) == 1 {
		q.effects = q.effects[:0]
	} else {
		q.effects = q.effects[1:]
	}
	return e, true
}

// Drain removes and returns everything still queued.
func (q *effectQueue) Drain() []Effect {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.effects
	q.effects = nil
	return out
}

// Len returns the number of queued effects.
func (q *effectQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.effects)
}

// Wait returns the signal channel. It receives when effects arrive and is
// closed when the queue closes.
func (q *effectQueue) Wait() <-chan struct{} {
	return q.signal
}

// Close rejects further enqueues. Already queued effects can still be taken.
func (q *effectQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
