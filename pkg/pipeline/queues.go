package pipeline

import (
	"sync"
	"sync/atomic"
)

// FastTokenQueueCapacity bounds the STT→Fast-Brain channel (spec.md §5):
// "bounded, capacity 64 tokens, drop-oldest-on-full to preserve recency".
const FastTokenQueueCapacity = 64

// FastTokenQueue is a single-producer/single-consumer bounded channel with
// drop-oldest overflow. Plain Go channels have no native drop-oldest
// semantics, so SendDropOldest implements it explicitly with a non-blocking
// receive-then-send pair.
type FastTokenQueue struct {
	ch       chan TextToken
	overflow atomic.Uint64
}

func NewFastTokenQueue() *FastTokenQueue {
	return &FastTokenQueue{ch: make(chan TextToken, FastTokenQueueCapacity)}
}

// SendDropOldest never blocks. If the queue is full it discards the oldest
// queued token before enqueuing tok, so the newest token always wins.
func (q *FastTokenQueue) SendDropOldest(tok TextToken) {
	select {
	case q.ch <- tok:
		return
	default:
	}
	q.overflow.Add(1)
	select {
	case <-q.ch:
	default:
	}
	select {
	case q.ch <- tok:
	default:
		// lost a race with another drain; acceptable, recency is still
		// preserved by the next send.
	}
}

// Overflow reports the cumulative number of tokens dropped for being sent
// into a full queue.
func (q *FastTokenQueue) Overflow() uint64 {
	return q.overflow.Load()
}

func (q *FastTokenQueue) Chan() <-chan TextToken {
	return q.ch
}

// SlowTokenQueue is the unbounded STT→Slow-Brain queue (spec.md §5:
// "unbounded ... bounded only by reset/truncation at call-site"). Go has no
// native unbounded channel, so this is a mutex-guarded growable slice with
// a single-slot wake signal, mirroring the teacher's own drain-under-lock
// pattern for ManagedStream.audioBuf.
type SlowTokenQueue struct {
	mu     sync.Mutex
	tokens []TextToken
	notify chan struct{}
}

func NewSlowTokenQueue() *SlowTokenQueue {
	return &SlowTokenQueue{notify: make(chan struct{}, 1)}
}

func (q *SlowTokenQueue) Push(tok TextToken) {
	q.mu.Lock()
	q.tokens = append(q.tokens, tok)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Drain removes and returns every queued token.
func (q *SlowTokenQueue) Drain() []TextToken {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tokens) == 0 {
		return nil
	}
	out := q.tokens
	q.tokens = nil
	return out
}

// Notify returns a channel that receives a signal whenever a token is
// pushed, letting the consumer that feeds the Slow Brain wake promptly
// without busy-polling.
func (q *SlowTokenQueue) Notify() <-chan struct{} {
	return q.notify
}
