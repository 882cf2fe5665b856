package player

import (
	"context"
	"sync"
	"sync/atomic"
)

// FrameQueue is a bounded single-producer/single-consumer FIFO of handles.
// Push never blocks: when the queue is full the new handle is dropped.
// Close marks end of stream; consumers see it once the queue drains.
type FrameQueue struct {
	ch chan Handle

	closeOnce sync.Once
	closed    atomic.Bool

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// NewFrameQueue creates a queue holding at most capacity handles
func NewFrameQueue(capacity int) *FrameQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &FrameQueue{ch: make(chan Handle, capacity)}
}

// Push enqueues h, dropping it if the queue is full or closed.
// Returns true if h was enqueued.
func (q *FrameQueue) Push(h Handle) bool {
	if q.closed.Load() {
		q.dropped.Add(1)
		return false
	}
	select {
	case q.ch <- h:
		q.sent.Add(1)
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Close signals end of stream. Only the producer may call it.
func (q *FrameQueue) Close() {
	q.closeOnce.Do(func() {
		q.closed.Store(true)
		close(q.ch)
	})
}

// Pop waits for the next handle. ok is false once the queue is closed and drained
// or ctx is done.
func (q *FrameQueue) Pop(ctx context.Context) (h Handle, ok bool) {
	select {
	case h, ok = <-q.ch:
		return h, ok
	case <-ctx.Done():
		return Handle{}, false
	}
}

// TryPop returns the next handle if one is ready. eos is true once the queue is
// closed and drained.
func (q *FrameQueue) TryPop() (h Handle, ok bool, eos bool) {
	select {
	case h, ok = <-q.ch:
		if !ok {
			return Handle{}, false, true
		}
		return h, true, false
	default:
		return Handle{}, false, false
	}
}

// Len returns the number of queued handles
func (q *FrameQueue) Len() int {
	return len(q.ch)
}

// Cap returns the queue bound
func (q *FrameQueue) Cap() int {
	return cap(q.ch)
}

// Sent returns how many handles were enqueued
func (q *FrameQueue) Sent() uint64 {
	return q.sent.Load()
}

// Dropped returns how many handles were discarded
func (q *FrameQueue) Dropped() uint64 {
	return q.dropped.Load()
}
