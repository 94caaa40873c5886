// Package queue buffers accepted votes between the HTTP handlers and the
// workers that write them to the vote store.
package queue

import (
	"context"
	"sync"

	"github.com/okian/duel/internal/domain/model"
	"github.com/okian/duel/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Vote is the payload flowing through the queue.
type Vote = model.Vote

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a vote. It returns false when the queue is full, closed,
	// or ctx is done.
	Enqueue(ctx context.Context, v Vote) bool

	// Dequeue returns a channel that receives votes until the queue is
	// closed and drained, or ctx is done.
	Dequeue(ctx context.Context) <-chan Vote

	// Len returns the number of queued votes.
	Len(ctx context.Context) int

	// Close stops accepting votes. Already queued votes are still delivered.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	votes    chan Vote
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.votes = make(chan Vote, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue implements Queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, v Vote) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return false
	}

	select {
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError("context_cancelled")
		return false
	default:
	}

	select {
	case q.votes <- v:
		metrics.UpdateQueueSize(len(q.votes))
		return true
	default:
		metrics.RecordQueueEnqueueError("full")
		return false
	}
}

// Dequeue implements Queue.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Vote {
	out := make(chan Vote)
	go func() {
		defer close(out)
		for v := range q.votes {
			select {
			case out <- v:
				metrics.UpdateQueueSize(len(q.votes))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len implements Queue.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.votes)
	metrics.UpdateQueueSize(size)
	return size
}

// Close implements Queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.votes)
	q.closed = true
	return nil
}

// IsClosed implements Queue.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
