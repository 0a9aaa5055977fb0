// Package queue holds record batches between a producer and the ingest
// writers. The in-memory implementation is a bounded buffered channel.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/model"
	"github.com/notactuallytreyanastasio/phstats-sub000/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 64
	defaultBufferSize    = 64
)

// Batch is a group of raw rows written together.
type Batch struct {
	Seq  int
	Rows []model.RawRecord
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a batch to the queue.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, b Batch) bool

	// Put adds a batch, waiting for space until ctx is done.
	Put(ctx context.Context, b Batch) error

	// Dequeue returns a channel that will receive batches as they become available.
	// The channel will be closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Batch

	// Len returns the current number of queued batches.
	Len(ctx context.Context) int

	// Close stops accepting batches. Queued batches remain readable.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	batches    chan Batch
	capacity   int
	bufferSize int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultQueueCapacity,
		bufferSize: defaultBufferSize,
	}

	for _, opt := range opts {
		opt(q)
	}
	if q.bufferSize < q.capacity {
		q.bufferSize = q.capacity
	}

	q.batches = make(chan Batch, q.bufferSize)

	metrics.UpdateIngestQueueCapacity(q.capacity)
	metrics.UpdateIngestQueueSize(0)

	return q
}

// Enqueue adds a batch to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, b Batch) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordIngestEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}
	if len(q.batches) >= q.capacity {
		metrics.RecordIngestEnqueueError()
		metrics.RecordErrorByComponent("queue", "capacity_exceeded")
		return false
	}

	select {
	case q.batches <- b:
		metrics.RecordIngestEnqueue()
		metrics.UpdateIngestQueueSize(len(q.batches))
		return true
	case <-ctx.Done():
		metrics.RecordIngestEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordIngestEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Put adds a batch, retrying until space frees up or ctx is done.
func (q *InMemoryQueue) Put(ctx context.Context, b Batch) error {
	const retryDelay = time.Millisecond
	for {
		if q.IsClosed() {
			return ErrClosed
		}
		if q.Enqueue(ctx, b) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("put batch %d: %w", b.Seq, ctx.Err())
		case <-time.After(retryDelay):
		}
	}
}

// Dequeue returns a channel that will receive batches as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Batch {
	out := make(chan Batch)
	go func() {
		defer close(out)
		for b := range q.batches {
			select {
			case out <- b:
				metrics.UpdateIngestQueueSize(len(q.batches))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued batches.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.batches)
	metrics.UpdateIngestQueueSize(size)
	return size
}

// Close stops accepting batches.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.batches)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
