// Package worker drains record batches from the ingest queue into storage.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/adapters/mq/queue"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/model"
	"github.com/notactuallytreyanastasio/phstats-sub000/pkg/logger"
	"github.com/notactuallytreyanastasio/phstats-sub000/pkg/metrics"
)

// Default worker configuration constants.
const (
	metricsUpdateInterval = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Writer persists a batch of raw rows.
type Writer interface {
	Insert(ctx context.Context, rows []model.RawRecord) (int, error)
}

// Queue defines how workers receive batches.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Batch
}

// Worker writes batches using the provided interfaces.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is drained.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current batch.
	Shutdown(ctx context.Context) error
}

// Stats counts the work done by a worker or pool.
type Stats struct {
	Batches int64
	Rows    int64
	Failed  int64
}

type counters struct {
	batches atomic.Int64
	rows    atomic.Int64
	failed  atomic.Int64

	mu   sync.Mutex
	errs []error
}

func (c *counters) fail(err error) {
	c.failed.Add(1)
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.mu.Unlock()
}

func (c *counters) stats() Stats {
	return Stats{
		Batches: c.batches.Load(),
		Rows:    c.rows.Load(),
		Failed:  c.failed.Load(),
	}
}

func (c *counters) err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return errors.Join(c.errs...)
}

// InMemoryWorker implements Worker for one writer goroutine.
type InMemoryWorker struct {
	queue  Queue
	writer Writer
	name   string
	counts *counters

	// Shutdown control
	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, writer Writer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		writer:   writer,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}
	if w.counts == nil {
		w.counts = &counters{}
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	batches := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case b, ok := <-batches:
			if !ok {
				return
			}
			if err := w.processBatch(ctx, b); err != nil {
				w.logger.Error(ctx, "error writing batch", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker after its current batch.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Stats reports the work done by this worker.
func (w *InMemoryWorker) Stats() Stats { return w.counts.stats() }

func (w *InMemoryWorker) processBatch(ctx context.Context, b queue.Batch) error {
	start := time.Now()

	n, err := w.writer.Insert(ctx, b.Rows)
	if err != nil {
		err = fmt.Errorf("write batch %d: %w", b.Seq, err)
		w.counts.fail(err)
		metrics.RecordIngestWriteError()
		metrics.RecordErrorByComponent("worker", "write_error")
		metrics.RecordErrorLatency("worker", "write_error", float64(time.Since(start).Microseconds())/1000)
		return err
	}

	w.counts.batches.Add(1)
	w.counts.rows.Add(int64(n))
	metrics.RecordIngestBatchWritten(float64(time.Since(start).Microseconds()) / 1000)
	w.logger.Debug(ctx, "batch written",
		logger.Int("seq", b.Seq),
		logger.Int("rows", n),
	)
	return nil
}

// Pool manages multiple workers sharing one queue and writer.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	counts  *counters

	// Shutdown control
	shutdown     chan struct{}
	shutdownOnce sync.Once

	lastRows int64
	lastTick time.Time

	logger logger.Logger
}

// NewPool creates a new worker pool. A non-positive workerCount uses one
// worker per CPU.
func NewPool(workerCount int, queue Queue, writer Writer) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		counts:   &counters{},
		shutdown: make(chan struct{}),
		lastTick: time.Now(),
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			writer,
			WithName("worker-"+strconv.Itoa(i)),
			withCounters(pool.counts),
		)
	}

	metrics.UpdateIngestActiveWriters(0)
	metrics.UpdateIngestRowsPerSecond(0)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateIngestActiveWriters(len(p.workers))

	go p.startMetricsUpdater(ctx)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.updateMetrics()
		}
	}
}

func (p *Pool) updateMetrics() {
	now := time.Now()
	rows := p.counts.rows.Load()
	if elapsed := now.Sub(p.lastTick).Seconds(); elapsed > 0 {
		metrics.UpdateIngestRowsPerSecond(float64(rows-p.lastRows) / elapsed)
	}
	p.lastRows = rows
	p.lastTick = now
}

// Stats reports the work done by all workers so far.
func (p *Pool) Stats() Stats { return p.counts.stats() }

// Shutdown closes the queue, lets the workers drain what is left and
// returns every write error joined together.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut error
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			timedOut = fmt.Errorf("worker %d: %w", i, shutdownCtx.Err())
		}
	}

	p.shutdownOnce.Do(func() { close(p.shutdown) })
	p.updateMetrics()
	metrics.UpdateIngestActiveWriters(0)

	return errors.Join(p.counts.err(), timedOut)
}
