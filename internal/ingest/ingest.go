// Package ingest writes raw performance rows to storage in batches, through
// a bounded queue drained by a pool of writers.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/adapters/mq/queue"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/adapters/mq/worker"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/model"
	"github.com/notactuallytreyanastasio/phstats-sub000/pkg/logger"
)

// Default ingest configuration constants.
const (
	defaultBatchSize     = 500
	defaultWriters       = 2
	defaultQueueCapacity = 8
)

type config struct {
	batchSize     int
	writers       int
	queueCapacity int
	logger        logger.Logger
}

// Option applies a configuration option to an ingest run.
type Option func(*config)

// WithBatchSize sets the number of rows per batch.
func WithBatchSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithWriters sets the number of concurrent writers.
func WithWriters(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.writers = n
		}
	}
}

// WithQueueCapacity sets how many batches may wait for a writer.
func WithQueueCapacity(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.queueCapacity = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// Result summarizes an ingest run.
type Result struct {
	Batches int64         `json:"batches"`
	Rows    int64         `json:"rows"`
	Failed  int64         `json:"failed_batches"`
	Took    time.Duration `json:"took"`
}

// Run writes rows through w. Write errors do not stop the run; they are
// counted and returned joined once every batch has been attempted.
func Run(ctx context.Context, rows []model.RawRecord, w worker.Writer, opts ...Option) (Result, error) {
	cfg := config{
		batchSize:     defaultBatchSize,
		writers:       defaultWriters,
		queueCapacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("ingest")
	}

	start := time.Now()
	q := queue.NewInMemoryQueue(queue.WithCapacity(cfg.queueCapacity))
	pool := worker.NewPool(cfg.writers, q, w)
	pool.Start(ctx)

	var putErr error
	seq := 0
	for lo := 0; lo < len(rows); lo += cfg.batchSize {
		hi := min(lo+cfg.batchSize, len(rows))
		if putErr = q.Put(ctx, queue.Batch{Seq: seq, Rows: rows[lo:hi]}); putErr != nil {
			break
		}
		seq++
	}

	// Shutdown drains what was queued even when producing stopped early.
	writeErr := pool.Shutdown(context.WithoutCancel(ctx))
	st := pool.Stats()
	res := Result{
		Batches: st.Batches,
		Rows:    st.Rows,
		Failed:  st.Failed,
		Took:    time.Since(start),
	}

	cfg.logger.Info(ctx, "ingest finished",
		logger.Int64("batches", res.Batches),
		logger.Int64("rows", res.Rows),
		logger.Int64("failed", res.Failed),
		logger.Duration("took", res.Took),
	)

	if putErr != nil {
		return res, fmt.Errorf("enqueue: %w", putErr)
	}
	if writeErr != nil {
		return res, fmt.Errorf("write: %w", writeErr)
	}
	return res, nil
}
