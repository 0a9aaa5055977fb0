package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/notactuallytreyanastasio/phstats-sub000/internal/adapters/mq/queue"
	worker "github.com/notactuallytreyanastasio/phstats-sub000/internal/adapters/mq/worker"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/adapters/repository"
	model "github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/model"
	logging "github.com/notactuallytreyanastasio/phstats-sub000/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

var errDiskFull = errors.New("disk full")

// flakyWriter fails every batch whose first row has position failPos.
type flakyWriter struct {
	mu      sync.Mutex
	rows    []model.RawRecord
	failPos int
}

func (w *flakyWriter) Insert(_ context.Context, rows []model.RawRecord) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(rows) > 0 && rows[0].Position == w.failPos {
		return 0, errDiskFull
	}
	w.rows = append(w.rows, rows...)
	return len(rows), nil
}

func (w *flakyWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.rows)
}

func makeBatch(seq, size int) queue.Batch {
	rows := make([]model.RawRecord, size)
	for i := range rows {
		rows[i] = model.RawRecord{
			SongName: "Ghost",
			ShowDate: "1998-04-03",
			SetLabel: "Set2",
			Position: seq*size + i + 1,
		}
	}
	return queue.Batch{Seq: seq, Rows: rows}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		_ = logging.Init()
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		writer := &flakyWriter{failPos: -1}

		convey.Convey("When creating a worker with custom options", func() {
			w := worker.NewInMemoryWorker(q, writer, worker.WithName("w1"), worker.WithLogger(logging.Get()))

			convey.Convey("Then it should be created successfully", func() {
				convey.So(w, convey.ShouldNotBeNil)
				convey.So(w.Stats(), convey.ShouldResemble, worker.Stats{})
			})
		})

		convey.Convey("When running a worker over queued batches", func() {
			w := worker.NewInMemoryWorker(q, writer)
			convey.So(q.Enqueue(ctx, makeBatch(0, 3)), convey.ShouldBeTrue)
			convey.So(q.Enqueue(ctx, makeBatch(1, 2)), convey.ShouldBeTrue)
			convey.So(q.Close(), convey.ShouldBeNil)

			w.Run(ctx)

			convey.Convey("Then every row should be written", func() {
				convey.So(writer.count(), convey.ShouldEqual, 5)
				convey.So(w.Stats(), convey.ShouldResemble, worker.Stats{Batches: 2, Rows: 5})
			})
		})

		convey.Convey("When a write fails", func() {
			writer.failPos = 1
			w := worker.NewInMemoryWorker(q, writer)
			convey.So(q.Enqueue(ctx, makeBatch(0, 2)), convey.ShouldBeTrue)
			convey.So(q.Enqueue(ctx, makeBatch(1, 2)), convey.ShouldBeTrue)
			convey.So(q.Close(), convey.ShouldBeNil)

			w.Run(ctx)

			convey.Convey("Then the worker should count it and keep going", func() {
				convey.So(w.Stats(), convey.ShouldResemble, worker.Stats{Batches: 1, Rows: 2, Failed: 1})
				convey.So(writer.count(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When shutting down an idle worker", func() {
			w := worker.NewInMemoryWorker(q, writer)
			go w.Run(ctx)

			shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()

			convey.Convey("Then it should stop and tolerate a second call", func() {
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			runCtx, cancel := context.WithCancel(ctx)
			w := worker.NewInMemoryWorker(q, writer)
			stopped := make(chan struct{})
			go func() {
				w.Run(runCtx)
				close(stopped)
			}()
			cancel()

			convey.Convey("Then the worker should stop", func() {
				select {
				case <-stopped:
				case <-time.After(time.Second):
					t.Fatal("worker did not stop")
				}
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a worker pool writing into a memory source", t, func() {
		_ = logging.Init()
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		store := repository.NewMemorySource(nil)
		pool := worker.NewPool(3, q, store)
		pool.Start(ctx)

		convey.Convey("When producing more batches than the queue holds", func() {
			for i := 0; i < 20; i++ {
				convey.So(q.Put(ctx, makeBatch(i, 5)), convey.ShouldBeNil)
			}
			err := pool.Shutdown(ctx)

			convey.Convey("Then all rows should land once the pool drains", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pool.Stats(), convey.ShouldResemble, worker.Stats{Batches: 20, Rows: 100})
				rows, loadErr := store.Load(ctx)
				convey.So(loadErr, convey.ShouldBeNil)
				convey.So(rows, convey.ShouldHaveLength, 100)
			})
		})
	})

	convey.Convey("Given a pool whose writer fails one batch", t, func() {
		_ = logging.Init()
		ctx := context.Background()
		q := queue.NewInMemoryQueue()
		writer := &flakyWriter{failPos: 11}
		pool := worker.NewPool(0, q, writer)
		pool.Start(ctx)

		for i := 0; i < 4; i++ {
			convey.So(q.Put(ctx, makeBatch(i, 5)), convey.ShouldBeNil)
		}
		err := pool.Shutdown(ctx)

		convey.Convey("Then shutdown should report the write error", func() {
			convey.So(errors.Is(err, errDiskFull), convey.ShouldBeTrue)
			convey.So(pool.Stats().Failed, convey.ShouldEqual, 1)
			convey.So(writer.count(), convey.ShouldEqual, 15)
		})
	})
}
