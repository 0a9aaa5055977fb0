package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/model"
)

func batch(seq int) Batch {
	return Batch{Seq: seq, Rows: []model.RawRecord{{SongName: "Tweezer", ShowDate: "1997-11-17", SetLabel: "Set2", Position: seq}}}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, batch(1)) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	b := <-q.Dequeue(ctx)
	if b.Seq != 1 || len(b.Rows) != 1 {
		t.Errorf("expected batch 1 with one row, got %+v", b)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, batch(1)) || !q.Enqueue(ctx, batch(2)) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, batch(3)) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_BufferNeverBelowCapacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4), WithBufferSize(1))
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if !q.Enqueue(ctx, batch(i)) {
			t.Fatalf("expected enqueue %d to succeed", i)
		}
	}
}

func TestInMemoryQueue_PutWaitsForSpace(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx := context.Background()

	if err := q.Put(ctx, batch(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- q.Put(ctx, batch(2)) }()

	select {
	case <-done:
		t.Fatal("expected put to block while the queue is full")
	case <-time.After(20 * time.Millisecond):
	}

	out := q.Dequeue(ctx)
	if b := <-out; b.Seq != 1 {
		t.Errorf("expected batch 1, got %d", b.Seq)
	}
	if err := <-done; err != nil {
		t.Errorf("expected put to succeed once space freed, got %v", err)
	}
	if b := <-out; b.Seq != 2 {
		t.Errorf("expected batch 2, got %d", b.Seq)
	}
}

func TestInMemoryQueue_PutHonorsContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	if !q.Enqueue(context.Background(), batch(1)) {
		t.Fatal("expected enqueue to succeed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.Put(ctx, batch(2)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(16))
	ctx := context.Background()
	producers, perProducer := 8, 50

	var consumed sync.WaitGroup
	counts := make(chan int, producers*perProducer)
	for i := 0; i < 4; i++ {
		consumed.Add(1)
		go func() {
			defer consumed.Done()
			for b := range q.Dequeue(ctx) {
				counts <- b.Seq
			}
		}()
	}

	var produced sync.WaitGroup
	for p := 0; p < producers; p++ {
		produced.Add(1)
		go func(id int) {
			defer produced.Done()
			for j := 0; j < perProducer; j++ {
				if err := q.Put(ctx, batch(id*perProducer+j)); err != nil {
					t.Errorf("put failed: %v", err)
					return
				}
			}
		}(p)
	}

	produced.Wait()
	if err := q.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	consumed.Wait()
	close(counts)

	seen := make(map[int]bool)
	for seq := range counts {
		if seen[seq] {
			t.Errorf("batch %d delivered twice", seq)
		}
		seen[seq] = true
	}
	if len(seen) != producers*perProducer {
		t.Errorf("expected %d batches, got %d", producers*perProducer, len(seen))
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, batch(1)) || !q.Enqueue(ctx, batch(2)) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected second close to be a no-op, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if q.Enqueue(ctx, batch(3)) {
		t.Error("expected enqueue to fail after close")
	}
	if err := q.Put(ctx, batch(3)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	var got []int
	for b := range q.Dequeue(ctx) {
		got = append(got, b.Seq)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("expected queued batches to drain in order, got %v", got)
	}
}
