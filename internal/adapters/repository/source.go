// Package repository provides the performance record sources the engine loads from.
package repository

import (
	"context"
	"sync"

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/model"
)

// Source supplies the raw performance rows of the corpus.
type Source interface {
	// Load returns every stored row. Rows are not validated.
	Load(ctx context.Context) ([]model.RawRecord, error)
}

// Writer persists raw performance rows.
type Writer interface {
	// Insert stores rows, replacing any row with the same
	// (song, date, set, position) identity. It returns the number written.
	Insert(ctx context.Context, rows []model.RawRecord) (int, error)
}

// MemorySource is an in-memory Source, used for tests and demos.
type MemorySource struct {
	mu   sync.RWMutex
	rows []model.RawRecord
}

// NewMemorySource creates a MemorySource holding a copy of rows.
func NewMemorySource(rows []model.RawRecord) *MemorySource {
	s := &MemorySource{}
	s.Set(rows)
	return s
}

// Load returns a copy of the held rows.
func (s *MemorySource) Load(ctx context.Context) ([]model.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.RawRecord, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

// Insert appends rows.
func (s *MemorySource) Insert(ctx context.Context, rows []model.RawRecord) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
	return len(rows), nil
}

// Set replaces the held rows with a copy of rows.
func (s *MemorySource) Set(rows []model.RawRecord) {
	cp := make([]model.RawRecord, len(rows))
	copy(cp, rows)
	s.mu.Lock()
	s.rows = cp
	s.mu.Unlock()
}
