package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/model"
	"github.com/notactuallytreyanastasio/phstats-sub000/pkg/metrics"
)

const (
	defaultBusyTimeout  = 30 * time.Second
	defaultMaxOpenConns = 1
)

const selectPerformances = `SELECT
	song_name, show_date, tour_id, tour_label, set_label, position,
	is_opener, is_closer, run_position, venue, state, country,
	duration_ms, likes, is_jamchart, jam_notes
FROM performances
ORDER BY show_date, set_label, position, song_name`

const insertPerformance = `INSERT INTO performances (
	song_name, show_date, tour_id, tour_label, set_label, position,
	is_opener, is_closer, run_position, venue, state, country,
	duration_ms, likes, is_jamchart, jam_notes
) VALUES (
	:song_name, :show_date, :tour_id, :tour_label, :set_label, :position,
	:is_opener, :is_closer, :run_position, :venue, :state, :country,
	:duration_ms, :likes, :is_jamchart, :jam_notes
)
ON CONFLICT (song_name, show_date, set_label, position) DO UPDATE SET
	tour_id = excluded.tour_id,
	tour_label = excluded.tour_label,
	is_opener = excluded.is_opener,
	is_closer = excluded.is_closer,
	run_position = excluded.run_position,
	venue = excluded.venue,
	state = excluded.state,
	country = excluded.country,
	duration_ms = excluded.duration_ms,
	likes = excluded.likes,
	is_jamchart = excluded.is_jamchart,
	jam_notes = excluded.jam_notes`

// SQLiteStore is a Source and Writer backed by a SQLite database file.
type SQLiteStore struct {
	db           *sqlx.DB
	busyTimeout  time.Duration
	maxOpenConns int
}

// NewSQLiteStore opens dsn, applies pragmas and the schema.
func NewSQLiteStore(ctx context.Context, dsn string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		busyTimeout:  defaultBusyTimeout,
		maxOpenConns: defaultMaxOpenConns,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	db.SetMaxOpenConns(s.maxOpenConns)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", s.busyTimeout.Milliseconds()),
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: %s: %w", ErrOpen, p, err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrOpen, err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: apply schema: %w", ErrOpen, err)
	}

	s.db = db
	return s, nil
}

// Load reads every performance row.
func (s *SQLiteStore) Load(ctx context.Context) ([]model.RawRecord, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryLoadLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	var rows []model.RawRecord
	if err := s.db.SelectContext(ctx, &rows, selectPerformances); err != nil {
		metrics.RecordErrorByComponent("repository", "load")
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	return rows, nil
}

// Insert upserts rows in a single transaction.
func (s *SQLiteStore) Insert(ctx context.Context, rows []model.RawRecord) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %w", ErrInsert, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareNamedContext(ctx, insertPerformance)
	if err != nil {
		return 0, fmt.Errorf("%w: prepare: %w", ErrInsert, err)
	}
	defer stmt.Close() //nolint:errcheck // deferred cleanup

	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]); err != nil {
			metrics.RecordErrorByComponent("repository", "insert")
			return 0, fmt.Errorf("%w: row %d (%s %s): %w", ErrInsert, i, rows[i].SongName, rows[i].ShowDate, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %w", ErrInsert, err)
	}

	metrics.RecordRepositoryInserted(len(rows))
	return len(rows), nil
}

// Count returns the number of stored rows.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM performances`); err != nil {
		return 0, fmt.Errorf("%w: count: %w", ErrLoad, err)
	}
	return n, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
