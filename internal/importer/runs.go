package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("import run not found")

// Run is the persisted record of one import run. It survives restarts so an
// operator can find the last cursor after a crash and resume from it.
type Run struct {
	ID        string         `db:"id"         json:"id"`
	State     string         `db:"state"      json:"state"`
	Cursor    string         `db:"cursor"     json:"cursor,omitempty"`
	HasMore   bool           `db:"has_more"   json:"has_more"`
	Imported  int            `db:"imported"   json:"imported"`
	Skipped   int            `db:"skipped"    json:"skipped"`
	Failed    int            `db:"failed"     json:"failed"`
	Errors    pq.StringArray `db:"errors"     json:"errors,omitempty"`
	LastError string         `db:"last_error" json:"last_error,omitempty"`
	StartedAt time.Time      `db:"started_at" json:"started_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// RunStore persists import runs.
type RunStore interface {
	Save(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context, limit int) ([]Run, error)
}

const runColumns = "id, state, cursor, has_more, imported, skipped, failed, errors, last_error, started_at, updated_at"

// PostgresRunStore stores runs in the import_runs table.
type PostgresRunStore struct {
	db *sqlx.DB
}

// NewPostgresRunStore creates a run store.
func NewPostgresRunStore(db *sqlx.DB) *PostgresRunStore {
	return &PostgresRunStore{db: db}
}

// Save upserts the run row, refreshing updated_at.
func (s *PostgresRunStore) Save(ctx context.Context, run *Run) error {
	const query = `
		INSERT INTO import_runs (id, state, cursor, has_more, imported, skipped, failed, errors, last_error, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			state      = EXCLUDED.state,
			cursor     = EXCLUDED.cursor,
			has_more   = EXCLUDED.has_more,
			imported   = EXCLUDED.imported,
			skipped    = EXCLUDED.skipped,
			failed     = EXCLUDED.failed,
			errors     = EXCLUDED.errors,
			last_error = EXCLUDED.last_error,
			updated_at = now()`

	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.State, run.Cursor, run.HasMore,
		run.Imported, run.Skipped, run.Failed,
		run.Errors, run.LastError, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("save import run: %w", err)
	}
	return nil
}

// Get fetches one run by id.
func (s *PostgresRunStore) Get(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.db.GetContext(ctx, &run,
		"SELECT "+runColumns+" FROM import_runs WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get import run: %w", err)
	}
	return &run, nil
}

// List returns the most recent runs, newest first.
func (s *PostgresRunStore) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	runs := []Run{}
	err := s.db.SelectContext(ctx, &runs,
		"SELECT "+runColumns+" FROM import_runs ORDER BY started_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	return runs, nil
}

var _ RunStore = (*PostgresRunStore)(nil)
