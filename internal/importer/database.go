package importer

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// DatabaseDestination upserts imported subscribers into the subscribers
// table, keyed on email.
type DatabaseDestination struct {
	db *sqlx.DB
}

// NewDatabaseDestination creates a database destination.
func NewDatabaseDestination(db *sqlx.DB) *DatabaseDestination {
	return &DatabaseDestination{db: db}
}

// Name identifies this destination in error messages.
func (d *DatabaseDestination) Name() string { return "database" }

// Upsert inserts or refreshes the subscriber row. The ON CONFLICT clause
// makes repeats of the same record harmless, which resumption relies on.
func (d *DatabaseDestination) Upsert(ctx context.Context, rec Record) error {
	const query = `
		INSERT INTO subscribers (email, name, source, tags, status)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET
			name   = COALESCE(NULLIF(EXCLUDED.name, ''), subscribers.name),
			source = EXCLUDED.source,
			tags   = EXCLUDED.tags,
			status = EXCLUDED.status,
			unsubscribed_at = CASE
				WHEN EXCLUDED.status = 'unsubscribed' AND subscribers.unsubscribed_at IS NULL THEN now()
				WHEN EXCLUDED.status <> 'unsubscribed' THEN NULL
				ELSE subscribers.unsubscribed_at
			END`

	name := rec.FirstName
	if rec.LastName != "" {
		if name != "" {
			name += " "
		}
		name += rec.LastName
	}

	_, err := d.db.ExecContext(ctx, query,
		rec.Email, name, rec.Source, pq.Array(rec.Groups), destinationStatus(rec.Status))
	if err != nil {
		return fmt.Errorf("upsert subscriber %s: %w", rec.Email, err)
	}
	return nil
}

// destinationStatus maps source record statuses onto subscriber row statuses.
func destinationStatus(status string) string {
	switch status {
	case StatusUnsubscribed:
		return "unsubscribed"
	case StatusBounced:
		return "bounced"
	default:
		return "active"
	}
}

var _ Destination = (*DatabaseDestination)(nil)
