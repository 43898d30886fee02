package affiliate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a link does not exist.
var ErrNotFound = errors.New("affiliate link not found")

// Link is a persisted affiliate link.
type Link struct {
	ID        string    `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	Code      string    `db:"code"       json:"code"`
	Category  string    `db:"category"   json:"category"`
	SourceURL string    `db:"source_url" json:"source_url"`
	TaggedURL string    `db:"tagged_url" json:"tagged_url"`
	ShortURL  string    `db:"short_url"  json:"short_url"`
	Clicks    int       `db:"clicks"     json:"clicks"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Store persists affiliate links.
type Store interface {
	Upsert(ctx context.Context, link *Link) (*Link, error)
	GetByCode(ctx context.Context, code string) (*Link, error)
	List(ctx context.Context, category string) ([]Link, error)
	IncrementClicks(ctx context.Context, code string) error
	DeleteByCode(ctx context.Context, code string) error
}

const linkColumns = "id, name, code, category, source_url, tagged_url, short_url, clicks, created_at"

// PostgresStore implements Store on PostgreSQL via sqlx.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Upsert inserts the link or refreshes an existing one with the same code,
// so re-running a batch never duplicates links.
func (s *PostgresStore) Upsert(ctx context.Context, link *Link) (*Link, error) {
	const query = `
		INSERT INTO affiliate_links (name, code, category, source_url, tagged_url, short_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO UPDATE SET
			name       = EXCLUDED.name,
			category   = EXCLUDED.category,
			source_url = EXCLUDED.source_url,
			tagged_url = EXCLUDED.tagged_url,
			short_url  = EXCLUDED.short_url
		RETURNING ` + linkColumns

	var stored Link
	err := s.db.GetContext(ctx, &stored, query,
		link.Name, link.Code, link.Category, link.SourceURL, link.TaggedURL, link.ShortURL)
	if err != nil {
		return nil, fmt.Errorf("upsert link: %w", err)
	}
	return &stored, nil
}

// GetByCode fetches one link by its short code.
func (s *PostgresStore) GetByCode(ctx context.Context, code string) (*Link, error) {
	var link Link
	err := s.db.GetContext(ctx, &link,
		"SELECT "+linkColumns+" FROM affiliate_links WHERE code = $1", code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	return &link, nil
}

// List returns links, optionally filtered by category, newest first.
func (s *PostgresStore) List(ctx context.Context, category string) ([]Link, error) {
	query := "SELECT " + linkColumns + " FROM affiliate_links"
	var args []any
	if category != "" {
		query += " WHERE category = $1"
		args = append(args, category)
	}
	query += " ORDER BY created_at DESC"

	var links []Link
	if err := s.db.SelectContext(ctx, &links, query, args...); err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

// IncrementClicks bumps the click counter for a code. The update is atomic
// so concurrent redirects never lose counts.
func (s *PostgresStore) IncrementClicks(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE affiliate_links SET clicks = clicks + 1 WHERE code = $1", code)
	if err != nil {
		return fmt.Errorf("increment clicks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByCode removes a link.
func (s *PostgresStore) DeleteByCode(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM affiliate_links WHERE code = $1", code)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
