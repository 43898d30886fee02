package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/periospot/content-cloud/internal/logger"
)

// postColumns is the column list selected for post rows.
const postColumns = `id, title, slug, content, content_html, excerpt,
	featured_image_url, featured_image_alt, meta_title, meta_description,
	category_id, categories, tags, status, is_featured, reading_time_minutes,
	view_count, published_at, created_at, updated_at`

// allowed post ordering columns; anything else falls back to created_at.
var postOrderColumns = map[string]bool{
	"created_at":   true,
	"published_at": true,
	"title":        true,
	"view_count":   true,
}

// PostgresStore implements Store on PostgreSQL via sqlx.
type PostgresStore struct {
	db  *sqlx.DB
	log logger.Logger
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(db *sqlx.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: log}
}

// CreatePost inserts a post and returns the stored row.
func (s *PostgresStore) CreatePost(ctx context.Context, post *Post) (*Post, error) {
	const query = `
		INSERT INTO posts (
			title, slug, content, content_html, excerpt,
			featured_image_url, featured_image_alt, meta_title, meta_description,
			category_id, categories, tags, status, is_featured,
			reading_time_minutes, published_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING ` + postColumns

	var created Post
	err := s.db.GetContext(ctx, &created, query,
		post.Title, post.Slug, post.Content, post.ContentHTML, post.Excerpt,
		post.FeaturedImageURL, post.FeaturedImageAlt, post.MetaTitle, post.MetaDescription,
		post.CategoryID, pq.Array([]string(post.Categories)), pq.Array([]string(post.Tags)),
		post.Status, post.IsFeatured, post.ReadingTimeMin, post.PublishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return &created, nil
}

// UpdatePostByID applies the update to the post with the given id.
func (s *PostgresStore) UpdatePostByID(ctx context.Context, id string, upd PostUpdate) (*Post, error) {
	return s.updatePost(ctx, "id", id, upd)
}

// UpdatePostBySlug applies the update to the post with the given slug.
func (s *PostgresStore) UpdatePostBySlug(ctx context.Context, slug string, upd PostUpdate) (*Post, error) {
	return s.updatePost(ctx, "slug", slug, upd)
}

func (s *PostgresStore) updatePost(ctx context.Context, keyCol, keyVal string, upd PostUpdate) (*Post, error) {
	set, args := buildPostSet(upd)
	if len(set) == 0 {
		return nil, errors.New("no updates provided")
	}

	set = append(set, "updated_at = now()")
	args = append(args, keyVal)

	query := fmt.Sprintf(
		"UPDATE posts SET %s WHERE %s = $%d RETURNING %s",
		strings.Join(set, ", "), keyCol, len(args), postColumns,
	)

	var updated Post
	err := s.db.GetContext(ctx, &updated, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	return &updated, nil
}

// buildPostSet turns a PostUpdate into SET clauses and positional args.
func buildPostSet(upd PostUpdate) ([]string, []any) {
	var set []string
	var args []any

	add := func(col string, val any) {
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Slug != nil {
		add("slug", *upd.Slug)
	}
	if upd.Content != nil {
		add("content", *upd.Content)
	}
	if upd.ContentHTML != nil {
		add("content_html", *upd.ContentHTML)
	}
	if upd.Excerpt != nil {
		add("excerpt", *upd.Excerpt)
	}
	if upd.FeaturedImageURL != nil {
		add("featured_image_url", *upd.FeaturedImageURL)
	}
	if upd.FeaturedImageAlt != nil {
		add("featured_image_alt", *upd.FeaturedImageAlt)
	}
	if upd.MetaTitle != nil {
		add("meta_title", *upd.MetaTitle)
	}
	if upd.MetaDescription != nil {
		add("meta_description", *upd.MetaDescription)
	}
	if upd.CategoryID != nil {
		add("category_id", *upd.CategoryID)
	}
	if upd.Categories != nil {
		add("categories", pq.Array(upd.Categories))
	}
	if upd.Tags != nil {
		add("tags", pq.Array(upd.Tags))
	}
	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.IsFeatured != nil {
		add("is_featured", *upd.IsFeatured)
	}
	if upd.ReadingTimeMin != nil {
		add("reading_time_minutes", *upd.ReadingTimeMin)
	}
	if upd.PublishedAt != nil {
		add("published_at", *upd.PublishedAt)
	}

	return set, args
}

// GetPostByID fetches one post by id.
func (s *PostgresStore) GetPostByID(ctx context.Context, id string) (*Post, error) {
	return s.getPost(ctx, "id", id)
}

// GetPostBySlug fetches one post by slug.
func (s *PostgresStore) GetPostBySlug(ctx context.Context, slug string) (*Post, error) {
	return s.getPost(ctx, "slug", slug)
}

func (s *PostgresStore) getPost(ctx context.Context, keyCol, keyVal string) (*Post, error) {
	query := fmt.Sprintf("SELECT %s FROM posts WHERE %s = $1", postColumns, keyCol)

	var post Post
	err := s.db.GetContext(ctx, &post, query, keyVal)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &post, nil
}

// ListPosts returns a filtered page of posts plus the total match count.
func (s *PostgresStore) ListPosts(ctx context.Context, filter PostFilter) ([]Post, int, error) {
	var where []string
	var args []any

	if filter.Status != "" && filter.Status != "all" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("$%d = ANY(categories)", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR content ILIKE $%d)", len(args), len(args)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM posts"+whereClause, args...); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	orderBy := filter.OrderBy
	if !postOrderColumns[orderBy] {
		orderBy = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(filter.Order, "asc") {
		direction = "ASC"
	}

	limit := clampLimit(filter.Limit, 10, 100)
	args = append(args, limit, filter.Offset)

	query := fmt.Sprintf(
		"SELECT %s FROM posts%s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		postColumns, whereClause, orderBy, direction, len(args)-1, len(args),
	)

	var posts []Post
	if err := s.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	return posts, total, nil
}

// DeletePostByID permanently deletes a post by id.
func (s *PostgresStore) DeletePostByID(ctx context.Context, id string) error {
	return s.deleteRow(ctx, "DELETE FROM posts WHERE id = $1", id, "delete post")
}

// DeletePostBySlug permanently deletes a post by slug.
func (s *PostgresStore) DeletePostBySlug(ctx context.Context, slug string) error {
	return s.deleteRow(ctx, "DELETE FROM posts WHERE slug = $1", slug, "delete post")
}

// SlugExists reports whether a post with the given slug exists.
func (s *PostgresStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM posts WHERE slug = $1)", slug)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists, nil
}

// ListCategories returns all categories ordered by name.
func (s *PostgresStore) ListCategories(ctx context.Context) ([]Category, error) {
	var cats []Category
	err := s.db.SelectContext(ctx, &cats,
		"SELECT id, name, slug, description, parent_id, created_at FROM categories ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// GetCategoryBySlug fetches a category by slug.
func (s *PostgresStore) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	var cat Category
	err := s.db.GetContext(ctx, &cat,
		"SELECT id, name, slug, description, parent_id, created_at FROM categories WHERE slug = $1", slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &cat, nil
}

// CreateCategory inserts a category and returns the stored row.
func (s *PostgresStore) CreateCategory(ctx context.Context, cat *Category) (*Category, error) {
	const query = `
		INSERT INTO categories (name, slug, description, parent_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, slug, description, parent_id, created_at`

	var created Category
	err := s.db.GetContext(ctx, &created, query, cat.Name, cat.Slug, cat.Description, cat.ParentID)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	return &created, nil
}

// UpdateCategoryByID updates a category by id.
func (s *PostgresStore) UpdateCategoryByID(ctx context.Context, id string, name, slug, description *string) (*Category, error) {
	return s.updateCategory(ctx, "id", id, name, slug, description)
}

// UpdateCategoryBySlug updates a category by its current slug.
func (s *PostgresStore) UpdateCategoryBySlug(ctx context.Context, curSlug string, name, newSlug, description *string) (*Category, error) {
	return s.updateCategory(ctx, "slug", curSlug, name, newSlug, description)
}

func (s *PostgresStore) updateCategory(ctx context.Context, keyCol, keyVal string, name, slug, description *string) (*Category, error) {
	var set []string
	var args []any

	add := func(col string, val any) {
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if name != nil {
		add("name", *name)
	}
	if slug != nil {
		add("slug", *slug)
	}
	if description != nil {
		add("description", *description)
	}
	if len(set) == 0 {
		return nil, errors.New("no updates provided")
	}

	args = append(args, keyVal)
	query := fmt.Sprintf(
		"UPDATE categories SET %s WHERE %s = $%d RETURNING id, name, slug, description, parent_id, created_at",
		strings.Join(set, ", "), keyCol, len(args),
	)

	var cat Category
	err := s.db.GetContext(ctx, &cat, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return &cat, nil
}

// DeleteCategoryByID deletes a category by id.
func (s *PostgresStore) DeleteCategoryByID(ctx context.Context, id string) error {
	return s.deleteRow(ctx, "DELETE FROM categories WHERE id = $1", id, "delete category")
}

// DeleteCategoryBySlug deletes a category by slug.
func (s *PostgresStore) DeleteCategoryBySlug(ctx context.Context, slug string) error {
	return s.deleteRow(ctx, "DELETE FROM categories WHERE slug = $1", slug, "delete category")
}

// InsertImage stores image metadata and returns the stored row.
func (s *PostgresStore) InsertImage(ctx context.Context, img *Image) (*Image, error) {
	const query = `
		INSERT INTO images (
			url, storage_path, filename, original_filename,
			alt_text, caption, folder, mime_type, size_bytes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, url, storage_path, filename, original_filename,
			alt_text, caption, folder, mime_type, size_bytes, created_at`

	var created Image
	err := s.db.GetContext(ctx, &created, query,
		img.URL, img.StoragePath, img.Filename, img.OriginalFilename,
		img.AltText, img.Caption, img.Folder, img.MimeType, img.SizeBytes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert image: %w", err)
	}
	return &created, nil
}

// ListImages returns a filtered page of images plus the total match count.
func (s *PostgresStore) ListImages(ctx context.Context, filter ImageFilter) ([]Image, int, error) {
	var where []string
	var args []any

	if filter.Folder != "" {
		args = append(args, filter.Folder)
		where = append(where, fmt.Sprintf("folder = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("(filename ILIKE $%d OR alt_text ILIKE $%d)", len(args), len(args)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM images"+whereClause, args...); err != nil {
		return nil, 0, fmt.Errorf("count images: %w", err)
	}

	limit := clampLimit(filter.Limit, 20, 100)
	args = append(args, limit, filter.Offset)

	query := fmt.Sprintf(
		`SELECT id, url, storage_path, filename, original_filename,
			alt_text, caption, folder, mime_type, size_bytes, created_at
		FROM images%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		whereClause, len(args)-1, len(args),
	)

	var images []Image
	if err := s.db.SelectContext(ctx, &images, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list images: %w", err)
	}
	return images, total, nil
}

// GetImage fetches one image by id.
func (s *PostgresStore) GetImage(ctx context.Context, id string) (*Image, error) {
	var img Image
	err := s.db.GetContext(ctx, &img,
		`SELECT id, url, storage_path, filename, original_filename,
			alt_text, caption, folder, mime_type, size_bytes, created_at
		FROM images WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get image: %w", err)
	}
	return &img, nil
}

// UpdateImage updates image metadata fields that are non-nil.
func (s *PostgresStore) UpdateImage(ctx context.Context, id string, altText, caption, folder *string) error {
	var set []string
	var args []any

	add := func(col string, val any) {
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if altText != nil {
		add("alt_text", *altText)
	}
	if caption != nil {
		add("caption", *caption)
	}
	if folder != nil {
		add("folder", *folder)
	}
	if len(set) == 0 {
		return errors.New("no updates provided")
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE images SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update image: %w", err)
	}
	return checkAffected(res)
}

// DeleteImage deletes image metadata by id.
func (s *PostgresStore) DeleteImage(ctx context.Context, id string) error {
	return s.deleteRow(ctx, "DELETE FROM images WHERE id = $1", id, "delete image")
}

const subscriberColumns = "id, email, name, source, tags, status, subscribed_at, unsubscribed_at"

// GetSubscriberByEmail fetches a subscriber by email (case-insensitive).
func (s *PostgresStore) GetSubscriberByEmail(ctx context.Context, email string) (*Subscriber, error) {
	var sub Subscriber
	err := s.db.GetContext(ctx, &sub,
		"SELECT "+subscriberColumns+" FROM subscribers WHERE email = $1",
		strings.ToLower(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscriber: %w", err)
	}
	return &sub, nil
}

// InsertSubscriber stores a new subscriber and returns the stored row.
func (s *PostgresStore) InsertSubscriber(ctx context.Context, sub *Subscriber) (*Subscriber, error) {
	const query = `
		INSERT INTO subscribers (email, name, source, tags, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + subscriberColumns

	var created Subscriber
	err := s.db.GetContext(ctx, &created, query,
		strings.ToLower(sub.Email), sub.Name, sub.Source,
		pq.Array([]string(sub.Tags)), sub.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("insert subscriber: %w", err)
	}
	return &created, nil
}

// UpdateSubscriberByID updates subscriber fields that are non-nil.
func (s *PostgresStore) UpdateSubscriberByID(ctx context.Context, id string, name, status *string, tags []string) (*Subscriber, error) {
	return s.updateSubscriber(ctx, "id", id, name, status, tags)
}

// UpdateSubscriberByEmail updates subscriber fields that are non-nil.
func (s *PostgresStore) UpdateSubscriberByEmail(ctx context.Context, email string, name, status *string, tags []string) (*Subscriber, error) {
	return s.updateSubscriber(ctx, "email", strings.ToLower(email), name, status, tags)
}

func (s *PostgresStore) updateSubscriber(ctx context.Context, keyCol, keyVal string, name, status *string, tags []string) (*Subscriber, error) {
	var set []string
	var args []any

	add := func(col string, val any) {
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if name != nil {
		add("name", *name)
	}
	if status != nil {
		add("status", *status)
		if *status == SubscriberUnsubscribed {
			set = append(set, "unsubscribed_at = now()")
		}
	}
	if tags != nil {
		add("tags", pq.Array(tags))
	}
	if len(set) == 0 {
		return nil, errors.New("no updates provided")
	}

	args = append(args, keyVal)
	query := fmt.Sprintf(
		"UPDATE subscribers SET %s WHERE %s = $%d RETURNING %s",
		strings.Join(set, ", "), keyCol, len(args), subscriberColumns,
	)

	var sub Subscriber
	err := s.db.GetContext(ctx, &sub, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update subscriber: %w", err)
	}
	return &sub, nil
}

// Unsubscribe marks the subscriber with the given email as unsubscribed.
func (s *PostgresStore) Unsubscribe(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE subscribers SET status = $1, unsubscribed_at = now() WHERE email = $2",
		SubscriberUnsubscribed, strings.ToLower(email))
	if err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	return nil
}

// ListSubscribers returns a filtered page of subscribers plus the total match count.
func (s *PostgresStore) ListSubscribers(ctx context.Context, filter SubscriberFilter) ([]Subscriber, int, error) {
	var where []string
	var args []any

	if filter.Status != "" && filter.Status != "all" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("(email ILIKE $%d OR name ILIKE $%d)", len(args), len(args)))
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		where = append(where, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM subscribers"+whereClause, args...); err != nil {
		return nil, 0, fmt.Errorf("count subscribers: %w", err)
	}

	limit := clampLimit(filter.Limit, 50, 500)
	args = append(args, limit, filter.Offset)

	query := fmt.Sprintf(
		"SELECT %s FROM subscribers%s ORDER BY subscribed_at DESC LIMIT $%d OFFSET $%d",
		subscriberColumns, whereClause, len(args)-1, len(args),
	)

	var subs []Subscriber
	if err := s.db.SelectContext(ctx, &subs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list subscribers: %w", err)
	}
	return subs, total, nil
}

// GetSubscriberStats aggregates subscriber counts by status plus this month's signups.
func (s *PostgresStore) GetSubscriberStats(ctx context.Context) (*SubscriberStats, error) {
	const query = `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'active') AS active,
			COUNT(*) FILTER (WHERE status = 'unsubscribed') AS unsubscribed,
			COUNT(*) FILTER (WHERE status = 'bounced') AS bounced,
			COUNT(*) FILTER (WHERE subscribed_at >= date_trunc('month', now())) AS this_month
		FROM subscribers`

	var stats SubscriberStats
	err := s.db.GetContext(ctx, &stats, query)
	if err != nil {
		return nil, fmt.Errorf("subscriber stats: %w", err)
	}
	return &stats, nil
}

// deleteRow executes a single-row delete and maps zero affected rows to ErrNotFound.
func (s *PostgresStore) deleteRow(ctx context.Context, query, key, op string) error {
	res, err := s.db.ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// clampLimit bounds a requested page size to [1, max], defaulting when zero.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

var _ Store = (*PostgresStore)(nil)
