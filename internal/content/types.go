// Package content defines the content store: blog posts, categories, images,
// and newsletter subscribers, backed by PostgreSQL.
package content

import (
	"time"

	"github.com/lib/pq"
)

// Post statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusScheduled = "scheduled"
	StatusArchived  = "archived"
)

// Subscriber statuses.
const (
	SubscriberActive       = "active"
	SubscriberUnsubscribed = "unsubscribed"
	SubscriberBounced      = "bounced"
)

// Post is a blog post row.
type Post struct {
	ID               string         `db:"id"                   json:"id"`
	Title            string         `db:"title"                json:"title"`
	Slug             string         `db:"slug"                 json:"slug"`
	Content          string         `db:"content"              json:"content"`
	ContentHTML      string         `db:"content_html"         json:"content_html"`
	Excerpt          string         `db:"excerpt"              json:"excerpt"`
	FeaturedImageURL *string        `db:"featured_image_url"   json:"featured_image_url,omitempty"`
	FeaturedImageAlt *string        `db:"featured_image_alt"   json:"featured_image_alt,omitempty"`
	MetaTitle        string         `db:"meta_title"           json:"meta_title"`
	MetaDescription  string         `db:"meta_description"     json:"meta_description"`
	CategoryID       *string        `db:"category_id"          json:"category_id,omitempty"`
	Categories       pq.StringArray `db:"categories"           json:"categories"`
	Tags             pq.StringArray `db:"tags"                 json:"tags"`
	Status           string         `db:"status"               json:"status"`
	IsFeatured       bool           `db:"is_featured"          json:"is_featured"`
	ReadingTimeMin   int            `db:"reading_time_minutes" json:"reading_time_minutes"`
	ViewCount        int            `db:"view_count"           json:"view_count"`
	PublishedAt      *time.Time     `db:"published_at"         json:"published_at,omitempty"`
	CreatedAt        time.Time      `db:"created_at"           json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"           json:"updated_at"`
}

// PostUpdate carries optional field updates for a post.
// Nil pointers leave the corresponding column untouched.
type PostUpdate struct {
	Title            *string
	Slug             *string
	Content          *string
	ContentHTML      *string
	Excerpt          *string
	FeaturedImageURL *string
	FeaturedImageAlt *string
	MetaTitle        *string
	MetaDescription  *string
	CategoryID       *string
	Categories       []string
	Tags             []string
	Status           *string
	IsFeatured       *bool
	ReadingTimeMin   *int
	PublishedAt      *time.Time
}

// PostFilter selects posts for listing.
type PostFilter struct {
	Status   string // "" or "all" means any status
	Category string
	Search   string
	Limit    int
	Offset   int
	OrderBy  string // created_at, published_at, title, view_count
	Order    string // asc or desc
}

// Category is a post category row.
type Category struct {
	ID          string    `db:"id"          json:"id"`
	Name        string    `db:"name"        json:"name"`
	Slug        string    `db:"slug"        json:"slug"`
	Description *string   `db:"description" json:"description,omitempty"`
	ParentID    *string   `db:"parent_id"   json:"parent_id,omitempty"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
}

// Image is an uploaded image metadata row.
type Image struct {
	ID               string    `db:"id"                json:"id"`
	URL              string    `db:"url"               json:"url"`
	StoragePath      string    `db:"storage_path"      json:"storage_path"`
	Filename         string    `db:"filename"          json:"filename"`
	OriginalFilename string    `db:"original_filename" json:"original_filename"`
	AltText          string    `db:"alt_text"          json:"alt_text"`
	Caption          *string   `db:"caption"           json:"caption,omitempty"`
	Folder           string    `db:"folder"            json:"folder"`
	MimeType         string    `db:"mime_type"         json:"mime_type"`
	SizeBytes        int64     `db:"size_bytes"        json:"size_bytes"`
	CreatedAt        time.Time `db:"created_at"        json:"created_at"`
}

// ImageFilter selects images for listing.
type ImageFilter struct {
	Folder string
	Search string
	Limit  int
	Offset int
}

// Subscriber is a site newsletter subscriber row.
type Subscriber struct {
	ID             string         `db:"id"              json:"id"`
	Email          string         `db:"email"           json:"email"`
	Name           *string        `db:"name"            json:"name,omitempty"`
	Source         *string        `db:"source"          json:"source,omitempty"`
	Tags           pq.StringArray `db:"tags"            json:"tags"`
	Status         string         `db:"status"          json:"status"`
	SubscribedAt   time.Time      `db:"subscribed_at"   json:"subscribed_at"`
	UnsubscribedAt *time.Time     `db:"unsubscribed_at" json:"unsubscribed_at,omitempty"`
}

// SubscriberFilter selects subscribers for listing.
type SubscriberFilter struct {
	Status string // "" or "all" means any status
	Search string
	Tag    string
	Limit  int
	Offset int
}

// SubscriberStats aggregates subscriber counts by status.
type SubscriberStats struct {
	Total        int `db:"total"        json:"total"`
	Active       int `db:"active"       json:"active"`
	Unsubscribed int `db:"unsubscribed" json:"unsubscribed"`
	Bounced      int `db:"bounced"      json:"bounced"`
	ThisMonth    int `db:"this_month"   json:"this_month"`
}
