package content

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store is the content persistence contract consumed by the MCP tools and the
// admin API. Each call is independent; no transaction spans multiple calls.
type Store interface {
	// Posts
	CreatePost(ctx context.Context, post *Post) (*Post, error)
	UpdatePostByID(ctx context.Context, id string, upd PostUpdate) (*Post, error)
	UpdatePostBySlug(ctx context.Context, slug string, upd PostUpdate) (*Post, error)
	GetPostByID(ctx context.Context, id string) (*Post, error)
	GetPostBySlug(ctx context.Context, slug string) (*Post, error)
	ListPosts(ctx context.Context, filter PostFilter) ([]Post, int, error)
	DeletePostByID(ctx context.Context, id string) error
	DeletePostBySlug(ctx context.Context, slug string) error
	SlugExists(ctx context.Context, slug string) (bool, error)

	// Categories
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*Category, error)
	CreateCategory(ctx context.Context, cat *Category) (*Category, error)
	UpdateCategoryByID(ctx context.Context, id string, name, slug, description *string) (*Category, error)
	UpdateCategoryBySlug(ctx context.Context, slug string, name, newSlug, description *string) (*Category, error)
	DeleteCategoryByID(ctx context.Context, id string) error
	DeleteCategoryBySlug(ctx context.Context, slug string) error

	// Images
	InsertImage(ctx context.Context, img *Image) (*Image, error)
	ListImages(ctx context.Context, filter ImageFilter) ([]Image, int, error)
	GetImage(ctx context.Context, id string) (*Image, error)
	UpdateImage(ctx context.Context, id string, altText, caption, folder *string) error
	DeleteImage(ctx context.Context, id string) error

	// Subscribers
	GetSubscriberByEmail(ctx context.Context, email string) (*Subscriber, error)
	InsertSubscriber(ctx context.Context, sub *Subscriber) (*Subscriber, error)
	UpdateSubscriberByID(ctx context.Context, id string, name, status *string, tags []string) (*Subscriber, error)
	UpdateSubscriberByEmail(ctx context.Context, email string, name, status *string, tags []string) (*Subscriber, error)
	Unsubscribe(ctx context.Context, email string) error
	ListSubscribers(ctx context.Context, filter SubscriberFilter) ([]Subscriber, int, error)
	GetSubscriberStats(ctx context.Context) (*SubscriberStats, error)
}
