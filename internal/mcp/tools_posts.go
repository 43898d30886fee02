package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/periospot/content-cloud/internal/content"
	"github.com/periospot/content-cloud/internal/textutil"
)

// PostTools exposes blog post management over MCP.
type PostTools struct {
	store content.Store
}

// RegisterPostTools adds the post tools to the registry.
func RegisterPostTools(r *Registry, store content.Store) {
	t := &PostTools{store: store}

	r.MustRegister(Tool{
		Name:        "create_post",
		Description: "Create a new blog post. Slug, excerpt, reading time, and HTML are derived from the content when not supplied.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title":    map[string]any{"type": "string", "description": "Post title"},
				"content":  map[string]any{"type": "string", "description": "Post body in markdown"},
				"excerpt":  map[string]any{"type": "string", "description": "Short summary; derived from content when omitted"},
				"category": map[string]any{"type": "string", "description": "Primary category slug"},
				"tags": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Post tags",
				},
				"status": map[string]any{
					"type":        "string",
					"description": "Post status",
					"enum":        []string{"draft", "published", "scheduled"},
				},
				"featured_image_url": map[string]any{"type": "string", "description": "URL of the featured image"},
				"meta_title":         map[string]any{"type": "string", "description": "SEO title; defaults to the post title"},
				"meta_description":   map[string]any{"type": "string", "description": "SEO description; defaults to the excerpt"},
			},
			"required": []string{"title", "content"},
		},
	}, t.createPost)

	r.MustRegister(Tool{
		Name:        "update_post",
		Description: "Update an existing blog post by id or slug. Only supplied fields change.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":      map[string]any{"type": "string", "description": "Post id (or supply slug)"},
				"slug":    map[string]any{"type": "string", "description": "Post slug (or supply id)"},
				"title":   map[string]any{"type": "string", "description": "New title"},
				"content": map[string]any{"type": "string", "description": "New markdown body; re-derives HTML and reading time"},
				"excerpt": map[string]any{"type": "string", "description": "New excerpt"},
				"status": map[string]any{
					"type": "string",
					"enum": []string{"draft", "published", "scheduled", "archived"},
				},
				"tags": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
				"featured_image_url": map[string]any{"type": "string"},
				"meta_title":         map[string]any{"type": "string"},
				"meta_description":   map[string]any{"type": "string"},
			},
		},
	}, t.updatePost)

	r.MustRegister(Tool{
		Name:        "get_posts",
		Description: "List blog posts with optional status, category, and search filters.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"status": map[string]any{
					"type":        "string",
					"description": "Filter by status; omit or use 'all' for any",
					"enum":        []string{"all", "draft", "published", "scheduled", "archived"},
				},
				"category": map[string]any{"type": "string", "description": "Filter by category slug"},
				"search":   map[string]any{"type": "string", "description": "Match against title and content"},
				"limit":    map[string]any{"type": "integer", "description": "Page size (default 10, max 100)"},
				"offset":   map[string]any{"type": "integer", "description": "Page offset"},
			},
		},
	}, t.getPosts)

	r.MustRegister(Tool{
		Name:        "get_post",
		Description: "Fetch a single blog post by id or slug.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":   map[string]any{"type": "string", "description": "Post id (or supply slug)"},
				"slug": map[string]any{"type": "string", "description": "Post slug (or supply id)"},
			},
		},
	}, t.getPost)

	r.MustRegister(Tool{
		Name:        "delete_post",
		Description: "Permanently delete a blog post by id or slug.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":   map[string]any{"type": "string", "description": "Post id (or supply slug)"},
				"slug": map[string]any{"type": "string", "description": "Post slug (or supply id)"},
			},
		},
	}, t.deletePost)

	r.MustRegister(Tool{
		Name:        "publish_post",
		Description: "Publish a draft post, setting its published timestamp.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":   map[string]any{"type": "string", "description": "Post id (or supply slug)"},
				"slug": map[string]any{"type": "string", "description": "Post slug (or supply id)"},
			},
		},
	}, t.publishPost)
}

func (t *PostTools) createPost(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args struct {
		Title            string   `json:"title"`
		Content          string   `json:"content"`
		Excerpt          string   `json:"excerpt"`
		Category         string   `json:"category"`
		Tags             []string `json:"tags"`
		Status           string   `json:"status"`
		FeaturedImageURL string   `json:"featured_image_url"`
		MetaTitle        string   `json:"meta_title"`
		MetaDescription  string   `json:"meta_description"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.Title == "" || args.Content == "" {
		return nil, errors.New("title and content are required")
	}

	slug, err := t.uniqueSlug(ctx, textutil.Slug(args.Title))
	if err != nil {
		return nil, err
	}

	excerpt := args.Excerpt
	if excerpt == "" {
		excerpt = textutil.Excerpt(args.Content, textutil.DefaultExcerptLength)
	}
	metaTitle := args.MetaTitle
	if metaTitle == "" {
		metaTitle = args.Title
	}
	metaDescription := args.MetaDescription
	if metaDescription == "" {
		metaDescription = excerpt
	}
	status := args.Status
	if status == "" {
		status = content.StatusDraft
	}

	post := &content.Post{
		Title:           args.Title,
		Slug:            slug,
		Content:         args.Content,
		ContentHTML:     textutil.MarkdownToHTML(args.Content),
		Excerpt:         excerpt,
		MetaTitle:       metaTitle,
		MetaDescription: metaDescription,
		Tags:            args.Tags,
		Status:          status,
		ReadingTimeMin:  textutil.ReadingTime(args.Content),
	}
	if args.Category != "" {
		post.Categories = []string{args.Category}
	}
	if args.FeaturedImageURL != "" {
		post.FeaturedImageURL = &args.FeaturedImageURL
	}
	if status == content.StatusPublished {
		now := time.Now()
		post.PublishedAt = &now
	}

	created, err := t.store.CreatePost(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return map[string]any{
		"post":    created,
		"message": fmt.Sprintf("Post %q created with slug %q.", created.Title, created.Slug),
	}, nil
}

func (t *PostTools) updatePost(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args struct {
		ID               string    `json:"id"`
		Slug             string    `json:"slug"`
		Title            *string   `json:"title"`
		Content          *string   `json:"content"`
		Excerpt          *string   `json:"excerpt"`
		Status           *string   `json:"status"`
		Tags             *[]string `json:"tags"`
		FeaturedImageURL *string   `json:"featured_image_url"`
		MetaTitle        *string   `json:"meta_title"`
		MetaDescription  *string   `json:"meta_description"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.ID == "" && args.Slug == "" {
		return nil, errors.New("id or slug is required")
	}

	upd := content.PostUpdate{
		Title:            args.Title,
		Content:          args.Content,
		Excerpt:          args.Excerpt,
		Status:           args.Status,
		FeaturedImageURL: args.FeaturedImageURL,
		MetaTitle:        args.MetaTitle,
		MetaDescription:  args.MetaDescription,
	}
	if args.Tags != nil {
		upd.Tags = *args.Tags
	}
	if args.Content != nil {
		html := textutil.MarkdownToHTML(*args.Content)
		upd.ContentHTML = &html
		minutes := textutil.ReadingTime(*args.Content)
		upd.ReadingTimeMin = &minutes
	}
	if args.Status != nil && *args.Status == content.StatusPublished {
		now := time.Now()
		upd.PublishedAt = &now
	}

	updated, err := t.updateByKey(ctx, args.ID, args.Slug, upd)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"post":    updated,
		"message": fmt.Sprintf("Post %q updated.", updated.Title),
	}, nil
}

func (t *PostTools) getPosts(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args struct {
		Status   string `json:"status"`
		Category string `json:"category"`
		Search   string `json:"search"`
		Limit    int    `json:"limit"`
		Offset   int    `json:"offset"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	posts, total, err := t.store.ListPosts(ctx, content.PostFilter{
		Status:   args.Status,
		Category: args.Category,
		Search:   args.Search,
		Limit:    args.Limit,
		Offset:   args.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return map[string]any{
		"posts": posts,
		"count": len(posts),
		"total": total,
	}, nil
}

func (t *PostTools) getPost(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.ID == "" && args.Slug == "" {
		return nil, errors.New("id or slug is required")
	}

	var post *content.Post
	var err error
	if args.ID != "" {
		post, err = t.store.GetPostByID(ctx, args.ID)
	} else {
		post, err = t.store.GetPostBySlug(ctx, args.Slug)
	}
	if errors.Is(err, content.ErrNotFound) {
		return nil, errors.New("post not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return map[string]any{"post": post}, nil
}

func (t *PostTools) deletePost(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.ID == "" && args.Slug == "" {
		return nil, errors.New("id or slug is required")
	}

	var err error
	if args.ID != "" {
		err = t.store.DeletePostByID(ctx, args.ID)
	} else {
		err = t.store.DeletePostBySlug(ctx, args.Slug)
	}
	if errors.Is(err, content.ErrNotFound) {
		return nil, errors.New("post not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete post: %w", err)
	}

	return map[string]any{"message": "Post deleted."}, nil
}

func (t *PostTools) publishPost(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.ID == "" && args.Slug == "" {
		return nil, errors.New("id or slug is required")
	}

	status := content.StatusPublished
	now := time.Now()
	updated, err := t.updateByKey(ctx, args.ID, args.Slug, content.PostUpdate{
		Status:      &status,
		PublishedAt: &now,
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"post":    updated,
		"message": fmt.Sprintf("Post %q published.", updated.Title),
	}, nil
}

func (t *PostTools) updateByKey(ctx context.Context, id, slug string, upd content.PostUpdate) (*content.Post, error) {
	var updated *content.Post
	var err error
	if id != "" {
		updated, err = t.store.UpdatePostByID(ctx, id, upd)
	} else {
		updated, err = t.store.UpdatePostBySlug(ctx, slug, upd)
	}
	if errors.Is(err, content.ErrNotFound) {
		return nil, errors.New("post not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return updated, nil
}

// uniqueSlug appends a numeric suffix until the slug is free.
func (t *PostTools) uniqueSlug(ctx context.Context, base string) (string, error) {
	slug := base
	for i := 2; ; i++ {
		exists, err := t.store.SlugExists(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}
