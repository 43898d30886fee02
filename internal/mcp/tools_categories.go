package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/periospot/content-cloud/internal/content"
	"github.com/periospot/content-cloud/internal/textutil"
)

// CategoryTools exposes category management over MCP.
type CategoryTools struct {
	store content.Store
}

// RegisterCategoryTools adds the category tools to the registry.
func RegisterCategoryTools(r *Registry, store content.Store) {
	t := &CategoryTools{store: store}

	r.MustRegister(Tool{
		Name:        "list_categories",
		Description: "List all post categories ordered by name.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}, t.listCategories)

	r.MustRegister(Tool{
		Name:        "create_category",
		Description: "Create a post category. The slug is derived from the name when not supplied.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":        map[string]any{"type": "string", "description": "Category name"},
				"slug":        map[string]any{"type": "string", "description": "URL slug; derived from name when omitted"},
				"description": map[string]any{"type": "string", "description": "Category description"},
				"parent_id":   map[string]any{"type": "string", "description": "Parent category id for nesting"},
			},
			"required": []string{"name"},
		},
	}, t.createCategory)

	r.MustRegister(Tool{
		Name:        "update_category",
		Description: "Update a category by id or slug. Only supplied fields change.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":          map[string]any{"type": "string", "description": "Category id (or supply slug)"},
				"slug":        map[string]any{"type": "string", "description": "Current slug (or supply id)"},
				"name":        map[string]any{"type": "string", "description": "New name"},
				"new_slug":    map[string]any{"type": "string", "description": "New slug"},
				"description": map[string]any{"type": "string", "description": "New description"},
			},
		},
	}, t.updateCategory)

	r.MustRegister(Tool{
		Name:        "delete_category",
		Description: "Delete a category by id or slug.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":   map[string]any{"type": "string", "description": "Category id (or supply slug)"},
				"slug": map[string]any{"type": "string", "description": "Category slug (or supply id)"},
			},
		},
	}, t.deleteCategory)
}

func (t *CategoryTools) listCategories(ctx context.Context, _ json.RawMessage) (any, error) {
	cats, err := t.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	return map[string]any{
		"categories": cats,
		"count":      len(cats),
	}, nil
}

func (t *CategoryTools) createCategory(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args struct {
		Name        string `json:"name"`
		Slug        string `json:"slug"`
		Description string `json:"description"`
		ParentID    string `json:"parent_id"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.Name == "" {
		return nil, errors.New("name is required")
	}

	slug := args.Slug
	if slug == "" {
		slug = textutil.Slug(args.Name)
	}

	cat := &content.Category{Name: args.Name, Slug: slug}
	if args.Description != "" {
		cat.Description = &args.Description
	}
	if args.ParentID != "" {
		cat.ParentID = &args.ParentID
	}

	created, err := t.store.CreateCategory(ctx, cat)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	return map[string]any{
		"category": created,
		"message":  fmt.Sprintf("Category %q created.", created.Name),
	}, nil
}

func (t *CategoryTools) updateCategory(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args struct {
		ID          string  `json:"id"`
		Slug        string  `json:"slug"`
		Name        *string `json:"name"`
		NewSlug     *string `json:"new_slug"`
		Description *string `json:"description"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.ID == "" && args.Slug == "" {
		return nil, errors.New("id or slug is required")
	}

	var updated *content.Category
	var err error
	if args.ID != "" {
		updated, err = t.store.UpdateCategoryByID(ctx, args.ID, args.Name, args.NewSlug, args.Description)
	} else {
		updated, err = t.store.UpdateCategoryBySlug(ctx, args.Slug, args.Name, args.NewSlug, args.Description)
	}
	if errors.Is(err, content.ErrNotFound) {
		return nil, errors.New("category not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	return map[string]any{
		"category": updated,
		"message":  fmt.Sprintf("Category %q updated.", updated.Name),
	}, nil
}

func (t *CategoryTools) deleteCategory(ctx context.Context, arguments json.RawMessage) (any, error) {
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
		err = t.store.DeleteCategoryByID(ctx, args.ID)
	} else {
		err = t.store.DeleteCategoryBySlug(ctx, args.Slug)
	}
	if errors.Is(err, content.ErrNotFound) {
		return nil, errors.New("category not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete category: %w", err)
	}

	return map[string]any{"message": "Category deleted."}, nil
}
