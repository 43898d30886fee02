package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/periospot/content-cloud/internal/content"
	"github.com/periospot/content-cloud/internal/textutil"
)

// SubscriberTools exposes newsletter subscriber management over MCP.
type SubscriberTools struct {
	store content.Store
}

// RegisterSubscriberTools adds the subscriber tools to the registry.
func RegisterSubscriberTools(r *Registry, store content.Store) {
	t := &SubscriberTools{store: store}

	r.MustRegister(Tool{
		Name:        "add_subscriber",
		Description: "Add a newsletter subscriber. Re-adding an existing email reactivates it instead of failing.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"email":  map[string]any{"type": "string", "description": "Subscriber email address"},
				"name":   map[string]any{"type": "string", "description": "Subscriber display name"},
				"source": map[string]any{"type": "string", "description": "Where the signup came from (default 'mcp')"},
				"tags": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Subscriber tags",
				},
			},
			"required": []string{"email"},
		},
	}, t.addSubscriber)

	r.MustRegister(Tool{
		Name:        "list_subscribers",
		Description: "List subscribers with optional status, tag, and search filters.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"status": map[string]any{
					"type":        "string",
					"description": "Filter by status; omit or use 'all' for any",
					"enum":        []string{"all", "active", "unsubscribed", "bounced"},
				},
				"tag":    map[string]any{"type": "string", "description": "Filter by tag"},
				"search": map[string]any{"type": "string", "description": "Match against email and name"},
				"limit":  map[string]any{"type": "integer", "description": "Page size (default 50, max 500)"},
				"offset": map[string]any{"type": "integer", "description": "Page offset"},
			},
		},
	}, t.listSubscribers)

	r.MustRegister(Tool{
		Name:        "update_subscriber",
		Description: "Update a subscriber's name, status, or tags by id or email.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":    map[string]any{"type": "string", "description": "Subscriber id (or supply email)"},
				"email": map[string]any{"type": "string", "description": "Subscriber email (or supply id)"},
				"name":  map[string]any{"type": "string", "description": "New name"},
				"status": map[string]any{
					"type": "string",
					"enum": []string{"active", "unsubscribed", "bounced"},
				},
				"tags": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
		},
	}, t.updateSubscriber)

	r.MustRegister(Tool{
		Name:        "unsubscribe",
		Description: "Mark a subscriber as unsubscribed by email.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"email": map[string]any{"type": "string", "description": "Subscriber email address"},
			},
			"required": []string{"email"},
		},
	}, t.unsubscribe)

	r.MustRegister(Tool{
		Name:        "get_subscriber_stats",
		Description: "Aggregate subscriber counts by status plus this month's signups.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}, t.subscriberStats)
}

func (t *SubscriberTools) addSubscriber(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args struct {
		Email  string   `json:"email"`
		Name   string   `json:"name"`
		Source string   `json:"source"`
		Tags   []string `json:"tags"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	email := strings.TrimSpace(strings.ToLower(args.Email))
	if !textutil.IsValidEmail(email) {
		return nil, fmt.Errorf("invalid email address: %q", args.Email)
	}

	// Re-adding an existing subscriber reactivates rather than erroring,
	// so repeated signups are idempotent.
	existing, err := t.store.GetSubscriberByEmail(ctx, email)
	if err != nil && !errors.Is(err, content.ErrNotFound) {
		return nil, fmt.Errorf("failed to check subscriber: %w", err)
	}
	if existing != nil {
		status := content.SubscriberActive
		var name *string
		if args.Name != "" {
			name = &args.Name
		}
		updated, updErr := t.store.UpdateSubscriberByEmail(ctx, email, name, &status, args.Tags)
		if updErr != nil {
			return nil, fmt.Errorf("failed to reactivate subscriber: %w", updErr)
		}
		return map[string]any{
			"subscriber": updated,
			"message":    fmt.Sprintf("Subscriber %s reactivated.", email),
		}, nil
	}

	source := args.Source
	if source == "" {
		source = "mcp"
	}
	sub := &content.Subscriber{
		Email:  email,
		Source: &source,
		Tags:   args.Tags,
		Status: content.SubscriberActive,
	}
	if args.Name != "" {
		sub.Name = &args.Name
	}

	created, err := t.store.InsertSubscriber(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("failed to add subscriber: %w", err)
	}

	return map[string]any{
		"subscriber": created,
		"message":    fmt.Sprintf("Subscriber %s added.", email),
	}, nil
}

func (t *SubscriberTools) listSubscribers(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args struct {
		Status string `json:"status"`
		Tag    string `json:"tag"`
		Search string `json:"search"`
		Limit  int    `json:"limit"`
		Offset int    `json:"offset"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	subs, total, err := t.store.ListSubscribers(ctx, content.SubscriberFilter{
		Status: args.Status,
		Tag:    args.Tag,
		Search: args.Search,
		Limit:  args.Limit,
		Offset: args.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}

	return map[string]any{
		"subscribers": subs,
		"count":       len(subs),
		"total":       total,
	}, nil
}

func (t *SubscriberTools) updateSubscriber(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args struct {
		ID     string    `json:"id"`
		Email  string    `json:"email"`
		Name   *string   `json:"name"`
		Status *string   `json:"status"`
		Tags   *[]string `json:"tags"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.ID == "" && args.Email == "" {
		return nil, errors.New("id or email is required")
	}

	var tags []string
	if args.Tags != nil {
		tags = *args.Tags
	}

	var updated *content.Subscriber
	var err error
	if args.ID != "" {
		updated, err = t.store.UpdateSubscriberByID(ctx, args.ID, args.Name, args.Status, tags)
	} else {
		updated, err = t.store.UpdateSubscriberByEmail(ctx, args.Email, args.Name, args.Status, tags)
	}
	if errors.Is(err, content.ErrNotFound) {
		return nil, errors.New("subscriber not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update subscriber: %w", err)
	}

	return map[string]any{
		"subscriber": updated,
		"message":    "Subscriber updated.",
	}, nil
}

func (t *SubscriberTools) unsubscribe(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.Email == "" {
		return nil, errors.New("email is required")
	}

	if err := t.store.Unsubscribe(ctx, args.Email); err != nil {
		return nil, fmt.Errorf("failed to unsubscribe: %w", err)
	}

	return map[string]any{
		"message": fmt.Sprintf("%s unsubscribed.", strings.ToLower(args.Email)),
	}, nil
}

func (t *SubscriberTools) subscriberStats(ctx context.Context, _ json.RawMessage) (any, error) {
	stats, err := t.store.GetSubscriberStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriber stats: %w", err)
	}

	return map[string]any{"stats": stats}, nil
}
