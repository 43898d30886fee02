package affiliate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/periospot/content-cloud/internal/logger"
)

// markdownTemplates renders a ready-to-paste snippet per link category.
// %s placeholders are name, then short URL.
var markdownTemplates = map[string]string{
	"books":       "[%s](%s) *(affiliate link)*",
	"equipment":   "**Recommended:** [%s](%s)",
	"courses":     "[Enroll in %s](%s)",
	"instruments": "[%s - View on Amazon](%s)",
	"software":    "[Try %s](%s)",
	"general":     "[%s](%s)",
}

const defaultMarkdownTemplate = "[%s](%s)"

// CreateResult is the outcome of one link creation.
type CreateResult struct {
	Link     *Link  `json:"link"`
	Markdown string `json:"markdown"`
}

// BatchItem is one request in a batch creation.
type BatchItem struct {
	Name      string `json:"name"`
	SourceURL string `json:"source_url"`
	Category  string `json:"category"`
}

// BatchOutcome is the per-item outcome of a batch. A failed item carries the
// name and error; it never stops the rest of the batch.
type BatchOutcome struct {
	Success  bool   `json:"success"`
	Name     string `json:"name"`
	Link     *Link  `json:"link,omitempty"`
	Markdown string `json:"markdown,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Service creates, persists, and renders affiliate links.
type Service struct {
	shortener  *ShortenerClient
	store      Store
	retailTag  string
	batchDelay time.Duration
	log        logger.Logger
}

// NewService creates the affiliate link service.
func NewService(shortener *ShortenerClient, store Store, retailTag string, batchDelay time.Duration, log logger.Logger) *Service {
	return &Service{
		shortener:  shortener,
		store:      store,
		retailTag:  retailTag,
		batchDelay: batchDelay,
		log:        log,
	}
}

// CreateLink tags the source URL, requests a short link, persists the
// record, and renders the markdown snippet.
func (s *Service) CreateLink(ctx context.Context, name, sourceURL, category string) (*CreateResult, error) {
	if name == "" || sourceURL == "" {
		return nil, errors.New("name and source url are required")
	}
	if category == "" {
		category = "general"
	}

	taggedURL, err := TagURL(sourceURL, s.retailTag)
	if err != nil {
		return nil, err
	}

	shortURL, code, err := s.shortener.Shorten(ctx, taggedURL)
	if err != nil {
		return nil, fmt.Errorf("shorten %s: %w", name, err)
	}

	stored, err := s.store.Upsert(ctx, &Link{
		Name:      name,
		Code:      code,
		Category:  category,
		SourceURL: sourceURL,
		TaggedURL: taggedURL,
		ShortURL:  shortURL,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("affiliate link created",
		logger.String("name", name),
		logger.String("code", code),
		logger.String("category", category))

	return &CreateResult{
		Link:     stored,
		Markdown: s.Markdown(stored),
	}, nil
}

// FromASIN builds the canonical Amazon product URL for an ASIN and creates a
// link for it.
func (s *Service) FromASIN(ctx context.Context, name, asin, category string) (*CreateResult, error) {
	asin = strings.ToUpper(strings.TrimSpace(asin))
	if len(asin) != 10 {
		return nil, fmt.Errorf("invalid asin %q: expected 10 characters", asin)
	}
	return s.CreateLink(ctx, name, "https://www.amazon.com/dp/"+asin, category)
}

// Batch creates links sequentially with a fixed inter-item delay. A failure
// on one item is recorded in its outcome and the batch continues.
func (s *Service) Batch(ctx context.Context, items []BatchItem) []BatchOutcome {
	outcomes := make([]BatchOutcome, 0, len(items))

	for i, item := range items {
		if i > 0 && s.batchDelay > 0 {
			select {
			case <-ctx.Done():
				outcomes = append(outcomes, BatchOutcome{
					Success: false,
					Name:    item.Name,
					Error:   ctx.Err().Error(),
				})
				continue
			case <-time.After(s.batchDelay):
			}
		}

		result, err := s.CreateLink(ctx, item.Name, item.SourceURL, item.Category)
		if err != nil {
			s.log.Warn("batch link failed",
				logger.String("name", item.Name),
				logger.Error(err))
			outcomes = append(outcomes, BatchOutcome{
				Success: false,
				Name:    item.Name,
				Error:   err.Error(),
			})
			continue
		}
		outcomes = append(outcomes, BatchOutcome{
			Success:  true,
			Name:     item.Name,
			Link:     result.Link,
			Markdown: result.Markdown,
		})
	}
	return outcomes
}

// Markdown renders the category-specific snippet for a link.
func (s *Service) Markdown(link *Link) string {
	template, ok := markdownTemplates[link.Category]
	if !ok {
		template = defaultMarkdownTemplate
	}
	return fmt.Sprintf(template, link.Name, link.ShortURL)
}
