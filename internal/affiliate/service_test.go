package affiliate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/periospot/content-cloud/internal/affiliate"
	"github.com/periospot/content-cloud/internal/logger"
)

const testTag = "advaimpldigid-20"

// memoryStore keeps links in a map keyed by code.
type memoryStore struct {
	links map[string]*affiliate.Link
}

func newMemoryStore() *memoryStore {
	return &memoryStore{links: make(map[string]*affiliate.Link)}
}

func (m *memoryStore) Upsert(_ context.Context, link *affiliate.Link) (*affiliate.Link, error) {
	stored := *link
	if existing, ok := m.links[link.Code]; ok {
		stored.Clicks = existing.Clicks
	}
	m.links[link.Code] = &stored
	return &stored, nil
}

func (m *memoryStore) GetByCode(_ context.Context, code string) (*affiliate.Link, error) {
	link, ok := m.links[code]
	if !ok {
		return nil, affiliate.ErrNotFound
	}
	return link, nil
}

func (m *memoryStore) List(_ context.Context, category string) ([]affiliate.Link, error) {
	var out []affiliate.Link
	for _, link := range m.links {
		if category == "" || link.Category == category {
			out = append(out, *link)
		}
	}
	return out, nil
}

func (m *memoryStore) IncrementClicks(_ context.Context, code string) error {
	link, ok := m.links[code]
	if !ok {
		return affiliate.ErrNotFound
	}
	link.Clicks++
	return nil
}

func (m *memoryStore) DeleteByCode(_ context.Context, code string) error {
	if _, ok := m.links[code]; !ok {
		return affiliate.ErrNotFound
	}
	delete(m.links, code)
	return nil
}

func newShortenerServer(t *testing.T, failURLs map[string]bool) (*httptest.Server, *affiliate.ShortenerClient) {
	t.Helper()

	counter := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			URL string `json:"url"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if failURLs[body.URL] {
			http.Error(w, "rejected", http.StatusUnprocessableEntity)
			return
		}
		counter++
		_ = json.NewEncoder(w).Encode(map[string]string{
			"shorturl": "https://geni.us/code" + string(rune('a'+counter-1)),
		})
	}))
	t.Cleanup(srv.Close)

	return srv, affiliate.NewShortenerClient(srv.URL, "key", "secret", "group-1", srv.Client())
}

func TestTagURL(t *testing.T) {
	t.Helper()

	testCases := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "adds tag to amazon url",
			source: "https://www.amazon.com/dp/B0EXAMPLE1",
			want:   "https://www.amazon.com/dp/B0EXAMPLE1?tag=" + testTag,
		},
		{
			name:   "replaces existing tag",
			source: "https://www.amazon.com/dp/B0EXAMPLE1?tag=other-21",
			want:   "https://www.amazon.com/dp/B0EXAMPLE1?tag=" + testTag,
		},
		{
			name:   "keeps other query params",
			source: "https://www.amazon.es/dp/B0EXAMPLE1?ref=sr_1_1",
			want:   "https://www.amazon.es/dp/B0EXAMPLE1?ref=sr_1_1&tag=" + testTag,
		},
		{
			name:   "non-amazon url passes through",
			source: "https://shop.example.com/product/1",
			want:   "https://shop.example.com/product/1",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := affiliate.TagURL(tc.source, testTag)
			if err != nil {
				t.Fatalf("TagURL() error: %v", err)
			}
			if got != tc.want {
				t.Errorf("TagURL() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTagURL_IsIdempotent(t *testing.T) {
	t.Helper()

	once, err := affiliate.TagURL("https://www.amazon.com/dp/B0EXAMPLE1", testTag)
	if err != nil {
		t.Fatalf("TagURL() error: %v", err)
	}
	twice, err := affiliate.TagURL(once, testTag)
	if err != nil {
		t.Fatalf("TagURL() error: %v", err)
	}
	if once != twice {
		t.Errorf("re-tagging changed the url: %q vs %q", once, twice)
	}
	if strings.Count(twice, "tag=") != 1 {
		t.Errorf("duplicate tag parameter in %q", twice)
	}
}

func TestCreateLink(t *testing.T) {
	t.Helper()

	_, shortener := newShortenerServer(t, nil)
	store := newMemoryStore()
	svc := affiliate.NewService(shortener, store, testTag, 0, logger.NewNop())

	result, err := svc.CreateLink(context.Background(), "Perio Textbook", "https://www.amazon.com/dp/B0EXAMPLE1", "books")
	if err != nil {
		t.Fatalf("CreateLink() error: %v", err)
	}

	if result.Link.Code != "codea" {
		t.Errorf("code = %q", result.Link.Code)
	}
	if !strings.Contains(result.Link.TaggedURL, "tag="+testTag) {
		t.Errorf("tagged url = %q", result.Link.TaggedURL)
	}
	if result.Markdown != "[Perio Textbook](https://geni.us/codea) *(affiliate link)*" {
		t.Errorf("markdown = %q, want books template", result.Markdown)
	}

	if _, err := store.GetByCode(context.Background(), "codea"); err != nil {
		t.Errorf("link was not persisted: %v", err)
	}
}

func TestCreateLink_RequiresNameAndURL(t *testing.T) {
	t.Helper()

	_, shortener := newShortenerServer(t, nil)
	svc := affiliate.NewService(shortener, newMemoryStore(), testTag, 0, logger.NewNop())

	if _, err := svc.CreateLink(context.Background(), "", "https://example.com", ""); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := svc.CreateLink(context.Background(), "x", "", ""); err == nil {
		t.Error("expected error for missing url")
	}
}

func TestFromASIN(t *testing.T) {
	t.Helper()

	_, shortener := newShortenerServer(t, nil)
	store := newMemoryStore()
	svc := affiliate.NewService(shortener, store, testTag, 0, logger.NewNop())

	result, err := svc.FromASIN(context.Background(), "Curette Set", "b0example1", "equipment")
	if err != nil {
		t.Fatalf("FromASIN() error: %v", err)
	}
	if result.Link.SourceURL != "https://www.amazon.com/dp/B0EXAMPLE1" {
		t.Errorf("source url = %q", result.Link.SourceURL)
	}

	if _, err := svc.FromASIN(context.Background(), "Bad", "short", ""); err == nil {
		t.Error("expected error for malformed asin")
	}
}

func TestBatch_ContinuesPastFailures(t *testing.T) {
	t.Helper()

	failing := "https://www.amazon.com/dp/B0BROKEN01?tag=" + testTag
	_, shortener := newShortenerServer(t, map[string]bool{failing: true})
	svc := affiliate.NewService(shortener, newMemoryStore(), testTag, 0, logger.NewNop())

	outcomes := svc.Batch(context.Background(), []affiliate.BatchItem{
		{Name: "First", SourceURL: "https://www.amazon.com/dp/B0EXAMPLE1", Category: "books"},
		{Name: "Broken", SourceURL: "https://www.amazon.com/dp/B0BROKEN01", Category: "books"},
		{Name: "Third", SourceURL: "https://www.amazon.com/dp/B0EXAMPLE2", Category: "courses"},
	})

	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}
	if !outcomes[0].Success || outcomes[0].Link == nil {
		t.Errorf("first outcome = %+v", outcomes[0])
	}
	if outcomes[1].Success || outcomes[1].Name != "Broken" || outcomes[1].Error == "" {
		t.Errorf("second outcome = %+v", outcomes[1])
	}
	if !outcomes[2].Success {
		t.Errorf("third outcome = %+v, batch should continue past failures", outcomes[2])
	}
}

func TestMarkdown_Templates(t *testing.T) {
	t.Helper()

	svc := affiliate.NewService(nil, nil, testTag, 0, logger.NewNop())

	tests := []struct {
		category string
		want     string
	}{
		{"books", "[Thing](https://geni.us/x) *(affiliate link)*"},
		{"equipment", "**Recommended:** [Thing](https://geni.us/x)"},
		{"courses", "[Enroll in Thing](https://geni.us/x)"},
		{"instruments", "[Thing - View on Amazon](https://geni.us/x)"},
		{"software", "[Try Thing](https://geni.us/x)"},
		{"general", "[Thing](https://geni.us/x)"},
		{"misc", "[Thing](https://geni.us/x)"},
	}
	for _, tt := range tests {
		md := svc.Markdown(&affiliate.Link{Name: "Thing", ShortURL: "https://geni.us/x", Category: tt.category})
		if md != tt.want {
			t.Errorf("%s markdown = %q, want %q", tt.category, md, tt.want)
		}
	}
}
