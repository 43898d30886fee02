package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/periospot/content-cloud/internal/affiliate"
	"github.com/periospot/content-cloud/internal/handler"
	"github.com/periospot/content-cloud/internal/logger"
)

// memoryLinkStore is an in-memory affiliate.Store keyed by code.
type memoryLinkStore struct {
	links map[string]*affiliate.Link
}

func newMemoryLinkStore() *memoryLinkStore {
	return &memoryLinkStore{links: make(map[string]*affiliate.Link)}
}

func (s *memoryLinkStore) Upsert(_ context.Context, link *affiliate.Link) (*affiliate.Link, error) {
	if existing, ok := s.links[link.Code]; ok {
		link.Clicks = existing.Clicks
	}
	stored := *link
	s.links[link.Code] = &stored
	return &stored, nil
}

func (s *memoryLinkStore) GetByCode(_ context.Context, code string) (*affiliate.Link, error) {
	link, ok := s.links[code]
	if !ok {
		return nil, affiliate.ErrNotFound
	}
	return link, nil
}

func (s *memoryLinkStore) List(_ context.Context, category string) ([]affiliate.Link, error) {
	var out []affiliate.Link
	for _, link := range s.links {
		if category == "" || link.Category == category {
			out = append(out, *link)
		}
	}
	return out, nil
}

func (s *memoryLinkStore) IncrementClicks(_ context.Context, code string) error {
	link, ok := s.links[code]
	if !ok {
		return affiliate.ErrNotFound
	}
	link.Clicks++
	return nil
}

func (s *memoryLinkStore) DeleteByCode(_ context.Context, code string) error {
	if _, ok := s.links[code]; !ok {
		return affiliate.ErrNotFound
	}
	delete(s.links, code)
	return nil
}

func newLinksRouter(t *testing.T) (*gin.Engine, *memoryLinkStore) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	count := 0
	shortener := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count++
		fmt.Fprintf(w, `{"shorturl":"https://geni.us/code%d"}`, count)
	}))
	t.Cleanup(shortener.Close)

	store := newMemoryLinkStore()
	client := affiliate.NewShortenerClient(shortener.URL, "key", "secret", "42", shortener.Client())
	service := affiliate.NewService(client, store, "advaimpldigid-20", 0, logger.NewNop())
	h := handler.NewLinksHandler(service, store, logger.NewNop())

	router := gin.New()
	router.GET("/l/:code", h.Redirect)
	router.POST("/api/links", h.Create)
	router.POST("/api/links/asin", h.CreateFromASIN)
	router.POST("/api/links/batch", h.Batch)
	router.GET("/api/links", h.List)
	router.DELETE("/api/links/:code", h.Delete)
	return router, store
}

func TestLinksCreateAndList(t *testing.T) {
	router, _ := newLinksRouter(t)

	payload := `{"name":"Implant Guide","source_url":"https://www.amazon.com/dp/B0EXAMPLE1","category":"books"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/links", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "tag=advaimpldigid-20") {
		t.Errorf("tagged URL missing retail tag: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/links?category=books", http.NoBody)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"count":1`) {
		t.Errorf("list body = %s", w.Body.String())
	}
}

func TestLinksCreate_BadBody(t *testing.T) {
	router, _ := newLinksRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/links", strings.NewReader("nope"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestLinksCreateFromASIN(t *testing.T) {
	router, store := newLinksRouter(t)

	payload := `{"name":"Perio Textbook","asin":"b0textbook","category":"books"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/links/asin", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	link, err := store.GetByCode(context.Background(), "code1")
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if !strings.Contains(link.SourceURL, "/dp/B0TEXTBOOK") {
		t.Errorf("source URL = %q, want uppercased ASIN path", link.SourceURL)
	}
}

func TestLinksBatch_RequiresItems(t *testing.T) {
	router, _ := newLinksRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/links/batch", strings.NewReader(`{"items":[]}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestLinksRedirect(t *testing.T) {
	router, store := newLinksRouter(t)

	_, err := store.Upsert(context.Background(), &affiliate.Link{
		Code:      "abc",
		TaggedURL: "https://www.amazon.com/dp/B0EXAMPLE1?tag=advaimpldigid-20",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/l/abc", http.NoBody)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "https://www.amazon.com/dp/B0EXAMPLE1?tag=advaimpldigid-20" {
		t.Errorf("Location = %q", loc)
	}

	link, _ := store.GetByCode(context.Background(), "abc")
	if link.Clicks != 1 {
		t.Errorf("clicks = %d, want 1", link.Clicks)
	}
}

func TestLinksRedirect_UnknownCode(t *testing.T) {
	router, _ := newLinksRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/l/nope", http.NoBody)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestLinksDelete(t *testing.T) {
	router, store := newLinksRouter(t)

	_, _ = store.Upsert(context.Background(), &affiliate.Link{Code: "gone"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/links/gone", http.NoBody)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/links/gone", http.NoBody)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}
