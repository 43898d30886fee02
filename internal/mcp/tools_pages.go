package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/periospot/content-cloud/internal/textutil"
)

// pageFetchTimeout bounds a single page download.
const pageFetchTimeout = 15 * time.Second

// PageTools inspects live site pages for content review.
type PageTools struct {
	client  *http.Client
	siteURL string
}

// RegisterPageTools adds the page inspection tools to the registry.
func RegisterPageTools(r *Registry, client *http.Client, siteURL string) {
	if client == nil {
		client = &http.Client{Timeout: pageFetchTimeout}
	}
	t := &PageTools{client: client, siteURL: strings.TrimRight(siteURL, "/")}

	r.MustRegister(Tool{
		Name:        "analyze_page",
		Description: "Fetch a page and report its title, meta description, heading structure, word count, and link/image totals.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{"type": "string", "description": "Absolute page URL, or a path resolved against the site URL"},
			},
			"required": []string{"url"},
		},
	}, t.analyzePage)

	r.MustRegister(Tool{
		Name:        "get_page_images",
		Description: "List all images on a page with their src, alt text, and whether alt text is missing.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{"type": "string", "description": "Absolute page URL, or a path resolved against the site URL"},
			},
			"required": []string{"url"},
		},
	}, t.pageImages)

	r.MustRegister(Tool{
		Name:        "get_page_links",
		Description: "List all links on a page, split into internal and external.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{"type": "string", "description": "Absolute page URL, or a path resolved against the site URL"},
			},
			"required": []string{"url"},
		},
	}, t.pageLinks)

	r.MustRegister(Tool{
		Name:        "get_site_structure",
		Description: "Fetch a page (site root by default) and group its internal links by top-level section.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{"type": "string", "description": "Starting page; defaults to the site root"},
			},
		},
	}, t.siteStructure)
}

func (t *PageTools) fetch(ctx context.Context, rawURL string) (*goquery.Document, *url.URL, error) {
	pageURL, err := t.resolveURL(rawURL)
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), http.NoBody)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", ServerName+"/"+ServerVersion)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("fetch page: unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, pageURL, nil
}

// resolveURL accepts absolute URLs or site-relative paths.
func (t *PageTools) resolveURL(rawURL string) (*url.URL, error) {
	if strings.HasPrefix(rawURL, "/") {
		rawURL = t.siteURL + rawURL
	}
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if pageURL.Scheme != "http" && pageURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", pageURL.Scheme)
	}
	return pageURL, nil
}

func (t *PageTools) analyzePage(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.URL == "" {
		return nil, errors.New("url is required")
	}

	doc, pageURL, err := t.fetch(ctx, args.URL)
	if err != nil {
		return nil, err
	}

	metaDescription, _ := doc.Find(`meta[name="description"]`).Attr("content")
	bodyText := doc.Find("body").Text()

	headings := map[string]int{}
	for _, level := range []string{"h1", "h2", "h3"} {
		headings[level] = doc.Find(level).Length()
	}

	internal, external := splitLinks(doc, pageURL)

	return map[string]any{
		"url":              pageURL.String(),
		"title":            strings.TrimSpace(doc.Find("title").First().Text()),
		"meta_description": metaDescription,
		"headings":         headings,
		"word_count":       len(strings.Fields(bodyText)),
		"reading_time":     textutil.ReadingTime(bodyText),
		"image_count":      doc.Find("img").Length(),
		"internal_links":   len(internal),
		"external_links":   len(external),
	}, nil
}

func (t *PageTools) pageImages(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.URL == "" {
		return nil, errors.New("url is required")
	}

	doc, pageURL, err := t.fetch(ctx, args.URL)
	if err != nil {
		return nil, err
	}

	var images []map[string]any
	missingAlt := 0
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		if src == "" {
			return
		}
		alt, _ := sel.Attr("alt")
		if alt == "" {
			missingAlt++
		}
		images = append(images, map[string]any{
			"src":         absoluteURL(pageURL, src),
			"alt":         alt,
			"missing_alt": alt == "",
		})
	})

	return map[string]any{
		"url":         pageURL.String(),
		"images":      images,
		"count":       len(images),
		"missing_alt": missingAlt,
	}, nil
}

func (t *PageTools) pageLinks(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.URL == "" {
		return nil, errors.New("url is required")
	}

	doc, pageURL, err := t.fetch(ctx, args.URL)
	if err != nil {
		return nil, err
	}

	internal, external := splitLinks(doc, pageURL)

	return map[string]any{
		"url":            pageURL.String(),
		"internal":       internal,
		"external":       external,
		"internal_count": len(internal),
		"external_count": len(external),
	}, nil
}

func (t *PageTools) siteStructure(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	start := args.URL
	if start == "" {
		start = t.siteURL
	}

	doc, pageURL, err := t.fetch(ctx, start)
	if err != nil {
		return nil, err
	}

	internal, _ := splitLinks(doc, pageURL)

	sections := map[string][]string{}
	for _, link := range internal {
		parsed, parseErr := url.Parse(link)
		if parseErr != nil {
			continue
		}
		segment := "/"
		if parts := strings.SplitN(strings.Trim(parsed.Path, "/"), "/", 2); parts[0] != "" {
			segment = parts[0]
		}
		sections[segment] = append(sections[segment], link)
	}

	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)

	structure := make([]map[string]any, 0, len(names))
	for _, name := range names {
		structure = append(structure, map[string]any{
			"section": name,
			"pages":   sections[name],
			"count":   len(sections[name]),
		})
	}

	return map[string]any{
		"url":      pageURL.String(),
		"sections": structure,
	}, nil
}

// splitLinks partitions a page's anchors into same-host and external sets,
// deduplicated, preserving document order.
func splitLinks(doc *goquery.Document, pageURL *url.URL) (internal, external []string) {
	seen := map[string]bool{}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(href, "javascript:") {
			return
		}

		absolute := absoluteURL(pageURL, href)
		if absolute == "" || seen[absolute] {
			return
		}
		seen[absolute] = true

		parsed, err := url.Parse(absolute)
		if err != nil {
			return
		}
		if parsed.Host == pageURL.Host {
			internal = append(internal, absolute)
		} else {
			external = append(external, absolute)
		}
	})

	return internal, external
}

func absoluteURL(base *url.URL, ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(parsed).String()
}
