// Package affiliate turns product URLs into tagged, trackable short links
// and keeps a persisted record of every link created.
package affiliate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultShortenerTimeout = 15 * time.Second

// ShortenerClient talks to the Genius Link short URL API.
type ShortenerClient struct {
	baseURL   string
	apiKey    string
	apiSecret string
	groupID   string
	client    *http.Client
}

// NewShortenerClient creates a shortener client. client may be nil.
func NewShortenerClient(baseURL, apiKey, apiSecret, groupID string, client *http.Client) *ShortenerClient {
	if client == nil {
		client = &http.Client{Timeout: defaultShortenerTimeout}
	}
	return &ShortenerClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		groupID:   groupID,
		client:    client,
	}
}

type shortURLResponse struct {
	ShortURL string `json:"shorturl"`
}

// Shorten requests a short URL for the tagged source URL and returns the
// short URL plus its trailing code.
func (c *ShortenerClient) Shorten(ctx context.Context, taggedURL string) (shortURL, code string, err error) {
	if c.apiKey == "" || c.apiSecret == "" {
		return "", "", fmt.Errorf("shortener credentials are not configured")
	}

	payload, err := json.Marshal(map[string]any{
		"url":     taggedURL,
		"groupId": c.groupID,
	})
	if err != nil {
		return "", "", fmt.Errorf("encode short url request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v3/shorturls", bytes.NewReader(payload))
	if err != nil {
		return "", "", fmt.Errorf("build short url request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, c.apiSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("create short url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", "", fmt.Errorf("create short url: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed shortURLResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", "", fmt.Errorf("decode short url response: %w", err)
	}
	if parsed.ShortURL == "" {
		return "", "", fmt.Errorf("short url response carries no url")
	}

	code, err = codeFromShortURL(parsed.ShortURL)
	if err != nil {
		return "", "", err
	}
	return parsed.ShortURL, code, nil
}

func codeFromShortURL(shortURL string) (string, error) {
	parsed, err := url.Parse(shortURL)
	if err != nil {
		return "", fmt.Errorf("invalid short url %q: %w", shortURL, err)
	}
	code := strings.Trim(parsed.Path, "/")
	if code == "" {
		return "", fmt.Errorf("short url %q carries no code", shortURL)
	}
	return code, nil
}

// TagURL injects the retailer tracking tag into an Amazon product URL,
// replacing any tag already present. Non-Amazon URLs pass through untouched.
func TagURL(sourceURL, tag string) (string, error) {
	parsed, err := url.Parse(sourceURL)
	if err != nil {
		return "", fmt.Errorf("invalid source url %q: %w", sourceURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}

	if !isAmazonHost(parsed.Host) || tag == "" {
		return parsed.String(), nil
	}

	query := parsed.Query()
	query.Del("tag")
	query.Set("tag", tag)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func isAmazonHost(host string) bool {
	host = strings.ToLower(host)
	return strings.Contains(host, "amazon.") || strings.HasSuffix(host, "amzn.to")
}
