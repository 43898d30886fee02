package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultSourceTimeout = 30 * time.Second

// MailerLiteSource reads subscribers from the MailerLite connect API using
// cursor pagination.
type MailerLiteSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewMailerLiteSource creates a source client. client may be nil.
func NewMailerLiteSource(baseURL, apiKey string, client *http.Client) *MailerLiteSource {
	if client == nil {
		client = &http.Client{Timeout: defaultSourceTimeout}
	}
	return &MailerLiteSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

type mailerLiteSubscriber struct {
	Email       string            `json:"email"`
	Status      string            `json:"status"`
	Source      string            `json:"source"`
	Sent        int               `json:"sent"`
	OpensCount  int               `json:"opens_count"`
	ClicksCount int               `json:"clicks_count"`
	Fields      map[string]string `json:"fields"`
	Groups      []struct {
		Name string `json:"name"`
	} `json:"groups"`
}

type mailerLitePage struct {
	Data []mailerLiteSubscriber `json:"data"`
	Meta struct {
		NextCursor string `json:"next_cursor"`
	} `json:"meta"`
}

// FetchPage requests one page of subscribers. An empty cursor starts from
// the beginning of the list.
func (s *MailerLiteSource) FetchPage(ctx context.Context, cursor string, limit int) (*Page, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("mailerlite api key is not configured")
	}

	query := url.Values{"limit": {strconv.Itoa(limit)}}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/subscribers?"+query.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build subscribers request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch subscribers page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch subscribers page: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page mailerLitePage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode subscribers page: %w", err)
	}

	records := make([]Record, 0, len(page.Data))
	for _, sub := range page.Data {
		records = append(records, normalizeSubscriber(sub))
	}

	return &Page{
		Records:    records,
		NextCursor: page.Meta.NextCursor,
		HasMore:    page.Meta.NextCursor != "",
	}, nil
}

func normalizeSubscriber(sub mailerLiteSubscriber) Record {
	rec := Record{
		Email:     strings.ToLower(strings.TrimSpace(sub.Email)),
		FirstName: sub.Fields["name"],
		LastName:  sub.Fields["last_name"],
		Source:    sub.Source,
		Stats: RecordStats{
			Sent:   sub.Sent,
			Opens:  sub.OpensCount,
			Clicks: sub.ClicksCount,
		},
	}
	if rec.Source == "" {
		rec.Source = "mailerlite"
	}
	for _, group := range sub.Groups {
		rec.Groups = append(rec.Groups, group.Name)
	}

	switch sub.Status {
	case "unsubscribed":
		rec.Status = StatusUnsubscribed
	case "bounced":
		rec.Status = StatusBounced
	default:
		rec.Status = StatusSubscribed
	}
	return rec
}
