package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultAudienceTimeout = 30 * time.Second

// ResendAudience writes subscribers into a Resend audience. Contact creation
// is an upsert keyed on email, so repeating a record is safe.
type ResendAudience struct {
	baseURL    string
	apiKey     string
	audienceID string
	client     *http.Client
}

// NewResendAudience creates an audience destination. client may be nil.
func NewResendAudience(baseURL, apiKey, audienceID string, client *http.Client) *ResendAudience {
	if client == nil {
		client = &http.Client{Timeout: defaultAudienceTimeout}
	}
	return &ResendAudience{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		audienceID: audienceID,
		client:     client,
	}
}

// Name identifies this destination in error messages.
func (a *ResendAudience) Name() string { return "resend" }

// Upsert creates or updates the contact in the configured audience.
func (a *ResendAudience) Upsert(ctx context.Context, rec Record) error {
	if a.apiKey == "" || a.audienceID == "" {
		return fmt.Errorf("resend audience is not configured")
	}

	payload, err := json.Marshal(map[string]any{
		"email":        rec.Email,
		"first_name":   rec.FirstName,
		"last_name":    rec.LastName,
		"unsubscribed": rec.Status != StatusSubscribed,
	})
	if err != nil {
		return fmt.Errorf("encode contact: %w", err)
	}

	endpoint := fmt.Sprintf("%s/audiences/%s/contacts", a.baseURL, a.audienceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build contact request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("upsert contact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upsert contact: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

var _ Destination = (*ResendAudience)(nil)
