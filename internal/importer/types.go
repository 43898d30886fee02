// Package importer reconciles a subscriber list from a paginated mailing
// list API into the local database and a transactional email audience.
package importer

import "context"

// Record statuses as normalized from the source API.
const (
	StatusSubscribed   = "subscribed"
	StatusUnsubscribed = "unsubscribed"
	StatusBounced      = "bounced"
)

// RecordStats carries engagement counters from the source system.
type RecordStats struct {
	Sent   int `json:"sent"`
	Opens  int `json:"opens"`
	Clicks int `json:"clicks"`
}

// Record is one subscriber as read from the source API. Email is the unique
// key across all destinations.
type Record struct {
	Email     string      `json:"email"`
	FirstName string      `json:"first_name,omitempty"`
	LastName  string      `json:"last_name,omitempty"`
	Status    string      `json:"status"`
	Source    string      `json:"source"`
	Groups    []string    `json:"groups,omitempty"`
	Stats     RecordStats `json:"stats"`
}

// Page is one page of source records. An empty NextCursor with HasMore false
// means the list is exhausted.
type Page struct {
	Records    []Record `json:"records"`
	NextCursor string   `json:"next_cursor"`
	HasMore    bool     `json:"has_more"`
}

// Source fetches subscriber pages. An empty cursor means start of list.
type Source interface {
	FetchPage(ctx context.Context, cursor string, limit int) (*Page, error)
}

// Destination receives records idempotently. Upsert must be safe to repeat
// for the same email so that resuming a partial batch never duplicates rows.
type Destination interface {
	Name() string
	Upsert(ctx context.Context, rec Record) error
}

// BatchResult accounts for one processed page. Every record in the page is
// counted into exactly one of Imported, Skipped, or Failed. Errors holds a
// capped sample; Failed is the true total.
type BatchResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// Add merges another batch's counts into the receiver, respecting the error
// sample cap.
func (r *BatchResult) Add(other BatchResult, maxErrors int) {
	r.Imported += other.Imported
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	for _, msg := range other.Errors {
		if len(r.Errors) >= maxErrors {
			break
		}
		r.Errors = append(r.Errors, msg)
	}
}

// Options controls one import run.
type Options struct {
	BatchSize        int  `json:"batch_size"`
	SkipUnsubscribed bool `json:"skip_unsubscribed"`
	ToDatabase       bool `json:"import_to_database"`
	ToAudience       bool `json:"import_to_audience"`
}
