package importer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/periospot/content-cloud/internal/logger"
	"github.com/periospot/content-cloud/internal/retry"
)

// Pipeline states.
const (
	StateIdle      = "idle"
	StateRunning   = "running"
	StatePaused    = "paused"
	StateCompleted = "completed"
)

// totalErrorSample caps the error strings retained across a whole run.
// Failed always reflects the true count.
const totalErrorSample = 25

// Status is a snapshot of the pipeline for the admin surface.
type Status struct {
	RunID     string      `json:"run_id,omitempty"`
	State     string      `json:"state"`
	Cursor    string      `json:"cursor,omitempty"`
	HasMore   bool        `json:"has_more"`
	Totals    BatchResult `json:"totals"`
	LastError string      `json:"last_error,omitempty"`
}

// Pipeline pulls subscriber pages from the source and reconciles them into
// the enabled destinations, batch by batch, strictly in cursor order.
type Pipeline struct {
	source         Source
	database       Destination
	audience       Destination
	log            logger.Logger
	maxErrorSample int
	batchDelay     time.Duration
	retryCfg       retry.Config

	mu        sync.Mutex
	state     string
	cursor    string
	hasMore   bool
	totals    BatchResult
	lastError string
	paused    bool
	runID     string
	startedAt time.Time

	runs RunStore
}

// NewPipeline creates an import pipeline. database and audience may each be
// nil when that destination is not configured; Options still gates them per
// run.
func NewPipeline(source Source, database, audience Destination, maxErrorSample int, batchDelay time.Duration, log logger.Logger) *Pipeline {
	if maxErrorSample <= 0 {
		maxErrorSample = 5
	}
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = 2

	return &Pipeline{
		source:         source,
		database:       database,
		audience:       audience,
		log:            log,
		maxErrorSample: maxErrorSample,
		batchDelay:     batchDelay,
		retryCfg:       retryCfg,
		state:          StateIdle,
	}
}

// SetRunStore attaches a store that receives run snapshots as the loop
// progresses. Persistence is best effort; the pipeline keeps running when a
// save fails.
func (p *Pipeline) SetRunStore(runs RunStore) {
	p.runs = runs
}

// persistRun saves the current run snapshot. Called outside the mutex with a
// snapshot taken under it.
func (p *Pipeline) persistRun(ctx context.Context, run Run) {
	if p.runs == nil || run.ID == "" {
		return
	}
	if err := p.runs.Save(ctx, &run); err != nil {
		p.log.Warn("failed to persist import run",
			logger.String("run_id", run.ID),
			logger.Error(err))
	}
}

// snapshotRun builds a Run from the current state. Caller holds the mutex.
func (p *Pipeline) snapshotRun() Run {
	return Run{
		ID:        p.runID,
		State:     p.state,
		Cursor:    p.cursor,
		HasMore:   p.hasMore,
		Imported:  p.totals.Imported,
		Skipped:   p.totals.Skipped,
		Failed:    p.totals.Failed,
		Errors:    append([]string(nil), p.totals.Errors...),
		LastError: p.lastError,
		StartedAt: p.startedAt,
	}
}

// Preview fetches one page from the source without writing anywhere.
func (p *Pipeline) Preview(ctx context.Context, cursor string, limit int) (*Page, error) {
	if limit <= 0 {
		limit = 10
	}
	return p.source.FetchPage(ctx, cursor, limit)
}

// RunBatch processes exactly one page starting at cursor and reports the
// next cursor. It holds no pipeline state; the HTTP batch endpoint drives it
// directly and Start drives it in a loop.
func (p *Pipeline) RunBatch(ctx context.Context, cursor string, opts Options) (BatchResult, string, bool, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	page, err := p.source.FetchPage(ctx, cursor, batchSize)
	if err != nil {
		return BatchResult{}, cursor, false, fmt.Errorf("fetch page: %w", err)
	}

	var result BatchResult
	for _, rec := range page.Records {
		p.processRecord(ctx, rec, opts, &result)
	}

	p.log.Info("import batch processed",
		logger.Int("records", len(page.Records)),
		logger.Int("imported", result.Imported),
		logger.Int("skipped", result.Skipped),
		logger.Int("failed", result.Failed),
		logger.Bool("has_more", page.HasMore))

	// An empty page with more data still advances the cursor so the run
	// never spins on the same position.
	return result, page.NextCursor, page.HasMore, nil
}

// processRecord writes one record to every enabled destination. The record
// counts as imported only when all enabled writes succeed.
func (p *Pipeline) processRecord(ctx context.Context, rec Record, opts Options, result *BatchResult) {
	if opts.SkipUnsubscribed && rec.Status == StatusUnsubscribed {
		result.Skipped++
		return
	}

	var destinations []Destination
	if opts.ToDatabase && p.database != nil {
		destinations = append(destinations, p.database)
	}
	if opts.ToAudience && p.audience != nil {
		destinations = append(destinations, p.audience)
	}
	if len(destinations) == 0 {
		result.Skipped++
		return
	}

	for _, dest := range destinations {
		err := retry.Retry(ctx, p.retryCfg, func() error {
			return dest.Upsert(ctx, rec)
		})
		if err != nil {
			result.Failed++
			if len(result.Errors) < p.maxErrorSample {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %s: %v", rec.Email, dest.Name(), err))
			}
			p.log.Warn("destination write failed",
				logger.String("email", rec.Email),
				logger.String("destination", dest.Name()),
				logger.Error(err))
			return
		}
	}
	result.Imported++
}

// Start begins the batch loop, or resumes it from the retained cursor when
// the pipeline is paused. It returns when the source is exhausted, a page
// fetch fails, the context ends, or a pause takes effect.
func (p *Pipeline) Start(ctx context.Context, opts Options) error {
	p.mu.Lock()
	if p.state == StateRunning {
		p.mu.Unlock()
		return fmt.Errorf("import is already running")
	}
	if p.state != StatePaused {
		// Fresh run from the beginning of the list.
		p.cursor = ""
		p.totals = BatchResult{}
		p.lastError = ""
		p.runID = uuid.NewString()
		p.startedAt = time.Now().UTC()
	}
	p.state = StateRunning
	p.paused = false
	cursor := p.cursor
	snap := p.snapshotRun()
	p.mu.Unlock()

	p.persistRun(ctx, snap)

	for {
		result, nextCursor, hasMore, err := p.RunBatch(ctx, cursor, opts)
		if err != nil {
			// A page fetch failure ends the run but keeps the last
			// known-good cursor so the operator can resume.
			p.mu.Lock()
			p.state = StateCompleted
			p.lastError = err.Error()
			snap = p.snapshotRun()
			p.mu.Unlock()
			p.persistRun(ctx, snap)
			return err
		}

		cursor = nextCursor

		p.mu.Lock()
		p.totals.Add(result, totalErrorSample)
		p.cursor = cursor
		p.hasMore = hasMore
		if !hasMore {
			p.state = StateCompleted
			snap = p.snapshotRun()
			p.mu.Unlock()
			p.persistRun(ctx, snap)
			return nil
		}
		if p.paused {
			p.state = StatePaused
			snap = p.snapshotRun()
			p.mu.Unlock()
			p.persistRun(ctx, snap)
			p.log.Info("import paused", logger.String("cursor", cursor))
			return nil
		}
		snap = p.snapshotRun()
		p.mu.Unlock()
		p.persistRun(ctx, snap)

		if p.batchDelay > 0 {
			select {
			case <-ctx.Done():
				p.mu.Lock()
				p.state = StatePaused
				snap = p.snapshotRun()
				p.mu.Unlock()
				// The run context is gone; give the final save its own.
				saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				p.persistRun(saveCtx, snap)
				cancel()
				return ctx.Err()
			case <-time.After(p.batchDelay):
			}
		}
	}
}

// Pause requests that no further batch is scheduled. The in-flight batch
// always completes. Returns false when nothing is running.
func (p *Pipeline) Pause() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateRunning {
		return false
	}
	p.paused = true
	return true
}

// Status reports the current pipeline snapshot.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Status{
		RunID:     p.runID,
		State:     p.state,
		Cursor:    p.cursor,
		HasMore:   p.hasMore,
		Totals:    p.totals,
		LastError: p.lastError,
	}
}
