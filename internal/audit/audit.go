// Package audit records a best-effort trail of MCP tool invocations.
//
// Writes never propagate errors back to the tool caller; a failed write is
// logged as a diagnostic and swallowed. Reads are strict because they serve
// an explicit administrative surface.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/periospot/content-cloud/internal/logger"
)

// Entry is one recorded tool invocation. Entries are written once after the
// call completes and never mutated.
type Entry struct {
	ID           string          `db:"id"                json:"id"`
	ToolName     string          `db:"tool_name"         json:"tool_name"`
	InputParams  json.RawMessage `db:"input_params"      json:"input_params"`
	Result       json.RawMessage `db:"result"            json:"result,omitempty"`
	Success      bool            `db:"success"           json:"success"`
	ErrorMessage *string         `db:"error_message"     json:"error_message,omitempty"`
	DurationMS   int64           `db:"execution_time_ms" json:"execution_time_ms"`
	CreatedAt    time.Time       `db:"created_at"        json:"created_at"`
}

// Logger persists audit entries. It holds its own database handle so audit
// failures stay isolated from whatever connection the tool call used.
type Logger struct {
	db  *sqlx.DB
	log logger.Logger
}

// NewLogger creates an audit logger. db may be nil when auditing is not
// configured; Log becomes a no-op and Recent returns an error.
func NewLogger(db *sqlx.DB, log logger.Logger) *Logger {
	return &Logger{db: db, log: log}
}

// Log persists the entry. Any failure is swallowed after a diagnostic so the
// tool call that triggered the entry is never affected.
func (l *Logger) Log(ctx context.Context, entry Entry) {
	if l.db == nil {
		l.log.Debug("audit logging not configured, dropping entry",
			logger.String("tool", entry.ToolName))
		return
	}

	const query = `
		INSERT INTO mcp_audit_log (tool_name, input_params, result, success, error_message, execution_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := l.db.ExecContext(ctx, query,
		entry.ToolName, entry.InputParams, entry.Result,
		entry.Success, entry.ErrorMessage, entry.DurationMS,
	)
	if err != nil {
		l.log.Warn("failed to write audit entry",
			logger.String("tool", entry.ToolName),
			logger.Error(err))
	}
}

// Recent returns the newest entries, newest first. Unlike Log, errors are
// returned because this path serves an administrative reader.
func (l *Logger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if l.db == nil {
		return nil, fmt.Errorf("audit logging is not configured")
	}
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT id, tool_name, input_params, result, success, error_message, execution_time_ms, created_at
		FROM mcp_audit_log
		ORDER BY created_at DESC
		LIMIT $1`

	var entries []Entry
	if err := l.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	return entries, nil
}
