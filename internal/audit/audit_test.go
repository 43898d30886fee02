package audit_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/periospot/content-cloud/internal/audit"
	"github.com/periospot/content-cloud/internal/logger"
)

func newTestLogger(t *testing.T) (*audit.Logger, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, setupErr := sqlmock.New()
	if setupErr != nil {
		t.Fatalf("failed to create sqlmock: %v", setupErr)
	}

	sqlxDB := sqlx.NewDb(db, "postgres")
	return audit.NewLogger(sqlxDB, logger.NewNop()), mock, func() { db.Close() }
}

func TestLogger_Log(t *testing.T) {
	t.Helper()

	auditLog, mock, cleanup := newTestLogger(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO mcp_audit_log").
		WithArgs("get_posts", []byte(`{"limit":10}`), []byte(`{"posts":[]}`), true, nil, int64(12)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	auditLog.Log(context.Background(), audit.Entry{
		ToolName:    "get_posts",
		InputParams: json.RawMessage(`{"limit":10}`),
		Result:      json.RawMessage(`{"posts":[]}`),
		Success:     true,
		DurationMS:  12,
	})

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestLogger_LogSwallowsWriteFailure(t *testing.T) {
	t.Helper()

	auditLog, mock, cleanup := newTestLogger(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO mcp_audit_log").
		WillReturnError(sql.ErrConnDone)

	// Must not panic or surface the error in any way.
	auditLog.Log(context.Background(), audit.Entry{ToolName: "get_posts"})

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestLogger_LogWithoutDatabase(t *testing.T) {
	t.Helper()

	auditLog := audit.NewLogger(nil, logger.NewNop())

	// No-op when auditing is not configured.
	auditLog.Log(context.Background(), audit.Entry{ToolName: "get_posts"})
}

func TestLogger_Recent(t *testing.T) {
	t.Helper()

	auditLog, mock, cleanup := newTestLogger(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{
		"id", "tool_name", "input_params", "result", "success",
		"error_message", "execution_time_ms", "created_at",
	}).
		AddRow("a2", "create_post", []byte(`{}`), nil, false, "db down", int64(40), time.Now()).
		AddRow("a1", "get_posts", []byte(`{}`), []byte(`{}`), true, nil, int64(8), time.Now())

	mock.ExpectQuery("SELECT .+ FROM mcp_audit_log ORDER BY created_at DESC").
		WithArgs(2).
		WillReturnRows(rows)

	entries, callErr := auditLog.Recent(context.Background(), 2)
	if callErr != nil {
		t.Fatalf("Recent() unexpected error: %v", callErr)
	}
	if len(entries) != 2 {
		t.Fatalf("Recent() returned %d entries, want 2", len(entries))
	}
	if entries[0].ToolName != "create_post" {
		t.Errorf("Recent() first entry = %q, want create_post", entries[0].ToolName)
	}
	if entries[0].Success {
		t.Error("Recent() first entry success = true, want false")
	}

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestLogger_RecentWithoutDatabase(t *testing.T) {
	t.Helper()

	auditLog := audit.NewLogger(nil, logger.NewNop())

	if _, callErr := auditLog.Recent(context.Background(), 10); callErr == nil {
		t.Fatal("expected error when auditing is not configured")
	}
}

func TestLogger_RecentDefaultLimit(t *testing.T) {
	t.Helper()

	auditLog, mock, cleanup := newTestLogger(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .+ FROM mcp_audit_log ORDER BY created_at DESC").
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tool_name", "input_params", "result", "success",
			"error_message", "execution_time_ms", "created_at",
		}))

	if _, callErr := auditLog.Recent(context.Background(), 0); callErr != nil {
		t.Fatalf("Recent() unexpected error: %v", callErr)
	}

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}
