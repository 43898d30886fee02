package importer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/periospot/content-cloud/internal/importer"
)

func newRunStore(t *testing.T) (*importer.PostgresRunStore, sqlmock.Sqlmock) {
	t.Helper()

	rawDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = rawDB.Close() })

	return importer.NewPostgresRunStore(sqlx.NewDb(rawDB, "sqlmock")), mock
}

func TestRunStore_Save(t *testing.T) {
	store, mock := newRunStore(t)

	run := &importer.Run{
		ID:        "7f0c9a7e-0000-0000-0000-000000000001",
		State:     importer.StateRunning,
		Cursor:    "cur2",
		HasMore:   true,
		Imported:  10,
		Skipped:   2,
		Failed:    1,
		Errors:    pq.StringArray{"a@example.com: resend: 500"},
		StartedAt: time.Now().UTC(),
	}

	mock.ExpectExec(`INSERT INTO import_runs .+ ON CONFLICT \(id\) DO UPDATE SET`).
		WithArgs(run.ID, run.State, run.Cursor, run.HasMore,
			run.Imported, run.Skipped, run.Failed,
			run.Errors, run.LastError, run.StartedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Save(context.Background(), run); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestRunStore_Get(t *testing.T) {
	store, mock := newRunStore(t)

	started := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "state", "cursor", "has_more", "imported", "skipped", "failed",
		"errors", "last_error", "started_at", "updated_at",
	}).AddRow("run-1", importer.StateCompleted, "", false, 40, 3, 2,
		pq.StringArray{"x@example.com: database: timeout"}, "", started, started)

	mock.ExpectQuery(`SELECT .+ FROM import_runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(rows)

	run, err := store.Get(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if run.State != importer.StateCompleted || run.Imported != 40 {
		t.Errorf("run = %+v", run)
	}
	if len(run.Errors) != 1 {
		t.Errorf("errors = %v", run.Errors)
	}
}

func TestRunStore_GetNotFound(t *testing.T) {
	store, mock := newRunStore(t)

	mock.ExpectQuery(`SELECT .+ FROM import_runs WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, importer.ErrRunNotFound) {
		t.Fatalf("err = %v, want ErrRunNotFound", err)
	}
}

func TestRunStore_List(t *testing.T) {
	store, mock := newRunStore(t)

	started := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "state", "cursor", "has_more", "imported", "skipped", "failed",
		"errors", "last_error", "started_at", "updated_at",
	}).
		AddRow("run-2", importer.StateRunning, "cur5", true, 20, 0, 0, pq.StringArray{}, "", started, started).
		AddRow("run-1", importer.StateCompleted, "", false, 40, 3, 2, pq.StringArray{}, "", started.Add(-time.Hour), started)

	mock.ExpectQuery(`SELECT .+ FROM import_runs ORDER BY started_at DESC LIMIT \$1`).
		WithArgs(20).
		WillReturnRows(rows)

	runs, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" {
		t.Errorf("runs = %+v", runs)
	}
}
