package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/document-triage/internal/core/domain"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs(schemaLockID).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS classification_outcomes").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSchemaRollsBackOnDDLFailure(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	if err := EnsureSchema(context.Background(), db); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordOutcomeStoresNullsForMissingFields(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOutcomeRepository(db)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO classification_outcomes").
		WithArgs(
			"o-1", "poorly_named.csv", ".csv",
			sql.NullString{}, false, sql.NullString{}, sql.NullInt16{},
			sql.NullString{String: domain.CodeUnsupportedFile, Valid: true},
			0.0, sql.NullString{}, 1.5, now,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RecordOutcome(context.Background(), domain.Outcome{
		ID:        "o-1",
		Filename:  "poorly_named.csv",
		Extension: ".csv",
		Code:      domain.CodeUnsupportedFile,
		Duration:  1500 * time.Microsecond,
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("RecordOutcome() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnqueueReviewIsIdempotent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReviewRepository(db)

	mock.ExpectExec("INSERT INTO review_queue .* ON CONFLICT \\(id\\) DO NOTHING").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.EnqueueReview(context.Background(), domain.ReviewItem{
		ReviewEscalation: domain.ReviewEscalation{ID: "r-1", Filename: "a.pdf", StorageKey: "a.pdf"},
		Status:           domain.ReviewPending,
	})
	if err != nil {
		t.Fatalf("EnqueueReview() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetReviewReturnsDomainNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReviewRepository(db)

	mock.ExpectQuery("SELECT id, filename, storage_key").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetReview(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrReviewNotFound) {
		t.Fatalf("expected ErrReviewNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListPendingReviews(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReviewRepository(db)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "filename", "storage_key", "predicted_label", "predicted_confidence", "min_confidence",
		"status", "resolved_as", "escalated_at", "created_at", "updated_at",
	}).
		AddRow("r-1", "a.pdf", "a.pdf", "invoice", 0.41, 0.8, "pending", nil, now, now, now).
		AddRow("r-2", "b.png", "b.png", nil, 0.0, 0.8, "pending", nil, now, now, now)

	mock.ExpectQuery("FROM review_queue").
		WithArgs(string(domain.ReviewPending), 10).
		WillReturnRows(rows)

	items, err := repo.ListPendingReviews(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListPendingReviews() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].PredictedLabel != "invoice" || items[1].PredictedLabel != "" {
		t.Fatalf("unexpected labels: %+v", items)
	}
	if items[0].Status != domain.ReviewPending {
		t.Fatalf("unexpected status %q", items[0].Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
