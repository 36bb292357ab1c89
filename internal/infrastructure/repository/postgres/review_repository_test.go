package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*ReviewRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewReviewRepository(db), mock, func() { _ = db.Close() }
}

var reviewJobColumns = []string{
	"id", "filename", "mime_type", "storage_path", "genre", "status", "error_message", "review", "created_at", "updated_at",
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, filename, mime_type, storage_path").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDDecodesReview(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	review, _ := json.Marshal(domain.SeniorAgentReview{
		DocumentID: "job-1",
		Issues:     []domain.IssueAndSuggestion{{Category: "plot", Severity: domain.SeverityMinor, Description: "d"}},
	})
	mock.ExpectQuery("SELECT id, filename, mime_type, storage_path").
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows(reviewJobColumns).
			AddRow("job-1", "novel.txt", "text/plain", "job-1_novel.txt", "noir", "completed", nil, review, now, now))

	job, err := repo.GetByID(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if job.Status != domain.JobStatusCompleted || job.Genre != "noir" || job.Error != "" {
		t.Fatalf("unexpected job: %+v", job)
	}
	if job.Review == nil || len(job.Review.Issues) != 1 || job.Review.Issues[0].Severity != domain.SeverityMinor {
		t.Fatalf("unexpected review: %+v", job.Review)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDWithoutReview(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, filename").
		WithArgs("job-2").
		WillReturnRows(sqlmock.NewRows(reviewJobColumns).
			AddRow("job-2", "novel.pdf", "application/pdf", "job-2_novel.pdf", "", "failed", "review stage embedding: boom", nil, now, now))

	job, err := repo.GetByID(context.Background(), "job-2")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if job.Review != nil || job.Error != "review stage embedding: boom" {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestCreateInsertsQueuedJob(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectExec("INSERT INTO review_jobs").
		WithArgs("job-1", "novel.txt", "text/plain", "job-1_novel.txt", "noir", "queued", "", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &domain.ReviewJob{
		ID: "job-1", Filename: "novel.txt", MimeType: "text/plain", StoragePath: "job-1_novel.txt",
		Genre: "noir", Status: domain.JobStatusQueued, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE review_jobs").
		WithArgs("missing", string(domain.JobStatusProcessing), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.JobStatusProcessing, "")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveReviewStoresJSON(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE review_jobs").
		WithArgs("job-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveReview(context.Background(), "job-1", &domain.SeniorAgentReview{DocumentID: "job-1"}); err != nil {
		t.Fatalf("SaveReview() error = %v", err)
	}
	if err := repo.SaveReview(context.Background(), "job-1", nil); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for nil review, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveReviewReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE review_jobs").
		WithArgs("missing", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveReview(context.Background(), "missing", &domain.SeniorAgentReview{})
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
