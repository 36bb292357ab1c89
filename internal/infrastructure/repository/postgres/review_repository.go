package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
)

type ReviewRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ReviewRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026031501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS review_jobs (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	genre TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	error_message TEXT,
	review JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_review_jobs_status ON review_jobs(status);
CREATE INDEX IF NOT EXISTS idx_review_jobs_created_at ON review_jobs(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ReviewRepository) Create(ctx context.Context, job *domain.ReviewJob) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO review_jobs (
	id, filename, mime_type, storage_path, genre, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		job.ID, job.Filename, job.MimeType, job.StoragePath, job.Genre,
		string(job.Status), job.Error, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review job: %w", err)
	}
	return nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.ReviewJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, mime_type, storage_path, genre, status, error_message, review, created_at, updated_at
FROM review_jobs
WHERE id = $1
`, id)

	var (
		job       domain.ReviewJob
		status    string
		errMsg    sql.NullString
		reviewRaw []byte
	)
	err := row.Scan(
		&job.ID, &job.Filename, &job.MimeType, &job.StoragePath, &job.Genre,
		&status, &errMsg, &reviewRaw, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get review job", fmt.Errorf("review job %s", id))
		}
		return nil, fmt.Errorf("scan review job: %w", err)
	}

	job.Status = domain.ReviewJobStatus(status)
	job.Error = errMsg.String
	if len(reviewRaw) > 0 {
		var review domain.SeniorAgentReview
		if err := json.Unmarshal(reviewRaw, &review); err != nil {
			return nil, fmt.Errorf("unmarshal review: %w", err)
		}
		job.Review = &review
	}
	return &job, nil
}

func (r *ReviewRepository) UpdateStatus(ctx context.Context, id string, status domain.ReviewJobStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE review_jobs
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, r.now())
	if err != nil {
		return fmt.Errorf("update review job status: %w", err)
	}
	return expectAffected(res, "update review job status", id)
}

func (r *ReviewRepository) SaveReview(ctx context.Context, id string, review *domain.SeniorAgentReview) error {
	if review == nil {
		return domain.WrapError(domain.ErrInvalidInput, "save review", errors.New("review is nil"))
	}
	raw, err := json.Marshal(review)
	if err != nil {
		return fmt.Errorf("marshal review: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE review_jobs
SET review = $2, updated_at = $3
WHERE id = $1
`, id, raw, r.now())
	if err != nil {
		return fmt.Errorf("save review: %w", err)
	}
	return expectAffected(res, "save review", id)
}

func expectAffected(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, operation, fmt.Errorf("review job %s", id))
	}
	return nil
}
