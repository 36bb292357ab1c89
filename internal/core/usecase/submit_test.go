package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
)

type storageFake struct {
	savedKey  string
	savedBody string
	err       error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.savedKey = key
	f.savedBody = string(raw)
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

type queueFake struct {
	jobID string
	err   error
}

func (f *queueFake) PublishReviewRequested(_ context.Context, jobID string) error {
	if f.err != nil {
		return f.err
	}
	f.jobID = jobID
	return nil
}

func (f *queueFake) SubscribeReviewRequested(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

func TestSubmitSuccess(t *testing.T) {
	repo := &reviewRepoFake{}
	storage := &storageFake{}
	queue := &queueFake{}
	uc := NewSubmitReviewUseCase(repo, storage, queue)

	job, err := uc.Submit(context.Background(), "my novel.txt", "text/plain", " fantasy ", bytes.NewBufferString("Chapter 1"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if job.ID == "" {
		t.Fatalf("expected job id")
	}
	if job.Status != domain.JobStatusQueued || job.Genre != "fantasy" {
		t.Fatalf("unexpected job: %+v", job)
	}
	if repo.created == nil {
		t.Fatalf("expected repo.Create call")
	}
	if queue.jobID != job.ID {
		t.Fatalf("expected queued job id %s, got %s", job.ID, queue.jobID)
	}
	if !strings.Contains(storage.savedKey, "_my_novel.txt") {
		t.Fatalf("expected sanitized key suffix, got %s", storage.savedKey)
	}
	if storage.savedBody != "Chapter 1" {
		t.Fatalf("expected saved body, got %s", storage.savedBody)
	}
}

func TestSubmitRejectsUnsupportedType(t *testing.T) {
	storage := &storageFake{}
	uc := NewSubmitReviewUseCase(&reviewRepoFake{}, storage, &queueFake{})

	_, err := uc.Submit(context.Background(), "novel.docx", "application/msword", "", bytes.NewBufferString("x"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if storage.savedKey != "" {
		t.Fatalf("expected nothing stored")
	}
}

func TestSubmitQueueError(t *testing.T) {
	uc := NewSubmitReviewUseCase(&reviewRepoFake{}, &storageFake{}, &queueFake{err: errors.New("queue down")})

	_, err := uc.Submit(context.Background(), "novel.pdf", "application/pdf", "", bytes.NewBufferString("%PDF"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "publish review request") {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestGetByIDPropagatesNotFound(t *testing.T) {
	repo := &reviewRepoFake{getErr: domain.WrapError(domain.ErrNotFound, "get review job", errors.New("no rows"))}
	uc := NewSubmitReviewUseCase(repo, &storageFake{}, &queueFake{})

	if _, err := uc.GetByID(context.Background(), "missing"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := uc.GetByID(context.Background(), " "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
