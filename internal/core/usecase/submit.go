package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
	"github.com/kirillkom/manuscript-review/internal/core/ports"
)

type SubmitReviewUseCase struct {
	repo    ports.ReviewRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewSubmitReviewUseCase(
	repo ports.ReviewRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *SubmitReviewUseCase {
	return &SubmitReviewUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

// Submit stores the manuscript, records a queued job and publishes it for
// the worker.
func (uc *SubmitReviewUseCase) Submit(
	ctx context.Context,
	filename, mimeType, genre string,
	body io.Reader,
) (*domain.ReviewJob, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit review", errors.New("filename is required"))
	}
	if _, ok := domain.DetectFormat(filename, mimeType); !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit review", fmt.Errorf("unsupported manuscript type %q", mimeType))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	job := &domain.ReviewJob{
		ID:          id,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		Genre:       strings.TrimSpace(genre),
		Status:      domain.JobStatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create review job: %w", err)
	}

	if err := uc.queue.PublishReviewRequested(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("publish review request: %w", err)
	}

	return job, nil
}

func (uc *SubmitReviewUseCase) GetByID(ctx context.Context, id string) (*domain.ReviewJob, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get review job", errors.New("id is required"))
	}
	job, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review job: %w", err)
	}
	return job, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "manuscript.txt"
	}
	return base
}
