package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
	"github.com/kirillkom/manuscript-review/internal/core/ports"
)

type ProcessReviewUseCase struct {
	repo      ports.ReviewRepository
	extractor ports.TextExtractor
	reviewer  ports.ManuscriptReviewer
}

func NewProcessReviewUseCase(
	repo ports.ReviewRepository,
	extractor ports.TextExtractor,
	reviewer ports.ManuscriptReviewer,
) *ProcessReviewUseCase {
	return &ProcessReviewUseCase{
		repo:      repo,
		extractor: extractor,
		reviewer:  reviewer,
	}
}

func (uc *ProcessReviewUseCase) ProcessByID(ctx context.Context, jobID string) error {
	if err := uc.markStatus(ctx, jobID, domain.JobStatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	review, err := uc.processPipeline(ctx, jobID)
	if err != nil {
		if failErr := uc.markFailed(ctx, jobID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveReview(ctx, jobID, review); err != nil {
		err = fmt.Errorf("save review: %w", err)
		if failErr := uc.markFailed(ctx, jobID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.markStatus(ctx, jobID, domain.JobStatusCompleted, ""); err != nil {
		return fmt.Errorf("set status=completed: %w", err)
	}

	return nil
}

func (uc *ProcessReviewUseCase) processPipeline(ctx context.Context, jobID string) (*domain.SeniorAgentReview, error) {
	job, err := uc.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("fetch review job by id: %w", err)
	}

	text, err := uc.extractor.Extract(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}

	doc := domain.Document{
		ID:      job.ID,
		Title:   titleFromFilename(job.Filename),
		Content: text,
	}
	review, err := uc.reviewer.ReviewManuscript(ctx, doc, job.Genre)
	if err != nil {
		return nil, fmt.Errorf("review manuscript: %w", err)
	}
	return review, nil
}

func (uc *ProcessReviewUseCase) markStatus(ctx context.Context, jobID string, status domain.ReviewJobStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, jobID, status, errMessage)
}

// markFailed records the failure. It uses a fresh context so a cancelled job
// still gets its final status.
func (uc *ProcessReviewUseCase) markFailed(ctx context.Context, jobID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(context.WithoutCancel(ctx), jobID, domain.JobStatusFailed, processErr.Error())
}

func titleFromFilename(filename string) string {
	base := filename
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(base))
}
