package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrCollaborator = errors.New("collaborator failure")
	ErrCancelled    = errors.New("cancelled")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

const (
	StageChunking        = "chunking"
	StageEmbedding       = "embedding"
	StageSummary         = "summary"
	StageIssues          = "issues"
	StageRecommendations = "recommendations"
)

func AspectStage(key string) string {
	return "aspect:" + key
}

// ReviewStageError names the review step that failed.
type ReviewStageError struct {
	Stage string
	Err   error
}

func (e *ReviewStageError) Error() string {
	return fmt.Sprintf("review stage %s: %v", e.Stage, e.Err)
}

func (e *ReviewStageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage recorded in err, if any.
func FailedStage(err error) (string, bool) {
	var stageErr *ReviewStageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage, true
	}
	return "", false
}
