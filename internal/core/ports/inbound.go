package ports

import (
	"context"
	"io"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
)

// ManuscriptReviewer is the inbound contract for a full senior-agent review.
type ManuscriptReviewer interface {
	ReviewManuscript(ctx context.Context, doc domain.Document, genre string) (*domain.SeniorAgentReview, error)
}

// ManuscriptQuestioner answers questions grounded in a single manuscript.
type ManuscriptQuestioner interface {
	AnswerFromDocument(ctx context.Context, doc domain.Document, question string, topK int) (*domain.Answer, error)
}

// ReviewSubmitter accepts manuscripts for asynchronous review.
type ReviewSubmitter interface {
	Submit(ctx context.Context, filename, mimeType, genre string, body io.Reader) (*domain.ReviewJob, error)
}

// ReviewJobReader is the read model for job state and finished reports.
type ReviewJobReader interface {
	GetByID(ctx context.Context, id string) (*domain.ReviewJob, error)
}

// ReviewJobProcessor runs a queued review job.
type ReviewJobProcessor interface {
	ProcessByID(ctx context.Context, jobID string) error
}

// UsageReporter exposes accumulated model usage.
type UsageReporter interface {
	Snapshot() []domain.ModelUsage
	ForModel(model string) (domain.ModelUsage, bool)
	Reset()
}
