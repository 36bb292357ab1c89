package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
)

// Chunker splits manuscript text into chapter-aware chunks.
type Chunker interface {
	Chunk(content, documentID string, maxChunkSize int) ([]domain.DocumentChunk, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// SimilarityRanker returns the topK candidates closest to the query vector.
type SimilarityRanker interface {
	Rank(query []float32, candidates []domain.ChunkEmbedding, topK int) ([]domain.SimilarityResult, error)
}

// TextGenerator runs a single completion against the language model.
type TextGenerator interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
}

// UsageRecorder receives token usage from model clients.
type UsageRecorder interface {
	Record(usage domain.TokenUsage)
}

// ReviewObserver receives review pipeline timings.
type ReviewObserver interface {
	ObserveStage(stage string, duration time.Duration, err error)
	ObserveReview(chunks int, duration time.Duration, err error)
}

// ReviewRepository persists review jobs and their reports.
type ReviewRepository interface {
	Create(ctx context.Context, job *domain.ReviewJob) error
	GetByID(ctx context.Context, id string) (*domain.ReviewJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.ReviewJobStatus, errMessage string) error
	SaveReview(ctx context.Context, id string, review *domain.SeniorAgentReview) error
}

// ObjectStorage stores uploaded manuscripts.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes review job events.
type MessageQueue interface {
	PublishReviewRequested(ctx context.Context, jobID string) error
	SubscribeReviewRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored manuscript.
type TextExtractor interface {
	Extract(ctx context.Context, job *domain.ReviewJob) (string, error)
}

// PromptCatalog supplies the review prompts.
type PromptCatalog interface {
	AnswerSystemMessage() string
	ReviewAspects() []domain.ReviewAspect
	RenderPrompt(name string, data domain.PromptData) (string, error)
}
