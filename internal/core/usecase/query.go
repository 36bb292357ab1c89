package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
	"github.com/kirillkom/manuscript-review/internal/core/ports"
)

const (
	DefaultQueryTopK = 3
	NoAnswerFallback = "Unable to generate answer."
)

type QueryUseCase struct {
	chunker       ports.Chunker
	embedder      ports.Embedder
	ranker        ports.SimilarityRanker
	generator     ports.TextGenerator
	systemMessage string
	settings      domain.QuerySettings
}

func NewQueryUseCase(
	chunker ports.Chunker,
	embedder ports.Embedder,
	ranker ports.SimilarityRanker,
	generator ports.TextGenerator,
	prompts ports.PromptCatalog,
	settings domain.QuerySettings,
) *QueryUseCase {
	if settings.TopK <= 0 {
		settings.TopK = DefaultQueryTopK
	}
	if settings.Temperature <= 0 {
		settings.Temperature = 0.3
	}
	if settings.MaxTokens <= 0 {
		settings.MaxTokens = 500
	}

	return &QueryUseCase{
		chunker:       chunker,
		embedder:      embedder,
		ranker:        ranker,
		generator:     generator,
		systemMessage: prompts.AnswerSystemMessage(),
		settings:      settings,
	}
}

// ragQuery carries per-call generation overrides; zero values fall back to
// the query settings.
type ragQuery struct {
	question    string
	topK        int
	format      domain.ResponseFormat
	temperature float64
	maxTokens   int
}

// Query answers question from the supplied embedding set. topK <= 0 selects
// the configured default.
func (uc *QueryUseCase) Query(
	ctx context.Context,
	question string,
	embeddings []domain.ChunkEmbedding,
	topK int,
) (*domain.Answer, error) {
	return uc.ask(ctx, ragQuery{question: question, topK: topK, format: domain.ResponseFormatText}, embeddings)
}

// AnswerFromDocument chunks and embeds doc, then answers question from it.
func (uc *QueryUseCase) AnswerFromDocument(
	ctx context.Context,
	doc domain.Document,
	question string,
	topK int,
) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer from document", errors.New("question is required"))
	}

	chunks, err := uc.chunker.Chunk(doc.Content, doc.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("chunk document: %w", err)
	}
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer from document", errors.New("document has no content"))
	}

	embeddings, err := embedChunks(ctx, uc.embedder, chunks)
	if err != nil {
		return nil, err
	}
	return uc.Query(ctx, question, embeddings, topK)
}

func (uc *QueryUseCase) ask(ctx context.Context, q ragQuery, embeddings []domain.ChunkEmbedding) (*domain.Answer, error) {
	if err := checkCancelled(ctx, "query"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(q.question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "query", errors.New("question is required"))
	}
	if q.topK <= 0 {
		q.topK = uc.settings.TopK
	}
	if q.temperature <= 0 {
		q.temperature = uc.settings.Temperature
	}
	if q.maxTokens <= 0 {
		q.maxTokens = uc.settings.MaxTokens
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, q.question)
	if err != nil {
		return nil, collaboratorError("embed query", err)
	}

	hits, err := uc.ranker.Rank(queryVector, embeddings, q.topK)
	if err != nil {
		return nil, fmt.Errorf("rank chunks: %w", err)
	}

	text, err := uc.generator.Complete(ctx, domain.CompletionRequest{
		Prompt:         buildQueryPrompt(q.question, hits),
		SystemMessage:  uc.systemMessage,
		ResponseFormat: q.format,
		Temperature:    q.temperature,
		MaxTokens:      q.maxTokens,
	})
	if err != nil {
		return nil, collaboratorError("generate answer", err)
	}
	if strings.TrimSpace(text) == "" {
		text = NoAnswerFallback
	}

	return &domain.Answer{
		Text:    text,
		Sources: hits,
	}, nil
}

func buildQueryPrompt(question string, hits []domain.SimilarityResult) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", buildContext(hits), question)
}

// buildContext labels every hit with its position in the manuscript.
func buildContext(hits []domain.SimilarityResult) string {
	parts := make([]string, 0, len(hits))
	for _, hit := range hits {
		parts = append(parts, chunkLabel(hit.Chunk)+"\n"+hit.Chunk.Content)
	}
	return strings.Join(parts, "\n\n")
}

func chunkLabel(chunk domain.DocumentChunk) string {
	if chunk.ChapterNumber == 0 {
		return fmt.Sprintf("[Front matter, Chunk %d]", chunk.ChunkIndex)
	}
	return fmt.Sprintf("[Chapter %d, Chunk %d]", chunk.ChapterNumber, chunk.ChunkIndex)
}
