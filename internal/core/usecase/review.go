package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
	"github.com/kirillkom/manuscript-review/internal/core/ports"
)

const (
	DefaultSummaryChunks = 5
	DefaultAspectTopK    = 5
	DefaultIssueTopK     = 10
)

type ReviewUseCase struct {
	chunker   ports.Chunker
	embedder  ports.Embedder
	generator ports.TextGenerator
	query     *QueryUseCase
	prompts   ports.PromptCatalog
	observer  ports.ReviewObserver
	logger    *slog.Logger
	now       func() time.Time
	settings  domain.ReviewSettings
}

func NewReviewUseCase(
	chunker ports.Chunker,
	embedder ports.Embedder,
	generator ports.TextGenerator,
	query *QueryUseCase,
	prompts ports.PromptCatalog,
	settings domain.ReviewSettings,
) *ReviewUseCase {
	if settings.SummaryChunks <= 0 {
		settings.SummaryChunks = DefaultSummaryChunks
	}
	if settings.AspectTopK <= 0 {
		settings.AspectTopK = DefaultAspectTopK
	}
	if settings.IssueTopK <= 0 {
		settings.IssueTopK = DefaultIssueTopK
	}
	if settings.Temperature <= 0 {
		settings.Temperature = 0.3
	}
	if settings.MaxTokens <= 0 {
		settings.MaxTokens = 1000
	}

	return &ReviewUseCase{
		chunker:   chunker,
		embedder:  embedder,
		generator: generator,
		query:     query,
		prompts:   prompts,
		observer:  noopObserver{},
		logger:    slog.Default(),
		now:       time.Now,
		settings:  settings,
	}
}

func (uc *ReviewUseCase) WithObserver(observer ports.ReviewObserver) *ReviewUseCase {
	if observer != nil {
		uc.observer = observer
	}
	return uc
}

func (uc *ReviewUseCase) WithLogger(logger *slog.Logger) *ReviewUseCase {
	if logger != nil {
		uc.logger = logger
	}
	return uc
}

func (uc *ReviewUseCase) WithClock(now func() time.Time) *ReviewUseCase {
	if now != nil {
		uc.now = now
	}
	return uc
}

// review carries the state of one ReviewManuscript call. The embedding set is
// written once by the embedding stage and only read afterwards.
type review struct {
	doc        domain.Document
	genre      string
	chunks     []domain.DocumentChunk
	embeddings []domain.ChunkEmbedding
	summary    string
	aspects    []string
	issues     []domain.IssueAndSuggestion
	recs       string
}

// ReviewManuscript runs the full senior-agent review. Any stage failure
// aborts the review with a *domain.ReviewStageError.
func (uc *ReviewUseCase) ReviewManuscript(ctx context.Context, doc domain.Document, genre string) (*domain.SeniorAgentReview, error) {
	if strings.TrimSpace(doc.ID) == "" {
		doc.ID = uuid.NewString()
	}
	started := time.Now()
	r := &review{doc: doc, genre: strings.TrimSpace(genre)}

	err := uc.run(ctx, r)
	uc.observer.ObserveReview(len(r.chunks), time.Since(started), err)
	if err != nil {
		stage, _ := domain.FailedStage(err)
		uc.logger.Warn("review_failed",
			slog.String("document_id", doc.ID),
			slog.String("stage", stage),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	result := uc.assemble(r)
	uc.logger.Info("review_completed",
		slog.String("document_id", doc.ID),
		slog.Int("chunks", result.ChunkCount),
		slog.Int("issues", len(result.Issues)),
		slog.Duration("duration", time.Since(started)),
	)
	return result, nil
}

func (uc *ReviewUseCase) run(ctx context.Context, r *review) error {
	if err := uc.stage(ctx, domain.StageChunking, func(context.Context) error { return uc.chunk(r) }); err != nil {
		return err
	}
	if err := uc.stage(ctx, domain.StageEmbedding, func(ctx context.Context) error {
		embeddings, err := embedChunks(ctx, uc.embedder, r.chunks)
		r.embeddings = embeddings
		return err
	}); err != nil {
		return err
	}
	if err := uc.stage(ctx, domain.StageSummary, func(ctx context.Context) error { return uc.summarize(ctx, r) }); err != nil {
		return err
	}
	if err := uc.analyzeAspects(ctx, r); err != nil {
		return err
	}
	if err := uc.stage(ctx, domain.StageIssues, func(ctx context.Context) error { return uc.extractIssues(ctx, r) }); err != nil {
		return err
	}
	return uc.stage(ctx, domain.StageRecommendations, func(ctx context.Context) error { return uc.recommend(ctx, r) })
}

// stage checks for cancellation, runs fn and records its outcome.
func (uc *ReviewUseCase) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := checkCancelled(ctx, name); err != nil {
		uc.observer.ObserveStage(name, 0, err)
		return &domain.ReviewStageError{Stage: name, Err: err}
	}

	started := time.Now()
	err := fn(ctx)
	if err != nil && ctx.Err() != nil && !domain.IsKind(err, domain.ErrCancelled) {
		err = domain.WrapError(domain.ErrCancelled, name, err)
	}
	uc.observer.ObserveStage(name, time.Since(started), err)
	if err != nil {
		return &domain.ReviewStageError{Stage: name, Err: err}
	}

	uc.logger.Debug("review_stage_completed",
		slog.String("stage", name),
		slog.Duration("duration", time.Since(started)),
	)
	return nil
}

func (uc *ReviewUseCase) chunk(r *review) error {
	chunks, err := uc.chunker.Chunk(r.doc.Content, r.doc.ID, uc.settings.MaxChunkSize)
	if err != nil {
		return fmt.Errorf("chunk manuscript: %w", err)
	}
	if len(chunks) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "chunk manuscript", errors.New("manuscript has no content"))
	}
	r.chunks = chunks
	return nil
}

func (uc *ReviewUseCase) summarize(ctx context.Context, r *review) error {
	n := min(uc.settings.SummaryChunks, len(r.chunks))
	excerpt := make([]string, 0, n)
	for _, c := range r.chunks[:n] {
		excerpt = append(excerpt, c.Content)
	}

	prompt, err := uc.prompts.RenderPrompt(domain.PromptSummary, uc.promptData(r, strings.Join(excerpt, "\n\n")))
	if err != nil {
		return err
	}
	summary, err := uc.complete(ctx, prompt)
	if err != nil {
		return collaboratorError("generate summary", err)
	}
	r.summary = summary
	return nil
}

// analyzeAspects runs one retrieval query per aspect. Results are stored by
// aspect index so the parallel and sequential runs produce the same review.
func (uc *ReviewUseCase) analyzeAspects(ctx context.Context, r *review) error {
	aspects := uc.prompts.ReviewAspects()
	r.aspects = make([]string, len(aspects))

	analyze := func(ctx context.Context, i int) error {
		aspect := aspects[i]
		return uc.stage(ctx, domain.AspectStage(aspect.Key), func(ctx context.Context) error {
			question, err := uc.prompts.RenderPrompt(domain.AspectStage(aspect.Key), uc.promptData(r, ""))
			if err != nil {
				return err
			}
			answer, err := uc.query.ask(ctx, ragQuery{
				question:    question,
				topK:        uc.settings.AspectTopK,
				format:      domain.ResponseFormatText,
				temperature: uc.settings.Temperature,
				maxTokens:   uc.settings.MaxTokens,
			}, r.embeddings)
			if err != nil {
				return err
			}
			r.aspects[i] = answer.Text
			return nil
		})
	}

	if !uc.settings.ParallelAspects {
		for i := range aspects {
			if err := analyze(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range aspects {
		g.Go(func() error { return analyze(gctx, i) })
	}
	return g.Wait()
}

func (uc *ReviewUseCase) extractIssues(ctx context.Context, r *review) error {
	question, err := uc.prompts.RenderPrompt(domain.PromptIssues, uc.promptData(r, ""))
	if err != nil {
		return err
	}
	answer, err := uc.query.ask(ctx, ragQuery{
		question:    question,
		topK:        uc.settings.IssueTopK,
		format:      domain.ResponseFormatJSONObject,
		temperature: uc.settings.Temperature,
		maxTokens:   uc.settings.MaxTokens,
	}, r.embeddings)
	if err != nil {
		return err
	}

	issues, err := parseIssues(answer.Text)
	if err != nil {
		uc.logger.Warn("issue_extraction_unparseable",
			slog.String("document_id", r.doc.ID),
			slog.String("error", err.Error()),
		)
		issues = []domain.IssueAndSuggestion{}
	}
	r.issues = issues
	return nil
}

func (uc *ReviewUseCase) recommend(ctx context.Context, r *review) error {
	aspects := uc.prompts.ReviewAspects()
	data := uc.promptData(r, "")
	data.Summary = r.summary
	data.Issues = r.issues
	data.Aspects = make([]domain.AspectAnalysis, len(aspects))
	for i, aspect := range aspects {
		data.Aspects[i] = domain.AspectAnalysis{Title: aspect.Title, Analysis: r.aspects[i]}
	}

	prompt, err := uc.prompts.RenderPrompt(domain.PromptRecommendations, data)
	if err != nil {
		return err
	}
	recs, err := uc.complete(ctx, prompt)
	if err != nil {
		return collaboratorError("generate recommendations", err)
	}
	r.recs = recs
	return nil
}

func (uc *ReviewUseCase) complete(ctx context.Context, prompt string) (string, error) {
	text, err := uc.generator.Complete(ctx, domain.CompletionRequest{
		Prompt:         prompt,
		SystemMessage:  uc.prompts.AnswerSystemMessage(),
		ResponseFormat: domain.ResponseFormatText,
		Temperature:    uc.settings.Temperature,
		MaxTokens:      uc.settings.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return NoAnswerFallback, nil
	}
	return text, nil
}

func (uc *ReviewUseCase) promptData(r *review, excerpt string) domain.PromptData {
	return domain.PromptData{
		Title:   r.doc.Title,
		Genre:   r.genre,
		Excerpt: excerpt,
	}
}

func (uc *ReviewUseCase) assemble(r *review) *domain.SeniorAgentReview {
	out := &domain.SeniorAgentReview{
		DocumentID:          r.doc.ID,
		Title:               r.doc.Title,
		Genre:               r.genre,
		OverallSummary:      r.summary,
		AspectAnalyses:      make(map[string]string, len(r.aspects)),
		Issues:              r.issues,
		Recommendations:     r.recs,
		ChunkCount:          len(r.chunks),
		EstimatedTokensUsed: estimateTokens(r.chunks),
		ReviewedAt:          uc.now().UTC(),
	}
	for i, aspect := range uc.prompts.ReviewAspects() {
		analysis := r.aspects[i]
		out.AspectAnalyses[aspect.Key] = analysis
		switch aspect.Key {
		case domain.AspectPlot:
			out.PlotAnalysis = analysis
		case domain.AspectCharacter:
			out.CharacterAnalysis = analysis
		case domain.AspectStyle:
			out.StyleAnalysis = analysis
		case domain.AspectStructure:
			out.StructureAnalysis = analysis
		}
	}
	return out
}

// estimateTokens uses the characters/4 heuristic the segmenter sizes by.
func estimateTokens(chunks []domain.DocumentChunk) int {
	total := 0
	for _, c := range chunks {
		total += utf8.RuneCountInString(c.Content)
	}
	return total / 4
}

type noopObserver struct{}

func (noopObserver) ObserveStage(string, time.Duration, error) {}
func (noopObserver) ObserveReview(int, time.Duration, error)   {}
