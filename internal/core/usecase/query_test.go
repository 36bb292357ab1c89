package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/chunking"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/vector/memory"
)

// conceptEmbedder maps text onto fixed concept dimensions by keyword, so
// relevance is deterministic without a model.
type conceptEmbedder struct {
	mu         sync.Mutex
	concepts   [][]string
	embedCalls int
	queries    []string
	err        error
	queryErr   error
	onEmbed    func()
}

func newConceptEmbedder() *conceptEmbedder {
	return &conceptEmbedder{concepts: [][]string{
		{"bob"},
		{"leaves", "happens", "departs"},
		{"meets"},
		{"alice"},
		{"plot", "story"},
		{"issue", "problem"},
	}}
}

func (f *conceptEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	out := make([]float32, len(f.concepts))
	for i, words := range f.concepts {
		for _, w := range words {
			out[i] += float32(strings.Count(lower, w))
		}
	}
	return out
}

func (f *conceptEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.embedCalls++
	f.mu.Unlock()
	if f.onEmbed != nil {
		f.onEmbed()
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

func (f *conceptEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.queries = append(f.queries, text)
	f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.vector(text), nil
}

func (f *conceptEmbedder) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type generatorFake struct {
	mu       sync.Mutex
	requests []domain.CompletionRequest
	respond  func(domain.CompletionRequest) (string, error)
}

func (f *generatorFake) Complete(_ context.Context, req domain.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.respond == nil {
		return "answer", nil
	}
	return f.respond(req)
}

func (f *generatorFake) calls() []domain.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.CompletionRequest(nil), f.requests...)
}

type catalogFake struct {
	aspects []domain.ReviewAspect
	err     error
}

func newCatalogFake() *catalogFake {
	return &catalogFake{aspects: []domain.ReviewAspect{
		{Key: domain.AspectPlot, Title: "Plot", Question: "plot"},
		{Key: domain.AspectCharacter, Title: "Character", Question: "character"},
		{Key: domain.AspectStyle, Title: "Style", Question: "style"},
		{Key: domain.AspectStructure, Title: "Structure", Question: "structure"},
	}}
}

func (f *catalogFake) AnswerSystemMessage() string { return "answer from context only" }

func (f *catalogFake) ReviewAspects() []domain.ReviewAspect {
	return append([]domain.ReviewAspect(nil), f.aspects...)
}

func (f *catalogFake) RenderPrompt(name string, data domain.PromptData) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	var b strings.Builder
	b.WriteString("prompt:" + name)
	if data.Genre != "" {
		b.WriteString(" genre:" + data.Genre)
	}
	if data.Excerpt != "" {
		b.WriteString("\n" + data.Excerpt)
	}
	if data.Summary != "" {
		b.WriteString("\nsummary:" + data.Summary)
	}
	for _, a := range data.Aspects {
		b.WriteString("\n" + a.Title + ":" + a.Analysis)
	}
	for _, issue := range data.Issues {
		b.WriteString("\nissue:" + issue.Description)
	}
	return b.String(), nil
}

const bobManuscript = "Chapter 1\nAlice meets Bob.\n\nChapter 2\nBob leaves town."

func newTestQueryUseCase(embedder *conceptEmbedder, generator *generatorFake) *QueryUseCase {
	return NewQueryUseCase(
		chunking.NewSegmenter(chunking.DefaultMaxChunkSize, chunking.DefaultOverlap),
		embedder,
		memory.NewRanker(),
		generator,
		newCatalogFake(),
		domain.QuerySettings{},
	)
}

func TestQueryRanksRelevantChunkFirst(t *testing.T) {
	embedder := newConceptEmbedder()
	generator := &generatorFake{}
	uc := newTestQueryUseCase(embedder, generator)

	answer, err := uc.AnswerFromDocument(context.Background(), domain.Document{ID: "doc-1", Content: bobManuscript}, "What happens to Bob?", 1)
	if err != nil {
		t.Fatalf("AnswerFromDocument() error = %v", err)
	}
	if len(answer.Sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(answer.Sources))
	}
	if !strings.Contains(answer.Sources[0].Chunk.Content, "Bob leaves town") {
		t.Fatalf("expected departure chunk first, got %q", answer.Sources[0].Chunk.Content)
	}

	req := generator.calls()[0]
	if req.SystemMessage != "answer from context only" {
		t.Fatalf("unexpected system message: %q", req.SystemMessage)
	}
	if !strings.Contains(req.Prompt, "[Chapter 2, Chunk 1]\nChapter 2\nBob leaves town.") {
		t.Fatalf("expected labeled context in prompt, got %q", req.Prompt)
	}
	if req.Temperature != 0.3 || req.MaxTokens != 500 {
		t.Fatalf("unexpected defaults: %+v", req)
	}
}

func TestQueryDefaultsTopKAndFallsBack(t *testing.T) {
	embedder := newConceptEmbedder()
	generator := &generatorFake{respond: func(domain.CompletionRequest) (string, error) { return "   ", nil }}
	uc := newTestQueryUseCase(embedder, generator)

	embeddings := make([]domain.ChunkEmbedding, 0, 5)
	for i := 0; i < 5; i++ {
		embeddings = append(embeddings, domain.ChunkEmbedding{
			Chunk:  domain.DocumentChunk{ChunkIndex: i, Content: "Bob"},
			Vector: embedder.vector("Bob"),
		})
	}

	answer, err := uc.Query(context.Background(), "Bob?", embeddings, 0)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(answer.Sources) != DefaultQueryTopK {
		t.Fatalf("expected %d sources, got %d", DefaultQueryTopK, len(answer.Sources))
	}
	if answer.Text != NoAnswerFallback {
		t.Fatalf("expected fallback answer, got %q", answer.Text)
	}
	if !strings.Contains(generator.calls()[0].Prompt, "[Front matter, Chunk 0]") {
		t.Fatalf("expected front matter label, got %q", generator.calls()[0].Prompt)
	}
}

func TestQueryWithEmptyEmbeddingsStillGenerates(t *testing.T) {
	generator := &generatorFake{}
	uc := newTestQueryUseCase(newConceptEmbedder(), generator)

	answer, err := uc.Query(context.Background(), "Anything?", nil, 3)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(answer.Sources) != 0 || len(generator.calls()) != 1 {
		t.Fatalf("expected generation with empty context, got %+v", answer)
	}
}

func TestQueryErrorKinds(t *testing.T) {
	uc := newTestQueryUseCase(newConceptEmbedder(), &generatorFake{})
	if _, err := uc.Query(context.Background(), "  ", nil, 3); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty question, got %v", err)
	}

	embedder := newConceptEmbedder()
	embedder.queryErr = errors.New("embed fail")
	uc = newTestQueryUseCase(embedder, &generatorFake{})
	if _, err := uc.Query(context.Background(), "q", nil, 3); !domain.IsKind(err, domain.ErrCollaborator) {
		t.Fatalf("expected collaborator error, got %v", err)
	}

	generator := &generatorFake{respond: func(domain.CompletionRequest) (string, error) { return "", errors.New("model down") }}
	uc = newTestQueryUseCase(newConceptEmbedder(), generator)
	if _, err := uc.Query(context.Background(), "q", nil, 3); !domain.IsKind(err, domain.ErrCollaborator) {
		t.Fatalf("expected collaborator error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := uc.Query(ctx, "q", nil, 3); !domain.IsKind(err, domain.ErrCancelled) {
		t.Fatalf("expected cancelled error, got %v", err)
	}
}

func TestAnswerFromDocumentRejectsEmptyDocument(t *testing.T) {
	embedder := newConceptEmbedder()
	uc := newTestQueryUseCase(embedder, &generatorFake{})

	_, err := uc.AnswerFromDocument(context.Background(), domain.Document{Content: "\n\n"}, "q", 3)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if embedder.embedCalls != 0 {
		t.Fatalf("expected no embedding calls, got %d", embedder.embedCalls)
	}
}
