package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/manuscript-review/internal/config"
	"github.com/kirillkom/manuscript-review/internal/core/domain"
	"github.com/kirillkom/manuscript-review/internal/core/ports"
	"github.com/kirillkom/manuscript-review/internal/core/usecase"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/chunking"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/extractor"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/llm/openai"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/prompts"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/queue/nats"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/resilience"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/usage"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/vector/memory"
	"github.com/kirillkom/manuscript-review/internal/observability/metrics"
)

// Engine is the in-process review stack: no database, queue or storage.
// The CLI and the MCP server run on it directly.
type Engine struct {
	Chunker *chunking.Segmenter
	Query   *usecase.QueryUseCase
	Review  *usecase.ReviewUseCase
	Usage   *usage.Ledger
}

type EngineOptions struct {
	Logger  *slog.Logger
	Metrics *metrics.ReviewMetrics
}

func NewEngine(cfg config.Config, opts EngineOptions) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	catalog, err := prompts.Load(cfg.ReviewPromptsPath)
	if err != nil {
		return nil, fmt.Errorf("load review prompts: %w", err)
	}

	ledger := usage.NewLedger(nil)
	if opts.Metrics != nil {
		ledger.WithObserver(opts.Metrics.ObserveUsage)
	}

	executor := resilience.NewExecutor(resilienceConfig(cfg)).WithLogger(logger)
	embedder, generator, err := newModelClients(cfg, executor, ledger)
	if err != nil {
		return nil, err
	}

	chunker := chunking.NewSegmenter(cfg.ChunkMaxSize, cfg.ChunkOverlap)
	queryUC := usecase.NewQueryUseCase(chunker, embedder, memory.NewRanker(), generator, catalog, domain.QuerySettings{
		TopK:        cfg.QueryTopK,
		Temperature: cfg.QueryTemperature,
		MaxTokens:   cfg.QueryMaxTokens,
	})
	reviewUC := usecase.NewReviewUseCase(chunker, embedder, generator, queryUC, catalog, domain.ReviewSettings{
		MaxChunkSize:    cfg.ChunkMaxSize,
		SummaryChunks:   cfg.ReviewSummaryChunks,
		AspectTopK:      cfg.ReviewAspectTopK,
		IssueTopK:       cfg.ReviewIssueTopK,
		ParallelAspects: cfg.ReviewParallelAspects,
		Temperature:     cfg.ReviewTemperature,
		MaxTokens:       cfg.ReviewMaxTokens,
	}).WithLogger(logger)
	if opts.Metrics != nil {
		reviewUC.WithObserver(opts.Metrics)
	}

	return &Engine{
		Chunker: chunker,
		Query:   queryUC,
		Review:  reviewUC,
		Usage:   ledger,
	}, nil
}

func newModelClients(cfg config.Config, executor *resilience.Executor, ledger *usage.Ledger) (ports.Embedder, ports.TextGenerator, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, nil, fmt.Errorf("OPENAI_API_KEY is required for provider %q", cfg.LLMProvider)
		}
		client := openai.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIChatModel, cfg.OpenAIEmbedModel).
			WithResilience(executor).
			WithUsageRecorder(ledger).
			WithEmbedBatchSize(cfg.OpenAIEmbedBatchSize)
		return openai.NewEmbedder(client), openai.NewGenerator(client), nil
	case config.ProviderOllama:
		client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel).
			WithResilience(executor).
			WithUsageRecorder(ledger)
		return ollama.NewEmbedder(client), ollama.NewGenerator(client), nil
	default:
		return nil, nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	if cfg.RetryMaxAttempts > 0 {
		out.RetryMaxAttempts = cfg.RetryMaxAttempts
	}
	out.BreakerEnabled = cfg.BreakerEnabled
	return out
}

type App struct {
	Config config.Config
	Engine *Engine

	Queue     ports.MessageQueue
	Repo      ports.ReviewRepository
	SubmitUC  *usecase.SubmitReviewUseCase
	ProcessUC *usecase.ProcessReviewUseCase
	Extractor *extractor.Router

	closeFn func()
}

type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.ReviewMetrics
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engine, err := NewEngine(cfg, EngineOptions{Logger: logger, Metrics: opts.Metrics})
	if err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewReviewRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		QueueGroup:         cfg.NATSQueueGroup,
		HandlerTimeout:     cfg.WorkerJobTimeout,
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()).WithLogger(logger),
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	router := extractor.NewRouter(plaintext.NewExtractor(storage), pdf.NewExtractor(storage))

	return &App{
		Config: cfg,
		Engine: engine,
		Queue:  queue,
		Repo:   repo,

		SubmitUC:  usecase.NewSubmitReviewUseCase(repo, storage, queue),
		ProcessUC: usecase.NewProcessReviewUseCase(repo, router, engine.Review),
		Extractor: router,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
