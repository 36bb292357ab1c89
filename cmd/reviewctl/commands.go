package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kirillkom/manuscript-review/internal/bootstrap"
	"github.com/kirillkom/manuscript-review/internal/config"
	"github.com/kirillkom/manuscript-review/internal/core/domain"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/chunking"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/manuscript-review/internal/observability/logging"
)

type rootOptions struct {
	provider  string
	chunkSize int
	logLevel  string
	asJSON    bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "reviewctl",
		Short:         "Chunk, question and review manuscripts from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.provider, "provider", "", "model provider (openai or ollama); defaults to LLM_PROVIDER")
	root.PersistentFlags().IntVar(&opts.chunkSize, "chunk-size", 0, "maximum chunk size in characters; defaults to CHUNK_MAX_SIZE")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print JSON instead of formatted text")

	root.AddCommand(newChunksCommand(opts), newAskCommand(opts), newReviewCommand(opts))
	return root
}

func (o *rootOptions) config() config.Config {
	cfg := config.Load()
	if o.provider != "" {
		cfg.LLMProvider = strings.ToLower(o.provider)
	}
	if o.chunkSize > 0 {
		cfg.ChunkMaxSize = o.chunkSize
	}
	return cfg
}

func (o *rootOptions) engine(cfg config.Config) (*bootstrap.Engine, error) {
	logger := logging.New(os.Stderr, "", o.logLevel, "text")
	return bootstrap.NewEngine(cfg, bootstrap.EngineOptions{Logger: logger})
}

func newChunksCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chunks <file>",
		Short: "Show how a manuscript is split into chapter-aware chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadManuscript(args[0])
			if err != nil {
				return err
			}
			cfg := opts.config()
			chunks, err := chunking.NewSegmenter(cfg.ChunkMaxSize, cfg.ChunkOverlap).Chunk(doc.Content, doc.ID, 0)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), chunks)
			}
			renderChunks(cmd.OutOrStdout(), chunks)
			return nil
		},
	}
}

func newAskCommand(opts *rootOptions) *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "ask <file> <question>",
		Short: "Answer a question from the passages of a manuscript",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadManuscript(args[0])
			if err != nil {
				return err
			}
			engine, err := opts.engine(opts.config())
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			answer, err := engine.Query.AnswerFromDocument(ctx, doc, args[1], topK)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), answer)
			}
			renderAnswer(cmd.OutOrStdout(), answer)
			renderUsage(cmd.ErrOrStderr(), engine.Usage.Snapshot())
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of passages to retrieve; defaults to QUERY_TOP_K")
	return cmd
}

func newReviewCommand(opts *rootOptions) *cobra.Command {
	var (
		genre    string
		title    string
		xlsxPath string
		parallel bool
	)
	cmd := &cobra.Command{
		Use:   "review <file>",
		Short: "Run a full senior literary agent review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadManuscript(args[0])
			if err != nil {
				return err
			}
			if title != "" {
				doc.Title = title
			}
			cfg := opts.config()
			if parallel {
				cfg.ReviewParallelAspects = true
			}
			engine, err := opts.engine(cfg)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			review, err := engine.Review.ReviewManuscript(ctx, doc, genre)
			if err != nil {
				return err
			}
			if xlsxPath != "" {
				if err := writeSpreadsheet(xlsxPath, review); err != nil {
					return err
				}
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), review)
			}
			renderReview(cmd.OutOrStdout(), review)
			renderUsage(cmd.ErrOrStderr(), engine.Usage.Snapshot())
			return nil
		},
	}
	cmd.Flags().StringVarP(&genre, "genre", "g", "", "manuscript genre")
	cmd.Flags().StringVarP(&title, "title", "t", "", "manuscript title; defaults to the file name")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also write the issue list to this spreadsheet")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "analyse review aspects concurrently")
	return cmd
}

// loadManuscript reads a plain-text or PDF manuscript from disk.
func loadManuscript(path string) (domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read manuscript: %w", err)
	}

	base := filepath.Base(path)
	doc := domain.Document{
		ID:    strings.TrimSuffix(base, filepath.Ext(base)),
		Title: strings.TrimSuffix(base, filepath.Ext(base)),
	}

	format, ok := domain.DetectFormat(base, "")
	if !ok {
		format = domain.FormatPlainText
	}
	switch format {
	case domain.FormatPDF:
		doc.Content, err = pdf.ExtractBytes(data)
		if err != nil {
			return domain.Document{}, err
		}
	default:
		doc.Content = plaintext.Normalize(string(data))
	}
	if doc.Content == "" {
		return domain.Document{}, domain.WrapError(domain.ErrInvalidInput, "load manuscript", fmt.Errorf("%s has no text", path))
	}
	return doc, nil
}

func writeSpreadsheet(path string, review *domain.SeniorAgentReview) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create spreadsheet: %w", err)
	}
	if err := xlsx.WriteIssues(f, review); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
