package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "github.com/kirillkom/manuscript-review/internal/adapters/http"
	"github.com/kirillkom/manuscript-review/internal/bootstrap"
	"github.com/kirillkom/manuscript-review/internal/config"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/manuscript-review/internal/observability/logging"
	"github.com/kirillkom/manuscript-review/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger, Metrics: httpMetrics.Review()})
	if err != nil {
		logger.Error("bootstrap_failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(cfg, httpadapter.Dependencies{
		Reviewer:   app.Engine.Review,
		Questioner: app.Engine.Query,
		Submitter:  app.SubmitUC,
		Jobs:       app.SubmitUC,
		Usage:      app.Engine.Usage,
		PDFText:    pdf.ExtractBytes,
		Metrics:    httpMetrics,
	}).Handler()

	writeTimeout := cfg.RequestTimeout + 30*time.Second
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api_shutdown_failed", slog.Any("error", err))
	}
}
