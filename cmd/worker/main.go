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

	"github.com/kirillkom/manuscript-review/internal/bootstrap"
	"github.com/kirillkom/manuscript-review/internal/config"
	"github.com/kirillkom/manuscript-review/internal/observability/logging"
	"github.com/kirillkom/manuscript-review/internal/observability/metrics"
)

const service = "worker"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(service)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger, Metrics: workerMetrics.Review()})
	if err != nil {
		logger.Error("bootstrap_failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", slog.String("subject", cfg.NATSSubject), slog.String("queue_group", cfg.NATSQueueGroup))
	err = app.Queue.SubscribeReviewRequested(ctx, func(handlerCtx context.Context, jobID string) error {
		if job, err := app.Repo.GetByID(handlerCtx, jobID); err == nil {
			workerMetrics.ObserveQueueLag(service, time.Since(job.CreatedAt))
		}

		workerMetrics.StartJob()
		started := time.Now()
		err := app.ProcessUC.ProcessByID(handlerCtx, jobID)
		workerMetrics.FinishJob(service, time.Since(started), err)

		if err != nil {
			return err
		}
		logger.Info("review_job_completed", slog.String("job_id", jobID), slog.Duration("duration", time.Since(started)))
		return nil
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", slog.Any("error", err))
		os.Exit(1)
	}
}
