package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kirillkom/document-triage/internal/bootstrap"
	"github.com/kirillkom/document-triage/internal/config"
	"github.com/kirillkom/document-triage/internal/core/domain"
	"github.com/kirillkom/document-triage/internal/observability/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	slog.SetDefault(logging.New(os.Stdout, "triage-worker", cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker, err := bootstrap.NewWorker(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer worker.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           worker.Metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSReviewSubject, "metrics_addr", metricsServer.Addr)
	err = worker.Subscriber.SubscribeEscalations(ctx, func(handlerCtx context.Context, event domain.ReviewEscalation) error {
		recordCtx, cancel := context.WithTimeout(handlerCtx, cfg.WorkerEscalationTimeout)
		defer cancel()

		if !event.EscalatedAt.IsZero() {
			worker.Metrics.ObserveLag(time.Since(event.EscalatedAt))
		}
		worker.Metrics.StartEscalation()
		start := time.Now()
		err := worker.Reviews.RecordEscalation(recordCtx, event)
		worker.Metrics.FinishEscalation(time.Since(start), err)
		if err != nil {
			slog.ErrorContext(recordCtx, "review_enqueue_failed", "review_id", event.ID, "error", err)
			return err
		}
		slog.InfoContext(recordCtx, "review_enqueued", "review_id", event.ID, "filename", event.Filename)
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
