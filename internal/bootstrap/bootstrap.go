package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/kirillkom/document-triage/internal/config"
	"github.com/kirillkom/document-triage/internal/core/ports"
	"github.com/kirillkom/document-triage/internal/core/usecase"
	"github.com/kirillkom/document-triage/internal/infrastructure/chunking"
	"github.com/kirillkom/document-triage/internal/infrastructure/extractor/document"
	"github.com/kirillkom/document-triage/internal/infrastructure/fallback/linear"
	"github.com/kirillkom/document-triage/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/document-triage/internal/infrastructure/queue/nats"
	"github.com/kirillkom/document-triage/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/document-triage/internal/infrastructure/resilience"
	"github.com/kirillkom/document-triage/internal/infrastructure/sniff"
	"github.com/kirillkom/document-triage/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/document-triage/internal/observability/metrics"
)

// App holds the classification service and its optional side channels.
// Queue and Reviews are nil when NATS or Postgres are not configured.
type App struct {
	Config  config.Config
	Engine  usecase.Engine
	Sources EngineSources

	Classifier    *usecase.ClassifyFileUseCase
	ReviewStorage *localfs.Storage
	Reviews       *usecase.ReviewQueueUseCase
	Queue         *nats.Queue
	Metrics       *metrics.HTTPServerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	engine, sources, err := LoadEngine(cfg)
	if err != nil {
		return nil, err
	}

	httpMetrics := metrics.NewHTTPServerMetrics("triage-api")
	executor := resilience.NewExecutor(cfg.ResilienceConfig(),
		resilience.WithStateListener(httpMetrics.Pipeline.ObserveBreaker),
	)

	detector, err := sniff.New(cfg.MimeDetector)
	if err != nil {
		return nil, fmt.Errorf("init content type detector: %w", err)
	}
	extractor := document.New(document.Config{
		PDFMaxPages: cfg.PDFMaxPages,
		OCRLanguage: cfg.OCRLanguage,
	}, newOCR())

	fallback, err := newFallback(cfg, executor)
	if err != nil {
		return nil, err
	}

	strategy, err := localfs.ParseKeyStrategy(cfg.ReviewKeyStrategy)
	if err != nil {
		return nil, err
	}
	reviewStorage, err := localfs.New(cfg.ReviewStoragePath, strategy)
	if err != nil {
		return nil, fmt.Errorf("init review storage: %w", err)
	}

	opts := []usecase.Option{usecase.WithObserver(httpMetrics.Pipeline)}
	app := &App{
		Config:        cfg,
		Engine:        engine,
		Sources:       sources,
		ReviewStorage: reviewStorage,
		Metrics:       httpMetrics,
	}
	var closers []func()

	db, err := openPostgres(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if db != nil {
		closers = append(closers, func() { _ = db.Close() })
		opts = append(opts, usecase.WithOutcomeRepository(postgres.NewOutcomeRepository(db)))
		app.Reviews = usecase.NewReviewQueueUseCase(postgres.NewReviewRepository(db))
	}

	if cfg.NATSURL != "" {
		queue, err := nats.New(cfg.NATSURL, cfg.NATSReviewSubject, nats.Options{
			ClientName:         "triage-api",
			ResilienceExecutor: executor,
		})
		if err != nil {
			closeAll(closers)
			return nil, fmt.Errorf("init escalation queue: %w", err)
		}
		closers = append(closers, queue.Close)
		opts = append(opts, usecase.WithEscalationPublisher(queue))
		app.Queue = queue
	} else {
		slog.Info("escalation_events_disabled", "reason", "NATS_URL is empty")
	}

	app.Classifier = usecase.NewClassifyFileUseCase(engine, detector, extractor, fallback, reviewStorage, opts...)
	app.closeFn = func() { closeAll(closers) }
	return app, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// Worker consumes escalation events into the review queue. Both NATS and
// Postgres are required.
type Worker struct {
	Config     config.Config
	Subscriber ports.EscalationSubscriber
	Reviews    ports.ReviewRecorder
	Metrics    *metrics.WorkerMetrics

	closeFn func()
}

func NewWorker(ctx context.Context, cfg config.Config) (*Worker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.NATSURL == "" || cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("worker requires NATS_URL and POSTGRES_DSN")
	}

	db, err := openPostgres(ctx, cfg)
	if err != nil {
		return nil, err
	}
	queue, err := nats.New(cfg.NATSURL, cfg.NATSReviewSubject, nats.Options{ClientName: "triage-worker"})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init escalation queue: %w", err)
	}

	return &Worker{
		Config:     cfg,
		Subscriber: queue,
		Reviews:    usecase.NewReviewQueueUseCase(postgres.NewReviewRepository(db)),
		Metrics:    metrics.NewWorkerMetrics("triage-worker"),
		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (w *Worker) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

// OpenReviewQueue gives operator tooling direct access to the review queue and
// the stored documents.
func OpenReviewQueue(ctx context.Context, cfg config.Config) (*usecase.ReviewQueueUseCase, *localfs.Storage, func(), error) {
	if cfg.PostgresDSN == "" {
		return nil, nil, nil, fmt.Errorf("review queue requires POSTGRES_DSN")
	}
	db, err := openPostgres(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	strategy, err := localfs.ParseKeyStrategy(cfg.ReviewKeyStrategy)
	if err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	storage, err := localfs.New(cfg.ReviewStoragePath, strategy)
	if err != nil {
		_ = db.Close()
		return nil, nil, nil, fmt.Errorf("init review storage: %w", err)
	}
	return usecase.NewReviewQueueUseCase(postgres.NewReviewRepository(db)), storage, func() { _ = db.Close() }, nil
}

func openPostgres(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if cfg.PostgresDSN == "" {
		slog.Info("outcome_audit_disabled", "reason", "POSTGRES_DSN is empty")
		return nil, nil
	}
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

func newOCR() document.OCR {
	ocr, err := document.NewOCR()
	if err != nil {
		slog.Warn("image_ocr_unavailable", "error", err)
		return nil
	}
	return ocr
}

// newFallback loads the trained model when one is configured. The model's own
// embedding model name wins over OLLAMA_EMBED_MODEL since its weights only
// make sense for that embedding space.
func newFallback(cfg config.Config, executor *resilience.Executor) (*linear.Classifier, error) {
	if cfg.FallbackModelPath == "" {
		slog.Info("embedding_fallback_disabled", "reason", "FALLBACK_MODEL_PATH is empty")
		return linear.NewClassifier(nil, nil), nil
	}
	model, err := linear.LoadModel(cfg.FallbackModelPath)
	if err != nil {
		return nil, fmt.Errorf("load fallback model: %w", err)
	}

	embedModel := cfg.OllamaEmbedModel
	if model.EmbedModel != "" {
		if model.EmbedModel != embedModel {
			slog.Warn("embed_model_overridden", "configured", embedModel, "model", model.EmbedModel)
		}
		embedModel = model.EmbedModel
	}
	client := ollama.New(cfg.OllamaURL, embedModel, ollama.WithExecutor(executor))
	slog.Info("embedding_fallback_enabled", "labels", model.Labels, "embed_model", embedModel, "dim", model.Dim())
	splitter := chunking.NewSplitter(cfg.FallbackChunkRunes, cfg.FallbackChunkOverlap, cfg.FallbackMaxChunks)
	return linear.NewClassifier(ollama.NewEmbedder(client), model, linear.WithSplitter(splitter)), nil
}

func closeAll(closers []func()) {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}

// workDir is where ./config is looked up when CLASSIFIER_CONFIG_DIR is unset.
func workDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
