package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/learnhub/engine/internal/config"
	"github.com/learnhub/engine/internal/embeddings"
	"github.com/learnhub/engine/internal/googleai"
	"github.com/learnhub/engine/internal/jobs"
	"github.com/learnhub/engine/internal/observability"
	"github.com/learnhub/engine/internal/openai"
	"github.com/learnhub/engine/internal/repository"
	"github.com/learnhub/engine/internal/service"
	"github.com/learnhub/engine/internal/workers"
)

// App holds the worker's dependencies and coordinates startup and shutdown.
type App struct {
	cfg            *config.Config
	db             *pgxpool.Pool
	river          *river.Client[pgx.Tx]
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	metrics        *observability.Metrics
}

var errUnsupportedEmbeddingProvider = errors.New("unsupported embedding provider")

const (
	riverQueueDepthInterval = 15 * time.Second
	// Topic regeneration is a trickle next to interactions.
	topicVectorWorkers = 2
)

// setupMetrics creates the meter provider and engine metrics. Returns all nils when the
// exporter is disabled.
func setupMetrics(ctx context.Context, cfg *config.Config) (*sdkmetric.MeterProvider, *observability.Metrics, error) {
	mp, err := observability.NewMeterProvider(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create meter provider: %w", err)
	}

	if mp == nil {
		return nil, nil, nil
	}

	metrics, err := observability.NewMetrics(mp.Meter(observability.ScopeName))
	if err != nil {
		if err2 := observability.ShutdownMeterProvider(context.Background(), mp); err2 != nil {
			slog.Error("shutdown meter provider after metrics error", "error", err2)
		}

		return nil, nil, fmt.Errorf("create metrics: %w", err)
	}

	return mp, metrics, nil
}

// newEmbeddingClient builds the configured provider client behind a Guard.
func newEmbeddingClient(
	ctx context.Context, cfg *config.Config, metrics observability.EmbeddingMetrics,
) (*embeddings.Guard, error) {
	var inner embeddings.Client

	switch cfg.EmbeddingProvider {
	case config.EmbeddingProviderGoogle:
		client, err := googleai.NewClient(ctx, cfg.EmbeddingProviderAPIKey,
			googleai.WithModel(cfg.EmbeddingModel),
			googleai.WithDimensions(cfg.EmbeddingDimensions),
		)
		if err != nil {
			return nil, fmt.Errorf("create google embedding client: %w", err)
		}

		inner = client
	case config.EmbeddingProviderOpenAI:
		inner = openai.NewClient(cfg.EmbeddingProviderAPIKey,
			openai.WithModel(cfg.EmbeddingModel),
			openai.WithDimensions(cfg.EmbeddingDimensions),
		)
	case config.EmbeddingProviderMock:
		slog.Warn("using mock embeddings; vectors carry no meaning")

		inner = embeddings.NewMockClientWithDimensions(cfg.EmbeddingDimensions)
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedEmbeddingProvider, cfg.EmbeddingProvider)
	}

	return embeddings.NewGuard(inner, embeddings.GuardConfig{
		Provider:      cfg.EmbeddingProvider,
		Timeout:       cfg.EmbeddingTimeout,
		Dimensions:    cfg.EmbeddingDimensions,
		RatePerSecond: cfg.EmbeddingRateLimit,
		Metrics:       metrics,
	}), nil
}

func tuningFromConfig(cfg *config.Config) service.Tuning {
	t := service.DefaultTuning()
	t.SplashThreshold = cfg.SplashThreshold
	t.SplashGain = cfg.SplashGain
	t.SplashPenalty = cfg.SplashPenalty
	t.StudentDNANewWeight = cfg.StudentDNANewWeight
	t.GradedMasteryWeight = cfg.GradedMasteryWeight
	t.ClassroomSampleTarget = cfg.ClassroomSampleTarget
	t.ClassroomMinSampleProbability = cfg.ClassroomMinSampleProbability

	return t.WithDefaults()
}

// NewApp builds and wires all components. It does not start River; call Run.
func NewApp(ctx context.Context, cfg *config.Config, db *pgxpool.Pool) (*App, error) {
	var (
		err           error
		meterProvider *sdkmetric.MeterProvider
		metrics       *observability.Metrics
	)

	if cfg.OtelMetricsExporter == "" {
		slog.Warn("metrics not enabled (OTEL_METRICS_EXPORTER empty or unset)")
	} else {
		meterProvider, metrics, err = setupMetrics(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	var (
		embeddingMetrics observability.EmbeddingMetrics
		pipelineMetrics  observability.PipelineMetrics
		cacheMetrics     observability.TopicVectorCacheMetrics
	)
	if metrics != nil {
		embeddingMetrics = metrics.Embeddings
		pipelineMetrics = metrics.Pipeline
		cacheMetrics = metrics.TopicVectorCache
	}

	var tracerProvider *sdktrace.TracerProvider

	if cfg.OtelTracesExporter == "" {
		slog.Warn("tracing not enabled (OTEL_TRACES_EXPORTER empty or unset)")
	} else {
		tracerProvider, err = observability.NewTracerProvider(ctx, cfg)
		if err != nil {
			shutdownQuietly(meterProvider, nil)

			return nil, fmt.Errorf("create tracer provider: %w", err)
		}
	}

	// Installed unconditionally so job_kind/job_id (and trace ids when tracing is on) reach the logs.
	slog.SetDefault(slog.New(observability.NewTraceContextHandler(slog.Default().Handler())))

	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)
	}

	if meterProvider != nil {
		otel.SetMeterProvider(meterProvider)
	}

	embedder, err := newEmbeddingClient(ctx, cfg, embeddingMetrics)
	if err != nil {
		shutdownQuietly(meterProvider, tracerProvider)

		return nil, err
	}

	tuning := tuningFromConfig(cfg)

	vectorsRepo := repository.NewKnowledgeVectorsRepository(db)
	topicsRepo := repository.NewTopicsRepository(db)
	masteryRepo := repository.NewMasteryRepository(db)
	interactionsRepo := repository.NewInteractionsRepository(db)
	quizzesRepo := repository.NewQuizzesRepository(db)

	topicCache, err := service.NewTopicVectorCache(cfg.TopicVectorCacheSize, cfg.TopicVectorCacheTTL)
	if err != nil {
		shutdownQuietly(meterProvider, tracerProvider)

		return nil, err
	}

	splash := service.NewSplashPropagator(topicsRepo, topicCache, cacheMetrics)
	mastery := service.NewMasterySynthesizer(masteryRepo, tuning, pipelineMetrics)
	dna := service.NewDNASynthesizer(vectorsRepo, service.NewAdaptiveSampler(tuning), tuning, pipelineMetrics)

	pipeline := service.NewKnowledgePipeline(service.KnowledgePipelineDeps{
		Resolver:     service.NewContextResolver(topicsRepo),
		Embedder:     embedder,
		Interactions: interactionsRepo,
		Splash:       splash,
		Mastery:      mastery,
		DNA:          dna,
		Tuning:       tuning,
		Metrics:      pipelineMetrics,
	})
	topicVectors := service.NewTopicVectorService(embedder, topicsRepo, splash)
	graded := service.NewGradedMasteryService(quizzesRepo, mastery)

	riverWorkers := river.NewWorkers()
	river.AddWorker(riverWorkers, workers.NewKnowledgePipelineWorker(pipeline, 0))
	river.AddWorker(riverWorkers, workers.NewTopicVectorWorker(topicVectors))
	river.AddWorker(riverWorkers, workers.NewGradedMasteryWorker(graded))

	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{
		Queues: map[string]river.QueueConfig{
			service.KnowledgeQueueName:    {MaxWorkers: cfg.PipelineMaxConcurrent},
			service.TopicVectorsQueueName: {MaxWorkers: topicVectorWorkers},
		},
		Workers:      riverWorkers,
		ErrorHandler: &jobs.ErrorHandler{},
		MaxAttempts:  cfg.PipelineMaxAttempts,
	})
	if err != nil {
		shutdownQuietly(meterProvider, tracerProvider)

		return nil, fmt.Errorf("create River client: %w", err)
	}

	slog.Info("knowledge engine configured",
		"embedding_provider", cfg.EmbeddingProvider,
		"embedding_dimensions", cfg.EmbeddingDimensions,
		"pipeline_workers", cfg.PipelineMaxConcurrent,
		"splash_threshold", tuning.SplashThreshold,
	)

	return &App{
		cfg:            cfg,
		db:             db,
		river:          riverClient,
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
		metrics:        metrics,
	}, nil
}

// Run starts River and blocks until ctx is cancelled or River fails to start.
// Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	riverCtx, cancelRiver := context.WithCancel(ctx)
	defer cancelRiver()

	if a.metrics != nil && a.metrics.Pipeline != nil {
		go runRiverQueueDepthPoller(riverCtx, a.db, a.metrics.Pipeline)
	}

	if err := a.river.Start(riverCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("river: %w", err)
	}

	slog.Info("Worker started", "queues", []string{service.KnowledgeQueueName, service.TopicVectorsQueueName})

	<-ctx.Done()

	return nil
}

// runRiverQueueDepthPoller periodically updates the knowledge queue depth gauge.
func runRiverQueueDepthPoller(ctx context.Context, db *pgxpool.Pool, pipelineMetrics observability.PipelineMetrics) {
	ticker := time.NewTicker(riverQueueDepthInterval)
	defer ticker.Stop()

	update := func() {
		var count int

		err := db.QueryRow(ctx,
			`SELECT COUNT(*) FROM river_job WHERE queue = $1 AND state IN ($2, $3, $4)`,
			service.KnowledgeQueueName,
			rivertype.JobStateAvailable, rivertype.JobStateRetryable, rivertype.JobStateScheduled,
		).Scan(&count)
		if err != nil {
			slog.WarnContext(ctx, "river queue depth poll failed", "error", err)

			return
		}

		pipelineMetrics.SetRiverQueueDepth(count)
	}

	update()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}

// shutdownObservability shuts down tracer and meter providers. Logs secondary errors, returns the first.
func shutdownObservability(ctx context.Context, tracer *sdktrace.TracerProvider, meter *sdkmetric.MeterProvider) error {
	var first error

	if tracer != nil {
		if err := observability.ShutdownTracerProvider(ctx, tracer); err != nil {
			first = err
		}
	}

	if meter != nil {
		if err := observability.ShutdownMeterProvider(ctx, meter); err != nil {
			if first == nil {
				first = err
			} else {
				slog.Error("shutdown meter provider", "error", err)
			}
		}
	}

	return first
}

func shutdownQuietly(meter *sdkmetric.MeterProvider, tracer *sdktrace.TracerProvider) {
	if err := shutdownObservability(context.Background(), tracer, meter); err != nil {
		slog.Error("shutdown observability after init error", "error", err)
	}
}

// Shutdown stops River, waiting for in-flight jobs, then flushes observability.
func (a *App) Shutdown(ctx context.Context) (err error) {
	defer func() {
		obsErr := shutdownObservability(ctx, a.tracerProvider, a.meterProvider)
		if err == nil {
			err = obsErr
		} else if obsErr != nil {
			slog.Error("shutdown observability", "error", obsErr)
		}
	}()

	if err = a.river.Stop(ctx); err != nil {
		return fmt.Errorf("river stop: %w", err)
	}

	return nil
}
