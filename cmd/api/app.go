package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/ideaspark/hub/internal/api/handlers"
	"github.com/ideaspark/hub/internal/api/middleware"
	"github.com/ideaspark/hub/internal/config"
	"github.com/ideaspark/hub/internal/embeddings"
	"github.com/ideaspark/hub/internal/googleai"
	"github.com/ideaspark/hub/internal/jobs"
	"github.com/ideaspark/hub/internal/layout"
	"github.com/ideaspark/hub/internal/observability"
	"github.com/ideaspark/hub/internal/openai"
	"github.com/ideaspark/hub/internal/projection"
	"github.com/ideaspark/hub/internal/repository"
	"github.com/ideaspark/hub/internal/service"
	"github.com/ideaspark/hub/internal/workers"
)

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg            *config.Config
	db             *pgxpool.Pool
	server         *http.Server
	river          *river.Client[pgx.Tx]
	message        *service.MessagePublisherManager
	snapshot       *service.LayoutSnapshot
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	metrics        *observability.Metrics
}

var errUnsupportedEmbeddingProvider = errors.New("unsupported embedding provider")

const (
	embeddingProviderOpenAI = "openai"
	embeddingProviderGoogle = "google"
	embeddingProviderMock   = "mock"
)

const riverQueueDepthInterval = 15 * time.Second

// embeddingSDKRetries covers transient HTTP failures inside one provider call; the River
// worker retries whole jobs on top of this.
const embeddingSDKRetries = 2

// newEmbeddingClient returns the configured provider, or nil when EMBEDDING_PROVIDER is empty
// (ideas are then stored without embeddings unless clients send them).
func newEmbeddingClient(ctx context.Context, cfg *config.Config) (service.EmbeddingClient, error) {
	switch cfg.EmbeddingProvider {
	case "":
		//nolint:nilnil // no provider configured; callers check for nil
		return nil, nil
	case embeddingProviderOpenAI:
		return openai.NewClient(openai.Config{
			APIKey:     cfg.EmbeddingProviderAPIKey,
			Model:      cfg.EmbeddingModel,
			BaseURL:    cfg.EmbeddingBaseURL,
			Dimensions: cfg.EmbeddingDimensions,
			MaxRetries: embeddingSDKRetries,
		}), nil
	case embeddingProviderGoogle:
		client, err := googleai.NewClient(ctx, googleai.Config{
			APIKey:     cfg.EmbeddingProviderAPIKey,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("create google embedding client: %w", err)
		}

		return client, nil
	case embeddingProviderMock:
		return embeddings.NewMockClient(cfg.EmbeddingDimensions), nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedEmbeddingProvider, cfg.EmbeddingProvider)
	}
}

// layoutConfig maps process configuration onto the layout pipeline.
func layoutConfig(cfg *config.Config) (service.LayoutConfig, error) {
	metric, err := projection.ParseMetric(cfg.ProjectionMetric)
	if err != nil {
		return service.LayoutConfig{}, fmt.Errorf("PROJECTION_METRIC: %w", err)
	}

	params := projection.DefaultParams()
	params.NNeighbors = cfg.ProjectionNeighbors
	params.MinDist = cfg.ProjectionMinDist
	params.Spread = cfg.ProjectionSpread
	params.Epochs = cfg.ProjectionEpochs
	params.Metric = metric

	if err := params.Validate(); err != nil {
		return service.LayoutConfig{}, fmt.Errorf("projection parameters: %w", err)
	}

	return service.LayoutConfig{
		Dimensions: cfg.EmbeddingDimensions,
		MaxIdeas:   cfg.LayoutMaxIdeas,
		Viewport: layout.Viewport{
			Width:  cfg.LayoutWidth,
			Height: cfg.LayoutHeight,
			Margin: cfg.LayoutMargin,
		},
		Edges: layout.EdgeOptions{
			Threshold: cfg.EdgeDistanceThreshold,
			MinWidth:  cfg.EdgeMinWidth,
			Scale:     cfg.EdgeWidthScale,
		},
		Projection: params,
	}, nil
}

// setupMetrics creates meter provider and hub metrics when metrics are enabled. The handler
// is non-nil only for the prometheus exporter. When NewMeterProvider returns nil (unsupported
// exporter), everything is nil and metrics stay disabled.
func setupMetrics(cfg *config.Config) (*sdkmetric.MeterProvider, http.Handler, *observability.Metrics, error) {
	mp, handler, err := observability.NewMeterProvider(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create meter provider: %w", err)
	}

	if mp == nil {
		return nil, nil, nil, nil
	}

	metrics, err := observability.NewMetrics(mp.Meter("hub"))
	if err != nil {
		err2 := observability.ShutdownMeterProvider(context.Background(), mp)
		if err2 != nil {
			slog.Error("shutdown meter provider after metrics error", "error", err2)
		}

		return nil, nil, nil, fmt.Errorf("create metrics: %w", err)
	}

	return mp, handler, metrics, nil
}

// metricGroups splits the aggregate into the per-component interfaces; every field is nil when
// metrics are disabled.
type metricGroups struct {
	events     observability.EventMetrics
	embeddings observability.EmbeddingMetrics
	cache      observability.CacheMetrics
	api        observability.APIMetrics
	layout     observability.LayoutMetrics
	match      observability.MatchMetrics
}

func groupsOf(m *observability.Metrics) metricGroups {
	if m == nil {
		return metricGroups{}
	}

	return metricGroups{
		events:     m.Events,
		embeddings: m.Embeddings,
		cache:      m.Cache,
		api:        m.API,
		layout:     m.Layout,
		match:      m.Match,
	}
}

// NewApp builds and wires all components. It does not start the HTTP server or River;
// call Run to start and block until shutdown or failure.
func NewApp(cfg *config.Config, db *pgxpool.Pool) (*App, error) {
	layoutCfg, err := layoutConfig(cfg)
	if err != nil {
		return nil, err
	}

	var (
		meterProvider  *sdkmetric.MeterProvider
		metricsHandler http.Handler
		metrics        *observability.Metrics
	)

	if cfg.OtelMetricsExporter == "" {
		slog.Warn("metrics not enabled (OTEL_METRICS_EXPORTER empty or unset)")
	} else {
		meterProvider, metricsHandler, metrics, err = setupMetrics(cfg)
		if err != nil {
			return nil, err
		}
	}

	groups := groupsOf(metrics)

	var tracerProvider *sdktrace.TracerProvider

	if cfg.OtelTracesExporter == "" {
		slog.Warn("tracing not enabled (OTEL_TRACES_EXPORTER empty or unset)")
	} else {
		tracerProvider, err = observability.NewTracerProvider(cfg)
		if err != nil {
			shutdownAfterInitError(meterProvider, nil)

			return nil, fmt.Errorf("create tracer provider: %w", err)
		}
	}

	// Install TraceContextHandler unconditionally so request_id (and trace_id/span_id when tracing is on) appear in logs.
	defaultHandler := slog.Default().Handler()
	slog.SetDefault(slog.New(observability.NewTraceContextHandler(defaultHandler)))

	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)
	}

	if meterProvider != nil {
		otel.SetMeterProvider(meterProvider)
	}

	provider, err := newEmbeddingClient(context.Background(), cfg)
	if err != nil {
		shutdownAfterInitError(meterProvider, tracerProvider)

		return nil, err
	}

	// The API path gets breaker plus query cache; the worker gets the breaker only.
	var (
		apiEmbedder    service.EmbeddingClient
		workerEmbedder service.EmbeddingClient
	)

	if provider != nil {
		breaker := service.NewBreakerEmbeddingClient(provider, cfg.EmbeddingBreakerFailures, cfg.EmbeddingBreakerTimeout, groups.embeddings)

		cached, err := service.NewCachingEmbeddingClient(breaker, cfg.EmbeddingCacheSize, groups.cache)
		if err != nil {
			shutdownAfterInitError(meterProvider, tracerProvider)

			return nil, fmt.Errorf("create embedding cache: %w", err)
		}

		apiEmbedder = cached
		workerEmbedder = breaker

		slog.Info("embeddings enabled", "provider", cfg.EmbeddingProvider, "model", cfg.EmbeddingModel,
			"dimensions", cfg.EmbeddingDimensions)
	} else {
		slog.Warn("embeddings disabled (EMBEDDING_PROVIDER empty or unset)")
	}

	messageManager := service.NewMessagePublisherManager(cfg.MessagePublisherBufferSize, cfg.MessagePublisherPerEventTimeout, groups.events)

	ideasRepo := repository.NewIdeasRepository(db)

	matchService := service.NewMatchService(ideasRepo, apiEmbedder, service.MatchConfig{
		Mode:       cfg.MatchMode,
		Threshold:  cfg.SimilarityThreshold,
		Limit:      cfg.MatchLimit,
		Dimensions: cfg.EmbeddingDimensions,
	}, groups.match)

	ideasService := service.NewIdeasService(service.IdeasServiceParams{
		Repo:       ideasRepo,
		Embedder:   apiEmbedder,
		Matches:    matchService,
		Publisher:  messageManager,
		Dimensions: cfg.EmbeddingDimensions,
	})

	var riverClient *river.Client[pgx.Tx]

	if workerEmbedder != nil {
		riverClient, err = newRiverClient(cfg, db, ideasService, workerEmbedder, groups.embeddings)
		if err != nil {
			messageManager.Shutdown()
			shutdownAfterInitError(meterProvider, tracerProvider)

			return nil, err
		}

		enqueuer := jobs.NewEnqueuer(riverClient, cfg.EmbeddingMaxAttempts)
		ideasService.SetEnqueuer(enqueuer)
		messageManager.RegisterProvider(service.NewEmbeddingProvider(enqueuer, groups.embeddings))
	}

	layoutService := service.NewLayoutService(ideasRepo, layoutCfg, groups.layout, slog.Default())
	snapshot := service.NewLayoutSnapshot(ideasRepo, layoutCfg, cfg.ProjectionTimeout, groups.layout, slog.Default())
	messageManager.RegisterProvider(snapshot)

	server := newHTTPServer(cfg, routes{
		health: handlers.NewHealthHandler(db),
		ideas:  handlers.NewIdeasHandler(ideasService),
		match:  handlers.NewMatchHandler(matchService),
		layout: handlers.NewLayoutHandler(layoutService, snapshot),
	}, metricsHandler, groups.api, meterProvider, tracerProvider)

	return &App{
		cfg:            cfg,
		db:             db,
		server:         server,
		river:          riverClient,
		message:        messageManager,
		snapshot:       snapshot,
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
		metrics:        metrics,
	}, nil
}

// newRiverClient registers the embedding worker on the embeddings queue.
func newRiverClient(
	cfg *config.Config,
	db *pgxpool.Pool,
	ideas *service.IdeasService,
	embedder service.EmbeddingClient,
	metrics observability.EmbeddingMetrics,
) (*river.Client[pgx.Tx], error) {
	riverWorkers := river.NewWorkers()
	river.AddWorker(riverWorkers, workers.NewIdeaEmbeddingWorker(ideas, embedder, cfg.EmbeddingRateLimit, metrics))

	client, err := river.NewClient(riverpgxv5.New(db), &river.Config{
		Queues: map[string]river.QueueConfig{
			jobs.EmbeddingsQueueName: {MaxWorkers: cfg.EmbeddingMaxConcurrent},
		},
		Workers:      riverWorkers,
		ErrorHandler: jobs.NewErrorHandler(metrics),
		MaxAttempts:  cfg.EmbeddingMaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("create River client: %w", err)
	}

	return client, nil
}

// shutdownAfterInitError releases whichever providers were created before NewApp failed.
func shutdownAfterInitError(meter *sdkmetric.MeterProvider, tracer *sdktrace.TracerProvider) {
	if err := shutdownObservability(context.Background(), tracer, meter); err != nil {
		slog.Error("shutdown observability after init error", "error", err)
	}
}

type routes struct {
	health *handlers.HealthHandler
	ideas  *handlers.IdeasHandler
	match  *handlers.MatchHandler
	layout *handlers.LayoutHandler
}

// newHTTPServer builds the HTTP server and muxes (no auth on /health, /ready and /metrics,
// API key on /v1/). Handler chain: RequestID -> otelhttp(Logging(mux)) so access logs get
// trace_id/span_id from context.
func newHTTPServer(
	cfg *config.Config,
	r routes,
	metricsHandler http.Handler,
	apiMetrics observability.APIMetrics,
	meterProvider *sdkmetric.MeterProvider,
	tracerProvider *sdktrace.TracerProvider,
) *http.Server {
	public := http.NewServeMux()
	public.HandleFunc("GET /health", r.health.Check)
	public.HandleFunc("GET /ready", r.health.Ready)

	if metricsHandler != nil {
		public.Handle("GET /metrics", metricsHandler)
	}

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/ideas", r.ideas.Create)
	protected.HandleFunc("GET /v1/ideas", r.ideas.List)
	protected.HandleFunc("POST /v1/ideas/import", r.ideas.Import)
	protected.HandleFunc("POST /v1/ideas/match", r.match.Match)
	protected.HandleFunc("POST /v1/embed", r.match.Embed)
	protected.HandleFunc("POST /v1/ideas/backfill-embeddings", r.ideas.Backfill)
	protected.HandleFunc("GET /v1/ideas/{id}", r.ideas.Get)
	protected.HandleFunc("DELETE /v1/ideas/{id}", r.ideas.Delete)

	protected.HandleFunc("GET /v1/layout", r.layout.Get)
	protected.HandleFunc("GET /v1/layout/snapshot", r.layout.Snapshot)

	var protectedHandler http.Handler = protected
	protectedHandler = middleware.MaxBody(cfg.MaxRequestBodyBytes, apiMetrics)(protectedHandler)
	protectedHandler = middleware.Auth(cfg.APIKey, apiMetrics)(protectedHandler)

	mux := http.NewServeMux()
	mux.Handle("/v1/", protectedHandler)
	mux.Handle("/", public)

	otelOpts := []otelhttp.Option{
		// Skip tracing and HTTP metrics for health checks and scrapes to reduce noise.
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/ready" && r.URL.Path != "/metrics"
		}),
	}
	if meterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(meterProvider))
	}

	if tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(tracerProvider))
	}

	// Logging runs inside otelhttp so r.Context() has the span when we log (trace_id/span_id in access logs).
	inner := middleware.Logging(mux)
	handler := otelhttp.NewHandler(inner, "idea-hub-api", otelOpts...)
	handler = middleware.RequestID(handler)

	const (
		readTimeout = 15 * time.Second
		// A synchronous layout may run up to PROJECTION_TIMEOUT.
		minWriteTimeout = 15 * time.Second
		idleTimeout     = 60 * time.Second
	)

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: max(minWriteTimeout, cfg.ProjectionTimeout+5*time.Second),
		IdleTimeout:  idleTimeout,
	}
}

// Run starts the HTTP server and River, triggers the first background layout, then blocks until
// ctx is cancelled (e.g. signal) or a component fails. When ctx is cancelled or a component fails,
// it cancels the internal River context so River and the queue depth poller stop before Run
// returns. Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	riverCtx, cancelRiver := context.WithCancel(ctx)
	defer cancelRiver()

	if a.river != nil {
		if a.metrics != nil && a.metrics.Events != nil {
			go runRiverQueueDepthPoller(riverCtx, a.db, a.metrics.Events)
		}

		go func() {
			if err := a.river.Start(riverCtx); err != nil && !errors.Is(err, context.Canceled) {
				select {
				case runErr <- fmt.Errorf("river: %w", err):
				default:
				}
			}
		}()
	}

	if gen, err := a.snapshot.Refresh(ctx); err != nil {
		slog.WarnContext(ctx, "initial layout refresh failed", "error", err)
	} else {
		slog.InfoContext(ctx, "initial layout scheduled", "generation", gen)
	}

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case runErr <- fmt.Errorf("server: %w", err):
			default:
			}
		}
	}()

	select {
	case err := <-runErr:
		cancelRiver()

		return err
	case <-ctx.Done():
		cancelRiver()

		return nil
	}
}

// runRiverQueueDepthPoller periodically updates the embeddings queue depth gauge.
func runRiverQueueDepthPoller(ctx context.Context, db *pgxpool.Pool, eventMetrics observability.EventMetrics) {
	ticker := time.NewTicker(riverQueueDepthInterval)
	defer ticker.Stop()

	update := func() {
		var count int

		err := db.QueryRow(ctx,
			`SELECT COUNT(*) FROM river_job WHERE queue = $1 AND state IN ($2, $3, $4)`,
			jobs.EmbeddingsQueueName,
			rivertype.JobStateAvailable, rivertype.JobStateRetryable, rivertype.JobStateScheduled,
		).Scan(&count)
		if err != nil {
			if ctx.Err() == nil {
				slog.WarnContext(ctx, "river queue depth poll failed", "error", err)
			}

			return
		}

		eventMetrics.SetRiverQueueDepth(count)
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

// Shutdown stops the server, River, the message publisher and the layout runner in that order.
// Call after Run returns. Observability is shut down once via defer; its error is returned only
// when server and River shut down successfully.
func (a *App) Shutdown(ctx context.Context) (err error) {
	defer a.snapshot.Close()
	defer a.message.Shutdown()

	defer func() {
		obsErr := shutdownObservability(ctx, a.tracerProvider, a.meterProvider)
		if err == nil {
			err = obsErr
		} else if obsErr != nil {
			slog.Error("shutdown observability", "error", obsErr)
		}
	}()

	if err = a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		if a.river != nil {
			if stopErr := a.river.Stop(ctx); stopErr != nil {
				slog.Error("river stop during server shutdown", "error", stopErr)
			}
		}

		return fmt.Errorf("server shutdown: %w", err)
	}

	if a.river != nil {
		if err = a.river.Stop(ctx); err != nil {
			return fmt.Errorf("river stop: %w", err)
		}
	}

	return nil
}
