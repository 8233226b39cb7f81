// Command api serves Atom feeds for the sources listed in the sources file.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feedhub/internal/config"
	"feedhub/internal/domain/entity"
	hhttp "feedhub/internal/handler/http"
	"feedhub/internal/handler/http/feed"
	"feedhub/internal/handler/http/requestid"
	"feedhub/internal/infra/cache"
	"feedhub/internal/infra/httpclient"
	"feedhub/internal/infra/source"
	"feedhub/internal/infra/worker"
	"feedhub/internal/observability/logging"
	"feedhub/internal/observability/metrics"
	"feedhub/internal/observability/slo"
	"feedhub/internal/observability/tracing"
	pkgconfig "feedhub/internal/pkg/config"
	"feedhub/internal/session"
	"feedhub/internal/usecase/fetch"
	"feedhub/internal/usecase/pipeline"
	"feedhub/pkg/security/csp"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	shutdownTracer := tracing.InitProvider(loadSampleRatio())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			logger.Warn("tracer shutdown failed", slog.Any("error", err))
		}
	}()

	workerMetrics := worker.NewWorkerMetrics()
	cfg := worker.LoadConfigFromEnv(logger, workerMetrics)

	sources, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		logger.Error("failed to load sources", slog.String("path", cfg.SourcesFile), slog.Any("error", err))
		os.Exit(1)
	}

	app, err := setup(logger, cfg, sources)
	if err != nil {
		logger.Error("failed to set up sources", slog.Any("error", err))
		os.Exit(1)
	}

	run(logger, cfg, app, workerMetrics)
}

// application holds the wired components main needs to run and stop.
type application struct {
	svc     *fetch.Service
	handler http.Handler
}

// setup builds everything between the sources file and the HTTP handler.
func setup(logger *slog.Logger, cfg worker.Config, sources []config.Source) (*application, error) {
	httpCfg, warnings := httpclient.LoadConfigFromEnv()
	for _, w := range warnings {
		logger.Warn("Configuration fallback applied", slog.String("warning", w))
	}

	factory := source.NewFactory(httpCfg, source.WithFactoryLogger(logger))
	adapters, err := factory.BuildAll(sources)
	if err != nil {
		return nil, err
	}
	metrics.UpdateSourcesTotal(len(adapters))

	gen := entity.DefaultGenerator
	gen.Version = getVersion()
	pl := pipeline.New(session.New(cfg.SessionTTL),
		pipeline.WithGenerator(gen),
		pipeline.WithRunTimeout(cfg.RunTimeout),
		pipeline.WithLogger(logger))

	var feedCache fetch.FeedCache
	if cfg.FeedCacheTTL > 0 {
		feedCache = cache.New(0, cfg.FeedCacheTTL)
	}
	objectives := slo.NewTracker(slo.DefaultWindow, slo.NewMetrics())
	svc := fetch.NewService(pl, adapters, feedCache, fetch.WithObserver(objectives))

	tokens := make(map[string]string)
	for _, src := range sources {
		if tok := src.AccessToken(os.Getenv); tok != "" {
			tokens[src.Name] = tok
		}
	}

	upstreams := make(map[string]hhttp.UpstreamStater, len(adapters))
	for name, a := range adapters {
		if st, ok := a.(hhttp.UpstreamStater); ok {
			upstreams[name] = st
		}
	}

	mux := http.NewServeMux()
	(&feed.Handler{Svc: svc, Tokens: tokens}).Register(mux)
	mux.Handle("GET /health", &hhttp.HealthHandler{Version: gen.Version, Upstreams: upstreams, Objectives: objectives})

	logger.Info("sources loaded",
		slog.Int("sources", len(adapters)),
		slog.Int("protected", len(tokens)),
		slog.Duration("session_ttl", cfg.SessionTTL),
		slog.Duration("feed_cache_ttl", cfg.FeedCacheTTL))

	return &application{svc: svc, handler: applyMiddleware(logger, mux)}, nil
}

// applyMiddleware wraps the routes, innermost first.
func applyMiddleware(logger *slog.Logger, handler http.Handler) http.Handler {
	perMinute := pkgconfig.LoadEnvFloat("FEED_RATE_PER_MINUTE", 60, func(v float64) error {
		return pkgconfig.ValidateFloatRange(v, 1, 6000)
	}).Value
	burst := pkgconfig.LoadEnvInt("FEED_RATE_BURST", 10, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 1000)
	}).Value
	limiter := hhttp.NewRateLimiter(perMinute, burst)

	chain := handler
	chain = hhttp.MetricsMiddleware(chain)
	chain = limiter.Limit(chain)
	chain = hhttp.InputValidation()(chain)
	chain = hhttp.SecurityHeaders(csp.FeedPolicy())(chain)
	chain = hhttp.Logging(logger)(chain)
	chain = hhttp.Recover(logger)(chain)
	chain = tracing.Middleware(chain)
	chain = requestid.Middleware(chain)
	return chain
}

// run starts the servers and the refresher and blocks until SIGINT or SIGTERM.
func run(logger *slog.Logger, cfg worker.Config, app *application, workerMetrics *worker.WorkerMetrics) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthServer := worker.NewHealthServer(cfg.MetricsAddr(), logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	refresher := worker.NewRefresher(app.svc, cfg, workerMetrics, logger)
	if cfg.RefreshEnabled() {
		if err := refresher.Start(); err != nil {
			logger.Error("failed to start refresher", slog.Any("error", err))
			os.Exit(1)
		}
		// warm sessions and the cache before the first tick
		go refresher.RunOnce(ctx)
	} else {
		logger.Info("refresher disabled")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting", slog.String("addr", cfg.Addr), slog.String("version", getVersion()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()
	healthServer.SetReady(true)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")
	healthServer.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	cancel()
	refresher.Stop(shutdownCtx)
	logger.Info("server stopped")
}

// loadSampleRatio reads TRACE_SAMPLE_RATIO (default 0.1).
func loadSampleRatio() float64 {
	return pkgconfig.LoadEnvFloat("TRACE_SAMPLE_RATIO", 0.1, func(v float64) error {
		return pkgconfig.ValidateFloatRange(v, 0, 1)
	}).Value
}

// getVersion returns the application version from environment or default.
func getVersion() string {
	if v := os.Getenv("VERSION"); v != "" {
		return v
	}
	return entity.DefaultGenerator.Version
}
