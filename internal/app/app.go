// Package app builds the long-lived services from configuration and runs the
// HTTP server with its worker pool.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/pubsub"
	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/JakeFAU/baseline-analyzer/internal/analyzer"
	"github.com/JakeFAU/baseline-analyzer/internal/api"
	"github.com/JakeFAU/baseline-analyzer/internal/audit"
	"github.com/JakeFAU/baseline-analyzer/internal/audit/headless"
	"github.com/JakeFAU/baseline-analyzer/internal/audit/pagespeed"
	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
	"github.com/JakeFAU/baseline-analyzer/internal/clock/system"
	"github.com/JakeFAU/baseline-analyzer/internal/config"
	"github.com/JakeFAU/baseline-analyzer/internal/crawler"
	"github.com/JakeFAU/baseline-analyzer/internal/dispatcher"
	"github.com/JakeFAU/baseline-analyzer/internal/features"
	collyfetcher "github.com/JakeFAU/baseline-analyzer/internal/fetcher/colly"
	"github.com/JakeFAU/baseline-analyzer/internal/hash/sha256"
	"github.com/JakeFAU/baseline-analyzer/internal/id/uuid"
	"github.com/JakeFAU/baseline-analyzer/internal/policy/ratelimit"
	pubsubpublisher "github.com/JakeFAU/baseline-analyzer/internal/publisher/pubsub"
	queueMemory "github.com/JakeFAU/baseline-analyzer/internal/queue/memory"
	"github.com/JakeFAU/baseline-analyzer/internal/report"
	gcsstore "github.com/JakeFAU/baseline-analyzer/internal/storage/gcs"
	"github.com/JakeFAU/baseline-analyzer/internal/storage/local"
	"github.com/JakeFAU/baseline-analyzer/internal/storage/memory"
	"github.com/JakeFAU/baseline-analyzer/internal/storage/postgres"
	"github.com/JakeFAU/baseline-analyzer/internal/worker"
)

// ServiceName identifies the process in traces and client user agents.
const ServiceName = "baseline-analyzer"

// App holds the shared services built once at startup.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	version    string
	catalog    *features.Catalog
	analyzer   *analyzer.Analyzer
	store      baseline.AnalysisStore
	queue      *queueMemory.Queue
	dispatcher *dispatcher.Dispatcher
	server     *api.Server
	closers    []func()
}

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Catalog returns the loaded feature catalog.
func (a *App) Catalog() *features.Catalog { return a.catalog }

// Analyzer returns the synchronous analysis engine.
func (a *App) Analyzer() *analyzer.Analyzer { return a.analyzer }

// Store returns the analysis store.
func (a *App) Store() baseline.AnalysisStore { return a.store }

// Handler returns the HTTP handler of the API.
func (a *App) Handler() http.Handler { return a.server.Handler() }

// New builds every service from cfg. It fails fast when a configured backend
// cannot be reached; services built before the failure are released.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, version string) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger, version: version}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.catalog, err = features.LoadCatalogFile(cfg.Features.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load feature catalog: %w", err)
	}
	logger.Info("feature catalog loaded", zap.Int("features", a.catalog.Len()))

	auditor, err := a.newAuditor(ctx)
	if err != nil {
		return nil, err
	}

	clock := system.New()
	ids := uuid.New()
	a.analyzer = a.newAnalyzer(auditor, clock, ids)

	var checks []api.Option
	a.store, checks, err = a.newAnalysisStore(ctx)
	if err != nil {
		return nil, err
	}
	blobs, err := a.newBlobStore(ctx)
	if err != nil {
		return nil, err
	}
	publisher, err := a.newPublisher(ctx)
	if err != nil {
		return nil, err
	}

	reportType, err := report.ParseType(cfg.Analysis.ReportType)
	if err != nil {
		return nil, fmt.Errorf("analysis.report_type: %w", err)
	}
	reportFormat, err := report.ParseFormat(cfg.Analysis.ReportFormat)
	if err != nil {
		return nil, fmt.Errorf("analysis.report_format: %w", err)
	}

	a.queue = queueMemory.NewQueue(cfg.Analysis.QueueDepth)
	workerCfg := worker.Config{
		ReportPrefix: cfg.Storage.Reports.Prefix,
		ReportType:   reportType,
		ReportFormat: reportFormat,
		Topic:        cfg.PubSub.Topic,
		JobTimeout:   cfg.JobTimeout(),
		MaxRetries:   cfg.Analysis.MaxRetries,
	}
	workers := make([]*worker.Worker, 0, cfg.Analysis.Workers)
	for i := 0; i < cfg.Analysis.Workers; i++ {
		workers = append(workers, worker.New(
			a.queue,
			a.store,
			a.analyzer,
			blobs,
			publisher,
			sha256.New(),
			clock,
			workerCfg,
			logger.With(zap.Int("worker", i)),
		))
	}
	a.dispatcher = dispatcher.New(a.queue, a.store, ids, clock, workers)

	opts := append([]api.Option{
		api.WithJobs(a.dispatcher),
		api.WithCatalog(a.catalog),
		api.WithClock(clock),
	}, checks...)
	a.server = api.NewServer(a.analyzer, a.store, cfg, logger, opts...)

	logger.Info("application services initialized",
		zap.String("storage", cfg.Storage.Backend),
		zap.String("reports", cfg.Storage.Reports.Backend),
		zap.String("audit", cfg.Audit.Provider),
		zap.Bool("pubsub", cfg.PubSub.Enabled),
		zap.Int("workers", len(workers)),
	)
	return a, nil
}

func (a *App) newAuditor(ctx context.Context) (baseline.Auditor, error) {
	cfg := a.cfg
	switch cfg.Audit.Provider {
	case audit.ProviderPageSpeed:
		c, err := pagespeed.New(ctx, pagespeed.Config{
			Endpoint: cfg.Audit.Endpoint,
			APIKey:   cfg.Audit.APIKey,
			Strategy: cfg.Audit.Strategy,
			Timeout:  cfg.AuditTimeout(),
		}, a.logger, option.WithUserAgent(a.userAgent()))
		if err != nil {
			return nil, fmt.Errorf("init pagespeed auditor: %w", err)
		}
		return c, nil
	case audit.ProviderHeadless:
		h, err := headless.New(headless.Config{
			MaxParallel:       cfg.Audit.Headless.MaxParallel,
			UserAgent:         cfg.Crawler.UserAgent,
			NavigationTimeout: time.Duration(cfg.Audit.Headless.NavTimeoutSec) * time.Second,
		}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init headless auditor: %w", err)
		}
		a.closers = append(a.closers, h.Close)
		return h, nil
	default:
		return audit.Disabled{}, nil
	}
}

func (a *App) newAnalyzer(auditor baseline.Auditor, clock baseline.Clock, ids baseline.IDGenerator) *analyzer.Analyzer {
	cfg := a.cfg
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Crawler.UserAgent,
		Timeout:       cfg.CrawlTimeout(),
		MaxRedirects:  cfg.Crawler.MaxRedirects,
		AssetMaxBytes: cfg.Crawler.AssetMaxBytes,
	})
	crawlOpts := []crawler.Option{
		crawler.WithLimiter(ratelimit.New(ratelimit.Config{
			DefaultRPS:   cfg.Crawler.RatePerSecond,
			DefaultBurst: cfg.Crawler.Burst,
		})),
		crawler.WithLogger(a.logger),
	}
	if cfg.Crawler.FetchAssets {
		crawlOpts = append(crawlOpts, crawler.WithAssetFetcher(fetcher))
	}
	c := crawler.New(crawler.Config{
		MaxPages:         cfg.Crawler.MaxPages,
		FetchAssets:      cfg.Crawler.FetchAssets,
		MaxAssets:        cfg.Crawler.MaxAssets,
		AssetConcurrency: cfg.Crawler.AssetConcurrency,
	}, fetcher, crawlOpts...)

	probeFetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.Probe.UserAgent,
		Timeout:      cfg.ProbeTimeout(),
		MaxRedirects: cfg.Probe.MaxRedirects,
	})

	return analyzer.New(analyzer.Config{
		MaxPages:           cfg.Crawler.MaxPages,
		BulkMax:            cfg.Analysis.BulkMax,
		CompareMax:         cfg.Analysis.CompareMax,
		CompareConcurrency: cfg.Analysis.CompareConcurrency,
		AuditProvider:      cfg.Audit.Provider,
	}, c,
		analyzer.WithAuditor(auditor),
		analyzer.WithRubric(cfg.Rubric),
		analyzer.WithMatcher(features.NewMatcher(a.catalog)),
		analyzer.WithProber(analyzer.NewFetchProber(probeFetcher, cfg.ProbeTimeout(), a.logger)),
		analyzer.WithIDGenerator(ids),
		analyzer.WithClock(clock),
		analyzer.WithLogger(a.logger),
	)
}

func (a *App) newAnalysisStore(ctx context.Context) (baseline.AnalysisStore, []api.Option, error) {
	cfg := a.cfg.Storage
	switch cfg.Backend {
	case config.BackendPostgres:
		a.logger.Info("connecting to postgres")
		store, err := postgres.NewAnalysisStore(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			AnalysesTable:   cfg.Postgres.AnalysesTable,
			JobsTable:       cfg.Postgres.JobsTable,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: time.Duration(cfg.Postgres.MaxConnLifetimeMinutes) * time.Minute,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init postgres store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, nil, fmt.Errorf("ensure postgres schema: %w", err)
		}
		return store, []api.Option{api.WithReadinessCheck("postgres", store.Ping)}, nil
	default:
		a.logger.Info("using in-memory analysis store")
		return memory.NewAnalysisStore(), nil, nil
	}
}

func (a *App) newBlobStore(ctx context.Context) (baseline.BlobStore, error) {
	cfg := a.cfg.Storage.Reports
	switch cfg.Backend {
	case config.BackendLocal:
		store, err := local.New(local.Config{BaseDir: cfg.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("init local report store: %w", err)
		}
		return store, nil
	case config.BackendGCS:
		client, err := gcs.NewClient(ctx, option.WithUserAgent(a.userAgent()))
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				a.logger.Warn("close gcs client failed", zap.Error(err))
			}
		})
		store, err := gcsstore.New(client, gcsstore.Config{
			Bucket:       cfg.Bucket,
			Prefix:       cfg.Prefix,
			CacheControl: cfg.CacheControl,
		})
		if err != nil {
			return nil, fmt.Errorf("init gcs report store: %w", err)
		}
		a.logger.Info("exporting reports to gcs", zap.String("bucket", cfg.Bucket))
		return store, nil
	case config.BackendMemory:
		return memory.NewBlobStore(), nil
	default:
		return nil, nil
	}
}

func (a *App) newPublisher(ctx context.Context) (baseline.Publisher, error) {
	cfg := a.cfg.PubSub
	if !cfg.Enabled {
		return nil, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, option.WithUserAgent(a.userAgent()))
	if err != nil {
		return nil, fmt.Errorf("init pubsub client: %w", err)
	}
	p := pubsubpublisher.New(client, cfg.Topic)
	a.closers = append(a.closers, func() {
		p.Close()
		if err := client.Close(); err != nil {
			a.logger.Warn("close pubsub client failed", zap.Error(err))
		}
	})
	a.logger.Info("publishing completion events", zap.String("topic", cfg.Topic))
	return p, nil
}

func (a *App) userAgent() string {
	return ServiceName + "/" + a.version
}

// Run serves HTTP and drains the worker pool until ctx is cancelled, then
// shuts down within the configured grace period.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		a.logger.Info("dispatcher started", zap.Int("queue_depth", a.cfg.Analysis.QueueDepth))
		a.dispatcher.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	cancel()
	a.queue.Close()
	<-dispatched
	a.logger.Info("shutdown complete")
	return runErr
}

// Close releases clients in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
