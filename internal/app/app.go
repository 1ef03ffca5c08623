// Package app wires configuration, storage, services, and handlers into one
// application instance.
package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/logsight/internal/common"
	"github.com/ternarybob/logsight/internal/handlers"
	"github.com/ternarybob/logsight/internal/interfaces"
	"github.com/ternarybob/logsight/internal/services/enrichment"
	"github.com/ternarybob/logsight/internal/services/ingest"
	"github.com/ternarybob/logsight/internal/services/llm"
	"github.com/ternarybob/logsight/internal/services/normalizer"
	"github.com/ternarybob/logsight/internal/services/pdf"
	"github.com/ternarybob/logsight/internal/services/query"
	"github.com/ternarybob/logsight/internal/services/report"
	"github.com/ternarybob/logsight/internal/services/scheduler"
	"github.com/ternarybob/logsight/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Analysis pipeline
	Analyzer     interfaces.Analyzer
	Cache        *enrichment.Cache
	Orchestrator *enrichment.Orchestrator

	// Domain services
	NormalizerService *normalizer.Service
	IngestService     *ingest.Service
	QueryService      *query.Service
	ReportService     *report.Service
	PDFService        *pdf.Service
	SweepService      *scheduler.Service

	// HTTP handlers
	LogFileHandler *handlers.LogFileHandler
	EventHandler   *handlers.EventHandler
	ReportHandler  *handlers.ReportHandler
	StatusHandler  *handlers.StatusHandler
}

// New initializes the application with all dependencies. shutdownChan lets
// the shutdown endpoint signal the process to exit.
func New(cfg *common.Config, logger arbor.ILogger, shutdownChan chan<- struct{}) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := badger.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager

	// The analysis backend is optional: without an API key the app still
	// ingests, queries, and reports (with degraded narratives).
	if cfg.Claude.APIKey != "" {
		analyzer, err := llm.NewClaudeService(&cfg.Claude, logger)
		if err != nil {
			storageManager.Close()
			return nil, fmt.Errorf("failed to initialize analysis service: %w", err)
		}
		app.Analyzer = analyzer
		app.Cache = enrichment.NewCache(storageManager.EnrichmentStorage(), logger)
		app.Orchestrator = enrichment.NewOrchestrator(app.Cache, analyzer, enrichmentOptions(&cfg.Enrichment), logger)
	} else {
		logger.Warn().Msg("No Anthropic API key configured, analysis disabled")
	}

	app.NormalizerService = normalizer.NewService(logger)
	app.IngestService = ingest.NewService(storageManager, app.NormalizerService, app.Orchestrator, cfg.Ingest, logger)
	app.QueryService = query.NewService(storageManager, logger)
	app.ReportService = report.NewService(storageManager, app.QueryService, app.Orchestrator, cfg.Report, logger)
	app.PDFService = pdf.NewService(logger)

	if cfg.Sweep.Enabled && app.Orchestrator != nil {
		app.SweepService = scheduler.NewService(storageManager, app.Orchestrator, cfg.Sweep, logger)
		if err := app.SweepService.Start(); err != nil {
			storageManager.Close()
			return nil, fmt.Errorf("failed to start sweep scheduler: %w", err)
		}
	}

	app.LogFileHandler = handlers.NewLogFileHandler(app.IngestService, storageManager, logger)
	app.EventHandler = handlers.NewEventHandler(app.QueryService, app.Orchestrator, storageManager, logger)
	app.ReportHandler = handlers.NewReportHandler(app.ReportService, app.PDFService, logger)
	app.StatusHandler = handlers.NewStatusHandler(storageManager, app.SweepService, app.Analyzer, shutdownChan, logger)

	logger.Info().
		Bool("analysis_enabled", app.Orchestrator != nil).
		Bool("sweep_enabled", app.SweepService != nil).
		Msg("Application initialized")

	return app, nil
}

// Close releases application resources in reverse initialization order.
func (a *App) Close() {
	if a.SweepService != nil {
		a.SweepService.Stop()
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
	}
	a.Logger.Info().Msg("Application closed")
}

func enrichmentOptions(cfg *common.EnrichmentConfig) enrichment.Options {
	opts := enrichment.DefaultOptions()
	if cfg.Concurrency > 0 {
		opts.Concurrency = cfg.Concurrency
	}
	opts.RateLimit = common.ParseDurationOr(cfg.RateLimit, opts.RateLimit)
	opts.BatchTimeout = common.ParseDurationOr(cfg.BatchTimeout, opts.BatchTimeout)

	retry := llm.NewDefaultRetryConfig()
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}
	retry.InitialBackoff = common.ParseDurationOr(cfg.InitialBackoff, retry.InitialBackoff)
	retry.MaxBackoff = common.ParseDurationOr(cfg.MaxBackoff, retry.MaxBackoff)
	opts.Retry = retry

	return opts
}
