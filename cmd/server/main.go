package main

import (
	"fmt"
	"log"
	"time"

	"visara/internal/analyzer"
	"visara/internal/backend"
	"visara/internal/backend/claude"
	"visara/internal/backend/gemini"
	"visara/internal/backend/mock"
	"visara/internal/backend/openai"
	"visara/internal/config"
	"visara/internal/email/noop"
	"visara/internal/email/ses"
	"visara/internal/explainer"
	"visara/internal/handler"
	"visara/internal/pipeline"
	"visara/internal/port"
	"visara/internal/preprocess"
	"visara/internal/repository/postgres"
	"visara/internal/router"
	"visara/internal/service"
	s3storage "visara/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	inspRepo := postgres.NewInspectionRepo(db)

	archive, err := s3storage.NewMediaArchive(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize media archive: %w", err)
	}

	// Model backends
	backend.RegisterProvider("claude", func(c *config.BackendProviderConfig) (port.ModelInvoker, error) {
		return claude.New(c), nil
	})
	backend.RegisterProvider("openai", func(c *config.BackendProviderConfig) (port.ModelInvoker, error) {
		return openai.New(c), nil
	})
	backend.RegisterProvider("gemini", func(c *config.BackendProviderConfig) (port.ModelInvoker, error) {
		return gemini.New(c), nil
	})
	backend.RegisterProvider("mock", func(c *config.BackendProviderConfig) (port.ModelInvoker, error) {
		return mock.New(c), nil
	})

	invoker, err := backend.NewChain(&cfg.Backend)
	if err != nil {
		return fmt.Errorf("failed to build backend chain: %w", err)
	}

	// Analysis pipeline
	runner := &analyzer.Runner{
		Deadline:    time.Duration(cfg.Analyze.DeadlineSecs) * time.Second,
		MaxAttempts: cfg.Analyze.MaxAttempts,
	}
	pageAnalyzer := analyzer.NewPageAnalyzer(invoker, runner, cfg.Analyze.MaxTokens)
	batch := pipeline.NewBatchPipeline(pageAnalyzer, cfg.Analyze.Concurrency)
	image := pipeline.NewImagePipeline(pageAnalyzer)
	explain := explainer.NewGenerator(invoker,
		time.Duration(cfg.Explain.DeadlineSecs)*time.Second, cfg.Explain.MaxTokens)

	// Risk alerts
	var alerts port.AlertSender
	if cfg.Alerts.Provider == "ses" && cfg.Alerts.ToAddress != "" {
		alerts, err = ses.NewSESSender(cfg.Alerts.Region, cfg.Alerts.FromAddress, cfg.Alerts.ToAddress)
		if err != nil {
			return fmt.Errorf("failed to initialize SES alert sender: %w", err)
		}
	} else {
		alerts = noop.NewNoopSender()
	}

	// Services
	authSvc := service.NewAuthService(cfg.Operator, cfg.JWT)
	inspSvc := service.NewInspectionService(
		inspRepo,
		archive,
		preprocess.Limits{MaxUnits: cfg.Analyze.MaxUnits, MaxFileSizeMB: cfg.Analyze.MaxFileSizeMB},
		batch,
		image,
		explain,
		alerts,
	)

	// Handlers
	authH := handler.NewAuthHandler(authSvc)
	analyzeH := handler.NewAnalyzeHandler(inspSvc)
	inspH := handler.NewInspectionHandler(inspSvc)
	healthH := handler.NewHealthHandler(db, invoker.ModelID())

	r := router.Setup(authSvc, cfg.CORS.AllowedOrigins, authH, analyzeH, inspH, healthH)

	log.Printf("Server starting on %s (backend: %s)", cfg.Server.Port, invoker.ModelID())
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}
