package main

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/jmoiron/sqlx"

	"invox/internal/config"
	"invox/internal/extractor"
	"invox/internal/extractor/claude"
	"invox/internal/extractor/gemini"
	"invox/internal/handler"
	"invox/internal/pipeline"
	"invox/internal/port"
	"invox/internal/repository/memory"
	"invox/internal/repository/postgres"
	"invox/internal/router"
	"invox/internal/service"
	s3storage "invox/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// A local .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize repositories
	var (
		db          *sqlx.DB
		invoiceRepo port.InvoiceRepository
		fileRepo    port.FileMetaRepository
	)
	switch cfg.DB.Driver {
	case "memory":
		log.Printf("using in-memory repositories (driver=memory)")
		invoiceRepo = memory.NewInvoiceRepo()
		fileRepo = memory.NewFileMetaRepo()
	default:
		db, err = postgres.NewDB(&cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		invoiceRepo = postgres.NewInvoiceRepo(db)
		fileRepo = postgres.NewFileMetaRepo(db)
	}

	// Initialize storage
	s3Client, err := s3storage.NewS3Client(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	// Initialize extraction backends
	registry := extractor.NewRegistry(cfg.Extractor.DefaultProvider)
	registry.Register("gemini", gemini.New(&cfg.Extractor.Gemini, cfg.Extractor.Timeout()))
	registry.Register("claude", claude.New(&cfg.Extractor.Claude, cfg.Extractor.Timeout()))

	var cache pipeline.ExtractionCache
	if cfg.Extractor.CacheEnabled {
		cache = pipeline.NewMemoryCache()
	}

	// Initialize services
	fileSvc := service.NewFileService(fileRepo, s3Client, &cfg.S3)
	invoiceSvc := service.NewInvoiceService(invoiceRepo)

	orchestrator := pipeline.New(fileSvc, registry, cache, pipeline.Options{
		MaxRetries:  cfg.Extractor.MaxRetries,
		CallTimeout: cfg.Extractor.Timeout(),
		BackoffBase: cfg.Extractor.BackoffBase(),
	})
	extractionSvc := service.NewExtractionService(orchestrator, invoiceRepo)

	// Initialize handlers
	fileH := handler.NewFileHandler(fileSvc)
	extractH := handler.NewExtractHandler(extractionSvc)
	invoiceH := handler.NewInvoiceHandler(invoiceSvc)
	healthH := handler.NewHealthHandler(db)

	// Setup router
	r := router.Setup(cfg, fileH, extractH, invoiceH, healthH)

	log.Printf("Server starting on %s", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}
