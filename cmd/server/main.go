package main

import (
	"fmt"
	"os"

	"github.com/pricelens/backend/config"
	httpDelivery "github.com/pricelens/backend/internal/delivery/http"
	"github.com/pricelens/backend/internal/infrastructure/extraction"
	"github.com/pricelens/backend/internal/infrastructure/postgres"
	"github.com/pricelens/backend/internal/logger"
	"github.com/pricelens/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level)

	log.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Msg("starting pricelens backend v1.0.0")

	// Initialize infrastructure dependencies
	db, err := postgres.Connect(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	catalogRepo := postgres.NewCatalogRepo(db)
	historyRepo := postgres.NewScanHistoryRepo(db)

	extractionClient := extraction.NewClient(
		cfg.Extraction.BaseURL,
		cfg.Extraction.Timeout,
		cfg.Extraction.RequestsPerMin,
		log,
	)
	log.Info().Str("baseURL", cfg.Extraction.BaseURL).Msg("extraction service configured")

	// Initialize usecase layer
	failureMode := usecase.FailureSuppress
	if cfg.Matching.PropagateFailures {
		failureMode = usecase.FailurePropagate
	}

	matchingService := usecase.NewMatchingService(catalogRepo, log, usecase.MatchConfig{
		DefaultRadiusKm:   cfg.Matching.DefaultRadiusKm,
		MinSavingsPercent: cfg.Matching.MinSavingsPercent,
		MaxCandidates:     cfg.Matching.MaxCandidates,
		MaxAlternatives:   cfg.Matching.MaxAlternatives,
		ItemConcurrency:   cfg.Matching.ItemConcurrency,
		FailureMode:       failureMode,
	})

	log.Info().
		Float64("radiusKm", cfg.Matching.DefaultRadiusKm).
		Float64("minSavingsPercent", cfg.Matching.MinSavingsPercent).
		Int("itemConcurrency", cfg.Matching.ItemConcurrency).
		Bool("propagateFailures", cfg.Matching.PropagateFailures).
		Msg("matching configured")

	scanService := usecase.NewScanService(extractionClient, matchingService, historyRepo, log)
	catalogService := usecase.NewCatalogService(catalogRepo, log, cfg.Matching.DefaultRadiusKm)
	analyticsService := usecase.NewAnalyticsService(historyRepo, log)

	if err := os.MkdirAll(cfg.Server.UploadDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Server.UploadDir).Msg("failed to create upload directory")
	}

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(scanService, catalogService, analyticsService, cfg.Server.UploadDir)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info().Str("addr", addr).Msg("server listening")

	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
