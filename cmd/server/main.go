// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/greenview/ingress/pkg/api"
	"github.com/greenview/ingress/pkg/config"
	"github.com/greenview/ingress/pkg/ingest"
	"github.com/greenview/ingress/pkg/insight"
	"github.com/greenview/ingress/pkg/predict"
	"github.com/greenview/ingress/pkg/store"
)

func main() {
	// .env is optional; real deployments set environment variables directly
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := buildLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := store.NewPostgresStore(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pg.Close()

	if err := pg.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pipeline, err := ingest.NewPipeline(pg, logger, cfg.ChunkSize)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	tracker := ingest.NewUploadTracker(nil)

	var insights insight.Generator
	if cfg.OpenAI.APIKey != "" {
		insights, err = insight.NewOpenAIGenerator(cfg.OpenAI, logger)
		if err != nil {
			return fmt.Errorf("failed to build insight generator: %w", err)
		}
	} else {
		logger.Warn("OPENAI_API_KEY not set, insight endpoint disabled")
	}

	var forecaster predict.Forecaster
	if cfg.MLService.BaseURL != "" {
		forecaster, err = predict.NewHTTPForecaster(cfg.MLService, logger)
		if err != nil {
			return fmt.Errorf("failed to build forecaster: %w", err)
		}
	} else {
		logger.Warn("ML_SERVICE_URL not set, prediction endpoint disabled")
	}

	server, err := api.NewServer(pg, pipeline, tracker, insights, forecaster, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	logger.Info("Starting ingestion server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Int("chunk_size", cfg.ChunkSize))

	return server.Run(ctx, cfg.Server)
}

// buildLogger constructs a zap logger honoring the configured level and
// format. Format "console" gives human-readable development output;
// anything else produces JSON.
func buildLogger(level, format string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)

	return zapCfg.Build()
}
