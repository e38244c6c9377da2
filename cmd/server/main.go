package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/oficiosya/subscription-engine/internal/config"
	"github.com/oficiosya/subscription-engine/internal/infrastructure/cache"
	"github.com/oficiosya/subscription-engine/internal/infrastructure/database"
	httpServer "github.com/oficiosya/subscription-engine/internal/infrastructure/http"
	appLogger "github.com/oficiosya/subscription-engine/internal/infrastructure/logger"
	"github.com/oficiosya/subscription-engine/internal/infrastructure/provider/mercadopago"
)

func main() {
	// Local development loads overrides from .env; absence is fine.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := appLogger.NewZapLogger(appLogger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		Development: cfg.Service.Environment != "production",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, logger); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := database.Migrate(db, logger); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	repos := database.NewRepositories(db, logger)

	// Block status cache and payment gateway
	statusCache := cache.NewBlockStatusCache(&cfg.Redis, logger)
	defer statusCache.Close()

	gateway := mercadopago.NewClient(&cfg.Service.MercadoPago, logger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize and start HTTP server
	httpSrv := httpServer.NewServer(cfg, logger, repos, statusCache, gateway)

	go func() {
		if err := httpSrv.Start(); err != nil {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")

	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	logger.Info("Server shut down successfully")
}
