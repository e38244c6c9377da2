package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/oficiosya/subscription-engine/internal/config"
	"github.com/oficiosya/subscription-engine/internal/domain/model"
	"github.com/oficiosya/subscription-engine/internal/infrastructure/cache"
	"github.com/oficiosya/subscription-engine/internal/infrastructure/database"
	appLogger "github.com/oficiosya/subscription-engine/internal/infrastructure/logger"
	"github.com/oficiosya/subscription-engine/internal/usecase"
)

// The cron binary runs the daily lifecycle sweep once and exits; the
// scheduler (Kubernetes CronJob) owns the cadence.
func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := appLogger.NewZapLogger(appLogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, logger); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	repos := database.NewRepositories(db, logger)

	statusCache := cache.NewBlockStatusCache(&cfg.Redis, logger)
	defer statusCache.Close()

	trialService := usecase.NewTrialService(repos.UnitOfWork, repos.Organization, repos.Subscription, logger)
	verificationService := usecase.NewVerificationService(repos.UnitOfWork, repos.Verification, repos.Organization, nil, nil, logger)
	blockService := usecase.NewBlockService(repos.UnitOfWork, repos.Organization, verificationService, statusCache, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	start := time.Now()
	logger.Info("lifecycle sweep started")

	// 1. Expire trials whose deadline passed.
	expired, failed := trialService.ExpireDueTrials(ctx)
	logger.Info("trial expiry pass finished",
		zap.Int("expired", expired),
		zap.Int("failed", failed))

	// 2. Apply grace-period blocks and escalate stale soft blocks.
	blockResult, err := blockService.CheckAndApplyBlocks(ctx)
	if err != nil {
		logger.Error("block pass failed", zap.Error(err))
	} else {
		logger.Info("block pass finished",
			zap.Int("blocks_applied", blockResult.BlocksApplied),
			zap.Int("escalated", blockResult.Escalated),
			zap.Int("failed", blockResult.Failed))
	}

	// 3. Surface trials ending soon for the notification dispatcher.
	reminders, err := trialService.GetTrialsNeedingReminders(ctx, model.TrialExpiringSoonDays)
	if err != nil {
		logger.Error("trial reminder pass failed", zap.Error(err))
	} else {
		for _, sub := range reminders {
			logger.Info("trial ending soon",
				zap.String("organization_id", sub.OrganizationID.String()),
				zap.Timep("trial_ends_at", sub.TrialEndsAt))
		}
	}

	// 4. Surface documents expiring within 30 days.
	expiring, err := verificationService.CheckExpiringDocuments(ctx, 30)
	if err != nil {
		logger.Error("document expiry pass failed", zap.Error(err))
	} else {
		for _, sub := range expiring {
			logger.Info("verification document expiring",
				zap.Int64("submission_id", sub.ID),
				zap.String("organization_id", sub.OrganizationID.String()),
				zap.Timep("expires_at", sub.ExpiresAt))
		}
	}

	logger.Info("lifecycle sweep finished", zap.Duration("took", time.Since(start)))
}
