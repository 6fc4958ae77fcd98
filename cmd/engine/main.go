package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/campushq/lesson-engine/internal/app"
	"github.com/campushq/lesson-engine/internal/clock"
	"github.com/campushq/lesson-engine/internal/config"
	"github.com/campushq/lesson-engine/internal/engine"
	"github.com/campushq/lesson-engine/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	clk := clock.System()
	notifier := engine.NewLogNotifier(logger)
	eng := engine.New(
		postgres.NewStore(pool, cfg.StoreTimeout),
		clk,
		notifier,
		engine.Config{
			MonthlyCancelLimit: cfg.MonthlyCancelLimit,
			CancelNotice:       cfg.CancelNotice,
			MakeupValidity:     cfg.MakeupValidity,
			MakeupCeiling:      cfg.MakeupCeiling,
			ReminderWindow:     cfg.ReminderWindow,
		},
		logger,
	)

	sweeper := app.NewSweeper(eng, notifier, clk, cfg.SweepInterval, logger)
	sweeper.Start(ctx)

	logger.Info("Lesson engine started", zap.String("environment", cfg.Environment))

	<-ctx.Done()
	sweeper.Stop()
	logger.Info("Lesson engine stopped")
}
