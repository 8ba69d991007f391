package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/wagmicrew/trafikskolax-backend/internal/config"
	"github.com/wagmicrew/trafikskolax-backend/internal/db"
	"github.com/wagmicrew/trafikskolax-backend/internal/logging"
	"github.com/wagmicrew/trafikskolax-backend/internal/models"
	"github.com/wagmicrew/trafikskolax-backend/internal/repository"
	"github.com/wagmicrew/trafikskolax-backend/internal/sweeper"
)

// Runs one expiry sweep and exits. Scheduling (cron, systemd timer) lives
// outside the process.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("log error: %v", err)
	}
	defer func() {
		_ = cleanup()
	}()
	logger = logger.With("service", "sweeper")
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db error", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	sweep := sweeper.New(repository.New(pool), map[models.EntityKind]time.Duration{
		models.KindBooking: cfg.Sweeper.BookingCutoff,
		models.KindPackage: cfg.Sweeper.PackageCutoff,
		models.KindTeori:   cfg.Sweeper.TeoriCutoff,
	}, logger)

	report, err := sweep.Run(ctx, time.Now())
	if err != nil {
		logger.Error("sweep error", "error", err)
		os.Exit(1)
	}
	logger.Info("sweep_done", "found", report.Found, "processed", report.Processed)
}
