package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/wagmicrew/trafikskolax-backend/internal/cache"
	"github.com/wagmicrew/trafikskolax-backend/internal/config"
	"github.com/wagmicrew/trafikskolax-backend/internal/db"
	"github.com/wagmicrew/trafikskolax-backend/internal/http/handlers"
	"github.com/wagmicrew/trafikskolax-backend/internal/http/middleware"
	"github.com/wagmicrew/trafikskolax-backend/internal/integrations/qliro"
	"github.com/wagmicrew/trafikskolax-backend/internal/logging"
	"github.com/wagmicrew/trafikskolax-backend/internal/models"
	"github.com/wagmicrew/trafikskolax-backend/internal/notify"
	"github.com/wagmicrew/trafikskolax-backend/internal/repository"
	"github.com/wagmicrew/trafikskolax-backend/internal/sweeper"
)

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
	logger = logger.With("service", "api")
	slog.SetDefault(logger)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db error", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := repository.New(pool)

	orderCache, err := cache.NewOrderCache(cfg.RedisURL, logger)
	if err != nil {
		logger.Error("redis error", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = orderCache.Close()
	}()

	gateway := qliro.NewClient(qliro.Config{
		BaseURL:   cfg.Qliro.BaseURL,
		APIKey:    cfg.Qliro.APIKey,
		APISecret: cfg.Qliro.APISecret,
	}, nil, logger)
	if !gateway.Configured() {
		logger.Warn("qliro_not_configured")
	}

	sweep := sweeper.New(repo, map[models.EntityKind]time.Duration{
		models.KindBooking: cfg.Sweeper.BookingCutoff,
		models.KindPackage: cfg.Sweeper.PackageCutoff,
		models.KindTeori:   cfg.Sweeper.TeoriCutoff,
	}, logger)

	h := handlers.New(repo, orderCache, gateway, sweep, notify.NewLogNotifier(logger), cfg, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(10 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/payments/qliro/checkout", h.CreateCheckout)
	r.Post("/payments/qliro/webhook", h.QliroWebhook)
	r.Get("/payments/qliro/status/{reference}", h.PaymentStatus)
	r.Get("/payments/actions/{token}", h.GetActionSummary)
	r.Post("/payments/actions/{token}", h.ApplyAction)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireCronSecret(cfg.CronSecret))
		r.Post("/payments/cleanup", h.Cleanup)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		logger.Info("api_listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutdown", "service", "api")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
}
