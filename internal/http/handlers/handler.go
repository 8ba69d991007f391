package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/wagmicrew/trafikskolax-backend/internal/cache"
	"github.com/wagmicrew/trafikskolax-backend/internal/checkout"
	"github.com/wagmicrew/trafikskolax-backend/internal/config"
	"github.com/wagmicrew/trafikskolax-backend/internal/integrations/qliro"
	"github.com/wagmicrew/trafikskolax-backend/internal/notify"
	"github.com/wagmicrew/trafikskolax-backend/internal/rate"
	"github.com/wagmicrew/trafikskolax-backend/internal/repository"
	"github.com/wagmicrew/trafikskolax-backend/internal/sweeper"
)

type Handler struct {
	repo          *repository.Repository
	orderCache    *cache.OrderCache
	qliro         *qliro.Client
	checkout      *checkout.Manager
	sweeper       *sweeper.Sweeper
	notifier      notify.Notifier
	cfg           *config.Config
	logger        *slog.Logger
	validator     *validator.Validate
	actionLimiter *rate.WindowLimiter
}

func New(repo *repository.Repository, orderCache *cache.OrderCache, gateway *qliro.Client, sweep *sweeper.Sweeper, notifier notify.Notifier, cfg *config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	urls := checkout.URLs{}
	if cfg != nil && cfg.BaseURL != "" {
		urls.ReturnURL = cfg.BaseURL + "/payments/qliro/return"
		urls.PushURL = cfg.BaseURL + "/payments/qliro/webhook"
	}
	return &Handler{
		repo:          repo,
		orderCache:    orderCache,
		qliro:         gateway,
		checkout:      checkout.NewManager(gateway, orderCache, repo, urls, logger),
		sweeper:       sweep,
		notifier:      notifier,
		cfg:           cfg,
		logger:        logger,
		validator:     validator.New(),
		actionLimiter: rate.NewWindowLimiter(10, time.Minute),
	}
}

func (h *Handler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 5*time.Second)
}

func (h *Handler) loggerForRequest(r *http.Request) *slog.Logger {
	logger := h.logger
	if logger == nil {
		return slog.Default()
	}
	if reqID := chimw.GetReqID(r.Context()); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	return logger
}
