package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/wagmicrew/trafikskolax-backend/internal/checkout"
	"github.com/wagmicrew/trafikskolax-backend/internal/models"
	"github.com/wagmicrew/trafikskolax-backend/internal/notify"
	"github.com/wagmicrew/trafikskolax-backend/internal/payments"
	"github.com/wagmicrew/trafikskolax-backend/internal/repository"
)

type createCheckoutRequest struct {
	Kind string `json:"kind" validate:"required,oneof=booking package teori"`
	ID   string `json:"id" validate:"required,max=64"`
}

// CreateCheckout resolves a pending payable to a hosted checkout session.
// Swish-method payables skip the gateway entirely: the admin is notified
// with confirm/deny links and the client is told to await confirmation.
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	var req createCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "kind and id are required")
		return
	}
	kind := models.EntityKind(req.Kind)
	if _, _, err := payments.DecodeReference(payments.EncodeReference(kind, req.ID)); err != nil {
		writeError(w, http.StatusBadRequest, "invalid entity id")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	payable, err := h.repo.GetPayable(ctx, kind, req.ID)
	if err != nil {
		if errors.Is(err, repository.ErrPayableNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		logger.Error("checkout_load_payable", "kind", kind, "id", req.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if models.IsTerminalPaymentStatus(payable.PaymentStatus) {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":         "payment already settled",
			"paymentStatus": payable.PaymentStatus,
		})
		return
	}

	switch payable.PaymentMethod {
	case models.PaymentMethodSwish:
		h.startSwishConfirmation(ctx, w, logger, payable)
	case models.PaymentMethodCredits:
		writeError(w, http.StatusUnprocessableEntity, "credits are redeemed at booking time")
	default:
		h.startQliroCheckout(ctx, w, logger, payable)
	}
}

func (h *Handler) startQliroCheckout(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, payable models.Payable) {
	customer, err := h.repo.GetCustomer(ctx, payable.UserID)
	if err != nil {
		logger.Warn("checkout_load_customer", "user_id", payable.UserID, "error", err)
	}

	session, err := h.checkout.GetOrCreate(ctx, payable, customer)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrGatewayNotConfigured):
			writeError(w, http.StatusServiceUnavailable, "payment gateway unavailable")
		case errors.Is(err, checkout.ErrCheckoutCreation):
			logger.Error("checkout_create", "kind", payable.Kind, "id", payable.ID, "error", err)
			writeError(w, http.StatusBadGateway, "checkout creation failed")
		default:
			logger.Error("checkout_create", "kind", payable.Kind, "id", payable.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// startSwishConfirmation mints the admin decision links and hands them to
// the notifier. Tokens are stateless capabilities; only the payment status
// check makes a stale link harmless.
func (h *Handler) startSwishConfirmation(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, payable models.Payable) {
	secret := h.cfg.ActionTokenSecret
	confirmToken, err := payments.SignActionToken(secret, payable.Kind, payable.ID, payments.DecisionConfirm, payments.ActionTokenTTL)
	if err != nil {
		logger.Error("swish_token_sign", "kind", payable.Kind, "id", payable.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	denyToken, err := payments.SignActionToken(secret, payable.Kind, payable.ID, payments.DecisionDeny, payments.ActionTokenTTL)
	if err != nil {
		logger.Error("swish_token_sign", "kind", payable.Kind, "id", payable.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	moderationToken, err := payments.SignActionToken(secret, payable.Kind, payable.ID, payments.DecisionConfirm, payments.ModerationTokenTTL)
	if err != nil {
		logger.Error("swish_token_sign", "kind", payable.Kind, "id", payable.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	base := ""
	if h.cfg != nil {
		base = h.cfg.BaseURL
	}
	reference := payments.EncodeReference(payable.Kind, payable.ID)
	h.notifier.Notify(ctx, notify.EventSwishAwaitingConfirmation, map[string]any{
		"reference":      reference,
		"amount":         payable.Amount.StringFixed(2),
		"currency":       payable.Currency,
		"confirm_url":    base + "/payments/actions/" + confirmToken,
		"deny_url":       base + "/payments/actions/" + denyToken,
		"moderation_url": base + "/payments/actions/" + moderationToken,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "awaiting_confirmation",
		"merchantReference": reference,
	})
}
