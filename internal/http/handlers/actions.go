package handlers

import (
	"errors"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wagmicrew/trafikskolax-backend/internal/models"
	"github.com/wagmicrew/trafikskolax-backend/internal/notify"
	"github.com/wagmicrew/trafikskolax-backend/internal/payments"
	"github.com/wagmicrew/trafikskolax-backend/internal/repository"
)

// GetActionSummary shows the admin what an emailed decision link is about
// before they commit. Unlike the webhook path, a missing entity is surfaced
// as 404 here since the caller already proved possession of the token.
func (h *Handler) GetActionSummary(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	if !h.actionLimiter.Allow(clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "too many requests")
		return
	}

	claims, ok := h.parseActionToken(w, chi.URLParam(r, "token"))
	if !ok {
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	payable, err := h.repo.GetPayable(ctx, models.EntityKind(claims.Kind), claims.EntityID)
	if err != nil {
		if errors.Is(err, repository.ErrPayableNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		logger.Error("action_load_payable", "kind", claims.Kind, "id", claims.EntityID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"kind":          payable.Kind,
		"id":            payable.ID,
		"amount":        payable.Amount.StringFixed(2),
		"currency":      payable.Currency,
		"paymentMethod": payable.PaymentMethod,
		"paymentStatus": payable.PaymentStatus,
		"decision":      claims.Decision,
	})
}

// ApplyAction executes the decision a token carries: confirm settles the
// payment, deny cancels it. Replays land on a terminal status and report it
// without side effects.
func (h *Handler) ApplyAction(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	if !h.actionLimiter.Allow(clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "too many requests")
		return
	}

	claims, ok := h.parseActionToken(w, chi.URLParam(r, "token"))
	if !ok {
		return
	}
	kind := models.EntityKind(claims.Kind)

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	var (
		payable      models.Payable
		transitioned bool
		err          error
	)
	if claims.Decision == payments.DecisionConfirm {
		payable, transitioned, err = h.repo.MarkPaid(ctx, kind, claims.EntityID)
	} else {
		payable, transitioned, err = h.repo.MarkCancelled(ctx, kind, claims.EntityID, repository.CancelReasonAdminDenied)
	}
	switch {
	case errors.Is(err, repository.ErrPayableNotFound):
		writeError(w, http.StatusNotFound, "not found")
		return
	case err != nil:
		logger.Error("action_apply", "kind", kind, "id", claims.EntityID, "decision", claims.Decision, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if transitioned {
		reference := payments.EncodeReference(kind, claims.EntityID)
		event := notify.EventPaymentConfirmed
		if claims.Decision == payments.DecisionDeny {
			event = notify.EventPaymentDeclined
		}
		h.notifier.Notify(ctx, event, map[string]any{
			"reference": reference,
			"amount":    payable.Amount.StringFixed(2),
			"currency":  payable.Currency,
		})
		logger.Info("action_applied", "kind", kind, "id", claims.EntityID, "decision", claims.Decision)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"paymentStatus": payable.PaymentStatus,
		"applied":       transitioned,
	})
}

// parseActionToken writes the error response itself on failure. Expired
// links get 410 so the admin knows to request a fresh one; anything else
// about the token is a flat 401.
func (h *Handler) parseActionToken(w http.ResponseWriter, token string) (*payments.ActionClaims, bool) {
	secret := ""
	if h.cfg != nil {
		secret = h.cfg.ActionTokenSecret
	}
	claims, err := payments.ParseActionToken(secret, token)
	if err != nil {
		if errors.Is(err, payments.ErrTokenExpired) {
			writeError(w, http.StatusGone, "link expired")
			return nil, false
		}
		writeError(w, http.StatusUnauthorized, "invalid link")
		return nil, false
	}
	return claims, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
