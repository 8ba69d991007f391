package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/wagmicrew/trafikskolax-backend/internal/integrations/qliro"
	"github.com/wagmicrew/trafikskolax-backend/internal/notify"
	"github.com/wagmicrew/trafikskolax-backend/internal/payments"
	"github.com/wagmicrew/trafikskolax-backend/internal/repository"
)

const maxWebhookBody = 1 << 20

// QliroWebhook ingests checkout-status pushes. The signature is checked
// against the raw body before anything else; after it passes, every outcome
// acks with 200 so the gateway stops retrying. Unknown references and
// already-settled entities are acked silently, processing failures are
// logged and acked too, reconciled later by the status endpoint or sweeper.
func (h *Handler) QliroWebhook(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	secret := ""
	if h.cfg != nil {
		secret = h.cfg.Qliro.WebhookSecret
	}
	if !qliro.VerifyPushSignature(secret, raw, r.Header.Get("X-Qliro-Signature")) {
		logger.Warn("webhook_bad_signature", "remote", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	event, err := qliro.ParsePushEvent(raw)
	if err != nil {
		logger.Error("webhook_parse", "error", err)
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	if err := h.repo.UpsertPaymentAudit(ctx, event.MerchantReference, "qliro", event.OrderID, 0, event.Status, raw); err != nil {
		logger.Warn("webhook_audit", "order_id", event.OrderID, "error", err)
	}

	if !qliro.IsPaidStatus(event.Status) {
		// Intermediate status; refresh the reference mapping while the
		// checkout is still live.
		if event.MerchantReference != "" && !qliro.IsTerminalStatus(event.Status) {
			h.orderCache.PutOrderID(ctx, event.MerchantReference, event.OrderID)
		}
		logger.Info("webhook_ignored_status", "order_id", event.OrderID, "status", event.Status)
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	kind, id, err := payments.DecodeReference(event.MerchantReference)
	if err != nil {
		logger.Warn("webhook_unknown_reference", "reference", event.MerchantReference)
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	payable, transitioned, err := h.repo.MarkPaid(ctx, kind, id)
	switch {
	case errors.Is(err, repository.ErrPayableNotFound):
		logger.Warn("webhook_unknown_entity", "kind", kind, "id", id)
	case err != nil:
		logger.Error("webhook_mark_paid", "kind", kind, "id", id, "error", err)
	case transitioned:
		logger.Info("webhook_payment_confirmed", "kind", kind, "id", id, "order_id", event.OrderID)
		h.orderCache.DeleteOrderID(ctx, event.MerchantReference)
		h.notifier.Notify(ctx, notify.EventPaymentConfirmed, map[string]any{
			"reference": event.MerchantReference,
			"amount":    payable.Amount.StringFixed(2),
			"currency":  payable.Currency,
		})
	default:
		logger.Info("webhook_replay", "kind", kind, "id", id, "status", payable.PaymentStatus)
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
