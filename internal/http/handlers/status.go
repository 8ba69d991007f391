package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wagmicrew/trafikskolax-backend/internal/integrations/qliro"
	"github.com/wagmicrew/trafikskolax-backend/internal/models"
	"github.com/wagmicrew/trafikskolax-backend/internal/notify"
	"github.com/wagmicrew/trafikskolax-backend/internal/payments"
	"github.com/wagmicrew/trafikskolax-backend/internal/repository"
)

// PaymentStatus reports the current status of one payable by merchant
// reference. While the payment is pending the gateway is probed too, and a
// paid answer settles the entity right here; polling clients therefore see
// paid even when the push never arrived.
func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	reference := chi.URLParam(r, "reference")
	kind, id, err := payments.DecodeReference(reference)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reference")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	payable, err := h.repo.GetPayable(ctx, kind, id)
	if err != nil {
		if errors.Is(err, repository.ErrPayableNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		logger.Error("status_load_payable", "reference", reference, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := map[string]any{
		"reference":     reference,
		"paymentStatus": payable.PaymentStatus,
	}

	if payable.PaymentStatus == models.PaymentStatusPending && h.qliro.Configured() {
		if orderID := h.resolveOrderID(ctx, reference, payable.ExternalReference); orderID != "" {
			order, _, err := h.qliro.GetOrder(ctx, orderID)
			if err != nil {
				logger.Warn("status_gateway_probe", "reference", reference, "order_id", orderID, "error", err)
			} else {
				resp["gatewayStatus"] = order.Status
				if qliro.IsPaidStatus(order.Status) {
					updated, transitioned, err := h.repo.MarkPaid(ctx, kind, id)
					if err != nil {
						logger.Error("status_mark_paid", "reference", reference, "error", err)
					} else {
						resp["paymentStatus"] = updated.PaymentStatus
						if transitioned {
							logger.Info("status_payment_confirmed", "reference", reference, "order_id", orderID)
							h.orderCache.DeleteOrderID(ctx, reference)
							h.notifier.Notify(ctx, notify.EventPaymentConfirmed, map[string]any{
								"reference": reference,
								"amount":    updated.Amount.StringFixed(2),
								"currency":  updated.Currency,
							})
						}
					}
				}
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// resolveOrderID prefers the cached mapping and falls back to the
// reference stored on the entity when a checkout was created.
func (h *Handler) resolveOrderID(ctx context.Context, reference string, external *string) string {
	if orderID, ok := h.orderCache.GetOrderID(ctx, reference); ok {
		return orderID
	}
	if external != nil {
		return *external
	}
	return ""
}
