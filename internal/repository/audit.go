package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// UpsertPaymentAudit records the latest raw provider exchange for an order.
// One row per (reference, provider); replays overwrite status and raw body so
// operators always see the most recent gateway view.
func (r *Repository) UpsertPaymentAudit(ctx context.Context, reference, provider, providerOrderID string, amountMinor int64, status string, raw []byte) error {
	rawJSON := strings.TrimSpace(string(raw))
	if rawJSON == "" || !looksLikeJSON(rawJSON) {
		rawJSON = "{}"
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO payment_audits (id, reference, provider, provider_order_id, amount_minor, status, raw_response_json, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, now(), now())
ON CONFLICT (reference, provider) DO UPDATE SET
	provider_order_id = COALESCE(NULLIF(EXCLUDED.provider_order_id, ''), payment_audits.provider_order_id),
	amount_minor = EXCLUDED.amount_minor,
	status = EXCLUDED.status,
	raw_response_json = EXCLUDED.raw_response_json,
	updated_at = now();`,
		uuid.NewString(), strings.TrimSpace(reference), strings.TrimSpace(provider),
		strings.TrimSpace(providerOrderID), amountMinor, strings.TrimSpace(status), rawJSON)
	return err
}

func looksLikeJSON(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}
