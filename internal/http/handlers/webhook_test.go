package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wagmicrew/trafikskolax-backend/internal/config"
	"github.com/wagmicrew/trafikskolax-backend/internal/integrations/qliro"
)

func newTestHandler(cfg *config.Config) *Handler {
	if cfg == nil {
		cfg = &config.Config{}
	}
	return New(nil, nil, qliro.NewClient(qliro.Config{}, nil, nil), nil, nil, cfg, nil)
}

// TestWebhookRejectsBadSignature verifies webhook rejects bad signature behavior.
func TestWebhookRejectsBadSignature(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&config.Config{Qliro: config.QliroConfig{WebhookSecret: "push-secret"}})

	body := `{"OrderId":"Q1","MerchantReference":"booking_abc123","Status":"Paid"}`

	req := httptest.NewRequest(http.MethodPost, "/payments/qliro/webhook", strings.NewReader(body))
	req.Header.Set("X-Qliro-Signature", "deadbeef")
	rec := httptest.NewRecorder()
	h.QliroWebhook(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("forged signature: expected 401, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/payments/qliro/webhook", strings.NewReader(body))
	rec = httptest.NewRecorder()
	h.QliroWebhook(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing signature: expected 401, got %d", rec.Code)
	}
}

// TestWebhookRejectsWhenSecretMissing verifies webhook rejects when secret missing behavior.
func TestWebhookRejectsWhenSecretMissing(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&config.Config{})

	body := `{"OrderId":"Q1","MerchantReference":"booking_abc123","Status":"Paid"}`
	req := httptest.NewRequest(http.MethodPost, "/payments/qliro/webhook", strings.NewReader(body))
	req.Header.Set("X-Qliro-Signature", qliro.SignPayload("", []byte(body)))
	rec := httptest.NewRecorder()
	h.QliroWebhook(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing secret must never verify: expected 401, got %d", rec.Code)
	}
}

// TestWebhookAcksMalformedBodyAfterSignature verifies webhook acks malformed body after signature behavior.
func TestWebhookAcksMalformedBodyAfterSignature(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&config.Config{Qliro: config.QliroConfig{WebhookSecret: "push-secret"}})

	body := `not json at all`
	req := httptest.NewRequest(http.MethodPost, "/payments/qliro/webhook", strings.NewReader(body))
	req.Header.Set("X-Qliro-Signature", qliro.SignPayload("push-secret", []byte(body)))
	rec := httptest.NewRecorder()
	h.QliroWebhook(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated push must be acked: expected 200, got %d", rec.Code)
	}
}
