package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wagmicrew/trafikskolax-backend/internal/config"
)

// TestCreateCheckoutValidation verifies create checkout validation behavior.
func TestCreateCheckoutValidation(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&config.Config{ActionTokenSecret: "action-secret"})

	cases := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ``},
		{name: "missing id", body: `{"kind":"booking"}`},
		{name: "unknown kind", body: `{"kind":"invoice","id":"abc123"}`},
		{name: "id with separator", body: `{"kind":"booking","id":"abc_123"}`},
		{name: "id with path chars", body: `{"kind":"booking","id":"../etc"}`},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/payments/qliro/checkout", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.CreateCheckout(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}
