package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestRequireCronSecret verifies require cron secret behavior.
func TestRequireCronSecret(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	guarded := RequireCronSecret("topsecret")(next)

	req := httptest.NewRequest(http.MethodPost, "/payments/cleanup", nil)
	req.Header.Set("X-Cron-Secret", "topsecret")
	rec := httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("correct secret: expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/payments/cleanup", nil)
	req.Header.Set("X-Cron-Secret", "wrong")
	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: expected 401, got %d", rec.Code)
	}

	// No configured secret disables the endpoint entirely.
	disabled := RequireCronSecret("")(next)
	req = httptest.NewRequest(http.MethodPost, "/payments/cleanup", nil)
	rec = httptest.NewRecorder()
	disabled.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("empty secret: expected 401, got %d", rec.Code)
	}
}
