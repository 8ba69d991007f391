package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

type cleanupRequest struct {
	CutoffMinutes int `json:"cutoffMinutes"`
}

// Cleanup runs one expiry sweep on demand. The route is guarded by the cron
// secret middleware; an optional cutoff override applies to all kinds for
// this invocation only.
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	var req cleanupRequest
	if r.Body != nil {
		// Body is optional; a decode failure just means no override.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	var override time.Duration
	if req.CutoffMinutes > 0 {
		override = time.Duration(req.CutoffMinutes) * time.Minute
	}
	report, err := h.sweeper.RunWithOverride(ctx, time.Now(), override)
	if err != nil {
		logger.Error("cleanup_sweep", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	logger.Info("cleanup_done", "found", report.Found, "processed", report.Processed)
	writeJSON(w, http.StatusOK, report)
}
