package handlers

import (
	"net/http"
	"time"

	"github.com/motiontrace/backend/internal/logging"
)

// HealthHandler reports readiness of the active backend.
type HealthHandler struct {
	Records     RecordStore
	Credentials CredentialInfo
	LocalMode   bool
}

// Handle implements GET /health.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if err := h.Records.Ping(ctx); err != nil {
		logger.Error("health check failed", "error", err)
		respondError(w, http.StatusInternalServerError, "service unavailable")
		return
	}

	payload := map[string]any{
		"status":    "OK",
		"db_ready":  true,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if h.LocalMode {
		payload["storage_ready"] = true
	} else if h.Credentials != nil {
		info := h.Credentials.Info()
		payload["token_valid"] = info.Valid
		if !info.ExpiresAt.IsZero() {
			payload["token_expires"] = info.ExpiresAt.Format(time.RFC3339)
		}
	}

	respondJSON(w, http.StatusOK, payload)
}
