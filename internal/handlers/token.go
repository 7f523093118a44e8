package handlers

import (
	"net/http"
	"time"
)

// TokenHandler exposes bearer-credential diagnostics.
type TokenHandler struct {
	Credentials CredentialInfo
}

// Handle implements GET /token_info. In local mode there is no credential,
// so the handler reports an invalid token rather than failing.
func (h TokenHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if h.Credentials == nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"token_valid":       false,
			"expires_at":        nil,
			"minutes_remaining": 0,
		})
		return
	}

	info := h.Credentials.Info()
	payload := map[string]any{
		"token_valid":       info.Valid,
		"minutes_remaining": info.MinutesRemaining,
	}
	if info.ExpiresAt.IsZero() {
		payload["expires_at"] = nil
	} else {
		payload["expires_at"] = info.ExpiresAt.Format(time.RFC3339)
	}

	respondJSON(w, http.StatusOK, payload)
}
