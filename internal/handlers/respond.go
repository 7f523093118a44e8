package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/motiontrace/backend/internal/db"
	"github.com/motiontrace/backend/internal/ingest"
	"github.com/motiontrace/backend/internal/records"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// statusForError maps the error taxonomy onto HTTP status codes. Internal
// detail is logged at the call site, never echoed to 500-class responses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ingest.ErrInvalidFormat):
		return http.StatusBadRequest
	case errors.Is(err, records.ErrSchemaMissing):
		return http.StatusNotFound
	case errors.Is(err, records.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, db.ErrUnavailable):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
