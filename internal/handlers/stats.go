package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/motiontrace/backend/internal/logging"
	"github.com/motiontrace/backend/internal/records"
)

// StatsHandler reports aggregate record counts.
type StatsHandler struct {
	Records RecordStore
}

// Handle implements GET /get_stats.
func (h StatsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	total, err := h.Records.CountRecords(ctx)
	if errors.Is(err, records.ErrSchemaMissing) {
		respondError(w, http.StatusNotFound, "client_data table not found")
		return
	}
	if err != nil {
		logger.Error("stats query failed", "error", err)
		respondError(w, http.StatusInternalServerError, "stats query failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"table":     "client_data",
		"stats":     map[string]int64{"total_count": total},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
