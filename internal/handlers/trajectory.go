package handlers

import "net/http"

// TrajectoryHandler serves synthetic motion paths.
type TrajectoryHandler struct {
	Generator PathGenerator
}

// Handle implements GET /get_normalized_trajectory.
func (h TrajectoryHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	respondJSON(w, http.StatusOK, h.Generator.GenerateUnit())
}
