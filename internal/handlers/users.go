package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/motiontrace/backend/internal/logging"
	"github.com/motiontrace/backend/internal/records"
)

// UserHandler implements user registration, listing and lookup endpoints.
type UserHandler struct {
	Records RecordStore
	// BlobURL resolves a stored blob path to its externally visible location.
	BlobURL func(key string) string
}

type registerRequest struct {
	Username string `json:"username"`
}

// Handle dispatches /users by method: POST registers, GET lists.
func (h UserHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.register(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h UserHandler) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		respondError(w, http.StatusBadRequest, "username is required")
		return
	}

	clientID, err := h.Records.CreateUser(ctx, username)
	if err != nil {
		logger.Error("user registration failed", "username", username, "error", err)
		respondError(w, http.StatusInternalServerError, "user registration failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "success",
		"client_id": clientID,
		"username":  username,
	})
}

func (h UserHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	summaries, err := h.Records.ListUsers(ctx)
	if err != nil {
		logger.Error("user listing failed", "error", err)
		respondError(w, http.StatusInternalServerError, "user list failed")
		return
	}

	users := make([]map[string]any, 0, len(summaries))
	for _, s := range summaries {
		users = append(users, map[string]any{
			"username":  s.Username,
			"last_seen": s.LastSeen.Format(time.RFC3339),
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"users":     users,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// Lookup implements GET /get_exist_client?username=.
func (h UserHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		respondError(w, http.StatusBadRequest, "username is required")
		return
	}

	rec, err := h.Records.LatestByUsername(ctx, username)
	if errors.Is(err, records.ErrNotFound) {
		respondJSON(w, http.StatusOK, map[string]any{
			"status":        "success",
			"client_exists": false,
			"timestamp":     time.Now().Format(time.RFC3339),
		})
		return
	}
	if err != nil {
		status := statusForError(err)
		if status == http.StatusNotFound {
			respondError(w, status, "client_data table not found")
			return
		}
		logger.Error("client lookup failed", "username", username, "error", err)
		respondError(w, http.StatusInternalServerError, "client lookup failed")
		return
	}

	data := map[string]any{
		"id":         rec.ID,
		"username":   rec.Username,
		"created_at": rec.CreatedAt.Format(time.RFC3339),
	}
	if rec.PhotoPath != "" {
		data["photo_url"] = h.blobURL(rec.PhotoPath)
	}
	if rec.CSVPath != "" {
		data["csv_url"] = h.blobURL(rec.CSVPath)
	}
	if rec.VideoPath != "" {
		data["video_url"] = h.blobURL(rec.VideoPath)
	}
	if rec.TrajectoryPath != "" {
		data["trajectory_url"] = h.blobURL(rec.TrajectoryPath)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "success",
		"client_exists": true,
		"data":          data,
		"timestamp":     time.Now().Format(time.RFC3339),
	})
}

func (h UserHandler) blobURL(key string) string {
	if h.BlobURL == nil {
		return key
	}
	return h.BlobURL(key)
}
