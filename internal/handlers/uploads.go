package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/motiontrace/backend/internal/ingest"
	"github.com/motiontrace/backend/internal/logging"
)

// maxUploadBytes bounds the in-memory portion of multipart parsing.
const maxUploadBytes = 64 << 20

// UploadHandler accepts artifact pairs and runs them through the ingestion
// pipeline.
type UploadHandler struct {
	Ingest  Ingestor
	Limiter RateLimiter
}

// Media implements POST /upload_data (multipart: photo, csv_file, username).
func (h UploadHandler) Media(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !allowRequest(h.Limiter, r, "upload") {
		respondError(w, http.StatusTooManyRequests, "too many uploads")
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	username, photo, csv, ok := h.parsePair(w, r, "photo", "csv_file")
	if !ok {
		return
	}

	result, err := h.Ingest.IngestMedia(ctx, username, photo, csv)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidFormat) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error("upload failed", "username", username, "error", err)
		respondError(w, http.StatusInternalServerError, "upload operation failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "success",
		"client_id": result.ClientID,
		"photo_url": result.PhotoURL,
		"csv_url":   result.CSVURL,
	})
}

// Motion implements POST /upload_video_data (multipart: video, trajectory, username).
func (h UploadHandler) Motion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !allowRequest(h.Limiter, r, "upload") {
		respondError(w, http.StatusTooManyRequests, "too many uploads")
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	username, video, traj, ok := h.parsePair(w, r, "video", "trajectory")
	if !ok {
		return
	}

	result, err := h.Ingest.IngestMotion(ctx, username, video, traj)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidFormat) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error("video upload failed", "username", username, "error", err)
		respondError(w, http.StatusInternalServerError, "video upload failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":         "success",
		"client_id":      result.ClientID,
		"video_url":      result.VideoURL,
		"trajectory_url": result.TrajectoryURL,
	})
}

// parsePair extracts the username form field and the two named file parts,
// writing the error response itself when the request is malformed.
func (h UploadHandler) parsePair(w http.ResponseWriter, r *http.Request, first, second string) (string, ingest.Upload, ingest.Upload, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart request")
		return "", ingest.Upload{}, ingest.Upload{}, false
	}

	username := strings.TrimSpace(r.FormValue("username"))
	if username == "" {
		respondError(w, http.StatusBadRequest, "username is required")
		return "", ingest.Upload{}, ingest.Upload{}, false
	}

	firstFile, firstHeader, err := r.FormFile(first)
	if err != nil {
		respondError(w, http.StatusBadRequest, first+" file is required")
		return "", ingest.Upload{}, ingest.Upload{}, false
	}

	secondFile, secondHeader, err := r.FormFile(second)
	if err != nil {
		firstFile.Close()
		respondError(w, http.StatusBadRequest, second+" file is required")
		return "", ingest.Upload{}, ingest.Upload{}, false
	}

	return username,
		ingest.Upload{Filename: firstHeader.Filename, Content: firstFile},
		ingest.Upload{Filename: secondHeader.Filename, Content: secondFile},
		true
}
