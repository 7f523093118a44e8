package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/motiontrace/backend/internal/ingest"
)

func TestUploadMedia(t *testing.T) {
	ingestor := &fakeIngestor{media: ingest.MediaResult{
		ClientID: "alice_abc",
		PhotoURL: "https://cdn.example/photos/alice_abc.jpg",
		CSVURL:   "https://cdn.example/csv/alice_abc.csv",
	}}
	handler := UploadHandler{Ingest: ingestor}

	req := multipartRequest(t, "/upload_data",
		map[string]string{"username": "alice"},
		map[string]string{"photo": "selfie.jpg", "csv_file": "readings.csv"},
	)
	rec := httptest.NewRecorder()
	handler.Media(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	body := decodeBody(t, rec)
	if body["client_id"] != "alice_abc" {
		t.Fatalf("client_id = %v", body["client_id"])
	}
	if body["photo_url"] != "https://cdn.example/photos/alice_abc.jpg" {
		t.Fatalf("photo_url = %v", body["photo_url"])
	}
	if ingestor.username != "alice" {
		t.Fatalf("pipeline saw username %q", ingestor.username)
	}
}

func TestUploadMotion(t *testing.T) {
	ingestor := &fakeIngestor{motion: ingest.MotionResult{
		ClientID:      "bob_xyz",
		VideoURL:      "https://cdn.example/videos/bob_xyz.mp4",
		TrajectoryURL: "https://cdn.example/trajectories/bob_xyz.json",
	}}
	handler := UploadHandler{Ingest: ingestor}

	req := multipartRequest(t, "/upload_video_data",
		map[string]string{"username": "bob"},
		map[string]string{"video": "session.mp4", "trajectory": "path.json"},
	)
	rec := httptest.NewRecorder()
	handler.Motion(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	body := decodeBody(t, rec)
	if body["video_url"] != "https://cdn.example/videos/bob_xyz.mp4" {
		t.Fatalf("video_url = %v", body["video_url"])
	}
	if body["trajectory_url"] != "https://cdn.example/trajectories/bob_xyz.json" {
		t.Fatalf("trajectory_url = %v", body["trajectory_url"])
	}
}

func TestUploadInvalidFormat(t *testing.T) {
	ingestor := &fakeIngestor{err: fmt.Errorf("photo: %w: extension %q not allowed", ingest.ErrInvalidFormat, ".txt")}
	handler := UploadHandler{Ingest: ingestor}

	req := multipartRequest(t, "/upload_data",
		map[string]string{"username": "alice"},
		map[string]string{"photo": "notes.txt", "csv_file": "readings.csv"},
	)
	rec := httptest.NewRecorder()
	handler.Media(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	if msg := body["error"].(string); !strings.Contains(msg, "not allowed") {
		t.Fatalf("validation detail missing from response: %q", msg)
	}
}

func TestUploadPipelineFailure(t *testing.T) {
	ingestor := &fakeIngestor{err: errors.New("bucket unavailable")}
	handler := UploadHandler{Ingest: ingestor}

	req := multipartRequest(t, "/upload_data",
		map[string]string{"username": "alice"},
		map[string]string{"photo": "selfie.jpg", "csv_file": "readings.csv"},
	)
	rec := httptest.NewRecorder()
	handler.Media(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := decodeBody(t, rec)
	if msg := body["error"].(string); strings.Contains(msg, "bucket") {
		t.Fatalf("internal detail leaked to client: %q", msg)
	}
}

func TestUploadRequiresUsername(t *testing.T) {
	handler := UploadHandler{Ingest: &fakeIngestor{}}

	req := multipartRequest(t, "/upload_data",
		nil,
		map[string]string{"photo": "selfie.jpg", "csv_file": "readings.csv"},
	)
	rec := httptest.NewRecorder()
	handler.Media(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadRequiresBothParts(t *testing.T) {
	cases := []struct {
		name  string
		files map[string]string
	}{
		{"missing photo", map[string]string{"csv_file": "readings.csv"}},
		{"missing csv", map[string]string{"photo": "selfie.jpg"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := UploadHandler{Ingest: &fakeIngestor{}}

			req := multipartRequest(t, "/upload_data",
				map[string]string{"username": "alice"}, tc.files)
			rec := httptest.NewRecorder()
			handler.Media(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestUploadRateLimited(t *testing.T) {
	limiter := &fakeLimiter{allow: false}
	handler := UploadHandler{Ingest: &fakeIngestor{}, Limiter: limiter}

	req := multipartRequest(t, "/upload_data",
		map[string]string{"username": "alice"},
		map[string]string{"photo": "selfie.jpg", "csv_file": "readings.csv"},
	)
	req.RemoteAddr = "203.0.113.9:4411"
	rec := httptest.NewRecorder()
	handler.Media(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if len(limiter.keys) != 1 || limiter.keys[0] != "upload:203.0.113.9" {
		t.Fatalf("unexpected limiter keys: %v", limiter.keys)
	}
}

func TestUploadMethodNotAllowed(t *testing.T) {
	handler := UploadHandler{Ingest: &fakeIngestor{}}

	req := httptest.NewRequest(http.MethodGet, "/upload_data", nil)
	rec := httptest.NewRecorder()
	handler.Media(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestUploadRejectsNonMultipartBody(t *testing.T) {
	handler := UploadHandler{Ingest: &fakeIngestor{}}

	req := httptest.NewRequest(http.MethodPost, "/upload_data", strings.NewReader("plain body"))
	rec := httptest.NewRecorder()
	handler.Media(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
