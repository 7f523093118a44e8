package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/motiontrace/backend/internal/iam"
	"github.com/motiontrace/backend/internal/ingest"
	"github.com/motiontrace/backend/internal/records"
	"github.com/motiontrace/backend/internal/trajectory"
)

type fakeRecordStore struct {
	createID  string
	createErr error
	created   []string

	users   []records.UserSummary
	listErr error

	latest    records.ClientRecord
	latestErr error

	count    int64
	countErr error

	pingErr error
}

func (f *fakeRecordStore) CreateUser(ctx context.Context, username string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, username)
	return f.createID, nil
}

func (f *fakeRecordStore) ListUsers(ctx context.Context) ([]records.UserSummary, error) {
	return f.users, f.listErr
}

func (f *fakeRecordStore) LatestByUsername(ctx context.Context, username string) (records.ClientRecord, error) {
	if f.latestErr != nil {
		return records.ClientRecord{}, f.latestErr
	}
	return f.latest, nil
}

func (f *fakeRecordStore) CountRecords(ctx context.Context) (int64, error) {
	return f.count, f.countErr
}

func (f *fakeRecordStore) Ping(ctx context.Context) error { return f.pingErr }

type fakeIngestor struct {
	media    ingest.MediaResult
	motion   ingest.MotionResult
	err      error
	username string
}

func (f *fakeIngestor) IngestMedia(ctx context.Context, username string, photo, csv ingest.Upload) (ingest.MediaResult, error) {
	f.username = username
	if f.err != nil {
		return ingest.MediaResult{}, f.err
	}
	return f.media, nil
}

func (f *fakeIngestor) IngestMotion(ctx context.Context, username string, video, traj ingest.Upload) (ingest.MotionResult, error) {
	f.username = username
	if f.err != nil {
		return ingest.MotionResult{}, f.err
	}
	return f.motion, nil
}

type fakeCredentialInfo struct {
	info iam.Info
}

func (f fakeCredentialInfo) Info() iam.Info { return f.info }

type fakeGenerator struct {
	traj trajectory.Trajectory
}

func (f fakeGenerator) GenerateUnit() trajectory.Trajectory { return f.traj }

type fakeLimiter struct {
	allow bool
	keys  []string
}

func (f *fakeLimiter) Allow(key string) bool {
	f.keys = append(f.keys, key)
	return f.allow
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return payload
}

// multipartRequest builds a POST with the given form fields and file parts.
func multipartRequest(t *testing.T, target string, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("write field %s: %v", name, err)
		}
	}
	for part, filename := range files {
		fw, err := writer.CreateFormFile(part, filename)
		if err != nil {
			t.Fatalf("create file part %s: %v", part, err)
		}
		if _, err := io.WriteString(fw, "content"); err != nil {
			t.Fatalf("write file part %s: %v", part, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
