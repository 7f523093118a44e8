package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/motiontrace/backend/internal/logging"
	"github.com/motiontrace/backend/internal/records"
	"github.com/motiontrace/backend/internal/storage"
)

// ErrInvalidFormat indicates an uploaded artifact's extension is not in the
// allowlist for its kind. Surfaced before any blob or metadata write.
var ErrInvalidFormat = errors.New("invalid artifact format")

var (
	photoExtensions      = []string{".jpg", ".jpeg", ".png"}
	csvExtensions        = []string{".csv"}
	videoExtensions      = []string{".mp4", ".webm"}
	trajectoryExtensions = []string{".json"}
)

// Upload is one artifact received from a client.
type Upload struct {
	Filename string
	Content  io.Reader
}

// RecordWriter is the slice of the persistence contract the pipeline needs.
type RecordWriter interface {
	UpsertUploadRecord(ctx context.Context, rec records.ClientRecord) error
}

// MediaResult reports where a photo+spreadsheet pair landed.
type MediaResult struct {
	ClientID string
	PhotoURL string
	CSVURL   string
}

// MotionResult reports where a video+trajectory pair landed.
type MotionResult struct {
	ClientID      string
	VideoURL      string
	TrajectoryURL string
}

// Pipeline validates uploaded artifacts, writes their blobs, then records one
// metadata row referencing both paths. Blob and metadata writes are not
// atomic; a metadata failure triggers best-effort deletes of the blobs
// written in the same call.
type Pipeline struct {
	blobs   storage.BlobStore
	writer  RecordWriter
	NowFunc func() time.Time
}

// New constructs an ingestion pipeline over the active backend.
func New(blobs storage.BlobStore, writer RecordWriter) *Pipeline {
	return &Pipeline{blobs: blobs, writer: writer}
}

// IngestMedia validates and persists a photo+spreadsheet pair.
func (p *Pipeline) IngestMedia(ctx context.Context, username string, photo, csv Upload) (MediaResult, error) {
	if err := checkExtension(photo.Filename, photoExtensions); err != nil {
		return MediaResult{}, fmt.Errorf("photo: %w", err)
	}
	if err := checkExtension(csv.Filename, csvExtensions); err != nil {
		return MediaResult{}, fmt.Errorf("csv file: %w", err)
	}

	clientID := records.NewClientID(username)
	photoKey := "photos/" + clientID + strings.ToLower(path.Ext(photo.Filename))
	csvKey := "csv/" + clientID + ".csv"

	photoURL, err := p.blobs.Save(ctx, photoKey, photo.Content)
	if err != nil {
		return MediaResult{}, fmt.Errorf("store photo: %w", err)
	}
	csvURL, err := p.blobs.Save(ctx, csvKey, csv.Content)
	if err != nil {
		p.compensate(ctx, photoKey)
		return MediaResult{}, fmt.Errorf("store csv: %w", err)
	}

	rec := records.ClientRecord{
		ID:        clientID,
		Username:  username,
		PhotoPath: photoKey,
		CSVPath:   csvKey,
		CreatedAt: p.now(),
	}
	if err := p.writer.UpsertUploadRecord(ctx, rec); err != nil {
		p.compensate(ctx, photoKey, csvKey)
		return MediaResult{}, fmt.Errorf("record upload metadata: %w", err)
	}

	return MediaResult{ClientID: clientID, PhotoURL: photoURL, CSVURL: csvURL}, nil
}

// IngestMotion validates and persists a video+trajectory pair.
func (p *Pipeline) IngestMotion(ctx context.Context, username string, video, trajectory Upload) (MotionResult, error) {
	if err := checkExtension(video.Filename, videoExtensions); err != nil {
		return MotionResult{}, fmt.Errorf("video: %w", err)
	}
	if err := checkExtension(trajectory.Filename, trajectoryExtensions); err != nil {
		return MotionResult{}, fmt.Errorf("trajectory: %w", err)
	}

	clientID := records.NewClientID(username)
	videoKey := "videos/" + clientID + strings.ToLower(path.Ext(video.Filename))
	trajectoryKey := "trajectories/" + clientID + ".json"

	videoURL, err := p.blobs.Save(ctx, videoKey, video.Content)
	if err != nil {
		return MotionResult{}, fmt.Errorf("store video: %w", err)
	}
	trajectoryURL, err := p.blobs.Save(ctx, trajectoryKey, trajectory.Content)
	if err != nil {
		p.compensate(ctx, videoKey)
		return MotionResult{}, fmt.Errorf("store trajectory: %w", err)
	}

	rec := records.ClientRecord{
		ID:             clientID,
		Username:       username,
		VideoPath:      videoKey,
		TrajectoryPath: trajectoryKey,
		CreatedAt:      p.now(),
	}
	if err := p.writer.UpsertUploadRecord(ctx, rec); err != nil {
		p.compensate(ctx, videoKey, trajectoryKey)
		return MotionResult{}, fmt.Errorf("record upload metadata: %w", err)
	}

	return MotionResult{ClientID: clientID, VideoURL: videoURL, TrajectoryURL: trajectoryURL}, nil
}

// compensate removes blobs already written in a call whose metadata write
// failed. Best effort; a leaked blob is unreferenced and harmless because the
// client ID is fresh per attempt.
func (p *Pipeline) compensate(ctx context.Context, keys ...string) {
	logger := logging.FromContext(ctx)
	for _, key := range keys {
		if err := p.blobs.Delete(ctx, key); err != nil {
			logger.Warn("failed to delete orphaned blob", "key", key, "error", err)
		}
	}
}

func (p *Pipeline) now() time.Time {
	if p.NowFunc != nil {
		return p.NowFunc().UTC()
	}
	return time.Now().UTC()
}

func checkExtension(filename string, allowed []string) error {
	ext := strings.ToLower(path.Ext(filename))
	for _, a := range allowed {
		if ext == a {
			return nil
		}
	}
	return fmt.Errorf("%w: extension %q not allowed", ErrInvalidFormat, ext)
}
