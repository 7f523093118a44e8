package handlers

import (
	"context"

	"github.com/motiontrace/backend/internal/iam"
	"github.com/motiontrace/backend/internal/ingest"
	"github.com/motiontrace/backend/internal/records"
	"github.com/motiontrace/backend/internal/trajectory"
)

// RecordStore captures the persistence operations required by the HTTP handlers.
type RecordStore interface {
	CreateUser(ctx context.Context, username string) (string, error)
	ListUsers(ctx context.Context) ([]records.UserSummary, error)
	LatestByUsername(ctx context.Context, username string) (records.ClientRecord, error)
	CountRecords(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// Ingestor runs the upload validation and persistence pipeline.
type Ingestor interface {
	IngestMedia(ctx context.Context, username string, photo, csv ingest.Upload) (ingest.MediaResult, error)
	IngestMotion(ctx context.Context, username string, video, traj ingest.Upload) (ingest.MotionResult, error)
}

// CredentialInfo exposes the bearer-credential diagnostics snapshot. Nil in
// local mode, which has no credential dependency.
type CredentialInfo interface {
	Info() iam.Info
}

// PathGenerator produces synthetic motion paths on request.
type PathGenerator interface {
	GenerateUnit() trajectory.Trajectory
}
