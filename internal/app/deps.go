package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/motiontrace/backend/internal/config"
	"github.com/motiontrace/backend/internal/db"
	"github.com/motiontrace/backend/internal/handlers"
	"github.com/motiontrace/backend/internal/iam"
	"github.com/motiontrace/backend/internal/ingest"
	"github.com/motiontrace/backend/internal/middleware"
	"github.com/motiontrace/backend/internal/records"
	"github.com/motiontrace/backend/internal/storage"
	"github.com/motiontrace/backend/internal/trajectory"
)

var localSubdirs = []string{"photos", "csv", "videos", "trajectories"}

// backend owns the process-wide persistence state: the active record store
// and blob store, plus (cloud mode only) the credential store, its refresh
// scheduler, and the one connection pool.
type backend struct {
	records   records.Store
	blobs     storage.BlobStore
	blobURL   func(key string) string
	localMode bool

	creds     *iam.Store
	scheduler *iam.Scheduler
	pool      *pgxpool.Pool
	sqlite    *records.SQLiteStore
}

// buildBackend selects and initialises the persistence backend once at
// startup; the choice is immutable for the process lifetime.
func buildBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	if cfg.LocalDebug {
		return buildLocalBackend(ctx, cfg, logger)
	}
	return buildCloudBackend(ctx, cfg, logger)
}

func buildLocalBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	for _, sub := range localSubdirs {
		if err := os.MkdirAll(filepath.Join(cfg.LocalStorageDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create local storage directory: %w", err)
		}
	}

	store, err := records.OpenSQLiteStore(cfg.LocalDBPath)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}

	logger.Info("local debug mode enabled, using directory storage and embedded database",
		"storage_dir", cfg.LocalStorageDir, "db_path", cfg.LocalDBPath)

	baseDir := cfg.LocalStorageDir
	return &backend{
		records:   store,
		blobs:     storage.NewLocalStorage(baseDir),
		blobURL:   func(key string) string { return filepath.Join(baseDir, filepath.FromSlash(key)) },
		localMode: true,
		sqlite:    store,
	}, nil
}

func buildCloudBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	acquirer, err := newAcquirer(cfg)
	if err != nil {
		return nil, err
	}

	creds := iam.NewStore(acquirer)
	scheduler := iam.NewScheduler(creds, cfg.TokenRefreshInterval, logger)
	scheduler.Start()

	pool, err := db.Connect(ctx, cfg.DatabaseURL, creds)
	if err != nil {
		scheduler.Stop()
		return nil, err
	}

	client := db.NewClient(pool, creds)
	store := records.NewPostgresStore(client)
	if err := store.EnsureSchema(ctx); err != nil {
		scheduler.Stop()
		pool.Close()
		return nil, fmt.Errorf("provision metadata schema: %w", err)
	}

	blobs, err := storage.NewS3Storage(ctx, storage.S3Config{
		Endpoint:  cfg.S3Endpoint,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKeyID,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		scheduler.Stop()
		pool.Close()
		return nil, err
	}

	endpoint := cfg.S3Endpoint
	bucket := cfg.S3Bucket
	return &backend{
		records:   store,
		blobs:     blobs,
		blobURL:   func(key string) string { return fmt.Sprintf("%s/%s/%s", endpoint, bucket, key) },
		creds:     creds,
		scheduler: scheduler,
		pool:      pool,
	}, nil
}

// newAcquirer picks the authentication strategy: an OAuth token when present,
// otherwise a service account key file.
func newAcquirer(cfg config.Config) (iam.Acquirer, error) {
	if cfg.OAuthToken != "" {
		return iam.NewOAuthAcquirer(cfg.IAMEndpoint, cfg.OAuthToken), nil
	}

	key, err := iam.LoadServiceAccountKey(cfg.ServiceAccountKey)
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}
	acquirer, err := iam.NewServiceAccountAcquirer(cfg.IAMEndpoint, key)
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}
	return acquirer, nil
}

// Dependencies wires together concrete implementations used by the HTTP handlers.
func (b *backend) Dependencies() handlers.Dependencies {
	deps := handlers.Dependencies{
		Records:       b.records,
		Ingest:        ingest.New(b.blobs, b.records),
		Trajectories:  trajectory.NewGenerator(),
		UploadLimiter: middleware.NewIPRateLimiter(30, time.Minute, 10, 10*time.Minute),
		BlobURL:       b.blobURL,
		LocalMode:     b.localMode,
	}
	if b.creds != nil {
		deps.Credentials = b.creds
	}
	return deps
}

// Close releases the process-wide resources in reverse construction order.
func (b *backend) Close() {
	if b.scheduler != nil {
		b.scheduler.Stop()
	}
	if b.pool != nil {
		b.pool.Close()
	}
	if b.sqlite != nil {
		b.sqlite.Close()
	}
}
