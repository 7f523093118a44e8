package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates no record exists for the requested username.
	ErrNotFound = errors.New("record not found")
	// ErrSchemaMissing indicates the client_data table has not been provisioned.
	// Distinct from ErrNotFound so callers can surface it as a 404 on the
	// table rather than an empty result.
	ErrSchemaMissing = errors.New("client_data table not found")
)

// ClientRecord is one metadata row referencing a username and up to four
// artifact blob paths. Records are append-only; later uploads for the same
// logical client create a new record with a fresh ID.
type ClientRecord struct {
	ID             string
	Username       string
	PhotoPath      string
	CSVPath        string
	VideoPath      string
	TrajectoryPath string
	CreatedAt      time.Time
}

// UserSummary is one row of the grouped user listing.
type UserSummary struct {
	Username string
	LastSeen time.Time
}

// Store is the backend-agnostic persistence contract implemented identically
// by the local and cloud backends. The implementation is selected once at
// startup and never switched at runtime.
type Store interface {
	// CreateUser writes a minimal record under a freshly generated client ID.
	// Duplicate usernames are allowed and produce distinct IDs.
	CreateUser(ctx context.Context, username string) (string, error)
	// ListUsers returns one row per distinct non-empty username, ordered by
	// last-seen descending.
	ListUsers(ctx context.Context) ([]UserSummary, error)
	// LatestByUsername returns the most recent record for the username, or
	// ErrNotFound.
	LatestByUsername(ctx context.Context, username string) (ClientRecord, error)
	// CountRecords returns the total row count, or ErrSchemaMissing when the
	// table has not been provisioned.
	CountRecords(ctx context.Context) (int64, error)
	// UpsertUploadRecord writes or overwrites a record's path fields. Must be
	// idempotent under retry: the same record twice yields the same final row.
	UpsertUploadRecord(ctx context.Context, rec ClientRecord) error
	// EnsureSchema provisions the client_data table if absent.
	EnsureSchema(ctx context.Context) error
	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}

// NewClientID derives a unique client identifier from a username. The random
// suffix guarantees uniqueness even for repeated usernames.
func NewClientID(username string) string {
	return fmt.Sprintf("%s_%s", username, uuid.NewString())
}
