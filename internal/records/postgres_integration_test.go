package records

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/motiontrace/backend/internal/db"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		// The embedded test server needs to fetch a binary; without it the
		// integration tests skip and the SQLite tests still run.
		fmt.Fprintf(os.Stderr, "cockroach test server unavailable, skipping integration tests: %v\n", err)
		os.Exit(m.Run())
	}

	pool, err := pgxpool.New(context.Background(), server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}
	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func newIntegrationStore(t *testing.T) *PostgresStore {
	t.Helper()
	if testPool == nil {
		t.Skip("no test database available")
	}

	ctx := context.Background()
	store := NewPostgresStore(db.NewClient(testPool, nil))
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()
	if _, err := conn.Exec(ctx, "DELETE FROM client_data"); err != nil {
		t.Fatalf("reset client_data: %v", err)
	}

	return store
}

func TestPostgresStoreCreateAndListUsers(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()

	first, err := store.CreateUser(ctx, "alice")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	second, err := store.CreateUser(ctx, "alice")
	if err != nil {
		t.Fatalf("create duplicate username: %v", err)
	}
	if first == second {
		t.Fatalf("duplicate registrations must produce distinct IDs, got %q twice", first)
	}

	if _, err := store.CreateUser(ctx, "bob"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	users, err := store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 distinct usernames, got %+v", users)
	}

	total, err := store.CountRecords(ctx)
	if err != nil {
		t.Fatalf("count records: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 records, got %d", total)
	}
}

func TestPostgresStoreUpsertAndLookup(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()

	rec := ClientRecord{
		ID:        NewClientID("carol"),
		Username:  "carol",
		PhotoPath: "photos/carol_1.jpg",
		CSVPath:   "csv/carol_1.csv",
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := store.UpsertUploadRecord(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.UpsertUploadRecord(ctx, rec); err != nil {
		t.Fatalf("repeated upsert: %v", err)
	}

	total, err := store.CountRecords(ctx)
	if err != nil {
		t.Fatalf("count records: %v", err)
	}
	if total != 1 {
		t.Fatalf("repeated upsert must not duplicate the row, got %d", total)
	}

	got, err := store.LatestByUsername(ctx, "carol")
	if err != nil {
		t.Fatalf("latest by username: %v", err)
	}
	if got.ID != rec.ID || got.PhotoPath != rec.PhotoPath || got.CSVPath != rec.CSVPath {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.VideoPath != "" || got.TrajectoryPath != "" {
		t.Fatalf("expected empty motion paths, got %+v", got)
	}

	if _, err := store.LatestByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresStoreMissingTable(t *testing.T) {
	if testPool == nil {
		t.Skip("no test database available")
	}

	ctx := context.Background()
	store := NewPostgresStore(db.NewClient(testPool, nil))

	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	_, err = conn.Exec(ctx, "DROP TABLE IF EXISTS client_data")
	conn.Release()
	if err != nil {
		t.Fatalf("drop client_data: %v", err)
	}

	if _, err := store.CountRecords(ctx); !errors.Is(err, ErrSchemaMissing) {
		t.Fatalf("expected ErrSchemaMissing, got %v", err)
	}
	if _, err := store.LatestByUsername(ctx, "carol"); !errors.Is(err, ErrSchemaMissing) {
		t.Fatalf("expected ErrSchemaMissing, got %v", err)
	}
}
