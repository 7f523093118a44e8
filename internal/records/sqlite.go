package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteTimeLayout keeps fractional seconds fixed-width so the TEXT column's
// lexicographic order matches chronological order. RFC3339Nano trims trailing
// zeros and would sort "…00.5Z" after "…00.52Z".
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store on an embedded database file. It is the
// local-debug backend and has no credential dependency.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLiteStore opens (creating if needed) the embedded database at the
// given path, with WAL mode and a busy timeout so concurrent request handlers
// do not trip over the single writer.
func OpenSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open embedded database %s: %w", dbPath, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open embedded database %s: %w", dbPath, err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// EnsureSchema provisions the client_data table if absent.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS client_data (
            id TEXT NOT NULL,
            username TEXT NOT NULL,
            photo_path TEXT,
            csv_path TEXT,
            video_path TEXT,
            trajectory_path TEXT,
            created_at TEXT,
            PRIMARY KEY (id, username)
        )
    `)
	if err != nil {
		return fmt.Errorf("ensure client_data table: %w", err)
	}
	return nil
}

// Ping verifies the database file answers queries.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// CreateUser inserts a minimal record with a fresh client ID.
func (s *SQLiteStore) CreateUser(ctx context.Context, username string) (string, error) {
	clientID := NewClientID(username)

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO client_data (id, username, created_at)
        VALUES (?, ?, ?)
    `, clientID, username, s.now().UTC().Format(sqliteTimeLayout))
	if err != nil {
		return "", fmt.Errorf("insert user record: %w", err)
	}

	return clientID, nil
}

// ListUsers returns one row per distinct non-empty username, newest first.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]UserSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT username, MAX(created_at) AS last_seen
        FROM client_data
        WHERE username IS NOT NULL AND username != ''
        GROUP BY username
        ORDER BY last_seen DESC
    `)
	if err != nil {
		return nil, fmt.Errorf("query user listing: %w", err)
	}
	defer rows.Close()

	var users []UserSummary
	for rows.Next() {
		var (
			u        UserSummary
			lastSeen string
		)
		if err := rows.Scan(&u.Username, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan user listing: %w", err)
		}
		u.LastSeen = parseSQLiteTime(lastSeen)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user listing: %w", err)
	}

	return users, nil
}

// LatestByUsername returns the most recent record for the username.
func (s *SQLiteStore) LatestByUsername(ctx context.Context, username string) (ClientRecord, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, username,
               COALESCE(photo_path, ''),
               COALESCE(csv_path, ''),
               COALESCE(video_path, ''),
               COALESCE(trajectory_path, ''),
               COALESCE(created_at, '')
        FROM client_data
        WHERE username = ?
        ORDER BY created_at DESC
        LIMIT 1
    `, username)

	var (
		rec       ClientRecord
		createdAt string
	)
	if err := row.Scan(&rec.ID, &rec.Username, &rec.PhotoPath, &rec.CSVPath,
		&rec.VideoPath, &rec.TrajectoryPath, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ClientRecord{}, ErrNotFound
		}
		return ClientRecord{}, fmt.Errorf("select latest record: %w", err)
	}
	rec.CreatedAt = parseSQLiteTime(createdAt)

	return rec, nil
}

// CountRecords returns the total row count.
func (s *SQLiteStore) CountRecords(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM client_data`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return total, nil
}

// UpsertUploadRecord writes or overwrites a record's path fields using
// insert-or-replace semantics keyed by (id, username).
func (s *SQLiteStore) UpsertUploadRecord(ctx context.Context, rec ClientRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
        INSERT OR REPLACE INTO client_data
            (id, username, photo_path, csv_path, video_path, trajectory_path, created_at)
        VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?)
    `, rec.ID, rec.Username, rec.PhotoPath, rec.CSVPath, rec.VideoPath, rec.TrajectoryPath,
		createdAt.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return fmt.Errorf("upsert upload record: %w", err)
	}

	return nil
}

func parseSQLiteTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(sqliteTimeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

var _ Store = (*SQLiteStore)(nil)
