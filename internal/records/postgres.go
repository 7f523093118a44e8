package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	crdbpgxv5 "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/motiontrace/backend/internal/db"
)

// PostgresStore implements Store against the managed structured-data service,
// running every operation through the retrying session client. All
// user-controlled values travel as bound parameters.
type PostgresStore struct {
	client *db.Client
}

// NewPostgresStore constructs the cloud metadata store.
func NewPostgresStore(client *db.Client) *PostgresStore {
	return &PostgresStore{client: client}
}

// EnsureSchema provisions the client_data table if absent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	return s.client.WithSession(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, `
            CREATE TABLE IF NOT EXISTS client_data (
                id TEXT NOT NULL,
                username TEXT NOT NULL,
                photo_path TEXT,
                csv_path TEXT,
                video_path TEXT,
                trajectory_path TEXT,
                created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
                PRIMARY KEY (id, username)
            )
        `)
		if err != nil {
			return fmt.Errorf("ensure client_data table: %w", err)
		}
		return nil
	})
}

// Ping verifies the structured-data service answers queries.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.client.WithSession(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		var one int
		if err := conn.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
			return fmt.Errorf("ping: %w", err)
		}
		return nil
	})
}

// CreateUser inserts a minimal record with a fresh client ID.
func (s *PostgresStore) CreateUser(ctx context.Context, username string) (string, error) {
	clientID := NewClientID(username)

	err := s.client.WithSession(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, `
            INSERT INTO client_data (id, username, created_at)
            VALUES ($1, $2, NOW())
        `, clientID, username)
		if err != nil {
			return fmt.Errorf("insert user record: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", translate(err)
	}

	return clientID, nil
}

// ListUsers returns one row per distinct non-empty username, newest first.
func (s *PostgresStore) ListUsers(ctx context.Context) ([]UserSummary, error) {
	var users []UserSummary

	err := s.client.WithSession(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `
            SELECT username, MAX(created_at) AS last_seen
            FROM client_data
            WHERE username <> ''
            GROUP BY username
            ORDER BY last_seen DESC
        `)
		if err != nil {
			return fmt.Errorf("query user listing: %w", err)
		}
		defer rows.Close()

		users = users[:0]
		for rows.Next() {
			var u UserSummary
			if err := rows.Scan(&u.Username, &u.LastSeen); err != nil {
				return fmt.Errorf("scan user listing: %w", err)
			}
			users = append(users, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, translate(err)
	}

	return users, nil
}

// LatestByUsername returns the most recent record for the username.
func (s *PostgresStore) LatestByUsername(ctx context.Context, username string) (ClientRecord, error) {
	var rec ClientRecord

	err := s.client.WithSession(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		if err := s.checkTable(ctx, conn); err != nil {
			return err
		}

		row := conn.QueryRow(ctx, `
            SELECT id, username,
                   COALESCE(photo_path, ''),
                   COALESCE(csv_path, ''),
                   COALESCE(video_path, ''),
                   COALESCE(trajectory_path, ''),
                   created_at
            FROM client_data
            WHERE username = $1
            ORDER BY created_at DESC
            LIMIT 1
        `, username)

		if err := row.Scan(&rec.ID, &rec.Username, &rec.PhotoPath, &rec.CSVPath,
			&rec.VideoPath, &rec.TrajectoryPath, &rec.CreatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("select latest record: %w", err)
		}
		return nil
	})
	if err != nil {
		return ClientRecord{}, translate(err)
	}

	return rec, nil
}

// CountRecords returns the total row count, verifying the table exists first
// so absence surfaces as ErrSchemaMissing rather than a bare query failure.
func (s *PostgresStore) CountRecords(ctx context.Context) (int64, error) {
	var total int64

	err := s.client.WithSession(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		if err := s.checkTable(ctx, conn); err != nil {
			return err
		}

		if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM client_data`).Scan(&total); err != nil {
			return fmt.Errorf("count records: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, translate(err)
	}

	return total, nil
}

// UpsertUploadRecord writes or overwrites a record's path fields inside a
// transaction that is retried on serialization failures.
func (s *PostgresStore) UpsertUploadRecord(ctx context.Context, rec ClientRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	err := s.client.WithSession(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		return crdbpgxv5.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, `
                INSERT INTO client_data
                    (id, username, photo_path, csv_path, video_path, trajectory_path, created_at)
                VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7)
                ON CONFLICT (id, username) DO UPDATE SET
                    photo_path = EXCLUDED.photo_path,
                    csv_path = EXCLUDED.csv_path,
                    video_path = EXCLUDED.video_path,
                    trajectory_path = EXCLUDED.trajectory_path,
                    created_at = EXCLUDED.created_at
            `, rec.ID, rec.Username, rec.PhotoPath, rec.CSVPath, rec.VideoPath, rec.TrajectoryPath, createdAt)
			if err != nil {
				return fmt.Errorf("upsert upload record: %w", err)
			}
			return nil
		})
	})

	return translate(err)
}

func (s *PostgresStore) checkTable(ctx context.Context, conn *pgxpool.Conn) error {
	var reg *string
	if err := conn.QueryRow(ctx, `SELECT to_regclass('client_data')`).Scan(&reg); err != nil {
		return fmt.Errorf("check client_data table: %w", err)
	}
	if reg == nil {
		return ErrSchemaMissing
	}
	return nil
}

// translate maps session-client sentinels onto this package's error taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, db.ErrSchemaMissing) {
		return fmt.Errorf("%w: %v", ErrSchemaMissing, err)
	}
	return err
}

var _ Store = (*PostgresStore)(nil)
