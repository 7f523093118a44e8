package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool abstracts the pgx connection pool to make testing easier.
type Pool interface {
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

// TokenSource supplies the bearer credential presented when new connections
// are established, and can be forced to renew it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) error
}

// Connect initialises a connection pool against the managed structured-data
// service. When a token source is provided, the current bearer token is
// injected as the connection password lazily, each time the pool dials a new
// connection, so a refreshed credential is picked up without rebuilding the
// pool.
func Connect(ctx context.Context, databaseURL string, creds TokenSource) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if creds != nil {
		cfg.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
			token, err := creds.Token(ctx)
			if err != nil {
				return fmt.Errorf("fetch bearer token: %w", err)
			}
			cc.Password = token
			return nil
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	return pool, nil
}
