package db

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrSchemaMissing indicates a referenced table or schema object does not
	// exist. Never retried; the caller must handle provisioning.
	ErrSchemaMissing = errors.New("schema object missing")
	// ErrUnavailable indicates the structured-data service stayed unreachable
	// through the bounded retry policy.
	ErrUnavailable = errors.New("storage unavailable")
)

const (
	defaultMaxAttempts = 3
	defaultBaseBackoff = 100 * time.Millisecond
	defaultMaxBackoff  = 2 * time.Second
)

var transientPgErrorCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
	"53300": {}, // too_many_connections
	"57P01": {}, // admin_shutdown
	"08000": {}, // connection_exception
	"08006": {}, // connection_failure
}

var authPgErrorCodes = map[string]struct{}{
	"28000": {}, // invalid_authorization_specification
	"28P01": {}, // invalid_password
}

// Client runs units of work against pool-leased sessions, retrying transient
// failures under a bounded backoff policy. Exactly one Client wraps the one
// process-wide pool.
type Client struct {
	pool  Pool
	creds TokenSource

	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

// NewClient wraps the pool with the default retry policy. creds may be nil
// when the backing service needs no bearer credential.
func NewClient(pool Pool, creds TokenSource) *Client {
	return &Client{
		pool:        pool,
		creds:       creds,
		maxAttempts: defaultMaxAttempts,
		baseBackoff: defaultBaseBackoff,
		maxBackoff:  defaultMaxBackoff,
	}
}

// WithSession leases a session from the pool, runs fn against it, and
// classifies failures: schema absence propagates immediately, authorization
// failures trigger a single forced credential refresh and one more attempt,
// and transient failures are retried with capped exponential backoff until
// the attempt budget runs out. Each attempt leases a fresh session.
func (c *Client) WithSession(ctx context.Context, fn func(ctx context.Context, conn *pgxpool.Conn) error) error {
	return c.withRetry(ctx, func(ctx context.Context) error {
		conn, err := c.pool.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("acquire session: %w", err)
		}
		defer conn.Release()

		return fn(ctx, conn)
	})
}

func (c *Client) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	refreshed := false

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.wait(ctx, attempt); err != nil {
				return err
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}

		switch classify(err) {
		case kindSchema:
			return fmt.Errorf("%w: %v", ErrSchemaMissing, err)
		case kindAuth:
			// The background scheduler normally keeps the token fresh; this
			// path only fires when a credential went bad mid-flight.
			if refreshed || c.creds == nil {
				return err
			}
			refreshed = true
			if rerr := c.creds.Refresh(ctx); rerr != nil {
				return fmt.Errorf("refresh credential after auth failure: %w", rerr)
			}
			lastErr = err
		case kindTransient:
			lastErr = err
		default:
			return err
		}
	}

	return fmt.Errorf("%w: %d attempts exhausted: %v", ErrUnavailable, c.maxAttempts, lastErr)
}

func (c *Client) wait(ctx context.Context, attempt int) error {
	backoff := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseBackoff
	if backoff > c.maxBackoff {
		backoff = c.maxBackoff
	}

	timer := time.NewTimer(backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type errorKind int

const (
	kindFatal errorKind = iota
	kindSchema
	kindAuth
	kindTransient
)

func classify(err error) errorKind {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "42P01" {
			return kindSchema
		}
		if _, ok := authPgErrorCodes[pgErr.Code]; ok {
			return kindAuth
		}
		if _, ok := transientPgErrorCodes[pgErr.Code]; ok {
			return kindTransient
		}
		return kindFatal
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return kindTransient
	}
	if pgconn.SafeToRetry(err) {
		return kindTransient
	}

	return kindFatal
}
