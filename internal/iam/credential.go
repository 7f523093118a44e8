package iam

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoStrategy indicates no authentication strategy was configured and no cached token exists.
	ErrNoStrategy = errors.New("no authentication strategy configured")
	// ErrInvalidCredential indicates the long-lived secret was rejected by the identity service
	// and must be rotated by an operator. Retrying cannot help.
	ErrInvalidCredential = errors.New("invalid credential")
)

// Credential is a short-lived bearer token together with its expiry instant.
// It is replaced wholesale on every refresh, never mutated field by field.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// Valid reports whether the credential can still be presented at the given instant.
func (c Credential) Valid(now time.Time) bool {
	return c.Token != "" && now.Before(c.ExpiresAt)
}

// Acquirer converts a long-lived secret into a short-lived bearer credential
// via a call to the remote identity endpoint.
type Acquirer interface {
	Acquire(ctx context.Context) (Credential, error)
}
