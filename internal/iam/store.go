package iam

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Store holds the current bearer credential and refreshes it transparently
// when expired. Concurrent refresh attempts coalesce into a single call to
// the identity endpoint; a failed refresh leaves the prior credential intact.
type Store struct {
	acquirer Acquirer
	now      func() time.Time

	mu   sync.RWMutex
	cred Credential

	group singleflight.Group
}

// NewStore constructs a credential store around the given acquirer. A nil
// acquirer is allowed (local mode); Token then fails with ErrNoStrategy.
func NewStore(acquirer Acquirer) *Store {
	return &Store{
		acquirer: acquirer,
		now:      time.Now,
	}
}

// Token returns a valid bearer token, refreshing synchronously if the cached
// credential has expired.
func (s *Store) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	cred := s.cred
	s.mu.RUnlock()

	if cred.Valid(s.now()) {
		return cred.Token, nil
	}

	if s.acquirer == nil {
		return "", ErrNoStrategy
	}

	cred, err := s.refresh(ctx)
	if err != nil {
		return "", err
	}
	return cred.Token, nil
}

// Refresh forces a credential renewal regardless of the cached expiry. Used
// by the background scheduler and by the pool's auth-failure recovery path.
func (s *Store) Refresh(ctx context.Context) error {
	if s.acquirer == nil {
		return ErrNoStrategy
	}
	_, err := s.refresh(ctx)
	return err
}

func (s *Store) refresh(ctx context.Context) (Credential, error) {
	v, err, _ := s.group.Do("refresh", func() (any, error) {
		cred, err := s.acquirer.Acquire(ctx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.cred = cred
		s.mu.Unlock()

		return cred, nil
	})
	if err != nil {
		return Credential{}, err
	}
	return v.(Credential), nil
}

// Info is a point-in-time snapshot of the credential state for diagnostics.
type Info struct {
	Valid            bool
	ExpiresAt        time.Time
	MinutesRemaining float64
}

// Info reports the current credential state without triggering a refresh.
func (s *Store) Info() Info {
	s.mu.RLock()
	cred := s.cred
	s.mu.RUnlock()

	info := Info{Valid: cred.Valid(s.now()), ExpiresAt: cred.ExpiresAt}
	if info.Valid {
		info.MinutesRemaining = cred.ExpiresAt.Sub(s.now()).Minutes()
	}
	return info
}
