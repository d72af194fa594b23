// Package lock provides distributed and local locking abstractions.
// For single-node deployments, memory-based locks are used.
// For distributed deployments, Redis-based locks can be used.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotObtained is returned when a lock is held by someone else.
	ErrNotObtained = errors.New("lock not obtained")

	// ErrNotHeld is returned when releasing a lock the caller does not own.
	ErrNotHeld = errors.New("lock not held")
)

// Locker defines the interface for distributed/local locking.
// Ownership is tracked by an opaque token returned from Acquire; only the
// holder of the token may release the lock.
type Locker interface {
	// Acquire attempts to acquire a lock that expires after ttl.
	// Returns ErrNotObtained if the lock is held by another owner.
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, err error)

	// Release releases a lock owned by token.
	// Returns ErrNotHeld if the lock expired or belongs to another owner.
	Release(ctx context.Context, key, token string) error

	// IsHeld checks if the lock is currently held by anyone.
	IsHeld(ctx context.Context, key string) (bool, error)
}

// RetryPolicy bounds how long Obtain keeps trying.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// Lock is an acquired lock.
type Lock struct {
	locker Locker
	key    string
	token  string
}

// Obtain acquires key, retrying per policy while another owner holds it.
// Returns ErrNotObtained once the retries are exhausted.
func Obtain(ctx context.Context, locker Locker, key string, ttl time.Duration, policy RetryPolicy) (*Lock, error) {
	for attempt := 0; ; attempt++ {
		token, err := locker.Acquire(ctx, key, ttl)
		if err == nil {
			return &Lock{locker: locker, key: key, token: token}, nil
		}
		if !errors.Is(err, ErrNotObtained) || attempt >= policy.MaxRetries {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(policy.Delay):
		}
	}
}

// Key returns the locked key.
func (l *Lock) Key() string {
	return l.key
}

// Release releases the lock.
func (l *Lock) Release(ctx context.Context) error {
	return l.locker.Release(ctx, l.key, l.token)
}

// newToken creates a unique token for lock ownership.
func newToken() string {
	return uuid.NewString()
}

// =============================================================================
// Common Lock Keys
// =============================================================================

// Keys provides lock key generation for common scenarios.
var Keys = lockKeys{}

type lockKeys struct{}

// Checkout returns the lock key serializing checkouts of one user's cart.
func (lockKeys) Checkout(userID uuid.UUID) string {
	return "lock:checkout:" + userID.String()
}

// SessionSweep returns the lock key for the expired session sweeper,
// so only one instance sweeps at a time.
func (lockKeys) SessionSweep() string {
	return "lock:sweep:sessions"
}
