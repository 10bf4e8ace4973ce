// Package lock serializes lineage-scoped mutations across requests and,
// with Redis, across processes.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lifeplan/internal/domain"
)

// ErrLockLost is returned by a release func when the lock expired and was
// taken by another holder before release.
var ErrLockLost = errors.New("lock lost before release")

// Release frees an acquired lock
type Release func(ctx context.Context) error

// Locker acquires named exclusive locks
type Locker interface {
	// Acquire blocks until key is held, ctx is done, or the wait budget runs out.
	// A timeout is reported as a ConflictError.
	Acquire(ctx context.Context, key string) (Release, error)
}

// Options tune lock behavior
type Options struct {
	// TTL bounds how long a crashed holder can block others (Redis only)
	TTL time.Duration
	// Wait is the longest Acquire blocks before giving up
	Wait time.Duration
	// RetryInterval is the delay between Redis attempts
	RetryInterval time.Duration
}

// DefaultOptions returns the lock settings used when config leaves them unset
func DefaultOptions() Options {
	return Options{
		TTL:           30 * time.Second,
		Wait:          5 * time.Second,
		RetryInterval: 50 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TTL <= 0 {
		o.TTL = d.TTL
	}
	if o.Wait <= 0 {
		o.Wait = d.Wait
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = d.RetryInterval
	}
	return o
}

// LineageKey names the lock guarding a lineage
func LineageKey(lineageID string) string {
	return "lineage:" + lineageID
}

func busyError(key string) error {
	return &domain.ConflictError{
		Message:      fmt.Sprintf("%s is busy, retry shortly", key),
		ResourceType: "lock",
		ResourceID:   key,
	}
}
