package driven

import (
	"context"
	"time"
)

// DistributedLock provides named leases across instances.
// The editing service holds one per document so a document has a single writer.
type DistributedLock interface {
	// Acquire attempts to acquire a named lock with the given TTL.
	// Returns true if the lock was successfully acquired, false if already held by another holder.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock.
	// Safe to call even if the lock is not held or has expired.
	Release(ctx context.Context, name string) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
