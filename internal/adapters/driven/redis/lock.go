package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/quill-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

const lockPrefix = "quill:lock:"

// Lock implements DistributedLock using Redis SET NX with TTL.
// Every acquisition stores a fresh token; Release deletes the key only while
// it still holds that token, so an expired lease taken over by another
// holder is never released by mistake.
type Lock struct {
	client redis.UniversalClient

	mu     sync.Mutex
	tokens map[string]string
}

// NewLock creates a new Redis-backed distributed lock.
func NewLock(client redis.UniversalClient) *Lock {
	return &Lock{
		client: client,
		tokens: make(map[string]string),
	}
}

// Acquire attempts to acquire a named lock with the given TTL.
// Returns false if the lock is already held, by this instance or another.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, lockPrefix+name, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return false, nil
	}

	l.mu.Lock()
	l.tokens[name] = token
	l.mu.Unlock()
	return true, nil
}

// releaseScript deletes the key only if it still carries the caller's token.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Release releases a named lock if this instance holds it.
// Safe to call even if the lock is not held or has expired.
func (l *Lock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	token, held := l.tokens[name]
	delete(l.tokens, name)
	l.mu.Unlock()

	if !held {
		return nil
	}

	_, err := releaseScript.Run(ctx, l.client, []string{lockPrefix + name}, token).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// Ping checks if the Redis backend is healthy.
func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
