package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultGuardTTL = 2 * time.Minute

// RefreshGuard is a best-effort lock that keeps service instances from
// reloading the same selector at once.
// Key format: refresh:<network>|<viewer>
type RefreshGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRefreshGuard wraps client. The lock expires after ttl even when the
// holder never releases it.
func NewRefreshGuard(client *redis.Client, ttl time.Duration) *RefreshGuard {
	if ttl <= 0 {
		ttl = defaultGuardTTL
	}
	return &RefreshGuard{client: client, ttl: ttl}
}

// Acquire reports whether the caller now holds the lock for key.
func (g *RefreshGuard) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.key(key), time.Now().UTC().Format(time.RFC3339Nano), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("refresh guard acquire: %w", err)
	}
	return ok, nil
}

func (g *RefreshGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, g.key(key)).Err(); err != nil {
		return fmt.Errorf("refresh guard release: %w", err)
	}
	return nil
}

func (g *RefreshGuard) key(key string) string {
	return "refresh:" + key
}
