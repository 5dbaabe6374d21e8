// Package cache keeps a Redis copy of the access-token blacklist so the
// per-request revocation check rarely reaches Postgres.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/foodhub/internal/common"
	"github.com/redis/go-redis/v9"
)

const blacklistKeyPrefix = "foodhub:blacklist:"

// Blacklist stores token fingerprints with a TTL equal to the token's remaining lifetime.
// A miss is not authoritative; callers fall back to the durable store.
type Blacklist struct {
	rdb redis.UniversalClient
}

func NewBlacklist(rdb redis.UniversalClient) *Blacklist {
	return &Blacklist{rdb: rdb}
}

func key(token string) string {
	return blacklistKeyPrefix + common.TokenFingerprint(token)
}

// Add caches token as revoked until expiresAt. Already-expired tokens are skipped.
func (b *Blacklist) Add(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := b.rdb.Set(ctx, key(token), 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Contains reports whether token is cached as revoked.
func (b *Blacklist) Contains(ctx context.Context, token string) (bool, error) {
	err := b.rdb.Get(ctx, key(token)).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("redis get: %w", err)
	}
}

func (b *Blacklist) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}
