// Package invalidatedtokens declares the access-token blacklist: access tokens
// rejected before their natural expiry (logout).
package invalidatedtokens

import (
	"context"
	"time"
)

type Repository interface {
	// Create blacklists token until expiresAt. Re-inserting is a no-op.
	Create(ctx context.Context, token string, expiresAt time.Time) error

	// Exists reports whether token is blacklisted.
	Exists(ctx context.Context, token string) (bool, error)

	// DeleteExpired prunes rows whose expiry is at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
