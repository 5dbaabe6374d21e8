// Package refreshtokens declares the refresh store: the durable record of
// refresh tokens that are still eligible for rotation.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/foodhub/internal/server/models"
)

type Repository interface {
	// Create stores a record for a freshly issued refresh token.
	Create(ctx context.Context, token *models.RefreshToken) error

	// Consume atomically deletes the record if it exists and has not expired
	// at now. It reports false when nothing was deleted.
	Consume(ctx context.Context, token string, now time.Time) (bool, error)

	// Delete removes the record. Deleting an absent token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteExpired prunes records whose expiry is at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
