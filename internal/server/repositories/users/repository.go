// Package users stores customer and restaurant-owner accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/foodhub/internal/server/models"
)

type Repository interface {
	// Create inserts the account and fills ID and CreatedAt.
	// A duplicate email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)

	// GetByEmail returns common.ErrorNotFound when there is no such account.
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
}
