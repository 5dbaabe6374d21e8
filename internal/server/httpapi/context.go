package httpapi

import (
	"context"

	"github.com/dmitrijs2005/foodhub/internal/server/models"
)

type principalContextKey struct{}

func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the Principal attached by Authenticate.
func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(models.Principal)
	return p, ok
}
