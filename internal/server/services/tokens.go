// Package services contains server-side business logic. This file implements
// TokenService: issuing, verifying, rotating and revoking token pairs.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/foodhub/internal/common"
	"github.com/dmitrijs2005/foodhub/internal/dbx"
	"github.com/dmitrijs2005/foodhub/internal/logging"
	"github.com/dmitrijs2005/foodhub/internal/server/auth"
	"github.com/dmitrijs2005/foodhub/internal/server/models"
	"github.com/dmitrijs2005/foodhub/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`

	// Principal is the identity both tokens carry.
	Principal models.Principal `json:"-"`
}

// BlacklistCache is the fast, non-authoritative copy of the access-token blacklist.
type BlacklistCache interface {
	Add(ctx context.Context, token string, expiresAt time.Time) error
	Contains(ctx context.Context, token string) (bool, error)
}

type TokenService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	access      *auth.Signer
	refresh     *auth.Signer
	cache       BlacklistCache
	logger      logging.Logger
	now         func() time.Time
}

type TokenServiceOption func(*TokenService)

// WithBlacklistCache puts a cache in front of the durable blacklist.
func WithBlacklistCache(c BlacklistCache) TokenServiceOption {
	return func(s *TokenService) { s.cache = c }
}

func WithTokenLogger(l logging.Logger) TokenServiceOption {
	return func(s *TokenService) { s.logger = l }
}

// WithNow overrides the clock used for store comparisons. Signers keep their own clock.
func WithNow(now func() time.Time) TokenServiceOption {
	return func(s *TokenService) { s.now = now }
}

func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, access, refresh *auth.Signer, opts ...TokenServiceOption) *TokenService {
	s := &TokenService{
		db:          db,
		repomanager: m,
		access:      access,
		refresh:     refresh,
		logger:      logging.Nop{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TokenService) AccessTTL() time.Duration  { return s.access.TTL() }
func (s *TokenService) RefreshTTL() time.Duration { return s.refresh.TTL() }

// Issue mints a token pair for p and records the refresh token.
// Any failure is reported as common.ErrTokenIssuanceFailed.
func (s *TokenService) Issue(ctx context.Context, p models.Principal) (*TokenPair, error) {
	return s.issue(ctx, s.db, p)
}

func (s *TokenService) issue(ctx context.Context, db dbx.DBTX, p models.Principal) (*TokenPair, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrTokenIssuanceFailed, err)
	}

	accessToken, accessExp, err := s.access.Sign(p)
	if err != nil {
		return nil, fmt.Errorf("%w: sign access token: %v", common.ErrTokenIssuanceFailed, err)
	}

	refreshToken, refreshExp, err := s.refresh.Sign(p)
	if err != nil {
		return nil, fmt.Errorf("%w: sign refresh token: %v", common.ErrTokenIssuanceFailed, err)
	}

	record := &models.RefreshToken{
		Token:     refreshToken,
		UserID:    p.UserID,
		UserType:  p.UserType,
		ExpiresAt: refreshExp,
	}
	if err := s.repomanager.RefreshTokens(db).Create(ctx, record); err != nil {
		return nil, fmt.Errorf("%w: store refresh token: %v", common.ErrTokenIssuanceFailed, err)
	}

	return &TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenExpiresAt:  accessExp,
		RefreshTokenExpiresAt: refreshExp,
		Principal:             p,
	}, nil
}

// IssueGuest issues a guest pair. A UUID-shaped deviceID is reused as the
// user id so the same device keeps its identity; anything else gets a fresh id.
func (s *TokenService) IssueGuest(ctx context.Context, deviceID string) (*TokenPair, error) {
	id := uuid.NewString()
	if u, err := uuid.Parse(deviceID); err == nil {
		id = u.String()
	}

	p, err := models.NewGuest(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrTokenIssuanceFailed, err)
	}
	return s.Issue(ctx, p)
}

// Verify checks the blacklist, then signature and expiry, and returns the
// embedded Principal. Blacklist lookup errors fail closed.
func (s *TokenService) Verify(ctx context.Context, accessToken string) (models.Principal, error) {
	revoked, err := s.isRevoked(ctx, accessToken)
	if err != nil {
		return models.Principal{}, fmt.Errorf("%w: blacklist lookup: %w", common.ErrTokenInvalid, err)
	}
	if revoked {
		return models.Principal{}, common.ErrTokenRevoked
	}

	p, _, err := s.access.Parse(accessToken)
	if err != nil {
		return models.Principal{}, fmt.Errorf("%w: %w", common.ErrTokenInvalid, err)
	}
	return p, nil
}

func (s *TokenService) isRevoked(ctx context.Context, token string) (bool, error) {
	if s.cache != nil {
		found, err := s.cache.Contains(ctx, token)
		if err == nil && found {
			return true, nil
		}
		if err != nil {
			s.logger.Warn(ctx, "blacklist cache lookup failed, using database", "error", err)
		}
	}

	return s.repomanager.InvalidatedTokens(s.db).Exists(ctx, token)
}

// Rotate exchanges a refresh token for a new pair. The old record is consumed
// and the new one stored in a single transaction, so a refresh token is
// accepted at most once even under concurrent use.
func (s *TokenService) Rotate(ctx context.Context, refreshToken string) (*TokenPair, error) {
	p, _, err := s.refresh.Parse(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrRefreshInvalidOrExpired, err)
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		consumed, err := s.repomanager.RefreshTokens(tx).Consume(ctx, refreshToken, s.now())
		if err != nil {
			return fmt.Errorf("consume refresh token: %w", err)
		}
		if !consumed {
			return common.ErrRefreshNotRecognized
		}

		pair, err = s.issue(ctx, tx, p)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "refresh token rotated", "user_id", p.UserID, "user_type", p.UserType)
	return pair, nil
}

// Logout blacklists accessToken until its own expiry and forgets refreshToken.
// Either may be empty. An access token that no longer parses needs no blacklisting.
func (s *TokenService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	var accessExp time.Time
	if accessToken != "" {
		if _, exp, err := s.access.Parse(accessToken); err == nil {
			accessExp = exp
		}
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if !accessExp.IsZero() {
			if err := s.repomanager.InvalidatedTokens(tx).Create(ctx, accessToken, accessExp); err != nil {
				return fmt.Errorf("blacklist access token: %w", err)
			}
		}
		if refreshToken != "" {
			if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
				return fmt.Errorf("delete refresh token: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.cache != nil && !accessExp.IsZero() {
		if err := s.cache.Add(ctx, accessToken, accessExp); err != nil {
			s.logger.Warn(ctx, "blacklist cache add failed", "error", err)
		}
	}
	return nil
}

// PruneExpired removes blacklist and refresh records past their expiry.
func (s *TokenService) PruneExpired(ctx context.Context) (invalidated, refresh int64, err error) {
	now := s.now()

	invalidated, err = s.repomanager.InvalidatedTokens(s.db).DeleteExpired(ctx, now)
	if err != nil {
		return 0, 0, fmt.Errorf("prune invalidated tokens: %w", err)
	}

	refresh, err = s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, now)
	if err != nil {
		return invalidated, 0, fmt.Errorf("prune refresh tokens: %w", err)
	}

	return invalidated, refresh, nil
}

// RunJanitor calls PruneExpired immediately and then every interval until ctx is done.
func (s *TokenService) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		inv, ref, err := s.PruneExpired(ctx)
		switch {
		case err != nil && !errors.Is(err, context.Canceled):
			s.logger.Error(ctx, "token pruning failed", "error", err)
		case err == nil && inv+ref > 0:
			s.logger.Info(ctx, "expired tokens pruned", "invalidated", inv, "refresh", ref)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
