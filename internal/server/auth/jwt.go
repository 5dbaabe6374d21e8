// Package auth signs and parses the JWTs that carry a Principal.
//
// Access and refresh tokens are produced by two independent Signers, each with
// its own HMAC secret and TTL, so a leaked access secret cannot mint refresh tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/foodhub/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the JWT body: the Principal plus registered temporal claims.
// ID (jti) is random per token so two tokens minted in the same second differ.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"uid"`
	UserType string `json:"utype"`
	Email    string `json:"email,omitempty"`
}

type Signer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

type Option func(*Signer)

// WithClock overrides the time source used for both signing and validation.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) { s.now = now }
}

// WithIssuer sets and enforces the iss claim.
func WithIssuer(issuer string) Option {
	return func(s *Signer) { s.issuer = issuer }
}

func NewSigner(secret []byte, ttl time.Duration, opts ...Option) (*Signer, error) {
	if len(secret) == 0 {
		return nil, errors.New("signing secret is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("invalid token ttl %s", ttl)
	}

	s := &Signer{secret: secret, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Signer) TTL() time.Duration { return s.ttl }

// Sign mints a token for p and returns it together with its exp claim.
func (s *Signer) Sign(p models.Principal) (string, time.Time, error) {
	if err := p.Validate(); err != nil {
		return "", time.Time{}, err
	}

	now := s.now()
	// JWT NumericDate has second precision; keep the returned expiry identical to the claim.
	expiresAt := now.Add(s.ttl).Truncate(time.Second)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:   p.UserID,
		UserType: string(p.UserType),
		Email:    p.Email,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

// Parse verifies signature, algorithm and expiry, and returns the bare Principal
// with the token's exp claim. Errors wrap the jwt sentinel errors
// (jwt.ErrTokenExpired, jwt.ErrTokenSignatureInvalid, jwt.ErrTokenMalformed, ...).
func (s *Signer) Parse(tokenString string) (models.Principal, time.Time, error) {
	claims := &Claims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return models.Principal{}, time.Time{}, err
	}
	if !token.Valid {
		return models.Principal{}, time.Time{}, jwt.ErrTokenSignatureInvalid
	}

	p, err := models.ParsePrincipal(claims.UserID, claims.UserType, claims.Email)
	if err != nil {
		return models.Principal{}, time.Time{}, fmt.Errorf("%w: %v", jwt.ErrTokenInvalidClaims, err)
	}

	return p, claims.ExpiresAt.Time, nil
}
