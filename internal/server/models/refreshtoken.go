package models

import "time"

// RefreshToken is a row of refresh_tokens. A row exists only while Token
// may still be exchanged for a new pair.
type RefreshToken struct {
	Token     string
	UserID    string
	UserType  UserType
	ExpiresAt time.Time
}

// InvalidatedToken is a row of invalidated_tokens: an access token rejected
// before its natural expiry.
type InvalidatedToken struct {
	Token     string
	ExpiresAt time.Time
}
