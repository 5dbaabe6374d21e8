package common

const (
	// AccessTokenCookieName carries the access token for browser clients.
	AccessTokenCookieName = "accessToken"
	// RefreshTokenCookieName carries the refresh token. Never accepted from a header.
	RefreshTokenCookieName = "refreshToken"

	// AuthorizationHeaderName is read for "Bearer <token>" by non-cookie clients
	// (HTTP header and gRPC metadata alike).
	AuthorizationHeaderName = "authorization"
	BearerPrefix            = "Bearer "
)
