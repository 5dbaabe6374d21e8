package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/foodhub/internal/common"
	"github.com/dmitrijs2005/foodhub/internal/server/services"
)

// CookieTransport writes and clears the auth cookies. Set and clear use the
// same name, path and flags so browsers treat them as the same cookie.
type CookieTransport struct {
	Secure     bool
	SameSite   http.SameSite
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (c CookieTransport) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	}
}

func (c CookieTransport) SetAuthCookies(w http.ResponseWriter, pair *services.TokenPair) {
	http.SetCookie(w, c.cookie(common.AccessTokenCookieName, pair.AccessToken, int(c.AccessTTL.Seconds())))
	http.SetCookie(w, c.cookie(common.RefreshTokenCookieName, pair.RefreshToken, int(c.RefreshTTL.Seconds())))
}

// ClearAuthCookies expires both cookies immediately (Max-Age=0, epoch Expires).
func (c CookieTransport) ClearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{common.AccessTokenCookieName, common.RefreshTokenCookieName} {
		ck := c.cookie(name, "", -1)
		ck.Expires = time.Unix(0, 0)
		http.SetCookie(w, ck)
	}
}

func cookieValue(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}

// accessTokenFromRequest prefers the bearer header over the cookie.
func accessTokenFromRequest(r *http.Request) string {
	if token, ok := common.BearerToken(r.Header.Get("Authorization")); ok {
		return token
	}
	return cookieValue(r, common.AccessTokenCookieName)
}
