package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/dmitrijs2005/foodhub/internal/common"
	"github.com/dmitrijs2005/foodhub/internal/logging"
	"github.com/dmitrijs2005/foodhub/internal/server/models"
	"github.com/dmitrijs2005/foodhub/internal/server/services"
)

const maxInspectedBody = 1 << 20

// Authenticator is the part of services.TokenService the middleware needs.
type Authenticator interface {
	Verify(ctx context.Context, accessToken string) (models.Principal, error)
	Rotate(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

// Authenticate admits requests carrying a valid access token. When the access
// token fails and a refresh cookie is present, the pair is rotated in place and
// the request continues with the new Principal. Every rejection is a bare 401.
func Authenticate(auth Authenticator, cookies CookieTransport, logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			accessToken := accessTokenFromRequest(r)
			if accessToken == "" {
				writeUnauthorized(w)
				return
			}

			p, err := auth.Verify(ctx, accessToken)
			if err != nil {
				refreshToken := cookieValue(r, common.RefreshTokenCookieName)
				if refreshToken == "" {
					logger.Debug(ctx, "access token rejected", "error", err)
					writeUnauthorized(w)
					return
				}

				pair, rerr := auth.Rotate(ctx, refreshToken)
				if rerr != nil {
					logger.Debug(ctx, "transparent refresh failed", "error", rerr)
					cookies.ClearAuthCookies(w)
					writeUnauthorized(w)
					return
				}

				cookies.SetAuthCookies(w, pair)
				p = pair.Principal
			}

			if err := checkDeclaredUserType(w, r, p); err != nil {
				var tooLarge *http.MaxBytesError
				switch {
				case errors.Is(err, common.ErrPrincipalMismatch):
					writeForbidden(w)
				case errors.As(err, &tooLarge):
					writeError(w, http.StatusRequestEntityTooLarge, codeTooLarge, "request body too large")
				default:
					writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, p)))
		})
	}
}

// checkDeclaredUserType returns common.ErrPrincipalMismatch when a JSON body
// declares a "userType" other than the authenticated one. JSON bodies are read
// in full, up to maxInspectedBody, and restored for downstream handlers; a body
// that cannot be read or parsed is an error, never a pass.
func checkDeclaredUserType(w http.ResponseWriter, r *http.Request, p models.Principal) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return nil
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxInspectedBody))
	_ = r.Body.Close()
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	var declared struct {
		UserType *string `json:"userType"`
	}
	if err := json.Unmarshal(body, &declared); err != nil {
		return fmt.Errorf("%w: %w", common.ErrorValidation, err)
	}
	if declared.UserType != nil && models.UserType(*declared.UserType) != p.UserType {
		return common.ErrPrincipalMismatch
	}
	return nil
}

// RequireRegistered rejects guests.
func RequireRegistered(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeUnauthorized(w)
			return
		}
		if p.IsGuest() {
			writeForbidden(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Logging logs method, path, status and duration of every request.
func Logging(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			logger.Info(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration", time.Since(start),
			)
		})
	}
}

func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
