package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/foodhub/internal/common"
	"github.com/dmitrijs2005/foodhub/internal/logging"
	"github.com/dmitrijs2005/foodhub/internal/server/models"
	"github.com/dmitrijs2005/foodhub/internal/server/services"
)

type TokenService interface {
	Authenticator
	IssueGuest(ctx context.Context, deviceID string) (*services.TokenPair, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
}

type AccountService interface {
	Register(ctx context.Context, email, password string, userType models.UserType) (*models.Account, *services.TokenPair, error)
	Login(ctx context.Context, email, password string) (*models.Account, *services.TokenPair, error)
}

type MediaService interface {
	PresignUpload(ctx context.Context, p models.Principal, contentType string) (*services.MediaUpload, error)
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handlers struct {
	tokens   TokenService
	accounts AccountService
	media    MediaService
	db       Pinger
	cookies  CookieTransport
	logger   logging.Logger
}

func NewHandlers(tokens TokenService, accounts AccountService, media MediaService, db Pinger, cookies CookieTransport, logger logging.Logger) *Handlers {
	return &Handlers{
		tokens:   tokens,
		accounts: accounts,
		media:    media,
		db:       db,
		cookies:  cookies,
		logger:   logger,
	}
}

type principalResponse struct {
	UserID   string          `json:"userId"`
	UserType models.UserType `json:"userType"`
	Email    string          `json:"email,omitempty"`
}

func toPrincipalResponse(p models.Principal) principalResponse {
	return principalResponse{UserID: p.UserID, UserType: p.UserType, Email: p.Email}
}

type authResponse struct {
	User principalResponse `json:"user"`
	*services.TokenPair
}

// decodeJSON treats an empty body as an empty object.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxInspectedBody)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		h.logger.Warn(r.Context(), "readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ready": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	UserType string `json:"userType"`
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}
	if in.UserType == "" {
		in.UserType = string(models.UserTypeCustomer)
	}

	account, pair, err := h.accounts.Register(r.Context(), in.Email, in.Password, models.UserType(in.UserType))
	switch {
	case err == nil:
	case errors.Is(err, common.ErrorValidation):
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "email, password and a registrable userType are required")
		return
	case errors.Is(err, common.ErrorAlreadyExists):
		writeError(w, http.StatusConflict, codeConflict, "an account with this email already exists")
		return
	default:
		h.logger.Error(r.Context(), "registration failed", "error", err)
		writeInternal(w)
		return
	}

	h.logger.Info(r.Context(), "account registered", "user_id", account.ID, "user_type", account.UserType)
	h.cookies.SetAuthCookies(w, pair)
	writeJSON(w, http.StatusCreated, authResponse{User: toPrincipalResponse(pair.Principal), TokenPair: pair})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}

	_, pair, err := h.accounts.Login(r.Context(), in.Email, in.Password)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid email or password")
		return
	default:
		h.logger.Error(r.Context(), "login failed", "error", err)
		writeInternal(w)
		return
	}

	h.cookies.SetAuthCookies(w, pair)
	writeJSON(w, http.StatusOK, authResponse{User: toPrincipalResponse(pair.Principal), TokenPair: pair})
}

type guestRequest struct {
	DeviceID string `json:"deviceId"`
}

func (h *Handlers) Guest(w http.ResponseWriter, r *http.Request) {
	var in guestRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}

	pair, err := h.tokens.IssueGuest(r.Context(), in.DeviceID)
	if err != nil {
		h.logger.Error(r.Context(), "guest issuance failed", "error", err)
		writeInternal(w)
		return
	}

	h.cookies.SetAuthCookies(w, pair)
	writeJSON(w, http.StatusOK, authResponse{User: toPrincipalResponse(pair.Principal), TokenPair: pair})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh rotates the pair explicitly. The cookie wins over the body.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	token := cookieValue(r, common.RefreshTokenCookieName)
	if token == "" {
		var in refreshRequest
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
			return
		}
		token = in.RefreshToken
	}
	if token == "" {
		writeUnauthorized(w)
		return
	}

	pair, err := h.tokens.Rotate(r.Context(), token)
	if err != nil {
		if !errors.Is(err, common.ErrRefreshInvalidOrExpired) && !errors.Is(err, common.ErrRefreshNotRecognized) {
			h.logger.Error(r.Context(), "refresh failed", "error", err)
		}
		h.cookies.ClearAuthCookies(w)
		writeUnauthorized(w)
		return
	}

	h.cookies.SetAuthCookies(w, pair)
	writeJSON(w, http.StatusOK, authResponse{User: toPrincipalResponse(pair.Principal), TokenPair: pair})
}

// Logout revokes whatever tokens the client presents and clears the cookies.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	accessToken := accessTokenFromRequest(r)
	refreshToken := cookieValue(r, common.RefreshTokenCookieName)
	if refreshToken == "" {
		var in refreshRequest
		if err := decodeJSON(r, &in); err == nil {
			refreshToken = in.RefreshToken
		}
	}

	h.cookies.ClearAuthCookies(w)

	if accessToken == "" && refreshToken == "" {
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}

	if err := h.tokens.Logout(r.Context(), accessToken, refreshToken); err != nil {
		h.logger.Error(r.Context(), "logout failed", "error", err)
		writeInternal(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, toPrincipalResponse(p))
}

type uploadRequest struct {
	ContentType string `json:"contentType"`
}

func (h *Handlers) CreateUpload(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	var in uploadRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}

	upload, err := h.media.PresignUpload(r.Context(), p, in.ContentType)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrorForbidden):
		writeForbidden(w)
		return
	case errors.Is(err, common.ErrorValidation):
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "contentType must be an image or video type")
		return
	default:
		h.logger.Error(r.Context(), "presign failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "media storage unavailable")
		return
	}

	writeJSON(w, http.StatusCreated, upload)
}
