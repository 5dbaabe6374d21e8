// Package api is an HTTP client for the FoodHub auth API. It keeps the current
// token pair in memory, sends the access token as a bearer header and rotates
// the pair once when a protected call comes back 401.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/foodhub/internal/common"
)

type User struct {
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
	Email    string `json:"email,omitempty"`
}

// Session is the body of every successful register/login/guest/refresh call.
type Session struct {
	User                  User      `json:"user"`
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
}

type Upload struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Client struct {
	baseURL string
	http    *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SetTokens replaces the in-memory pair, e.g. when resuming a saved session.
func (c *Client) SetTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = access
	c.refreshToken = refresh
}

func (c *Client) Tokens() (access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

func (c *Client) LoggedIn() bool {
	access, refresh := c.Tokens()
	return access != "" || refresh != ""
}

func (c *Client) Register(ctx context.Context, email string, password []byte, userType string) (*Session, error) {
	body := map[string]string{"email": email, "password": string(password), "userType": userType}
	return c.session(ctx, "/api/v1/auth/register", body)
}

func (c *Client) Login(ctx context.Context, email string, password []byte) (*Session, error) {
	body := map[string]string{"email": email, "password": string(password)}
	return c.session(ctx, "/api/v1/auth/login", body)
}

// Guest starts a guest session. An empty deviceID lets the server pick one.
func (c *Client) Guest(ctx context.Context, deviceID string) (*Session, error) {
	return c.session(ctx, "/api/v1/auth/guest", map[string]string{"deviceId": deviceID})
}

// Refresh rotates the current pair. On rejection the local pair is dropped,
// since the server will not accept the old refresh token again.
func (c *Client) Refresh(ctx context.Context) (*Session, error) {
	_, refresh := c.Tokens()
	if refresh == "" {
		return nil, ErrNotLoggedIn
	}

	s, err := c.session(ctx, "/api/v1/auth/refresh", map[string]string{"refreshToken": refresh})
	if errors.Is(err, ErrUnauthorized) {
		c.SetTokens("", "")
	}
	return s, err
}

// Logout revokes the current pair on the server and forgets it locally.
func (c *Client) Logout(ctx context.Context) error {
	access, refresh := c.Tokens()
	if access == "" && refresh == "" {
		return nil
	}

	err := c.do(ctx, http.MethodPost, "/api/v1/auth/logout", access, map[string]string{"refreshToken": refresh}, nil)
	c.SetTokens("", "")
	return err
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.authorized(ctx, http.MethodGet, "/api/v1/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUpload asks the server for a presigned PUT URL for one media file.
func (c *Client) CreateUpload(ctx context.Context, contentType string) (*Upload, error) {
	var u Upload
	if err := c.authorized(ctx, http.MethodPost, "/api/v1/media/uploads", map[string]string{"contentType": contentType}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UploadToPresignedURL PUTs data to a presigned object storage URL. The
// content type must match the one the URL was signed for.
func (c *Client) UploadToPresignedURL(ctx context.Context, url, contentType string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}

func (c *Client) session(ctx context.Context, path string, body any) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, path, "", body, &s); err != nil {
		return nil, err
	}
	c.SetTokens(s.AccessToken, s.RefreshToken)
	return &s, nil
}

// authorized sends the access token and, on 401, rotates once and retries.
func (c *Client) authorized(ctx context.Context, method, path string, in, out any) error {
	access, refresh := c.Tokens()
	if access == "" && refresh == "" {
		return ErrNotLoggedIn
	}

	err := c.do(ctx, method, path, access, in, out)
	if !errors.Is(err, ErrUnauthorized) || refresh == "" {
		return err
	}

	s, err := c.Refresh(ctx)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, s.AccessToken, in, out)
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &Error{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
