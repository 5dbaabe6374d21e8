package httpapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/foodhub/internal/common"
	"github.com/dmitrijs2005/foodhub/internal/server/models"
	"github.com/dmitrijs2005/foodhub/internal/server/services"
)

// fakeTokens mimics TokenService with in-memory one-shot refresh tokens.
type fakeTokens struct {
	mu        sync.Mutex
	access    map[string]models.Principal
	refresh   map[string]models.Principal
	seq       int
	logoutErr error
	loggedOut [][2]string
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{access: map[string]models.Principal{}, refresh: map[string]models.Principal{}}
}

func (f *fakeTokens) mint(p models.Principal) *services.TokenPair {
	f.seq++
	pair := &services.TokenPair{
		AccessToken:           fmt.Sprintf("access-%d", f.seq),
		RefreshToken:          fmt.Sprintf("refresh-%d", f.seq),
		AccessTokenExpiresAt:  time.Now().Add(time.Hour),
		RefreshTokenExpiresAt: time.Now().Add(24 * time.Hour),
		Principal:             p,
	}
	f.access[pair.AccessToken] = p
	f.refresh[pair.RefreshToken] = p
	return pair
}

func (f *fakeTokens) Issue(p models.Principal) *services.TokenPair {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mint(p)
}

func (f *fakeTokens) Verify(_ context.Context, token string) (models.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.access[token]
	if !ok {
		return models.Principal{}, common.ErrTokenInvalid
	}
	return p, nil
}

func (f *fakeTokens) Rotate(_ context.Context, token string) (*services.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.refresh[token]
	if !ok {
		return nil, common.ErrRefreshNotRecognized
	}
	delete(f.refresh, token)
	return f.mint(p), nil
}

func (f *fakeTokens) IssueGuest(_ context.Context, deviceID string) (*services.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if deviceID == "" {
		deviceID = "generated-guest"
	}
	return f.mint(models.Principal{UserID: deviceID, UserType: models.UserTypeGuest}), nil
}

func (f *fakeTokens) Logout(_ context.Context, accessToken, refreshToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.logoutErr != nil {
		return f.logoutErr
	}
	f.loggedOut = append(f.loggedOut, [2]string{accessToken, refreshToken})
	delete(f.access, accessToken)
	delete(f.refresh, refreshToken)
	return nil
}

type fakeAccounts struct {
	tokens      *fakeTokens
	accounts    map[string]models.Account
	issuanceErr error
}

func (f *fakeAccounts) Register(_ context.Context, email, password string, userType models.UserType) (*models.Account, *services.TokenPair, error) {
	if email == "" || password == "" || userType == models.UserTypeGuest {
		return nil, nil, common.ErrorValidation
	}
	if _, ok := f.accounts[email]; ok {
		return nil, nil, common.ErrorAlreadyExists
	}
	if f.issuanceErr != nil {
		return nil, nil, f.issuanceErr
	}
	a := models.Account{ID: "acc-" + email, Email: email, PasswordHash: "hash:" + password, UserType: userType}
	f.accounts[email] = a
	return &a, f.tokens.Issue(models.Principal{UserID: a.ID, UserType: userType, Email: email}), nil
}

func (f *fakeAccounts) Login(_ context.Context, email, password string) (*models.Account, *services.TokenPair, error) {
	a, ok := f.accounts[email]
	if !ok || a.PasswordHash != "hash:"+password {
		return nil, nil, common.ErrorUnauthorized
	}
	if f.issuanceErr != nil {
		return nil, nil, f.issuanceErr
	}
	return &a, f.tokens.Issue(models.Principal{UserID: a.ID, UserType: a.UserType, Email: a.Email}), nil
}

type fakeMedia struct {
	err error
}

func (f *fakeMedia) PresignUpload(_ context.Context, p models.Principal, contentType string) (*services.MediaUpload, error) {
	if f.err != nil {
		return nil, f.err
	}
	if p.IsGuest() {
		return nil, common.ErrorForbidden
	}
	return &services.MediaUpload{Key: "media/" + p.UserID + "/x", URL: "http://minio/put"}, nil
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }
