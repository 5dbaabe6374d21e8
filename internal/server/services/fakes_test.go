package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/foodhub/internal/common"
	"github.com/dmitrijs2005/foodhub/internal/dbx"
	"github.com/dmitrijs2005/foodhub/internal/server/models"
	"github.com/dmitrijs2005/foodhub/internal/server/repositories/invalidatedtokens"
	"github.com/dmitrijs2005/foodhub/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/foodhub/internal/server/repositories/users"
)

var errBoom = errors.New("boom")

// memStore backs every fake repository. It ignores transactions.
type memStore struct {
	mu          sync.Mutex
	refresh     map[string]models.RefreshToken
	invalidated map[string]time.Time
	accounts    map[string]models.Account

	refreshCreateErr error
	consumeErr       error
	existsErr        error
	blacklistErr     error
	existsCalls      int
}

func newMemStore() *memStore {
	return &memStore{
		refresh:     map[string]models.RefreshToken{},
		invalidated: map[string]time.Time{},
		accounts:    map[string]models.Account{},
	}
}

func (m *memStore) hasRefresh(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.refresh[token]
	return ok
}

type fakeRefreshRepo struct{ s *memStore }

func (f fakeRefreshRepo) Create(_ context.Context, t *models.RefreshToken) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.refreshCreateErr != nil {
		return f.s.refreshCreateErr
	}
	f.s.refresh[t.Token] = *t
	return nil
}

func (f fakeRefreshRepo) Consume(_ context.Context, token string, now time.Time) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.consumeErr != nil {
		return false, f.s.consumeErr
	}
	t, ok := f.s.refresh[token]
	if !ok || !t.ExpiresAt.After(now) {
		return false, nil
	}
	delete(f.s.refresh, token)
	return true, nil
}

func (f fakeRefreshRepo) Delete(_ context.Context, token string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	delete(f.s.refresh, token)
	return nil
}

func (f fakeRefreshRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var n int64
	for k, t := range f.s.refresh {
		if !t.ExpiresAt.After(now) {
			delete(f.s.refresh, k)
			n++
		}
	}
	return n, nil
}

type fakeInvalidatedRepo struct{ s *memStore }

func (f fakeInvalidatedRepo) Create(_ context.Context, token string, expiresAt time.Time) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.blacklistErr != nil {
		return f.s.blacklistErr
	}
	f.s.invalidated[token] = expiresAt
	return nil
}

func (f fakeInvalidatedRepo) Exists(_ context.Context, token string) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.existsCalls++
	if f.s.existsErr != nil {
		return false, f.s.existsErr
	}
	_, ok := f.s.invalidated[token]
	return ok, nil
}

func (f fakeInvalidatedRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var n int64
	for k, exp := range f.s.invalidated {
		if !exp.After(now) {
			delete(f.s.invalidated, k)
			n++
		}
	}
	return n, nil
}

type fakeUsersRepo struct{ s *memStore }

func (f fakeUsersRepo) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.accounts[a.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}
	out := *a
	out.ID = "acc-" + a.Email
	out.CreatedAt = time.Now()
	f.s.accounts[a.Email] = out
	return &out, nil
}

func (f fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.accounts[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &a, nil
}

type fakeRepoManager struct{ s *memStore }

func (m fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m fakeRepoManager) Users(dbx.DBTX) users.Repository           { return fakeUsersRepo{m.s} }
func (m fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return fakeRefreshRepo{m.s}
}
func (m fakeRepoManager) InvalidatedTokens(dbx.DBTX) invalidatedtokens.Repository {
	return fakeInvalidatedRepo{m.s}
}

type fakeCache struct {
	mu       sync.Mutex
	entries  map[string]time.Time
	addErr   error
	getErr   error
	getCalls int
}

func newFakeCache() *fakeCache { return &fakeCache{entries: map[string]time.Time{}} }

func (c *fakeCache) Add(_ context.Context, token string, expiresAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.addErr != nil {
		return c.addErr
	}
	c.entries[token] = expiresAt
	return nil
}

func (c *fakeCache) Contains(_ context.Context, token string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getCalls++
	if c.getErr != nil {
		return false, c.getErr
	}
	_, ok := c.entries[token]
	return ok, nil
}
