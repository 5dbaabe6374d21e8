package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/foodhub/internal/common"
	"github.com/dmitrijs2005/foodhub/internal/server/auth"
	"github.com/dmitrijs2005/foodhub/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccessSecret  = "access-secret-0123456789abcdef-0123"
	testRefreshSecret = "refresh-secret-0123456789abcdef-012"
)

func newSigners(t *testing.T, now func() time.Time) (*auth.Signer, *auth.Signer) {
	t.Helper()
	var opts []auth.Option
	if now != nil {
		opts = append(opts, auth.WithClock(now))
	}
	access, err := auth.NewSigner([]byte(testAccessSecret), 15*time.Minute, opts...)
	require.NoError(t, err)
	refresh, err := auth.NewSigner([]byte(testRefreshSecret), 24*time.Hour, opts...)
	require.NoError(t, err)
	return access, refresh
}

func newTestTokenService(t *testing.T, opts ...TokenServiceOption) (*TokenService, *memStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := newMemStore()
	access, refresh := newSigners(t, nil)
	return NewTokenService(db, fakeRepoManager{store}, access, refresh, opts...), store, mock
}

func customer(t *testing.T) models.Principal {
	t.Helper()
	p, err := models.NewCustomer("u1", "a@b.com")
	require.NoError(t, err)
	return p
}

func TestIssue_RoundTrip(t *testing.T) {
	s, store, mock := newTestTokenService(t)
	ctx := context.Background()
	p := customer(t)

	pair, err := s.Issue(ctx, p)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	got, err := s.Verify(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	rec, ok := store.refresh[pair.RefreshToken]
	require.True(t, ok, "refresh record must be stored")
	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, models.UserTypeCustomer, rec.UserType)
	assert.Equal(t, pair.RefreshTokenExpiresAt, rec.ExpiresAt)
	assert.True(t, rec.ExpiresAt.After(pair.AccessTokenExpiresAt))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIssue_SecretsAreIndependent(t *testing.T) {
	s, _, _ := newTestTokenService(t)
	ctx := context.Background()

	pair, err := s.Issue(ctx, customer(t))
	require.NoError(t, err)

	_, err = s.Verify(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, common.ErrTokenInvalid, "refresh token must not pass as access token")
}

func TestIssue_InvalidPrincipal(t *testing.T) {
	s, store, _ := newTestTokenService(t)

	_, err := s.Issue(context.Background(), models.Principal{UserType: models.UserTypeCustomer})
	require.ErrorIs(t, err, common.ErrTokenIssuanceFailed)
	assert.Empty(t, store.refresh)

	_, err = s.Issue(context.Background(), models.Principal{UserID: "u1", UserType: "admin"})
	require.ErrorIs(t, err, common.ErrTokenIssuanceFailed)
	assert.Empty(t, store.refresh)
}

func TestIssue_StoreFailure(t *testing.T) {
	s, store, _ := newTestTokenService(t)
	store.refreshCreateErr = errBoom

	pair, err := s.Issue(context.Background(), customer(t))
	require.ErrorIs(t, err, common.ErrTokenIssuanceFailed)
	assert.Nil(t, pair)
}

func TestRotate_OneShot(t *testing.T) {
	s, store, mock := newTestTokenService(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	first, err := s.Issue(ctx, customer(t))
	require.NoError(t, err)

	second, err := s.Rotate(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.False(t, store.hasRefresh(first.RefreshToken))
	assert.True(t, store.hasRefresh(second.RefreshToken))

	p, err := s.Verify(ctx, second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, customer(t), p)

	_, err = s.Rotate(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, common.ErrRefreshNotRecognized)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotate_InvalidToken(t *testing.T) {
	s, _, mock := newTestTokenService(t)
	ctx := context.Background()

	pair, err := s.Issue(ctx, customer(t))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "not-a-jwt",
		"access token": pair.AccessToken,
		"empty":        "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Rotate(ctx, token)
			assert.ErrorIs(t, err, common.ErrRefreshInvalidOrExpired)
		})
	}

	// parsing fails before any transaction is opened
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotate_Expired(t *testing.T) {
	s, store, _ := newTestTokenService(t)

	past := func() time.Time { return time.Now().Add(-48 * time.Hour) }
	_, oldRefresh := newSigners(t, past)
	token, exp, err := oldRefresh.Sign(customer(t))
	require.NoError(t, err)
	store.refresh[token] = models.RefreshToken{Token: token, UserID: "u1", UserType: models.UserTypeCustomer, ExpiresAt: exp}

	_, err = s.Rotate(context.Background(), token)
	assert.ErrorIs(t, err, common.ErrRefreshInvalidOrExpired)
}

func TestRotate_UnknownRecord(t *testing.T) {
	s, store, mock := newTestTokenService(t)
	ctx := context.Background()

	pair, err := s.Issue(ctx, customer(t))
	require.NoError(t, err)
	delete(store.refresh, pair.RefreshToken)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err = s.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, common.ErrRefreshNotRecognized)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotate_StoreErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("consume", func(t *testing.T) {
		s, store, mock := newTestTokenService(t)
		pair, err := s.Issue(ctx, customer(t))
		require.NoError(t, err)

		store.consumeErr = errBoom
		mock.ExpectBegin()
		mock.ExpectRollback()

		_, err = s.Rotate(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, errBoom)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert new record", func(t *testing.T) {
		s, store, mock := newTestTokenService(t)
		pair, err := s.Issue(ctx, customer(t))
		require.NoError(t, err)

		store.refreshCreateErr = errBoom
		mock.ExpectBegin()
		mock.ExpectRollback()

		_, err = s.Rotate(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, common.ErrTokenIssuanceFailed)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestVerify_BlacklistTakesPrecedence(t *testing.T) {
	s, store, _ := newTestTokenService(t)
	ctx := context.Background()

	pair, err := s.Issue(ctx, customer(t))
	require.NoError(t, err)

	store.invalidated[pair.AccessToken] = pair.AccessTokenExpiresAt

	_, err = s.Verify(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, common.ErrTokenRevoked)
}

func TestVerify_FailsClosed(t *testing.T) {
	s, store, _ := newTestTokenService(t)
	ctx := context.Background()

	pair, err := s.Issue(ctx, customer(t))
	require.NoError(t, err)

	store.existsErr = errBoom

	p, err := s.Verify(ctx, pair.AccessToken)
	require.ErrorIs(t, err, common.ErrTokenInvalid)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, models.Principal{}, p)
}

func TestVerify_Expired(t *testing.T) {
	s, _, _ := newTestTokenService(t)

	oldAccess, _ := newSigners(t, func() time.Time { return time.Now().Add(-time.Hour) })
	token, _, err := oldAccess.Sign(customer(t))
	require.NoError(t, err)

	_, err = s.Verify(context.Background(), token)
	assert.ErrorIs(t, err, common.ErrTokenInvalid)
}

func TestVerify_Cache(t *testing.T) {
	ctx := context.Background()

	t.Run("cache hit skips database", func(t *testing.T) {
		c := newFakeCache()
		s, store, _ := newTestTokenService(t, WithBlacklistCache(c))
		pair, err := s.Issue(ctx, customer(t))
		require.NoError(t, err)
		c.entries[pair.AccessToken] = pair.AccessTokenExpiresAt

		_, err = s.Verify(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, common.ErrTokenRevoked)
		assert.Zero(t, store.existsCalls)
	})

	t.Run("cache miss consults database", func(t *testing.T) {
		c := newFakeCache()
		s, store, _ := newTestTokenService(t, WithBlacklistCache(c))
		pair, err := s.Issue(ctx, customer(t))
		require.NoError(t, err)
		store.invalidated[pair.AccessToken] = pair.AccessTokenExpiresAt

		_, err = s.Verify(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, common.ErrTokenRevoked)
		assert.Equal(t, 1, store.existsCalls)
	})

	t.Run("cache error falls back to database", func(t *testing.T) {
		c := newFakeCache()
		c.getErr = errBoom
		s, _, _ := newTestTokenService(t, WithBlacklistCache(c))
		pair, err := s.Issue(ctx, customer(t))
		require.NoError(t, err)

		p, err := s.Verify(ctx, pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "u1", p.UserID)
	})
}

func TestLogout(t *testing.T) {
	c := newFakeCache()
	s, store, mock := newTestTokenService(t, WithBlacklistCache(c))
	ctx := context.Background()

	pair, err := s.Issue(ctx, customer(t))
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	require.NoError(t, s.Logout(ctx, pair.AccessToken, pair.RefreshToken))

	assert.Equal(t, pair.AccessTokenExpiresAt, store.invalidated[pair.AccessToken])
	assert.Equal(t, pair.AccessTokenExpiresAt, c.entries[pair.AccessToken])
	assert.False(t, store.hasRefresh(pair.RefreshToken))

	_, err = s.Verify(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, common.ErrTokenRevoked)

	_, err = s.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, common.ErrRefreshNotRecognized)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogout_UnparseableAccessToken(t *testing.T) {
	s, store, mock := newTestTokenService(t)
	ctx := context.Background()

	pair, err := s.Issue(ctx, customer(t))
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, s.Logout(ctx, "garbage", pair.RefreshToken))
	assert.Empty(t, store.invalidated)
	assert.False(t, store.hasRefresh(pair.RefreshToken))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogout_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("blacklist insert fails", func(t *testing.T) {
		s, store, mock := newTestTokenService(t)
		pair, err := s.Issue(ctx, customer(t))
		require.NoError(t, err)
		store.blacklistErr = errBoom

		mock.ExpectBegin()
		mock.ExpectRollback()

		err = s.Logout(ctx, pair.AccessToken, pair.RefreshToken)
		assert.ErrorIs(t, err, errBoom)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cache failure is not fatal", func(t *testing.T) {
		c := newFakeCache()
		c.addErr = errBoom
		s, store, mock := newTestTokenService(t, WithBlacklistCache(c))
		pair, err := s.Issue(ctx, customer(t))
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectCommit()

		require.NoError(t, s.Logout(ctx, pair.AccessToken, ""))
		assert.Contains(t, store.invalidated, pair.AccessToken)
		assert.True(t, store.hasRefresh(pair.RefreshToken))
	})
}

func TestIssueGuest(t *testing.T) {
	s, _, _ := newTestTokenService(t)
	ctx := context.Background()
	const device = "7f0c3b3e-3c1d-4b8a-9f51-0c6f1a2b3c4d"

	t.Run("uuid device id is reused", func(t *testing.T) {
		a, err := s.IssueGuest(ctx, device)
		require.NoError(t, err)
		b, err := s.IssueGuest(ctx, "7F0C3B3E-3C1D-4B8A-9F51-0C6F1A2B3C4D")
		require.NoError(t, err)

		pa, err := s.Verify(ctx, a.AccessToken)
		require.NoError(t, err)
		pb, err := s.Verify(ctx, b.AccessToken)
		require.NoError(t, err)

		assert.Equal(t, device, pa.UserID)
		assert.Equal(t, pa, pb)
		assert.True(t, pa.IsGuest())
		assert.Empty(t, pa.Email)
	})

	t.Run("other device ids get fresh identities", func(t *testing.T) {
		seen := map[string]bool{}
		for _, id := range []string{"", "", "phone-123", "not a uuid"} {
			pair, err := s.IssueGuest(ctx, id)
			require.NoError(t, err)
			p, err := s.Verify(ctx, pair.AccessToken)
			require.NoError(t, err)
			assert.NotEqual(t, id, p.UserID)
			assert.False(t, seen[p.UserID], "guest ids must not repeat")
			seen[p.UserID] = true
		}
	})
}

// login u1 -> rotate -> replay fails -> logout revokes the access token.
func TestTokenLifecycle(t *testing.T) {
	s, _, mock := newTestTokenService(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	a1r1, err := s.Issue(ctx, customer(t))
	require.NoError(t, err)

	a2r2, err := s.Rotate(ctx, a1r1.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, a1r1.AccessToken, a2r2.AccessToken)
	assert.NotEqual(t, a1r1.RefreshToken, a2r2.RefreshToken)

	_, err = s.Rotate(ctx, a1r1.RefreshToken)
	require.ErrorIs(t, err, common.ErrRefreshNotRecognized)

	require.NoError(t, s.Logout(ctx, a1r1.AccessToken, ""))

	_, err = s.Verify(ctx, a1r1.AccessToken)
	require.ErrorIs(t, err, common.ErrTokenRevoked)

	p, err := s.Verify(ctx, a2r2.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, customer(t), p)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPruneExpired(t *testing.T) {
	now := time.Now()
	s, store, _ := newTestTokenService(t, WithNow(func() time.Time { return now }))

	store.invalidated["old"] = now.Add(-time.Minute)
	store.invalidated["live"] = now.Add(time.Minute)
	store.refresh["old"] = models.RefreshToken{Token: "old", ExpiresAt: now}
	store.refresh["live"] = models.RefreshToken{Token: "live", ExpiresAt: now.Add(time.Hour)}

	inv, ref, err := s.PruneExpired(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, inv)
	assert.EqualValues(t, 1, ref)
	assert.Contains(t, store.invalidated, "live")
	assert.Contains(t, store.refresh, "live")
}

func TestRunJanitor_PrunesAtStartupAndStops(t *testing.T) {
	s, store, _ := newTestTokenService(t)
	store.invalidated["old"] = time.Now().Add(-time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunJanitor(ctx, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.invalidated) == 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestServiceTTLs(t *testing.T) {
	s, _, _ := newTestTokenService(t)
	assert.Equal(t, 15*time.Minute, s.AccessTTL())
	assert.Equal(t, 24*time.Hour, s.RefreshTTL())
}
