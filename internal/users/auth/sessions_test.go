// Copyright (c) 2026 Registra. All rights reserved.

package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvik/registra/internal/platform/constants"
	"github.com/solvik/registra/internal/platform/sec"
	"github.com/solvik/registra/internal/users/auth"
)

func newTestSessions(t *testing.T, repo *fakeRepository, cache *fakeVersionCache, secure bool) *auth.Sessions {
	t.Helper()
	return auth.NewSessions(newTestTokenService(t), repo, cache, auth.CookieSettings{Secure: secure})
}

// sessionCookie extracts the session cookie from a recorded response. A
// rotating login response sets the cookie twice (destroy, then the fresh
// value); the last one wins, matching how browsers apply Set-Cookie.
func sessionCookie(t *testing.T, recorder *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	var found *http.Cookie
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == constants.SessionCookieName {
			found = cookie
		}
	}
	if found == nil {
		t.Fatalf("no %s cookie in response", constants.SessionCookieName)
	}
	return found
}

// requestWithCookie builds a GET request carrying the given session cookie.
func requestWithCookie(cookie *http.Cookie) *http.Request {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.AddCookie(cookie)
	return request
}

/*
TestSessions_SaveAndCurrent round-trips a snapshot through the cookie and
checks every security-relevant cookie attribute.
*/
func TestSessions_SaveAndCurrent(t *testing.T) {
	sessions := newTestSessions(t, newFakeRepository(), newFakeVersionCache(), true)
	recorder := httptest.NewRecorder()

	snapshot := sec.Session{UserID: "u1", Username: "alice", Version: 3}
	require.NoError(t, sessions.Save(recorder, snapshot))

	cookie := sessionCookie(t, recorder)
	assert.True(t, cookie.HttpOnly, "session cookie must be unreadable from scripts")
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, constants.SessionCookiePath, cookie.Path)
	assert.Equal(t, 7*24*60*60, cookie.MaxAge)
	assert.NotEmpty(t, cookie.Value)

	restored := sessions.Current(requestWithCookie(cookie))
	assert.Equal(t, snapshot, restored)
}

/*
TestSessions_Current_Anonymous verifies absent and tampered cookies both
yield the anonymous session rather than an error.
*/
func TestSessions_Current_Anonymous(t *testing.T) {
	sessions := newTestSessions(t, newFakeRepository(), newFakeVersionCache(), false)

	t.Run("no_cookie", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.False(t, sessions.Current(request).IsAuthenticated())
	})

	t.Run("garbage_value", func(t *testing.T) {
		request := requestWithCookie(&http.Cookie{Name: constants.SessionCookieName, Value: "not-a-token"})
		assert.False(t, sessions.Current(request).IsAuthenticated())
	})

	t.Run("foreign_signature", func(t *testing.T) {
		foreign, err := sec.NewTokenService("a-completely-different-secret-0123456789", "registra.app")
		require.NoError(t, err)
		token, err := foreign.Issue(sec.Session{UserID: "u1", Version: 1}, constants.SessionMaxAge)
		require.NoError(t, err)

		request := requestWithCookie(&http.Cookie{Name: constants.SessionCookieName, Value: token})
		assert.False(t, sessions.Current(request).IsAuthenticated())
	})
}

/*
TestSessions_Destroy checks the expiry cookie matches the live cookie's
attributes so browsers reliably drop it.
*/
func TestSessions_Destroy(t *testing.T) {
	sessions := newTestSessions(t, newFakeRepository(), newFakeVersionCache(), true)
	recorder := httptest.NewRecorder()

	sessions.Destroy(recorder)

	cookie := sessionCookie(t, recorder)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, constants.SessionCookiePath, cookie.Path)
}

/*
TestSessions_Version_ReadThrough verifies cache misses fall back to the store
and repopulate the cache.
*/
func TestSessions_Version_ReadThrough(t *testing.T) {
	repo := newFakeRepository()
	repo.add(&auth.User{ID: "u1", Username: "alice", SessionVersion: 4})
	cache := newFakeVersionCache()
	sessions := newTestSessions(t, repo, cache, false)
	ctx := context.Background()

	version, err := sessions.Version(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 4, version)

	cached, found, err := cache.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, found, "miss should repopulate the cache")
	assert.EqualValues(t, 4, cached)
}

/*
TestSessions_InvalidateUser verifies the version bump writes through to the
cache and revokes previously issued sessions.
*/
func TestSessions_InvalidateUser(t *testing.T) {
	repo := newFakeRepository()
	repo.add(&auth.User{ID: "u1", Username: "alice", SessionVersion: 1})
	cache := newFakeVersionCache()
	sessions := newTestSessions(t, repo, cache, false)
	ctx := context.Background()

	// Establish a session stamped with the current version.
	recorder := httptest.NewRecorder()
	require.NoError(t, sessions.Save(recorder, sec.Session{UserID: "u1", Username: "alice", Version: 1}))
	cookie := sessionCookie(t, recorder)

	version, err := sessions.InvalidateUser(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, version)

	cached, found, err := cache.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, found, "invalidation must write through")
	assert.EqualValues(t, 2, cached)

	// The old cookie now fails its freshness check and is destroyed.
	checkRecorder := httptest.NewRecorder()
	session, err := sessions.Authenticate(checkRecorder, requestWithCookie(cookie))
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.Negative(t, sessionCookie(t, checkRecorder).MaxAge)
}

/*
TestSessions_InvalidateAll verifies the platform-wide kill switch bumps every
user and empties the cache.
*/
func TestSessions_InvalidateAll(t *testing.T) {
	repo := newFakeRepository()
	repo.add(&auth.User{ID: "u1", Username: "alice", SessionVersion: 1})
	repo.add(&auth.User{ID: "u2", Username: "bob", SessionVersion: 6})
	cache := newFakeVersionCache()
	sessions := newTestSessions(t, repo, cache, false)
	ctx := context.Background()

	// Warm the cache for one user.
	_, err := sessions.Version(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, sessions.InvalidateAll(ctx))

	assert.Zero(t, cache.len(), "kill switch must flush the cache")

	version, err := sessions.Version(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, version)

	version, err = sessions.Version(ctx, "u2")
	require.NoError(t, err)
	assert.EqualValues(t, 7, version)
}

/*
TestSessions_Authenticate covers the freshness decision matrix.
*/
func TestSessions_Authenticate(t *testing.T) {
	repo := newFakeRepository()
	repo.add(&auth.User{ID: "u1", Username: "alice", SessionVersion: 2})
	sessions := newTestSessions(t, repo, newFakeVersionCache(), false)

	issue := func(t *testing.T, snapshot sec.Session) *http.Cookie {
		t.Helper()
		recorder := httptest.NewRecorder()
		require.NoError(t, sessions.Save(recorder, snapshot))
		return sessionCookie(t, recorder)
	}

	t.Run("anonymous", func(t *testing.T) {
		session, err := sessions.Authenticate(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("fresh_session", func(t *testing.T) {
		cookie := issue(t, sec.Session{UserID: "u1", Username: "alice", Version: 2})
		session, err := sessions.Authenticate(httptest.NewRecorder(), requestWithCookie(cookie))
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, "alice", session.Username)
	})

	t.Run("stale_version_destroys_cookie", func(t *testing.T) {
		cookie := issue(t, sec.Session{UserID: "u1", Username: "alice", Version: 1})
		recorder := httptest.NewRecorder()
		session, err := sessions.Authenticate(recorder, requestWithCookie(cookie))
		require.NoError(t, err)
		assert.Nil(t, session)
		assert.Negative(t, sessionCookie(t, recorder).MaxAge)
	})

	t.Run("orphaned_user_destroys_cookie", func(t *testing.T) {
		cookie := issue(t, sec.Session{UserID: "ghost", Username: "ghost", Version: 1})
		recorder := httptest.NewRecorder()
		session, err := sessions.Authenticate(recorder, requestWithCookie(cookie))
		require.NoError(t, err)
		assert.Nil(t, session)
		assert.Negative(t, sessionCookie(t, recorder).MaxAge)
	})
}
