// Copyright (c) 2026 Registra. All rights reserved.

package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvik/registra/internal/platform/apperr"
	"github.com/solvik/registra/internal/platform/constants"
	"github.com/solvik/registra/internal/platform/ratelimit"
	"github.com/solvik/registra/internal/users/auth"
)

// testVerifyFloor keeps the constant-time pad short in tests.
const testVerifyFloor = 5 * time.Millisecond

type serviceFixture struct {
	repo     *fakeRepository
	cache    *fakeVersionCache
	sessions *auth.Sessions
	service  *auth.Service
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	repo := newFakeRepository()
	repo.add(&auth.User{
		ID:             "u1",
		Username:       "alice",
		PasswordHash:   hashedTestPassword(t),
		DisplayName:    "Alice",
		SessionVersion: 1,
	})

	cache := newFakeVersionCache()
	sessions := auth.NewSessions(newTestTokenService(t), repo, cache, auth.CookieSettings{})
	limiter := ratelimit.New(ratelimit.DefaultWindow, ratelimit.DefaultMaxEntries)
	service := auth.NewService(repo, auth.NewLockoutManager(repo), sessions, limiter, testVerifyFloor, nil)

	return &serviceFixture{repo: repo, cache: cache, sessions: sessions, service: service}
}

func (fixture *serviceFixture) login(t *testing.T, username, password string) (*httptest.ResponseRecorder, *auth.User, error) {
	t.Helper()
	recorder := httptest.NewRecorder()
	user, err := fixture.service.Login(context.Background(), recorder, auth.LoginInput{
		Username: username,
		Password: password,
	})
	return recorder, user, err
}

/*
TestService_Login_Success checks the happy path end to end: credential
verification, counter resets, and a session cookie carrying the current
version.
*/
func TestService_Login_Success(t *testing.T) {
	fixture := newServiceFixture(t)

	recorder, user, err := fixture.login(t, "alice", testPassword)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "u1", user.ID)

	cookies := recorder.Result().Cookies()
	require.NotEmpty(t, cookies)
	issued := cookies[len(cookies)-1]
	assert.Equal(t, constants.SessionCookieName, issued.Name)
	assert.NotEmpty(t, issued.Value)

	session := fixture.sessions.Current(requestWithCookie(issued))
	assert.Equal(t, "u1", session.UserID)
	assert.Equal(t, "alice", session.Username)
	assert.EqualValues(t, 1, session.Version)
}

/*
TestService_Login_RotationOrder verifies the fixation defense: the response
destroys any pre-existing session cookie strictly before saving the new one.
*/
func TestService_Login_RotationOrder(t *testing.T) {
	fixture := newServiceFixture(t)

	recorder, _, err := fixture.login(t, "alice", testPassword)
	require.NoError(t, err)

	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Negative(t, cookies[0].MaxAge, "first Set-Cookie must expire the old session")
	assert.Empty(t, cookies[0].Value)
	assert.Positive(t, cookies[1].MaxAge, "second Set-Cookie must carry the new session")
	assert.NotEmpty(t, cookies[1].Value)
}

/*
TestService_Login_GenericFailures checks that missing input, unknown
usernames, and wrong passwords are indistinguishable in the response.
*/
func TestService_Login_GenericFailures(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{"empty_username", "", testPassword},
		{"blank_username", "   ", testPassword},
		{"empty_password", "alice", ""},
		{"unknown_username", "mallory", testPassword},
		{"wrong_password", "alice", "wrong password"},
	}

	var messages []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := newServiceFixture(t)
			_, user, err := fixture.login(t, tt.username, tt.password)
			assert.Nil(t, user)

			appError := apperr.As(err)
			require.NotNil(t, appError)
			assert.Equal(t, "INVALID_CREDENTIALS", appError.Code)
			assert.Equal(t, http.StatusUnauthorized, appError.HTTPStatus)
			messages = append(messages, appError.Message)
		})
	}

	for _, message := range messages[1:] {
		assert.Equal(t, messages[0], message, "every failure class must share one message")
	}
}

/*
TestService_Login_WrongPasswordCountsFailure verifies failed verifications
land on the persisted ladder while unknown usernames leave no record.
*/
func TestService_Login_WrongPasswordCountsFailure(t *testing.T) {
	fixture := newServiceFixture(t)

	_, _, err := fixture.login(t, "alice", "wrong password")
	require.Error(t, err)
	assert.Equal(t, 1, fixture.repo.get("u1").FailedLoginAttempts)

	_, _, err = fixture.login(t, "mallory", "wrong password")
	require.Error(t, err)
	assert.Equal(t, 1, fixture.repo.get("u1").FailedLoginAttempts)
}

/*
TestService_Login_LockoutAfterRepeatedFailures drives an account to the first
lockout tier and checks the locked response discloses the wait, not the cause.
*/
func TestService_Login_LockoutAfterRepeatedFailures(t *testing.T) {
	fixture := newServiceFixture(t)

	var err error
	for i := 0; i < 4; i++ {
		_, _, err = fixture.login(t, "alice", "wrong password")
		require.Equal(t, "INVALID_CREDENTIALS", apperr.As(err).Code)
	}

	// The fifth failure crosses the tier and reports the lock immediately.
	_, _, err = fixture.login(t, "alice", "wrong password")
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "ACCOUNT_LOCKED", appError.Code)
	assert.Equal(t, http.StatusForbidden, appError.HTTPStatus)

	// Even the correct password is rejected while the lock holds.
	_, _, err = fixture.login(t, "alice", testPassword)
	require.NotNil(t, apperr.As(err))
	assert.Equal(t, "ACCOUNT_LOCKED", apperr.As(err).Code)
}

/*
TestService_Login_UnknownUsernameThrottled checks the sliding-window throttle
applies to usernames that resolve to no account.
*/
func TestService_Login_UnknownUsernameThrottled(t *testing.T) {
	fixture := newServiceFixture(t)

	for i := 0; i < auth.LoginMaxAttempts; i++ {
		_, _, err := fixture.login(t, "mallory", "guess")
		require.Equal(t, "INVALID_CREDENTIALS", apperr.As(err).Code)
	}

	_, _, err := fixture.login(t, "mallory", "guess")
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "TOO_MANY_ATTEMPTS", appError.Code)
	assert.Equal(t, http.StatusTooManyRequests, appError.HTTPStatus)
}

/*
TestService_Login_SuccessResetsCounters verifies a successful login clears
the failure ladder and the throttle meter.
*/
func TestService_Login_SuccessResetsCounters(t *testing.T) {
	fixture := newServiceFixture(t)

	for i := 0; i < 3; i++ {
		_, _, err := fixture.login(t, "alice", "wrong password")
		require.Error(t, err)
	}
	require.Equal(t, 3, fixture.repo.get("u1").FailedLoginAttempts)

	_, _, err := fixture.login(t, "alice", testPassword)
	require.NoError(t, err)

	user := fixture.repo.get("u1")
	assert.Zero(t, user.FailedLoginAttempts)
	assert.Nil(t, user.LockedUntil)
}

/*
TestService_Login_CanonicalizesUsername verifies case and width variants of
the username resolve to the same account.
*/
func TestService_Login_CanonicalizesUsername(t *testing.T) {
	fixture := newServiceFixture(t)

	for _, submitted := range []string{"  alice  ", "ALICE", "Alice"} {
		_, user, err := fixture.login(t, submitted, testPassword)
		require.NoError(t, err, "submitted form %q", submitted)
		assert.Equal(t, "u1", user.ID)
	}
}

/*
TestService_Login_StampsCurrentVersion verifies sessions issued after an
invalidation carry the bumped version.
*/
func TestService_Login_StampsCurrentVersion(t *testing.T) {
	fixture := newServiceFixture(t)

	_, err := fixture.sessions.InvalidateUser(context.Background(), "u1")
	require.NoError(t, err)

	recorder, _, err := fixture.login(t, "alice", testPassword)
	require.NoError(t, err)

	cookies := recorder.Result().Cookies()
	session := fixture.sessions.Current(requestWithCookie(cookies[len(cookies)-1]))
	assert.EqualValues(t, 2, session.Version)
}

/*
TestService_Logout_Idempotent verifies logout always expires the cookie,
session or not.
*/
func TestService_Logout_Idempotent(t *testing.T) {
	fixture := newServiceFixture(t)

	for i := 0; i < 2; i++ {
		recorder := httptest.NewRecorder()
		fixture.service.Logout(recorder)
		cookie := sessionCookie(t, recorder)
		assert.Empty(t, cookie.Value)
		assert.Negative(t, cookie.MaxAge)
	}
}

/*
TestService_Register covers provisioning validation and canonical storage.
*/
func TestService_Register(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	t.Run("creates_canonical_user", func(t *testing.T) {
		user, err := fixture.service.Register(ctx, auth.RegisterInput{
			Username:    "  Bob  ",
			Password:    "a long enough password",
			DisplayName: "Bob",
		})
		require.NoError(t, err)
		assert.Equal(t, "bob", user.Username)
		assert.NotEmpty(t, user.ID)
		assert.NotEqual(t, "a long enough password", user.PasswordHash)
		assert.EqualValues(t, auth.SessionBaselineVersion, user.SessionVersion)
	})

	t.Run("rejects_duplicate_username", func(t *testing.T) {
		_, err := fixture.service.Register(ctx, auth.RegisterInput{
			Username: "ALICE",
			Password: "a long enough password",
		})
		require.NotNil(t, apperr.As(err))
		assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
	})

	t.Run("rejects_short_password", func(t *testing.T) {
		_, err := fixture.service.Register(ctx, auth.RegisterInput{
			Username: "carol",
			Password: "short",
		})
		require.NotNil(t, apperr.As(err))
	})
}
