// Copyright (c) 2026 Registra. All rights reserved.

package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/solvik/registra/internal/platform/apperr"
	"github.com/solvik/registra/internal/platform/constants"
	"github.com/solvik/registra/internal/platform/sec"
)

// # Session Management

// CookieSettings carries the deployment-dependent cookie attributes. The
// security-critical attributes (HttpOnly, SameSite=Strict, Path) are not
// configurable.
type CookieSettings struct {
	// Secure marks the cookie HTTPS-only. Enabled in production, relaxed in
	// development so plain-HTTP localhost keeps working.
	Secure bool

	// Domain optionally widens the cookie scope. Empty means host-only.
	Domain string
}

// Sessions manages the lifecycle of cookie-bound sessions: issuing and
// reading the signed token cookie, and checking each session's version
// against the user record so sessions can be revoked remotely.
type Sessions struct {
	tokens   *sec.TokenService
	users    Repository
	versions VersionCache
	cookie   CookieSettings
}

// NewSessions creates a Sessions manager.
func NewSessions(tokens *sec.TokenService, users Repository, versions VersionCache, cookie CookieSettings) *Sessions {
	return &Sessions{
		tokens:   tokens,
		users:    users,
		versions: versions,
		cookie:   cookie,
	}
}

/*
Current materializes the session snapshot carried by the request cookie.

Description: Absent, malformed, expired, or tampered cookies all yield the
anonymous session. Cookie problems are a routine condition, not an error.

Parameters:
  - request: *http.Request

Returns:
  - sec.Session: Verified snapshot, or the zero value for anonymous requests
*/
func (sessions *Sessions) Current(request *http.Request) sec.Session {
	cookie, err := request.Cookie(constants.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return sec.Session{}
	}

	session, err := sessions.tokens.Verify(cookie.Value)
	if err != nil {
		return sec.Session{}
	}

	return session
}

/*
Save issues a signed token for the snapshot and sets the session cookie.

Description: The cookie is HTTP-only and SameSite=Strict always; Secure
follows the deployment settings. Lifetime is constants.SessionMaxAge.

Parameters:
  - writer: http.ResponseWriter
  - session: sec.Session (must be authenticated)

Returns:
  - error: Token signing failures
*/
func (sessions *Sessions) Save(writer http.ResponseWriter, session sec.Session) error {
	token, err := sessions.tokens.Issue(session, constants.SessionMaxAge)
	if err != nil {
		return apperr.Internal(err)
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    token,
		Path:     constants.SessionCookiePath,
		Domain:   sessions.cookie.Domain,
		MaxAge:   int(constants.SessionMaxAge / time.Second),
		HttpOnly: true,
		Secure:   sessions.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})

	return nil
}

/*
Destroy clears the session cookie on the client.

Description: Idempotent; destroying an absent session is a no-op on the
server side. The expired cookie carries the same attributes as a live one so
browsers reliably match and drop it.

Parameters:
  - writer: http.ResponseWriter
*/
func (sessions *Sessions) Destroy(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    "",
		Path:     constants.SessionCookiePath,
		Domain:   sessions.cookie.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sessions.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

/*
Version reports the current session version for a user.

Description: Read-through: the Redis cache is consulted first, and misses
fall back to the persistent store and repopulate the cache. Invalidation
paths write through, so within one deployment the cache never lags the store.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - int64: Current version, at least SessionBaselineVersion
  - error: Storage errors
*/
func (sessions *Sessions) Version(context context.Context, userID string) (int64, error) {
	if version, found, err := sessions.versions.Get(context, userID); err == nil && found {
		return version, nil
	}

	version, err := sessions.users.SessionVersion(context, userID)
	if err != nil {
		return 0, err
	}

	// Best-effort repopulation; a cache write failure must not fail the
	// request.
	_ = sessions.versions.Set(context, userID, version, VersionCacheTTL)

	return version, nil
}

/*
InvalidateUser revokes every outstanding session for one user.

Description: Bumps the persisted version counter and writes the new value
through to the cache. Cookies stamped with the old version fail their next
freshness check on every device.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - int64: New version
  - error: Storage errors
*/
func (sessions *Sessions) InvalidateUser(context context.Context, userID string) (int64, error) {
	version, err := sessions.users.IncrementSessionVersion(context, userID)
	if err != nil {
		return 0, err
	}

	if err := sessions.versions.Set(context, userID, version, VersionCacheTTL); err != nil {
		// The store already advanced; a stale cache entry would keep old
		// sessions alive, so drop it instead.
		_ = sessions.versions.Delete(context, userID)
	}

	return version, nil
}

/*
InvalidateAll revokes every outstanding session on the platform.

Description: Incident kill switch. Bumps every user's version in one
statement, then flushes the version cache so no stale entry survives.

Parameters:
  - context: context.Context

Returns:
  - error: Storage errors
*/
func (sessions *Sessions) InvalidateAll(context context.Context) error {
	if err := sessions.users.IncrementAllSessionVersions(context); err != nil {
		return err
	}
	return sessions.versions.DeleteAll(context)
}

/*
Authenticate resolves the request's session and checks its freshness.

Description: Implements the middleware authenticator contract. Anonymous
requests return (nil, nil). A session whose version no longer matches the
user record was remotely invalidated: its cookie is destroyed and the request
continues anonymously.

Parameters:
  - writer: http.ResponseWriter
  - request: *http.Request

Returns:
  - *sec.Session: Fresh authenticated snapshot, or nil for anonymous
  - error: Storage failures while checking freshness
*/
func (sessions *Sessions) Authenticate(writer http.ResponseWriter, request *http.Request) (*sec.Session, error) {
	session := sessions.Current(request)
	if !session.IsAuthenticated() {
		return nil, nil
	}

	currentVersion, err := sessions.Version(request.Context(), session.UserID)
	if err != nil {
		if apperr.IsAppError(err) && apperr.As(err).HTTPStatus == http.StatusNotFound {
			// The user record is gone; the session is orphaned.
			sessions.Destroy(writer)
			return nil, nil
		}
		return nil, err
	}

	if sessionVersion(session) != currentVersion {
		sessions.Destroy(writer)
		return nil, nil
	}

	return &session, nil
}

// sessionVersion normalizes tokens minted before versioning existed to the
// baseline so they compare against fresh user records correctly.
func sessionVersion(session sec.Session) int64 {
	if session.Version < SessionBaselineVersion {
		return SessionBaselineVersion
	}
	return session.Version
}
