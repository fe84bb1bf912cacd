// Copyright (c) 2026 Registra. All rights reserved.

package middleware

import (
	"net/http"

	"github.com/solvik/registra/internal/platform/apperr"
	"github.com/solvik/registra/internal/platform/ctxutil"
	"github.com/solvik/registra/internal/platform/respond"
	"github.com/solvik/registra/internal/platform/sec"
)

// SessionAuthenticator resolves the request's session cookie into a verified
// identity snapshot.
//
// # Why an interface?
//
// Defining SessionAuthenticator here decouples the middleware from the auth
// service implementation, allowing us to easily inject stubs during unit
// testing. Implementations are expected to clear the cookie themselves when
// they encounter a remotely invalidated session.
type SessionAuthenticator interface {
	// Authenticate returns the validated session, or nil when the request is
	// anonymous or carries a token that no longer validates. It only returns
	// an error on infrastructure failure (e.g. the user store is down).
	Authenticate(writer http.ResponseWriter, request *http.Request) (*sec.Session, error)
}

// Authenticate materializes the session cookie into the request context.
//
// # Flow
//  1. Resolve the session cookie via [SessionAuthenticator].
//  2. If absent or invalid, the request proceeds as anonymous.
//  3. Otherwise inject the [*sec.Session] snapshot for downstream use.
func Authenticate(authenticator SessionAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			session, err := authenticator.Authenticate(writer, request)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			if session == nil {
				next.ServeHTTP(writer, request)
				return
			}

			ctx := ctxutil.WithSession(request.Context(), session)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		session := ctxutil.GetSession(request.Context())
		if session == nil {
			respond.Error(writer, request, apperr.AuthenticationRequired())
			return
		}
		next.ServeHTTP(writer, request)
	})
}
