// Copyright (c) 2026 Registra. All rights reserved.

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/solvik/registra/internal/platform/apperr"
	"github.com/solvik/registra/internal/platform/ctxutil"
	"github.com/solvik/registra/internal/platform/sec"
	"github.com/solvik/registra/internal/platform/validate"
)

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Session extracts the authenticated session snapshot from the request context.

Returns nil if the request is not authenticated.
*/
func Session(request *http.Request) *sec.Session {
	return ctxutil.GetSession(request.Context())
}

/*
RequiredSession ensures the request is authenticated and returns the session.

Returns:
  - *sec.Session: The authenticated session snapshot
  - error: apperr.AuthenticationRequired if the request is not authenticated
*/
func RequiredSession(request *http.Request) (*sec.Session, error) {

	// Get the session snapshot
	session := ctxutil.GetSession(request.Context())

	// If the request is not authenticated, return an error
	if session == nil {
		return nil, apperr.AuthenticationRequired()
	}

	return session, nil
}

/*
RequiredUserID returns the User ID of the currently logged-in user.

Returns:
  - string: User UUID
  - error: apperr.AuthenticationRequired if not authenticated
*/
func RequiredUserID(request *http.Request) (string, error) {

	// Get the session snapshot
	session, err := RequiredSession(request)

	// If the request is not authenticated, return an error
	if err != nil {
		return "", err
	}

	return session.UserID, nil
}
