// Copyright (c) 2026 Registra. All rights reserved.

// Package sec provides cryptographic primitives and session token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, Token Signing, the
// constant-time executor) from the domain logic. It acts as an Infrastructure
// service injected into the Application layer.
package sec

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the immutable identity snapshot materialized from a verified
// session token. The zero value represents an anonymous request.
type Session struct {
	UserID   string
	Username string

	// Version is the session-version counter stamped at login time.
	// The session is only valid while it matches the user record's current
	// counter; a mismatch means the session was remotely invalidated.
	Version int64
}

// IsAuthenticated reports whether the session carries a user identity.
func (s Session) IsAuthenticated() bool {
	return s.UserID != ""
}

// sessionClaims is the payload embedded inside a session token.
//
// Custom application claims are abbreviated to keep the token payload small.
type sessionClaims struct {
	jwt.RegisteredClaims

	UserID   string `json:"uid"`
	Username string `json:"unm"`
	Version  int64  `json:"sv"`
}

// TokenService signs and verifies session tokens using HS256 with the
// process-wide session secret.
type TokenService struct {
	secret []byte
	issuer string
}

// NewTokenService creates a new TokenService.
//
// The secret must already have passed config validation; the length guard
// here is a final invariant check, not the primary gate.
func NewTokenService(secret, issuer string) (*TokenService, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("sec: session secret shorter than 32 characters")
	}

	return &TokenService{
		secret: []byte(secret),
		issuer: issuer,
	}, nil
}

// Issue creates a signed session token for the given session snapshot.
func (service *TokenService) Issue(session Session, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		UserID:   session.UserID,
		Username: session.Username,
		Version:  session.Version,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign session token: %w", err)
	}

	return signedToken, nil
}

// Verify checks the signature and validity of a session token string and
// materializes the [Session] snapshot it carries.
func (service *TokenService) Verify(tokenString string) (Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.secret, nil
	}, jwt.WithIssuer(service.issuer))

	if err != nil {
		return Session{}, fmt.Errorf("sec: invalid session token: %w", err)
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return Session{}, fmt.Errorf("sec: invalid session token claims")
	}

	return Session{
		UserID:   claims.UserID,
		Username: claims.Username,
		Version:  claims.Version,
	}, nil
}
