// Copyright (c) 2026 Registra. All rights reserved.

/*
Package auth implements the authentication-security core of Registra.

It protects the login pathway and the lifetime of an authenticated session:
bounded brute-force resistance, escalating account lockout, fixation-proof
session rotation, remote invalidation via a per-user version counter, and
timing-side-channel mitigation on the credential-verification path.

# Architecture

  - Service: Orchestrates the login/logout control flow.
  - LockoutManager: Escalating, persisted lockout state.
  - Sessions: Cookie-bound session snapshots plus remote invalidation.
  - Repository: Abstracted interfaces for Postgres (users) and Redis
    (session-version cache).

Record CRUD, import parsing, and analytics live elsewhere; this package only
depends on the user identity record they share.
*/
package auth

import "time"

// # Domain Entities

// User represents a registered member of the Registra platform.
//
// The lockout fields and SessionVersion belong to this package: no other
// component may write them.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // Explicitly omitted from JSON for security.
	DisplayName  string `json:"display_name"`

	// SessionVersion is the single source of truth for session validity.
	// Sessions stamped with an older value are remotely invalidated.
	SessionVersion int64 `json:"-"`

	// FailedLoginAttempts only ever grows on failure; it is cleared
	// exclusively by a verified successful credential check.
	FailedLoginAttempts int `json:"-"`

	// LockedUntil is nil while the account is unlocked.
	LockedUntil *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LockoutStatus is the derived lockout view of a user record.
type LockoutStatus struct {
	IsLocked       bool
	LockedUntil    *time.Time
	FailedAttempts int
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldUsername = "username"
	FieldPassword = "password"
)
