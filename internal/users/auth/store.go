// Copyright (c) 2026 Registra. All rights reserved.

package auth

import (
	"context"
	"time"
)

// # Persistence Interfaces

// Repository is the persistent store for user records and their
// authentication-security state.
//
// Increment operations MUST be atomic at the storage layer: concurrent
// callers may never observe a lost update on FailedLoginAttempts or
// SessionVersion.
type Repository interface {
	// FindByID fetches a user by stable ID. Returns apperr.NotFound when
	// no row matches.
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByUsername fetches a user by canonicalized username. Returns
	// apperr.NotFound when no row matches; callers on the login path must
	// translate that into the generic credentials error.
	FindByUsername(ctx context.Context, username string) (*User, error)

	// Create inserts a new user record.
	Create(ctx context.Context, user *User) error

	// IncrementFailedAttempts atomically bumps the failure counter and, in
	// the same statement, arms the lockout deadline for whichever tier the
	// new count crosses. Returns the post-increment state.
	IncrementFailedAttempts(ctx context.Context, userID string) (*LockoutStatus, error)

	// ResetFailedAttempts clears the failure counter and any lock deadline.
	ResetFailedAttempts(ctx context.Context, userID string) error

	// SessionVersion reads the current version for one user. Records that
	// carry no version report SessionBaselineVersion.
	SessionVersion(ctx context.Context, userID string) (int64, error)

	// IncrementSessionVersion atomically bumps one user's version and
	// returns the new value. Every outstanding session for that user is
	// invalidated as a consequence.
	IncrementSessionVersion(ctx context.Context, userID string) (int64, error)

	// IncrementAllSessionVersions bumps every user's version in a single
	// statement. Used as a platform-wide kill switch after an incident.
	IncrementAllSessionVersions(ctx context.Context) error
}

// VersionCache is a read-through cache in front of Repository.SessionVersion.
// Invalidation paths write through so the cache never serves a version older
// than the store's within one deployment.
type VersionCache interface {
	// Get returns the cached version and whether the key was present.
	Get(ctx context.Context, userID string) (int64, bool, error)

	// Set stores the version with the given TTL.
	Set(ctx context.Context, userID string, version int64, ttl time.Duration) error

	// Delete drops one user's cached version.
	Delete(ctx context.Context, userID string) error

	// DeleteAll drops every cached version. Backs the platform-wide
	// invalidation path.
	DeleteAll(ctx context.Context) error
}
