// Copyright (c) 2026 Registra. All rights reserved.

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solvik/registra/internal/platform/apperr"
	"github.com/solvik/registra/internal/platform/dberr"
)

// # Postgres Repository

// PostgresRepository implements the Repository interface using pgx.
//
// The counter operations (failed attempts, session version) are single
// UPDATE ... RETURNING statements so the read-modify-write cycle happens
// inside the database and concurrent logins cannot lose an update.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL implementation of Repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

/*
Create persists a new user record into the users.account table.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: Database constraint violations or connectivity errors
*/
func (repository *PostgresRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (
			id, username, passwordhash, displayname, sessionversion, failedloginattempts, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.SessionVersion < SessionBaselineVersion {
		user.SessionVersion = SessionBaselineVersion
	}

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.DisplayName,
		user.SessionVersion,
		user.FailedLoginAttempts,
		user.CreatedAt,
		user.UpdatedAt,
	)

	return dberr.Wrap(err, "auth_create_user")
}

/*
FindByUsername retrieves a user record by their canonicalized username.

Description: Lookup used by the login path. The caller must not surface the
NotFound error to clients; the orchestrator maps it to the generic
credentials error.

Parameters:
  - context: context.Context
  - username: string (already canonicalized)

Returns:
  - *User: Hydrated account entity including lockout state
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresRepository) FindByUsername(context context.Context, username string) (*User, error) {
	const query = `
		SELECT id, username, passwordhash, displayname, sessionversion, failedloginattempts, lockeduntil, createdat, updatedat
		FROM users.account
		WHERE username = $1 AND deletedat IS NULL`

	user := &User{}
	err := repository.pool.QueryRow(context, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.DisplayName,
		&user.SessionVersion,
		&user.FailedLoginAttempts,
		&user.LockedUntil,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_auth_repo_find_by_username_failed: %w", err)
	}

	return user, nil
}

/*
FindByID retrieves a user record by their unique ID.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresRepository) FindByID(context context.Context, id string) (*User, error) {
	const query = `
		SELECT id, username, passwordhash, displayname, sessionversion, failedloginattempts, lockeduntil, createdat, updatedat
		FROM users.account
		WHERE id = $1 AND deletedat IS NULL`

	user := &User{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.DisplayName,
		&user.SessionVersion,
		&user.FailedLoginAttempts,
		&user.LockedUntil,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_auth_repo_find_by_id_failed: %w", err)
	}

	return user, nil
}

/*
IncrementFailedAttempts atomically records one failed login attempt.

Description: Bumps the failure counter and arms the lockout deadline for the
tier the new count crosses, all in one statement. The tier thresholds and
durations are bound as parameters so the Go constants remain the single
source of truth.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *LockoutStatus: Post-increment counter and deadline
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresRepository) IncrementFailedAttempts(context context.Context, userID string) (*LockoutStatus, error) {
	const query = `
		UPDATE users.account
		SET failedloginattempts = failedloginattempts + 1,
			lockeduntil = CASE
				WHEN failedloginattempts + 1 >= $2 THEN NOW() + $3::interval
				WHEN failedloginattempts + 1 >= $4 THEN NOW() + $5::interval
				WHEN failedloginattempts + 1 >= $6 THEN NOW() + $7::interval
				ELSE lockeduntil
			END,
			updatedat = NOW()
		WHERE id = $1 AND deletedat IS NULL
		RETURNING failedloginattempts, lockeduntil`

	status := &LockoutStatus{}
	err := repository.pool.QueryRow(context, query,
		userID,
		LockTierDay, LockDurationDay.String(),
		LockTierExtended, LockDurationExtended.String(),
		LockTierBrief, LockDurationBrief.String(),
	).Scan(&status.FailedAttempts, &status.LockedUntil)

	if err != nil {
		return nil, dberr.Wrap(err, "auth_increment_failed_attempts")
	}

	status.IsLocked = status.LockedUntil != nil && status.LockedUntil.After(time.Now())
	return status, nil
}

/*
ResetFailedAttempts clears the failure counter and lock deadline.

Description: Runs after a verified successful credential check. Clearing on
any other event would let an attacker reset the escalation ladder.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresRepository) ResetFailedAttempts(context context.Context, userID string) error {
	const query = `
		UPDATE users.account
		SET failedloginattempts = 0, lockeduntil = NULL, updatedat = NOW()
		WHERE id = $1 AND deletedat IS NULL`

	_, err := repository.pool.Exec(context, query, userID)
	return dberr.Wrap(err, "auth_reset_failed_attempts")
}

/*
SessionVersion reads the current session version for one user.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - int64: Current version, at least SessionBaselineVersion
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresRepository) SessionVersion(context context.Context, userID string) (int64, error) {
	const query = `
		SELECT COALESCE(sessionversion, $2)
		FROM users.account
		WHERE id = $1 AND deletedat IS NULL`

	var version int64
	err := repository.pool.QueryRow(context, query, userID, SessionBaselineVersion).Scan(&version)
	if err != nil {
		return 0, dberr.Wrap(err, "auth_session_version")
	}

	return version, nil
}

/*
IncrementSessionVersion atomically bumps one user's session version.

Description: Every cookie stamped with the previous version fails its next
freshness check, which logs that user out of all devices.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - int64: New version after the increment
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresRepository) IncrementSessionVersion(context context.Context, userID string) (int64, error) {
	const query = `
		UPDATE users.account
		SET sessionversion = COALESCE(sessionversion, $2) + 1, updatedat = NOW()
		WHERE id = $1 AND deletedat IS NULL
		RETURNING sessionversion`

	var version int64
	err := repository.pool.QueryRow(context, query, userID, SessionBaselineVersion).Scan(&version)
	if err != nil {
		return 0, dberr.Wrap(err, "auth_increment_session_version")
	}

	return version, nil
}

/*
IncrementAllSessionVersions bumps every user's session version.

Description: Platform-wide kill switch. One statement invalidates every
outstanding session; callers must also flush the version cache.

Parameters:
  - context: context.Context

Returns:
  - error: Execution errors
*/
func (repository *PostgresRepository) IncrementAllSessionVersions(context context.Context) error {
	const query = `
		UPDATE users.account
		SET sessionversion = COALESCE(sessionversion, $1) + 1, updatedat = NOW()
		WHERE deletedat IS NULL`

	_, err := repository.pool.Exec(context, query, SessionBaselineVersion)
	return dberr.Wrap(err, "auth_increment_all_session_versions")
}
