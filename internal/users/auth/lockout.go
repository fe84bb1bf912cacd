// Copyright (c) 2026 Registra. All rights reserved.

package auth

import (
	"context"
	"time"
)

// # Account Lockout

// LockoutDurationFor returns the lock duration the given failure count
// triggers, or zero when the count is below every tier. Tiers are evaluated
// from the highest down, so counts past a boundary keep re-arming the full
// duration of that tier on each further failure.
func LockoutDurationFor(failedAttempts int) time.Duration {
	switch {
	case failedAttempts >= LockTierDay:
		return LockDurationDay
	case failedAttempts >= LockTierExtended:
		return LockDurationExtended
	case failedAttempts >= LockTierBrief:
		return LockDurationBrief
	default:
		return 0
	}
}

// LockoutManager maintains the escalating, persisted lockout state of user
// accounts. All state lives in the Repository; the manager holds no memory of
// its own, so lockouts survive restarts and apply across replicas.
type LockoutManager struct {
	users Repository
}

// NewLockoutManager creates a LockoutManager over the given repository.
func NewLockoutManager(users Repository) *LockoutManager {
	return &LockoutManager{users: users}
}

/*
Status reports the current lockout state for a user.

Description: A user is locked while LockedUntil lies in the future. Expired
deadlines report unlocked without clearing the stored fields; only a
successful login clears them.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - LockoutStatus: Derived lockout view
  - error: apperr.NotFound or storage errors
*/
func (manager *LockoutManager) Status(context context.Context, userID string) (LockoutStatus, error) {
	user, err := manager.users.FindByID(context, userID)
	if err != nil {
		return LockoutStatus{}, err
	}
	return StatusOf(user), nil
}

// StatusOf derives the lockout view from an already-loaded user record,
// sparing the login path a second fetch.
func StatusOf(user *User) LockoutStatus {
	return LockoutStatus{
		IsLocked:       user.LockedUntil != nil && user.LockedUntil.After(time.Now()),
		LockedUntil:    user.LockedUntil,
		FailedAttempts: user.FailedLoginAttempts,
	}
}

/*
RecordFailure registers one failed login attempt for a user.

Description: Delegates to the repository's atomic increment so concurrent
failures each land exactly once, then reports the post-increment state.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - LockoutStatus: State after the increment, including any new deadline
  - error: apperr.NotFound or storage errors
*/
func (manager *LockoutManager) RecordFailure(context context.Context, userID string) (LockoutStatus, error) {
	status, err := manager.users.IncrementFailedAttempts(context, userID)
	if err != nil {
		return LockoutStatus{}, err
	}
	return *status, nil
}

/*
Clear resets a user's failure counter and lock deadline.

Description: Called only after a verified successful credential check.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Storage errors
*/
func (manager *LockoutManager) Clear(context context.Context, userID string) error {
	return manager.users.ResetFailedAttempts(context, userID)
}

// RemainingMinutes reports how many whole minutes remain on a lock, rounded
// up so a nearly-expired lock still reads "1 minute".
func (status LockoutStatus) RemainingMinutes() int {
	if status.LockedUntil == nil {
		return 0
	}
	remaining := time.Until(*status.LockedUntil)
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Minute - 1) / time.Minute)
}
