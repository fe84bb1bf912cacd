// Copyright (c) 2026 Registra. All rights reserved.

package auth

import "time"

// # Login Throttling

// Sliding-window throttle applied to the login endpoint. Both keys use the
// same budget so an attacker cannot tell a known username from an unknown one
// by counting allowed probes.
const (
	// LoginMaxAttempts is the number of attempts allowed per identifier
	// inside one rate-limit window.
	LoginMaxAttempts = 5

	// RateKeyUsername throttles attempts against usernames that do not
	// resolve to an account. Keyed by the canonicalized submitted name.
	RateKeyUsername = "login:username:"

	// RateKeyUser throttles attempts against a resolved account, keyed by its
	// stable ID so renames cannot reset the meter.
	RateKeyUser = "login:user:"
)

// # Account Lockout Escalation

// Failed-attempt thresholds and the lock durations they trigger. Evaluated
// from the highest tier down; crossing a tier re-arms the full duration.
const (
	LockTierBrief    = 5
	LockTierExtended = 10
	LockTierDay      = 15

	LockDurationBrief    = 5 * time.Minute
	LockDurationExtended = 30 * time.Minute
	LockDurationDay      = 24 * time.Hour
)

// # Session Versioning

const (
	// SessionBaselineVersion is the version assumed for user records that
	// predate versioning. Stored sessions stamp this value at minimum.
	SessionBaselineVersion = 1

	// VersionCacheTTL bounds staleness of the Redis session-version cache.
	// Invalidations write through, so the TTL only matters after a cache
	// flush or Redis restart.
	VersionCacheTTL = 15 * time.Minute
)
