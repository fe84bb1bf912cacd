// Copyright (c) 2026 Registra. All rights reserved.

package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/solvik/registra/internal/platform/apperr"
	"github.com/solvik/registra/internal/platform/ratelimit"
	"github.com/solvik/registra/internal/platform/sec"
	"github.com/solvik/registra/pkg/normalize"
	"github.com/solvik/registra/pkg/uuid"
)

// # Login Orchestration

// dummyPasswordHash is a valid bcrypt hash of a random value no client can
// submit. Unknown-username attempts verify against it so their latency is
// shaped like a real verification.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Service orchestrates the login and logout control flow: input gating,
// throttling, lockout checks, timing-padded credential verification, and
// session rotation. Every failure before the credential check collapses into
// the same generic error so responses never reveal whether a username exists.
type Service struct {
	users    Repository
	lockouts *LockoutManager
	sessions *Sessions
	limiter  *ratelimit.Limiter

	// verifyFloor is the minimum wall-clock duration of one credential
	// verification, enforced by the constant-time executor.
	verifyFloor time.Duration

	logger *slog.Logger
}

// NewService constructs the authentication service with its dependencies.
func NewService(
	users Repository,
	lockouts *LockoutManager,
	sessions *Sessions,
	limiter *ratelimit.Limiter,
	verifyFloor time.Duration,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:       users,
		lockouts:    lockouts,
		sessions:    sessions,
		limiter:     limiter,
		verifyFloor: verifyFloor,
		logger:      logger,
	}
}

// LoginInput holds the submitted credentials.
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

/*
Login runs the full authentication decision for one credential submission.

Description: The flow gates in a fixed order: input presence, user lookup,
lockout, per-user throttle, then timing-padded credential verification.
Failures before verification return the generic credentials error (or the
throttle/lockout errors, which apply symmetrically to known and unknown
identifiers). On success the failure counters reset and the session is
rotated: any pre-existing session cookie is destroyed strictly before the new
one is saved.

Parameters:
  - context: context.Context
  - writer: http.ResponseWriter (receives the rotated session cookie)
  - input: LoginInput

Returns:
  - *User: Authenticated account on success
  - error: apperr taxonomy errors; storage failures map to Internal
*/
func (service *Service) Login(context context.Context, writer http.ResponseWriter, input LoginInput) (*User, error) {
	if strings.TrimSpace(input.Username) == "" || input.Password == "" {
		return nil, apperr.InvalidCredentials()
	}

	canonical := normalize.Username(input.Username)

	user, err := service.users.FindByUsername(context, canonical)
	if err != nil {
		if apperr.IsAppError(err) && apperr.As(err).HTTPStatus == http.StatusNotFound {
			return nil, service.failUnknownUsername(canonical)
		}
		return nil, err
	}

	if status := StatusOf(user); status.IsLocked {
		service.logger.Warn("login_rejected_locked",
			slog.String("user_id", user.ID),
			slog.Int("failed_attempts", status.FailedAttempts),
		)
		return nil, apperr.AccountLocked(status.RemainingMinutes())
	}

	if result := service.limiter.Check(RateKeyUser+user.ID, LoginMaxAttempts); !result.Allowed {
		service.logger.Warn("login_rejected_throttled",
			slog.String("user_id", user.ID),
			slog.Time("reset_at", result.ResetAt),
		)
		return nil, apperr.TooManyAttempts()
	}

	verified, _ := sec.RunConstantTime(service.verifyFloor, func() (bool, error) {
		return sec.CheckPasswordHash(input.Password, user.PasswordHash), nil
	})

	if !verified {
		return nil, service.failBadPassword(context, user)
	}

	return service.succeed(context, writer, user, canonical)
}

// failUnknownUsername charges the unknown-identifier throttle and pads the
// response so it is indistinguishable from a wrong password for an existing
// account.
func (service *Service) failUnknownUsername(canonical string) error {
	result := service.limiter.Check(RateKeyUsername+canonical, LoginMaxAttempts)

	// Same timing shape as the real verification path.
	_, _ = sec.RunConstantTime(service.verifyFloor, func() (bool, error) {
		return sec.CheckPasswordHash("", dummyPasswordHash), nil
	})

	if !result.Allowed {
		service.logger.Warn("login_rejected_throttled",
			slog.Time("reset_at", result.ResetAt),
		)
		return apperr.TooManyAttempts()
	}

	return apperr.InvalidCredentials()
}

// failBadPassword records the failure against the persisted lockout ladder
// and reports the generic credentials error.
func (service *Service) failBadPassword(context context.Context, user *User) error {
	status, err := service.lockouts.RecordFailure(context, user.ID)
	if err != nil {
		// The attempt still fails; losing one counter tick is preferable to
		// surfacing a storage error on the login path.
		service.logger.Error("login_failure_record_failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return apperr.InvalidCredentials()
	}

	service.logger.Warn("login_failed",
		slog.String("user_id", user.ID),
		slog.Int("failed_attempts", status.FailedAttempts),
		slog.Bool("locked", status.IsLocked),
	)

	if status.IsLocked {
		return apperr.AccountLocked(status.RemainingMinutes())
	}

	return apperr.InvalidCredentials()
}

// succeed clears the failure state and rotates the session.
func (service *Service) succeed(context context.Context, writer http.ResponseWriter, user *User, canonical string) (*User, error) {
	if err := service.lockouts.Clear(context, user.ID); err != nil {
		return nil, err
	}
	service.limiter.Reset(RateKeyUser + user.ID)
	service.limiter.Reset(RateKeyUsername + canonical)

	version, err := service.sessions.Version(context, user.ID)
	if err != nil {
		return nil, err
	}

	// Rotation order is load-bearing: the pre-existing cookie is destroyed
	// strictly before the new session is saved so a session fixated before
	// authentication never survives it.
	service.sessions.Destroy(writer)
	if err := service.sessions.Save(writer, sec.Session{
		UserID:   user.ID,
		Username: user.Username,
		Version:  version,
	}); err != nil {
		return nil, err
	}

	service.logger.Info("login_succeeded",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

/*
Logout terminates the current session.

Description: Idempotent. Destroys the session cookie whether or not a valid
session exists.

Parameters:
  - writer: http.ResponseWriter
*/
func (service *Service) Logout(writer http.ResponseWriter) {
	service.sessions.Destroy(writer)
}

// # Account Provisioning

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Username    string
	Password    string
	DisplayName string
}

/*
Register validates, hashes, and persists a brand new user account.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *User: Created entity
  - error: Validation, conflict, or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {
	canonical := normalize.Username(input.Username)
	if canonical == "" {
		return nil, apperr.ValidationError("Username is required")
	}
	if len(input.Password) < 8 {
		return nil, apperr.ValidationError("Password must be at least 8 characters")
	}

	if _, err := service.users.FindByUsername(context, canonical); err == nil {
		return nil, apperr.ValidationError("Username is already taken")
	}

	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	user := &User{
		ID:             uuid.New(),
		Username:       canonical,
		PasswordHash:   hashedPassword,
		DisplayName:    strings.TrimSpace(input.DisplayName),
		SessionVersion: SessionBaselineVersion,
	}

	if err := service.users.Create(context, user); err != nil {
		return nil, err
	}

	return user, nil
}
