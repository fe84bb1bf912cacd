// Copyright (c) 2026 Registra. All rights reserved.

package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/solvik/registra/internal/platform/apperr"
	"github.com/solvik/registra/internal/platform/sec"
	"github.com/solvik/registra/internal/users/auth"
)

// testSessionSecret satisfies the 32-character minimum.
const testSessionSecret = "unit-test-session-secret-0123456789abcdef"

// testPassword is hashed once per test binary; bcrypt is deliberately slow.
const testPassword = "correct horse battery staple"

var (
	testPasswordHashOnce sync.Once
	testPasswordHash     string
)

func hashedTestPassword(t *testing.T) string {
	t.Helper()
	testPasswordHashOnce.Do(func() {
		hash, err := sec.HashPassword(testPassword)
		if err != nil {
			t.Fatalf("hashing test password: %v", err)
		}
		testPasswordHash = hash
	})
	return testPasswordHash
}

// # In-Memory Fakes

// fakeRepository implements auth.Repository over a map, mirroring the atomic
// counter semantics of the Postgres implementation under one mutex.
type fakeRepository struct {
	mu    sync.Mutex
	byID  map[string]*auth.User
	byKey map[string]string // canonical username -> id
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		byID:  make(map[string]*auth.User),
		byKey: make(map[string]string),
	}
}

func (repo *fakeRepository) add(user *auth.User) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	clone := *user
	repo.byID[user.ID] = &clone
	repo.byKey[user.Username] = user.ID
}

func (repo *fakeRepository) get(id string) *auth.User {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if user, ok := repo.byID[id]; ok {
		clone := *user
		return &clone
	}
	return nil
}

func (repo *fakeRepository) FindByID(_ context.Context, id string) (*auth.User, error) {
	if user := repo.get(id); user != nil {
		return user, nil
	}
	return nil, apperr.NotFound("User")
}

func (repo *fakeRepository) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	repo.mu.Lock()
	id, ok := repo.byKey[username]
	repo.mu.Unlock()
	if !ok {
		return nil, apperr.NotFound("User")
	}
	return repo.FindByID(context.Background(), id)
}

func (repo *fakeRepository) Create(_ context.Context, user *auth.User) error {
	repo.add(user)
	return nil
}

func (repo *fakeRepository) IncrementFailedAttempts(_ context.Context, userID string) (*auth.LockoutStatus, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	user, ok := repo.byID[userID]
	if !ok {
		return nil, apperr.NotFound("User")
	}

	user.FailedLoginAttempts++
	if duration := auth.LockoutDurationFor(user.FailedLoginAttempts); duration > 0 {
		deadline := time.Now().Add(duration)
		user.LockedUntil = &deadline
	}

	status := &auth.LockoutStatus{
		IsLocked:       user.LockedUntil != nil && user.LockedUntil.After(time.Now()),
		LockedUntil:    user.LockedUntil,
		FailedAttempts: user.FailedLoginAttempts,
	}
	return status, nil
}

func (repo *fakeRepository) ResetFailedAttempts(_ context.Context, userID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if user, ok := repo.byID[userID]; ok {
		user.FailedLoginAttempts = 0
		user.LockedUntil = nil
	}
	return nil
}

func (repo *fakeRepository) SessionVersion(_ context.Context, userID string) (int64, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	user, ok := repo.byID[userID]
	if !ok {
		return 0, apperr.NotFound("User")
	}
	if user.SessionVersion < auth.SessionBaselineVersion {
		return auth.SessionBaselineVersion, nil
	}
	return user.SessionVersion, nil
}

func (repo *fakeRepository) IncrementSessionVersion(_ context.Context, userID string) (int64, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	user, ok := repo.byID[userID]
	if !ok {
		return 0, apperr.NotFound("User")
	}
	if user.SessionVersion < auth.SessionBaselineVersion {
		user.SessionVersion = auth.SessionBaselineVersion
	}
	user.SessionVersion++
	return user.SessionVersion, nil
}

func (repo *fakeRepository) IncrementAllSessionVersions(_ context.Context) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for _, user := range repo.byID {
		if user.SessionVersion < auth.SessionBaselineVersion {
			user.SessionVersion = auth.SessionBaselineVersion
		}
		user.SessionVersion++
	}
	return nil
}

// fakeVersionCache implements auth.VersionCache over a map. TTLs are ignored;
// the tests exercise read-through and write-through ordering, not expiry.
type fakeVersionCache struct {
	mu     sync.Mutex
	values map[string]int64
}

func newFakeVersionCache() *fakeVersionCache {
	return &fakeVersionCache{values: make(map[string]int64)}
}

func (cache *fakeVersionCache) Get(_ context.Context, userID string) (int64, bool, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	version, ok := cache.values[userID]
	return version, ok, nil
}

func (cache *fakeVersionCache) Set(_ context.Context, userID string, version int64, _ time.Duration) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.values[userID] = version
	return nil
}

func (cache *fakeVersionCache) Delete(_ context.Context, userID string) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	delete(cache.values, userID)
	return nil
}

func (cache *fakeVersionCache) DeleteAll(_ context.Context) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.values = make(map[string]int64)
	return nil
}

func (cache *fakeVersionCache) len() int {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return len(cache.values)
}

// # Fixture Builders

func newTestTokenService(t *testing.T) *sec.TokenService {
	t.Helper()
	tokens, err := sec.NewTokenService(testSessionSecret, "registra.app")
	require.NoError(t, err)
	return tokens
}
