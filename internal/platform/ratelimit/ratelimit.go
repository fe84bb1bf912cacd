// Copyright (c) 2026 Registra. All rights reserved.

/*
Package ratelimit implements the bounded, in-process attempt limiter guarding
the login pathway.

It is distinct from the transport-level per-IP throttle in the middleware
chain: this limiter counts discrete attempts against arbitrary string
identifiers (usernames, user IDs) over a sliding window that starts at the
first attempt.

Core Responsibilities:

  - Counting: One serialized counter per identifier.
  - Windowing: A 60-second window anchored at the first attempt; expiry is
    passive wall-clock comparison, no timers.
  - Bounding: A hard entry cap with least-recently-used eviction so
    single-use brute-force identifiers cannot grow memory without bound.

A single [Limiter] instance is constructed at process start and passed by
reference to every call site; there is no package-level state.
*/
package ratelimit

import (
	"container/list"
	"sync"
	"time"
)

const (
	// DefaultWindow is the sliding window anchored at the first attempt.
	DefaultWindow = 60 * time.Second

	// DefaultMaxEntries caps the number of live identifiers held in memory.
	DefaultMaxEntries = 500

	// DefaultMaxAttempts is the attempt budget per identifier per window.
	DefaultMaxAttempts = 5
)

// Result describes the outcome of a single [Limiter.Check] call.
type Result struct {
	// Allowed reports whether the attempt may proceed.
	Allowed bool

	// Remaining is the number of attempts left in the current window.
	Remaining int

	// ResetAt is when the current window expires and the counter restarts.
	ResetAt time.Time
}

// entry is the per-identifier attempt counter.
type entry struct {
	identifier string
	attempts   int
	resetAt    time.Time
}

// Limiter is a bounded, time-windowed attempt counter keyed by identifier.
//
// # Concurrency
//
// All operations take the limiter mutex, so the read-modify-write increment
// on an identifier is a single critical section. Unsynchronized concurrent
// increments would silently lose attempts and make the limiter bypassable.
type Limiter struct {
	mu sync.Mutex

	window     time.Duration
	maxEntries int

	// entries maps identifier → LRU element whose Value is *entry.
	entries map[string]*list.Element

	// order holds entries from most recently used (front) to least (back).
	order *list.List
}

// New constructs a [Limiter] with the given window and entry cap.
// Non-positive arguments select the package defaults.
func New(window time.Duration, maxEntries int) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	return &Limiter{
		window:     window,
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

// Check records an attempt for identifier against a budget of maxAttempts.
//
// # Semantics
//
//   - First attempt (or expired window): fresh counter, attempts=1,
//     window anchored now.
//   - Budget exhausted: denied without extending the window — the returned
//     ResetAt is the same one the final allowed attempt saw.
//   - Otherwise: counter incremented, remaining budget returned.
func (limiter *Limiter) Check(identifier string, maxAttempts int) Result {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	now := time.Now()

	element, found := limiter.entries[identifier]

	// Fresh identifier, or a previous window that has lapsed.
	if !found || !now.Before(element.Value.(*entry).resetAt) {
		counter := &entry{
			identifier: identifier,
			attempts:   1,
			resetAt:    now.Add(limiter.window),
		}

		if found {
			element.Value = counter
			limiter.order.MoveToFront(element)
		} else {
			limiter.entries[identifier] = limiter.order.PushFront(counter)
			limiter.evictOverflow()
		}

		return Result{Allowed: true, Remaining: maxAttempts - 1, ResetAt: counter.resetAt}
	}

	counter := element.Value.(*entry)
	limiter.order.MoveToFront(element)

	if counter.attempts >= maxAttempts {
		return Result{Allowed: false, Remaining: 0, ResetAt: counter.resetAt}
	}

	counter.attempts++
	return Result{Allowed: true, Remaining: maxAttempts - counter.attempts, ResetAt: counter.resetAt}
}

// Reset unconditionally discards the counter for identifier.
// Called after a verified successful login.
func (limiter *Limiter) Reset(identifier string) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	if element, found := limiter.entries[identifier]; found {
		limiter.order.Remove(element)
		delete(limiter.entries, identifier)
	}
}

// Len reports the number of live identifiers currently tracked.
func (limiter *Limiter) Len() int {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	return limiter.order.Len()
}

// evictOverflow removes least-recently-used entries until the cap holds.
// Expired entries are preferred over live ones regardless of recency.
// Caller must hold the mutex.
func (limiter *Limiter) evictOverflow() {
	if limiter.order.Len() <= limiter.maxEntries {
		return
	}

	now := time.Now()

	// First pass: drop anything whose window already lapsed.
	for element := limiter.order.Back(); element != nil && limiter.order.Len() > limiter.maxEntries; {
		previous := element.Prev()
		counter := element.Value.(*entry)
		if !now.Before(counter.resetAt) {
			limiter.order.Remove(element)
			delete(limiter.entries, counter.identifier)
		}
		element = previous
	}

	// Second pass: evict strictly least-recently-used.
	for limiter.order.Len() > limiter.maxEntries {
		element := limiter.order.Back()
		counter := element.Value.(*entry)
		limiter.order.Remove(element)
		delete(limiter.entries, counter.identifier)
	}
}
