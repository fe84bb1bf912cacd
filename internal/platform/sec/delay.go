// Copyright (c) 2026 Registra. All rights reserved.

package sec

import "time"

// RunConstantTime invokes op and withholds its outcome until at least floor
// has elapsed, masking how long op actually took from an external timer.
//
// # Guarantees
//
//   - op finishing early (success or failure) still surfaces only after floor.
//   - op exceeding floor is never shortened; no negative delay is applied.
//   - The padding sleep parks only the calling goroutine; concurrent requests
//     are unaffected.
//
// This wraps the credential-verification path so "user not found" and
// "wrong password" are observationally indistinguishable by latency.
func RunConstantTime[T any](floor time.Duration, op func() (T, error)) (T, error) {
	startedAt := time.Now()

	result, err := op()

	if remaining := floor - time.Since(startedAt); remaining > 0 {
		time.Sleep(remaining)
	}

	return result, err
}
