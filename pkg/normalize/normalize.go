// Copyright (c) 2026 Registra. All rights reserved.

// Package normalize canonicalizes user-supplied identity strings.
//
// # Usage
//
// Usernames are canonicalized before every lookup and before persistence so
// that visually identical inputs (fullwidth forms, mixed case, stray
// whitespace) always resolve to the same account.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Username converts an arbitrary Unicode username into its canonical form.
//
// # Transformation Pipeline
//
// 1. Trims surrounding whitespace.
// 2. Normalizes to NFKC (compatibility composition, e.g. ﬁ → fi).
// 3. Applies Unicode case folding so lookups are case-insensitive.
func Username(s string) string {
	trimmed := strings.TrimSpace(s)
	composed := norm.NFKC.String(trimmed)
	return cases.Fold().String(composed)
}
