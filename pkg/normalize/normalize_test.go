// Copyright (c) 2026 Registra. All rights reserved.

package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solvik/registra/pkg/normalize"
)

/*
TestUsername verifies the canonicalization pipeline: trim, NFKC, case fold.
*/
func TestUsername(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already_canonical", "alice", "alice"},
		{"surrounding_whitespace", "  alice  ", "alice"},
		{"upper_case", "ALICE", "alice"},
		{"mixed_case", "AlIcE", "alice"},
		{"fullwidth_forms", "ａｌｉｃｅ", "alice"},
		{"ligature", "oﬃce", "office"},
		{"german_sharp_s_folds", "straße", "strasse"},
		{"empty", "", ""},
		{"whitespace_only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize.Username(tt.input))
		})
	}
}

/*
TestUsername_Idempotent checks canonicalization is a fixed point: applying it
twice never changes the result again.
*/
func TestUsername_Idempotent(t *testing.T) {
	inputs := []string{"  AlIcE ", "ＢＯＢ", "oﬃce", "straße"}
	for _, input := range inputs {
		once := normalize.Username(input)
		assert.Equal(t, once, normalize.Username(once), "input %q", input)
	}
}
