// Package match computes normalized name-similarity ratios. It is pure
// computation: no I/O, no clocks, safe for concurrent use.
package match

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Ratio returns the similarity of two names as a percentage in [0, 100].
// Comparison is case-insensitive. The underlying sequence matcher gives its
// two operands different roles, so inputs are ordered canonically first;
// Ratio(a, b) == Ratio(b, a) holds for every pair.
func Ratio(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a > b {
		a, b = b, a
	}
	m := difflib.NewMatcher(explode(a), explode(b))
	return m.Ratio() * 100
}

// explode splits a string into per-rune elements so the line-oriented matcher
// operates at character granularity.
func explode(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
