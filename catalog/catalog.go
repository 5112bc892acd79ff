package catalog

import (
	"strings"
	"unicode"
)

// ============================================================================
// CATALOG - Describes what the engine can measure and where
// ============================================================================
// Two immutable value objects, built once per process from configuration:
//
//   MetricCatalog   - ordered list of tracked statistics with legacy aliases
//   LocationCatalog - campuses with detection phrases and aggregate membership
//
// The parser uses catalog vocabulary for extraction and resolution.
// The engine uses catalog aliases to read rows across schema versions.
// Nothing in this package is mutated after construction.
// ============================================================================

// Normalize lowercases s and drops everything that is not a letter or digit.
// "South Campus" and "south_campus" both normalize to "southcampus".
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhrase lowercases s and collapses punctuation and whitespace runs
// into single spaces, keeping word boundaries intact.
func NormalizePhrase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range strings.ToLower(s) {
		if r == '\'' || r == '’' {
			continue // "kid's" reads as "kids"
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
