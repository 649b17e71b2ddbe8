// Package strings provides helpers for catalog code lists.
package strings

import (
	"strings"
)

// NormalizeCode trims and upper-cases a catalog code so "fr " and "FR" compare equal.
func NormalizeCode(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}

// DedupeCodes normalizes each element, drops empties and duplicates, and
// preserves first-seen order.
//
//	DedupeCodes([]string{" fr", "GB", "Fr", ""})
//	// Returns: []string{"FR", "GB"}
func DedupeCodes(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		code := NormalizeCode(v)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; !ok {
			seen[code] = struct{}{}
			result = append(result, code)
		}
	}
	return result
}

// Duplicates returns codes that occur more than once after normalization,
// in the order their second occurrence was seen.
func Duplicates(values []string) []string {
	seen := make(map[string]int, len(values))
	var dupes []string
	for _, v := range values {
		code := NormalizeCode(v)
		if code == "" {
			continue
		}
		seen[code]++
		if seen[code] == 2 {
			dupes = append(dupes, code)
		}
	}
	return dupes
}
