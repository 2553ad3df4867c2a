package core

import "strings"

// CleanString trims surrounding whitespace from `s` and optionally lowers it.
// Identifiers and enum-like inputs (codes, states, levels) go through it
// before validation.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}
