// Package normalize centralizes canonicalization of user-supplied
// identifiers so every store and handler agrees on the stored form.
package normalize

import "strings"

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace but preserves case.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// CareerCode canonicalizes a career code: trimmed and uppercased.
// Two codes differing only in case or surrounding whitespace identify
// the same career. Returns "" for blank input; callers treat that as
// an invalid code.
func CareerCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Role lowercases and trims a role tag.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
