// Package htmlsanitize strips markup from caller-supplied profile
// fields before they are persisted. Display names and phone numbers
// are plain text; anything that decodes as HTML is an injection
// attempt, not data.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Strict removes every HTML tag and attribute, returning the trimmed
// text content.
func Strict(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}
