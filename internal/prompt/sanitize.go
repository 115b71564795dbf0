package prompt

import (
	"regexp"
	"strings"
)

// The model marks emphasis with asterisk runs; the widget renders plain text.
var emphasisRuns = regexp.MustCompile(`\*+`)

// Sanitize strips every run of asterisks from raw model output and trims
// surrounding whitespace. Runs are replaced with nothing, not a space, and
// the operation is idempotent.
func Sanitize(raw string) string {
	return strings.TrimSpace(emphasisRuns.ReplaceAllString(raw, ""))
}
