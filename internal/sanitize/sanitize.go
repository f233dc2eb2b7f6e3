// Package sanitize cleans display strings that arrive from the rental
// backend (customer names, job names, plate numbers) before they are placed
// in timeline bars, tooltips and exports. Uses bluemonday's strict policy so
// no markup survives, then normalizes whitespace.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the singleton strict policy. Initialized once via sync.Once for
// thread-safe lazy initialization.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared strict policy, initializing it on first call.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text strips every HTML element from input and collapses runs of
// whitespace into single spaces. The result is plain text: entities that
// bluemonday escapes are decoded again because templ escapes on output.
func Text(input string) string {
	if input == "" {
		return ""
	}
	stripped := html.UnescapeString(getPolicy().Sanitize(input))
	return strings.Join(strings.Fields(stripped), " ")
}

// TextOr returns Text(input), or fallback when the cleaned value is empty.
func TextOr(input, fallback string) string {
	if s := Text(input); s != "" {
		return s
	}
	return fallback
}

// Truncate shortens s to at most max runes, appending an ellipsis when
// anything was cut. max <= 1 yields just the ellipsis for non-empty input.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}
