// Package query holds the pure-function layer applied to raw query text:
// the dangerous-input denylist and the heuristic month and employee
// extraction that drive ranking boosts.
package query

import (
	"regexp"
	"strings"
)

var denylist = []*regexp.Regexp{
	regexp.MustCompile(`(?i)drop\s+table`),
	regexp.MustCompile(`(?i)delete\s+from`),
	regexp.MustCompile(`(?i)insert\s+into`),
	regexp.MustCompile(`(?i)update\s+\w*\s*set`),
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
}

// Sanitize trims q and reports whether it is acceptable. A query matching
// any denylisted pattern is rejected as a whole; nothing is stripped out.
func Sanitize(q string) (string, bool) {
	for _, re := range denylist {
		if re.MatchString(q) {
			return "", false
		}
	}
	return strings.TrimSpace(q), true
}
