// Package strings holds small helpers for cleaning user-supplied string lists.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each element, drops blanks and keeps the first
// occurrence of each value. The result is never nil, so an emptied list
// stays distinguishable from a missing one.
func DedupeAndTrim(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
