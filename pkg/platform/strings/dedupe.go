// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
//
// Example:
//
//	DedupeAndTrim([]string{"  eng ", "ops", "eng", "", "  "})
//	// Returns: []string{"eng", "ops"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// Union appends the values of next that are not already in acc, trimming
// whitespace and dropping empties. The order of first appearance is kept,
// so merging the same list twice is a no-op.
//
// Example:
//
//	Union([]string{"eng"}, []string{"all", "eng", " ops "})
//	// Returns: []string{"eng", "all", "ops"}
func Union(acc, next []string) []string {
	if len(next) == 0 {
		return acc
	}
	return DedupeAndTrim(append(append(make([]string, 0, len(acc)+len(next)), acc...), next...))
}
