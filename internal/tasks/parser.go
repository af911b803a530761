package tasks

import "strings"

// ParseQueries splits a completion into trimmed, non-empty lines, in order.
// Duplicates are kept.
func ParseQueries(raw string) []string {
	lines := strings.Split(raw, "\n")
	queries := make([]string, 0, len(lines))
	for _, line := range lines {
		if q := strings.TrimSpace(line); q != "" {
			queries = append(queries, q)
		}
	}
	return queries
}
