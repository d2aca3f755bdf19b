// Package strings holds small helpers for list-valued settings.
package strings

import (
	"strings"
)

// CleanList trims each value, drops empties and repeats, and keeps the
// first occurrence order. A nil or empty input is returned as is.
//
//	CleanList([]string{" kafka-1:9092", "kafka-2:9092", "kafka-1:9092", ""})
//	// []string{"kafka-1:9092", "kafka-2:9092"}
func CleanList(values []string) []string {
	return clean(values, strings.TrimSpace)
}

// CleanListFold is CleanList with case folding, for values compared
// case-insensitively such as origins.
func CleanListFold(values []string) []string {
	return clean(values, func(v string) string {
		return strings.ToLower(strings.TrimSpace(v))
	})
}

func clean(values []string, norm func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = norm(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
