// Package textseg provides grapheme-cluster aware text measurement.
// Message length limits count user-perceived characters, so emoji and
// other multi-codepoint clusters count as one.
package textseg

import (
	"github.com/scalecode-solutions/runeseg"
)

// Count returns the number of grapheme clusters in s.
func Count(s string) int {
	n := 0
	for state, remaining := -1, s; len(remaining) > 0; {
		_, remaining, _, state = runeseg.StepString(remaining, state)
		n++
	}
	return n
}

// Truncate returns s cut to at most max grapheme clusters.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	offset := 0
	n := 0
	for state, remaining := -1, s; len(remaining) > 0; {
		var cluster string
		cluster, remaining, _, state = runeseg.StepString(remaining, state)
		n++
		offset += len(cluster)
		if n == max {
			break
		}
	}
	if offset >= len(s) {
		return s
	}
	return s[:offset]
}
