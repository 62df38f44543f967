// Package slug derives filesystem- and URL-safe identifiers from game titles.
// A game's slug is the path prefix all of its hosted files live under, so it
// must stay stable for the lifetime of the catalog record.
package slug

import (
	"fmt"
	"strings"
)

// Make converts a display title into its slug: surrounding whitespace is
// trimmed, the result is lowercased, and spaces and forward slashes become
// underscores. Deterministic and total; no error conditions.
func Make(title string) string {
	s := strings.TrimSpace(title)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "/", "_")
	return s
}

// Unique returns base if taken reports it free, otherwise base with the
// smallest numeric suffix (_2, _3, ...) that taken reports free. Distinct
// titles can collapse to the same slug ("A B" and "A_B" both make "a_b");
// without disambiguation the second upload would overwrite the first game's
// hosted files while both catalog records survive.
func Unique(base string, taken func(string) bool) string {
	if !taken(base) {
		return base
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", base, i)
		if !taken(candidate) {
			return candidate
		}
	}
}
