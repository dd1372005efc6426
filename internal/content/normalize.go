// Package content provides canonicalisation and content addressing for
// note bodies. Normalisation strips insignificant formatting so that
// line-ending style, trailing spaces and extra blank lines never
// register as content changes; the hash of the normalised text is the
// sole change-detection signal used by reconciliation.
package content

import (
	"regexp"
	"strings"
)

// blankRunRegex matches a run of three or more consecutive newlines.
var blankRunRegex = regexp.MustCompile(`\n{3,}`)

// Normalize canonicalises markdown for stable hashing:
// 1. Convert CR/CRLF line endings to LF
// 2. Strip trailing horizontal whitespace from every line
// 3. Collapse runs of 3+ newlines to exactly 2
//
// Normalize is pure, total and idempotent.
func Normalize(markdown string) string {
	// Line endings first so the per-line pass sees clean LF boundaries.
	s := strings.ReplaceAll(markdown, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	s = strings.Join(lines, "\n")

	return blankRunRegex.ReplaceAllString(s, "\n\n")
}
