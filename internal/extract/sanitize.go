// Package extract turns uploaded PDFs into clean plain text for quiz generation.
package extract

import "strings"

var newlineReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Sanitize normalizes line endings to "\n" and drops NUL and every other
// control character below 0x20 except the newline. Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(s string) string {
	s = newlineReplacer.Replace(s)
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' {
			return -1
		}
		return r
	}, s)
}
