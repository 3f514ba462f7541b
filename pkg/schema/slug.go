package schema

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Slug returns the canonical comparison form of a header or key: NFKC-folded,
// lower-cased, runs of non-alphanumerics collapsed, joined with underscores.
// "E-Mail", "email" and " Email  Address " all slug to stable forms.
func Slug(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	lastSep := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSep = false
		default:
			if !lastSep {
				b.WriteByte('_')
				lastSep = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
