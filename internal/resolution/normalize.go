package resolution

import (
	"strings"
	"unicode"
)

// normalize lower-cases s and strips everything that is not a letter or a
// digit, so "VITA-Classical" and "vita classical" compare equal.
func normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToLower(r))
		}
	}
	return sb.String()
}
