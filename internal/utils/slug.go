package utils

import "strings"

// Slugify derives a protocol id from its name: lower-case, runs of
// non-alphanumeric characters collapsed to a single hyphen, leading and
// trailing hyphens stripped.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	prevHyphen := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevHyphen = false
		default:
			if !prevHyphen {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
