package core

import (
	"strings"

	"github.com/volatiletech/null/v8"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// NullString cleans `s` and returns an invalid null.String when nothing is left.
func NullString(s string, lower ...bool) null.String {
	s = CleanString(s, lower...)
	return null.NewString(s, s != "")
}
