package filter

import (
	"regexp"
	"strings"
)

// SafeText is user text with every regex metacharacter backslash-escaped.
type SafeText string

// Escape neutralizes `. * + ? ^ $ { } ( ) | [ ] \` so a pattern matcher treats them literally.
func Escape(raw string) SafeText {
	return SafeText(regexp.QuoteMeta(raw))
}

// Literal reverses Escape for backends with their own pattern syntax.
func (s SafeText) Literal() string {
	if !strings.ContainsRune(string(s), '\\') {
		return string(s)
	}
	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	for _, r := range string(s) {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

func (s SafeText) String() string { return string(s) }
