// Package format holds the pure text helpers shared by the version
// resolvers and the message renderer.
package format

import (
	"fmt"
	"regexp"
	"time"
	"unicode"
	"unicode/utf8"
)

var (
	brRe     = regexp.MustCompile(`(?i)<br\s*/?>`)
	tagRe    = regexp.MustCompile(`<[^>]*>`)
	entityRe = regexp.MustCompile(`&#?[a-zA-Z0-9]+;`)
)

// Capitalize uppercases the first character only. Empty input is
// returned unchanged.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// StripHTML turns <br> tags into newlines, then removes any remaining
// tag-like substrings and named character references. Upstream
// changelogs are HTML, Discord descriptions are not.
func StripHTML(text string) string {
	text = brRe.ReplaceAllString(text, "\n")
	text = tagRe.ReplaceAllString(text, "")
	return entityRe.ReplaceAllString(text, "")
}

// Truncate cuts text down to maxLength characters, ellipsis included.
func Truncate(text string, maxLength int) string {
	if maxLength > 3 && len(text) > maxLength {
		return text[:maxLength-3] + "..."
	}
	return text
}

// RelativeTimestamp renders a Discord client-side relative timestamp
// token, e.g. "2 hours ago".
func RelativeTimestamp(t time.Time) string {
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}
