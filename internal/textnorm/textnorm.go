// Package textnorm canonicalizes arbitrary exam text for comparison and
// scores similarity between canonical forms. Every matching stage of the
// pipeline funnels through Normalize so that two references to the same
// question (or answer) compare equal regardless of markup, entity escaping,
// case, punctuation, or whitespace.
package textnorm

import (
	"html"
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	xhtml "golang.org/x/net/html"
)

var (
	punctRe = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// StripTags renders only the visible text of an HTML fragment, with tag
// boundaries collapsed to a single space. Plain text passes through intact.
func StripTags(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	z := xhtml.NewTokenizer(strings.NewReader(s))
	var parts []string
	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			// Tokenization never fails on a string reader; ErrorToken
			// here means EOF.
			return strings.Join(parts, " ")
		case xhtml.TextToken:
			parts = append(parts, string(z.Text()))
		}
	}
}

// Normalize converts text to its canonical comparable form: markup
// stripped, entities unescaped, lowercased, punctuation runs replaced by a
// single space, whitespace collapsed and trimmed. Idempotent; blank input
// normalizes to "".
func Normalize(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	s = StripTags(s)
	s = html.UnescapeString(s)
	s = strings.ToLower(s)
	s = punctRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Ratio is the difflib sequence-matcher similarity over the characters of a
// and b: symmetric, in [0,1], and 1.0 only when the strings are equal.
// Callers are expected to pass already-normalized text.
func Ratio(a, b string) float64 {
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}
