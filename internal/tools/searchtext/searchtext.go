// Package searchtext normalises snippets returned by search APIs. Providers
// occasionally hand back HTML fragments (<b> highlights, entities, inline
// links) which waste tokens and confuse smaller models.
package searchtext

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Clean strips markup and collapses whitespace. Plain text is returned with
// whitespace collapsed only.
func Clean(s string) string {
	if strings.ContainsAny(s, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			doc.Find("script, style, noscript").Remove()
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to at most limit runes, appending an ellipsis when cut.
// A limit of zero or less disables truncation.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
