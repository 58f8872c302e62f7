// Package dedup recognizes re-postings of the same job across sources.
//
// Identity is the fingerprint normalize(company) + ":" + normalize(title).
// It is a lossy semantic key: source, URL and description are ignored.
package dedup

import (
	"strings"
	"unicode"

	"jobpilot/internal/domain"
)

// Normalize lowercases s, removes punctuation and collapses whitespace.
// Apostrophes vanish ("O'Reilly" -> "oreilly"); other punctuation separates
// words ("AI/ML" -> "ai ml").
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r == '\'' || r == '’':
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func Fingerprint(p domain.Posting) string {
	return Normalize(p.Company) + ":" + Normalize(p.Title)
}

// IsDuplicate reports whether p's fingerprint is already in recent.
func IsDuplicate(p domain.Posting, recent map[string]struct{}) bool {
	_, ok := recent[Fingerprint(p)]
	return ok
}
