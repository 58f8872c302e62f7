// Package link resolves applications to previously discovered postings by
// company name.
package link

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"

	"jobpilot/internal/config"
	"jobpilot/internal/domain"
)

// Matcher decides whether two normalized company names refer to the same
// company.
type Matcher interface {
	Match(a, b string) bool
}

// SubstringMatcher matches when one name appears inside the other on word
// boundaries ("stripe" ~ "stripe payments"). Names shorter than MinLen only
// match exactly.
type SubstringMatcher struct {
	MinLen int
}

func (m SubstringMatcher) Match(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) < m.MinLen {
		return false
	}
	return strings.Contains(" "+long+" ", " "+short+" ")
}

// EditDistanceMatcher matches names whose Levenshtein distance is at most
// MaxRatio of the longer name.
type EditDistanceMatcher struct {
	MaxRatio float64
}

func (m EditDistanceMatcher) Match(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	n := len([]rune(a))
	if l := len([]rune(b)); l > n {
		n = l
	}
	d := levenshtein.ComputeDistance(a, b)
	return float64(d)/float64(n) <= m.MaxRatio
}

// NewMatcher picks the strategy named in cfg, defaulting to substring.
func NewMatcher(cfg config.Linker) Matcher {
	switch strings.ToLower(strings.TrimSpace(cfg.Strategy)) {
	case config.LinkerLevenshtein:
		ratio := cfg.MaxDistanceRatio
		if ratio <= 0 || ratio >= 1 {
			ratio = 0.2
		}
		return EditDistanceMatcher{MaxRatio: ratio}
	default:
		minLen := cfg.MinLength
		if minLen <= 0 {
			minLen = 3
		}
		return SubstringMatcher{MinLen: minLen}
	}
}

var legalSuffixes = map[string]bool{
	"inc": true, "incorporated": true, "llc": true, "ltd": true, "limited": true,
	"corp": true, "corporation": true, "co": true, "plc": true, "gmbh": true,
}

// NormalizeName lowercases name, turns punctuation into spaces and drops
// trailing legal suffixes.
func NormalizeName(name string) string {
	f := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for len(f) > 1 && legalSuffixes[f[len(f)-1]] {
		f = f[:len(f)-1]
	}
	return strings.Join(f, " ")
}

type Linker struct {
	matcher Matcher
}

// New returns a linker using m for fuzzy comparison. A nil m uses
// SubstringMatcher with a minimum length of 3.
func New(m Matcher) *Linker {
	if m == nil {
		m = SubstringMatcher{MinLen: 3}
	}
	return &Linker{matcher: m}
}

// Link finds the posting app belongs to. Case-insensitive exact company
// matches win over fuzzy ones; among several matches the most recently
// discovered posting is picked. No match is not an error.
func (l *Linker) Link(app domain.Application, candidates []domain.JobCandidate) (domain.JobCandidate, bool) {
	company := strings.TrimSpace(app.Company)
	if company == "" {
		return domain.JobCandidate{}, false
	}

	if c, ok := newest(candidates, func(c domain.JobCandidate) bool {
		return strings.EqualFold(strings.TrimSpace(c.Company), company)
	}); ok {
		return c, true
	}

	want := NormalizeName(company)
	return newest(candidates, func(c domain.JobCandidate) bool {
		return l.matcher.Match(want, NormalizeName(c.Company))
	})
}

func newest(candidates []domain.JobCandidate, keep func(domain.JobCandidate) bool) (domain.JobCandidate, bool) {
	var (
		best  domain.JobCandidate
		found bool
	)
	for _, c := range candidates {
		if !keep(c) {
			continue
		}
		if !found || c.DiscoveredAt.After(best.DiscoveredAt) {
			best, found = c, true
		}
	}
	return best, found
}

// Apply links app to job and copies the job description when app has none.
func Apply(app *domain.Application, job domain.JobCandidate) {
	id := job.ID
	app.JobID = &id
	if app.JobDescription == "" {
		app.JobDescription = job.Description
	}
}
