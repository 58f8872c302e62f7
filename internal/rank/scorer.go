package rank

import (
	"regexp"
	"strings"

	"jobpilot/internal/config"
	"jobpilot/internal/domain"
	"jobpilot/internal/logger"
)

// Scorer turns a posting into a MatchResult. Implementations must be safe for
// concurrent use.
type Scorer interface {
	Score(p domain.Posting) domain.MatchResult
}

// New returns the scorer named by cfg.Engine. Engines that are not built in
// fall back to the heuristic scorer.
func New(cfg config.Scoring, log logger.Logger) Scorer {
	log = logger.Component(log, "rank")
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", config.EngineHeuristic:
		return NewProfileScorer(cfg.Profile)
	case config.EngineRules:
		return NewRuleScorer(cfg)
	default:
		log.Warn("scoring engine not available, using heuristic", map[string]interface{}{
			"engine": cfg.Engine,
		})
		return NewProfileScorer(cfg.Profile)
	}
}

const retainThreshold = 30

func BandFor(score float64) domain.Band {
	switch {
	case score >= 80:
		return domain.BandExcellent
	case score >= 60:
		return domain.BandGood
	case score >= retainThreshold:
		return domain.BandPotential
	default:
		return domain.BandNotRetained
	}
}

// Retained reports whether a score is worth keeping at all.
func Retained(score float64) bool { return score >= retainThreshold }

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// term is a keyword compiled to a case-insensitive whole-word pattern.
type term struct {
	word string
	re   *regexp.Regexp
}

func compileTerms(words []string) []term {
	out := make([]term, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		out = append(out, term{word: w, re: wordPattern(w)})
	}
	return out
}

// wordPattern matches w on word boundaries. Keywords that begin or end in a
// non-word rune (c++, .net) only get a boundary on their word side.
func wordPattern(w string) *regexp.Regexp {
	q := regexp.QuoteMeta(w)
	if isWordRune(rune(w[0])) {
		q = `\b` + q
	}
	if isWordRune(rune(w[len(w)-1])) {
		q = q + `\b`
	}
	return regexp.MustCompile(`(?i)` + q)
}

func isWordRune(r rune) bool {
	return r == '_' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}

func uniq(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, t := range in {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
