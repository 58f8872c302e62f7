// internal/rank/rule_scorer.go
package rank

import (
	"jobpilot/internal/config"
	"jobpilot/internal/domain"
)

type weighted struct {
	tag    string
	weight int
	terms  []term
}

// RuleScorer adds the weight of every title or keyword rule with at least one
// term present in the title or description, then subtracts penalties.
type RuleScorer struct {
	rules     []weighted
	penalties []weighted
	negative  []term
}

func NewRuleScorer(cfg config.Scoring) *RuleScorer {
	s := &RuleScorer{negative: compileTerms(cfg.Profile.NegativeKeywords)}
	for _, rs := range [][]config.Rule{cfg.TitleRules, cfg.KeywordRules} {
		for _, r := range rs {
			s.rules = append(s.rules, weighted{tag: r.Tag, weight: r.Weight, terms: compileTerms(r.Any)})
		}
	}
	for _, p := range cfg.Penalties {
		w := p.Weight
		if w > 0 {
			w = -w
		}
		s.penalties = append(s.penalties, weighted{tag: p.Reason, weight: w, terms: compileTerms(p.Any)})
	}
	return s
}

func (s *RuleScorer) Score(p domain.Posting) domain.MatchResult {
	text := p.Title + "\n" + p.Description
	res := domain.MatchResult{Engine: config.EngineRules}

	score := 0
	var tags []string
	for _, r := range s.rules {
		if anyMatch(r.terms, text) {
			score += r.weight
			tags = append(tags, r.tag)
		}
	}
	for _, pen := range s.penalties {
		if anyMatch(pen.terms, text) {
			score += pen.weight
		}
	}
	for _, n := range s.negative {
		if n.re.MatchString(p.Title) {
			res.NegativeMatches = append(res.NegativeMatches, n.word)
		}
	}

	res.Tags = uniq(tags)
	res.Score = clamp(float64(score))
	res.Band = BandFor(res.Score)
	res.Matched = len(res.Tags) > 0 && len(res.NegativeMatches) == 0
	return res
}

func anyMatch(terms []term, text string) bool {
	for _, t := range terms {
		if t.re.MatchString(text) {
			return true
		}
	}
	return false
}
