package rank

import (
	"math"
	"strings"

	"jobpilot/internal/config"
	"jobpilot/internal/domain"
)

// Component weights; they sum to 100.
const (
	weightDescription = 40.0
	weightTitle       = 20.0
	weightVariety     = 15.0
	weightTier        = 15.0
	weightSalary      = 5.0
	weightRemote      = 5.0

	// halfSaturation is the summed keyword evidence at which the description
	// component reaches half its weight.
	halfSaturation = 1.5
	secondaryShare = 0.5
)

// ProfileScorer is the heuristic, description-centric scorer.
type ProfileScorer struct {
	primary   []term
	secondary []term
	negative  []term
	titles    []term
	titleSets [][]string
	tiers     map[string]domain.Tier
	comp      config.Compensation
	remote    *bool
}

func NewProfileScorer(p config.Profile) *ProfileScorer {
	p = config.NormalizeProfile(p)
	s := &ProfileScorer{
		primary:   compileTerms(p.RequiredKeywords.Primary),
		secondary: compileTerms(p.RequiredKeywords.Secondary),
		negative:  compileTerms(p.NegativeKeywords),
		tiers:     map[string]domain.Tier{},
		comp:      p.Compensation,
		remote:    p.Location.RemoteOnly,
	}
	titles := append(append([]string{}, p.TargetTitles.Primary...), p.TargetTitles.Secondary...)
	s.titles = compileTerms(titles)
	for _, t := range titles {
		if toks := tokens(t); len(toks) > 0 {
			s.titleSets = append(s.titleSets, toks)
		}
	}
	for i, tier := range [][]string{p.TargetCompanies.Tier1, p.TargetCompanies.Tier2, p.TargetCompanies.Tier3} {
		for _, c := range tier {
			key := strings.ToLower(strings.TrimSpace(c))
			if _, ok := s.tiers[key]; !ok {
				s.tiers[key] = domain.Tier(i + 1)
			}
		}
	}
	return s
}

func (s *ProfileScorer) Score(p domain.Posting) domain.MatchResult {
	res := domain.MatchResult{Engine: config.EngineHeuristic}

	for _, n := range s.negative {
		if n.re.MatchString(p.Title) {
			res.NegativeMatches = append(res.NegativeMatches, n.word)
		}
	}

	// description evidence
	var evidence float64
	primaryInDesc := false
	for _, k := range s.primary {
		n := len(k.re.FindAllStringIndex(p.Description, -1))
		if n == 0 {
			continue
		}
		primaryInDesc = true
		res.MatchedPrimary = append(res.MatchedPrimary, k.word)
		res.KeywordCount += n
		res.KeywordVariety++
		evidence += saturate(n)
	}
	for _, k := range s.secondary {
		n := len(k.re.FindAllStringIndex(p.Description, -1))
		if n == 0 {
			continue
		}
		res.MatchedSecondary = append(res.MatchedSecondary, k.word)
		res.KeywordCount += n
		res.KeywordVariety++
		evidence += secondaryShare * saturate(n)
	}

	primaryInTitle := false
	for _, k := range s.primary {
		if k.re.MatchString(p.Title) {
			primaryInTitle = true
			res.MatchedPrimary = append(res.MatchedPrimary, k.word)
		}
	}
	res.MatchedPrimary = uniq(res.MatchedPrimary)

	// title
	for _, t := range s.titles {
		if t.re.MatchString(p.Title) {
			res.MatchedTitle = true
			break
		}
	}
	if res.MatchedTitle {
		res.TitlePartial = 1
	} else {
		res.TitlePartial = s.titleOverlap(p.Title)
	}

	var tier domain.Tier
	if t, ok := s.tiers[strings.ToLower(strings.TrimSpace(p.Company))]; ok {
		tier = t
		res.CompanyTier = &t
	}

	res.SalaryMatch = s.salaryMatch(p)
	res.RemoteMatch = s.remote == nil || !*s.remote || p.Remote

	score := 0.0
	if evidence > 0 {
		score += weightDescription * evidence / (evidence + halfSaturation)
	}
	score += weightTitle * res.TitlePartial
	if catalog := len(s.primary) + len(s.secondary); catalog > 0 {
		score += weightVariety * math.Min(1, float64(res.KeywordVariety)/float64(catalog))
	}
	score += weightTier * tier.Weight()
	if res.SalaryMatch {
		score += weightSalary
	}
	if res.RemoteMatch {
		score += weightRemote
	}
	res.Score = clamp(score)
	res.Band = BandFor(res.Score)

	res.Matched = len(res.NegativeMatches) == 0 &&
		(primaryInDesc || primaryInTitle || res.MatchedTitle || tier != domain.TierNone)
	return res
}

// saturate maps n mentions of one keyword to (0,1); each repeat adds half of
// what the previous one did.
func saturate(n int) float64 {
	return 1 - math.Pow(0.5, float64(n))
}

func (s *ProfileScorer) titleOverlap(title string) float64 {
	have := map[string]bool{}
	for _, t := range tokens(title) {
		have[t] = true
	}
	best := 0.0
	for _, target := range s.titleSets {
		common := 0
		for _, t := range target {
			if have[t] {
				common++
			}
		}
		if r := float64(common) / float64(len(target)); r > best {
			best = r
		}
	}
	return best
}

func (s *ProfileScorer) salaryMatch(p domain.Posting) bool {
	if !p.HasSalary() || (s.comp.MinSalary == 0 && s.comp.MaxSalary == 0) {
		return false
	}
	lo, hi := 0, math.MaxInt
	if p.SalaryMin != nil {
		lo = *p.SalaryMin
	}
	if p.SalaryMax != nil {
		hi = *p.SalaryMax
	}
	if p.SalaryMin == nil {
		lo = hi
	}
	if p.SalaryMax == nil {
		hi = lo
	}
	want := s.comp.MaxSalary
	if want == 0 {
		want = math.MaxInt
	}
	if hi >= s.comp.MinSalary && lo <= want {
		return true
	}
	return s.comp.Flexible
}

// tokens lowercases s and splits it on anything that is not a letter or digit.
func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !isWordRune(r)
	})
}
