package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// trimList drops blanks and case-insensitive duplicates, keeping first spelling.
func trimList(xs []string) []string {
	seen := map[string]bool{}
	var ys []string
	for _, x := range xs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		key := strings.ToLower(x)
		if seen[key] {
			continue
		}
		seen[key] = true
		ys = append(ys, x)
	}
	return ys
}

func trimCompanies(cs []BoardCompany) []BoardCompany {
	seen := map[string]bool{}
	var out []BoardCompany
	for _, c := range cs {
		c.Slug = strings.TrimSpace(c.Slug)
		c.Name = strings.TrimSpace(c.Name)
		if c.Slug == "" || seen[strings.ToLower(c.Slug)] {
			continue
		}
		seen[strings.ToLower(c.Slug)] = true
		if c.Name == "" {
			c.Name = c.Slug
		}
		out = append(out, c)
	}
	return out
}

// NormalizeProfile returns the profile with every list trimmed and de-duplicated.
func NormalizeProfile(p Profile) Profile {
	p.TargetTitles.Primary = trimList(p.TargetTitles.Primary)
	p.TargetTitles.Secondary = trimList(p.TargetTitles.Secondary)
	p.RequiredKeywords.Primary = trimList(p.RequiredKeywords.Primary)
	p.RequiredKeywords.Secondary = trimList(p.RequiredKeywords.Secondary)
	p.NegativeKeywords = trimList(p.NegativeKeywords)
	p.TargetCompanies.Tier1 = trimList(p.TargetCompanies.Tier1)
	p.TargetCompanies.Tier2 = trimList(p.TargetCompanies.Tier2)
	p.TargetCompanies.Tier3 = trimList(p.TargetCompanies.Tier3)
	return p
}

// NormalizeAndValidate returns a normalized copy plus soft and hard findings.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	out.Scoring.Profile = NormalizeProfile(out.Scoring.Profile)
	out.Scoring.Engine = strings.ToLower(strings.TrimSpace(out.Scoring.Engine))
	out.Dedup.Backend = strings.ToLower(strings.TrimSpace(out.Dedup.Backend))
	out.Linker.Strategy = strings.ToLower(strings.TrimSpace(out.Linker.Strategy))
	out.Email.SearchSubjectAny = trimList(out.Email.SearchSubjectAny)
	out.Sources.Greenhouse.Companies = trimCompanies(out.Sources.Greenhouse.Companies)
	out.Sources.Lever.Companies = trimCompanies(out.Sources.Lever.Companies)
	out.Sources.SmartRecruiters.Companies = trimCompanies(out.Sources.SmartRecruiters.Companies)

	if err := Validate(out); err != nil {
		for _, line := range strings.Split(strings.TrimPrefix(err.Error(), validationPrefix), "\n- ") {
			if line = strings.TrimSpace(line); line != "" {
				res.addErr("%s", line)
			}
		}
	}

	// ---- soft findings ----

	p := out.Scoring.Profile
	if len(p.RequiredKeywords.Primary) == 0 {
		res.addWarn("scoring.profile.required_keywords.primary is empty; postings can only match on title or company tier.")
	}
	if len(p.TargetTitles.Primary)+len(p.TargetTitles.Secondary) == 0 {
		res.addWarn("scoring.profile.target_titles is empty; title relevance will always be 0.")
	}
	if out.Scoring.Engine != EngineHeuristic && out.Scoring.Engine != EngineRules && out.Scoring.Engine != "" {
		res.addWarn("scoring.engine %q is not available; the heuristic engine will be used.", out.Scoring.Engine)
	}

	negSet := map[string]bool{}
	for _, n := range p.NegativeKeywords {
		negSet[strings.ToLower(n)] = true
	}
	for _, k := range append(append([]string{}, p.RequiredKeywords.Primary...), p.RequiredKeywords.Secondary...) {
		if negSet[strings.ToLower(k)] {
			res.addWarn("keyword appears in both required and negative lists: %q", k)
		}
	}

	tierOf := map[string]int{}
	for i, tier := range [][]string{p.TargetCompanies.Tier1, p.TargetCompanies.Tier2, p.TargetCompanies.Tier3} {
		for _, c := range tier {
			key := strings.ToLower(c)
			if prev, ok := tierOf[key]; ok {
				res.addWarn("company %q is listed in tier%d and tier%d; tier%d wins.", c, prev, i+1, prev)
				continue
			}
			tierOf[key] = i + 1
		}
	}

	if out.Email.Enabled && len(out.Email.SearchSubjectAny) == 0 {
		res.addWarn("email.search_subject_any is empty; every unseen message will be classified.")
	}
	if out.Sources.Greenhouse.Enabled && len(out.Sources.Greenhouse.Companies) == 0 {
		res.addWarn("sources.greenhouse is enabled but has no companies.")
	}
	if out.Sources.Lever.Enabled && len(out.Sources.Lever.Companies) == 0 {
		res.addWarn("sources.lever is enabled but has no companies.")
	}
	if out.Sources.SmartRecruiters.Enabled && len(out.Sources.SmartRecruiters.Companies) == 0 {
		res.addWarn("sources.smartrecruiters is enabled but has no companies.")
	}
	if out.Pipeline.Workers > 64 {
		res.addWarn("pipeline.workers is %d; scoring is CPU bound and rarely benefits beyond the core count.", out.Pipeline.Workers)
	}

	return out, res
}

func validSchedule(spec string) bool {
	_, err := cron.ParseStandard(spec)
	return err == nil
}
