// Package collect defines the posting sources and builds the enabled ones
// from config.
package collect

import (
	"context"

	"jobpilot/internal/collect/greenhouse"
	"jobpilot/internal/collect/lever"
	"jobpilot/internal/collect/smartrecruiters"
	"jobpilot/internal/collect/util"
	"jobpilot/internal/config"
	"jobpilot/internal/domain"
	"jobpilot/internal/logger"
)

// Collector fetches the current postings of one source.
type Collector interface {
	Name() string
	Collect(ctx context.Context) ([]domain.Posting, error)
}

// DefaultLimiter allows 2 requests per second per host, burst 4.
func DefaultLimiter() *util.HostLimiter {
	return util.NewHostLimiter(2, 4)
}

// FromConfig returns the enabled collectors that have at least one company.
func FromConfig(cfg config.Config, limiter *util.HostLimiter, log logger.Logger) []Collector {
	var out []Collector
	if gh := cfg.Sources.Greenhouse; gh.Enabled && len(gh.Companies) > 0 {
		companies := make([]greenhouse.Company, 0, len(gh.Companies))
		for _, c := range gh.Companies {
			companies = append(companies, greenhouse.Company{Slug: c.Slug, Name: c.Name})
		}
		out = append(out, greenhouse.New(greenhouse.Config{Companies: companies}, limiter, log))
	}
	if lv := cfg.Sources.Lever; lv.Enabled && len(lv.Companies) > 0 {
		companies := make([]lever.Company, 0, len(lv.Companies))
		for _, c := range lv.Companies {
			companies = append(companies, lever.Company{Slug: c.Slug, Name: c.Name})
		}
		out = append(out, lever.New(lever.Config{
			Companies: companies,
			Workers:   cfg.Pipeline.Workers,
		}, limiter, log))
	}
	if sr := cfg.Sources.SmartRecruiters; sr.Enabled && len(sr.Companies) > 0 {
		companies := make([]smartrecruiters.Company, 0, len(sr.Companies))
		for _, c := range sr.Companies {
			companies = append(companies, smartrecruiters.Company{Slug: c.Slug, Name: c.Name})
		}
		out = append(out, smartrecruiters.New(smartrecruiters.Config{Companies: companies}, limiter, log))
	}
	return out
}

// Func adapts a function to Collector.
type Func struct {
	Source string
	Fn     func(ctx context.Context) ([]domain.Posting, error)
}

func (f Func) Name() string { return f.Source }

func (f Func) Collect(ctx context.Context) ([]domain.Posting, error) { return f.Fn(ctx) }
