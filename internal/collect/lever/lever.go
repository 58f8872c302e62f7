// Package lever collects postings from the public Lever postings API.
package lever

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"jobpilot/internal/collect/util"
	"jobpilot/internal/domain"
	"jobpilot/internal/logger"
)

const (
	DefaultBaseURL = "https://api.lever.co"
	defaultWorkers = 8
	companyTimeout = 10 * time.Second
)

type Company struct {
	Slug string // api.lever.co/v0/postings/<slug>
	Name string
}

type Config struct {
	Companies []Company
	BaseURL   string
	Workers   int
}

type Collector struct {
	cfg     Config
	hc      *http.Client
	limiter *util.HostLimiter
	log     logger.Logger
}

func New(cfg Config, limiter *util.HostLimiter, log logger.Logger) *Collector {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &Collector{
		cfg:     cfg,
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
		log:     logger.Component(log, "collect:lever"),
	}
}

func (c *Collector) Name() string { return "lever" }

type leverPosting struct {
	ID               string `json:"id"`
	Text             string `json:"text"` // title
	HostedURL        string `json:"hostedUrl"`
	ApplyURL         string `json:"applyUrl"`
	CreatedAt        int64  `json:"createdAt"` // ms epoch
	WorkplaceType    string `json:"workplaceType"`
	Description      string `json:"description"` // html
	DescriptionPlain string `json:"descriptionPlain"`
	Categories       struct {
		Location   string `json:"location"`
		Team       string `json:"team"`
		Commitment string `json:"commitment"`
	} `json:"categories"`
	SalaryRange *struct {
		Min      int    `json:"min"`
		Max      int    `json:"max"`
		Currency string `json:"currency"`
		Interval string `json:"interval"`
	} `json:"salaryRange"`
}

// Collect queries every company on a small worker pool. Results keep the
// configured company order. Failed companies are logged and skipped; an
// error is returned only when all of them failed.
func (c *Collector) Collect(ctx context.Context) ([]domain.Posting, error) {
	companies := c.cfg.Companies
	results := make([][]domain.Posting, len(companies))
	errs := make([]error, len(companies))
	workCh := make(chan int)

	var wg sync.WaitGroup
	for i := 0; i < c.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workCh {
				co := companies[idx]
				cctx, cancel := context.WithTimeout(ctx, companyTimeout)
				jobs, err := c.fetchCompany(cctx, co)
				cancel()
				if err != nil {
					c.log.WithError(err).Warn("company failed", map[string]interface{}{
						"company": co.Name,
						"slug":    co.Slug,
					})
					errs[idx] = err
					continue
				}
				results[idx] = jobs
			}
		}()
	}

	go func() {
		defer close(workCh)
		for i := range companies {
			select {
			case <-ctx.Done():
				return
			case workCh <- i:
			}
		}
	}()
	wg.Wait()

	var out []domain.Posting
	failed := 0
	for i := range companies {
		if errs[i] != nil {
			failed++
		}
		out = append(out, results[i]...)
	}
	if len(companies) > 0 && failed == len(companies) {
		return nil, errors.Join(errs...)
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	c.log.Info("collected", map[string]interface{}{"postings": len(out)})
	return out, nil
}

func (c *Collector) fetchCompany(ctx context.Context, co Company) ([]domain.Posting, error) {
	apiURL := fmt.Sprintf("%s/v0/postings/%s?mode=json", c.cfg.BaseURL, url.PathEscape(co.Slug))
	if err := c.limiter.WaitURL(ctx, apiURL); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "jobpilot/1.0 (+local)")

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lever get: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("lever status %d", res.StatusCode)
	}

	var postings []leverPosting
	if err := json.NewDecoder(res.Body).Decode(&postings); err != nil {
		return nil, fmt.Errorf("lever decode: %w", err)
	}

	name := co.Name
	if name == "" {
		name = co.Slug
	}
	out := make([]domain.Posting, 0, len(postings))
	for _, p := range postings {
		if p.ID == "" || p.HostedURL == "" || strings.TrimSpace(p.Text) == "" {
			continue
		}
		out = append(out, toPosting(name, co.Slug, p))
	}
	return out, nil
}

func toPosting(company, slug string, p leverPosting) domain.Posting {
	title := util.CleanText(p.Text)
	loc := util.NormalizeLocation(p.Categories.Location)
	desc := strings.TrimSpace(p.DescriptionPlain)
	if desc == "" {
		desc = util.HTMLToText(p.Description)
	}

	out := domain.Posting{
		Title:       title,
		Company:     company,
		URL:         util.CanonicalURL(p.HostedURL),
		ApplyURL:    p.ApplyURL,
		Source:      "lever",
		Location:    loc,
		Description: desc,
		Remote:      strings.EqualFold(p.WorkplaceType, "remote") || util.IsRemote(loc, title),
		Extra: map[string]string{
			"ats_job_id": fmt.Sprintf("lever:%s:%s", slug, p.ID),
		},
	}
	if p.Categories.Team != "" {
		out.Extra["team"] = p.Categories.Team
	}
	if p.Categories.Commitment != "" {
		out.Extra["commitment"] = p.Categories.Commitment
	}
	if p.CreatedAt > 0 {
		t := time.UnixMilli(p.CreatedAt).UTC()
		out.PostedAt = &t
	}
	// only yearly ranges are comparable with the profile
	if s := p.SalaryRange; s != nil && (s.Interval == "" || strings.Contains(strings.ToLower(s.Interval), "year")) {
		if s.Min > 0 {
			v := s.Min
			out.SalaryMin = &v
		}
		if s.Max > 0 {
			v := s.Max
			out.SalaryMax = &v
		}
	}
	return out
}
