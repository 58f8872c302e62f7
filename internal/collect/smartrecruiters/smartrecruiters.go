// Package smartrecruiters collects postings from the public SmartRecruiters
// postings API.
package smartrecruiters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"jobpilot/internal/collect/util"
	"jobpilot/internal/domain"
	"jobpilot/internal/logger"
)

const (
	DefaultBaseURL = "https://api.smartrecruiters.com"
	jobsHost       = "https://jobs.smartrecruiters.com"

	pageSize       = 100
	maxOffset      = 5000
	defaultWorkers = 4
	companyTimeout = 20 * time.Second
)

type Company struct {
	Slug string // jobs.smartrecruiters.com/<slug>
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
		hc:      &http.Client{Timeout: 25 * time.Second},
		limiter: limiter,
		log:     logger.Component(log, "collect:smartrecruiters"),
	}
}

func (c *Collector) Name() string { return "smartrecruiters" }

type page struct {
	Content    []srPosting `json:"content"`
	TotalFound int         `json:"totalFound"`
}

type srPosting struct {
	ID           string    `json:"id"`
	UUID         string    `json:"uuid"`
	Ref          string    `json:"ref"`
	Name         string    `json:"name"`
	ReleasedDate time.Time `json:"releasedDate"`
	Location     struct {
		City    string `json:"city"`
		Region  string `json:"region"`
		Country string `json:"country"`
		Remote  bool   `json:"remote"`
	} `json:"location"`
	Department struct {
		Label string `json:"label"`
	} `json:"department"`
	TypeOfEmployment struct {
		Label string `json:"label"`
	} `json:"typeOfEmployment"`
}

// Collect pages through every company concurrently. Results keep the
// configured company order; a company that fails part way keeps the pages
// it already read. An error is returned only when every company failed.
func (c *Collector) Collect(ctx context.Context) ([]domain.Posting, error) {
	companies := c.cfg.Companies
	results := make([][]domain.Posting, len(companies))
	errs := make([]error, len(companies))

	g := new(errgroup.Group)
	g.SetLimit(c.cfg.Workers)
	for i, co := range companies {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, companyTimeout)
			defer cancel()
			jobs, err := c.fetchCompany(cctx, co)
			results[i] = jobs
			if err != nil {
				c.log.WithError(err).Warn("company failed", map[string]interface{}{
					"company": co.Name,
					"slug":    co.Slug,
					"kept":    len(jobs),
				})
				errs[i] = err
			}
			return nil
		})
	}
	_ = g.Wait()

	var out []domain.Posting
	failed := 0
	for i := range companies {
		if errs[i] != nil {
			failed++
		}
		out = append(out, results[i]...)
	}
	if len(companies) > 0 && failed == len(companies) && len(out) == 0 {
		return nil, errors.Join(errs...)
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	c.log.Info("collected", map[string]interface{}{"postings": len(out)})
	return out, nil
}

func (c *Collector) fetchCompany(ctx context.Context, co Company) ([]domain.Posting, error) {
	slug := strings.TrimSpace(co.Slug)
	if slug == "" {
		return nil, errors.New("empty slug")
	}
	name := co.Name
	if name == "" {
		name = slug
	}
	base := fmt.Sprintf("%s/v1/companies/%s/postings", c.cfg.BaseURL, url.PathEscape(slug))

	var out []domain.Posting
	for offset := 0; offset <= maxOffset; offset += pageSize {
		pg, err := c.fetchPage(ctx, fmt.Sprintf("%s?limit=%d&offset=%d", base, pageSize, offset))
		if err != nil {
			return out, err
		}
		for _, p := range pg.Content {
			if sp, ok := toPosting(name, slug, p); ok {
				out = append(out, sp)
			}
		}
		if len(pg.Content) < pageSize || (pg.TotalFound > 0 && offset+pageSize >= pg.TotalFound) {
			break
		}
	}
	return out, nil
}

func (c *Collector) fetchPage(ctx context.Context, u string) (page, error) {
	var pg page
	if err := c.limiter.WaitURL(ctx, u); err != nil {
		return pg, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return pg, err
	}
	req.Header.Set("User-Agent", "jobpilot/1.0 (+local)")
	req.Header.Set("Accept", "application/json")

	res, err := c.hc.Do(req)
	if err != nil {
		return pg, fmt.Errorf("smartrecruiters get: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return pg, fmt.Errorf("smartrecruiters status %d", res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(&pg); err != nil {
		return pg, fmt.Errorf("smartrecruiters decode: %w", err)
	}
	return pg, nil
}

func toPosting(company, slug string, p srPosting) (domain.Posting, bool) {
	title := util.CleanText(p.Name)
	id := firstNonEmpty(p.ID, p.UUID, p.Ref)
	if title == "" || id == "" {
		return domain.Posting{}, false
	}

	loc := util.NormalizeLocation(strings.Join(nonEmpty(p.Location.City, p.Location.Region, p.Location.Country), ", "))
	out := domain.Posting{
		Title:    title,
		Company:  company,
		URL:      fmt.Sprintf("%s/%s/%s", jobsHost, url.PathEscape(slug), url.PathEscape(id)),
		Source:   "smartrecruiters",
		Location: loc,
		Remote:   p.Location.Remote || util.IsRemote(loc, title),
		Extra: map[string]string{
			"ats_job_id": fmt.Sprintf("smartrecruiters:%s:%s", slug, id),
		},
	}
	if d := strings.TrimSpace(p.Department.Label); d != "" {
		out.Extra["team"] = d
	}
	if e := strings.TrimSpace(p.TypeOfEmployment.Label); e != "" {
		out.Extra["commitment"] = e
	}
	if !p.ReleasedDate.IsZero() {
		t := p.ReleasedDate.UTC()
		out.PostedAt = &t
	}
	return out, true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(vals ...string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
