// Package greenhouse collects postings from public Greenhouse job boards.
package greenhouse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobpilot/internal/collect/util"
	"jobpilot/internal/domain"
	"jobpilot/internal/logger"
)

const DefaultBaseURL = "https://boards.greenhouse.io"

type Company struct {
	Slug string // boards.greenhouse.io/<slug>
	Name string // display name
}

type Config struct {
	Companies []Company
	BaseURL   string
}

type Collector struct {
	cfg     Config
	base    *url.URL
	hc      *http.Client
	limiter *util.HostLimiter
	log     logger.Logger
}

func New(cfg Config, limiter *util.HostLimiter, log logger.Logger) *Collector {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		base, _ = url.Parse(DefaultBaseURL)
	}
	return &Collector{
		cfg:     cfg,
		base:    base,
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
		log:     logger.Component(log, "collect:greenhouse"),
	}
}

func (c *Collector) Name() string { return "greenhouse" }

// Collect fetches every configured board. One board being down does not fail
// the run; an error is returned only when every board failed.
func (c *Collector) Collect(ctx context.Context) ([]domain.Posting, error) {
	var (
		out  []domain.Posting
		errs []error
	)
	for _, co := range c.cfg.Companies {
		jobs, err := c.fetchBoard(ctx, co)
		if err != nil {
			c.log.WithError(err).Warn("board failed", map[string]interface{}{"slug": co.Slug})
			errs = append(errs, err)
			continue
		}
		out = append(out, jobs...)
	}
	if len(errs) > 0 && len(errs) == len(c.cfg.Companies) {
		return nil, errors.Join(errs...)
	}
	c.log.Info("collected", map[string]interface{}{"postings": len(out)})
	return out, nil
}

func (c *Collector) get(ctx context.Context, raw string) (*goquery.Document, error) {
	if err := c.limiter.WaitURL(ctx, raw); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "jobpilot/1.0 (+local)")

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("status %d", res.StatusCode)
	}
	return goquery.NewDocumentFromReader(res.Body)
}

func (c *Collector) fetchBoard(ctx context.Context, co Company) ([]domain.Posting, error) {
	boardURL := c.base.String() + "/" + url.PathEscape(co.Slug)
	doc, err := c.get(ctx, boardURL)
	if err != nil {
		return nil, fmt.Errorf("greenhouse board %s: %w", co.Slug, err)
	}

	name := co.Name
	if name == "" {
		name = co.Slug
	}

	seen := map[string]bool{}
	var jobs []domain.Posting
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs, id := c.jobLink(strings.TrimSpace(href))
		if id == "" {
			return
		}
		atsID := fmt.Sprintf("greenhouse:%s:%s", co.Slug, id)
		if seen[atsID] {
			return
		}
		seen[atsID] = true

		title := util.CleanText(a.Text())
		if looksLikeJunkTitle(title) {
			// the job page has the real title
			title = ""
		}
		jobs = append(jobs, domain.Posting{
			Title:    title,
			Company:  name,
			URL:      abs,
			ApplyURL: abs,
			Source:   "greenhouse",
			Extra:    map[string]string{"ats_job_id": atsID},
		})
	})

	for i := range jobs {
		if err := c.hydrate(ctx, &jobs[i]); err != nil {
			c.log.Debug("job page failed", map[string]interface{}{"url": jobs[i].URL, "error": err.Error()})
		}
	}
	return jobs, nil
}

// jobLink resolves href against the board and returns it with its numeric
// job id when it points at a job on the same host.
func (c *Collector) jobLink(href string) (string, string) {
	if href == "" {
		return "", ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", ""
	}
	abs := c.base.ResolveReference(u)
	if !strings.EqualFold(abs.Host, c.base.Host) {
		return "", ""
	}
	id := extractJobID(abs.Path)
	if id == "" {
		return "", ""
	}
	return util.CanonicalURL(abs.String()), id
}

func (c *Collector) hydrate(ctx context.Context, p *domain.Posting) error {
	doc, err := c.get(ctx, p.URL)
	if err != nil {
		return err
	}
	if p.Title == "" {
		p.Title = util.CleanText(doc.Find("h1").First().Text())
	}
	for _, sel := range []string{".location", ".job__location", "[data-testid='job-location']"} {
		if t := util.CleanText(doc.Find(sel).First().Text()); t != "" {
			p.Location = util.NormalizeLocation(t)
			break
		}
	}
	if sel := doc.Find("#content, .job__description").First(); sel.Length() > 0 {
		if h, err := sel.Html(); err == nil {
			p.Description = util.HTMLToText(h)
		}
	}
	p.Remote = util.IsRemote(p.Location, p.Title)
	return nil
}

func extractJobID(path string) string {
	_, tail, ok := strings.Cut(path, "/jobs/")
	if !ok {
		return ""
	}
	end := 0
	for end < len(tail) && tail[end] >= '0' && tail[end] <= '9' {
		end++
	}
	return tail[:end]
}

func looksLikeJunkTitle(t string) bool {
	l := strings.ToLower(t)
	return l == "" || strings.Contains(l, "view") || strings.Contains(l, "apply")
}
