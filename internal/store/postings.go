package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jobpilot/internal/domain"
)

// Posting is a persisted, scored posting.
type Posting struct {
	ID           int64              `json:"id"`
	Fingerprint  string             `json:"fingerprint"`
	Company      string             `json:"company"`
	Title        string             `json:"title"`
	Location     string             `json:"location"`
	URL          string             `json:"url"`
	ApplyURL     string             `json:"apply_url,omitempty"`
	Source       string             `json:"source"`
	Description  string             `json:"description,omitempty"`
	SalaryMin    *int               `json:"salary_min,omitempty"`
	SalaryMax    *int               `json:"salary_max,omitempty"`
	Remote       bool               `json:"remote"`
	PostedAt     *time.Time         `json:"posted_at,omitempty"`
	Score        float64            `json:"score"`
	Band         domain.Band        `json:"band"`
	Matched      bool               `json:"matched"`
	Match        domain.MatchResult `json:"match"`
	DiscoveredAt time.Time          `json:"discovered_at"`
}

type ListPostingsOpts struct {
	Sort   string // score | date | company | title
	Window string // 24h | 7d | 30d | all
	Band   string
	Limit  int
}

// SavePosting inserts sp as discovered at at and returns its id.
func (d *DB) SavePosting(ctx context.Context, sp domain.ScoredPosting, at time.Time) (int64, error) {
	matchJSON, err := json.Marshal(sp.Match)
	if err != nil {
		return 0, err
	}
	p := sp.Posting
	res, err := d.Pool.ExecContext(ctx, `
INSERT INTO postings (fingerprint, company, title, location, url, apply_url, source, description,
  salary_min, salary_max, remote, posted_at, score, band, matched, match_json, discovered_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		sp.Fingerprint, p.Company, p.Title, p.Location, p.URL, p.ApplyURL, p.Source, p.Description,
		nullInt(p.SalaryMin), nullInt(p.SalaryMax), p.Remote, nullTime(p.PostedAt),
		sp.Match.Score, string(sp.Match.Band), sp.Match.Matched, string(matchJSON), formatTime(at),
	)
	if err != nil {
		return 0, fmt.Errorf("insert posting: %w", err)
	}
	return res.LastInsertId()
}

// SeenSince reports whether a posting with fingerprint fp was discovered at or
// after since.
func (d *DB) SeenSince(ctx context.Context, fp string, since time.Time) (bool, error) {
	var one int
	err := d.Pool.QueryRowContext(ctx, `
SELECT 1 FROM postings
WHERE fingerprint = ? AND discovered_at >= ?
LIMIT 1;`, fp, formatTime(since)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("seen since: %w", err)
	}
	return true, nil
}

const postingCols = `id, fingerprint, company, title, location, url, apply_url, source, description,
  salary_min, salary_max, remote, posted_at, score, band, matched, match_json, discovered_at`

func scanPosting(row interface{ Scan(...any) error }) (Posting, error) {
	var (
		p                  Posting
		smin, smax         sql.NullInt64
		posted             sql.NullString
		band, matchJSON, d string
	)
	if err := row.Scan(&p.ID, &p.Fingerprint, &p.Company, &p.Title, &p.Location, &p.URL, &p.ApplyURL,
		&p.Source, &p.Description, &smin, &smax, &p.Remote, &posted, &p.Score, &band, &p.Matched,
		&matchJSON, &d); err != nil {
		return Posting{}, err
	}
	p.SalaryMin, p.SalaryMax = intPtr(smin), intPtr(smax)
	p.PostedAt = timePtr(posted)
	p.Band = domain.Band(band)
	p.DiscoveredAt = parseTime(d)
	_ = json.Unmarshal([]byte(matchJSON), &p.Match)
	return p, nil
}

func (d *DB) GetPosting(ctx context.Context, id int64) (Posting, error) {
	p, err := scanPosting(d.Pool.QueryRowContext(ctx, `SELECT `+postingCols+` FROM postings WHERE id = ?;`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Posting{}, domain.ErrNotFound
	}
	return p, err
}

func (d *DB) ListPostings(ctx context.Context, opts ListPostingsOpts) ([]Posting, error) {
	// whitelist sort columns (prevents SQL injection)
	order := map[string]string{
		"score":   "score DESC, discovered_at DESC",
		"date":    "discovered_at DESC",
		"company": "company COLLATE NOCASE ASC, title ASC",
		"title":   "title COLLATE NOCASE ASC",
	}[opts.Sort]
	if order == "" {
		order = "score DESC, discovered_at DESC"
	}
	if opts.Limit <= 0 || opts.Limit > 2000 {
		opts.Limit = 500
	}

	var since time.Time
	switch opts.Window {
	case "24h":
		since = d.now().Add(-24 * time.Hour)
	case "30d":
		since = d.now().Add(-30 * 24 * time.Hour)
	case "all":
	default:
		since = d.now().Add(-7 * 24 * time.Hour)
	}

	query := `SELECT ` + postingCols + ` FROM postings WHERE discovered_at >= ?`
	args := []any{formatTime(since)}
	if opts.Band != "" {
		query += ` AND band = ?`
		args = append(args, opts.Band)
	}
	query += ` ORDER BY ` + order + ` LIMIT ?;`
	args = append(args, opts.Limit)

	rows, err := d.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *DB) DeletePosting(ctx context.Context, id int64) error {
	res, err := d.Pool.ExecContext(ctx, `DELETE FROM postings WHERE id = ?;`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// JobCandidates returns every stored posting as a link candidate.
func (d *DB) JobCandidates(ctx context.Context) ([]domain.JobCandidate, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT id, company, title, description, discovered_at
FROM postings
ORDER BY discovered_at DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.JobCandidate
	for rows.Next() {
		var c domain.JobCandidate
		var at string
		if err := rows.Scan(&c.ID, &c.Company, &c.Title, &c.Description, &at); err != nil {
			return nil, err
		}
		c.DiscoveredAt = parseTime(at)
		out = append(out, c)
	}
	return out, rows.Err()
}

// CleanupOldPostings deletes postings discovered before olderThan. Postings an
// application links to are kept.
func (d *DB) CleanupOldPostings(ctx context.Context, olderThan time.Time) (deleted int64, err error) {
	res, err := d.Pool.ExecContext(ctx, `
DELETE FROM postings
WHERE discovered_at < ?
  AND id NOT IN (SELECT job_id FROM applications WHERE job_id IS NOT NULL);`, formatTime(olderThan))
	if err != nil {
		return 0, fmt.Errorf("cleanup old postings: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
