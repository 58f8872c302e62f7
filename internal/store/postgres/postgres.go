// Package postgres stores postings and their fingerprints in PostgreSQL for
// setups that share one posting catalog between machines. Applications stay
// in the local SQLite database.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"jobpilot/internal/domain"
	"jobpilot/internal/store"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Open connects through the pgx database/sql driver, pings and migrates.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

const schema = `
CREATE TABLE IF NOT EXISTS postings (
  id BIGSERIAL PRIMARY KEY,
  fingerprint TEXT NOT NULL,
  company TEXT NOT NULL,
  title TEXT NOT NULL,
  location TEXT NOT NULL DEFAULT '',
  url TEXT NOT NULL DEFAULT '',
  apply_url TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  salary_min INTEGER,
  salary_max INTEGER,
  remote BOOLEAN NOT NULL DEFAULT FALSE,
  posted_at TIMESTAMPTZ,
  score DOUBLE PRECISION NOT NULL DEFAULT 0,
  band TEXT NOT NULL DEFAULT '',
  matched BOOLEAN NOT NULL DEFAULT FALSE,
  match_json JSONB NOT NULL DEFAULT '{}',
  discovered_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_postings_fp ON postings (fingerprint, discovered_at);
CREATE INDEX IF NOT EXISTS idx_postings_discovered ON postings (discovered_at);`

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

func (s *Store) SavePosting(ctx context.Context, sp domain.ScoredPosting, at time.Time) (int64, error) {
	matchJSON, err := json.Marshal(sp.Match)
	if err != nil {
		return 0, err
	}
	p := sp.Posting
	var id int64
	err = s.db.QueryRowContext(ctx, `
INSERT INTO postings (fingerprint, company, title, location, url, apply_url, source, description,
  salary_min, salary_max, remote, posted_at, score, band, matched, match_json, discovered_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING id`,
		sp.Fingerprint, p.Company, p.Title, p.Location, p.URL, p.ApplyURL, p.Source, p.Description,
		p.SalaryMin, p.SalaryMax, p.Remote, p.PostedAt, sp.Match.Score, string(sp.Match.Band),
		sp.Match.Matched, string(matchJSON), at.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert posting: %w", err)
	}
	return id, nil
}

func (s *Store) SeenSince(ctx context.Context, fp string, since time.Time) (bool, error) {
	var seen bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM postings WHERE fingerprint = $1 AND discovered_at >= $2)`,
		fp, since.UTC(),
	).Scan(&seen)
	if err != nil {
		return false, fmt.Errorf("seen since: %w", err)
	}
	return seen, nil
}

const cols = `id, fingerprint, company, title, location, url, apply_url, source, description,
  salary_min, salary_max, remote, posted_at, score, band, matched, match_json, discovered_at`

func scan(row interface{ Scan(...any) error }) (store.Posting, error) {
	var (
		p          store.Posting
		smin, smax sql.NullInt64
		posted     sql.NullTime
		band       string
		matchJSON  []byte
	)
	if err := row.Scan(&p.ID, &p.Fingerprint, &p.Company, &p.Title, &p.Location, &p.URL, &p.ApplyURL,
		&p.Source, &p.Description, &smin, &smax, &p.Remote, &posted, &p.Score, &band, &p.Matched,
		&matchJSON, &p.DiscoveredAt); err != nil {
		return store.Posting{}, err
	}
	if smin.Valid {
		v := int(smin.Int64)
		p.SalaryMin = &v
	}
	if smax.Valid {
		v := int(smax.Int64)
		p.SalaryMax = &v
	}
	if posted.Valid {
		t := posted.Time
		p.PostedAt = &t
	}
	p.Band = domain.Band(band)
	_ = json.Unmarshal(matchJSON, &p.Match)
	return p, nil
}

func (s *Store) ListPostings(ctx context.Context, opts store.ListPostingsOpts) ([]store.Posting, error) {
	order := map[string]string{
		"score":   "score DESC, discovered_at DESC",
		"date":    "discovered_at DESC",
		"company": "lower(company) ASC, title ASC",
		"title":   "lower(title) ASC",
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
		since = s.now().Add(-24 * time.Hour)
	case "30d":
		since = s.now().Add(-30 * 24 * time.Hour)
	case "all":
	default:
		since = s.now().Add(-7 * 24 * time.Hour)
	}

	query := `SELECT ` + cols + ` FROM postings WHERE discovered_at >= $1`
	args := []any{since.UTC()}
	if opts.Band != "" {
		args = append(args, opts.Band)
		query += fmt.Sprintf(` AND band = $%d`, len(args))
	}
	args = append(args, opts.Limit)
	query += fmt.Sprintf(` ORDER BY %s LIMIT $%d`, order, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list postings: %w", err)
	}
	defer rows.Close()

	var out []store.Posting
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetPosting(ctx context.Context, id int64) (store.Posting, error) {
	p, err := scan(s.db.QueryRowContext(ctx, `SELECT `+cols+` FROM postings WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return store.Posting{}, domain.ErrNotFound
	}
	return p, err
}

func (s *Store) DeletePosting(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM postings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) JobCandidates(ctx context.Context) ([]domain.JobCandidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, company, title, description, discovered_at FROM postings ORDER BY discovered_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("job candidates: %w", err)
	}
	defer rows.Close()

	var out []domain.JobCandidate
	for rows.Next() {
		var c domain.JobCandidate
		if err := rows.Scan(&c.ID, &c.Company, &c.Title, &c.Description, &c.DiscoveredAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CleanupOldPostings deletes postings discovered before olderThan.
func (s *Store) CleanupOldPostings(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM postings WHERE discovered_at < $1`, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup old postings: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
