package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"jobpilot/internal/classify"
	"jobpilot/internal/collect"
	"jobpilot/internal/collect/mailbox"
	"jobpilot/internal/config"
	"jobpilot/internal/dedup"
	"jobpilot/internal/domain"
	"jobpilot/internal/events"
	"jobpilot/internal/link"
	"jobpilot/internal/logger"
	"jobpilot/internal/metrics"
	"jobpilot/internal/notify"
	"jobpilot/internal/pipeline"
	"jobpilot/internal/rank"
	"jobpilot/internal/secrets"
	"jobpilot/internal/store"
	"jobpilot/internal/store/postgres"
	"jobpilot/internal/tracker"
)

// postingBackend is implemented by both the sqlite and the postgres store.
type postingBackend interface {
	SavePosting(ctx context.Context, sp domain.ScoredPosting, at time.Time) (int64, error)
	SeenSince(ctx context.Context, fp string, since time.Time) (bool, error)
	ListPostings(ctx context.Context, opts store.ListPostingsOpts) ([]store.Posting, error)
	GetPosting(ctx context.Context, id int64) (store.Posting, error)
	DeletePosting(ctx context.Context, id int64) error
	JobCandidates(ctx context.Context) ([]domain.JobCandidate, error)
	CleanupOldPostings(ctx context.Context, olderThan time.Time) (int64, error)
}

// stores holds what dedup.backend selected. Applications always live in the
// local sqlite database.
type stores struct {
	db       *store.DB
	postings postingBackend
	seen     dedup.Store

	pg    *postgres.Store
	redis *dedup.RedisStore
}

func openStores(ctx context.Context, cfg config.Config, log logger.Logger) (*stores, error) {
	log = logger.Component(log, "store")
	dbPath := filepath.Join(cfg.App.DataDir, "jobpilot.db")
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	st := &stores{db: db, postings: db, seen: db}

	switch cfg.Dedup.Backend {
	case config.BackendRedis:
		ttl := time.Duration(cfg.Dedup.LookbackDays) * 24 * time.Hour
		rs, err := dedup.NewRedisStoreFromURL(cfg.Redis.URL, ttl)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		st.redis = rs
		st.seen = rs
	case config.BackendPostgres:
		pg, err := postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		st.pg = pg
		st.postings = pg
		st.seen = pg
	}
	log.Info("stores opened", map[string]interface{}{
		"sqlite":  dbPath,
		"backend": cfg.Dedup.Backend,
	})
	return st, nil
}

func (s *stores) checks() map[string]func(ctx context.Context) error {
	checks := map[string]func(ctx context.Context) error{"sqlite": s.db.Ping}
	if s.redis != nil {
		checks["redis"] = s.redis.Ping
	}
	if s.pg != nil {
		checks["postgres"] = s.pg.Ping
	}
	return checks
}

func (s *stores) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.pg != nil {
		_ = s.pg.Close()
	}
	_ = s.db.Close()
}

func newLinker(cfg config.Config) *link.Linker {
	return link.New(link.NewMatcher(cfg.Linker))
}

// buildDeps returns the per-run factory handed to the runner. It reads the
// live config every time, so edits made through PUT /config apply to the
// next run. Stores and schedules stay as they were at boot.
func (s *stores) buildDeps(cfgVal *atomic.Value, apps *tracker.Service, hub *events.Hub, m *metrics.Metrics, log logger.Logger) func(ctx context.Context) (pipeline.Deps, error) {
	limiter := collect.DefaultLimiter()
	return func(ctx context.Context) (pipeline.Deps, error) {
		cfg := cfgVal.Load().(config.Config)

		lookback := time.Duration(cfg.Dedup.LookbackDays) * 24 * time.Hour
		d := pipeline.Deps{
			Collectors:    collect.FromConfig(cfg, limiter, log),
			SourceTimeout: time.Duration(cfg.Pipeline.SourceTimeoutSeconds) * time.Second,
			Scan: pipeline.NewScan(pipeline.ScanConfig{
				Scorer:         rank.New(cfg.Scoring, log),
				Dedup:          dedup.New(s.seen, lookback),
				Store:          s.postings,
				Notifier:       notify.Multi{notify.HubNotifier{Pub: hub}, notify.LogNotifier{Log: log}},
				NotifyMinScore: cfg.Scoring.NotifyMinScore,
				Workers:        cfg.Pipeline.Workers,
				Metrics:        m,
				Log:            log,
			}),
			Ingest: pipeline.NewIngest(pipeline.IngestConfig{
				Classifier: classify.New(cfg.Email.UserAddress),
				Tracker:    apps,
				Workers:    cfg.Pipeline.Workers,
				Metrics:    m,
				Log:        log,
			}),
		}

		mail, err := mailSource(cfg, log)
		if err != nil {
			return pipeline.Deps{}, err
		}
		if mail != nil {
			d.Mail = mail
		}
		return d, nil
	}
}

// mailSource returns nil when email is off or no password is stored yet.
func mailSource(cfg config.Config, log logger.Logger) (*mailbox.Reader, error) {
	if !cfg.Email.Enabled {
		return nil, nil
	}
	pw, err := secrets.GetIMAPPassword(secrets.IMAPKeyringAccount(cfg))
	if errors.Is(err, secrets.ErrNoPassword) {
		logger.Component(log, "engine").Warn("email enabled but no IMAP password stored", map[string]interface{}{
			"username": cfg.Email.Username,
			"host":     cfg.Email.IMAPHost,
		})
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("imap password: %w", err)
	}
	return mailbox.New(mailbox.Config{
		Host:             cfg.Email.IMAPHost,
		Port:             cfg.Email.IMAPPort,
		Username:         cfg.Email.Username,
		Password:         pw,
		Mailbox:          cfg.Email.Mailbox,
		MaxMessages:      cfg.Email.MaxMessages,
		SearchSubjectAny: cfg.Email.SearchSubjectAny,
	}, log), nil
}
