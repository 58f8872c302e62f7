// Package pipeline runs collected postings through scoring, dedup, storage
// and notification, and classified emails through application tracking.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"jobpilot/internal/dedup"
	"jobpilot/internal/domain"
	"jobpilot/internal/logger"
	"jobpilot/internal/metrics"
	"jobpilot/internal/notify"
	"jobpilot/internal/rank"
)

// PostingStore persists scored postings.
type PostingStore interface {
	SavePosting(ctx context.Context, sp domain.ScoredPosting, at time.Time) (int64, error)
}

type ScanConfig struct {
	Scorer         rank.Scorer
	Dedup          *dedup.Deduplicator
	Store          PostingStore
	Notifier       notify.Notifier
	NotifyMinScore int
	Workers        int
	Metrics        *metrics.Metrics
	Log            logger.Logger
}

type Scan struct {
	cfg ScanConfig
	log logger.Logger
	now func() time.Time
}

func NewScan(cfg ScanConfig) *Scan {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.Dedup == nil {
		cfg.Dedup = dedup.New(nil, 0)
	}
	return &Scan{cfg: cfg, log: logger.Component(cfg.Log, "pipeline:scan"), now: time.Now}
}

type ScanReport struct {
	Received       int      `json:"received"`
	Invalid        int      `json:"invalid"`
	InvalidReasons []string `json:"invalid_reasons,omitempty"`
	Unmatched      int      `json:"unmatched"`
	NotRetained    int      `json:"not_retained"`
	Duplicates     int      `json:"duplicates"`
	Saved          int      `json:"saved"`
	Notified       int      `json:"notified"`
	SaveFailures   int      `json:"save_failures"`
}

// Run scores postings in parallel, then walks them in input order through
// dedup, storage and the notification gate. A dedup store failure stops the
// walk and is returned with the partial report; postings after it are not
// persisted.
func (s *Scan) Run(ctx context.Context, postings []domain.Posting) (ScanReport, error) {
	defer s.cfg.Metrics.Track("scan")()
	rep := ScanReport{Received: len(postings)}

	valid := make([]domain.Posting, 0, len(postings))
	for _, p := range postings {
		if err := p.Validate(); err != nil {
			rep.Invalid++
			rep.InvalidReasons = append(rep.InvalidReasons, fmt.Sprintf("%s (%s)", err, p.URL))
			continue
		}
		valid = append(valid, p)
	}

	scored := make([]domain.ScoredPosting, len(valid))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i := range valid {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scored[i] = domain.ScoredPosting{
				Posting:     valid[i],
				Match:       s.cfg.Scorer.Score(valid[i]),
				Fingerprint: dedup.Fingerprint(valid[i]),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return rep, err
	}

	batch := s.cfg.Dedup.NewBatch()
	recorder, _ := s.cfg.Dedup.Store().(dedup.Recorder)
	for _, sp := range scored {
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.PostingsScored.WithLabelValues(string(sp.Match.Band)).Inc()
		}
		if !sp.Match.Matched {
			rep.Unmatched++
			continue
		}
		if !rank.Retained(sp.Match.Score) {
			rep.NotRetained++
			continue
		}

		dup, err := batch.Check(ctx, sp.Fingerprint)
		if err != nil {
			s.log.WithError(err).Error("dedup store unavailable, halting batch", map[string]interface{}{
				"saved": rep.Saved,
			})
			return rep, err
		}
		if dup {
			rep.Duplicates++
			if s.cfg.Metrics != nil {
				s.cfg.Metrics.Duplicates.Inc()
			}
			continue
		}

		at := s.now()
		id, err := s.cfg.Store.SavePosting(ctx, sp, at)
		if err != nil {
			rep.SaveFailures++
			s.log.WithError(err).Warn("save failed", map[string]interface{}{
				"company": sp.Posting.Company,
				"title":   sp.Posting.Title,
			})
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return rep, err
			}
			continue
		}
		batch.Mark(sp.Fingerprint)
		if recorder != nil {
			if err := recorder.Remember(ctx, sp.Fingerprint, at); err != nil {
				s.log.WithError(err).Warn("remember fingerprint", map[string]interface{}{"id": id})
			}
		}
		rep.Saved++
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.PostingsSaved.Inc()
		}

		if s.cfg.Notifier != nil && notify.ShouldNotify(sp.Match, s.cfg.NotifyMinScore) {
			if err := s.cfg.Notifier.Notify(ctx, sp); err != nil {
				s.log.WithError(err).Warn("notify failed", map[string]interface{}{"id": id})
				continue
			}
			rep.Notified++
			if s.cfg.Metrics != nil {
				s.cfg.Metrics.Notifications.Inc()
			}
		}
	}

	s.log.Info("scan finished", map[string]interface{}{
		"received":     rep.Received,
		"invalid":      rep.Invalid,
		"unmatched":    rep.Unmatched,
		"not_retained": rep.NotRetained,
		"duplicates":   rep.Duplicates,
		"saved":        rep.Saved,
		"notified":     rep.Notified,
	})
	return rep, nil
}
