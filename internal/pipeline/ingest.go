package pipeline

import (
	"context"
	"errors"
	"sort"

	"golang.org/x/sync/errgroup"

	"jobpilot/internal/domain"
	"jobpilot/internal/logger"
	"jobpilot/internal/metrics"
	"jobpilot/internal/tracker"
)

type Classifier interface {
	Classify(e domain.Email) domain.Classification
}

// EmailApplier folds one classified email into application state.
type EmailApplier interface {
	ApplyEmail(ctx context.Context, e domain.Email, c domain.Classification) (tracker.Outcome, error)
}

type IngestConfig struct {
	Classifier Classifier
	Tracker    EmailApplier
	Workers    int
	Metrics    *metrics.Metrics
	Log        logger.Logger
}

type Ingest struct {
	cfg IngestConfig
	log logger.Logger
}

func NewIngest(cfg IngestConfig) *Ingest {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	return &Ingest{cfg: cfg, log: logger.Component(cfg.Log, "pipeline:ingest")}
}

type IngestReport struct {
	Received        int                     `json:"received"`
	Categories      map[domain.Category]int `json:"categories"`
	Unclassified    int                     `json:"unclassified"`
	NoCompany       int                     `json:"no_company"`
	AlreadyIngested int                     `json:"already_ingested"`
	Created         int                     `json:"created"`
	Updated         int                     `json:"updated"`
	Recorded        int                     `json:"recorded"`
	Failures        int                     `json:"failures"`
}

// Run classifies emails in parallel and applies them oldest first, so a
// confirmation lands before the rejection that follows it. A failure on one
// email is counted and the rest still run.
func (in *Ingest) Run(ctx context.Context, emails []domain.Email) (IngestReport, error) {
	defer in.cfg.Metrics.Track("ingest")()
	rep := IngestReport{Received: len(emails), Categories: map[domain.Category]int{}}

	results := make([]domain.Classification, len(emails))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.cfg.Workers)
	for i := range emails {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = in.cfg.Classifier.Classify(emails[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return rep, err
	}

	order := make([]int, len(emails))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return emails[order[a]].ReceivedAt.Before(emails[order[b]].ReceivedAt)
	})

	for _, i := range order {
		e, c := emails[i], results[i]
		rep.Categories[c.Category]++
		if in.cfg.Metrics != nil {
			in.cfg.Metrics.EmailsClassified.WithLabelValues(string(c.Category)).Inc()
		}

		out, err := in.cfg.Tracker.ApplyEmail(ctx, e, c)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return rep, err
			}
			rep.Failures++
			in.log.WithError(err).Warn("apply email failed", map[string]interface{}{
				"message_id": e.MessageID,
				"category":   string(c.Category),
				"company":    c.Company,
			})
			continue
		}

		switch out.Action {
		case tracker.ActionCreated:
			rep.Created++
		case tracker.ActionUpdated:
			rep.Updated++
		case tracker.ActionRecorded:
			rep.Recorded++
		case tracker.ActionSkipped:
			switch out.Reason {
			case tracker.ReasonUnclassified:
				rep.Unclassified++
			case tracker.ReasonNoCompany:
				rep.NoCompany++
			case tracker.ReasonAlreadyIngested:
				rep.AlreadyIngested++
			}
		}
	}

	in.log.Info("ingest finished", map[string]interface{}{
		"received":     rep.Received,
		"created":      rep.Created,
		"updated":      rep.Updated,
		"unclassified": rep.Unclassified,
		"no_company":   rep.NoCompany,
		"failures":     rep.Failures,
	})
	return rep, nil
}
