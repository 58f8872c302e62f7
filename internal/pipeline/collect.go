package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"jobpilot/internal/collect"
	"jobpilot/internal/domain"
	"jobpilot/internal/logger"
	"jobpilot/internal/metrics"
)

const defaultSourceTimeout = 5 * time.Minute

// Collect runs every collector concurrently, each under its own timeout.
// Failed sources are logged and skipped. Postings come back grouped in
// collector order.
func Collect(ctx context.Context, collectors []collect.Collector, timeout time.Duration, m *metrics.Metrics, log logger.Logger) []domain.Posting {
	log = logger.Component(log, "pipeline:collect")
	if timeout <= 0 {
		timeout = defaultSourceTimeout
	}

	results := make([][]domain.Posting, len(collectors))
	var g errgroup.Group
	for i, c := range collectors {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			postings, err := c.Collect(cctx)
			if err != nil {
				if m != nil {
					m.SourceErrors.WithLabelValues(c.Name()).Inc()
				}
				log.WithError(err).Warn("source failed", map[string]interface{}{
					"source":   c.Name(),
					"postings": len(postings),
				})
				// partial results from a timed out source are still usable
				results[i] = postings
				return nil
			}
			if m != nil {
				m.PostingsCollected.WithLabelValues(c.Name()).Add(float64(len(postings)))
			}
			log.Info("source done", map[string]interface{}{
				"source":   c.Name(),
				"postings": len(postings),
				"took":     time.Since(start).String(),
			})
			results[i] = postings
			return nil
		})
	}
	_ = g.Wait()

	var out []domain.Posting
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}
