// Package notify delivers matched postings to the user.
package notify

import (
	"context"
	"errors"

	"jobpilot/internal/domain"
	"jobpilot/internal/events"
	"jobpilot/internal/logger"
)

type Notifier interface {
	Notify(ctx context.Context, sp domain.ScoredPosting) error
}

// ShouldNotify is the delivery gate: matched postings scoring at least
// minScore.
func ShouldNotify(m domain.MatchResult, minScore int) bool {
	return m.Matched && m.Score >= float64(minScore)
}

// Payload is the event body for a matched posting.
type Payload struct {
	Company     string      `json:"company"`
	Title       string      `json:"title"`
	URL         string      `json:"url"`
	Source      string      `json:"source"`
	Location    string      `json:"location,omitempty"`
	Score       float64     `json:"score"`
	Band        domain.Band `json:"band"`
	Fingerprint string      `json:"fingerprint"`
}

func payloadFor(sp domain.ScoredPosting) Payload {
	return Payload{
		Company:     sp.Posting.Company,
		Title:       sp.Posting.Title,
		URL:         sp.Posting.URL,
		Source:      sp.Posting.Source,
		Location:    sp.Posting.Location,
		Score:       sp.Match.Score,
		Band:        sp.Match.Band,
		Fingerprint: sp.Fingerprint,
	}
}

// HubNotifier publishes posting_matched events for the dashboard.
type HubNotifier struct {
	Pub events.Publisher
}

func (n HubNotifier) Notify(_ context.Context, sp domain.ScoredPosting) error {
	n.Pub.Emit("", events.TypePostingMatched, payloadFor(sp))
	return nil
}

type LogNotifier struct {
	Log logger.Logger
}

func (n LogNotifier) Notify(_ context.Context, sp domain.ScoredPosting) error {
	logger.Component(n.Log, "notify").Info("posting matched", map[string]interface{}{
		"company": sp.Posting.Company,
		"title":   sp.Posting.Title,
		"score":   sp.Match.Score,
		"band":    string(sp.Match.Band),
		"url":     sp.Posting.URL,
	})
	return nil
}

// Multi notifies every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, sp domain.ScoredPosting) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, sp); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
