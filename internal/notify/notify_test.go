package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobpilot/internal/domain"
	"jobpilot/internal/events"
	"jobpilot/internal/logger"
)

func TestShouldNotify(t *testing.T) {
	assert.True(t, ShouldNotify(domain.MatchResult{Matched: true, Score: 60}, 60))
	assert.False(t, ShouldNotify(domain.MatchResult{Matched: true, Score: 59.9}, 60))
	assert.False(t, ShouldNotify(domain.MatchResult{Matched: false, Score: 95}, 60))
}

func TestHubNotifier(t *testing.T) {
	hub := events.NewHub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	sp := domain.ScoredPosting{
		Posting:     domain.Posting{Company: "Stripe", Title: "PM", URL: "https://x"},
		Match:       domain.MatchResult{Matched: true, Score: 82, Band: domain.BandExcellent},
		Fingerprint: "stripe:pm",
	}
	require.NoError(t, HubNotifier{Pub: hub}.Notify(context.Background(), sp))

	var e events.Event
	require.NoError(t, json.Unmarshal([]byte(<-ch), &e))
	assert.Equal(t, events.TypePostingMatched, e.Type)

	var p Payload
	require.NoError(t, json.Unmarshal(e.Data, &p))
	assert.Equal(t, "Stripe", p.Company)
	assert.Equal(t, domain.BandExcellent, p.Band)
}

type failing struct{ err error }

func (f failing) Notify(context.Context, domain.ScoredPosting) error { return f.err }

func TestMulti(t *testing.T) {
	boom := errors.New("boom")
	m := Multi{LogNotifier{Log: logger.NewTestLogger(t)}, failing{boom}}
	err := m.Notify(context.Background(), domain.ScoredPosting{})
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, Multi{LogNotifier{}}.Notify(context.Background(), domain.ScoredPosting{}))
}
