package link

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobpilot/internal/config"
	"jobpilot/internal/domain"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func candidates() []domain.JobCandidate {
	return []domain.JobCandidate{
		{ID: 1, Company: "Stripe", Title: "PM", Description: "old stripe", DiscoveredAt: base},
		{ID: 2, Company: "stripe", Title: "Senior PM", Description: "new stripe", DiscoveredAt: base.Add(48 * time.Hour)},
		{ID: 3, Company: "Stripe Payments, Inc.", Title: "PM", Description: "payments", DiscoveredAt: base.Add(96 * time.Hour)},
		{ID: 4, Company: "Notion Labs", Title: "PM", Description: "notion", DiscoveredAt: base},
		{ID: 5, Company: "Anthropic", Title: "PM", Description: "anthropic", DiscoveredAt: base},
	}
}

func TestLinkExactBeatsFuzzyAndPicksNewest(t *testing.T) {
	l := New(nil)
	job, ok := l.Link(domain.Application{Company: "STRIPE"}, candidates())
	require.True(t, ok)
	assert.Equal(t, int64(2), job.ID)
}

func TestLinkFuzzy(t *testing.T) {
	l := New(SubstringMatcher{MinLen: 3})

	job, ok := l.Link(domain.Application{Company: "Notion"}, candidates())
	require.True(t, ok)
	assert.Equal(t, int64(4), job.ID)

	_, ok = l.Link(domain.Application{Company: "Figma"}, candidates())
	assert.False(t, ok)

	_, ok = l.Link(domain.Application{Company: ""}, candidates())
	assert.False(t, ok)
}

func TestLinkEditDistance(t *testing.T) {
	l := New(EditDistanceMatcher{MaxRatio: 0.2})

	job, ok := l.Link(domain.Application{Company: "Anthropic Inc"}, candidates())
	require.True(t, ok)
	assert.Equal(t, int64(5), job.ID)

	job, ok = l.Link(domain.Application{Company: "Antropic"}, candidates())
	require.True(t, ok)
	assert.Equal(t, int64(5), job.ID)

	_, ok = l.Link(domain.Application{Company: "Datadog"}, candidates())
	assert.False(t, ok)
}

func TestSubstringMatcherBoundaries(t *testing.T) {
	m := SubstringMatcher{MinLen: 3}
	assert.True(t, m.Match("stripe", "stripe payments"))
	assert.False(t, m.Match("meta", "metabase"))
	assert.False(t, m.Match("ai", "ai labs"))
	assert.True(t, m.Match("ai", "ai"))
	assert.False(t, m.Match("", "x"))
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "stripe payments", NormalizeName("Stripe Payments, Inc."))
	assert.Equal(t, "acme", NormalizeName("ACME Corp"))
	assert.Equal(t, "at t", NormalizeName("AT&T"))
	assert.Equal(t, "co", NormalizeName("Co"))
}

func TestNewMatcher(t *testing.T) {
	assert.Equal(t, SubstringMatcher{MinLen: 3}, NewMatcher(config.Linker{}))
	assert.Equal(t, SubstringMatcher{MinLen: 5}, NewMatcher(config.Linker{Strategy: "substring", MinLength: 5}))
	assert.Equal(t, EditDistanceMatcher{MaxRatio: 0.3}, NewMatcher(config.Linker{Strategy: "Levenshtein", MaxDistanceRatio: 0.3}))
	assert.Equal(t, EditDistanceMatcher{MaxRatio: 0.2}, NewMatcher(config.Linker{Strategy: "levenshtein"}))
}

func TestApply(t *testing.T) {
	app := domain.Application{}
	Apply(&app, domain.JobCandidate{ID: 7, Description: "desc"})
	require.NotNil(t, app.JobID)
	assert.Equal(t, int64(7), *app.JobID)
	assert.Equal(t, "desc", app.JobDescription)

	app = domain.Application{JobDescription: "kept"}
	Apply(&app, domain.JobCandidate{ID: 8, Description: "other"})
	assert.Equal(t, "kept", app.JobDescription)
}
