package funnel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobpilot/internal/domain"
)

func TestHighestStage(t *testing.T) {
	oneInterview := []domain.Interview{{Type: domain.InterviewOther, Round: 1}}
	invite := []domain.EmailRecord{{Category: domain.CategoryInterviewInvite}}

	tests := []struct {
		name string
		app  domain.Application
		want domain.Status
	}{
		{"rejected after interviewing", domain.Application{Status: domain.StatusRejected, RejectedAt: domain.StatusInterviewing, Interviews: oneInterview}, domain.StatusInterviewing},
		{"current progress status", domain.Application{Status: domain.StatusOffer}, domain.StatusOffer},
		{"accepted", domain.Application{Status: domain.StatusAccepted}, domain.StatusAccepted},
		{"plain applied", domain.Application{Status: domain.StatusApplied}, domain.StatusApplied},
		{"rejected with nothing", domain.Application{Status: domain.StatusRejected}, domain.StatusApplied},
		{"rejected at applied with interview record", domain.Application{Status: domain.StatusRejected, RejectedAt: domain.StatusApplied, Interviews: oneInterview}, domain.StatusPhoneScreen},
		{"withdrawn with invite email", domain.Application{Status: domain.StatusWithdrawn, Emails: invite}, domain.StatusPhoneScreen},
		{"applied with invite email", domain.Application{Status: domain.StatusApplied, Emails: invite}, domain.StatusPhoneScreen},
		{"ghosted refined by current stage", domain.Application{Status: domain.StatusGhosted, CurrentStage: "Onsite"}, domain.StatusInterviewing},
		{"current stage does not lower the floor", domain.Application{Status: domain.StatusRejected, Interviews: oneInterview, CurrentStage: "Resume Review"}, domain.StatusPhoneScreen},
		{"rejected_at exit marker ignored", domain.Application{Status: domain.StatusRejected, RejectedAt: domain.StatusGhosted}, domain.StatusApplied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HighestStage(tt.app))
		})
	}
}

func TestHighestStageNeverRegressesAfterInterview(t *testing.T) {
	for _, st := range []domain.Status{domain.StatusRejected, domain.StatusWithdrawn, domain.StatusGhosted} {
		for _, at := range []domain.Status{"", domain.StatusApplied, domain.StatusPhoneScreen, domain.StatusInterviewing} {
			app := domain.Application{
				Status:     st,
				RejectedAt: at,
				Interviews: []domain.Interview{{Type: domain.InterviewPhoneScreen}},
			}
			assert.GreaterOrEqual(t, domain.Rank(HighestStage(app)), domain.Rank(domain.StatusPhoneScreen), "%s/%s", st, at)
		}
	}
}

func TestStageFromText(t *testing.T) {
	assert.Equal(t, domain.StatusPhoneScreen, stageFromText("Phone Screen"))
	assert.Equal(t, domain.StatusPhoneScreen, stageFromText("Recruiter Screen"))
	assert.Equal(t, domain.StatusInterviewing, stageFromText("HM Interview"))
	assert.Equal(t, domain.StatusInterviewing, stageFromText("final round"))
	assert.Equal(t, domain.StatusOffer, stageFromText("Offer call"))
	assert.Equal(t, domain.StatusApplied, stageFromText("Other"))
	assert.Equal(t, domain.StatusApplied, stageFromText(""))
}

func TestCompute(t *testing.T) {
	apps := []domain.Application{
		{Status: domain.StatusApplied},
		{Status: domain.StatusApplied},
		{Status: domain.StatusPhoneScreen},
		{Status: domain.StatusRejected, RejectedAt: domain.StatusInterviewing},
		{Status: domain.StatusAccepted},
	}
	f := Compute(apps)
	require.Len(t, f.Stages, 5)
	assert.Equal(t, 5, f.Total)

	counts := make([]int, len(f.Stages))
	for i, s := range f.Stages {
		counts[i] = s.Count
	}
	assert.Equal(t, []int{5, 3, 2, 1, 1}, counts)
	assert.Equal(t, "Phone Screen", f.Stages[1].Name)
	assert.InDelta(t, 60.0, f.Stages[1].Percentage, 1e-9)
	assert.InDelta(t, 100.0*2/3, f.Stages[2].Conversion, 1e-9)
	assert.InDelta(t, 100.0, f.Stages[4].Conversion, 1e-9)
}

func TestComputeEmpty(t *testing.T) {
	f := Compute(nil)
	assert.Zero(t, f.Total)
	for _, s := range f.Stages {
		assert.Zero(t, s.Percentage)
		assert.Zero(t, s.Conversion)
	}
}

func TestBySource(t *testing.T) {
	apps := []domain.Application{
		{Source: "linkedin", Status: domain.StatusApplied},
		{Source: "linkedin", Status: domain.StatusRejected},
		{Source: "linkedin", Status: domain.StatusRejected, RejectedAt: domain.StatusPhoneScreen},
		{Source: "linkedin", Status: domain.StatusGhosted},
		{Source: "greenhouse", Status: domain.StatusOffer},
		{Source: "", Status: domain.StatusApplied},
	}
	stats := BySource(apps)
	require.Len(t, stats, 3)

	li := stats[0]
	assert.Equal(t, "linkedin", li.Source)
	assert.Equal(t, 4, li.Total)
	assert.Equal(t, 2, li.Responses)
	assert.Equal(t, 1, li.Interviews)
	assert.Zero(t, li.Offers)
	assert.InDelta(t, 50.0, li.ResponseRate, 1e-9)

	assert.Equal(t, "greenhouse", stats[1].Source)
	assert.Equal(t, 1, stats[1].Offers)
	assert.InDelta(t, 100.0, stats[1].OfferRate, 1e-9)

	assert.Equal(t, unknownSource, stats[2].Source)
}
