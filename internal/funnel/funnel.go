// Package funnel measures how far applications progressed.
//
// Funnel numbers key on the highest stage an application ever reached, not on
// its current status, so an application rejected after an onsite still
// counts as having interviewed.
package funnel

import (
	"sort"
	"strings"

	"jobpilot/internal/domain"
)

// HighestStage resolves the furthest progress stage app reached. Signals are
// checked in order:
//
//  1. the current status, unless it is an exit (rejected, withdrawn, ghosted)
//  2. the status recorded at rejection time
//  3. interview records and interview invite emails, which imply at least a
//     phone screen, refined upward by current_stage
//
// The result is never an exit status.
func HighestStage(app domain.Application) domain.Status {
	if !domain.IsExit(app.Status) && domain.Rank(app.Status) > 0 {
		return app.Status
	}
	if app.RejectedAt != "" && !domain.IsExit(app.RejectedAt) && domain.Rank(app.RejectedAt) > 0 {
		return app.RejectedAt
	}

	floor := domain.StatusApplied
	if len(app.Interviews) > 0 || app.InterviewRounds > 0 || hasInvite(app.Emails) {
		floor = domain.StatusPhoneScreen
	}
	if s := stageFromText(app.CurrentStage); domain.Rank(s) > domain.Rank(floor) {
		return s
	}
	return floor
}

func hasInvite(emails []domain.EmailRecord) bool {
	for _, e := range emails {
		if e.Category == domain.CategoryInterviewInvite {
			return true
		}
	}
	return false
}

// stageFromText maps the free-text current_stage ("Phone Screen",
// "HM Interview", "Onsite") onto a coarse status.
func stageFromText(stage string) domain.Status {
	s := strings.ToLower(strings.TrimSpace(stage))
	switch {
	case s == "":
		return domain.StatusApplied
	case strings.Contains(s, "offer"):
		return domain.StatusOffer
	case strings.Contains(s, "phone"), strings.Contains(s, "recruiter"), strings.Contains(s, "screen"):
		return domain.StatusPhoneScreen
	case strings.Contains(s, "interview"), strings.Contains(s, "onsite"), strings.Contains(s, "on-site"),
		strings.Contains(s, "final"), strings.Contains(s, "technical"), strings.Contains(s, "panel"),
		strings.Contains(s, "round"), strings.Contains(s, "hiring manager"):
		return domain.StatusInterviewing
	}
	if st, err := domain.ParseStatus(s); err == nil && !domain.IsExit(st) {
		return st
	}
	return domain.StatusApplied
}

var stageLabels = map[domain.Status]string{
	domain.StatusApplied:      "Applied",
	domain.StatusPhoneScreen:  "Phone Screen",
	domain.StatusInterviewing: "Interviewing",
	domain.StatusOffer:        "Offer",
	domain.StatusAccepted:     "Accepted",
}

type Stage struct {
	Status     domain.Status `json:"status"`
	Name       string        `json:"name"`
	Count      int           `json:"count"`
	Percentage float64       `json:"percentage"`
	// Conversion is the share of the previous stage that reached this one.
	Conversion float64 `json:"conversion_rate"`
}

type Funnel struct {
	Total  int     `json:"total_applications"`
	Stages []Stage `json:"stages"`
}

// Compute builds the cumulative funnel: each stage counts every application
// whose highest stage is that one or beyond.
func Compute(apps []domain.Application) Funnel {
	reached := make([]int, len(domain.ProgressOrder))
	for _, a := range apps {
		top := domain.Rank(HighestStage(a))
		for i := 0; i <= top; i++ {
			reached[i]++
		}
	}

	f := Funnel{Total: len(apps)}
	prev := f.Total
	for i, st := range domain.ProgressOrder {
		n := reached[i]
		f.Stages = append(f.Stages, Stage{
			Status:     st,
			Name:       stageLabels[st],
			Count:      n,
			Percentage: pct(n, f.Total),
			Conversion: pct(n, prev),
		})
		prev = n
	}
	return f
}

type SourceStats struct {
	Source        string  `json:"source"`
	Total         int     `json:"total"`
	Responses     int     `json:"responses"`
	Interviews    int     `json:"interviews"`
	Offers        int     `json:"offers"`
	ResponseRate  float64 `json:"response_rate"`
	InterviewRate float64 `json:"interview_rate"`
	OfferRate     float64 `json:"offer_rate"`
}

const unknownSource = "unknown"

// BySource breaks outcomes down per application source, busiest first. A
// response is any progress past applied or a rejection; ghosted applications
// never count as responses.
func BySource(apps []domain.Application) []SourceStats {
	bySrc := map[string]*SourceStats{}
	for _, a := range apps {
		src := strings.TrimSpace(a.Source)
		if src == "" {
			src = unknownSource
		}
		st := bySrc[src]
		if st == nil {
			st = &SourceStats{Source: src}
			bySrc[src] = st
		}
		st.Total++

		top := domain.Rank(HighestStage(a))
		if top > 0 || a.Status == domain.StatusRejected {
			st.Responses++
		}
		if top >= domain.Rank(domain.StatusPhoneScreen) {
			st.Interviews++
		}
		if top >= domain.Rank(domain.StatusOffer) {
			st.Offers++
		}
	}

	out := make([]SourceStats, 0, len(bySrc))
	for _, st := range bySrc {
		st.ResponseRate = pct(st.Responses, st.Total)
		st.InterviewRate = pct(st.Interviews, st.Total)
		st.OfferRate = pct(st.Offers, st.Total)
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Source < out[j].Source
	})
	return out
}

func pct(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) / float64(of) * 100
}
