package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"jobpilot/internal/domain"
)

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	// ActionRecorded means the email was linked but changed nothing else.
	ActionRecorded Action = "recorded"
	ActionSkipped  Action = "skipped"
)

// Skip reasons.
const (
	ReasonUnclassified    = "unclassified"
	ReasonNoCompany       = "no company"
	ReasonAlreadyIngested = "already ingested"
)

// Outcome reports what ApplyEmail did with one email.
type Outcome struct {
	Action      Action
	Reason      string
	Application *domain.Application
}

var phoneScreenHints = []string{"phone screen", "recruiter", "phone call", "phone interview"}

// ApplyEmail folds a classified email into the matching application,
// creating one when none exists for the company. Emails already linked by
// message id and emails without a category or company are skipped. Status
// changes the graph refuses (an offer after a rejection, say) are logged and
// the email is still recorded.
func (s *Service) ApplyEmail(ctx context.Context, e domain.Email, c domain.Classification) (Outcome, error) {
	if c.Category == domain.CategoryUnclassified || c.Category == "" {
		return Outcome{Action: ActionSkipped, Reason: ReasonUnclassified}, nil
	}
	company := strings.TrimSpace(c.Company)
	if company == "" {
		return Outcome{Action: ActionSkipped, Reason: ReasonNoCompany}, nil
	}

	// The message check runs under the company lock so two ingests of the
	// same message cannot both apply it.
	unlockCompany := s.locks.Lock(companyKey(company))
	defer unlockCompany()

	seen, err := s.repo.HasEmail(ctx, e.MessageID)
	if err != nil {
		return Outcome{}, fmt.Errorf("lookup message %q: %w", e.MessageID, err)
	}
	if seen {
		return Outcome{Action: ActionSkipped, Reason: ReasonAlreadyIngested}, nil
	}

	found, err := s.repo.FindApplicationsByCompany(ctx, company)
	if err != nil {
		return Outcome{}, fmt.Errorf("find application for %q: %w", company, err)
	}

	var (
		a      domain.Application
		action = ActionUpdated
	)
	if len(found) > 0 {
		unlock := s.locks.Lock(found[0].ID)
		defer unlock()
		if a, err = s.repo.GetApplication(ctx, found[0].ID); err != nil {
			return Outcome{}, err
		}
		if s.tryLink(ctx, &a) {
			if err := s.repo.SaveApplication(ctx, a, nil); err != nil {
				return Outcome{}, fmt.Errorf("save application %s: %w", a.ID, err)
			}
		}
	} else {
		source := c.Source
		if source == "" {
			source = "email_import"
		}
		created, err := s.create(ctx, NewApplication{
			Company:   company,
			Position:  c.Position,
			Source:    source,
			AppliedAt: e.ReceivedAt,
		})
		if err != nil {
			return Outcome{}, err
		}
		unlock := s.locks.Lock(created.ID)
		defer unlock()
		a, action = created, ActionCreated
	}

	changed, err := s.applyCategory(ctx, &a, e, c)
	if err != nil {
		return Outcome{}, err
	}
	if !changed && action == ActionUpdated {
		action = ActionRecorded
	}

	rec := domain.EmailRecord{
		ApplicationID: a.ID,
		MessageID:     e.MessageID,
		Category:      c.Category,
		Sender:        e.Sender,
		Subject:       e.Subject,
		ReceivedAt:    e.ReceivedAt.UTC(),
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = s.now().UTC()
	}
	if err := s.repo.AddEmailRecord(ctx, &rec); err != nil {
		return Outcome{}, fmt.Errorf("record email for %s: %w", a.ID, err)
	}
	a.Emails = append(a.Emails, rec)

	return Outcome{Action: action, Application: &a}, nil
}

func (s *Service) applyCategory(ctx context.Context, a *domain.Application, e domain.Email, c domain.Classification) (bool, error) {
	var err error
	changed := false
	switch c.Category {
	case domain.CategoryRejection:
		changed, err = s.setStatus(ctx, a, domain.StatusRejected, "Rejection email received")
	case domain.CategoryOffer:
		changed, err = s.setStatus(ctx, a, domain.StatusOffer, "Offer email received")
	case domain.CategoryInterviewInvite:
		notes := "Auto-created from email: " + e.Subject
		if c.InterviewDate != "" {
			notes += " (" + c.InterviewDate + ")"
		}
		_, err = s.addInterview(ctx, a, InterviewInput{Type: interviewType(e.Subject, c.Position), Notes: notes})
		changed = err == nil
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		s.log.Warn("email does not fit application state", map[string]interface{}{
			"id":       a.ID,
			"status":   string(a.Status),
			"category": string(c.Category),
			"reason":   verr.Msg,
		})
		return false, nil
	}
	return changed, err
}

func interviewType(subject, position string) string {
	text := strings.ToLower(subject + " " + position)
	for _, h := range phoneScreenHints {
		if strings.Contains(text, h) {
			return domain.InterviewPhoneScreen
		}
	}
	return domain.InterviewOther
}
