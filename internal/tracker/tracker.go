// Package tracker owns every mutation of an application: creation, status
// changes, interviews, job links and email-driven updates. Mutations of one
// application are serialized.
package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"jobpilot/internal/domain"
	"jobpilot/internal/link"
	"jobpilot/internal/logger"
	"jobpilot/internal/store"
)

// Repository persists applications and their children.
type Repository interface {
	CreateApplication(ctx context.Context, a domain.Application) error
	GetApplication(ctx context.Context, id string) (domain.Application, error)
	ListApplications(ctx context.Context, f store.ApplicationFilter) ([]domain.Application, error)
	FindApplicationsByCompany(ctx context.Context, name string) ([]domain.Application, error)
	SaveApplication(ctx context.Context, a domain.Application, change *domain.StatusChange) error
	AddInterview(ctx context.Context, a domain.Application, iv *domain.Interview, change *domain.StatusChange) error
	AddEmailRecord(ctx context.Context, rec *domain.EmailRecord) error
	HasEmail(ctx context.Context, messageID string) (bool, error)
	DeleteApplication(ctx context.Context, id string) error
}

// JobCatalog lists postings applications can be linked to.
type JobCatalog interface {
	JobCandidates(ctx context.Context) ([]domain.JobCandidate, error)
}

const unknownPosition = "Unknown Position"

type Service struct {
	repo   Repository
	jobs   JobCatalog
	linker *link.Linker
	log    logger.Logger

	locks *KeyedMutex
	now   func() time.Time
	newID func() string
}

// New builds a Service. jobs may be nil, in which case applications are
// never linked to postings.
func New(repo Repository, jobs JobCatalog, linker *link.Linker, log logger.Logger) *Service {
	if linker == nil {
		linker = link.New(nil)
	}
	return &Service{
		repo:   repo,
		jobs:   jobs,
		linker: linker,
		log:    logger.Component(log, "tracker"),
		locks:  NewKeyedMutex(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

type NewApplication struct {
	Company   string    `json:"company"`
	Position  string    `json:"position"`
	Source    string    `json:"source"`
	Notes     string    `json:"notes"`
	ResumeID  *string   `json:"resume_id,omitempty"`
	AppliedAt time.Time `json:"applied_at"`
}

func (s *Service) Create(ctx context.Context, in NewApplication) (domain.Application, error) {
	unlock := s.locks.Lock(companyKey(in.Company))
	defer unlock()
	return s.create(ctx, in)
}

func (s *Service) create(ctx context.Context, in NewApplication) (domain.Application, error) {
	company := strings.TrimSpace(in.Company)
	if company == "" {
		return domain.Application{}, &domain.ValidationError{Field: "company", Msg: "company is required"}
	}
	position := strings.TrimSpace(in.Position)
	if position == "" {
		position = unknownPosition
	}
	applied := in.AppliedAt
	if applied.IsZero() {
		applied = s.now()
	}
	a := domain.Application{
		ID:        s.newID(),
		Company:   company,
		Position:  position,
		Source:    strings.TrimSpace(in.Source),
		Status:    domain.StatusApplied,
		Notes:     in.Notes,
		ResumeID:  in.ResumeID,
		AppliedAt: applied.UTC(),
	}
	s.tryLink(ctx, &a)

	if err := s.repo.CreateApplication(ctx, a); err != nil {
		return domain.Application{}, fmt.Errorf("create application: %w", err)
	}
	s.log.Info("application created", map[string]interface{}{
		"id":      a.ID,
		"company": a.Company,
		"source":  a.Source,
	})
	return a, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Application, error) {
	return s.repo.GetApplication(ctx, id)
}

func (s *Service) List(ctx context.Context, f store.ApplicationFilter) ([]domain.Application, error) {
	return s.repo.ListApplications(ctx, f)
}

// Delete removes the application with its history, interviews and emails.
func (s *Service) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()
	if err := s.repo.DeleteApplication(ctx, id); err != nil {
		return err
	}
	s.log.Info("application deleted", map[string]interface{}{"id": id})
	return nil
}

// UpdateStatus moves an application to status to. Moving to the current
// status is a no-op; transitions outside the status graph are refused with a
// *domain.ValidationError.
func (s *Service) UpdateStatus(ctx context.Context, id string, to domain.Status, notes string) (domain.Application, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	a, err := s.repo.GetApplication(ctx, id)
	if err != nil {
		return domain.Application{}, err
	}
	if _, err := s.setStatus(ctx, &a, to, notes); err != nil {
		return domain.Application{}, err
	}
	return a, nil
}

// setStatus applies and persists a transition on a locked application. It
// reports whether anything changed.
func (s *Service) setStatus(ctx context.Context, a *domain.Application, to domain.Status, notes string) (bool, error) {
	if a.Status == to {
		return false, nil
	}
	if !domain.CanTransition(a.Status, to) {
		return false, &domain.ValidationError{
			Field: "status",
			Msg:   fmt.Sprintf("cannot move application from %s to %s", a.Status, to),
		}
	}

	change := s.transition(a, to, notes)
	if to == domain.StatusRejected && a.JobDescription == "" && a.JobID != nil {
		if job, ok := s.jobByID(ctx, *a.JobID); ok {
			a.JobDescription = job.Description
		}
	}
	if err := s.repo.SaveApplication(ctx, *a, change); err != nil {
		return false, fmt.Errorf("save application %s: %w", a.ID, err)
	}
	a.History = append(a.History, *change)
	s.log.Info("status changed", map[string]interface{}{
		"id":   a.ID,
		"from": string(change.From),
		"to":   string(change.To),
	})
	return true, nil
}

// transition mutates a in memory and returns the history row for it.
func (s *Service) transition(a *domain.Application, to domain.Status, notes string) *domain.StatusChange {
	now := s.now().UTC()
	change := &domain.StatusChange{
		ApplicationID: a.ID,
		From:          a.Status,
		To:            to,
		Notes:         notes,
		ChangedAt:     now,
	}
	if to == domain.StatusRejected {
		a.RejectedAt = a.Status
	}
	a.Status = to
	a.LastStatusChange = &now
	return change
}

type InterviewInput struct {
	Type        string     `json:"type"`
	Round       int        `json:"round"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Notes       string     `json:"notes"`
}

// AddInterview records an interview round. Screens move applied
// applications to phone_screen; any other type moves applied or
// phone_screen applications to interviewing. Closed applications are
// refused.
func (s *Service) AddInterview(ctx context.Context, id string, in InterviewInput) (domain.Application, domain.Interview, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	a, err := s.repo.GetApplication(ctx, id)
	if err != nil {
		return domain.Application{}, domain.Interview{}, err
	}
	iv, err := s.addInterview(ctx, &a, in)
	return a, iv, err
}

func (s *Service) addInterview(ctx context.Context, a *domain.Application, in InterviewInput) (domain.Interview, error) {
	if domain.IsTerminal(a.Status) {
		return domain.Interview{}, &domain.ValidationError{
			Field: "status",
			Msg:   fmt.Sprintf("application is %s, no interviews can be added", a.Status),
		}
	}
	typ := strings.TrimSpace(in.Type)
	if typ == "" {
		typ = domain.InterviewOther
	}
	round := in.Round
	if round <= 0 {
		round = a.InterviewRounds + 1
	}
	iv := domain.Interview{
		ApplicationID: a.ID,
		Type:          typ,
		Round:         round,
		ScheduledAt:   in.ScheduledAt,
		Outcome:       "pending",
		Notes:         in.Notes,
		CreatedAt:     s.now().UTC(),
	}

	var change *domain.StatusChange
	switch {
	case domain.IsScreen(typ) && a.Status == domain.StatusApplied:
		change = s.transition(a, domain.StatusPhoneScreen, "Interview added: "+typ)
	case !domain.IsScreen(typ) && (a.Status == domain.StatusApplied || a.Status == domain.StatusPhoneScreen):
		change = s.transition(a, domain.StatusInterviewing, "Interview added: "+typ)
	}
	a.InterviewRounds = round
	a.CurrentStage = typ

	if err := s.repo.AddInterview(ctx, *a, &iv, change); err != nil {
		return domain.Interview{}, fmt.Errorf("add interview to %s: %w", a.ID, err)
	}
	a.Interviews = append(a.Interviews, iv)
	if change != nil {
		a.History = append(a.History, *change)
	}
	return iv, nil
}

// LinkJob links the application to its posting, or backfills the job
// description when it is already linked. The bool reports a change.
func (s *Service) LinkJob(ctx context.Context, id string) (domain.Application, bool, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	a, err := s.repo.GetApplication(ctx, id)
	if err != nil {
		return domain.Application{}, false, err
	}
	if !s.tryLink(ctx, &a) {
		return a, false, nil
	}
	if err := s.repo.SaveApplication(ctx, a, nil); err != nil {
		return domain.Application{}, false, fmt.Errorf("save application %s: %w", a.ID, err)
	}
	return a, true, nil
}

// tryLink links a in memory. Catalog failures are logged, not returned: an
// unlinked application is a normal outcome.
func (s *Service) tryLink(ctx context.Context, a *domain.Application) bool {
	if s.jobs == nil {
		return false
	}
	if a.JobID != nil {
		if a.JobDescription != "" {
			return false
		}
		job, ok := s.jobByID(ctx, *a.JobID)
		if !ok || job.Description == "" {
			return false
		}
		a.JobDescription = job.Description
		return true
	}

	cands, err := s.jobs.JobCandidates(ctx)
	if err != nil {
		s.log.WithError(err).Warn("job catalog unavailable", map[string]interface{}{"id": a.ID})
		return false
	}
	job, ok := s.linker.Link(*a, cands)
	if !ok {
		return false
	}
	link.Apply(a, job)
	s.log.Debug("application linked", map[string]interface{}{
		"id":     a.ID,
		"job_id": job.ID,
	})
	return true
}

func (s *Service) jobByID(ctx context.Context, id int64) (domain.JobCandidate, bool) {
	if s.jobs == nil {
		return domain.JobCandidate{}, false
	}
	cands, err := s.jobs.JobCandidates(ctx)
	if err != nil {
		s.log.WithError(err).Warn("job catalog unavailable", map[string]interface{}{"job_id": id})
		return domain.JobCandidate{}, false
	}
	for _, c := range cands {
		if c.ID == id {
			return c, true
		}
	}
	return domain.JobCandidate{}, false
}

func companyKey(company string) string {
	return "company:" + strings.ToLower(strings.TrimSpace(company))
}
