package httpapi

import (
	"context"
	"net/http"
	"sync/atomic"

	"jobpilot/internal/config"
	"jobpilot/internal/domain"
	"jobpilot/internal/events"
	"jobpilot/internal/logger"
	"jobpilot/internal/pipeline"
	"jobpilot/internal/store"
	"jobpilot/internal/tracker"
)

// PostingStore is the read side of the posting catalog.
type PostingStore interface {
	ListPostings(ctx context.Context, opts store.ListPostingsOpts) ([]store.Posting, error)
	GetPosting(ctx context.Context, id int64) (store.Posting, error)
	DeletePosting(ctx context.Context, id int64) error
}

// Applications is the tracker surface the API drives.
type Applications interface {
	Create(ctx context.Context, in tracker.NewApplication) (domain.Application, error)
	Get(ctx context.Context, id string) (domain.Application, error)
	List(ctx context.Context, f store.ApplicationFilter) ([]domain.Application, error)
	UpdateStatus(ctx context.Context, id string, to domain.Status, notes string) (domain.Application, error)
	AddInterview(ctx context.Context, id string, in tracker.InterviewInput) (domain.Application, domain.Interview, error)
	Delete(ctx context.Context, id string) error
}

// Runner triggers pipeline runs.
type Runner interface {
	RunScan(ctx context.Context) (pipeline.ScanReport, error)
	RunMail(ctx context.Context) (pipeline.IngestReport, error)
	IngestEmails(ctx context.Context, emails []domain.Email) (pipeline.IngestReport, error)
	Status() pipeline.Status
}

type Deps struct {
	Postings     PostingStore
	Applications Applications
	Runner       Runner
	Hub          *events.Hub

	CfgVal *atomic.Value // stores config.Config

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Checks run by /health, keyed by name.
	Checks map[string]func(ctx context.Context) error

	// Optional WAL checkpoint for the local database.
	Checkpoint func(ctx context.Context) error

	// Metrics serves /metrics when set.
	Metrics http.Handler

	Log logger.Logger
}
