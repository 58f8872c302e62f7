package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"jobpilot/internal/collect"
	"jobpilot/internal/collect/mailbox"
	"jobpilot/internal/domain"
	"jobpilot/internal/events"
	"jobpilot/internal/logger"
	"jobpilot/internal/metrics"
)

// ErrRunning is returned when a run of the same kind is already in progress.
var ErrRunning = errors.New("run already in progress")

// MailSource yields one batch of unseen job-related messages.
type MailSource interface {
	Fetch(ctx context.Context) (*mailbox.Batch, error)
}

// Deps is what one run needs, built fresh from the current config.
type Deps struct {
	Collectors    []collect.Collector
	SourceTimeout time.Duration
	Scan          *Scan
	Mail          MailSource // nil when email is disabled
	Ingest        *Ingest
}

// Status describes the last scan run.
type Status struct {
	Running   bool   `json:"running"`
	LastRunAt string `json:"last_run_at,omitempty"`
	LastOkAt  string `json:"last_ok_at,omitempty"`
	LastError string `json:"last_error,omitempty"`
	LastAdded int    `json:"last_added"`
}

type Runner struct {
	build   func(ctx context.Context) (Deps, error)
	pub     events.Publisher
	metrics *metrics.Metrics
	log     logger.Logger
	now     func() time.Time

	scanMu sync.Mutex
	mailMu sync.Mutex

	statusMu sync.RWMutex
	status   Status
}

// NewRunner takes a build func that is called at the start of every run, so
// config edits apply to the next run without a restart. pub may be nil.
func NewRunner(build func(ctx context.Context) (Deps, error), pub events.Publisher, m *metrics.Metrics, log logger.Logger) *Runner {
	return &Runner{
		build:   build,
		pub:     pub,
		metrics: m,
		log:     logger.Component(log, "runner"),
		now:     time.Now,
	}
}

func (r *Runner) Status() Status {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	return r.status
}

func (r *Runner) setStatus(fn func(*Status)) {
	r.statusMu.Lock()
	fn(&r.status)
	r.statusMu.Unlock()
}

func (r *Runner) emit(typ string, data any) {
	if r.pub != nil {
		r.pub.Emit("", typ, data)
	}
}

// RunScan collects from every enabled source and runs the scan pipeline.
func (r *Runner) RunScan(ctx context.Context) (ScanReport, error) {
	if !r.scanMu.TryLock() {
		return ScanReport{}, ErrRunning
	}
	defer r.scanMu.Unlock()

	r.setStatus(func(s *Status) {
		s.Running = true
		s.LastRunAt = r.now().UTC().Format(time.RFC3339)
	})
	r.emit(events.TypeScanStarted, nil)

	rep, err := r.scan(ctx)

	r.setStatus(func(s *Status) {
		s.Running = false
		s.LastAdded = rep.Saved
		if err != nil {
			s.LastError = err.Error()
			return
		}
		s.LastError = ""
		s.LastOkAt = r.now().UTC().Format(time.RFC3339)
	})
	if err != nil {
		r.log.WithError(err).Error("scan failed", nil)
	}
	r.emit(events.TypeScanFinished, rep)
	return rep, err
}

func (r *Runner) scan(ctx context.Context) (ScanReport, error) {
	deps, err := r.build(ctx)
	if err != nil {
		return ScanReport{}, err
	}
	if deps.Scan == nil {
		return ScanReport{}, errors.New("scan pipeline not configured")
	}
	postings := Collect(ctx, deps.Collectors, deps.SourceTimeout, r.metrics, r.log)
	return deps.Scan.Run(ctx, postings)
}

// RunMail fetches unseen mail and ingests it. Messages are marked seen only
// after a successful ingest.
func (r *Runner) RunMail(ctx context.Context) (IngestReport, error) {
	if !r.mailMu.TryLock() {
		return IngestReport{}, ErrRunning
	}
	defer r.mailMu.Unlock()

	deps, err := r.build(ctx)
	if err != nil {
		return IngestReport{}, err
	}
	if deps.Mail == nil || deps.Ingest == nil {
		return IngestReport{}, nil
	}

	batch, err := deps.Mail.Fetch(ctx)
	if err != nil {
		return IngestReport{}, err
	}
	if batch == nil {
		return IngestReport{}, nil
	}
	rep, err := deps.Ingest.Run(ctx, batch.Emails)
	if err != nil {
		batch.Close()
		return rep, err
	}
	if err := batch.Finalize(ctx); err != nil {
		r.log.WithError(err).Warn("mark seen failed", nil)
	}
	r.emit(events.TypeIngestFinished, rep)
	return rep, nil
}

// IngestEmails runs already fetched emails through the ingest pipeline.
func (r *Runner) IngestEmails(ctx context.Context, emails []domain.Email) (IngestReport, error) {
	deps, err := r.build(ctx)
	if err != nil {
		return IngestReport{}, err
	}
	if deps.Ingest == nil {
		return IngestReport{}, errors.New("ingest pipeline not configured")
	}
	rep, err := deps.Ingest.Run(ctx, emails)
	if err == nil {
		r.emit(events.TypeIngestFinished, rep)
	}
	return rep, err
}
