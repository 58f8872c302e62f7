package tracker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobpilot/internal/domain"
	"jobpilot/internal/link"
	"jobpilot/internal/logger"
	"jobpilot/internal/store"
)

var clock = time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := New(db, db, link.New(nil), logger.NewTestLogger(t))
	s.now = func() time.Time { return clock }
	return s, db
}

func savePosting(t *testing.T, db *store.DB, company, desc string, at time.Time) int64 {
	t.Helper()
	id, err := db.SavePosting(context.Background(), domain.ScoredPosting{
		Posting:     domain.Posting{Company: company, Title: "Product Manager", Description: desc},
		Fingerprint: company + ":product manager",
	}, at)
	require.NoError(t, err)
	return id
}

func TestCreateAndGet(t *testing.T) {
	s, db := newService(t)
	ctx := context.Background()
	jobID := savePosting(t, db, "Stripe", "Build payments with AI", clock.Add(-time.Hour))

	a, err := s.Create(ctx, NewApplication{Company: " Stripe ", Source: "greenhouse"})
	require.NoError(t, err)
	assert.Equal(t, "Stripe", a.Company)
	assert.Equal(t, unknownPosition, a.Position)
	assert.Equal(t, domain.StatusApplied, a.Status)
	require.NotNil(t, a.JobID)
	assert.Equal(t, jobID, *a.JobID)
	assert.Equal(t, "Build payments with AI", a.JobDescription)

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.True(t, clock.Equal(got.AppliedAt))

	_, err = s.Create(ctx, NewApplication{Company: "  "})
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateStatus(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	a, err := s.Create(ctx, NewApplication{Company: "Figma"})
	require.NoError(t, err)

	a, err = s.UpdateStatus(ctx, a.ID, domain.StatusInterviewing, "onsite booked")
	require.NoError(t, err)
	a, err = s.UpdateStatus(ctx, a.ID, domain.StatusRejected, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, a.Status)
	assert.Equal(t, domain.StatusInterviewing, a.RejectedAt)

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, got.History, 2)
	assert.Equal(t, domain.StatusApplied, got.History[0].From)
	assert.Equal(t, "onsite booked", got.History[0].Notes)
	assert.Equal(t, domain.StatusInterviewing, got.RejectedAt)
	require.NotNil(t, got.LastStatusChange)

	// same status is a no-op
	_, err = s.UpdateStatus(ctx, a.ID, domain.StatusRejected, "")
	require.NoError(t, err)
	got, _ = s.Get(ctx, a.ID)
	assert.Len(t, got.History, 2)

	_, err = s.UpdateStatus(ctx, a.ID, domain.StatusOffer, "")
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "status", verr.Field)

	_, err = s.UpdateStatus(ctx, "missing", domain.StatusOffer, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRejectionBackfillsDescription(t *testing.T) {
	s, db := newService(t)
	ctx := context.Background()
	jobID := savePosting(t, db, "Linear", "Issue tracking for teams", clock)

	require.NoError(t, db.CreateApplication(ctx, domain.Application{
		ID: "app-1", Company: "Linear Orbit", Status: domain.StatusApplied, JobID: &jobID, AppliedAt: clock,
	}))

	a, err := s.UpdateStatus(ctx, "app-1", domain.StatusRejected, "")
	require.NoError(t, err)
	assert.Equal(t, "Issue tracking for teams", a.JobDescription)
	assert.Equal(t, domain.StatusApplied, a.RejectedAt)
}

func TestAddInterview(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	a, err := s.Create(ctx, NewApplication{Company: "Notion"})
	require.NoError(t, err)

	a, iv, err := s.AddInterview(ctx, a.ID, InterviewInput{Type: domain.InterviewPhoneScreen})
	require.NoError(t, err)
	assert.Equal(t, 1, iv.Round)
	assert.Equal(t, domain.StatusPhoneScreen, a.Status)
	assert.Equal(t, domain.InterviewPhoneScreen, a.CurrentStage)

	a, iv, err = s.AddInterview(ctx, a.ID, InterviewInput{Type: "Technical"})
	require.NoError(t, err)
	assert.Equal(t, 2, iv.Round)
	assert.Equal(t, domain.StatusInterviewing, a.Status)

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, got.Interviews, 2)
	assert.Len(t, got.History, 2)
	assert.Equal(t, 2, got.InterviewRounds)
	assert.Equal(t, "Technical", got.CurrentStage)

	_, err = s.UpdateStatus(ctx, a.ID, domain.StatusWithdrawn, "")
	require.NoError(t, err)
	_, _, err = s.AddInterview(ctx, a.ID, InterviewInput{Type: "Onsite"})
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestLinkJob(t *testing.T) {
	s, db := newService(t)
	ctx := context.Background()
	a, err := s.Create(ctx, NewApplication{Company: "Vercel"})
	require.NoError(t, err)
	assert.Nil(t, a.JobID)

	savePosting(t, db, "Vercel", "older", clock.Add(-48*time.Hour))
	newest := savePosting(t, db, "vercel", "newer", clock.Add(-time.Hour))

	a, changed, err := s.LinkJob(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, a.JobID)
	assert.Equal(t, newest, *a.JobID)
	assert.Equal(t, "newer", a.JobDescription)

	_, changed, err = s.LinkJob(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, changed)
}

func email(id, subject string) domain.Email {
	return domain.Email{MessageID: id, Sender: "no-reply@us.greenhouse-mail.io", Subject: subject, ReceivedAt: clock.Add(-time.Hour)}
}

func TestApplyEmailLifecycle(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	out, err := s.ApplyEmail(ctx, email("m1", "Thanks for applying to Figma"),
		domain.Classification{Category: domain.CategoryConfirmation, Company: "Figma", Position: "PM", Source: "greenhouse"})
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, out.Action)
	require.NotNil(t, out.Application)
	assert.Equal(t, "greenhouse", out.Application.Source)
	assert.Equal(t, "PM", out.Application.Position)
	id := out.Application.ID

	out, err = s.ApplyEmail(ctx, email("m1", "Thanks for applying to Figma"),
		domain.Classification{Category: domain.CategoryConfirmation, Company: "Figma"})
	require.NoError(t, err)
	assert.Equal(t, ActionSkipped, out.Action)
	assert.Equal(t, "already ingested", out.Reason)

	out, err = s.ApplyEmail(ctx, email("m2", "Thank you from Figma"),
		domain.Classification{Category: domain.CategoryRejection, Company: "figma"})
	require.NoError(t, err)
	assert.Equal(t, ActionUpdated, out.Action)
	assert.Equal(t, id, out.Application.ID)
	assert.Equal(t, domain.StatusRejected, out.Application.Status)

	// an offer cannot follow a rejection; the email is still linked
	out, err = s.ApplyEmail(ctx, email("m3", "Offer"),
		domain.Classification{Category: domain.CategoryOffer, Company: "Figma"})
	require.NoError(t, err)
	assert.Equal(t, ActionRecorded, out.Action)
	assert.Equal(t, domain.StatusRejected, out.Application.Status)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, got.Emails, 3)
	assert.Equal(t, domain.StatusApplied, got.RejectedAt)
}

func TestApplyEmailCreatesFromInterviewInvite(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	out, err := s.ApplyEmail(ctx, email("m1", "Phone screen with Ramp"),
		domain.Classification{Category: domain.CategoryInterviewInvite, Company: "Ramp", InterviewDate: "on Tuesday, March 4th"})
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, out.Action)
	assert.Equal(t, "email_import", out.Application.Source)
	assert.Equal(t, domain.StatusPhoneScreen, out.Application.Status)
	require.Len(t, out.Application.Interviews, 1)
	assert.Contains(t, out.Application.Interviews[0].Notes, "March 4th")
}

func TestApplyEmailSkips(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	out, err := s.ApplyEmail(ctx, email("m1", "hello"), domain.Classification{Category: domain.CategoryUnclassified, Company: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, ActionSkipped, out.Action)

	out, err = s.ApplyEmail(ctx, email("m2", "hello"), domain.Classification{Category: domain.CategoryRejection})
	require.NoError(t, err)
	assert.Equal(t, ActionSkipped, out.Action)
	assert.Equal(t, "no company", out.Reason)

	apps, err := s.List(ctx, store.ApplicationFilter{})
	require.NoError(t, err)
	assert.Empty(t, apps)
}

func TestApplyEmailSerializesPerCompany(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.ApplyEmail(ctx, email(fmt.Sprintf("m%d", i), "Thanks for applying to Airbnb"),
				domain.Classification{Category: domain.CategoryConfirmation, Company: "Airbnb"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	apps, err := s.List(ctx, store.ApplicationFilter{})
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Len(t, apps[0].Emails, 12)
	assert.Zero(t, s.locks.size())
}

func TestApplyEmailSameMessageConcurrently(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	a, err := s.Create(ctx, NewApplication{Company: "Ramp", Position: "PM"})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := s.ApplyEmail(ctx, email("iv-1", "Interview invitation"),
				domain.Classification{Category: domain.CategoryInterviewInvite, Company: "Ramp"})
			if !assert.NoError(t, err) {
				return
			}
			if out.Action != ActionSkipped {
				mu.Lock()
				applied++
				mu.Unlock()
			} else {
				assert.Equal(t, ReasonAlreadyIngested, out.Reason)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, got.Emails, 1)
	assert.Len(t, got.Interviews, 1)
	assert.Equal(t, 1, got.InterviewRounds)
}

func TestKeyedMutex(t *testing.T) {
	k := NewKeyedMutex()
	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("app")
			defer unlock()
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Zero(t, k.size())

	// distinct keys do not block each other
	u1 := k.Lock("a")
	u2 := k.Lock("b")
	u1()
	u2()
}
