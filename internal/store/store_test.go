package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobpilot/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "jobpilot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func scored(company, title string, score float64) domain.ScoredPosting {
	return domain.ScoredPosting{
		Posting: domain.Posting{
			Company:     company,
			Title:       title,
			URL:         "https://jobs.example.com/" + title,
			Source:      "lever",
			Description: "We use Go.",
		},
		Match:       domain.MatchResult{Matched: true, Score: score, Band: domain.BandGood, MatchedPrimary: []string{"go"}},
		Fingerprint: company + ":" + title,
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db.Pool))

	var v int
	require.NoError(t, db.Pool.QueryRow(`PRAGMA user_version;`).Scan(&v))
	assert.Equal(t, schemaVersion, v)
}

func TestSavePostingAndSeenSince(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	lo, hi := 100000, 150000
	sp := scored("acme", "pm", 72)
	sp.Posting.SalaryMin, sp.Posting.SalaryMax = &lo, &hi
	id, err := db.SavePosting(ctx, sp, now.Add(-10*24*time.Hour))
	require.NoError(t, err)

	seen, err := db.SeenSince(ctx, "acme:pm", now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = db.SeenSince(ctx, "acme:pm", now.Add(-5*24*time.Hour))
	require.NoError(t, err)
	assert.False(t, seen, "discovered before the window")

	seen, err = db.SeenSince(ctx, "other:pm", now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.False(t, seen)

	got, err := db.GetPosting(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Company)
	assert.Equal(t, 72.0, got.Score)
	assert.Equal(t, domain.BandGood, got.Band)
	assert.True(t, got.Matched)
	assert.Equal(t, []string{"go"}, got.Match.MatchedPrimary)
	require.NotNil(t, got.SalaryMax)
	assert.Equal(t, 150000, *got.SalaryMax)
	assert.Nil(t, got.PostedAt)

	_, err = db.GetPosting(ctx, id+100)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListPostings(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now()

	_, err := db.SavePosting(ctx, scored("b", "low", 40), now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = db.SavePosting(ctx, scored("a", "high", 90), now.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = db.SavePosting(ctx, scored("c", "stale", 99), now.Add(-20*24*time.Hour))
	require.NoError(t, err)

	week, err := db.ListPostings(ctx, ListPostingsOpts{})
	require.NoError(t, err)
	require.Len(t, week, 2)
	assert.Equal(t, "high", week[0].Title)

	all, err := db.ListPostings(ctx, ListPostingsOpts{Window: "all", Sort: "date"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "low", all[0].Title)

	byCompany, err := db.ListPostings(ctx, ListPostingsOpts{Window: "all", Sort: "company", Limit: 1})
	require.NoError(t, err)
	require.Len(t, byCompany, 1)
	assert.Equal(t, "a", byCompany[0].Company)
}

func TestDeleteAndCleanup(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now()

	oldID, err := db.SavePosting(ctx, scored("old", "pm", 50), now.Add(-100*24*time.Hour))
	require.NoError(t, err)
	linkedID, err := db.SavePosting(ctx, scored("linked", "pm", 50), now.Add(-100*24*time.Hour))
	require.NoError(t, err)
	freshID, err := db.SavePosting(ctx, scored("fresh", "pm", 50), now)
	require.NoError(t, err)

	require.NoError(t, db.CreateApplication(ctx, domain.Application{
		ID: "app-1", Company: "linked", Status: domain.StatusApplied, AppliedAt: now, JobID: &linkedID,
	}))

	n, err := db.CleanupOldPostings(ctx, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = db.GetPosting(ctx, oldID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = db.GetPosting(ctx, linkedID)
	assert.NoError(t, err)

	require.NoError(t, db.DeletePosting(ctx, freshID))
	assert.ErrorIs(t, db.DeletePosting(ctx, freshID), domain.ErrNotFound)
}

func TestJobCandidates(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now()

	_, err := db.SavePosting(ctx, scored("Figma", "Designer", 50), now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = db.SavePosting(ctx, scored("Figma", "PM", 50), now)
	require.NoError(t, err)

	cs, err := db.JobCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, "PM", cs[0].Title)
	assert.Equal(t, "We use Go.", cs[0].Description)
}

func TestApplicationLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	app := domain.Application{
		ID: "app-1", Company: "Figma", Position: "PM", Source: "greenhouse",
		Status: domain.StatusApplied, AppliedAt: now,
	}
	require.NoError(t, db.CreateApplication(ctx, app))

	app.Status = domain.StatusInterviewing
	app.CurrentStage = "Onsite"
	app.InterviewRounds = 1
	app.LastStatusChange = &now
	iv := &domain.Interview{ApplicationID: app.ID, Type: "Onsite", Round: 1, Outcome: "pending", CreatedAt: now}
	change := &domain.StatusChange{ApplicationID: app.ID, From: domain.StatusApplied, To: domain.StatusInterviewing, ChangedAt: now}
	require.NoError(t, db.AddInterview(ctx, app, iv, change))
	assert.NotZero(t, iv.ID)
	assert.NotZero(t, change.ID)

	app.Status = domain.StatusRejected
	app.RejectedAt = domain.StatusInterviewing
	require.NoError(t, db.SaveApplication(ctx, app, &domain.StatusChange{
		ApplicationID: app.ID, From: domain.StatusInterviewing, To: domain.StatusRejected, ChangedAt: now.Add(time.Minute),
	}))

	rec := &domain.EmailRecord{ApplicationID: app.ID, MessageID: "<m1@x>", Category: domain.CategoryRejection, Subject: "Update", ReceivedAt: now}
	require.NoError(t, db.AddEmailRecord(ctx, rec))
	assert.Error(t, db.AddEmailRecord(ctx, &domain.EmailRecord{ApplicationID: app.ID, MessageID: "<m1@x>", Category: domain.CategoryRejection, ReceivedAt: now}))

	has, err := db.HasEmail(ctx, "<m1@x>")
	require.NoError(t, err)
	assert.True(t, has)

	got, err := db.GetApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, got.Status)
	assert.Equal(t, domain.StatusInterviewing, got.RejectedAt)
	assert.Equal(t, "Onsite", got.CurrentStage)
	assert.True(t, got.AppliedAt.Equal(now))
	require.Len(t, got.History, 2)
	assert.Equal(t, domain.StatusRejected, got.History[1].To)
	require.Len(t, got.Interviews, 1)
	require.Len(t, got.Emails, 1)
	assert.Equal(t, domain.CategoryRejection, got.Emails[0].Category)

	_, err = db.GetApplication(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, db.SaveApplication(ctx, domain.Application{ID: "nope"}, nil), domain.ErrNotFound)
}

func TestFindAndListApplications(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now()

	for i, c := range []string{"Figma", "Figma Labs", "Stripe"} {
		require.NoError(t, db.CreateApplication(ctx, domain.Application{
			ID: c, Company: c, Status: domain.StatusApplied, AppliedAt: now.Add(time.Duration(i) * time.Minute),
		}))
	}

	exact, err := db.FindApplicationsByCompany(ctx, "figma")
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, "Figma", exact[0].Company)

	sub, err := db.FindApplicationsByCompany(ctx, "labs")
	require.NoError(t, err)
	require.Len(t, sub, 1)
	assert.Equal(t, "Figma Labs", sub[0].Company)

	none, err := db.FindApplicationsByCompany(ctx, "  ")
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := db.ListApplications(ctx, ApplicationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Stripe", all[0].Company)

	filtered, err := db.ListApplications(ctx, ApplicationFilter{Company: "FIG", Limit: 5})
	require.NoError(t, err)
	assert.Len(t, filtered, 2)

	require.NoError(t, db.DeleteApplication(ctx, "Stripe"))
	assert.ErrorIs(t, db.DeleteApplication(ctx, "Stripe"), domain.ErrNotFound)
}

func TestCompanySearchTreatsWildcardsLiterally(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now()

	for i, c := range []string{"A_B Corp", "AxB Corp", "100% Remote Co", "1000 Remote Co"} {
		require.NoError(t, db.CreateApplication(ctx, domain.Application{
			ID: fmt.Sprint(i), Company: c, Status: domain.StatusApplied, AppliedAt: now.Add(time.Duration(i) * time.Minute),
		}))
	}

	found, err := db.FindApplicationsByCompany(ctx, "a_b")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "A_B Corp", found[0].Company)

	found, err = db.FindApplicationsByCompany(ctx, "100%")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "100% Remote Co", found[0].Company)

	listed, err := db.ListApplications(ctx, ApplicationFilter{Company: "_"})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "A_B Corp", listed[0].Company)
}

func TestPingAndCheckpoint(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	var mode string
	require.NoError(t, db.Pool.QueryRowContext(ctx, `PRAGMA journal_mode;`).Scan(&mode))
	assert.Equal(t, "wal", mode)

	require.NoError(t, db.Ping(ctx))
	_, err := db.SavePosting(ctx, scored("Acme", "PM", 70), time.Now())
	require.NoError(t, err)
	assert.NoError(t, db.Checkpoint(ctx))
}
