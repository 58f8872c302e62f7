package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"jobpilot/internal/domain"
)

type ApplicationFilter struct {
	Status  domain.Status
	Company string // case-insensitive substring
	Limit   int
}

const appCols = `id, company, position, source, status, current_stage, rejected_at, job_id,
  job_description, resume_id, notes, applied_at, last_status_change, interview_rounds`

func scanApplication(row interface{ Scan(...any) error }) (domain.Application, error) {
	var (
		a                        domain.Application
		status, rejectedAt, appl string
		jobID                    sql.NullInt64
		resumeID, lastChange     sql.NullString
	)
	if err := row.Scan(&a.ID, &a.Company, &a.Position, &a.Source, &status, &a.CurrentStage, &rejectedAt,
		&jobID, &a.JobDescription, &resumeID, &a.Notes, &appl, &lastChange, &a.InterviewRounds); err != nil {
		return domain.Application{}, err
	}
	a.Status = domain.Status(status)
	a.RejectedAt = domain.Status(rejectedAt)
	if jobID.Valid {
		id := jobID.Int64
		a.JobID = &id
	}
	if resumeID.Valid {
		r := resumeID.String
		a.ResumeID = &r
	}
	a.AppliedAt = parseTime(appl)
	a.LastStatusChange = timePtr(lastChange)
	return a, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func (d *DB) CreateApplication(ctx context.Context, a domain.Application) error {
	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO applications (`+appCols+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		a.ID, a.Company, a.Position, a.Source, string(a.Status), a.CurrentStage, string(a.RejectedAt),
		nullInt64(a.JobID), a.JobDescription, nullString(a.ResumeID), a.Notes, formatTime(a.AppliedAt),
		nullTime(a.LastStatusChange), a.InterviewRounds)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

// GetApplication loads the application with its history, interviews and emails.
func (d *DB) GetApplication(ctx context.Context, id string) (domain.Application, error) {
	a, err := scanApplication(d.Pool.QueryRowContext(ctx, `SELECT `+appCols+` FROM applications WHERE id = ?;`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Application{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Application{}, err
	}
	apps := []domain.Application{a}
	if err := d.loadChildren(ctx, apps); err != nil {
		return domain.Application{}, err
	}
	return apps[0], nil
}

// ListApplications returns applications newest first, children included.
func (d *DB) ListApplications(ctx context.Context, f ApplicationFilter) ([]domain.Application, error) {
	query := `SELECT ` + appCols + ` FROM applications WHERE 1=1`
	var args []any
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if c := strings.TrimSpace(f.Company); c != "" {
		query += ` AND lower(company) LIKE ? ESCAPE '\'`
		args = append(args, containsPattern(c))
	}
	query += ` ORDER BY applied_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := d.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var apps []domain.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		apps = append(apps, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := d.loadChildren(ctx, apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// FindApplicationsByCompany returns applications whose company equals name
// case-insensitively, or failing that contains it.
func (d *DB) FindApplicationsByCompany(ctx context.Context, name string) ([]domain.Application, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	exact, err := d.queryApplications(ctx, `SELECT `+appCols+` FROM applications
WHERE lower(company) = lower(?) ORDER BY applied_at DESC;`, name)
	if err != nil || len(exact) > 0 {
		return exact, err
	}
	return d.queryApplications(ctx, `SELECT `+appCols+` FROM applications
WHERE lower(company) LIKE ? ESCAPE '\' ORDER BY applied_at DESC;`, containsPattern(name))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern is a LIKE pattern matching s literally anywhere, lowercased.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

func (d *DB) queryApplications(ctx context.Context, query string, args ...any) ([]domain.Application, error) {
	rows, err := d.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveApplication updates the application row and, when change is non-nil,
// appends it to the status history in the same transaction.
func (d *DB) SaveApplication(ctx context.Context, a domain.Application, change *domain.StatusChange) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := updateApplication(ctx, tx, a); err != nil {
		return err
	}
	if change != nil {
		if err := insertStatusChange(ctx, tx, change); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AddInterview inserts iv, saves a and records change (if any) atomically.
func (d *DB) AddInterview(ctx context.Context, a domain.Application, iv *domain.Interview, change *domain.StatusChange) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
INSERT INTO interviews (application_id, type, round, scheduled_at, outcome, notes, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?);`,
		iv.ApplicationID, iv.Type, iv.Round, nullTime(iv.ScheduledAt), iv.Outcome, iv.Notes, formatTime(iv.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert interview: %w", err)
	}
	iv.ID, _ = res.LastInsertId()

	if err := updateApplication(ctx, tx, a); err != nil {
		return err
	}
	if change != nil {
		if err := insertStatusChange(ctx, tx, change); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AddEmailRecord links an ingested email to its application.
func (d *DB) AddEmailRecord(ctx context.Context, rec *domain.EmailRecord) error {
	res, err := d.Pool.ExecContext(ctx, `
INSERT INTO email_records (application_id, message_id, category, sender, subject, received_at)
VALUES (?, ?, ?, ?, ?, ?);`,
		rec.ApplicationID, rec.MessageID, string(rec.Category), rec.Sender, rec.Subject, formatTime(rec.ReceivedAt))
	if err != nil {
		return fmt.Errorf("insert email record: %w", err)
	}
	rec.ID, _ = res.LastInsertId()
	return nil
}

// HasEmail reports whether a message id was already linked.
func (d *DB) HasEmail(ctx context.Context, messageID string) (bool, error) {
	if messageID == "" {
		return false, nil
	}
	var one int
	err := d.Pool.QueryRowContext(ctx, `SELECT 1 FROM email_records WHERE message_id = ? LIMIT 1;`, messageID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (d *DB) DeleteApplication(ctx context.Context, id string) error {
	res, err := d.Pool.ExecContext(ctx, `DELETE FROM applications WHERE id = ?;`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func updateApplication(ctx context.Context, tx *sql.Tx, a domain.Application) error {
	res, err := tx.ExecContext(ctx, `
UPDATE applications SET company = ?, position = ?, source = ?, status = ?, current_stage = ?,
  rejected_at = ?, job_id = ?, job_description = ?, resume_id = ?, notes = ?,
  last_status_change = ?, interview_rounds = ?
WHERE id = ?;`,
		a.Company, a.Position, a.Source, string(a.Status), a.CurrentStage, string(a.RejectedAt),
		nullInt64(a.JobID), a.JobDescription, nullString(a.ResumeID), a.Notes,
		nullTime(a.LastStatusChange), a.InterviewRounds, a.ID)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func insertStatusChange(ctx context.Context, tx *sql.Tx, c *domain.StatusChange) error {
	res, err := tx.ExecContext(ctx, `
INSERT INTO status_history (application_id, from_status, to_status, notes, changed_at)
VALUES (?, ?, ?, ?, ?);`,
		c.ApplicationID, string(c.From), string(c.To), c.Notes, formatTime(c.ChangedAt))
	if err != nil {
		return fmt.Errorf("insert status change: %w", err)
	}
	c.ID, _ = res.LastInsertId()
	return nil
}

// loadChildren fills History, Interviews and Emails for apps in three queries.
func (d *DB) loadChildren(ctx context.Context, apps []domain.Application) error {
	if len(apps) == 0 {
		return nil
	}
	idx := make(map[string]int, len(apps))
	args := make([]any, len(apps))
	for i, a := range apps {
		idx[a.ID] = i
		args[i] = a.ID
	}
	in := "(" + strings.TrimSuffix(strings.Repeat("?,", len(apps)), ",") + ")"

	rows, err := d.Pool.QueryContext(ctx, `
SELECT id, application_id, from_status, to_status, notes, changed_at
FROM status_history WHERE application_id IN `+in+` ORDER BY changed_at, id;`, args...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var c domain.StatusChange
		var from, to, at string
		if err := rows.Scan(&c.ID, &c.ApplicationID, &from, &to, &c.Notes, &at); err != nil {
			rows.Close()
			return err
		}
		c.From, c.To, c.ChangedAt = domain.Status(from), domain.Status(to), parseTime(at)
		apps[idx[c.ApplicationID]].History = append(apps[idx[c.ApplicationID]].History, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = d.Pool.QueryContext(ctx, `
SELECT id, application_id, type, round, scheduled_at, outcome, notes, created_at
FROM interviews WHERE application_id IN `+in+` ORDER BY round, id;`, args...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var iv domain.Interview
		var sched sql.NullString
		var at string
		if err := rows.Scan(&iv.ID, &iv.ApplicationID, &iv.Type, &iv.Round, &sched, &iv.Outcome, &iv.Notes, &at); err != nil {
			rows.Close()
			return err
		}
		iv.ScheduledAt, iv.CreatedAt = timePtr(sched), parseTime(at)
		apps[idx[iv.ApplicationID]].Interviews = append(apps[idx[iv.ApplicationID]].Interviews, iv)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = d.Pool.QueryContext(ctx, `
SELECT id, application_id, message_id, category, sender, subject, received_at
FROM email_records WHERE application_id IN `+in+` ORDER BY received_at, id;`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var e domain.EmailRecord
		var cat, at string
		if err := rows.Scan(&e.ID, &e.ApplicationID, &e.MessageID, &cat, &e.Sender, &e.Subject, &at); err != nil {
			return err
		}
		e.Category, e.ReceivedAt = domain.Category(cat), parseTime(at)
		apps[idx[e.ApplicationID]].Emails = append(apps[idx[e.ApplicationID]].Emails, e)
	}
	return rows.Err()
}
