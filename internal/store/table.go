package store

import (
	"database/sql"
	"fmt"
)

const schemaVersion = 1

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	if v >= schemaVersion {
		return tx.Commit()
	}

	// ---- Schema v1: tables ----

	stmts := []string{`
CREATE TABLE IF NOT EXISTS postings (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  fingerprint TEXT NOT NULL,
  company TEXT NOT NULL,
  title TEXT NOT NULL,
  location TEXT NOT NULL DEFAULT '',
  url TEXT NOT NULL DEFAULT '',
  apply_url TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  salary_min INTEGER,
  salary_max INTEGER,
  remote INTEGER NOT NULL DEFAULT 0,
  posted_at TEXT,
  score REAL NOT NULL DEFAULT 0,
  band TEXT NOT NULL DEFAULT '',
  matched INTEGER NOT NULL DEFAULT 0,
  match_json TEXT NOT NULL DEFAULT '{}',
  discovered_at TEXT NOT NULL
);`, `
CREATE TABLE IF NOT EXISTS applications (
  id TEXT PRIMARY KEY,
  company TEXT NOT NULL,
  position TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  current_stage TEXT NOT NULL DEFAULT '',
  rejected_at TEXT NOT NULL DEFAULT '',
  job_id INTEGER,
  job_description TEXT NOT NULL DEFAULT '',
  resume_id TEXT,
  notes TEXT NOT NULL DEFAULT '',
  applied_at TEXT NOT NULL,
  last_status_change TEXT,
  interview_rounds INTEGER NOT NULL DEFAULT 0
);`, `
CREATE TABLE IF NOT EXISTS status_history (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  application_id TEXT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
  from_status TEXT NOT NULL,
  to_status TEXT NOT NULL,
  notes TEXT NOT NULL DEFAULT '',
  changed_at TEXT NOT NULL
);`, `
CREATE TABLE IF NOT EXISTS interviews (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  application_id TEXT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
  type TEXT NOT NULL,
  round INTEGER NOT NULL,
  scheduled_at TEXT,
  outcome TEXT NOT NULL DEFAULT 'pending',
  notes TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL
);`, `
CREATE TABLE IF NOT EXISTS email_records (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  application_id TEXT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
  message_id TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL,
  sender TEXT NOT NULL DEFAULT '',
  subject TEXT NOT NULL DEFAULT '',
  received_at TEXT NOT NULL
);`,

		// ---- Schema v1: indexes ----

		`CREATE INDEX IF NOT EXISTS idx_postings_fp ON postings(fingerprint, discovered_at);`,
		`CREATE INDEX IF NOT EXISTS idx_postings_discovered ON postings(discovered_at);`,
		`CREATE INDEX IF NOT EXISTS idx_applications_company ON applications(company COLLATE NOCASE);`,
		`CREATE INDEX IF NOT EXISTS idx_history_app ON status_history(application_id);`,
		`CREATE INDEX IF NOT EXISTS idx_interviews_app ON interviews(application_id);`,
		`CREATE INDEX IF NOT EXISTS idx_emails_app ON email_records(application_id);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_emails_message ON email_records(message_id) WHERE message_id != '';`,
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d;`, schemaVersion)); err != nil {
		return err
	}

	return tx.Commit()
}
