package domain

import (
	"strings"
	"time"
)

// Posting is a job posting as handed over by a collector.
type Posting struct {
	Title       string
	Company     string
	URL         string
	Source      string // greenhouse/lever/email/etc.
	Location    string
	Description string
	SalaryMin   *int
	SalaryMax   *int
	ApplyURL    string
	Remote      bool
	PostedAt    *time.Time
	Extra       map[string]string
}

// Validate rejects postings that must never reach a scorer.
func (p Posting) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return &ValidationError{Field: "title", Msg: "posting has no title"}
	}
	if strings.TrimSpace(p.Company) == "" {
		return &ValidationError{Field: "company", Msg: "posting has no company"}
	}
	return nil
}

// HasSalary reports whether the posting carries a usable salary range.
func (p Posting) HasSalary() bool {
	return p.SalaryMin != nil || p.SalaryMax != nil
}

// ScoredPosting is a posting that went through scoring and fingerprinting.
type ScoredPosting struct {
	Posting     Posting
	Match       MatchResult
	Fingerprint string
}
