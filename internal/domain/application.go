package domain

import "time"

// Application is the long-lived aggregate tracking one job application.
type Application struct {
	ID               string     `json:"id"`
	Company          string     `json:"company"`
	Position         string     `json:"position"`
	Source           string     `json:"source"`
	Status           Status     `json:"status"`
	CurrentStage     string     `json:"current_stage,omitempty"`
	RejectedAt       Status     `json:"rejected_at,omitempty"`
	JobID            *int64     `json:"job_id,omitempty"`
	JobDescription   string     `json:"job_description,omitempty"`
	ResumeID         *string    `json:"resume_id,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	AppliedAt        time.Time  `json:"applied_at"`
	LastStatusChange *time.Time `json:"last_status_change,omitempty"`
	InterviewRounds  int        `json:"interview_rounds"`

	History    []StatusChange `json:"history,omitempty"`
	Interviews []Interview    `json:"interviews,omitempty"`
	Emails     []EmailRecord  `json:"emails,omitempty"`
}

type StatusChange struct {
	ID            int64     `json:"id"`
	ApplicationID string    `json:"application_id"`
	From          Status    `json:"from"`
	To            Status    `json:"to"`
	Notes         string    `json:"notes,omitempty"`
	ChangedAt     time.Time `json:"changed_at"`
}

type Interview struct {
	ID            int64      `json:"id"`
	ApplicationID string     `json:"application_id"`
	Type          string     `json:"type"`
	Round         int        `json:"round"`
	ScheduledAt   *time.Time `json:"scheduled_at,omitempty"`
	Outcome       string     `json:"outcome"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Interview types that count as an early screen rather than a full round.
const (
	InterviewPhoneScreen     = "Phone Screen"
	InterviewRecruiterScreen = "Recruiter Screen"
	InterviewOther           = "Other"
)

// IsScreen reports interview types that move an application to phone_screen.
func IsScreen(interviewType string) bool {
	return interviewType == InterviewPhoneScreen || interviewType == InterviewRecruiterScreen
}

// EmailRecord is a classified email linked to an application.
type EmailRecord struct {
	ID            int64     `json:"id"`
	ApplicationID string    `json:"application_id"`
	MessageID     string    `json:"message_id,omitempty"`
	Category      Category  `json:"category"`
	Sender        string    `json:"sender"`
	Subject       string    `json:"subject"`
	ReceivedAt    time.Time `json:"received_at"`
}
