package domain

import "time"

// Email is a raw inbound message reduced to plain text.
type Email struct {
	MessageID  string
	Sender     string
	Subject    string
	Body       string
	HTML       string
	ReceivedAt time.Time
}

type Category string

const (
	CategoryConfirmation    Category = "confirmation"
	CategoryRejection       Category = "rejection"
	CategoryInterviewInvite Category = "interview_invite"
	CategoryOffer           Category = "offer"
	CategoryUnclassified    Category = "unclassified"
)

// Classification is what the classifier infers from one email.
type Classification struct {
	Category       Category `json:"category"`
	Company        string   `json:"company,omitempty"`
	Position       string   `json:"position,omitempty"`
	Source         string   `json:"source,omitempty"`
	CalendarLink   string   `json:"calendar_link,omitempty"`
	InterviewDate  string   `json:"interview_date,omitempty"`
	RejectionStage string   `json:"rejection_stage,omitempty"`
	Signals        []string `json:"signals,omitempty"`
}
