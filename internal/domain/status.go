// Application status graph:
//
//	applied ──► phone_screen ──► interviewing ──► offer ──► accepted
//	   │             │                │             │
//	   └─────────────┴────────────────┴─────────────┴──► rejected / withdrawn
//
// ghosted can be left again when the company resurfaces. accepted, rejected
// and withdrawn are terminal for forward progress; the highest stage reached
// is still measured after them.
package domain

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusApplied      Status = "applied"
	StatusPhoneScreen  Status = "phone_screen"
	StatusInterviewing Status = "interviewing"
	StatusOffer        Status = "offer"
	StatusAccepted     Status = "accepted"
	StatusRejected     Status = "rejected"
	StatusWithdrawn    Status = "withdrawn"
	StatusGhosted      Status = "ghosted"
)

// ProgressOrder lists the forward stages, lowest first.
var ProgressOrder = []Status{
	StatusApplied,
	StatusPhoneScreen,
	StatusInterviewing,
	StatusOffer,
	StatusAccepted,
}

var validTransitions = map[Status][]Status{
	StatusApplied:      {StatusPhoneScreen, StatusInterviewing, StatusOffer, StatusRejected, StatusWithdrawn, StatusGhosted},
	StatusPhoneScreen:  {StatusInterviewing, StatusOffer, StatusRejected, StatusWithdrawn, StatusGhosted},
	StatusInterviewing: {StatusOffer, StatusRejected, StatusWithdrawn, StatusGhosted},
	StatusOffer:        {StatusAccepted, StatusRejected, StatusWithdrawn},
	StatusGhosted:      {StatusPhoneScreen, StatusInterviewing, StatusOffer, StatusRejected, StatusWithdrawn},
	// accepted, rejected and withdrawn have no outgoing transitions
}

// ParseStatus accepts the canonical lower-case names, tolerating case and
// surrounding space.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusApplied, StatusPhoneScreen, StatusInterviewing, StatusOffer,
		StatusAccepted, StatusRejected, StatusWithdrawn, StatusGhosted:
		return st, nil
	}
	return "", &ValidationError{Field: "status", Msg: fmt.Sprintf("unknown application status %q", s)}
}

func CanTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports statuses that end forward progress.
func IsTerminal(s Status) bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusWithdrawn
}

// IsExit reports statuses that say nothing about how far an application got.
func IsExit(s Status) bool {
	return s == StatusRejected || s == StatusWithdrawn || s == StatusGhosted
}

// Rank orders progress stages; exits and unknown values rank as applied.
func Rank(s Status) int {
	for i, p := range ProgressOrder {
		if p == s {
			return i
		}
	}
	return 0
}
