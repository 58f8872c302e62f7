// Package classify infers application lifecycle events from inbound email.
//
// Rules are checked in a fixed priority order and the first category that
// matches wins:
//
//	exclusion subject / self-sent  -> unclassified
//	interview invite (scheduling link, or interview phrase without
//	                  rejection wording; never with a negative signal)
//	offer
//	rejection
//	confirmation
//	otherwise unclassified
//
// Classify performs no I/O and is safe for concurrent use.
package classify

import (
	"strings"

	"jobpilot/internal/domain"
)

type Classifier struct {
	userAddress string
}

// New returns a classifier. Mail sent from userAddress is never classified.
func New(userAddress string) *Classifier {
	return &Classifier{userAddress: Address(userAddress)}
}

func (c *Classifier) Classify(e domain.Email) domain.Classification {
	res := domain.Classification{
		Category: domain.CategoryUnclassified,
		Source:   InferSource(e.Sender),
	}

	if sig, ok := firstMatch(exclusionRules, e.Subject); ok {
		res.Signals = append(res.Signals, sig)
		return res
	}
	if c.userAddress != "" && Address(e.Sender) == c.userAddress {
		res.Signals = append(res.Signals, "self-sent")
		return res
	}

	text := e.Subject + "\n" + e.Body
	res.Company = ExtractCompany(e.Subject, e.Body)
	res.Position = ExtractPosition(e.Subject, e.Body)

	negatives := allMatches(negativeRules, text)
	res.Signals = append(res.Signals, negatives...)

	rejectSig, rejected := firstMatch(rejectionRules, text)
	if len(negatives) == 0 {
		sig, ok := firstMatch(schedulingRules, text)
		if !ok && !rejected {
			sig, ok = firstMatch(interviewPhraseRules, text)
		}
		if ok {
			res.Category = domain.CategoryInterviewInvite
			res.Signals = append(res.Signals, sig)
			res.CalendarLink = calendarLink(e.Body + "\n" + e.HTML)
			res.InterviewDate = interviewDate(e.Body)
			return res
		}
	}
	if sig, ok := firstMatch(offerRules, text); ok {
		res.Category = domain.CategoryOffer
		res.Signals = append(res.Signals, sig)
		return res
	}
	if rejected {
		res.Category = domain.CategoryRejection
		res.Signals = append(res.Signals, rejectSig)
		res.RejectionStage = rejectionStage(text)
		return res
	}
	if sig, ok := firstMatch(confirmationRules, text); ok {
		res.Category = domain.CategoryConfirmation
		res.Signals = append(res.Signals, sig)
		return res
	}
	return res
}

// IsJobRelated is a cheap pre-filter over subject and the start of the body.
func IsJobRelated(e domain.Email) bool {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	text := strings.ToLower(e.Subject + " " + body)
	for _, ind := range jobIndicators {
		if strings.Contains(text, ind) {
			return true
		}
	}
	return false
}

func calendarLink(text string) string {
	for _, re := range calendarLinkPatterns {
		if m := re.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

func interviewDate(text string) string {
	for _, re := range interviewDatePatterns {
		if m := re.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

func rejectionStage(text string) string {
	for _, s := range rejectionStages {
		if _, ok := firstMatch(s.rules, text); ok {
			return s.stage
		}
	}
	return ""
}
