package classify

import (
	"regexp"
	"strings"
)

const nameChars = `[A-Za-z0-9][A-Za-z0-9\s&\.\-]+?`

var subjectCompanyPatterns = func() []*regexp.Regexp {
	ps := []string{
		`thanks for applying to\s+(` + nameChars + `)(?:\s*!?\s*$|\s*[-–])`,
		`thanks from\s+(` + nameChars + `)(?:\s*$|\s*[-–])`,
		`thank you from\s+(` + nameChars + `)(?:\s*$|\s*[-–])`,
		`we appreciate (?:you|your) applying to\s+(` + nameChars + `)(?:\s*$|\s*[-–])`,
		`thank you for applying to join\s+(` + nameChars + `)(?:\s*!?\s*$|\s*[-–])`,
		`update from\s+(` + nameChars + `)(?:\s*$|\s*[-–])`,
		`employment update\s*[-–]\s*(.+?)(?:,\s*(?:LLC|Inc|Corp)\.?)?$`,
		`update on your\s+(` + nameChars + `)\s+application`,
		`^(` + nameChars + `)\s+follow[- ]?up`,
		`^(` + nameChars + `)\s+(?:update|application)(?:\s*$|\s*[-–])`,
		`thank you for (?:applying|your interest|your application) (?:to|in|at)\s+(` + nameChars + `)(?:\s*$|\s*[-–])`,
		`thank you for your interest in joining\s+(` + nameChars + `)(?:\s*$|\s*[-–])`,
		`thank you for your interest in\s+(` + nameChars + `)(?:\s*$|\s*[-–]|\s*holding)`,
		`(?:update on|regarding) your application (?:with|at|to)\s+(` + nameChars + `)(?:\s*$|\s*[-–])`,
		`your application (?:for|to).*?\s+at\s+(` + nameChars + `)(?:\s*$|\s*[-–])`,
		`update on (?:the )?position at\s+(` + nameChars + `)(?:\s*$|\s*[-–])`,
		`follow-?up from\s+(` + nameChars + `)(?:\s*$|\s*[-–|])`,
		`your application was sent to\s+(` + nameChars + `)(?:\s*$|\s*\.)`,
		`(?:we have )?received your application (?:for|to)\s+(` + nameChars + `)(?:\s*!?\s*$)`,
		`application to\s+(` + nameChars + `)\s+successfully`,
		`thanks for your interest in\s+(` + nameChars + `)(?:\s*[,!]|\s*$)`,
		`following up on your\s+(` + nameChars + `)\s+(?:senior |lead |staff )?(?:product|application)`,
	}
	out := make([]*regexp.Regexp, len(ps))
	for i, p := range ps {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}()

// Body patterns are case-sensitive: a capitalized run is the company hint.
var bodyCompanyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:at|from|with)\s+([A-Z][A-Za-z0-9\s&]+?)(?:\.|,|\s+(?:and|is|has|we))`),
	regexp.MustCompile(`([A-Z][A-Za-z0-9\s&]+?)\s+(?:is|would like|team)`),
	regexp.MustCompile(`the\s+([A-Z][A-Za-z0-9\s&]+?)\s+team`),
}

var (
	trailingPunct = regexp.MustCompile(`[!.,;:]+$`)
	leadingFiller = regexp.MustCompile(`(?i)^(?:the|team|at|from|with|joining)\s+`)
	legalSuffix   = regexp.MustCompile(`(?i)[\s,]+(?:team|inc|llc|corp|ltd)\.?$`)
)

var genericWords = map[string]bool{
	"hi": true, "hello": true, "dear": true, "thanks": true, "thank": true, "you": true,
	"your": true, "update": true, "application": true, "joining": true, "employment": true,
	"an": true, "a": true, "the": true, "follow": true, "follow-up": true, "followup": true,
	"our": true, "we": true, "team": true,
}

var sentenceIndicators = []string{
	"thank you", "working here", "our exceptional", "we appreciate", "submitting your",
	"means you", "help chang", "connect with",
}

const (
	maxBodyScan    = 500
	maxCompanyName = 50
)

// ExtractCompany reads the hiring company from the subject, then the first
// part of the body. The sender address is never consulted: ATS platforms
// send from shared domains that do not name the employer.
func ExtractCompany(subject, body string) string {
	subject = strings.TrimSpace(trailingPunct.ReplaceAllString(strings.TrimSpace(subject), ""))
	for _, re := range subjectCompanyPatterns {
		m := re.FindStringSubmatch(subject)
		if m == nil {
			continue
		}
		if c := cleanCompany(m[1]); c != "" {
			return c
		}
	}

	if len(body) > maxBodyScan {
		body = body[:maxBodyScan]
	}
	for _, re := range bodyCompanyPatterns {
		m := re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		if c := cleanCompany(m[1]); c != "" {
			return c
		}
	}
	return ""
}

// cleanCompany trims a captured name and returns "" when it looks like a
// parsing failure rather than a company.
func cleanCompany(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	name = trailingPunct.ReplaceAllString(name, "")
	name = leadingFiller.ReplaceAllString(name, "")
	name = legalSuffix.ReplaceAllString(name, "")
	name = strings.TrimSpace(trailingPunct.ReplaceAllString(name, ""))

	low := strings.ToLower(name)
	if len(name) < 2 || len(name) > maxCompanyName || genericWords[low] {
		return ""
	}
	if first, _, _ := strings.Cut(low, " "); genericWords[first] {
		return ""
	}
	if strings.ContainsAny(name, "!?;:\n") || strings.Contains(name, ". ") {
		return ""
	}
	for _, ind := range sentenceIndicators {
		if strings.Contains(low, ind) {
			return ""
		}
	}
	return name
}

var (
	leadingThe = regexp.MustCompile(`(?i)^the\s+`)
	rejectPositionStarts = []string{
		"thank you", "thanks for", "we received", "your application", "submitting your", "we appreciate",
	}
)

// ExtractPosition looks for "applied for X position" or "Role: X" style
// mentions in the subject and the first part of the body.
func ExtractPosition(subject, body string) string {
	if len(body) > 1000 {
		body = body[:1000]
	}
	text := subject + "\n" + body
	for _, re := range positionPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if p := cleanPosition(m[1]); p != "" {
			return p
		}
	}
	return ""
}

func cleanPosition(p string) string {
	p = strings.Join(strings.Fields(p), " ")
	p = leadingThe.ReplaceAllString(p, "")
	p = strings.TrimSpace(trailingPunct.ReplaceAllString(p, ""))
	low := strings.ToLower(p)
	for _, s := range rejectPositionStarts {
		if strings.HasPrefix(low, s) {
			return ""
		}
	}
	if len(p) < 3 || len(p) > 100 {
		return ""
	}
	return p
}
