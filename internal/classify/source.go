package classify

import (
	"net/mail"
	"strings"
)

// SourceEmailImport labels applications whose sender is not a known platform.
const SourceEmailImport = "email_import"

// sourceDomains maps ATS and job-board sender addresses or domains to the
// source name used in analytics. Subdomains inherit their parent's source.
var sourceDomains = map[string]string{
	"linkedin.com":                "linkedin",
	"jobs-noreply@linkedin.com":   "linkedin",
	"greenhouse.io":               "greenhouse",
	"greenhouse-mail.io":          "greenhouse",
	"lever.co":                    "lever",
	"hire.lever.co":               "lever",
	"ashbyhq.com":                 "ashby",
	"workday.com":                 "workday",
	"myworkday.com":               "workday",
	"myworkdayjobs.com":           "workday",
	"smartrecruiters.com":         "smartrecruiters",
	"indeed.com":                  "indeed",
	"glassdoor.com":               "glassdoor",
	"icims.com":                   "icims",
	"talent.icims.com":            "icims",
	"hi.wellfound.com":            "wellfound",
	"wellfound.com":               "wellfound",
	"jobvite.com":                 "jobvite",
	"rippling.com":                "rippling",
	"ats.rippling.com":            "rippling",
	"workablemail.com":            "workable",
	"candidates.workablemail.com": "workable",
	"breezy.hr":                   "breezy",
	"bamboohr.com":                "bamboohr",
	"teamtailor.com":              "teamtailor",
	"dover.io":                    "dover",
	"gem.com":                     "gem",
	"appreview.gem.com":           "gem",
}

// Address extracts the bare lowercase address from a From header value.
func Address(sender string) string {
	sender = strings.TrimSpace(sender)
	if a, err := mail.ParseAddress(sender); err == nil {
		return strings.ToLower(a.Address)
	}
	return strings.ToLower(strings.Trim(sender, "<>"))
}

// InferSource maps a sender to a platform name by exact address, then by
// domain or parent domain. Unknown senders give SourceEmailImport.
func InferSource(sender string) string {
	addr := Address(sender)
	if addr == "" {
		return SourceEmailImport
	}
	if s, ok := sourceDomains[addr]; ok {
		return s
	}
	_, domain, found := strings.Cut(addr, "@")
	if !found {
		return SourceEmailImport
	}
	for d := domain; d != ""; {
		if s, ok := sourceDomains[d]; ok {
			return s
		}
		_, rest, ok := strings.Cut(d, ".")
		if !ok || !strings.Contains(rest, ".") {
			break
		}
		d = rest
	}
	return SourceEmailImport
}
