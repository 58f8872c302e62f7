package classify

import "regexp"

type rule struct {
	signal string
	re     *regexp.Regexp
}

func compile(category string, patterns ...string) []rule {
	out := make([]rule, len(patterns))
	for i, p := range patterns {
		out[i] = rule{signal: category + ": " + p, re: regexp.MustCompile(`(?i)` + p)}
	}
	return out
}

func firstMatch(rules []rule, text string) (string, bool) {
	for _, r := range rules {
		if r.re.MatchString(text) {
			return r.signal, true
		}
	}
	return "", false
}

func allMatches(rules []rule, text string) []string {
	var out []string
	for _, r := range rules {
		if r.re.MatchString(text) {
			out = append(out, r.signal)
		}
	}
	return out
}

var exclusionRules = compile("exclusion",
	`referral request`,
	`referral for`,
	`networking request`,
)

// Phrases saying the application was received, or turned down, rather than
// that an interview is being offered.
var negativeRules = compile("negative",
	`if (we|the team) (decide|choose|would like) to (move|proceed|continue)`,
	`if (we|they).{0,20}(reach out|contact|be in touch)`,
	`if (your|the) (qualifications|experience|background) (match|align)`,
	`should (we|the team) (wish|decide|choose) to`,
	`(will|'ll) (let you know|be in touch|reach out|contact)`,
	`your application (was|has been) (sent|submitted|received)`,
	`we (will|may) (review|consider)`,
	`thank you for (applying|your (interest|application))`,
	`after (careful |reviewing |we ).{0,30}(unfortunately|regret|not)`,
	`regret to inform`,
	`(move|moving) forward with (other|another) candidates?`,
	`not (be )?(moving forward|proceeding|advancing)`,
)

// Only explicit scheduling links or interview phrases count. Generic
// "next steps" wording is deliberately absent.
var schedulingRules = compile("interview",
	`calendly\.com`,
	`calendar\.google\.com`,
	`chili\s*piper`,
	`goodtime\.io`,
	`schedule\.once`,
	`book\s*(a|your)\s*time`,
	`pick\s*a\s*time`,
	`select\s*a\s*time`,
	`choose\s*a\s*time`,
	`please\s*(schedule|book|select)`,
)

// Interview phrases also show up in rejections that recap an earlier round
// ("thanks for the phone screen"), so they yield to rejection wording.
var interviewPhraseRules = compile("interview",
	`schedule\s*(a|an|your)\s*(call|interview|meeting|conversation)\s*with`,
	`interview\s*(is\s*)?(scheduled|confirmed)`,
	`looking forward to (speaking|meeting|chatting) with you on`,
	`confirmed for (monday|tuesday|wednesday|thursday|friday|saturday|sunday)`,
	`(we'd|we would|i'd|i would) like to (schedule|invite you to)`,
	`would like to schedule.{0,20}(interview|call|meeting|conversation)`,
	`(we'd|we would|i'd|i would) (like|love) to meet`,
	`interview request`,
	`interview invitation`,
	`phone screen`,
	`recruiter (call|screen|chat)`,
	`zoom interview`,
	`video interview`,
	`upcoming.{0,20}interview`,
	`\|\s*(phone|video|zoom|recruiter).{0,15}(screen|interview|call)`,
)

var offerRules = compile("offer",
	`(pleased|excited|happy) to (offer|extend)`,
	`offer letter`,
	`offer of employment`,
	`extend (an |a )?offer`,
	`formal offer`,
)

var rejectionRules = compile("rejection",
	`after careful (consideration|review)`,
	`decided to (move forward|pursue) (with )?(other|different) candidates`,
	`not (moving forward|proceeding|advancing)`,
	`position has been filled`,
	`unfortunately`,
	`we (will not|won't) be (moving forward|proceeding)`,
	`regret to inform`,
	`we've decided not to`,
	`other candidates (whose|who)`,
)

var confirmationRules = compile("confirmation",
	`thank you for (applying|your application|your interest)`,
	`thanks for (applying|your application|your interest)`,
	`we appreciate (you|your) applying`,
	`thanks from\s+\w+`,
	`application (received|submitted|confirmed)`,
	`we (have )?(received|got) your application`,
	`successfully (submitted|applied)`,
	`your application (has been|was) (received|submitted)`,
	`your application to .+ at `,
	`your application was sent to`,
)

var calendarLinkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`https?://calendly\.com/[^\s"'<>]+`),
	regexp.MustCompile(`https?://calendar\.google\.com/[^\s"'<>]+`),
	regexp.MustCompile(`https?://[^\s"'<>]*schedule[^\s"'<>]+`),
	regexp.MustCompile(`https?://[^\s"'<>]*booking[^\s"'<>]+`),
	regexp.MustCompile(`https?://outlook\.office365\.com/[^\s"'<>]+`),
}

var interviewDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:on|for)\s+([a-z]+day,?\s+[a-z]+\s+\d{1,2}(?:st|nd|rd|th)?(?:,?\s+\d{4})?)`),
	regexp.MustCompile(`(?i)(\d{1,2}/\d{1,2}/\d{2,4})\s+at\s+(\d{1,2}:\d{2}\s*(?:AM|PM)?)`),
	regexp.MustCompile(`(?i)([a-z]+\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4})\s+at\s+(\d{1,2}:\d{2})`),
}

var rejectionStages = []struct {
	stage string
	rules []rule
}{
	{"resume", compile("stage", `resume review`, `initial (review|screening)`, `after reviewing (your|the) (application|resume)`)},
	{"phone_screen", compile("stage", `phone (screen|interview|call)`, `initial (call|conversation)`)},
	{"interview", compile("stage", `after (the |your )interview`, `following (the |your )interview`, `onsite`, `technical interview`)},
	{"final_round", compile("stage", `final round`, `final interview`, `after much (deliberation|consideration)`)},
}

var positionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:for the|for our|applied for|application for)\s+([^.\n]+?)\s+(?:position|role|opening)`),
	regexp.MustCompile(`([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)\s+(?:position|role|opening)`),
	regexp.MustCompile(`(?i)(?:position|role):\s*([^\n]+)`),
}

var jobIndicators = []string{
	"application", "applying", "position", "role", "opportunity", "candidate", "hiring",
	"interview", "resume", "job", "career", "recruitment", "talent", "offer",
}
