package domain

// Band is the fixed score banding collaborators key off.
type Band string

const (
	BandExcellent   Band = "excellent"
	BandGood        Band = "good"
	BandPotential   Band = "potential"
	BandNotRetained Band = "not_retained"
)

// MatchResult is derived entirely from a posting and a scoring profile.
type MatchResult struct {
	Matched          bool     `json:"matched"`
	Score            float64  `json:"score"`
	Band             Band     `json:"band"`
	Engine           string   `json:"engine"`
	MatchedPrimary   []string `json:"matched_primary"`
	MatchedSecondary []string `json:"matched_secondary"`
	MatchedTitle     bool     `json:"matched_title"`
	TitlePartial     float64  `json:"title_partial"`
	NegativeMatches  []string `json:"negative_matches"`
	CompanyTier      *Tier    `json:"company_tier,omitempty"`
	SalaryMatch      bool     `json:"salary_match"`
	RemoteMatch      bool     `json:"remote_match"`
	KeywordCount     int      `json:"keyword_count"`
	KeywordVariety   int      `json:"keyword_variety"`
	Tags             []string `json:"tags,omitempty"`
}
