package domain

import "time"

// JobCandidate is a previously discovered posting an application can be linked to.
type JobCandidate struct {
	ID           int64
	Company      string
	Title        string
	Description  string
	DiscoveredAt time.Time
}

// Tier ranks a target company, 1 best. Zero means not a target.
type Tier int

const (
	TierNone Tier = 0
	Tier1    Tier = 1
	Tier2    Tier = 2
	Tier3    Tier = 3
)

// Weight is the share of the company-tier score a tier earns.
func (t Tier) Weight() float64 {
	switch t {
	case Tier1:
		return 1.0
	case Tier2:
		return 0.7
	case Tier3:
		return 0.4
	default:
		return 0
	}
}
