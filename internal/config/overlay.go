// config/overlay.go
package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// OverlayProfile replaces cfg.Scoring.Profile with the one in profilePath.
// A missing file is not an error; the inline profile stays in effect.
func OverlayProfile(cfg *Config, profilePath string) error {
	b, err := os.ReadFile(profilePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var p Profile
	if err := yaml.Unmarshal(b, &p); err != nil {
		return err
	}

	if len(p.TargetTitles.Primary)+len(p.TargetTitles.Secondary) > 0 {
		cfg.Scoring.Profile.TargetTitles = p.TargetTitles
	}
	if len(p.RequiredKeywords.Primary)+len(p.RequiredKeywords.Secondary) > 0 {
		cfg.Scoring.Profile.RequiredKeywords = p.RequiredKeywords
	}
	if len(p.NegativeKeywords) > 0 {
		cfg.Scoring.Profile.NegativeKeywords = p.NegativeKeywords
	}
	tc := p.TargetCompanies
	if len(tc.Tier1)+len(tc.Tier2)+len(tc.Tier3) > 0 {
		cfg.Scoring.Profile.TargetCompanies = tc
	}
	if p.Compensation != (Compensation{}) {
		cfg.Scoring.Profile.Compensation = p.Compensation
	}
	if p.Location.RemoteOnly != nil {
		cfg.Scoring.Profile.Location.RemoteOnly = p.Location.RemoteOnly
	}
	return nil
}
