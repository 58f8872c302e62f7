package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const validationPrefix = "config validation failed:\n- "

// Validate is the hard gate: a config failing it is never saved or served.
func Validate(cfg Config) error {
	var errs []string

	if cfg.App.Port <= 0 || cfg.App.Port > 65535 {
		errs = append(errs, "app.port must be 1..65535")
	}
	if cfg.Scoring.NotifyMinScore < 0 || cfg.Scoring.NotifyMinScore > 100 {
		errs = append(errs, "scoring.notify_min_score must be 0..100")
	}
	if cfg.Dedup.LookbackDays <= 0 {
		errs = append(errs, "dedup.lookback_days must be > 0")
	}
	if cfg.Dedup.RetentionDays > 0 && cfg.Dedup.RetentionDays < cfg.Dedup.LookbackDays {
		errs = append(errs, "dedup.retention_days must be >= dedup.lookback_days")
	}

	switch strings.ToLower(cfg.Dedup.Backend) {
	case BackendSQLite:
	case BackendRedis:
		if strings.TrimSpace(cfg.Redis.URL) == "" {
			errs = append(errs, "redis.url is required when dedup.backend=redis")
		}
	case BackendPostgres:
		if strings.TrimSpace(cfg.Postgres.DSN) == "" {
			errs = append(errs, "postgres.dsn is required when dedup.backend=postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("dedup.backend %q must be sqlite, redis or postgres", cfg.Dedup.Backend))
	}

	switch strings.ToLower(cfg.Linker.Strategy) {
	case LinkerSubstring:
	case LinkerLevenshtein:
		if cfg.Linker.MaxDistanceRatio <= 0 || cfg.Linker.MaxDistanceRatio >= 1 {
			errs = append(errs, "linker.max_distance_ratio must be between 0 and 1")
		}
	default:
		errs = append(errs, fmt.Sprintf("linker.strategy %q must be substring or levenshtein", cfg.Linker.Strategy))
	}

	comp := cfg.Scoring.Profile.Compensation
	if comp.MinSalary < 0 || comp.MaxSalary < 0 {
		errs = append(errs, "scoring.profile.compensation salaries must be >= 0")
	}
	if comp.MaxSalary > 0 && comp.MinSalary > comp.MaxSalary {
		errs = append(errs, "scoring.profile.compensation.min_salary must be <= max_salary")
	}

	for _, s := range []struct{ name, spec string }{
		{"polling.scan_schedule", cfg.Polling.ScanSchedule},
		{"polling.email_schedule", cfg.Polling.EmailSchedule},
		{"polling.cleanup_schedule", cfg.Polling.CleanupSchedule},
	} {
		if s.spec != "" && !validSchedule(s.spec) {
			errs = append(errs, fmt.Sprintf("%s %q is not a valid cron spec", s.name, s.spec))
		}
	}

	if cfg.Email.Enabled {
		if strings.TrimSpace(cfg.Email.IMAPHost) == "" {
			errs = append(errs, "email.imap_host is required when email.enabled=true")
		}
		if strings.TrimSpace(cfg.Email.Username) == "" {
			errs = append(errs, "email.username is required when email.enabled=true")
		}
	}

	checkRules := func(name string, rules []Rule) {
		for i, r := range rules {
			if r.Tag == "" {
				errs = append(errs, fmt.Sprintf("%s[%d].tag is required", name, i))
			}
			if len(r.Any) == 0 {
				errs = append(errs, fmt.Sprintf("%s[%d].any must have at least 1 term", name, i))
			}
			for j, term := range r.Any {
				if term == "" {
					errs = append(errs, fmt.Sprintf("%s[%d].any[%d] cannot be empty", name, i, j))
				}
			}
		}
	}
	checkRules("scoring.title_rules", cfg.Scoring.TitleRules)
	checkRules("scoring.keyword_rules", cfg.Scoring.KeywordRules)
	for i, p := range cfg.Scoring.Penalties {
		if p.Reason == "" {
			errs = append(errs, fmt.Sprintf("scoring.penalties[%d].reason is required", i))
		}
		if len(p.Any) == 0 {
			errs = append(errs, fmt.Sprintf("scoring.penalties[%d].any must have at least 1 term", i))
		}
	}

	if len(errs) > 0 {
		return errors.New(validationPrefix + strings.Join(errs, "\n- "))
	}
	return nil
}

func SaveAtomic(path string, cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	b, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	bak := path + ".bak"

	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}

	_ = os.Remove(bak)
	_ = os.Rename(path, bak)

	return os.Rename(tmp, path)
}
