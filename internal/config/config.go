// internal/config/config.go
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Rule struct {
	Tag    string   `yaml:"tag" json:"tag"`
	Weight int      `yaml:"weight" json:"weight"`
	Any    []string `yaml:"any" json:"any"`
}

type Penalty struct {
	Reason string   `yaml:"reason" json:"reason"`
	Weight int      `yaml:"weight" json:"weight"`
	Any    []string `yaml:"any" json:"any"`
}

type TitleSet struct {
	Primary   []string `yaml:"primary" json:"primary"`
	Secondary []string `yaml:"secondary" json:"secondary"`
}

type CompanyTiers struct {
	Tier1 []string `yaml:"tier1" json:"tier1"`
	Tier2 []string `yaml:"tier2" json:"tier2"`
	Tier3 []string `yaml:"tier3" json:"tier3"`
}

type Compensation struct {
	MinSalary int  `yaml:"min_salary" json:"min_salary"`
	MaxSalary int  `yaml:"max_salary" json:"max_salary"`
	Flexible  bool `yaml:"flexible" json:"flexible"`
}

// Profile is the scoring profile: what the user is looking for.
type Profile struct {
	TargetTitles     TitleSet     `yaml:"target_titles" json:"target_titles"`
	RequiredKeywords TitleSet     `yaml:"required_keywords" json:"required_keywords"`
	NegativeKeywords []string     `yaml:"negative_keywords" json:"negative_keywords"`
	TargetCompanies  CompanyTiers `yaml:"target_companies" json:"target_companies"`
	Compensation     Compensation `yaml:"compensation" json:"compensation"`
	Location         struct {
		// nil means no preference
		RemoteOnly *bool `yaml:"remote_only" json:"remote_only"`
	} `yaml:"location" json:"location"`
}

type Scoring struct {
	Engine         string    `yaml:"engine" json:"engine"` // heuristic | rules
	NotifyMinScore int       `yaml:"notify_min_score" json:"notify_min_score"`
	Profile        Profile   `yaml:"profile" json:"profile"`
	TitleRules     []Rule    `yaml:"title_rules" json:"title_rules"`
	KeywordRules   []Rule    `yaml:"keyword_rules" json:"keyword_rules"`
	Penalties      []Penalty `yaml:"penalties" json:"penalties"`
}

type BoardCompany struct {
	Slug string `yaml:"slug" json:"slug"`
	Name string `yaml:"name" json:"name"`
}

type Source struct {
	Enabled   bool           `yaml:"enabled" json:"enabled"`
	Companies []BoardCompany `yaml:"companies" json:"companies"`
}

type Email struct {
	Enabled          bool     `yaml:"enabled" json:"enabled"`
	IMAPHost         string   `yaml:"imap_host" json:"imap_host"`
	IMAPPort         int      `yaml:"imap_port" json:"imap_port"`
	Username         string   `yaml:"username" json:"username"`
	Mailbox          string   `yaml:"mailbox" json:"mailbox"`
	UserAddress      string   `yaml:"user_address" json:"user_address"`
	MaxMessages      int      `yaml:"max_messages" json:"max_messages"`
	SearchSubjectAny []string `yaml:"search_subject_any" json:"search_subject_any"`
}

// Linker tunes fuzzy company matching between applications and postings.
type Linker struct {
	Strategy         string  `yaml:"strategy" json:"strategy"` // substring | levenshtein
	MinLength        int     `yaml:"min_length" json:"min_length"`
	MaxDistanceRatio float64 `yaml:"max_distance_ratio" json:"max_distance_ratio"`
}

type Config struct {
	App struct {
		Port      int    `yaml:"port" json:"port"`
		DataDir   string `yaml:"data_dir" json:"data_dir"`
		LogLevel  string `yaml:"log_level" json:"log_level"`
		LogFormat string `yaml:"log_format" json:"log_format"`
	} `yaml:"app" json:"app"`

	Polling struct {
		ScanSchedule    string `yaml:"scan_schedule" json:"scan_schedule"`
		EmailSchedule   string `yaml:"email_schedule" json:"email_schedule"`
		CleanupSchedule string `yaml:"cleanup_schedule" json:"cleanup_schedule"`
	} `yaml:"polling" json:"polling"`

	Pipeline struct {
		Workers              int `yaml:"workers" json:"workers"`
		SourceTimeoutSeconds int `yaml:"source_timeout_seconds" json:"source_timeout_seconds"`
	} `yaml:"pipeline" json:"pipeline"`

	Scoring Scoring `yaml:"scoring" json:"scoring"`

	Dedup struct {
		Backend       string `yaml:"backend" json:"backend"` // sqlite | redis | postgres
		LookbackDays  int    `yaml:"lookback_days" json:"lookback_days"`
		RetentionDays int    `yaml:"retention_days" json:"retention_days"`
	} `yaml:"dedup" json:"dedup"`

	Redis struct {
		URL string `yaml:"url" json:"url"`
	} `yaml:"redis" json:"redis"`

	Postgres struct {
		DSN string `yaml:"dsn" json:"dsn"`
	} `yaml:"postgres" json:"postgres"`

	Linker Linker `yaml:"linker" json:"linker"`

	Email Email `yaml:"email" json:"email"`

	Sources struct {
		Greenhouse      Source `yaml:"greenhouse" json:"greenhouse"`
		Lever           Source `yaml:"lever" json:"lever"`
		SmartRecruiters Source `yaml:"smartrecruiters" json:"smartrecruiters"`
	} `yaml:"sources" json:"sources"`

	Metrics struct {
		Enabled bool `yaml:"enabled" json:"enabled"`
	} `yaml:"metrics" json:"metrics"`
}

const (
	EngineHeuristic = "heuristic"
	EngineRules     = "rules"

	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"

	LinkerSubstring   = "substring"
	LinkerLevenshtein = "levenshtein"
)

// Defaults is the config every loaded file is layered on.
func Defaults() Config {
	var cfg Config
	cfg.App.Port = 38471
	cfg.App.DataDir = "."
	cfg.App.LogLevel = "info"
	cfg.App.LogFormat = "console"

	cfg.Polling.ScanSchedule = "@every 6h"
	cfg.Polling.EmailSchedule = "@every 15m"
	cfg.Polling.CleanupSchedule = "@daily"

	cfg.Pipeline.Workers = 8
	cfg.Pipeline.SourceTimeoutSeconds = 300

	cfg.Scoring.Engine = EngineHeuristic
	cfg.Scoring.NotifyMinScore = 60
	cfg.Scoring.Profile.Compensation.Flexible = true

	cfg.Dedup.Backend = BackendSQLite
	cfg.Dedup.LookbackDays = 30
	cfg.Dedup.RetentionDays = 90

	cfg.Linker.Strategy = LinkerSubstring
	cfg.Linker.MinLength = 3
	cfg.Linker.MaxDistanceRatio = 0.2

	cfg.Email.IMAPPort = 993
	cfg.Email.Mailbox = "INBOX"
	cfg.Email.MaxMessages = 200

	cfg.Metrics.Enabled = true
	return cfg
}

func Load(path string) (Config, error) {
	cfg := Defaults()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
