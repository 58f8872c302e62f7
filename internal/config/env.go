package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variables that override file values. cmd/engine loads .env first.
const (
	EnvDataDir     = "JOBPILOT_DATA_DIR"
	EnvPort        = "JOBPILOT_PORT"
	EnvLogLevel    = "JOBPILOT_LOG_LEVEL"
	EnvRedisURL    = "JOBPILOT_REDIS_URL"
	EnvPostgresDSN = "JOBPILOT_POSTGRES_DSN"
)

func ApplyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		cfg.App.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPort)); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.App.Port = p
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.App.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvRedisURL)); v != "" {
		cfg.Redis.URL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPostgresDSN)); v != "" {
		cfg.Postgres.DSN = v
	}
}
