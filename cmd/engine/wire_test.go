package main

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"jobpilot/internal/config"
	"jobpilot/internal/dedup"
	"jobpilot/internal/events"
	"jobpilot/internal/logger"
	"jobpilot/internal/metrics"
	"jobpilot/internal/pipeline"
	"jobpilot/internal/scheduler"
	"jobpilot/internal/secrets"
	"jobpilot/internal/tracker"
)

func testConfig(t *testing.T) config.Config {
	cfg := config.Defaults()
	cfg.App.DataDir = t.TempDir()
	return cfg
}

func TestOpenStoresSQLite(t *testing.T) {
	cfg := testConfig(t)
	st, err := openStores(context.Background(), cfg, logger.NewTestLogger(t))
	require.NoError(t, err)
	defer st.Close()

	assert.Same(t, st.db, st.postings)
	assert.Nil(t, st.redis)
	assert.Nil(t, st.pg)

	checks := st.checks()
	require.Contains(t, checks, "sqlite")
	assert.NoError(t, checks["sqlite"](context.Background()))
}

func TestOpenStoresRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Dedup.Backend = config.BackendRedis
	cfg.Redis.URL = "redis://" + mr.Addr()

	st, err := openStores(context.Background(), cfg, logger.NewTestLogger(t))
	require.NoError(t, err)
	defer st.Close()

	require.NotNil(t, st.redis)
	_, isRedis := st.seen.(*dedup.RedisStore)
	assert.True(t, isRedis)
	assert.Same(t, st.db, st.postings)
	assert.NoError(t, st.checks()["redis"](context.Background()))
}

func TestBuildDepsFollowsLiveConfig(t *testing.T) {
	keyring.MockInit()
	t.Setenv(secrets.PasswordEnv, "")

	cfg := testConfig(t)
	log := logger.NewTestLogger(t)
	st, err := openStores(context.Background(), cfg, log)
	require.NoError(t, err)
	defer st.Close()

	var cfgVal atomic.Value
	cfgVal.Store(cfg)
	apps := tracker.New(st.db, st.postings, newLinker(cfg), log)
	build := st.buildDeps(&cfgVal, apps, events.NewHub(), metrics.New(prometheus.NewRegistry()), log)

	d, err := build(context.Background())
	require.NoError(t, err)
	assert.Empty(t, d.Collectors)
	assert.Nil(t, d.Mail)
	assert.NotNil(t, d.Scan)
	assert.NotNil(t, d.Ingest)

	cfg.Sources.Lever.Enabled = true
	cfg.Sources.Lever.Companies = []config.BoardCompany{{Slug: "acme", Name: "Acme"}}
	cfg.Email.Enabled = true
	cfg.Email.Username = "sam@example.com"
	cfg.Email.IMAPHost = "imap.example.com"
	cfgVal.Store(cfg)

	d, err = build(context.Background())
	require.NoError(t, err)
	require.Len(t, d.Collectors, 1)
	assert.Equal(t, "lever", d.Collectors[0].Name())
	assert.Nil(t, d.Mail, "no password stored yet")

	require.NoError(t, secrets.SetIMAPPassword(secrets.IMAPKeyringAccount(cfg), "app-password"))
	d, err = build(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, d.Mail)
}

func TestAddTasks(t *testing.T) {
	cfg := testConfig(t)
	log := logger.NewTestLogger(t)
	st, err := openStores(context.Background(), cfg, log)
	require.NoError(t, err)
	defer st.Close()

	runner := pipeline.NewRunner(func(context.Context) (pipeline.Deps, error) {
		return pipeline.Deps{}, nil
	}, nil, nil, log)

	s := scheduler.New(log)
	require.NoError(t, addTasks(s, cfg, runner, st))
	assert.Equal(t, []string{"scan", "email", "cleanup"}, s.Tasks())

	cfg.Dedup.RetentionDays = 0
	s = scheduler.New(log)
	require.NoError(t, addTasks(s, cfg, runner, st))
	assert.Equal(t, []string{"scan", "email"}, s.Tasks())

	cfg.Polling.ScanSchedule = "not a schedule"
	assert.Error(t, addTasks(scheduler.New(log), cfg, runner, st))
}
