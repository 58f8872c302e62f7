package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jobpilot/internal/config"
	"jobpilot/internal/events"
	"jobpilot/internal/httpapi"
	"jobpilot/internal/logger"
	"jobpilot/internal/metrics"
	"jobpilot/internal/pipeline"
	"jobpilot/internal/scheduler"
	"jobpilot/internal/tracker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "engine: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	// Engine data dir: env if provided (the desktop shell passes one), else local folder.
	dataDir := os.Getenv(config.EnvDataDir)
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	lock := flock.New(filepath.Join(dataDir, "jobpilot.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock data dir: %w", err)
	}
	if !locked {
		return fmt.Errorf("another engine is already using %s", dataDir)
	}
	defer func() { _ = lock.Unlock() }()

	userCfgPath, err := config.EnsureUserConfig(dataDir, filepath.Join("config", "config.yml"))
	if err != nil {
		return fmt.Errorf("config bootstrap failed: %w", err)
	}
	loadCfg := func() (config.Config, error) {
		cfg, err := config.Load(userCfgPath)
		if err != nil {
			return cfg, err
		}
		config.ApplyEnv(&cfg)
		cfg.App.DataDir = dataDir
		if err := config.OverlayProfile(&cfg, filepath.Join(dataDir, "profile.yml")); err != nil {
			return cfg, fmt.Errorf("profile overlay: %w", err)
		}
		return cfg, nil
	}
	cfg, err := loadCfg()
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", userCfgPath, err)
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	cfgVal.Store(cfg)

	zl := logger.New(cfg.App.LogLevel, cfg.App.LogFormat)
	defer func() { _ = zl.Sync() }()
	log := logger.NewZapAdapter(zl)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	hub := events.NewHub()
	apps := tracker.New(st.db, st.postings, newLinker(cfg), log)
	runner := pipeline.NewRunner(st.buildDeps(&cfgVal, apps, hub, m, log), hub, m, log)

	sched := scheduler.New(log)
	if err := addTasks(sched, cfg, runner, st); err != nil {
		return err
	}

	d := httpapi.Deps{
		Postings:     st.postings,
		Applications: apps,
		Runner:       runner,
		Hub:          hub,
		CfgVal:       &cfgVal,
		UserCfgPath:  userCfgPath,
		LoadCfg:      loadCfg,
		Checks:       st.checks(),
		Checkpoint:   st.db.Checkpoint,
		Log:          log,
	}
	if cfg.Metrics.Enabled {
		d.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	// Loopback only; the desktop shell is the sole client.
	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           httpapi.NewHandler(d),
		ReadHeaderTimeout: 5 * time.Second,
	}

	sched.Start()
	defer sched.Stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	log.Info("engine listening", map[string]interface{}{
		"addr":    "http://" + addr,
		"config":  userCfgPath,
		"backend": cfg.Dedup.Backend,
		"tasks":   sched.Tasks(),
	})

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down", nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// addTasks registers the periodic jobs. An empty schedule disables a task.
func addTasks(s *scheduler.Scheduler, cfg config.Config, runner *pipeline.Runner, st *stores) error {
	scan := func(ctx context.Context) error {
		_, err := runner.RunScan(ctx)
		return ignoreRunning(err)
	}
	mail := func(ctx context.Context) error {
		_, err := runner.RunMail(ctx)
		return ignoreRunning(err)
	}
	retention := cfg.Dedup.RetentionDays
	cleanup := func(ctx context.Context) error {
		_, err := st.postings.CleanupOldPostings(ctx, time.Now().AddDate(0, 0, -retention))
		return err
	}

	tasks := []struct {
		name       string
		spec       string
		runAtStart bool
		task       scheduler.Task
	}{
		{"scan", cfg.Polling.ScanSchedule, true, scan},
		{"email", cfg.Polling.EmailSchedule, true, mail},
		{"cleanup", cfg.Polling.CleanupSchedule, false, cleanup},
	}
	for _, t := range tasks {
		if t.spec == "" || (t.name == "cleanup" && retention <= 0) {
			continue
		}
		if err := s.Add(t.name, t.spec, t.runAtStart, t.task); err != nil {
			return err
		}
	}
	return nil
}

// ignoreRunning treats a tick that lands on a manual run as done.
func ignoreRunning(err error) error {
	if errors.Is(err, pipeline.ErrRunning) {
		return nil
	}
	return err
}
