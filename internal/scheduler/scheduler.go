// Package scheduler runs named periodic tasks on cron specs.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"jobpilot/internal/logger"
)

type Task func(ctx context.Context) error

type Scheduler struct {
	cron *cron.Cron
	log  logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	names []string
	boot  []namedTask
}

type namedTask struct {
	name string
	task Task
}

func New(log logger.Logger) *Scheduler {
	log = logger.Component(log, "scheduler")
	cl := cronLogger{log}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers task under spec ("@every 15m", "@daily", "0 */6 * * *").
// With runAtStart the task also runs once when Start is called.
func (s *Scheduler) Add(name, spec string, runAtStart bool, task Task) error {
	if _, err := s.cron.AddFunc(spec, func() { s.run(name, task) }); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.mu.Lock()
	s.names = append(s.names, name)
	if runAtStart {
		s.boot = append(s.boot, namedTask{name, task})
	}
	s.mu.Unlock()
	s.log.Info("task registered", map[string]interface{}{"task": name, "spec": spec})
	return nil
}

// Start begins the cron loop and kicks off the run-at-start tasks in the
// background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.mu.Lock()
	boot := s.boot
	s.boot = nil
	s.mu.Unlock()
	for _, t := range boot {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.run(t.name, t.task)
		}()
	}
}

// Stop cancels the context handed to tasks and waits for running ones.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.log.Info("stopped", nil)
}

func (s *Scheduler) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...)
}

func (s *Scheduler) run(name string, task Task) {
	if s.ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := task(s.ctx); err != nil {
		s.log.WithError(err).Error("task failed", map[string]interface{}{
			"task": name,
			"took": time.Since(start).String(),
		})
		return
	}
	s.log.Debug("task done", map[string]interface{}{"task": name, "took": time.Since(start).String()})
}

// cronLogger routes cron's own logging through ours.
type cronLogger struct{ log logger.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.log.Debug("cron: "+msg, kvFields(kv))
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.log.WithError(err).Error("cron: "+msg, kvFields(kv))
}

func kvFields(kv []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return out
}
