package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"price-watcher/internal/types"

	"github.com/robfig/cron/v3"
)

// ErrRunInProgress is returned by TryRun while another run holds the lock
var ErrRunInProgress = errors.New("a price check is already running")

// Runner performs one complete price check
type Runner interface {
	RunOnce(ctx context.Context) (*types.RunReport, error)
}

// PriceWatcher runs the price check once at startup and then every poll
// interval. Runs never overlap: a tick that arrives while a run is still in
// progress is skipped.
type PriceWatcher struct {
	cron   *cron.Cron
	runner Runner
	config *types.Config
	logger types.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	running sync.Mutex
	active  atomic.Bool

	mu      sync.RWMutex
	last    *types.RunReport
	lastErr error
	lastAt  time.Time
}

// NewPriceWatcher creates a new watcher
func NewPriceWatcher(config *types.Config, logger types.Logger, runner Runner) *PriceWatcher {
	cl := cronLogger{logger: logger}
	return &PriceWatcher{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		runner: runner,
		config: config,
		logger: logger,
	}
}

// Start schedules the periodic check and triggers the first one
// immediately. Runs stop when ctx is cancelled or Stop is called.
func (w *PriceWatcher) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	spec := fmt.Sprintf("@every %s", w.config.PollInterval)
	if _, err := w.cron.AddFunc(spec, w.scheduledRun); err != nil {
		return fmt.Errorf("failed to schedule price check: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.scheduledRun()
	}()

	w.cron.Start()
	w.logger.Infof("Price watcher scheduled to run every %v", w.config.PollInterval)
	return nil
}

// Stop cancels an in-flight run and waits for it to return
func (w *PriceWatcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	<-w.cron.Stop().Done()
	w.wg.Wait()
	w.logger.Info("Price watcher stopped")
}

func (w *PriceWatcher) scheduledRun() {
	if _, err := w.TryRun(w.runContext()); errors.Is(err, ErrRunInProgress) {
		w.logger.Warn("Skipping scheduled price check, previous run still in progress")
	}
}

// TryRun runs a price check now unless one is already running
func (w *PriceWatcher) TryRun(ctx context.Context) (*types.RunReport, error) {
	if !w.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer w.running.Unlock()
	w.active.Store(true)
	defer w.active.Store(false)
	return w.run(ctx)
}

// Trigger starts a price check in the background unless one is already
// running. The run is bound to the watcher's lifetime, not the caller's.
func (w *PriceWatcher) Trigger() error {
	if !w.running.TryLock() {
		return ErrRunInProgress
	}
	w.active.Store(true)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.running.Unlock()
		defer w.active.Store(false)
		_, _ = w.run(w.runContext())
	}()
	return nil
}

func (w *PriceWatcher) run(ctx context.Context) (*types.RunReport, error) {
	report, err := w.runner.RunOnce(ctx)
	if err != nil {
		w.logger.Errorf("Price check failed: %v", err)
	}

	w.mu.Lock()
	w.lastAt = time.Now()
	w.lastErr = err
	if report != nil {
		w.last = report
	}
	w.mu.Unlock()
	return report, err
}

func (w *PriceWatcher) runContext() context.Context {
	if w.ctx == nil {
		return context.Background()
	}
	return w.ctx
}

// Status describes the latest run as seen by the watcher
type Status struct {
	Running    bool             `json:"running"`
	LastRunAt  time.Time        `json:"lastRunAt,omitempty"`
	LastError  string           `json:"lastError,omitempty"`
	LastReport *types.RunReport `json:"lastReport,omitempty"`
}

// Status returns the latest successful report and the outcome of the
// latest run.
func (w *PriceWatcher) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	status := Status{
		Running:    w.active.Load(),
		LastRunAt:  w.lastAt,
		LastReport: w.last,
	}
	if w.lastErr != nil {
		status.LastError = w.lastErr.Error()
	}
	return status
}

// cronLogger routes cron's own logging to the watcher logger
type cronLogger struct {
	logger types.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Debugf("cron: %s %v", msg, keysAndValues)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Errorf("cron: %s: %v %v", msg, err, keysAndValues)
}
