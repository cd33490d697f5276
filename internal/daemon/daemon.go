package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"jukebox/internal/config"
	"jukebox/internal/jobstore"
	"jukebox/internal/logging"
	"jukebox/internal/notifications"
	"jukebox/internal/worker"
)

const reconcileTimeout = 10 * time.Second

// Daemon supervises the ingest worker and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *jobstore.Store
	worker   *worker.Worker
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running      atomic.Bool
	cancel       context.CancelFunc
	workerExited chan struct{}
	workerErr    error
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Jobs         jobstore.HealthSummary
	JobDBPath    string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobstore.Store, w *worker.Worker, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || w == nil {
		return nil, errors.New("daemon requires config, store, and worker")
	}
	if notifier == nil {
		notifier = notifications.Noop()
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "jukeboxd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		worker:   w,
		notifier: notifier,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, launches the liveness API, and starts the
// worker loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another jukeboxd instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	api, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		_ = d.lock.Unlock()
		cancel()
		return err
	}
	d.api = api
	if err := d.api.start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return err
	}

	d.workerExited = make(chan struct{})
	go func() {
		d.workerErr = d.worker.Run(runCtx)
		close(d.workerExited)
	}()

	d.running.Store(true)
	d.logger.Info("jukeboxd started", logging.String("lock", d.lockPath))
	return nil
}

// WorkerDone is closed when the worker loop exits. Check WorkerErr afterwards:
// a non-context error means the loop hit an unrecoverable fault and the
// process should exit.
func (d *Daemon) WorkerDone() <-chan struct{} {
	return d.workerExited
}

// WorkerErr reports why the worker loop exited. Only valid once WorkerDone is
// closed.
func (d *Daemon) WorkerErr() error {
	return d.workerErr
}

// Stop cancels the worker, returns any in-flight claim to pending, and
// releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.workerExited != nil {
		<-d.workerExited
		if err := d.workerErr; err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("worker exited with error", logging.Error(err))
		}
		d.workerExited = nil
	}

	reclaimed := d.reconcile()
	if err := d.notifier.NotifyWorkerStopped(context.Background(), reclaimed); err != nil {
		d.logger.Warn("shutdown notification failed", logging.Error(err))
	}

	d.api.stop()
	d.api = nil
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("jukeboxd stopped")
}

// reconcile returns every processing row to pending. The worker has already
// exited, so anything still marked processing was interrupted mid-flight.
// This does not cover a hard crash: rows stranded by a kill -9 stay in
// processing until an operator resets them.
func (d *Daemon) reconcile() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	reclaimed, err := d.store.ResetProcessing(ctx, jobstore.ShutdownResetReason)
	if err != nil {
		d.logger.Error("failed to reclaim in-flight jobs",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run `jukebox jobs reset` before restarting"))
		return 0
	}
	if reclaimed > 0 {
		d.logger.Info("in-flight jobs returned to pending", logging.Int64("reclaimed", reclaimed))
	}
	return reclaimed
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddr returns the liveness API's bound address, or empty when the API is
// disabled or not running.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	jobs, err := d.store.Health(ctx)
	if err != nil {
		d.logger.Warn("job health query failed", logging.Error(err))
	}
	return Status{
		Running:      d.running.Load(),
		Jobs:         jobs,
		JobDBPath:    d.store.Path(),
		LockFilePath: d.lockPath,
	}
}
