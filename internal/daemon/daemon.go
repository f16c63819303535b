package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/gofrs/flock"

	"bandstand/internal/catalog"
	"bandstand/internal/config"
	"bandstand/internal/dedup"
	"bandstand/internal/library"
	"bandstand/internal/logging"
	"bandstand/internal/preflight"
	"bandstand/internal/provenance"
	"bandstand/internal/refcheck"
	"bandstand/internal/research"
)

// Daemon coordinates the research orchestrator and the HTTP API, and
// enforces single-instance execution through a lock file next to the
// library database.
type Daemon struct {
	cfg          *config.Config
	logger       *slog.Logger
	store        *library.Store
	fields       *provenance.Store
	orchestrator *research.Orchestrator
	checker      *refcheck.Checker
	resolver     *dedup.Resolver
	api          *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	Research     *research.Snapshot
	LastError    error
	Library      *library.Stats
}

// New constructs a daemon with initialized dependencies. The catalog page
// fetchers from the research runner double as the reference validator's
// sources, so both subsystems share rate-limit pacing per catalog.
func New(cfg *config.Config, store *library.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and library store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	runner, err := research.NewRunner(cfg, store, logger)
	if err != nil {
		return nil, fmt.Errorf("build research runner: %w", err)
	}
	orchestrator := research.NewOrchestrator(cfg, store, runner, logger)

	fields := provenance.New(store)
	checker := refcheck.New(store, fields, logger)
	checker.RegisterFetcher(catalog.NameArchive, runner.Archive())
	checker.RegisterFetcher(catalog.NameEncyclopedia, runner.Encyclopedia())

	d := &Daemon{
		cfg:          cfg,
		logger:       logger.With(logging.String(logging.FieldComponent, "daemon")),
		store:        store,
		fields:       fields,
		orchestrator: orchestrator,
		checker:      checker,
		resolver:     dedup.New(store, cfg.Matching, logger),
		lockPath:     cfg.LockFilePath(),
		lock:         flock.New(cfg.LockFilePath()),
	}
	d.api, err = newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Start acquires the daemon lock, runs preflight, and launches the research
// worker and API server. Filesystem preflight failures are fatal; an
// unreachable catalog only logs, since the research phases already degrade
// gracefully when a source is down.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another bandstand daemon instance is already running")
	}

	for _, result := range preflight.RunAll(ctx, d.cfg) {
		if result.Passed {
			continue
		}
		if result.Fatal {
			_ = d.lock.Unlock()
			return fmt.Errorf("preflight failed: %s: %s", result.Name, result.Detail)
		}
		d.logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail))
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.orchestrator.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start research orchestrator: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.orchestrator.Stop()
		_ = d.lock.Unlock()
		cancel()
		return err
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("bandstand daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.orchestrator.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("bandstand daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddr returns the bound API address, empty until Start succeeds.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Orchestrator exposes the research orchestrator.
func (d *Daemon) Orchestrator() *research.Orchestrator {
	return d.orchestrator
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		LastError:    d.orchestrator.LastError(),
	}
	if snapshot, err := d.orchestrator.Status(ctx); err == nil {
		status.Research = snapshot
	}
	if stats, err := d.store.LibraryStats(ctx); err == nil {
		status.Library = stats
	}
	return status
}
