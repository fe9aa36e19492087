package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"

	"photokeep/internal/config"
	"photokeep/internal/dedup"
	"photokeep/internal/library"
	"photokeep/internal/logging"
	"photokeep/internal/migration"
	"photokeep/internal/store"
)

// Daemon coordinates background deduplication and enforces single-instance
// execution.
type Daemon struct {
	cfg       *config.Config
	store     *store.Store
	lib       *library.FSLibrary
	processor *dedup.Processor
	logger    *slog.Logger

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status reports daemon runtime information.
type Status struct {
	Running      bool
	StorePath    string
	LockFilePath string
	LibraryDir   string
}

// New builds a daemon from configuration. The store stays open until Close.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("prepare directories: %w", err)
	}

	lib := library.NewFSLibrary(cfg, st, logger)
	processor := dedup.NewProcessor(cfg, st, lib, lib, logger)

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:       cfg,
		store:     st,
		lib:       lib,
		processor: processor,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, runs the format migration when enabled,
// launches the queue processor, and kicks off the initial library scan.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another photokeep daemon instance is already running")
	}

	if d.cfg.Migration.Enabled {
		report, err := migration.New(d.store, d.lib, d.logger).Run(ctx)
		if err != nil {
			_ = d.lock.Unlock()
			return fmt.Errorf("run migration backfill: %w", err)
		}
		d.logger.Info("migration backfill complete",
			logging.Int("indexed", report.Indexed),
			logging.Int("merged", report.Merged))
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.processor.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start queue processor: %w", err)
	}
	d.cancel = cancel
	d.running.Store(true)

	go func() {
		if err := d.lib.Scan(runCtx); err != nil {
			d.logger.Error("library scan", logging.Error(err))
		}
	}()

	d.logger.Info("photokeep daemon started",
		logging.String("lock", d.lockPath),
		logging.String("library", d.cfg.Paths.LibraryDir))
	return nil
}

// Stop halts background processing and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.processor.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("photokeep daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns runtime information for the CLI.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		StorePath:    d.store.Path(),
		LockFilePath: d.lockPath,
		LibraryDir:   d.cfg.Paths.LibraryDir,
	}
}
