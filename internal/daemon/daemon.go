package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"
	"go.uber.org/multierr"

	"fragreel/internal/api"
	"fragreel/internal/config"
	"fragreel/internal/logging"
	"fragreel/internal/pipeline"
	"fragreel/internal/preflight"
	"fragreel/internal/services"
	"fragreel/internal/store"
	"fragreel/internal/workflow"
)

// ErrLocked reports that another process holds the workspace lock.
var ErrLocked = errors.New("another fragreel process is rendering in this workspace")

// Daemon owns the render-capable services of one process.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	version  string
	store    *store.Store
	pipeline *pipeline.Pipeline
	workflow *workflow.Service

	lockPath string
	lock     *flock.Flock

	serving atomic.Bool
	server  *api.Server
}

// Open acquires the workspace lock and builds the services. The lock is
// released again when any later step fails.
func Open(cfg *config.Config, logger *slog.Logger, version string) (*Daemon, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "daemon", "open", "config is nil", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	lockPath := cfg.LockPath()
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, lockPath)
	}

	st, err := store.Open(cfg)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open store: %w", err)
	}
	// The lock holder owns every task row; rows still live belong to a
	// process that exited without finishing them.
	if n, err := st.FailInterruptedTasks(context.Background()); err != nil {
		_ = st.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("recover interrupted tasks: %w", err)
	} else if n > 0 {
		logging.WarnWithContext(logger, "interrupted tasks marked as failed", "tasks_interrupted",
			logging.Int("count", int(n)),
			logging.String(logging.FieldImpact, "those highlights need to be rendered again"),
		)
	}
	pipe, err := pipeline.New(cfg, st, logger)
	if err != nil {
		_ = st.Close()
		_ = lock.Unlock()
		return nil, err
	}
	wf := workflow.NewService(cfg, st, logger, workflow.WithTaskForgetter(pipe))

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		version:  version,
		store:    st,
		pipeline: pipe,
		workflow: wf,
		lockPath: lockPath,
		lock:     lock,
	}
	d.logger.Info("fragreel services ready",
		logging.String("lock", lockPath),
		logging.String("database", st.Path()),
		logging.Bool("degraded_ingest", wf.Degraded()),
	)
	return d, nil
}

// Store returns the open store.
func (d *Daemon) Store() *store.Store { return d.store }

// Pipeline returns the render pipeline.
func (d *Daemon) Pipeline() *pipeline.Pipeline { return d.pipeline }

// Workflow returns the ingestion service.
func (d *Daemon) Workflow() *workflow.Service { return d.workflow }

// LockPath returns the workspace lock file.
func (d *Daemon) LockPath() string { return d.lockPath }

// Status collects preflight checks, tool availability and task counts.
func (d *Daemon) Status(ctx context.Context) api.Status {
	status := api.Status{
		Version:      d.version,
		Degraded:     d.workflow.Degraded(),
		DatabasePath: d.store.Path(),
		OutputDir:    d.cfg.Paths.OutputDir,
		Tasks:        map[string]int{},
		Checks:       preflight.RunAll(ctx, d.cfg, d.store),
		Dependencies: preflight.CheckSystemDeps(d.cfg),
	}
	tasks, err := d.pipeline.List(ctx)
	if err != nil {
		logging.WarnWithContext(d.logger, "task listing failed", "status_tasks_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "status omits task counts"),
		)
		return status
	}
	for _, t := range tasks {
		status.Tasks[string(t.Status)]++
	}
	return status
}

// Serve runs the local API until ctx ends. It returns the bound address
// through ready once listening.
func (d *Daemon) Serve(ctx context.Context, ready func(addr string)) error {
	if !d.serving.CompareAndSwap(false, true) {
		return errors.New("api server already running")
	}
	defer d.serving.Store(false)

	failed := preflight.Failed(preflight.RunAll(ctx, d.cfg, d.store))
	if len(failed) > 0 {
		return services.Wrap(services.ErrConfiguration, "daemon", "serve",
			fmt.Sprintf("%s: %s", failed[0].Name, failed[0].Detail), nil)
	}

	server, err := api.NewServer(d.cfg.API.Bind, api.Backend{
		Store:    d.store,
		Ingester: d.workflow,
		Renderer: d.pipeline,
		Status:   d.Status,
	}, d.logger)
	if err != nil {
		return err
	}
	d.server = server
	addr, err := server.Start(ctx)
	if err != nil {
		return err
	}
	if ready != nil {
		ready(addr)
	}
	<-ctx.Done()
	server.Stop()
	d.logger.Info("api server stopped")
	return nil
}

// Close cancels live tasks and releases the store and lock.
func (d *Daemon) Close(ctx context.Context) error {
	var errs error
	if d.server != nil {
		d.server.Stop()
	}
	if err := d.pipeline.Close(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := d.store.Close(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("close store: %w", err))
	}
	if err := d.lock.Unlock(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("release lock: %w", err))
	}
	d.logger.Info("fragreel services stopped")
	return errs
}
