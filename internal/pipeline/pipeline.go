package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fragreel/internal/config"
	"fragreel/internal/deps"
	"fragreel/internal/logging"
	"fragreel/internal/match"
	"fragreel/internal/media/ffprobe"
	"fragreel/internal/render"
	"fragreel/internal/services"
	"fragreel/internal/store"
)

// Store is the persistence the pipeline needs.
type Store interface {
	GetMatch(ctx context.Context, id string) (*match.Record, error)
	GetHighlight(ctx context.Context, id string) (*match.Highlight, error)
	UpdateHighlightArtifact(ctx context.Context, id, videoPath, thumbnailPath string) error
	SaveTask(ctx context.Context, task store.Task) error
	GetTask(ctx context.Context, id string) (*store.Task, error)
	ListTasks(ctx context.Context, statuses ...store.TaskStatus) ([]store.Task, error)
	DeleteTask(ctx context.Context, id string) (bool, error)
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithChain replaces the default strategy chain.
func WithChain(chain ...render.Strategy) Option {
	return func(p *Pipeline) {
		if len(chain) > 0 {
			p.chain = chain
		}
	}
}

// WithReporter shares an existing reporter.
func WithReporter(r *Reporter) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.reporter = r
		}
	}
}

// Pipeline owns the live video tasks of this process.
type Pipeline struct {
	store           Store
	tools           render.Tools
	chain           []render.Strategy
	outputDir       string
	defaultTemplate string
	reporter        *Reporter
	logger          *slog.Logger
	registry        *registry

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a pipeline. The configured default template must exist.
func New(cfg *config.Config, st Store, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "config is nil", nil)
	}
	if st == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "store is nil", nil)
	}
	if _, ok := render.LookupTemplate(cfg.Render.DefaultTemplate); !ok {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new",
			fmt.Sprintf("unknown default template %q", cfg.Render.DefaultTemplate), nil)
	}
	logger = logging.NewComponentLogger(logger, "pipeline")
	tools := render.ToolsFromConfig(cfg, logger)

	baseCtx, stop := context.WithCancel(context.Background())
	p := &Pipeline{
		store:           st,
		tools:           tools,
		chain:           render.DefaultChain(tools),
		outputDir:       cfg.Paths.OutputDir,
		defaultTemplate: cfg.Render.DefaultTemplate,
		reporter:        NewReporter(),
		logger:          logger,
		registry:        newRegistry(),
		baseCtx:         baseCtx,
		stop:            stop,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Reporter returns the event fan-out for this pipeline.
func (p *Pipeline) Reporter() *Reporter {
	return p.reporter
}

func (p *Pipeline) resolveTemplate(id string) (render.Template, error) {
	if strings.TrimSpace(id) == "" {
		id = p.defaultTemplate
	}
	tmpl, ok := render.LookupTemplate(id)
	if !ok {
		return render.Template{}, services.Wrap(services.ErrValidation, "pipeline", "resolve template",
			fmt.Sprintf("unknown template %q", id), nil)
	}
	return tmpl, nil
}

func (p *Pipeline) loadHighlight(ctx context.Context, id string) (*match.Highlight, error) {
	h, err := p.store.GetHighlight(ctx, id)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, services.Wrap(services.ErrNotFound, "pipeline", "load highlight", id, nil)
	}
	return h, nil
}

// CreateTask registers a render task for a highlight and starts it. An empty
// recordingPath uses the match's recording; an empty templateID uses the
// configured default. When the highlight already has a live task, that
// task is returned instead.
func (p *Pipeline) CreateTask(ctx context.Context, highlightID, recordingPath, templateID string) (store.Task, error) {
	tmpl, err := p.resolveTemplate(templateID)
	if err != nil {
		return store.Task{}, err
	}
	h, err := p.loadHighlight(ctx, highlightID)
	if err != nil {
		return store.Task{}, err
	}
	if strings.TrimSpace(recordingPath) == "" {
		rec, err := p.store.GetMatch(ctx, h.MatchID)
		if err != nil {
			return store.Task{}, err
		}
		if rec != nil {
			recordingPath = rec.DemoPath
		}
	}
	return p.start(ctx, store.TaskKindRender, *h, recordingPath, tmpl)
}

// ImportExternalVideo registers a task that transcodes an externally
// captured file for a highlight instead of rendering one.
func (p *Pipeline) ImportExternalVideo(ctx context.Context, highlightID, sourcePath, templateID string) (store.Task, error) {
	tmpl, err := p.resolveTemplate(templateID)
	if err != nil {
		return store.Task{}, err
	}
	info, err := os.Stat(sourcePath)
	if err != nil || info.IsDir() {
		return store.Task{}, services.Wrap(services.ErrNotFound, "pipeline", "import", sourcePath, err)
	}
	h, err := p.loadHighlight(ctx, highlightID)
	if err != nil {
		return store.Task{}, err
	}
	return p.start(ctx, store.TaskKindImport, *h, sourcePath, tmpl)
}

func (p *Pipeline) start(ctx context.Context, kind store.TaskKind, h match.Highlight, source string, tmpl render.Template) (store.Task, error) {
	now := time.Now().UTC()
	taskCtx, cancel := context.WithCancel(p.baseCtx)
	e := &entry{
		task: store.Task{
			ID:            uuid.NewString(),
			HighlightID:   h.ID,
			Kind:          kind,
			RecordingPath: source,
			TemplateID:    tmpl.ID,
			Status:        store.TaskPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		cancel: cancel,
	}

	got, inserted := p.registry.insertUnlessLive(e)
	if !inserted {
		cancel()
		existing := got.snapshot()
		p.logger.Info("highlight already has a live task",
			logging.HighlightID(h.ID),
			logging.TaskID(existing.ID),
		)
		return existing, nil
	}

	snap := e.snapshot()
	if err := p.store.SaveTask(ctx, snap); err != nil {
		p.registry.remove(snap.ID)
		cancel()
		return store.Task{}, fmt.Errorf("persist task: %w", err)
	}
	p.reporter.Publish(eventFor(snap, "queued"))

	job := render.Job{
		Highlight:     h,
		RecordingPath: source,
		Template:      tmpl,
		OutputPath:    render.OutputPath(p.outputDir, h.ID, now),
	}
	taskCtx = services.WithTaskID(services.WithMatchID(taskCtx, h.MatchID), snap.ID)
	p.wg.Add(1)
	go p.run(taskCtx, e, job)
	return snap, nil
}

// Get returns a live task or a persisted one.
func (p *Pipeline) Get(ctx context.Context, id string) (store.Task, error) {
	if e, ok := p.registry.get(id); ok {
		return e.snapshot(), nil
	}
	t, err := p.store.GetTask(ctx, id)
	if err != nil {
		return store.Task{}, err
	}
	if t == nil {
		return store.Task{}, services.Wrap(services.ErrNotFound, "pipeline", "get task", id, nil)
	}
	return *t, nil
}

// List returns live and persisted tasks, newest first.
func (p *Pipeline) List(ctx context.Context) ([]store.Task, error) {
	persisted, err := p.store.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]store.Task, len(persisted))
	for _, t := range persisted {
		byID[t.ID] = t
	}
	for _, e := range p.registry.all() {
		snap := e.snapshot()
		byID[snap.ID] = snap
	}
	out := make([]store.Task, 0, len(byID))
	for _, t := range byID {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b store.Task) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Remove cancels a live task and forgets it, or deletes a finished one from
// history. Cancellation is best-effort: a running render may still record an
// error after Remove returns.
func (p *Pipeline) Remove(ctx context.Context, id string) error {
	e, inRegistry := p.registry.remove(id)
	if inRegistry {
		e.cancel()
		p.logger.Info("task removed", logging.TaskID(id))
		if !e.snapshot().Status.Terminal() {
			return nil
		}
	}
	removed, err := p.store.DeleteTask(ctx, id)
	if err != nil {
		return err
	}
	if !removed && !inRegistry {
		return services.Wrap(services.ErrNotFound, "pipeline", "remove task", id, nil)
	}
	return nil
}

// ForgetHighlights cancels and drops every task belonging to the given
// highlights. Used when a match and its highlights are deleted.
func (p *Pipeline) ForgetHighlights(highlightIDs ...string) int {
	if len(highlightIDs) == 0 {
		return 0
	}
	dropped := 0
	for _, e := range p.registry.all() {
		snap := e.snapshot()
		if !slices.Contains(highlightIDs, snap.HighlightID) {
			continue
		}
		if removed, ok := p.registry.remove(snap.ID); ok {
			removed.cancel()
			dropped++
		}
	}
	if dropped > 0 {
		p.logger.Info("dropped tasks for deleted highlights", logging.Int("tasks", dropped))
	}
	return dropped
}

// Wait blocks until every task started so far has finished or ctx ends.
func (p *Pipeline) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels live tasks and waits for their goroutines to exit.
func (p *Pipeline) Close(ctx context.Context) error {
	p.stop()
	if err := p.Wait(ctx); err != nil {
		return fmt.Errorf("pipeline shutdown: %w", err)
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context, e *entry, job render.Job) {
	defer p.wg.Done()
	logger := logging.WithContext(ctx, p.logger).With(logging.HighlightID(job.Highlight.ID))
	sampler := logging.NewProgressSampler(10)

	kind := e.snapshot().Kind
	p.update(ctx, e, func(t *store.Task) { t.Status = store.TaskProcessing }, "processing", true)
	logger.Info("task started",
		logging.String("kind", string(kind)),
		logging.String("template", job.Template.ID),
		logging.String("output", job.OutputPath),
	)

	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		p.fail(ctx, e, logger, services.Wrap(services.ErrConfiguration, "pipeline", "prepare output", p.outputDir, err))
		return
	}

	var (
		strategy string
		err      error
	)
	if kind == store.TaskKindImport {
		strategy = "import"
		p.update(ctx, e, func(t *store.Task) { t.Strategy = strategy }, "", true)
		err = p.tools.Transcode(ctx, job.RecordingPath, job.OutputPath, job.Template, p.progressFunc(ctx, e, logger, sampler, strategy))
		if err == nil {
			err = p.verify(ctx, job.OutputPath)
		}
	} else {
		strategy, err = p.renderChain(ctx, e, job, logger, sampler)
	}
	if err != nil {
		p.fail(ctx, e, logger, err)
		return
	}

	thumb := ""
	if t, thumbErr := p.tools.Thumbnail(ctx, job.OutputPath); thumbErr != nil {
		logging.WarnWithContext(logger, "thumbnail extraction failed", "thumbnail_failed",
			logging.Error(thumbErr),
			logging.String(logging.FieldImpact, "highlight has no preview image"),
		)
	} else {
		thumb = t
	}
	if err := p.store.UpdateHighlightArtifact(ctx, job.Highlight.ID, job.OutputPath, thumb); err != nil {
		p.fail(ctx, e, logger, fmt.Errorf("record artifact: %w", err))
		return
	}

	snap, _ := p.update(ctx, e, func(t *store.Task) {
		t.Status = store.TaskCompleted
		t.Progress = 100
		t.OutputPath = job.OutputPath
		t.ThumbnailPath = thumb
	}, "completed", true)
	logger.Info("task completed",
		logging.Strategy(strategy),
		logging.String("output", snap.OutputPath),
	)
}

// renderChain walks the strategies in order and returns the name of the one
// that produced the output.
func (p *Pipeline) renderChain(ctx context.Context, e *entry, job render.Job, logger *slog.Logger, sampler *logging.ProgressSampler) (string, error) {
	var lastErr error
	for _, s := range p.chain {
		if !s.Applicable(job) {
			logger.Debug("strategy not applicable", logging.Strategy(s.Name()))
			continue
		}
		name := s.Name()
		p.update(ctx, e, func(t *store.Task) { t.Strategy = name }, "", true)
		err := s.Render(ctx, job, p.progressFunc(ctx, e, logger, sampler, name))
		if err == nil {
			err = p.verify(ctx, job.OutputPath)
		}
		if err == nil {
			return name, nil
		}
		lastErr = err
		if ctx.Err() != nil || !services.Fallthrough(err) {
			return name, err
		}
		logging.WarnWithContext(logger, "strategy failed; trying next", "strategy_fallback",
			logging.Strategy(name),
			logging.Error(err),
			logging.String(logging.FieldImpact, "falling back to a lower fidelity render"),
		)
	}
	if lastErr == nil {
		lastErr = services.Wrap(services.ErrMissingAsset, "pipeline", "render", "no applicable strategy", nil)
	}
	return "", lastErr
}

func (p *Pipeline) verify(ctx context.Context, output string) error {
	if _, err := os.Stat(output); err != nil {
		return services.Wrap(services.ErrSubprocess, "pipeline", "verify output", "no output written", err)
	}
	if !deps.Available(p.tools.FFprobe) {
		return nil
	}
	if _, err := ffprobe.Verify(ctx, p.tools.FFprobe, output); err != nil {
		return services.Wrap(services.ErrSubprocess, "pipeline", "verify output", output, err)
	}
	return nil
}

func (p *Pipeline) progressFunc(ctx context.Context, e *entry, logger *slog.Logger, sampler *logging.ProgressSampler, strategy string) render.ProgressFunc {
	return func(pct float64) {
		snap, changed := p.update(ctx, e, func(t *store.Task) { t.Progress = pct }, "", false)
		if changed && sampler.ShouldLog(snap.Progress, strategy) {
			logger.Info("render progress",
				logging.Strategy(strategy),
				logging.Progress(snap.Progress),
			)
			p.persist(ctx, snap)
		}
	}
}

func (p *Pipeline) fail(ctx context.Context, e *entry, logger *slog.Logger, err error) {
	msg := err.Error()
	if errors.Is(err, context.Canceled) {
		msg = "task cancelled"
	}
	p.update(ctx, e, func(t *store.Task) {
		t.Status = store.TaskError
		t.ErrorMessage = msg
	}, msg, true)
	if errors.Is(err, services.ErrCaptureInteractive) {
		logger.Info("task needs a manual capture", logging.Error(err))
		return
	}
	logging.ErrorWithContext(logger, "task failed", "render_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "inspect the ffmpeg output in the error message"),
	)
}

// update applies fn, publishes the result and optionally persists it.
func (p *Pipeline) update(ctx context.Context, e *entry, fn func(*store.Task), message string, persist bool) (store.Task, bool) {
	snap, changed := e.advance(fn)
	if !changed {
		return snap, false
	}
	p.reporter.Publish(eventFor(snap, message))
	if persist {
		p.persist(ctx, snap)
	}
	return snap, true
}

func (p *Pipeline) persist(ctx context.Context, snap store.Task) {
	// A cancelled task still records its final state.
	if err := p.store.SaveTask(context.WithoutCancel(ctx), snap); err != nil {
		logging.WarnWithContext(p.logger, "failed to persist task", "task_persist_failed",
			logging.TaskID(snap.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "task history may be stale after restart"),
		)
	}
}
