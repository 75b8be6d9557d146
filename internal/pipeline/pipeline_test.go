package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fragreel/internal/config"
	"fragreel/internal/logging"
	"fragreel/internal/match"
	"fragreel/internal/render"
	"fragreel/internal/services"
	"fragreel/internal/store"
	"fragreel/internal/testsupport"
)

const fakeFFmpeg = `for last; do :; done
printf 'frame=1 time=00:00:15.00 bitrate=1\r' >&2
echo video > "$last"`

const fakeProbe = `echo '{"streams":[{"codec_type":"video","width":1920,"height":1080}],"format":{"duration":"5.0","size":"6"}}'`

type fakeStrategy struct {
	name       string
	applicable bool
	err        error
	write      bool
	block      chan struct{}
	calls      int
}

func (f *fakeStrategy) Name() string { return f.name }
func (f *fakeStrategy) Applicable(render.Job) bool { return f.applicable }

func (f *fakeStrategy) Render(ctx context.Context, job render.Job, progress render.ProgressFunc) error {
	f.calls++
	progress(40)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.err != nil {
		return f.err
	}
	if f.write {
		if err := os.MkdirAll(filepath.Dir(job.OutputPath), 0o755); err != nil {
			return err
		}
		return os.WriteFile(job.OutputPath, []byte("video"), 0o644)
	}
	return nil
}

type fixture struct {
	cfg      *config.Config
	st       *store.Store
	pipe     *Pipeline
	rec      match.Record
	hl       match.Highlight
	demoPath string
}

func newFixture(t *testing.T, cfgOpts []testsupport.ConfigOption, opts ...Option) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, cfgOpts...)
	st := testsupport.MustOpenStore(t, cfg)
	demoPath := filepath.Join(cfg.Paths.DemoDir, "match.dem")
	testsupport.WriteDemo(t, demoPath, testsupport.Source2DemoMagic, "de_mirage")
	rec, hl := testsupport.SeedMatch(t, st, demoPath)

	p, err := New(cfg, st, logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = p.Close(ctx)
	})
	return &fixture{cfg: cfg, st: st, pipe: p, rec: rec, hl: hl, demoPath: demoPath}
}

func (f *fixture) waitTerminal(t *testing.T, id string) store.Task {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := f.pipe.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	task, err := f.pipe.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !task.Status.Terminal() {
		t.Fatalf("task %s not terminal: %s", id, task.Status)
	}
	return task
}

func TestCreateTaskFallsBackToPlaceholder(t *testing.T) {
	f := newFixture(t, []testsupport.ConfigOption{testsupport.WithFFmpeg(fakeFFmpeg, fakeProbe)})
	ctx := context.Background()

	task, err := f.pipe.CreateTask(ctx, f.hl.ID, "", "")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.Status != store.TaskPending {
		t.Fatalf("expected pending snapshot, got %s", task.Status)
	}
	if task.RecordingPath != f.demoPath {
		t.Fatalf("expected recording from match, got %q", task.RecordingPath)
	}
	if task.TemplateID != f.cfg.Render.DefaultTemplate {
		t.Fatalf("expected default template, got %q", task.TemplateID)
	}

	done := f.waitTerminal(t, task.ID)
	if done.Status != store.TaskCompleted {
		t.Fatalf("expected completed, got %s (%s)", done.Status, done.ErrorMessage)
	}
	if done.Strategy != "placeholder" {
		t.Fatalf("expected placeholder strategy, got %q", done.Strategy)
	}
	if done.Progress != 100 || done.CompletedAt == nil {
		t.Fatalf("unexpected completion state: %+v", done)
	}
	if !strings.HasPrefix(done.OutputPath, f.cfg.Paths.OutputDir) || !strings.HasSuffix(done.OutputPath, ".mp4") {
		t.Fatalf("unexpected output path %q", done.OutputPath)
	}
	if done.ThumbnailPath != render.ThumbnailPath(done.OutputPath) {
		t.Fatalf("unexpected thumbnail %q", done.ThumbnailPath)
	}

	h, err := f.st.GetHighlight(ctx, f.hl.ID)
	if err != nil || h == nil {
		t.Fatalf("GetHighlight: %v", err)
	}
	if h.VideoPath != done.OutputPath || h.ThumbnailPath != done.ThumbnailPath {
		t.Fatalf("highlight artifacts not recorded: %+v", h)
	}

	persisted, err := f.st.GetTask(ctx, task.ID)
	if err != nil || persisted == nil {
		t.Fatalf("GetTask: %v", err)
	}
	if persisted.Status != store.TaskCompleted || persisted.Progress != 100 {
		t.Fatalf("unexpected persisted task: %+v", persisted)
	}
}

func TestRenderClearsStaleThumbnailWhenExtractionFails(t *testing.T) {
	noThumb := `for last; do :; done
case "$last" in *.jpg) echo 'no frame' >&2; exit 1;; esac
echo video > "$last"`
	f := newFixture(t, []testsupport.ConfigOption{testsupport.WithFFmpeg(noThumb, fakeProbe)})
	ctx := context.Background()
	if err := f.st.UpdateHighlightArtifact(ctx, f.hl.ID, "/old/render.mp4", "/old/render.jpg"); err != nil {
		t.Fatalf("UpdateHighlightArtifact: %v", err)
	}

	task, err := f.pipe.CreateTask(ctx, f.hl.ID, "", "")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	done := f.waitTerminal(t, task.ID)
	if done.Status != store.TaskCompleted {
		t.Fatalf("expected completed, got %s (%s)", done.Status, done.ErrorMessage)
	}
	if done.ThumbnailPath != "" {
		t.Fatalf("expected no thumbnail, got %q", done.ThumbnailPath)
	}
	h, err := f.st.GetHighlight(ctx, f.hl.ID)
	if err != nil || h == nil {
		t.Fatalf("GetHighlight: %v", err)
	}
	if h.VideoPath != done.OutputPath || h.ThumbnailPath != "" {
		t.Fatalf("stale thumbnail kept alongside new video: %+v", h)
	}
}

func TestCreateTaskPrefersClips(t *testing.T) {
	f := newFixture(t, []testsupport.ConfigOption{testsupport.WithFFmpeg(fakeFFmpeg, fakeProbe)})
	clips := filepath.Join(filepath.Dir(f.demoPath), f.cfg.Render.ClipsDirName)
	testsupport.WriteFile(t, filepath.Join(clips, "01.mp4"), 4)

	task, err := f.pipe.CreateTask(context.Background(), f.hl.ID, "", "minimal")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	done := f.waitTerminal(t, task.ID)
	if done.Status != store.TaskCompleted || done.Strategy != "clip_composer" {
		t.Fatalf("expected clip composer completion, got %s via %q (%s)", done.Status, done.Strategy, done.ErrorMessage)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.pipe.CreateTask(ctx, f.hl.ID, "", "cinematic"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unknown template, got %v", err)
	}
	if _, err := f.pipe.CreateTask(ctx, "missing", "", ""); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for unknown highlight, got %v", err)
	}
	if _, err := f.pipe.ImportExternalVideo(ctx, f.hl.ID, filepath.Join(t.TempDir(), "nope.mp4"), ""); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for missing import source, got %v", err)
	}
}

func TestNewRejectsUnknownDefaultTemplate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Render.DefaultTemplate = "cinematic"
	st := testsupport.MustOpenStore(t, cfg)
	if _, err := New(cfg, st, logging.NewNop()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestFallthroughRules(t *testing.T) {
	tests := []struct {
		name         string
		first        *fakeStrategy
		wantStatus   store.TaskStatus
		wantStrategy string
		secondCalls  int
	}{
		{
			name:         "missing asset falls through",
			first:        &fakeStrategy{name: "first", applicable: true, err: services.Wrap(services.ErrMissingAsset, "t", "r", "no clips", nil)},
			wantStatus:   store.TaskCompleted,
			wantStrategy: "second",
			secondCalls:  1,
		},
		{
			name:         "subprocess failure falls through",
			first:        &fakeStrategy{name: "first", applicable: true, err: services.Wrap(services.ErrSubprocess, "t", "r", "exit 1", nil)},
			wantStatus:   store.TaskCompleted,
			wantStrategy: "second",
			secondCalls:  1,
		},
		{
			name:         "inapplicable is skipped",
			first:        &fakeStrategy{name: "first", applicable: false},
			wantStatus:   store.TaskCompleted,
			wantStrategy: "second",
			secondCalls:  1,
		},
		{
			name:         "missing output falls through",
			first:        &fakeStrategy{name: "first", applicable: true},
			wantStatus:   store.TaskCompleted,
			wantStrategy: "second",
			secondCalls:  1,
		},
		{
			name:         "interactive capture is terminal",
			first:        &fakeStrategy{name: "first", applicable: true, err: services.Wrap(services.ErrCaptureInteractive, "t", "r", "capture manually", nil)},
			wantStatus:   store.TaskError,
			wantStrategy: "first",
			secondCalls:  0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			second := &fakeStrategy{name: "second", applicable: true, write: true}
			f := newFixture(t, nil, WithChain(tc.first, second))
			task, err := f.pipe.CreateTask(context.Background(), f.hl.ID, "", "")
			if err != nil {
				t.Fatalf("CreateTask: %v", err)
			}
			done := f.waitTerminal(t, task.ID)
			if done.Status != tc.wantStatus {
				t.Fatalf("expected %s, got %s (%s)", tc.wantStatus, done.Status, done.ErrorMessage)
			}
			if done.Strategy != tc.wantStrategy {
				t.Fatalf("expected strategy %q, got %q", tc.wantStrategy, done.Strategy)
			}
			if second.calls != tc.secondCalls {
				t.Fatalf("expected %d calls to second strategy, got %d", tc.secondCalls, second.calls)
			}
			if tc.wantStatus == store.TaskError && !strings.Contains(done.ErrorMessage, "capture manually") {
				t.Fatalf("expected error message to be captured, got %q", done.ErrorMessage)
			}
		})
	}
}

func TestChainExhausted(t *testing.T) {
	only := &fakeStrategy{name: "only", applicable: true, err: services.Wrap(services.ErrTimeout, "t", "r", "too slow", nil)}
	f := newFixture(t, nil, WithChain(only))
	task, err := f.pipe.CreateTask(context.Background(), f.hl.ID, "", "")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	done := f.waitTerminal(t, task.ID)
	if done.Status != store.TaskError || !strings.Contains(done.ErrorMessage, "too slow") {
		t.Fatalf("expected timeout error, got %s (%s)", done.Status, done.ErrorMessage)
	}
	h, err := f.st.GetHighlight(context.Background(), f.hl.ID)
	if err != nil || h == nil {
		t.Fatalf("GetHighlight: %v", err)
	}
	if h.VideoPath != "" {
		t.Fatalf("failed render should not set artifacts, got %q", h.VideoPath)
	}
}

func TestDuplicateLiveTaskIsReturned(t *testing.T) {
	blocker := &fakeStrategy{name: "slow", applicable: true, write: true, block: make(chan struct{})}
	f := newFixture(t, nil, WithChain(blocker))
	ctx := context.Background()

	first, err := f.pipe.CreateTask(ctx, f.hl.ID, "", "")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	second, err := f.pipe.CreateTask(ctx, f.hl.ID, "", "esports")
	if err != nil {
		t.Fatalf("CreateTask duplicate: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected existing task %s, got %s", first.ID, second.ID)
	}
	close(blocker.block)
	done := f.waitTerminal(t, first.ID)
	if done.Status != store.TaskCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}

	third, err := f.pipe.CreateTask(ctx, f.hl.ID, "", "")
	if err != nil {
		t.Fatalf("CreateTask after completion: %v", err)
	}
	if third.ID == first.ID {
		t.Fatalf("expected a new task once the first finished")
	}
}

func TestRemove(t *testing.T) {
	blocker := &fakeStrategy{name: "slow", applicable: true, block: make(chan struct{})}
	f := newFixture(t, nil, WithChain(blocker))
	ctx := context.Background()

	task, err := f.pipe.CreateTask(ctx, f.hl.ID, "", "")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := f.pipe.Remove(ctx, task.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := f.pipe.Wait(waitCtx); err != nil {
		t.Fatalf("removed task did not stop: %v", err)
	}
	if _, ok := f.pipe.registry.get(task.ID); ok {
		t.Fatalf("task still in registry")
	}
	if err := f.pipe.Remove(ctx, "unknown"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestForgetHighlights(t *testing.T) {
	blocker := &fakeStrategy{name: "slow", applicable: true, block: make(chan struct{})}
	f := newFixture(t, nil, WithChain(blocker))
	task, err := f.pipe.CreateTask(context.Background(), f.hl.ID, "", "")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if n := f.pipe.ForgetHighlights("other"); n != 0 {
		t.Fatalf("expected nothing dropped, got %d", n)
	}
	if n := f.pipe.ForgetHighlights(f.hl.ID); n != 1 {
		t.Fatalf("expected one task dropped, got %d", n)
	}
	if _, ok := f.pipe.registry.get(task.ID); ok {
		t.Fatalf("task still in registry")
	}
}

func TestImportExternalVideo(t *testing.T) {
	f := newFixture(t, []testsupport.ConfigOption{testsupport.WithFFmpeg(fakeFFmpeg, fakeProbe)})
	source := filepath.Join(t.TempDir(), "capture.avi")
	testsupport.WriteFile(t, source, 3)

	task, err := f.pipe.ImportExternalVideo(context.Background(), f.hl.ID, source, "clean")
	if err != nil {
		t.Fatalf("ImportExternalVideo: %v", err)
	}
	if task.Kind != store.TaskKindImport {
		t.Fatalf("expected import kind, got %s", task.Kind)
	}
	done := f.waitTerminal(t, task.ID)
	if done.Status != store.TaskCompleted || done.Strategy != "import" {
		t.Fatalf("expected import completion, got %s via %q (%s)", done.Status, done.Strategy, done.ErrorMessage)
	}
}

func TestListMergesRegistryAndHistory(t *testing.T) {
	f := newFixture(t, nil, WithChain(&fakeStrategy{name: "ok", applicable: true, write: true}))
	ctx := context.Background()

	old := store.Task{
		ID:          "old-task",
		HighlightID: f.hl.ID,
		TemplateID:  "clean",
		Status:      store.TaskError,
		CreatedAt:   time.Now().Add(-time.Hour).UTC(),
		UpdatedAt:   time.Now().Add(-time.Hour).UTC(),
	}
	if err := f.st.SaveTask(ctx, old); err != nil {
		t.Fatalf("SaveTask: %v", err)
	}
	task, err := f.pipe.CreateTask(ctx, f.hl.ID, "", "")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	f.waitTerminal(t, task.ID)

	tasks, err := f.pipe.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != task.ID || tasks[1].ID != old.ID {
		t.Fatalf("unexpected order: %s, %s", tasks[0].ID, tasks[1].ID)
	}

	if err := f.pipe.Remove(ctx, old.ID); err != nil {
		t.Fatalf("Remove persisted task: %v", err)
	}
	if got, _ := f.st.GetTask(ctx, old.ID); got != nil {
		t.Fatalf("expected persisted task deleted")
	}
}

func TestReporterSeesOrderedLifecycle(t *testing.T) {
	f := newFixture(t, nil, WithChain(&fakeStrategy{name: "ok", applicable: true, write: true}))
	events, cancel := f.pipe.Reporter().Subscribe(64)
	defer cancel()

	task, err := f.pipe.CreateTask(context.Background(), f.hl.ID, "", "")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	var seen []Event
	timeout := time.After(5 * time.Second)
	for len(seen) == 0 || !seen[len(seen)-1].Status.Terminal() {
		select {
		case ev := <-events:
			if ev.TaskID == task.ID {
				seen = append(seen, ev)
			}
		case <-timeout:
			t.Fatalf("no terminal event, saw %d events", len(seen))
		}
	}
	if seen[0].Status != store.TaskPending {
		t.Fatalf("expected first event pending, got %s", seen[0].Status)
	}
	last := seen[len(seen)-1]
	if last.Status != store.TaskCompleted || last.Progress != 100 {
		t.Fatalf("unexpected terminal event: %+v", last)
	}
	for i := 1; i < len(seen); i++ {
		if rank(seen[i].Status) < rank(seen[i-1].Status) || seen[i].Progress < seen[i-1].Progress {
			t.Fatalf("event %d regressed: %+v after %+v", i, seen[i], seen[i-1])
		}
	}
}
