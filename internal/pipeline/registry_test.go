package pipeline

import (
	"testing"
	"time"

	"fragreel/internal/store"
)

func TestAdvanceEnforcesStateMachine(t *testing.T) {
	e := &entry{task: store.Task{ID: "t1", HighlightID: "h1", Status: store.TaskPending}}

	snap, changed := e.advance(func(t *store.Task) {
		t.Status = store.TaskProcessing
		t.Progress = 30
	})
	if !changed || snap.Status != store.TaskProcessing || snap.Progress != 30 {
		t.Fatalf("unexpected advance: %+v changed=%v", snap, changed)
	}

	snap, changed = e.advance(func(t *store.Task) { t.Progress = 10 })
	if changed || snap.Progress != 30 {
		t.Fatalf("progress regressed: %+v changed=%v", snap, changed)
	}

	snap, _ = e.advance(func(t *store.Task) { t.Status = store.TaskPending })
	if snap.Status != store.TaskProcessing {
		t.Fatalf("status regressed to %s", snap.Status)
	}

	snap, _ = e.advance(func(t *store.Task) { t.Progress = 250 })
	if snap.Progress != 100 {
		t.Fatalf("expected clamp to 100, got %v", snap.Progress)
	}

	snap, changed = e.advance(func(t *store.Task) {
		t.Status = store.TaskError
		t.ErrorMessage = "boom"
	})
	if !changed || snap.CompletedAt == nil {
		t.Fatalf("expected terminal with completion time: %+v", snap)
	}

	snap, changed = e.advance(func(t *store.Task) { t.Status = store.TaskCompleted })
	if changed || snap.Status != store.TaskError {
		t.Fatalf("terminal state changed: %+v", snap)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	now := time.Now()
	e := &entry{task: store.Task{ID: "t1", Status: store.TaskCompleted, CompletedAt: &now}}
	snap := e.snapshot()
	*snap.CompletedAt = now.Add(time.Hour)
	if !e.task.CompletedAt.Equal(now) {
		t.Fatalf("snapshot shares completion time with the entry")
	}
}

func TestInsertUnlessLive(t *testing.T) {
	r := newRegistry()
	first := &entry{task: store.Task{ID: "a", HighlightID: "h1", Status: store.TaskProcessing}}
	if _, ok := r.insertUnlessLive(first); !ok {
		t.Fatalf("expected first insert")
	}
	got, ok := r.insertUnlessLive(&entry{task: store.Task{ID: "b", HighlightID: "h1", Status: store.TaskPending}})
	if ok || got != first {
		t.Fatalf("expected existing live entry")
	}
	if _, ok := r.insertUnlessLive(&entry{task: store.Task{ID: "c", HighlightID: "h2", Status: store.TaskPending}}); !ok {
		t.Fatalf("other highlight should insert")
	}
	first.advance(func(t *store.Task) { t.Status = store.TaskCompleted })
	if _, ok := r.insertUnlessLive(&entry{task: store.Task{ID: "d", HighlightID: "h1", Status: store.TaskPending}}); !ok {
		t.Fatalf("finished task should not block a new one")
	}
	if len(r.all()) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(r.all()))
	}
}
