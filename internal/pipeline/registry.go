package pipeline

import (
	"context"
	"sync"
	"time"

	"fragreel/internal/store"
)

type entry struct {
	mu     sync.Mutex
	task   store.Task
	cancel context.CancelFunc
}

func (e *entry) snapshot() store.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneTask(e.task)
}

// advance applies fn to a copy of the task and keeps the result only when it
// respects the state machine. It reports whether anything changed.
func (e *entry) advance(fn func(t *store.Task)) (store.Task, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.task
	if cur.Status.Terminal() {
		return cloneTask(cur), false
	}
	next := cur
	fn(&next)

	if rank(next.Status) < rank(cur.Status) {
		next.Status = cur.Status
	}
	if next.Progress < cur.Progress {
		next.Progress = cur.Progress
	}
	next.Progress = min(max(next.Progress, 0), 100)
	if next.Status.Terminal() && next.CompletedAt == nil {
		now := time.Now().UTC()
		next.CompletedAt = &now
	}
	if next.Status == cur.Status && next.Progress == cur.Progress && next.Strategy == cur.Strategy &&
		next.OutputPath == cur.OutputPath && next.ErrorMessage == cur.ErrorMessage {
		return cloneTask(cur), false
	}
	next.UpdatedAt = time.Now().UTC()
	e.task = next
	return cloneTask(next), true
}

func rank(s store.TaskStatus) int {
	switch s {
	case store.TaskPending:
		return 0
	case store.TaskProcessing:
		return 1
	case store.TaskCompleted, store.TaskError:
		return 2
	}
	return -1
}

func cloneTask(t store.Task) store.Task {
	if t.CompletedAt != nil {
		c := *t.CompletedAt
		t.CompletedAt = &c
	}
	return t
}

// registry is the set of tasks this process is driving.
type registry struct {
	mu    sync.RWMutex
	tasks map[string]*entry
}

func newRegistry() *registry {
	return &registry{tasks: make(map[string]*entry)}
}

func (r *registry) get(id string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tasks[id]
	return e, ok
}

// insertUnlessLive adds e unless a non-terminal task for the same highlight
// exists, in which case that task's entry is returned instead.
func (r *registry) insertUnlessLive(e *entry) (*entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	highlightID := e.task.HighlightID
	for _, other := range r.tasks {
		snap := other.snapshot()
		if snap.HighlightID == highlightID && !snap.Status.Terminal() {
			return other, false
		}
	}
	r.tasks[e.task.ID] = e
	return e, true
}

func (r *registry) remove(id string) (*entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tasks[id]
	if ok {
		delete(r.tasks, id)
	}
	return e, ok
}

func (r *registry) all() []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entry, 0, len(r.tasks))
	for _, e := range r.tasks {
		out = append(out, e)
	}
	return out
}
