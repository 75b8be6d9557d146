package pipeline

import (
	"sync"
	"time"

	"fragreel/internal/store"
)

// terminalSendTimeout bounds how long a slow subscriber can hold up delivery
// of a task's final event.
const terminalSendTimeout = 250 * time.Millisecond

// Event is one observed task change.
type Event struct {
	TaskID      string           `json:"task_id"`
	HighlightID string           `json:"highlight_id"`
	Status      store.TaskStatus `json:"status"`
	Progress    float64          `json:"progress"`
	Strategy    string           `json:"strategy,omitempty"`
	Message     string           `json:"message,omitempty"`
	OutputPath  string           `json:"output_path,omitempty"`
	Time        time.Time        `json:"time"`
}

func eventFor(t store.Task, message string) Event {
	if message == "" {
		message = t.ErrorMessage
	}
	return Event{
		TaskID:      t.ID,
		HighlightID: t.HighlightID,
		Status:      t.Status,
		Progress:    t.Progress,
		Strategy:    t.Strategy,
		Message:     message,
		OutputPath:  t.OutputPath,
		Time:        time.Now().UTC(),
	}
}

// Reporter fans task events out to subscribers. Publishing never blocks on
// progress events; subscribers that fall behind miss them.
type Reporter struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
}

// NewReporter returns an empty reporter.
func NewReporter() *Reporter {
	return &Reporter{subs: make(map[int]chan Event)}
}

// Subscribe registers a listener with the given channel buffer. Calling the
// returned cancel function unregisters it and closes the channel.
func (r *Reporter) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = ch
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers ev to every subscriber.
func (r *Reporter) Publish(ev Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ch := range r.subs {
		if ev.Status.Terminal() {
			timer := time.NewTimer(terminalSendTimeout)
			select {
			case ch <- ev:
			case <-timer.C:
			}
			timer.Stop()
			continue
		}
		select {
		case ch <- ev:
		default:
		}
	}
}
