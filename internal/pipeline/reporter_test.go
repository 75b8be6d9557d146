package pipeline

import (
	"testing"
	"time"

	"fragreel/internal/store"
)

func TestReporterDropsProgressForSlowSubscribers(t *testing.T) {
	r := NewReporter()
	ch, cancel := r.Subscribe(1)
	defer cancel()

	r.Publish(Event{TaskID: "t", Status: store.TaskProcessing, Progress: 10})
	r.Publish(Event{TaskID: "t", Status: store.TaskProcessing, Progress: 20})

	ev := <-ch
	if ev.Progress != 10 {
		t.Fatalf("expected first event kept, got %v", ev.Progress)
	}
	select {
	case extra := <-ch:
		t.Fatalf("expected second event dropped, got %+v", extra)
	default:
	}
}

func TestReporterWaitsBrieflyForTerminalEvents(t *testing.T) {
	r := NewReporter()
	ch, cancel := r.Subscribe(1)
	defer cancel()

	r.Publish(Event{TaskID: "t", Status: store.TaskProcessing, Progress: 50})
	go func() {
		time.Sleep(50 * time.Millisecond)
		<-ch
	}()
	r.Publish(Event{TaskID: "t", Status: store.TaskCompleted, Progress: 100})

	select {
	case ev := <-ch:
		if ev.Status != store.TaskCompleted {
			t.Fatalf("expected terminal event, got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("terminal event not delivered")
	}
}

func TestReporterCancelClosesChannel(t *testing.T) {
	r := NewReporter()
	ch, cancel := r.Subscribe(4)
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	r.Publish(Event{TaskID: "t", Status: store.TaskCompleted})
}
