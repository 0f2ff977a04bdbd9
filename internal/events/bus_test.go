package events

import (
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPublishThenListenDelivery(t *testing.T) {
	bus := NewBus(nil)
	taskID := "task-1"

	bus.Publish(taskID, NewThought(taskID, "first"))
	bus.Publish(taskID, NewAction(taskID, "file", map[string]any{"path": "a.txt"}))
	bus.Publish(taskID, NewThought(taskID, "second"))
	bus.Publish(taskID, NewEnd(taskID))

	var got []Event
	for ev := range bus.Listen(taskID, 100*time.Millisecond) {
		got = append(got, ev)
	}

	wantKinds := []Kind{KindThought, KindAction, KindThought, KindEnd}
	if len(got) != len(wantKinds) {
		t.Fatalf("got %d events, want %d", len(got), len(wantKinds))
	}
	for i, ev := range got {
		if ev.Kind != wantKinds[i] {
			t.Errorf("event %d: got kind %s, want %s", i, ev.Kind, wantKinds[i])
		}
		if ev.TaskID != taskID {
			t.Errorf("event %d: got task %s, want %s", i, ev.TaskID, taskID)
		}
	}
	if got[0].Thought != "first" || got[2].Thought != "second" {
		t.Errorf("thought payloads out of order: %q, %q", got[0].Thought, got[2].Thought)
	}
}

func TestSecondListenYieldsNothing(t *testing.T) {
	bus := NewBus(nil)
	taskID := "task-2"

	bus.Publish(taskID, NewMessage(taskID, "hello"))
	bus.Publish(taskID, NewEnd(taskID))

	n := 0
	for range bus.Listen(taskID, 50*time.Millisecond) {
		n++
	}
	if n != 2 {
		t.Fatalf("first listen: got %d events, want 2", n)
	}

	// Queue was deleted on termination; a fresh listen ends immediately.
	select {
	case _, ok := <-bus.Listen(taskID, 50*time.Millisecond):
		if ok {
			t.Fatal("second listen produced an event")
		}
	case <-time.After(time.Second):
		t.Fatal("second listen did not terminate")
	}

	if len(bus.ActiveTasks()) != 0 {
		t.Errorf("queues leaked: %v", bus.ActiveTasks())
	}
}

func TestPublishAfterTerminationIsDropped(t *testing.T) {
	bus := NewBus(nil)
	taskID := "task-3"

	bus.Publish(taskID, NewEnd(taskID))
	for range bus.Listen(taskID, 50*time.Millisecond) {
	}

	// Must not recreate the queue.
	bus.Publish(taskID, NewThought(taskID, "late"))
	if len(bus.ActiveTasks()) != 0 {
		t.Errorf("late publish recreated a queue: %v", bus.ActiveTasks())
	}
}

func TestErrorEventTerminates(t *testing.T) {
	bus := NewBus(nil)
	taskID := "task-4"

	bus.Publish(taskID, NewThought(taskID, "working"))
	bus.PublishError(taskID, errFake("boom"))

	var got []Event
	for ev := range bus.Listen(taskID, 50*time.Millisecond) {
		got = append(got, ev)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[1].Kind != KindError || got[1].Observation != "boom" {
		t.Errorf("terminal event = %+v, want error event with observation 'boom'", got[1])
	}
}

func TestListenWaitsAcrossIdlePulls(t *testing.T) {
	bus := NewBus(nil)
	taskID := "task-5"
	bus.Publish(taskID, NewThought(taskID, "early"))

	stream := bus.Listen(taskID, 10*time.Millisecond)

	// Publish the terminal event after several pull timeouts have elapsed.
	go func() {
		time.Sleep(50 * time.Millisecond)
		bus.Publish(taskID, NewEnd(taskID))
	}()

	n := 0
	for range stream {
		n++
	}
	if n != 2 {
		t.Errorf("got %d events, want 2", n)
	}
}

func TestConcurrentTasksAreIndependent(t *testing.T) {
	bus := NewBus(nil)

	for _, id := range []string{"a", "b", "c"} {
		id := id
		go func() {
			bus.Publish(id, NewThought(id, "from "+id))
			bus.Publish(id, NewEnd(id))
		}()
	}

	for _, id := range []string{"a", "b", "c"} {
		var got []Event
		for ev := range bus.Listen(id, 100*time.Millisecond) {
			got = append(got, ev)
		}
		if len(got) != 2 {
			t.Errorf("task %s: got %d events, want 2", id, len(got))
			continue
		}
		if got[0].Thought != "from "+id {
			t.Errorf("task %s: got thought %q", id, got[0].Thought)
		}
	}
}

type errFake string

func (e errFake) Error() string { return string(e) }
