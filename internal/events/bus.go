package events

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// queueCapacity bounds each task queue. One producer and one consumer per
// task keeps occupancy near zero; the bound only matters when a listener
// detaches without draining, and teardown discards the remainder anyway.
const queueCapacity = 128

// Bus manages one event queue per active task. The task-ID map is the only
// state shared across concurrently running tasks and is guarded here; the
// queues themselves are single-producer single-consumer channels.
type Bus struct {
	mu     sync.Mutex
	queues map[string]chan Event
	done   map[string]struct{}
	log    *zap.Logger
}

// NewBus creates an empty bus.
func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		queues: make(map[string]chan Event),
		done:   make(map[string]struct{}),
		log:    log,
	}
}

// queueFor returns the queue for taskID, creating it if needed. A task whose
// stream already terminated gets no new queue.
func (b *Bus) queueFor(taskID string) chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, finished := b.done[taskID]; finished {
		return nil
	}
	q, ok := b.queues[taskID]
	if !ok {
		q = make(chan Event, queueCapacity)
		b.queues[taskID] = q
		b.log.Debug("created task queue", zap.String("task_id", taskID))
	}
	return q
}

// Publish enqueues ev on its task's queue. Terminal events (End, Error,
// Stop) are followed immediately by a stop sentinel so the listener
// terminates without a race. Publishing to a finished task is a no-op.
func (b *Bus) Publish(taskID string, ev Event) {
	q := b.queueFor(taskID)
	if q == nil {
		b.log.Debug("dropped event for finished task",
			zap.String("task_id", taskID), zap.String("kind", string(ev.Kind)))
		return
	}

	q <- ev
	if ev.Terminal() && ev.Kind != KindStop {
		q <- newStop(taskID)
	}
}

// PublishError converts err into an Error event on taskID's queue. The
// trailing stop sentinel terminates any listener.
func (b *Bus) PublishError(taskID string, err error) {
	b.Publish(taskID, NewError(taskID, err.Error()))
}

// Stop terminates taskID's stream without a payload event.
func (b *Bus) Stop(taskID string) {
	q := b.queueFor(taskID)
	if q == nil {
		return
	}
	q <- newStop(taskID)
}

// Listen returns a channel of events for taskID, ending when the stop
// sentinel is consumed. Each pull waits up to pullTimeout and then retries;
// the timeout exists for liveness logging, not cancellation. After the
// stream ends the queue is deleted and any further Listen call for the same
// task yields an immediately closed channel.
func (b *Bus) Listen(taskID string, pullTimeout time.Duration) <-chan Event {
	out := make(chan Event)

	q := b.queueFor(taskID)
	if q == nil {
		close(out)
		return out
	}
	if pullTimeout <= 0 {
		pullTimeout = time.Second
	}

	go func() {
		defer close(out)
		defer b.cleanup(taskID)
		defer func() {
			// A panicking consumer must still see a terminal event.
			if r := recover(); r != nil {
				out <- NewError(taskID, fmt.Sprintf("listen failed: %v", r))
			}
		}()

		timer := time.NewTimer(pullTimeout)
		defer timer.Stop()

		for {
			timer.Reset(pullTimeout)
			select {
			case ev := <-q:
				if ev.Kind == KindStop {
					return
				}
				out <- ev
			case <-timer.C:
				// Queue idle; keep waiting.
				b.log.Debug("listen pull timed out, retrying", zap.String("task_id", taskID))
			}
		}
	}()

	return out
}

// cleanup discards buffered events and removes the queue so detached tasks
// do not leak. The task is remembered as done.
func (b *Bus) cleanup(taskID string) {
	b.mu.Lock()
	q, ok := b.queues[taskID]
	if ok {
		delete(b.queues, taskID)
	}
	b.done[taskID] = struct{}{}
	b.mu.Unlock()

	if !ok {
		return
	}
	for {
		select {
		case <-q:
		default:
			b.log.Debug("cleaned up task queue", zap.String("task_id", taskID))
			return
		}
	}
}

// ActiveTasks returns the IDs of tasks with live queues.
func (b *Bus) ActiveTasks() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]string, 0, len(b.queues))
	for id := range b.queues {
		ids = append(ids, id)
	}
	return ids
}
