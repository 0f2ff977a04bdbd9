// Package events provides the per-task progress stream used to push
// planner and executor events to a single listener. Each active task owns
// one queue; a terminal event is always followed by a stop sentinel so the
// listener loop can unblock deterministically.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies a queue event.
type Kind string

const (
	// KindThought carries reasoning text emitted before an action.
	KindThought Kind = "agent_thought"

	// KindMessage carries a user-facing message (plan summary, clarification).
	KindMessage Kind = "agent_message"

	// KindAction records a capability invocation with its input.
	KindAction Kind = "agent_action"

	// KindEnd marks normal completion of a task.
	KindEnd Kind = "agent_end"

	// KindError marks abnormal completion of a task.
	KindError Kind = "error"

	// KindStop is the sentinel that terminates a listener. It is enqueued
	// automatically after every terminal event and consumed by the bus
	// itself; listeners never observe it.
	KindStop Kind = "stop"
)

// Event is one entry in a task's progress stream. Append-only, consumed at
// most once.
type Event struct {
	ID          string         `json:"id"`
	TaskID      string         `json:"task_id"`
	Kind        Kind           `json:"event"`
	Thought     string         `json:"thought,omitempty"`
	Observation string         `json:"observation,omitempty"`
	Tool        string         `json:"tool,omitempty"`
	ToolInput   map[string]any `json:"tool_input,omitempty"`
	Latency     time.Duration  `json:"latency,omitempty"`
}

// Terminal reports whether the event ends the stream for its task.
func (e Event) Terminal() bool {
	return e.Kind == KindStop || e.Kind == KindError || e.Kind == KindEnd
}

// NewThought builds a reasoning event.
func NewThought(taskID, thought string) Event {
	return Event{ID: uuid.NewString(), TaskID: taskID, Kind: KindThought, Thought: thought}
}

// NewMessage builds a user-facing message event.
func NewMessage(taskID, text string) Event {
	return Event{ID: uuid.NewString(), TaskID: taskID, Kind: KindMessage, Observation: text}
}

// NewAction builds a capability-invocation event.
func NewAction(taskID, tool string, input map[string]any) Event {
	return Event{ID: uuid.NewString(), TaskID: taskID, Kind: KindAction, Tool: tool, ToolInput: input}
}

// NewEnd builds the normal-completion event.
func NewEnd(taskID string) Event {
	return Event{ID: uuid.NewString(), TaskID: taskID, Kind: KindEnd}
}

// NewError builds the abnormal-completion event.
func NewError(taskID, observation string) Event {
	return Event{ID: uuid.NewString(), TaskID: taskID, Kind: KindError, Observation: observation}
}

func newStop(taskID string) Event {
	return Event{ID: uuid.NewString(), TaskID: taskID, Kind: KindStop}
}
