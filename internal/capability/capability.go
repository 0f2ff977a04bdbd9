// Package capability defines the handler contract for pluggable task
// capabilities (file operations, weather lookup, search, ...) and the
// registry that resolves a capability name to its handler.
//
// Handlers are external collaborators: the engine hands them a description
// plus parameters and consumes a uniform result. Expected domain failures
// are reported through Result.Success=false; a returned Go error is treated
// the same way by the caller.
package capability

import (
	"context"
)

// Invocation is the input to a capability handler: the step description and
// the parameters the planner bound to it.
type Invocation struct {
	Description string
	Parameters  map[string]any
}

// ToolCall records one underlying tool invocation made by a handler, for
// progress reporting.
type ToolCall struct {
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args,omitempty"`
	Result string         `json:"result,omitempty"`
}

// Result is the uniform outcome of a capability invocation.
type Result struct {
	Success   bool       `json:"success"`
	Output    string     `json:"output,omitempty"`
	Error     string     `json:"error,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Failure builds a failed result with the given error message.
func Failure(errMsg string) *Result {
	return &Result{Success: false, Error: errMsg}
}

// Handler executes one category of real-world action. Implementations must
// not return a Go error for expected domain failures; those belong in the
// Result so the engine can classify them.
type Handler interface {
	Invoke(ctx context.Context, inv Invocation) (*Result, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, inv Invocation) (*Result, error)

// Invoke implements Handler.
func (f HandlerFunc) Invoke(ctx context.Context, inv Invocation) (*Result, error) {
	return f(ctx, inv)
}
