// Package plan defines the structured task plan derived from raw oracle
// output, and the parser that normalizes that output. Malformed oracle
// responses degrade to an infeasible plan; they never escape as errors.
package plan

import (
	"github.com/google/uuid"
)

// Feasibility is the planner's verdict on a query.
type Feasibility string

const (
	// Feasible means the plan carries executable steps.
	Feasible Feasibility = "feasible"

	// Infeasible means the task is outside what the system can do, or the
	// oracle output could not be decoded.
	Infeasible Feasibility = "infeasible"

	// InvalidInput means the query itself could not be understood.
	InvalidInput Feasibility = "invalid_input"

	// Error means plan generation itself failed (oracle fault, etc.).
	Error Feasibility = "error"
)

// Task is one step of a plan, bound to a capability. Immutable once created
// by the parser; the engine reads it and never writes it.
type Task struct {
	ID             string         `json:"task_id"`
	Description    string         `json:"description"`
	Capability     string         `json:"assigned_capability"`
	Parameters     map[string]any `json:"parameters,omitempty"`
	StepNumber     int            `json:"step_number"`
	ExpectedResult string         `json:"expected_result,omitempty"`
}

// Plan is a validated, ordered set of tasks plus the feasibility verdict.
//
// Invariant: Tasks is empty exactly when Feasibility != Feasible. The parser
// enforces both directions.
type Plan struct {
	ID            string      `json:"plan_id"`
	Tasks         []Task      `json:"tasks"`
	Feasibility   Feasibility `json:"feasibility"`
	Reason        string      `json:"reason,omitempty"`
	OriginalQuery string      `json:"original_query"`
}

// Executable reports whether the plan has steps to run.
func (p *Plan) Executable() bool {
	return p.Feasibility == Feasible && len(p.Tasks) > 0
}

// NewFailed builds an empty plan carrying a non-feasible verdict.
func NewFailed(f Feasibility, reason, originalQuery string) *Plan {
	return &Plan{
		ID:            uuid.NewString(),
		Feasibility:   f,
		Reason:        reason,
		OriginalQuery: originalQuery,
	}
}
