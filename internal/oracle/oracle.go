// Package oracle defines the LLM-facing contracts of the engine: plan
// generation from a user query and natural phrasing of clarifications and
// run summaries. Implementations must be safe for sequential reuse across
// interactions; the dialogue layer never calls them concurrently.
package oracle

import (
	"context"

	"voxtask/internal/classify"
)

// Roles for conversation turns sent to a plan oracle.
const (
	RoleUser   = "user"
	RoleSystem = "system"
)

// Message is one turn of the accumulated dialogue history, chronological.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// PlanOracle turns a user query (plus prior turns, on follow-ups) into the
// raw planner output that plan.Parser understands.
type PlanOracle interface {
	GeneratePlan(ctx context.Context, query string, history []Message) (string, error)
}

// ClarificationContext carries everything a phraser needs to ask the user
// one follow-up question about a classified failure.
type ClarificationContext struct {
	Kind          classify.Kind
	Message       string
	Description   string
	Suggestion    string
	OriginalQuery string
	Attempt       int
}

// SummaryContext carries the outcome of a finished run for final phrasing.
type SummaryContext struct {
	Query           string
	Success         bool
	TotalSteps      int
	SuccessfulSteps int
	FailedSteps     int
	Message         string
	ErrorMessage    string
}

// Phraser renders clarification questions and run summaries as natural
// language. Errors are advisory: callers fall back to the fixed templates
// and never surface a phraser failure to the user.
type Phraser interface {
	PhraseClarification(ctx context.Context, cc ClarificationContext) (string, error)
	PhraseSummary(ctx context.Context, sc SummaryContext) (string, error)
}
