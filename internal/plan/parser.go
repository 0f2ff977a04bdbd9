package plan

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Markers the oracle emits instead of JSON when it rejects the query
// outright.
const (
	invalidInputMarker = "---Invalid Input---"
	infeasibleMarker   = "---Infeasible Task---"
)

// Pre-compiled patterns for extracting JSON from markdown-fenced responses.
var (
	fencedJSONPattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(.*?)```")
	bareObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

// rawStep is the oracle's wire shape for one plan step. Both the current
// "assigned_capability" key and the legacy "agent" key are accepted.
type rawStep struct {
	StepNumber     int            `json:"step_number"`
	Capability     string         `json:"assigned_capability"`
	Agent          string         `json:"agent"`
	Description    string         `json:"description"`
	Parameters     map[string]any `json:"parameters"`
	ExpectedResult string         `json:"expected_result"`
}

// rawPlan is the oracle's wire shape for a whole plan.
type rawPlan struct {
	Task        string           `json:"task"`
	Feasibility string           `json:"feasibility"`
	Reason      string           `json:"reason"`
	Steps       *json.RawMessage `json:"steps"`
}

// Parser turns raw oracle output into a normalized Plan.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log}
}

// Parse normalizes raw oracle output. It never returns an error and never
// panics: anything it cannot decode becomes an Infeasible plan whose Reason
// carries the failure detail.
func (p *Parser) Parse(raw, originalQuery string) *Plan {
	trimmed := strings.TrimSpace(raw)

	if strings.Contains(trimmed, invalidInputMarker) {
		return NewFailed(InvalidInput, strippedMarkerReason(trimmed, invalidInputMarker), originalQuery)
	}
	if strings.Contains(trimmed, infeasibleMarker) {
		return NewFailed(Infeasible, strippedMarkerReason(trimmed, infeasibleMarker), originalQuery)
	}

	jsonText := extractJSON(trimmed)
	if jsonText == "" {
		p.log.Warn("no JSON found in oracle response", zap.String("head", head(trimmed, 120)))
		return NewFailed(Infeasible, "plan response contained no JSON", originalQuery)
	}

	var rp rawPlan
	if err := json.Unmarshal([]byte(jsonText), &rp); err != nil {
		p.log.Warn("failed to decode plan JSON", zap.Error(err), zap.String("head", head(jsonText, 120)))
		return NewFailed(Infeasible, fmt.Sprintf("failed to parse plan: %v", err), originalQuery)
	}

	// A plan without a steps field is indistinguishable from arbitrary JSON.
	if rp.Steps == nil {
		p.log.Warn("plan JSON missing steps field")
		return NewFailed(Infeasible, "plan missing 'steps' field", originalQuery)
	}

	var steps []rawStep
	if err := json.Unmarshal(*rp.Steps, &steps); err != nil {
		p.log.Warn("failed to decode plan steps", zap.Error(err))
		return NewFailed(Infeasible, fmt.Sprintf("failed to parse plan steps: %v", err), originalQuery)
	}

	feasibility := normalizeFeasibility(rp.Feasibility)
	if feasibility != Feasible {
		return NewFailed(feasibility, rp.Reason, originalQuery)
	}

	// A feasible verdict with no steps violates the plan invariant; degrade
	// rather than hand the engine an empty run.
	if len(steps) == 0 {
		reason := rp.Reason
		if reason == "" {
			reason = "plan produced no steps"
		}
		return NewFailed(Infeasible, reason, originalQuery)
	}

	tasks := make([]Task, 0, len(steps))
	for i, s := range steps {
		cap := s.Capability
		if cap == "" {
			cap = s.Agent
		}
		num := s.StepNumber
		if num == 0 {
			num = i + 1
		}
		tasks = append(tasks, Task{
			ID:             fmt.Sprintf("step_%d", i),
			Description:    s.Description,
			Capability:     cap,
			Parameters:     s.Parameters,
			StepNumber:     num,
			ExpectedResult: s.ExpectedResult,
		})
	}

	return &Plan{
		ID:            uuid.NewString(),
		Tasks:         tasks,
		Feasibility:   Feasible,
		Reason:        rp.Reason,
		OriginalQuery: originalQuery,
	}
}

// normalizeFeasibility maps the wire string to a verdict, defaulting to
// Feasible when omitted (the steps check above guards the empty case).
func normalizeFeasibility(s string) Feasibility {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "feasible":
		return Feasible
	case "infeasible":
		return Infeasible
	case "invalid_input":
		return InvalidInput
	default:
		return Error
	}
}

// extractJSON pulls the JSON object out of a possibly fenced response.
func extractJSON(s string) string {
	if m := fencedJSONPattern.FindStringSubmatch(s); len(m) > 1 {
		inner := strings.TrimSpace(m[1])
		if inner != "" {
			return inner
		}
	}
	return bareObjectPattern.FindString(s)
}

// strippedMarkerReason returns whatever surrounds the marker as the reason.
func strippedMarkerReason(s, marker string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, marker, ""))
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
