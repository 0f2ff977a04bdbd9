package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// CannedOracle is a deterministic offline planner used when no API key is
// configured. It routes a handful of query shapes onto the built-in
// capabilities so the full loop stays exercisable without network access.
type CannedOracle struct{}

// NewCannedOracle returns the offline planner.
func NewCannedOracle() *CannedOracle { return &CannedOracle{} }

type cannedStep struct {
	StepNumber     int            `json:"step_number"`
	Capability     string         `json:"assigned_capability"`
	Description    string         `json:"description"`
	Parameters     map[string]any `json:"parameters"`
	ExpectedResult string         `json:"expected_result"`
}

type cannedPlan struct {
	Task        string       `json:"task"`
	Feasibility string       `json:"feasibility"`
	Reason      string       `json:"reason"`
	Steps       []cannedStep `json:"steps"`
}

// GeneratePlan produces planner output from keyword routing. The latest
// user turn wins; earlier history only supplies a corrected query when the
// current text looks like a bare answer.
func (o *CannedOracle) GeneratePlan(_ context.Context, query string, _ []Message) (string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "---Invalid Input---\n输入为空，无法理解。", nil
	}

	switch {
	case strings.Contains(trimmed, "天气") || strings.Contains(strings.ToLower(trimmed), "weather"):
		city := extractCity(trimmed)
		if city == "" {
			return "---Infeasible Task---\n未指定城市名称，请提供要查询的城市。", nil
		}
		return marshalPlan(cannedPlan{
			Task:        "查询天气",
			Feasibility: "feasible",
			Steps: []cannedStep{{
				StepNumber:     1,
				Capability:     "weather",
				Description:    fmt.Sprintf("查询%s的天气", city),
				Parameters:     map[string]any{"city": city},
				ExpectedResult: "返回天气信息",
			}},
		})
	case strings.Contains(trimmed, "文件") || strings.Contains(strings.ToLower(trimmed), "file"):
		return marshalPlan(cannedPlan{
			Task:        "文件操作",
			Feasibility: "feasible",
			Steps: []cannedStep{{
				StepNumber:     1,
				Capability:     "file",
				Description:    trimmed,
				Parameters:     map[string]any{"operation": "list", "path": "."},
				ExpectedResult: "列出目录内容",
			}},
		})
	default:
		return "---Infeasible Task---\n不支持该指令，超出能力范围。", nil
	}
}

// PhraseClarification and PhraseSummary defer to the fixed templates.
func (o *CannedOracle) PhraseClarification(_ context.Context, cc ClarificationContext) (string, error) {
	return FallbackClarification(cc), nil
}

func (o *CannedOracle) PhraseSummary(_ context.Context, sc SummaryContext) (string, error) {
	return FallbackSummary(sc), nil
}

func marshalPlan(p cannedPlan) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode canned plan: %w", err)
	}
	return string(b), nil
}

// extractCity strips the query framing words and returns whatever remains.
func extractCity(query string) string {
	cleaned := query
	for _, w := range []string{"帮我", "请", "查询", "查一下", "天气", "怎么样", "的", "weather", "今天"} {
		cleaned = strings.ReplaceAll(cleaned, w, " ")
	}
	fields := strings.Fields(cleaned)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
