package plan

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestParseFencedPlan(t *testing.T) {
	raw := "Here is the plan:\n```json\n" + `{
		"task": "查询波士顿天气",
		"feasibility": "feasible",
		"reason": "single weather lookup",
		"steps": [
			{
				"step_number": 1,
				"assigned_capability": "weather",
				"description": "查询波士顿天气",
				"parameters": {"city": "波士顿"},
				"expected_result": "current weather"
			}
		]
	}` + "\n```"

	p := NewParser(nil).Parse(raw, "查询波士顿天气")

	if p.Feasibility != Feasible {
		t.Fatalf("feasibility = %s, want feasible", p.Feasibility)
	}
	want := []Task{{
		ID:             "step_0",
		Description:    "查询波士顿天气",
		Capability:     "weather",
		Parameters:     map[string]any{"city": "波士顿"},
		StepNumber:     1,
		ExpectedResult: "current weather",
	}}
	if diff := cmp.Diff(want, p.Tasks); diff != "" {
		t.Errorf("tasks mismatch (-want +got):\n%s", diff)
	}
	if p.OriginalQuery != "查询波士顿天气" {
		t.Errorf("original query = %q", p.OriginalQuery)
	}
}

func TestParseBareJSONAndLegacyAgentKey(t *testing.T) {
	raw := `{"steps": [
		{"agent": "file", "description": "create note"},
		{"agent": "file", "description": "write note"}
	]}`

	p := NewParser(nil).Parse(raw, "make a note")

	if p.Feasibility != Feasible {
		t.Fatalf("feasibility = %s, want feasible", p.Feasibility)
	}
	if len(p.Tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(p.Tasks))
	}
	// Step numbers default to position when omitted.
	wantNums := []int{1, 2}
	for i, task := range p.Tasks {
		if task.Capability != "file" {
			t.Errorf("task %d capability = %q, want file", i, task.Capability)
		}
		if task.StepNumber != wantNums[i] {
			t.Errorf("task %d step number = %d, want %d", i, task.StepNumber, wantNums[i])
		}
	}
}

func TestParseMarkers(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Feasibility
	}{
		{"invalid input", "---Invalid Input---\n含义不明", InvalidInput},
		{"infeasible", "抱歉 ---Infeasible Task--- 超出能力", Infeasible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(nil).Parse(tt.raw, "q")
			if p.Feasibility != tt.want {
				t.Errorf("feasibility = %s, want %s", p.Feasibility, tt.want)
			}
			if len(p.Tasks) != 0 {
				t.Errorf("marker plan has %d tasks, want 0", len(p.Tasks))
			}
			if p.Reason == "" {
				t.Error("reason not carried from marker response")
			}
		})
	}
}

func TestParseDegradesOnMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "I will happily do that for you!"},
		{"broken json", `{"steps": [`},
		{"missing steps", `{"task": "x", "feasibility": "feasible"}`},
		{"steps wrong type", `{"steps": "all of them"}`},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(nil).Parse(tt.raw, "original")
			if p.Feasibility == Feasible {
				t.Fatalf("malformed input parsed as feasible: %+v", p)
			}
			if len(p.Tasks) != 0 {
				t.Errorf("degraded plan has tasks: %+v", p.Tasks)
			}
			if p.OriginalQuery != "original" {
				t.Errorf("original query = %q", p.OriginalQuery)
			}
		})
	}
}

func TestParseInfeasibleVerdictFromJSON(t *testing.T) {
	raw := `{"feasibility": "infeasible", "reason": "超出能力范围", "steps": []}`
	p := NewParser(nil).Parse(raw, "launch a rocket")

	if p.Feasibility != Infeasible {
		t.Fatalf("feasibility = %s, want infeasible", p.Feasibility)
	}
	if p.Reason != "超出能力范围" {
		t.Errorf("reason = %q", p.Reason)
	}
}

func TestParseFeasibleButEmptyStepsNormalized(t *testing.T) {
	raw := `{"feasibility": "feasible", "steps": []}`
	p := NewParser(nil).Parse(raw, "q")

	if p.Feasibility != Infeasible {
		t.Errorf("feasibility = %s, want infeasible (invariant: tasks empty iff not feasible)", p.Feasibility)
	}
}

func TestPlanInvariant(t *testing.T) {
	// Every parse result must satisfy: Tasks empty <=> Feasibility != Feasible.
	inputs := []string{
		"```json\n{\"steps\":[{\"agent\":\"file\",\"description\":\"x\"}]}\n```",
		"---Invalid Input---",
		"garbage",
		`{"feasibility":"feasible","steps":[]}`,
		`{"feasibility":"banana","steps":[{"agent":"file","description":"x"}]}`,
	}
	for _, raw := range inputs {
		p := NewParser(nil).Parse(raw, "q")
		empty := len(p.Tasks) == 0
		if empty != (p.Feasibility != Feasible) {
			t.Errorf("invariant violated for %q: feasibility=%s tasks=%d",
				head(raw, 40), p.Feasibility, len(p.Tasks))
		}
	}
}

func TestParseIgnoresProseAroundJSON(t *testing.T) {
	raw := "Sure. " + strings.Repeat("thinking... ", 3) +
		`{"steps": [{"assigned_capability": "search", "description": "look it up"}]} hope that helps`
	p := NewParser(nil).Parse(raw, "q")

	if p.Feasibility != Feasible || len(p.Tasks) != 1 {
		t.Fatalf("got feasibility=%s tasks=%d", p.Feasibility, len(p.Tasks))
	}
	if diff := cmp.Diff(p.Tasks[0].Capability, "search", cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("capability diff: %s", diff)
	}
}
