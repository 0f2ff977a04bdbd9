// Package engine executes a parsed plan step by step against the capability
// registry, streaming progress over the event bus. Steps run strictly in
// plan order; the first failure stops the run.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"voxtask/internal/capability"
	"voxtask/internal/events"
	"voxtask/internal/plan"
)

// StepStatus is the lifecycle of a single step. A step is never revisited
// once it leaves Running.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepSuccess StepStatus = "success"
	StepFailed  StepStatus = "failed"
)

// StepResult records the outcome of one plan step.
type StepResult struct {
	Task      plan.Task
	Status    StepStatus
	Output    string
	Error     string
	ToolCalls []capability.ToolCall
	Latency   time.Duration
}

// Summary is the aggregate outcome of a run, computed from the final step
// states.
type Summary struct {
	PlanID          string
	Success         bool
	TotalSteps      int
	SuccessfulSteps int
	FailedSteps     int
	Results         []StepResult
	ErrorMessage    string
	Message         string
}

// FirstFailure returns the failed step result, or nil on full success.
func (s *Summary) FirstFailure() *StepResult {
	for i := range s.Results {
		if s.Results[i].Status == StepFailed {
			return &s.Results[i]
		}
	}
	return nil
}

// state is the phase of the execution loop.
type state int

const (
	stateInit state = iota
	stateCheckCompletion
	stateExecuteStep
	stateHandleError
	stateFinalize
)

// Engine drives plans to completion. Safe for sequential reuse; a single
// run owns its task's event queue end to end.
type Engine struct {
	registry *capability.Registry
	bus      *events.Bus
	log      *zap.Logger
}

// New creates an engine over the given registry and bus.
func New(registry *capability.Registry, bus *events.Bus, log *zap.Logger) *Engine {
	return &Engine{registry: registry, bus: bus, log: log}
}

// run is the mutable state of one execution.
type run struct {
	taskID  string
	plan    *plan.Plan
	cursor  int
	results []StepResult
	errMsg  string
}

// Execute runs the plan synchronously and returns its summary. Progress,
// the terminal Error or End included, is published to the bus under taskID.
// ctx is handed to capability handlers; the engine itself imposes no
// per-step timeout.
func (e *Engine) Execute(ctx context.Context, taskID string, p *plan.Plan) *Summary {
	r := &run{
		taskID:  taskID,
		plan:    p,
		results: make([]StepResult, len(p.Tasks)),
	}
	for i, t := range p.Tasks {
		r.results[i] = StepResult{Task: t, Status: StepPending}
	}

	st := stateInit
	for {
		switch st {
		case stateInit:
			e.log.Info("plan execution started",
				zap.String("task_id", taskID),
				zap.String("plan_id", p.ID),
				zap.Int("steps", len(p.Tasks)))
			e.bus.Publish(taskID, events.NewThought(taskID,
				fmt.Sprintf("开始执行计划，共 %d 个步骤", len(p.Tasks))))
			st = stateCheckCompletion

		case stateCheckCompletion:
			if r.cursor >= len(r.plan.Tasks) {
				st = stateFinalize
			} else {
				st = stateExecuteStep
			}

		case stateExecuteStep:
			if e.executeStep(ctx, r) {
				r.cursor++
				st = stateCheckCompletion
			} else {
				st = stateHandleError
			}

		case stateHandleError:
			summary := e.summarize(r)
			e.log.Warn("plan execution failed",
				zap.String("task_id", taskID),
				zap.String("error", summary.ErrorMessage))
			e.bus.Publish(taskID, events.NewError(taskID, summary.ErrorMessage))
			return summary

		case stateFinalize:
			summary := e.summarize(r)
			e.log.Info("plan execution finished",
				zap.String("task_id", taskID),
				zap.Int("successful", summary.SuccessfulSteps))
			end := events.NewEnd(taskID)
			end.Observation = summary.Message
			e.bus.Publish(taskID, end)
			return summary
		}
	}
}

// executeStep runs the step at the cursor and reports whether it succeeded.
func (e *Engine) executeStep(ctx context.Context, r *run) bool {
	res := &r.results[r.cursor]
	task := res.Task
	res.Status = StepRunning

	e.bus.Publish(r.taskID, events.NewThought(r.taskID,
		fmt.Sprintf("步骤 %d：%s", task.StepNumber, task.Description)))

	handler, err := e.registry.Resolve(task.Capability)
	if err != nil {
		res.Status = StepFailed
		res.Error = fmt.Sprintf("unknown capability: %s", task.Capability)
		r.errMsg = res.Error
		return false
	}

	start := time.Now()
	result := e.invoke(ctx, handler, task)
	res.Latency = time.Since(start)
	res.ToolCalls = result.ToolCalls

	action := events.NewAction(r.taskID, task.Capability, task.Parameters)
	action.Observation = result.Output
	action.Latency = res.Latency
	e.bus.Publish(r.taskID, action)

	if !result.Success {
		res.Status = StepFailed
		res.Error = result.Error
		r.errMsg = result.Error
		e.log.Warn("step failed",
			zap.String("task_id", r.taskID),
			zap.String("capability", task.Capability),
			zap.String("error", result.Error))
		return false
	}

	res.Status = StepSuccess
	res.Output = result.Output
	return true
}

// invoke calls the handler with panic recovery. Returned Go errors and
// panics collapse into a failed result; expected domain failures already
// arrive as Success:false.
func (e *Engine) invoke(ctx context.Context, handler capability.Handler, task plan.Task) (result *capability.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Error("capability panicked",
				zap.String("capability", task.Capability),
				zap.Any("panic", rec))
			result = &capability.Result{
				Success: false,
				Error:   fmt.Sprintf("capability %s panicked: %v", task.Capability, rec),
			}
		}
	}()

	res, err := handler.Invoke(ctx, capability.Invocation{
		Description: task.Description,
		Parameters:  task.Parameters,
	})
	if err != nil {
		return &capability.Result{Success: false, Error: err.Error()}
	}
	if res == nil {
		return &capability.Result{Success: false, Error: "capability returned no result"}
	}
	return res
}

// summarize freezes the run into its aggregate outcome.
func (e *Engine) summarize(r *run) *Summary {
	s := &Summary{
		PlanID:       r.plan.ID,
		TotalSteps:   len(r.results),
		Results:      r.results,
		ErrorMessage: r.errMsg,
	}
	for _, res := range r.results {
		switch res.Status {
		case StepSuccess:
			s.SuccessfulSteps++
		case StepFailed:
			s.FailedSteps++
		}
	}
	s.Success = s.SuccessfulSteps == s.TotalSteps
	switch {
	case s.Success:
		s.Message = fmt.Sprintf("已完成全部 %d 个步骤", s.TotalSteps)
	case s.SuccessfulSteps > 0:
		s.Message = fmt.Sprintf("完成了 %d/%d 个步骤，之后失败", s.SuccessfulSteps, s.TotalSteps)
	default:
		s.Message = "任务未能执行"
	}
	return s
}
