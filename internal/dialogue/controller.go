// Package dialogue owns the multi-turn recovery loop: it routes a query
// through planning and execution, classifies failures, and when a failure is
// plausibly resolvable by one follow-up question, holds the interaction open
// for a bounded number of clarification rounds.
package dialogue

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"voxtask/internal/classify"
	"voxtask/internal/engine"
	"voxtask/internal/events"
	"voxtask/internal/oracle"
	"voxtask/internal/plan"
)

// Terminal and re-prompt phrasings. Fixed text; the phraser only words
// clarifications and summaries, never these.
const (
	msgRetriesExhausted = "多次尝试后仍然无法完成，请换一种说法或稍后再试。"
	msgTimedOut         = "等待回复超时，本次对话已结束。"
	msgEmptyAudio       = "我没有听到声音，请再说一遍。"
	msgEmptyText        = "我没有听清内容，请再说一遍。"
	msgAborted          = "多次没有收到有效输入，本次对话已结束。"
)

// affirmatives accept a pending suggestion as the corrected query.
var affirmatives = []string{"是", "是的", "对", "对的", "好", "好的", "嗯", "yes", "ok"}

// questionMarkers make an InvalidParam clarification dialogue-eligible even
// without a concrete suggestion.
var questionMarkers = []string{
	"请问", "请说明", "请提供", "吗", "哪",
	"please provide", "which", "could you",
}

// Reply is what the controller hands back to the voice channel for one turn.
type Reply struct {
	Text     string
	Awaiting bool
}

// Controller drives the plan/execute/classify/clarify loop. Single-owner:
// the voice channel delivers turns sequentially, so no locking (the event
// bus handles the one concurrent listener).
type Controller struct {
	oracle     oracle.PlanOracle
	phraser    oracle.Phraser
	parser     *plan.Parser
	engine     *engine.Engine
	classifier *classify.Classifier
	bus        *events.Bus
	log        *zap.Logger

	state State
	now   func() time.Time
}

// New wires a controller. All collaborators are required.
func New(po oracle.PlanOracle, ph oracle.Phraser, parser *plan.Parser, eng *engine.Engine, cl *classify.Classifier, bus *events.Bus, log *zap.Logger) *Controller {
	return &Controller{
		oracle:     po,
		phraser:    ph,
		parser:     parser,
		engine:     eng,
		classifier: cl,
		bus:        bus,
		log:        log,
		state:      newState(),
		now:        time.Now,
	}
}

// Configure applies dialogue bounds from configuration. Zero values keep
// the defaults. Must be called before the first turn.
func (c *Controller) Configure(maxRetries, timeoutSeconds int) {
	if maxRetries > 0 {
		c.state.MaxRetries = maxRetries
	}
	if timeoutSeconds > 0 {
		c.state.TimeoutSeconds = timeoutSeconds
	}
}

// Awaiting reports whether the controller expects a follow-up turn.
func (c *Controller) Awaiting() bool { return c.state.Active }

// HandleNewQuery starts a fresh interaction. Any previous state is
// discarded first.
func (c *Controller) HandleNewQuery(ctx context.Context, taskID, text string) Reply {
	c.state.reset()
	c.state.OriginalQuery = text
	c.state.StartTime = c.now()
	c.log.Info("new query", zap.String("task_id", taskID), zap.String("query", text))
	return c.attempt(ctx, taskID, text)
}

// HandleFollowUp consumes the user's answer to a pending clarification.
// Outside a clarification window, or past the timeout, the text is treated
// as a new query.
func (c *Controller) HandleFollowUp(ctx context.Context, taskID, text string) Reply {
	if !c.state.Active {
		return c.HandleNewQuery(ctx, taskID, text)
	}
	if c.state.expired(c.now()) {
		c.log.Info("clarification window expired", zap.String("task_id", taskID))
		c.state.reset()
		r := c.HandleNewQuery(ctx, taskID, text)
		r.Text = msgTimedOut + " " + r.Text
		return r
	}

	c.state.RetryCount++
	c.log.Info("follow-up",
		zap.String("task_id", taskID),
		zap.Int("retry", c.state.RetryCount),
		zap.String("text", text))

	query := text
	if c.state.Suggestion != "" && isAffirmative(text) {
		query = c.state.Suggestion
	}
	return c.attempt(ctx, taskID, query)
}

// HandleEmpty consumes an empty-input signal from the audio pipeline. It
// never reaches the oracle; the interaction aborts after repeated empties.
func (c *Controller) HandleEmpty(kind EmptyKind) Reply {
	switch kind {
	case EmptyAudio:
		c.state.EmptyAudioRetries++
		if c.state.EmptyAudioRetries > DefaultMaxEmptyAudio {
			c.state.reset()
			return Reply{Text: msgAborted}
		}
		return Reply{Text: msgEmptyAudio, Awaiting: c.state.Active}
	default:
		c.state.EmptyTextRetries++
		if c.state.EmptyTextRetries > DefaultMaxEmptyText {
			c.state.reset()
			return Reply{Text: msgAborted}
		}
		return Reply{Text: msgEmptyText, Awaiting: c.state.Active}
	}
}

// attempt runs one plan-and-execute pass over the accumulated history and
// turns the outcome into exactly one reply.
func (c *Controller) attempt(ctx context.Context, taskID, query string) Reply {
	history := append([]oracle.Message(nil), c.state.Messages...)
	c.state.appendUser(query)

	raw, err := c.oracle.GeneratePlan(ctx, query, history)
	var p *plan.Plan
	if err != nil {
		c.log.Error("plan generation failed", zap.String("task_id", taskID), zap.Error(err))
		p = plan.NewFailed(plan.Error, err.Error(), c.state.OriginalQuery)
	} else {
		p = c.parser.Parse(raw, c.state.OriginalQuery)
	}

	if !p.Executable() {
		return c.handlePlanFailure(ctx, taskID, p)
	}

	sum := c.engine.Execute(ctx, taskID, p)
	if sum.Success {
		return c.finishSuccess(ctx, sum)
	}
	return c.handleStepFailure(ctx, taskID, sum)
}

// handlePlanFailure classifies a non-executable plan and streams the
// plan-stage outcome to the bus, since the engine never ran for this task.
func (c *Controller) handlePlanFailure(ctx context.Context, taskID string, p *plan.Plan) Reply {
	cls := c.classifier.ClassifyPlanFailure(p.Reason, c.state.OriginalQuery)
	reply := c.decide(ctx, cls)

	c.bus.Publish(taskID, events.NewMessage(taskID, reply.Text))
	if reply.Awaiting {
		c.bus.Publish(taskID, events.NewEnd(taskID))
	} else {
		c.bus.Publish(taskID, events.NewError(taskID, p.Reason))
	}
	return reply
}

// handleStepFailure classifies the failed step. The engine already
// terminated this task's event stream.
func (c *Controller) handleStepFailure(ctx context.Context, taskID string, sum *engine.Summary) Reply {
	failure := sum.FirstFailure()
	if failure == nil {
		// Defensive: a non-success summary always carries a failed step.
		return c.terminate(oracle.FallbackSummary(c.summaryContext(sum)))
	}
	cls := c.classifier.ClassifyStepFailure(
		failure.Error,
		failure.Task.Description,
		"",
		c.state.OriginalQuery,
	)
	return c.decide(ctx, cls)
}

// decide applies the recovery policy to a classification: hold the
// interaction open for a follow-up when the failure is plausibly
// resolvable and the retry budget allows, otherwise terminate.
func (c *Controller) decide(ctx context.Context, cls classify.Classification) Reply {
	if c.state.RetryCount >= c.state.MaxRetries {
		c.log.Info("retry budget exhausted", zap.String("query", c.state.OriginalQuery))
		return c.terminate(msgRetriesExhausted)
	}

	question := c.phraseClarification(ctx, cls)
	eligible := cls.Kind.Recoverable() ||
		(cls.Kind == classify.KindInvalidParam && (cls.Suggestion != "" || readsAsQuestion(question)))
	if !eligible {
		return c.terminate(question)
	}

	c.state.Active = true
	c.state.Suggestion = cls.Suggestion
	if c.state.StartTime.IsZero() {
		c.state.StartTime = c.now()
	}
	c.state.appendSystem(question)
	return Reply{Text: question, Awaiting: true}
}

// finishSuccess phrases the run summary and closes the interaction.
func (c *Controller) finishSuccess(ctx context.Context, sum *engine.Summary) Reply {
	sc := c.summaryContext(sum)
	text, err := c.phraser.PhraseSummary(ctx, sc)
	if err != nil || text == "" {
		text = oracle.FallbackSummary(sc)
	}
	c.state.reset()
	return Reply{Text: text}
}

// terminate closes the interaction with a final message.
func (c *Controller) terminate(text string) Reply {
	c.state.reset()
	return Reply{Text: text}
}

func (c *Controller) phraseClarification(ctx context.Context, cls classify.Classification) string {
	cc := oracle.ClarificationContext{
		Kind:          cls.Kind,
		Message:       cls.Message,
		Description:   cls.Description,
		Suggestion:    cls.Suggestion,
		OriginalQuery: cls.OriginalQuery,
		Attempt:       c.state.RetryCount + 1,
	}
	text, err := c.phraser.PhraseClarification(ctx, cc)
	if err != nil || text == "" {
		return oracle.FallbackClarification(cc)
	}
	return text
}

func (c *Controller) summaryContext(sum *engine.Summary) oracle.SummaryContext {
	return oracle.SummaryContext{
		Query:           c.state.OriginalQuery,
		Success:         sum.Success,
		TotalSteps:      sum.TotalSteps,
		SuccessfulSteps: sum.SuccessfulSteps,
		FailedSteps:     sum.FailedSteps,
		Message:         sum.Message,
		ErrorMessage:    sum.ErrorMessage,
	}
}

func isAffirmative(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.Trim(t, "。.！!")
	for _, a := range affirmatives {
		if t == a {
			return true
		}
	}
	return false
}

// readsAsQuestion reports whether phrased text asks the user for more
// information.
func readsAsQuestion(text string) bool {
	trimmed := strings.TrimSpace(text)
	if strings.HasSuffix(trimmed, "?") || strings.HasSuffix(trimmed, "？") {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, m := range questionMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
