package oracle

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.0-flash"

const plannerInstruction = `你是一个语音助手的任务规划器。把用户的指令拆解为可顺序执行的步骤，
只输出一个 JSON 对象：
{"task": "<任务概述>", "feasibility": "feasible", "reason": "", "steps": [
  {"step_number": 1, "assigned_capability": "<能力名>", "description": "<做什么>",
   "parameters": {...}, "expected_result": "<预期结果>"}]}
可用能力：%s。
如果输入不是一条可执行指令，只输出 ---Invalid Input--- 并说明原因。
如果指令可理解但没有能力可以完成，只输出 ---Infeasible Task--- 并说明缺少什么。
缺少必要参数时不要猜测，在 reason 中说明缺少的信息。`

const clarifierInstruction = `你是一个语音助手。任务执行遇到了问题，用一句简短、口语化的中文
向用户提出一个澄清问题。如果给出了纠正建议，优先确认该建议。只输出要说的话。`

const summarizerInstruction = `你是一个语音助手。用一两句简短、口语化的中文向用户汇报任务结果。
只输出要说的话。`

// GeminiOracle implements PlanOracle and Phraser over the Gemini API.
type GeminiOracle struct {
	client       *genai.Client
	model        string
	capabilities []string
	log          *zap.Logger
}

// NewGeminiOracle creates the client. capabilities is the registry's name
// list, interpolated into the planner instruction so the model only assigns
// steps to handlers that exist.
func NewGeminiOracle(ctx context.Context, apiKey, model string, capabilities []string, log *zap.Logger) (*GeminiOracle, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = defaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiOracle{
		client:       client,
		model:        model,
		capabilities: capabilities,
		log:          log,
	}, nil
}

// GeneratePlan sends the full turn history plus the current query and
// returns the raw model output for plan.Parser.
func (g *GeminiOracle) GeneratePlan(ctx context.Context, query string, history []Message) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		var role genai.Role = genai.RoleUser
		if m.Role == RoleSystem {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(query, genai.RoleUser))

	instruction := fmt.Sprintf(plannerInstruction, strings.Join(g.capabilities, ", "))
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.1),
	})
	if err != nil {
		return "", fmt.Errorf("plan generation failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("plan generation returned no text")
	}
	g.log.Debug("plan generated", zap.String("model", g.model), zap.Int("chars", len(text)))
	return text, nil
}

// PhraseClarification asks the model to word one follow-up question.
func (g *GeminiOracle) PhraseClarification(ctx context.Context, cc ClarificationContext) (string, error) {
	prompt := fmt.Sprintf(
		"用户说：%s\n环节：%s\n错误类型：%s\n错误信息：%s\n纠正建议：%s\n这是第 %d 次追问。",
		cc.OriginalQuery, cc.Description, cc.Kind, cc.Message, cc.Suggestion, cc.Attempt,
	)
	return g.generate(ctx, clarifierInstruction, prompt, 0.4)
}

// PhraseSummary asks the model to word the final result report.
func (g *GeminiOracle) PhraseSummary(ctx context.Context, sc SummaryContext) (string, error) {
	prompt := fmt.Sprintf(
		"用户说：%s\n成功：%v\n完成步骤：%d/%d\n结果：%s\n错误：%s",
		sc.Query, sc.Success, sc.SuccessfulSteps, sc.TotalSteps, sc.Message, sc.ErrorMessage,
	)
	return g.generate(ctx, summarizerInstruction, prompt, 0.4)
}

func (g *GeminiOracle) generate(ctx context.Context, instruction, prompt string, temperature float32) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
		Temperature:       genai.Ptr(temperature),
	})
	if err != nil {
		return "", fmt.Errorf("phrasing failed: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("phrasing returned no text")
	}
	return text, nil
}
