package oracle

import (
	"fmt"

	"voxtask/internal/classify"
)

// FallbackClarification renders a clarification question from fixed
// templates keyed by failure kind. Used whenever the configured phraser
// errors, so it must never fail itself.
func FallbackClarification(cc ClarificationContext) string {
	switch cc.Kind {
	case classify.KindMissingInfo:
		if cc.Message != "" {
			return fmt.Sprintf("您的指令缺少必要信息：%s。请补充说明。", cc.Message)
		}
		return "您的指令缺少必要信息，请补充说明。"
	case classify.KindRecognitionError:
		if cc.Suggestion != "" {
			return fmt.Sprintf("我可能没有听清，您是想说“%s”吗？", cc.Suggestion)
		}
		return "抱歉，我没有听清您的意思，请再说一遍。"
	case classify.KindInvalidParam:
		if cc.Suggestion != "" {
			return fmt.Sprintf("参数似乎有误，您是指“%s”吗？", cc.Suggestion)
		}
		return fmt.Sprintf("参数似乎有误：%s。请确认后重新说明。", cc.Message)
	case classify.KindExecutionFailed:
		return fmt.Sprintf("执行“%s”时失败：%s", cc.Description, cc.Message)
	default:
		return fmt.Sprintf("处理您的请求时遇到问题：%s", cc.Message)
	}
}

// FallbackSummary renders a run summary from fixed templates.
func FallbackSummary(sc SummaryContext) string {
	if sc.Success {
		if sc.Message != "" {
			return sc.Message
		}
		return fmt.Sprintf("已完成全部 %d 个步骤。", sc.TotalSteps)
	}
	if sc.SuccessfulSteps > 0 {
		return fmt.Sprintf("完成了 %d/%d 个步骤，之后失败：%s", sc.SuccessfulSteps, sc.TotalSteps, sc.ErrorMessage)
	}
	if sc.ErrorMessage != "" {
		return fmt.Sprintf("任务未能执行：%s", sc.ErrorMessage)
	}
	return "任务未能执行。"
}
