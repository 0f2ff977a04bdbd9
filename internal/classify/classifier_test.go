package classify

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClassifyStepFailureCityTypo(t *testing.T) {
	c := New(DefaultConfig())

	got := c.ClassifyStepFailure(
		"未找到城市'波士炖'",
		"查询波士炖的天气",
		"",
		"查询波士炖天气",
	)

	if got.Kind != KindRecognitionError {
		t.Fatalf("kind = %q, want %q", got.Kind, KindRecognitionError)
	}
	if got.Suggestion != "波士顿" {
		t.Fatalf("suggestion = %q, want 波士顿", got.Suggestion)
	}
	if !got.Kind.Recoverable() {
		t.Fatal("recognition errors must be recoverable")
	}
}

func TestClassifyStepFailureRules(t *testing.T) {
	c := New(DefaultConfig())

	tests := []struct {
		name    string
		errText string
		want    Kind
	}{
		{"missing parameter", "未指定城市名称", KindMissingInfo},
		{"missing english", "missing required parameter: path", KindMissingInfo},
		{"permission", "Permission denied: /etc/hosts", KindExecutionFailed},
		{"timeout", "请求超时，请稍后重试", KindExecutionFailed},
		{"network", "connection refused", KindExecutionFailed},
		{"unmatched", "something odd happened", KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.ClassifyStepFailure(tt.errText, "执行任务", "", "随便一个指令")
			if got.Kind != tt.want {
				t.Fatalf("ClassifyStepFailure(%q).Kind = %q, want %q", tt.errText, got.Kind, tt.want)
			}
		})
	}
}

func TestClassifyStepFailureInvalidWithoutSuggestion(t *testing.T) {
	c := New(DefaultConfig())

	// An "invalid" error in a domain the corrector does not cover must stay
	// InvalidParam rather than degrading to a recognition error.
	got := c.ClassifyStepFailure("无效的端口号", "配置服务", "", "设置端口为九万")
	if got.Kind != KindInvalidParam {
		t.Fatalf("kind = %q, want %q", got.Kind, KindInvalidParam)
	}
	if got.Suggestion != "" {
		t.Fatalf("suggestion = %q, want empty", got.Suggestion)
	}
}

func TestClassifyStepFailureHandlerSuggestionWins(t *testing.T) {
	c := New(DefaultConfig())

	got := c.ClassifyStepFailure("未找到城市'伦炖'", "查询天气", "伦敦", "查询伦炖天气")
	if got.Suggestion != "伦敦" {
		t.Fatalf("suggestion = %q, want handler-proposed 伦敦", got.Suggestion)
	}
}

func TestClassifyPlanFailure(t *testing.T) {
	c := New(DefaultConfig())

	tests := []struct {
		name   string
		reason string
		want   Kind
	}{
		{"unclear", "输入含义不明，无法理解", KindRecognitionError},
		{"missing", "请提供城市名称", KindMissingInfo},
		{"unsupported", "该操作超出能力范围", KindExecutionFailed},
		{"default bias", "无法生成可行计划", KindRecognitionError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.ClassifyPlanFailure(tt.reason, "帮我做点事")
			if got.Kind != tt.want {
				t.Fatalf("ClassifyPlanFailure(%q).Kind = %q, want %q", tt.reason, got.Kind, tt.want)
			}
		})
	}
}

func TestClassifyPlanFailureCityTypoSuggestion(t *testing.T) {
	c := New(DefaultConfig())

	// A plan-stage rejection naming an unknown city still yields a fuzzy
	// correction, so the dialogue can confirm it instead of giving up.
	got := c.ClassifyPlanFailure("未找到城市'波士炖'", "查询波士炖天气")
	if got.Kind != KindRecognitionError {
		t.Fatalf("kind = %q, want %q", got.Kind, KindRecognitionError)
	}
	if got.Suggestion != "波士顿" {
		t.Fatalf("suggestion = %q, want 波士顿", got.Suggestion)
	}
}

func TestClassifyPlanFailureConfigurableDefault(t *testing.T) {
	c := New(Config{PlanStageDefault: KindUnknown})

	got := c.ClassifyPlanFailure("无法生成可行计划", "帮我做点事")
	if got.Kind != KindUnknown {
		t.Fatalf("kind = %q, want configured default %q", got.Kind, KindUnknown)
	}
}

func TestSuggestUnclearQueryHomophone(t *testing.T) {
	c := New(DefaultConfig())

	got := c.SuggestUnclearQuery("查询北京天际", "无法理解'天际'的含义")
	if got != "查询北京天气" {
		t.Fatalf("suggestion = %q, want 查询北京天气", got)
	}
}

func TestSuggestCorrectionLocationSynonym(t *testing.T) {
	c := New(DefaultConfig())

	got := c.SuggestCorrection("在桌面创建一个文件", "未指定有效路径", "创建文件")
	if got != "~/Desktop" {
		t.Fatalf("suggestion = %q, want ~/Desktop", got)
	}
}

func TestClassificationIdempotent(t *testing.T) {
	c := New(DefaultConfig())

	first := c.ClassifyStepFailure("未找到城市'波士炖'", "查询天气", "", "查询波士炖天气")
	second := c.ClassifyStepFailure("未找到城市'波士炖'", "查询天气", "", "查询波士炖天气")
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("classification not deterministic (-first +second):\n%s", diff)
	}
}

func TestClosestMatchCutoff(t *testing.T) {
	if got := closestMatch("波士炖", defaultCities, 0.6); got != "波士顿" {
		t.Fatalf("closestMatch = %q, want 波士顿", got)
	}
	if got := closestMatch("完全无关词", defaultCities, 0.6); got != "" {
		t.Fatalf("closestMatch = %q, want no match", got)
	}
}
