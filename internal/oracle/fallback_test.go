package oracle

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxtask/internal/classify"
)

func TestFallbackClarification(t *testing.T) {
	tests := []struct {
		name string
		cc   ClarificationContext
		want string
	}{
		{
			name: "recognition with suggestion confirms it",
			cc:   ClarificationContext{Kind: classify.KindRecognitionError, Suggestion: "波士顿"},
			want: "波士顿",
		},
		{
			name: "recognition without suggestion asks to repeat",
			cc:   ClarificationContext{Kind: classify.KindRecognitionError},
			want: "再说一遍",
		},
		{
			name: "missing info carries the message",
			cc:   ClarificationContext{Kind: classify.KindMissingInfo, Message: "未指定城市名称"},
			want: "未指定城市名称",
		},
		{
			name: "execution failure names the step",
			cc:   ClarificationContext{Kind: classify.KindExecutionFailed, Description: "查询天气", Message: "请求超时"},
			want: "查询天气",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FallbackClarification(tt.cc)
			assert.NotEmpty(t, got)
			assert.Contains(t, got, tt.want)
		})
	}
}

func TestFallbackSummary(t *testing.T) {
	full := FallbackSummary(SummaryContext{Success: true, TotalSteps: 3})
	assert.Contains(t, full, "3")

	partial := FallbackSummary(SummaryContext{TotalSteps: 3, SuccessfulSteps: 1, ErrorMessage: "请求超时"})
	assert.Contains(t, partial, "1/3")
	assert.Contains(t, partial, "请求超时")

	none := FallbackSummary(SummaryContext{TotalSteps: 1, ErrorMessage: "未找到城市'波士炖'"})
	assert.Contains(t, none, "未找到城市'波士炖'")
}

func TestCannedOracleWeatherPlan(t *testing.T) {
	o := NewCannedOracle()

	raw, err := o.GeneratePlan(context.Background(), "查询北京天气", nil)
	require.NoError(t, err)
	assert.Contains(t, raw, `"assigned_capability":"weather"`)
	assert.Contains(t, raw, `"city":"北京"`)
}

func TestCannedOracleMarkers(t *testing.T) {
	o := NewCannedOracle()

	raw, err := o.GeneratePlan(context.Background(), "   ", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "---Invalid Input---"))

	raw, err = o.GeneratePlan(context.Background(), "给我唱首歌", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "---Infeasible Task---"))
}

func TestCannedOracleWeatherWithoutCity(t *testing.T) {
	o := NewCannedOracle()

	raw, err := o.GeneratePlan(context.Background(), "查询天气", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "---Infeasible Task---"))
	assert.Contains(t, raw, "未指定城市")
}
