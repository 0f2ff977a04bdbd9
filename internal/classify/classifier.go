package classify

import (
	"regexp"
	"strings"
)

// Keyword sets for failure-text scanning. The upstream recognizer emits
// Chinese, capability handlers may answer in either language, so both sets
// are carried.
var (
	unclearMarkers = []string{
		"含义不明", "无法理解", "不明确", "无法识别", "无法确定", "不清楚", "无法查询",
		"cannot understand", "unclear", "could not understand",
	}
	missingMarkers = []string{
		"未指定", "缺少", "请提供", "需要", "没有提供", "请说明", "必须提供", "哪个", "哪里",
		"missing", "required", "please provide", "not specified",
	}
	unsupportedMarkers = []string{
		"不支持", "无法完成", "超出能力",
		"unsupported", "out of capability", "not supported",
	}
	notFoundMarkers = []string{
		"文件不存在", "未找到", "不存在",
		"not found", "does not exist", "no such file",
	}
	invalidMarkers = []string{
		"未找到", "不存在", "无效", "找不到", "无法识别", "无法查询",
		"not found", "invalid", "cannot find", "unrecognized", "don't find",
	}
	permissionMarkers = []string{
		"权限", "permission denied", "permission", "拒绝访问",
	}
	transientMarkers = []string{
		"超时", "网络", "连接失败",
		"timeout", "timed out", "network", "connection",
	}
)

// quotedTokenPattern extracts tokens the planner or a handler wrapped in
// quotes, e.g. 未找到城市'波士炖'.
var quotedTokenPattern = regexp.MustCompile(`['"“”‘’「」](.*?)['"“”‘’「」]`)

// defaultCities is the reference set for fuzzy city correction, carried
// over from the upstream weather capability's coverage.
var defaultCities = []string{
	"北京", "上海", "广州", "深圳", "杭州", "南京",
	"成都", "武汉", "西安", "重庆", "天津", "苏州",
	"波士顿", "纽约", "旧金山", "洛杉矶", "芝加哥",
	"伦敦", "巴黎", "东京", "首尔", "新加坡",
}

// defaultLocations maps spoken location names to canonical path aliases.
var defaultLocations = map[string]string{
	"桌面": "~/Desktop",
	"文档": "~/Documents",
	"下载": "~/Downloads",
	"图片": "~/Pictures",
}

// queryStopWords are stripped before fuzzy-matching city tokens.
var queryStopWords = []string{"天气", "查询", "的"}

// Fuzzy-match cutoffs: query tokens need the stricter cutoff, tokens already
// pinpointed by an error message may match looser.
const (
	queryTokenCutoff  = 0.6
	quotedTokenCutoff = 0.5
)

// Config tunes classification policy.
type Config struct {
	// PlanStageDefault is the kind assigned when a plan-stage failure
	// matches no marker set. The default biases toward RecognitionError,
	// which suits a voice channel where most infeasibility stems from
	// misrecognition; text-first deployments may prefer KindUnknown.
	PlanStageDefault Kind

	// Cities is the fuzzy-match reference set for weather corrections.
	Cities []string

	// Locations maps spoken location synonyms to path aliases for file
	// corrections.
	Locations map[string]string
}

// DefaultConfig returns the standard policy.
func DefaultConfig() Config {
	return Config{
		PlanStageDefault: KindRecognitionError,
		Cities:           defaultCities,
		Locations:        defaultLocations,
	}
}

// Classifier produces typed classifications from failure text. Stateless
// apart from its policy; Classify* methods are pure functions of their
// inputs.
type Classifier struct {
	cfg Config
}

// New creates a classifier with the given policy. Zero-value fields fall
// back to the defaults.
func New(cfg Config) *Classifier {
	def := DefaultConfig()
	if cfg.PlanStageDefault == "" {
		cfg.PlanStageDefault = def.PlanStageDefault
	}
	if cfg.Cities == nil {
		cfg.Cities = def.Cities
	}
	if cfg.Locations == nil {
		cfg.Locations = def.Locations
	}
	return &Classifier{cfg: cfg}
}

// ClassifyPlanFailure classifies a plan-stage failure (empty plan, verdict
// not feasible) from its reason text.
func (c *Classifier) ClassifyPlanFailure(reason, originalQuery string) Classification {
	cl := Classification{
		Message:       reason,
		Description:   "任务规划",
		OriginalQuery: originalQuery,
	}

	switch {
	case containsAny(reason, unclearMarkers):
		cl.Kind = KindRecognitionError
		cl.Description = "语音识别"
		cl.Suggestion = c.SuggestUnclearQuery(originalQuery, reason)
	case containsAny(reason, missingMarkers):
		cl.Kind = KindMissingInfo
	case containsAny(reason, unsupportedMarkers):
		cl.Kind = KindExecutionFailed
	default:
		// Ambiguous plan-stage infeasibility: apply the configured bias so
		// the user gets a chance to restate.
		cl.Kind = c.cfg.PlanStageDefault
		if cl.Kind == KindRecognitionError {
			cl.Suggestion = c.SuggestCorrection(originalQuery, reason, reason)
		}
	}
	return cl
}

// ClassifyStepFailure classifies a failed step from its error text. The
// rules are ordered; the first match wins. suggestion, when non-empty, is a
// correction the capability itself proposed.
func (c *Classifier) ClassifyStepFailure(errText, description, suggestion, originalQuery string) Classification {
	cl := Classification{
		Message:       errText,
		Description:   description,
		OriginalQuery: originalQuery,
	}
	if cl.Description == "" {
		cl.Description = "执行任务"
	}

	switch {
	case containsAny(errText, notFoundMarkers):
		cl.Kind = KindRecognitionError
		cl.Suggestion = suggestion
		if cl.Suggestion == "" {
			cl.Suggestion = c.SuggestCorrection(originalQuery, errText, description)
		}
	case containsAny(errText, missingMarkers):
		cl.Kind = KindMissingInfo
	case containsAny(errText, invalidMarkers):
		if suggestion == "" {
			suggestion = c.SuggestCorrection(originalQuery, errText, description)
		}
		if suggestion != "" {
			cl.Kind = KindRecognitionError
			cl.Suggestion = suggestion
		} else {
			cl.Kind = KindInvalidParam
		}
	case containsAny(errText, permissionMarkers):
		cl.Kind = KindExecutionFailed
	case containsAny(errText, transientMarkers):
		cl.Kind = KindExecutionFailed
	default:
		cl.Kind = KindUnknown
	}
	return cl
}

// SuggestCorrection proposes a likely intended value based on the failed
// step's domain. Returns "" when nothing clears the similarity cutoff.
func (c *Classifier) SuggestCorrection(originalQuery, errText, description string) string {
	domain := strings.ToLower(description + " " + errText)
	if containsAny(domain, []string{"天气", "城市", "weather", "city"}) {
		return c.suggestCity(originalQuery, errText)
	}
	if containsAny(domain, []string{"文件", "目录", "路径", "file", "directory", "path"}) {
		return c.suggestPath(originalQuery)
	}
	return ""
}

// suggestCity extracts candidate tokens from the query, then from quoted
// fragments of the error text, and fuzzy-matches them against the city
// reference set.
func (c *Classifier) suggestCity(query, errText string) string {
	cleaned := query
	for _, w := range queryStopWords {
		cleaned = strings.ReplaceAll(cleaned, w, " ")
	}
	for _, token := range strings.Fields(cleaned) {
		if len([]rune(token)) < 2 {
			continue
		}
		if m := closestMatch(token, c.cfg.Cities, queryTokenCutoff); m != "" {
			return m
		}
	}

	// The error message often pinpoints the offending name in quotes.
	if m := quotedTokenPattern.FindStringSubmatch(errText); len(m) > 1 {
		if match := closestMatch(m[1], c.cfg.Cities, quotedTokenCutoff); match != "" {
			return match
		}
	}
	return ""
}

// suggestPath maps a spoken location synonym in the query to its canonical
// path alias.
func (c *Classifier) suggestPath(query string) string {
	for location, path := range c.cfg.Locations {
		if strings.Contains(query, location) {
			return path
		}
	}
	return ""
}

// SuggestUnclearQuery derives a corrected query fragment from a plan-stage
// "cannot understand" message. It handles the 天际→天气 single-character
// misrecognition before re-attempting the city match.
func (c *Classifier) SuggestUnclearQuery(originalQuery, message string) string {
	unclear := quotedTokenPattern.FindAllStringSubmatch(message, -1)

	for _, m := range unclear {
		word := m[1]

		// 天际 is the common homophone misrecognition of 天气.
		if strings.Contains(word, "天际") || strings.Contains(word, "天气") {
			corrected := strings.ReplaceAll(originalQuery, "天际", "天气")
			if city := c.suggestCity(corrected, message); city != "" {
				return "查询" + city + "天气"
			}
		}

		if city := c.suggestCity(originalQuery, word); city != "" {
			if strings.Contains(originalQuery, "天际") || strings.Contains(originalQuery, "天气") {
				return "查询" + city + "天气"
			}
			return city
		}
	}
	return ""
}

func containsAny(s string, markers []string) bool {
	lower := strings.ToLower(s)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
