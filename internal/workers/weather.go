package workers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"voxtask/internal/capability"
)

// report is one entry of the reference weather table.
type report struct {
	Condition string
	TempC     int
}

// referenceWeather seeds the lookup with the cities the corrector knows.
// A real deployment would swap this handler for one backed by a weather
// API; the engine contract is identical.
var referenceWeather = map[string]report{
	"北京": {"晴", 24}, "上海": {"多云", 26}, "广州": {"雷阵雨", 30},
	"深圳": {"阵雨", 29}, "杭州": {"多云", 27}, "南京": {"晴", 28},
	"成都": {"阴", 25}, "武汉": {"晴", 29}, "西安": {"晴", 27},
	"重庆": {"多云", 31}, "天津": {"晴", 24}, "苏州": {"多云", 27},
	"波士顿": {"晴", 22}, "纽约": {"多云", 25}, "旧金山": {"雾", 18},
	"洛杉矶": {"晴", 28}, "芝加哥": {"多云", 23}, "伦敦": {"小雨", 17},
	"巴黎": {"多云", 21}, "东京": {"晴", 26}, "首尔": {"多云", 24},
	"新加坡": {"雷阵雨", 31},
}

// WeatherHandler answers weather queries from the reference table.
type WeatherHandler struct {
	table map[string]report
	log   *zap.Logger
}

// NewWeatherHandler creates the handler over the reference table.
func NewWeatherHandler(log *zap.Logger) *WeatherHandler {
	return &WeatherHandler{table: referenceWeather, log: log}
}

// WeatherRegistration describes the handler for the registry.
func WeatherRegistration(log *zap.Logger) capability.Registration {
	return capability.Registration{
		Name:        "weather",
		Description: "查询指定城市的天气",
		Priority:    60,
		Handler:     NewWeatherHandler(log),
	}
}

// Invoke looks up the "city" parameter. An unknown city is an expected
// domain failure, worded so the classifier can extract the name.
func (h *WeatherHandler) Invoke(ctx context.Context, inv capability.Invocation) (*capability.Result, error) {
	city, _ := inv.Parameters["city"].(string)
	if city == "" {
		return failure("未指定城市名称，请提供要查询的城市"), nil
	}

	r, ok := h.table[city]
	if !ok {
		h.log.Info("weather lookup missed", zap.String("city", city))
		return failure(fmt.Sprintf("未找到城市'%s'", city)), nil
	}

	output := fmt.Sprintf("%s：%s，%d度", city, r.Condition, r.TempC)
	return success(output, "weather.lookup", inv.Parameters), nil
}
