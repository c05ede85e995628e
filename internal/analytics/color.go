package analytics

import (
	"math"

	"CVELens/internal/model"
)

// Color 平均分对应的颜色分档
type Color string

const (
	ColorNone      Color = ""
	ColorTeal      Color = "teal"
	ColorLightBlue Color = "lightblue"
	ColorBlue      Color = "blue"
	ColorGreen     Color = "green"
	ColorOrange    Color = "orange"
	ColorYellow    Color = "yellow"
	ColorRed       Color = "red"
	ColorDarkRed   Color = "darkred"
)

// Colors 全部颜色档，从低分到高分
var Colors = []Color{
	ColorTeal, ColorLightBlue, ColorBlue, ColorGreen,
	ColorOrange, ColorYellow, ColorRed, ColorDarkRed,
}

// 上界不含，恰好落在阈值上的值归入更高一档
var colorThresholds = []struct {
	below float64
	color Color
}{
	{2, ColorTeal},
	{3, ColorLightBlue},
	{4, ColorBlue},
	{5, ColorGreen},
	{7, ColorOrange},
	{8, ColorYellow},
	{9, ColorRed},
}

// ColorFor 将v2/v3平均分映射到八个有序颜色档之一；NaN返回ColorNone
func ColorFor(avg float64) Color {
	if math.IsNaN(avg) {
		return ColorNone
	}
	for _, t := range colorThresholds {
		if avg < t.below {
			return t.color
		}
	}
	return ColorDarkRed
}

// AverageScore v3与v2评分的算术平均，任一缺失时ok为false
func AverageScore(r model.Record) (float64, bool) {
	if !r.HasBothScores() {
		return math.NaN(), false
	}
	return (r.CVSSV3Score.Float64 + r.CVSSV2Score.Float64) / 2, true
}
