// Package analytics 从CVE记录快照计算图表所需的统计聚合。
// 所有函数均为纯函数：只读取入参，不修改输入，不缓存结果。
package analytics

import (
	"math"

	"CVELens/internal/model"
)

const (
	DefaultBinStep  = 0.1
	DefaultMaxScore = model.MaxScore
)

// BinCount 单个分箱及其计数
type BinCount struct {
	Bin   float64 `json:"bin" yaml:"bin"`
	Count int     `json:"count" yaml:"count"`
}

// Histogram 固定步长的评分分布
type Histogram struct {
	Bins   []float64 `json:"bins" yaml:"bins"`
	Counts []int     `json:"counts" yaml:"counts"`
}

// Total 所有分箱计数之和
func (h Histogram) Total() int {
	total := 0
	for _, c := range h.Counts {
		total += c
	}
	return total
}

// Pairs 以(bin, count)对的形式返回
func (h Histogram) Pairs() []BinCount {
	pairs := make([]BinCount, len(h.Bins))
	for i, bin := range h.Bins {
		pairs[i] = BinCount{Bin: bin, Count: h.Counts[i]}
	}
	return pairs
}

// BinEdges 生成从0到max（含）的floor(max/step)+1个分箱，保留一位小数
func BinEdges(step, max float64) []float64 {
	step, max = binDefaults(step, max)
	n := int(math.Floor(max/step+1e-9)) + 1
	bins := make([]float64, n)
	for i := range bins {
		bins[i] = math.Round(float64(i)*step*10) / 10
	}
	return bins
}

// PrepareBins 按round(score/step)将有效评分计入分箱。
// 缺失、无效或落在分箱范围外的评分不计数。
func PrepareBins(scores []model.Score, step, max float64) Histogram {
	step, max = binDefaults(step, max)
	bins := BinEdges(step, max)
	counts := make([]int, len(bins))
	for _, score := range scores {
		if !score.Valid || math.IsNaN(score.Float64) || math.IsInf(score.Float64, 0) {
			continue
		}
		idx := math.Round(score.Float64 / step)
		if idx >= 0 && idx < float64(len(counts)) {
			counts[int(idx)]++
		}
	}
	return Histogram{Bins: bins, Counts: counts}
}

// BinStrings 先解析原始字符串评分再分箱
func BinStrings(raw []string, step, max float64) Histogram {
	scores := make([]model.Score, len(raw))
	for i, s := range raw {
		scores[i] = model.ParseScore(s)
	}
	return PrepareBins(scores, step, max)
}

func binDefaults(step, max float64) (float64, float64) {
	if step <= 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		step = DefaultBinStep
	}
	if max <= 0 || math.IsNaN(max) || math.IsInf(max, 0) {
		max = DefaultMaxScore
	}
	return step, max
}
