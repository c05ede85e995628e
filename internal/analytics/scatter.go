package analytics

import (
	"math/rand/v2"

	"CVELens/internal/model"
)

// ScatterPoint 散点图中的一个CVE
type ScatterPoint struct {
	ID      string  `json:"id" yaml:"id"`
	V3      float64 `json:"v3" yaml:"v3"`
	V2      float64 `json:"v2" yaml:"v2"`
	X       float64 `json:"x" yaml:"x"`
	Y       float64 `json:"y" yaml:"y"`
	Average float64 `json:"average" yaml:"average"`
	Color   Color   `json:"color" yaml:"color"`
}

// Scatter v3对v2评分散点及回归线。Regression为nil表示无法拟合。
type Scatter struct {
	Points     []ScatterPoint `json:"points" yaml:"points"`
	Regression *Regression    `json:"regression,omitempty" yaml:"regression,omitempty"`
}

// FilterScored 保留同时具有v3与v2评分的记录，返回新切片
func FilterScored(records []model.Record) []model.Record {
	var scored []model.Record
	for _, r := range records {
		if r.HasBothScores() {
			scored = append(scored, r)
		}
	}
	return scored
}

// ScoreValues 取出指定评分字段的数值，调用方须先用FilterScored过滤
func ScoreValues(records []model.Record, field func(model.Record) model.Score) []float64 {
	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = field(r).Float64
	}
	return values
}

func V3Score(r model.Record) model.Score { return r.CVSSV3Score }

func V2Score(r model.Record) model.Score { return r.CVSSV2Score }

// PrepareScatter 回归基于原始评分计算，抖动只作用于展示坐标
func PrepareScatter(records []model.Record, jitter float64, rng *rand.Rand) Scatter {
	scored := FilterScored(records)
	if len(scored) == 0 {
		return Scatter{Points: []ScatterPoint{}}
	}

	xs := ScoreValues(scored, V3Score)
	ys := ScoreValues(scored, V2Score)
	jx := Jitter(xs, jitter, rng)
	jy := Jitter(ys, jitter, rng)

	points := make([]ScatterPoint, len(scored))
	for i, r := range scored {
		avg, _ := AverageScore(r)
		points[i] = ScatterPoint{
			ID:      r.ID,
			V3:      xs[i],
			V2:      ys[i],
			X:       jx[i],
			Y:       jy[i],
			Average: avg,
			Color:   ColorFor(avg),
		}
	}

	scatter := Scatter{Points: points}
	if reg, err := LinearRegression(xs, ys); err == nil && reg.Defined() {
		scatter.Regression = &reg
	}
	return scatter
}
