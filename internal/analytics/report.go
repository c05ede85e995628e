package analytics

import (
	"math/rand/v2"

	"CVELens/internal/model"
)

// ReportOptions 报表参数，零值使用各自的默认值。
// Jitter例外: 0表示不抖动，负值使用DefaultJitter。
type ReportOptions struct {
	BinStep  float64
	MaxScore float64
	Jitter   float64
	TopWords int
	Rand     *rand.Rand
}

// Report 一个记录快照对应的全部图表数据
type Report struct {
	Records     int             `json:"records" yaml:"records"`
	Bins        []float64       `json:"bins" yaml:"bins"`
	V3Histogram []int           `json:"v3_histogram" yaml:"v3_histogram"`
	V2Histogram []int           `json:"v2_histogram" yaml:"v2_histogram"`
	V3Severity  []SeverityCount `json:"v3_severity" yaml:"v3_severity"`
	V2Severity  []SeverityCount `json:"v2_severity" yaml:"v2_severity"`
	Scatter     Scatter         `json:"scatter" yaml:"scatter"`
	Words       []WordCount     `json:"words" yaml:"words"`
}

// BuildReport 每次调用都从头计算
func BuildReport(records []model.Record, opts ReportOptions) Report {
	v3 := make([]model.Score, len(records))
	v2 := make([]model.Score, len(records))
	for i, r := range records {
		v3[i] = r.CVSSV3Score
		v2[i] = r.CVSSV2Score
	}
	v3Hist := PrepareBins(v3, opts.BinStep, opts.MaxScore)
	v2Hist := PrepareBins(v2, opts.BinStep, opts.MaxScore)

	return Report{
		Records:     len(records),
		Bins:        v3Hist.Bins,
		V3Histogram: v3Hist.Counts,
		V2Histogram: v2Hist.Counts,
		V3Severity:  FillSeverities(CountSeverities(records, V3Severity, model.Severities), model.Severities),
		V2Severity:  FillSeverities(CountSeverities(records, V2Severity, model.Severities), model.Severities),
		Scatter:     PrepareScatter(records, opts.Jitter, opts.Rand),
		Words:       TopWords(records, opts.TopWords),
	}
}
