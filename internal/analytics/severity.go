package analytics

import "CVELens/internal/model"

// SeveritySelector 从记录中取出待统计的严重性字段
type SeveritySelector func(model.Record) model.Severity

func V3Severity(r model.Record) model.Severity { return r.CVSSV3Severity }

func V2Severity(r model.Record) model.Severity { return r.CVSSV2Severity }

// SeverityCount 图表使用的严重性计数
type SeverityCount struct {
	Severity model.Severity `json:"severity" yaml:"severity"`
	Count    int            `json:"count" yaml:"count"`
}

// CountSeverities 统计allowed中各标签出现的次数。
// 不在allowed中的标签被忽略；数据中未出现的标签不会写入结果，补零由调用方负责。
func CountSeverities(records []model.Record, field SeveritySelector, allowed []model.Severity) map[model.Severity]int {
	tally := make(map[model.Severity]int)
	if field == nil {
		return tally
	}
	permitted := make(map[model.Severity]struct{}, len(allowed))
	for _, sev := range allowed {
		permitted[sev] = struct{}{}
	}
	for _, r := range records {
		sev := field(r)
		if sev == "" {
			continue
		}
		if _, ok := permitted[sev]; ok {
			tally[sev]++
		}
	}
	return tally
}

// FillSeverities 按allowed的顺序展开计数，缺失标签补零
func FillSeverities(tally map[model.Severity]int, allowed []model.Severity) []SeverityCount {
	counts := make([]SeverityCount, len(allowed))
	for i, sev := range allowed {
		counts[i] = SeverityCount{Severity: sev, Count: tally[sev]}
	}
	return counts
}
