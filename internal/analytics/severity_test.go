package analytics

import (
	"testing"

	"CVELens/internal/model"
)

func TestCountSeverities(t *testing.T) {
	records := []model.Record{
		{ID: "CVE-1", CVSSV3Severity: model.SeverityHigh, CVSSV2Severity: model.SeverityMedium},
		{ID: "CVE-2", CVSSV3Severity: model.SeverityHigh},
		{ID: "CVE-3", CVSSV3Severity: model.SeverityCritical, CVSSV2Severity: "NONE"},
		{ID: "CVE-4", CVSSV3Severity: "bogus"},
		{ID: "CVE-5"},
	}

	v3 := CountSeverities(records, V3Severity, model.Severities)
	if v3[model.SeverityHigh] != 2 || v3[model.SeverityCritical] != 1 {
		t.Errorf("v3计数错误: %v", v3)
	}
	if _, ok := v3["bogus"]; ok {
		t.Error("不应包含未知标签")
	}
	if _, ok := v3[model.SeverityLow]; ok {
		t.Error("未出现的标签不应写入结果")
	}

	total := 0
	for sev, n := range v3 {
		if !sev.Known() {
			t.Errorf("出现了不在允许集合中的标签 %q", sev)
		}
		total += n
	}
	if total > len(records) {
		t.Errorf("计数总和 %d 超过记录数 %d", total, len(records))
	}

	v2 := CountSeverities(records, V2Severity, model.Severities)
	if len(v2) != 1 || v2[model.SeverityMedium] != 1 {
		t.Errorf("v2计数错误: %v", v2)
	}
}

func TestCountSeveritiesRestrictedSet(t *testing.T) {
	records := []model.Record{
		{CVSSV3Severity: model.SeverityLow},
		{CVSSV3Severity: model.SeverityHigh},
	}
	tally := CountSeverities(records, V3Severity, []model.Severity{model.SeverityHigh})
	if len(tally) != 1 || tally[model.SeverityHigh] != 1 {
		t.Errorf("期望只统计HIGH, 实际得到 %v", tally)
	}
}

func TestFillSeverities(t *testing.T) {
	filled := FillSeverities(map[model.Severity]int{model.SeverityCritical: 3}, model.Severities)
	if len(filled) != 4 {
		t.Fatalf("期望4个标签, 实际得到 %d", len(filled))
	}
	if filled[0].Severity != model.SeverityLow || filled[0].Count != 0 {
		t.Errorf("LOW应补零: %+v", filled[0])
	}
	if filled[3].Count != 3 {
		t.Errorf("CRITICAL计数错误: %+v", filled[3])
	}
}

func TestCountSeveritiesEmpty(t *testing.T) {
	if tally := CountSeverities(nil, V3Severity, model.Severities); len(tally) != 0 {
		t.Errorf("空输入应返回空映射, 实际得到 %v", tally)
	}
}
