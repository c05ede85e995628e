package model

import "strings"

// Severity CVSS严重性等级
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Severities 固定的严重性标签集合，按从低到高排列
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// ParseSeverity 规范化严重性标签，未知标签原样保留（大写）
func ParseSeverity(s string) Severity {
	return Severity(strings.ToUpper(strings.TrimSpace(s)))
}

// Rank 严重性排序权重，未知或空标签为0
func (s Severity) Rank() int {
	for i, known := range Severities {
		if s == known {
			return i + 1
		}
	}
	return 0
}

// Known 是否属于固定标签集合
func (s Severity) Known() bool {
	return s.Rank() > 0
}
