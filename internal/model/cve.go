package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxScore CVSS评分上限
const MaxScore = 10.0

// Record CVE漏洞记录
type Record struct {
	ID             string   `json:"id" yaml:"id" db:"id"`
	Published      string   `json:"published" yaml:"published" db:"published"`
	LastModified   string   `json:"last_modified" yaml:"last_modified" db:"last_modified"`
	Description    string   `json:"description" yaml:"description" db:"description"`
	CVSSV3Score    Score    `json:"cvss_v3_score" yaml:"cvss_v3_score" db:"cvss_v3_score"`
	CVSSV3Severity Severity `json:"cvss_v3_severity" yaml:"cvss_v3_severity" db:"cvss_v3_severity"`
	CVSSV2Score    Score    `json:"cvss_v2_score" yaml:"cvss_v2_score" db:"cvss_v2_score"`
	CVSSV2Severity Severity `json:"cvss_v2_severity" yaml:"cvss_v2_severity" db:"cvss_v2_severity"`
	ReferenceURLs  string   `json:"reference_urls" yaml:"reference_urls" db:"reference_urls"`
}

// References 拆分逗号分隔的参考链接，忽略空项
func (r Record) References() []string {
	var refs []string
	for _, url := range strings.Split(r.ReferenceURLs, ",") {
		if url = strings.TrimSpace(url); url != "" {
			refs = append(refs, url)
		}
	}
	return refs
}

// HasBothScores 是否同时具有v3与v2评分
func (r Record) HasBothScores() bool {
	return r.CVSSV3Score.Valid && r.CVSSV2Score.Valid
}

// Score 可选的CVSS评分，Valid为false表示缺失或无效
type Score struct {
	Float64 float64
	Valid   bool
}

// NewScore 非有限值或超出[0,10]的评分视为无效
func NewScore(v float64) Score {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > MaxScore {
		return Score{}
	}
	return Score{Float64: v, Valid: true}
}

// ParseScore 解析字符串评分，空串或无法解析时返回无效评分
func ParseScore(s string) Score {
	s = strings.TrimSpace(s)
	if s == "" {
		return Score{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Score{}
	}
	return NewScore(v)
}

func (s Score) String() string {
	if !s.Valid {
		return ""
	}
	return strconv.FormatFloat(s.Float64, 'f', -1, 64)
}

func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Float64)
}

// UnmarshalJSON 接受数字、数字字符串、空串与null
func (s *Score) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*s = Score{}
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = ParseScore(str)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid score %s: %w", raw, err)
	}
	*s = NewScore(v)
	return nil
}

func (s Score) MarshalYAML() (interface{}, error) {
	if !s.Valid {
		return nil, nil
	}
	return s.Float64, nil
}

// Scan 实现sql.Scanner
func (s *Score) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = Score{}
	case float64:
		*s = NewScore(v)
	case int64:
		*s = NewScore(float64(v))
	case []byte:
		*s = ParseScore(string(v))
	case string:
		*s = ParseScore(v)
	default:
		return fmt.Errorf("cannot scan %T into Score", src)
	}
	return nil
}

// Value 实现driver.Valuer，无效评分写入NULL
func (s Score) Value() (driver.Value, error) {
	if !s.Valid {
		return nil, nil
	}
	return s.Float64, nil
}
