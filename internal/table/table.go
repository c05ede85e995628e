// Package table 提供CVE记录表格视图：列定义、排序状态、显示行与详情。
package table

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"CVELens/internal/model"
)

// Column 表格列
type Column int

const (
	ColumnID Column = iota
	ColumnPublished
	ColumnLastModified
	ColumnDescription
	ColumnV3Score
	ColumnV3Severity
	ColumnV2Score
	ColumnV2Severity
	ColumnReferences
)

var columnNames = []string{
	"id", "published", "last_modified", "description",
	"cvss_v3_score", "cvss_v3_severity", "cvss_v2_score", "cvss_v2_severity",
	"reference_urls",
}

// Columns 全部列，按显示顺序
var Columns = []Column{
	ColumnID, ColumnPublished, ColumnLastModified, ColumnDescription,
	ColumnV3Score, ColumnV3Severity, ColumnV2Score, ColumnV2Severity,
	ColumnReferences,
}

func (c Column) String() string {
	if c < 0 || int(c) >= len(columnNames) {
		return fmt.Sprintf("column(%d)", int(c))
	}
	return columnNames[c]
}

// ParseColumn 按列名解析，接受v3_score这类省略cvss_前缀的写法
func ParseColumn(name string) (Column, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range columnNames {
		if name == n || "cvss_"+name == n {
			return Column(i), nil
		}
	}
	return 0, fmt.Errorf("未知列 %q", name)
}

func (c Column) isScore() bool {
	return c == ColumnV3Score || c == ColumnV2Score
}

func (c Column) isSeverity() bool {
	return c == ColumnV3Severity || c == ColumnV2Severity
}

// Direction 排序方向
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case "", Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	}
	return "", fmt.Errorf("未知排序方向 %q (可选 asc, desc)", s)
}

// SortState 当前排序列与方向。Sorted为false表示保持到达顺序。
type SortState struct {
	Column    Column
	Direction Direction
	Sorted    bool
}

// Toggle 点击某列后的新状态：同列升序时切为降序，否则升序
func (s SortState) Toggle(c Column) SortState {
	if s.Sorted && s.Column == c && s.Direction == Asc {
		return SortState{Column: c, Direction: Desc, Sorted: true}
	}
	return SortState{Column: c, Direction: Asc, Sorted: true}
}

// Sort 返回按状态稳定排序后的新切片，输入不被修改。
// 评分列按数值，严重性列按等级，其余按文本比较；空值无论方向都排在最后。
func Sort(records []model.Record, state SortState) []model.Record {
	out := slices.Clone(records)
	if !state.Sorted {
		return out
	}
	desc := state.Direction == Desc

	slices.SortStableFunc(out, func(a, b model.Record) int {
		blankA, blankB := isBlank(a, state.Column), isBlank(b, state.Column)
		switch {
		case blankA && blankB:
			return 0
		case blankA:
			return 1
		case blankB:
			return -1
		}
		c := compare(a, b, state.Column)
		if desc {
			return -c
		}
		return c
	})
	return out
}

func isBlank(r model.Record, c Column) bool {
	switch c {
	case ColumnV3Score:
		return !r.CVSSV3Score.Valid
	case ColumnV2Score:
		return !r.CVSSV2Score.Valid
	case ColumnV3Severity:
		return !r.CVSSV3Severity.Known()
	case ColumnV2Severity:
		return !r.CVSSV2Severity.Known()
	}
	return text(r, c) == ""
}

func compare(a, b model.Record, c Column) int {
	switch {
	case c == ColumnV3Score:
		return cmp.Compare(a.CVSSV3Score.Float64, b.CVSSV3Score.Float64)
	case c == ColumnV2Score:
		return cmp.Compare(a.CVSSV2Score.Float64, b.CVSSV2Score.Float64)
	case c == ColumnV3Severity:
		return cmp.Compare(a.CVSSV3Severity.Rank(), b.CVSSV3Severity.Rank())
	case c == ColumnV2Severity:
		return cmp.Compare(a.CVSSV2Severity.Rank(), b.CVSSV2Severity.Rank())
	}
	return strings.Compare(text(a, c), text(b, c))
}

func text(r model.Record, c Column) string {
	switch c {
	case ColumnID:
		return r.ID
	case ColumnPublished:
		return r.Published
	case ColumnLastModified:
		return r.LastModified
	case ColumnDescription:
		return r.Description
	case ColumnV3Score:
		return r.CVSSV3Score.String()
	case ColumnV2Score:
		return r.CVSSV2Score.String()
	case ColumnV3Severity:
		return string(r.CVSSV3Severity)
	case ColumnV2Severity:
		return string(r.CVSSV2Severity)
	case ColumnReferences:
		return r.ReferenceURLs
	}
	return ""
}

// Row 一行显示数据，缺失字段为空串
type Row struct {
	ID             string         `json:"id" yaml:"id"`
	Published      string         `json:"published" yaml:"published"`
	LastModified   string         `json:"last_modified" yaml:"last_modified"`
	Summary        string         `json:"summary" yaml:"summary"`
	CVSSV3Score    string         `json:"cvss_v3_score" yaml:"cvss_v3_score"`
	CVSSV3Severity model.Severity `json:"cvss_v3_severity" yaml:"cvss_v3_severity"`
	CVSSV2Score    string         `json:"cvss_v2_score" yaml:"cvss_v2_score"`
	CVSSV2Severity model.Severity `json:"cvss_v2_severity" yaml:"cvss_v2_severity"`
	References     int            `json:"references" yaml:"references"`
}

// DefaultSummaryWidth 描述摘要的显示宽度
const DefaultSummaryWidth = 60

// Rows 生成显示行，描述按显示宽度截断
func Rows(records []model.Record, summaryWidth int) []Row {
	if summaryWidth <= 0 {
		summaryWidth = DefaultSummaryWidth
	}
	rows := make([]Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, Row{
			ID:             r.ID,
			Published:      FormatDate(r.Published),
			LastModified:   FormatDate(r.LastModified),
			Summary:        Summarize(r.Description, summaryWidth),
			CVSSV3Score:    r.CVSSV3Score.String(),
			CVSSV3Severity: r.CVSSV3Severity,
			CVSSV2Score:    r.CVSSV2Score.String(),
			CVSSV2Severity: r.CVSSV2Severity,
			References:     len(r.References()),
		})
	}
	return rows
}

var dateLayouts = []string{
	"2006-01-02T15:04:05.000",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z",
	time.DateOnly,
}

// FormatDate 可解析时返回YYYY-MM-DD，否则原样返回
func FormatDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.DateOnly)
		}
	}
	return s
}

// Summarize 折叠空白并按显示宽度截断，宽字符按两列计算
func Summarize(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	return runewidth.Truncate(s, width, "...")
}

const (
	NoDescription = "No description available"
	NoReferences  = "No references available"
)

// Detail 单条记录的完整描述与参考链接
type Detail struct {
	ID          string       `json:"id" yaml:"id"`
	Description string       `json:"description" yaml:"description"`
	References  []string     `json:"references" yaml:"references"`
	Record      model.Record `json:"record" yaml:"record"`
}

func DetailOf(r model.Record) Detail {
	desc := strings.TrimSpace(r.Description)
	if desc == "" {
		desc = NoDescription
	}
	refs := r.References()
	if refs == nil {
		refs = []string{}
	}
	return Detail{ID: r.ID, Description: desc, References: refs, Record: r}
}
