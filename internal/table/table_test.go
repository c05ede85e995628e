package table

import (
	"testing"

	"CVELens/internal/model"
)

func sample() []model.Record {
	return []model.Record{
		{ID: "CVE-3", Published: "2023-05-01T10:00:00.000", CVSSV3Score: model.NewScore(5.0), CVSSV3Severity: model.SeverityMedium},
		{ID: "CVE-1", Published: "2021-01-01T10:00:00.000"},
		{ID: "CVE-2", CVSSV3Score: model.NewScore(9.8), CVSSV3Severity: model.SeverityCritical},
		{ID: "CVE-4", CVSSV3Score: model.NewScore(0), CVSSV3Severity: model.SeverityLow},
	}
}

func ids(records []model.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestToggle(t *testing.T) {
	var s SortState
	s = s.Toggle(ColumnV3Score)
	if s.Column != ColumnV3Score || s.Direction != Asc || !s.Sorted {
		t.Errorf("首次点击应为升序: %+v", s)
	}
	s = s.Toggle(ColumnV3Score)
	if s.Direction != Desc {
		t.Errorf("再次点击同列应为降序: %+v", s)
	}
	s = s.Toggle(ColumnV3Score)
	if s.Direction != Asc {
		t.Errorf("降序后再点击应回到升序: %+v", s)
	}
	s = s.Toggle(ColumnV3Score).Toggle(ColumnID)
	if s.Column != ColumnID || s.Direction != Asc {
		t.Errorf("切换到新列应为升序: %+v", s)
	}
}

func TestSortBlanksLast(t *testing.T) {
	records := sample()

	tests := []struct {
		name  string
		state SortState
		want  []string
	}{
		{"未排序保持原顺序", SortState{}, []string{"CVE-3", "CVE-1", "CVE-2", "CVE-4"}},
		{"v3评分升序", SortState{ColumnV3Score, Asc, true}, []string{"CVE-4", "CVE-3", "CVE-2", "CVE-1"}},
		{"v3评分降序", SortState{ColumnV3Score, Desc, true}, []string{"CVE-2", "CVE-3", "CVE-4", "CVE-1"}},
		{"严重性按等级升序", SortState{ColumnV3Severity, Asc, true}, []string{"CVE-4", "CVE-3", "CVE-2", "CVE-1"}},
		{"严重性按等级降序", SortState{ColumnV3Severity, Desc, true}, []string{"CVE-2", "CVE-3", "CVE-4", "CVE-1"}},
		{"发布日期降序", SortState{ColumnPublished, Desc, true}, []string{"CVE-3", "CVE-1", "CVE-2", "CVE-4"}},
		{"编号升序", SortState{ColumnID, Asc, true}, []string{"CVE-1", "CVE-2", "CVE-3", "CVE-4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Sort(records, tt.state))
			if !equal(got, tt.want) {
				t.Errorf("期望 %v, 实际得到 %v", tt.want, got)
			}
		})
	}

	if records[0].ID != "CVE-3" {
		t.Error("Sort不应修改输入")
	}
}

func TestParseColumn(t *testing.T) {
	for _, name := range []string{"cvss_v3_score", "v3_score", " V3_SCORE "} {
		if c, err := ParseColumn(name); err != nil || c != ColumnV3Score {
			t.Errorf("ParseColumn(%q) = %v, %v", name, c, err)
		}
	}
	if _, err := ParseColumn("nope"); err == nil {
		t.Error("未知列应返回错误")
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Error("未知方向应返回错误")
	}
	for _, c := range Columns {
		if parsed, _ := ParseColumn(c.String()); parsed != c {
			t.Errorf("列名 %s 解析不一致", c)
		}
	}
}

func TestRows(t *testing.T) {
	records := []model.Record{{
		ID:            "CVE-2024-0001",
		Published:     "2024-03-05T11:22:33.444",
		LastModified:  "not a date",
		Description:   "漏洞描述 that is rather long",
		CVSSV2Score:   model.NewScore(4.3),
		ReferenceURLs: "https://a.example,,https://b.example",
	}}

	rows := Rows(records, 10)
	row := rows[0]
	if row.Published != "2024-03-05" {
		t.Errorf("日期格式化错误: %q", row.Published)
	}
	if row.LastModified != "not a date" {
		t.Errorf("无法解析的日期应原样返回: %q", row.LastModified)
	}
	if row.CVSSV3Score != "" || row.CVSSV2Score != "4.3" {
		t.Errorf("评分显示错误: %q %q", row.CVSSV3Score, row.CVSSV2Score)
	}
	if row.Summary != "漏洞描..." {
		t.Errorf("按显示宽度截断错误: %q", row.Summary)
	}
	if row.References != 2 {
		t.Errorf("期望2个参考链接, 实际得到 %d", row.References)
	}
}

func TestDetailOf(t *testing.T) {
	d := DetailOf(model.Record{ID: "CVE-1"})
	if d.Description != NoDescription {
		t.Errorf("缺失描述应显示占位文本, 实际得到 %q", d.Description)
	}
	if d.References == nil || len(d.References) != 0 {
		t.Errorf("缺失参考链接应为空列表: %#v", d.References)
	}

	d = DetailOf(model.Record{ID: "CVE-2", Description: "text", ReferenceURLs: "https://x.example"})
	if d.Description != "text" || len(d.References) != 1 {
		t.Errorf("详情错误: %+v", d)
	}
}
