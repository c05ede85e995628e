package cvedb

import "testing"

func TestScoreFromVector(t *testing.T) {
	tests := []struct {
		vector string
		want   float64
		ok     bool
	}{
		{"CVSS:3.0/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H", 9.8, true},
		{"AV:N/AC:L/Au:N/C:P/I:P/A:P", 7.5, true},
		{"(AV:N/AC:L/Au:N/C:N/I:N/A:P)", 5.0, true},
		{"", 0, false},
		{"not-a-vector", 0, false},
	}
	for _, tt := range tests {
		got, ok := ScoreFromVector(tt.vector)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ScoreFromVector(%q) = %v,%v, 期望 %v,%v", tt.vector, got, ok, tt.want, tt.ok)
		}
	}
}

func TestResolveScorePrefersBaseScore(t *testing.T) {
	s := resolveScore(floatPtr(4.3), "CVSS:3.0/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H")
	if !s.Valid || s.Float64 != 4.3 {
		t.Errorf("应使用NVD给出的基础分, 实际得到 %+v", s)
	}
	if s := resolveScore(floatPtr(42), ""); s.Valid {
		t.Errorf("超出范围的评分应无效, 实际得到 %+v", s)
	}
}
