package model

import (
	"encoding/json"
	"math"
	"testing"
)

func TestNewScoreRejectsInvalid(t *testing.T) {
	for _, v := range []float64{-0.1, 10.1, math.NaN(), math.Inf(1)} {
		if NewScore(v).Valid {
			t.Errorf("NewScore(%v) 应为无效评分", v)
		}
	}
	for _, v := range []float64{0, 5.5, 10} {
		if s := NewScore(v); !s.Valid || s.Float64 != v {
			t.Errorf("NewScore(%v) = %+v", v, s)
		}
	}
}

func TestScoreJSON(t *testing.T) {
	var r struct {
		A Score `json:"a"`
		B Score `json:"b"`
		C Score `json:"c"`
		D Score `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"a": 7.5, "b": "9.8", "c": "", "d": null}`), &r); err != nil {
		t.Fatal(err)
	}
	if r.A.Float64 != 7.5 || r.B.Float64 != 9.8 || r.C.Valid || r.D.Valid {
		t.Errorf("解析结果错误: %+v", r)
	}

	data, _ := json.Marshal(Record{ID: "CVE-1", CVSSV3Score: NewScore(4.3)})
	var decoded map[string]interface{}
	json.Unmarshal(data, &decoded)
	if decoded["cvss_v3_score"] != 4.3 || decoded["cvss_v2_score"] != nil {
		t.Errorf("序列化结果错误: %s", data)
	}
}

func TestScoreScan(t *testing.T) {
	var s Score
	for _, src := range []interface{}{nil, []byte("abc"), "11"} {
		if err := s.Scan(src); err != nil || s.Valid {
			t.Errorf("Scan(%v) = %+v, %v", src, s, err)
		}
	}
	if err := s.Scan(int64(7)); err != nil || s.Float64 != 7 {
		t.Errorf("Scan(int64) = %+v, %v", s, err)
	}
	if err := s.Scan(true); err == nil {
		t.Error("不支持的类型应返回错误")
	}
}

func TestRecordHelpers(t *testing.T) {
	r := Record{ReferenceURLs: "https://a, ,https://b,"}
	if refs := r.References(); len(refs) != 2 || refs[1] != "https://b" {
		t.Errorf("References() = %v", refs)
	}
	if r.HasBothScores() {
		t.Error("缺少评分时HasBothScores应为false")
	}
	if ParseSeverity(" high ") != SeverityHigh || SeverityCritical.Rank() <= SeverityHigh.Rank() || Severity("X").Known() {
		t.Error("严重性解析或排序错误")
	}
}
