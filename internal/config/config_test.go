package config

import (
	"testing"
	"time"
)

func TestNewOptionsValidate(t *testing.T) {
	opts := NewOptions()
	if err := opts.Validate(); err != nil {
		t.Fatalf("默认选项应通过校验: %v", err)
	}
	if opts.NVD.PageDelay != 6*time.Second || opts.NVD.ResultsPerPage != 2000 {
		t.Errorf("NVD默认值错误: %+v", opts.NVD)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"format", func(o *Options) { o.Format = "xml" }},
		{"database", func(o *Options) { o.Database = " " }},
		{"page size", func(o *Options) { o.NVD.ResultsPerPage = 5000 }},
		{"concurrency", func(o *Options) { o.NVD.Concurrency = 0 }},
		{"delay", func(o *Options) { o.NVD.PageDelay = -time.Second }},
	}
	for _, tt := range tests {
		opts := NewOptions()
		tt.mutate(opts)
		if err := opts.Validate(); err == nil {
			t.Errorf("%s: 期望校验失败", tt.name)
		}
	}
}

func TestValidateNormalizesFormat(t *testing.T) {
	opts := NewOptions()
	opts.Format = " YAML "
	if err := opts.Validate(); err != nil {
		t.Fatal(err)
	}
	if opts.Format != "yaml" {
		t.Errorf("期望 yaml, 实际得到 %q", opts.Format)
	}
}
