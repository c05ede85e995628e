// Package config 定义CVELens各命令共享的运行时选项。
// 取值来源依次为命令行参数、CVELENS_前缀的环境变量与config.yaml，
// 由pkg/cli.Parser完成绑定后在此校验。
package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultNVDBaseURL   = "https://services.nvd.nist.gov/rest/json/cves/2.0"
	DefaultFeedsBaseURL = "https://nvd.nist.gov/feeds/json/cve/2.0/"
	// NVD单次请求的结果数上限
	MaxResultsPerPage = 2000
)

// NVDOptions NVD API客户端选项
type NVDOptions struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	ResultsPerPage int           `mapstructure:"results_per_page"`
	PageDelay      time.Duration `mapstructure:"page_delay"`
	Concurrency    int           `mapstructure:"concurrency"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// FeedOptions NVD JSON数据源文件选项
type FeedOptions struct {
	BaseURL string `mapstructure:"base_url"`
	Dir     string `mapstructure:"dir"`
}

// Options 全部运行时选项
type Options struct {
	Database   string      `mapstructure:"database"`
	Listen     string      `mapstructure:"listen"`
	LogLevel   string      `mapstructure:"log_level"`
	Format     string      `mapstructure:"format"`
	OutputFile string      `mapstructure:"output"`
	NVD        NVDOptions  `mapstructure:"nvd"`
	Feeds      FeedOptions `mapstructure:"feeds"`
}

// NewOptions 返回带默认值的选项
func NewOptions() *Options {
	return &Options{
		Database: "cves.db",
		Listen:   ":8000",
		LogLevel: "info",
		Format:   "text",
		NVD: NVDOptions{
			BaseURL:        DefaultNVDBaseURL,
			ResultsPerPage: MaxResultsPerPage,
			PageDelay:      6 * time.Second,
			Concurrency:    1,
			Timeout:        60 * time.Second,
		},
		Feeds: FeedOptions{
			BaseURL: DefaultFeedsBaseURL,
			Dir:     "feeds",
		},
	}
}

var formats = []string{"text", "json", "csv", "yaml"}

// Validate 规范化并检查选项
func (o *Options) Validate() error {
	o.Format = strings.ToLower(strings.TrimSpace(o.Format))
	if o.Format == "" {
		o.Format = "text"
	}
	valid := false
	for _, f := range formats {
		if o.Format == f {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("不支持的输出格式 %q (可选 %s)", o.Format, strings.Join(formats, ", "))
	}
	if strings.TrimSpace(o.Database) == "" {
		return fmt.Errorf("数据库路径不能为空")
	}
	if o.NVD.ResultsPerPage <= 0 || o.NVD.ResultsPerPage > MaxResultsPerPage {
		return fmt.Errorf("nvd.results_per_page 必须在 1-%d 之间, 实际为 %d", MaxResultsPerPage, o.NVD.ResultsPerPage)
	}
	if o.NVD.Concurrency < 1 {
		return fmt.Errorf("nvd.concurrency 必须大于0")
	}
	if o.NVD.PageDelay < 0 {
		return fmt.Errorf("nvd.page_delay 不能为负数")
	}
	if o.NVD.Timeout <= 0 {
		o.NVD.Timeout = 60 * time.Second
	}
	if o.NVD.BaseURL == "" {
		o.NVD.BaseURL = DefaultNVDBaseURL
	}
	if o.Feeds.BaseURL == "" {
		o.Feeds.BaseURL = DefaultFeedsBaseURL
	}
	return nil
}
