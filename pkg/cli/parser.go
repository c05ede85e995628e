package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"CVELens/internal/config"
)

// EnvPrefix 环境变量前缀，如 CVELENS_NVD_API_KEY
const EnvPrefix = "CVELENS"

// Parser 把命令行参数、环境变量与配置文件合并为config.Options。
// 优先级: 显式参数 > 环境变量 > 配置文件 > 默认值。
type Parser struct {
	Options *config.Options

	v          *viper.Viper
	configFile string
}

func NewParser() *Parser {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	defaults := config.NewOptions()
	v.SetDefault("database", defaults.Database)
	v.SetDefault("listen", defaults.Listen)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("format", defaults.Format)
	v.SetDefault("output", defaults.OutputFile)
	v.SetDefault("nvd.base_url", defaults.NVD.BaseURL)
	v.SetDefault("nvd.api_key", defaults.NVD.APIKey)
	v.SetDefault("nvd.results_per_page", defaults.NVD.ResultsPerPage)
	v.SetDefault("nvd.page_delay", defaults.NVD.PageDelay)
	v.SetDefault("nvd.concurrency", defaults.NVD.Concurrency)
	v.SetDefault("nvd.timeout", defaults.NVD.Timeout)
	v.SetDefault("feeds.base_url", defaults.Feeds.BaseURL)
	v.SetDefault("feeds.dir", defaults.Feeds.Dir)

	return &Parser{Options: defaults, v: v}
}

// BindFlags 注册所有命令共享的全局参数
func (p *Parser) BindFlags(fs *pflag.FlagSet) {
	defaults := config.NewOptions()
	fs.StringVar(&p.configFile, "config", "", "配置文件路径 (默认搜索 ./config.yaml 与 $XDG_CONFIG_HOME/cvelens)")
	fs.String("database", defaults.Database, "SQLite数据库文件")
	fs.String("log-level", defaults.LogLevel, "日志级别 (debug, info, warn, error)")
	fs.StringP("format", "f", defaults.Format, "输出格式 (text, json, csv, yaml)")
	fs.StringP("output", "o", "", "输出文件，默认写到标准输出")
	fs.String("nvd-api-key", "", "NVD API密钥，可提高请求频率上限")
	fs.Duration("nvd-page-delay", defaults.NVD.PageDelay, "两次NVD请求之间的最小间隔")
	fs.Int("nvd-concurrency", defaults.NVD.Concurrency, "并发获取的NVD分页数")

	p.mustBind("database", fs.Lookup("database"))
	p.mustBind("log_level", fs.Lookup("log-level"))
	p.mustBind("format", fs.Lookup("format"))
	p.mustBind("output", fs.Lookup("output"))
	p.mustBind("nvd.api_key", fs.Lookup("nvd-api-key"))
	p.mustBind("nvd.page_delay", fs.Lookup("nvd-page-delay"))
	p.mustBind("nvd.concurrency", fs.Lookup("nvd-concurrency"))
}

// BindFlag 绑定单个子命令参数到配置键
func (p *Parser) BindFlag(key string, flag *pflag.Flag) {
	p.mustBind(key, flag)
}

func (p *Parser) mustBind(key string, flag *pflag.Flag) {
	if flag == nil {
		panic(fmt.Sprintf("参数 %s 未注册", key))
	}
	if err := p.v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// Parse 读取配置文件并解析出最终选项
func (p *Parser) Parse() error {
	explicit := p.configFile
	if explicit == "" {
		explicit = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if explicit != "" {
		p.v.SetConfigFile(explicit)
	} else {
		p.v.SetConfigName("config")
		for _, dir := range configSearchDirs() {
			p.v.AddConfigPath(dir)
		}
	}

	if err := p.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || explicit != "" {
			return fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	opts := config.NewOptions()
	if err := p.v.Unmarshal(opts); err != nil {
		return fmt.Errorf("解析配置失败: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	p.Options = opts
	return nil
}

// ConfigFileUsed 实际加载的配置文件，未加载时为空
func (p *Parser) ConfigFileUsed() string {
	return p.v.ConfigFileUsed()
}

func configSearchDirs() []string {
	dirs := []string{"."}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "cvelens"))
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		dirs = append(dirs, filepath.Join(home, ".config", "cvelens"))
	}
	return dirs
}
