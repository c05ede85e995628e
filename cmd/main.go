package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"CVELens/internal/config"
	"CVELens/internal/cvedb"
	"CVELens/internal/utils"
	"CVELens/pkg/cli"
)

// Version 构建时通过 -ldflags 注入
var Version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := newRootCommand().ExecuteContext(ctx)
	handleError(err)
	if err != nil {
		os.Exit(1)
	}
}

// app 各子命令共享的状态
type app struct {
	parser *cli.Parser
	logger *utils.Logger
}

func (a *app) options() *config.Options {
	return a.parser.Options
}

func (a *app) openDB() (*cvedb.CVEDatabase, error) {
	db, err := cvedb.NewCVEDatabase(a.options().Database)
	if err != nil {
		return nil, fmt.Errorf("初始化CVE数据库失败: %w", err)
	}
	return db, nil
}

func (a *app) formatter() *cli.OutputFormatter {
	return cli.NewOutputFormatter(a.options().Format)
}

func newRootCommand() *cobra.Command {
	a := &app{
		parser: cli.NewParser(),
		logger: utils.NewLogger("main"),
	}

	cmd := &cobra.Command{
		Use:           "cvelens",
		Short:         "CVE数据采集与统计分析工具",
		Long:          "CVELens 从NVD获取CVE记录并存入本地SQLite，提供可排序的记录表格、记录详情以及评分分布、严重性、v3/v2散点回归与描述词频等统计。",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.parser.Parse(); err != nil {
				return err
			}
			if err := utils.SetLevel(a.options().LogLevel); err != nil {
				return err
			}
			if used := a.parser.ConfigFileUsed(); used != "" {
				a.logger.Debug("已加载配置文件 %s", used)
			}
			return nil
		},
	}
	a.parser.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newFetchCommand(a),
		newImportCommand(a),
		newStatsCommand(a),
		newTableCommand(a),
		newSearchCommand(a),
		newShowCommand(a),
		newServeCommand(a),
		newHistoryCommand(a),
		newPurgeCommand(a),
		newSeedCommand(a),
	)
	cmd.Example = `  # 获取最近7天发布的CVE
  cvelens fetch --days 7

  # 导入本地NVD 2.0数据源文件
  cvelens import nvdcve-2.0-2024.json.gz

  # 输出统计报表
  cvelens stats --format json

  # 按v3评分降序列出前20条
  cvelens table --sort cvss_v3_score --dir desc --limit 20

  # 启动JSON API
  cvelens serve --listen :8000`
	return cmd
}

func handleError(err error) {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}
	message := err.Error()
	switch {
	case errors.Is(err, context.Canceled):
		message = "操作已取消"
	case errors.Is(err, context.DeadlineExceeded):
		message = fmt.Sprintf("%s\n提示: 请检查到NVD的网络连接，或调大 nvd.timeout", err)
	case errors.Is(err, cvedb.ErrNotFound):
		message = fmt.Sprintf("%s\n提示: 先运行 fetch 或 import 获取数据", err)
	}
	fmt.Fprintf(os.Stderr, "错误: %s\n", message)
}
