package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"CVELens/internal/analytics"
	"CVELens/internal/table"
)

func newStatsCommand(a *app) *cobra.Command {
	var opts analytics.ReportOptions
	var seed uint64

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "输出评分分布、严重性、散点回归与描述词频",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			records, err := db.All(cmd.Context())
			if err != nil {
				return fmt.Errorf("读取CVE记录失败: %w", err)
			}
			if seed != 0 {
				opts.Rand = rand.New(rand.NewPCG(seed, seed))
			}
			report := analytics.BuildReport(records, opts)
			return a.formatter().PrintReport(report, a.options().OutputFile)
		},
	}
	cmd.Flags().Float64Var(&opts.BinStep, "step", analytics.DefaultBinStep, "直方图分箱步长")
	cmd.Flags().Float64Var(&opts.MaxScore, "max", analytics.DefaultMaxScore, "直方图最大评分")
	cmd.Flags().Float64Var(&opts.Jitter, "jitter", analytics.DefaultJitter, "散点抖动幅度")
	cmd.Flags().IntVar(&opts.TopWords, "top", analytics.DefaultTopWords, "输出的高频词数量")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "抖动随机种子，0表示每次不同")
	return cmd
}

func newTableCommand(a *app) *cobra.Command {
	var sortBy, dir string
	var limit, width int

	cmd := &cobra.Command{
		Use:   "table",
		Short: "列出CVE记录表格",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var state table.SortState
			if sortBy != "" {
				col, err := table.ParseColumn(sortBy)
				if err != nil {
					return err
				}
				d, err := table.ParseDirection(dir)
				if err != nil {
					return err
				}
				state = table.SortState{Column: col, Direction: d, Sorted: true}
			}

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			records, err := db.All(cmd.Context())
			if err != nil {
				return fmt.Errorf("读取CVE记录失败: %w", err)
			}
			sorted := table.Sort(records, state)
			total := len(sorted)
			if limit > 0 && limit < total {
				sorted = sorted[:limit]
			}
			return a.formatter().PrintRows(table.Rows(sorted, width), total, a.options().OutputFile)
		},
	}
	cmd.Flags().StringVarP(&sortBy, "sort", "s", "", "排序列 (id, published, last_modified, cvss_v3_score, cvss_v3_severity, cvss_v2_score, cvss_v2_severity ...)")
	cmd.Flags().StringVar(&dir, "dir", "asc", "排序方向 (asc, desc)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "最多显示的行数，0表示全部")
	cmd.Flags().IntVar(&width, "width", table.DefaultSummaryWidth, "描述摘要的显示宽度")
	return cmd
}

func newSearchCommand(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <关键词>",
		Short: "在描述与编号中搜索CVE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			records, err := db.Search(cmd.Context(), args[0], limit)
			if err != nil {
				return fmt.Errorf("搜索失败: %w", err)
			}
			return a.formatter().PrintRows(table.Rows(records, 0), len(records), a.options().OutputFile)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "最多返回的记录数")
	return cmd
}

func newShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <CVE编号>",
		Short: "显示单条CVE的完整描述与参考链接",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			record, err := db.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.formatter().PrintDetail(table.DetailOf(record), a.options().OutputFile)
		},
	}
}

func newHistoryCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "显示最近的数据更新记录",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			history, err := db.GetUpdateHistory(cmd.Context())
			if err != nil {
				return fmt.Errorf("读取更新历史失败: %w", err)
			}
			return a.formatter().PrintHistory(history, a.options().OutputFile)
		},
	}
}
