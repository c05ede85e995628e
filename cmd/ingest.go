package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"CVELens/internal/cvedb"
	"CVELens/internal/table"
)

func newFetchCommand(a *app) *cobra.Command {
	var days int
	var startDate, endDate, id string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "从NVD API 2.0获取CVE并保存",
		Long:  "按发布日期区间从NVD获取CVE。区间超过120天时自动切分，每页结果立即写入数据库。",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts := a.options()

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			client := cvedb.NewCVEAPIClient(opts.NVD)

			if id != "" {
				record, err := client.FetchByID(ctx, id)
				if err != nil {
					return err
				}
				if err := db.InsertCVE(ctx, record); err != nil {
					return fmt.Errorf("保存 %s 失败: %w", record.ID, err)
				}
				if err := db.RecordUpdate(ctx, "nvd-api:"+record.ID, 1); err != nil {
					a.logger.Warn("%v", err)
				}
				return a.formatter().PrintDetail(table.DetailOf(record), opts.OutputFile)
			}

			start, end, err := fetchRange(days, startDate, endDate, time.Now())
			if err != nil {
				return err
			}

			a.logger.Info("获取 %s 至 %s 发布的CVE...", start.Format(time.DateOnly), end.Format(time.DateOnly))
			count, err := client.FetchRange(ctx, start, end, cvedb.SaveHandler(db, nil))
			if count > 0 {
				if rerr := db.RecordUpdate(ctx, "nvd-api", count); rerr != nil {
					a.logger.Warn("%v", rerr)
				}
			}
			if err != nil {
				return fmt.Errorf("获取CVE失败 (已保存 %d 条): %w", count, err)
			}
			a.logger.Info("获取完成，共保存 %d 个CVE", count)
			return nil
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 7, "获取最近N天发布的CVE")
	cmd.Flags().StringVar(&startDate, "start", "", "起始发布日期 (YYYY-MM-DD)，优先于 --days")
	cmd.Flags().StringVar(&endDate, "end", "", "结束发布日期 (YYYY-MM-DD)，默认今天")
	cmd.Flags().StringVar(&id, "id", "", "只获取指定编号的CVE")
	return cmd
}

// fetchRange 计算获取区间；给出--start时忽略--days
func fetchRange(days int, startDate, endDate string, now time.Time) (time.Time, time.Time, error) {
	end := now.UTC()
	if endDate != "" {
		t, err := time.Parse(time.DateOnly, endDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--end 日期格式错误: %w", err)
		}
		// 包含结束日当天
		end = t.Add(24*time.Hour - time.Millisecond)
	}

	if startDate != "" {
		start, err := time.Parse(time.DateOnly, startDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--start 日期格式错误: %w", err)
		}
		if !start.Before(end) {
			return time.Time{}, time.Time{}, fmt.Errorf("--start 必须早于 --end")
		}
		return start, end, nil
	}

	if days < 1 {
		return time.Time{}, time.Time{}, fmt.Errorf("--days 必须大于0")
	}
	return end.AddDate(0, 0, -days), end, nil
}

func newImportCommand(a *app) *cobra.Command {
	var feeds []string
	var since int

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "导入NVD 2.0 JSON数据源",
		Long: `导入本地的 .json、.json.gz 或 .json.zip 数据源文件，
或用 --feed 从NVD下载指定数据源 (年份、modified、recent)，
或用 --since 导入从某年到当前的全部数据源。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts := a.options()
			if len(args) == 0 && len(feeds) == 0 && since == 0 {
				return fmt.Errorf("需要指定文件、--feed 或 --since")
			}

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			importer := cvedb.NewFeedImporter(opts.Feeds)
			save := cvedb.SaveHandler(db, nil)
			record := func(source string, count int) {
				if count == 0 {
					return
				}
				if err := db.RecordUpdate(ctx, source, count); err != nil {
					a.logger.Warn("%v", err)
				}
			}

			for _, path := range args {
				count, err := importer.ImportFile(ctx, path, save)
				record("file:"+path, count)
				if err != nil {
					return fmt.Errorf("导入 %s 失败: %w", path, err)
				}
			}

			for _, name := range feeds {
				name = strings.TrimSpace(name)
				count, err := importer.Import(ctx, name, save)
				record("feed:"+name, count)
				if err != nil {
					return fmt.Errorf("导入数据源 %s 失败: %w", name, err)
				}
			}

			if since != 0 {
				results, err := cvedb.NewBulkUpdater(importer).UpdateFrom(ctx, since, save)
				for _, r := range results {
					record("feed:"+r.Feed, r.Count)
				}
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&feeds, "feed", nil, "从NVD下载并导入的数据源，如 2024,modified,recent")
	cmd.Flags().IntVar(&since, "since", 0, "导入从该年份到当前年份的全部数据源")
	cmd.Flags().String("feeds-dir", "", "数据源下载目录")
	a.parser.BindFlag("feeds.dir", cmd.Flags().Lookup("feeds-dir"))
	return cmd
}

func newSeedCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "写入演示用CVE数据",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			saved, err := db.InitTestData(cmd.Context())
			if err != nil {
				return err
			}
			return db.RecordUpdate(cmd.Context(), "sample", saved)
		},
	}
}

func newPurgeCommand(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "清空本地CVE数据",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("此操作会删除 %s 中的全部CVE记录，请加 --yes 确认", a.options().Database)
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			deleted, err := db.DeleteAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("清空数据失败: %w", err)
			}
			a.logger.Info("已删除 %d 个CVE记录", deleted)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "确认删除")
	return cmd
}
