package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"CVELens/internal/cvedb"
	"CVELens/internal/feed"
	"CVELens/internal/model"
	"CVELens/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	var fetchDays int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动JSON API服务",
		Long:  "把数据库中的记录载入内存，提供记录表格、详情与统计接口；POST /api/fetch 在后台获取新数据。",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts := a.options()

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			records, err := db.All(ctx)
			if err != nil {
				return fmt.Errorf("读取CVE记录失败: %w", err)
			}
			f := feed.New()
			f.Append(records)
			a.logger.Info("已载入 %d 个CVE记录", f.Len())

			client := cvedb.NewCVEAPIClient(opts.NVD)
			fetch := func(ctx context.Context, days int) (int, error) {
				end := time.Now().UTC()
				before := f.Len()
				count, err := client.FetchRange(ctx, end.AddDate(0, 0, -days), end,
					cvedb.SaveHandler(db, func(batch []model.Record) {
						f.Append(batch)
					}))
				if count > 0 {
					if rerr := db.RecordUpdate(ctx, "nvd-api", count); rerr != nil {
						a.logger.Warn("%v", rerr)
					}
				}
				return f.Len() - before, err
			}

			srv := server.New(f, db, fetch)
			if fetchDays > 0 {
				if err := srv.StartFetch(ctx, fetchDays); err != nil {
					a.logger.Error("启动时获取CVE失败: %v", err)
				}
			}
			err = srv.Run(ctx, opts.Listen)
			srv.Wait()
			return err
		},
	}
	cmd.Flags().String("listen", "", "监听地址 (默认 :8000)")
	cmd.Flags().IntVar(&fetchDays, "fetch-days", 0, "启动时在后台获取最近N天的CVE")
	a.parser.BindFlag("listen", cmd.Flags().Lookup("listen"))
	return cmd
}
