package cvedb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// NVD 2.0数据源最早的年份
const FirstFeedYear = 2002

// BulkUpdater 按年份批量导入NVD数据源，最后补上modified与recent
type BulkUpdater struct {
	importer *FeedImporter
	now      func() time.Time
}

func NewBulkUpdater(importer *FeedImporter) *BulkUpdater {
	return &BulkUpdater{importer: importer, now: time.Now}
}

// BulkResult 单个数据源的导入结果
type BulkResult struct {
	Feed  string `json:"feed" yaml:"feed"`
	Count int    `json:"count" yaml:"count"`
	Err   error  `json:"-" yaml:"-"`
}

// Years 返回[from, 当前年份]的年份列表，from早于FirstFeedYear时从FirstFeedYear开始
func (bu *BulkUpdater) Years(from int) []int {
	if from < FirstFeedYear {
		from = FirstFeedYear
	}
	var years []int
	for year := from; year <= bu.now().Year(); year++ {
		years = append(years, year)
	}
	return years
}

// UpdateFrom 导入从from年到当前年份的数据源以及modified、recent。
// 单个数据源失败只记录警告并继续，全部失败时返回错误。
func (bu *BulkUpdater) UpdateFrom(ctx context.Context, from int, handle BatchHandler) ([]BulkResult, error) {
	logger := bu.importer.logger
	logger.Info("开始批量更新CVE数据（从%d年到当前）...", max(from, FirstFeedYear))

	var names []string
	for _, year := range bu.Years(from) {
		names = append(names, strconv.Itoa(year))
	}
	names = append(names, "modified", "recent")

	results := make([]BulkResult, 0, len(names))
	total, failed := 0, 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		count, err := bu.importer.Import(ctx, name, handle)
		results = append(results, BulkResult{Feed: name, Count: count, Err: err})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return results, err
			}
			failed++
			logger.Warn("导入 %s 数据失败: %v", name, err)
			continue
		}
		total += count
	}

	if failed == len(names) {
		return results, fmt.Errorf("全部 %d 个数据源导入失败", failed)
	}
	logger.Info("批量更新完成: 共导入 %d 个CVE, %d 个数据源失败", total, failed)
	return results, nil
}
