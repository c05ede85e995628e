package cvedb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"CVELens/internal/model"
)

func openTestDB(t *testing.T) *CVEDatabase {
	t.Helper()
	db, err := NewCVEDatabase(filepath.Join(t.TempDir(), "data", "cves.db"))
	if err != nil {
		t.Fatalf("NewCVEDatabase() 返回错误: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveBatchRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	saved, err := db.SaveBatch(ctx, SampleRecords())
	if err != nil {
		t.Fatalf("SaveBatch() 返回错误: %v", err)
	}
	if saved != len(SampleRecords()) {
		t.Errorf("期望保存 %d 条, 实际得到 %d", len(SampleRecords()), saved)
	}

	all, err := db.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != saved {
		t.Fatalf("期望读出 %d 条, 实际得到 %d", saved, len(all))
	}

	got, err := db.Get(ctx, "cve-2022-3602")
	if err != nil {
		t.Fatalf("Get() 返回错误: %v", err)
	}
	if got.CVSSV2Score.Valid {
		t.Errorf("缺失的v2评分应读回为无效, 实际得到 %+v", got.CVSSV2Score)
	}
	if got.CVSSV2Severity != "" {
		t.Errorf("缺失的v2严重性应为空, 实际得到 %q", got.CVSSV2Severity)
	}
	if !got.CVSSV3Score.Valid || got.CVSSV3Score.Float64 != 7.5 || got.CVSSV3Severity != model.SeverityHigh {
		t.Errorf("v3字段读回错误: %+v %s", got.CVSSV3Score, got.CVSSV3Severity)
	}

	noDesc, err := db.Get(ctx, "CVE-2019-0001")
	if err != nil {
		t.Fatal(err)
	}
	if noDesc.CVSSV3Score.Valid || noDesc.ReferenceURLs != "" {
		t.Errorf("缺失字段读回错误: %+v", noDesc)
	}
}

func TestSaveBatchReplacesExisting(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	r := model.Record{ID: "CVE-2024-0001", CVSSV3Score: model.NewScore(5.0)}
	if _, err := db.SaveBatch(ctx, []model.Record{r}); err != nil {
		t.Fatal(err)
	}
	r.CVSSV3Score = model.NewScore(9.1)
	if err := db.InsertCVE(ctx, r); err != nil {
		t.Fatal(err)
	}

	count, _ := db.Count(ctx)
	if count != 1 {
		t.Errorf("同一编号应被替换, 实际有 %d 条", count)
	}
	got, _ := db.Get(ctx, r.ID)
	if got.CVSSV3Score.Float64 != 9.1 {
		t.Errorf("期望9.1, 实际得到 %+v", got.CVSSV3Score)
	}

	if err := db.InsertCVE(ctx, model.Record{}); err == nil {
		t.Error("空编号应返回错误")
	}
	if saved, _ := db.SaveBatch(ctx, []model.Record{{}}); saved != 0 {
		t.Errorf("空编号的记录应被跳过, 实际保存 %d", saved)
	}
}

func TestGetNotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Get(context.Background(), "CVE-0000-0000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("期望 ErrNotFound, 实际得到 %v", err)
	}
}

func TestSearch(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if _, err := db.InitTestData(ctx); err != nil {
		t.Fatal(err)
	}

	results, err := db.Search(ctx, "OpenSSL", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "CVE-2014-0160" {
		t.Errorf("搜索OpenSSL结果错误: %+v", results)
	}

	packets, _ := db.Search(ctx, "packet", 10)
	if len(packets) != 3 {
		t.Fatalf("期望3条含packet的记录, 实际得到 %d", len(packets))
	}
	if packets[len(packets)-1].ID != "CVE-2019-0001" {
		t.Errorf("无v3评分的记录应排在最后: %s", packets[len(packets)-1].ID)
	}
}

func TestDeleteAllAndHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	saved, _ := db.InitTestData(ctx)

	if err := db.RecordUpdate(ctx, "sample", saved); err != nil {
		t.Fatal(err)
	}
	history, err := db.GetUpdateHistory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Source != "sample" || history[0].RecordsAdded != saved {
		t.Errorf("更新历史错误: %+v", history)
	}

	deleted, err := db.DeleteAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if int(deleted) != saved {
		t.Errorf("期望删除 %d 条, 实际 %d", saved, deleted)
	}
	if has, _ := db.HasData(ctx); has {
		t.Error("清空后不应有数据")
	}
}
