package cvedb

import (
	"archive/zip"
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"CVELens/internal/config"
	"CVELens/internal/model"
)

func feedJSON(t *testing.T, n int) []byte {
	t.Helper()
	resp := NVDResponse{Format: "NVD_CVE", Version: "2.0", TotalResults: n}
	for i := 0; i < n; i++ {
		resp.Vulnerabilities = append(resp.Vulnerabilities, mockVulnerability("CVE-2024-"+string(rune('A'+i)), 6.5, "MEDIUM"))
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func collect(records *[]model.Record) BatchHandler {
	return func(ctx context.Context, batch []model.Record) error {
		*records = append(*records, batch...)
		return nil
	}
}

func TestImportFileFormats(t *testing.T) {
	dir := t.TempDir()
	data := feedJSON(t, 3)

	plain := filepath.Join(dir, "feed.json")
	if err := os.WriteFile(plain, data, 0644); err != nil {
		t.Fatal(err)
	}

	gzPath := filepath.Join(dir, "feed.json.gz")
	gzFile, _ := os.Create(gzPath)
	gz := gzip.NewWriter(gzFile)
	gz.Write(data)
	gz.Close()
	gzFile.Close()

	zipPath := filepath.Join(dir, "feed.json.zip")
	zipFile, _ := os.Create(zipPath)
	zw := zip.NewWriter(zipFile)
	w, _ := zw.Create("nvdcve-2.0-2024.json")
	w.Write(data)
	zw.Close()
	zipFile.Close()

	importer := NewFeedImporter(config.FeedOptions{Dir: dir})
	for _, path := range []string{plain, gzPath, zipPath} {
		var records []model.Record
		count, err := importer.ImportFile(context.Background(), path, collect(&records))
		if err != nil {
			t.Fatalf("%s: ImportFile() 返回错误: %v", filepath.Base(path), err)
		}
		if count != 3 || len(records) != 3 {
			t.Errorf("%s: 期望导入3条, 实际 %d/%d", filepath.Base(path), count, len(records))
		}
		if records[0].CVSSV3Severity != model.SeverityMedium {
			t.Errorf("%s: 转换错误 %+v", filepath.Base(path), records[0])
		}
	}
}

func TestImportFileBatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.json")
	os.WriteFile(path, feedJSON(t, 5), 0644)

	importer := NewFeedImporter(config.FeedOptions{})
	importer.batchSize = 2
	var sizes []int
	count, err := importer.ImportFile(context.Background(), path, func(ctx context.Context, batch []model.Record) error {
		sizes = append(sizes, len(batch))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if count != 5 || len(sizes) != 3 || sizes[2] != 1 {
		t.Errorf("分批错误: count=%d sizes=%v", count, sizes)
	}
}

func TestImportFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.json")
	os.WriteFile(path, []byte(`["not", "a", "feed"]`), 0644)
	if _, err := NewFeedImporter(config.FeedOptions{}).ImportFile(context.Background(), path, nil); err == nil {
		t.Error("非对象JSON应返回错误")
	}
}

func TestImportDownloadsFeed(t *testing.T) {
	data := feedJSON(t, 2)
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/nvdcve-2.0-recent.json.gz" {
			http.NotFound(w, r)
			return
		}
		gz := gzip.NewWriter(w)
		gz.Write(data)
		gz.Close()
	}))
	defer testServer.Close()

	dir := t.TempDir()
	importer := NewFeedImporter(config.FeedOptions{BaseURL: testServer.URL, Dir: dir})

	var records []model.Record
	count, err := importer.Import(context.Background(), "recent", collect(&records))
	if err != nil {
		t.Fatalf("Import() 返回错误: %v", err)
	}
	if count != 2 {
		t.Errorf("期望导入2条, 实际得到 %d", count)
	}
	if _, err := os.Stat(filepath.Join(dir, "nvdcve-2.0-recent.json.gz")); err != nil {
		t.Errorf("数据源文件应保存在本地: %v", err)
	}

	if _, err := importer.Import(context.Background(), "1999", nil); err == nil {
		t.Error("404时应返回错误")
	}
}
