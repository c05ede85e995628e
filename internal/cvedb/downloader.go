package cvedb

import (
	"archive/zip"
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"CVELens/internal/config"
	"CVELens/internal/model"
	"CVELens/internal/utils"
)

// 每批交给处理函数的记录数
const importBatchSize = 500

// FeedImporter 下载并导入NVD 2.0 JSON数据源文件
type FeedImporter struct {
	baseURL    string
	localDir   string
	batchSize  int
	logger     *utils.Logger
	httpClient *http.Client
}

func NewFeedImporter(opts config.FeedOptions) *FeedImporter {
	if opts.BaseURL == "" {
		opts.BaseURL = config.DefaultFeedsBaseURL
	}
	if !strings.HasSuffix(opts.BaseURL, "/") {
		opts.BaseURL += "/"
	}
	if opts.Dir == "" {
		opts.Dir = "feeds"
	}
	return &FeedImporter{
		baseURL:   opts.BaseURL,
		localDir:  opts.Dir,
		batchSize: importBatchSize,
		logger:    utils.NewLogger("feed-importer"),
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

// FeedName 数据源文件名，name为年份或modified/recent
func FeedName(name string) string {
	return fmt.Sprintf("nvdcve-2.0-%s.json.gz", name)
}

// Download 下载数据源文件到本地目录，返回本地路径
func (fi *FeedImporter) Download(ctx context.Context, name string) (string, error) {
	// 创建目录
	if err := os.MkdirAll(fi.localDir, 0755); err != nil {
		return "", fmt.Errorf("创建目录失败: %w", err)
	}

	feed := FeedName(name)
	localPath := filepath.Join(fi.localDir, feed)
	fi.logger.Info("下载CVE数据: %s", feed)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fi.baseURL+feed, nil)
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := fi.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP错误: %s", resp.Status)
	}

	// 先写临时文件，完成后再改名，避免留下半个文件
	tmp := localPath + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("创建文件失败: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("写入文件失败: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("写入文件失败: %w", err)
	}
	if err := os.Rename(tmp, localPath); err != nil {
		return "", fmt.Errorf("保存文件失败: %w", err)
	}

	fi.logger.Info("下载完成: %s", feed)
	return localPath, nil
}

// Import 下载并导入指定数据源
func (fi *FeedImporter) Import(ctx context.Context, name string, handle BatchHandler) (int, error) {
	path, err := fi.Download(ctx, name)
	if err != nil {
		return 0, err
	}
	return fi.ImportFile(ctx, path, handle)
}

// ImportFile 导入本地.json、.json.gz或.json.zip文件
func (fi *FeedImporter) ImportFile(ctx context.Context, path string, handle BatchHandler) (int, error) {
	rc, err := openFeed(path)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	count, err := fi.decode(ctx, rc, handle)
	if err != nil {
		return count, fmt.Errorf("解析 %s 失败: %w", filepath.Base(path), err)
	}
	fi.logger.Info("从 %s 导入 %d 个CVE记录", filepath.Base(path), count)
	return count, nil
}

// decode 逐条解析vulnerabilities数组，不把整个文件读入内存
func (fi *FeedImporter) decode(ctx context.Context, r io.Reader, handle BatchHandler) (int, error) {
	dec := json.NewDecoder(bufio.NewReader(r))
	if err := expectDelim(dec, '{'); err != nil {
		return 0, err
	}

	count := 0
	batch := make([]model.Record, 0, fi.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if handle != nil {
			if err := handle(ctx, batch); err != nil {
				return err
			}
		}
		count += len(batch)
		batch = make([]model.Record, 0, fi.batchSize)
		return nil
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return count, err
		}
		if key, _ := tok.(string); key != "vulnerabilities" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return count, err
			}
			continue
		}

		if err := expectDelim(dec, '['); err != nil {
			return count, err
		}
		for dec.More() {
			if err := ctx.Err(); err != nil {
				return count, err
			}
			var vuln NVDVulnerability
			if err := dec.Decode(&vuln); err != nil {
				return count, err
			}
			record := ConvertVulnerability(vuln)
			if record.ID == "" {
				continue
			}
			batch = append(batch, record)
			if len(batch) >= fi.batchSize {
				if err := flush(); err != nil {
					return count, err
				}
			}
		}
		if err := expectDelim(dec, ']'); err != nil {
			return count, err
		}
	}

	return count, flush()
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("期望 %q, 实际得到 %v", want, tok)
	}
	return nil
}

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var first error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func openFeed(path string) (io.ReadCloser, error) {
	switch {
	case strings.HasSuffix(path, ".zip"):
		zr, err := zip.OpenReader(path)
		if err != nil {
			return nil, fmt.Errorf("打开ZIP失败: %w", err)
		}
		for _, f := range zr.File {
			if strings.HasSuffix(f.Name, ".json") {
				rc, err := f.Open()
				if err != nil {
					zr.Close()
					return nil, err
				}
				return &multiCloser{Reader: rc, closers: []io.Closer{zr, rc}}, nil
			}
		}
		zr.Close()
		return nil, fmt.Errorf("未找到JSON文件")

	case strings.HasSuffix(path, ".gz"):
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("打开gzip失败: %w", err)
		}
		return &multiCloser{Reader: gz, closers: []io.Closer{f, gz}}, nil

	default:
		return os.Open(path)
	}
}
