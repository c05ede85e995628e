package cvedb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"CVELens/internal/config"
	"CVELens/internal/model"
	"CVELens/internal/utils"
)

const (
	// NVD对发布日期区间的上限
	maxWindow  = 120 * 24 * time.Hour
	dateLayout = "2006-01-02T15:04:05.000"
	userAgent  = "CVELens/1.0"
)

// BatchHandler 处理一页转换后的记录；同一客户端内的调用是串行的
type BatchHandler func(ctx context.Context, records []model.Record) error

// CVEAPIClient 用于从NVD API获取CVE数据的客户端
type CVEAPIClient struct {
	baseURL        string
	apiKey         string
	resultsPerPage int
	concurrency    int
	throttle       *throttle
	logger         *utils.Logger
	httpClient     *http.Client

	handleMu sync.Mutex
}

// NewCVEAPIClient 创建新的CVE API客户端
func NewCVEAPIClient(opts config.NVDOptions) *CVEAPIClient {
	if opts.BaseURL == "" {
		opts.BaseURL = config.DefaultNVDBaseURL
	}
	if opts.ResultsPerPage <= 0 || opts.ResultsPerPage > config.MaxResultsPerPage {
		opts.ResultsPerPage = config.MaxResultsPerPage
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &CVEAPIClient{
		baseURL:        opts.BaseURL,
		apiKey:         opts.APIKey,
		resultsPerPage: opts.ResultsPerPage,
		concurrency:    opts.Concurrency,
		throttle:       &throttle{delay: opts.PageDelay},
		logger:         utils.NewLogger("cve-api-client"),
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
}

// FetchRange 获取发布日期在[start, end]内的CVE。
// 区间按NVD限制切分为不超过120天的窗口，每页转换后交给handle。
func (client *CVEAPIClient) FetchRange(ctx context.Context, start, end time.Time, handle BatchHandler) (int, error) {
	if !start.Before(end) {
		return 0, fmt.Errorf("起始时间 %s 必须早于结束时间 %s", start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	total := 0
	for ws := start; ws.Before(end); {
		we := ws.Add(maxWindow)
		if we.After(end) {
			we = end
		}

		client.logger.Info("获取 %s 至 %s 发布的CVE...", ws.Format(time.DateOnly), we.Format(time.DateOnly))
		params := url.Values{}
		params.Set("pubStartDate", ws.UTC().Format(dateLayout))
		params.Set("pubEndDate", we.UTC().Format(dateLayout))

		count, err := client.fetchAll(ctx, params, handle)
		total += count
		if err != nil {
			return total, err
		}
		client.logger.Info("窗口完成: %d 个CVE，累计 %d 个", count, total)
		ws = we
	}

	return total, nil
}

// FetchByID 按编号获取单个CVE
func (client *CVEAPIClient) FetchByID(ctx context.Context, id string) (model.Record, error) {
	params := url.Values{}
	params.Set("cveId", id)
	resp, err := client.fetchPage(ctx, params, 0)
	if err != nil {
		return model.Record{}, err
	}
	if len(resp.Vulnerabilities) == 0 {
		return model.Record{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return ConvertVulnerability(resp.Vulnerabilities[0]), nil
}

// fetchAll 先取第一页得到总数，再并发获取剩余页
func (client *CVEAPIClient) fetchAll(ctx context.Context, params url.Values, handle BatchHandler) (int, error) {
	first, err := client.fetchPage(ctx, params, 0)
	if err != nil {
		return 0, err
	}
	count, err := client.deliver(ctx, first, handle)
	if err != nil || len(first.Vulnerabilities) == 0 {
		return count, err
	}

	pageSize := first.ResultsPerPage
	if pageSize <= 0 {
		pageSize = len(first.Vulnerabilities)
	}
	client.logger.Debug("总结果数: %d, 每页 %d", first.TotalResults, pageSize)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(client.concurrency)
	for startIndex := pageSize; startIndex < first.TotalResults; startIndex += pageSize {
		g.Go(func() error {
			page, err := client.fetchPage(gctx, params, startIndex)
			if err != nil {
				return err
			}
			n, err := client.deliver(gctx, page, handle)
			mu.Lock()
			count += n
			mu.Unlock()
			return err
		})
	}
	err = g.Wait()
	return count, err
}

func (client *CVEAPIClient) deliver(ctx context.Context, resp *NVDResponse, handle BatchHandler) (int, error) {
	records := make([]model.Record, 0, len(resp.Vulnerabilities))
	for _, vuln := range resp.Vulnerabilities {
		record := ConvertVulnerability(vuln)
		if record.ID == "" {
			continue
		}
		records = append(records, record)
	}
	if len(records) == 0 || handle == nil {
		return len(records), nil
	}

	client.handleMu.Lock()
	defer client.handleMu.Unlock()
	if err := handle(ctx, records); err != nil {
		return 0, fmt.Errorf("处理第 %d 条起的结果失败: %w", resp.StartIndex, err)
	}
	return len(records), nil
}

func (client *CVEAPIClient) fetchPage(ctx context.Context, params url.Values, startIndex int) (*NVDResponse, error) {
	if err := client.throttle.wait(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	if query.Get("cveId") == "" {
		query.Set("startIndex", strconv.Itoa(startIndex))
		query.Set("resultsPerPage", strconv.Itoa(client.resultsPerPage))
	}
	reqURL := client.baseURL + "?" + query.Encode()
	client.logger.Debug("请求URL: %s", reqURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	// 设置请求头
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if client.apiKey != "" {
		req.Header.Set("apiKey", client.apiKey)
	}

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	// 检查响应状态
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API返回错误: %s, 响应: %s", resp.Status, excerpt(body))
	}

	var nvdResponse NVDResponse
	if err := json.Unmarshal(body, &nvdResponse); err != nil {
		client.logger.Error("解析JSON失败: %v, 响应: %s", err, excerpt(body))
		return nil, fmt.Errorf("解析JSON失败: %w", err)
	}

	client.logger.Debug("startIndex=%d 获取到 %d 个CVE，总结果数: %d",
		startIndex, len(nvdResponse.Vulnerabilities), nvdResponse.TotalResults)
	return &nvdResponse, nil
}

func excerpt(body []byte) string {
	if len(body) > 500 {
		return string(body[:500])
	}
	return string(body)
}

// SaveHandler 将每批记录写入数据库，随后调用then（可为nil）
func SaveHandler(db *CVEDatabase, then func([]model.Record)) BatchHandler {
	return func(ctx context.Context, records []model.Record) error {
		saved, err := db.SaveBatch(ctx, records)
		if err != nil {
			return err
		}
		db.logger.Debug("已保存 %d 个CVE", saved)
		if then != nil {
			then(records)
		}
		return nil
	}
}

// throttle 保证相邻请求之间至少间隔delay，多个并发请求共享
type throttle struct {
	mu    sync.Mutex
	next  time.Time
	delay time.Duration
}

func (t *throttle) wait(ctx context.Context) error {
	if t == nil || t.delay <= 0 {
		return ctx.Err()
	}
	t.mu.Lock()
	now := time.Now()
	at := t.next
	if at.Before(now) {
		at = now
	}
	t.next = at.Add(t.delay)
	t.mu.Unlock()

	wait := time.Until(at)
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
