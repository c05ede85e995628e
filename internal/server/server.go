// Package server 以JSON形式提供记录表格、记录详情与图表聚合。
// 所有读取接口都基于feed.Feed的快照计算，每次请求重新计算。
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"CVELens/internal/analytics"
	"CVELens/internal/cvedb"
	"CVELens/internal/feed"
	"CVELens/internal/model"
	"CVELens/internal/table"
	"CVELens/internal/utils"
)

const (
	maxFetchDays   = 365
	minBinStep     = 0.01
	requestTimeout = 30 * time.Second
)

// RecordStore 快照中找不到记录时的后备查询
type RecordStore interface {
	Get(ctx context.Context, id string) (model.Record, error)
}

// FetchFunc 获取最近days天发布的CVE，返回新增记录数
type FetchFunc func(ctx context.Context, days int) (int, error)

var (
	// ErrFetchRunning 已有后台获取任务在运行
	ErrFetchRunning = errors.New("已有获取任务在运行")
	// ErrFetchDisabled 未配置FetchFunc
	ErrFetchDisabled = errors.New("未配置NVD数据获取")
)

type Server struct {
	feed   *feed.Feed
	store  RecordStore
	fetch  FetchFunc
	logger *utils.Logger
	router chi.Router

	// 后台获取任务使用的上下文，随Run的ctx取消
	baseCtx  context.Context
	fetching atomic.Bool
	mu       sync.Mutex
	done     chan struct{}
}

// New store与fetch可以为nil，此时对应功能不可用
func New(f *feed.Feed, store RecordStore, fetch FetchFunc) *Server {
	s := &Server{
		feed:    f,
		store:   store,
		fetch:   fetch,
		logger:  utils.NewLogger("server"),
		baseCtx: context.Background(),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/cves", func(r chi.Router) {
			r.Get("/", s.handleListCVEs)
			r.Get("/{id}", s.handleGetCVE)
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/", s.handleStats)
			r.Get("/histogram", s.handleHistogram)
			r.Get("/severity", s.handleSeverity)
			r.Get("/scatter", s.handleScatter)
			r.Get("/words", s.handleWords)
		})

		r.Post("/fetch", s.handleFetch)
	})

	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run 监听addr直到ctx被取消，然后优雅关闭
func (s *Server) Run(ctx context.Context, addr string) error {
	s.baseCtx = ctx
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP服务监听于 %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP服务异常退出: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("正在关闭HTTP服务...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("关闭HTTP服务失败: %w", err)
	}
	s.logger.Info("HTTP服务已停止")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"records":  s.feed.Len(),
		"seq":      s.feed.Seq(),
		"fetching": s.fetching.Load(),
	})
}

func (s *Server) handleListCVEs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var state table.SortState
	if name := q.Get("sort"); name != "" {
		col, err := table.ParseColumn(name)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		dir, err := table.ParseDirection(q.Get("dir"))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		state = table.SortState{Column: col, Direction: dir, Sorted: true}
	}
	limit, err := intParam(q.Get("limit"), 0)
	if err != nil || limit < 0 {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("limit参数无效: %q", q.Get("limit")))
		return
	}

	records := table.Sort(s.feed.Snapshot(), state)
	total := len(records)
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":   total,
		"records": records,
	})
}

func (s *Server) handleGetCVE(w http.ResponseWriter, r *http.Request) {
	id := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "id")))
	for _, rec := range s.feed.Snapshot() {
		if rec.ID == id {
			s.writeJSON(w, http.StatusOK, table.DetailOf(rec))
			return
		}
	}

	if s.store == nil {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("%s: %w", id, cvedb.ErrNotFound))
		return
	}
	rec, err := s.store.Get(r.Context(), id)
	switch {
	case errors.Is(err, cvedb.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case err != nil:
		s.logger.Error("查询 %s 失败: %v", id, err)
		s.writeError(w, http.StatusInternalServerError, err)
	default:
		s.writeJSON(w, http.StatusOK, table.DetailOf(rec))
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	opts, err := reportOptions(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, analytics.BuildReport(s.feed.Snapshot(), opts))
}

func (s *Server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	opts, err := reportOptions(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	records := s.feed.Snapshot()
	v3 := make([]model.Score, len(records))
	v2 := make([]model.Score, len(records))
	for i, rec := range records {
		v3[i], v2[i] = rec.CVSSV3Score, rec.CVSSV2Score
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"v3": analytics.PrepareBins(v3, opts.BinStep, opts.MaxScore).Pairs(),
		"v2": analytics.PrepareBins(v2, opts.BinStep, opts.MaxScore).Pairs(),
	})
}

func (s *Server) handleSeverity(w http.ResponseWriter, r *http.Request) {
	records := s.feed.Snapshot()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"v3": analytics.FillSeverities(analytics.CountSeverities(records, analytics.V3Severity, model.Severities), model.Severities),
		"v2": analytics.FillSeverities(analytics.CountSeverities(records, analytics.V2Severity, model.Severities), model.Severities),
	})
}

func (s *Server) handleScatter(w http.ResponseWriter, r *http.Request) {
	opts, err := reportOptions(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, analytics.PrepareScatter(s.feed.Snapshot(), opts.Jitter, nil))
}

func (s *Server) handleWords(w http.ResponseWriter, r *http.Request) {
	opts, err := reportOptions(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, analytics.TopWords(s.feed.Snapshot(), opts.TopWords))
}

// handleFetch 在后台获取最近N天的CVE，同一时间只允许一个任务
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	if s.fetch == nil {
		s.writeError(w, http.StatusServiceUnavailable, ErrFetchDisabled)
		return
	}
	days, err := intParam(r.URL.Query().Get("days"), 7)
	if err != nil || days < 1 || days > maxFetchDays {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("days必须在1-%d之间", maxFetchDays))
		return
	}
	if err := s.StartFetch(s.baseCtx, days); err != nil {
		s.writeError(w, http.StatusConflict, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "accepted",
		"days":   days,
	})
}

// StartFetch 在后台获取最近days天的CVE并立即返回。
// 已有任务在运行时返回ErrFetchRunning；任务可通过Wait等待结束。
func (s *Server) StartFetch(ctx context.Context, days int) error {
	if s.fetch == nil {
		return ErrFetchDisabled
	}
	if !s.fetching.CompareAndSwap(false, true) {
		return ErrFetchRunning
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.done = done
	s.mu.Unlock()
	go func() {
		defer close(done)
		defer s.fetching.Store(false)
		added, err := s.fetch(ctx, days)
		if err != nil {
			s.logger.Error("获取最近 %d 天CVE失败: %v", days, err)
			return
		}
		s.logger.Info("获取最近 %d 天CVE完成，新增 %d 条", days, added)
	}()
	return nil
}

// Wait 等待当前的后台获取任务结束
func (s *Server) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func reportOptions(r *http.Request) (analytics.ReportOptions, error) {
	q := r.URL.Query()
	opts := analytics.ReportOptions{Jitter: analytics.DefaultJitter}
	var err error
	if opts.BinStep, err = floatParam(q.Get("step")); err != nil || opts.BinStep < 0 || (opts.BinStep > 0 && opts.BinStep < minBinStep) {
		return opts, fmt.Errorf("step参数无效: %q", q.Get("step"))
	}
	if opts.MaxScore, err = floatParam(q.Get("max")); err != nil || opts.MaxScore < 0 || opts.MaxScore > model.MaxScore {
		return opts, fmt.Errorf("max参数无效: %q", q.Get("max"))
	}
	if j := q.Get("jitter"); j != "" {
		// jitter=0 关闭抖动
		if opts.Jitter, err = floatParam(j); err != nil || opts.Jitter < 0 {
			return opts, fmt.Errorf("jitter参数无效: %q", j)
		}
	}
	if opts.TopWords, err = intParam(q.Get("top"), 0); err != nil || opts.TopWords < 0 {
		return opts, fmt.Errorf("top参数无效: %q", q.Get("top"))
	}
	return opts, nil
}

func floatParam(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("非有限数值 %q", s)
	}
	return v, nil
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

// writeJSON 先完整编码再写出，编码失败时返回500
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("编码JSON响应失败: %v", err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]string{"error": "编码响应失败: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
