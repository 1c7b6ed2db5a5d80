package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"quantsig/internal/config"
	"quantsig/internal/logger"
	"quantsig/internal/report"
	"quantsig/internal/service"
)

// Server 提供 Gin 接口：仪表盘页面、信号/预测查询与后台刷新。
type Server struct {
	addr     string
	svc      *service.Service
	profiles *config.ProfileManager
	symbols  []string
	router   *gin.Engine
	jobs     *jobTracker
}

type Config struct {
	Addr     string
	Svc      *service.Service
	Profiles *config.ProfileManager
	Symbols  []string
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Svc == nil {
		return nil, errors.New("service 不能为空")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8090"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		addr:     cfg.Addr,
		svc:      cfg.Svc,
		profiles: cfg.Profiles,
		symbols:  cfg.Symbols,
		router:   router,
		jobs:     newJobTracker(),
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/", s.handleDashboard)
	s.router.GET("/chart/:symbol", s.handleChart)
	api := s.router.Group("/api")
	api.GET("/summary", s.handleSummary)
	api.GET("/signals", s.handleSignals)
	api.GET("/predictions", s.handlePredictions)
	api.GET("/indicators", s.handleIndicators)
	api.GET("/flow", s.handleFlow)
	api.GET("/export", s.handleExport)
	api.POST("/refresh", s.handleRefresh)
	api.GET("/refresh/:id", s.handleRefreshStatus)
	api.GET("/jobs", s.handleJobs)
	if s.profiles != nil {
		api.GET("/profiles", s.handleProfiles)
		api.PUT("/profiles/:name", s.handleUpdateProfile)
	}
}

// Handler 暴露底层路由，便于测试。
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleDashboard(c *gin.Context) {
	snaps := s.svc.Snapshots()
	if len(snaps) == 0 {
		c.String(http.StatusOK, "暂无数据，先 POST /api/refresh 触发一次刷新")
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderDashboard(c.Writer, snaps); err != nil {
		logger.Warnf("[http] 渲染仪表盘失败: %v", err)
	}
}

func (s *Server) handleChart(c *gin.Context) {
	snap, ok := s.svc.Snapshot(c.Param("symbol"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "symbol 尚未刷新"})
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderSymbol(c.Writer, snap); err != nil {
		logger.Warnf("[http] 渲染图表失败: %v", err)
	}
}

func (s *Server) handleSummary(c *gin.Context) {
	snaps := s.svc.Snapshots()
	type entry struct {
		Symbol    string      `json:"symbol"`
		Interval  string      `json:"interval"`
		UpdatedAt time.Time   `json:"updated_at"`
		Latest    interface{} `json:"latest"`
	}
	out := make([]entry, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, entry{
			Symbol:    snap.Symbol,
			Interval:  snap.Interval,
			UpdatedAt: snap.UpdatedAt,
			Latest:    snap.Latest.Row,
		})
	}
	c.JSON(http.StatusOK, gin.H{"symbols": out})
}

func (s *Server) handleSignals(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol 必填"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "200"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit 非法"})
		return
	}
	recs, err := s.svc.Rows(c.Request.Context(), symbol, limit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	type row struct {
		OpenTime int64       `json:"open_time"`
		Signal   interface{} `json:"signal"`
	}
	out := make([]row, len(recs))
	for i, rec := range recs {
		out[i] = row{OpenTime: rec.OpenTime, Signal: rec.Row}
	}
	c.JSON(http.StatusOK, gin.H{"symbol": strings.ToUpper(symbol), "rows": out})
}

func (s *Server) handlePredictions(c *gin.Context) {
	snap, ok := s.snapshotFromQuery(c)
	if !ok {
		return
	}
	if snap.Forecast == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "暂无预测结果"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": snap.Symbol, "forecast": snap.Forecast})
}

func (s *Server) handleIndicators(c *gin.Context) {
	snap, ok := s.snapshotFromQuery(c)
	if !ok {
		return
	}
	if snap.Indicators == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "暂无指标快照"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"indicators": snap.Indicators})
}

func (s *Server) handleFlow(c *gin.Context) {
	snap, ok := s.snapshotFromQuery(c)
	if !ok {
		return
	}
	if snap.Flow == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "暂无多空比数据"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": snap.Symbol, "flow": snap.Flow})
}

func (s *Server) handleExport(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol 必填"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "1000"))
	recs, err := s.svc.Rows(c.Request.Context(), symbol, limit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	csv := report.BuildSignalCSV(recs, report.CSVOptions{PricePrecision: report.PrecisionAuto})
	c.Header("Content-Disposition", "attachment; filename="+strings.ToUpper(symbol)+"_signals.csv")
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(csv))
}

func (s *Server) handleRefresh(c *gin.Context) {
	var req struct {
		Symbols []string `json:"symbols"`
	}
	// 空 body 或非法 JSON 都按「刷新全部配置的 symbol」处理
	_ = c.ShouldBindJSON(&req)
	symbols := req.Symbols
	if len(symbols) == 0 {
		symbols = s.symbols
	}
	if len(symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "没有可刷新的 symbol"})
		return
	}
	job := s.jobs.create(symbols)
	go func() {
		s.jobs.setStatus(job.ID, JobStatusRunning, "")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.svc.RefreshAll(ctx, symbols); err != nil {
			s.jobs.setStatus(job.ID, JobStatusFailed, err.Error())
			return
		}
		s.jobs.setStatus(job.ID, JobStatusDone, "")
	}()
	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

func (s *Server) handleRefreshStatus(c *gin.Context) {
	job, ok := s.jobs.snapshot(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": job})
}

func (s *Server) handleJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": s.jobs.list()})
}

func (s *Server) handleProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"profiles": s.profiles.Profiles()})
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var p config.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name := c.Param("name")
	if err := s.profiles.Update(name, p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "profile": p})
}

func (s *Server) snapshotFromQuery(c *gin.Context) (*service.Snapshot, bool) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol 必填"})
		return nil, false
	}
	snap, ok := s.svc.Snapshot(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "symbol 尚未刷新"})
		return nil, false
	}
	return snap, true
}

// Start 启动 HTTP 服务，阻塞直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("[http] 监听 %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
