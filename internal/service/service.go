package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"quantsig/internal/analysis/indicator"
	"quantsig/internal/analysis/predict"
	"quantsig/internal/analysis/signal"
	"quantsig/internal/config"
	"quantsig/internal/logger"
	"quantsig/internal/market"
	"quantsig/internal/store"
)

// Options 控制抓取与缓存规模。
type Options struct {
	Interval    string
	HistoryBars int
	MaxBars     int
	DisplayRows int
	Concurrency int
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.Interval) == "" {
		o.Interval = "1h"
	}
	if o.HistoryBars <= 0 {
		o.HistoryBars = 1500
	}
	if o.MaxBars <= 0 {
		o.MaxBars = 3000
	}
	if o.DisplayRows <= 0 {
		o.DisplayRows = 200
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	return o
}

// Snapshot 是单个 symbol 最近一次刷新的完整结果。
type Snapshot struct {
	Symbol     string
	Interval   string
	UpdatedAt  time.Time
	Rows       []store.SignalRecord
	Latest     store.SignalRecord
	Forecast   *predict.Forecast
	Flow       *market.LSRFlowMetrics
	Indicators *indicator.Snapshot
	Config     signal.Config
}

// Service 串联数据源、信号引擎与存储，并缓存每个 symbol 的最新快照。
type Service struct {
	source   market.Source
	mem      *store.MemoryStore
	signals  *store.SignalStore
	profiles *config.ProfileManager
	opts     Options

	mu        sync.RWMutex
	snapshots map[string]*Snapshot
}

// New 构造 Service；signals 传 nil 时跳过落库。
func New(source market.Source, mem *store.MemoryStore, signals *store.SignalStore, profiles *config.ProfileManager, opts Options) *Service {
	return &Service{
		source:    source,
		mem:       mem,
		signals:   signals,
		profiles:  profiles,
		opts:      opts.withDefaults(),
		snapshots: make(map[string]*Snapshot),
	}
}

// RefreshAll 并发刷新所有 symbol；单个失败不影响其他 symbol，
// 返回第一个遇到的错误。
func (s *Service) RefreshAll(ctx context.Context, symbols []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	var mu sync.Mutex
	var firstErr error
	for _, sym := range symbols {
		sym := strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		g.Go(func() error {
			if _, err := s.RefreshSymbol(ctx, sym); err != nil {
				logger.Warnf("[service] 刷新 %s 失败: %v", sym, err)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return firstErr
}

// RefreshSymbol 抓取行情、计算信号并更新缓存。
func (s *Service) RefreshSymbol(ctx context.Context, symbol string) (*Snapshot, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol 不能为空")
	}

	candles, err := s.source.FetchHistory(ctx, symbol, s.opts.Interval, s.opts.HistoryBars)
	if err != nil {
		return nil, fmt.Errorf("拉取 K 线失败: %w", err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%s 无 K 线数据", symbol)
	}
	ratios, err := s.source.FetchLongShortRatio(ctx, symbol, s.opts.Interval, s.opts.HistoryBars)
	if err != nil {
		// 多空比缺口按 NaN 处理，引擎对空洞天然免疫
		logger.Warnf("[service] %s 多空比获取失败，按缺失处理: %v", symbol, err)
		ratios = nil
	}

	if err := s.mem.PutCandles(ctx, symbol, s.opts.Interval, candles, s.opts.MaxBars); err != nil {
		return nil, err
	}
	if len(ratios) > 0 {
		if err := s.mem.PutRatios(ctx, symbol, s.opts.Interval, ratios, s.opts.MaxBars); err != nil {
			return nil, err
		}
	}
	candles, _ = s.mem.GetCandles(ctx, symbol, s.opts.Interval)
	ratios, _ = s.mem.GetRatios(ctx, symbol, s.opts.Interval)

	in := market.AlignInput(candles, ratios)
	cfg := s.resolveConfig(symbol)
	res, err := signal.Compute(signal.Input{
		Price:  in.Price,
		High:   in.High,
		Low:    in.Low,
		LSR:    in.LSR,
		Volume: in.Volume,
	}, cfg)
	if err != nil {
		return nil, fmt.Errorf("信号计算失败: %w", err)
	}

	recs := make([]store.SignalRecord, res.Len())
	for i := 0; i < res.Len(); i++ {
		recs[i] = store.SignalRecord{OpenTime: in.OpenTime[i], Row: res.Row(i)}
	}
	if s.signals != nil {
		if err := s.signals.SaveRows(ctx, symbol, s.opts.Interval, recs); err != nil {
			logger.Warnf("[service] %s 信号落库失败: %v", symbol, err)
		}
	}

	snap := &Snapshot{
		Symbol:    symbol,
		Interval:  s.opts.Interval,
		UpdatedAt: time.Now(),
		Config:    cfg,
	}
	tail := recs
	if len(tail) > s.opts.DisplayRows {
		tail = tail[len(tail)-s.opts.DisplayRows:]
	}
	snap.Rows = tail
	snap.Latest = recs[len(recs)-1]

	if fc, err := predict.Run(in, predict.TrainOptions{}); err != nil {
		logger.Debugf("[service] %s 预测跳过: %v", symbol, err)
	} else {
		snap.Forecast = &fc
		if s.signals != nil {
			if err := s.signals.SavePrediction(ctx, symbol, s.opts.Interval, fc); err != nil {
				logger.Warnf("[service] %s 预测落库失败: %v", symbol, err)
			}
		}
	}
	if ind, err := indicator.Compute(symbol, s.opts.Interval, candles, indicator.Settings{
		EMAFast:   cfg.EMAFast,
		EMASlow:   cfg.EMASlow,
		ATRPeriod: cfg.ATRPeriod,
	}); err == nil {
		snap.Indicators = &ind
	}
	if flow, ok := market.ComputeLSRFlow(candles, ratios); ok {
		snap.Flow = &flow
	}

	s.mu.Lock()
	s.snapshots[symbol] = snap
	s.mu.Unlock()
	logger.Infof("[service] %s %s 刷新完成：%d 根 K 线，最新 S*=%.4f",
		symbol, s.opts.Interval, len(candles), snap.Latest.Row.SStar)
	return snap, nil
}

func (s *Service) resolveConfig(symbol string) signal.Config {
	if s.profiles != nil {
		return s.profiles.Resolve(symbol)
	}
	return signal.DefaultConfig()
}

// Snapshot 返回指定 symbol 的最新快照。
func (s *Service) Snapshot(symbol string) (*Snapshot, bool) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[symbol]
	return snap, ok
}

// Snapshots 返回全部快照，按 symbol 排序。
func (s *Service) Snapshots() []*Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Snapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Rows 返回最近 limit 条信号记录；优先读 SQLite，没有则退回内存快照。
func (s *Service) Rows(ctx context.Context, symbol string, limit int) ([]store.SignalRecord, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if s.signals != nil {
		return s.signals.LatestRows(ctx, symbol, s.opts.Interval, limit)
	}
	snap, ok := s.Snapshot(symbol)
	if !ok {
		return nil, fmt.Errorf("%s 尚未刷新", symbol)
	}
	rows := snap.Rows
	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	return rows, nil
}
