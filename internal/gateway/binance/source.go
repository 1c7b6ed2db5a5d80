package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/adshao/go-binance/v2/futures"

	"quantsig/internal/logger"
	"quantsig/internal/market"
)

const maxHistoryLimit = 1500

// Source 实现了 market.Source，基于 Binance USDT 本位合约 REST 接口。
type Source struct {
	cfg    Config
	client *futures.Client

	mu    sync.Mutex
	stats market.SourceStats
}

func New(cfg Config) (*Source, error) {
	final := cfg.withDefaults()
	client := futures.NewClient(final.APIKey, final.SecretKey)
	client.BaseURL = final.RESTBaseURL
	client.HTTPClient.Timeout = final.HTTPTimeout
	return &Source{cfg: final, client: client}, nil
}

func (s *Source) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	symbol, interval, limit, err := normalizeQuery(symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	logger.Debugf("[binance] klines %s %s limit=%d", symbol, interval, limit)
	raw, err := s.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	s.record(&s.stats.HistoryCalls, err)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s: %w", symbol, err)
	}
	out := make([]market.Candle, 0, len(raw))
	for _, k := range raw {
		out = append(out, market.Candle{
			OpenTime:  k.OpenTime,
			CloseTime: k.CloseTime,
			Open:      toFloat(k.Open),
			High:      toFloat(k.High),
			Low:       toFloat(k.Low),
			Close:     toFloat(k.Close),
			Volume:    toFloat(k.Volume),
			Trades:    k.TradeNum,
		})
	}
	return out, nil
}

// FetchLongShortRatio 拉取全市场账户多空比。period 与 K 线 interval 同格式（如 "1h"）。
func (s *Source) FetchLongShortRatio(ctx context.Context, symbol, interval string, limit int) ([]market.RatioPoint, error) {
	symbol, interval, limit, err := normalizeQuery(symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	logger.Debugf("[binance] longShortRatio %s %s limit=%d", symbol, interval, limit)
	raw, err := s.client.NewLongShortRatioService().
		Symbol(symbol).
		Period(interval).
		Limit(limit).
		Do(ctx)
	s.record(&s.stats.RatioCalls, err)
	if err != nil {
		return nil, fmt.Errorf("binance long/short ratio %s: %w", symbol, err)
	}
	out := make([]market.RatioPoint, 0, len(raw))
	for _, r := range raw {
		out = append(out, market.RatioPoint{
			Timestamp: r.Timestamp,
			Ratio:     toFloat(r.LongShortRatio),
			LongPct:   toFloat(r.LongAccount),
			ShortPct:  toFloat(r.ShortAccount),
		})
	}
	return out, nil
}

func (s *Source) Stats() market.SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Source) Close() error {
	return nil
}

func (s *Source) record(counter *int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*counter++
	if err != nil {
		s.stats.LastError = err.Error()
	}
}

func normalizeQuery(symbol, interval string, limit int) (string, string, int, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", "", 0, fmt.Errorf("symbol is required")
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return "", "", 0, fmt.Errorf("interval is required")
	}
	if limit <= 0 {
		limit = 500
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return symbol, interval, limit, nil
}

func toFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
