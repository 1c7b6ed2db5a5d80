package store

import (
	"context"
	"errors"
	"sync"

	"quantsig/internal/market"
)

// MarketStore 抽象：读写 symbol+interval 的行情序列。
type MarketStore interface {
	PutCandles(ctx context.Context, symbol, interval string, ks []market.Candle, max int) error
	PutRatios(ctx context.Context, symbol, interval string, rs []market.RatioPoint, max int) error
	GetCandles(ctx context.Context, symbol, interval string) ([]market.Candle, error)
	GetRatios(ctx context.Context, symbol, interval string) ([]market.RatioPoint, error)
}

// MemoryStore 内存实现。
type MemoryStore struct {
	mu      sync.RWMutex
	candles map[string][]market.Candle
	ratios  map[string][]market.RatioPoint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		candles: make(map[string][]market.Candle),
		ratios:  make(map[string][]market.RatioPoint),
	}
}

func key(symbol, interval string) string { return symbol + "@" + interval }

// PutCandles 追加并裁剪；同一 OpenTime 视为增量更新，覆盖末尾而非重复追加。
func (s *MemoryStore) PutCandles(ctx context.Context, symbol, interval string, ks []market.Candle, max int) error {
	if symbol == "" || interval == "" {
		return errors.New("symbol/interval 不能为空")
	}
	if len(ks) == 0 {
		return nil
	}
	if max <= 0 {
		max = 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(symbol, interval)
	cur := s.candles[k]
	for _, candle := range ks {
		n := len(cur)
		if n > 0 && cur[n-1].OpenTime == candle.OpenTime {
			cur[n-1] = candle
			continue
		}
		cur = append(cur, candle)
	}
	if len(cur) > max {
		cur = cur[len(cur)-max:]
	}
	s.candles[k] = cur
	return nil
}

// PutRatios 追加并裁剪多空比序列，逻辑与 PutCandles 一致。
func (s *MemoryStore) PutRatios(ctx context.Context, symbol, interval string, rs []market.RatioPoint, max int) error {
	if symbol == "" || interval == "" {
		return errors.New("symbol/interval 不能为空")
	}
	if len(rs) == 0 {
		return nil
	}
	if max <= 0 {
		max = 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(symbol, interval)
	cur := s.ratios[k]
	for _, point := range rs {
		n := len(cur)
		if n > 0 && cur[n-1].Timestamp == point.Timestamp {
			cur[n-1] = point
			continue
		}
		cur = append(cur, point)
	}
	if len(cur) > max {
		cur = cur[len(cur)-max:]
	}
	s.ratios[k] = cur
	return nil
}

// GetCandles 返回拷贝。
func (s *MemoryStore) GetCandles(ctx context.Context, symbol, interval string) ([]market.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur := s.candles[key(symbol, interval)]
	out := make([]market.Candle, len(cur))
	copy(out, cur)
	return out, nil
}

// GetRatios 返回拷贝。
func (s *MemoryStore) GetRatios(ctx context.Context, symbol, interval string) ([]market.RatioPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur := s.ratios[key(symbol, interval)]
	out := make([]market.RatioPoint, len(cur))
	copy(out, cur)
	return out, nil
}
