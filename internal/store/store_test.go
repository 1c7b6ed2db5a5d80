package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"quantsig/internal/analysis/predict"
	"quantsig/internal/analysis/signal"
	"quantsig/internal/market"
)

func TestMemoryStorePutTrimsAndDedups(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	ks := []market.Candle{
		{OpenTime: 1, Close: 10},
		{OpenTime: 2, Close: 11},
		{OpenTime: 3, Close: 12},
	}
	if err := s.PutCandles(ctx, "BTCUSDT", "1h", ks, 2); err != nil {
		t.Fatalf("put: %v", err)
	}
	// same OpenTime overwrites the tail instead of appending
	if err := s.PutCandles(ctx, "BTCUSDT", "1h", []market.Candle{{OpenTime: 3, Close: 13}}, 2); err != nil {
		t.Fatalf("put update: %v", err)
	}
	got, err := s.GetCandles(ctx, "BTCUSDT", "1h")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 || got[0].OpenTime != 2 || got[1].Close != 13 {
		t.Fatalf("unexpected candles: %+v", got)
	}
}

func TestMemoryStoreRatios(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	rs := []market.RatioPoint{{Timestamp: 1, Ratio: 1.2}, {Timestamp: 2, Ratio: 1.4}}
	if err := s.PutRatios(ctx, "ETHUSDT", "1h", rs, 10); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.GetRatios(ctx, "ETHUSDT", "1h")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 || got[1].Ratio != 1.4 {
		t.Fatalf("unexpected ratios: %+v", got)
	}
	if err := s.PutRatios(ctx, "", "1h", rs, 10); err == nil {
		t.Fatalf("empty symbol must be rejected")
	}
}

func TestSignalStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.db")
	s, err := OpenSignalStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	recs := []SignalRecord{
		{OpenTime: 1000, Row: signal.Row{Price: 100, S: math.NaN(), Size: 0}},
		{OpenTime: 2000, Row: signal.Row{Price: 101, S: 0.8, SStar: 0.9, LongSignal: 1, EntryLong: 101.3, Size: 0.02}},
	}
	if err := s.SaveRows(ctx, "btcusdt", "1h", recs); err != nil {
		t.Fatalf("save: %v", err)
	}
	// upsert: same open_time replaces the row
	recs[1].Row.Size = 0.03
	if err := s.SaveRows(ctx, "BTCUSDT", "1h", recs[1:]); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.LatestRows(ctx, "BTCUSDT", "1h", 10)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if !math.IsNaN(got[0].Row.S) {
		t.Fatalf("NULL must round-trip as NaN, got %v", got[0].Row.S)
	}
	if got[1].Row.Size != 0.03 || got[1].Row.LongSignal != 1 {
		t.Fatalf("unexpected row: %+v", got[1].Row)
	}
	if got[0].OpenTime != 1000 || got[1].OpenTime != 2000 {
		t.Fatalf("rows must come back in ascending order")
	}
}

func TestPredictionRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.db")
	s, err := OpenSignalStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if _, ok, err := s.LatestPrediction(ctx, "BTCUSDT", "1h"); err != nil || ok {
		t.Fatalf("expected no prediction yet, ok=%v err=%v", ok, err)
	}
	fc := predict.Forecast{ProbUp: 0.62, ProbDown: 0.38, PredPrice: 42100.5, PredLow: 41800.1, PredHigh: 42400.9, Samples: 298}
	if err := s.SavePrediction(ctx, "btcusdt", "1h", fc); err != nil {
		t.Fatalf("save: %v", err)
	}
	// second save replaces the first
	fc.ProbUp, fc.ProbDown = 0.55, 0.45
	if err := s.SavePrediction(ctx, "BTCUSDT", "1h", fc); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, ok, err := s.LatestPrediction(ctx, "BTCUSDT", "1h")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.ProbUp != 0.55 || got.Samples != 298 {
		t.Fatalf("unexpected prediction: %+v", got)
	}
}

func TestSignalStoreLatestRowsLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.db")
	s, err := OpenSignalStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	var recs []SignalRecord
	for i := 0; i < 5; i++ {
		recs = append(recs, SignalRecord{OpenTime: int64(i) * 1000, Row: signal.Row{Price: float64(100 + i)}})
	}
	if err := s.SaveRows(ctx, "BTCUSDT", "1h", recs); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LatestRows(ctx, "BTCUSDT", "1h", 2)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0].OpenTime != 3000 || got[1].OpenTime != 4000 {
		t.Fatalf("limit must keep the most recent rows: %+v", got)
	}
}
