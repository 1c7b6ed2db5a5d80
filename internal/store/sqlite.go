package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"quantsig/internal/analysis/predict"
	"quantsig/internal/analysis/signal"
)

// SignalRecord 是落库的单根 K 线信号快照。
type SignalRecord struct {
	OpenTime int64
	Row      signal.Row
}

// SignalStore 用 SQLite 持久化信号序列，重启后可直接回放最近结果。
type SignalStore struct {
	mu sync.Mutex
	db *sql.DB
}

func OpenSignalStore(path string) (*SignalStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path 不能为空")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	s := &SignalStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// migrate 幂等建表。
func (s *SignalStore) migrate() error {
	ctx := context.Background()
	if _, err := s.db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS predictions (
            symbol TEXT NOT NULL,
            interval TEXT NOT NULL,
            prob_up REAL,
            prob_down REAL,
            pred_price REAL,
            pred_low REAL,
            pred_high REAL,
            samples INTEGER NOT NULL DEFAULT 0,
            updated_at INTEGER NOT NULL,
            PRIMARY KEY (symbol, interval)
        )`); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS signal_rows (
            symbol TEXT NOT NULL,
            interval TEXT NOT NULL,
            open_time INTEGER NOT NULL,
            price REAL,
            s REAL,
            s_star REAL,
            q_hi REAL,
            q_lo REAL,
            trend REAL,
            long_signal INTEGER NOT NULL DEFAULT 0,
            short_signal INTEGER NOT NULL DEFAULT 0,
            entry_long REAL,
            entry_short REAL,
            sl_long REAL,
            sl_short REAL,
            trail_dist REAL,
            size REAL,
            updated_at INTEGER NOT NULL,
            PRIMARY KEY (symbol, interval, open_time)
        )`)
	return err
}

// SaveRows 批量 upsert；未定义的数值（NaN）落库为 NULL。
func (s *SignalStore) SaveRows(ctx context.Context, symbol, interval string, recs []SignalRecord) error {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" || strings.TrimSpace(interval) == "" {
		return fmt.Errorf("symbol/interval 不能为空")
	}
	if len(recs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO signal_rows
            (symbol, interval, open_time, price, s, s_star, q_hi, q_lo, trend,
             long_signal, short_signal, entry_long, entry_short, sl_long, sl_short,
             trail_dist, size, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(symbol, interval, open_time) DO UPDATE SET
            price=excluded.price, s=excluded.s, s_star=excluded.s_star,
            q_hi=excluded.q_hi, q_lo=excluded.q_lo, trend=excluded.trend,
            long_signal=excluded.long_signal, short_signal=excluded.short_signal,
            entry_long=excluded.entry_long, entry_short=excluded.entry_short,
            sl_long=excluded.sl_long, sl_short=excluded.sl_short,
            trail_dist=excluded.trail_dist, size=excluded.size,
            updated_at=excluded.updated_at`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, rec := range recs {
		r := rec.Row
		if _, err := stmt.ExecContext(ctx, sym, interval, rec.OpenTime,
			nullIfNaN(r.Price), nullIfNaN(r.S), nullIfNaN(r.SStar),
			nullIfNaN(r.QHi), nullIfNaN(r.QLo), nullIfNaN(r.Trend),
			r.LongSignal, r.ShortSignal,
			nullIfNaN(r.EntryLong), nullIfNaN(r.EntryShort),
			nullIfNaN(r.SLLong), nullIfNaN(r.SLShort),
			nullIfNaN(r.TrailDist), nullIfNaN(r.Size), now); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LatestRows 返回最近 limit 条记录，按 open_time 升序。
func (s *SignalStore) LatestRows(ctx context.Context, symbol, interval string, limit int) ([]SignalRecord, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" || strings.TrimSpace(interval) == "" {
		return nil, fmt.Errorf("symbol/interval 不能为空")
	}
	if limit <= 0 {
		limit = 200
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `
        SELECT open_time, price, s, s_star, q_hi, q_lo, trend,
               long_signal, short_signal, entry_long, entry_short,
               sl_long, sl_short, trail_dist, size
        FROM (
            SELECT * FROM signal_rows
            WHERE symbol=? AND interval=?
            ORDER BY open_time DESC LIMIT ?
        ) ORDER BY open_time ASC`, sym, interval, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SignalRecord
	for rows.Next() {
		var rec SignalRecord
		var price, sVal, sStar, qHi, qLo, trend, entryLong, entryShort, slLong, slShort, trailDist, size sql.NullFloat64
		if err := rows.Scan(&rec.OpenTime, &price, &sVal, &sStar, &qHi, &qLo, &trend,
			&rec.Row.LongSignal, &rec.Row.ShortSignal, &entryLong, &entryShort,
			&slLong, &slShort, &trailDist, &size); err != nil {
			return nil, err
		}
		rec.Row.Index = len(out)
		rec.Row.Price = nanIfNull(price)
		rec.Row.S = nanIfNull(sVal)
		rec.Row.SStar = nanIfNull(sStar)
		rec.Row.QHi = nanIfNull(qHi)
		rec.Row.QLo = nanIfNull(qLo)
		rec.Row.Trend = nanIfNull(trend)
		rec.Row.EntryLong = nanIfNull(entryLong)
		rec.Row.EntryShort = nanIfNull(entryShort)
		rec.Row.SLLong = nanIfNull(slLong)
		rec.Row.SLShort = nanIfNull(slShort)
		rec.Row.TrailDist = nanIfNull(trailDist)
		rec.Row.Size = nanIfNull(size)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SavePrediction 覆盖保存 symbol+interval 的最新预测。
func (s *SignalStore) SavePrediction(ctx context.Context, symbol, interval string, fc predict.Forecast) error {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" || strings.TrimSpace(interval) == "" {
		return fmt.Errorf("symbol/interval 不能为空")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO predictions
            (symbol, interval, prob_up, prob_down, pred_price, pred_low, pred_high, samples, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(symbol, interval) DO UPDATE SET
            prob_up=excluded.prob_up, prob_down=excluded.prob_down,
            pred_price=excluded.pred_price, pred_low=excluded.pred_low,
            pred_high=excluded.pred_high, samples=excluded.samples,
            updated_at=excluded.updated_at`,
		sym, interval,
		nullIfNaN(fc.ProbUp), nullIfNaN(fc.ProbDown),
		nullIfNaN(fc.PredPrice), nullIfNaN(fc.PredLow), nullIfNaN(fc.PredHigh),
		fc.Samples, time.Now().UnixMilli())
	return err
}

// LatestPrediction 读取最近一次保存的预测。
func (s *SignalStore) LatestPrediction(ctx context.Context, symbol, interval string) (predict.Forecast, bool, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" || strings.TrimSpace(interval) == "" {
		return predict.Forecast{}, false, fmt.Errorf("symbol/interval 不能为空")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.db.QueryRowContext(ctx, `
        SELECT prob_up, prob_down, pred_price, pred_low, pred_high, samples
        FROM predictions WHERE symbol=? AND interval=?`, sym, interval)
	var probUp, probDown, predPrice, predLow, predHigh sql.NullFloat64
	var fc predict.Forecast
	if err := row.Scan(&probUp, &probDown, &predPrice, &predLow, &predHigh, &fc.Samples); err != nil {
		if err == sql.ErrNoRows {
			return predict.Forecast{}, false, nil
		}
		return predict.Forecast{}, false, err
	}
	fc.ProbUp = nanIfNull(probUp)
	fc.ProbDown = nanIfNull(probDown)
	fc.PredPrice = nanIfNull(predPrice)
	fc.PredLow = nanIfNull(predLow)
	fc.PredHigh = nanIfNull(predHigh)
	return fc, true, nil
}

func (s *SignalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func nullIfNaN(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func nanIfNull(v sql.NullFloat64) float64 {
	if v.Valid {
		return v.Float64
	}
	return math.NaN()
}
