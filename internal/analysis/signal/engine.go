// Package signal turns aligned price / volume / long-short-ratio series into
// a composite sentiment score, adaptive quantile thresholds and ATR-derived
// trade levels. The whole computation is causal: the value at bar i only ever
// reads bars <= i.
package signal

import (
	"encoding/json"
	"fmt"
	"math"

	"quantsig/internal/analysis/stats"
)

// Input carries the five aligned input series. All slices must have equal
// length; missing long/short-ratio observations are NaN.
type Input struct {
	Price  []float64
	High   []float64
	Low    []float64
	LSR    []float64
	Volume []float64
}

func (in Input) validate() error {
	n := len(in.Price)
	if len(in.High) != n || len(in.Low) != n || len(in.LSR) != n || len(in.Volume) != n {
		return fmt.Errorf("signal input: series lengths differ (price=%d high=%d low=%d lsr=%d volume=%d)",
			len(in.Price), len(in.High), len(in.Low), len(in.LSR), len(in.Volume))
	}
	return nil
}

// Result holds one value per input bar for every output column. Bars whose
// history is insufficient hold NaN, except Size which falls back to 0 (no
// signal means no position).
type Result struct {
	Price []float64
	S     []float64
	SStar []float64
	QHi   []float64
	QLo   []float64
	Trend []float64

	LongSignal  []int
	ShortSignal []int

	EntryLong  []float64
	EntryShort []float64
	SLLong     []float64
	SLShort    []float64
	TrailDist  []float64
	Size       []float64

	// Intermediate series kept for inspection and reporting.
	ZLSR     []float64
	ZDLSR    []float64
	Momentum []float64
	ZVol     []float64
	ATR      []float64
	SCap     []float64
}

// Len returns the number of bars in the result.
func (r *Result) Len() int { return len(r.Price) }

// Compute runs the full pipeline: robust statistics, signal fusion, adaptive
// thresholding and risk levels. It is a pure function of its arguments;
// repeated calls with identical inputs produce identical output.
func Compute(in Input, cfg Config) (*Result, error) {
	cfg = Normalize(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	n := len(in.Price)
	res := newResult(n)
	if n == 0 {
		return res, nil
	}
	copy(res.Price, in.Price)

	// 1) robust statistics
	lsrW := stats.Winsorize(in.LSR, cfg.WinsorP)
	zLSR := stats.RollingZ(lsrW, cfg.ZWindow)
	zDLSR := stats.RollingZ(stats.Diff(lsrW), cfg.ZWindow)
	momentum := stats.RollingZ(stats.LogReturns(in.Price), cfg.ZWindow)
	zVol := stats.RollingZ(in.Volume, cfg.ZWindow)
	for i, v := range zVol {
		// volume contraction never amplifies the signal
		if stats.Defined(v) && v < 0 {
			zVol[i] = 0
		}
	}
	copy(res.ZLSR, zLSR)
	copy(res.ZDLSR, zDLSR)
	copy(res.Momentum, momentum)
	copy(res.ZVol, zVol)

	// 2) trend gate from the EMA crossover
	emaFast := stats.EMA(in.Price, cfg.EMAFast)
	emaSlow := stats.EMA(in.Price, cfg.EMASlow)
	for i := 0; i < n; i++ {
		res.Trend[i] = stats.Sign(emaFast[i] - emaSlow[i])
	}

	// 3) composite score and trend-gated amplified score
	for i := 0; i < n; i++ {
		s := cfg.Alpha*zLSR[i] + cfg.Beta*zDLSR[i] + cfg.Gamma*momentum[i]
		res.S[i] = s
		if !stats.Defined(s) || !stats.Defined(zVol[i]) || !stats.Defined(res.Trend[i]) {
			res.SStar[i] = math.NaN()
			continue
		}
		gate := 0.0
		if s*res.Trend[i] > 0 {
			gate = 1.0
		}
		res.SStar[i] = s * (1 + cfg.Eta*zVol[i]) * gate
	}

	// 4) adaptive thresholds over the trailing quantile window
	qw := newQuantileWindow(cfg.QuantileWindow, cfg.MinCoverage)
	for i := 0; i < n; i++ {
		qw.Push(res.SStar[i])
		res.QHi[i] = qw.Quantile(cfg.QHi)
		res.QLo[i] = qw.Quantile(cfg.QLo)
		res.SCap[i] = qw.Quantile(cfg.CapQ)
	}

	// 5) signal decision: quantile breach plus noise floors plus trend
	// alignment; any undefined operand leaves the flag at 0
	for i := 0; i < n; i++ {
		zOK := math.Abs(res.ZLSR[i]) >= cfg.MinZLSR && math.Abs(res.ZDLSR[i]) >= cfg.MinZDLSR
		if res.SStar[i] >= res.QHi[i] && zOK && res.Trend[i] > 0 {
			res.LongSignal[i] = 1
		}
		if res.SStar[i] <= res.QLo[i] && zOK && res.Trend[i] < 0 {
			res.ShortSignal[i] = 1
		}
	}

	// 6) ATR-derived entries, stops and trailing distance
	atr := stats.ATR(in.High, in.Low, in.Price, cfg.ATRPeriod)
	copy(res.ATR, atr)
	for i := 0; i < n; i++ {
		price := in.Price[i]
		atrNorm := atr[i] / price
		res.EntryLong[i] = price * (1 + cfg.EntryC*atrNorm)
		res.EntryShort[i] = price * (1 - cfg.EntryC*atrNorm)
		res.SLLong[i] = res.EntryLong[i] - cfg.KSL*atr[i]
		res.SLShort[i] = res.EntryShort[i] + cfg.KSL*atr[i]
		res.TrailDist[i] = cfg.KTP * atr[i]
	}

	// 7) risk-proportional size, scaled by score strength against its
	// historical cap; the single documented zero fallback lives here
	for i := 0; i < n; i++ {
		scale := math.NaN()
		if stats.Defined(res.SCap[i]) && res.SCap[i] != 0 && stats.Defined(res.SStar[i]) {
			scale = math.Abs(res.SStar[i]) / res.SCap[i]
			if scale > 1 {
				scale = 1
			}
		}
		base := cfg.RiskPct / (cfg.KSL * atr[i] * cfg.PointValue)
		size := base * scale
		if !stats.Defined(size) || size < 0 {
			size = 0
		}
		res.Size[i] = size
	}

	return res, nil
}

func newResult(n int) *Result {
	mk := func() []float64 { return make([]float64, n) }
	return &Result{
		Price:       mk(),
		S:           mk(),
		SStar:       mk(),
		QHi:         mk(),
		QLo:         mk(),
		Trend:       mk(),
		LongSignal:  make([]int, n),
		ShortSignal: make([]int, n),
		EntryLong:   mk(),
		EntryShort:  mk(),
		SLLong:      mk(),
		SLShort:     mk(),
		TrailDist:   mk(),
		Size:        mk(),
		ZLSR:        mk(),
		ZDLSR:       mk(),
		Momentum:    mk(),
		ZVol:        mk(),
		ATR:         mk(),
		SCap:        mk(),
	}
}

// Row is a flattened view of one bar, used by the store, transport and
// report layers.
type Row struct {
	Index       int     `json:"index"`
	Price       float64 `json:"price"`
	S           float64 `json:"s"`
	SStar       float64 `json:"s_star"`
	QHi         float64 `json:"q_hi"`
	QLo         float64 `json:"q_lo"`
	Trend       float64 `json:"trend"`
	LongSignal  int     `json:"long_signal"`
	ShortSignal int     `json:"short_signal"`
	EntryLong   float64 `json:"entry_long"`
	EntryShort  float64 `json:"entry_short"`
	SLLong      float64 `json:"sl_long"`
	SLShort     float64 `json:"sl_short"`
	TrailDist   float64 `json:"trail_dist"`
	Size        float64 `json:"size"`
}

// MarshalJSON renders undefined values as null; encoding/json rejects NaN.
func (r Row) MarshalJSON() ([]byte, error) {
	type jsonRow struct {
		Index       int      `json:"index"`
		Price       *float64 `json:"price"`
		S           *float64 `json:"s"`
		SStar       *float64 `json:"s_star"`
		QHi         *float64 `json:"q_hi"`
		QLo         *float64 `json:"q_lo"`
		Trend       *float64 `json:"trend"`
		LongSignal  int      `json:"long_signal"`
		ShortSignal int      `json:"short_signal"`
		EntryLong   *float64 `json:"entry_long"`
		EntryShort  *float64 `json:"entry_short"`
		SLLong      *float64 `json:"sl_long"`
		SLShort     *float64 `json:"sl_short"`
		TrailDist   *float64 `json:"trail_dist"`
		Size        *float64 `json:"size"`
	}
	return json.Marshal(jsonRow{
		Index:       r.Index,
		Price:       jsonNum(r.Price),
		S:           jsonNum(r.S),
		SStar:       jsonNum(r.SStar),
		QHi:         jsonNum(r.QHi),
		QLo:         jsonNum(r.QLo),
		Trend:       jsonNum(r.Trend),
		LongSignal:  r.LongSignal,
		ShortSignal: r.ShortSignal,
		EntryLong:   jsonNum(r.EntryLong),
		EntryShort:  jsonNum(r.EntryShort),
		SLLong:      jsonNum(r.SLLong),
		SLShort:     jsonNum(r.SLShort),
		TrailDist:   jsonNum(r.TrailDist),
		Size:        jsonNum(r.Size),
	})
}

func jsonNum(v float64) *float64 {
	if !stats.Defined(v) {
		return nil
	}
	return &v
}

// Row returns the flattened view of bar i.
func (r *Result) Row(i int) Row {
	return Row{
		Index:       i,
		Price:       r.Price[i],
		S:           r.S[i],
		SStar:       r.SStar[i],
		QHi:         r.QHi[i],
		QLo:         r.QLo[i],
		Trend:       r.Trend[i],
		LongSignal:  r.LongSignal[i],
		ShortSignal: r.ShortSignal[i],
		EntryLong:   r.EntryLong[i],
		EntryShort:  r.EntryShort[i],
		SLLong:      r.SLLong[i],
		SLShort:     r.SLShort[i],
		TrailDist:   r.TrailDist[i],
		Size:        r.Size[i],
	}
}
