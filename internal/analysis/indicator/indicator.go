package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"quantsig/internal/market"
)

type Settings struct {
	EMAFast    int     `json:"ema_fast,omitempty"`
	EMASlow    int     `json:"ema_slow,omitempty"`
	RSIPeriod  int     `json:"rsi_period,omitempty"`
	ATRPeriod  int     `json:"atr_period,omitempty"`
	ROCPeriod  int     `json:"roc_period,omitempty"`
	Overbought float64 `json:"overbought,omitempty"`
	Oversold   float64 `json:"oversold,omitempty"`
}

type Value struct {
	Latest float64 `json:"latest"`
	State  string  `json:"state,omitempty"`
	Note   string  `json:"note,omitempty"`
}

type Snapshot struct {
	Symbol   string           `json:"symbol"`
	Interval string           `json:"interval"`
	Count    int              `json:"count"`
	Values   map[string]Value `json:"values"`
}

func normalize(cfg Settings) Settings {
	if cfg.EMAFast <= 0 {
		cfg.EMAFast = 21
	}
	if cfg.EMASlow <= 0 {
		cfg.EMASlow = 55
	}
	if cfg.RSIPeriod <= 0 {
		cfg.RSIPeriod = 14
	}
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = 14
	}
	if cfg.ROCPeriod <= 0 {
		cfg.ROCPeriod = 9
	}
	if cfg.Overbought == 0 {
		cfg.Overbought = 70
	}
	if cfg.Oversold == 0 {
		cfg.Oversold = 30
	}
	return cfg
}

func Compute(symbol, interval string, candles []market.Candle, cfg Settings) (Snapshot, error) {
	snap := Snapshot{
		Symbol:   symbol,
		Interval: interval,
		Count:    len(candles),
		Values:   make(map[string]Value),
	}
	if len(candles) == 0 {
		return snap, fmt.Errorf("no candles")
	}
	cfg = normalize(cfg)

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		volumes[i] = c.Volume
	}
	lastClose := closes[len(closes)-1]

	emaFast := lastValid(talib.Ema(closes, cfg.EMAFast))
	emaSlow := lastValid(talib.Ema(closes, cfg.EMASlow))
	snap.Values["ema_fast"] = Value{
		Latest: round4(emaFast),
		State:  relativeState(lastClose, emaFast),
		Note:   fmt.Sprintf("EMA%d vs price", cfg.EMAFast),
	}
	snap.Values["ema_slow"] = Value{
		Latest: round4(emaSlow),
		State:  relativeState(lastClose, emaSlow),
		Note:   fmt.Sprintf("EMA%d vs price", cfg.EMASlow),
	}

	rsi := lastValid(talib.Rsi(closes, cfg.RSIPeriod))
	rsiState := "neutral"
	switch {
	case rsi >= cfg.Overbought:
		rsiState = "overbought"
	case rsi <= cfg.Oversold:
		rsiState = "oversold"
	}
	snap.Values["rsi"] = Value{
		Latest: round4(rsi),
		State:  rsiState,
		Note:   fmt.Sprintf("period=%d thresholds=%.1f/%.1f", cfg.RSIPeriod, cfg.Oversold, cfg.Overbought),
	}

	macd, signalLine, hist := talib.Macd(closes, 12, 26, 9)
	snap.Values["macd"] = Value{
		Latest: round4(lastValid(macd)),
		State:  polarityState(lastValid(hist)),
		Note:   fmt.Sprintf("signal=%.4f hist=%.4f", lastValid(signalLine), lastValid(hist)),
	}

	roc := lastValid(talib.Roc(closes, cfg.ROCPeriod))
	snap.Values["roc"] = Value{
		Latest: round4(roc),
		State:  polarityState(roc),
		Note:   fmt.Sprintf("period=%d", cfg.ROCPeriod),
	}

	atr := lastValid(talib.Atr(highs, lows, closes, cfg.ATRPeriod))
	snap.Values["atr"] = Value{
		Latest: round4(atr),
		State:  "volatility",
		Note:   fmt.Sprintf("period=%d", cfg.ATRPeriod),
	}

	obv := lastValid(talib.Obv(closes, volumes))
	snap.Values["obv"] = Value{
		Latest: round4(obv),
		State:  polarityState(roc),
		Note:   "volume thrust",
	}

	return snap, nil
}

func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) && !math.IsInf(series[i], 0) {
			return series[i]
		}
	}
	return 0
}

func relativeState(price, ref float64) string {
	if ref == 0 {
		return "unknown"
	}
	switch {
	case price > ref*1.002:
		return "above"
	case price < ref*0.998:
		return "below"
	default:
		return "touch"
	}
}

func polarityState(v float64) string {
	switch {
	case v > 0:
		return "positive"
	case v < 0:
		return "negative"
	default:
		return "flat"
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
