package market

import "math"

// Candle 单根 K 线，时间戳为毫秒。
type Candle struct {
	OpenTime  int64
	CloseTime int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Trades    int64
}

// RatioPoint 某一根 K 线对应的多空比观测值。
type RatioPoint struct {
	Timestamp int64 // 对应 K 线 OpenTime
	Ratio     float64
	LongPct   float64
	ShortPct  float64
}

// SeriesInput 引擎所需的五列对齐序列，缺失的多空比以 NaN 占位。
type SeriesInput struct {
	OpenTime []int64
	Price    []float64
	High     []float64
	Low      []float64
	LSR      []float64
	Volume   []float64
}

func (s SeriesInput) Len() int { return len(s.Price) }

// AlignInput 将 K 线与多空比观测按 OpenTime 对齐成等长序列。
// 多空比缺失的 K 线占位 NaN，由下游按「历史不足」处理；
// 找不到对应 K 线的多空比观测会被丢弃。
func AlignInput(candles []Candle, ratios []RatioPoint) SeriesInput {
	n := len(candles)
	out := SeriesInput{
		OpenTime: make([]int64, n),
		Price:    make([]float64, n),
		High:     make([]float64, n),
		Low:      make([]float64, n),
		LSR:      make([]float64, n),
		Volume:   make([]float64, n),
	}
	byTime := make(map[int64]float64, len(ratios))
	for _, r := range ratios {
		byTime[r.Timestamp] = r.Ratio
	}
	for i, c := range candles {
		out.OpenTime[i] = c.OpenTime
		out.Price[i] = c.Close
		out.High[i] = c.High
		out.Low[i] = c.Low
		out.Volume[i] = c.Volume
		if v, ok := byTime[c.OpenTime]; ok {
			out.LSR[i] = v
		} else {
			out.LSR[i] = math.NaN()
		}
	}
	return out
}
