package market

import "github.com/shopspring/decimal"

type LSRFlowMetrics struct {
	Latest     decimal.Decimal
	Momentum   decimal.Decimal
	Normalized decimal.Decimal
	Divergence string
	PeakFlip   string
}

// ComputeLSRFlow summarizes the recent long/short-ratio path against price.
// Output meanings:
//   - Latest: last observed ratio in the window.
//   - Momentum: Latest minus the ratio 6 bars ago (0 when insufficient bars).
//   - Normalized: (Latest - min) / (max - min) across the window, 0.5 when flat.
//   - Divergence: "down" if price rises while the ratio falls vs 6 bars ago;
//     "up" if price falls while the ratio rises; otherwise "neutral".
//   - PeakFlip: "local_top" if the last ratio dropped off a local peak,
//     "local_bottom" for the mirrored case, else "none".
func ComputeLSRFlow(candles []Candle, ratios []RatioPoint) (LSRFlowMetrics, bool) {
	if len(candles) == 0 || len(ratios) == 0 {
		return LSRFlowMetrics{}, false
	}
	path := make([]decimal.Decimal, 0, len(ratios))
	for _, r := range ratios {
		path = append(path, decimal.NewFromFloat(r.Ratio))
	}
	closes := make([]decimal.Decimal, 0, len(candles))
	for _, c := range candles {
		closes = append(closes, decimal.NewFromFloat(c.Close))
	}

	last := path[len(path)-1]
	momentum := decimal.Zero
	if len(path) > 6 {
		momentum = last.Sub(path[len(path)-6])
	}

	minVal := path[0]
	maxVal := path[0]
	for _, v := range path[1:] {
		if v.LessThan(minVal) {
			minVal = v
		}
		if v.GreaterThan(maxVal) {
			maxVal = v
		}
	}
	norm := decimal.NewFromFloat(0.5)
	if maxVal.GreaterThan(minVal) {
		norm = last.Sub(minVal).Div(maxVal.Sub(minVal))
	}

	priceNow := closes[len(closes)-1]
	pricePrev := closes[0]
	ratioPrev := path[0]
	if len(closes) > 6 && len(path) > 6 {
		pricePrev = closes[len(closes)-6]
		ratioPrev = path[len(path)-6]
	}
	divergence := "neutral"
	if priceNow.GreaterThan(pricePrev) && last.LessThan(ratioPrev) {
		divergence = "down"
	} else if priceNow.LessThan(pricePrev) && last.GreaterThan(ratioPrev) {
		divergence = "up"
	}

	peakFlip := "none"
	if len(path) > 3 {
		a := path[len(path)-1]
		b := path[len(path)-2]
		c := path[len(path)-3]
		if a.LessThan(b) && b.GreaterThan(c) {
			peakFlip = "local_top"
		} else if a.GreaterThan(b) && b.LessThan(c) {
			peakFlip = "local_bottom"
		}
	}

	return LSRFlowMetrics{
		Latest:     last,
		Momentum:   momentum,
		Normalized: norm,
		Divergence: divergence,
		PeakFlip:   peakFlip,
	}, true
}
