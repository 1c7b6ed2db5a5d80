package predict

import (
	"fmt"
	"math"

	"quantsig/internal/analysis/stats"
	"quantsig/internal/market"
)

// Forecast is the per-instrument prediction output: rise/fall probabilities
// for the next bar and a volatility band around the projected price.
type Forecast struct {
	ProbUp    float64 `json:"prob_up"`
	ProbDown  float64 `json:"prob_down"`
	PredPrice float64 `json:"pred_price"`
	PredLow   float64 `json:"pred_low"`
	PredHigh  float64 `json:"pred_high"`
	Samples   int     `json:"samples"`
}

// featureRow carries the three hand-picked features: bar return, volume
// change ratio and long/short-ratio change ratio.
type featureRow struct {
	ret      float64
	volRatio float64
	lsrRatio float64
	label    float64
}

// buildRows derives one training row per bar from aligned series. The label
// of bar i is whether bar i+1 closed higher, so the final bar is held out
// for prediction only.
func buildRows(in market.SeriesInput) ([]featureRow, []float64, error) {
	n := in.Len()
	if n < 3 {
		return nil, nil, fmt.Errorf("predict: need at least 3 bars, got %d", n)
	}
	rows := make([]featureRow, 0, n)
	for i := 1; i < n-1; i++ {
		r := featureRow{
			ret:      pctChange(in.Price[i], in.Price[i-1]),
			volRatio: pctChange(in.Volume[i], in.Volume[i-1]),
			lsrRatio: changeRatio(in.LSR[i], in.LSR[i-1]),
		}
		if in.Price[i+1] > in.Price[i] {
			r.label = 1
		}
		if !stats.Defined(r.ret) || !stats.Defined(r.volRatio) || !stats.Defined(r.lsrRatio) {
			continue
		}
		rows = append(rows, r)
	}
	last := n - 1
	latest := []float64{
		pctChange(in.Price[last], in.Price[last-1]),
		pctChange(in.Volume[last], in.Volume[last-1]),
		changeRatio(in.LSR[last], in.LSR[last-1]),
	}
	for _, f := range latest {
		if !stats.Defined(f) {
			return nil, nil, fmt.Errorf("predict: latest bar has undefined features")
		}
	}
	return rows, latest, nil
}

// Run trains on the instrument's history and forecasts the next bar.
func Run(in market.SeriesInput, opts TrainOptions) (Forecast, error) {
	rows, latest, err := buildRows(in)
	if err != nil {
		return Forecast{}, err
	}
	X := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	rets := make([]float64, len(rows))
	for i, r := range rows {
		X[i] = []float64{r.ret, r.volRatio, r.lsrRatio}
		y[i] = r.label
		rets[i] = r.ret
	}
	model, err := Train(X, y, opts)
	if err != nil {
		return Forecast{}, err
	}
	probUp, err := model.Predict(latest)
	if err != nil {
		return Forecast{}, err
	}

	meanRet, stdRet := meanStd(rets)
	lastClose := in.Price[in.Len()-1]
	predPrice := lastClose * (1 + meanRet)
	return Forecast{
		ProbUp:    round4(probUp),
		ProbDown:  round4(1 - probUp),
		PredPrice: round2(predPrice),
		PredLow:   round2(predPrice * (1 - stdRet)),
		PredHigh:  round2(predPrice * (1 + stdRet)),
		Samples:   len(rows),
	}, nil
}

func pctChange(cur, prev float64) float64 {
	if !stats.Defined(cur) || !stats.Defined(prev) || prev == 0 {
		return math.NaN()
	}
	return cur/prev - 1
}

// changeRatio uses a tiny epsilon in the denominator so a ratio resting at
// zero does not blow up the feature.
func changeRatio(cur, prev float64) float64 {
	if !stats.Defined(cur) || !stats.Defined(prev) {
		return math.NaN()
	}
	return (cur - prev) / (prev + 1e-9)
}

func meanStd(x []float64) (float64, float64) {
	if len(x) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	mean := sum / float64(len(x))
	varSum := 0.0
	for _, v := range x {
		d := v - mean
		varSum += d * d
	}
	return mean, math.Sqrt(varSum / float64(len(x)))
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
