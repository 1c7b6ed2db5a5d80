// Package stats provides the rolling primitives the signal engine is built
// on: winsorizing clamp, rolling z-score, EMA, ATR and interpolated
// quantiles. math.NaN() marks values that cannot be computed yet; every
// function here propagates it instead of coercing to zero.
package stats

import (
	"math"
	"sort"
)

// Defined reports whether v is a usable number (not NaN, not ±Inf).
func Defined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Quantile returns the linearly interpolated q-quantile of sorted values.
// The slice must be sorted ascending and free of NaN. Returns NaN when empty.
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	frac := pos - float64(lo)
	if lo+1 >= n {
		return sorted[n-1]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// NaNQuantile computes the q-quantile of a series, ignoring undefined entries.
func NaNQuantile(x []float64, q float64) float64 {
	vals := make([]float64, 0, len(x))
	for _, v := range x {
		if Defined(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)
	return Quantile(vals, q)
}

// Winsorize clips every value to the [p, 1-p] empirical quantile range of the
// whole series. Undefined entries are skipped when computing the bounds but
// kept in place in the output.
func Winsorize(x []float64, p float64) []float64 {
	out := make([]float64, len(x))
	lo := NaNQuantile(x, p)
	hi := NaNQuantile(x, 1-p)
	for i, v := range x {
		switch {
		case !Defined(v):
			out[i] = v
		case Defined(lo) && v < lo:
			out[i] = lo
		case Defined(hi) && v > hi:
			out[i] = hi
		default:
			out[i] = v
		}
	}
	return out
}

// RollingZ computes the rolling z-score over a trailing window of n bars
// using the population standard deviation. A bar is undefined while fewer
// than n bars exist or when its window contains an undefined value. A
// zero-variance window yields 0 when the bar sits exactly on the window mean
// and NaN otherwise, so a flat series scores zero instead of blowing up.
func RollingZ(x []float64, n int) []float64 {
	out := make([]float64, len(x))
	for i := range out {
		out[i] = math.NaN()
	}
	if n <= 0 {
		return out
	}
	for i := n - 1; i < len(x); i++ {
		sum := 0.0
		ok := true
		for j := i - n + 1; j <= i; j++ {
			if !Defined(x[j]) {
				ok = false
				break
			}
			sum += x[j]
		}
		if !ok {
			continue
		}
		mean := sum / float64(n)
		varSum := 0.0
		for j := i - n + 1; j <= i; j++ {
			d := x[j] - mean
			varSum += d * d
		}
		sd := math.Sqrt(varSum / float64(n))
		num := x[i] - mean
		if sd == 0 {
			if num == 0 {
				out[i] = 0
			}
			continue
		}
		out[i] = num / sd
	}
	return out
}

// EMA computes the exponential moving average with alpha = 2/(span+1),
// seeded by the first defined observation. Undefined inputs carry the
// previous EMA value forward.
func EMA(x []float64, span int) []float64 {
	out := make([]float64, len(x))
	if span <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	prev := math.NaN()
	for i, v := range x {
		switch {
		case !Defined(prev) && Defined(v):
			prev = v
		case Defined(prev) && Defined(v):
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out
}

// TrueRange returns the per-bar true range. The first bar has no prior close
// and uses high-low only.
func TrueRange(high, low, close []float64) []float64 {
	out := make([]float64, len(high))
	for i := range high {
		hl := high[i] - low[i]
		if i == 0 {
			out[i] = hl
			continue
		}
		hc := math.Abs(high[i] - close[i-1])
		lc := math.Abs(low[i] - close[i-1])
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// ATR is the simple rolling mean of the true range over period bars,
// undefined until a full window exists.
func ATR(high, low, close []float64, period int) []float64 {
	tr := TrueRange(high, low, close)
	return RollingMean(tr, period)
}

// RollingMean computes a trailing simple moving average requiring a full
// window of defined values.
func RollingMean(x []float64, n int) []float64 {
	out := make([]float64, len(x))
	for i := range out {
		out[i] = math.NaN()
	}
	if n <= 0 {
		return out
	}
	for i := n - 1; i < len(x); i++ {
		sum := 0.0
		ok := true
		for j := i - n + 1; j <= i; j++ {
			if !Defined(x[j]) {
				ok = false
				break
			}
			sum += x[j]
		}
		if ok {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// Diff returns the first difference with NaN at bar 0.
func Diff(x []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = x[i] - x[i-1]
	}
	return out
}

// LogReturns returns log(p_i) - log(p_{i-1}) with NaN at bar 0 and at any
// bar whose price (or prior price) is not strictly positive.
func LogReturns(price []float64) []float64 {
	out := make([]float64, len(price))
	for i := range price {
		if i == 0 || !Defined(price[i]) || !Defined(price[i-1]) ||
			price[i] <= 0 || price[i-1] <= 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Log(price[i]) - math.Log(price[i-1])
	}
	return out
}

// Sign returns -1, 0 or +1; NaN input stays NaN.
func Sign(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return math.NaN()
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
