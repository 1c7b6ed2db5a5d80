package stats

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestWinsorizeClampsTails(t *testing.T) {
	x := make([]float64, 101)
	for i := range x {
		x[i] = float64(i)
	}
	out := Winsorize(x, 0.05)
	// with 101 points the 5% quantile falls exactly on index 5
	if out[0] != 5 {
		t.Fatalf("lower tail not clamped: got %v want 5", out[0])
	}
	if out[100] != 95 {
		t.Fatalf("upper tail not clamped: got %v want 95", out[100])
	}
	if out[50] != 50 {
		t.Fatalf("interior value modified: got %v", out[50])
	}
}

func TestWinsorizeIdempotent(t *testing.T) {
	x := make([]float64, 101)
	for i := range x {
		x[i] = float64(i * i)
	}
	once := Winsorize(x, 0.05)
	twice := Winsorize(once, 0.05)
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("winsorize not idempotent at %d: %v vs %v", i, once[i], twice[i])
		}
	}
}

func TestWinsorizePreservesNaN(t *testing.T) {
	x := []float64{1, math.NaN(), 2, 3, 4, 5, 6, 7, 8, 9, 10}
	out := Winsorize(x, 0.1)
	if !math.IsNaN(out[1]) {
		t.Fatalf("NaN entry must survive winsorizing, got %v", out[1])
	}
	if len(out) != len(x) {
		t.Fatalf("length changed: %d vs %d", len(out), len(x))
	}
}

func TestRollingZWarmup(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}
	out := RollingZ(x, 4)
	for i := 0; i < 3; i++ {
		if !math.IsNaN(out[i]) {
			t.Fatalf("bar %d should be undefined during warm-up, got %v", i, out[i])
		}
	}
	if math.IsNaN(out[3]) {
		t.Fatalf("bar 3 should be defined once the window fills")
	}
}

func TestRollingZValue(t *testing.T) {
	// window [1 2 3 4]: mean 2.5, population sd sqrt(1.25)
	x := []float64{1, 2, 3, 4}
	out := RollingZ(x, 4)
	want := (4 - 2.5) / math.Sqrt(1.25)
	if !almostEqual(out[3], want, 1e-12) {
		t.Fatalf("z-score mismatch: got %v want %v", out[3], want)
	}
}

func TestRollingZZeroVariance(t *testing.T) {
	flat := []float64{5, 5, 5, 5, 5}
	out := RollingZ(flat, 3)
	for i := 2; i < len(out); i++ {
		if out[i] != 0 {
			t.Fatalf("flat window should score 0, got %v at %d", out[i], i)
		}
		if math.IsInf(out[i], 0) {
			t.Fatalf("zero variance must never produce infinity")
		}
	}
}

func TestRollingZNaNContaminatesWindow(t *testing.T) {
	x := []float64{1, math.NaN(), 3, 4, 5}
	out := RollingZ(x, 3)
	// windows ending at 2 and 3 contain the NaN
	if !math.IsNaN(out[2]) || !math.IsNaN(out[3]) {
		t.Fatalf("windows containing NaN must be undefined, got %v %v", out[2], out[3])
	}
	if math.IsNaN(out[4]) {
		t.Fatalf("clean window after the NaN should be defined")
	}
}

func TestEMASeededByFirstObservation(t *testing.T) {
	x := []float64{10, 20, 30}
	out := EMA(x, 3) // alpha = 0.5
	if out[0] != 10 {
		t.Fatalf("ema seed should be the first observation, got %v", out[0])
	}
	if !almostEqual(out[1], 15, 1e-12) {
		t.Fatalf("ema[1] mismatch: got %v want 15", out[1])
	}
	if !almostEqual(out[2], 22.5, 1e-12) {
		t.Fatalf("ema[2] mismatch: got %v want 22.5", out[2])
	}
}

func TestTrueRangeFirstBar(t *testing.T) {
	high := []float64{12, 15}
	low := []float64{9, 11}
	close := []float64{10, 14}
	tr := TrueRange(high, low, close)
	if tr[0] != 3 {
		t.Fatalf("first bar uses high-low only, got %v", tr[0])
	}
	// bar 1: max(15-11, |15-10|, |11-10|) = 5
	if tr[1] != 5 {
		t.Fatalf("true range mismatch: got %v want 5", tr[1])
	}
}

func TestATRWarmupAndValue(t *testing.T) {
	high := []float64{11, 12, 13, 14}
	low := []float64{9, 10, 11, 12}
	close := []float64{10, 11, 12, 13}
	out := ATR(high, low, close, 3)
	if !math.IsNaN(out[0]) || !math.IsNaN(out[1]) {
		t.Fatalf("atr must be undefined before a full window")
	}
	// tr = [2 2 2 2], rolling mean of 3 = 2
	if !almostEqual(out[2], 2, 1e-12) || !almostEqual(out[3], 2, 1e-12) {
		t.Fatalf("atr mismatch: got %v %v want 2", out[2], out[3])
	}
}

func TestQuantileInterpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	if got := Quantile(sorted, 0.5); !almostEqual(got, 2.5, 1e-12) {
		t.Fatalf("median mismatch: got %v", got)
	}
	if got := Quantile(sorted, 0); got != 1 {
		t.Fatalf("q=0 should be the minimum, got %v", got)
	}
	if got := Quantile(sorted, 1); got != 4 {
		t.Fatalf("q=1 should be the maximum, got %v", got)
	}
	if got := Quantile(sorted, 0.25); !almostEqual(got, 1.75, 1e-12) {
		t.Fatalf("q=0.25 mismatch: got %v want 1.75", got)
	}
}

func TestLogReturns(t *testing.T) {
	price := []float64{100, 110, 0, 105}
	out := LogReturns(price)
	if !math.IsNaN(out[0]) {
		t.Fatalf("first log return must be undefined")
	}
	if !almostEqual(out[1], math.Log(1.1), 1e-12) {
		t.Fatalf("log return mismatch: got %v", out[1])
	}
	if !math.IsNaN(out[2]) || !math.IsNaN(out[3]) {
		t.Fatalf("non-positive price must yield undefined returns")
	}
}

func TestDiff(t *testing.T) {
	out := Diff([]float64{3, 5, 4})
	if !math.IsNaN(out[0]) {
		t.Fatalf("diff[0] must be undefined")
	}
	if out[1] != 2 || out[2] != -1 {
		t.Fatalf("diff mismatch: %v", out)
	}
}

func TestSign(t *testing.T) {
	if Sign(2) != 1 || Sign(-0.5) != -1 || Sign(0) != 0 {
		t.Fatalf("sign mismatch")
	}
	if !math.IsNaN(Sign(math.NaN())) {
		t.Fatalf("sign of NaN must stay NaN")
	}
}
