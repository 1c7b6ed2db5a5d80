package signal

import (
	"math"
	"sort"

	"quantsig/internal/analysis/stats"
)

// quantileWindow keeps the defined values of a trailing window in sorted
// order so the per-bar quantiles cost one insert, one remove and an
// interpolated lookup instead of a full re-sort. The ring buffer remembers
// the raw values (including NaN) so evictions know what to drop.
type quantileWindow struct {
	size   int
	minCnt int

	ring   []float64
	head   int
	filled int

	sorted []float64
}

func newQuantileWindow(size int, minCoverage float64) *quantileWindow {
	minCnt := int(math.Ceil(minCoverage * float64(size)))
	if minCnt < 1 {
		minCnt = 1
	}
	return &quantileWindow{
		size:   size,
		minCnt: minCnt,
		ring:   make([]float64, size),
		sorted: make([]float64, 0, size),
	}
}

// Push appends the value for the current bar, evicting the bar that falls
// out of the trailing window.
func (w *quantileWindow) Push(v float64) {
	if w.filled == w.size {
		old := w.ring[w.head]
		if stats.Defined(old) {
			w.removeSorted(old)
		}
	} else {
		w.filled++
	}
	w.ring[w.head] = v
	w.head = (w.head + 1) % w.size
	if stats.Defined(v) {
		w.insertSorted(v)
	}
}

// Quantile returns the interpolated quantile over the defined values in the
// window, or NaN while coverage is below the minimum.
func (w *quantileWindow) Quantile(q float64) float64 {
	if len(w.sorted) < w.minCnt {
		return math.NaN()
	}
	return stats.Quantile(w.sorted, q)
}

func (w *quantileWindow) insertSorted(v float64) {
	i := sort.SearchFloat64s(w.sorted, v)
	w.sorted = append(w.sorted, 0)
	copy(w.sorted[i+1:], w.sorted[i:])
	w.sorted[i] = v
}

func (w *quantileWindow) removeSorted(v float64) {
	i := sort.SearchFloat64s(w.sorted, v)
	if i < len(w.sorted) && w.sorted[i] == v {
		w.sorted = append(w.sorted[:i], w.sorted[i+1:]...)
	}
}
