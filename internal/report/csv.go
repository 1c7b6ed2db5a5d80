package report

import (
	"math"
	"strconv"
	"strings"
	"time"

	"quantsig/internal/store"
)

// CSVOptions 控制 CSV 数据行的时间格式与精度。
type CSVOptions struct {
	DateOnly       bool
	Location       *time.Location
	PricePrecision int
}

const (
	// PrecisionAuto 根据价格区间自动决定精度。
	PrecisionAuto = math.MinInt32
	// PrecisionRaw 保留原始精度（等价于 strconv.FormatFloat(..., -1, 64)）
	PrecisionRaw = -1
)

// BuildSignalCSV 生成信号序列的 CSV 文本，首行为列头。
// 未定义的数值（NaN）输出为空字段。
func BuildSignalCSV(recs []store.SignalRecord, opts CSVOptions) string {
	if len(recs) == 0 {
		return ""
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	precision := opts.PricePrecision
	if precision == PrecisionAuto {
		precision = autoPrecision(recs)
	}
	header := "Time"
	if opts.DateOnly {
		header = "Date"
	}
	var b strings.Builder
	b.WriteString(header + ",Price,S,SStar,QHi,QLo,Trend,Long,Short,EntryLong,EntryShort,SLLong,SLShort,TrailDist,Size\n")
	for _, rec := range recs {
		ts := time.UnixMilli(rec.OpenTime).In(loc)
		label := ts.Format("01-02 15:04")
		if opts.DateOnly {
			label = ts.Format("06-01-02")
		}
		r := rec.Row
		cols := []string{
			label,
			formatPrice(r.Price, precision),
			formatValue(r.S),
			formatValue(r.SStar),
			formatValue(r.QHi),
			formatValue(r.QLo),
			formatValue(r.Trend),
			strconv.Itoa(r.LongSignal),
			strconv.Itoa(r.ShortSignal),
			formatPrice(r.EntryLong, precision),
			formatPrice(r.EntryShort, precision),
			formatPrice(r.SLLong, precision),
			formatPrice(r.SLShort, precision),
			formatValue(r.TrailDist),
			formatValue(r.Size),
		}
		b.WriteString(strings.Join(cols, ","))
		b.WriteByte('\n')
	}
	return b.String()
}

func autoPrecision(recs []store.SignalRecord) int {
	maxVal := 0.0
	for _, rec := range recs {
		abs := math.Abs(rec.Row.Price)
		if abs > maxVal {
			maxVal = abs
		}
	}
	switch {
	case maxVal >= 1000:
		return 1
	case maxVal >= 100:
		return 2
	default:
		return PrecisionRaw
	}
}

func formatPrice(value float64, precision int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return ""
	}
	if precision == PrecisionRaw {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	s := strconv.FormatFloat(value, 'f', precision, 64)
	if precision > 0 {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}

func formatValue(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return ""
	}
	return strconv.FormatFloat(math.Round(value*10000)/10000, 'f', -1, 64)
}
