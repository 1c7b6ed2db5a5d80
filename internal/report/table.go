package report

import (
	"fmt"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"quantsig/internal/service"
)

// SummaryTable 将各 symbol 的最新信号渲染成终端表格。
func SummaryTable(snaps []*service.Snapshot) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatUpper
	t.AppendHeader(table.Row{"Symbol", "Price", "S*", "Trend", "Signal", "Entry", "Stop", "Size", "P(Up)"})
	for _, snap := range snaps {
		r := snap.Latest.Row
		signalCell := "-"
		entry := math.NaN()
		stop := math.NaN()
		switch {
		case r.LongSignal == 1:
			signalCell = "LONG"
			entry = r.EntryLong
			stop = r.SLLong
		case r.ShortSignal == 1:
			signalCell = "SHORT"
			entry = r.EntryShort
			stop = r.SLShort
		}
		probUp := ""
		if snap.Forecast != nil {
			probUp = fmt.Sprintf("%.1f%%", snap.Forecast.ProbUp*100)
		}
		t.AppendRow(table.Row{
			snap.Symbol,
			cell(r.Price, 2),
			cell(r.SStar, 4),
			trendCell(r.Trend),
			signalCell,
			cell(entry, 2),
			cell(stop, 2),
			cell(r.Size, 6),
			probUp,
		})
	}
	return t.Render()
}

func cell(v float64, prec int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return fmt.Sprintf("%.*f", prec, v)
}

func trendCell(v float64) string {
	switch {
	case v > 0:
		return "up"
	case v < 0:
		return "down"
	case v == 0:
		return "flat"
	default:
		return "-"
	}
}
