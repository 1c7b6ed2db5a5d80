package report

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"quantsig/internal/service"
	"quantsig/internal/store"
)

// RenderDashboard 将所有 symbol 的价格与信号曲线渲染为单页 HTML。
func RenderDashboard(w io.Writer, snaps []*service.Snapshot) error {
	page := components.NewPage()
	page.PageTitle = "quantsig dashboard"
	for _, snap := range snaps {
		page.AddCharts(priceChart(snap), scoreChart(snap))
	}
	return page.Render(w)
}

// RenderSymbol 渲染单个 symbol 的两张图。
func RenderSymbol(w io.Writer, snap *service.Snapshot) error {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("quantsig %s", snap.Symbol)
	page.AddCharts(priceChart(snap), scoreChart(snap))
	return page.Render(w)
}

func priceChart(snap *service.Snapshot) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s %s 价格与挂单位", snap.Symbol, snap.Interval),
			Subtitle: fmt.Sprintf("更新于 %s", snap.UpdatedAt.Format("01-02 15:04:05")),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(timeLabels(snap.Rows)).
		AddSeries("price", lineData(snap.Rows, func(r store.SignalRecord) float64 { return r.Row.Price })).
		AddSeries("entry_long", lineData(snap.Rows, func(r store.SignalRecord) float64 { return r.Row.EntryLong })).
		AddSeries("entry_short", lineData(snap.Rows, func(r store.SignalRecord) float64 { return r.Row.EntryShort }))
	return line
}

func scoreChart(snap *service.Snapshot) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s 信号分数与自适应阈值", snap.Symbol),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(timeLabels(snap.Rows)).
		AddSeries("s_star", lineData(snap.Rows, func(r store.SignalRecord) float64 { return r.Row.SStar })).
		AddSeries("q_hi", lineData(snap.Rows, func(r store.SignalRecord) float64 { return r.Row.QHi })).
		AddSeries("q_lo", lineData(snap.Rows, func(r store.SignalRecord) float64 { return r.Row.QLo }))
	return line
}

func timeLabels(recs []store.SignalRecord) []string {
	out := make([]string, len(recs))
	for i, rec := range recs {
		out[i] = time.UnixMilli(rec.OpenTime).UTC().Format("01-02 15:04")
	}
	return out
}

// lineData 把 NaN 转成 null，echarts 会跳过这些点而不是画出断崖。
func lineData(recs []store.SignalRecord, pick func(store.SignalRecord) float64) []opts.LineData {
	out := make([]opts.LineData, len(recs))
	for i, rec := range recs {
		v := pick(rec)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = opts.LineData{Value: nil}
			continue
		}
		out[i] = opts.LineData{Value: math.Round(v*10000) / 10000}
	}
	return out
}
