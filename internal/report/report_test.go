package report

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"quantsig/internal/analysis/signal"
	"quantsig/internal/service"
	"quantsig/internal/store"
)

func sampleRecords() []store.SignalRecord {
	return []store.SignalRecord{
		{OpenTime: 1_700_000_000_000, Row: signal.Row{Price: 42000.5, S: math.NaN(), Size: 0}},
		{OpenTime: 1_700_003_600_000, Row: signal.Row{
			Price: 42110.2, S: 0.8, SStar: 0.92, QHi: 0.7, QLo: -0.6, Trend: 1,
			LongSignal: 1, EntryLong: 42130.1, SLLong: 41900.4, TrailDist: 210.3, Size: 0.031,
		}},
	}
}

func TestBuildSignalCSV(t *testing.T) {
	out := BuildSignalCSV(sampleRecords(), CSVOptions{PricePrecision: PrecisionAuto})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Time,Price,S,SStar") {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	// NaN renders as an empty field, not "NaN"
	if strings.Contains(out, "NaN") {
		t.Fatalf("NaN leaked into CSV: %q", out)
	}
	// prices >= 1000 are trimmed to 1 decimal
	if !strings.Contains(lines[2], "42110.2") {
		t.Fatalf("price precision mismatch: %q", lines[2])
	}
}

func TestBuildSignalCSVEmpty(t *testing.T) {
	if out := BuildSignalCSV(nil, CSVOptions{}); out != "" {
		t.Fatalf("empty input must produce empty output, got %q", out)
	}
}

func testSnapshot() *service.Snapshot {
	recs := sampleRecords()
	return &service.Snapshot{
		Symbol:    "BTCUSDT",
		Interval:  "1h",
		UpdatedAt: time.UnixMilli(1_700_003_600_000),
		Rows:      recs,
		Latest:    recs[len(recs)-1],
	}
}

func TestSummaryTable(t *testing.T) {
	out := SummaryTable([]*service.Snapshot{testSnapshot()})
	if !strings.Contains(out, "BTCUSDT") || !strings.Contains(out, "LONG") {
		t.Fatalf("table missing expected cells:\n%s", out)
	}
	if !strings.Contains(out, "42110.20") {
		t.Fatalf("table missing price:\n%s", out)
	}
}

func TestRenderDashboard(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderDashboard(&buf, []*service.Snapshot{testSnapshot()}); err != nil {
		t.Fatalf("render: %v", err)
	}
	html := buf.String()
	if !strings.Contains(html, "s_star") || !strings.Contains(html, "q_hi") {
		t.Fatalf("rendered page missing series names")
	}
	// undefined values must become null in the chart payload
	if strings.Contains(html, "NaN") {
		t.Fatalf("NaN leaked into chart HTML")
	}
}
