package engine

import (
	"strings"
	"testing"

	"github.com/spektr-org/tally/catalog"
	"github.com/spektr-org/tally/parser"
)

// ============================================================================
// REPORT / TEXT BUILDER TESTS
// ============================================================================

func sampleAggregate() Aggregate {
	view := NewRowView([]Row{
		{"total_attendance": "145", "first_time_visitors": "8", "tithe": "1250"},
		{"total_attendance": "155", "new_christians": "3"},
	})
	return ComputeAggregate(view, catalog.DefaultMetrics(), "south", "South Campus", march2024)
}

func TestBuildReportFollowsCatalogOrder(t *testing.T) {
	rows := BuildReport(sampleAggregate())
	keys := catalog.DefaultMetrics().Keys()
	if len(rows) != len(keys) {
		t.Fatalf("rows = %d, want %d", len(rows), len(keys))
	}
	for i, r := range rows {
		if r.Key != keys[i] {
			t.Fatalf("row %d = %s, want %s", i, r.Key, keys[i])
		}
	}
	if rows[0].Total != 300 || rows[0].Average != 150 || rows[0].Year != 2024 {
		t.Errorf("first row = %+v", rows[0])
	}
	if rows[0].Period != "March 2024" || rows[0].Location != "South Campus" {
		t.Errorf("first row context = %+v", rows[0])
	}
}

func TestSummarySentence(t *testing.T) {
	agg := sampleAggregate()

	got := SummarySentence(agg, "", false)
	if !strings.HasPrefix(got, "South Campus for March 2024: 300 Total Attendance") {
		t.Errorf("summary = %q", got)
	}
	if !strings.Contains(got, "across 2 entries") {
		t.Errorf("summary should count entries: %q", got)
	}

	got = SummarySentence(agg, "tithe", false)
	if !strings.Contains(got, "$1,250.00 Tithe") {
		t.Errorf("tithe summary = %q", got)
	}

	got = SummarySentence(agg, "baptisms", false)
	if !strings.HasPrefix(got, "No Baptisms recorded") {
		t.Errorf("missing metric summary = %q", got)
	}
}

func TestPeriodPhraseDefaultWindow(t *testing.T) {
	w := parser.ResolveWindow("attendance", fixedNow)
	if got := NoDataSentence("Salisbury", w); got != "No data found for Salisbury over the last 30 days." {
		t.Errorf("sentence = %q", got)
	}
}

func TestFormatChange(t *testing.T) {
	tests := map[float64]string{
		50:     "↑ 50.0%",
		-12.26: "↓ 12.3%",
		0:      "→ No change",
		0.3:    "→ No change",
	}
	for pct, want := range tests {
		if got := FormatChange(pct); got != want {
			t.Errorf("FormatChange(%v) = %q, want %q", pct, got, want)
		}
	}
}

func TestLogSentenceAndMissing(t *testing.T) {
	metrics := catalog.DefaultMetrics()
	extracted := map[string]int{"new_christians": 3, "total_attendance": 145}

	got := LogSentence("South Campus", extracted, metrics)
	if got != "Got it. South Campus: 145 Total Attendance, 3 New Christians." {
		t.Errorf("log sentence = %q", got)
	}

	missing := MissingSuggestions(extracted, metrics)
	for _, name := range missing {
		if name == "Total Attendance" || name == "New Christians" {
			t.Errorf("%s was logged, should not be suggested", name)
		}
	}
	if len(missing) != len(metrics.Core())-2 {
		t.Errorf("missing = %v", missing)
	}
}

func TestComparisonTable(t *testing.T) {
	base := makeAggregate("south", parser.TimeWindow{Label: "2023"},
		MetricAggregate{Key: "total_attendance", Label: "Total Attendance", Total: 90})
	current := makeAggregate("south", parser.TimeWindow{Label: "2024"},
		MetricAggregate{Key: "total_attendance", Label: "Total Attendance", Total: 180})
	cmp := Compare(ComparePeriods, base, current, "")

	table := BuildComparisonTable(cmp, "2024 vs 2023")
	if table.Columns[1].Label != "2023" || table.Columns[2].Label != "2024" {
		t.Errorf("columns = %+v", table.Columns)
	}
	if got := table.Rows[0]; got[1] != "90" || got[2] != "180" || got[3] != "↑ 100.0%" {
		t.Errorf("row = %v", got)
	}

	rows := BuildComparisonReport(cmp)
	if len(rows) != 2 || rows[0].Period != "2023" || rows[1].Period != "2024" {
		t.Errorf("comparison report = %+v", rows)
	}
}
