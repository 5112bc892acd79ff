package engine

import (
	"strings"
	"testing"

	"github.com/spektr-org/tally/parser"
)

// ============================================================================
// COMPARISON TESTS
// ============================================================================

func TestPercentChange(t *testing.T) {
	tests := []struct {
		base, current int
		want          float64
	}{
		{0, 0, 0},
		{0, 25, 100},
		{40, 0, -100},
		{100, 150, 50},
		{200, 150, -25},
		{-50, 50, 200},
	}
	for _, tt := range tests {
		if got := PercentChange(tt.base, tt.current); got != tt.want {
			t.Errorf("PercentChange(%d, %d) = %v, want %v", tt.base, tt.current, got, tt.want)
		}
	}
}

func makeAggregate(id string, window parser.TimeWindow, totals ...MetricAggregate) Aggregate {
	a := Aggregate{LocationID: id, LocationName: id, Window: window, Metrics: totals}
	for _, m := range totals {
		if m.Total != 0 {
			a.EntryCount = 1
		}
	}
	return a
}

func TestCompareUnionZeroFills(t *testing.T) {
	base := makeAggregate("south", march2024,
		MetricAggregate{Key: "total_attendance", Label: "Total Attendance", Total: 100},
		MetricAggregate{Key: "baptisms", Label: "Baptisms", Total: 4})
	current := makeAggregate("south", march2024,
		MetricAggregate{Key: "total_attendance", Label: "Total Attendance", Total: 120},
		MetricAggregate{Key: "tithe", Label: "Tithe", Total: 900})

	cmp := Compare(ComparePeriods, base, current, "")

	var baseKeys, currentKeys []string
	for i := range cmp.Base.Metrics {
		baseKeys = append(baseKeys, cmp.Base.Metrics[i].Key)
		currentKeys = append(currentKeys, cmp.Current.Metrics[i].Key)
	}
	if strings.Join(baseKeys, ",") != "total_attendance,baptisms,tithe" || strings.Join(baseKeys, ",") != strings.Join(currentKeys, ",") {
		t.Fatalf("keys = %v / %v", baseKeys, currentKeys)
	}
	if cmp.Current.Metric("baptisms").Label != "Baptisms" {
		t.Error("placeholder should carry the other side's label")
	}

	want := map[string]float64{"total_attendance": 20, "baptisms": -100, "tithe": 100}
	for k, v := range want {
		if cmp.PercentChanges[k] != v {
			t.Errorf("change[%s] = %v, want %v", k, cmp.PercentChanges[k], v)
		}
	}
}

func TestCompareNamedMetric(t *testing.T) {
	base := makeAggregate("south", march2024, MetricAggregate{Key: "total_attendance", Total: 300})
	current := makeAggregate("barker", march2024, MetricAggregate{Key: "total_attendance", Total: 0})

	cmp := Compare(CompareLocations, base, current, "total_attendance")
	if len(cmp.PercentChanges) != 1 || cmp.PercentChanges["total_attendance"] != -100 {
		t.Errorf("changes = %v", cmp.PercentChanges)
	}
	if len(cmp.Base.Metrics) != 1 || len(cmp.Current.Metrics) != 1 {
		t.Error("a named metric restricts both sides")
	}

	baseLabel, currentLabel := sideLabels(cmp)
	if baseLabel != "south" || currentLabel != "barker" {
		t.Errorf("labels = %s, %s", baseLabel, currentLabel)
	}
}

func TestCompareBothEmpty(t *testing.T) {
	base := makeAggregate("south", march2024, MetricAggregate{Key: "total_attendance"})
	current := makeAggregate("south", march2024, MetricAggregate{Key: "total_attendance"})

	cmp := Compare(ComparePeriods, base, current, "")
	if cmp.PercentChanges["total_attendance"] != 0 {
		t.Errorf("0 vs 0 = %v, want 0", cmp.PercentChanges["total_attendance"])
	}
	if BuildComparisonChart(cmp, "t") != nil {
		t.Error("an all-zero comparison has nothing to chart")
	}
	if !strings.HasPrefix(ComparisonSentence(cmp), "No data found") {
		t.Errorf("sentence = %q", ComparisonSentence(cmp))
	}
}
