package engine

import (
	"testing"
	"time"

	"github.com/spektr-org/tally/catalog"
	"github.com/spektr-org/tally/parser"
)

// ============================================================================
// VIEW / FILTER TESTS
// ============================================================================

var march2024 = parser.TimeWindow{
	Start: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
	Label: "March 2024",
}

func TestNormalizeKey(t *testing.T) {
	tests := map[string]string{
		"Total Attendance":    "total_attendance",
		"  first-time guests": "first_time_guests",
		"Kids' Church":        "kids_church",
		"tithe":               "tithe",
		"":                    "",
	}
	for in, want := range tests {
		if got := NormalizeKey(in); got != want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRowViewFirstNonBlankWins(t *testing.T) {
	view := NewRowView([]Row{{"Total Attendance": " ", "total_attendance": "42"}})
	meta, _ := catalog.DefaultMetrics().Get("total_attendance")
	if got := MetricValue(view, 0, meta); got != 42 {
		t.Errorf("MetricValue = %d, want 42", got)
	}
}

func TestRowViewDuplicateColumnsAreStable(t *testing.T) {
	row := Row{"total_attendance": "42", "Total Attendance": "40", "total-attendance": "44"}
	meta, _ := catalog.DefaultMetrics().Get("total_attendance")

	// "Total Attendance" sorts first of the three raw keys.
	for i := 0; i < 50; i++ {
		view := NewRowView([]Row{row})
		if got := MetricValue(view, 0, meta); got != 40 {
			t.Fatalf("run %d: MetricValue = %d, want 40", i, got)
		}
	}

	view := NewRowView([]Row{{"b": "1", "a": "2", "c": "3"}})
	if keys := view.Keys(); len(keys) != 3 || keys[0] != "a" || keys[2] != "c" {
		t.Errorf("Keys() = %v, want sorted", keys)
	}
}

func TestAliasesReadInOrder(t *testing.T) {
	metrics := catalog.DefaultMetrics()
	meta, _ := metrics.Get("first_time_visitors")

	tests := []struct {
		row  Row
		want int
	}{
		{Row{"first_time_visitors": "7"}, 7},
		{Row{"New People": "4"}, 4},
		{Row{"new_people": "", "guests": "3"}, 3},
		{Row{"first_time_visitors": "7", "new_people": "99"}, 7},
		{Row{"visitors": "n/a"}, 0},
		{Row{}, 0},
	}
	for i, tt := range tests {
		view := NewRowView([]Row{tt.row})
		if got := MetricValue(view, 0, meta); got != tt.want {
			t.Errorf("case %d: MetricValue = %d, want %d", i, got, tt.want)
		}
	}
}

func TestCoerceInt(t *testing.T) {
	tests := map[string]int{
		"145":       145,
		" 1,250 ":   1250,
		"$3,400.50": 3401,
		"12.4":      12,
		"":          0,
		"none":      0,
	}
	for in, want := range tests {
		if got := CoerceInt(in); got != want {
			t.Errorf("CoerceInt(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestLocationFilterMatch(t *testing.T) {
	locs := testLocations(t)

	south := NewLocationFilter(locs, "south")
	for _, raw := range []string{"south", "South Campus", "SOUTH-CAMPUS", "South"} {
		if !south.Match(raw) {
			t.Errorf("south should match %q", raw)
		}
	}
	for _, raw := range []string{"", "Barker Road", "Southampton"} {
		if south.Match(raw) {
			t.Errorf("south should not match %q", raw)
		}
	}

	all := NewLocationFilter(locs, locs.AggregateID())
	for _, raw := range []string{"Barker Road", "salisbury", "south"} {
		if !all.Match(raw) {
			t.Errorf("aggregate should match %q", raw)
		}
	}
	if all.Match("Mars Campus") {
		t.Error("aggregate should not match an unknown campus")
	}
}

func TestApplyFiltersWindowInclusive(t *testing.T) {
	view := NewRowView([]Row{
		{"location": "south", "timestamp": "2024-03-01", "total_attendance": "1"},
		{"location": "south", "timestamp": "2024-03-31T23:59:00Z", "total_attendance": "2"},
		{"location": "south", "timestamp": "2024-04-01", "total_attendance": "4"},
		{"location": "south", "timestamp": "2024-02-29", "total_attendance": "8"},
		{"location": "barker", "timestamp": "2024-03-05", "total_attendance": "16"},
	})
	filtered := ApplyFilters(view, NewLocationFilter(testLocations(t), "south"), march2024, ExcludeUndated)
	if filtered.Len() != 2 {
		t.Fatalf("filtered = %d rows, want 2", filtered.Len())
	}
}

// ============================================================================
// AGGREGATION TESTS
// ============================================================================

func TestComputeAggregate(t *testing.T) {
	view := NewRowView([]Row{
		{"attendance": "100", "salvations": "2"},
		{"attendance": "0"},
		{"attendance": "200", "tithe": "$1,000"},
		{"notes": "snow day"},
	})
	agg := ComputeAggregate(view, catalog.DefaultMetrics(), "south", "South Campus", march2024)

	att := agg.Metric("total_attendance")
	if att.Total != 300 || att.Average != 150 || att.Count != 2 {
		t.Errorf("attendance = %+v, want total 300, average 150, count 2", att)
	}
	if got := agg.Metric("new_christians"); got.Total != 2 || got.Average != 2 {
		t.Errorf("new christians = %+v", got)
	}
	if got := agg.Metric("tithe").Total; got != 1000 {
		t.Errorf("tithe = %d, want 1000", got)
	}
	if agg.EntryCount != 2 {
		t.Errorf("EntryCount = %d, want 2", agg.EntryCount)
	}
	if agg.Metrics[0].Key != "total_attendance" {
		t.Errorf("metrics must follow catalog order, first = %s", agg.Metrics[0].Key)
	}
}

// Total equals the sum of values; average is total over non-zero samples.
func TestAggregationLaw(t *testing.T) {
	values := []string{"5", "0", "17", "", "3", "garbage", "25"}
	rows := make([]Row, len(values))
	sum, samples := 0, 0
	for i, v := range values {
		rows[i] = Row{"total_attendance": v}
		if n := CoerceInt(v); n > 0 {
			sum += n
			samples++
		}
	}

	agg := ComputeAggregate(NewRowView(rows), catalog.DefaultMetrics(), "south", "South Campus", march2024)
	m := agg.Metric("total_attendance")
	if m.Total != sum {
		t.Errorf("total = %d, want %d", m.Total, sum)
	}
	if m.Count != samples {
		t.Errorf("count = %d, want %d", m.Count, samples)
	}
	if want := float64(sum) / float64(samples); m.Average != want {
		t.Errorf("average = %v, want %v", m.Average, want)
	}
}

func TestComputeAggregateEmpty(t *testing.T) {
	agg := ComputeAggregate(NewRowView(nil), catalog.DefaultMetrics(), "barker", "Barker Road", march2024)
	if !agg.Empty() {
		t.Error("empty view should give an empty aggregate")
	}
	if len(agg.Metrics) != catalog.DefaultMetrics().Len() {
		t.Errorf("metrics = %d, want zero-filled catalog", len(agg.Metrics))
	}
	for _, total := range agg.Totals() {
		if total != 0 {
			t.Fatalf("totals = %v, want zeros", agg.Totals())
		}
	}
}

func TestGroupAndAggregateByMonth(t *testing.T) {
	view := NewRowView([]Row{
		{"timestamp": "2024-05-05", "total_attendance": "130"},
		{"timestamp": "2024-04-07", "total_attendance": "120"},
		{"timestamp": "2024-05-12", "total_attendance": "10"},
		{"total_attendance": "999"},
	})
	meta, _ := catalog.DefaultMetrics().Get("total_attendance")
	groups := GroupAndAggregate(view, DimensionMonth, meta, "chronological")

	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2 (undated rows have no month)", len(groups))
	}
	if groups[0].Key != "Apr-2024" || groups[0].Value != 120 {
		t.Errorf("first group = %+v", groups[0])
	}
	if groups[1].Key != "May-2024" || groups[1].Value != 140 || groups[1].Count != 2 {
		t.Errorf("second group = %+v", groups[1])
	}
}

func TestSortGroups(t *testing.T) {
	groups := []Group{{Key: "b", Value: 2}, {Key: "a", Value: 3}, {Key: "c", Value: 1}}

	SortGroups(groups, "value_desc")
	if groups[0].Key != "a" || groups[2].Key != "c" {
		t.Errorf("value_desc = %v", groups)
	}
	SortGroups(groups, "label_asc")
	if groups[0].Key != "a" || groups[1].Key != "b" {
		t.Errorf("label_asc = %v", groups)
	}
}

func TestFormatting(t *testing.T) {
	if got := FormatInt(1234567); got != "1,234,567" {
		t.Errorf("FormatInt = %q", got)
	}
	if got := FormatInt(-1200); got != "-1,200" {
		t.Errorf("FormatInt negative = %q", got)
	}
	if got := FormatCurrency(1250, "$"); got != "$1,250.00" {
		t.Errorf("FormatCurrency symbol = %q", got)
	}
	if got := FormatCurrency(99.5, "USD"); got != "USD 99.50" {
		t.Errorf("FormatCurrency code = %q", got)
	}
	if got := ParseMonthOrder("Mar-2024"); got != 202403 {
		t.Errorf("ParseMonthOrder = %d", got)
	}
}
