package engine

import (
	"github.com/spektr-org/tally/parser"
)

// ============================================================================
// TALLY ENGINE TYPES
// ============================================================================
// Row       - raw store row, any schema version
// Aggregate - per-metric totals/averages for one location and window
// ComparisonResult - two Aggregates plus percent change per metric
// Request/Response - the request contract the CLI and server speak
// ============================================================================

// ============================================================================
// ROW - Raw store row
// ============================================================================

// Row is one submitted stats row as read from the store.
// Keys may be any historical column name: "Total Attendance",
// "total_attendance" and "attendance" all address the same metric.
type Row map[string]string

// ============================================================================
// AGGREGATE - Per-metric rollup
// ============================================================================

// MetricAggregate is the rollup of one metric.
// Count is the number of non-zero samples; Average is over those samples.
type MetricAggregate struct {
	Key     string  `json:"key"`
	Label   string  `json:"label"`
	Total   int     `json:"total"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Aggregate is the rollup of every catalog metric for one location and window.
type Aggregate struct {
	LocationID   string            `json:"location_id"`
	LocationName string            `json:"location_name"`
	Window       parser.TimeWindow `json:"window"`
	Metrics      []MetricAggregate `json:"metrics"`
	EntryCount   int               `json:"entry_count"`
}

// Metric returns the rollup for key, zero-valued when absent.
func (a Aggregate) Metric(key string) MetricAggregate {
	for _, m := range a.Metrics {
		if m.Key == key {
			return m
		}
	}
	return MetricAggregate{Key: key, Label: key}
}

// Totals returns metric key -> total.
func (a Aggregate) Totals() map[string]int {
	out := make(map[string]int, len(a.Metrics))
	for _, m := range a.Metrics {
		out[m.Key] = m.Total
	}
	return out
}

// Empty reports whether no record contributed a non-zero value.
func (a Aggregate) Empty() bool { return a.EntryCount == 0 }

// ============================================================================
// COMPARISON
// ============================================================================

// ComparisonResult pairs two Aggregates that share the same metric keys.
type ComparisonResult struct {
	Context        string             `json:"context"` // "period" or "location"
	Metric         string             `json:"metric,omitempty"`
	Base           Aggregate          `json:"base"`
	Current        Aggregate          `json:"current"`
	PercentChanges map[string]float64 `json:"percent_changes"`
}

// ============================================================================
// REPORT
// ============================================================================

// ReportRow is one flat line of a report.
type ReportRow struct {
	Key      string  `json:"key"`
	Label    string  `json:"label"`
	Total    int     `json:"total"`
	Average  float64 `json:"average"`
	Count    int     `json:"count"`
	Year     int     `json:"year"`
	Location string  `json:"location,omitempty"`
	Period   string  `json:"period,omitempty"`
}

// ============================================================================
// REQUEST / RESPONSE
// ============================================================================

// Request is one utterance from the presentation layer.
type Request struct {
	Text         string `json:"text"`
	LocationHint string `json:"location_hint,omitempty"`
	CallerRole   string `json:"caller_role,omitempty"`
}

// Response is the engine's render-ready answer. Text is always set.
type Response struct {
	Text   string      `json:"text"`
	Intent parser.Kind `json:"intent"`
	Stage  string      `json:"stage,omitempty"`
	Sub    string      `json:"sub,omitempty"`

	Location     string             `json:"location,omitempty"`
	LocationName string             `json:"location_name,omitempty"`
	Window       *parser.TimeWindow `json:"window,omitempty"`

	// Queries
	Report []ReportRow `json:"report,omitempty"`
	Stats  *Aggregate  `json:"stats,omitempty"`

	// Comparisons
	Comparison     bool               `json:"comparison,omitempty"`
	Reports        []Aggregate        `json:"reports,omitempty"`
	PercentChanges map[string]float64 `json:"percent_changes,omitempty"`

	// Logs
	Extracted          map[string]int `json:"extracted,omitempty"`
	MissingSuggestions []string       `json:"missing_suggestions,omitempty"`
	RecordID           string         `json:"record_id,omitempty"`

	// Guidance and clarification
	Suggestions        []string `json:"suggestions,omitempty"`
	NeedsClarification bool     `json:"needs_clarification,omitempty"`

	// Presentation
	Table     *TableData   `json:"table,omitempty"`
	Chart     *ChartConfig `json:"chart,omitempty"`
	Narrative string       `json:"narrative,omitempty"`
}

// ============================================================================
// GROUP - Intermediate breakdown result
// ============================================================================

// Group is one bucket of a breakdown (per location or per month).
type Group struct {
	Key   string     `json:"key"`
	Label string     `json:"label"`
	Value float64    `json:"value"`
	Count int        `json:"count"`
	View  RecordView `json:"-"`
}

// ============================================================================
// CHART TYPES
// ============================================================================

// ChartConfig defines how to render a chart.
type ChartConfig struct {
	ChartType  string        `json:"chartType"`
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis,omitempty"`
	YAxis      string        `json:"yAxis,omitempty"`
	Series     []ChartSeries `json:"series"`
	Colors     []string      `json:"colors,omitempty"`
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name  string       `json:"name"`
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint represents a single data point.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ============================================================================
// TABLE TYPES
// ============================================================================

// TableData defines how to render a table.
type TableData struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Summary *Summary   `json:"summary,omitempty"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number", "currency"
	Align string `json:"align"` // "left", "center", "right"
}

// Summary provides totals for a table.
type Summary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}
