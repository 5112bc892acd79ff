package engine

import (
	"fmt"
)

// ============================================================================
// REPORT / TABLE BUILDER - Reshapes Aggregates, computes nothing new
// ============================================================================
// Rows follow the Aggregate's metric order, which is catalog order.
// ============================================================================

// currencyMetrics are rendered as money in tables and sentences.
var currencyMetrics = map[string]bool{"tithe": true}

// BuildReport flattens an Aggregate into report rows.
func BuildReport(agg Aggregate) []ReportRow {
	rows := make([]ReportRow, 0, len(agg.Metrics))
	for _, m := range agg.Metrics {
		rows = append(rows, ReportRow{
			Key:      m.Key,
			Label:    m.Label,
			Total:    m.Total,
			Average:  RoundTo2(m.Average),
			Count:    m.Count,
			Year:     agg.Window.Year(),
			Location: agg.LocationName,
			Period:   agg.Window.Label,
		})
	}
	return rows
}

// BuildComparisonReport flattens both sides, baseline rows first.
func BuildComparisonReport(cmp ComparisonResult) []ReportRow {
	rows := BuildReport(cmp.Base)
	return append(rows, BuildReport(cmp.Current)...)
}

// ============================================================================
// TABLES
// ============================================================================

// BuildReportTable renders one Aggregate as a metric table.
func BuildReportTable(agg Aggregate, title string) *TableData {
	columns := []Column{
		{Key: "metric", Label: "Metric", Type: "text", Align: "left"},
		{Key: "total", Label: "Total", Type: "number", Align: "right"},
		{Key: "average", Label: "Average", Type: "number", Align: "right"},
		{Key: "count", Label: "Entries", Type: "number", Align: "center"},
	}

	rows := make([][]string, 0, len(agg.Metrics))
	for _, m := range agg.Metrics {
		rows = append(rows, []string{
			m.Label,
			formatMetric(m.Key, m.Total),
			fmt.Sprintf("%.1f", m.Average),
			fmt.Sprintf("%d", m.Count),
		})
	}

	return &TableData{
		Title:   title,
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label: fmt.Sprintf("%s, %s", agg.LocationName, agg.Window.Label),
			Values: map[string]string{
				"count": fmt.Sprintf("%d", agg.EntryCount),
			},
		},
	}
}

// BuildComparisonTable renders both sides of a comparison side by side.
func BuildComparisonTable(cmp ComparisonResult, title string) *TableData {
	baseLabel, currentLabel := sideLabels(cmp)
	columns := []Column{
		{Key: "metric", Label: "Metric", Type: "text", Align: "left"},
		{Key: "base", Label: baseLabel, Type: "number", Align: "right"},
		{Key: "current", Label: currentLabel, Type: "number", Align: "right"},
		{Key: "change", Label: "Change", Type: "text", Align: "right"},
	}

	rows := make([][]string, 0, len(cmp.Base.Metrics))
	for i, b := range cmp.Base.Metrics {
		c := cmp.Current.Metrics[i]
		rows = append(rows, []string{
			b.Label,
			formatMetric(b.Key, b.Total),
			formatMetric(c.Key, c.Total),
			FormatChange(cmp.PercentChanges[b.Key]),
		})
	}

	return &TableData{
		Title:   title,
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label: "Entries",
			Values: map[string]string{
				"base":    fmt.Sprintf("%d", cmp.Base.EntryCount),
				"current": fmt.Sprintf("%d", cmp.Current.EntryCount),
			},
		},
	}
}

// BuildBreakdownTable renders breakdown groups for one metric.
func BuildBreakdownTable(groups []Group, dimensionLabel string, metric MetricAggregate, title string) *TableData {
	columns := []Column{
		{Key: "group", Label: dimensionLabel, Type: "text", Align: "left"},
		{Key: "value", Label: metric.Label, Type: "number", Align: "right"},
		{Key: "count", Label: "Entries", Type: "number", Align: "center"},
	}

	rows := make([][]string, 0, len(groups))
	var totalValue float64
	var totalCount int
	for _, g := range groups {
		rows = append(rows, []string{
			g.Label,
			formatMetric(metric.Key, int(g.Value)),
			fmt.Sprintf("%d", g.Count),
		})
		totalValue += g.Value
		totalCount += g.Count
	}

	return &TableData{
		Title:   title,
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label: "Total",
			Values: map[string]string{
				"value": formatMetric(metric.Key, int(totalValue)),
				"count": fmt.Sprintf("%d", totalCount),
			},
		},
	}
}

// sideLabels names the two comparison columns.
func sideLabels(cmp ComparisonResult) (string, string) {
	if cmp.Context == CompareLocations {
		return cmp.Base.LocationName, cmp.Current.LocationName
	}
	return cmp.Base.Window.Label, cmp.Current.Window.Label
}

func formatMetric(key string, total int) string {
	if currencyMetrics[key] {
		return FormatCurrency(float64(total), "$")
	}
	return FormatInt(total)
}
