package engine

import (
	"strings"
)

// ============================================================================
// CHART BUILDER - ChartConfig from breakdowns and comparisons
// ============================================================================

// Default color palette for chart series.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// BuildTrendChart charts breakdown groups as a single series.
// Month breakdowns render as a line, anything else as bars.
func BuildTrendChart(groups []Group, dimension string, metric MetricAggregate, title string) *ChartConfig {
	if len(groups) == 0 {
		return nil
	}

	chartType := "bar"
	if dimension == DimensionMonth {
		chartType = "line"
	}

	config := &ChartConfig{
		ChartType:  chartType,
		Title:      title,
		XAxis:      LabelForDimension(dimension),
		YAxis:      metric.Label,
		Series:     buildSingleSeries(groups, metric.Label),
		ShowLegend: false,
		ShowGrid:   true,
	}
	config.Colors = assignColors(len(config.Series))
	return config
}

// BuildComparisonChart charts both sides of a comparison as two series
// over the same metric labels. Metrics that are zero on both sides are
// left out unless the comparison was restricted to one metric.
func BuildComparisonChart(cmp ComparisonResult, title string) *ChartConfig {
	baseLabel, currentLabel := sideLabels(cmp)

	var basePoints, currentPoints []ChartPoint
	for i, b := range cmp.Base.Metrics {
		c := cmp.Current.Metrics[i]
		if cmp.Metric == "" && b.Total == 0 && c.Total == 0 {
			continue
		}
		basePoints = append(basePoints, ChartPoint{Label: b.Label, Value: float64(b.Total)})
		currentPoints = append(currentPoints, ChartPoint{Label: c.Label, Value: float64(c.Total)})
	}
	if len(basePoints) == 0 {
		return nil
	}

	config := &ChartConfig{
		ChartType: "bar",
		Title:     title,
		XAxis:     "Metric",
		YAxis:     "Total",
		Series: []ChartSeries{
			{Name: baseLabel, Data: basePoints, Color: defaultColors[0]},
			{Name: currentLabel, Data: currentPoints, Color: defaultColors[1]},
		},
		ShowLegend: true,
		ShowGrid:   true,
	}
	config.Colors = assignColors(len(config.Series))
	return config
}

// ============================================================================
// SERIES BUILDERS
// ============================================================================

func buildSingleSeries(groups []Group, seriesName string) []ChartSeries {
	if seriesName == "" {
		seriesName = "Value"
	}

	points := make([]ChartPoint, 0, len(groups))
	for _, g := range groups {
		points = append(points, ChartPoint{
			Label: g.Label,
			Value: RoundTo2(g.Value),
		})
	}

	return []ChartSeries{{
		Name: seriesName,
		Data: points,
	}}
}

func assignColors(count int) []string {
	colors := make([]string, count)
	for i := 0; i < count; i++ {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}

// LabelForDimension returns a capitalized label for a dimension.
func LabelForDimension(dimension string) string {
	if len(dimension) == 0 {
		return ""
	}
	return strings.ToUpper(dimension[:1]) + dimension[1:]
}
