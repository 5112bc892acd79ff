package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/spektr-org/tally/catalog"
	"github.com/spektr-org/tally/parser"
)

// ============================================================================
// TEXT BUILDER - One templated sentence per answer
// ============================================================================
// Sentences only restate numbers already in the Aggregate or
// ComparisonResult. Anything longer belongs to the Narrator.
// ============================================================================

// summaryLimit caps how many metrics a summary sentence lists.
const summaryLimit = 4

// PeriodPhrase renders a window for use after a location name.
func PeriodPhrase(w parser.TimeWindow) string {
	if w.IsDefault() {
		return fmt.Sprintf("over the last %d days", parser.DefaultTrailingDays)
	}
	return "for " + w.Label
}

// NoDataSentence is the answer for an empty window.
func NoDataSentence(locationName string, w parser.TimeWindow) string {
	return fmt.Sprintf("No data found for %s %s.", locationName, PeriodPhrase(w))
}

// SummarySentence describes an Aggregate. A non-empty focus metric is
// described alone, with its average when wantAverage is set.
func SummarySentence(agg Aggregate, focus string, wantAverage bool) string {
	if agg.Empty() {
		return NoDataSentence(agg.LocationName, agg.Window)
	}

	if focus != "" {
		m := agg.Metric(focus)
		if m.Count == 0 {
			return fmt.Sprintf("No %s recorded for %s %s.", m.Label, agg.LocationName, PeriodPhrase(agg.Window))
		}
		if wantAverage {
			return fmt.Sprintf("%s averaged %s %s %s (total %s across %s).",
				agg.LocationName, formatAverage(m), m.Label, PeriodPhrase(agg.Window),
				formatMetric(m.Key, m.Total), plural(m.Count, "entry", "entries"))
		}
		return fmt.Sprintf("%s had %s %s %s across %s.",
			agg.LocationName, formatMetric(m.Key, m.Total), m.Label, PeriodPhrase(agg.Window),
			plural(m.Count, "entry", "entries"))
	}

	var parts []string
	for _, m := range agg.Metrics {
		if m.Total == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s", formatMetric(m.Key, m.Total), m.Label))
		if len(parts) == summaryLimit {
			break
		}
	}
	return fmt.Sprintf("%s %s: %s across %s.",
		agg.LocationName, PeriodPhrase(agg.Window), strings.Join(parts, ", "),
		plural(agg.EntryCount, "entry", "entries"))
}

// ComparisonSentence describes a ComparisonResult for its focus metric, or
// for the first metric with data when none was named.
func ComparisonSentence(cmp ComparisonResult) string {
	if cmp.Base.Empty() && cmp.Current.Empty() {
		baseLabel, currentLabel := sideLabels(cmp)
		return fmt.Sprintf("No data found for %s or %s.", baseLabel, currentLabel)
	}

	if len(cmp.Base.Metrics) == 0 {
		return "Nothing to compare."
	}

	idx := 0
	if cmp.Metric == "" {
		for i := range cmp.Current.Metrics {
			if cmp.Current.Metrics[i].Total != 0 || cmp.Base.Metrics[i].Total != 0 {
				idx = i
				break
			}
		}
	}
	b, c := cmp.Base.Metrics[idx], cmp.Current.Metrics[idx]
	baseLabel, currentLabel := sideLabels(cmp)
	subject := c.Label
	if cmp.Context == ComparePeriods {
		subject = fmt.Sprintf("%s at %s", c.Label, cmp.Current.LocationName)
	}
	return fmt.Sprintf("%s: %s %s vs %s %s (%s).",
		subject,
		currentLabel, formatMetric(c.Key, c.Total),
		baseLabel, formatMetric(b.Key, b.Total),
		FormatChange(cmp.PercentChanges[c.Key]))
}

// FormatChange renders a percent change with a direction arrow.
func FormatChange(pct float64) string {
	switch {
	case pct > 0.5:
		return fmt.Sprintf("↑ %.1f%%", pct)
	case pct < -0.5:
		return fmt.Sprintf("↓ %.1f%%", math.Abs(pct))
	default:
		return "→ No change"
	}
}

// LogSentence confirms a logged submission in catalog order.
func LogSentence(locationName string, extracted map[string]int, metrics *catalog.MetricCatalog) string {
	var parts []string
	for _, key := range metrics.Keys() {
		if v, ok := extracted[key]; ok {
			parts = append(parts, fmt.Sprintf("%s %s", formatMetric(key, v), metrics.Label(key)))
		}
	}
	if locationName == "" {
		return fmt.Sprintf("Got %s.", strings.Join(parts, ", "))
	}
	return fmt.Sprintf("Got it. %s: %s.", locationName, strings.Join(parts, ", "))
}

// MissingSuggestions lists core metrics a log did not mention.
func MissingSuggestions(extracted map[string]int, metrics *catalog.MetricCatalog) []string {
	var out []string
	for _, m := range metrics.Core() {
		if _, ok := extracted[m.Key]; !ok {
			out = append(out, m.DisplayName)
		}
	}
	return out
}

var guidanceTemplates = []string{
	"%s had 145 people, 8 new visitors, 3 salvations",
	"attendance was 212 at %s",
	"25 youth and 5 new youth",
	"40 kids, 30 volunteers",
	"$1,250 in tithes",
}

// GuidanceExamples returns sample log phrasings naming location.
func GuidanceExamples(location string) []string {
	out := make([]string, len(guidanceTemplates))
	for i, tpl := range guidanceTemplates {
		if strings.Contains(tpl, "%s") {
			out[i] = fmt.Sprintf(tpl, location)
		} else {
			out[i] = tpl
		}
	}
	return out
}

// GuidanceSentence tells the caller how to phrase a log.
func GuidanceSentence(metrics *catalog.MetricCatalog, location string) string {
	var names []string
	for _, m := range metrics.Core() {
		names = append(names, m.DisplayName)
	}
	return fmt.Sprintf("Just say the numbers with the campus, for example \"%s\". I track %s and more.",
		GuidanceExamples(location)[0], strings.Join(names, ", "))
}

func formatAverage(m MetricAggregate) string {
	if currencyMetrics[m.Key] {
		return FormatCurrency(m.Average, "$")
	}
	if m.Average == math.Trunc(m.Average) {
		return FormatInt(int(m.Average))
	}
	return fmt.Sprintf("%.1f", m.Average)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%s %s", FormatInt(n), many)
}
