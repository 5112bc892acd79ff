package engine

import (
	"math"
)

// ============================================================================
// COMPARISON ENGINE
// ============================================================================
// percent change per metric:
//   both totals 0         -> 0
//   baseline 0, other != 0 -> 100
//   otherwise             -> (new - old) / |old| * 100
// ============================================================================

// Comparison contexts.
const (
	ComparePeriods   = "period"
	CompareLocations = "location"
)

// PercentChange compares a baseline total with a current total.
func PercentChange(base, current int) float64 {
	switch {
	case base == 0 && current == 0:
		return 0
	case base == 0:
		return 100
	default:
		return float64(current-base) / math.Abs(float64(base)) * 100
	}
}

// Compare pairs two Aggregates. With a non-empty metric both sides are cut
// down to that metric; otherwise every key on either side is kept and the
// side missing it gets a zero placeholder, so both sides list the same keys
// in the same order.
func Compare(context string, base, current Aggregate, metric string) ComparisonResult {
	keys, labels := unionKeys(base, current)
	if metric != "" {
		keys = []string{metric}
	}

	b := alignMetrics(base, keys, labels)
	c := alignMetrics(current, keys, labels)

	changes := make(map[string]float64, len(keys))
	for i, key := range keys {
		changes[key] = RoundTo2(PercentChange(b.Metrics[i].Total, c.Metrics[i].Total))
	}

	return ComparisonResult{
		Context:        context,
		Metric:         metric,
		Base:           b,
		Current:        c,
		PercentChanges: changes,
	}
}

// unionKeys lists every metric key on either side, base order first.
func unionKeys(a, b Aggregate) ([]string, map[string]string) {
	labels := make(map[string]string)
	var keys []string
	for _, agg := range []Aggregate{a, b} {
		for _, m := range agg.Metrics {
			if _, seen := labels[m.Key]; !seen {
				labels[m.Key] = m.Label
				keys = append(keys, m.Key)
			}
		}
	}
	return keys, labels
}

// alignMetrics returns a copy of agg whose Metrics follow keys exactly.
func alignMetrics(agg Aggregate, keys []string, labels map[string]string) Aggregate {
	byKey := make(map[string]MetricAggregate, len(agg.Metrics))
	for _, m := range agg.Metrics {
		byKey[m.Key] = m
	}

	out := agg
	out.Metrics = make([]MetricAggregate, len(keys))
	for i, key := range keys {
		if m, ok := byKey[key]; ok {
			out.Metrics[i] = m
			continue
		}
		label := labels[key]
		if label == "" {
			label = key
		}
		out.Metrics[i] = MetricAggregate{Key: key, Label: label}
	}
	return out
}
