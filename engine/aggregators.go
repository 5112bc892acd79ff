package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/spektr-org/tally/catalog"
	"github.com/spektr-org/tally/parser"
)

// ============================================================================
// AGGREGATORS - Rollup, grouping and sorting via RecordView
// ============================================================================
// Per metric:
//   value   = first populated alias, coerced to int (blank/garbage -> 0)
//   total  += value
//   samples  only when value > 0; average = mean(samples) or 0
// EntryCount counts rows with at least one non-zero metric.
// ============================================================================

// CoerceInt reads a stats cell. Separators and "$" are stripped; blank or
// unparseable cells are 0.
func CoerceInt(raw string) int {
	n, ok := parser.ParseCount(raw)
	if !ok {
		return 0
	}
	return n
}

// MetricValue reads one metric from row i through its alias list.
func MetricValue(view RecordView, i int, meta catalog.MetricMeta) int {
	raw, ok := FirstField(view, i, meta.Aliases)
	if !ok {
		return 0
	}
	return CoerceInt(raw)
}

// ComputeAggregate rolls up every catalog metric over view.
// An empty view yields a zero-filled Aggregate with EntryCount 0.
func ComputeAggregate(view RecordView, metrics *catalog.MetricCatalog, locationID, locationName string, window parser.TimeWindow) Aggregate {
	metas := metrics.Metrics()
	totals := make([]int, len(metas))
	sums := make([]int, len(metas))
	counts := make([]int, len(metas))
	entries := 0

	for i := 0; i < view.Len(); i++ {
		contributed := false
		for m, meta := range metas {
			v := MetricValue(view, i, meta)
			totals[m] += v
			if v > 0 {
				sums[m] += v
				counts[m]++
				contributed = true
			}
		}
		if contributed {
			entries++
		}
	}

	agg := Aggregate{
		LocationID:   locationID,
		LocationName: locationName,
		Window:       window,
		Metrics:      make([]MetricAggregate, len(metas)),
		EntryCount:   entries,
	}
	for m, meta := range metas {
		var avg float64
		if counts[m] > 0 {
			avg = float64(sums[m]) / float64(counts[m])
		}
		agg.Metrics[m] = MetricAggregate{
			Key:     meta.Key,
			Label:   meta.DisplayName,
			Total:   totals[m],
			Average: avg,
			Count:   counts[m],
		}
	}
	return agg
}

// ============================================================================
// GROUPING
// ============================================================================

// Breakdown dimensions.
const (
	DimensionLocation = "location"
	DimensionMonth    = "month"
)

// GroupAndAggregate buckets view by dimension and totals one metric per
// bucket. Pipeline: group -> aggregate -> sort.
func GroupAndAggregate(view RecordView, dimension string, meta catalog.MetricMeta, sortBy string) []Group {
	return GroupByKey(view, func(v RecordView, i int) string {
		return getDimensionValue(v, i, dimension)
	}, meta, sortBy)
}

// GroupByKey is GroupAndAggregate with a caller-supplied bucket key.
// Rows whose key is empty are skipped.
func GroupByKey(view RecordView, key func(RecordView, int) string, meta catalog.MetricMeta, sortBy string) []Group {
	if view.Len() == 0 {
		return nil
	}

	groups := groupBySingle(view, key)
	for i := range groups {
		aggregateGroup(&groups[i], meta)
	}
	SortGroups(groups, sortBy)
	return groups
}

func groupBySingle(view RecordView, keyOf func(RecordView, int) string) []Group {
	grouped := make(map[string][]int)
	order := make([]string, 0)

	for i := 0; i < view.Len(); i++ {
		key := keyOf(view, i)
		if key == "" {
			continue
		}
		if _, exists := grouped[key]; !exists {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], i)
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		groups = append(groups, Group{
			Key:   key,
			Label: key,
			View:  newSubView(view, grouped[key]),
		})
	}
	return groups
}

// getDimensionValue extracts a breakdown key from row i.
// "month" is virtual, derived from the timestamp as "Jan-2006".
func getDimensionValue(view RecordView, i int, dimension string) string {
	switch dimension {
	case DimensionMonth:
		if t, ok := RecordTime(view, i); ok {
			return t.Format("Jan-2006")
		}
		return ""
	case DimensionLocation:
		return RecordLocation(view, i)
	default:
		return view.Field(i, NormalizeKey(dimension))
	}
}

func aggregateGroup(group *Group, meta catalog.MetricMeta) {
	group.Count = group.View.Len()
	var total int
	for i := 0; i < group.View.Len(); i++ {
		total += MetricValue(group.View, i, meta)
	}
	group.Value = float64(total)
}

// ============================================================================
// SORTING
// ============================================================================

// SortGroups sorts breakdown groups by the specified sort mode.
func SortGroups(groups []Group, sortBy string) {
	switch sortBy {
	case "value_desc":
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value > groups[j].Value })
	case "value_asc":
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value < groups[j].Value })
	case "chronological", "date_asc":
		sort.SliceStable(groups, func(i, j int) bool { return ParseMonthOrder(groups[i].Key) < ParseMonthOrder(groups[j].Key) })
	case "label_asc", "alpha_asc":
		sort.SliceStable(groups, func(i, j int) bool { return strings.ToLower(groups[i].Key) < strings.ToLower(groups[j].Key) })
	default:
		// preserve grouping order
	}
}

// ============================================================================
// FORMATTING UTILITIES
// ============================================================================

// ParseMonthOrder converts "Jan-2026" to sortable int (202601).
func ParseMonthOrder(monthStr string) int {
	t, err := time.Parse("Jan-2006", monthStr)
	if err != nil {
		return 0
	}
	return t.Year()*100 + int(t.Month())
}

// FormatCurrency formats an amount with a currency prefix and separators.
// A one-character symbol ("$") is attached, a code ("USD") is spaced.
func FormatCurrency(amount float64, currency string) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	cents := int64(math.Round(amount * 100))
	result := fmt.Sprintf("%s.%02d", FormatInt(int(cents/100)), cents%100)

	switch {
	case currency == "":
	case len([]rune(currency)) == 1:
		result = currency + result
	default:
		result = currency + " " + result
	}
	if negative {
		result = "-" + result
	}
	return result
}

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", FormatInt(n/1000), n%1000)
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
