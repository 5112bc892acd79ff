package engine

import (
	"strings"

	"github.com/spektr-org/tally/catalog"
	"github.com/spektr-org/tally/parser"
)

// ============================================================================
// FILTERS - Location + time window filtering via RecordView
// ============================================================================
// Single pass over the view. A row passes when:
//   - its normalized location equals or is contained in a target name
//     (id or display name), so "South" matches "South Campus"
//   - its timestamp falls inside the window (inclusive)
// Rows with no usable timestamp follow the UndatedPolicy.
// Returns a SubView, zero data copy.
// ============================================================================

// UndatedPolicy decides what happens to rows without a parseable timestamp.
type UndatedPolicy int

const (
	// IncludeUndated keeps such rows in every window (default).
	IncludeUndated UndatedPolicy = iota
	// ExcludeUndated drops them from windowed queries.
	ExcludeUndated
)

// LocationFilter matches rows against one location or the aggregate.
type LocationFilter struct {
	ID string
	// targets holds normalized names, one slice per member location.
	targets [][]string
	// any matches every row (aggregate with no configured members).
	any bool
}

// NewLocationFilter builds the filter for id. The aggregate id expands to
// every aggregate-member location.
func NewLocationFilter(locations *catalog.LocationCatalog, id string) LocationFilter {
	f := LocationFilter{ID: id}

	if locations.IsAggregate(id) {
		members := locations.Members()
		if len(members) == 0 {
			f.any = true
			return f
		}
		for _, m := range members {
			f.targets = append(f.targets, targetNames(m))
		}
		return f
	}

	if loc, ok := locations.Get(id); ok {
		f.targets = append(f.targets, targetNames(loc))
	} else {
		f.targets = append(f.targets, []string{catalog.Normalize(id)})
	}
	return f
}

func targetNames(loc catalog.LocationMeta) []string {
	names := []string{catalog.Normalize(loc.ID)}
	if dn := catalog.Normalize(loc.DisplayName); dn != "" && dn != names[0] {
		names = append(names, dn)
	}
	return names
}

// Match reports whether a raw row location belongs to the filter.
func (f LocationFilter) Match(raw string) bool {
	if f.any {
		return true
	}
	loc := catalog.Normalize(raw)
	if loc == "" {
		return false
	}
	for _, names := range f.targets {
		for _, target := range names {
			if loc == target || strings.Contains(target, loc) {
				return true
			}
		}
	}
	return false
}

// ApplyFilters returns a view of rows matching the location and window.
func ApplyFilters(view RecordView, loc LocationFilter, window parser.TimeWindow, policy UndatedPolicy) RecordView {
	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if !loc.Match(RecordLocation(view, i)) {
			continue
		}
		ts, ok := RecordTime(view, i)
		if !ok {
			if policy == IncludeUndated {
				indices = append(indices, i)
			}
			continue
		}
		if window.Contains(ts) {
			indices = append(indices, i)
		}
	}
	return newSubView(view, indices)
}
