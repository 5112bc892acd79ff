package engine

import (
	"sort"
	"strings"
	"time"
	"unicode"
)

// ============================================================================
// RECORD VIEW - Indexed access to store rows
// ============================================================================
// The engine never owns store data. It reads through this interface.
//
// Implementations:
//   RowView  - wraps []Row, keys normalized once per row
//   SubView  - filtered subset (indices into parent, zero-copy)
//
// Field keys are normalized ("Total Attendance" -> "total_attendance") so
// every historical column name for a metric can be looked up the same way.
// ============================================================================

// RecordView provides indexed access to a row set.
type RecordView interface {
	Len() int
	Field(index int, key string) string
	Keys() []string
}

// Column names that hold a row's location and timestamp, in read order.
var (
	LocationFields  = []string{"location", "campus", "location_id", "site", "campus_name"}
	TimestampFields = []string{"timestamp", "date", "service_date", "submitted_at", "created_at"}
)

// NormalizeKey lowercases a column name and joins words with underscores.
func NormalizeKey(key string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.TrimSpace(key) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// ============================================================================
// ROW VIEW
// ============================================================================

// RowView wraps a []Row slice as a RecordView.
type RowView struct {
	rows []map[string]string
	keys []string
}

// NewRowView normalizes every row's keys once. Raw keys are visited in sorted
// order, so when two columns normalize to the same key the non-blank value of
// the lexically first column wins.
func NewRowView(rows []Row) RecordView {
	v := &RowView{rows: make([]map[string]string, len(rows))}
	seen := make(map[string]bool)
	for i, r := range rows {
		raw := make([]string, 0, len(r))
		for k := range r {
			raw = append(raw, k)
		}
		sort.Strings(raw)

		norm := make(map[string]string, len(r))
		for _, k := range raw {
			val := r[k]
			nk := NormalizeKey(k)
			if nk == "" {
				continue
			}
			if existing, ok := norm[nk]; ok && strings.TrimSpace(existing) != "" {
				continue
			}
			norm[nk] = val
			if !seen[nk] {
				seen[nk] = true
				v.keys = append(v.keys, nk)
			}
		}
		v.rows[i] = norm
	}
	return v
}

func (v *RowView) Len() int { return len(v.rows) }

func (v *RowView) Field(i int, key string) string {
	if i < 0 || i >= len(v.rows) {
		return ""
	}
	return v.rows[i][key]
}

func (v *RowView) Keys() []string { return v.keys }

// ============================================================================
// SUB VIEW - filtered subset (zero-copy)
// ============================================================================

// SubView is a filtered subset of a parent RecordView.
// Holds indices into the parent, no data copy.
type SubView struct {
	parent  RecordView
	indices []int
}

func newSubView(parent RecordView, indices []int) RecordView {
	return &SubView{parent: parent, indices: indices}
}

func (v *SubView) Len() int { return len(v.indices) }

func (v *SubView) Field(i int, key string) string {
	if i < 0 || i >= len(v.indices) {
		return ""
	}
	return v.parent.Field(v.indices[i], key)
}

func (v *SubView) Keys() []string { return v.parent.Keys() }

// ============================================================================
// FIELD ACCESS
// ============================================================================

// FirstField returns the first non-blank value among aliases.
// Aliases are normalized before lookup.
func FirstField(view RecordView, i int, aliases []string) (string, bool) {
	for _, a := range aliases {
		if val := strings.TrimSpace(view.Field(i, NormalizeKey(a))); val != "" {
			return val, true
		}
	}
	return "", false
}

// RecordLocation returns the row's location column.
func RecordLocation(view RecordView, i int) string {
	val, _ := FirstField(view, i, LocationFields)
	return val
}

// RecordTime returns the row's timestamp. ok is false when the row has no
// timestamp or it cannot be parsed.
func RecordTime(view RecordView, i int) (time.Time, bool) {
	val, found := FirstField(view, i, TimestampFields)
	if !found {
		return time.Time{}, false
	}
	return ParseTimestamp(val)
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseTimestamp accepts every timestamp format the stats sheet has produced.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
