package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spektr-org/tally/catalog"
)

// ============================================================================
// TEMPORAL RANGE RESOLVER - Phrase to concrete date window
// ============================================================================
// Detection order (first match wins):
//   a. explicit 4-digit year pins the target year
//   b. year to date / ytd / "this year" alone
//   c. month range ("march to june", "between march and june")
//   d. single month
//   e. quarter (q1, "first quarter", "quarter 2", "last quarter")
//   f. mid-year / first half, second half
//   g. year alone, last N days, last/this week, last/this month, last year
//   h. trailing 30 days ending now, labeled "recent data"
// Windows are date-only and inclusive on both ends.
// ============================================================================

// DefaultTrailingDays is the size of the fallback window, today included.
const DefaultTrailingDays = 30

// DefaultWindowLabel labels the fallback window.
const DefaultWindowLabel = "recent data"

// TimeWindow is an inclusive calendar-date interval.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
}

// Contains reports whether t falls on a calendar date inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	d := dateKey(t)
	return d >= dateKey(w.Start) && d <= dateKey(w.End)
}

// Year is the calendar year the window starts in.
func (w TimeWindow) Year() int { return w.Start.Year() }

// IsDefault reports whether the window is the trailing fallback.
func (w TimeWindow) IsDefault() bool { return w.Label == DefaultWindowLabel }

func (w TimeWindow) String() string {
	return fmt.Sprintf("%s (%s..%s)", w.Label, w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}

func dateKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// ReviewPeriod sub-types a review request.
type ReviewPeriod string

const (
	ReviewAnnual    ReviewPeriod = "annual"
	ReviewQuarterly ReviewPeriod = "quarterly"
	ReviewMonthly   ReviewPeriod = "monthly"
	ReviewMidYear   ReviewPeriod = "mid-year"
)

// --- Vocabulary ---

const monthAlternation = `january|february|march|april|may|june|july|august|september|october|november|december|sept|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec`

var monthByName = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sept": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var (
	yearPattern       = regexp.MustCompile(`\b(199\d|20\d{2})\b`)
	monthPattern      = regexp.MustCompile(`\b(` + monthAlternation + `)\b`)
	monthDashPattern  = regexp.MustCompile(`(?i)\b(` + monthAlternation + `)\s*[-–]\s*(` + monthAlternation + `)\b`)
	monthRangePattern = regexp.MustCompile(`\bbetween (` + monthAlternation + `)(?: \d{4})? and (` + monthAlternation + `)\b|\b(` + monthAlternation + `)(?: \d{4})? (?:to|through|thru|until|till) (` + monthAlternation + `)\b`)
	quarterPattern    = regexp.MustCompile(`\bq([1-4])\b|\b(first|second|third|fourth|1st|2nd|3rd|4th) quarter\b|\bquarter (1|2|3|4|one|two|three|four)\b`)
	lastDaysPattern   = regexp.MustCompile(`\b(?:last|past|previous) (\d{1,3}) days?\b`)
	mayContext        = regexp.MustCompile(`(?:\b(?:in|of|for|since|during|from|to|and|between|through|until|last|this|vs|versus)\s+may\b|\bmay\s+(?:199\d|20\d{2})\b)`)
)

var quarterWords = map[string]int{
	"first": 1, "1st": 1, "one": 1, "1": 1,
	"second": 2, "2nd": 2, "two": 2, "2": 2,
	"third": 3, "3rd": 3, "three": 3, "3": 3,
	"fourth": 4, "4th": 4, "four": 4, "4": 4,
}

// prepare lowercases and flattens text so every pattern runs against
// single-spaced words. "March-June" becomes "march to june".
func prepare(text string) string {
	text = monthDashPattern.ReplaceAllString(text, "$1 to $2")
	return " " + catalog.NormalizePhrase(text) + " "
}

func hasAny(t string, phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(t, " "+p+" ") {
			return true
		}
	}
	return false
}

// ExplicitYears returns every 4-digit year in order of mention.
func ExplicitYears(text string) []int {
	var years []int
	for _, m := range yearPattern.FindAllString(prepare(text), -1) {
		y, _ := strconv.Atoi(m)
		years = append(years, y)
	}
	return years
}

// QuarterTokens returns every explicit quarter number in order of mention.
func QuarterTokens(text string) []int {
	var quarters []int
	for _, m := range quarterPattern.FindAllStringSubmatch(prepare(text), -1) {
		for _, g := range m[1:] {
			if q, ok := quarterWords[g]; ok {
				quarters = append(quarters, q)
				break
			}
		}
	}
	return quarters
}

// MonthTokens returns every named month in order of mention. A bare "may"
// counts only next to a year or a date preposition.
func MonthTokens(text string) []time.Month {
	t := prepare(text)
	allowMay := mayContext.MatchString(t)

	var months []time.Month
	for _, m := range monthPattern.FindAllString(t, -1) {
		if m == "may" && !allowMay {
			continue
		}
		months = append(months, monthByName[m])
	}
	return months
}

// DetectPeriod sub-types a review request by the period it names.
func DetectPeriod(text string) ReviewPeriod {
	t := prepare(text)
	switch {
	case len(QuarterTokens(text)) > 0 || hasAny(t, "quarter", "quarterly", "last quarter", "this quarter"):
		return ReviewQuarterly
	case hasAny(t, "mid year", "midyear", "first half", "second half", "half year"):
		return ReviewMidYear
	case len(MonthTokens(text)) > 0 || hasAny(t, "month", "monthly", "this month", "last month"):
		return ReviewMonthly
	default:
		return ReviewAnnual
	}
}

// ============================================================================
// PERIOD SPEC
// ============================================================================

type periodKind int

const (
	periodTrailing periodKind = iota
	periodYTD
	periodMonthRange
	periodMonth
	periodQuarter
	periodFirstHalf
	periodSecondHalf
	periodYear
	periodLastDays
	periodLastWeek
	periodThisWeek
	periodThisMonth
)

// periodSpec is a detected period before it is anchored to a year.
type periodSpec struct {
	kind     periodKind
	from, to time.Month
	quarter  int
	days     int
	year     int
	explicit bool
}

// anchored reports whether the period can be moved to another year.
func (p periodSpec) anchored() bool {
	switch p.kind {
	case periodYTD, periodMonthRange, periodMonth, periodQuarter, periodFirstHalf, periodSecondHalf, periodYear:
		return true
	}
	return false
}

func parsePeriod(text string, now time.Time) periodSpec {
	t := prepare(text)
	years := ExplicitYears(text)

	p := periodSpec{year: now.Year()}
	if len(years) > 0 {
		p.year = years[0]
		p.explicit = true
	} else if hasAny(t, "last year", "previous year", "prior year") {
		p.year = now.Year() - 1
	}

	months := MonthTokens(text)
	quarters := QuarterTokens(text)
	half := hasAny(t, "mid year", "midyear", "first half", "half year", "second half")

	// b. ytd
	if hasAny(t, "year to date", "ytd") {
		p.kind = periodYTD
		return p
	}
	if hasAny(t, "this year") && len(months) == 0 && len(quarters) == 0 && !half {
		p.kind = periodYTD
		return p
	}

	// c. month range
	if m := monthRangePattern.FindStringSubmatch(t); m != nil {
		var names []string
		for _, g := range m[1:] {
			if g != "" {
				names = append(names, g)
			}
		}
		if len(names) == 2 && (names[0] != "may" || mayContext.MatchString(t)) {
			p.kind = periodMonthRange
			p.from, p.to = monthByName[names[0]], monthByName[names[1]]
			return p
		}
	}

	// d. single month
	if len(months) > 0 {
		p.kind = periodMonth
		p.from = months[0]
		return p
	}

	// e. quarter
	if len(quarters) > 0 {
		p.kind = periodQuarter
		p.quarter = quarters[0]
		return p
	}
	if hasAny(t, "last quarter", "previous quarter") {
		q := quarterOf(now.Month()) - 1
		p.year = now.Year()
		if q == 0 {
			q = 4
			p.year--
		}
		p.kind, p.quarter = periodQuarter, q
		return p
	}
	if hasAny(t, "this quarter", "current quarter") {
		p.kind, p.quarter = periodQuarter, quarterOf(now.Month())
		return p
	}

	// f. halves
	if hasAny(t, "second half") {
		p.kind = periodSecondHalf
		return p
	}
	if half {
		p.kind = periodFirstHalf
		return p
	}

	// g. year alone and relative periods
	if p.explicit || hasAny(t, "last year", "previous year", "prior year") {
		p.kind = periodYear
		return p
	}
	if m := lastDaysPattern.FindStringSubmatch(t); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			p.kind, p.days = periodLastDays, n
			return p
		}
	}
	if hasAny(t, "last week", "past week", "previous week") {
		p.kind = periodLastWeek
		return p
	}
	if hasAny(t, "this week") {
		p.kind = periodThisWeek
		return p
	}
	if hasAny(t, "last month", "previous month", "past month") {
		prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
		p.kind, p.from, p.year = periodMonth, prev.Month(), prev.Year()
		return p
	}
	if hasAny(t, "this month") {
		p.kind = periodThisMonth
		return p
	}

	p.kind = periodTrailing
	return p
}

func quarterOf(m time.Month) int { return (int(m)-1)/3 + 1 }

// window anchors the period to year. Relative kinds ignore year.
func (p periodSpec) window(year int, now time.Time) TimeWindow {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, loc) }

	switch p.kind {
	case periodYTD:
		end := day(year, time.December, 31)
		if year == now.Year() {
			end = today
		}
		return TimeWindow{Start: day(year, time.January, 1), End: end, Label: fmt.Sprintf("%d Year to Date", year)}

	case periodMonthRange:
		if p.to >= p.from {
			return TimeWindow{
				Start: day(year, p.from, 1),
				End:   monthEnd(year, p.to, loc),
				Label: fmt.Sprintf("%s to %s %d", p.from, p.to, year),
			}
		}
		// A range across New Year ends in the target year unless the
		// year was written, in which case it names the starting month.
		startYear, endYear := year-1, year
		if p.explicit {
			startYear, endYear = year, year+1
		}
		return TimeWindow{
			Start: day(startYear, p.from, 1),
			End:   monthEnd(endYear, p.to, loc),
			Label: fmt.Sprintf("%s %d to %s %d", p.from, startYear, p.to, endYear),
		}

	case periodMonth:
		return TimeWindow{Start: day(year, p.from, 1), End: monthEnd(year, p.from, loc), Label: fmt.Sprintf("%s %d", p.from, year)}

	case periodQuarter:
		first := time.Month((p.quarter-1)*3 + 1)
		return TimeWindow{
			Start: day(year, first, 1),
			End:   monthEnd(year, first+2, loc),
			Label: fmt.Sprintf("Q%d %d", p.quarter, year),
		}

	case periodFirstHalf:
		return TimeWindow{Start: day(year, time.January, 1), End: day(year, time.June, 30), Label: fmt.Sprintf("Mid-Year %d", year)}

	case periodSecondHalf:
		return TimeWindow{Start: day(year, time.July, 1), End: day(year, time.December, 31), Label: fmt.Sprintf("Second Half %d", year)}

	case periodYear:
		return TimeWindow{Start: day(year, time.January, 1), End: day(year, time.December, 31), Label: strconv.Itoa(year)}

	case periodLastDays:
		return TimeWindow{Start: today.AddDate(0, 0, -(p.days - 1)), End: today, Label: fmt.Sprintf("Last %d Days", p.days)}

	case periodLastWeek:
		monday := startOfWeek(today)
		return TimeWindow{Start: monday.AddDate(0, 0, -7), End: monday.AddDate(0, 0, -1), Label: "Last Week"}

	case periodThisWeek:
		return TimeWindow{Start: startOfWeek(today), End: today, Label: "This Week"}

	case periodThisMonth:
		return TimeWindow{Start: day(today.Year(), today.Month(), 1), End: today, Label: "This Month"}

	default:
		return TimeWindow{Start: today.AddDate(0, 0, -(DefaultTrailingDays - 1)), End: today, Label: DefaultWindowLabel}
	}
}

// monthEnd is the last calendar day of the month. December ends on the 31st.
func monthEnd(year int, m time.Month, loc *time.Location) time.Time {
	if m == time.December {
		return time.Date(year, time.December, 31, 0, 0, 0, 0, loc)
	}
	return time.Date(year, m+1, 1, 0, 0, 0, 0, loc).AddDate(0, 0, -1)
}

// startOfWeek returns the Monday on or before d.
func startOfWeek(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// ============================================================================
// PUBLIC RESOLVERS
// ============================================================================

// ResolveWindow turns a time phrase into a concrete window relative to now.
// Text without a recognizable period yields the trailing 30 days.
func ResolveWindow(text string, now time.Time) TimeWindow {
	p := parsePeriod(text, now)
	return p.window(p.year, now)
}

// ResolveComparisonWindows returns the baseline and current windows of a
// period comparison. The baseline is always the earlier window.
//
//	"Q1 2024 vs Q1 2023"        -> Q1 2023, Q1 2024
//	"q1 vs q2 2024"             -> Q1 2024, Q2 2024
//	"march vs april"            -> March, April of the target year
//	"this year vs last year"    -> same year-to-date span in both years
//	"2023 vs this year"         -> same year-to-date span in both years
//	"attendance in june"        -> June last year, June this year
func ResolveComparisonWindows(text string, now time.Time) (base, current TimeWindow) {
	t := prepare(text)
	p := parsePeriod(text, now)
	years := ExplicitYears(text)
	quarters := QuarterTokens(text)
	months := MonthTokens(text)

	yearPair := func() (int, int) {
		switch {
		case len(years) >= 2:
			return years[0], years[1]
		case len(years) == 1:
			return years[0], years[0]
		default:
			return p.year, p.year
		}
	}

	switch {
	case len(quarters) >= 2:
		ya, yb := yearPair()
		a := periodSpec{kind: periodQuarter, quarter: quarters[0]}
		b := periodSpec{kind: periodQuarter, quarter: quarters[1]}
		base, current = a.window(ya, now), b.window(yb, now)

	case len(months) >= 2 && !monthRangePattern.MatchString(t):
		ya, yb := yearPair()
		a := periodSpec{kind: periodMonth, from: months[0]}
		b := periodSpec{kind: periodMonth, from: months[1]}
		base, current = a.window(ya, now), b.window(yb, now)

	case hasAny(t, "this year") && (hasAny(t, "last year", "previous year", "prior year") || len(years) == 1) && p.kind == periodYTD:
		prior := now.Year() - 1
		if len(years) == 1 {
			prior = years[0]
		}
		base, current = sameSpan(prior, now), sameSpan(now.Year(), now)

	case len(years) >= 2 && p.anchored():
		if p.kind == periodYTD {
			base, current = sameSpan(years[0], now), sameSpan(years[1], now)
		} else {
			base, current = p.window(years[0], now), p.window(years[1], now)
		}

	case p.anchored():
		current = p.window(p.year, now)
		if p.kind == periodYTD {
			base = sameSpan(p.year-1, now)
		} else {
			base = p.window(p.year-1, now)
		}

	default:
		current = p.window(p.year, now)
		base = shiftYears(current, -1)
	}

	if current.Start.Before(base.Start) {
		base, current = current, base
	}
	return base, current
}

// sameSpan is Jan 1 through now's month and day in the given year.
func sameSpan(year int, now time.Time) TimeWindow {
	end := clampDate(year, now.Month(), now.Day(), now.Location())
	return TimeWindow{
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, now.Location()),
		End:   end,
		Label: fmt.Sprintf("%d Year to Date", year),
	}
}

// shiftYears moves a window by whole years, clamping Feb 29.
func shiftYears(w TimeWindow, years int) TimeWindow {
	move := func(t time.Time) time.Time {
		return clampDate(t.Year()+years, t.Month(), t.Day(), t.Location())
	}
	label := w.Label
	if years < 0 {
		label = fmt.Sprintf("%s, %d year(s) earlier", w.Label, -years)
	}
	return TimeWindow{Start: move(w.Start), End: move(w.End), Label: label}
}

func clampDate(year int, m time.Month, d int, loc *time.Location) time.Time {
	last := monthEnd(year, m, loc).Day()
	if d > last {
		d = last
	}
	return time.Date(year, m, d, 0, 0, 0, 0, loc)
}
