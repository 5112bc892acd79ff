package parser

import (
	"fmt"
	"testing"
	"time"
)

// ============================================================================
// TEMPORAL RESOLVER TESTS
// ============================================================================
// fixedNow is Saturday 2024-06-15.
// ============================================================================

func TestResolveWindow(t *testing.T) {
	tests := []struct {
		text  string
		start time.Time
		end   time.Time
		label string
	}{
		{"average attendance in March 2024", date(2024, 3, 1), date(2024, 3, 31), "March 2024"},
		{"salvations in february", date(2024, 2, 1), date(2024, 2, 29), "February 2024"},
		{"december 2023 giving", date(2023, 12, 1), date(2023, 12, 31), "December 2023"},
		{"ytd attendance", date(2024, 1, 1), date(2024, 6, 15), "2024 Year to Date"},
		{"year-to-date 2023", date(2023, 1, 1), date(2023, 12, 31), "2023 Year to Date"},
		{"how many people this year", date(2024, 1, 1), date(2024, 6, 15), "2024 Year to Date"},
		{"march to june", date(2024, 3, 1), date(2024, 6, 30), "March to June 2024"},
		{"March-June", date(2024, 3, 1), date(2024, 6, 30), "March to June 2024"},
		{"between march and june 2023", date(2023, 3, 1), date(2023, 6, 30), "March to June 2023"},
		{"q3 2023", date(2023, 7, 1), date(2023, 9, 30), "Q3 2023"},
		{"second quarter", date(2024, 4, 1), date(2024, 6, 30), "Q2 2024"},
		{"quarter 4", date(2024, 10, 1), date(2024, 12, 31), "Q4 2024"},
		{"last quarter", date(2024, 1, 1), date(2024, 3, 31), "Q1 2024"},
		{"mid-year review", date(2024, 1, 1), date(2024, 6, 30), "Mid-Year 2024"},
		{"first half of 2022", date(2022, 1, 1), date(2022, 6, 30), "Mid-Year 2022"},
		{"second half of 2023", date(2023, 7, 1), date(2023, 12, 31), "Second Half 2023"},
		{"numbers for 2022", date(2022, 1, 1), date(2022, 12, 31), "2022"},
		{"last year", date(2023, 1, 1), date(2023, 12, 31), "2023"},
		{"march last year", date(2023, 3, 1), date(2023, 3, 31), "March 2023"},
		{"march this year", date(2024, 3, 1), date(2024, 3, 31), "March 2024"},
		{"last 14 days", date(2024, 6, 2), date(2024, 6, 15), "Last 14 Days"},
		{"last 1 day", date(2024, 6, 15), date(2024, 6, 15), "Last 1 Days"},
		{"last week", date(2024, 6, 3), date(2024, 6, 9), "Last Week"},
		{"this week", date(2024, 6, 10), date(2024, 6, 15), "This Week"},
		{"last month", date(2024, 5, 1), date(2024, 5, 31), "May 2024"},
		{"this month", date(2024, 6, 1), date(2024, 6, 15), "This Month"},
		{"how are we doing", date(2024, 5, 17), date(2024, 6, 15), DefaultWindowLabel},
	}
	for _, tt := range tests {
		got := ResolveWindow(tt.text, fixedNow)
		assertWindow(t, tt.text, got, tt.start, tt.end)
		if got.Label != tt.label {
			t.Errorf("%s: label = %q, want %q", tt.text, got.Label, tt.label)
		}
	}
}

func TestQuarterRoundTrip(t *testing.T) {
	for year := 2018; year <= 2030; year++ {
		for q := 1; q <= 4; q++ {
			text := fmt.Sprintf("Q%d %d", q, year)
			w := ResolveWindow(text, fixedNow)

			if w.Start.After(w.End) {
				t.Errorf("%s: start after end", text)
			}
			if w.Start.Year() != year || w.End.Year() != year {
				t.Errorf("%s: window leaves the year: %s", text, w)
			}
			if months := int(w.End.Month()) - int(w.Start.Month()) + 1; months != 3 {
				t.Errorf("%s: spans %d months, want 3", text, months)
			}
			if w.Start.Day() != 1 {
				t.Errorf("%s: should start on the 1st, got %s", text, w)
			}
			if next := w.End.AddDate(0, 0, 1); next.Day() != 1 {
				t.Errorf("%s: should end on the last day of a month, got %s", text, w)
			}
		}
	}
}

func TestTimeWindowContains(t *testing.T) {
	w := ResolveWindow("march 2024", fixedNow)

	if !w.Contains(time.Date(2024, 3, 31, 23, 59, 0, 0, time.UTC)) {
		t.Error("last evening of March should be inside")
	}
	if !w.Contains(date(2024, 3, 1)) {
		t.Error("first day should be inside")
	}
	if w.Contains(date(2024, 4, 1)) {
		t.Error("April 1 should be outside")
	}
	if w.Year() != 2024 {
		t.Errorf("Year() = %d", w.Year())
	}
}

func TestTrailingWindowsCountToday(t *testing.T) {
	for _, tt := range []struct {
		text string
		days int
	}{
		{"last 7 days", 7},
		{"last 30 days", 30},
		{"how are we doing", DefaultTrailingDays},
	} {
		w := ResolveWindow(tt.text, fixedNow)
		if got := int(w.End.Sub(w.Start).Hours()/24) + 1; got != tt.days {
			t.Errorf("%s: window covers %d days, want %d", tt.text, got, tt.days)
		}
	}
}

func TestMonthRangeAcrossNewYear(t *testing.T) {
	may2025 := time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		text  string
		start time.Time
		end   time.Time
		label string
	}{
		{"november to february", date(2024, 11, 1), date(2025, 2, 28), "November 2024 to February 2025"},
		{"nov-feb attendance", date(2024, 11, 1), date(2025, 2, 28), "November 2024 to February 2025"},
		{"november to february 2023", date(2023, 11, 1), date(2024, 2, 29), "November 2023 to February 2024"},
	}
	for _, tt := range tests {
		got := ResolveWindow(tt.text, may2025)
		assertWindow(t, tt.text, got, tt.start, tt.end)
		if got.Label != tt.label {
			t.Errorf("%s: label = %q, want %q", tt.text, got.Label, tt.label)
		}
	}
}

func TestResolveComparisonWindows(t *testing.T) {
	tests := []struct {
		text               string
		baseStart, baseEnd time.Time
		curStart, curEnd   time.Time
	}{
		{"compare Q1 2024 vs Q1 2023", date(2023, 1, 1), date(2023, 3, 31), date(2024, 1, 1), date(2024, 3, 31)},
		{"q1 vs q2 2024", date(2024, 1, 1), date(2024, 3, 31), date(2024, 4, 1), date(2024, 6, 30)},
		{"march vs april", date(2024, 3, 1), date(2024, 3, 31), date(2024, 4, 1), date(2024, 4, 30)},
		{"this year vs last year", date(2023, 1, 1), date(2023, 6, 15), date(2024, 1, 1), date(2024, 6, 15)},
		{"compare 2023 with this year", date(2023, 1, 1), date(2023, 6, 15), date(2024, 1, 1), date(2024, 6, 15)},
		{"2024 vs 2023", date(2023, 1, 1), date(2023, 12, 31), date(2024, 1, 1), date(2024, 12, 31)},
		{"compare june attendance", date(2023, 6, 1), date(2023, 6, 30), date(2024, 6, 1), date(2024, 6, 30)},
		{"compare attendance", date(2023, 5, 17), date(2023, 6, 15), date(2024, 5, 17), date(2024, 6, 15)},
	}
	for _, tt := range tests {
		base, current := ResolveComparisonWindows(tt.text, fixedNow)
		assertWindow(t, tt.text+" (base)", base, tt.baseStart, tt.baseEnd)
		assertWindow(t, tt.text+" (current)", current, tt.curStart, tt.curEnd)
	}
}

func TestComparisonShiftClampsLeapDay(t *testing.T) {
	now := time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)
	base, current := ResolveComparisonWindows("compare this month", now)

	assertWindow(t, "current", current, date(2024, 2, 1), date(2024, 2, 29))
	assertWindow(t, "base", base, date(2023, 2, 1), date(2023, 2, 28))
}

func TestTokens(t *testing.T) {
	if got := ExplicitYears("Q1 2024 vs Q1 2023"); len(got) != 2 || got[0] != 2024 || got[1] != 2023 {
		t.Errorf("ExplicitYears = %v", got)
	}
	if got := QuarterTokens("first quarter vs q3"); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("QuarterTokens = %v", got)
	}
	if got := MonthTokens("how may I help"); len(got) != 0 {
		t.Errorf("bare may is not a month, got %v", got)
	}
	if got := MonthTokens("attendance in may vs june"); len(got) != 2 || got[0] != time.May {
		t.Errorf("MonthTokens = %v", got)
	}
}

func TestDetectPeriod(t *testing.T) {
	tests := []struct {
		text string
		want ReviewPeriod
	}{
		{"quarterly review", ReviewQuarterly},
		{"review for q2", ReviewQuarterly},
		{"mid-year report", ReviewMidYear},
		{"march review", ReviewMonthly},
		{"annual report", ReviewAnnual},
		{"give me a summary", ReviewAnnual},
	}
	for _, tt := range tests {
		if got := DetectPeriod(tt.text); got != tt.want {
			t.Errorf("DetectPeriod(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}
