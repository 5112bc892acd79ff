package parser

import (
	"testing"
	"time"

	"github.com/spektr-org/tally/catalog"
)

// --- Test Fixtures ---

var testLocationsYAML = []byte(`
aggregate:
  id: all
  name: All Campuses
locations:
  - id: south
    name: South Campus
    phrases: [southside]
    variants: [souf, sowth]
    stems: [sout]
  - id: barker
    name: Barker Road
    phrases: [barker]
    variants: [barkers, backer road]
  - id: salisbury
    name: Salisbury
    variants: [salsbury, salisberry]
    stems: [salis]
  - id: plant
    name: Church Plant
    active: false
`)

// fixedNow is a Saturday.
var fixedNow = time.Date(2024, time.June, 15, 10, 30, 0, 0, time.UTC)

func testLocations(t *testing.T) *catalog.LocationCatalog {
	t.Helper()
	c, err := catalog.ParseLocationsYAML(testLocationsYAML)
	if err != nil {
		t.Fatalf("ParseLocationsYAML failed: %v", err)
	}
	return c
}

func testResolver(t *testing.T) *CampusResolver {
	t.Helper()
	return NewCampusResolver(testLocations(t), nil)
}

func testClassifier(t *testing.T) *Classifier {
	t.Helper()
	metrics := catalog.DefaultMetrics()
	return NewClassifier(metrics, testResolver(t), NewStatExtractor(metrics), nil)
}

// --- Helpers ---

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func assertWindow(t *testing.T, label string, got TimeWindow, start, end time.Time) {
	t.Helper()
	if !got.Start.Equal(start) || !got.End.Equal(end) {
		t.Errorf("%s: window = %s, want %s..%s", label, got, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
}

func assertStrings(t *testing.T, label string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("%s: got %v, want %v", label, got, want)
		return
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("%s: got %v, want %v", label, got, want)
			return
		}
	}
}
