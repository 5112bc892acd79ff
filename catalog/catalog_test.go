package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

// ============================================================================
// CATALOG TESTS
// ============================================================================

var campusYAML = []byte(`
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
  - id: online
    name: Online
    aggregate: false
`)

func TestDefaultMetrics(t *testing.T) {
	c := DefaultMetrics()

	if c.Len() != 18 {
		t.Fatalf("expected 18 default metrics, got %d", c.Len())
	}

	seen := make(map[string]bool)
	for _, m := range c.Metrics() {
		if seen[m.Key] {
			t.Errorf("duplicate key %q", m.Key)
		}
		seen[m.Key] = true
		if len(m.Aliases) == 0 || m.Aliases[0] != m.Key {
			t.Errorf("%s: first alias should be the key, got %v", m.Key, m.Aliases)
		}
		if m.DisplayName == "" {
			t.Errorf("%s: missing display name", m.Key)
		}
	}

	for _, key := range []string{"total_attendance", "first_time_visitors", "new_christians", "tithe", "kids_new_christians"} {
		assertContains(t, c.Keys(), key, key+" should be in the default catalog")
	}

	if c.Position("total_attendance") != 0 {
		t.Errorf("total_attendance should lead the catalog")
	}
	if c.Position("nope") != -1 {
		t.Errorf("unknown key should have position -1")
	}
	if len(c.Core()) == 0 {
		t.Errorf("expected core metrics")
	}
}

func TestNewMetricCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewMetricCatalog([]MetricMeta{{Key: "a"}, {Key: "a"}})
	if err == nil {
		t.Fatal("expected duplicate key error")
	}

	_, err = NewMetricCatalog(nil)
	if err == nil {
		t.Fatal("expected empty catalog error")
	}
}

func TestParseLocationsYAML(t *testing.T) {
	c, err := ParseLocationsYAML(campusYAML)
	if err != nil {
		t.Fatalf("ParseLocationsYAML failed: %v", err)
	}

	if got := len(c.Locations()); got != 5 {
		t.Fatalf("expected 5 locations, got %d", got)
	}
	if got := len(c.Active()); got != 4 {
		t.Errorf("expected 4 active locations, got %d", got)
	}

	members := c.Members()
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	assertContains(t, ids, "south", "south rolls up")
	assertNotContains(t, ids, "plant", "inactive plant is not a member")
	assertNotContains(t, ids, "online", "online opted out of the rollup")

	south, ok := c.Get("south")
	if !ok {
		t.Fatal("south missing")
	}
	assertContains(t, south.Phrases, "south campus", "display name is a phrase")
	assertContains(t, south.Phrases, "southside", "configured phrase kept")
	assertContains(t, south.Variants, "souf", "variant kept")

	if c.DisplayName("all") != "All Campuses" {
		t.Errorf("aggregate display name = %q", c.DisplayName("all"))
	}
	if !c.IsAggregate("all") {
		t.Error("all should be the aggregate id")
	}
}

func TestLocationLookup(t *testing.T) {
	c, err := ParseLocationsYAML(campusYAML)
	if err != nil {
		t.Fatalf("ParseLocationsYAML failed: %v", err)
	}

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"south", "south", true},
		{"South Campus", "south", true},
		{"barker_road", "barker", true},
		{"All Campuses", "all", true},
		{"Mars", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := c.Lookup(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Lookup(%q) = %q,%v want %q,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNewLocationCatalogValidation(t *testing.T) {
	if _, err := NewLocationCatalog([]LocationSpec{{Name: "No ID"}}, "", ""); err == nil {
		t.Error("expected missing id error")
	}
	if _, err := NewLocationCatalog([]LocationSpec{{ID: "a"}, {ID: "a"}}, "", ""); err == nil {
		t.Error("expected duplicate id error")
	}
	if _, err := NewLocationCatalog([]LocationSpec{{ID: "all"}}, "", ""); err == nil {
		t.Error("expected aggregate collision error")
	}
	if _, err := ParseLocationsYAML([]byte("locations: []")); err == nil {
		t.Error("expected empty catalog error")
	}
}

func TestLoadLocationsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.yaml")
	if err := os.WriteFile(path, campusYAML, 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	c, err := LoadLocationsFile(path)
	if err != nil {
		t.Fatalf("LoadLocationsFile failed: %v", err)
	}
	if _, ok := c.Get("salisbury"); !ok {
		t.Error("salisbury should load from file")
	}

	if _, err := LoadLocationsFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("South Campus!"); got != "southcampus" {
		t.Errorf("Normalize = %q", got)
	}
	if got := NormalizePhrase("  Stats for SOUTH-campus, kid's  "); got != "stats for south campus kids" {
		t.Errorf("NormalizePhrase = %q", got)
	}
}

// --- Helpers ---

func assertContains(t *testing.T, slice []string, item string, msg string) {
	t.Helper()
	for _, s := range slice {
		if s == item {
			return
		}
	}
	t.Errorf("%s: %q not found in %v", msg, item, slice)
}

func assertNotContains(t *testing.T, slice []string, item string, msg string) {
	t.Helper()
	for _, s := range slice {
		if s == item {
			t.Errorf("%s: %q should not be in %v", msg, item, slice)
			return
		}
	}
}
