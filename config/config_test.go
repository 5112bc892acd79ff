package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spektr-org/tally/catalog"
	"github.com/spektr-org/tally/engine"
)

// ============================================================================
// HELPERS
// ============================================================================

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

const inlineYAML = `
church: Grace Fellowship
aggregate:
  id: all
  name: All Campuses
locations:
  - id: south
    name: South Campus
    phrases: [south, southside]
  - id: barker
    name: Barker Road
    phrases: [barker]
roles:
  south_pastor: south
  lead_pastor: all
undated: exclude
store:
  url: https://stats.example.org/rows
  timeout: 5s
log:
  level: debug
  format: json
`

// ============================================================================
// LOAD TESTS
// ============================================================================

func TestLoadInline(t *testing.T) {
	path := writeFile(t, t.TempDir(), "tally.yaml", inlineYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.Church != "Grace Fellowship" || len(cfg.Locations) != 2 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Store.Timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", cfg.Store.Timeout)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("server addr default = %q", cfg.Server.Addr)
	}
	if cfg.Roles["south_pastor"] != "south" {
		t.Errorf("roles = %v", cfg.Roles)
	}

	policy, err := cfg.UndatedPolicy()
	if err != nil || policy != engine.ExcludeUndated {
		t.Errorf("UndatedPolicy = %v, %v", policy, err)
	}

	cat, err := cfg.LocationCatalog()
	if err != nil {
		t.Fatalf("LocationCatalog failed: %v", err)
	}
	if cat.DisplayName("south") != "South Campus" || cat.AggregateID() != "all" {
		t.Errorf("catalog not built from inline locations")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeFile(t, t.TempDir(), "tally.yaml", inlineYAML)
	t.Setenv("TALLY_STORE_URL", "https://override.example.org")
	t.Setenv("TALLY_NARRATOR_API_KEY", "k")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.URL != "https://override.example.org" {
		t.Errorf("store url = %q", cfg.Store.URL)
	}
	if !cfg.Narrator.Enabled() {
		t.Error("narrator key from env should enable it")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing explicit file")
	}
}

func TestLoadLocationsFile(t *testing.T) {
	dir := t.TempDir()
	locs := writeFile(t, dir, "campuses.yaml", `
aggregate: {id: all, name: All Campuses}
locations:
  - id: south
    name: South Campus
`)
	path := writeFile(t, dir, "tally.yaml", "locations_file: "+locs+"\nroles: {pastor: south}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	cat, err := cfg.LocationCatalog()
	if err != nil {
		t.Fatalf("LocationCatalog failed: %v", err)
	}
	if _, ok := cat.Get("south"); !ok {
		t.Error("south missing from file catalog")
	}
}

// ============================================================================
// VALIDATE TESTS
// ============================================================================

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := DefaultConfig()
		c.Locations = []catalog.LocationSpec{{ID: "south", Name: "South Campus"}}
		return c
	}

	tests := []struct {
		name  string
		mut   func(*Config)
		field string
	}{
		{"ok", func(*Config) {}, ""},
		{"no locations", func(c *Config) { c.Locations = nil }, "locations"},
		{"both sources", func(c *Config) { c.LocationsFile = "x.yaml" }, "locations_file"},
		{"undated", func(c *Config) { c.Undated = "sometimes" }, "undated"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "log.level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "log.format"},
		{"aggregate", func(c *Config) { c.Aggregate.ID = "" }, "aggregate.id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mut(c)
			err := c.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate failed: %v", err)
				}
				return
			}
			var ce *ConfigError
			if !errors.As(err, &ce) || ce.Field != tt.field {
				t.Errorf("Validate() = %v, want ConfigError on %s", err, tt.field)
			}
		})
	}
}

func TestUnknownRole(t *testing.T) {
	c := DefaultConfig()
	c.Locations = []catalog.LocationSpec{{ID: "south", Name: "South Campus"}}
	c.Roles = map[string]string{"pastor": "north"}

	_, err := c.LocationCatalog()
	var ce *ConfigError
	if !errors.As(err, &ce) || ce.Field != "roles.pastor" {
		t.Errorf("LocationCatalog() = %v, want ConfigError on roles.pastor", err)
	}
}
