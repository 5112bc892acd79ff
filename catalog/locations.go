package catalog

import (
	"fmt"
	"strings"
)

// DefaultAggregateID is the synthetic id meaning "all locations".
const DefaultAggregateID = "all"

// LocationSpec is the configuration shape of a location. Pointer flags
// distinguish "not set" from false so omitted flags default to true.
type LocationSpec struct {
	ID        string   `json:"id" yaml:"id" mapstructure:"id"`
	Name      string   `json:"name" yaml:"name" mapstructure:"name"`
	Phrases   []string `json:"phrases,omitempty" yaml:"phrases" mapstructure:"phrases"`
	Variants  []string `json:"variants,omitempty" yaml:"variants" mapstructure:"variants"`
	Stems     []string `json:"stems,omitempty" yaml:"stems" mapstructure:"stems"`
	Active    *bool    `json:"active,omitempty" yaml:"active" mapstructure:"active"`
	Aggregate *bool    `json:"aggregate,omitempty" yaml:"aggregate" mapstructure:"aggregate"`
}

// LocationMeta is a resolved, immutable location entry.
type LocationMeta struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Phrases     []string `json:"phrases"`            // exact detection phrases, normalized
	Variants    []string `json:"variants,omitempty"` // known misspellings, normalized
	Stems       []string `json:"stems,omitempty"`    // partial-match stems, normalized
	Active      bool     `json:"active"`
	Aggregate   bool     `json:"aggregate"` // member of the "all locations" rollup
}

// Meta resolves defaults: display name falls back to the id, the id and the
// display name are always detection phrases, and both flags default to true.
func (s LocationSpec) Meta() LocationMeta {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		name = s.ID
	}

	phrases := []string{NormalizePhrase(s.ID), NormalizePhrase(name)}
	for _, p := range s.Phrases {
		phrases = append(phrases, NormalizePhrase(p))
	}

	return LocationMeta{
		ID:          s.ID,
		DisplayName: name,
		Phrases:     dedupe(phrases),
		Variants:    normalizeAll(s.Variants),
		Stems:       normalizeAll(s.Stems),
		Active:      s.Active == nil || *s.Active,
		Aggregate:   s.Aggregate == nil || *s.Aggregate,
	}
}

func normalizeAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, NormalizePhrase(item))
	}
	return dedupe(out)
}

// LocationCatalog maps canonical location ids to their metadata.
type LocationCatalog struct {
	locations     []LocationMeta
	byID          map[string]int
	aggregateID   string
	aggregateName string
}

// NewLocationCatalog validates specs and builds a catalog. aggregateID and
// aggregateName describe the synthetic rollup; empty values use defaults.
func NewLocationCatalog(specs []LocationSpec, aggregateID, aggregateName string) (*LocationCatalog, error) {
	if aggregateID == "" {
		aggregateID = DefaultAggregateID
	}
	if aggregateName == "" {
		aggregateName = "All Locations"
	}

	c := &LocationCatalog{
		byID:          make(map[string]int, len(specs)),
		aggregateID:   aggregateID,
		aggregateName: aggregateName,
	}
	for _, s := range specs {
		if strings.TrimSpace(s.ID) == "" {
			return nil, fmt.Errorf("location %q has no id", s.Name)
		}
		if s.ID == aggregateID {
			return nil, fmt.Errorf("location id %q collides with the aggregate id", s.ID)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate location id %q", s.ID)
		}
		c.byID[s.ID] = len(c.locations)
		c.locations = append(c.locations, s.Meta())
	}
	return c, nil
}

// Locations returns every configured location in order.
func (c *LocationCatalog) Locations() []LocationMeta {
	out := make([]LocationMeta, len(c.locations))
	copy(out, c.locations)
	return out
}

// Active returns the active locations in order.
func (c *LocationCatalog) Active() []LocationMeta {
	var out []LocationMeta
	for _, l := range c.locations {
		if l.Active {
			out = append(out, l)
		}
	}
	return out
}

// Members returns the active locations that roll up into the aggregate.
func (c *LocationCatalog) Members() []LocationMeta {
	var out []LocationMeta
	for _, l := range c.locations {
		if l.Active && l.Aggregate {
			out = append(out, l)
		}
	}
	return out
}

// Get looks up a location by id.
func (c *LocationCatalog) Get(id string) (LocationMeta, bool) {
	i, ok := c.byID[id]
	if !ok {
		return LocationMeta{}, false
	}
	return c.locations[i], true
}

// AggregateID returns the synthetic "all locations" id.
func (c *LocationCatalog) AggregateID() string { return c.aggregateID }

// IsAggregate reports whether id is the synthetic rollup.
func (c *LocationCatalog) IsAggregate(id string) bool { return id == c.aggregateID }

// DisplayName returns a human name for id, including the aggregate.
func (c *LocationCatalog) DisplayName(id string) string {
	if c.IsAggregate(id) {
		return c.aggregateName
	}
	if l, ok := c.Get(id); ok {
		return l.DisplayName
	}
	return id
}

// Lookup finds a location by id, display name or detection phrase,
// ignoring case and punctuation.
func (c *LocationCatalog) Lookup(name string) (string, bool) {
	norm := Normalize(name)
	if norm == "" {
		return "", false
	}
	if norm == Normalize(c.aggregateID) || norm == Normalize(c.aggregateName) {
		return c.aggregateID, true
	}
	for _, l := range c.locations {
		if Normalize(l.ID) == norm || Normalize(l.DisplayName) == norm {
			return l.ID, true
		}
		for _, p := range l.Phrases {
			if Normalize(p) == norm {
				return l.ID, true
			}
		}
	}
	return "", false
}
