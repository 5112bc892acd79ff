package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LocationsFile is the on-disk shape of a standalone location catalog.
//
//	aggregate:
//	  id: all
//	  name: All Campuses
//	locations:
//	  - id: south
//	    name: South Campus
//	    phrases: [south, southside]
//	    variants: [souf, sowth]
//	    stems: [sout]
type LocationsFile struct {
	Aggregate struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"aggregate"`
	Locations []LocationSpec `yaml:"locations"`
}

// ParseLocationsYAML builds a LocationCatalog from YAML bytes.
func ParseLocationsYAML(data []byte) (*LocationCatalog, error) {
	var f LocationsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse locations YAML: %w", err)
	}
	if len(f.Locations) == 0 {
		return nil, fmt.Errorf("locations YAML defines no locations")
	}
	return NewLocationCatalog(f.Locations, f.Aggregate.ID, f.Aggregate.Name)
}

// LoadLocationsFile reads a location catalog from a YAML file.
func LoadLocationsFile(path string) (*LocationCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read locations file: %w", err)
	}
	c, err := ParseLocationsYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
