// Package config loads tally settings from tally.yaml and TALLY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/spektr-org/tally/catalog"
	"github.com/spektr-org/tally/engine"
	"github.com/spektr-org/tally/narrator"
)

// Config represents the tally configuration.
type Config struct {
	Church        string                 `json:"church" mapstructure:"church"`
	Aggregate     AggregateConfig        `json:"aggregate" mapstructure:"aggregate"`
	Locations     []catalog.LocationSpec `json:"locations" mapstructure:"locations"`
	LocationsFile string                 `json:"locations_file" mapstructure:"locations_file"`
	Roles         map[string]string      `json:"roles" mapstructure:"roles"`
	Undated       string                 `json:"undated" mapstructure:"undated"`
	Store         StoreConfig            `json:"store" mapstructure:"store"`
	Narrator      narrator.Config        `json:"narrator" mapstructure:"narrator"`
	Server        ServerConfig           `json:"server" mapstructure:"server"`
	Logging       LoggingConfig          `json:"log" mapstructure:"log"`
}

// AggregateConfig names the church-wide pseudo-location.
type AggregateConfig struct {
	ID   string `json:"id" mapstructure:"id"`
	Name string `json:"name" mapstructure:"name"`
}

// StoreConfig contains history source configuration
type StoreConfig struct {
	URL       string        `json:"url" mapstructure:"url"`
	Token     string        `json:"token" mapstructure:"token"`
	CachePath string        `json:"cache_path" mapstructure:"cache_path"`
	File      string        `json:"file" mapstructure:"file"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
	File   string `json:"file" mapstructure:"file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Aggregate: AggregateConfig{ID: "all", Name: "All Campuses"},
		Roles:     map[string]string{},
		Undated:   "include",
		Store: StoreConfig{
			Timeout: 30 * time.Second,
		},
		Narrator: narrator.DefaultGeminiConfig(""),
		Server:   ServerConfig{Addr: ":8080"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration. An explicit path must exist; otherwise tally.yaml
// is searched in the working directory and $HOME/.tally, and a missing file
// yields the defaults. TALLY_* variables override either.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix("TALLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tally")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.tally")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Roles == nil {
		cfg.Roles = map[string]string{}
	}
	return &cfg, nil
}

// setDefaults registers every scalar key so AutomaticEnv can see it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("church", d.Church)
	v.SetDefault("aggregate.id", d.Aggregate.ID)
	v.SetDefault("aggregate.name", d.Aggregate.Name)
	v.SetDefault("locations_file", d.LocationsFile)
	v.SetDefault("undated", d.Undated)
	v.SetDefault("store.url", d.Store.URL)
	v.SetDefault("store.token", d.Store.Token)
	v.SetDefault("store.cache_path", d.Store.CachePath)
	v.SetDefault("store.file", d.Store.File)
	v.SetDefault("store.timeout", d.Store.Timeout)
	v.SetDefault("narrator.api_key", d.Narrator.APIKey)
	v.SetDefault("narrator.model", d.Narrator.Model)
	v.SetDefault("narrator.endpoint", d.Narrator.Endpoint)
	v.SetDefault("narrator.church", d.Narrator.Church)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("log.level", d.Logging.Level)
	v.SetDefault("log.format", d.Logging.Format)
	v.SetDefault("log.file", d.Logging.File)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Locations) == 0 && c.LocationsFile == "" {
		return &ConfigError{Field: "locations", Message: "define locations inline or set locations_file"}
	}
	if len(c.Locations) > 0 && c.LocationsFile != "" {
		return &ConfigError{Field: "locations_file", Message: "cannot be combined with inline locations"}
	}
	if c.Aggregate.ID == "" {
		return &ConfigError{Field: "aggregate.id", Message: "must not be empty"}
	}
	if _, err := c.UndatedPolicy(); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return &ConfigError{Field: "log.level", Message: err.Error()}
	}
	switch c.Logging.Format {
	case "", "text", "json", "logfmt":
	default:
		return &ConfigError{Field: "log.format", Message: "must be text, json or logfmt"}
	}
	if c.Store.Timeout < 0 {
		return &ConfigError{Field: "store.timeout", Message: "must not be negative"}
	}
	return nil
}

// UndatedPolicy maps the undated setting onto the engine policy.
func (c *Config) UndatedPolicy() (engine.UndatedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(c.Undated)) {
	case "", "include":
		return engine.IncludeUndated, nil
	case "exclude":
		return engine.ExcludeUndated, nil
	}
	return engine.IncludeUndated, &ConfigError{Field: "undated", Message: "must be include or exclude"}
}

// LocationCatalog builds the catalog from the inline list or the locations
// file, then checks that every role points at a known location.
func (c *Config) LocationCatalog() (*catalog.LocationCatalog, error) {
	var (
		cat *catalog.LocationCatalog
		err error
	)
	if c.LocationsFile != "" {
		cat, err = catalog.LoadLocationsFile(c.LocationsFile)
	} else {
		cat, err = catalog.NewLocationCatalog(c.Locations, c.Aggregate.ID, c.Aggregate.Name)
	}
	if err != nil {
		return nil, err
	}

	for role, id := range c.Roles {
		if _, ok := cat.Lookup(id); !ok {
			return nil, &ConfigError{Field: "roles." + role, Message: fmt.Sprintf("unknown location %q", id)}
		}
	}
	return cat, nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
