package engine

import (
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/spektr-org/tally/parser"
)

// ============================================================================
// ENGINE OPTIONS - Functional options for New()
// ============================================================================

// Option configures engine behavior via functional options pattern.
type Option func(*config)

type config struct {
	Now               func() time.Time
	Logger            *log.Logger
	RoleDefaults      map[string]string // caller role -> location id or name
	Narrator          Narrator
	Recorder          Recorder
	UndatedPolicy     UndatedPolicy
	ChurchWidePhrases []string
	Stages            []parser.Stage
}

// WithNow fixes the clock. Relative periods resolve against it.
func WithNow(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.Now = now
		}
	}
}

// WithLogger sets the logger. Engine lines are Debug, fallbacks are Warn.
func WithLogger(l *log.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithRoleDefaults maps caller roles to a default location, used when the
// text names none and no hint was given.
func WithRoleDefaults(defaults map[string]string) Option {
	return func(c *config) {
		c.RoleDefaults = make(map[string]string, len(defaults))
		for role, loc := range defaults {
			c.RoleDefaults[strings.ToLower(strings.TrimSpace(role))] = loc
		}
	}
}

// WithNarrator enables prose for insight questions.
func WithNarrator(n Narrator) Option {
	return func(c *config) { c.Narrator = n }
}

// WithRecorder enables write-back of logged stats.
func WithRecorder(r Recorder) Option {
	return func(c *config) { c.Recorder = r }
}

// WithUndatedPolicy decides whether rows without a timestamp count in
// windowed queries. Default IncludeUndated.
func WithUndatedPolicy(p UndatedPolicy) Option {
	return func(c *config) { c.UndatedPolicy = p }
}

// WithChurchWidePhrases replaces the phrases that mean "every location".
func WithChurchWidePhrases(phrases []string) Option {
	return func(c *config) { c.ChurchWidePhrases = phrases }
}

// WithStages replaces the intent classification table.
func WithStages(stages []parser.Stage) Option {
	return func(c *config) { c.Stages = stages }
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		Now:           time.Now,
		Logger:        log.Default(),
		UndatedPolicy: IncludeUndated,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
