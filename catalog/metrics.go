package catalog

import (
	"fmt"
)

// MetricMeta describes one tracked statistic.
type MetricMeta struct {
	Key         string   `json:"key" yaml:"key"`
	DisplayName string   `json:"displayName" yaml:"displayName"`
	Aliases     []string `json:"aliases" yaml:"aliases"`   // legacy column names, read in order
	Keywords    []string `json:"keywords" yaml:"keywords"` // vocabulary used when a question names the metric
	Core        bool     `json:"core,omitempty" yaml:"core"`
}

// MetricCatalog is the fixed, ordered list of recognized metrics.
type MetricCatalog struct {
	metrics []MetricMeta
	index   map[string]int
}

// NewMetricCatalog validates metrics and builds a catalog.
// Each entry's Key is always the first alias so current-schema rows win.
func NewMetricCatalog(metrics []MetricMeta) (*MetricCatalog, error) {
	if len(metrics) == 0 {
		return nil, fmt.Errorf("metric catalog is empty")
	}

	c := &MetricCatalog{
		metrics: make([]MetricMeta, 0, len(metrics)),
		index:   make(map[string]int, len(metrics)),
	}
	for _, m := range metrics {
		if m.Key == "" {
			return nil, fmt.Errorf("metric with display name %q has no key", m.DisplayName)
		}
		if _, dup := c.index[m.Key]; dup {
			return nil, fmt.Errorf("duplicate metric key %q", m.Key)
		}
		if m.DisplayName == "" {
			m.DisplayName = m.Key
		}
		m.Aliases = dedupe(append([]string{m.Key}, m.Aliases...))
		m.Keywords = append([]string(nil), m.Keywords...)
		c.index[m.Key] = len(c.metrics)
		c.metrics = append(c.metrics, m)
	}
	return c, nil
}

// Len returns the number of metrics.
func (c *MetricCatalog) Len() int { return len(c.metrics) }

// Metrics returns a copy of the catalog entries in order.
func (c *MetricCatalog) Metrics() []MetricMeta {
	out := make([]MetricMeta, len(c.metrics))
	copy(out, c.metrics)
	return out
}

// Keys returns metric keys in catalog order.
func (c *MetricCatalog) Keys() []string {
	keys := make([]string, len(c.metrics))
	for i, m := range c.metrics {
		keys[i] = m.Key
	}
	return keys
}

// Get looks up a metric by key.
func (c *MetricCatalog) Get(key string) (MetricMeta, bool) {
	i, ok := c.index[key]
	if !ok {
		return MetricMeta{}, false
	}
	return c.metrics[i], true
}

// Label returns the display name for key, or key itself when unknown.
func (c *MetricCatalog) Label(key string) string {
	if m, ok := c.Get(key); ok {
		return m.DisplayName
	}
	return key
}

// Position returns the catalog order of key, or -1.
func (c *MetricCatalog) Position(key string) int {
	if i, ok := c.index[key]; ok {
		return i
	}
	return -1
}

// Core returns the metrics flagged as core, in order.
func (c *MetricCatalog) Core() []MetricMeta {
	var out []MetricMeta
	for _, m := range c.metrics {
		if m.Core {
			out = append(out, m)
		}
	}
	return out
}

// ============================================================================
// DEFAULT METRICS
// ============================================================================
// Alias lists carry every column name the weekly stats sheet has used.
// Keys are the write schema going forward.

var defaultMetrics = []MetricMeta{
	{
		Key:         "total_attendance",
		DisplayName: "Total Attendance",
		Aliases:     []string{"Total Attendance", "attendance", "total", "headcount", "adults"},
		Keywords:    []string{"attendance", "attended", "attending", "people", "headcount", "crowd", "came"},
		Core:        true,
	},
	{
		Key:         "first_time_visitors",
		DisplayName: "First Time Visitors",
		Aliases:     []string{"new_people", "New People", "first_time_guests", "visitors", "guests"},
		Keywords:    []string{"first time visitors", "first-time visitors", "first timers", "visitors", "guests", "new people", "new visitors"},
		Core:        true,
	},
	{
		Key:         "new_christians",
		DisplayName: "New Christians",
		Aliases:     []string{"New Christians", "salvations", "decisions", "new_believers"},
		Keywords:    []string{"new christians", "new christian", "salvations", "saved", "decisions", "new believers"},
		Core:        true,
	},
	{
		Key:         "rededications",
		DisplayName: "Rededications",
		Aliases:     []string{"re_dedications", "recommitments"},
		Keywords:    []string{"rededications", "rededication", "recommitments"},
	},
	{
		Key:         "baptisms",
		DisplayName: "Baptisms",
		Aliases:     []string{"Baptisms", "water_baptisms"},
		Keywords:    []string{"baptisms", "baptism", "baptized"},
	},
	{
		Key:         "child_dedications",
		DisplayName: "Child Dedications",
		Aliases:     []string{"dedications", "baby_dedications"},
		Keywords:    []string{"child dedications", "baby dedications", "dedications"},
	},
	{
		Key:         "information_gathered",
		DisplayName: "Information Gathered",
		Aliases:     []string{"info_gathered", "information", "connect_cards"},
		Keywords:    []string{"information gathered", "info gathered", "connect cards", "info cards"},
	},
	{
		Key:         "connect_groups",
		DisplayName: "Connect Groups",
		Aliases:     []string{"Connect Groups", "small_groups", "groups"},
		Keywords:    []string{"connect groups", "small groups", "life groups", "groups"},
	},
	{
		Key:         "dream_team",
		DisplayName: "Dream Team",
		Aliases:     []string{"Dream Team", "volunteers", "dream_team_volunteers"},
		Keywords:    []string{"dream team", "volunteers", "serving"},
		Core:        true,
	},
	{
		Key:         "tithe",
		DisplayName: "Tithe",
		Aliases:     []string{"Tithe", "tithes", "tithes_offerings", "giving", "offering"},
		Keywords:    []string{"tithe", "tithes", "giving", "offering", "offerings"},
	},
	{
		Key:         "youth_attendance",
		DisplayName: "Youth Attendance",
		Aliases:     []string{"Youth Attendance", "youth", "students"},
		Keywords:    []string{"youth attendance", "youth", "students", "teens"},
		Core:        true,
	},
	{
		Key:         "youth_new_people",
		DisplayName: "Youth New People",
		Aliases:     []string{"youth_visitors", "new_youth"},
		Keywords:    []string{"youth new people", "youth visitors", "new youth", "youth first time visitors"},
	},
	{
		Key:         "youth_new_christians",
		DisplayName: "Youth New Christians",
		Aliases:     []string{"youth_salvations", "youth_decisions"},
		Keywords:    []string{"youth new christians", "youth salvations", "youth decisions"},
	},
	{
		Key:         "kids_attendance",
		DisplayName: "Kids Attendance",
		Aliases:     []string{"Kids Attendance", "kids", "children", "kids_church"},
		Keywords:    []string{"kids attendance", "kids", "children", "kids church"},
		Core:        true,
	},
	{
		Key:         "kids_new_people",
		DisplayName: "Kids New People",
		Aliases:     []string{"new_kids", "kids_visitors"},
		Keywords:    []string{"new kids", "kids new people", "kids visitors", "new children"},
	},
	{
		Key:         "kids_new_christians",
		DisplayName: "Kids New Christians",
		Aliases:     []string{"kids_salvations", "kids_decisions"},
		Keywords:    []string{"kids new christians", "kids salvations", "kids decisions"},
	},
	{
		Key:         "online_attendance",
		DisplayName: "Online Attendance",
		Aliases:     []string{"online", "online_viewers", "stream_views"},
		Keywords:    []string{"online attendance", "online viewers", "online", "livestream", "stream"},
	},
	{
		Key:         "prayer_requests",
		DisplayName: "Prayer Requests",
		Aliases:     []string{"prayer", "prayer_cards"},
		Keywords:    []string{"prayer requests", "prayer cards", "prayers"},
	},
}

// DefaultMetrics returns the built-in catalog of weekly stats.
func DefaultMetrics() *MetricCatalog {
	c, err := NewMetricCatalog(defaultMetrics)
	if err != nil {
		panic(fmt.Sprintf("catalog: invalid default metrics: %v", err))
	}
	return c
}
