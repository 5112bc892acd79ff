package parser

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spektr-org/tally/catalog"
)

// ============================================================================
// INTENT CLASSIFIER - Ordered stage table
// ============================================================================
// Every utterance is reduced to Signals once, then the stage table is walked
// top-down. The first stage whose predicate holds decides the Kind. The
// order of DefaultStages is the contract: an utterance that fits several
// stages always lands in the earliest one.
// ============================================================================

// Kind is the classified request type.
type Kind string

const (
	KindLog          Kind = "log"
	KindGuidance     Kind = "request-guidance"
	KindComparison   Kind = "query-comparison"
	KindReview       Kind = "query-review"
	KindSimple       Kind = "query-simple"
	KindGeneral      Kind = "query-general"
	KindInsight      Kind = "query-insight"
	KindUnrecognized Kind = "unrecognized"
)

// Comparison sub-types.
const (
	SubLocationCompare = "location"
	SubPeriodCompare   = "period"
)

// IsQuery reports whether the kind reads history.
func (k Kind) IsQuery() bool {
	switch k {
	case KindComparison, KindReview, KindSimple, KindGeneral, KindInsight:
		return true
	}
	return false
}

// Signals are the facts every stage predicate reads.
type Signals struct {
	Text         string         `json:"-"`
	HasDigits    bool           `json:"hasDigits"`
	Question     bool           `json:"question"`
	Quantitative bool           `json:"quantitative"`
	Comparison   bool           `json:"comparison"`
	Review       bool           `json:"review"`
	Guidance     bool           `json:"guidance"`
	Insight      bool           `json:"insight"`
	ChurchWide   bool           `json:"churchWide"`
	Years        []int          `json:"years,omitempty"`
	Quarters     []int          `json:"quarters,omitempty"`
	Months       []time.Month   `json:"months,omitempty"`
	Locations    []string       `json:"locations,omitempty"`
	Metric       string         `json:"metric,omitempty"`
	Extracted    map[string]int `json:"extracted,omitempty"`
}

// Stage is one row of the classification table.
type Stage struct {
	Name  string
	Kind  Kind
	Match func(Signals) bool
	// Sub derives the sub-type once the stage has matched. May be nil.
	Sub func(Signals) string
}

// Intent is the classifier outcome.
type Intent struct {
	Kind      Kind           `json:"kind"`
	Stage     string         `json:"stage"`
	Sub       string         `json:"sub,omitempty"`
	Metric    string         `json:"metric,omitempty"`
	Locations []string       `json:"locations,omitempty"`
	Extracted map[string]int `json:"extracted,omitempty"`
	Signals   Signals        `json:"signals"`
}

// DefaultStages returns the classification table in priority order.
func DefaultStages() []Stage {
	return []Stage{
		{
			Name: "log",
			Kind: KindLog,
			Match: func(s Signals) bool {
				return s.HasDigits && len(s.Extracted) > 0 && !s.Question && !s.Comparison && !s.Review
			},
		},
		{
			Name:  "request-guidance",
			Kind:  KindGuidance,
			Match: func(s Signals) bool { return !s.HasDigits && s.Guidance },
		},
		{
			Name:  "cross-location-comparison",
			Kind:  KindComparison,
			Match: func(s Signals) bool { return len(s.Locations) >= 2 },
			Sub:   func(Signals) string { return SubLocationCompare },
		},
		{
			Name: "period-comparison",
			Kind: KindComparison,
			Match: func(s Signals) bool {
				return s.Comparison || len(s.Years) >= 2 || len(s.Quarters) >= 2
			},
			Sub: func(Signals) string { return SubPeriodCompare },
		},
		{
			Name:  "review",
			Kind:  KindReview,
			Match: func(s Signals) bool { return s.Review },
			Sub:   func(s Signals) string { return string(DetectPeriod(s.Text)) },
		},
		{
			Name:  "simple-stat",
			Kind:  KindSimple,
			Match: func(s Signals) bool { return s.Metric != "" },
		},
		{
			Name: "general",
			Kind: KindGeneral,
			Match: func(s Signals) bool {
				return s.Question || s.Quantitative || s.ChurchWide || len(s.Locations) > 0
			},
		},
		{
			Name:  "insight",
			Kind:  KindInsight,
			Match: func(s Signals) bool { return s.Insight },
		},
		{
			Name:  "unrecognized",
			Kind:  KindUnrecognized,
			Match: func(Signals) bool { return true },
		},
	}
}

// --- Vocabulary ---

var (
	questionLeads = map[string]bool{
		"how": true, "what": true, "whats": true, "which": true, "when": true, "why": true,
		"who": true, "did": true, "does": true, "do": true, "is": true, "are": true,
		"was": true, "were": true, "can": true, "could": true, "show": true, "tell": true,
		"give": true, "list": true, "get": true, "pull": true,
	}
	questionPhrases = []string{
		"how many", "how much", "how did", "how are", "how is", "what was", "what is", "what were",
		"show me", "tell me", "give me", "can you", "could you", "i want to know", "i need to know",
	}
	quantitativePhrases = []string{
		"how many", "how much", "total", "totals", "average", "avg", "sum", "count", "number of",
		"numbers", "stats", "statistics", "figures", "metrics",
	}
	comparisonPhrases = []string{
		"vs", "versus", "compare", "compared", "comparing", "comparison", "against", "difference",
		"differ", "side by side",
	}
	reviewPhrases = []string{
		"review", "report", "summary", "summarize", "summarise", "recap", "overview", "breakdown",
		"annual", "quarterly", "monthly", "year in review", "how did we do", "wrap up",
	}
	guidancePhrases = []string{
		"log", "logging", "submit", "enter", "input", "add stats", "add my stats",
		"report stats", "report my stats", "update stats", "i want to report", "how do i report",
		"what should i say", "what can i say", "help me log",
	}
	insightPhrases = []string{
		"why", "insight", "insights", "trend", "trends", "trending", "growing", "declining",
		"advice", "recommend", "recommendation", "suggest", "should we", "improve", "encourage",
		"encouragement", "what does this mean", "analysis", "analyze", "analyse",
	}
	digitPattern = regexp.MustCompile(`\d`)
)

type keywordEntry struct {
	metric  string
	keyword string
	order   int
}

// Classifier turns an utterance into an Intent.
// It is immutable and safe for concurrent use.
type Classifier struct {
	resolver  *CampusResolver
	extractor *StatExtractor
	keywords  []keywordEntry
	stages    []Stage
}

// NewClassifier builds a classifier over the shared resolver and extractor.
// A nil stages slice uses DefaultStages.
func NewClassifier(metrics *catalog.MetricCatalog, resolver *CampusResolver, extractor *StatExtractor, stages []Stage) *Classifier {
	if stages == nil {
		stages = DefaultStages()
	}
	c := &Classifier{resolver: resolver, extractor: extractor, stages: stages}

	for order, m := range metrics.Metrics() {
		words := append([]string{}, m.Keywords...)
		words = append(words, m.DisplayName)
		for _, a := range m.Aliases {
			words = append(words, strings.ReplaceAll(a, "_", " "))
		}
		seen := make(map[string]bool)
		for _, w := range words {
			kw := catalog.NormalizePhrase(w)
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			c.keywords = append(c.keywords, keywordEntry{metric: m.Key, keyword: kw, order: order})
		}
	}
	sort.SliceStable(c.keywords, func(i, j int) bool {
		if len(c.keywords[i].keyword) != len(c.keywords[j].keyword) {
			return len(c.keywords[i].keyword) > len(c.keywords[j].keyword)
		}
		return c.keywords[i].order < c.keywords[j].order
	})
	return c
}

// Stages returns the table the classifier walks, in order.
func (c *Classifier) Stages() []Stage {
	out := make([]Stage, len(c.stages))
	copy(out, c.stages)
	return out
}

// Signals computes every predicate input for text.
func (c *Classifier) Signals(text string) Signals {
	t := prepare(text)
	s := Signals{
		Text:         text,
		HasDigits:    digitPattern.MatchString(text),
		Question:     isQuestion(text, t),
		Quantitative: hasAny(t, quantitativePhrases...),
		Comparison:   hasAny(t, comparisonPhrases...) || (hasAny(t, "between") && !monthRangePattern.MatchString(t)),
		Review:       hasAny(t, reviewPhrases...),
		Guidance:     hasAny(t, guidancePhrases...),
		Insight:      hasAny(t, insightPhrases...),
		Years:        ExplicitYears(text),
		Quarters:     QuarterTokens(text),
		Months:       MonthTokens(text),
		Locations:    c.resolver.ResolveAll(text),
		Metric:       c.MetricMention(text),
	}
	if s.HasDigits {
		s.Extracted = c.extractor.Extract(text)
	}
	if m := c.resolver.Resolve(text); m.Tier == TierChurchWide {
		s.ChurchWide = true
	}
	return s
}

// Classify walks the stage table and returns the first match.
func (c *Classifier) Classify(text string) Intent {
	s := c.Signals(text)
	for _, st := range c.stages {
		if !st.Match(s) {
			continue
		}
		in := Intent{
			Kind:      st.Kind,
			Stage:     st.Name,
			Metric:    s.Metric,
			Locations: s.Locations,
			Signals:   s,
		}
		if st.Sub != nil {
			in.Sub = st.Sub(s)
		}
		if st.Kind == KindLog {
			in.Extracted = s.Extracted
		}
		return in
	}
	return Intent{Kind: KindUnrecognized, Stage: "unrecognized", Signals: s}
}

// MetricMention returns the metric a question names, by longest keyword.
func (c *Classifier) MetricMention(text string) string {
	t := prepare(text)
	for _, k := range c.keywords {
		if strings.Contains(t, " "+k.keyword+" ") {
			return k.metric
		}
	}
	return ""
}

func isQuestion(raw, prepared string) bool {
	if strings.Contains(raw, "?") {
		return true
	}
	fields := strings.Fields(prepared)
	if len(fields) > 0 && questionLeads[fields[0]] {
		return true
	}
	return hasAny(prepared, questionPhrases...)
}
