package parser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/spektr-org/tally/catalog"
)

// ============================================================================
// STAT PATTERN EXTRACTOR - Free text to sparse metric map
// ============================================================================
// One global rule table holding two families:
//   - number-first rules ("145 people"), specific phrasings first
//   - label-first rules ("attendance was 145"), specific phrasings first
// The table is run twice, once with each family in front, and the pass that
// places more numbers wins (number-first on a tie). An unpunctuated list
// like "attendance 145 visitors 8 salvations 3" strands its last number
// when read number-first, so the label-first reading wins there.
// Within a pass a metric takes the first rule that matches and is never
// filled twice. A matched span is masked so a later, more generic rule cannot
// re-read it or match across it: "3 new christians" is gone before the
// generic "new" visitors rule runs.
// There is no "first number in the text" fallback.
// ============================================================================

// numberPattern accepts "145", "1,250", "$1,250.50".
const numberPattern = `(\$?\d{1,3}(?:,\d{3})+(?:\.\d+)?|\$?\d+(?:\.\d+)?)`

// afterSeparator joins a phrase and a trailing number: "attendance was 145".
const afterSeparator = `\s*(?:was|were|is|are|of|at|totaled|totalled|came to|:|=|-)?\s*`

// StatRule is one labeled pattern for one metric. Group 1 captures the number.
// LabelFirst marks rules whose phrase precedes the number.
type StatRule struct {
	Metric     string
	Label      string
	Pattern    *regexp.Regexp
	LabelFirst bool
}

// Extraction is one extracted value with the rule and span that produced it.
type Extraction struct {
	Metric string `json:"metric"`
	Value  int    `json:"value"`
	Rule   string `json:"rule"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

type ruleDef struct {
	metric string
	label  string
	phrase string
}

// Number-before phrasings, most specific first.
var beforeRules = []ruleDef{
	{"youth_new_christians", "youth salvations", `youth\s+(?:new\s+christians?|salvations?|decisions?|new\s+believers?|saved)`},
	{"kids_new_christians", "kids salvations", `(?:kids?|childrens?|children)\s+(?:new\s+christians?|salvations?|decisions?|new\s+believers?|saved)`},
	{"youth_new_people", "new youth", `(?:new\s+youth|youth\s+(?:first[\s-]time\s+(?:visitors?|guests?)|first[\s-]timers?|visitors?|guests?|new\s+people))`},
	{"kids_new_people", "new kids", `(?:new\s+(?:kids|children)|kids?\s+(?:first[\s-]time\s+(?:visitors?|guests?)|first[\s-]timers?|visitors?|guests?|new\s+people))`},
	{"new_christians", "new christians", `(?:new\s+christians?|new\s+believers?|salvations?|decisions?\s+for\s+christ|decisions?|(?:people\s+)?saved|gave\s+their\s+lives?)`},
	{"rededications", "rededications", `(?:re-?dedications?|recommitments?|rededicated)`},
	{"child_dedications", "dedications", `(?:(?:child|baby|infant)\s+dedications?|dedications?|babies\s+dedicated)`},
	{"baptisms", "baptisms", `(?:water\s+baptisms?|baptisms?|baptized|got\s+baptized)`},
	{"information_gathered", "info gathered", `(?:info(?:rmation)?\s+(?:gathered|cards?|forms?)|connect\s+cards?|contact\s+cards?)`},
	{"first_time_visitors", "first time visitors", `(?:first[\s-]time\s+(?:visitors?|guests?)|first[\s-]timers?|new\s+(?:visitors?|guests?|people|faces)|visitors?|guests?)`},
	{"connect_groups", "connect groups", `(?:connect\s+groups?|small\s+groups?|life\s+groups?|groups?)`},
	{"dream_team", "dream team", `(?:dream\s+team(?:\s+(?:members|volunteers))?|volunteers?|servers|serving)`},
	{"online_attendance", "online", `(?:online(?:\s+(?:viewers?|views|attendance))?|watched\s+online|livestream\s+views|streams?)`},
	{"prayer_requests", "prayer requests", `(?:prayer\s+(?:requests?|cards?)|prayers?)`},
	{"youth_attendance", "youth", `(?:youth|students|teens)(?:\s+(?:attendance|attended|in\s+attendance))?`},
	{"kids_attendance", "kids", `(?:kids|children|kids\s+church)(?:\s+(?:attendance|attended|in\s+attendance))?`},
	{"tithe", "tithe", `(?:in\s+tithes?|tithes?|in\s+giving|giving|in\s+offerings?|offerings?|dollars)`},
	{"total_attendance", "people", `(?:people|attendees|in\s+attendance|attendance|total|adults|attended|in\s+church)`},
	{"first_time_visitors", "new", `new`},
}

// Number-after phrasings, most specific first.
var afterRules = []ruleDef{
	{"youth_new_christians", "youth salvations", `youth\s+(?:new\s+christians?|salvations?|decisions?)`},
	{"kids_new_christians", "kids salvations", `(?:kids?|children)\s+(?:new\s+christians?|salvations?|decisions?)`},
	{"youth_new_people", "new youth", `(?:new\s+youth|youth\s+(?:first[\s-]time\s+visitors?|visitors?|guests?|new\s+people))`},
	{"kids_new_people", "new kids", `(?:new\s+kids|kids\s+(?:first[\s-]time\s+visitors?|visitors?|guests?|new\s+people))`},
	{"new_christians", "new christians", `(?:new\s+christians?|salvations?|decisions?|new\s+believers?)`},
	{"rededications", "rededications", `re-?dedications?`},
	{"child_dedications", "dedications", `(?:child\s+|baby\s+)?dedications?`},
	{"baptisms", "baptisms", `baptisms?`},
	{"information_gathered", "info gathered", `(?:info(?:rmation)?\s+gathered|connect\s+cards?)`},
	{"first_time_visitors", "first time visitors", `(?:first[\s-]time\s+(?:visitors?|guests?)|first[\s-]timers?|new\s+(?:visitors?|guests?|people)|visitors?|guests?)`},
	{"connect_groups", "connect groups", `(?:connect|small|life)\s+groups?`},
	{"dream_team", "dream team", `(?:dream\s+team|volunteers?)`},
	{"online_attendance", "online", `online(?:\s+(?:viewers?|views|attendance))?`},
	{"prayer_requests", "prayer requests", `prayer\s+(?:requests?|cards?)`},
	{"youth_attendance", "youth", `(?:youth|students)(?:\s+attendance)?`},
	{"kids_attendance", "kids", `(?:kids|children)(?:\s+(?:church|attendance))?`},
	{"tithe", "tithe", `(?:tithes?|giving|offerings?)`},
	{"total_attendance", "attendance", `(?:total\s+attendance|attendance|headcount|total)`},
}

// DefaultStatRules returns the compiled global rule table.
func DefaultStatRules() []StatRule {
	rules := make([]StatRule, 0, len(beforeRules)+len(afterRules))
	for _, d := range beforeRules {
		rules = append(rules, StatRule{
			Metric:  d.metric,
			Label:   d.label + " (number first)",
			Pattern: regexp.MustCompile(`(?i)(?:^|[^\w$.,])` + numberPattern + `\s*` + d.phrase + `\b`),
		})
	}
	for _, d := range afterRules {
		rules = append(rules, StatRule{
			Metric:     d.metric,
			Label:      d.label + " (number after)",
			Pattern:    regexp.MustCompile(`(?i)\b` + d.phrase + afterSeparator + numberPattern + `\b`),
			LabelFirst: true,
		})
	}
	return rules
}

// StatExtractor applies the rule table to free text.
// It is immutable and safe for concurrent use.
type StatExtractor struct {
	rules      []StatRule
	labelFirst []StatRule // rules reordered with the LabelFirst family in front
	metrics    *catalog.MetricCatalog
}

// NewStatExtractor keeps the default rules whose metric is in the catalog.
func NewStatExtractor(metrics *catalog.MetricCatalog) *StatExtractor {
	return NewStatExtractorWithRules(metrics, DefaultStatRules())
}

// NewStatExtractorWithRules uses a caller-supplied rule table, in order.
func NewStatExtractorWithRules(metrics *catalog.MetricCatalog, rules []StatRule) *StatExtractor {
	kept := make([]StatRule, 0, len(rules))
	for _, r := range rules {
		if _, ok := metrics.Get(r.Metric); ok {
			kept = append(kept, r)
		}
	}
	labelFirst := make([]StatRule, len(kept))
	copy(labelFirst, kept)
	sort.SliceStable(labelFirst, func(i, j int) bool {
		return labelFirst[i].LabelFirst && !labelFirst[j].LabelFirst
	})
	return &StatExtractor{rules: kept, labelFirst: labelFirst, metrics: metrics}
}

// Rules returns the rule table in evaluation order.
func (e *StatExtractor) Rules() []StatRule {
	out := make([]StatRule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Extract returns metric -> value for every metric found in text.
func (e *StatExtractor) Extract(text string) map[string]int {
	out := make(map[string]int)
	for _, x := range e.ExtractDetailed(text) {
		out[x.Metric] = x.Value
	}
	return out
}

// ExtractDetailed returns extractions in catalog order with their spans.
func (e *StatExtractor) ExtractDetailed(text string) []Extraction {
	yearsOnly := onlyYears(text)
	found := e.pass(text, e.rules, yearsOnly)
	if alt := e.pass(text, e.labelFirst, yearsOnly); len(alt) > len(found) {
		found = alt
	}

	out := make([]Extraction, 0, len(found))
	for _, key := range e.metrics.Keys() {
		if x, ok := found[key]; ok {
			out = append(out, x)
		}
	}
	return out
}

// pass runs rules in order over a private copy of text.
func (e *StatExtractor) pass(text string, rules []StatRule, yearsOnly bool) map[string]Extraction {
	work := []byte(text)
	found := make(map[string]Extraction)

	for _, rule := range rules {
		if _, done := found[rule.Metric]; done {
			continue
		}
		for _, loc := range rule.Pattern.FindAllSubmatchIndex(work, -1) {
			numStart, numEnd := loc[2], loc[3]
			raw := string(work[numStart:numEnd])
			if isYearToken(raw) && (yearsOnly || followsDateWord(work[:numStart])) {
				continue
			}
			value, ok := ParseCount(raw)
			if !ok {
				continue
			}
			found[rule.Metric] = Extraction{
				Metric: rule.Metric,
				Value:  value,
				Rule:   rule.Label,
				Start:  loc[0],
				End:    loc[1],
			}
			mask(work, loc[0], loc[1])
			break
		}
	}
	return found
}

// mask replaces a consumed span with NUL bytes so offsets stay stable. NUL
// is neither a word character nor whitespace, so no later pattern can
// bridge the span.
func mask(b []byte, start, end int) {
	for i := start; i < end; i++ {
		b[i] = 0
	}
}

var yearToken = regexp.MustCompile(`^(?:19|20)\d{2}$`)

func isYearToken(raw string) bool { return yearToken.MatchString(raw) }

var numberToken = regexp.MustCompile(`\$?\d[\d,]*(?:\.\d+)?`)

// onlyYears reports whether every number in text is year-shaped. Then the
// numbers name periods ("2023 attendance review"), not counts; a count of
// that size has to be written with a separator ("2,024 people").
func onlyYears(text string) bool {
	tokens := numberToken.FindAllString(text, -1)
	if len(tokens) == 0 {
		return false
	}
	for _, tok := range tokens {
		if !isYearToken(tok) {
			return false
		}
	}
	return true
}

var dateWordTail = regexp.MustCompile(`(?i)(?:\b(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sept?(?:ember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?|q[1-4]|in|since|for)\s*,?\s*)$`)

// followsDateWord reports whether the text before a number ends in a month,
// a quarter or a preposition, so "March 2024 attendance" is not a count.
func followsDateWord(prefix []byte) bool {
	return dateWordTail.Match([]byte(strings.TrimRight(string(prefix), " \x00")+" "))
}
