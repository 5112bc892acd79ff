package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spektr-org/tally/catalog"
	"github.com/spektr-org/tally/parser"
)

// ============================================================================
// EXECUTOR - Dispatcher
// ============================================================================
// Entry point: Engine.Handle(ctx, request, source)
//
// Pipeline:
//   1. Classify text → Intent (ordered stage table)
//   2. Resolve location (text → hint → church-wide → role default)
//   3. Resolve window(s) from text
//   4. ApplyFilters → SubView → ComputeAggregate (→ Compare)
//   5. Dispatch to builders (report / table / chart / sentence)
//
// Handle never returns an error. Every failure degrades into an answer:
// a clarification, the default window, or a zero-filled Aggregate.
// ============================================================================

type handlerFunc func(ctx context.Context, q *query) *Response

// query carries one request through a handler.
type query struct {
	req    Request
	intent parser.Intent
	now    time.Time
	source RowSource
	view   RecordView
}

// Engine answers attendance requests against a row history.
// It holds only immutable catalogs and is safe for concurrent use.
type Engine struct {
	metrics    *catalog.MetricCatalog
	locations  *catalog.LocationCatalog
	resolver   *parser.CampusResolver
	extractor  *parser.StatExtractor
	classifier *parser.Classifier
	cfg        *config
	handlers   map[parser.Kind]handlerFunc
}

// New builds an engine over the metric and location catalogs.
func New(metrics *catalog.MetricCatalog, locations *catalog.LocationCatalog, opts ...Option) *Engine {
	cfg := applyOptions(opts)
	resolver := parser.NewCampusResolver(locations, cfg.ChurchWidePhrases)
	extractor := parser.NewStatExtractor(metrics)

	e := &Engine{
		metrics:    metrics,
		locations:  locations,
		resolver:   resolver,
		extractor:  extractor,
		classifier: parser.NewClassifier(metrics, resolver, extractor, cfg.Stages),
		cfg:        cfg,
	}
	e.handlers = map[parser.Kind]handlerFunc{
		parser.KindLog:          e.handleLog,
		parser.KindGuidance:     e.handleGuidance,
		parser.KindComparison:   e.handleComparison,
		parser.KindReview:       e.handleQuery,
		parser.KindSimple:       e.handleQuery,
		parser.KindGeneral:      e.handleQuery,
		parser.KindInsight:      e.handleQuery,
		parser.KindUnrecognized: e.handleUnrecognized,
	}
	return e
}

// Metrics returns the metric catalog.
func (e *Engine) Metrics() *catalog.MetricCatalog { return e.metrics }

// Locations returns the location catalog.
func (e *Engine) Locations() *catalog.LocationCatalog { return e.locations }

// Classify exposes the classifier outcome without touching history.
func (e *Engine) Classify(text string) parser.Intent { return e.classifier.Classify(text) }

// Extract runs the stat extractor alone.
func (e *Engine) Extract(text string) map[string]int { return e.extractor.Extract(text) }

// ResolveLocation runs the campus resolver alone.
func (e *Engine) ResolveLocation(text string) parser.CampusMatch { return e.resolver.Resolve(text) }

// Handle answers one request. src may be nil for log-only callers.
func (e *Engine) Handle(ctx context.Context, req Request, src RowSource) *Response {
	if strings.TrimSpace(req.Text) == "" {
		return &Response{
			Text:               "Say something like \"how was attendance last month?\" or give me this week's numbers.",
			Intent:             parser.KindUnrecognized,
			NeedsClarification: true,
			Suggestions:        e.exampleQuestions(),
		}
	}

	q := &query{
		req:    req,
		intent: e.classifier.Classify(req.Text),
		now:    e.cfg.Now(),
		source: src,
	}
	e.cfg.Logger.Debug("classified request",
		"kind", q.intent.Kind, "stage", q.intent.Stage, "sub", q.intent.Sub,
		"metric", q.intent.Metric, "locations", q.intent.Locations)

	handler, ok := e.handlers[q.intent.Kind]
	if !ok {
		handler = e.handleUnrecognized
	}
	resp := handler(ctx, q)
	resp.Intent = q.intent.Kind
	resp.Stage = q.intent.Stage
	resp.Sub = q.intent.Sub
	return resp
}

// ============================================================================
// LOCATION RESOLUTION
// ============================================================================

// resolveLocation picks the location a request is about. Order: a named
// campus, then the caller's hint, then a church-wide phrase, then the
// caller role's default.
func (e *Engine) resolveLocation(q *query) (string, bool) {
	m := e.resolver.Resolve(q.req.Text)
	switch m.Tier {
	case parser.TierExact, parser.TierFuzzy, parser.TierPartial:
		return m.ID, true
	}
	if q.req.LocationHint != "" {
		if id, ok := e.locations.Lookup(q.req.LocationHint); ok {
			return id, true
		}
		e.cfg.Logger.Debug("ignoring unknown location hint", "hint", q.req.LocationHint)
	}
	if m.Tier == parser.TierChurchWide {
		return e.locations.AggregateID(), true
	}
	if role := strings.ToLower(strings.TrimSpace(q.req.CallerRole)); role != "" {
		if loc, ok := e.cfg.RoleDefaults[role]; ok {
			if id, ok := e.locations.Lookup(loc); ok {
				return id, true
			}
		}
	}
	return "", false
}

func (e *Engine) clarifyLocation(q *query) *Response {
	names := e.locationNames()
	return &Response{
		Text: fmt.Sprintf("Which campus do you mean? Try %s, or %s.",
			strings.Join(names, ", "), e.locations.DisplayName(e.locations.AggregateID())),
		NeedsClarification: true,
		Suggestions:        names,
	}
}

func (e *Engine) locationNames() []string {
	var names []string
	for _, l := range e.locations.Active() {
		names = append(names, l.DisplayName)
	}
	return names
}

// ============================================================================
// HISTORY
// ============================================================================

// loadView fetches history once per request. A failing source degrades to
// an empty history.
func (e *Engine) loadView(ctx context.Context, q *query) RecordView {
	if q.view != nil {
		return q.view
	}
	var rows []Row
	if q.source != nil {
		fetched, err := q.source.Rows(ctx)
		if err != nil {
			e.cfg.Logger.Warn("history fetch failed, answering from empty history", "err", err)
		} else {
			rows = fetched
		}
	}
	q.view = NewRowView(rows)
	e.cfg.Logger.Debug("loaded history", "rows", q.view.Len())
	return q.view
}

func (e *Engine) aggregate(ctx context.Context, q *query, id string, window parser.TimeWindow) (Aggregate, RecordView) {
	filtered := ApplyFilters(e.loadView(ctx, q), NewLocationFilter(e.locations, id), window, e.cfg.UndatedPolicy)
	agg := ComputeAggregate(filtered, e.metrics, id, e.locations.DisplayName(id), window)
	e.cfg.Logger.Debug("aggregated",
		"location", id, "window", window.String(), "records", filtered.Len(), "entries", agg.EntryCount)
	return agg, filtered
}

// ============================================================================
// LOG
// ============================================================================

func (e *Engine) handleLog(ctx context.Context, q *query) *Response {
	extracted := q.intent.Extracted
	resp := &Response{
		Extracted:          extracted,
		MissingSuggestions: MissingSuggestions(extracted, e.metrics),
	}

	id, ok := e.resolveLocation(q)
	if !ok || e.locations.IsAggregate(id) {
		resp.Text = LogSentence("", extracted, e.metrics) + " Which campus are these numbers for?"
		resp.NeedsClarification = true
		resp.Suggestions = e.locationNames()
		return resp
	}

	resp.Location = id
	resp.LocationName = e.locations.DisplayName(id)
	resp.Text = LogSentence(resp.LocationName, extracted, e.metrics)
	if len(resp.MissingSuggestions) > 0 {
		missing := resp.MissingSuggestions
		if len(missing) > 3 {
			missing = missing[:3]
		}
		resp.Text += fmt.Sprintf(" Anything for %s?", strings.Join(missing, ", "))
	}

	if e.cfg.Recorder != nil {
		recordID, err := e.cfg.Recorder.Record(ctx, e.logRow(id, extracted, q.now))
		if err != nil {
			e.cfg.Logger.Warn("recording logged stats failed", "location", id, "err", err)
		} else {
			resp.RecordID = recordID
		}
	}
	return resp
}

// logRow renders extracted stats in the current write schema.
func (e *Engine) logRow(id string, extracted map[string]int, now time.Time) Row {
	row := Row{
		"location":  id,
		"timestamp": now.Format(time.RFC3339),
	}
	for key, v := range extracted {
		row[key] = strconv.Itoa(v)
	}
	return row
}

// ============================================================================
// GUIDANCE / UNRECOGNIZED
// ============================================================================

func (e *Engine) handleGuidance(_ context.Context, q *query) *Response {
	example := e.exampleLocation(q)
	return &Response{
		Text:        GuidanceSentence(e.metrics, example),
		Suggestions: GuidanceExamples(example),
	}
}

func (e *Engine) exampleLocation(q *query) string {
	if id, ok := e.resolveLocation(q); ok && !e.locations.IsAggregate(id) {
		return e.locations.DisplayName(id)
	}
	if active := e.locations.Active(); len(active) > 0 {
		return active[0].DisplayName
	}
	return "your campus"
}

func (e *Engine) handleUnrecognized(_ context.Context, _ *query) *Response {
	return &Response{
		Text:               "I didn't catch that. Ask about attendance, salvations or giving, or give me the numbers to log them.",
		NeedsClarification: true,
		Suggestions:        e.exampleQuestions(),
	}
}

func (e *Engine) exampleQuestions() []string {
	loc := "South Campus"
	if active := e.locations.Active(); len(active) > 0 {
		loc = active[0].DisplayName
	}
	return []string{
		fmt.Sprintf("How was attendance at %s last month?", loc),
		"Compare this year to last year",
		"Give me the quarterly review",
	}
}

// ============================================================================
// QUERIES - simple, general, review, insight
// ============================================================================

// reviewDefaults maps a review cadence to the window it reviews when the
// text gives no period of its own.
var reviewDefaults = map[parser.ReviewPeriod]string{
	parser.ReviewAnnual:    "this year",
	parser.ReviewQuarterly: "this quarter",
	parser.ReviewMonthly:   "this month",
	parser.ReviewMidYear:   "first half",
}

func (e *Engine) handleQuery(ctx context.Context, q *query) *Response {
	id, ok := e.resolveLocation(q)
	if !ok {
		return e.clarifyLocation(q)
	}

	window := parser.ResolveWindow(q.req.Text, q.now)
	if q.intent.Kind == parser.KindReview && window.IsDefault() {
		if phrase, ok := reviewDefaults[parser.ReviewPeriod(q.intent.Sub)]; ok {
			window = parser.ResolveWindow(phrase, q.now)
		}
	}

	agg, filtered := e.aggregate(ctx, q, id, window)
	title := fmt.Sprintf("%s, %s", agg.LocationName, window.Label)
	resp := &Response{
		Location:     id,
		LocationName: agg.LocationName,
		Window:       &window,
		Report:       BuildReport(agg),
		Stats:        &agg,
	}

	metric := q.intent.Metric
	switch q.intent.Kind {
	case parser.KindSimple:
		resp.Text = SummarySentence(agg, metric, wantsAverage(q.req.Text))
	case parser.KindInsight:
		resp.Text = SummarySentence(agg, metric, false)
		resp.Table = BuildReportTable(agg, title)
		e.narrate(ctx, q, resp, InsightRequest{Aggregate: &agg})
	default:
		resp.Text = SummarySentence(agg, "", false)
		resp.Table = BuildReportTable(agg, title)
	}

	if agg.Empty() {
		return resp
	}

	focus := e.focusMetric(metric)
	switch {
	case q.intent.Kind == parser.KindReview:
		groups := GroupAndAggregate(filtered, DimensionMonth, focus, "chronological")
		resp.Chart = BuildTrendChart(groups, DimensionMonth, agg.Metric(focus.Key), title)
	case q.intent.Kind == parser.KindGeneral && e.locations.IsAggregate(id):
		groups := e.locationGroups(filtered, focus)
		resp.Table = BuildBreakdownTable(groups, LabelForDimension(DimensionLocation), agg.Metric(focus.Key), title)
		resp.Chart = BuildTrendChart(groups, DimensionLocation, agg.Metric(focus.Key), title)
	}
	return resp
}

// locationGroups breaks an aggregate view down per location. Raw location
// values that resolve to the same catalog entry share one bucket.
func (e *Engine) locationGroups(view RecordView, meta catalog.MetricMeta) []Group {
	groups := GroupByKey(view, func(v RecordView, i int) string {
		raw := RecordLocation(v, i)
		if id, ok := e.locations.Lookup(raw); ok {
			return id
		}
		return raw
	}, meta, "value_desc")
	for i := range groups {
		groups[i].Label = e.locations.DisplayName(groups[i].Key)
	}
	return groups
}

// focusMetric is the named metric, else the first catalog metric.
func (e *Engine) focusMetric(key string) catalog.MetricMeta {
	if m, ok := e.metrics.Get(key); ok {
		return m
	}
	return e.metrics.Metrics()[0]
}

func wantsAverage(text string) bool {
	t := " " + catalog.NormalizePhrase(text) + " "
	for _, w := range []string{"average", "avg", "mean", "typical", "per service", "per week"} {
		if strings.Contains(t, " "+w+" ") {
			return true
		}
	}
	return false
}

// narrate asks the Narrator for prose. The templated sentence stays as the
// answer when no narrator is set or it fails.
func (e *Engine) narrate(ctx context.Context, q *query, resp *Response, req InsightRequest) {
	if e.cfg.Narrator == nil {
		return
	}
	req.Question = q.req.Text
	req.Intent = q.intent.Kind
	req.Metric = q.intent.Metric
	req.Summary = resp.Text
	text, err := e.cfg.Narrator.Narrate(ctx, req)
	if err != nil {
		e.cfg.Logger.Warn("narrator failed, keeping templated answer", "err", err)
		return
	}
	resp.Narrative = strings.TrimSpace(text)
}

// ============================================================================
// COMPARISON
// ============================================================================

func (e *Engine) handleComparison(ctx context.Context, q *query) *Response {
	var cmp ComparisonResult
	var window parser.TimeWindow

	if q.intent.Sub == parser.SubLocationCompare && len(q.intent.Locations) >= 2 {
		window = parser.ResolveWindow(q.req.Text, q.now)
		base, _ := e.aggregate(ctx, q, q.intent.Locations[0], window)
		current, _ := e.aggregate(ctx, q, q.intent.Locations[1], window)
		cmp = Compare(CompareLocations, base, current, q.intent.Metric)
	} else {
		id, ok := e.resolveLocation(q)
		if !ok {
			return e.clarifyLocation(q)
		}
		baseWindow, currentWindow := parser.ResolveComparisonWindows(q.req.Text, q.now)
		window = currentWindow
		base, _ := e.aggregate(ctx, q, id, baseWindow)
		current, _ := e.aggregate(ctx, q, id, currentWindow)
		cmp = Compare(ComparePeriods, base, current, q.intent.Metric)
	}

	baseLabel, currentLabel := sideLabels(cmp)
	title := fmt.Sprintf("%s vs %s", currentLabel, baseLabel)
	resp := &Response{
		Location:       cmp.Current.LocationID,
		LocationName:   cmp.Current.LocationName,
		Window:         &window,
		Comparison:     true,
		Reports:        []Aggregate{cmp.Base, cmp.Current},
		PercentChanges: cmp.PercentChanges,
		Report:         BuildComparisonReport(cmp),
		Table:          BuildComparisonTable(cmp, title),
		Chart:          BuildComparisonChart(cmp, title),
		Text:           ComparisonSentence(cmp),
	}
	if cmp.Context == CompareLocations {
		resp.Location, resp.LocationName = "", ""
	}
	if q.intent.Signals.Insight {
		e.narrate(ctx, q, resp, InsightRequest{Comparison: &cmp})
	}
	return resp
}
