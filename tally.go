// Package tally turns plain-language church stats into numbers and answers.
//
// Usage:
//
//	import "github.com/spektr-org/tally/engine"
//
//	eng := engine.New(catalog.DefaultMetrics(), locations,
//	    engine.WithRoleDefaults(map[string]string{"south_pastor": "south"}),
//	)
//	resp := eng.Handle(ctx, engine.Request{Text: "south campus had 145 people"}, rows)
//
// The parser package resolves campuses, extracts stats and time windows, and
// classifies intent. The engine aggregates the history rows it is handed and
// returns render-ready output (report rows, table data, chart config, text).
//
// Conversational prose is handled separately by the narrator package.
// Every number in a response is computed locally.
package tally
