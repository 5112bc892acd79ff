package engine

import (
	"context"

	"github.com/spektr-org/tally/parser"
)

// ============================================================================
// COLLABORATORS - Interfaces the engine calls but does not implement
// ============================================================================
// RowSource - history of submitted rows (remote store, cache, CSV export)
// Recorder  - write-back of newly logged stats
// Narrator  - conversational prose for insight questions
// Numbers never depend on a collaborator's answer.
// ============================================================================

// RowSource supplies the ordered history of stats rows.
type RowSource interface {
	Rows(ctx context.Context) ([]Row, error)
}

// StaticRows serves a fixed row slice.
type StaticRows []Row

// Rows implements RowSource.
func (s StaticRows) Rows(context.Context) ([]Row, error) { return s, nil }

// Recorder persists a newly logged row and returns its id.
type Recorder interface {
	Record(ctx context.Context, row Row) (string, error)
}

// InsightRequest is the structured context handed to a Narrator.
type InsightRequest struct {
	Question   string            `json:"question"`
	Intent     parser.Kind       `json:"intent"`
	Metric     string            `json:"metric,omitempty"`
	Summary    string            `json:"summary"`
	Aggregate  *Aggregate        `json:"aggregate,omitempty"`
	Comparison *ComparisonResult `json:"comparison,omitempty"`
}

// Narrator turns computed numbers into conversational prose.
type Narrator interface {
	Narrate(ctx context.Context, req InsightRequest) (string, error)
}
