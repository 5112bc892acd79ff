package narrator

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spektr-org/tally/engine"
)

// ============================================================================
// PROMPT BUILDER
// ============================================================================
// The model sees the question, the templated answer, and the non-zero
// metrics of each Aggregate involved. Never raw rows.
// ============================================================================

// promptMetric is the slice of a MetricAggregate the model sees.
type promptMetric struct {
	Label   string  `json:"label"`
	Total   int     `json:"total"`
	Average float64 `json:"average"`
	Entries int     `json:"entries"`
}

type promptSide struct {
	Location string         `json:"location"`
	Period   string         `json:"period"`
	Entries  int            `json:"entries"`
	Metrics  []promptMetric `json:"metrics"`
}

// BuildPrompt generates the prompt for one insight request.
func BuildPrompt(req engine.InsightRequest, church string, now time.Time) string {
	var b strings.Builder

	if church == "" {
		church = "the church"
	}

	b.WriteString(fmt.Sprintf(`You are a ministry stats assistant for %s.

CURRENT DATE: %s

YOUR ROLE:
Explain what the numbers below mean for the pastor who asked. The numbers were computed already.
Do NOT compute, estimate or invent any number. Only mention numbers that appear below.

`, church, now.Format("2006-01-02")))

	b.WriteString("QUESTION: " + req.Question + "\n")
	if req.Summary != "" {
		b.WriteString("COMPUTED ANSWER: " + req.Summary + "\n")
	}
	if req.Metric != "" {
		b.WriteString("FOCUS METRIC: " + req.Metric + "\n")
	}
	b.WriteString("\n")

	if req.Aggregate != nil {
		writeSide(&b, "NUMBERS", *req.Aggregate)
	}
	if req.Comparison != nil {
		writeSide(&b, "BASELINE", req.Comparison.Base)
		writeSide(&b, "CURRENT", req.Comparison.Current)
		changes, _ := json.Marshal(req.Comparison.PercentChanges)
		b.WriteString(fmt.Sprintf("PERCENT CHANGES: %s\n\n", changes))
	}

	b.WriteString(`RULES:
- Two to four sentences, plain text, no markdown, no lists.
- Warm and encouraging, but honest about declines.
- If there is no data, say so and suggest logging this week's numbers.

Respond with the prose only:`)

	return b.String()
}

func writeSide(b *strings.Builder, heading string, agg engine.Aggregate) {
	side := promptSide{
		Location: agg.LocationName,
		Period:   agg.Window.Label,
		Entries:  agg.EntryCount,
		Metrics:  []promptMetric{},
	}
	for _, m := range agg.Metrics {
		if m.Total == 0 {
			continue
		}
		side.Metrics = append(side.Metrics, promptMetric{
			Label:   m.Label,
			Total:   m.Total,
			Average: engine.RoundTo2(m.Average),
			Entries: m.Count,
		})
	}
	data, _ := json.MarshalIndent(side, "", "  ")
	b.WriteString(fmt.Sprintf("%s:\n%s\n\n", heading, data))
}
