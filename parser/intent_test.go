package parser

import (
	"testing"

	"github.com/spektr-org/tally/catalog"
)

// ============================================================================
// INTENT CLASSIFIER TESTS
// ============================================================================

func TestClassify(t *testing.T) {
	c := testClassifier(t)

	tests := []struct {
		text  string
		kind  Kind
		stage string
		sub   string
	}{
		{"south campus had 145 people, 8 new visitors, 3 salvations", KindLog, "log", ""},
		{"attendance was 212 at barker", KindLog, "log", ""},
		{"I want to log my stats", KindGuidance, "request-guidance", ""},
		{"compare south vs barker this year", KindComparison, "cross-location-comparison", SubLocationCompare},
		{"how did south and salisbury do", KindComparison, "cross-location-comparison", SubLocationCompare},
		{"compare Q1 2024 vs Q1 2023 for Salisbury new christians", KindComparison, "period-comparison", SubPeriodCompare},
		{"attendance for 2023 and 2024", KindComparison, "period-comparison", SubPeriodCompare},
		{"give me the quarterly review", KindReview, "review", string(ReviewQuarterly)},
		{"mid-year report for south", KindReview, "review", string(ReviewMidYear)},
		{"how many salvations in march 2024", KindSimple, "simple-stat", ""},
		{"average attendance in March 2024", KindSimple, "simple-stat", ""},
		{"how are we doing at south", KindGeneral, "general", ""},
		{"stats please", KindGeneral, "general", ""},
		{"share some insights on our growth", KindInsight, "insight", ""},
		{"banana", KindUnrecognized, "unrecognized", ""},
	}
	for _, tt := range tests {
		got := c.Classify(tt.text)
		if got.Kind != tt.kind || got.Stage != tt.stage || got.Sub != tt.sub {
			t.Errorf("Classify(%q) = %s/%s/%s, want %s/%s/%s",
				tt.text, got.Kind, got.Stage, got.Sub, tt.kind, tt.stage, tt.sub)
		}
	}
}

func TestClassifyLogCarriesExtraction(t *testing.T) {
	c := testClassifier(t)

	in := c.Classify("south campus had 145 people, 8 new visitors, 3 salvations")
	if in.Kind != KindLog {
		t.Fatalf("expected log, got %s", in.Kind)
	}
	if in.Extracted["total_attendance"] != 145 || in.Extracted["new_christians"] != 3 {
		t.Errorf("extracted = %v", in.Extracted)
	}
	assertStrings(t, "log location", in.Locations, []string{"south"})
}

func TestQuestionWithNumbersIsNotALog(t *testing.T) {
	c := testClassifier(t)

	in := c.Classify("how many people came in 2024?")
	if in.Kind == KindLog {
		t.Fatalf("question should not be logged: %+v", in)
	}
	if in.Extracted != nil {
		t.Errorf("queries carry no extraction, got %v", in.Extracted)
	}
}

func TestYearBearingReviewIsNotALog(t *testing.T) {
	c := testClassifier(t)

	for _, text := range []string{
		"2023 attendance review",
		"baptisms 2023 report",
		"2024 youth report",
		"south campus attendance 145 review",
	} {
		in := c.Classify(text)
		if in.Kind != KindReview || in.Stage != "review" {
			t.Errorf("Classify(%q) = %s/%s, want review", text, in.Kind, in.Stage)
		}
		if in.Extracted != nil {
			t.Errorf("Classify(%q) carried extraction %v", text, in.Extracted)
		}
	}
}

func TestCrossLocationBeatsPeriodComparison(t *testing.T) {
	c := testClassifier(t)

	in := c.Classify("compare south vs barker in 2023 vs 2024")
	if in.Sub != SubLocationCompare {
		t.Errorf("two campuses should win over two years, got %s/%s", in.Stage, in.Sub)
	}
}

func TestMetricMention(t *testing.T) {
	c := testClassifier(t)

	tests := []struct {
		text string
		want string
	}{
		{"how many new people came", "first_time_visitors"},
		{"how many people came", "total_attendance"},
		{"kids salvations this year", "kids_new_christians"},
		{"total giving", "tithe"},
		{"what's the weather", ""},
	}
	for _, tt := range tests {
		if got := c.MetricMention(tt.text); got != tt.want {
			t.Errorf("MetricMention(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestStageTableOrder(t *testing.T) {
	c := testClassifier(t)

	var names []string
	for _, s := range c.Stages() {
		names = append(names, s.Name)
	}
	assertStrings(t, "stage order", names, []string{
		"log",
		"request-guidance",
		"cross-location-comparison",
		"period-comparison",
		"review",
		"simple-stat",
		"general",
		"insight",
		"unrecognized",
	})
}

func TestCustomStages(t *testing.T) {
	metrics := catalog.DefaultMetrics()
	only := []Stage{{Name: "everything", Kind: KindGeneral, Match: func(Signals) bool { return true }}}
	c := NewClassifier(metrics, testResolver(t), NewStatExtractor(metrics), only)

	if got := c.Classify("145 people"); got.Stage != "everything" {
		t.Errorf("custom table should decide, got %s", got.Stage)
	}
}
