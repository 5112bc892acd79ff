package parser

import (
	"testing"
)

// ============================================================================
// CAMPUS RESOLVER TESTS
// ============================================================================

func TestResolveTiers(t *testing.T) {
	r := testResolver(t)

	tests := []struct {
		text string
		id   string
		tier MatchTier
	}{
		{"south campus had 145 people", "south", TierExact},
		{"stats for southside", "south", TierExact},
		{"at barker road we had 200", "barker", TierExact},
		{"Salisbury numbers please", "salisbury", TierExact},
		{"numbers for sowth", "south", TierFuzzy},
		{"backer road attendance", "barker", TierFuzzy},
		{"salisburyy stats", "salisbury", TierPartial},
		{"how many people came", "all", TierChurchWide},
		{"give me the total", "all", TierChurchWide},
		{"all campuses attendance", "all", TierChurchWide},
		{"attendance last sunday", "", TierNone},
		{"church plant numbers", "", TierNone},
		{"", "", TierNone},
	}
	for _, tt := range tests {
		got := r.Resolve(tt.text)
		if got.ID != tt.id || got.Tier != tt.tier {
			t.Errorf("Resolve(%q) = %s/%s, want %s/%s", tt.text, got.ID, got.Tier, tt.id, tt.tier)
		}
	}
}

func TestResolveExactPhraseIsIdempotent(t *testing.T) {
	r := testResolver(t)
	locs := testLocations(t)

	for _, loc := range locs.Active() {
		for _, phrase := range loc.Phrases {
			text := "how did " + phrase + " do this week"
			first := r.Resolve(text)
			if first.ID != loc.ID {
				t.Errorf("Resolve(%q) = %q, want %q", text, first.ID, loc.ID)
			}
			if again := r.Resolve(text); again != first {
				t.Errorf("Resolve(%q) not stable: %v then %v", text, first, again)
			}
		}
	}
}

func TestResolveNoMatchIsDistinguishable(t *testing.T) {
	r := testResolver(t)

	m := r.Resolve("what happened on sunday")
	if m.Found() {
		t.Fatalf("expected no match, got %v", m)
	}
	if m != NoMatch {
		t.Errorf("expected NoMatch sentinel, got %v", m)
	}
}

func TestResolveLongestPhraseWins(t *testing.T) {
	locs := testLocations(t)
	r := NewCampusResolver(locs, []string{"road"})

	m := r.Resolve("what about barker road")
	if m.ID != "barker" || m.Phrase != "barker road" {
		t.Errorf("expected barker via its full name, got %+v", m)
	}
	if m.Tier != TierExact {
		t.Errorf("tier = %s, want exact", m.Tier)
	}
}

func TestResolveAll(t *testing.T) {
	r := testResolver(t)

	assertStrings(t, "two campuses",
		r.ResolveAll("compare south vs barker this year"), []string{"south", "barker"})
	assertStrings(t, "order of mention",
		r.ResolveAll("barker road and sowth and salisbury"), []string{"barker", "south", "salisbury"})
	assertStrings(t, "same campus twice",
		r.ResolveAll("south campus vs southside"), []string{"south"})
	assertStrings(t, "partial tier excluded",
		r.ResolveAll("salisburyy vs nothing"), []string{})
	assertStrings(t, "inactive skipped",
		r.ResolveAll("church plant vs south"), []string{"south"})
}

func TestCustomChurchWidePhrases(t *testing.T) {
	r := NewCampusResolver(testLocations(t), []string{"everyone"})

	if m := r.Resolve("how many people came"); m.Found() {
		t.Errorf("default phrases should be replaced, got %v", m)
	}
	if m := r.Resolve("everyone this week"); m.ID != "all" {
		t.Errorf("custom phrase should resolve to all, got %v", m)
	}
	if m := r.Resolve("all campuses"); m.ID != "all" {
		t.Errorf("aggregate display name always counts, got %v", m)
	}
}
