package parser

import (
	"sort"
	"strings"

	"github.com/spektr-org/tally/catalog"
)

// ============================================================================
// CAMPUS RESOLVER - Free text to canonical location id
// ============================================================================
// Tiers, first match wins:
//   1. Exact phrase (configured phrases + speech variants "for X", "at X"...)
//   2. Fuzzy misspelling table (enumerable per location, no edit distance)
//   3. Partial stem (substring)
//   4. Church-wide indicator phrases -> aggregate id
//   5. NoMatch
// Within a tier the longest phrase wins; ties go to catalog order.
// ============================================================================

// MatchTier identifies which resolver tier produced a match.
type MatchTier int

const (
	TierNone MatchTier = iota
	TierExact
	TierFuzzy
	TierPartial
	TierChurchWide
)

func (t MatchTier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierFuzzy:
		return "fuzzy"
	case TierPartial:
		return "partial"
	case TierChurchWide:
		return "church-wide"
	default:
		return "none"
	}
}

// CampusMatch is the resolver outcome. The zero value is NoMatch.
type CampusMatch struct {
	ID     string    `json:"id,omitempty"`
	Tier   MatchTier `json:"tier"`
	Phrase string    `json:"phrase,omitempty"`
}

// NoMatch is returned when nothing in the text names a location.
var NoMatch = CampusMatch{}

// Found reports whether a location was resolved.
func (m CampusMatch) Found() bool { return m.Tier != TierNone }

// DefaultChurchWidePhrases signal a question about every location at once.
var DefaultChurchWidePhrases = []string{
	"how many", "this month", "all campuses", "all locations", "all sites",
	"every campus", "each campus", "total", "church wide", "churchwide",
	"whole church", "entire church", "overall", "across campuses", "combined",
}

type phraseEntry struct {
	id     string
	phrase string
	order  int
}

// CampusResolver resolves location mentions against a LocationCatalog.
// It is immutable and safe for concurrent use.
type CampusResolver struct {
	locations  *catalog.LocationCatalog
	exact      []phraseEntry
	fuzzy      []phraseEntry
	partial    []phraseEntry
	churchWide []string
}

// NewCampusResolver builds the phrase tables for every active location.
// A nil churchWide uses DefaultChurchWidePhrases.
func NewCampusResolver(locations *catalog.LocationCatalog, churchWide []string) *CampusResolver {
	if churchWide == nil {
		churchWide = DefaultChurchWidePhrases
	}

	r := &CampusResolver{locations: locations}
	for order, loc := range locations.Active() {
		for _, p := range loc.Phrases {
			for _, v := range speechVariants(p) {
				r.exact = append(r.exact, phraseEntry{id: loc.ID, phrase: v, order: order})
			}
		}
		for _, v := range loc.Variants {
			r.fuzzy = append(r.fuzzy, phraseEntry{id: loc.ID, phrase: v, order: order})
		}
		for _, s := range loc.Stems {
			r.partial = append(r.partial, phraseEntry{id: loc.ID, phrase: s, order: order})
		}
	}

	for _, tier := range [][]phraseEntry{r.exact, r.fuzzy, r.partial} {
		sortEntries(tier)
	}

	for _, p := range churchWide {
		r.churchWide = append(r.churchWide, catalog.NormalizePhrase(p))
	}
	r.churchWide = append(r.churchWide, catalog.NormalizePhrase(locations.DisplayName(locations.AggregateID())))
	return r
}

// speechVariants expands a detection phrase with the ways people say it aloud.
func speechVariants(p string) []string {
	if p == "" {
		return nil
	}
	variants := []string{p, "for " + p, "at " + p, "stats for " + p}
	if !strings.HasSuffix(p, " campus") {
		variants = append(variants, p+" campus")
	}
	return variants
}

// sortEntries orders longest phrase first, then catalog order.
func sortEntries(entries []phraseEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if len(entries[i].phrase) != len(entries[j].phrase) {
			return len(entries[i].phrase) > len(entries[j].phrase)
		}
		return entries[i].order < entries[j].order
	})
}

// Resolve returns the single best location named in text.
func (r *CampusResolver) Resolve(text string) CampusMatch {
	padded := padded(text)

	if e, ok := firstWordMatch(r.exact, padded); ok {
		return CampusMatch{ID: e.id, Tier: TierExact, Phrase: e.phrase}
	}
	if e, ok := firstWordMatch(r.fuzzy, padded); ok {
		return CampusMatch{ID: e.id, Tier: TierFuzzy, Phrase: e.phrase}
	}
	compact := strings.TrimSpace(padded)
	for _, e := range r.partial {
		if strings.Contains(compact, e.phrase) {
			return CampusMatch{ID: e.id, Tier: TierPartial, Phrase: e.phrase}
		}
	}
	for _, p := range r.churchWide {
		if p != "" && strings.Contains(padded, " "+p+" ") {
			return CampusMatch{ID: r.locations.AggregateID(), Tier: TierChurchWide, Phrase: p}
		}
	}
	return NoMatch
}

// ResolveAll returns every distinct location named through the exact and
// fuzzy tiers, in order of first mention.
func (r *CampusResolver) ResolveAll(text string) []string {
	padded := padded(text)

	type hit struct {
		id  string
		pos int
	}
	best := make(map[string]int)
	claimed := make([]bool, len(padded))

	for _, tier := range [][]phraseEntry{r.exact, r.fuzzy} {
		for _, e := range tier {
			needle := " " + e.phrase + " "
			from := 0
			for {
				idx := strings.Index(padded[from:], needle)
				if idx < 0 {
					break
				}
				start := from + idx
				end := start + len(needle)
				if !overlaps(claimed, start+1, end-1) {
					claim(claimed, start+1, end-1)
					if pos, seen := best[e.id]; !seen || start < pos {
						best[e.id] = start
					}
				}
				from = start + 1
			}
		}
	}

	hits := make([]hit, 0, len(best))
	for id, pos := range best {
		hits = append(hits, hit{id: id, pos: pos})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	return ids
}

// Locations exposes the catalog the resolver was built from.
func (r *CampusResolver) Locations() *catalog.LocationCatalog { return r.locations }

func firstWordMatch(entries []phraseEntry, padded string) (phraseEntry, bool) {
	for _, e := range entries {
		if strings.Contains(padded, " "+e.phrase+" ") {
			return e, true
		}
	}
	return phraseEntry{}, false
}

func padded(text string) string {
	return " " + catalog.NormalizePhrase(text) + " "
}

func overlaps(claimed []bool, start, end int) bool {
	for i := start; i < end && i < len(claimed); i++ {
		if claimed[i] {
			return true
		}
	}
	return false
}

func claim(claimed []bool, start, end int) {
	for i := start; i < end && i < len(claimed); i++ {
		claimed[i] = true
	}
}
