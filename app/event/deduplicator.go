package event

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	titleSimilarityThreshold = 0.85
	dateProximityWindow      = time.Hour
)

// foldTransformer strips diacritics so that accented spellings of the same
// title compare equal after lowercasing.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

type Deduplicator struct{}

func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// Run removes duplicates from the candidate pool, keeping the most complete
// member of every duplicate group. Input order is preserved for survivors,
// which makes the operation idempotent: running it on its own output
// removes nothing.
func (d *Deduplicator) Run(events []StandardizedEvent) ([]StandardizedEvent, int) {
	groups := d.findGroups(events)
	if len(groups) == 0 {
		return events, 0
	}

	removed := make(map[int]bool)
	for _, group := range groups {
		keep := d.selectBest(group.memberIndexes, events)
		for _, idx := range group.memberIndexes {
			if idx != keep {
				removed[idx] = true
			}
		}
	}

	result := make([]StandardizedEvent, 0, len(events)-len(removed))
	for i, e := range events {
		if !removed[i] {
			result = append(result, e)
		}
	}

	return result, len(removed)
}

// duplicateGroup tracks member positions in the input slice so canonical
// selection can fall back to first-encountered order on score ties.
type duplicateGroup struct {
	DuplicateGroup
	memberIndexes []int
}

// FindDuplicates clusters the candidate list into disjoint duplicate groups.
func (d *Deduplicator) FindDuplicates(events []StandardizedEvent) []DuplicateGroup {
	internal := d.findGroups(events)
	groups := make([]DuplicateGroup, 0, len(internal))
	for _, g := range internal {
		groups = append(groups, g.DuplicateGroup)
	}
	return groups
}

// findGroups does the clustering in a single forward pass: each unvisited
// candidate collects every later candidate that matches it pairwise.
// Pairwise O(n²) is acceptable at current batch sizes (hundreds of events
// per run); bucket by city and date window first if volumes grow.
func (d *Deduplicator) findGroups(events []StandardizedEvent) []duplicateGroup {
	var groups []duplicateGroup
	visited := make([]bool, len(events))

	for i := range events {
		if visited[i] {
			continue
		}

		group := duplicateGroup{
			DuplicateGroup: DuplicateGroup{Members: []StandardizedEvent{events[i]}},
			memberIndexes:  []int{i},
		}
		visited[i] = true

		for j := i + 1; j < len(events); j++ {
			if visited[j] {
				continue
			}
			if d.IsDuplicate(events[i], events[j]) {
				group.Members = append(group.Members, events[j])
				group.memberIndexes = append(group.memberIndexes, j)
				visited[j] = true
			}
		}

		if len(group.Members) > 1 {
			groups = append(groups, group)
		}
	}

	return groups
}

// IsDuplicate reports whether two events describe the same real-world
// event: equal non-empty external IDs, or near-identical titles on the same
// day and city.
func (d *Deduplicator) IsDuplicate(a, b StandardizedEvent) bool {
	if a.ExternalID != "" && a.ExternalID == b.ExternalID {
		return true
	}

	if !strings.EqualFold(foldText(a.City), foldText(b.City)) {
		return false
	}

	delta := a.EventDate.Sub(b.EventDate)
	if delta < 0 {
		delta = -delta
	}
	if delta > dateProximityWindow {
		return false
	}

	return TitleSimilarity(a.Title, b.Title) > titleSimilarityThreshold
}

// selectBest returns the index of the group member to keep: highest
// completeness score, stable on input order for ties.
func (d *Deduplicator) selectBest(indexes []int, events []StandardizedEvent) int {
	ordered := make([]int, len(indexes))
	copy(ordered, indexes)

	sort.SliceStable(ordered, func(i, j int) bool {
		return Completeness(events[ordered[i]]) > Completeness(events[ordered[j]])
	})

	return ordered[0]
}

// Completeness scores how much useful detail a record carries, 0-100.
// Used to pick the canonical member of a duplicate group.
func Completeness(e StandardizedEvent) int {
	score := 0
	if e.ImageURL != "" {
		score += 25
	}
	if len(e.Description) > 50 {
		score += 25
	}
	if e.Venue != "" {
		score += 20
	}
	if e.Price != "" && e.Price != "Check website" {
		score += 15
	}
	if e.TicketURL != "" {
		score += 15
	}
	return score
}

// TitleSimilarity computes a normalized Levenshtein ratio between folded
// titles: 1 is identical, 0 is entirely different.
func TitleSimilarity(a, b string) float64 {
	fa := strings.ToLower(foldText(a))
	fb := strings.ToLower(foldText(b))

	if fa == fb {
		return 1
	}
	if fa == "" || fb == "" {
		return 0
	}

	distance := levenshtein.ComputeDistance(fa, fb)
	longest := len([]rune(fa))
	if l := len([]rune(fb)); l > longest {
		longest = l
	}

	return 1 - float64(distance)/float64(longest)
}

func foldText(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		return s
	}
	return folded
}
