package bonus

import (
	"sort"
	"strings"
	"time"

	"github.com/hbollon/go-edlib"

	"github.com/standardbeagle/flowfilter/internal/item"
)

const (
	// maxFrecentEntries caps the recency list.
	maxFrecentEntries = 10_000

	// similarityFloor is the Jaro-Winkler similarity below which a
	// near-path is not considered a recent-files hit.
	similarityFloor = 0.85
)

// FrecentEntry is one visited file with its frecency bookkeeping: score
// buckets decay with time since the last visit, weighted by visit count.
type FrecentEntry struct {
	Path         string    `json:"fpath"`
	LastVisit    time.Time `json:"last_visit"`
	Visits       uint64    `json:"visits"`
	FrecentScore uint64    `json:"frecent_score"`
}

// refreshScore recomputes the frecency score from the time since last visit.
func (e *FrecentEntry) refreshScore(now time.Time) {
	elapsed := now.Sub(e.LastVisit)
	switch {
	case elapsed < time.Hour:
		e.FrecentScore = e.Visits * 4
	case elapsed < 24*time.Hour:
		e.FrecentScore = e.Visits * 2
	case elapsed < 7*24*time.Hour:
		e.FrecentScore = e.Visits / 2
	default:
		e.FrecentScore = e.Visits / 4
	}
}

// RecentFiles boosts items whose text appears in the recently-opened list:
// +base/3 on an exact containment hit, +base/6 when a listed path is merely
// very similar (catches mild path drift, e.g. a renamed parent directory).
type RecentFiles struct {
	entries []FrecentEntry
}

// NewRecentFiles builds the bonus from a list of recently-opened paths,
// most recent first. Each path becomes a single-visit entry stamped now.
func NewRecentFiles(paths []string) *RecentFiles {
	now := time.Now()
	rf := &RecentFiles{}
	for _, p := range paths {
		if p == "" {
			continue
		}
		rf.visit(p, now)
	}
	return rf
}

// Visit records a visit to path, refreshing its entry or inserting a new
// one, and re-sorts the list by frecency.
func (rf *RecentFiles) Visit(path string) {
	rf.visit(path, time.Now())
}

func (rf *RecentFiles) visit(path string, now time.Time) {
	for i := range rf.entries {
		if rf.entries[i].Path == path {
			rf.entries[i].Visits++
			rf.entries[i].LastVisit = now
			rf.entries[i].refreshScore(now)
			rf.sortEntries()
			return
		}
	}

	entry := FrecentEntry{Path: path, LastVisit: now, Visits: 1, FrecentScore: 1}
	rf.entries = append(rf.entries, entry)
	if len(rf.entries) > maxFrecentEntries {
		rf.entries = rf.entries[:maxFrecentEntries]
	}
	rf.sortEntries()
}

func (rf *RecentFiles) sortEntries() {
	sort.SliceStable(rf.entries, func(i, j int) bool {
		a, b := rf.entries[i], rf.entries[j]
		if a.FrecentScore != b.FrecentScore {
			return a.FrecentScore > b.FrecentScore
		}
		if a.Visits != b.Visits {
			return a.Visits > b.Visits
		}
		return a.LastVisit.After(b.LastVisit)
	})
}

// Paths returns the tracked paths in frecency order.
func (rf *RecentFiles) Paths() []string {
	out := make([]string, len(rf.entries))
	for i, e := range rf.entries {
		out[i] = e.Path
	}
	return out
}

func (rf *RecentFiles) Apply(it item.Item, base int64, _ []int) int64 {
	text := it.RawText()
	if text == "" {
		return 0
	}

	for _, e := range rf.entries {
		if strings.Contains(e.Path, text) {
			return base / 3
		}
	}

	// Near-miss fallback: a listed path that is almost the item text still
	// counts, at a smaller weight.
	for _, e := range rf.entries {
		similarity, err := edlib.StringsSimilarity(text, e.Path, edlib.JaroWinkler)
		if err == nil && float64(similarity) >= similarityFloor {
			return base / 6
		}
	}

	return 0
}
