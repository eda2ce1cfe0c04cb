// Package bestset keeps the current top-K matched items in a bounded
// min-heap keyed by rank. A single consumer owns the set; workers never
// touch it directly.
package bestset

import (
	"container/heap"
	"sort"

	"github.com/standardbeagle/flowfilter/internal/matcher"
)

// InsertResult reports what try-insert did with a candidate.
type InsertResult int

const (
	// Inserted means the set had room and the candidate was added.
	Inserted InsertResult = iota
	// Replaced means the candidate evicted the previous minimum.
	Replaced
	// Dropped means the candidate was dominated by the current minimum.
	Dropped
)

// BestItems is a bounded best-K set. Not safe for concurrent use.
type BestItems struct {
	capacity int
	items    rankHeap
	dirty    bool
	seq      int64
}

// New creates a BestItems with the given capacity. Capacity must be
// positive; the pipeline validates this at construction.
func New(capacity int) *BestItems {
	return &BestItems{
		capacity: capacity,
		items:    make(rankHeap, 0, capacity),
	}
}

// Len returns the current number of held items.
func (b *BestItems) Len() int { return len(b.items) }

// Capacity returns K.
func (b *BestItems) Capacity() int { return b.capacity }

// Dirty reports whether the set changed since the last snapshot.
func (b *BestItems) Dirty() bool { return b.dirty }

// TryInsert offers a candidate to the set. It stamps the item's arrival
// sequence so equal-score ties break toward earlier arrivals, then either
// inserts it, replaces the dominated minimum, or drops it.
func (b *BestItems) TryInsert(m *matcher.MatchedItem) InsertResult {
	b.seq++
	m.Rank.NegSeq = -b.seq

	if len(b.items) < b.capacity {
		heap.Push(&b.items, m)
		b.dirty = true
		return Inserted
	}

	min := b.items[0]
	if !min.Rank.Less(m.Rank) {
		return Dropped
	}

	b.items[0] = m
	heap.Fix(&b.items, 0)
	b.dirty = true
	return Replaced
}

// Snapshot returns the held items sorted rank-descending without mutating
// the heap, and clears the dirty flag.
func (b *BestItems) Snapshot() []*matcher.MatchedItem {
	out := make([]*matcher.MatchedItem, len(b.items))
	copy(out, b.items)
	sort.Slice(out, func(i, j int) bool {
		return out[j].Rank.Less(out[i].Rank)
	})
	b.dirty = false
	return out
}

// rankHeap is a min-heap by rank so the worst held item is at the root.
type rankHeap []*matcher.MatchedItem

func (h rankHeap) Len() int            { return len(h) }
func (h rankHeap) Less(i, j int) bool  { return h[i].Rank.Less(h[j].Rank) }
func (h rankHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *rankHeap) Push(x interface{}) { *h = append(*h, x.(*matcher.MatchedItem)) }
func (h *rankHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
