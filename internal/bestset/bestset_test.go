package bestset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/flowfilter/internal/item"
	"github.com/standardbeagle/flowfilter/internal/matcher"
)

func mi(text string, score int64) *matcher.MatchedItem {
	return &matcher.MatchedItem{
		Item: item.NewPlainItem(text),
		Rank: matcher.Rank{Score: score, NegLen: -int64(len(text))},
	}
}

func TestTryInsert_FillsToCapacity(t *testing.T) {
	b := New(3)

	assert.Equal(t, Inserted, b.TryInsert(mi("a", 1)))
	assert.Equal(t, Inserted, b.TryInsert(mi("b", 2)))
	assert.Equal(t, Inserted, b.TryInsert(mi("c", 3)))
	assert.Equal(t, 3, b.Len())
}

func TestTryInsert_ReplacesDominatedMinimum(t *testing.T) {
	b := New(2)
	b.TryInsert(mi("low", 1))
	b.TryInsert(mi("mid", 5))

	assert.Equal(t, Replaced, b.TryInsert(mi("high", 10)))
	assert.Equal(t, 2, b.Len())

	snap := b.Snapshot()
	assert.Equal(t, "high", snap[0].Item.RawText())
	assert.Equal(t, "mid", snap[1].Item.RawText())
}

func TestTryInsert_DropsDominatedCandidate(t *testing.T) {
	b := New(2)
	b.TryInsert(mi("a", 5))
	b.TryInsert(mi("b", 10))

	assert.Equal(t, Dropped, b.TryInsert(mi("weak", 1)))
	assert.Equal(t, 2, b.Len())
}

func TestTryInsert_SizeNeverExceedsCapacity(t *testing.T) {
	b := New(5)
	for i := 0; i < 100; i++ {
		b.TryInsert(mi("x", int64(i)))
		assert.LessOrEqual(t, b.Len(), 5)
	}
}

func TestTryInsert_MinimumStrictlyImprovesOnReplace(t *testing.T) {
	b := New(3)
	for i := 0; i < 50; i++ {
		prevMin := int64(-1)
		if b.Len() == b.Capacity() {
			snap := b.Snapshot()
			prevMin = snap[len(snap)-1].Rank.Score
		}
		res := b.TryInsert(mi("x", int64(i%17)))
		if res == Replaced {
			snap := b.Snapshot()
			newMin := snap[len(snap)-1].Rank.Score
			assert.GreaterOrEqual(t, newMin, prevMin)
		}
	}
}

func TestSnapshot_SortedDescendingAndClearsDirty(t *testing.T) {
	b := New(10)
	for _, s := range []int64{3, 9, 1, 7, 5} {
		b.TryInsert(mi("x", s))
	}
	require.True(t, b.Dirty())

	snap := b.Snapshot()
	assert.False(t, b.Dirty())

	for i := 1; i < len(snap); i++ {
		assert.True(t, !snap[i-1].Rank.Less(snap[i].Rank))
	}
}

func TestSnapshot_DoesNotMutateHeap(t *testing.T) {
	b := New(4)
	for _, s := range []int64{4, 2, 8, 6} {
		b.TryInsert(mi("x", s))
	}

	first := b.Snapshot()
	second := b.Snapshot()
	assert.Equal(t, first, second)

	// Inserts still work correctly after snapshotting.
	assert.Equal(t, Replaced, b.TryInsert(mi("x", 100)))
}

func TestTryInsert_EqualScoreTieBreaksByArrival(t *testing.T) {
	b := New(1)
	b.TryInsert(mi("first", 5))

	// Same score and length: the incumbent wins.
	assert.Equal(t, Dropped, b.TryInsert(mi("later", 5)))
	assert.Equal(t, "first", b.Snapshot()[0].Item.RawText())
}

func TestDirty_SetOnInsertAndReplaceOnly(t *testing.T) {
	b := New(1)
	b.TryInsert(mi("a", 10))
	b.Snapshot()
	require.False(t, b.Dirty())

	b.TryInsert(mi("weak", 1))
	assert.False(t, b.Dirty(), "a dropped candidate must not dirty the set")

	b.TryInsert(mi("strong", 20))
	assert.True(t, b.Dirty())
}
