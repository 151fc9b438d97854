package defrag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhasesForMode(t *testing.T) {
	cases := []struct {
		mode  Mode
		chain []string
	}{
		{ModeAnalyzeOnly, []string{"analyze"}},
		{ModeAnalyzeFixup, []string{"analyze", "fixup"}},
		{ModeAnalyzeFixupFastopt, []string{"analyze", "defragment", "fixup", "optimize", "fixup"}},
		{ModeForceTogether, []string{"analyze", "forcedfill"}},
		{ModeMoveToEnd, []string{"analyze", "moveup"}},
		{ModeSortByName, []string{"analyze", "sort"}},
		{ModeSortBySize, []string{"analyze", "sort"}},
	}
	for _, c := range cases {
		assert.Equal(t, c.chain, phasesForMode(c.mode))
	}
}

func TestSpaceHogPatternList_DefaultsIncluded(t *testing.T) {
	patterns := spaceHogPatternList([]string{"*.iso"})
	assert.Contains(t, patterns, "*.bak")
	assert.Contains(t, patterns, "*.iso")
}

func TestSpaceHogPatternList_DisableDefaults(t *testing.T) {
	patterns := spaceHogPatternList([]string{disableDefaultsToken, "*.iso"})
	assert.NotContains(t, patterns, "*.bak")
	assert.Equal(t, []string{"*.iso"}, patterns)
}

func TestClassifyItems_ExcludeAndSpaceHog(t *testing.T) {
	index := NewItemIndex()

	root := &Item{LongFilename: "movie.mkv", Fragments: FragmentList{{LCN: 10, NextVCN: 1}}}
	excluded := &Item{LongFilename: "pagefile.sys", Fragments: FragmentList{{LCN: 20, NextVCN: 1}}}

	index.Insert(root)
	index.Insert(excluded)

	classifyItems(index, []string{"pagefile.sys"}, []string{disableDefaultsToken, "*.mkv"})

	assert.True(t, root.IsSpaceHog)
	assert.True(t, excluded.IsExcluded)
	assert.False(t, excluded.IsSpaceHog)
}

func TestSortKeyForMode_Size(t *testing.T) {
	key := sortKeyForMode(ModeSortBySize)
	small := &Item{Bytes: 10}
	big := &Item{Bytes: 100}
	require.True(t, key(small, big))
	require.False(t, key(big, small))
}

func TestSortKeyForMode_Name(t *testing.T) {
	key := sortKeyForMode(ModeSortByName)
	a := &Item{LongFilename: "a.txt"}
	b := &Item{LongFilename: "b.txt"}
	require.True(t, key(a, b))
}

func TestAlignToMultiple(t *testing.T) {
	assert.Equal(t, LCN(0), alignToMultiple(0, sortAlignment))
	assert.Equal(t, LCN(8), alignToMultiple(1, sortAlignment))
	assert.Equal(t, LCN(8), alignToMultiple(8, sortAlignment))
	assert.Equal(t, LCN(16), alignToMultiple(9, sortAlignment))
}

func TestSession_RunPhaseUnknown(t *testing.T) {
	s := &session{opts: RunOptions{Progress: NullProgress{}}, index: NewItemIndex()}
	err := s.runPhase("not-a-real-phase")
	require.Error(t, err)
}

// newVacateTestSession builds a minimal session wired to a fake volume and
// an in-memory bitmap, for exercising vacate/movePartialAligned without any
// real filesystem.
func newVacateTestSession(bm *memBitmap, items ...*Item) (*session, *fakeVolume) {
	index := NewItemIndex()
	extents := make(map[*Item]FragmentList)
	for _, it := range items {
		index.Insert(it)
		extents[it] = it.Fragments
	}

	fv := &fakeVolume{bitmap: bm, extentsByItem: extents}
	gf := NewGapFinder(fv, nil)
	me := &MoveEngine{Volume: fv, Throttle: NewThrottle(100), Index: index, GapFinder: gf, TotalClusters: LCN(len(bm.used))}

	s := &session{
		opts:          RunOptions{Progress: NullProgress{}},
		index:         index,
		totalClusters: LCN(len(bm.used)),
		gapFinder:     gf,
		moveEngine:    me,
	}
	return s, fv
}

func TestVacate_MovesCrossingItemAboveHighWaterMark(t *testing.T) {
	bm := newMemBitmap(2000, [2]int{0, 1000})
	victim := &Item{LongFilename: "a.txt", Fragments: FragmentList{{LCN: 50, NextVCN: 10}}}
	s, _ := newVacateTestSession(bm, victim)

	err := s.vacate(40, 20, 1000)
	require.NoError(t, err)

	require.Nil(t, s.firstItemCrossing(Extent{Begin: 40, End: 60}))
	require.GreaterOrEqual(t, victim.ItemLCN(), LCN(1000))
}

func TestVacate_UnmovableVictimFails(t *testing.T) {
	bm := newMemBitmap(2000, [2]int{0, 1000})
	victim := &Item{LongFilename: "locked.sys", IsUnmovable: true, Fragments: FragmentList{{LCN: 50, NextVCN: 10}}}
	s, _ := newVacateTestSession(bm, victim)

	err := s.vacate(40, 20, 1000)
	require.Error(t, err)
}

func TestFirstItemCrossing_NoOverlap(t *testing.T) {
	bm := newMemBitmap(2000, [2]int{0, 1000})
	item := &Item{Fragments: FragmentList{{LCN: 500, NextVCN: 10}}}
	s, _ := newVacateTestSession(bm, item)

	require.Nil(t, s.firstItemCrossing(Extent{Begin: 0, End: 100}))
	require.Same(t, item, s.firstItemCrossing(Extent{Begin: 495, End: 520}))
}

func TestMovePartialAligned_SkipsResidualBelowAlignment(t *testing.T) {
	// Two free runs: a 12-cluster gap at 100 and a 20-cluster gap at 300.
	// A 16-cluster item placed with 8-cluster alignment should take 8 from
	// the first gap (4 residual skipped) and the remaining 8 from the
	// second, landing fully placed.
	bm := newMemBitmap(1000, [2]int{0, 100}, [2]int{112, 300}, [2]int{320, 1000})
	item := &Item{Fragments: FragmentList{{LCN: 900, NextVCN: 16}}}
	s, _ := newVacateTestSession(bm, item)

	placed, err := s.movePartialAligned(item, 0, 1000, 16, 8)
	require.NoError(t, err)
	require.Equal(t, ClusterCount(16), placed)
}

func TestMovePartialAligned_LeavesUnplaceableResidual(t *testing.T) {
	// Only a 4-cluster gap exists anywhere: too small for one 8-cluster
	// aligned chunk, so nothing should be placed.
	bm := newMemBitmap(200, [2]int{0, 100}, [2]int{104, 200})
	item := &Item{Fragments: FragmentList{{LCN: 900, NextVCN: 4}}}
	s, _ := newVacateTestSession(bm, item)

	placed, err := s.movePartialAligned(item, 0, 200, 4, 8)
	require.NoError(t, err)
	require.Equal(t, ClusterCount(0), placed)
}
