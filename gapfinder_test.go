package defrag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// memBitmap implements BitmapReader over an in-memory bit slice, one byte
// per bit for test readability (1 = in use, 0 = free).
type memBitmap struct {
	used []bool
}

func (m *memBitmap) ReadBitmapWindow(startLCN LCN) (LCN, []byte, error) {
	windowStart := (startLCN / bitmapWindowClusters) * bitmapWindowClusters
	end := windowStart + bitmapWindowClusters
	if end > LCN(len(m.used)) {
		end = LCN(len(m.used))
	}
	if windowStart >= end {
		return windowStart, nil, nil
	}

	n := int(end - windowStart)
	bits := make([]byte, (n+7)/8)
	for i := 0; i < n; i++ {
		if m.used[int(windowStart)+i] {
			bits[i/8] |= 1 << (i % 8)
		}
	}
	return windowStart, bits, nil
}

func newMemBitmap(size int, usedRanges ...[2]int) *memBitmap {
	used := make([]bool, size)
	for _, r := range usedRanges {
		for i := r[0]; i < r[1]; i++ {
			used[i] = true
		}
	}
	return &memBitmap{used: used}
}

func TestGapFinder_FirstFit(t *testing.T) {
	bm := newMemBitmap(1000, [2]int{0, 100}, [2]int{150, 200})
	gf := NewGapFinder(bm, nil)

	gap, err := gf.FindGap(0, 1000, 40, false, true, false)
	require.NoError(t, err)
	require.Equal(t, Extent{Begin: 100, End: 150}, gap)
}

func TestGapFinder_FindHighest(t *testing.T) {
	bm := newMemBitmap(1000, [2]int{0, 100}, [2]int{150, 160}, [2]int{500, 510})
	gf := NewGapFinder(bm, nil)

	gap, err := gf.FindGap(0, 1000, 10, true, true, false)
	require.NoError(t, err)
	require.Equal(t, LCN(510), gap.Begin)
}

func TestGapFinder_LargestFallback(t *testing.T) {
	bm := newMemBitmap(1000, [2]int{0, 100}, [2]int{110, 900})
	gf := NewGapFinder(bm, nil)

	// The free runs are [100,110) (10 clusters) and [900,1000) (100
	// clusters); nothing meets size 500, so with mustFit=false the largest
	// encountered gap (the 100-cluster one, not the first) wins.
	gap, err := gf.FindGap(0, 1000, 500, false, false, false)
	require.NoError(t, err)
	require.Equal(t, Extent{Begin: 900, End: 1000}, gap)
}

func TestGapFinder_NoGap(t *testing.T) {
	bm := newMemBitmap(1000, [2]int{0, 1000})
	gf := NewGapFinder(bm, nil)

	_, err := gf.FindGap(0, 1000, 1, false, true, false)
	require.Error(t, err)
}

func TestGapFinder_RespectsMFTExcludes(t *testing.T) {
	bm := newMemBitmap(2000)
	gf := NewGapFinder(bm, []Extent{{Begin: 1000, End: 1050}})

	_, err := gf.FindGap(1000, 1050, 1, false, true, false)
	require.Error(t, err, "MFT extent must be masked as in-use by default")

	gap, err := gf.FindGap(1000, 1050, 1, false, true, true)
	require.NoError(t, err, "ignoreMFTExcludes should expose the range")
	require.Equal(t, Extent{Begin: 1000, End: 1050}, gap)
}
