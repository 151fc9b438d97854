package defrag

import (
	"github.com/dsoprea/go-logging"
)

// ErrNoGap is returned when no gap satisfying the query exists in the
// search window.
var ErrNoGap = noGapError{}

type noGapError struct{}

func (noGapError) Error() string { return "no qualifying gap found" }

// GapFinder scans a live volume bitmap for free (unallocated) cluster
// runs, treating the configured unmovable extents (MFT regions, by
// default) as occupied.
//
// ground: spec.md §4.4; bitmap window size and masking rule are also used
// by original_source's gap-finding pass over DiskStruct.
type GapFinder struct {
	Bitmap      BitmapReader
	MFTExcludes []Extent
}

// NewGapFinder constructs a GapFinder over the given bitmap collaborator.
func NewGapFinder(bitmap BitmapReader, mftExcludes []Extent) *GapFinder {
	return &GapFinder{Bitmap: bitmap, MFTExcludes: mftExcludes}
}

// FindGap searches [minLCN, maxLCN) for a free run of at least minSize
// clusters.
//
// If findHighest is false, the first qualifying gap is returned immediately.
// If findHighest is true, scanning continues to the end of the window and
// the highest qualifying gap is returned. If mustFit is false and no
// qualifying gap exists, the largest gap encountered in the window is
// returned instead. If nothing at all is found, ErrNoGap is returned.
func (gf *GapFinder) FindGap(minLCN, maxLCN LCN, minSize ClusterCount, findHighest, mustFit, ignoreMFTExcludes bool) (Extent, error) {
	if maxLCN <= minLCN {
		return Extent{}, log.Wrap(ErrNoGap)
	}

	var (
		gapStart    LCN
		inGap       bool
		best        Extent
		haveBest    bool
		largest     Extent
		haveLargest bool
	)

	consider := func(gap Extent) (done bool) {
		if gap.Length() == 0 {
			return false
		}
		if !haveLargest || gap.Length() > largest.Length() {
			largest = gap
			haveLargest = true
		}
		if gap.Length() >= minSize {
			if !findHighest {
				best = gap
				haveBest = true
				return true
			}
			if !haveBest || gap.Begin > best.Begin {
				best = gap
				haveBest = true
			}
		}
		return false
	}

	cur := minLCN
	for cur < maxLCN {
		windowStart, bits, err := gf.Bitmap.ReadBitmapWindow(cur)
		if err != nil {
			return Extent{}, log.Wrap(err)
		}
		if len(bits) == 0 {
			break
		}

		windowEnd := windowStart + LCN(len(bits))*8
		if windowEnd > maxLCN {
			windowEnd = maxLCN
		}

		for lcn := cur; lcn < windowEnd; lcn++ {
			inUse := bitAt(bits, windowStart, lcn) || gf.isMFTExcluded(lcn, ignoreMFTExcludes)

			if !inUse && !inGap {
				inGap = true
				gapStart = lcn
			} else if inUse && inGap {
				inGap = false
				if consider(Extent{Begin: gapStart, End: lcn}) {
					return best, nil
				}
			}
		}

		if windowEnd <= cur {
			break
		}
		cur = windowEnd
	}

	if inGap {
		if consider(Extent{Begin: gapStart, End: maxLCN}) {
			return best, nil
		}
	}

	if haveBest {
		return best, nil
	}
	if !mustFit && haveLargest {
		return largest, nil
	}
	return Extent{}, log.Wrap(ErrNoGap)
}

func (gf *GapFinder) isMFTExcluded(lcn LCN, ignore bool) bool {
	if ignore {
		return false
	}
	for _, e := range gf.MFTExcludes {
		if e.Contains(lcn) {
			return true
		}
	}
	return false
}
