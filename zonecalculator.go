package defrag

// ZoneTable holds the four LCN boundaries Z[0..3] that divide a volume
// into three contiguous zones: directories [Z[0],Z[1]), regular files
// [Z[1],Z[2]), space-hogs [Z[2],Z[3]). Z[0] is always 0 and Z[3] is always
// the volume's total cluster count.
//
// ground: original_source/jkdefrag_evo/include/defrag_data_struct.h
// (zones_[4])
type ZoneTable [4]LCN

// Bounds returns the [begin, end) extent of zone z.
func (zt ZoneTable) Bounds(z Zone) Extent {
	return Extent{Begin: zt[z], End: zt[z+1]}
}

// CalculateZones computes zone boundaries by fixed-point iteration: each
// round sums movable cluster counts per zone from the item index, adds the
// unmovable-fragment size that falls within the zone under the *current*
// boundaries, and recomputes the boundaries; it stops when a round leaves
// the boundaries unchanged or after 10 rounds.
//
// ground: spec.md §4.5
func CalculateZones(index *ItemIndex, mftExcludes []Extent, totalClusters LCN, freeSpaceFraction float64) ZoneTable {
	zt := ZoneTable{0, 0, 0, totalClusters}

	movable := [zoneCount]ClusterCount{}
	for node := index.Smallest(nil); node != nil; node = index.Next(node) {
		if node.IsUnmovable || node.IsExcluded {
			continue
		}
		movable[node.PreferredZone()] += node.Fragments.RealClusterCount()
	}

	reserve := ClusterCount(freeSpaceFraction * float64(totalClusters))

	for round := 0; round < 10; round++ {
		unmovable := unmovableSizePerZone(index, mftExcludes, zt)

		next := ZoneTable{0, 0, 0, totalClusters}
		next[1] = next[0] + LCN(movable[ZoneDirectories]) + LCN(unmovable[ZoneDirectories]) + LCN(reserve)
		next[2] = next[1] + LCN(movable[ZoneFiles]) + LCN(unmovable[ZoneFiles]) + LCN(reserve)
		if next[2] > totalClusters {
			next[2] = totalClusters
		}
		if next[1] > next[2] {
			next[1] = next[2]
		}

		if next == zt {
			zt = next
			break
		}
		zt = next
	}

	return zt
}

// unmovableSizePerZone classifies every unmovable fragment (the MFT
// extents, plus every unmovable/excluded item's real fragments not already
// covered by an MFT extent) by which zone its LCN falls into under the
// current boundaries zt.
func unmovableSizePerZone(index *ItemIndex, mftExcludes []Extent, zt ZoneTable) [zoneCount]ClusterCount {
	var sizes [zoneCount]ClusterCount

	classify := func(lcn LCN, length ClusterCount) {
		for z := Zone(0); z < zoneCount; z++ {
			if zt.Bounds(z).Contains(lcn) {
				sizes[z] += length
				return
			}
		}
	}

	for _, e := range mftExcludes {
		classify(e.Begin, e.Length())
	}

	for node := index.Smallest(nil); node != nil; node = index.Next(node) {
		if !node.IsUnmovable && !node.IsExcluded {
			continue
		}
		for _, e := range node.Fragments.Extents() {
			if withinAny(e.Begin, mftExcludes) {
				continue
			}
			classify(e.Begin, e.Length())
		}
	}

	return sizes
}

func withinAny(lcn LCN, extents []Extent) bool {
	for _, e := range extents {
		if e.Contains(lcn) {
			return true
		}
	}
	return false
}
