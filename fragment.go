package defrag

// Fragment is one contiguous run of a file's cluster stream. NextVCN is the
// VCN immediately following the last cluster covered by this fragment, so a
// fragment's length is NextVCN minus the previous fragment's NextVCN (or
// zero, for the first fragment in a stream).
//
// ground: original_source/jkdefrag_evo/include/file_node.h (FileFragment)
type Fragment struct {
	LCN     LCN
	NextVCN VCN
}

// IsVirtual reports whether the fragment is sparse: it reserves VCN space
// without occupying any real disk cluster.
func (f Fragment) IsVirtual() bool {
	return f.LCN == VirtualFragmentLCN
}

// FragmentList is the ordered cluster-stream of a file, in VCN order.
type FragmentList []Fragment

// ClusterCount returns the number of clusters spanned by the stream,
// including virtual (sparse) fragments.
func (fl FragmentList) ClusterCount() ClusterCount {
	var previousVCN VCN
	var total ClusterCount
	for _, f := range fl {
		total += ClusterCount(f.NextVCN - previousVCN)
		previousVCN = f.NextVCN
	}
	return total
}

// RealClusterCount returns the number of real (non-sparse) clusters
// allocated to the stream.
func (fl FragmentList) RealClusterCount() ClusterCount {
	var previousVCN VCN
	var total ClusterCount
	for _, f := range fl {
		if !f.IsVirtual() {
			total += ClusterCount(f.NextVCN - previousVCN)
		}
		previousVCN = f.NextVCN
	}
	return total
}

// FragmentCount returns the number of real fragments (virtual runs do not
// count as fragmentation).
func (fl FragmentList) FragmentCount() int {
	n := 0
	for _, f := range fl {
		if !f.IsVirtual() {
			n++
		}
	}
	return n
}

// FirstLCN returns the LCN of the first real fragment, and false if the
// stream has no real fragments (fully sparse, or empty).
func (fl FragmentList) FirstLCN() (LCN, bool) {
	for _, f := range fl {
		if !f.IsVirtual() {
			return f.LCN, true
		}
	}
	return 0, false
}

// Extents returns the real fragments as a slice of logical-cluster extents.
func (fl FragmentList) Extents() []Extent {
	var previousVCN VCN
	extents := make([]Extent, 0, len(fl))
	for _, f := range fl {
		length := ClusterCount(f.NextVCN - previousVCN)
		if !f.IsVirtual() {
			extents = append(extents, Extent{Begin: f.LCN, End: f.LCN + LCN(length)})
		}
		previousVCN = f.NextVCN
	}
	return extents
}
