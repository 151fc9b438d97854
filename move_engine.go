package defrag

import (
	"github.com/dsoprea/go-logging"
)

// MoveStrategy selects how a move-with-fallback attempt issues its OS move
// calls.
//
// ground: original_source/.../constants.h (MoveStrategy)
type MoveStrategy int

const (
	StrategyWhole MoveStrategy = iota
	StrategyInFragments
)

// MoveDirection indicates which way a relocation travels on the volume.
// MoveWithFallback accepts it, but its InFragments retry reuses the
// original destination and does not search for another gap, so the
// direction does not change where an item lands.
type MoveDirection int

const (
	DirectionUp MoveDirection = iota
	DirectionDown
)

// maxMoveClusters is the per-OS-call size cap: 1 GiB worth of clusters, or
// 262,144 clusters if cluster size is unknown (treated here as "zero").
//
// ground: spec.md §4.6 "Per-call size cap"
const maxMoveClustersFallback ClusterCount = 262144

func maxMoveClusters(bytesPerCluster uint32) ClusterCount {
	if bytesPerCluster == 0 {
		return maxMoveClustersFallback
	}
	const oneGiB = 1 << 30
	return ClusterCount(oneGiB / uint64(bytesPerCluster))
}

// MoveEngine relocates an item's data stream on the volume, reconciling
// the index afterwards.
//
// ground: spec.md §4.6
type MoveEngine struct {
	Volume          VolumeAccessor
	Throttle        *Throttle
	Index           *ItemIndex
	GapFinder       *GapFinder
	Zones           *ZoneTable
	MFTExcludes       []Extent
	TotalClusters     LCN
	BytesPerCluster   uint32
	FreeSpaceFraction float64

	// DirFailureThreshold is how many global directory-move failures are
	// tolerated before all further directory moves short-circuit to
	// failure, since FAT cannot move directories at all and NTFS
	// directories moved mid-pass can desync open handles.
	//
	// ground: original_source/.../defrag_data_struct.h (cannot_move_dirs_)
	DirFailureThreshold int
	dirFailures         int
}

// ErrMoveFailed indicates a move-with-fallback attempt could not relocate
// the item and it was left where it was.
var ErrMoveFailed = moveFailedError{}

type moveFailedError struct{}

func (moveFailedError) Error() string { return "move failed: item left in place" }

// MoveWithFallback relocates item to destination, trying Whole first and
// falling back to InFragments if the OS only partially honored the whole
// move. On any success it detaches, re-reads, and re-inserts the item in
// the index. On failure it flags the item unmovable and recomputes zones.
//
// ground: spec.md §4.6 "Move-with-fallback algorithm"
func (me *MoveEngine) MoveWithFallback(item *Item, destination LCN, direction MoveDirection) error {
	if item.IsDirectory {
		if me.DirFailureThreshold > 0 && me.dirFailures >= me.DirFailureThreshold {
			return log.Wrap(ErrMoveFailed)
		}
	}

	handle, err := me.Volume.OpenItem(item)
	if err != nil {
		return me.fail(item)
	}
	defer me.Volume.CloseHandle(handle)

	ok, err := me.attemptWhole(item, handle, destination)
	if err != nil {
		return me.fail(item)
	}
	if !ok {
		ok, err = me.attemptInFragments(item, handle, destination, direction)
		if err != nil {
			return me.fail(item)
		}
	}

	if !ok {
		return me.fail(item)
	}

	return me.reconcile(item, handle)
}

func (me *MoveEngine) attemptWhole(item *Item, handle FileHandle, destination LCN) (bool, error) {
	total := item.Fragments.RealClusterCount()
	if total == 0 {
		return true, nil
	}

	remaining := total
	srcVCN := VCN(0)
	dstLCN := destination
	callCap := maxMoveClusters(me.BytesPerCluster)

	for remaining > 0 {
		chunk := remaining
		if chunk > callCap {
			chunk = callCap
		}

		me.Throttle.Tick()
		if err := me.Volume.MoveFile(handle, srcVCN, dstLCN, chunk); err != nil {
			return false, log.Wrap(err)
		}

		srcVCN += VCN(chunk)
		dstLCN += LCN(chunk)
		remaining -= chunk
	}

	fl, err := me.reReadFragments(handle)
	if err != nil {
		return false, log.Wrap(err)
	}
	return fl.FragmentCount() <= 1, nil
}

func (me *MoveEngine) attemptInFragments(item *Item, handle FileHandle, destination LCN, direction MoveDirection) (bool, error) {
	dstLCN := destination
	var prevVCN VCN

	for _, f := range item.Fragments {
		length := ClusterCount(f.NextVCN - prevVCN)
		srcVCN := prevVCN
		prevVCN = f.NextVCN

		if f.IsVirtual() || length == 0 {
			continue
		}

		callCap := maxMoveClusters(me.BytesPerCluster)
		remaining := length
		srcCursor := srcVCN
		for remaining > 0 {
			chunk := remaining
			if chunk > callCap {
				chunk = callCap
			}
			me.Throttle.Tick()
			if err := me.Volume.MoveFile(handle, srcCursor, dstLCN, chunk); err != nil {
				return false, log.Wrap(err)
			}
			srcCursor += VCN(chunk)
			dstLCN += LCN(chunk)
			remaining -= chunk
		}
	}

	fl, err := me.reReadFragments(handle)
	if err != nil {
		return false, log.Wrap(err)
	}
	return fl.FragmentCount() <= 1, nil
}

// MovePartial issues a single bounded relocation of count clusters starting
// at sourceVCN to destination, without the whole/in-fragments fallback
// dance MoveWithFallback performs. It is the primitive phase sequencers use
// when one item's stream must land across several separate destination
// gaps — Defragment's whole-volume partial-fill fallback and Optimize-
// sort's 8-cluster-aligned placement — situations MoveWithFallback's
// single-destination contract cannot express. Callers are responsible for
// opening/closing handle and for calling Reconcile once all partial moves
// for an item are issued.
//
// ground: spec.md §4.7 "Defragment"/"Optimize-sort" partial-move rules
func (me *MoveEngine) MovePartial(handle FileHandle, sourceVCN VCN, destination LCN, count ClusterCount) error {
	callCap := maxMoveClusters(me.BytesPerCluster)
	srcCursor := sourceVCN
	dstLCN := destination
	remaining := count

	for remaining > 0 {
		chunk := remaining
		if chunk > callCap {
			chunk = callCap
		}
		me.Throttle.Tick()
		if err := me.Volume.MoveFile(handle, srcCursor, dstLCN, chunk); err != nil {
			return log.Wrap(err)
		}
		srcCursor += VCN(chunk)
		dstLCN += LCN(chunk)
		remaining -= chunk
	}

	return nil
}

// Reconcile re-reads item's fragment list from handle and updates the
// index to match, the same bookkeeping MoveWithFallback performs on
// success — exported so callers issuing their own MovePartial sequences
// can settle the index afterward.
func (me *MoveEngine) Reconcile(item *Item, handle FileHandle) error {
	return me.reconcile(item, handle)
}

func (me *MoveEngine) reReadFragments(handle FileHandle) (FragmentList, error) {
	var fl FragmentList
	startVCN := VCN(0)
	for {
		extents, more, err := me.Volume.GetFileExtents(handle, startVCN)
		if err != nil {
			return nil, log.Wrap(err)
		}
		for _, e := range extents {
			fl = append(fl, Fragment{LCN: e.LCN, NextVCN: e.NextVCN})
			startVCN = e.NextVCN
		}
		if !more {
			break
		}
	}
	return fl, nil
}

func (me *MoveEngine) reconcile(item *Item, handle FileHandle) error {
	fl, err := me.reReadFragments(handle)
	if err != nil {
		return log.Wrap(err)
	}

	if me.Index != nil {
		me.Index.Detach(item)
	}
	item.Fragments = fl
	item.Clusters = fl.RealClusterCount()
	if me.Index != nil {
		me.Index.Insert(item)
	}

	return nil
}

func (me *MoveEngine) fail(item *Item) error {
	item.IsUnmovable = true
	if item.IsDirectory {
		me.dirFailures++
	}
	if me.Zones != nil && me.Index != nil {
		zt := CalculateZones(me.Index, me.MFTExcludes, me.TotalClusters, me.FreeSpaceFraction)
		*me.Zones = zt
	}
	return log.Wrap(ErrMoveFailed)
}
