package defrag

import "github.com/dsoprea/go-logging"

// fatTable holds a fully loaded FAT, abstracting over the 12/16/32-bit
// entry width.
type fatTable struct {
	variant FATVariant
	raw     []byte
}

// loadFATTable reads the first FAT table into memory.
//
// ground: spec.md §4.2 "FAT load"; other_examples's loadFAT, generalized
// to all three widths.
func loadFATTable(access VolumeAccessor, bs fatBootSector) (*fatTable, error) {
	offset := uint64(bs.ReservedSectors) * uint64(bs.BytesPerSector)
	size := uint64(bs.fatSize()) * uint64(bs.BytesPerSector)

	raw, err := access.ReadSectors(offset, size)
	if err != nil {
		return nil, log.Wrap(err)
	}

	return &fatTable{variant: bs.Variant(), raw: raw}, nil
}

// entry returns the raw FAT entry for cluster n.
func (ft *fatTable) entry(n uint32) uint32 {
	switch ft.variant {
	case FAT12:
		offset := n + n/2
		if int(offset)+1 >= len(ft.raw) {
			return 0
		}
		v := uint32(ft.raw[offset]) | uint32(ft.raw[offset+1])<<8
		if n%2 == 0 {
			return v & 0x0FFF
		}
		return v >> 4

	case FAT16:
		offset := n * 2
		if int(offset)+1 >= len(ft.raw) {
			return 0
		}
		return uint32(leU16(ft.raw[offset : offset+2]))

	default: // FAT32
		offset := n * 4
		if int(offset)+3 >= len(ft.raw) {
			return 0
		}
		return leU32(ft.raw[offset:offset+4]) & 0x0FFFFFFF
	}
}

// isEOC reports whether entry is at or above the variant's end-of-chain
// threshold.
func (ft *fatTable) isEOC(entry uint32) bool {
	switch ft.variant {
	case FAT12:
		return entry >= 0xFF8
	case FAT16:
		return entry >= 0xFFF8
	default:
		return entry >= 0x0FFFFFF8
	}
}

// isFree reports whether entry marks a free cluster (0).
func (ft *fatTable) isFree(entry uint32) bool { return entry == 0 }

// isBad reports the FAT "bad cluster" sentinel.
func (ft *fatTable) isBad(entry uint32) bool {
	switch ft.variant {
	case FAT12:
		return entry == 0xFF7
	case FAT16:
		return entry == 0xFFF7
	default:
		return entry == 0x0FFFFFF7
	}
}

// ErrFATLoop indicates the cluster chain exceeded countOfClusters+1 steps,
// i.e. it almost certainly contains a cycle.
var ErrFATLoop = fatLoopError{}

type fatLoopError struct{}

func (fatLoopError) Error() string { return "fat chain exceeds cluster count: likely a loop" }

// ErrFATCorrupt indicates a chain entry fell outside the valid cluster
// range.
var ErrFATCorrupt = fatCorruptError{}

type fatCorruptError struct{}

func (fatCorruptError) Error() string { return "fat chain entry out of range" }

// walkChain follows the FAT cluster chain starting at firstCluster and
// returns it as a FragmentList, coalescing contiguous runs into a single
// fragment.
//
// ground: spec.md §4.2 "Fragment-list construction"
func walkChain(ft *fatTable, firstCluster uint32, countOfClusters uint32) (FragmentList, error) {
	if firstCluster < 2 {
		return nil, nil
	}

	var fl FragmentList
	var vcn VCN

	runStart := firstCluster
	runLen := uint32(0)
	cluster := firstCluster

	maxSteps := countOfClusters + 1
	for step := uint32(0); step < maxSteps; step++ {
		if cluster < 2 || cluster > countOfClusters+1 {
			return nil, log.Wrap(ErrFATCorrupt)
		}

		if runLen > 0 && cluster != runStart+runLen {
			vcn += VCN(runLen)
			fl = append(fl, Fragment{LCN: LCN(runStart), NextVCN: vcn})
			runStart = cluster
			runLen = 0
		}
		runLen++

		next := ft.entry(cluster)
		if ft.isEOC(next) {
			vcn += VCN(runLen)
			fl = append(fl, Fragment{LCN: LCN(runStart), NextVCN: vcn})
			return fl, nil
		}
		if ft.isFree(next) || ft.isBad(next) {
			return nil, log.Wrap(ErrFATCorrupt)
		}

		cluster = next
	}

	return nil, log.Wrap(ErrFATLoop)
}
