// Package defrag implements block-addressed analysis and relocation of
// fragmented files on NTFS and FAT12/16/32 volumes.
package defrag

import "math"

// LCN is a logical cluster number — an absolute cluster address on the
// volume.
type LCN uint64

// VCN is a virtual cluster number — an offset within a file's cluster
// stream.
type VCN uint64

// ClusterCount counts clusters.
type ClusterCount uint64

// FileTime is a Windows FILETIME: the number of 100ns intervals since
// 1601-01-01 00:00:00 UTC.
type FileTime uint64

// epochDiff is the offset between the Windows epoch (1601) and the Unix
// epoch (1970), in 100ns ticks.
const epochDiff = 116444736000000000

// Unix returns the Unix timestamp (seconds since 1970) for t.
func (t FileTime) Unix() int64 {
	if uint64(t) < epochDiff {
		return 0
	}
	return int64((uint64(t) - epochDiff) / 10000000)
}

// VirtualFragmentLCN marks a fragment as virtual (sparse): it occupies VCN
// space but no real disk clusters.
const VirtualFragmentLCN = LCN(math.MaxUint64)

// Extent is an inclusive-exclusive run of logical clusters: [Begin, End).
type Extent struct {
	Begin LCN
	End   LCN
}

// Length returns the number of clusters in the extent.
func (e Extent) Length() ClusterCount {
	if e.End <= e.Begin {
		return 0
	}
	return ClusterCount(e.End - e.Begin)
}

// Contains reports whether lcn falls within the extent.
func (e Extent) Contains(lcn LCN) bool {
	return lcn >= e.Begin && lcn < e.End
}

// Overlaps reports whether e and o share any cluster.
func (e Extent) Overlaps(o Extent) bool {
	return e.Begin < o.End && o.Begin < e.End
}

// Zone identifies one of the three placement zones used by the zone
// calculator and the optimize phases.
type Zone int

const (
	ZoneDirectories Zone = iota
	ZoneFiles
	ZoneSpaceHogs
	zoneCount
)

// DebugLevel mirrors the severity levels the original tool reports
// progress and diagnostics at.
type DebugLevel int

const (
	DebugFatal DebugLevel = iota
	DebugWarning
	DebugProgress
	DebugDetailedProgress
	DebugDetailedFileInfo
	DebugDetailedGapFilling
	DebugDetailedGapFinding
)

// DrawColor is the semantic color of a cluster in a volume map.
type DrawColor int

const (
	ColorEmpty DrawColor = iota
	ColorAllocated
	ColorUnfragmented
	ColorUnmovable
	ColorFragmented
	ColorBusy
	ColorMft
	ColorSpaceHog
)
