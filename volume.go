package defrag

// FileHandle is an opaque reference to an open file or directory stream on
// the volume, as returned by a VolumeAccessor implementation.
type FileHandle interface{}

// FragmentInfo is one (nextVCN, lcn) pair as returned by a file-extent
// query; LCN is VirtualFragmentLCN for sparse runs.
type FragmentInfo struct {
	NextVCN VCN
	LCN     LCN
}

// NTFSVolumeData carries the subset of NTFS volume geometry godefrag needs
// to build the unmovable-region list. MFTValidDataLength is carried but
// nothing compares it with the bitmap-derived cluster count.
//
// ground: spec.md §6 "NTFS volume data"
type NTFSVolumeData struct {
	BytesPerCluster     uint32
	MFTStartLCN         LCN
	MFTZone             Extent
	MFTMirrorStartLCN   LCN
	MFTValidDataLength  uint64
}

// VolumeAccessor is the external, filesystem-side collaborator godefrag
// consumes: every operation that actually touches the host OS or a raw
// volume image goes through this interface, so the scanner, gap finder,
// and move engine can be tested against an in-memory fake.
//
// ground: spec.md §6 "Filesystem-side (consumed)"
type VolumeAccessor interface {
	BitmapReader

	// GetFileExtents returns the fragment list for handle starting at
	// startVCN, and whether more extents remain beyond what was returned
	// (the caller loops until false).
	GetFileExtents(handle FileHandle, startVCN VCN) (extents []FragmentInfo, more bool, err error)

	// MoveFile relocates count clusters of handle's stream starting at
	// sourceVCN to start at destinationLCN. Partial success (fewer clusters
	// moved than requested) is reported as success; the caller detects
	// fragmentation by re-reading extents.
	MoveFile(handle FileHandle, sourceVCN VCN, destinationLCN LCN, count ClusterCount) error

	// NTFSVolumeData returns the volume's NTFS geometry. FAT volumes may
	// return the zero value; callers only consult it for NTFS volumes.
	NTFSVolumeData() (NTFSVolumeData, error)

	// ReadSectors reads raw bytes at a sector-aligned offset, a multiple of
	// sector size in length.
	ReadSectors(offset uint64, length uint64) ([]byte, error)

	// OpenItem opens a handle to the stream described by item, for reading
	// extents and issuing moves. Callers close the handle before moving to
	// the next item.
	OpenItem(item *Item) (FileHandle, error)
	CloseHandle(handle FileHandle) error

	// TotalClusters returns the volume's total cluster count.
	TotalClusters() LCN
}
