package defrag

import "github.com/dsoprea/go-logging"

// FATVariant identifies which FAT width a volume uses.
type FATVariant int

const (
	FAT12 FATVariant = iota
	FAT16
	FAT32
)

// fat12ClusterThreshold and fat16ClusterThreshold are the standard
// cluster-count boundaries used to classify a FAT volume.
//
// ground: spec.md §4.2 "Boot-sector probe"
const (
	fat12ClusterThreshold = 4085
	fat16ClusterThreshold = 65525
)

// fatBootSector is the subset of the FAT12/16/32 BPB godefrag needs.
//
// ground: other_examples/a7344793_shubham030-recovery__internal-fat32-fat32.go.go
// (BootSector), extended with the FAT12/16 root-directory fields the
// recovery tool's FAT32-only parser didn't need.
type fatBootSector struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntryCount    uint16
	TotalSectors16    uint16
	FATSize16         uint16
	TotalSectors32    uint32
	FATSize32         uint32
	RootCluster       uint32 // FAT32 only
}

func parseFATBootSector(raw []byte) (fatBootSector, error) {
	var bs fatBootSector
	if len(raw) < 512 {
		return bs, log.Errorf("fat boot sector buffer too small: %d bytes", len(raw))
	}

	if raw[510] != 0x55 || raw[511] != 0xAA {
		return bs, log.Errorf("fat boot sector missing AA55 signature")
	}
	// Jump instruction prefix: either a short jump (0xEB, ?, 0x90) or a
	// near jump (0xE9, ?, ?).
	if raw[0] != 0xEB && raw[0] != 0xE9 {
		return bs, log.Errorf("fat boot sector missing jump instruction prefix")
	}

	bs.BytesPerSector = leU16(raw[11:13])
	bs.SectorsPerCluster = raw[13]
	bs.ReservedSectors = leU16(raw[14:16])
	bs.NumFATs = raw[16]
	bs.RootEntryCount = leU16(raw[17:19])
	bs.TotalSectors16 = leU16(raw[19:21])
	bs.FATSize16 = leU16(raw[22:24])
	bs.TotalSectors32 = leU32(raw[32:36])
	bs.FATSize32 = leU32(raw[36:40])
	bs.RootCluster = leU32(raw[44:48])

	return bs, nil
}

func (bs fatBootSector) totalSectors() uint32 {
	if bs.TotalSectors16 != 0 {
		return uint32(bs.TotalSectors16)
	}
	return bs.TotalSectors32
}

func (bs fatBootSector) fatSize() uint32 {
	if bs.FATSize16 != 0 {
		return uint32(bs.FATSize16)
	}
	return bs.FATSize32
}

// rootDirSectors is the fixed-size root directory region's length in
// sectors; zero for FAT32, whose root directory is a normal cluster chain.
func (bs fatBootSector) rootDirSectors() uint32 {
	return (uint32(bs.RootEntryCount)*32 + uint32(bs.BytesPerSector) - 1) / uint32(bs.BytesPerSector)
}

func (bs fatBootSector) firstDataSector() uint32 {
	return uint32(bs.ReservedSectors) + uint32(bs.NumFATs)*bs.fatSize() + bs.rootDirSectors()
}

func (bs fatBootSector) dataSectors() uint32 {
	return bs.totalSectors() - bs.firstDataSector()
}

func (bs fatBootSector) countOfClusters() uint32 {
	if bs.SectorsPerCluster == 0 {
		return 0
	}
	return bs.dataSectors() / uint32(bs.SectorsPerCluster)
}

// Variant classifies the volume using the standard cluster-count
// thresholds.
func (bs fatBootSector) Variant() FATVariant {
	n := bs.countOfClusters()
	switch {
	case n < fat12ClusterThreshold:
		return FAT12
	case n < fat16ClusterThreshold:
		return FAT16
	default:
		return FAT32
	}
}

func (bs fatBootSector) bytesPerCluster() uint32 {
	return uint32(bs.BytesPerSector) * uint32(bs.SectorsPerCluster)
}

func (bs fatBootSector) rootDirByteOffset() uint64 {
	return (uint64(bs.ReservedSectors) + uint64(bs.NumFATs)*uint64(bs.fatSize())) * uint64(bs.BytesPerSector)
}

func (bs fatBootSector) dataByteOffset() uint64 {
	return uint64(bs.firstDataSector()) * uint64(bs.BytesPerSector)
}

// clusterByteOffset returns the byte offset of cluster n (n >= 2) in the
// data region.
func (bs fatBootSector) clusterByteOffset(n uint32) uint64 {
	return bs.dataByteOffset() + uint64(n-2)*uint64(bs.bytesPerCluster())
}
