package defrag

import (
	"github.com/dsoprea/go-logging"
	"github.com/go-restruct/restruct"
)

// ntfsBootSector is the subset of the NTFS boot sector godefrag needs.
// Field offsets and meaning per the standard NTFS BPB.
//
// ground: other_examples/fd0106ac_lvdlvd-rawhide__fsys-ntfs-ntfs.go.go
// (boot sector field offsets). Decoded by hand rather than via restruct
// because of the wide reserved gaps between fields; restruct.Unpack is
// used instead for the densely-packed mftRecordHeader below.
type ntfsBootSector struct {
	BytesPerSector            uint16
	SectorsPerCluster         uint8
	TotalSectors              uint64
	MFTLCN                    uint64
	MFTMirrorLCN              uint64
	ClustersPerMFTRecordRaw   int8
	ClustersPerIndexRecordRaw int8
	VolumeSerialNumber        uint64
}

// bootSectorSize is the NTFS boot sector's fixed on-disk size.
const bootSectorSize = 512

func parseNTFSBootSector(raw []byte) (ntfsBootSector, error) {
	var bs ntfsBootSector
	if len(raw) < bootSectorSize {
		return bs, log.Errorf("ntfs boot sector buffer too small: %d bytes", len(raw))
	}

	// The struct above intentionally only names the fields godefrag
	// consumes; decode by hand into the named fields using fixed offsets
	// rather than relying on restruct's padding inference across the
	// reserved ranges, matching the field-by-field approach
	// other_examples/fd0106ac takes.
	bs.BytesPerSector = leU16(raw[11:13])
	bs.SectorsPerCluster = raw[13]
	bs.TotalSectors = leU64(raw[40:48])
	bs.MFTLCN = leU64(raw[48:56])
	bs.MFTMirrorLCN = leU64(raw[56:64])
	bs.ClustersPerMFTRecordRaw = int8(raw[64])
	bs.ClustersPerIndexRecordRaw = int8(raw[68])
	bs.VolumeSerialNumber = leU64(raw[72:80])

	if raw[510] != 0x55 || raw[511] != 0xAA {
		return bs, log.Errorf("ntfs boot sector missing AA55 signature")
	}

	return bs, nil
}

// BytesPerCluster returns the volume's cluster size in bytes.
func (bs ntfsBootSector) BytesPerCluster() uint32 {
	return uint32(bs.BytesPerSector) * uint32(bs.SectorsPerCluster)
}

// MFTRecordSize interprets the signed byte encoding used by NTFS for both
// the MFT record size and the index record size: a positive value is a
// cluster count; a negative value n means 2^(-n) bytes.
func mftRecordSize(raw int8, bytesPerCluster uint32) uint32 {
	if raw >= 0 {
		return uint32(raw) * bytesPerCluster
	}
	return 1 << uint(-int(raw))
}

func (bs ntfsBootSector) MFTRecordSize() uint32 {
	return mftRecordSize(bs.ClustersPerMFTRecordRaw, bs.BytesPerCluster())
}

func (bs ntfsBootSector) IndexRecordSize() uint32 {
	return mftRecordSize(bs.ClustersPerIndexRecordRaw, bs.BytesPerCluster())
}

func leU16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }

func leU64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// mftRecordHeader is the fixed leading portion of every MFT record,
// decoded with restruct the way the teacher decodes its own fixed-size
// headers (e.g. BootSectorHeader) in structures.go.
//
// ground: other_examples/fd0106ac_lvdlvd-rawhide__fsys-ntfs-ntfs.go.go
// (mftRecord)
type mftRecordHeader struct {
	Magic              [4]byte
	UpdateSeqOffset    uint16
	UpdateSeqCount     uint16
	LogSeqNumber       uint64
	SequenceNumber     uint16
	LinkCount          uint16
	AttrsOffset        uint16
	Flags              uint16
	BytesInUse         uint32
	BytesAllocated     uint32
	BaseRecordRef      uint64
	NextAttrInstance   uint16
}

func parseMFTRecordHeader(raw []byte) (mftRecordHeader, error) {
	var h mftRecordHeader
	if err := restruct.Unpack(raw, defaultEncoding, &h); err != nil {
		return h, log.Wrap(err)
	}
	if string(h.Magic[:]) != "FILE" {
		return h, log.Errorf("bad mft record magic: %q", h.Magic)
	}
	return h, nil
}

// IsExtensionRecord reports whether this record is an extension record
// (attribute-list continuation) of another base record.
func (h mftRecordHeader) IsExtensionRecord() bool {
	return h.BaseRecordRef&0x0000FFFFFFFFFFFF != 0
}

// InUse reports whether the MFT_RECORD_IN_USE flag bit is set.
func (h mftRecordHeader) InUse() bool {
	return h.Flags&0x0001 != 0
}

// IsDirectory reports whether the MFT_RECORD_IS_DIRECTORY flag bit is set.
func (h mftRecordHeader) IsDirectory() bool {
	return h.Flags&0x0002 != 0
}

// applyFixup performs the update-sequence-array fixup over an MFT or INDX
// record buffer: the last two bytes of each sectorSize-sized sector must
// equal usa[0], and are replaced by the corresponding usa[1:] entry.
//
// ground: other_examples/fd0106ac_lvdlvd-rawhide__fsys-ntfs-ntfs.go.go
// (applyFixup)
func applyFixup(raw []byte, usaOffset int, usaCount int, sectorSize int) error {
	if usaCount == 0 {
		return nil
	}
	if usaOffset+usaCount*2 > len(raw) {
		return log.Errorf("update sequence array overruns record buffer")
	}

	usn := leU16(raw[usaOffset : usaOffset+2])

	for i := 0; i < usaCount-1; i++ {
		sectorEnd := (i+1)*sectorSize - 2
		if sectorEnd+2 > len(raw) {
			break
		}
		if leU16(raw[sectorEnd:sectorEnd+2]) != usn {
			return log.Errorf("update sequence fixup mismatch in sector %d", i)
		}
		entry := raw[usaOffset+2+i*2 : usaOffset+4+i*2]
		raw[sectorEnd] = entry[0]
		raw[sectorEnd+1] = entry[1]
	}

	return nil
}
