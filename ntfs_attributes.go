package defrag

import (
	"github.com/dsoprea/go-logging"
)

// NTFS attribute type codes godefrag interprets.
const (
	attrStandardInformation uint32 = 0x10
	attrAttributeList       uint32 = 0x20
	attrFileName            uint32 = 0x30
	attrData                uint32 = 0x80
	attrIndexRoot           uint32 = 0x90
	attrIndexAllocation     uint32 = 0xA0
	attrEndMarker           uint32 = 0xFFFFFFFF
)

// ntfsAttributeHeader is the common leading portion of every attribute
// record, resident or not.
//
// ground: other_examples/fd0106ac_lvdlvd-rawhide__fsys-ntfs-ntfs.go.go
// (attribute struct)
type ntfsAttributeHeader struct {
	Type           uint32
	Length         uint32
	NonResident    uint8
	NameLength     uint8
	NameOffset     uint16
	Flags          uint16
	Instance       uint16
}

// residentHeader follows ntfsAttributeHeader when NonResident == 0.
type residentHeader struct {
	ValueLength uint32
	ValueOffset uint16
	IndexedFlag uint8
	_           uint8
}

// nonResidentHeader follows ntfsAttributeHeader when NonResident != 0.
type nonResidentHeader struct {
	StartVCN        uint64
	LastVCN         uint64
	RunlistOffset   uint16
	CompressionUnit uint16
	_               uint32
	AllocatedSize   uint64
	DataSize        uint64
	InitializedSize uint64
}

// parsedAttribute is one decoded attribute instance, resident or not, with
// its name and (if non-resident) decoded runlist already extracted.
type parsedAttribute struct {
	typ          uint32
	name         string
	nonResident  bool
	instance     uint16
	residentData []byte
	startVCN     VCN
	runs         []run
}

// walkAttributes iterates the attribute stream of one MFT record (resident
// portion only — the caller is responsible for following $ATTRIBUTE_LIST
// continuations separately), stopping at the 0xFFFFFFFF end marker or the
// record's BytesInUse boundary, and invoking fn for each attribute whose
// Instance matches instanceFilter (or every attribute, if instanceFilter is
// nil).
//
// ground: spec.md §4.1 "Attribute decode"
func walkAttributes(record []byte, attrsOffset uint32, bytesInUse uint32, instanceFilter *uint16, fn func(parsedAttribute) error) error {
	pos := int(attrsOffset)
	limit := int(bytesInUse)
	if limit > len(record) {
		limit = len(record)
	}

	for pos+8 <= limit {
		typ := leU32(record[pos : pos+4])
		if typ == attrEndMarker {
			break
		}

		length := leU32(record[pos+4 : pos+8])
		if length == 0 || pos+int(length) > len(record) {
			return log.Errorf("attribute at offset %d overruns record buffer", pos)
		}

		header := record[pos : pos+int(length)]
		nonResident := header[8] != 0
		nameLength := int(header[9])
		nameOffset := int(leU16(header[10:12]))
		instance := leU16(header[22:24])

		var name string
		if nameLength > 0 {
			name = decodeUTF16(header[nameOffset : nameOffset+nameLength*2])
		}

		pa := parsedAttribute{
			typ:         typ,
			name:        name,
			nonResident: nonResident,
			instance:    instance,
		}

		if nonResident {
			if len(header) < 24+48 {
				return log.Errorf("non-resident attribute header truncated")
			}
			pa.startVCN = VCN(leU64(header[24:32]))
			runlistOffset := int(leU16(header[40:42]))
			runs, err := decodeRuns(header[runlistOffset:])
			if err != nil {
				return log.Wrap(err)
			}
			pa.runs = runs
		} else {
			valueLength := leU32(header[24:28])
			valueOffset := leU16(header[28:30])
			if int(valueOffset)+int(valueLength) > len(header) {
				return log.Errorf("resident attribute value overruns header")
			}
			pa.residentData = header[valueOffset : int(valueOffset)+int(valueLength)]
		}

		if instanceFilter == nil || *instanceFilter == instance {
			if err := fn(pa); err != nil {
				return err
			}
		}

		pos += int(length)
	}

	return nil
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// fileNameAttribute is the decoded body of a $FILE_NAME attribute.
//
// ground: other_examples/fd0106ac_lvdlvd-rawhide__fsys-ntfs-ntfs.go.go
// (parseFileNameAttr)
type fileNameAttribute struct {
	ParentInode    uint64
	CreationTime   FileTime
	LastAccessTime FileTime
	MFTChangeTime  FileTime
	AllocatedSize  uint64
	RealSize       uint64
	Flags          uint32
	NameType       uint8 // 0=POSIX 1=Win32 2=DOS 3=Win32&DOS
	Name           string
}

func parseFileNameAttribute(data []byte) (fileNameAttribute, error) {
	var fn fileNameAttribute
	if len(data) < 66 {
		return fn, log.Errorf("$FILE_NAME attribute too short")
	}

	fn.ParentInode = leU64(data[0:8]) & 0x0000FFFFFFFFFFFF
	fn.CreationTime = FileTime(leU64(data[8:16]))
	fn.LastAccessTime = FileTime(leU64(data[24:32]))
	fn.MFTChangeTime = FileTime(leU64(data[16:24]))
	fn.AllocatedSize = leU64(data[40:48])
	fn.RealSize = leU64(data[48:56])
	fn.Flags = leU32(data[56:60])
	nameLength := int(data[64])
	fn.NameType = data[65]

	if 66+nameLength*2 > len(data) {
		return fn, log.Errorf("$FILE_NAME name overruns attribute")
	}
	fn.Name = decodeUTF16(data[66 : 66+nameLength*2])

	return fn, nil
}

// standardInformationAttribute is the decoded body of a
// $STANDARD_INFORMATION attribute.
type standardInformationAttribute struct {
	CreationTime   FileTime
	LastAccessTime FileTime
	MFTChangeTime  FileTime
}

func parseStandardInformationAttribute(data []byte) (standardInformationAttribute, error) {
	var si standardInformationAttribute
	if len(data) < 24 {
		return si, log.Errorf("$STANDARD_INFORMATION attribute too short")
	}
	si.CreationTime = FileTime(leU64(data[0:8]))
	si.MFTChangeTime = FileTime(leU64(data[8:16]))
	si.LastAccessTime = FileTime(leU64(data[16:24]))
	return si, nil
}

// attributeListEntry is one decoded entry of an $ATTRIBUTE_LIST attribute.
type attributeListEntry struct {
	Type       uint32
	Instance   uint16
	Inode      uint64
	StartVCN   VCN
}

func parseAttributeList(data []byte) ([]attributeListEntry, error) {
	var entries []attributeListEntry
	pos := 0
	for pos+26 <= len(data) {
		typ := leU32(data[pos : pos+4])
		recordLength := leU16(data[pos+4 : pos+6])
		if recordLength == 0 {
			break
		}
		startVCN := leU64(data[pos+8 : pos+16])
		inode := leU64(data[pos+16:pos+24]) & 0x0000FFFFFFFFFFFF
		instance := leU16(data[pos+24 : pos+26])

		entries = append(entries, attributeListEntry{
			Type:     typ,
			Instance: instance,
			Inode:    inode,
			StartVCN: VCN(startVCN),
		})

		pos += int(recordLength)
	}
	return entries, nil
}

func decodeUTF16(b []byte) string {
	return utf16LEToString(b, len(b)/2)
}
