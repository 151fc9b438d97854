package defrag

import "github.com/dsoprea/go-logging"

// FilesystemKind identifies which scanner Scan dispatched to.
type FilesystemKind int

const (
	FilesystemUnknown FilesystemKind = iota
	FilesystemNTFS
	FilesystemFAT
)

// ErrUnrecognizedFilesystem is returned when the boot sector matches neither
// the NTFS nor the FAT signature godefrag understands.
var ErrUnrecognizedFilesystem = unrecognizedFilesystemError{}

type unrecognizedFilesystemError struct{}

func (unrecognizedFilesystemError) Error() string { return "unrecognized filesystem" }

// ntfsOEMID is the fixed "NTFS    " OEM identifier NTFS boot sectors carry
// at byte offset 3.
const ntfsOEMID = "NTFS    "

// ProbeFilesystem reads the boot sector and reports which filesystem it
// belongs to, without fully parsing it.
//
// ground: spec.md §4.1/§4.2, both sections open with a boot-sector probe;
// generalized here into a single dispatch point per spec.md §4.8.
func ProbeFilesystem(access VolumeAccessor) (FilesystemKind, error) {
	raw, err := access.ReadSectors(0, 512)
	if err != nil {
		return FilesystemUnknown, log.Wrap(err)
	}
	if len(raw) < 512 {
		return FilesystemUnknown, log.Errorf("boot sector buffer too small: %d bytes", len(raw))
	}

	if raw[510] != 0x55 || raw[511] != 0xAA {
		return FilesystemUnknown, log.Wrap(ErrUnrecognizedFilesystem)
	}

	if string(raw[3:11]) == ntfsOEMID {
		return FilesystemNTFS, nil
	}

	if raw[0] == 0xEB || raw[0] == 0xE9 {
		return FilesystemFAT, nil
	}

	return FilesystemUnknown, log.Wrap(ErrUnrecognizedFilesystem)
}

// ScanResult bundles the outcome of a full-volume scan, ready for zone
// calculation and planning.
type ScanResult struct {
	Index      *ItemIndex
	Kind       FilesystemKind
	// MFTExcludes holds the NTFS MFT extents that must never be treated as
	// free space; empty for FAT volumes, which have no equivalent fixed
	// metadata region beyond the FAT tables themselves (already excluded
	// implicitly, since they precede the data area's cluster numbering).
	MFTExcludes []Extent
}

// Scan probes the volume and dispatches to the matching filesystem scanner.
//
// ground: spec.md §4.8 "Filesystem dispatch"
func Scan(access VolumeAccessor, opts ScanOptions) (*ScanResult, error) {
	kind, err := ProbeFilesystem(access)
	if err != nil {
		return nil, log.Wrap(err)
	}

	switch kind {
	case FilesystemNTFS:
		index, mftExcludes, err := ScanNTFS(access, opts)
		if err != nil {
			return nil, log.Wrap(err)
		}
		return &ScanResult{Index: index, Kind: kind, MFTExcludes: mftExcludes}, nil

	case FilesystemFAT:
		index, err := ScanFAT(access, opts)
		if err != nil {
			return nil, log.Wrap(err)
		}
		return &ScanResult{Index: index, Kind: kind}, nil

	default:
		return nil, log.Wrap(ErrUnrecognizedFilesystem)
	}
}
