package defrag

import (
	"github.com/dsoprea/go-logging"
)

// ScanFAT walks a FAT12/16/32 volume's directory tree and returns every
// file/directory item found.
//
// ground: spec.md §4.2, whole section
func ScanFAT(access VolumeAccessor, opts ScanOptions) (*ItemIndex, error) {
	raw, err := access.ReadSectors(0, 512)
	if err != nil {
		return nil, log.Wrap(err)
	}

	bs, err := parseFATBootSector(raw)
	if err != nil {
		return nil, log.Wrap(err)
	}

	ft, err := loadFATTable(access, bs)
	if err != nil {
		return nil, log.Wrap(err)
	}

	index := NewItemIndex()
	scanner := &fatScanner{access: access, bs: bs, ft: ft, index: index, opts: opts}

	rootData, err := scanner.readRootDirectory()
	if err != nil {
		return nil, log.Wrap(err)
	}

	scanner.scanDirectory(rootData, nil, 0)

	return index, nil
}

type fatScanner struct {
	access VolumeAccessor
	bs     fatBootSector
	ft     *fatTable
	index  *ItemIndex
	opts   ScanOptions
}

// maxFATDirectoryDepth bounds directory recursion; spec.md says "bounded
// by disk size" — in practice a volume cannot have more directory levels
// than it has clusters, so the cluster count is already a (loose) bound,
// but a fixed cap defends against a corrupt volume with a directory cycle.
const maxFATDirectoryDepth = 4096

func (s *fatScanner) readRootDirectory() ([]byte, error) {
	if s.bs.Variant() == FAT32 {
		fl, err := walkChain(s.ft, s.bs.RootCluster, s.bs.countOfClusters())
		if err != nil {
			return nil, log.Wrap(err)
		}
		return s.readFragments(fl)
	}

	offset := s.bs.rootDirByteOffset()
	size := uint64(s.bs.rootDirSectors()) * uint64(s.bs.BytesPerSector)
	return s.access.ReadSectors(offset, size)
}

func (s *fatScanner) readFragments(fl FragmentList) ([]byte, error) {
	var out []byte
	var prevVCN VCN
	for _, f := range fl {
		length := ClusterCount(f.NextVCN - prevVCN)
		prevVCN = f.NextVCN
		chunk, err := s.access.ReadSectors(s.bs.clusterByteOffset(uint32(f.LCN)), uint64(length)*uint64(s.bs.bytesPerCluster()))
		if err != nil {
			return nil, log.Wrap(err)
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// scanDirectory interprets one directory's raw cluster data, per
// spec.md §4.2 "Directory scan", recursing into subdirectories.
func (s *fatScanner) scanDirectory(data []byte, parent *Item, depth int) {
	if depth > maxFATDirectoryDepth {
		return
	}

	var lfnParts []string
	var lfnChecksum uint8
	haveLFN := false

	for pos := 0; pos+fatDirEntrySize <= len(data); pos += fatDirEntrySize {
		if s.opts.stopping() {
			return
		}

		entry := data[pos : pos+fatDirEntrySize]

		if entry[0] == 0x00 {
			break
		}
		if entry[0] == fatEntryFree {
			lfnParts, haveLFN = nil, false
			continue
		}

		if entry[11] == fatAttrLFN {
			ordinal := entry[0]
			if ordinal&0x40 != 0 {
				lfnParts = nil
				lfnChecksum = entry[13]
				haveLFN = true
			}
			lfnParts = append([]string{lfnComponent(entry)}, lfnParts...)
			continue
		}

		if entry[11]&fatAttrVolumeID != 0 {
			lfnParts, haveLFN = nil, false
			continue
		}

		de := parseFATDirEntry(entry)
		shortName := parseShortName(de.ShortNameRaw)

		if shortName == "." || shortName == ".." {
			lfnParts, haveLFN = nil, false
			continue
		}

		longName := ""
		if haveLFN && len(lfnParts) > 0 {
			checksum := shortNameChecksum(de.ShortNameRaw)
			if checksum == lfnChecksum {
				for _, p := range lfnParts {
					longName += p
				}
			}
		}
		lfnParts, haveLFN = nil, false

		item := &Item{
			LongFilename:   longName,
			IsDirectory:    de.isDirectory(),
			Bytes:          uint64(de.FileSize),
			CreationTime:   dosDateTimeToFileTime(de.CreateDate, de.CreateTime, de.CreateTenth),
			LastAccessTime: dosDateTimeToFileTime(de.AccessDate, 0, 0),
			MFTChangeTime:  dosDateTimeToFileTime(de.WriteDate, de.WriteTime, 0),
		}
		if item.LongFilename == "" {
			item.LongFilename = shortName
		} else {
			item.SetShortFilename(shortName)
		}
		item.ParentDirectory = parent

		firstCluster := de.firstCluster()
		if !de.isDirectory() {
			fl, err := walkChain(s.ft, firstCluster, s.bs.countOfClusters())
			if err != nil {
				continue // corrupt chain: entry skipped without being logged
			}
			item.Fragments = fl
			item.Clusters = fl.RealClusterCount()
		}

		s.index.Insert(item)

		if de.isDirectory() && firstCluster >= 2 {
			fl, err := walkChain(s.ft, firstCluster, s.bs.countOfClusters())
			if err != nil {
				continue
			}
			item.Fragments = fl
			item.Clusters = fl.RealClusterCount()

			childData, err := s.readFragments(fl)
			if err != nil {
				continue
			}
			s.scanDirectory(childData, item, depth+1)
		}
	}
}
