package defrag

import (
	"fmt"

	"github.com/dsoprea/go-logging"
)

// ScanOptions configures a volume scan.
type ScanOptions struct {
	// Running, when non-nil, is checked at every inner-loop iteration
	// (the MFT sweep, the FAT directory recursion) for cooperative
	// cancellation.
	Running *RunningState
}

func (o ScanOptions) stopping() bool {
	return o.Running != nil && o.Running.Load() == StateStopping
}

// ntfsItemBuilder accumulates a single inode's streams and attributes
// across its base record and any extension records found via
// $ATTRIBUTE_LIST.
type ntfsItemBuilder struct {
	item         *Item
	streams      map[string]FragmentList
	haveSI       bool
	haveFileName bool
}

// ScanNTFS walks the MFT and returns every file/directory item found.
//
// ground: spec.md §4.1, whole section
func ScanNTFS(access VolumeAccessor, opts ScanOptions) (*ItemIndex, []Extent, error) {
	vol, err := bootstrapNTFS(access)
	if err != nil {
		return nil, nil, log.Wrap(err)
	}

	byInode := make(map[uint64]*Item)
	index := NewItemIndex()

	bits := vol.mftBitmapBits()
	for inode := uint64(0); inode < bits; inode++ {
		if opts.stopping() {
			break
		}
		if !vol.inodeInUse(inode) {
			continue
		}

		record, err := readMFTRecord(vol, access, inode)
		if err != nil {
			continue // corrupt record: skipped without being logged
		}

		hdr, err := parseMFTRecordHeader(record)
		if err != nil {
			continue
		}
		if !hdr.InUse() || hdr.IsExtensionRecord() {
			continue
		}

		builder := &ntfsItemBuilder{
			item:    &Item{ParentInode: 0, IsDirectory: hdr.IsDirectory()},
			streams: make(map[string]FragmentList),
		}

		if err := scanRecordAttributes(vol, access, record, &hdr, builder, 0); err != nil {
			continue
		}

		finalizeItem(builder, inode, byInode, index)
	}

	extents := make([]Extent, 0, 1)
	vd, err := access.NTFSVolumeData()
	if err == nil {
		extents = append(extents, vd.MFTZone)
	}

	resolveParents(byInode)

	return index, extents, nil
}

func scanRecordAttributes(vol *ntfsVolume, access VolumeAccessor, record []byte, hdr *mftRecordHeader, b *ntfsItemBuilder, depth int) error {
	if depth > maxAttributeListRecursionDepth {
		return log.Errorf("attribute-list recursion too deep")
	}

	var attrListRuns []run
	var attrListStartVCN VCN
	var attrListResident []byte

	err := walkAttributes(record, uint32(hdr.AttrsOffset), hdr.BytesInUse, nil, func(pa parsedAttribute) error {
		switch pa.typ {
		case attrStandardInformation:
			if !b.haveSI {
				si, err := parseStandardInformationAttribute(pa.residentData)
				if err == nil {
					b.item.CreationTime = si.CreationTime
					b.item.LastAccessTime = si.LastAccessTime
					b.item.MFTChangeTime = si.MFTChangeTime
					b.haveSI = true
				}
			}

		case attrFileName:
			fn, err := parseFileNameAttribute(pa.residentData)
			if err == nil {
				applyFileName(b, fn)
				b.haveFileName = true
			}

		case attrData:
			streamKey := streamName(b.item.IsDirectory, pa.typ, pa.name, false)
			if pa.nonResident {
				appendBuilderStream(b, streamKey, pa.runs, pa.startVCN)
			} else {
				b.item.Bytes = uint64(len(pa.residentData))
			}

		case attrIndexAllocation:
			if pa.name == "$I30" {
				streamKey := streamName(b.item.IsDirectory, pa.typ, pa.name, true)
				if pa.nonResident {
					appendBuilderStream(b, streamKey, pa.runs, pa.startVCN)
				}
			}

		case attrAttributeList:
			if pa.nonResident {
				attrListRuns = pa.runs
				attrListStartVCN = pa.startVCN
			} else {
				attrListResident = pa.residentData
			}
		}
		return nil
	})
	if err != nil {
		return log.Wrap(err)
	}

	var attrListData []byte
	if attrListResident != nil {
		attrListData = attrListResident
	} else if attrListRuns != nil {
		attrListData, err = readRunsData(access, vol.boot, runsToFragments(attrListRuns, attrListStartVCN))
		if err != nil {
			return log.Wrap(err)
		}
	}

	if attrListData != nil {
		entries, err := parseAttributeList(attrListData)
		if err != nil {
			return log.Wrap(err)
		}
		for _, e := range entries {
			extRecord, err := readMFTRecord(vol, access, e.Inode)
			if err != nil {
				continue
			}
			extHdr, err := parseMFTRecordHeader(extRecord)
			if err != nil {
				continue
			}
			instance := e.Instance
			err = walkAttributes(extRecord, uint32(extHdr.AttrsOffset), extHdr.BytesInUse, &instance, func(pa parsedAttribute) error {
				switch pa.typ {
				case attrData:
					streamKey := streamName(b.item.IsDirectory, pa.typ, pa.name, false)
					if pa.nonResident {
						appendBuilderStream(b, streamKey, pa.runs, pa.startVCN)
					}
				case attrIndexAllocation:
					if pa.name == "$I30" && pa.nonResident {
						streamKey := streamName(b.item.IsDirectory, pa.typ, pa.name, true)
						appendBuilderStream(b, streamKey, pa.runs, pa.startVCN)
					}
				}
				return nil
			})
			if err != nil {
				continue // extension record corrupt: skip just this continuation
			}
		}
	}

	return nil
}

// streamName synthesizes the per-stream item name suffix per spec.md's
// rule: unnamed $DATA and the directory's $I30 index collapse to the bare
// filename; every other named stream gets "<file>:<stream>:<type-name>".
func streamName(isDir bool, typ uint32, name string, isIndex bool) string {
	if !isIndex && typ == attrData && name == "" {
		return ""
	}
	if isIndex && name == "$I30" {
		return ""
	}
	typeName := "DATA"
	if isIndex {
		typeName = "INDEX_ALLOCATION"
	}
	return fmt.Sprintf(":%s:%s", name, typeName)
}

func appendBuilderStream(b *ntfsItemBuilder, key string, runs []run, startVCN VCN) {
	existing := b.streams[key]
	next, err := appendStream(existing, runs, startVCN)
	if err != nil {
		// Per spec.md: a stream-continuity violation makes the MFT entry
		// corrupt; drop this stream's fragments gathered so far rather than
		// propagate a false fragment list.
		delete(b.streams, key)
		return
	}
	b.streams[key] = next
}

func applyFileName(b *ntfsItemBuilder, fn fileNameAttribute) {
	b.item.ParentInode = fn.ParentInode
	if b.item.CreationTime == 0 {
		b.item.CreationTime = fn.CreationTime
	}

	isLong := fn.NameType != 2 // not DOS-only
	isShort := fn.NameType == 2 || fn.NameType == 3

	if isLong {
		b.item.LongFilename = fn.Name
	}
	if isShort {
		b.item.SetShortFilename(fn.Name)
	}
	if b.item.Bytes == 0 {
		b.item.Bytes = fn.RealSize
	}
}

func finalizeItem(b *ntfsItemBuilder, inode uint64, byInode map[uint64]*Item, index *ItemIndex) {
	if !b.haveFileName {
		return
	}

	defaultStream := b.streams[""]
	b.item.Fragments = defaultStream
	b.item.Clusters = defaultStream.RealClusterCount()

	if existing, ok := byInode[inode]; ok {
		if existing.LongFilename <= b.item.LongFilename {
			return
		}
		index.Detach(existing)
	}
	byInode[inode] = b.item
	index.Insert(b.item)

	for key, fl := range b.streams {
		if key == "" {
			continue
		}
		streamItem := &Item{
			LongFilename: b.item.LongFilename + key,
			ParentInode:  b.item.ParentInode,
			Fragments:    fl,
			Clusters:     fl.RealClusterCount(),
		}
		index.Insert(streamItem)
	}
}

// resolveParents links each item's ParentDirectory pointer now that every
// inode has been scanned.
func resolveParents(byInode map[uint64]*Item) {
	for _, it := range byInode {
		if parent, ok := byInode[it.ParentInode]; ok && parent != it {
			it.ParentDirectory = parent
		}
	}
}

// readRunsData reads the raw bytes covered by a non-resident attribute's
// runlist, used for an out-of-line $ATTRIBUTE_LIST.
func readRunsData(access VolumeAccessor, boot ntfsBootSector, fl FragmentList) ([]byte, error) {
	var out []byte
	var prevVCN VCN
	for _, f := range fl {
		length := ClusterCount(f.NextVCN - prevVCN)
		prevVCN = f.NextVCN
		if f.IsVirtual() {
			out = append(out, make([]byte, uint64(length)*uint64(boot.BytesPerCluster()))...)
			continue
		}
		chunk, err := access.ReadSectors(uint64(f.LCN)*uint64(boot.BytesPerCluster()), uint64(length)*uint64(boot.BytesPerCluster()))
		if err != nil {
			return nil, log.Wrap(err)
		}
		out = append(out, chunk...)
	}
	return out, nil
}
