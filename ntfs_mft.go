package defrag

import (
	"github.com/dsoprea/go-logging"
)

// ntfsVolume bundles everything the MFT sweep needs once bootstrapped: the
// boot sector, $MFT's own fragment list, and the MFT bitmap.
type ntfsVolume struct {
	boot       ntfsBootSector
	mftRuns    FragmentList
	mftBitmap  []byte
	recordSize uint32
}

// maxAttributeListRecursionDepth defends against malformed attribute-list
// cycles; the spec requires at least 1000.
const maxAttributeListRecursionDepth = 1000

// readMFTRecord reads logical MFT record n by walking mftRuns (so a
// fragmented $MFT is handled transparently), then applies the USA fixup.
func readMFTRecord(vol *ntfsVolume, access VolumeAccessor, n uint64) ([]byte, error) {
	recordsPerCluster := uint64(vol.boot.BytesPerCluster()) / uint64(vol.recordSize)
	if recordsPerCluster == 0 {
		recordsPerCluster = 1
	}
	targetVCN := VCN(n / recordsPerCluster)
	withinClusterOffset := (n % recordsPerCluster) * uint64(vol.recordSize)

	lcn, ok := lcnForVCN(vol.mftRuns, targetVCN)
	if !ok {
		return nil, log.Errorf("mft record %d: vcn %d not covered by $MFT runlist", n, targetVCN)
	}

	offset := uint64(lcn)*uint64(vol.boot.BytesPerCluster()) + withinClusterOffset
	raw, err := access.ReadSectors(offset, uint64(vol.recordSize))
	if err != nil {
		return nil, log.Wrap(err)
	}

	hdr, err := parseMFTRecordHeader(raw)
	if err != nil {
		return nil, log.Wrap(err)
	}

	if err := applyFixup(raw, int(hdr.UpdateSeqOffset), int(hdr.UpdateSeqCount), 512); err != nil {
		return nil, log.Wrap(err)
	}

	return raw, nil
}

// lcnForVCN resolves the LCN that contains vcn within fl, or false if vcn
// lies beyond the stream (or inside a sparse run).
func lcnForVCN(fl FragmentList, vcn VCN) (LCN, bool) {
	var previousVCN VCN
	for _, f := range fl {
		if vcn < f.NextVCN {
			if f.IsVirtual() {
				return 0, false
			}
			return f.LCN + LCN(vcn-previousVCN), true
		}
		previousVCN = f.NextVCN
	}
	return 0, false
}

// bootstrapNTFS reads the boot sector and the first ($MFT) MFT record to
// obtain $MFT's own runlist and that of $MFT::$BITMAP.
//
// ground: spec.md §4.1 "MFT record bootstrap"
func bootstrapNTFS(access VolumeAccessor) (*ntfsVolume, error) {
	raw, err := access.ReadSectors(0, bootSectorSize)
	if err != nil {
		return nil, log.Wrap(err)
	}

	boot, err := parseNTFSBootSector(raw)
	if err != nil {
		return nil, log.Wrap(err)
	}

	recordSize := boot.MFTRecordSize()

	mftRecord0Offset := uint64(boot.MFTLCN) * uint64(boot.BytesPerCluster())
	record0, err := access.ReadSectors(mftRecord0Offset, uint64(recordSize))
	if err != nil {
		return nil, log.Wrap(err)
	}

	hdr, err := parseMFTRecordHeader(record0)
	if err != nil {
		return nil, log.Wrap(err)
	}
	if err := applyFixup(record0, int(hdr.UpdateSeqOffset), int(hdr.UpdateSeqCount), 512); err != nil {
		return nil, log.Wrap(err)
	}

	vol := &ntfsVolume{boot: boot, recordSize: recordSize}

	var dataRuns, bitmapRuns []run
	var dataStartVCN, bitmapStartVCN VCN

	const attrBitmap uint32 = 0xB0

	err = walkAttributes(record0, uint32(hdr.AttrsOffset), hdr.BytesInUse, nil, func(pa parsedAttribute) error {
		switch {
		case pa.typ == attrData && pa.name == "" && pa.nonResident:
			dataRuns = pa.runs
			dataStartVCN = pa.startVCN
		case pa.typ == attrBitmap && pa.nonResident:
			bitmapRuns = pa.runs
			bitmapStartVCN = pa.startVCN
		}
		return nil
	})
	if err != nil {
		return nil, log.Wrap(err)
	}
	if dataRuns == nil || bitmapRuns == nil {
		return nil, log.Errorf("$MFT record 0 missing $DATA or $BITMAP runlist")
	}

	vol.mftRuns = runsToFragments(dataRuns, dataStartVCN)
	bitmapFragments := runsToFragments(bitmapRuns, bitmapStartVCN)

	bitmapSize := bitmapFragments.ClusterCount() * ClusterCount(boot.BytesPerCluster())
	bitmap := make([]byte, 0, bitmapSize)
	var prevVCN VCN
	for _, f := range bitmapFragments {
		length := ClusterCount(f.NextVCN - prevVCN)
		prevVCN = f.NextVCN
		if f.IsVirtual() {
			bitmap = append(bitmap, make([]byte, length*ClusterCount(boot.BytesPerCluster()))...)
			continue
		}
		chunk, err := access.ReadSectors(uint64(f.LCN)*uint64(boot.BytesPerCluster()), uint64(length)*uint64(boot.BytesPerCluster()))
		if err != nil {
			return nil, log.Wrap(err)
		}
		bitmap = append(bitmap, chunk...)
	}
	vol.mftBitmap = bitmap

	return vol, nil
}

// mftBitmapBits returns how many inode slots the MFT bitmap describes.
func (vol *ntfsVolume) mftBitmapBits() uint64 {
	return uint64(len(vol.mftBitmap)) * 8
}

func (vol *ntfsVolume) inodeInUse(n uint64) bool {
	byteIndex := n / 8
	if byteIndex >= uint64(len(vol.mftBitmap)) {
		return false
	}
	return vol.mftBitmap[byteIndex]&(1<<(n%8)) != 0
}
