package defrag

import "github.com/dsoprea/go-logging"

// run is one decoded element of an NTFS data-run list, before it has been
// turned into a stream-relative Fragment (it still carries a run length
// rather than an absolute NextVCN).
type run struct {
	length ClusterCount
	lcn    LCN
	sparse bool
}

// decodeRuns decodes an NTFS non-resident attribute's compact runlist. It
// is a pure function of the raw bytes, as the design calls for: no I/O, no
// shared state, trivially testable in isolation.
//
// Each element begins with a header byte whose low nibble is the
// length-field byte count and whose high nibble is the offset-field byte
// count; a zero header byte ends the list. The length field is unsigned
// little-endian; the offset field is signed little-endian (sign-extended
// when its top bit is set), and a run whose offset field is zero bytes long
// is sparse (virtual).
//
// ground: other_examples/fd0106ac_lvdlvd-rawhide__fsys-ntfs-ntfs.go.go
// (parseDataRuns), generalized into a standalone function per spec.md's
// Design Notes.
func decodeRuns(data []byte) ([]run, error) {
	var runs []run
	var lcn LCN

	pos := 0
	for pos < len(data) {
		header := data[pos]
		if header == 0 {
			break
		}
		pos++

		lengthSize := int(header & 0x0F)
		offsetSize := int(header >> 4)

		if pos+lengthSize+offsetSize > len(data) {
			return nil, log.Errorf("runlist element overruns buffer at offset %d", pos)
		}

		length := decodeUnsigned(data[pos : pos+lengthSize])
		pos += lengthSize

		sparse := offsetSize == 0
		if !sparse {
			offset := decodeSigned(data[pos : pos+offsetSize])
			pos += offsetSize
			lcn += LCN(offset)
		}

		runs = append(runs, run{
			length: ClusterCount(length),
			lcn:    lcn,
			sparse: sparse,
		})
	}

	return runs, nil
}

func decodeUnsigned(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func decodeSigned(b []byte) int64 {
	v := decodeUnsigned(b)
	if len(b) > 0 && b[len(b)-1]&0x80 != 0 {
		for i := len(b); i < 8; i++ {
			v |= uint64(0xFF) << (8 * i)
		}
	}
	return int64(v)
}

// runsToFragments converts decoded runs, whose VCN origin is startVCN, into
// Fragments with absolute NextVCN values.
func runsToFragments(runs []run, startVCN VCN) FragmentList {
	fl := make(FragmentList, 0, len(runs))
	vcn := startVCN
	for _, r := range runs {
		vcn += VCN(r.length)
		if r.sparse {
			fl = append(fl, Fragment{LCN: VirtualFragmentLCN, NextVCN: vcn})
		} else {
			fl = append(fl, Fragment{LCN: r.lcn, NextVCN: vcn})
		}
	}
	return fl
}

// appendStream appends an attribute instance's runs to an existing stream.
// declaredStartVCN is the starting VCN the non-resident attribute header
// itself claims; it must equal the existing stream's current end VCN
// (zero, for an empty stream) or the MFT is corrupt and the item must be
// skipped.
//
// ground: spec.md §4.1 "Stream assembly"
func appendStream(existing FragmentList, runs []run, declaredStartVCN VCN) (FragmentList, error) {
	var expected VCN
	if len(existing) > 0 {
		expected = existing[len(existing)-1].NextVCN
	}
	if declaredStartVCN != expected {
		return nil, log.Wrap(ErrStreamDiscontinuity)
	}

	newFragments := runsToFragments(runs, declaredStartVCN)

	out := make(FragmentList, 0, len(existing)+len(newFragments))
	out = append(out, existing...)
	out = append(out, newFragments...)
	return out, nil
}

// ErrStreamDiscontinuity indicates an extension record's runlist does not
// continue where the previous instance left off.
var ErrStreamDiscontinuity = runDiscontinuityError{}

type runDiscontinuityError struct{}

func (runDiscontinuityError) Error() string { return "ntfs stream discontinuity" }
