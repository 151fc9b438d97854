package defrag

import "github.com/dsoprea/go-logging"

// bitmapWindowClusters is the number of clusters covered by one bitmap
// query: 64 KiB of bits.
const bitmapWindowClusters = 64 * 1024 * 8

// BitmapReader is the external collaborator that answers volume-bitmap
// queries. Implementations read from the live host filesystem; the bitmap
// is never cached by godefrag itself so that every query reflects moves
// made since the previous one.
type BitmapReader interface {
	// ReadBitmapWindow returns up to bitmapWindowClusters worth of bits
	// for a window that starts at or before startLCN and covers it.
	// bits[i] has bit (i%8) set (LSB first)
	// when the corresponding cluster is in use. The returned start LCN may
	// differ from the request (implementations round down to a convenient
	// boundary); callers use it to align bit indices.
	ReadBitmapWindow(startLCN LCN) (returnedStart LCN, bits []byte, err error)
}

// bitAt reports whether the bit for lcn (relative to windowStart) is set in
// bits.
func bitAt(bits []byte, windowStart, lcn LCN) bool {
	offset := uint64(lcn - windowStart)
	byteIndex := offset / 8
	if byteIndex >= uint64(len(bits)) {
		log.Panicf("lcn %d out of range of bitmap window starting at %d", lcn, windowStart)
	}
	return bits[byteIndex]&(1<<(offset%8)) != 0
}
