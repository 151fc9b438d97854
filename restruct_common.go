package defrag

import "encoding/binary"

// defaultEncoding is the byte order used for every restruct.Unpack call in
// this package. NTFS, FAT12/16/32, and the MFT's own structures are all
// little-endian on-disk.
//
// ground: dsoprea-go-exfat's own restruct.Unpack(raw, defaultEncoding, x)
// call sites in structures.go/navigator_entry_types.go — exFAT is
// similarly little-endian, and the teacher's own package declares this
// constant for exactly that reason.
var defaultEncoding = binary.LittleEndian
