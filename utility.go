package defrag

import "unicode/utf16"

// utf16LEToString decodes unicodeCharCount little-endian UTF-16 code units
// from raw, skipping embedded NULs the way padded fixed-width on-disk
// fields (FAT LFN components, NTFS $FILE_NAME, NTFS $VOLUME_NAME) often
// carry past the logical end of the string.
//
// ground: dsoprea-go-exfat/utility.go (UnicodeFromAscii) — same shape, used
// here for NTFS filename/attribute-list-name decode and FAT long-filename
// component decode instead of exFAT's VolumeLabel.
func utf16LEToString(raw []byte, unicodeCharCount int) string {
	decoded := make([]rune, 0, unicodeCharCount)
	for i := 0; i < unicodeCharCount; i++ {
		lo := uint16(raw[i*2])
		hi := uint16(raw[i*2+1])

		units := []uint16{hi<<8 | lo}
		runes := utf16.Decode(units)

		if runes[0] == 0 {
			continue
		}

		decoded = append(decoded, runes...)
	}

	return string(decoded)
}
