package defrag

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildFAT16BootSector(totalSectors uint16, reservedSectors uint16, numFATs uint8, fatSize uint16, rootEntries uint16, sectorsPerCluster uint8) []byte {
	raw := make([]byte, 512)
	raw[0] = 0xEB
	raw[1] = 0x3C
	raw[2] = 0x90
	binary.LittleEndian.PutUint16(raw[11:13], 512)
	raw[13] = sectorsPerCluster
	binary.LittleEndian.PutUint16(raw[14:16], reservedSectors)
	raw[16] = numFATs
	binary.LittleEndian.PutUint16(raw[17:19], rootEntries)
	binary.LittleEndian.PutUint16(raw[19:21], totalSectors)
	binary.LittleEndian.PutUint16(raw[22:24], fatSize)
	raw[510] = 0x55
	raw[511] = 0xAA
	return raw
}

func TestParseFATBootSector_RejectsBadSignature(t *testing.T) {
	raw := buildFAT16BootSector(20000, 1, 2, 32, 512, 4)
	raw[511] = 0x00
	_, err := parseFATBootSector(raw)
	require.Error(t, err)
}

func TestFATBootSector_VariantClassification(t *testing.T) {
	// Small volume: well under the FAT12 cluster threshold.
	raw := buildFAT16BootSector(2000, 1, 2, 9, 512, 1)
	bs, err := parseFATBootSector(raw)
	require.NoError(t, err)
	require.Equal(t, FAT12, bs.Variant())
}

func TestFATBootSector_RootDirSectors(t *testing.T) {
	raw := buildFAT16BootSector(20000, 1, 2, 32, 512, 4)
	bs, err := parseFATBootSector(raw)
	require.NoError(t, err)
	// 512 entries * 32 bytes / 512 bytes-per-sector = 32 sectors.
	require.Equal(t, uint32(32), bs.rootDirSectors())
}

type fatMemAccess struct {
	sectors []byte
}

func (a *fatMemAccess) ReadBitmapWindow(LCN) (LCN, []byte, error) { return 0, nil, nil }
func (a *fatMemAccess) GetFileExtents(FileHandle, VCN) ([]FragmentInfo, bool, error) {
	return nil, false, nil
}
func (a *fatMemAccess) MoveFile(FileHandle, VCN, LCN, ClusterCount) error { return nil }
func (a *fatMemAccess) NTFSVolumeData() (NTFSVolumeData, error)           { return NTFSVolumeData{}, nil }
func (a *fatMemAccess) ReadSectors(offset, length uint64) ([]byte, error) {
	end := offset + length
	if end > uint64(len(a.sectors)) {
		end = uint64(len(a.sectors))
	}
	return a.sectors[offset:end], nil
}
func (a *fatMemAccess) OpenItem(*Item) (FileHandle, error) { return nil, nil }
func (a *fatMemAccess) CloseHandle(FileHandle) error       { return nil }
func (a *fatMemAccess) TotalClusters() LCN                 { return 20000 }

func TestLoadFATTable_AndWalkChain_FAT16(t *testing.T) {
	bs := fatBootSector{BytesPerSector: 512, SectorsPerCluster: 1, ReservedSectors: 1, NumFATs: 1, FATSize16: 1, TotalSectors16: 20000}

	fat := make([]byte, 512)
	// Chain: 2 -> 3 -> 4 -> EOC, then a disjoint cluster 10 -> EOC.
	binary.LittleEndian.PutUint16(fat[2*2:2*2+2], 3)
	binary.LittleEndian.PutUint16(fat[3*2:3*2+2], 4)
	binary.LittleEndian.PutUint16(fat[4*2:4*2+2], 0xFFFF)
	binary.LittleEndian.PutUint16(fat[10*2:10*2+2], 0xFFFF)

	// The FAT follows one reserved sector.
	access := &fatMemAccess{sectors: append(make([]byte, 512), fat...)}
	ft, err := loadFATTable(access, bs)
	require.NoError(t, err)
	require.Equal(t, FAT16, ft.variant)

	fl, err := walkChain(ft, 2, 20000)
	require.NoError(t, err)
	require.Equal(t, ClusterCount(3), fl.RealClusterCount())
	require.Equal(t, 1, fl.FragmentCount())
	require.Equal(t, LCN(2), fl[0].LCN)

	fl2, err := walkChain(ft, 10, 20000)
	require.NoError(t, err)
	require.Equal(t, ClusterCount(1), fl2.RealClusterCount())
}

func TestWalkChain_DetectsLoop(t *testing.T) {
	bs := fatBootSector{BytesPerSector: 512, SectorsPerCluster: 1, ReservedSectors: 1, NumFATs: 1, FATSize16: 1, TotalSectors16: 20000}
	fat := make([]byte, 512)
	binary.LittleEndian.PutUint16(fat[2*2:2*2+2], 3)
	binary.LittleEndian.PutUint16(fat[3*2:3*2+2], 2) // cycle back to 2

	// The FAT follows one reserved sector.
	access := &fatMemAccess{sectors: append(make([]byte, 512), fat...)}
	ft, err := loadFATTable(access, bs)
	require.NoError(t, err)

	_, err = walkChain(ft, 2, 5)
	require.Error(t, err)
}

func TestShortNameChecksum_Deterministic(t *testing.T) {
	var name [11]byte
	copy(name[:], "README  TXT")
	c1 := shortNameChecksum(name)

	var other [11]byte
	copy(other[:], "README  TXT")
	c2 := shortNameChecksum(other)

	require.Equal(t, c1, c2)
}

func TestParseShortName(t *testing.T) {
	var raw [11]byte
	copy(raw[:], "FOO     BAR")
	require.Equal(t, "FOO.BAR", parseShortName(raw))

	var noExt [11]byte
	copy(noExt[:], "FOO        ")
	require.Equal(t, "FOO", parseShortName(noExt))
}

func TestDosDateTimeToFileTime_Monotonic(t *testing.T) {
	// DOS date: 2020-01-01, encoded as (year-1980)<<9 | month<<5 | day.
	date1980 := uint16((2020-1980)<<9 | 1<<5 | 1)
	date2021 := uint16((2021-1980)<<9 | 1<<5 | 1)

	t1 := dosDateTimeToFileTime(date1980, 0, 0)
	t2 := dosDateTimeToFileTime(date2021, 0, 0)

	require.Less(t, uint64(t1), uint64(t2))
}
