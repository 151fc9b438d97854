package defrag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeVolume is a minimal in-memory VolumeAccessor sufficient to drive
// MoveEngine tests without touching any real OS.
type fakeVolume struct {
	bitmap         *memBitmap
	extentsByItem  map[*Item]FragmentList
	failMoves      bool
	partialFirst   bool
	movedOnce      bool
}

func (fv *fakeVolume) ReadBitmapWindow(start LCN) (LCN, []byte, error) {
	return fv.bitmap.ReadBitmapWindow(start)
}

func (fv *fakeVolume) GetFileExtents(handle FileHandle, startVCN VCN) ([]FragmentInfo, bool, error) {
	item := handle.(*Item)
	fl := fv.extentsByItem[item]
	var out []FragmentInfo
	for _, f := range fl {
		out = append(out, FragmentInfo{NextVCN: f.NextVCN, LCN: f.LCN})
	}
	return out, false, nil
}

func (fv *fakeVolume) MoveFile(handle FileHandle, sourceVCN VCN, destinationLCN LCN, count ClusterCount) error {
	if fv.failMoves {
		return ErrMoveFailed
	}
	item := handle.(*Item)

	if fv.partialFirst && !fv.movedOnce {
		fv.movedOnce = true
		// Simulate the OS only moving half the requested range, leaving
		// the stream fragmented across old+new locations.
		fv.extentsByItem[item] = FragmentList{
			{LCN: destinationLCN, NextVCN: VCN(count / 2)},
			{LCN: 9000, NextVCN: VCN(count)},
		}
		return nil
	}

	fv.extentsByItem[item] = FragmentList{{LCN: destinationLCN, NextVCN: VCN(count)}}
	return nil
}

func (fv *fakeVolume) NTFSVolumeData() (NTFSVolumeData, error) { return NTFSVolumeData{}, nil }
func (fv *fakeVolume) ReadSectors(offset, length uint64) ([]byte, error) { return make([]byte, length), nil }
func (fv *fakeVolume) OpenItem(item *Item) (FileHandle, error)           { return item, nil }
func (fv *fakeVolume) CloseHandle(FileHandle) error                      { return nil }
func (fv *fakeVolume) TotalClusters() LCN                                { return 100000 }

func TestMoveEngine_WholeSucceeds(t *testing.T) {
	item := &Item{Fragments: FragmentList{{LCN: 500, NextVCN: 10}}}
	fv := &fakeVolume{extentsByItem: map[*Item]FragmentList{item: item.Fragments}}

	ix := NewItemIndex()
	ix.Insert(item)

	me := &MoveEngine{Volume: fv, Throttle: NewThrottle(100), Index: ix}
	err := me.MoveWithFallback(item, 2000, DirectionUp)
	require.NoError(t, err)
	require.Equal(t, LCN(2000), item.ItemLCN())
	require.False(t, item.IsUnmovable)
}

func TestMoveEngine_FallsBackToInFragmentsOnPartialMove(t *testing.T) {
	item := &Item{Fragments: FragmentList{{LCN: 500, NextVCN: 10}}}
	fv := &fakeVolume{extentsByItem: map[*Item]FragmentList{item: item.Fragments}, partialFirst: true}

	ix := NewItemIndex()
	ix.Insert(item)

	me := &MoveEngine{Volume: fv, Throttle: NewThrottle(100), Index: ix}
	err := me.MoveWithFallback(item, 2000, DirectionUp)
	require.NoError(t, err)
	require.False(t, item.IsUnmovable)
}

func TestMoveEngine_FailureMarksUnmovableAndRecomputesZones(t *testing.T) {
	item := &Item{Fragments: FragmentList{{LCN: 500, NextVCN: 10}}}
	fv := &fakeVolume{extentsByItem: map[*Item]FragmentList{item: item.Fragments}, failMoves: true}

	ix := NewItemIndex()
	ix.Insert(item)
	zt := ZoneTable{}

	me := &MoveEngine{Volume: fv, Throttle: NewThrottle(100), Index: ix, Zones: &zt, TotalClusters: 100000}
	err := me.MoveWithFallback(item, 2000, DirectionUp)
	require.Error(t, err)
	require.True(t, item.IsUnmovable)
}

func TestMoveEngine_DirectoryShortCircuitsAfterThreshold(t *testing.T) {
	item := &Item{IsDirectory: true, Fragments: FragmentList{{LCN: 500, NextVCN: 10}}}
	fv := &fakeVolume{extentsByItem: map[*Item]FragmentList{item: item.Fragments}, failMoves: true}

	ix := NewItemIndex()
	ix.Insert(item)

	me := &MoveEngine{Volume: fv, Throttle: NewThrottle(100), Index: ix, DirFailureThreshold: 1}

	_ = me.MoveWithFallback(item, 2000, DirectionUp)
	err := me.MoveWithFallback(item, 3000, DirectionUp)
	require.Error(t, err)
}
