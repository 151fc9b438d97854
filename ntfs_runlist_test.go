package defrag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeRuns_SimpleRun(t *testing.T) {
	// Header 0x21: length field 1 byte, offset field 2 bytes.
	// length=16 (0x10), offset=+1000 (0x03E8).
	data := []byte{0x21, 0x10, 0xE8, 0x03, 0x00}

	runs, err := decodeRuns(data)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, ClusterCount(16), runs[0].length)
	require.Equal(t, LCN(1000), runs[0].lcn)
	require.False(t, runs[0].sparse)
}

func TestDecodeRuns_NegativeOffsetContinuation(t *testing.T) {
	// First run: header 0x21 (len 1 byte, offset 2 bytes): length 16,
	// offset +1000. Second run: header 0x11 (len 1 byte, offset 1 byte):
	// length 8, offset -12 -> lcn = 1000-12 = 988.
	data := []byte{
		0x21, 0x10, 0xE8, 0x03,
		0x11, 0x08, 0xF4,
		0x00,
	}

	runs, err := decodeRuns(data)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, LCN(1000), runs[0].lcn)
	require.Equal(t, LCN(988), runs[1].lcn)
}

func TestDecodeRuns_Sparse(t *testing.T) {
	// Header 0x01: length field 1 byte, offset field 0 bytes -> sparse.
	data := []byte{0x01, 0x05, 0x00}

	runs, err := decodeRuns(data)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.True(t, runs[0].sparse)
	require.Equal(t, ClusterCount(5), runs[0].length)
}

func TestDecodeRuns_OverrunIsError(t *testing.T) {
	data := []byte{0x21, 0x10}
	_, err := decodeRuns(data)
	require.Error(t, err)
}

func TestRunsToFragments_AccumulatesVCN(t *testing.T) {
	runs := []run{
		{length: 10, lcn: 100},
		{length: 5, lcn: 0, sparse: true},
		{length: 20, lcn: 200},
	}

	fl := runsToFragments(runs, 0)
	require.Equal(t, FragmentList{
		{LCN: 100, NextVCN: 10},
		{LCN: VirtualFragmentLCN, NextVCN: 15},
		{LCN: 200, NextVCN: 35},
	}, fl)
	require.Equal(t, ClusterCount(35), fl.ClusterCount())
	require.Equal(t, ClusterCount(30), fl.RealClusterCount())
}

func TestAppendStream_DetectsDiscontinuity(t *testing.T) {
	existing := FragmentList{{LCN: 100, NextVCN: 10}}
	runs := []run{{length: 5, lcn: 500}}

	_, err := appendStream(existing, runs, 11) // should be 10
	require.Error(t, err)

	out, err := appendStream(existing, runs, 10)
	require.NoError(t, err)
	require.Len(t, out, 2)
}
