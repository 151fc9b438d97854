package defrag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatch_Literal(t *testing.T) {
	require.True(t, Match("readme.txt", "readme.txt"))
	require.False(t, Match("readme.txt", "readme.md"))
}

func TestMatch_CaseInsensitive(t *testing.T) {
	require.True(t, Match("README.TXT", "readme.txt"))
}

func TestMatch_QuestionMark(t *testing.T) {
	require.True(t, Match("cat", "c?t"))
	require.False(t, Match("ct", "c?t"))
}

func TestMatch_Star(t *testing.T) {
	require.True(t, Match("anything.tmp", "*.tmp"))
	require.True(t, Match(".tmp", "*.tmp"))
	require.False(t, Match("file.tmpx", "*.tmp"))
	require.True(t, Match("a/b/c", "*"))
}

func TestMatch_StarInMiddle(t *testing.T) {
	require.True(t, Match("hiberfil.sys", "hiber*.sys"))
	require.False(t, Match("hiberfil.syss", "hiber*.sys"))
}

func TestMatchAny(t *testing.T) {
	require.True(t, MatchAny("pagefile.sys", []string{"*.tmp", "page*.sys"}))
	require.False(t, MatchAny("readme.md", []string{"*.tmp", "page*.sys"}))
}
