package defrag

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itemAt(lcn LCN) *Item {
	return &Item{
		LongFilename: "x",
		Fragments:    FragmentList{{LCN: lcn, NextVCN: 1}},
	}
}

func inOrderLCNs(ix *ItemIndex) []LCN {
	var out []LCN
	for node := ix.Smallest(nil); node != nil; node = ix.Next(node) {
		out = append(out, node.ItemLCN())
	}
	return out
}

func TestItemIndex_InsertOrdersByLCN(t *testing.T) {
	ix := NewItemIndex()
	lcns := []LCN{50, 10, 70, 20, 5, 60}
	for _, l := range lcns {
		ix.Insert(itemAt(l))
	}

	got := inOrderLCNs(ix)
	require.Equal(t, []LCN{5, 10, 20, 50, 60, 70}, got)
}

func TestItemIndex_NextPrevSymmetry(t *testing.T) {
	ix := NewItemIndex()
	for _, l := range []LCN{3, 1, 4, 1_000, 9, 2, 6} {
		ix.Insert(itemAt(l))
	}

	biggest := ix.Biggest(nil)
	var reversed []LCN
	for node := biggest; node != nil; node = ix.Prev(node) {
		reversed = append(reversed, node.ItemLCN())
	}

	forward := inOrderLCNs(ix)
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	assert.Equal(t, forward, reversed)
}

func TestItemIndex_DetachPreservesOrder(t *testing.T) {
	ix := NewItemIndex()
	items := make(map[LCN]*Item)
	for _, l := range []LCN{15, 4, 42, 8, 23, 16, 1, 99, 50} {
		it := itemAt(l)
		items[l] = it
		ix.Insert(it)
	}

	ix.Detach(items[42])
	ix.Detach(items[1])

	got := inOrderLCNs(ix)
	require.Equal(t, []LCN{4, 8, 15, 16, 23, 50, 99}, got)
}

func TestItemIndex_RebalancePreservesSet(t *testing.T) {
	ix := NewItemIndex()

	r := rand.New(rand.NewSource(1))
	lcns := make(map[LCN]bool)
	for i := 0; i < rebalanceThreshold+50; i++ {
		l := LCN(r.Intn(1_000_000))
		if lcns[l] {
			continue
		}
		lcns[l] = true
		ix.Insert(itemAt(l))
	}

	got := inOrderLCNs(ix)
	require.Len(t, got, len(lcns))
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1], got[i])
	}
	for _, l := range got {
		assert.True(t, lcns[l])
	}
}

func TestItemIndex_ReinsertAfterMove(t *testing.T) {
	ix := NewItemIndex()
	it := itemAt(100)
	ix.Insert(it)
	ix.Insert(itemAt(10))
	ix.Insert(itemAt(200))

	it.Fragments = FragmentList{{LCN: 5, NextVCN: 1}}
	ix.Reinsert(it)

	require.Equal(t, []LCN{5, 10, 200}, inOrderLCNs(ix))
}
