package defrag

// ItemIndex is a binary tree of Items ordered by LCN (ItemLCN()). It is not
// kept height-balanced on every insert; instead it tracks insert count and
// periodically rebalances in one amortized pass (vine-and-compress, the
// Day-Stout-Warren algorithm), which is considerably cheaper than an
// AVL/red-black tree for a structure that is built once per volume pass and
// then mutated only by relocations.
//
// ground: original_source/jkdefrag_evo/include/tree.h (Tree::insert/detach/
// next/prev, vine conversion and compression-by-halving)
type ItemIndex struct {
	root         *Item
	balanceCount int
}

// rebalanceThreshold is the number of inserts between automatic rebalance
// passes.
const rebalanceThreshold = 1000

// NewItemIndex returns an empty index.
func NewItemIndex() *ItemIndex {
	return &ItemIndex{}
}

// Root returns the tree's root item, or nil if the index is empty.
func (ix *ItemIndex) Root() *Item {
	return ix.root
}

// Insert adds item to the index, keyed by item.ItemLCN(), and rebalances
// the tree every rebalanceThreshold inserts.
func (ix *ItemIndex) Insert(item *Item) {
	item.parent, item.smaller, item.bigger = nil, nil, nil

	key := item.ItemLCN()

	if ix.root == nil {
		ix.root = item
	} else {
		node := ix.root
		for {
			if key < node.ItemLCN() {
				if node.smaller == nil {
					node.smaller = item
					item.parent = node
					break
				}
				node = node.smaller
			} else {
				if node.bigger == nil {
					node.bigger = item
					item.parent = node
					break
				}
				node = node.bigger
			}
		}
	}

	ix.balanceCount++
	if ix.balanceCount >= rebalanceThreshold {
		ix.rebalance()
		ix.balanceCount = 0
	}
}

// Reinsert detaches item (if present) and re-inserts it, used after a
// relocation changes its LCN.
func (ix *ItemIndex) Reinsert(item *Item) {
	ix.Detach(item)
	ix.Insert(item)
}

// Smallest returns the item with the lowest LCN under node, or the whole
// tree's smallest item if node is nil.
func (ix *ItemIndex) Smallest(node *Item) *Item {
	if node == nil {
		node = ix.root
	}
	if node == nil {
		return nil
	}
	for node.smaller != nil {
		node = node.smaller
	}
	return node
}

// Biggest returns the item with the highest LCN under node, or the whole
// tree's biggest item if node is nil.
func (ix *ItemIndex) Biggest(node *Item) *Item {
	if node == nil {
		node = ix.root
	}
	if node == nil {
		return nil
	}
	for node.bigger != nil {
		node = node.bigger
	}
	return node
}

// Next returns the item with the next-higher LCN after item, or nil if
// item is the biggest in the index.
func (ix *ItemIndex) Next(item *Item) *Item {
	if item == nil {
		return nil
	}
	if item.bigger != nil {
		return ix.Smallest(item.bigger)
	}
	node, parent := item, item.parent
	for parent != nil && node == parent.bigger {
		node, parent = parent, parent.parent
	}
	return parent
}

// Prev returns the item with the next-lower LCN before item, or nil if
// item is the smallest in the index.
func (ix *ItemIndex) Prev(item *Item) *Item {
	if item == nil {
		return nil
	}
	if item.smaller != nil {
		return ix.Biggest(item.smaller)
	}
	node, parent := item, item.parent
	for parent != nil && node == parent.smaller {
		node, parent = parent, parent.parent
	}
	return parent
}

// Detach removes item from the index. It implements the standard 3-case
// BST deletion: a node with no bigger child is replaced by its smaller
// child; a node whose bigger child has no smaller child is replaced
// directly by that bigger child; otherwise the node is replaced by its
// in-order successor (the smallest item of its bigger subtree).
//
// ground: Tree::detach in tree.h
func (ix *ItemIndex) Detach(item *Item) {
	if item == nil {
		return
	}

	replaceChild := func(parent, oldChild, newChild *Item) {
		if parent == nil {
			ix.root = newChild
		} else if parent.smaller == oldChild {
			parent.smaller = newChild
		} else {
			parent.bigger = newChild
		}
		if newChild != nil {
			newChild.parent = parent
		}
	}

	switch {
	case item.bigger == nil:
		replaceChild(item.parent, item, item.smaller)

	case item.bigger.smaller == nil:
		item.bigger.smaller = item.smaller
		if item.smaller != nil {
			item.smaller.parent = item.bigger
		}
		replaceChild(item.parent, item, item.bigger)

	default:
		successor := ix.Smallest(item.bigger)
		replaceChild(successor.parent, successor, successor.bigger)

		successor.smaller = item.smaller
		if successor.smaller != nil {
			successor.smaller.parent = successor
		}
		successor.bigger = item.bigger
		if successor.bigger != nil {
			successor.bigger.parent = successor
		}
		replaceChild(item.parent, item, successor)
	}

	item.parent, item.smaller, item.bigger = nil, nil, nil
}

// rebalance runs the vine-and-compress (Day-Stout-Warren) algorithm: the
// tree is first degenerated into a sorted right-leaning "vine" via
// right-rotations, then repeatedly compressed by halving via left-rotations
// until it is a complete, balanced binary tree.
func (ix *ItemIndex) rebalance() {
	pseudoRoot := &Item{bigger: ix.root}
	if ix.root != nil {
		ix.root.parent = pseudoRoot
	}

	size := treeToVine(pseudoRoot)

	leaves := size + 1 - greatestPowerOfTwoLE(size+1)
	compress(pseudoRoot, leaves)
	size -= leaves
	for size > 1 {
		size /= 2
		compress(pseudoRoot, size)
	}

	ix.root = pseudoRoot.bigger
	if ix.root != nil {
		ix.root.parent = nil
	}
}

// treeToVine degenerates the tree rooted at pseudoRoot.bigger into a
// right-only linked list ordered by key, via repeated right-rotation at
// nodes that still have a smaller child. Returns the node count.
func treeToVine(pseudoRoot *Item) int {
	tail := pseudoRoot
	rest := tail.bigger
	count := 0

	for rest != nil {
		if rest.smaller == nil {
			tail = rest
			rest = rest.bigger
			count++
		} else {
			temp := rest.smaller
			rest.smaller = temp.bigger
			if temp.bigger != nil {
				temp.bigger.parent = rest
			}
			temp.bigger = rest
			rest.parent = temp
			rest = temp
			tail.bigger = temp
			temp.parent = tail
		}
	}

	return count
}

// compress performs count left-rotations along the vine rooted at
// pseudoRoot.bigger, halving its length.
func compress(pseudoRoot *Item, count int) {
	scanner := pseudoRoot
	for i := 0; i < count; i++ {
		child := scanner.bigger
		scanner.bigger = child.bigger
		if child.bigger != nil {
			child.bigger.parent = scanner
		}
		scanner = scanner.bigger

		child.bigger = scanner.smaller
		if child.bigger != nil {
			child.bigger.parent = child
		}
		scanner.smaller = child
		child.parent = scanner
	}
}

// greatestPowerOfTwoLE returns the largest power of two less than or equal
// to n (n >= 1).
func greatestPowerOfTwoLE(n int) int {
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}
