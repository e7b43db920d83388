package memtrie

import (
	"math"
	"sort"

	"github.com/kodexlab/eleve-go/entropy"
	"github.com/kodexlab/eleve-go/symbol"
)

// unknownEntropy is the cached-entropy sentinel meaning "not yet computed",
// distinct from NaN which is a legitimate computed result (a leaf, or a
// zero-count node). Design Notes (spec §9) call out the need for a sentinel
// distinguishable from NaN; math.MaxFloat64 can never be a real entropy
// value since entropy is bounded by log2(count).
const unknownEntropy = math.MaxFloat64

// leafFanout bounds a leaf child collection before it splits and promotes
// its parent to an internal index (spec §4.3: "implementation choice; the
// reference uses 128").
const leafFanout = 128

// Node is one vertex of the entropy trie: an n-gram prefix's occurrence
// count, its cached entropy, and the collection of children reached by
// extending the prefix by one more symbol. Nodes own their child
// collection exclusively; there are no parent back-pointers (spec §9) —
// callers that need a node's parent re-descend from the root.
type Node struct {
	id      symbol.ID
	count   uint64
	entropy float64
	kids    childSet
}

func newNode(id symbol.ID) *Node {
	return &Node{id: id, entropy: unknownEntropy}
}

func (n *Node) Count() uint64 { return n.count }

// Entropy returns the node's cached entropy, computing and caching it first
// if unknown. terminals decides which children fold into the "bounded by
// count" regime (spec §4.2).
func (n *Node) Entropy(terminals *symbol.Terminals) float64 {
	if n.entropy != unknownEntropy {
		return n.entropy
	}
	var children []entropy.ChildCount
	if n.kids != nil {
		n.kids.forEach(func(id symbol.ID, child *Node) bool {
			if child.count == 0 {
				return true
			}
			children = append(children, entropy.ChildCount{
				Count:    child.count,
				Terminal: terminals.Contains(id),
			})
			return true
		})
	}
	n.entropy = entropy.Compute(n.count, children)
	return n.entropy
}

// invalidate clears the cached entropy after this node's own count changes.
// Because every prefix node on an inserted path has its count incremented
// together (spec §4.1), invalidating only the node whose count just
// changed is sufficient: a parent's entropy depends on its children's
// counts, and the parent is itself on the same insertion path, so its own
// invalidation already covers that dependency.
func (n *Node) invalidate() {
	n.entropy = unknownEntropy
}

// child looks up the direct child for id without creating it.
func (n *Node) child(id symbol.ID) (*Node, bool) {
	if n.kids == nil {
		return nil, false
	}
	return n.kids.find(id)
}

// addChild increments (creating if absent) the direct child for id by freq
// and invalidates this node's own cached entropy, since the child's count
// just changed.
func (n *Node) addChild(id symbol.ID, freq uint64) *Node {
	if n.kids == nil {
		n.kids = newLeaf()
	}
	child, split := n.kids.insert(id, freq)
	if split != nil {
		n.kids = newInternalIndex(split)
	}
	n.invalidate()
	return child
}

func (n *Node) forEachChild(f func(id symbol.ID, child *Node) bool) {
	if n.kids == nil {
		return
	}
	n.kids.forEach(f)
}

// childSet is the capability set every child collection realization
// provides (spec §4.3 / §9 "dynamic dispatch over child collections"):
// find, add (here: insert), iterate, and the ability to signal a split to
// the owning Node.
type childSet interface {
	find(id symbol.ID) (*Node, bool)
	insert(id symbol.ID, freq uint64) (*Node, *splitResult)
	forEach(f func(id symbol.ID, n *Node) bool)
	size() int
}

// splitResult is returned by a leaf that just overflowed leafFanout: the
// owning Node must replace its child collection with an internal index
// over the two halves.
type splitResult struct {
	separator symbol.ID
	left      *leaf
	right     *leaf
}

// leaf is a sorted, owned vector of child Nodes (spec §4.3 "Leaf list").
type leaf struct {
	nodes []*Node
}

func newLeaf() *leaf {
	return &leaf{}
}

func (l *leaf) search(id symbol.ID) int {
	return sort.Search(len(l.nodes), func(i int) bool { return l.nodes[i].id >= id })
}

func (l *leaf) find(id symbol.ID) (*Node, bool) {
	i := l.search(id)
	if i < len(l.nodes) && l.nodes[i].id == id {
		return l.nodes[i], true
	}
	return nil, false
}

func (l *leaf) insert(id symbol.ID, freq uint64) (*Node, *splitResult) {
	i := l.search(id)
	if i < len(l.nodes) && l.nodes[i].id == id {
		l.nodes[i].count += freq
		l.nodes[i].invalidate()
		return l.nodes[i], nil
	}
	n := newNode(id)
	n.count = freq
	l.nodes = append(l.nodes, nil)
	copy(l.nodes[i+1:], l.nodes[i:])
	l.nodes[i] = n

	if len(l.nodes) <= leafFanout {
		return n, nil
	}
	mid := len(l.nodes) / 2
	left := &leaf{nodes: append([]*Node{}, l.nodes[:mid]...)}
	right := &leaf{nodes: append([]*Node{}, l.nodes[mid:]...)}
	return n, &splitResult{separator: left.nodes[len(left.nodes)-1].id, left: left, right: right}
}

func (l *leaf) forEach(f func(id symbol.ID, n *Node) bool) {
	for _, n := range l.nodes {
		if !f(n.id, n) {
			return
		}
	}
}

func (l *leaf) size() int { return len(l.nodes) }

// indexEntry pairs a separator with the leaf bucket holding every symbol
// id <= separator that isn't already covered by an earlier entry (spec
// §4.3: "all symbols in the left child <= separator < all symbols in the
// right child").
type indexEntry struct {
	separator symbol.ID
	bucket    *leaf
}

// internalIndex is the B-tree-over-child-collections form a Node's child
// set is promoted to the first time one of its leaf buckets overflows (spec
// §4.3). It never itself splits further: spec §9 notes no inheritance depth
// beyond one level is required, so an internalIndex always points directly
// at leaf buckets, never at another internalIndex.
type internalIndex struct {
	entries  []indexEntry
	trailing *leaf
}

func newInternalIndex(s *splitResult) *internalIndex {
	return &internalIndex{
		entries:  []indexEntry{{separator: s.separator, bucket: s.left}},
		trailing: s.right,
	}
}

// bucketFor returns the entry index whose bucket must hold id, or -1 for
// the trailing bucket.
func (ix *internalIndex) bucketFor(id symbol.ID) int {
	return sort.Search(len(ix.entries), func(i int) bool { return ix.entries[i].separator >= id })
}

func (ix *internalIndex) find(id symbol.ID) (*Node, bool) {
	i := ix.bucketFor(id)
	if i < len(ix.entries) {
		return ix.entries[i].bucket.find(id)
	}
	return ix.trailing.find(id)
}

func (ix *internalIndex) insert(id symbol.ID, freq uint64) (*Node, *splitResult) {
	i := ix.bucketFor(id)
	if i < len(ix.entries) {
		node, split := ix.entries[i].bucket.insert(id, freq)
		if split != nil {
			right := indexEntry{separator: ix.entries[i].separator, bucket: split.right}
			ix.entries[i] = indexEntry{separator: split.separator, bucket: split.left}
			ix.entries = append(ix.entries, indexEntry{})
			copy(ix.entries[i+2:], ix.entries[i+1:])
			ix.entries[i+1] = right
		}
		return node, nil
	}
	node, split := ix.trailing.insert(id, freq)
	if split != nil {
		ix.entries = append(ix.entries, indexEntry{separator: split.separator, bucket: split.left})
		ix.trailing = split.right
	}
	return node, nil
}

func (ix *internalIndex) forEach(f func(id symbol.ID, n *Node) bool) {
	for _, e := range ix.entries {
		cont := true
		e.bucket.forEach(func(id symbol.ID, n *Node) bool {
			if !f(id, n) {
				cont = false
				return false
			}
			return true
		})
		if !cont {
			return
		}
	}
	ix.trailing.forEach(f)
}

func (ix *internalIndex) size() int {
	total := ix.trailing.size()
	for _, e := range ix.entries {
		total += e.bucket.size()
	}
	return total
}
