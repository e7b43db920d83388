// Package memtrie implements the in-memory, bounded-fanout entropy trie
// realization (spec §4.3 "in-memory B-tree-like" variant): one owned tree
// of *Node rooted at an empty n-gram, with lazy entropy caching and
// per-depth normalization recomputed on demand.
package memtrie

import (
	"github.com/kodexlab/eleve-go/entropy"
	"github.com/kodexlab/eleve-go/symbol"
)

// Trie is one directional (forward or backward) entropy trie held entirely
// in process memory. It is not safe for concurrent use (spec §5): the
// system has a single writer and readers must be externally synchronized
// with writes.
type Trie struct {
	terminals *symbol.Terminals
	root      *Node

	// norm is indexed by depth-1: norm[0] holds the normalization for
	// depth-1 nodes (the root's direct children), since the root itself
	// has no parent and so no entropy variation (spec §9 Open Question:
	// "index convention is an implementation choice, document it").
	norm  []entropy.NormEntry
	dirty bool
}

// New creates an empty trie sharing terminals with its sibling direction in
// a bidirectional facade.
func New(terminals *symbol.Terminals) *Trie {
	return &Trie{
		terminals: terminals,
		root:      newNode(symbol.ID(0)),
		dirty:     true,
	}
}

// AddNgram increments the count of every prefix of ids (including the
// empty prefix, i.e. the root) by freq, creating any missing nodes along
// the way (spec §4.1). freq == 0 is a no-op: no node is touched, no cache
// invalidated, and the trie is not marked dirty. Marks the trie dirty
// otherwise: normalization must be recomputed before the next
// autonomy/ev query trusts it.
func (t *Trie) AddNgram(ids []symbol.ID, freq uint64) {
	if freq == 0 {
		return
	}
	t.root.count += freq
	t.root.invalidate()
	cur := t.root
	for _, id := range ids {
		cur = cur.addChild(id, freq)
	}
	t.dirty = true
}

// descend walks ids from the root, returning the node at that path and
// whether the full path exists.
func (t *Trie) descend(ids []symbol.ID) (*Node, bool) {
	cur := t.root
	for _, id := range ids {
		next, ok := cur.child(id)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// QueryCount returns the occurrence count of the n-gram ids, or 0 if it was
// never observed.
func (t *Trie) QueryCount(ids []symbol.ID) uint64 {
	n, ok := t.descend(ids)
	if !ok {
		return 0
	}
	return n.count
}

// QueryEntropy returns the Shannon entropy of the successor distribution at
// ids, or NaN if the n-gram was never observed or has no positive-count
// successor.
func (t *Trie) QueryEntropy(ids []symbol.ID) float64 {
	n, ok := t.descend(ids)
	if !ok {
		return entropy.Compute(0, nil)
	}
	return n.Entropy(t.terminals)
}

// parentEntropy returns the entropy of the parent of path ids (the root's
// entropy if ids has length 1, the trie-wide NaN-as-no-parent sentinel if
// ids is empty).
func (t *Trie) parentEntropy(ids []symbol.ID) float64 {
	if len(ids) == 0 {
		return entropy.Compute(0, nil)
	}
	parent, ok := t.descend(ids[:len(ids)-1])
	if !ok {
		return entropy.Compute(0, nil)
	}
	return parent.Entropy(t.terminals)
}

// QueryEV returns the entropy variation at ids: its own entropy minus its
// parent's (spec §4.1). NaN for the root (no parent) or if either side is
// unobserved.
func (t *Trie) QueryEV(ids []symbol.ID) float64 {
	if len(ids) == 0 {
		return entropy.EV(entropy.Compute(0, nil), entropy.Compute(0, nil))
	}
	return entropy.EV(t.QueryEntropy(ids), t.parentEntropy(ids))
}

// QueryAutonomy z-scores QueryEV(ids) against the normalization entry for
// len(ids). Triggers a stats recomputation first if the trie is dirty.
func (t *Trie) QueryAutonomy(ids []symbol.ID) float64 {
	if t.dirty {
		t.UpdateStats()
	}
	if len(ids) == 0 {
		return entropy.Autonomy(entropy.EV(0, 0), entropy.NormEntry{})
	}
	ev := t.QueryEV(ids)
	idx := len(ids) - 1
	if idx >= len(t.norm) {
		return entropy.Autonomy(ev, entropy.NormEntry{})
	}
	return entropy.Autonomy(ev, t.norm[idx])
}

// UpdateStats walks the whole trie, recomputing entropy caches as needed
// (entries already cached and not invalidated since the last insert are
// reused) and rebuilds the per-depth normalization vector from the
// observed entropy variations (spec §4.4).
func (t *Trie) UpdateStats() {
	var accs []entropy.Accumulator
	var walk func(n *Node, parentH float64, depth int)
	walk = func(n *Node, parentH float64, depth int) {
		h := n.Entropy(t.terminals)
		if depth > 0 {
			ev := entropy.EV(h, parentH)
			if !isNaN(ev) {
				idx := depth - 1
				for idx >= len(accs) {
					accs = append(accs, entropy.Accumulator{})
				}
				accs[idx].Add(ev)
			}
		}
		n.forEachChild(func(_ symbol.ID, child *Node) bool {
			walk(child, h, depth+1)
			return true
		})
	}
	walk(t.root, entropy.Compute(0, nil), 0)

	t.norm = make([]entropy.NormEntry, len(accs))
	for i := range accs {
		t.norm[i] = accs[i].Finalize()
	}
	t.dirty = false
}

// Clear discards every node and normalization entry, returning the trie to
// its just-constructed state.
func (t *Trie) Clear() {
	t.root = newNode(symbol.ID(0))
	t.norm = nil
	t.dirty = true
}

func isNaN(f float64) bool { return f != f }
