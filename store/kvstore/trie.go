package kvstore

import (
	"github.com/kodexlab/eleve-go/common"
	"github.com/kodexlab/eleve-go/entropy"
	"github.com/kodexlab/eleve-go/symbol"
)

// Store is what a persistent Trie needs from its underlying key/value
// store: plain reads/writes, prefix-delimited range scans for child
// lookups, and atomic batched writes for AddNgram (spec §4.3, §5).
type Store interface {
	common.KVStore
	common.Traversable
	common.BatchedUpdatable
}

// Trie is the persistent, ordered-key-value-backed entropy trie
// realization (spec §4.3). Each AddNgram is committed through a single
// atomic batch so a crash mid-AddNgram never leaves one prefix of the
// n-gram with an incremented count but another without (spec §5).
// UpdateStats and Clear write to the store directly, without a batch.
type Trie struct {
	store     Store
	terminals *symbol.Terminals
	tbl       *symbol.Table
}

// Open wraps store as a persistent trie, sharing tbl and terminals with
// its sibling direction in a bidirectional facade.
func Open(store Store, tbl *symbol.Table, terminals *symbol.Terminals) *Trie {
	t := &Trie{store: store, terminals: terminals, tbl: tbl}
	if !store.Has(dirtyKey()) {
		store.Set(dirtyKey(), encodeDirty(true))
	}
	return t
}

func (t *Trie) readRecord(path [][]byte) (nodeRecord, bool) {
	v := t.store.Get(nodeKey(path))
	if v == nil {
		return nodeRecord{}, false
	}
	return decodeNodeRecord(v), true
}

func (t *Trie) writeRecord(w common.KVWriter, path [][]byte, r nodeRecord) {
	w.Set(nodeKey(path), encodeNodeRecord(r))
}

// AddNgram increments the count of every prefix of ids (the root
// included) by freq in a single atomic batch, invalidating each touched
// node's cached entropy (spec §4.1). freq == 0 is a no-op: no record is
// read or written, no batch opened, the dirty flag untouched.
func (t *Trie) AddNgram(ids []symbol.ID, freq uint64) {
	if freq == 0 {
		return
	}
	w := t.store.BatchedWriter()

	tokens := pathTokens(t.tbl, ids)
	for depth := 0; depth <= len(tokens); depth++ {
		path := tokens[:depth]
		rec, _ := t.readRecord(path)
		rec.count += freq
		rec.entropyKnown = false
		t.writeRecord(w, path, rec)
	}
	w.Set(dirtyKey(), encodeDirty(true))
	common.Assert(w.Commit() == nil, "kvstore: AddNgram batch commit failed")
}

// QueryCount returns the occurrence count of ids, or 0 if never observed.
func (t *Trie) QueryCount(ids []symbol.ID) uint64 {
	rec, ok := t.readRecord(pathTokens(t.tbl, ids))
	if !ok {
		return 0
	}
	return rec.count
}

// computeEntropy recomputes a node's entropy fresh from its children's
// current counts via a prefix scan, rather than reading the on-disk cache
// field: every record write marks that field unknown and nothing in this
// package fills it in, so the persistent variant always recomputes on read
// (a simplification relative to memtrie's invalidate-on-write cache).
func (t *Trie) computeEntropy(path [][]byte, count uint64) float64 {
	if count == 0 {
		return entropy.Compute(0, nil)
	}
	prefix := childPrefix(path)
	var children []entropy.ChildCount
	t.store.Iterator(prefix).Iterate(func(k, v []byte) bool {
		tok := lastToken(k, prefix)
		id, ok := t.tbl.Lookup(tok)
		common.Assert(ok, "kvstore: unregistered token %q found in trie", tok)
		rec := decodeNodeRecord(v)
		if rec.count == 0 {
			return true
		}
		children = append(children, entropy.ChildCount{
			Count:    rec.count,
			Terminal: t.terminals.Contains(id),
		})
		return true
	})
	return entropy.Compute(count, children)
}

// QueryEntropy returns the Shannon entropy of the successor distribution
// at ids, recomputed fresh (see computeEntropy).
func (t *Trie) QueryEntropy(ids []symbol.ID) float64 {
	path := pathTokens(t.tbl, ids)
	rec, ok := t.readRecord(path)
	if !ok {
		return entropy.Compute(0, nil)
	}
	return t.computeEntropy(path, rec.count)
}

// QueryEV returns the entropy variation at ids (spec §4.1): NaN for the
// root, or if either its own or its parent's entropy is NaN.
func (t *Trie) QueryEV(ids []symbol.ID) float64 {
	if len(ids) == 0 {
		return entropy.EV(entropy.Compute(0, nil), entropy.Compute(0, nil))
	}
	h := t.QueryEntropy(ids)
	ph := t.QueryEntropy(ids[:len(ids)-1])
	return entropy.EV(h, ph)
}

// QueryAutonomy z-scores QueryEV(ids) against the per-depth normalization
// entry, recomputing stats first if the trie is marked dirty.
func (t *Trie) QueryAutonomy(ids []symbol.ID) float64 {
	if decodeDirty(t.store.Get(dirtyKey())) {
		t.UpdateStats()
	}
	if len(ids) == 0 {
		return entropy.Autonomy(entropy.EV(0, 0), entropy.NormEntry{})
	}
	ev := t.QueryEV(ids)
	v := t.store.Get(normKey(len(ids)))
	if v == nil {
		return entropy.Autonomy(ev, entropy.NormEntry{})
	}
	return entropy.Autonomy(ev, decodeNorm(v))
}

// UpdateStats walks the whole trie via repeated prefix scans, rebuilding
// the per-depth normalization vector from the observed entropy variations
// (spec §4.4), and clears the dirty flag.
func (t *Trie) UpdateStats() {
	accs := make(map[int]*entropy.Accumulator)

	var walk func(path [][]byte, parentH float64, depth int)
	walk = func(path [][]byte, parentH float64, depth int) {
		rec, ok := t.readRecord(path)
		if !ok {
			return
		}
		h := t.computeEntropy(path, rec.count)
		if depth > 0 {
			ev := entropy.EV(h, parentH)
			if ev == ev { // not NaN
				if accs[depth] == nil {
					accs[depth] = &entropy.Accumulator{}
				}
				accs[depth].Add(ev)
			}
		}
		prefix := childPrefix(path)
		var childPaths [][][]byte
		t.store.Iterator(prefix).Iterate(func(k, v []byte) bool {
			tok := lastToken(k, prefix)
			childPaths = append(childPaths, append(append([][]byte{}, path...), append([]byte{}, tok...)))
			return true
		})
		for _, cp := range childPaths {
			walk(cp, h, depth+1)
		}
	}
	walk(nil, entropy.Compute(0, nil), 0)

	w := t.store
	maxDepth := 0
	for d := range accs {
		if d > maxDepth {
			maxDepth = d
		}
	}
	for d := 1; d <= maxDepth; d++ {
		acc := accs[d]
		if acc == nil {
			continue
		}
		w.Set(normKey(d), encodeNorm(acc.Finalize()))
	}
	w.Set(dirtyKey(), encodeDirty(false))
}

// Clear removes every node record and normalization entry, returning the
// store to its just-opened state. Terminals and the shared symbol table
// are untouched: they belong to the enclosing bidirectional facade.
func (t *Trie) Clear() {
	var keys [][]byte
	t.store.IterateKeys(func(k []byte) bool {
		keys = append(keys, append([]byte{}, k...))
		return true
	})
	for _, k := range keys {
		t.store.Set(k, nil)
	}
	t.store.Set(dirtyKey(), encodeDirty(true))
}

// ReadDefaultNgramLength returns the default n-gram length persisted in a
// config store (spec §6), or 0 if never configured. This is a free
// function rather than a Trie method: the default n-gram length is a
// facade-level (bidi.Storage) setting shared by both directions, kept in
// the dedicated config store rather than either direction's own node-record
// store, so there is no single *Trie it could hang off of.
func ReadDefaultNgramLength(config Store) uint64 {
	v := config.Get(configKey(configDefaultNgramLength))
	if v == nil {
		return 0
	}
	return common.Uint64From8Bytes(v)
}

// WriteDefaultNgramLength persists n as the default n-gram length in config.
func WriteDefaultNgramLength(config Store, n uint64) {
	config.Set(configKey(configDefaultNgramLength), common.Uint64To8Bytes(n))
}
