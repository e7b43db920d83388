package common

import (
	"sort"
	"strings"
)

// inMemoryKVStore is a KVStore implementation backed by a plain Go map.
// Used by the symbol table's and the persistent trie's tests, and by callers
// of the persistent trie that want its exact key/record layout without
// touching disk (see store/kvstore).
var (
	_ KVStore          = (*inMemoryKVStore)(nil)
	_ Traversable      = (*inMemoryKVStore)(nil)
	_ BatchedUpdatable = (*inMemoryKVStore)(nil)
)

type inMemoryKVStore map[string][]byte

func NewInMemoryKVStore() *inMemoryKVStore {
	ret := make(inMemoryKVStore)
	return &ret
}

func (im *inMemoryKVStore) Get(k []byte) []byte {
	return (*im)[string(k)]
}

func (im *inMemoryKVStore) Has(k []byte) bool {
	_, ok := (*im)[string(k)]
	return ok
}

func (im *inMemoryKVStore) Set(k, v []byte) {
	if len(v) == 0 {
		delete(*im, string(k))
		return
	}
	(*im)[string(k)] = append([]byte{}, v...)
}

// Iterate yields all key/value pairs in ascending key order. The underlying
// map is unordered, so we sort keys first; this store is for tests and
// small persistent-format validation only, not a production backend.
func (im *inMemoryKVStore) Iterate(f func(k, v []byte) bool) {
	im.iteratePrefix("", f)
}

func (im *inMemoryKVStore) IterateKeys(f func(k []byte) bool) {
	im.Iterate(func(k, _ []byte) bool { return f(k) })
}

func (im *inMemoryKVStore) iteratePrefix(prefix string, f func(k, v []byte) bool) {
	keys := make([]string, 0, len(*im))
	for k := range *im {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !f([]byte(k), (*im)[k]) {
			return
		}
	}
}

type prefixIterator struct {
	store  *inMemoryKVStore
	prefix string
}

func (it *prefixIterator) Iterate(f func(k, v []byte) bool) {
	it.store.iteratePrefix(it.prefix, f)
}

func (it *prefixIterator) IterateKeys(f func(k []byte) bool) {
	it.Iterate(func(k, _ []byte) bool { return f(k) })
}

func (im *inMemoryKVStore) Iterator(prefix []byte) KVIterator {
	return &prefixIterator{store: im, prefix: string(prefix)}
}

// memBatch buffers mutations and applies them to the parent store on Commit,
// giving the in-memory store the same atomic-batch contract the persistent
// realization relies on for I1 (sum-of-counts) across a crash.
type memBatch struct {
	parent *inMemoryKVStore
	pend   map[string][]byte
}

func (b *memBatch) Set(k, v []byte) {
	if len(v) == 0 {
		b.pend[string(k)] = nil
		return
	}
	b.pend[string(k)] = append([]byte{}, v...)
}

func (b *memBatch) Commit() error {
	for k, v := range b.pend {
		b.parent.Set([]byte(k), v)
	}
	return nil
}

func (im *inMemoryKVStore) BatchedWriter() KVBatchedWriter {
	return &memBatch{parent: im, pend: make(map[string][]byte)}
}
