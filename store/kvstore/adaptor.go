package kvstore

import (
	"errors"

	hivekv "github.com/iotaledger/hive.go/core/kvstore"
	"github.com/iotaledger/hive.go/core/kvstore/badger"
	"github.com/iotaledger/hive.go/core/kvstore/mapdb"
	"golang.org/x/xerrors"

	"github.com/kodexlab/eleve-go/common"
)

// hiveAdaptor maps a real hive.go KVStore onto the common.KVStore /
// common.Traversable / common.BatchedUpdatable contract the trie and
// symbol table are written against, the same role trie.go's own
// hive_adaptor.HiveKVStoreAdaptor plays for its CommitmentModel trie.
type hiveAdaptor struct {
	kvs hivekv.KVStore
}

var (
	_ common.KVStore          = (*hiveAdaptor)(nil)
	_ common.Traversable      = (*hiveAdaptor)(nil)
	_ common.BatchedUpdatable = (*hiveAdaptor)(nil)
)

func newHiveAdaptor(kvs hivekv.KVStore) *hiveAdaptor {
	return &hiveAdaptor{kvs: kvs}
}

// OpenBadger opens (creating if absent) a badger-backed persistent store at
// dir, wrapped as a Store.
func OpenBadger(dir string) (Store, func() error, error) {
	db, err := badger.CreateDB(dir)
	if err != nil {
		return nil, nil, xerrors.Errorf("kvstore: opening badger store at %s: %v: %w", dir, err, common.ErrStoreUnavailable)
	}
	kvs := badger.New(db)
	return newHiveAdaptor(kvs), db.Close, nil
}

// NewMapDB wraps hive.go's in-process mapdb KVStore, useful for tests that
// want to exercise the exact persistent record layout without touching
// disk.
func NewMapDB() Store {
	return newHiveAdaptor(mapdb.NewMapDB())
}

func mustNoErr(err error) {
	if err != nil {
		panic(err)
	}
}

func (a *hiveAdaptor) Get(key []byte) []byte {
	v, err := a.kvs.Get(key)
	if errors.Is(err, hivekv.ErrKeyNotFound) {
		return nil
	}
	mustNoErr(err)
	return v
}

func (a *hiveAdaptor) Has(key []byte) bool {
	ok, err := a.kvs.Has(key)
	mustNoErr(err)
	return ok
}

func (a *hiveAdaptor) Set(key, value []byte) {
	var err error
	if len(value) == 0 {
		err = a.kvs.Delete(key)
	} else {
		err = a.kvs.Set(key, value)
	}
	mustNoErr(err)
}

func (a *hiveAdaptor) Iterate(f func(k, v []byte) bool) {
	err := a.kvs.Iterate(nil, func(key hivekv.Key, value hivekv.Value) bool {
		return f(key, value)
	})
	mustNoErr(err)
}

func (a *hiveAdaptor) IterateKeys(f func(k []byte) bool) {
	err := a.kvs.Iterate(nil, func(key hivekv.Key, _ hivekv.Value) bool {
		return f(key)
	})
	mustNoErr(err)
}

type prefixIterator struct {
	kvs    hivekv.KVStore
	prefix []byte
}

func (a *hiveAdaptor) Iterator(prefix []byte) common.KVIterator {
	return &prefixIterator{kvs: a.kvs, prefix: prefix}
}

func (it *prefixIterator) Iterate(f func(k, v []byte) bool) {
	err := it.kvs.Iterate(it.prefix, func(key hivekv.Key, value hivekv.Value) bool {
		return f(key, value)
	})
	mustNoErr(err)
}

func (it *prefixIterator) IterateKeys(f func(k []byte) bool) {
	err := it.kvs.Iterate(it.prefix, func(key hivekv.Key, _ hivekv.Value) bool {
		return f(key)
	})
	mustNoErr(err)
}

// hiveBatch adapts hive.go's BatchedMutations to common.KVBatchedWriter,
// the way trie.go's hive_adaptor.batchWriter does for its own trie
// mutations (spec §5: AddNgram must be atomic per call).
type hiveBatch struct {
	batch hivekv.BatchedMutations
}

func (a *hiveAdaptor) BatchedWriter() common.KVBatchedWriter {
	b, err := a.kvs.Batched()
	mustNoErr(err)
	return &hiveBatch{batch: b}
}

func (b *hiveBatch) Set(key, value []byte) {
	var err error
	if len(value) == 0 {
		err = b.batch.Delete(key)
	} else {
		err = b.batch.Set(key, value)
	}
	mustNoErr(err)
}

func (b *hiveBatch) Commit() error {
	return b.batch.Commit()
}
