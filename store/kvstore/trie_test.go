package kvstore_test

import (
	"math"
	"testing"

	"github.com/kodexlab/eleve-go/common"
	"github.com/kodexlab/eleve-go/store/kvstore"
	"github.com/kodexlab/eleve-go/symbol"
	"github.com/stretchr/testify/require"
)

// inMemoryStore satisfies kvstore.Store: common.NewInMemoryKVStore already
// implements KVStore, Traversable and BatchedUpdatable, letting the
// persistent trie's exact on-disk record layout be exercised without a
// real badger database. It does not go through hiveAdaptor; adaptor_test.go
// covers that path.
func newStore() kvstore.Store {
	return common.NewInMemoryKVStore()
}

func newTestTrie() (*kvstore.Trie, *symbol.Table) {
	tbl := symbol.NewTable()
	terms := symbol.NewTerminals(symbol.StartOfSentence, symbol.EndOfSentence)
	return kvstore.Open(newStore(), tbl, terms), tbl
}

func ids(tbl *symbol.Table, tokens ...string) []symbol.ID {
	out := make([]symbol.ID, len(tokens))
	for i, tok := range tokens {
		out[i] = tbl.Intern([]byte(tok))
	}
	return out
}

func TestAddNgramIncrementsEveryPrefix(t *testing.T) {
	trie, tbl := newTestTrie()
	path := ids(tbl, "a", "b", "c")
	trie.AddNgram(path, 1)

	require.EqualValues(t, 1, trie.QueryCount(nil))
	require.EqualValues(t, 1, trie.QueryCount(path[:1]))
	require.EqualValues(t, 1, trie.QueryCount(path[:2]))
	require.EqualValues(t, 1, trie.QueryCount(path))
}

func TestAddNgramAccumulatesFrequency(t *testing.T) {
	trie, tbl := newTestTrie()
	path := ids(tbl, "a", "b")
	trie.AddNgram(path, 3)
	trie.AddNgram(path, 2)
	require.EqualValues(t, 5, trie.QueryCount(path))
}

func TestQueryCountUnobservedIsZero(t *testing.T) {
	trie, tbl := newTestTrie()
	trie.AddNgram(ids(tbl, "a"), 1)
	require.EqualValues(t, 0, trie.QueryCount(ids(tbl, "z")))
}

func TestScenarioTwoChildren(t *testing.T) {
	trie, tbl := newTestTrie()
	trie.AddNgram(ids(tbl, "a", "b", "c"), 2)
	trie.AddNgram(ids(tbl, "a", "b", "d"), 1)

	h := trie.QueryEntropy(ids(tbl, "a", "b"))
	require.InDelta(t, 0.9183, h, 1e-4)
}

func TestQueryEntropyUnobservedIsNaN(t *testing.T) {
	trie, tbl := newTestTrie()
	trie.AddNgram(ids(tbl, "a"), 1)
	require.True(t, math.IsNaN(trie.QueryEntropy(ids(tbl, "never", "seen"))))
}

func TestQueryEVRootIsNaN(t *testing.T) {
	trie, _ := newTestTrie()
	require.True(t, math.IsNaN(trie.QueryEV(nil)))
}

func TestEntropyRecomputesAfterLaterInsert(t *testing.T) {
	trie, tbl := newTestTrie()
	ab := ids(tbl, "a", "b")
	trie.AddNgram(append(append([]symbol.ID{}, ab...), tbl.Intern([]byte("c"))), 1)
	h1 := trie.QueryEntropy(ab)
	require.InDelta(t, 0.0, h1, 1e-9)

	trie.AddNgram(append(append([]symbol.ID{}, ab...), tbl.Intern([]byte("d"))), 1)
	h2 := trie.QueryEntropy(ab)
	require.InDelta(t, 1.0, h2, 1e-9)
}

func TestUpdateStatsAndAutonomy(t *testing.T) {
	trie, tbl := newTestTrie()
	trie.AddNgram(ids(tbl, "a", "b", "c"), 2)
	trie.AddNgram(ids(tbl, "a", "b", "d"), 1)
	trie.AddNgram(ids(tbl, "a", "e", "c"), 1)
	trie.AddNgram(ids(tbl, "a", "e", "d"), 1)

	trie.UpdateStats()
	require.False(t, math.IsNaN(trie.QueryAutonomy(ids(tbl, "a", "b"))))
	require.False(t, math.IsNaN(trie.QueryAutonomy(ids(tbl, "a", "e"))))
}

func TestQueryAutonomyTriggersLazyRecompute(t *testing.T) {
	trie, tbl := newTestTrie()
	trie.AddNgram(ids(tbl, "a", "b", "c"), 1)
	_ = trie.QueryAutonomy(ids(tbl, "a", "b"))
}

func TestClearRemovesNodes(t *testing.T) {
	trie, tbl := newTestTrie()
	trie.AddNgram(ids(tbl, "a", "b"), 5)
	trie.Clear()
	require.EqualValues(t, 0, trie.QueryCount(nil))
	require.True(t, math.IsNaN(trie.QueryEntropy(nil)))
}

func TestDefaultNgramLengthRoundTrip(t *testing.T) {
	config := newStore()
	require.EqualValues(t, 0, kvstore.ReadDefaultNgramLength(config))
	kvstore.WriteDefaultNgramLength(config, 4)
	require.EqualValues(t, 4, kvstore.ReadDefaultNgramLength(config))
}

func TestAddNgramZeroFreqIsNoOp(t *testing.T) {
	trie, tbl := newTestTrie()
	path := ids(tbl, "a", "b")
	trie.AddNgram(path, 0)

	require.EqualValues(t, 0, trie.QueryCount(nil))
	require.EqualValues(t, 0, trie.QueryCount(path[:1]))
	require.EqualValues(t, 0, trie.QueryCount(path))
	require.True(t, math.IsNaN(trie.QueryEntropy(path)))
}

func TestNodeRecordRoundTripsThroughEncoding(t *testing.T) {
	store := newStore()
	tbl := symbol.NewTable()
	terms := symbol.NewTerminals(symbol.StartOfSentence, symbol.EndOfSentence)
	trie := kvstore.Open(store, tbl, terms)

	path := ids(tbl, "alpha", "beta")
	trie.AddNgram(path, 7)

	reopened := kvstore.Open(store, tbl, terms)
	require.EqualValues(t, 7, reopened.QueryCount(path))
}
