package memtrie_test

import (
	"math"
	"testing"

	"github.com/kodexlab/eleve-go/memtrie"
	"github.com/kodexlab/eleve-go/symbol"
	"github.com/stretchr/testify/require"
)

func newTestTrie() (*memtrie.Trie, *symbol.Table) {
	tbl := symbol.NewTable()
	terms := symbol.NewTerminals(symbol.StartOfSentence, symbol.EndOfSentence)
	return memtrie.New(terms), tbl
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
	require.EqualValues(t, 5, trie.QueryCount(nil))
}

func TestQueryCountUnobservedIsZero(t *testing.T) {
	trie, tbl := newTestTrie()
	trie.AddNgram(ids(tbl, "a"), 1)
	require.EqualValues(t, 0, trie.QueryCount(ids(tbl, "z")))
}

// TestScenarioTwoChildren mirrors spec §8 scenario 2: ab -> c twice, ab -> d
// once gives node [a,b] entropy ~0.9183 bits.
func TestScenarioTwoChildren(t *testing.T) {
	trie, tbl := newTestTrie()
	trie.AddNgram(ids(tbl, "a", "b", "c"), 2)
	trie.AddNgram(ids(tbl, "a", "b", "d"), 1)

	h := trie.QueryEntropy(ids(tbl, "a", "b"))
	require.InDelta(t, 0.9183, h, 1e-4)
}

func TestScenarioTerminalOnlyChildren(t *testing.T) {
	trie, tbl := newTestTrie()
	sentence := append([]symbol.ID{symbol.StartOfSentence}, ids(tbl, "x")...)
	sentence = append(sentence, symbol.EndOfSentence)
	trie.AddNgram(sentence, 1)

	// node [SOS, x] has the terminal EOS as its only successor, seen once:
	// H = (1/1) * log2(1) = 0
	h := trie.QueryEntropy(sentence[:2])
	require.InDelta(t, 0.0, h, 1e-9)
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

func TestEntropyCacheInvalidatedByLaterInsert(t *testing.T) {
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
	// autonomy at depth 2 z-scores this ev against the mean/stdev of every
	// depth-2 ev observed during the walk; with only two depth-2 nodes and
	// differing evs, neither is NaN.
	a1 := trie.QueryAutonomy(ids(tbl, "a", "b"))
	a2 := trie.QueryAutonomy(ids(tbl, "a", "e"))
	require.False(t, math.IsNaN(a1))
	require.False(t, math.IsNaN(a2))
}

func TestQueryAutonomyTriggersLazyRecompute(t *testing.T) {
	trie, tbl := newTestTrie()
	trie.AddNgram(ids(tbl, "a", "b", "c"), 1)
	// no explicit UpdateStats call; QueryAutonomy must recompute on its own
	// since the trie starts dirty (spec §4.4 lazy normalization recompute).
	_ = trie.QueryAutonomy(ids(tbl, "a", "b"))
}

func TestClearResetsTrie(t *testing.T) {
	trie, tbl := newTestTrie()
	trie.AddNgram(ids(tbl, "a", "b"), 5)
	trie.Clear()
	require.EqualValues(t, 0, trie.QueryCount(nil))
	require.True(t, math.IsNaN(trie.QueryEntropy(nil)))
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

func TestManyChildrenForceSplit(t *testing.T) {
	trie, tbl := newTestTrie()
	// insert more symbols than leafFanout (128) under one node to exercise
	// the leaf->internalIndex promotion (spec §4.3).
	for i := 0; i < 300; i++ {
		tok := string(rune('A' + (i % 26)))
		path := ids(tbl, "root")
		path = append(path, tbl.Intern([]byte(tok+string(rune(i)))))
		trie.AddNgram(path, 1)
	}
	require.EqualValues(t, 300, trie.QueryCount(ids(tbl, "root")))
}
