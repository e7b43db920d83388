package symbol_test

import (
	"testing"

	"github.com/kodexlab/eleve-go/common"
	"github.com/kodexlab/eleve-go/symbol"
	"github.com/stretchr/testify/require"
)

func TestSentinelsRegisterFirst(t *testing.T) {
	tbl := symbol.NewTable()
	require.Equal(t, 2, tbl.Len())
	id, ok := tbl.Lookup([]byte("a"))
	require.False(t, ok)
	require.Zero(t, id)
}

func TestInternIsStable(t *testing.T) {
	tbl := symbol.NewTable()
	a1 := tbl.Intern([]byte("a"))
	b := tbl.Intern([]byte("b"))
	a2 := tbl.Intern([]byte("a"))
	require.Equal(t, a1, a2)
	require.NotEqual(t, a1, b)
	require.NotEqual(t, symbol.StartOfSentence, a1)
	require.NotEqual(t, symbol.EndOfSentence, a1)
}

func TestTokenRoundTrip(t *testing.T) {
	tbl := symbol.NewTable()
	id := tbl.Intern([]byte("hello"))
	tok, ok := tbl.Token(id)
	require.True(t, ok)
	require.Equal(t, []byte("hello"), tok)

	_, ok = tbl.Token(symbol.ID(999))
	require.False(t, ok)
}

func TestTerminals(t *testing.T) {
	terms := symbol.NewTerminals(symbol.StartOfSentence, symbol.EndOfSentence)
	require.True(t, terms.Contains(symbol.StartOfSentence))
	require.True(t, terms.Contains(symbol.EndOfSentence))
	require.False(t, terms.Contains(symbol.ID(42)))
	terms.Add(symbol.ID(42))
	require.True(t, terms.Contains(symbol.ID(42)))
}

func TestPersistAndLoad(t *testing.T) {
	tbl := symbol.NewTable()
	tbl.Intern([]byte("alpha"))
	tbl.Intern([]byte("beta"))

	store := common.NewInMemoryKVStore()
	tbl.Persist(store)

	loaded := symbol.Load(store)
	require.Equal(t, tbl.Len(), loaded.Len())

	for _, tok := range [][]byte{[]byte("alpha"), []byte("beta")} {
		wantID, ok := tbl.Lookup(tok)
		require.True(t, ok)
		gotID, ok := loaded.Lookup(tok)
		require.True(t, ok)
		require.Equal(t, wantID, gotID)
	}
}
