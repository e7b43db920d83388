// Package symbol implements the string-to-id interning map the entropy trie
// consumes: an ordered set of opaque token identifiers plus the two
// sentence-boundary sentinels every trie treats as terminals.
package symbol

import (
	"github.com/kodexlab/eleve-go/common"
)

// ID is an opaque, stable identifier for a token. Two distinct tokens are
// guaranteed distinct ids; ids carry no ordering meaning beyond that.
type ID uint32

// Sentinel ids. A Table always registers these first, at construction, so
// they are stable across processes as long as nothing else interns before
// them.
const (
	StartOfSentence ID = 0
	EndOfSentence   ID = 1
)

// Sentinel runes, chosen from the Unicode Private Use Area to minimize
// collision with any real token (spec §6).
const (
	startOfSentenceRune = '\uE02B'
	endOfSentenceRune   = '\uE02D'
)

// Terminals is the set of ids the entropy computation treats as bounding a
// successor distribution (spec §4.2). Shared between the forward and
// backward trie of a bidirectional storage facade.
type Terminals struct {
	ids map[ID]struct{}
}

func NewTerminals(ids ...ID) *Terminals {
	t := &Terminals{ids: make(map[ID]struct{}, len(ids))}
	for _, id := range ids {
		t.ids[id] = struct{}{}
	}
	return t
}

func (t *Terminals) Contains(id ID) bool {
	_, ok := t.ids[id]
	return ok
}

func (t *Terminals) Add(id ID) {
	t.ids[id] = struct{}{}
}

// Table interns byte-string tokens into stable ids and back. Not safe for
// concurrent use; the system has no multi-writer concurrency (spec §5).
type Table struct {
	byToken map[string]ID
	byID    [][]byte
}

// NewTable creates a table with both sentinels pre-registered at their
// reserved ids.
func NewTable() *Table {
	t := &Table{byToken: make(map[string]ID), byID: make([][]byte, 0, 2)}
	start := t.Intern([]byte(string(rune(startOfSentenceRune))))
	end := t.Intern([]byte(string(rune(endOfSentenceRune))))
	common.Assert(start == StartOfSentence, "symbol: start-of-sentence must register as id 0")
	common.Assert(end == EndOfSentence, "symbol: end-of-sentence must register as id 1")
	return t
}

// Intern returns the id for token, creating a new one if token was never
// seen before.
func (t *Table) Intern(token []byte) ID {
	if id, ok := t.byToken[string(token)]; ok {
		return id
	}
	id := ID(len(t.byID))
	cp := append([]byte{}, token...)
	t.byID = append(t.byID, cp)
	t.byToken[string(cp)] = id
	return id
}

// Lookup returns the id for token without creating one.
func (t *Table) Lookup(token []byte) (ID, bool) {
	id, ok := t.byToken[string(token)]
	return id, ok
}

// Token returns the byte-string form of id, or false if id was never
// registered.
func (t *Table) Token(id ID) ([]byte, bool) {
	if int(id) >= len(t.byID) {
		return nil, false
	}
	return t.byID[id], true
}

// Len returns the number of registered tokens, sentinels included.
func (t *Table) Len() int {
	return len(t.byID)
}

// persistence key space within a config store partition: 0x10 || id(4 LE) -> token bytes.
const tokenKeyPrefix = byte(0x10)

// Persist writes every token/id mapping to w, the sentinels at ids 0 and 1
// included, keyed so a Load from the same store reconstructs an identical
// table.
func (t *Table) Persist(w common.KVWriter) {
	for id, token := range t.byID {
		w.Set(common.Concat(tokenKeyPrefix, common.Uint32To4Bytes(uint32(id))), token)
	}
}

// Load reconstructs a Table from a store previously populated by Persist.
// Returns a fresh table with only the sentinels registered if the store has
// no persisted tokens yet.
func Load(it common.KVIterator) *Table {
	t := &Table{byToken: make(map[string]ID), byID: make([][]byte, 0)}
	pairs := make(map[uint32][]byte)
	maxID := -1
	it.Iterate(func(k, v []byte) bool {
		if len(k) != 5 || k[0] != tokenKeyPrefix {
			return true
		}
		id := common.Uint32From4Bytes(k[1:])
		pairs[id] = append([]byte{}, v...)
		if int(id) > maxID {
			maxID = int(id)
		}
		return true
	})
	if maxID < 0 {
		return NewTable()
	}
	t.byID = make([][]byte, maxID+1)
	for id, token := range pairs {
		t.byID[id] = token
		t.byToken[string(token)] = ID(id)
	}
	return t
}
