// Package bidi implements the bidirectional storage facade (spec §4.5): a
// forward trie over each sentence's symbols and a backward trie over the
// same sentences reversed, sharing one symbol table and one terminals set
// so a token interns to the same id on both sides.
package bidi

import (
	"math"
	"path/filepath"

	"golang.org/x/xerrors"

	"github.com/kodexlab/eleve-go/common"
	"github.com/kodexlab/eleve-go/memtrie"
	"github.com/kodexlab/eleve-go/store/kvstore"
	"github.com/kodexlab/eleve-go/symbol"
)

// Trie is the capability both trie realizations (memtrie.Trie and
// kvstore.Trie) provide, letting Storage treat forward and backward
// uniformly regardless of which one backs them (spec §4.3: one contract,
// two realizations).
type Trie interface {
	AddNgram(ids []symbol.ID, freq uint64)
	QueryCount(ids []symbol.ID) uint64
	QueryEntropy(ids []symbol.ID) float64
	QueryEV(ids []symbol.ID) float64
	QueryAutonomy(ids []symbol.ID) float64
	UpdateStats()
	Clear()
}

// Storage is the forward+backward facade applications are expected to use
// (spec §4.5): AddSentence feeds both directions from one token sequence,
// and every query is available on both the forward orientation (direct)
// and combined across directions.
type Storage struct {
	table     *symbol.Table
	terminals *symbol.Terminals
	Forward   Trie
	Backward  Trie

	// defaultNgramLength is the n-gram order AddSentence uses when its
	// caller doesn't pin one explicitly (spec §4.5, §6).
	defaultNgramLength uint64

	// symWriter is non-nil only for persistent storage: AddSentence
	// persists the full symbol table through it whenever interning grows
	// it, so a reopened store reconstructs the same ids (spec §6).
	symWriter common.KVWriter

	// closeFn releases the underlying stores for a persistent Storage, or
	// nil for an in-memory one, which owns no external resource.
	closeFn func() error
}

// NewMemoryStorage creates a bidirectional facade backed entirely by
// in-memory tries (memtrie), suitable for short-lived or test use (spec
// §4.3 in-memory realization). defaultNgramLength is the n-gram order
// AddSentence falls back to when not given an explicit override.
func NewMemoryStorage(defaultNgramLength uint64) *Storage {
	tbl := symbol.NewTable()
	terms := symbol.NewTerminals(symbol.StartOfSentence, symbol.EndOfSentence)
	return &Storage{
		table:              tbl,
		terminals:          terms,
		Forward:            memtrie.New(terms),
		Backward:           memtrie.New(terms),
		defaultNgramLength: defaultNgramLength,
	}
}

// OpenPersistentStorage opens (creating if absent) a bidirectional facade
// rooted at storePath, laid out exactly as spec §6 describes: three
// badger-backed subdirectories, storePath/fwd, storePath/bwd and
// storePath/config, one per trie direction plus the shared symbol table
// and default-ngram-length setting. defaultNgramLength seeds the config
// store's persisted default on first open, and is re-written on every
// open so a caller that changes it always takes effect.
func OpenPersistentStorage(storePath string, defaultNgramLength uint64) (*Storage, error) {
	fwd, closeFwd, err := kvstore.OpenBadger(filepath.Join(storePath, "fwd"))
	if err != nil {
		return nil, xerrors.Errorf("bidi: opening forward store: %w", err)
	}
	bwd, closeBwd, err := kvstore.OpenBadger(filepath.Join(storePath, "bwd"))
	if err != nil {
		_ = closeFwd()
		return nil, xerrors.Errorf("bidi: opening backward store: %w", err)
	}
	config, closeConfig, err := kvstore.OpenBadger(filepath.Join(storePath, "config"))
	if err != nil {
		_ = closeFwd()
		_ = closeBwd()
		return nil, xerrors.Errorf("bidi: opening config store: %w", err)
	}

	s := newPersistentStorage(fwd, bwd, config, defaultNgramLength)
	s.closeFn = func() error {
		return firstErr(closeFwd(), closeBwd(), closeConfig())
	}
	return s, nil
}

// OpenPersistentStorageFromStores builds a bidirectional facade directly
// from three already-open stores instead of opening badger directories
// itself: one per trie direction plus one for the shared symbol table and
// default-ngram-length config. This is the same physical fwd/bwd/config
// split spec §6 describes, just with the caller supplying the stores (for
// example three kvstore.NewMapDB() instances, exercising the persistent
// trie's exact on-disk record layout without touching disk, the way
// trie_bench supports both mapdb and badger behind the same adaptor).
func OpenPersistentStorageFromStores(fwd, bwd, config kvstore.Store, defaultNgramLength uint64) *Storage {
	return newPersistentStorage(fwd, bwd, config, defaultNgramLength)
}

func newPersistentStorage(fwd, bwd, config kvstore.Store, defaultNgramLength uint64) *Storage {
	tbl := symbol.Load(config)
	terms := symbol.NewTerminals(symbol.StartOfSentence, symbol.EndOfSentence)
	kvstore.WriteDefaultNgramLength(config, defaultNgramLength)

	return &Storage{
		table:              tbl,
		terminals:          terms,
		Forward:            kvstore.Open(fwd, tbl, terms),
		Backward:           kvstore.Open(bwd, tbl, terms),
		symWriter:          config,
		defaultNgramLength: defaultNgramLength,
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Close releases the stores backing a persistent Storage (spec §6's
// construct/close pair). A no-op for an in-memory facade.
func (s *Storage) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// Table exposes the shared symbol table so callers can intern tokens
// before building an n-gram's id sequence.
func (s *Storage) Table() *symbol.Table { return s.table }

// AddTerminal marks id as an additional terminal symbol beyond the two
// sentence-boundary sentinels, for callers whose domain has other natural
// stopping points (e.g. punctuation) that should bound a successor
// distribution the same way (spec §4.2). Affects both directions, since
// they share one Terminals set.
func (s *Storage) AddTerminal(id symbol.ID) {
	s.terminals.Add(id)
}

// AddSentence interns every token, wraps the sequence with the
// start/end-of-sentence sentinels, then feeds every n-gram of length up to
// maxOrder (inclusive) from both the forward sequence and its reverse into
// the matching trie, each with frequency freq (spec §4.5, §6). maxOrder is
// optional: omit it to use the facade's defaultNgramLength.
func (s *Storage) AddSentence(tokens [][]byte, freq uint64, maxOrder ...int) {
	common.Assert(len(maxOrder) <= 1, "bidi: AddSentence takes at most one maxOrder override")
	order := int(s.defaultNgramLength)
	if len(maxOrder) == 1 {
		order = maxOrder[0]
	}
	common.Assert(order > 0, "bidi: maxOrder must be positive")

	before := s.table.Len()
	ids := make([]symbol.ID, 0, len(tokens)+2)
	ids = append(ids, symbol.StartOfSentence)
	for _, tok := range tokens {
		ids = append(ids, s.table.Intern(tok))
	}
	ids = append(ids, symbol.EndOfSentence)

	if s.symWriter != nil && s.table.Len() != before {
		s.table.Persist(s.symWriter)
	}

	addAllNgrams(s.Forward, ids, order, freq)
	addAllNgrams(s.Backward, reversed(ids), order, freq)
}

// AddNgram feeds a single already-interned n-gram (and its reverse) into
// both directions, for callers that don't want AddSentence's automatic
// sliding window.
func (s *Storage) AddNgram(ids []symbol.ID, freq uint64) {
	s.Forward.AddNgram(ids, freq)
	s.Backward.AddNgram(reversed(ids), freq)
}

func addAllNgrams(t Trie, ids []symbol.ID, maxOrder int, freq uint64) {
	for start := 0; start < len(ids); start++ {
		end := start + maxOrder
		if end > len(ids) {
			end = len(ids)
		}
		t.AddNgram(ids[start:end], freq)
	}
}

func reversed(ids []symbol.ID) []symbol.ID {
	out := make([]symbol.ID, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

// QueryCount returns the forward trie's count for ids. The Open Question
// of whether a bidirectional count should average forward and backward is
// resolved in favor of the forward count alone (spec §9): the backward
// trie observes a different, reversed key space, so "the count of ids"
// only has one unambiguous reading.
func (s *Storage) QueryCount(ids []symbol.ID) uint64 {
	return s.Forward.QueryCount(ids)
}

// QueryEntropy returns the mean of the forward and backward entropy for
// ids (forward) and its reverse (backward), propagating NaN from either
// side rather than silently falling back to the forward-only value (spec
// §9 Open Question, resolved in favor of NaN propagation: a direction with
// no data says nothing about autonomy, it does not default to "as if this
// direction didn't exist").
func (s *Storage) QueryEntropy(ids []symbol.ID) float64 {
	return bidiMean(s.Forward.QueryEntropy(ids), s.Backward.QueryEntropy(reversed(ids)))
}

// QueryEV mirrors QueryEntropy's NaN-propagating mean for entropy
// variation.
func (s *Storage) QueryEV(ids []symbol.ID) float64 {
	return bidiMean(s.Forward.QueryEV(ids), s.Backward.QueryEV(reversed(ids)))
}

// QueryAutonomy mirrors QueryEntropy's NaN-propagating mean for the
// autonomy z-score.
func (s *Storage) QueryAutonomy(ids []symbol.ID) float64 {
	return bidiMean(s.Forward.QueryAutonomy(ids), s.Backward.QueryAutonomy(reversed(ids)))
}

func bidiMean(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	return (a + b) / 2
}

// UpdateStats recomputes both directions' normalization vectors.
func (s *Storage) UpdateStats() {
	s.Forward.UpdateStats()
	s.Backward.UpdateStats()
}

// Clear empties both directions. The shared symbol table and terminals set
// are untouched: ids already handed out to callers remain valid, they just
// stop resolving to any observed count.
func (s *Storage) Clear() {
	s.Forward.Clear()
	s.Backward.Clear()
}
