// Package kvstore implements the persistent, ordered-key-value-backed
// entropy trie realization (spec §4.3 "persistent ordered-KV-backed"
// variant). A path's node record is keyed by its depth and the raw bytes
// of the symbols along the path, joined by a 0x00 separator, so all
// children of a node share one key prefix (one depth deeper, the node's
// path plus a trailing separator; see childPrefix) and can be range-scanned.
package kvstore

import (
	"bytes"

	"github.com/kodexlab/eleve-go/common"
	"github.com/kodexlab/eleve-go/entropy"
	"github.com/kodexlab/eleve-go/symbol"
)

// Key space, partitioned by a one-byte tag so node records, normalization
// entries, the dirty flag and config never collide.
const (
	tagNode   = byte(0x01)
	tagMeta   = byte(0xFF)
	metaDirty = byte(0x00)
	// metaNorm keys are 0xFF || 0x01 || depth(1) so they sort together and
	// after the single dirty-flag key.
	metaNormPrefix = byte(0x01)
)

// configDefaultNgramLength is the config store key for the trie's default
// n-gram length, used by callers that don't pin one explicitly (spec §6).
const configDefaultNgramLength = "default_ngram_length"

// nodeKey encodes the node record key for the path of raw symbol-token
// bytes at depth len(path): 0x01 || depth(1) || tok0 || 0x00 || tok1 ...
// The root (path == nil) encodes as 0x01 || 0x00 with no trailing bytes.
func nodeKey(path [][]byte) []byte {
	depth := len(path)
	common.Assert(depth <= 0xFF, "kvstore: path depth exceeds encoding width")
	buf := common.Concat(tagNode, byte(depth))
	for _, tok := range path {
		buf = common.Concat(buf, tok, byte(0x00))
	}
	if depth > 0 {
		// drop the trailing separator after the last token: separators only
		// delimit between tokens, and the prefix scan for children adds its
		// own terminating 0x00 (see childPrefix).
		buf = buf[:len(buf)-1]
	}
	return buf
}

// childPrefix returns the key prefix every direct child of the node at
// path shares: one depth deeper, path's own encoding followed by a
// terminating separator so a shallower sibling can never match.
func childPrefix(path [][]byte) []byte {
	depth := len(path) + 1
	common.Assert(depth <= 0xFF, "kvstore: path depth exceeds encoding width")
	buf := common.Concat(tagNode, byte(depth))
	for _, tok := range path {
		buf = common.Concat(buf, tok, byte(0x00))
	}
	return buf
}

// lastToken extracts the final symbol's raw bytes from a child key built
// with childPrefix(path) as its prefix.
func lastToken(childKey []byte, prefix []byte) []byte {
	rest := childKey[len(prefix):]
	if i := bytes.IndexByte(rest, 0x00); i >= 0 {
		return rest[:i]
	}
	return rest
}

// nodeRecord is the value stored at a node key: its occurrence count and
// its cached entropy, with an explicit "known" flag so an un-computed cache
// is distinguishable from a legitimately NaN one without relying on a
// float bit pattern (mirrors memtrie's unknownEntropy sentinel, spec §9).
type nodeRecord struct {
	count        uint64
	entropy      float64
	entropyKnown bool
}

func encodeNodeRecord(r nodeRecord) []byte {
	known := byte(0)
	val := float32(0)
	if r.entropyKnown {
		known = 1
		val = float32(r.entropy)
	}
	return common.Concat(common.Uint64To8Bytes(r.count), known, common.Float32To4Bytes(val))
}

func decodeNodeRecord(b []byte) nodeRecord {
	common.Assert(len(b) == 13, "kvstore: malformed node record, want 13 bytes, got %d", len(b))
	r := nodeRecord{count: common.Uint64From8Bytes(b[:8])}
	if b[8] == 1 {
		r.entropyKnown = true
		r.entropy = float64(common.Float32From4Bytes(b[9:13]))
	}
	return r
}

// normKey encodes the normalization entry key for depth (1-indexed, unlike
// memtrie's depth-1 slice convention: the persistent variant indexes
// normalization directly by depth since record keys already carry depth
// explicitly, so there is no off-by-one savings from shifting it — spec §9
// Open Question, resolved here in favor of whichever convention is more
// natural to each realization's own key space).
func normKey(depth int) []byte {
	common.Assert(depth >= 1 && depth <= 0xFF, "kvstore: normalization depth out of range")
	return common.Concat(tagMeta, metaNormPrefix, byte(depth))
}

func encodeNorm(e entropy.NormEntry) []byte {
	return common.Concat(common.Float32To4Bytes(float32(e.Mean)), common.Float32To4Bytes(float32(e.Stdev)), common.Uint64To8Bytes(e.Count))
}

func decodeNorm(b []byte) entropy.NormEntry {
	common.Assert(len(b) == 16, "kvstore: malformed normalization record, want 16 bytes, got %d", len(b))
	return entropy.NormEntry{
		Mean:  float64(common.Float32From4Bytes(b[0:4])),
		Stdev: float64(common.Float32From4Bytes(b[4:8])),
		Count: common.Uint64From8Bytes(b[8:16]),
	}
}

func dirtyKey() []byte { return common.Concat(tagMeta, metaDirty) }

func encodeDirty(dirty bool) []byte {
	if dirty {
		return []byte{1}
	}
	return []byte{0}
}

func decodeDirty(b []byte) bool {
	return len(b) == 1 && b[0] == 1
}

// configKey builds the config-partition key for name (spec §6: a small
// key space outside the node-record tree, e.g. default_ngram_length).
func configKey(name string) []byte {
	return common.Concat(tagMeta, byte(0x02), []byte(name))
}

// pathTokens resolves a path of symbol ids to their raw token bytes via
// tbl, in order. Every id on a path reached through AddNgram/QueryX was
// interned through the same table, so Token never fails here (a failure
// means caller passed ids foreign to this trie's table).
func pathTokens(tbl *symbol.Table, ids []symbol.ID) [][]byte {
	out := make([][]byte, len(ids))
	for i, id := range ids {
		tok, ok := tbl.Token(id)
		common.Assert(ok, "kvstore: id %d not registered in symbol table", id)
		out[i] = tok
	}
	return out
}
