package common

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Assert panics with a formatted message if cond is false. Used for invariants
// that must hold in any correctly functioning trie (sum-of-counts, key order);
// violating one is a bug, not a recoverable runtime condition.
func Assert(cond bool, format string, p ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, p...))
	}
}

// Concat concatenates the bytes of byte-able values: []byte, byte and string.
func Concat(par ...interface{}) []byte {
	var buf bytes.Buffer
	for _, p := range par {
		switch p := p.(type) {
		case []byte:
			buf.Write(p)
		case byte:
			buf.WriteByte(p)
		case string:
			buf.Write([]byte(p))
		default:
			Assert(false, "Concat: unsupported type %T", p)
		}
	}
	return buf.Bytes()
}

func ReadByte(r io.Reader) (byte, error) {
	var b [1]byte
	_, err := io.ReadFull(r, b[:])
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func WriteByte(w io.Writer, val byte) error {
	_, err := w.Write([]byte{val})
	return err
}

func ReadBytes16(r io.Reader) ([]byte, error) {
	var length uint16
	if err := ReadUint16(r, &length); err != nil {
		return nil, err
	}
	if length == 0 {
		return []byte{}, nil
	}
	ret := make([]byte, length)
	_, err := io.ReadFull(r, ret)
	return ret, err
}

func WriteBytes16(w io.Writer, data []byte) error {
	Assert(len(data) <= math.MaxUint16, "WriteBytes16: data too long (%d)", len(data))
	if err := WriteUint16(w, uint16(len(data))); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	_, err := w.Write(data)
	return err
}

func ReadUint16(r io.Reader, pval *uint16) error {
	var tmp [2]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return err
	}
	*pval = binary.LittleEndian.Uint16(tmp[:])
	return nil
}

func WriteUint16(w io.Writer, val uint16) error {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], val)
	_, err := w.Write(tmp[:])
	return err
}

func Uint32To4Bytes(val uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], val)
	return tmp[:]
}

func Uint32From4Bytes(b []byte) uint32 {
	Assert(len(b) == 4, "Uint32From4Bytes: len(b) != 4")
	return binary.LittleEndian.Uint32(b)
}

func Uint64To8Bytes(val uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], val)
	return tmp[:]
}

func Uint64From8Bytes(b []byte) uint64 {
	Assert(len(b) == 8, "Uint64From8Bytes: len(b) != 8")
	return binary.LittleEndian.Uint64(b)
}

// Float32To4Bytes and Float32From4Bytes encode the persistent record's cached
// entropy/normalization fields (see store/kvstore record layout).
func Float32To4Bytes(val float32) []byte {
	return Uint32To4Bytes(math.Float32bits(val))
}

func Float32From4Bytes(b []byte) float32 {
	return math.Float32frombits(Uint32From4Bytes(b))
}
