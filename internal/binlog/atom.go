// Package binlog implements the append-only binary log that mirrors every
// mutation performed on a column, so the column can be rebuilt by replay.
//
// Wire format (little-endian, packed, no padding):
//
//	offset 0..4   : u32 record length L (size in bytes of one Atom record)
//	offset 4..20  : 16-byte UUID v5 schema fingerprint
//	offset 20..   : repeated L-byte Atom records, back to back
//
// Each Atom record is op:1 || key:sizeof(K) || value:sizeof(V) || delta:sizeof(D).
package binlog

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/retable-io/retable/internal/column"
)

// headerSize is the fixed 4-byte length prefix plus 16-byte UUID tag.
const headerSize = 4 + 16

// Atom is the on-log record shape: one mutation against a column. It mirrors
// column.LoggedOp[K,V,D] field-for-field; binlog converts between the two,
// so column never needs to import binlog.
type Atom[K, V, D any] struct {
	Op    column.Op
	Key   K
	Value V
	Delta D
}

// recordSize reports sizeof(Atom[K,V,D]) as it appears on disk: 1 (op) plus
// the packed sizes of K, V, D. Panics if any of K, V, D is not a fixed-width
// type binary.Write can handle; the log only stores bitwise-copyable types,
// so this is a precondition violation, not a runtime data error.
func recordSize[K, V, D any]() int {
	var k K
	var v V
	var d D
	ks := binary.Size(k)
	vs := binary.Size(v)
	ds := binary.Size(d)
	if ks < 0 || vs < 0 || ds < 0 {
		panic(fmt.Sprintf("binlog: K, V, and D must be fixed-width (got sizes %d, %d, %d)", ks, vs, ds))
	}
	return 1 + ks + vs + ds
}

// fingerprint derives the schema UUID from the fully-qualified type name of
// Atom<K,V,D>: UUID v5 over the nil namespace. Any change to K, V, or D
// changes the name and forces a new log file.
func fingerprint[K, V, D any]() uuid.UUID {
	var k K
	var v V
	var d D
	name := fmt.Sprintf("Atom<%s,%s,%s>",
		reflect.TypeOf(k).String(),
		reflect.TypeOf(v).String(),
		reflect.TypeOf(d).String(),
	)
	return uuid.NewSHA1(uuid.Nil, []byte(name))
}

// encode packs a into exactly recordSize[K,V,D]() bytes.
func encode[K, V, D any](a Atom[K, V, D]) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(recordSize[K, V, D]())
	_ = binary.Write(buf, binary.LittleEndian, a.Op)
	_ = binary.Write(buf, binary.LittleEndian, a.Key)
	_ = binary.Write(buf, binary.LittleEndian, a.Value)
	_ = binary.Write(buf, binary.LittleEndian, a.Delta)
	return buf.Bytes()
}

// decode unpacks exactly recordSize[K,V,D]() bytes of raw into an Atom.
func decode[K, V, D any](raw []byte) (Atom[K, V, D], error) {
	var a Atom[K, V, D]
	r := bytes.NewReader(raw)
	if err := binary.Read(r, binary.LittleEndian, &a.Op); err != nil {
		return a, err
	}
	if err := binary.Read(r, binary.LittleEndian, &a.Key); err != nil {
		return a, err
	}
	if err := binary.Read(r, binary.LittleEndian, &a.Value); err != nil {
		return a, err
	}
	if err := binary.Read(r, binary.LittleEndian, &a.Delta); err != nil {
		return a, err
	}
	return a, nil
}
