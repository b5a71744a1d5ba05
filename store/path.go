package store

// path.go — typed Item/Map/IndexedMap path builders over the
// length-prefixed namespace key layout of spec §3/§6:
//
//   len_be_u16(namespace) ‖ namespace ‖ (len_be_u16(part_i) ‖ part_i)_{i=0..N-2} ‖ part_{N-1}
//
// No teacher analogue; built fresh using codec/borshlike for value
// encoding, per DESIGN.md.

import (
	"encoding/binary"
)

// lengthPrefix returns len_be_u16(b) ‖ b.
func lengthPrefix(b []byte) []byte {
	out := make([]byte, 2+len(b))
	binary.BigEndian.PutUint16(out, uint16(len(b)))
	copy(out[2:], b)
	return out
}

// BuildMapKey constructs a Map key: the namespace is always
// length-prefixed; every key part except the last is length-prefixed;
// the last part is written raw. This matches spec §8 scenario 6
// exactly: Map<(&str,&str)> with namespace "ab" and key ("ab","cd")
// produces `00 02 "ab" 00 02 "ab" "cd"`.
func BuildMapKey(namespace []byte, parts [][]byte) []byte {
	out := lengthPrefix(namespace)
	for i, p := range parts {
		if i == len(parts)-1 {
			out = append(out, p...)
		} else {
			out = append(out, lengthPrefix(p)...)
		}
	}
	return out
}

// Item is a single value stored at a fixed namespace path.
type Item[T any] struct {
	namespace []byte
	encode    func(T) []byte
	decode    func([]byte) (T, error)
}

func NewItem[T any](namespace string, encode func(T) []byte, decode func([]byte) (T, error)) *Item[T] {
	return &Item[T]{namespace: []byte(namespace), encode: encode, decode: decode}
}

func (it *Item[T]) key() []byte { return lengthPrefix(it.namespace) }

func (it *Item[T]) Load(s Storage) (T, bool, error) {
	var zero T
	raw, ok := s.Read(it.key())
	if !ok {
		return zero, false, nil
	}
	v, err := it.decode(raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (it *Item[T]) Save(s Storage, v T) {
	s.Write(it.key(), it.encode(v))
}

func (it *Item[T]) Remove(s Storage) { s.Remove(it.key()) }

// Map is a namespace of keys each made of one or more parts, encoded
// per BuildMapKey, holding typed values.
type Map[T any] struct {
	namespace []byte
	encode    func(T) []byte
	decode    func([]byte) (T, error)
}

func NewMap[T any](namespace string, encode func(T) []byte, decode func([]byte) (T, error)) *Map[T] {
	return &Map[T]{namespace: []byte(namespace), encode: encode, decode: decode}
}

func (m *Map[T]) Key(parts ...[]byte) []byte {
	return BuildMapKey(m.namespace, parts)
}

func (m *Map[T]) Load(s Storage, parts ...[]byte) (T, bool, error) {
	var zero T
	raw, ok := s.Read(m.Key(parts...))
	if !ok {
		return zero, false, nil
	}
	v, err := m.decode(raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (m *Map[T]) Save(s Storage, v T, parts ...[]byte) {
	s.Write(m.Key(parts...), m.encode(v))
}

func (m *Map[T]) Remove(s Storage, parts ...[]byte) { s.Remove(m.Key(parts...)) }

// Prefix returns [min,max) bounds covering every key under the given
// leading parts (for a range scan of all entries sharing a prefix).
func (m *Map[T]) Prefix(parts ...[]byte) (min, max []byte) {
	min = BuildMapKey(m.namespace, parts)
	max = append([]byte(nil), min...)
	max = incrementBytes(max)
	return min, max
}

// ScanPage iterates entries under the given prefix parts in ascending
// key order, decoding each value, starting strictly after startAfter
// (nil scans from the beginning) and returning at most limit results
// (0 means unbounded). The returned keys are the trailing part bytes
// with the namespace prefix stripped off.
func (m *Map[T]) ScanPage(s Storage, startAfter []byte, limit int, parts ...[]byte) (keys [][]byte, values []T, err error) {
	min, max := m.Prefix(parts...)
	if startAfter != nil {
		afterParts := append(append([][]byte{}, parts...), startAfter)
		min = append(BuildMapKey(m.namespace, afterParts), 0x00)
	}
	it := s.Scan(min, max, Ascending)
	defer it.Close()
	skip := len(lengthPrefix(m.namespace))
	for limit <= 0 || len(values) < limit {
		rec, ok := it.Next()
		if !ok {
			break
		}
		v, derr := m.decode(rec.Value)
		if derr != nil {
			return nil, nil, derr
		}
		key := rec.Key
		if len(key) >= skip {
			key = key[skip:]
		}
		keys = append(keys, key)
		values = append(values, v)
	}
	return keys, values, nil
}

func incrementBytes(b []byte) []byte {
	out := append([]byte(nil), b...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] < 0xff {
			out[i]++
			return out
		}
		out[i] = 0
	}
	return append(out, 0xff)
}

// IndexedMap is a primary Map plus secondary index maps maintained
// transactionally: every Save/Remove on the primary also updates each
// index.
type IndexedMap[T any] struct {
	Primary *Map[T]
	indexes []func(s Storage, old, new *T, parts [][]byte)
}

func NewIndexedMap[T any](primary *Map[T]) *IndexedMap[T] {
	return &IndexedMap[T]{Primary: primary}
}

// AddIndex registers a secondary-index maintenance function, invoked
// on every Save/Remove with the old (nil if none) and new (nil on
// remove) values.
func (im *IndexedMap[T]) AddIndex(fn func(s Storage, old, new *T, parts [][]byte)) {
	im.indexes = append(im.indexes, fn)
}

func (im *IndexedMap[T]) Save(s Storage, v T, parts ...[]byte) {
	old, existed, _ := im.Primary.Load(s, parts...)
	im.Primary.Save(s, v, parts...)
	var oldPtr *T
	if existed {
		oldPtr = &old
	}
	newV := v
	for _, fn := range im.indexes {
		fn(s, oldPtr, &newV, parts)
	}
}

func (im *IndexedMap[T]) Remove(s Storage, parts ...[]byte) {
	old, existed, _ := im.Primary.Load(s, parts...)
	im.Primary.Remove(s, parts...)
	if !existed {
		return
	}
	for _, fn := range im.indexes {
		fn(s, &old, nil, parts)
	}
}

// BorshBytesCodec is a convenience identity codec for []byte values.
func BorshBytesCodec() (encode func([]byte) []byte, decode func([]byte) ([]byte, error)) {
	return func(v []byte) []byte { return v },
		func(b []byte) ([]byte, error) { return b, nil }
}
