package store

// mem.go — the in-memory mock Storage, backed by github.com/google/btree
// for ordered range scans (spec §4.1's "in-memory mock").
//
// Grounded on core/virtual_machine.go's memState (in-memory StateRW
// implementation used by the test/debug VM paths); the ordered-scan
// requirement (min inclusive, max exclusive, ascending/descending) is
// new versus the teacher's unordered map and is satisfied via btree.

import (
	"bytes"

	"github.com/google/btree"
)

type kv struct {
	key   []byte
	value []byte
}

func lessKV(a, b kv) bool { return bytes.Compare(a.key, b.key) < 0 }

// MemStore is a thread-unsafe in-memory Storage; callers needing
// concurrency wrap it in Shared.
type MemStore struct {
	tree *btree.BTreeG[kv]
}

func NewMemStore() *MemStore {
	return &MemStore{tree: btree.NewG(32, lessKV)}
}

func (m *MemStore) Read(key []byte) ([]byte, bool) {
	item, ok := m.tree.Get(kv{key: key})
	if !ok {
		return nil, false
	}
	return item.value, true
}

func (m *MemStore) Write(key, value []byte) {
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	m.tree.ReplaceOrInsert(kv{key: k, value: v})
}

func (m *MemStore) Remove(key []byte) {
	m.tree.Delete(kv{key: key})
}

func (m *MemStore) RemoveRange(min, max []byte) {
	if min != nil && max != nil && bytes.Compare(min, max) > 0 {
		return
	}
	var toDelete [][]byte
	m.rangeAscend(min, max, func(k, _ []byte) bool {
		toDelete = append(toDelete, append([]byte(nil), k...))
		return true
	})
	for _, k := range toDelete {
		m.tree.Delete(kv{key: k})
	}
}

func (m *MemStore) rangeAscend(min, max []byte, fn func(k, v []byte) bool) {
	iter := func(item kv) bool {
		if max != nil && bytes.Compare(item.key, max) >= 0 {
			return false
		}
		return fn(item.key, item.value)
	}
	if min == nil {
		m.tree.Ascend(iter)
	} else {
		m.tree.AscendGreaterOrEqual(kv{key: min}, iter)
	}
}

func (m *MemStore) Scan(min, max []byte, order Order) Iterator {
	if min != nil && max != nil && bytes.Compare(min, max) > 0 {
		return &sliceIterator{}
	}
	var recs []Record
	if order == Ascending {
		m.rangeAscend(min, max, func(k, v []byte) bool {
			recs = append(recs, Record{Key: append([]byte(nil), k...), Value: append([]byte(nil), v...)})
			return true
		})
	} else {
		iter := func(item kv) bool {
			if min != nil && bytes.Compare(item.key, min) < 0 {
				return false
			}
			recs = append(recs, Record{Key: append([]byte(nil), item.key...), Value: append([]byte(nil), item.value...)})
			return true
		}
		if max == nil {
			m.tree.Descend(iter)
		} else {
			m.tree.DescendLessOrEqual(kv{key: max}, func(item kv) bool {
				if bytes.Equal(item.key, max) {
					return true // max is exclusive
				}
				return iter(item)
			})
		}
	}
	return &sliceIterator{recs: recs}
}

type sliceIterator struct {
	recs []Record
	pos  int
}

func (s *sliceIterator) Next() (Record, bool) {
	if s.pos >= len(s.recs) {
		return Record{}, false
	}
	r := s.recs[s.pos]
	s.pos++
	return r, true
}

func (s *sliceIterator) Close() {}
