package store

import (
	"bytes"
	"testing"
)

func TestScanMinAfterMaxIsEmpty(t *testing.T) {
	m := NewMemStore()
	m.Write([]byte("a"), []byte("1"))
	m.Write([]byte("b"), []byte("2"))

	it := m.Scan([]byte("z"), []byte("a"), Ascending)
	if _, ok := it.Next(); ok {
		t.Fatalf("expected empty iterator when min > max")
	}

	buf := NewBuffer(m)
	bit := buf.Scan([]byte("z"), []byte("a"), Ascending)
	if _, ok := bit.Next(); ok {
		t.Fatalf("expected empty buffered iterator when min > max")
	}
}

func TestBufferMergeIteratorEquivalence(t *testing.T) {
	cases := []struct {
		name    string
		base    map[string]string
		pending map[string]Op
	}{
		{
			name: "insert and delete interleaved",
			base: map[string]string{"a": "1", "c": "3", "e": "5"},
			pending: map[string]Op{
				"b": {Insert: []byte("2")},
				"c": {Delete: true},
				"d": {Insert: []byte("4")},
			},
		},
		{
			name:    "pure insert",
			base:    map[string]string{},
			pending: map[string]Op{"x": {Insert: []byte("9")}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMemStore()
			for k, v := range tc.base {
				m.Write([]byte(k), []byte(v))
			}
			buf := NewBuffer(m)
			for k, op := range tc.pending {
				if op.Delete {
					buf.Remove([]byte(k))
				} else {
					buf.Write([]byte(k), op.Insert)
				}
			}

			// Expected: apply the same ops directly to a fresh MemStore.
			direct := NewMemStore()
			for k, v := range tc.base {
				direct.Write([]byte(k), []byte(v))
			}
			for k, op := range tc.pending {
				if op.Delete {
					direct.Remove([]byte(k))
				} else {
					direct.Write([]byte(k), op.Insert)
				}
			}

			got := drain(buf.Scan(nil, nil, Ascending))
			want := drain(direct.Scan(nil, nil, Ascending))
			if len(got) != len(want) {
				t.Fatalf("length mismatch: got %d want %d", len(got), len(want))
			}
			for i := range got {
				if !bytes.Equal(got[i].Key, want[i].Key) || !bytes.Equal(got[i].Value, want[i].Value) {
					t.Fatalf("record %d mismatch: got %+v want %+v", i, got[i], want[i])
				}
			}
		})
	}
}

func TestMapKeyEncodingScenario(t *testing.T) {
	// spec scenario 6: Map<(&str,&str), u32> with (("ab","cd"), 7)
	// produces raw key `00 02 "ab" 00 02 "ab" "cd"`.
	key := BuildMapKey([]byte("ab"), [][]byte{[]byte("ab"), []byte("cd")})
	want := []byte{0x00, 0x02, 'a', 'b', 0x00, 0x02, 'a', 'b', 'c', 'd'}
	if !bytes.Equal(key, want) {
		t.Fatalf("got % x want % x", key, want)
	}
}
