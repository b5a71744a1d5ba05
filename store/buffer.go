package store

// buffer.go — the copy-on-write pending-op layer (spec §4.1): a Buffer
// wraps any Storage, records pending {Insert|Delete} ops, and merges
// them with the underlying store during scans.
//
// No direct teacher analogue (the teacher's ledger mutates storage
// directly); the pending-map bookkeeping idiom (without a mutex) is grounded on
// core/vm_sandbox_management.go's global map pattern, generalized here
// per-instance instead of process-global.

import "bytes"

// Buffer layers pending writes over an underlying Storage. Reads
// consult the pending map first; Scan interleaves the pending range
// with the underlying store via a merge-iterator.
type Buffer struct {
	underlying Storage
	pending    Batch
	// pending is an unordered map; the merge-iterator sorts its keys
	// when scanning.
}

// NewBuffer wraps underlying in a fresh Buffer with no pending ops.
func NewBuffer(underlying Storage) *Buffer {
	return &Buffer{underlying: underlying, pending: Batch{}}
}

func (b *Buffer) Read(key []byte) ([]byte, bool) {
	if op, ok := b.pending[string(key)]; ok {
		if op.Delete {
			return nil, false
		}
		return op.Insert, true
	}
	return b.underlying.Read(key)
}

func (b *Buffer) Write(key, value []byte) {
	b.pending[string(key)] = Op{Insert: append([]byte(nil), value...)}
}

func (b *Buffer) Remove(key []byte) {
	b.pending[string(key)] = Op{Delete: true}
}

func (b *Buffer) RemoveRange(min, max []byte) {
	it := b.underlying.Scan(min, max, Ascending)
	for {
		rec, ok := it.Next()
		if !ok {
			break
		}
		b.pending[string(rec.Key)] = Op{Delete: true}
	}
	it.Close()
	for k := range b.pending {
		kb := []byte(k)
		if withinRange(kb, min, max) {
			b.pending[k] = Op{Delete: true}
		}
	}
}

func withinRange(k, min, max []byte) bool {
	if min != nil && bytes.Compare(k, min) < 0 {
		return false
	}
	if max != nil && bytes.Compare(k, max) >= 0 {
		return false
	}
	return true
}

// Scan merges the pending ops over [min,max) with the underlying
// store's range: at each step compare next keys; on equality the
// pending op wins (insert yields its value, delete skips to next).
func (b *Buffer) Scan(min, max []byte, order Order) Iterator {
	if min != nil && max != nil && bytes.Compare(min, max) > 0 {
		return &sliceIterator{}
	}
	pendingRecs := b.pendingRange(min, max, order)
	underRecs := drain(b.underlying.Scan(min, max, order))

	merged := make([]Record, 0, len(pendingRecs)+len(underRecs))
	i, j := 0, 0
	less := func(a, b []byte) bool {
		if order == Ascending {
			return bytes.Compare(a, b) < 0
		}
		return bytes.Compare(a, b) > 0
	}
	for i < len(pendingRecs) && j < len(underRecs) {
		pk, uk := pendingRecs[i].key, underRecs[j].Key
		switch {
		case bytes.Equal(pk, uk):
			if !pendingRecs[i].del {
				merged = append(merged, Record{Key: pk, Value: pendingRecs[i].val})
			}
			i++
			j++
		case less(pk, uk):
			if !pendingRecs[i].del {
				merged = append(merged, Record{Key: pk, Value: pendingRecs[i].val})
			}
			i++
		default:
			merged = append(merged, underRecs[j])
			j++
		}
	}
	for ; i < len(pendingRecs); i++ {
		if !pendingRecs[i].del {
			merged = append(merged, Record{Key: pendingRecs[i].key, Value: pendingRecs[i].val})
		}
	}
	for ; j < len(underRecs); j++ {
		merged = append(merged, underRecs[j])
	}
	return &sliceIterator{recs: merged}
}

type pendingRec struct {
	key []byte
	val []byte
	del bool
}

func (b *Buffer) pendingRange(min, max []byte, order Order) []pendingRec {
	var out []pendingRec
	for k, op := range b.pending {
		kb := []byte(k)
		if !withinRange(kb, min, max) {
			continue
		}
		out = append(out, pendingRec{key: kb, val: op.Insert, del: op.Delete})
	}
	sortPending(out, order)
	return out
}

func sortPending(recs []pendingRec, order Order) {
	for i := 1; i < len(recs); i++ {
		for j := i; j > 0; j-- {
			var swap bool
			if order == Ascending {
				swap = bytes.Compare(recs[j].key, recs[j-1].key) < 0
			} else {
				swap = bytes.Compare(recs[j].key, recs[j-1].key) > 0
			}
			if !swap {
				break
			}
			recs[j], recs[j-1] = recs[j-1], recs[j]
		}
	}
}

func drain(it Iterator) []Record {
	var out []Record
	for {
		rec, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, rec)
	}
	it.Close()
	return out
}

// Flush accepts another batch, overwriting on conflicting keys, and
// merges it into this buffer's own pending set (used when promoting a
// nested buffer's ops into its parent).
func (b *Buffer) Flush(batch Batch) {
	for k, op := range batch {
		b.pending[string(k)] = op
	}
}

// PendingBatch returns a copy of this buffer's pending ops, for
// promotion into a parent buffer or for the final commit to the DB.
func (b *Buffer) PendingBatch() Batch {
	out := make(Batch, len(b.pending))
	for k, v := range b.pending {
		out[k] = v
	}
	return out
}

// Discard clears all pending ops without touching the underlying
// store (used when a tx/message buffer aborts).
func (b *Buffer) Discard() {
	b.pending = Batch{}
}
