// Package store implements the storage abstractions of SPEC_FULL.md §2.2:
// a Storage interface, an in-memory mock, a copy-on-write buffer with
// merged iteration, an RWMutex-guarded shared wrapper, and typed
// Item/Map/IndexedMap path builders.
//
// Grounded on core/common_structs.go's StateRW/StateIterator interfaces
// (kept shape, trimmed to the spec's exact surface).
package store

import "grug/apperror"

// Order is the iteration direction for Scan.
type Order int

const (
	Ascending Order = iota
	Descending
)

// Record is a single key/value pair yielded by an Iterator.
type Record struct {
	Key   []byte
	Value []byte
}

// Iterator yields Records in the requested order. Next returns
// ok=false once exhausted.
type Iterator interface {
	Next() (rec Record, ok bool)
	Close()
}

// Storage is the read/scan/write/remove/remove-range surface every tier of
// the database (flat store, commitment store) and every layer
// (buffer, shared wrapper) implements uniformly.
type Storage interface {
	// Read returns the value for key, or ok=false if absent.
	Read(key []byte) (value []byte, ok bool)
	// Scan returns an iterator over [min, max) in the given order. If
	// min is non-nil and max is non-nil and min > max, Scan returns an
	// empty iterator (spec §4.1 invariant), never panics.
	Scan(min, max []byte, order Order) Iterator
	// Write sets key to value.
	Write(key, value []byte)
	// Remove deletes key if present; a no-op otherwise.
	Remove(key []byte)
	// RemoveRange deletes every key in [min, max).
	RemoveRange(min, max []byte)
}

// Op is a pending operation recorded by a Buffer.
type Op struct {
	Insert []byte // non-nil means insert; nil + Delete=true means delete
	Delete bool
}

// Batch is a set of pending key -> Op entries, applied atomically by
// Flush (spec §4.1 commit protocol).
type Batch map[string]Op

// ErrMinAfterMax is returned by helpers that choose to surface the
// min>max condition as an error rather than silently returning an
// empty iterator (Scan itself never errors, per spec).
var ErrMinAfterMax = apperror.Argument("scan: min > max")
