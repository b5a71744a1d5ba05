// Package db implements the two-tier database engine of spec §4.1: a
// flat state-storage tier (raw keys -> raw values, versioned
// snapshots) and a commitment tier (a sparse Merkle tree over
// sha256(key)/sha256(value)) producing a root app_hash, plus the
// flush_but_not_commit / commit protocol.
//
// Grounded on core/ledger.go's NewLedger/OpenLedger WAL+snapshot+gzip
// commit/replay pattern: "derive the next version, stage it in
// memory, commit atomically" is kept; the UTXO/token-balance domain
// fields are replaced with the flat KV + Merkle commitment tree.
package db

import (
	"fmt"

	"grug/apperror"
	"grug/store"
)

func errSnapshotUnavailable(height uint64) error {
	return apperror.NotFound(fmt.Sprintf("snapshot for height %d is unavailable (pruned or not yet committed)", height))
}

// FlatStore is the versioned raw-key/raw-value tier. Each committed
// version is immutable; reads at a pinned version never see later
// writes (spec §5 "query calls ... read through a separate snapshot
// handle ... pinned version").
type FlatStore struct {
	mem *store.MemStore
	// history records each version with the Batch applied to reach it, so a
	// Snapshot(height) can replay up to that point. In a production
	// deployment this would be a disk-backed versioned store; the
	// in-memory model here satisfies the same interface contract.
	history []versionedBatch
}

type versionedBatch struct {
	version uint64
	batch   store.Batch
}

func NewFlatStore() *FlatStore {
	return &FlatStore{mem: store.NewMemStore()}
}

func (f *FlatStore) Storage() store.Storage { return f.mem }

// Snapshot reconstructs the flat tier's read-only state as of height by
// replaying every recorded batch with version <= height, in order,
// into a fresh MemStore (spec §5: "query calls ... read through a
// separate snapshot handle ... pinned version"). Returns an error if
// the needed history has been pruned away.
func (f *FlatStore) Snapshot(height uint64) (store.Storage, error) {
	if len(f.history) > 0 && f.history[0].version > 1 {
		// versions below history[0] were pruned; replaying the rest
		// would silently omit their writes.
		return nil, errSnapshotUnavailable(height)
	}
	out := store.NewMemStore()
	seen := uint64(0)
	for _, vb := range f.history {
		if vb.version > height {
			break
		}
		seen = vb.version
		for k, op := range vb.batch {
			if op.Delete {
				out.Remove([]byte(k))
			} else {
				out.Write([]byte(k), op.Insert)
			}
		}
	}
	if seen != height && height != 0 {
		return nil, errSnapshotUnavailable(height)
	}
	return out, nil
}

// ApplyAndRecord applies batch directly (used by Commit) and records
// it against version for later pruning/snapshot bookkeeping.
func (f *FlatStore) ApplyAndRecord(version uint64, batch store.Batch) {
	for k, op := range batch {
		if op.Delete {
			f.mem.Remove([]byte(k))
		} else {
			f.mem.Write([]byte(k), op.Insert)
		}
	}
	f.history = append(f.history, versionedBatch{version: version, batch: batch})
}

// Prune drops recorded version history at or below upTo. The flat
// key/value data itself (latest state) is never pruned — only the
// bookkeeping needed to reconstruct prior versions is dropped.
func (f *FlatStore) Prune(upTo uint64) {
	kept := f.history[:0]
	for _, vb := range f.history {
		if vb.version > upTo {
			kept = append(kept, vb)
		}
	}
	f.history = kept
}
