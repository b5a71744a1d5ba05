package db

// db.go — the top-level Db: flush_but_not_commit / commit / prune
// protocol of spec §4.1, confirmed in more detail by original_source's
// grug/app/src/traits/db.rs (an explicit Db trait with exactly these
// two phases) — directly grounds the method names below.

import (
	"sync"

	"grug/apperror"
	"grug/store"
	"grug/types"
)

// Db is the two-tier store plus its commit protocol. It is the single
// writer the executor's finalize path holds exclusively (spec §5).
type Db struct {
	mu sync.RWMutex

	flat       *FlatStore
	commitment *CommitmentStore

	committedVersion uint64
	committedRoot    types.Hash256

	// staged holds the result of the most recent FlushButNotCommit that
	// has not yet been committed or discarded.
	staged *stagedChangeset
}

type stagedChangeset struct {
	version uint64
	root    types.Hash256
	batch   store.Batch
}

func NewDb() *Db {
	return &Db{
		flat:       NewFlatStore(),
		commitment: NewCommitmentStore(),
	}
}

// Storage exposes the flat tier's read surface for building a
// transient buffer over the latest committed state.
func (d *Db) Storage() store.Storage {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.flat.Storage()
}

// CommittedVersion / CommittedRoot report the last committed state.
func (d *Db) CommittedVersion() uint64        { d.mu.RLock(); defer d.mu.RUnlock(); return d.committedVersion }
func (d *Db) CommittedRoot() types.Hash256    { d.mu.RLock(); defer d.mu.RUnlock(); return d.committedRoot }

// Snapshot returns a read-only Storage pinned at height (0 means the
// latest committed version), for the query dispatcher's concurrent,
// never-blocks-the-executor read path (spec §5).
func (d *Db) Snapshot(height uint64) (store.Storage, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if height == 0 || height == d.committedVersion {
		return d.flat.Storage(), nil
	}
	return d.flat.Snapshot(height)
}

// FlushButNotCommit derives version v+1, applies batch to the
// commitment tree in memory (but not the flat tier), and returns
// (v+1, root). A failure (here: a second stage before a commit/discard)
// discards nothing already committed.
func (d *Db) FlushButNotCommit(batch store.Batch) (uint64, types.Hash256, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.staged != nil {
		return 0, types.Hash256{}, apperror.Fatal("flush_but_not_commit called while a changeset is already staged", nil)
	}
	nextVersion := d.committedVersion + 1
	root := d.commitment.ApplyBatch(batch)
	d.staged = &stagedChangeset{version: nextVersion, root: root, batch: batch}
	return nextVersion, root, nil
}

// Commit persists the staged batch's state-storage ops atomically
// alongside the commitment tree pages (already staged in memory).
// Failure in between FlushButNotCommit and Commit discards the
// in-memory changeset (see DiscardStaged).
func (d *Db) Commit() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.staged == nil {
		return apperror.Fatal("commit called with no staged changeset", nil)
	}
	d.flat.ApplyAndRecord(d.staged.version, d.staged.batch)
	d.committedVersion = d.staged.version
	d.committedRoot = d.staged.root
	d.staged = nil
	return nil
}

// DiscardStaged drops an in-progress FlushButNotCommit changeset
// without committing it.
func (d *Db) DiscardStaged() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.staged == nil {
		return
	}
	// FlushButNotCommit already applied the batch to the commitment
	// tree, so rebuild the tree from the committed flat tier.
	fresh := NewCommitmentStore()
	it := d.flat.Storage().Scan(nil, nil, store.Ascending)
	for rec, ok := it.Next(); ok; rec, ok = it.Next() {
		k, v := types.Sha256(rec.Key), types.Sha256(rec.Value)
		fresh.mem.Write(k[:], v[:])
	}
	it.Close()
	d.commitment = fresh
	d.staged = nil
}

// Prune drops committed versions at or below upTo.
func (d *Db) Prune(upTo uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flat.Prune(upTo)
}

// Has reports presence of key in the commitment tree (used for
// proof generation without touching the flat tier).
func (d *Db) Has(key []byte) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.commitment.Has(key)
}
