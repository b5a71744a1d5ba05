package db

// commitment.go — the commitment store: (sha256(key) -> sha256(value))
// pairs threaded into a sparse Merkle tree producing a root hash per
// version. Grounded on core/merkle_tree_operations.go's root-hashing
// style, generalized from its fixed-structure tree to a generic
// key-sorted Merkle accumulator driven by the commitment store's
// actual leaf set.

import (
	"grug/store"
	"grug/types"
)

// CommitmentStore holds sha256(key)->sha256(value) leaves and can
// recompute a Merkle root over the current leaf set.
type CommitmentStore struct {
	mem *store.MemStore // keyed by sha256(key), valued by sha256(value)
}

func NewCommitmentStore() *CommitmentStore {
	return &CommitmentStore{mem: store.NewMemStore()}
}

// ApplyBatch hashes each raw key/value in batch and applies the
// resulting leaf set, returning the new root.
func (c *CommitmentStore) ApplyBatch(batch store.Batch) types.Hash256 {
	for k, op := range batch {
		leafKey := types.Sha256([]byte(k))
		if op.Delete {
			c.mem.Remove(leafKey[:])
		} else {
			leafVal := types.Sha256(op.Insert)
			c.mem.Write(leafKey[:], leafVal[:])
		}
	}
	return c.Root()
}

// Root recomputes the Merkle root over the current leaf set: leaves
// sorted ascending by sha256(key), combined pairwise up the tree. An
// empty tree's root is the zero hash (spec §3 "Hash256::zero is the
// zero root").
func (c *CommitmentStore) Root() types.Hash256 {
	it := c.mem.Scan(nil, nil, store.Ascending)
	var leaves [][]byte
	for {
		rec, ok := it.Next()
		if !ok {
			break
		}
		combined := append(append([]byte(nil), rec.Key...), rec.Value...)
		leaves = append(leaves, combined)
	}
	it.Close()
	if len(leaves) == 0 {
		return types.ZeroHash256()
	}
	return merkleRoot(leaves)
}

func merkleRoot(leaves [][]byte) types.Hash256 {
	level := make([]types.Hash256, len(leaves))
	for i, l := range leaves {
		level[i] = types.Sha256(l)
	}
	for len(level) > 1 {
		next := make([]types.Hash256, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				combined := append(append([]byte(nil), level[i][:]...), level[i+1][:]...)
				next = append(next, types.Sha256(combined))
			} else {
				next = append(next, level[i]) // odd leaf carries up unchanged
			}
		}
		level = next
	}
	return level[0]
}

// Has reports whether key (by its raw pre-hash form) is present.
func (c *CommitmentStore) Has(key []byte) bool {
	leafKey := types.Sha256(key)
	_, ok := c.mem.Read(leafKey[:])
	return ok
}
