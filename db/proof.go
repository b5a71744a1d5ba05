package db

// proof.go — optional ICS-23 proof emission (spec §4.1), embedding the
// pre-hash key and value from the flat store. Grounded on the
// AKJUS-bsc-erigon example's use of github.com/bnb-chain/ics23; no
// teacher analogue (genuinely new wiring per SPEC_FULL.md §11).

import (
	ics23 "github.com/bnb-chain/ics23"

	"grug/apperror"
	"grug/store"
	"grug/types"
)

// leafOp describes how a raw (key,value) pair is hashed into a leaf:
// sha256 key pre-hash, sha256 value pre-hash, no length prefix and no
// leaf prefix — matching commitment.go, whose leaf hash is
// sha256(sha256(key) ‖ sha256(value)).
var leafOp = &ics23.LeafOp{
	Hash:         ics23.HashOp_SHA256,
	PrehashKey:   ics23.HashOp_SHA256,
	PrehashValue: ics23.HashOp_SHA256,
	Length:       ics23.LengthOp_NO_PREFIX,
}

// ExistenceProof proves key maps to value in the commitment tree at
// the currently committed root. It embeds the raw (pre-hash) key and
// value, per spec §4.1.
func (d *Db) ExistenceProof(key, value []byte) (*ics23.CommitmentProof, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	leafKey := types.Sha256(key)
	leafVal, ok := d.commitment.mem.Read(leafKey[:])
	if !ok {
		return nil, apperror.NotFound("key absent from commitment tree")
	}
	if string(types.Sha256(value)[:]) != string(leafVal) {
		return nil, apperror.Argument("value does not match committed leaf")
	}

	path, err := d.innerPath(leafKey[:])
	if err != nil {
		return nil, err
	}

	ep := &ics23.ExistenceProof{
		Key:   key,
		Value: value,
		Leaf:  leafOp,
		Path:  path,
	}
	return &ics23.CommitmentProof{
		Proof: &ics23.CommitmentProof_Exist{Exist: ep},
	}, nil
}

// innerPath walks the sparse Merkle tree's sibling hashes from the
// leaf identified by leafKey up to the root, in the same pairwise
// combination order commitment.go's merkleRoot uses.
func (d *Db) innerPath(leafKey []byte) ([]*ics23.InnerOp, error) {
	it := d.commitment.mem.Scan(nil, nil, store.Ascending)
	var keys [][]byte
	idx := -1
	for {
		rec, ok := it.Next()
		if !ok {
			break
		}
		if string(rec.Key) == string(leafKey) {
			idx = len(keys)
		}
		keys = append(keys, rec.Key)
	}
	it.Close()
	if idx < 0 {
		return nil, apperror.NotFound("leaf not found while building proof path")
	}

	level := make([]types.Hash256, len(keys))
	for i, k := range keys {
		v, _ := d.commitment.mem.Read(k)
		combined := append(append([]byte(nil), k...), v...)
		level[i] = types.Sha256(combined)
	}

	var path []*ics23.InnerOp
	pos := idx
	for len(level) > 1 {
		var sibling types.Hash256
		var prefix, suffix []byte
		if pos%2 == 0 {
			if pos+1 < len(level) {
				sibling = level[pos+1]
				suffix = sibling[:]
			}
			// odd leaf carried up unchanged: no inner op needed this round
		} else {
			sibling = level[pos-1]
			prefix = sibling[:]
		}
		if pos%2 == 0 && pos+1 >= len(level) {
			// carried up unchanged, no combination happened at this level
		} else {
			path = append(path, &ics23.InnerOp{
				Hash:   ics23.HashOp_SHA256,
				Prefix: prefix,
				Suffix: suffix,
			})
		}

		next := make([]types.Hash256, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				combined := append(append([]byte(nil), level[i][:]...), level[i+1][:]...)
				next = append(next, types.Sha256(combined))
			} else {
				next = append(next, level[i])
			}
		}
		pos = pos / 2
		level = next
	}
	return path, nil
}
