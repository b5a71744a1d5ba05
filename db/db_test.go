package db

import (
	"testing"

	"grug/store"
)

func TestCommitProtocolAndDeterminism(t *testing.T) {
	run := func() (uint64, [32]byte) {
		d := NewDb()
		batch := store.Batch{
			"a": {Insert: []byte("1")},
			"b": {Insert: []byte("2")},
		}
		v, root, err := d.FlushButNotCommit(batch)
		if err != nil {
			t.Fatalf("flush_but_not_commit: %v", err)
		}
		if v != 1 {
			t.Fatalf("expected version 1, got %d", v)
		}
		if err := d.Commit(); err != nil {
			t.Fatalf("commit: %v", err)
		}
		if d.CommittedVersion() != 1 {
			t.Fatalf("expected committed version 1, got %d", d.CommittedVersion())
		}
		return d.CommittedVersion(), d.CommittedRoot()
	}

	v1, root1 := run()
	v2, root2 := run()
	if v1 != v2 || root1 != root2 {
		t.Fatalf("block execution is not deterministic: (%d,%x) vs (%d,%x)", v1, root1, v2, root2)
	}
}

func TestDiscardStagedLeavesCommittedStateUntouched(t *testing.T) {
	d := NewDb()
	if _, _, err := d.FlushButNotCommit(store.Batch{"x": {Insert: []byte("1")}}); err != nil {
		t.Fatalf("flush: %v", err)
	}
	d.DiscardStaged()
	if d.CommittedVersion() != 0 {
		t.Fatalf("expected committed version to remain 0 after discard, got %d", d.CommittedVersion())
	}
	if _, ok := d.Storage().Read([]byte("x")); ok {
		t.Fatalf("discarded changeset must not be visible in the flat store")
	}
}

func TestExistenceProofRoundTrip(t *testing.T) {
	d := NewDb()
	batch := store.Batch{
		"alpha": {Insert: []byte("1")},
		"beta":  {Insert: []byte("2")},
		"gamma": {Insert: []byte("3")},
	}
	if _, _, err := d.FlushButNotCommit(batch); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := d.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	proof, err := d.ExistenceProof([]byte("beta"), []byte("2"))
	if err != nil {
		t.Fatalf("existence proof: %v", err)
	}
	if proof.GetExist() == nil {
		t.Fatalf("expected an existence proof")
	}
}
