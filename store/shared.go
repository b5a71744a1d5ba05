package store

// shared.go — the reference-counted, interior-mutable Shared wrapper
// (spec §4.1/§5): many concurrent read guards coexist, write access is
// exclusive.
//
// Grounded on core/vm_sandbox_management.go's `sandboxes` global map +
// sync.RWMutex pattern, repurposed here as a generic per-Storage
// wrapper instead of a process-global table.

import "sync"

// Shared wraps a Storage behind a reader-writer lock.
type Shared struct {
	mu   sync.RWMutex
	base Storage
}

func NewShared(base Storage) *Shared {
	return &Shared{base: base}
}

// ReadGuard holds the read lock for the duration of one read or scan.
type ReadGuard struct {
	s *Shared
}

// Acquire takes the read lock; call Release when done (e.g. after
// draining a Scan's iterator).
func (s *Shared) Acquire() *ReadGuard {
	s.mu.RLock()
	return &ReadGuard{s: s}
}

func (g *ReadGuard) Release() { g.s.mu.RUnlock() }

func (g *ReadGuard) Read(key []byte) ([]byte, bool) { return g.s.base.Read(key) }
func (g *ReadGuard) Scan(min, max []byte, order Order) Iterator {
	return g.s.base.Scan(min, max, order)
}

// WriteGuard holds the write lock for the duration of one write
// operation or batch of writes (only the executor's finalize path
// takes this, per spec §5).
type WriteGuard struct {
	s *Shared
}

func (s *Shared) AcquireWrite() *WriteGuard {
	s.mu.Lock()
	return &WriteGuard{s: s}
}

func (g *WriteGuard) Release() { g.s.mu.Unlock() }

func (g *WriteGuard) Write(key, value []byte)       { g.s.base.Write(key, value) }
func (g *WriteGuard) Remove(key []byte)             { g.s.base.Remove(key) }
func (g *WriteGuard) RemoveRange(min, max []byte)   { g.s.base.RemoveRange(min, max) }
func (g *WriteGuard) FlushBatch(batch Batch) {
	for k, op := range batch {
		if op.Delete {
			g.s.base.Remove([]byte(k))
		} else {
			g.s.base.Write([]byte(k), op.Insert)
		}
	}
}
