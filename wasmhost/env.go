package wasmhost

// env.go — the per-call Environment struct (spec §4.3): storage and
// querier providers, gas tracker, iterator table, query_depth counter,
// and the state_mutable flag.

import (
	"github.com/google/uuid"

	"grug/apperror"
	"grug/gas"
	"grug/store"
)

// MaxQueryDepth bounds nested WASM-smart query recursion (spec §4.3
// "recursive-call and query-depth guards").
const MaxQueryDepth = 6

// Querier is the read-only host interface exposed to contracts for
// querying chain state and other contracts (GLOSSARY "Querier").
type Querier interface {
	Query(req []byte, depth uint32) ([]byte, error)
}

// IteratorState tracks one open db_scan iterator, keyed by an id
// handed to the guest. Iterator tables are per-instance and dropped
// with the instance (spec §5).
type IteratorState struct {
	ID   string
	Iter store.Iterator
}

// Environment is threaded through every host import call for one
// contract invocation.
type Environment struct {
	Storage       store.Storage
	Querier       Querier
	Gas           *gas.Tracker
	StateMutable  bool
	QueryDepth    uint32

	iterators     map[string]*IteratorState
}

func NewEnvironment(storage store.Storage, querier Querier, tracker *gas.Tracker, mutable bool) *Environment {
	return &Environment{
		Storage:      storage,
		Querier:      querier,
		Gas:          tracker,
		StateMutable: mutable,
		iterators:    map[string]*IteratorState{},
	}
}

// NewIterator registers it under a fresh id and returns that id.
func (e *Environment) NewIterator(it store.Iterator) string {
	id := uuid.NewString()
	e.iterators[id] = &IteratorState{ID: id, Iter: it}
	return id
}

func (e *Environment) Iterator(id string) (*IteratorState, bool) {
	it, ok := e.iterators[id]
	return it, ok
}

// CloseIterators drops every open iterator when the instance call
// ends (spec §5: "Iterator tables inside the WASM env are per-instance
// and dropped with the instance").
func (e *Environment) CloseIterators() {
	for _, it := range e.iterators {
		it.Iter.Close()
	}
	e.iterators = map[string]*IteratorState{}
}

// EnterQuery increments query_depth and returns an error once
// MAX_QUERY_DEPTH would be exceeded (spec §4.3 recursion guard).
func (e *Environment) EnterQuery() error {
	if e.QueryDepth >= MaxQueryDepth {
		return apperror.Host("max query depth exceeded", nil)
	}
	e.QueryDepth++
	return nil
}

func (e *Environment) ExitQuery() {
	if e.QueryDepth > 0 {
		e.QueryDepth--
	}
}

// RequireMutable returns a fatal host error if the environment is
// read-only (spec: "db_write / db_remove: state_mutable=false ⇒ fatal").
func (e *Environment) RequireMutable() error {
	if !e.StateMutable {
		return apperror.Fatal("state mutation attempted in a read-only query context", nil)
	}
	return nil
}
