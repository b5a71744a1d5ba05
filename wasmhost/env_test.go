package wasmhost

import (
	"testing"

	"grug/gas"
	"grug/store"
)

func TestQueryDepthGuardTripsAtMax(t *testing.T) {
	env := NewEnvironment(store.NewMemStore(), nil, gas.NewTracker(1_000_000, gas.DefaultSchedule()), false)
	for i := 0; i < MaxQueryDepth; i++ {
		if err := env.EnterQuery(); err != nil {
			t.Fatalf("unexpected error entering query %d: %v", i, err)
		}
	}
	if err := env.EnterQuery(); err == nil {
		t.Fatalf("expected max query depth to be exceeded")
	}
}

func TestExitQueryNeverUnderflows(t *testing.T) {
	env := NewEnvironment(store.NewMemStore(), nil, gas.NewTracker(1_000_000, gas.DefaultSchedule()), false)
	env.ExitQuery()
	if env.QueryDepth != 0 {
		t.Fatalf("expected query depth to stay at 0, got %d", env.QueryDepth)
	}
}

func TestRequireMutableFailsInQueryContext(t *testing.T) {
	env := NewEnvironment(store.NewMemStore(), nil, gas.NewTracker(1_000_000, gas.DefaultSchedule()), false)
	if err := env.RequireMutable(); err == nil {
		t.Fatalf("expected a fatal error for mutation in a read-only environment")
	}
}

func TestIteratorTableRegisterAndClose(t *testing.T) {
	mem := store.NewMemStore()
	env := NewEnvironment(mem, nil, gas.NewTracker(1_000_000, gas.DefaultSchedule()), true)
	it := mem.Scan(nil, nil, store.Ascending)
	id := env.NewIterator(it)
	if _, ok := env.Iterator(id); !ok {
		t.Fatalf("expected iterator to be registered under %q", id)
	}
	env.CloseIterators()
	if _, ok := env.Iterator(id); ok {
		t.Fatalf("expected iterator to be dropped after CloseIterators")
	}
}
