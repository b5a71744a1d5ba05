package execute

import (
	"testing"

	"grug/apperror"
	"grug/store"
	"grug/types"
)

func TestRunCronjobsOrdersByAddressAndLogsFailures(t *testing.T) {
	mem := store.NewMemStore()
	state := NewState()

	a1 := mustAddr(t, 1)
	a2 := mustAddr(t, 2)
	for _, a := range []types.Address{a1, a2} {
		state.SaveAccount(mem, a, types.Account{CodeHash: types.Sha256([]byte(a.String()))})
	}
	state.SaveConfig(mem, types.Config{
		Cronjobs: map[string]int64{a1.String(): 100, a2.String(): 100},
	})

	stub := newStubInvoker()
	stub.on(a1, "cron_execute", &types.Response{})
	stub.errors[stub.key(a2, "cron_execute")] = apperror.Math("pair underflow")

	var logs []string
	p := &Pipeline{State: state, Invoker: stub}
	var paused []types.Address
	p.OnCronMathError = func(contract types.Address) { paused = append(paused, contract) }

	node, err := p.RunCronjobs(mem, types.BlockInfo{Timestamp: 1000}, func(format string, args ...any) {
		logs = append(logs, format)
	})
	if err != nil {
		t.Fatalf("RunCronjobs: %v", err)
	}
	if len(node.SubEvents) != 2 {
		t.Fatalf("expected 2 cron sub-events, got %d", len(node.SubEvents))
	}
	if len(logs) != 1 {
		t.Fatalf("expected exactly one logged failure, got %d: %v", len(logs), logs)
	}
	if len(paused) != 1 || paused[0] != a2 {
		t.Fatalf("expected OnCronMathError to fire for a2, got %v", paused)
	}

	// Running again before the interval elapses should invoke nothing.
	stub.calls = nil
	if _, err := p.RunCronjobs(mem, types.BlockInfo{Timestamp: 1050}, func(string, ...any) {}); err != nil {
		t.Fatalf("RunCronjobs (second run): %v", err)
	}
	if len(stub.calls) != 0 {
		t.Fatalf("expected no cron calls before the interval elapses, got %v", stub.calls)
	}
}
