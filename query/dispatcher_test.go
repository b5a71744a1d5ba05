package query

// dispatcher_test.go — exercises Dispatch against a MemStore seeded
// directly through execute.State's namespace methods, plus a stub
// ContractInvoker for WasmSmart, styled after
// execute/pipeline_test.go's stub-and-scenario layout.

import (
	"encoding/json"
	"math/big"
	"testing"

	"grug/execute"
	"grug/gas"
	"grug/store"
	"grug/types"
	"grug/wasmhost"
)

type stubInvoker struct {
	resp *types.Response
	err  error
	last string
}

func (s *stubInvoker) Invoke(entryPoint string, contract types.Address, codeHash types.Hash256, env *wasmhost.Environment, ctx, msg json.RawMessage) (*types.Response, error) {
	s.last = contract.String() + ":" + entryPoint
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func mustAddr(t *testing.T, b byte) types.Address {
	t.Helper()
	var a types.Address
	a[19] = b
	return a
}

func newDispatcher(t *testing.T, invoker execute.ContractInvoker) (*Dispatcher, store.Storage, *execute.State) {
	t.Helper()
	stor := store.NewMemStore()
	state := execute.NewState()
	return NewDispatcher(stor, state, invoker, gas.DefaultSchedule(), 0), stor, state
}

func TestDispatchConfig(t *testing.T) {
	d, stor, state := newDispatcher(t, &stubInvoker{})
	owner := mustAddr(t, 1)
	state.SaveConfig(stor, types.Config{Owner: owner})

	res := d.Dispatch(Query{Kind: KindConfig}, 1000)
	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	var cfg types.Config
	if err := json.Unmarshal(res.Value, &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.Owner != owner {
		t.Fatalf("owner = %v, want %v", cfg.Owner, owner)
	}
}

func TestDispatchConfigNotSet(t *testing.T) {
	d, _, _ := newDispatcher(t, &stubInvoker{})
	res := d.Dispatch(Query{Kind: KindConfig}, 1000)
	if res.Error == "" {
		t.Fatal("expected an error for unset config")
	}
}

func TestDispatchBalanceSingleDenomAndAll(t *testing.T) {
	d, stor, state := newDispatcher(t, &stubInvoker{})
	addr := mustAddr(t, 2)
	denom, err := types.NewDenom("uatom")
	if err != nil {
		t.Fatalf("NewDenom: %v", err)
	}
	coin, err := types.NewCoin(denom, bigInt(t, 500))
	if err != nil {
		t.Fatalf("NewCoin: %v", err)
	}
	coins, err := types.NewCoins(coin)
	if err != nil {
		t.Fatalf("NewCoins: %v", err)
	}
	state.SaveBalance(stor, addr, coins)

	res := d.Dispatch(Query{Kind: KindBalance, Balance: &BalanceQuery{Address: addr, Denom: "uatom"}}, 1000)
	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	var amt string
	if err := json.Unmarshal(res.Value, &amt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if amt != "500" {
		t.Fatalf("amount = %q, want 500", amt)
	}

	res = d.Dispatch(Query{Kind: KindBalance, Balance: &BalanceQuery{Address: addr, Denom: "ujuno"}}, 1000)
	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	if err := json.Unmarshal(res.Value, &amt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if amt != "0" {
		t.Fatalf("missing-denom amount = %q, want 0", amt)
	}

	res = d.Dispatch(Query{Kind: KindBalances, Balance: &BalanceQuery{Address: addr}}, 1000)
	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	var all types.Coins
	if err := json.Unmarshal(res.Value, &all); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if all.Len() != 1 {
		t.Fatalf("coins length = %d, want 1", all.Len())
	}
}

func TestDispatchSuppliesListsAllMintedDenoms(t *testing.T) {
	d, stor, state := newDispatcher(t, &stubInvoker{})
	addr := mustAddr(t, 3)
	uatom, _ := types.NewDenom("uatom")
	ujuno, _ := types.NewDenom("ujuno")
	coinA, _ := types.NewCoin(uatom, bigInt(t, 10))
	coinB, _ := types.NewCoin(ujuno, bigInt(t, 20))
	coins, err := types.NewCoins(coinA, coinB)
	if err != nil {
		t.Fatalf("NewCoins: %v", err)
	}
	if err := state.Mint(stor, addr, coins); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	res := d.Dispatch(Query{Kind: KindSupplies}, 1000)
	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	var entries []supplyEntry
	if err := json.Unmarshal(res.Value, &entries); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
}

func TestDispatchWasmSmartInvokesQueryEntryPoint(t *testing.T) {
	contract := mustAddr(t, 4)
	wantData := json.RawMessage(`{"answer":42}`)
	stub := &stubInvoker{resp: &types.Response{Data: wantData}}
	d, stor, state := newDispatcher(t, stub)
	state.SaveAccount(stor, contract, types.Account{CodeHash: types.Sha256([]byte("code"))})

	res := d.Dispatch(Query{Kind: KindWasmSmart, WasmSmart: &WasmSmartQuery{Contract: contract, Msg: json.RawMessage(`{}`)}}, 1000)
	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	if string(res.Value) != string(wantData) {
		t.Fatalf("value = %s, want %s", res.Value, wantData)
	}
	if stub.last != contract.String()+":query" {
		t.Fatalf("invoked %q, want query entry point", stub.last)
	}
}

func TestDispatchMultiReturnsOneResultPerSubquery(t *testing.T) {
	d, stor, state := newDispatcher(t, &stubInvoker{})
	owner := mustAddr(t, 5)
	state.SaveConfig(stor, types.Config{Owner: owner})

	res := d.Dispatch(Query{Kind: KindMulti, Multi: []Query{
		{Kind: KindConfig},
		{Kind: KindSupply, Supply: &SupplyQuery{Denom: "uatom"}},
	}}, 1000)
	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	var results []Result
	if err := json.Unmarshal(res.Value, &results); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Error != "" {
		t.Fatalf("config sub-result error: %s", results[0].Error)
	}
	if results[1].Error != "" {
		t.Fatalf("supply sub-result error: %s", results[1].Error)
	}
}

func TestQueryChainRespectsMaxDepth(t *testing.T) {
	d, _, _ := newDispatcher(t, &stubInvoker{})
	req, _ := json.Marshal(Query{Kind: KindConfig})
	if _, err := d.Query(req, wasmhost.MaxQueryDepth); err == nil {
		t.Fatal("expected max-depth error")
	}
}

func bigInt(t *testing.T, v int64) *big.Int {
	t.Helper()
	return big.NewInt(v)
}
