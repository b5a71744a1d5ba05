package abci

// adapter_test.go — exercises the InitChain -> FinalizeBlock -> Commit
// round trip and the Query entry point's two paths, against a noop
// ContractInvoker since no wasm bytecode can be compiled here. Styled
// after execute/pipeline_test.go's MemStore-plus-helper-funcs layout.

import (
	"encoding/json"
	"math/big"
	"testing"

	"grug/db"
	"grug/dex"
	"grug/execute"
	"grug/query"
	"grug/store"
	"grug/types"
	"grug/wasmhost"
)

// noopInvoker satisfies execute.ContractInvoker; every test transaction
// here is a plain transfer, so the only Invoke calls are the account
// contract dispatches (authenticate), which it answers with no response.
type noopInvoker struct{}

func (noopInvoker) Invoke(entryPoint string, contract types.Address, codeHash types.Hash256, env *wasmhost.Environment, ctx, msg json.RawMessage) (*types.Response, error) {
	return nil, nil
}

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	database := db.NewDb()
	pipeline := execute.NewPipeline(noopInvoker{}, nil, nil)
	dexMgr := dex.NewManager(dex.NewState(), pipeline.State)
	return NewAdapter(database, pipeline, dexMgr)
}

func mustAddr(b byte) types.Address {
	var a types.Address
	a[19] = b
	return a
}

// seedAccount gives addr an Account record so authenticate (which now
// dispatches to the sender's own account contract) has something to
// resolve a CodeHash from; noopInvoker.Invoke answers every entry
// point unconditionally, so the code hash's value itself is unused.
func seedAccount(t *testing.T, a *Adapter, addr types.Address) {
	t.Helper()
	a.Pipeline.State.SaveAccount(a.Db.Storage(), addr, types.Account{})
}

func mustCoins(t *testing.T, denom string, amount int64) types.Coins {
	t.Helper()
	d, err := types.NewDenom(denom)
	if err != nil {
		t.Fatalf("NewDenom: %v", err)
	}
	coin, err := types.NewCoin(d, big.NewInt(amount))
	if err != nil {
		t.Fatalf("NewCoin: %v", err)
	}
	coins, err := types.NewCoins(coin)
	if err != nil {
		t.Fatalf("NewCoins: %v", err)
	}
	return coins
}

func transferTx(t *testing.T, sender, recipient types.Address, denom string, amount int64, sequence uint64) types.Tx {
	t.Helper()
	data, _ := json.Marshal(map[string]uint64{"sequence": sequence})
	return types.Tx{
		Sender:   sender,
		GasLimit: 0, // skip fee withholding; CheckTx/FinalizeBlock below test it separately
		Data:     data,
		Msgs: []types.Message{
			{Kind: types.MsgTransfer, Transfer: &types.TransferMsg{Recipient: recipient, Coins: mustCoins(t, denom, amount)}},
		},
	}
}

func TestInfoReportsZeroBeforeInitChain(t *testing.T) {
	a := newTestAdapter(t)
	info := a.Info(RequestInfo{})
	if info.LastBlockHeight != 0 {
		t.Fatalf("LastBlockHeight = %d, want 0", info.LastBlockHeight)
	}
}

func TestInitChainFinalizeBlockCommitRoundTrip(t *testing.T) {
	a := newTestAdapter(t)
	sender1, recipient1 := mustAddr(1), mustAddr(2)
	sender2, recipient2 := mustAddr(3), mustAddr(4)

	// Genesis balances are seeded directly, the way InitChain's own
	// GenesisState would be populated by a real genesis file loader —
	// GenesisState carries config/pairs/txs but not raw balances, so a
	// funding transfer has to already have spendable coins to move.
	a.Pipeline.State.SaveBalance(a.Db.Storage(), sender1, mustCoins(t, "ugrug", 100))
	a.Pipeline.State.SaveBalance(a.Db.Storage(), sender2, mustCoins(t, "ugrug", 100))
	seedAccount(t, a, sender1)
	seedAccount(t, a, sender2)

	genesisTx := transferTx(t, sender1, recipient1, "ugrug", 10, 0)
	resp, err := a.InitChain(RequestInitChain{
		ChainID: "grug-test",
		Genesis: GenesisState{
			Config: types.Config{Owner: mustAddr(0), Taxman: mustAddr(9)},
			DexPairs: []GenesisDexPair{
				{Base: "uatom", Quote: "uusd", Params: dex.Params{
					LPDenom:       "uatom-uusd-lp",
					PoolType:      dex.PoolTypeXyk,
					BucketSizes:   []types.Decimal256{types.NewDecimal256FromInt64(1)},
					SwapFeeRate:   types.Decimal256Zero(),
					MinOrderSize:  types.NewDecimal256FromInt64(1),
					OrderSpacing:  types.NewDecimal256FromInt64(1),
					GeometricStep: types.NewDecimal256FromInt64(1),
				}},
			},
			Txs: []types.Tx{genesisTx},
		},
	})
	if err != nil {
		t.Fatalf("InitChain: %v", err)
	}
	if resp.AppHash == (types.Hash256{}) {
		t.Fatal("InitChain: expected a nonzero app hash")
	}
	if got := a.Info(RequestInfo{}).LastBlockHeight; got != 1 {
		t.Fatalf("LastBlockHeight after InitChain = %d, want 1", got)
	}

	recip1Bal, err := a.Pipeline.State.LoadBalance(a.Db.Storage(), recipient1)
	if err != nil {
		t.Fatalf("LoadBalance recipient1: %v", err)
	}
	if amt := recip1Bal.Get("ugrug"); amt == nil || amt.Int64() != 10 {
		t.Fatalf("recipient1 balance = %v, want 10", amt)
	}

	// FinalizeBlock stages its effects without touching the flat tier.
	tx2 := transferTx(t, sender2, recipient2, "ugrug", 15, 0)
	finResp, err := a.FinalizeBlock(RequestFinalizeBlock{Height: 1, Txs: []types.Tx{tx2}})
	if err != nil {
		t.Fatalf("FinalizeBlock: %v", err)
	}
	if len(finResp.TxResults) != 1 {
		t.Fatalf("TxResults = %d, want 1", len(finResp.TxResults))
	}
	if finResp.AppHash == (types.Hash256{}) {
		t.Fatal("FinalizeBlock: expected a nonzero app hash")
	}

	preCommitBal, err := a.Pipeline.State.LoadBalance(a.Db.Storage(), recipient2)
	if err != nil {
		t.Fatalf("LoadBalance recipient2 pre-commit: %v", err)
	}
	if amt := preCommitBal.Get("ugrug"); amt != nil {
		t.Fatalf("recipient2 balance before Commit = %v, want unset (FinalizeBlock must not touch the flat tier)", amt)
	}

	if _, err := a.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if got := a.Info(RequestInfo{}).LastBlockHeight; got != 2 {
		t.Fatalf("LastBlockHeight after Commit = %d, want 2", got)
	}
	postCommitBal, err := a.Pipeline.State.LoadBalance(a.Db.Storage(), recipient2)
	if err != nil {
		t.Fatalf("LoadBalance recipient2 post-commit: %v", err)
	}
	if amt := postCommitBal.Get("ugrug"); amt == nil || amt.Int64() != 15 {
		t.Fatalf("recipient2 balance after Commit = %v, want 15", amt)
	}
}

func TestCheckTxRejectsInsufficientFeeBalance(t *testing.T) {
	a := newTestAdapter(t)
	sender, recipient := mustAddr(1), mustAddr(2)
	a.Pipeline.State.SaveConfig(a.Db.Storage(), types.Config{Owner: mustAddr(0), Taxman: mustAddr(9)})
	seedAccount(t, a, sender)
	// No balance at all: withhold_fee must reject a nonzero gas limit.
	tx := transferTx(t, sender, recipient, "ugrug", 1, 0)
	tx.GasLimit = 100

	resp := a.CheckTx(RequestCheckTx{Tx: tx})
	if resp.Code == 0 {
		t.Fatal("expected CheckTx to reject a sender with no fee balance")
	}
}

func TestCheckTxAcceptsValidTxWithoutMutatingState(t *testing.T) {
	a := newTestAdapter(t)
	sender, recipient := mustAddr(1), mustAddr(2)
	a.Pipeline.State.SaveBalance(a.Db.Storage(), sender, mustCoins(t, "ugrug", 100))
	seedAccount(t, a, sender)
	tx := transferTx(t, sender, recipient, "ugrug", 1, 0)

	if resp := a.CheckTx(RequestCheckTx{Tx: tx}); resp.Code != 0 {
		t.Fatalf("CheckTx rejected a valid tx: %s", resp.Log)
	}
	// CheckTx must never persist: the same tx (sequence 0 again) should
	// still pass a second time.
	if resp := a.CheckTx(RequestCheckTx{Tx: tx}); resp.Code != 0 {
		t.Fatalf("CheckTx should be side-effect free, rejected the same tx twice: %s", resp.Log)
	}
}

func TestQueryStorePathRoundTripsWithProof(t *testing.T) {
	a := newTestAdapter(t)
	buf := store.NewBuffer(a.Db.Storage())
	buf.Write([]byte("probe-key"), []byte("probe-value"))
	if _, _, err := a.Db.FlushButNotCommit(buf.PendingBatch()); err != nil {
		t.Fatalf("FlushButNotCommit: %v", err)
	}
	if err := a.Db.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	resp := a.Query(RequestQuery{Path: PathStore, Data: []byte("probe-key"), Prove: true})
	if resp.Error != "" {
		t.Fatalf("Query: %s", resp.Error)
	}
	if string(resp.Value) != "probe-value" {
		t.Fatalf("Value = %q, want %q", resp.Value, "probe-value")
	}
	if len(resp.Proof) == 0 {
		t.Fatal("expected a nonempty proof when Prove is set")
	}
}

func TestQueryStorePathMissingKeyErrors(t *testing.T) {
	a := newTestAdapter(t)
	resp := a.Query(RequestQuery{Path: PathStore, Data: []byte("absent-key")})
	if resp.Error == "" {
		t.Fatal("expected an error for a missing key")
	}
}

func TestQueryDispatchPathReadsBalance(t *testing.T) {
	a := newTestAdapter(t)
	addr := mustAddr(1)
	a.Pipeline.State.SaveBalance(a.Db.Storage(), addr, mustCoins(t, "ugrug", 42))

	q := query.Query{Kind: query.KindBalance, Balance: &query.BalanceQuery{Address: addr, Denom: "ugrug"}}
	data, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal query: %v", err)
	}

	resp := a.Query(RequestQuery{Data: data})
	if resp.Error != "" {
		t.Fatalf("Query: %s", resp.Error)
	}
	var amount string
	if err := json.Unmarshal(resp.Value, &amount); err != nil {
		t.Fatalf("unmarshal result: %v (value=%s)", err, resp.Value)
	}
	if amount != "42" {
		t.Fatalf("balance = %q, want \"42\"", amount)
	}
}

func TestProcessProposalAcceptsAnyProposal(t *testing.T) {
	a := newTestAdapter(t)
	resp := a.ProcessProposal(RequestProcessProposal{Txs: []types.Tx{{}}})
	if !resp.Accept {
		t.Fatal("ProcessProposal stub should accept everything")
	}
}

func TestPrepareProposalTrimsToMaxBytes(t *testing.T) {
	a := newTestAdapter(t)
	sender, recipient := mustAddr(1), mustAddr(2)
	txs := []types.Tx{
		transferTx(t, sender, recipient, "ugrug", 1, 0),
		transferTx(t, sender, recipient, "ugrug", 2, 1),
		transferTx(t, sender, recipient, "ugrug", 3, 2),
	}
	one, _ := json.Marshal(txs[0])

	resp := a.PrepareProposal(RequestPrepareProposal{Txs: txs, MaxBytes: len(one)})
	if len(resp.Txs) != 1 {
		t.Fatalf("PrepareProposal kept %d txs, want 1 (budget for exactly one)", len(resp.Txs))
	}
}
