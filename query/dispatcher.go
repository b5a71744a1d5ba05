package query

// dispatcher.go — Dispatcher answers one Query against a Storage
// handle pinned at a fixed height (spec §4.6), wrapped in a
// query-budget gas tracker. It also implements wasmhost.Querier so a
// contract's query_chain host import recurses back through the same
// dispatch switch, guarded by wasmhost.MaxQueryDepth.
//
// Grounded on execute/submsg.go's dispatchMessage switch (kept: one
// function per message/query kind, matched on a Kind string; replaced:
// no storage mutation, no event nodes, a Result{Value,Error} envelope
// instead of events.Node).

import (
	"encoding/json"

	"grug/apperror"
	"grug/execute"
	"grug/gas"
	"grug/store"
	"grug/types"
	"grug/wasmhost"
)

// defaultPageLimit bounds an unbounded "list all" query when the
// caller's PageQuery doesn't set Limit.
const defaultPageLimit = 100

// Dispatcher is built fresh per query call over whichever Storage the
// caller resolved for the requested block height (db.Db.Snapshot).
type Dispatcher struct {
	Storage store.Storage
	State   *execute.State
	Invoker execute.ContractInvoker
	Gas     *gas.Schedule

	// RecursiveGasLimit bounds a query reached via a contract's
	// query_chain import: the wasmhost.Querier interface carries no
	// caller-supplied tracker to share, so a fresh budget is charged per
	// recursive hop (query_depth, not gas, is what the host call site
	// actually enforces — this is a backstop, not the primary guard).
	RecursiveGasLimit uint64
}

func NewDispatcher(stor store.Storage, state *execute.State, invoker execute.ContractInvoker, schedule *gas.Schedule, recursiveGasLimit uint64) *Dispatcher {
	if recursiveGasLimit == 0 {
		recursiveGasLimit = 1_000_000
	}
	return &Dispatcher{
		Storage:           stor,
		State:             state,
		Invoker:           invoker,
		Gas:               schedule,
		RecursiveGasLimit: recursiveGasLimit,
	}
}

// Dispatch is the external entry point (the consensus adapter's Query
// endpoint): runs q at depth 0 under a fresh tracker sized gasLimit.
func (d *Dispatcher) Dispatch(q Query, gasLimit uint64) Result {
	tracker := gas.NewTracker(gasLimit, d.Gas)
	return d.dispatch(q, tracker, 0)
}

// Query implements wasmhost.Querier for the query_chain host import:
// req is a marshaled Query, depth is the calling contract's current
// query_depth.
func (d *Dispatcher) Query(req []byte, depth uint32) ([]byte, error) {
	if depth >= wasmhost.MaxQueryDepth {
		return nil, apperror.Host("max query depth exceeded", nil)
	}
	var q Query
	if err := json.Unmarshal(req, &q); err != nil {
		return nil, apperror.Argument("malformed query_chain request")
	}
	tracker := gas.NewTracker(d.RecursiveGasLimit, d.Gas)
	res := d.dispatch(q, tracker, depth+1)
	if res.Error != "" {
		return nil, apperror.Host(res.Error, nil)
	}
	return res.Value, nil
}

func (d *Dispatcher) dispatch(q Query, tracker *gas.Tracker, depth uint32) Result {
	if err := tracker.Consume(1, "query:"+string(q.Kind)); err != nil {
		return errResult(err)
	}
	switch q.Kind {
	case KindConfig:
		return d.queryConfig()
	case KindAppConfig:
		return d.queryAppConfig()
	case KindBalance, KindBalances:
		return d.queryBalance(q.Balance)
	case KindSupply:
		return d.querySupply(q.Supply)
	case KindSupplies:
		return d.querySupplies(q.Page)
	case KindCode:
		return d.queryCode(q.Code)
	case KindCodes:
		return d.queryCodes(q.Page)
	case KindContract:
		return d.queryContract(q.Contract)
	case KindContracts:
		return d.queryContracts(q.Page)
	case KindWasmRaw:
		return d.queryWasmRaw(q.WasmRaw)
	case KindWasmSmart:
		return d.queryWasmSmart(q.WasmSmart, tracker, depth)
	case KindMulti:
		return d.queryMulti(q.Multi, tracker, depth)
	default:
		return errResult(apperror.Argument("unknown query kind: " + string(q.Kind)))
	}
}

func (d *Dispatcher) queryConfig() Result {
	cfg, found, err := d.State.LoadConfig(d.Storage)
	if err != nil {
		return errResult(err)
	}
	if !found {
		return errResult(apperror.NotFound("config not set"))
	}
	return ok(cfg)
}

func (d *Dispatcher) queryAppConfig() Result {
	blob, err := d.State.LoadAppConfig(d.Storage)
	if err != nil {
		return errResult(err)
	}
	return ok(blob)
}

func (d *Dispatcher) queryBalance(bq *BalanceQuery) Result {
	if bq == nil {
		return errResult(apperror.Argument("balance query missing parameters"))
	}
	coins, err := d.State.LoadBalance(d.Storage, bq.Address)
	if err != nil {
		return errResult(err)
	}
	if bq.Denom == "" {
		return ok(coins)
	}
	amt := coins.Get(bq.Denom)
	if amt == nil {
		return ok("0")
	}
	return ok(amt.String())
}

func (d *Dispatcher) querySupply(sq *SupplyQuery) Result {
	if sq == nil || sq.Denom == "" {
		return errResult(apperror.Argument("supply query requires a denom"))
	}
	amt, err := d.State.LoadSupply(d.Storage, sq.Denom)
	if err != nil {
		return errResult(err)
	}
	return ok(amt.String())
}

type supplyEntry struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

func (d *Dispatcher) querySupplies(pq *PageQuery) Result {
	startAfter, limit := pagingParams(pq)
	keys, values, err := d.State.Supplies.ScanPage(d.Storage, startAfter, limit)
	if err != nil {
		return errResult(err)
	}
	out := make([]supplyEntry, len(keys))
	for i, k := range keys {
		out[i] = supplyEntry{Denom: string(k), Amount: values[i].String()}
	}
	return ok(out)
}

func (d *Dispatcher) queryCode(cq *CodeQuery) Result {
	if cq == nil || cq.CodeHash.IsZero() {
		return errResult(apperror.Argument("code query requires a code hash"))
	}
	rec, found, err := d.State.LoadCode(d.Storage, cq.CodeHash)
	if err != nil {
		return errResult(err)
	}
	if !found {
		return errResult(apperror.NotFound("code not found"))
	}
	return ok(rec)
}

type codeEntry struct {
	CodeHash types.Hash256 `json:"code_hash"`
}

func (d *Dispatcher) queryCodes(pq *PageQuery) Result {
	startAfter, limit := pagingParams(pq)
	keys, _, err := d.State.Codes.ScanPage(d.Storage, startAfter, limit)
	if err != nil {
		return errResult(err)
	}
	out := make([]codeEntry, len(keys))
	for i, k := range keys {
		var h types.Hash256
		copy(h[:], k)
		out[i] = codeEntry{CodeHash: h}
	}
	return ok(out)
}

func (d *Dispatcher) queryContract(cq *ContractQuery) Result {
	if cq == nil || cq.Address.IsZero() {
		return errResult(apperror.Argument("contract query requires an address"))
	}
	acct, found, err := d.State.LoadAccount(d.Storage, cq.Address)
	if err != nil {
		return errResult(err)
	}
	if !found {
		return errResult(apperror.NotFound("contract not found"))
	}
	return ok(acct)
}

type contractEntry struct {
	Address types.Address `json:"address"`
	Account types.Account `json:"account"`
}

func (d *Dispatcher) queryContracts(pq *PageQuery) Result {
	startAfter, limit := pagingParams(pq)
	keys, values, err := d.State.Accounts.ScanPage(d.Storage, startAfter, limit)
	if err != nil {
		return errResult(err)
	}
	out := make([]contractEntry, len(keys))
	for i, k := range keys {
		var a types.Address
		copy(a[:], k)
		out[i] = contractEntry{Address: a, Account: values[i]}
	}
	return ok(out)
}

func (d *Dispatcher) queryWasmRaw(rq *WasmRawQuery) Result {
	if rq == nil {
		return errResult(apperror.Argument("wasm_raw query missing parameters"))
	}
	val, found := d.Storage.Read(rq.Key)
	if !found {
		return Result{Value: nil}
	}
	return Result{Value: json.RawMessage(val)}
}

func (d *Dispatcher) queryWasmSmart(wq *WasmSmartQuery, tracker *gas.Tracker, depth uint32) Result {
	if wq == nil {
		return errResult(apperror.Argument("wasm_smart query missing parameters"))
	}
	acct, found, err := d.State.LoadAccount(d.Storage, wq.Contract)
	if err != nil {
		return errResult(err)
	}
	if !found {
		return errResult(apperror.NotFound("contract not found"))
	}
	env := wasmhost.NewEnvironment(d.Storage, d, tracker, false)
	env.QueryDepth = depth
	ctx, _ := json.Marshal(types.CallContext{Contract: wq.Contract})
	resp, err := d.Invoker.Invoke("query", wq.Contract, acct.CodeHash, env, ctx, wq.Msg)
	if err != nil {
		return errResult(err)
	}
	if resp == nil {
		return ok(nil)
	}
	return Result{Value: resp.Data}
}

func (d *Dispatcher) queryMulti(qs []Query, tracker *gas.Tracker, depth uint32) Result {
	results := make([]Result, len(qs))
	for i, sub := range qs {
		results[i] = d.dispatch(sub, tracker, depth)
	}
	return ok(results)
}

func pagingParams(pq *PageQuery) (startAfter []byte, limit int) {
	if pq == nil {
		return nil, defaultPageLimit
	}
	limit = int(pq.Limit)
	if limit <= 0 {
		limit = defaultPageLimit
	}
	return pq.StartAfter, limit
}
