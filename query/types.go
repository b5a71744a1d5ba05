// Package query implements the read-only counterpart of the execution
// pipeline (spec §4.6): a Query enum dispatched against state pinned
// at a given block height, under a query-budget gas tracker and
// query_depth-limited WasmSmart recursion.
//
// Grounded on execute/submsg.go's message-kind switch (kept: one
// typed tagged union, one dispatch function per variant; replaced: no
// state mutation, no events, a bounded recursion depth instead of a
// reply loop).
package query

import (
	"encoding/json"

	"grug/types"
)

// Kind names a Query variant (spec §4.6's enumerated list).
type Kind string

const (
	KindConfig    Kind = "config"
	KindAppConfig Kind = "app_config"
	KindBalance   Kind = "balance"
	KindBalances  Kind = "balances"
	KindSupply    Kind = "supply"
	KindSupplies  Kind = "supplies"
	KindCode      Kind = "code"
	KindCodes     Kind = "codes"
	KindContract  Kind = "contract"
	KindContracts Kind = "contracts"
	KindWasmRaw   Kind = "wasm_raw"
	KindWasmSmart Kind = "wasm_smart"
	KindMulti     Kind = "multi"
)

// Query is a tagged union over every readable view spec §4.6 names.
// Exactly the field matching Kind is populated; the rest stay nil.
type Query struct {
	Kind Kind `json:"kind"`

	Balance   *BalanceQuery   `json:"balance,omitempty"`
	Supply    *SupplyQuery    `json:"supply,omitempty"`
	Code      *CodeQuery      `json:"code,omitempty"`
	Contract  *ContractQuery  `json:"contract,omitempty"`
	WasmRaw   *WasmRawQuery   `json:"wasm_raw,omitempty"`
	WasmSmart *WasmSmartQuery `json:"wasm_smart,omitempty"`
	Page      *PageQuery      `json:"page,omitempty"` // bounds for supplies/codes/contracts
	Multi     []Query         `json:"multi,omitempty"`
}

// PageQuery bounds a "list all" variant (Supplies/Codes/Contracts):
// entries with key > StartAfter, at most Limit of them. Balances are
// returned whole; Page does not apply to them.
// Both fields are optional; a zero Limit means "use the dispatcher's
// default page size."
type PageQuery struct {
	StartAfter []byte `json:"start_after,omitempty"`
	Limit      uint32 `json:"limit,omitempty"`
}

// BalanceQuery asks for one denom's balance, or (Denom == "") every
// denom the address holds.
type BalanceQuery struct {
	Address types.Address `json:"address"`
	Denom   string         `json:"denom,omitempty"`
}

// SupplyQuery asks for one denom's total minted supply; Denom is
// required (KindSupplies lists every denom).
type SupplyQuery struct {
	Denom string `json:"denom,omitempty"`
}

// CodeQuery asks for one code record's metadata (not its wasm bytes —
// spec §4.6 distinguishes Code's metadata view from WasmRaw's byte
// view); CodeHash is required (KindCodes lists every uploaded code
// hash).
type CodeQuery struct {
	CodeHash types.Hash256 `json:"code_hash,omitempty"`
}

// ContractQuery asks for one account's record; Address is required
// (KindContracts lists every instantiated contract account).
type ContractQuery struct {
	Address types.Address `json:"address,omitempty"`
}

// WasmRawQuery reads one raw storage key out of a contract's own
// namespace, bypassing its query export entirely.
type WasmRawQuery struct {
	Contract types.Address `json:"contract"`
	Key      []byte        `json:"key"`
}

// WasmSmartQuery invokes the target contract's "query" entry point
// with msg and returns its raw JSON response.
type WasmSmartQuery struct {
	Contract types.Address   `json:"contract"`
	Msg      json.RawMessage `json:"msg"`
}

// Result is the dispatcher's response envelope: exactly one of Value
// (success) or Error (failure) is set, mirroring the tx pipeline's
// per-node Ok/Failed split (events.Node) without the event-tree
// machinery a read-only call has no use for.
type Result struct {
	Value json.RawMessage `json:"value,omitempty"`
	Error string          `json:"error,omitempty"`
}

func ok(v any) Result {
	b, err := json.Marshal(v)
	if err != nil {
		return Result{Error: err.Error()}
	}
	return Result{Value: b}
}

func errResult(err error) Result {
	return Result{Error: err.Error()}
}
