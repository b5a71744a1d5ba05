package types

// tx.go — Tx, Account/Code/Contract records. Grounded on
// core/transactions.go and core/tx_types.go.

import (
	"encoding/json"

	"grug/apperror"
)

// Tx is a signed transaction: sender, gas limit, one-or-more messages,
// and opaque data/credential blobs the sender's account contract
// interprets (spec §3).
type Tx struct {
	Sender     Address           `json:"sender"`
	GasLimit   uint64            `json:"gas_limit"`
	Msgs       []Message         `json:"msgs"`
	Data       json.RawMessage   `json:"data,omitempty"`
	Credential json.RawMessage   `json:"credential,omitempty"`
}

// Validate enforces Tx's structural invariant: msgs is non-empty.
func (t Tx) Validate() error {
	if len(t.Msgs) == 0 {
		return apperror.Argument("tx.msgs must be non-empty")
	}
	return nil
}

// Account is the on-chain record an Instantiate message creates.
type Account struct {
	CodeHash Hash256  `json:"code_hash"`
	Admin    *Address `json:"admin,omitempty"`
	Label    string   `json:"label,omitempty"`
}

// CodeRecord maps a code hash to its immutable wasm bytes; stored
// under the reserved CODES namespace.
type CodeRecord struct {
	CodeHash Hash256 `json:"code_hash"`
	WasmByte []byte  `json:"wasm_bytes"`
}

// TxOutcome is the per-tx result surfaced to the consensus adapter
// (spec §7 "user-visible failure").
type TxOutcome struct {
	Result    json.RawMessage `json:"result"` // {"ok": events} | {"err": message}
	GasWanted uint64          `json:"gas_wanted"`
	GasUsed   uint64          `json:"gas_used"`
}
