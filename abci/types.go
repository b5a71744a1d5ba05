// Package abci implements the consensus adapter of spec §4.7: the
// seam that translates an external consensus engine's request/
// response calls into the storage/execution/query/dex operations
// built in the sibling packages.
//
// Grounded on the uhyunpark/hyperlicked pkg/abci example's own small,
// self-contained request/response structs for PrepareProposal/
// ProcessProposal/FinalizeBlock — Grug has no dependency on a real
// consensus-engine SDK (no cometbft/tendermint in go.mod), so the
// adapter defines its own narrow shapes rather than importing one.
package abci

import (
	"grug/dex"
	"grug/events"
	"grug/types"
)

// RequestInfo/ResponseInfo report the adapter's last committed state,
// used by a consensus engine to decide whether to replay or resume.
type RequestInfo struct{}

type ResponseInfo struct {
	LastBlockHeight  uint64
	LastBlockAppHash types.Hash256
}

// GenesisState is the chain's initial configuration and seed
// transactions, run once by InitChain.
type GenesisState struct {
	Config   types.Config
	AppConfig []byte
	DexPairs []GenesisDexPair
	Txs      []types.Tx
}

// GenesisDexPair registers one DEX pair at genesis, before any
// transaction runs.
type GenesisDexPair struct {
	Base   string
	Quote  string
	Params dex.Params
}

type RequestInitChain struct {
	ChainID string
	Time    int64
	Genesis GenesisState
}

type ResponseInitChain struct {
	AppHash types.Hash256
}

// RequestCheckTx / ResponseCheckTx implement spec §4.7's mempool
// admission gate: authenticate and withhold_fee only, never persisted.
type RequestCheckTx struct {
	Tx types.Tx
}

type ResponseCheckTx struct {
	Code uint32 // 0 = accepted
	Log  string
}

type RequestPrepareProposal struct {
	Txs      []types.Tx
	MaxBytes int
}

type ResponsePrepareProposal struct {
	Txs []types.Tx
}

// RequestProcessProposal / ResponseProcessProposal validate a
// proposal built by another node. The adapter's ProcessProposal is a
// stub (spec leaves proposal validation chain-specific beyond
// PrepareProposal; Grug accepts anything PrepareProposal could have
// produced) — see adapter.go's doc comment on ProcessProposal.
type RequestProcessProposal struct {
	Txs []types.Tx
}

type ResponseProcessProposal struct {
	Accept bool
}

type RequestFinalizeBlock struct {
	Height uint64
	Time   int64
	Txs    []types.Tx
}

type ResponseFinalizeBlock struct {
	TxResults []types.TxOutcome
	TxEvents  []events.TxEvents
	CronEvent events.Node
	AuctionResults map[string]*dex.AuctionResult // keyed "base/quote"
	AppHash   types.Hash256
}

type ResponseCommit struct{}

// QueryPath selects between a dispatched query.Query (the zero value)
// and a raw commitment-tree key read with an optional Merkle proof.
type QueryPath string

const (
	PathDispatch QueryPath = ""
	PathStore    QueryPath = "store"
)

type RequestQuery struct {
	Path   QueryPath
	Data   []byte // a marshaled query.Query for PathDispatch, a raw key for PathStore
	Height uint64
	Prove  bool
}

type ResponseQuery struct {
	Value []byte
	Proof []byte // ics23-encoded CommitmentProof, set only when Prove && Path == PathStore
	Error string
}
