package abci

// adapter.go — the consensus adapter of spec §4.7: Info/InitChain/
// CheckTx/PrepareProposal/ProcessProposal/FinalizeBlock/Commit/Query.
// Grounded on core/consensus.go's NewConsensus-style explicit
// constructor taking every collaborator as a narrow interface/struct
// field (kept: one wiring struct, no package-level singleton;
// replaced: PoH/PoS sub-block aggregation becomes the much simpler
// request/response translation spec §4.7 names, since Grug's
// consensus engine lives outside this repo and only calls in through
// these entry points).

import (
	"encoding/json"

	"golang.org/x/time/rate"

	"grug/apperror"
	"grug/db"
	"grug/dex"
	"grug/execute"
	"grug/query"
	"grug/store"
	"grug/types"
)

// defaultQueryGasLimit bounds a single Query call's dispatch cost
// (spec §4.6 "gas tracker initialized from a query-budget").
const defaultQueryGasLimit = 10_000_000

// Adapter wires the database, execution pipeline, and DEX manager
// into the consensus-facing entry points. Built fresh per process,
// matching execute.Pipeline's explicit-construction style rather than
// core/liquidity_pools.go's sync.Once singleton.
type Adapter struct {
	Db       *db.Db
	Pipeline *execute.Pipeline
	Dex      *dex.Manager
	Preparer ProposalPreparer

	QueryGasLimit uint64

	// Limiter throttles the externally-reachable Query entry point,
	// the same golang.org/x/time/rate pattern core/virtual_machine.go
	// applies to its debug HTTP server (200 req/s, burst 100).
	Limiter *rate.Limiter

	// Logf receives non-fatal diagnostics (cronjob failures, a
	// per-pair auction error) the way execute.Pipeline.RunCronjobs
	// already expects a log callback rather than an injected logger.
	Logf func(format string, args ...any)
}

// NewAdapter wires an Adapter with sensible defaults: FIFO proposal
// ordering, the teacher's 200 req/s burst-100 query rate limit, and a
// discarding Logf if none is supplied.
func NewAdapter(database *db.Db, pipeline *execute.Pipeline, dexMgr *dex.Manager) *Adapter {
	return &Adapter{
		Db:            database,
		Pipeline:      pipeline,
		Dex:           dexMgr,
		Preparer:      FIFOPreparer{},
		QueryGasLimit: defaultQueryGasLimit,
		Limiter:       rate.NewLimiter(200, 100),
		Logf:          func(string, ...any) {},
	}
}

// Info reports the last committed (height, app_hash).
func (a *Adapter) Info(RequestInfo) ResponseInfo {
	return ResponseInfo{
		LastBlockHeight:  a.Db.CommittedVersion(),
		LastBlockAppHash: a.Db.CommittedRoot(),
	}
}

// InitChain installs genesis config and DEX pairs, runs every genesis
// transaction through the ordinary pipeline, and commits the result
// immediately — genesis has no separate FinalizeBlock/Commit round.
func (a *Adapter) InitChain(req RequestInitChain) (ResponseInitChain, error) {
	buf := store.NewBuffer(a.Db.Storage())

	a.Pipeline.State.SaveConfig(buf, req.Genesis.Config)
	if len(req.Genesis.AppConfig) > 0 {
		a.Pipeline.State.SaveAppConfig(buf, req.Genesis.AppConfig)
	}
	for _, p := range req.Genesis.DexPairs {
		if err := a.Dex.CreatePair(buf, p.Base, p.Quote, p.Params); err != nil {
			return ResponseInitChain{}, err
		}
	}

	block := types.BlockInfo{Height: 0, Timestamp: req.Time}
	for _, tx := range req.Genesis.Txs {
		if _, _, err := a.Pipeline.ExecuteTx(buf, block, tx); err != nil {
			return ResponseInitChain{}, err
		}
	}

	version, root, err := a.Db.FlushButNotCommit(buf.PendingBatch())
	if err != nil {
		return ResponseInitChain{}, err
	}
	if err := a.Db.Commit(); err != nil {
		return ResponseInitChain{}, err
	}
	_ = version
	return ResponseInitChain{AppHash: root}, nil
}

// CheckTx runs the mempool admission gate against the latest
// committed state, never mutating it.
func (a *Adapter) CheckTx(req RequestCheckTx) ResponseCheckTx {
	if err := a.Pipeline.CheckTx(a.Db.Storage(), req.Tx); err != nil {
		return ResponseCheckTx{Code: 1, Log: err.Error()}
	}
	return ResponseCheckTx{}
}

// PrepareProposal delegates ordering to Preparer, then trims the
// result to MaxBytes by cumulative JSON-encoded transaction size.
func (a *Adapter) PrepareProposal(req RequestPrepareProposal) ResponsePrepareProposal {
	ordered := a.Preparer.PrepareTxs(req.Txs)
	if req.MaxBytes <= 0 {
		return ResponsePrepareProposal{Txs: ordered}
	}
	var (
		out  []types.Tx
		used int
	)
	for _, tx := range ordered {
		b, err := json.Marshal(tx)
		if err != nil {
			continue
		}
		if used+len(b) > req.MaxBytes {
			break
		}
		used += len(b)
		out = append(out, tx)
	}
	return ResponsePrepareProposal{Txs: out}
}

// ProcessProposal validates a proposal assembled by another node.
// Grug's transactions are self-certifying (authenticate/withhold_fee
// re-run deterministically in FinalizeBlock, and any invalid tx fails
// in isolation without affecting the rest of the block per spec §7),
// so there is no separate proposal-level validity check to perform
// ahead of execution — this is an intentional stub accepting anything,
// as spec.md itself leaves ProcessProposal unspecified beyond naming
// the entry point.
func (a *Adapter) ProcessProposal(RequestProcessProposal) ResponseProcessProposal {
	return ResponseProcessProposal{Accept: true}
}

// FinalizeBlock runs spec §4.4's pipeline over every tx in order,
// then §4.7's cronjob pass, then clears every configured DEX pair's
// auction (spec §4.5) — all inside one buffer staged into the
// commitment tree but not yet persisted (persistence is Commit's job).
func (a *Adapter) FinalizeBlock(req RequestFinalizeBlock) (ResponseFinalizeBlock, error) {
	block := types.BlockInfo{Height: req.Height, Timestamp: req.Time}
	buf := store.NewBuffer(a.Db.Storage())

	resp := ResponseFinalizeBlock{AuctionResults: map[string]*dex.AuctionResult{}}
	for _, tx := range req.Txs {
		tree, outcome, _ := a.Pipeline.ExecuteTx(buf, block, tx)
		resp.TxResults = append(resp.TxResults, outcome)
		resp.TxEvents = append(resp.TxEvents, tree)
	}

	cronNode, err := a.Pipeline.RunCronjobs(buf, block, a.Logf)
	if err != nil {
		return ResponseFinalizeBlock{}, err
	}
	resp.CronEvent = cronNode

	pairs, _, err := a.Dex.State.ListPairs(buf)
	if err != nil {
		return ResponseFinalizeBlock{}, err
	}
	for _, pair := range pairs {
		base, quote := pair[0], pair[1]
		result, err := a.Dex.ClearAuction(buf, base, quote, block)
		if err != nil {
			// ClearAuction has already discarded its own internal
			// buffer and paused the pair on a math error; a non-math
			// error here (e.g. a storage read failure) is logged and
			// the rest of the block proceeds, per spec §8 scenario 4
			// ("a single pair's failure must not halt the chain").
			a.Logf("abci: auction clearing failed for %s/%s: %v", base, quote, err)
			continue
		}
		if result != nil {
			resp.AuctionResults[base+"/"+quote] = result
		}
	}

	version, root, err := a.Db.FlushButNotCommit(buf.PendingBatch())
	if err != nil {
		return ResponseFinalizeBlock{}, err
	}
	_ = version
	resp.AppHash = root
	return resp, nil
}

// Commit persists the batch staged by the preceding FinalizeBlock.
func (a *Adapter) Commit() (ResponseCommit, error) {
	if err := a.Db.Commit(); err != nil {
		return ResponseCommit{}, err
	}
	return ResponseCommit{}, nil
}

// Query answers either a dispatched query.Query (PathDispatch) or a
// raw commitment-tree key read with an optional Merkle proof
// (PathStore), against state pinned at Height (0 means latest).
func (a *Adapter) Query(req RequestQuery) ResponseQuery {
	if a.Limiter != nil && !a.Limiter.Allow() {
		return ResponseQuery{Error: "query rate limit exceeded"}
	}

	stor, err := a.Db.Snapshot(req.Height)
	if err != nil {
		return ResponseQuery{Error: err.Error()}
	}

	if req.Path == PathStore {
		value, ok := stor.Read(req.Data)
		if !ok {
			return ResponseQuery{Error: apperror.NotFound("key not found").Error()}
		}
		resp := ResponseQuery{Value: value}
		if req.Prove {
			proof, err := a.Db.ExistenceProof(req.Data, value)
			if err != nil {
				return ResponseQuery{Error: err.Error()}
			}
			proofBytes, err := proof.Marshal()
			if err != nil {
				return ResponseQuery{Error: err.Error()}
			}
			resp.Proof = proofBytes
		}
		return resp
	}

	var q query.Query
	if err := json.Unmarshal(req.Data, &q); err != nil {
		return ResponseQuery{Error: apperror.Argument("malformed query request").Error()}
	}
	dispatcher := query.NewDispatcher(stor, a.Pipeline.State, a.Pipeline.Invoker, a.Pipeline.Gas, 0)
	result := dispatcher.Dispatch(q, a.QueryGasLimit)
	return ResponseQuery{Value: result.Value, Error: result.Error}
}
