package execute

// pipeline.go — the per-tx phased state machine of spec §4.4:
// authenticate -> withhold_fee -> message loop (with submessage
// reply_on semantics) -> backrun -> finalize_fee. Grounded on
// core/execution_management.go's ExecutionManager.ExecuteTx (kept:
// one mutex-guarded manager wrapping a VM call per tx; replaced: a
// single opaque VM.Execute call becomes a five-phase pipeline with
// its own nested copy-on-write buffers per spec §4.1/§4.4).

import (
	"encoding/json"
	"math/big"

	"grug/apperror"
	"grug/events"
	"grug/gas"
	"grug/store"
	"grug/types"
	"grug/wasmhost"
)

// FeeDenom is the denomination gas fees are withheld and refunded in.
// Spec §3 leaves pricing as a chain-level config concern; Grug fixes
// a 1:1 gas-unit-to-fee-unit rate, hard-coded in withholdFee and
// finalizeFee.
const FeeDenom = "ugrug"

// Pipeline executes one transaction at a time against a shared
// committed Storage, per BeginBlock/ExecuteTx/FinalizeBlock phases.
type Pipeline struct {
	State   *State
	Invoker ContractInvoker
	Querier wasmhost.Querier
	Gas     *gas.Schedule

	// OnCronMathError, if set, is called with the failing contract's
	// address whenever RunCronjobs sees a math-kind error from a WASM
	// cronjob (spec §8 scenario 4, Open Question 3). It is nil unless a
	// caller sets it; the DEX auction does not use it and pauses pairs
	// through dex/state.go's own flag.
	OnCronMathError func(contract types.Address)
}

// NewPipeline wires a pipeline with the given contract invoker,
// optional cross-contract querier, and gas schedule (DefaultSchedule
// if nil).
func NewPipeline(invoker ContractInvoker, querier wasmhost.Querier, schedule *gas.Schedule) *Pipeline {
	if schedule == nil {
		schedule = gas.DefaultSchedule()
	}
	return &Pipeline{State: NewState(), Invoker: invoker, Querier: querier, Gas: schedule}
}

// ExecuteTx runs tx's full phase pipeline against committed, writing
// through a top-level buffer that is flushed back into committed only
// if the transaction is not rejected at authenticate/withhold_fee.
func (p *Pipeline) ExecuteTx(committed store.Storage, block types.BlockInfo, tx types.Tx) (events.TxEvents, types.TxOutcome, error) {
	var tree events.TxEvents

	if err := tx.Validate(); err != nil {
		tree.Authenticate = failNode("authenticate", err)
		return tree, outcomeFromError(tx, 0, err), err
	}

	txBuf := store.NewBuffer(committed)
	tracker := gas.NewTracker(tx.GasLimit, p.Gas)

	authNode, requestBackrun, err := p.authenticate(txBuf, block, tracker, tx)
	tree.Authenticate = authNode
	if err != nil {
		txBuf.Discard()
		return tree, outcomeFromError(tx, tracker.Consumed(), err), err
	}

	withholdNode, err := p.withholdFee(txBuf, tx)
	tree.Withhold = withholdNode
	if err != nil {
		txBuf.Discard()
		return tree, outcomeFromError(tx, tracker.Consumed(), err), err
	}

	// Messages and backrun share one buffer nested under txBuf: a
	// backrun failure reverts every message's effects (spec §4.4 step
	// e) without touching withhold_fee, which already landed in txBuf.
	msgBuf := store.NewBuffer(txBuf)
	msgNodes, msgErr := p.runMessages(msgBuf, block, tx, tracker)
	tree.Msgs = msgNodes

	if requestBackrun && msgErr == nil {
		backrunNode, backrunErr := p.backrun(msgBuf, block, tracker, tx)
		tree.Backrun = &backrunNode
		if backrunErr != nil {
			msgErr = backrunErr
		}
	}
	if msgErr == nil {
		flushInto(txBuf, msgBuf)
	}

	finalizeNode, finErr := p.finalizeFee(txBuf, tx, tracker, msgErr)
	tree.Finalize = finalizeNode
	if finErr != nil {
		// finalize_fee must never fail the block; a failure here is
		// fatal and the whole buffer is discarded (spec §7: finalize
		// failures abort the block, not just the tx).
		txBuf.Discard()
		return tree, outcomeFromError(tx, tracker.Consumed(), finErr), finErr
	}

	flushInto(committed, txBuf)

	outcome := types.TxOutcome{GasWanted: tx.GasLimit, GasUsed: tracker.Consumed()}
	if msgErr != nil {
		outcome.Result, _ = json.Marshal(map[string]string{"err": msgErr.Error()})
		return tree, outcome, nil
	}
	outcome.Result, _ = json.Marshal(map[string]any{"ok": events.Flatten(tree)})
	return tree, outcome, nil
}

// CheckTx runs only authenticate and withhold_fee against a throwaway
// buffer over committed, never persisting anything — the mempool's
// cheap pre-admission gate (spec §4.7: "run only authenticate+withhold
// against latest state in a throwaway buffer").
func (p *Pipeline) CheckTx(committed store.Storage, tx types.Tx) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	buf := store.NewBuffer(committed)
	tracker := gas.NewTracker(tx.GasLimit, p.Gas)
	if _, _, err := p.authenticate(buf, types.BlockInfo{}, tracker, tx); err != nil {
		return err
	}
	if _, err := p.withholdFee(buf, tx); err != nil {
		return err
	}
	return nil
}

// flushInto applies buf's pending ops directly to dst (used once a
// buffer is known-good and must be persisted).
func flushInto(dst store.Storage, buf *store.Buffer) {
	for k, op := range buf.PendingBatch() {
		if op.Delete {
			dst.Remove([]byte(k))
		} else {
			dst.Write([]byte(k), op.Insert)
		}
	}
}

func failNode(typ string, err error) events.Node {
	return events.Node{
		Commitment: events.Failed,
		Status:     events.EFailed,
		Type:       typ,
		Data:       errData(err),
	}
}

func okNode(typ string) events.Node {
	return events.Node{Commitment: events.Committed, Status: events.Ok, Type: typ}
}

func errData(err error) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	return b
}

func outcomeFromError(tx types.Tx, gasUsed uint64, err error) types.TxOutcome {
	result, _ := json.Marshal(map[string]string{"err": err.Error()})
	return types.TxOutcome{Result: result, GasWanted: tx.GasLimit, GasUsed: gasUsed}
}

// authenticate dispatches to the sender's own account contract (spec
// §4.3/§4.4 step b), exactly the way instantiate/execute/migrate
// dispatch to a contract in submsg.go: the pipeline never special-cases
// entry points, so sequence/nonce policy (spec §8 scenario 3's 0, 1, 2,
// 4 gap-rejects) is entirely up to the contract the sender's address
// resolves to. The contract's Response.Data may carry
// {"request_backrun": true} to opt the tx into the backrun phase.
func (p *Pipeline) authenticate(buf store.Storage, block types.BlockInfo, tracker *gas.Tracker, tx types.Tx) (events.Node, bool, error) {
	acct, exists, err := p.State.LoadAccount(buf, tx.Sender)
	if err != nil {
		return failNode("authenticate", err), false, err
	}
	if !exists {
		err := apperror.NotFound("authenticate: sender account not found")
		return failNode("authenticate", err), false, err
	}
	msg, err := json.Marshal(tx)
	if err != nil {
		err = apperror.Host("marshal tx for authenticate", err)
		return failNode("authenticate", err), false, err
	}
	resp, err := p.invokeContract(buf, block, tracker, "authenticate", tx.Sender, acct.CodeHash, tx.Sender, msg)
	if err != nil {
		return failNode("authenticate", err), false, err
	}
	return okNode("authenticate"), decodeRequestBackrun(resp), nil
}

// backrun dispatches to the sender's account contract's "backrun"
// entry point once the message loop has run (spec §4.4 step e), giving
// the account a chance to enforce post-conditions over the whole tx.
func (p *Pipeline) backrun(buf store.Storage, block types.BlockInfo, tracker *gas.Tracker, tx types.Tx) (events.Node, error) {
	acct, exists, err := p.State.LoadAccount(buf, tx.Sender)
	if err != nil {
		return failNode("backrun", err), err
	}
	if !exists {
		err := apperror.NotFound("backrun: sender account not found")
		return failNode("backrun", err), err
	}
	msg, err := json.Marshal(tx)
	if err != nil {
		err = apperror.Host("marshal tx for backrun", err)
		return failNode("backrun", err), err
	}
	if _, err := p.invokeContract(buf, block, tracker, "backrun", tx.Sender, acct.CodeHash, tx.Sender, msg); err != nil {
		return failNode("backrun", err), err
	}
	return okNode("backrun"), nil
}

// decodeRequestBackrun reads the request_backrun flag an authenticate
// call may set in its Response.Data; anything else (no response, no
// flag, malformed data) is treated as "no backrun requested".
func decodeRequestBackrun(resp *types.Response) bool {
	if resp == nil || len(resp.Data) == 0 {
		return false
	}
	var probe struct {
		RequestBackrun bool `json:"request_backrun"`
	}
	if err := json.Unmarshal(resp.Data, &probe); err != nil {
		return false
	}
	return probe.RequestBackrun
}

// withholdFee deducts gas_limit units of FeeDenom from the sender's
// balance into the chain's taxman account.
func (p *Pipeline) withholdFee(buf store.Storage, tx types.Tx) (events.Node, error) {
	if tx.GasLimit == 0 {
		return okNode("withhold_fee"), nil
	}
	cfg, ok, err := p.State.LoadConfig(buf)
	if err != nil {
		return failNode("withhold_fee", err), err
	}
	if !ok {
		return okNode("withhold_fee"), nil // genesis-time tx before config exists
	}
	denom, err := types.NewDenom(FeeDenom)
	if err != nil {
		return failNode("withhold_fee", err), err
	}
	fee, err := types.NewCoin(denom, bigFromUint64(tx.GasLimit))
	if err != nil {
		return failNode("withhold_fee", err), err
	}
	feeCoins, err := types.NewCoins(fee)
	if err != nil {
		return failNode("withhold_fee", err), err
	}

	balance, err := p.State.LoadBalance(buf, tx.Sender)
	if err != nil {
		return failNode("withhold_fee", err), err
	}
	remaining, err := balance.Sub(feeCoins)
	if err != nil {
		return failNode("withhold_fee", apperror.Math("insufficient balance to withhold fee")), err
	}
	taxmanBalance, err := p.State.LoadBalance(buf, cfg.Taxman)
	if err != nil {
		return failNode("withhold_fee", err), err
	}
	newTaxman, err := taxmanBalance.Add(feeCoins)
	if err != nil {
		return failNode("withhold_fee", err), err
	}
	p.State.SaveBalance(buf, tx.Sender, remaining)
	p.State.SaveBalance(buf, cfg.Taxman, newTaxman)
	return okNode("withhold_fee"), nil
}

// finalizeFee refunds unused gas back to the sender from the taxman.
// A refund failure is fatal to the block (spec §7).
func (p *Pipeline) finalizeFee(buf store.Storage, tx types.Tx, tracker *gas.Tracker, msgErr error) (events.Node, error) {
	unused := tracker.Remaining()
	if unused == 0 || tx.GasLimit == 0 {
		return okNode("finalize_fee"), nil
	}
	cfg, ok, err := p.State.LoadConfig(buf)
	if err != nil || !ok {
		return okNode("finalize_fee"), nil
	}
	denom, _ := types.NewDenom(FeeDenom)
	refundCoin, err := types.NewCoin(denom, bigFromUint64(unused))
	if err != nil {
		return okNode("finalize_fee"), nil // nothing to refund
	}
	refund, _ := types.NewCoins(refundCoin)

	taxmanBalance, err := p.State.LoadBalance(buf, cfg.Taxman)
	if err != nil {
		return failNode("finalize_fee", apperror.Fatal("load taxman balance", err)), apperror.Fatal("finalize_fee failed", err)
	}
	newTaxman, err := taxmanBalance.Sub(refund)
	if err != nil {
		// Taxman under-collected somehow; this should never happen if
		// withhold_fee ran, and is treated as fatal per spec §7.
		return failNode("finalize_fee", apperror.Fatal("taxman balance underflow on refund", err)), apperror.Fatal("finalize_fee failed", err)
	}
	senderBalance, err := p.State.LoadBalance(buf, tx.Sender)
	if err != nil {
		return failNode("finalize_fee", apperror.Fatal("load sender balance", err)), apperror.Fatal("finalize_fee failed", err)
	}
	newSender, err := senderBalance.Add(refund)
	if err != nil {
		return failNode("finalize_fee", apperror.Fatal("sender balance overflow on refund", err)), apperror.Fatal("finalize_fee failed", err)
	}
	p.State.SaveBalance(buf, cfg.Taxman, newTaxman)
	p.State.SaveBalance(buf, tx.Sender, newSender)
	_ = msgErr // finalize_fee runs regardless of message outcome
	return okNode("finalize_fee"), nil
}

func bigFromUint64(v uint64) *big.Int { return new(big.Int).SetUint64(v) }
