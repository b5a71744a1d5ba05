package execute

// submsg.go — message dispatch (Configure/Transfer/Upload/Instantiate/
// Execute/Migrate) and submessage reply_on handling (spec §4.4, §3
// ReplyOn: never/success/error/always). Grounded on core/contracts.go's
// InvokeWithReceipt call shape (kept: one call-and-record-receipt
// pattern per contract invocation; replaced: a flat opcode Receipt
// becomes a typed Response with nested submessages and a reply loop).

import (
	"encoding/json"

	"grug/apperror"
	"grug/events"
	"grug/gas"
	"grug/store"
	"grug/types"
	"grug/wasmhost"
)

// runMessages executes tx.Msgs as a single atomic unit: if any message
// fails, every message's writes are discarded (fee effects already
// committed to the tx-level buffer survive regardless, per
// withholdFee/finalizeFee running in the outer buffer).
func (p *Pipeline) runMessages(buf store.Storage, block types.BlockInfo, tx types.Tx, tracker *gas.Tracker) ([]events.Node, error) {
	msgsBuf := store.NewBuffer(buf)
	nodes := make([]events.Node, 0, len(tx.Msgs))

	for _, msg := range tx.Msgs {
		node, err := p.dispatchMessage(msgsBuf, block, tx.Sender, msg, tracker)
		nodes = append(nodes, node)
		if err != nil {
			for i := range nodes {
				if nodes[i].Commitment == events.Committed {
					nodes[i].Commitment = events.Reverted
				}
			}
			return nodes, err
		}
	}
	flushInto(buf, msgsBuf)
	return nodes, nil
}

func (p *Pipeline) dispatchMessage(buf store.Storage, block types.BlockInfo, sender types.Address, msg types.Message, tracker *gas.Tracker) (events.Node, error) {
	switch msg.Kind {
	case types.MsgConfigure:
		return p.execConfigure(buf, sender, msg.Configure)
	case types.MsgTransfer:
		return p.execTransfer(buf, sender, msg.Transfer)
	case types.MsgUpload:
		return p.execUpload(buf, sender, msg.Upload)
	case types.MsgInstantiate:
		return p.execInstantiate(buf, block, sender, tracker, msg.Instantiate)
	case types.MsgExecute:
		return p.execExecute(buf, block, sender, tracker, msg.Execute)
	case types.MsgMigrate:
		return p.execMigrate(buf, block, sender, tracker, msg.Migrate)
	default:
		err := apperror.Argument("unknown message kind: " + string(msg.Kind))
		return failNode(string(msg.Kind), err), err
	}
}

func (p *Pipeline) execConfigure(buf store.Storage, sender types.Address, m *types.ConfigureMsg) (events.Node, error) {
	typ := string(types.MsgConfigure)
	if m == nil {
		err := apperror.Argument("configure: missing body")
		return failNode(typ, err), err
	}
	cfg, ok, err := p.State.LoadConfig(buf)
	if err != nil {
		return failNode(typ, err), err
	}
	if ok && cfg.Owner != sender {
		err := apperror.Auth("configure: sender is not the chain owner")
		return failNode(typ, err), err
	}
	if m.NewConfig != nil {
		p.State.SaveConfig(buf, *m.NewConfig)
	}
	return okNode(typ), nil
}

func (p *Pipeline) execTransfer(buf store.Storage, sender types.Address, m *types.TransferMsg) (events.Node, error) {
	typ := string(types.MsgTransfer)
	if m == nil {
		err := apperror.Argument("transfer: missing body")
		return failNode(typ, err), err
	}
	senderBal, err := p.State.LoadBalance(buf, sender)
	if err != nil {
		return failNode(typ, err), err
	}
	remaining, err := senderBal.Sub(m.Coins)
	if err != nil {
		return failNode(typ, err), err
	}
	recipientBal, err := p.State.LoadBalance(buf, m.Recipient)
	if err != nil {
		return failNode(typ, err), err
	}
	newRecipient, err := recipientBal.Add(m.Coins)
	if err != nil {
		return failNode(typ, err), err
	}
	p.State.SaveBalance(buf, sender, remaining)
	p.State.SaveBalance(buf, m.Recipient, newRecipient)
	return okNode(typ), nil
}

func (p *Pipeline) execUpload(buf store.Storage, sender types.Address, m *types.UploadMsg) (events.Node, error) {
	typ := string(types.MsgUpload)
	if m == nil || len(m.Code) == 0 {
		err := apperror.Argument("upload: missing code")
		return failNode(typ, err), err
	}
	if err := p.checkPermission(buf, "upload_code", sender); err != nil {
		return failNode(typ, err), err
	}
	codeHash := types.Sha256(m.Code)
	if _, exists, _ := p.State.LoadCode(buf, codeHash); exists {
		return okNode(typ), nil // idempotent re-upload of identical bytes
	}
	p.State.SaveCode(buf, types.CodeRecord{CodeHash: codeHash, WasmByte: m.Code})
	return okNode(typ), nil
}

func (p *Pipeline) execInstantiate(buf store.Storage, block types.BlockInfo, sender types.Address, tracker *gas.Tracker, m *types.InstantiateMsg) (events.Node, error) {
	typ := string(types.MsgInstantiate)
	if m == nil {
		err := apperror.Argument("instantiate: missing body")
		return failNode(typ, err), err
	}
	if err := p.checkPermission(buf, "instantiate", sender); err != nil {
		return failNode(typ, err), err
	}
	if _, exists, _ := p.State.LoadCode(buf, m.CodeHash); !exists {
		err := apperror.NotFound("instantiate: unknown code hash")
		return failNode(typ, err), err
	}
	contract := types.DeriveContractAddress(sender, m.CodeHash, m.Salt)
	if _, exists, _ := p.State.LoadAccount(buf, contract); exists {
		err := apperror.Conflict("instantiate: contract address already in use")
		return failNode(typ, err), err
	}
	p.State.SaveAccount(buf, contract, types.Account{CodeHash: m.CodeHash, Admin: m.Admin, Label: m.Label})

	if m.Funds.Len() > 0 {
		if err := p.moveFunds(buf, sender, contract, m.Funds); err != nil {
			return failNode(typ, err), err
		}
	}

	node := okNode(typ)
	resp, err := p.invokeContract(buf, block, tracker, "instantiate", contract, m.CodeHash, sender, m.Msg)
	if err != nil {
		return failNode(typ, err), err
	}
	if resp != nil {
		if err := p.runSubMsgs(buf, block, contract, m.CodeHash, resp.SubMsgs, tracker, &node); err != nil {
			return failNode(typ, err), err
		}
	}
	return node, nil
}

func (p *Pipeline) execExecute(buf store.Storage, block types.BlockInfo, sender types.Address, tracker *gas.Tracker, m *types.ExecuteMsg) (events.Node, error) {
	typ := string(types.MsgExecute)
	if m == nil {
		err := apperror.Argument("execute: missing body")
		return failNode(typ, err), err
	}
	acct, exists, err := p.State.LoadAccount(buf, m.Contract)
	if err != nil {
		return failNode(typ, err), err
	}
	if !exists {
		err := apperror.NotFound("execute: contract account not found")
		return failNode(typ, err), err
	}
	if m.Funds.Len() > 0 {
		if err := p.moveFunds(buf, sender, m.Contract, m.Funds); err != nil {
			return failNode(typ, err), err
		}
	}
	node := okNode(typ)
	resp, err := p.invokeContract(buf, block, tracker, "execute", m.Contract, acct.CodeHash, sender, m.Msg)
	if err != nil {
		return failNode(typ, err), err
	}
	if resp != nil {
		if err := p.runSubMsgs(buf, block, m.Contract, acct.CodeHash, resp.SubMsgs, tracker, &node); err != nil {
			return failNode(typ, err), err
		}
	}
	return node, nil
}

func (p *Pipeline) execMigrate(buf store.Storage, block types.BlockInfo, sender types.Address, tracker *gas.Tracker, m *types.MigrateMsg) (events.Node, error) {
	typ := string(types.MsgMigrate)
	if m == nil {
		err := apperror.Argument("migrate: missing body")
		return failNode(typ, err), err
	}
	acct, exists, err := p.State.LoadAccount(buf, m.Contract)
	if err != nil {
		return failNode(typ, err), err
	}
	if !exists {
		err := apperror.NotFound("migrate: contract account not found")
		return failNode(typ, err), err
	}
	if acct.Admin == nil || *acct.Admin != sender {
		err := apperror.Auth("migrate: sender is not the contract admin")
		return failNode(typ, err), err
	}
	if _, exists, _ := p.State.LoadCode(buf, m.NewCodeHash); !exists {
		err := apperror.NotFound("migrate: unknown new code hash")
		return failNode(typ, err), err
	}
	acct.CodeHash = m.NewCodeHash
	p.State.SaveAccount(buf, m.Contract, acct)

	node := okNode(typ)
	resp, err := p.invokeContract(buf, block, tracker, "migrate", m.Contract, m.NewCodeHash, sender, m.Msg)
	if err != nil {
		return failNode(typ, err), err
	}
	if resp != nil {
		if err := p.runSubMsgs(buf, block, m.Contract, m.NewCodeHash, resp.SubMsgs, tracker, &node); err != nil {
			return failNode(typ, err), err
		}
	}
	return node, nil
}

// checkPermission enforces Config.Permissions for the upload_code and
// instantiate privileged actions (spec §3): nobody means owner-only,
// everyone is unrestricted, somebodies consults the allow-list map. No
// config yet (genesis) is treated as unrestricted.
func (p *Pipeline) checkPermission(buf store.Storage, scope string, sender types.Address) error {
	cfg, ok, err := p.State.LoadConfig(buf)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	var level types.Permission
	switch scope {
	case "upload_code":
		level = cfg.Permissions.UploadCode
	case "instantiate":
		level = cfg.Permissions.Instantiate
	}
	switch level {
	case types.PermissionEveryone, "":
		return nil
	case types.PermissionNobody:
		if sender == cfg.Owner {
			return nil
		}
		return apperror.Auth(scope + ": restricted to the chain owner")
	case types.PermissionSomebodies:
		allowed, err := p.State.IsAllowlisted(buf, scope, sender)
		if err != nil {
			return err
		}
		if allowed || sender == cfg.Owner {
			return nil
		}
		return apperror.Auth(scope + ": sender is not allow-listed")
	default:
		return apperror.Auth(scope + ": unrecognized permission level")
	}
}

func (p *Pipeline) moveFunds(buf store.Storage, from, to types.Address, coins types.Coins) error {
	fromBal, err := p.State.LoadBalance(buf, from)
	if err != nil {
		return err
	}
	remaining, err := fromBal.Sub(coins)
	if err != nil {
		return err
	}
	toBal, err := p.State.LoadBalance(buf, to)
	if err != nil {
		return err
	}
	newTo, err := toBal.Add(coins)
	if err != nil {
		return err
	}
	p.State.SaveBalance(buf, from, remaining)
	p.State.SaveBalance(buf, to, newTo)
	return nil
}

// invokeContract builds a fresh Environment over buf and calls through
// to the configured ContractInvoker.
func (p *Pipeline) invokeContract(buf store.Storage, block types.BlockInfo, tracker *gas.Tracker, entryPoint string, contract types.Address, codeHash types.Hash256, sender types.Address, msg json.RawMessage) (*types.Response, error) {
	env := wasmhost.NewEnvironment(buf, p.Querier, tracker, true)
	ctx, err := json.Marshal(types.CallContext{Block: block, Contract: contract, Sender: sender})
	if err != nil {
		return nil, apperror.Host("marshal call context", err)
	}
	return p.Invoker.Invoke(entryPoint, contract, codeHash, env, ctx, msg)
}

// replyPayload is the envelope passed as msg to a contract's "reply"
// entry point: the original submessage payload plus the outcome.
type replyPayload struct {
	Payload json.RawMessage `json:"payload,omitempty"`
	Ok      bool            `json:"ok"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// runSubMsgs processes subs emitted by contract's last call, recording
// each under parentNode.SubEvents. A Never-reply submessage failure
// propagates up and aborts the parent message; Error/Always replies
// give the contract a chance to recover instead.
func (p *Pipeline) runSubMsgs(buf store.Storage, block types.BlockInfo, contract types.Address, codeHash types.Hash256, subs []types.SubMsg, tracker *gas.Tracker, parentNode *events.Node) error {
	for _, sub := range subs {
		childBuf := store.NewBuffer(buf)
		childNode, childErr := p.dispatchMessage(childBuf, block, contract, sub.Msg, tracker)
		var childData json.RawMessage
		if childErr == nil {
			flushInto(buf, childBuf)
			childData = childNode.Data
		}

		var shouldReply bool
		switch sub.ReplyOn {
		case types.ReplySuccess:
			shouldReply = childErr == nil
		case types.ReplyError:
			shouldReply = childErr != nil
		case types.ReplyAlways:
			shouldReply = true
		case types.ReplyNever:
			shouldReply = false
		}

		parentNode.SubEvents = append(parentNode.SubEvents, childNode)

		if childErr != nil && !shouldReply {
			return childErr
		}
		if !shouldReply {
			continue
		}

		reply := replyPayload{Payload: sub.Payload, Ok: childErr == nil, Data: childData}
		if childErr != nil {
			reply.Error = childErr.Error()
		}
		replyMsg, err := json.Marshal(reply)
		if err != nil {
			return apperror.Host("marshal reply payload", err)
		}
		resp, err := p.invokeContract(buf, block, tracker, "reply", contract, codeHash, contract, replyMsg)
		if err != nil {
			return err
		}
		if resp != nil && len(resp.SubMsgs) > 0 {
			if err := p.runSubMsgs(buf, block, contract, codeHash, resp.SubMsgs, tracker, parentNode); err != nil {
				return err
			}
		}
	}
	return nil
}
