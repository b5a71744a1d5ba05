package types

// callctx.go — the envelope passed to every guest entry point as
// "ctx", giving a contract the ambient block/sender/contract identity
// it needs without threading extra host imports for it.

// CallContext is marshaled to JSON and passed as the ctx field of
// wasmhost.CallRequest on every Invoke.
type CallContext struct {
	Block    BlockInfo `json:"block"`
	Contract Address   `json:"contract"`
	Sender   Address   `json:"sender"`
}
