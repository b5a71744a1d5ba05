package types

// message.go — the tagged-union Message type dispatched by the
// execution pipeline, plus Tx. Grounded on core/messages.go and
// core/tx_types.go (kept and adapted field shapes).

import "encoding/json"

// MessageKind tags the Message union.
type MessageKind string

const (
	MsgConfigure    MessageKind = "configure"
	MsgTransfer     MessageKind = "transfer"
	MsgUpload       MessageKind = "upload"
	MsgInstantiate  MessageKind = "instantiate"
	MsgExecute      MessageKind = "execute"
	MsgMigrate      MessageKind = "migrate"
	MsgIBCTransfer  MessageKind = "ibc_transfer"
)

// Message is the tagged union of spec §3. Only one of the typed
// fields is populated, matching Kind.
type Message struct {
	Kind MessageKind `json:"kind"`

	Configure   *ConfigureMsg   `json:"configure,omitempty"`
	Transfer    *TransferMsg    `json:"transfer,omitempty"`
	Upload      *UploadMsg      `json:"upload,omitempty"`
	Instantiate *InstantiateMsg `json:"instantiate,omitempty"`
	Execute     *ExecuteMsg     `json:"execute,omitempty"`
	Migrate     *MigrateMsg     `json:"migrate,omitempty"`
}

type ConfigureMsg struct {
	NewConfig    *Config         `json:"new_config,omitempty"`
	NewAppConfig json.RawMessage `json:"new_app_config,omitempty"`
}

type TransferMsg struct {
	Recipient Address `json:"recipient"`
	Coins     Coins   `json:"coins"`
}

type UploadMsg struct {
	Code []byte `json:"code"`
}

type InstantiateMsg struct {
	CodeHash Hash256         `json:"code_hash"`
	Msg      json.RawMessage `json:"msg"`
	Salt     []byte          `json:"salt"`
	Label    string          `json:"label,omitempty"`
	Admin    *Address        `json:"admin,omitempty"`
	Funds    Coins           `json:"funds,omitempty"`
}

type ExecuteMsg struct {
	Contract Address         `json:"contract"`
	Msg      json.RawMessage `json:"msg"`
	Funds    Coins           `json:"funds,omitempty"`
}

type MigrateMsg struct {
	Contract   Address         `json:"contract"`
	NewCodeHash Hash256        `json:"new_code_hash"`
	Msg        json.RawMessage `json:"msg"`
}

// ReplyOn tags how a submessage's reply entry point should be invoked.
type ReplyOn string

const (
	ReplyNever   ReplyOn = "never"
	ReplySuccess ReplyOn = "success"
	ReplyError   ReplyOn = "error"
	ReplyAlways  ReplyOn = "always"
)

// SubMsg is a message emitted from a contract Response, to be executed
// immediately with the given reply_on policy.
type SubMsg struct {
	Msg     Message         `json:"msg"`
	ReplyOn ReplyOn         `json:"reply_on"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is the envelope every guest entry point returns: events to
// emit, data to forward, and submessages to run before the parent
// message is considered done.
type Response struct {
	Events     []json.RawMessage `json:"events,omitempty"`
	SubMsgs    []SubMsg          `json:"submsgs,omitempty"`
	Data       json.RawMessage   `json:"data,omitempty"`
}
