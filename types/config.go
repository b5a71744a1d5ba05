package types

// config.go — on-chain Config and BlockInfo. Grounded on
// core/consensus_params.go (kept shape: chain-level knobs held
// alongside the ledger) generalized to Grug's account/cronjob model.

import "time"

// Config is the on-chain configuration record (spec §3).
type Config struct {
	Owner          Address           `json:"owner"`
	Bank           Address           `json:"bank"`
	Taxman         Address           `json:"taxman"`
	Cronjobs       map[string]int64  `json:"cronjobs"` // contract addr (hex) -> interval nanoseconds
	AllowedClients []string          `json:"allowed_ibc_clients,omitempty"`
	Permissions    Permissions       `json:"permissions"`
}

// Permissions controls who may perform privileged actions.
type Permissions struct {
	UploadCode      Permission `json:"upload_code"`
	Instantiate     Permission `json:"instantiate"`
	CreateIBCClient Permission `json:"create_ibc_client"`
}

// Permission enumerates who may perform a privileged action.
type Permission string

const (
	PermissionNobody    Permission = "nobody"
	PermissionEveryone  Permission = "everyone"
	PermissionSomebodies Permission = "somebodies" // allow-listed in a side map
)

// BlockInfo describes the block currently being executed.
type BlockInfo struct {
	Height    uint64  `json:"height"`
	Timestamp int64   `json:"timestamp"` // nanoseconds since epoch
	Hash      Hash256 `json:"hash"`
}

// Time returns the block timestamp as a time.Time.
func (b BlockInfo) Time() time.Time {
	return time.Unix(0, b.Timestamp).UTC()
}
