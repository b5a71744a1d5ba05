// Package execute implements the per-tx phased execution pipeline and
// the post-block cronjob scheduler of spec §4.4.
//
// Grounded on core/execution_management.go's ExecutionManager
// (BeginBlock/ExecuteTx/FinalizeBlock shape, kept) and
// core/finalization_management.go's FinalizationManager (kept:
// gluing the ledger to a block-level finalize step; replaced: no
// rollup/channel subsystems, finalize_fee and cron scheduling per
// spec §4.4/§4.7 instead).
package execute

import (
	"encoding/json"
	"math/big"

	"grug/apperror"
	"grug/store"
	"grug/types"
)

// State is the set of typed namespaces the pipeline reads and writes,
// built fresh over whatever Storage is in scope for a given phase
// (the outer per-tx buffer, or a nested per-message/per-submsg one).
type State struct {
	Config    *store.Item[types.Config]
	AppConfig *store.Item[json.RawMessage]
	Accounts  *store.Map[types.Account]
	Codes     *store.Map[types.CodeRecord]
	Balances  *store.Map[types.Coins]
	Allowlist *store.Map[bool]
	Supplies  *store.Map[*big.Int] // denom -> total minted supply
}

func jsonCodec[T any]() (func(T) []byte, func([]byte) (T, error)) {
	encode := func(v T) []byte {
		b, _ := json.Marshal(v)
		return b
	}
	decode := func(b []byte) (T, error) {
		var v T
		if err := json.Unmarshal(b, &v); err != nil {
			return v, apperror.Host("decode stored value", err)
		}
		return v, nil
	}
	return encode, decode
}

// NewState constructs the standard namespace set used throughout the
// pipeline: "config"/"app_config" (singletons), "accounts"/"codes"/
// "balances"/"allowlist"/"supplies" (keyed by address, code hash, or
// denom).
func NewState() *State {
	cfgEnc, cfgDec := jsonCodec[types.Config]()
	acctEnc, acctDec := jsonCodec[types.Account]()
	codeEnc, codeDec := jsonCodec[types.CodeRecord]()
	balEnc, balDec := jsonCodec[types.Coins]()

	boolEnc, boolDec := jsonCodec[bool]()
	supplyEnc := func(v *big.Int) []byte { return []byte(v.String()) }
	supplyDec := func(b []byte) (*big.Int, error) {
		v, ok := new(big.Int).SetString(string(b), 10)
		if !ok {
			return nil, apperror.Host("decode stored supply", nil)
		}
		return v, nil
	}

	appCfgEnc := func(v json.RawMessage) []byte { return append([]byte(nil), v...) }
	appCfgDec := func(b []byte) (json.RawMessage, error) { return append(json.RawMessage(nil), b...), nil }

	return &State{
		Config:    store.NewItem("config", cfgEnc, cfgDec),
		AppConfig: store.NewItem("app_config", appCfgEnc, appCfgDec),
		Accounts:  store.NewMap("accounts", acctEnc, acctDec),
		Codes:     store.NewMap("codes", codeEnc, codeDec),
		Balances:  store.NewMap("balances", balEnc, balDec),
		Allowlist: store.NewMap("allowlist", boolEnc, boolDec),
		Supplies:  store.NewMap("supplies", supplyEnc, supplyDec),
	}
}

func addrKey(a types.Address) []byte { return a[:] }
func hashKey(h types.Hash256) []byte { return h[:] }

func (s *State) LoadBalance(stor store.Storage, addr types.Address) (types.Coins, error) {
	coins, ok, err := s.Balances.Load(stor, addrKey(addr))
	if err != nil {
		return types.Coins{}, err
	}
	if !ok {
		return types.NewCoins()
	}
	return coins, nil
}

// LoadSupply returns the total minted supply of denom (zero if never
// minted).
func (s *State) LoadSupply(stor store.Storage, denom string) (*big.Int, error) {
	amt, ok, err := s.Supplies.Load(stor, []byte(denom))
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amt, nil
}

// Mint credits coins to addr's balance and increases each denom's
// recorded total supply accordingly. The only source of new coins in
// the system (spec §4.6's Supply query reads what this produces).
func (s *State) Mint(stor store.Storage, addr types.Address, coins types.Coins) error {
	bal, err := s.LoadBalance(stor, addr)
	if err != nil {
		return err
	}
	newBal, err := bal.Add(coins)
	if err != nil {
		return err
	}
	for _, c := range coins.Items() {
		supply, err := s.LoadSupply(stor, c.Denom.String())
		if err != nil {
			return err
		}
		s.Supplies.Save(stor, new(big.Int).Add(supply, c.Amount), []byte(c.Denom.String()))
	}
	s.SaveBalance(stor, addr, newBal)
	return nil
}

func (s *State) SaveBalance(stor store.Storage, addr types.Address, coins types.Coins) {
	s.Balances.Save(stor, coins, addrKey(addr))
}

func (s *State) LoadAccount(stor store.Storage, addr types.Address) (types.Account, bool, error) {
	return s.Accounts.Load(stor, addrKey(addr))
}

func (s *State) SaveAccount(stor store.Storage, addr types.Address, acct types.Account) {
	s.Accounts.Save(stor, acct, addrKey(addr))
}

func (s *State) LoadCode(stor store.Storage, codeHash types.Hash256) (types.CodeRecord, bool, error) {
	return s.Codes.Load(stor, hashKey(codeHash))
}

func (s *State) SaveCode(stor store.Storage, rec types.CodeRecord) {
	s.Codes.Save(stor, rec, hashKey(rec.CodeHash))
}

func (s *State) LoadConfig(stor store.Storage) (types.Config, bool, error) {
	return s.Config.Load(stor)
}

func (s *State) SaveConfig(stor store.Storage, cfg types.Config) {
	s.Config.Save(stor, cfg)
}

// LoadAppConfig returns the chain's opaque application-level config blob
// (spec §4.6's AppConfig query), empty if never set.
func (s *State) LoadAppConfig(stor store.Storage) (json.RawMessage, error) {
	v, ok, err := s.AppConfig.Load(stor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return json.RawMessage("{}"), nil
	}
	return v, nil
}

func (s *State) SaveAppConfig(stor store.Storage, blob json.RawMessage) {
	s.AppConfig.Save(stor, blob)
}

// allowlistKey scopes an address allow-list entry to a specific
// privileged action (spec §3's "somebodies" permission level).
func allowlistKey(scope string, addr types.Address) []byte {
	return append([]byte(scope+":"), addrKey(addr)...)
}

func (s *State) IsAllowlisted(stor store.Storage, scope string, addr types.Address) (bool, error) {
	allowed, ok, err := s.Allowlist.Load(stor, allowlistKey(scope, addr))
	if err != nil {
		return false, err
	}
	return ok && allowed, nil
}

func (s *State) SetAllowlisted(stor store.Storage, scope string, addr types.Address, allowed bool) {
	s.Allowlist.Save(stor, allowed, allowlistKey(scope, addr))
}
