package types

// coin.go — Coin / Coins / CoinPair: the unsigned-amount value types
// moved by every message in the system.
//
// Grounded on core/coin.go (checked-amount, cap-before-mutate idiom)
// and core/coin_test.go's table-driven style; the teacher's coin is a
// single-denom uint64 ledger entry, generalized here to a sorted
// multi-denom set over 128-bit amounts per spec §3. The 128-bit amount
// is a math/big.Int clamped to 128 bits: no purpose-built uint128
// library appears anywhere in the retrieval pack (see DESIGN.md).

import (
	"encoding/json"
	"math/big"
	"sort"

	"grug/apperror"
)

var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// Coin is a single (denom, non-zero unsigned 128-bit amount) pair.
type Coin struct {
	Denom  Denom
	Amount *big.Int
}

// NewCoin constructs a Coin, rejecting a zero or out-of-range amount.
func NewCoin(denom Denom, amount *big.Int) (Coin, error) {
	if amount == nil || amount.Sign() <= 0 {
		return Coin{}, apperror.Argument("coin amount must be positive")
	}
	if amount.Cmp(maxUint128) > 0 {
		return Coin{}, apperror.Argument("coin amount exceeds 128 bits")
	}
	return Coin{Denom: denom, Amount: new(big.Int).Set(amount)}, nil
}

// Coins is a sorted, unique-denom multiset of Coin with no zero
// amounts (spec §3 invariant).
type Coins struct {
	items []Coin
}

// NewCoins builds a Coins set from the given coins, sorting by denom
// and rejecting duplicate denoms.
func NewCoins(coins ...Coin) (Coins, error) {
	out := make([]Coin, len(coins))
	copy(out, coins)
	sort.Slice(out, func(i, j int) bool { return out[i].Denom.String() < out[j].Denom.String() })
	for i := 1; i < len(out); i++ {
		if out[i].Denom.String() == out[i-1].Denom.String() {
			return Coins{}, apperror.Conflict("duplicate denom in coins: " + out[i].Denom.String())
		}
	}
	return Coins{items: out}, nil
}

func (c Coins) Len() int { return len(c.items) }

// Get returns the amount for denom, or nil if absent.
func (c Coins) Get(denom string) *big.Int {
	for _, it := range c.items {
		if it.Denom.String() == denom {
			return new(big.Int).Set(it.Amount)
		}
	}
	return nil
}

func (c Coins) Items() []Coin {
	out := make([]Coin, len(c.items))
	copy(out, c.items)
	return out
}

// coinWire is Coin's JSON wire shape; Amount is rendered as a decimal
// string since JSON numbers cannot carry 128-bit integers losslessly.
type coinWire struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

func (c Coin) MarshalJSON() ([]byte, error) {
	return json.Marshal(coinWire{Denom: c.Denom.String(), Amount: c.Amount.String()})
}

func (c *Coin) UnmarshalJSON(data []byte) error {
	var w coinWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	denom, err := NewDenom(w.Denom)
	if err != nil {
		return err
	}
	amount, ok := new(big.Int).SetString(w.Amount, 10)
	if !ok {
		return apperror.Argument("invalid coin amount: " + w.Amount)
	}
	coin, err := NewCoin(denom, amount)
	if err != nil {
		return err
	}
	*c = coin
	return nil
}

func (c Coins) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.items)
}

func (c *Coins) UnmarshalJSON(data []byte) error {
	var items []Coin
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	built, err := NewCoins(items...)
	if err != nil {
		return err
	}
	*c = built
	return nil
}

// Add returns the checked sum of two Coins sets (merged, sorted).
func (c Coins) Add(other Coins) (Coins, error) {
	merged := map[string]*big.Int{}
	order := []string{}
	for _, it := range c.items {
		merged[it.Denom.String()] = new(big.Int).Set(it.Amount)
		order = append(order, it.Denom.String())
	}
	for _, it := range other.items {
		if cur, ok := merged[it.Denom.String()]; ok {
			cur.Add(cur, it.Amount)
		} else {
			merged[it.Denom.String()] = new(big.Int).Set(it.Amount)
			order = append(order, it.Denom.String())
		}
	}
	out := make([]Coin, 0, len(merged))
	for denomStr, amt := range merged {
		if amt.Cmp(maxUint128) > 0 {
			return Coins{}, apperror.Math("coin add overflow for denom " + denomStr)
		}
		d, _ := NewDenom(denomStr)
		out = append(out, Coin{Denom: d, Amount: amt})
	}
	return NewCoins(out...)
}

// Sub returns the checked difference c - other; a negative result (or
// a denom missing from c) is a math error, and denoms that reach zero
// are dropped from the result (spec invariant: no zero amounts).
func (c Coins) Sub(other Coins) (Coins, error) {
	remaining := map[string]*big.Int{}
	for _, it := range c.items {
		remaining[it.Denom.String()] = new(big.Int).Set(it.Amount)
	}
	for _, it := range other.items {
		cur, ok := remaining[it.Denom.String()]
		if !ok {
			return Coins{}, apperror.Math("insufficient balance for denom " + it.Denom.String())
		}
		cur.Sub(cur, it.Amount)
		if cur.Sign() < 0 {
			return Coins{}, apperror.Math("insufficient balance for denom " + it.Denom.String())
		}
	}
	out := make([]Coin, 0, len(remaining))
	for denomStr, amt := range remaining {
		if amt.Sign() == 0 {
			continue
		}
		d, _ := NewDenom(denomStr)
		out = append(out, Coin{Denom: d, Amount: amt})
	}
	return NewCoins(out...)
}

// CoinPair is the two-asset reserve of a DEX pair.
type CoinPair struct {
	Base  Coin
	Quote Coin
}

// NewCoinPair constructs a CoinPair from two coins of distinct denoms.
func NewCoinPair(base, quote Coin) (CoinPair, error) {
	if base.Denom.String() == quote.Denom.String() {
		return CoinPair{}, apperror.Argument("base and quote denom must differ")
	}
	return CoinPair{Base: base, Quote: quote}, nil
}
