package dex

// pair.go — order submission, cancellation, and liquidity provision
// for one DEX pair. Grounded on core/liquidity_pools.go's AMM: kept
// the pool-account-as-escrow pattern (poolAccount/transferToken) and
// the sqrt/pro-rata LP-mint formula from AddLiquidity/RemoveLiquidity,
// replaced the single continuous Swap with order escrow feeding the
// batch auction in auction.go. Unlike core/liquidity_pools.go's
// sync.Once package-level AMM singleton, Manager is constructed
// fresh and threaded explicitly, matching execute.Pipeline's style.

import (
	"math/big"

	"grug/apperror"
	"grug/execute"
	"grug/store"
	"grug/types"
)

// Manager is the order-submission and liquidity-provision surface
// over one chain's DEX state, paired with the balance ledger it
// escrows funds against.
type Manager struct {
	State  *State
	Ledger *execute.State
}

func NewManager(state *State, ledger *execute.State) *Manager {
	return &Manager{State: state, Ledger: ledger}
}

// PoolAddress is the deterministic escrow account holding a pair's
// resting-order collateral and reserve, the DEX analogue of
// core/liquidity_pools.go's poolAccount.
func PoolAddress(base, quote string) types.Address {
	return types.AddressFromHash(types.Ripemd160Sha256([]byte("dex/" + base + "/" + quote)))
}

// CreatePair registers a new (base, quote) pair with zero reserve.
func (m *Manager) CreatePair(stor store.Storage, base, quote string, params Params) error {
	if _, exists, err := m.State.LoadParams(stor, base, quote); err != nil {
		return err
	} else if exists {
		return apperror.Conflict("dex: pair " + base + "/" + quote + " already exists")
	}
	if params.PoolType != PoolTypeXyk && params.PoolType != PoolTypeGeometric {
		return apperror.Argument("dex: unknown pool type " + string(params.PoolType))
	}
	baseDenom, quoteDenom, err := parseDenoms(base, quote)
	if err != nil {
		return err
	}
	m.State.SaveParams(stor, base, quote, params)
	m.State.SaveReserve(stor, base, quote, types.CoinPair{
		Base:  types.Coin{Denom: baseDenom, Amount: big.NewInt(0)},
		Quote: types.Coin{Denom: quoteDenom, Amount: big.NewInt(0)},
	})
	return nil
}

func parseDenoms(base, quote string) (types.Denom, types.Denom, error) {
	baseDenom, err := types.NewDenom(base)
	if err != nil {
		return types.Denom{}, types.Denom{}, err
	}
	quoteDenom, err := types.NewDenom(quote)
	if err != nil {
		return types.Denom{}, types.Denom{}, err
	}
	return baseDenom, quoteDenom, nil
}

// transferBalance moves coin from one address's balance to another's,
// the checked-arithmetic equivalent of transferToken.
func transferBalance(ledger *execute.State, stor store.Storage, from, to types.Address, coin types.Coin) error {
	moved, err := types.NewCoins(coin)
	if err != nil {
		return err
	}
	fromBal, err := ledger.LoadBalance(stor, from)
	if err != nil {
		return err
	}
	newFromBal, err := fromBal.Sub(moved)
	if err != nil {
		return err
	}
	toBal, err := ledger.LoadBalance(stor, to)
	if err != nil {
		return err
	}
	newToBal, err := toBal.Add(moved)
	if err != nil {
		return err
	}
	ledger.SaveBalance(stor, from, newFromBal)
	ledger.SaveBalance(stor, to, newToBal)
	return nil
}

// burnFrom removes coin from addr's balance and reduces the denom's
// recorded total supply, the inverse of execute.State.Mint.
func burnFrom(ledger *execute.State, stor store.Storage, addr types.Address, coin types.Coin) error {
	burned, err := types.NewCoins(coin)
	if err != nil {
		return err
	}
	bal, err := ledger.LoadBalance(stor, addr)
	if err != nil {
		return err
	}
	newBal, err := bal.Sub(burned)
	if err != nil {
		return err
	}
	supply, err := ledger.LoadSupply(stor, coin.Denom.String())
	if err != nil {
		return err
	}
	newSupply := new(big.Int).Sub(supply, coin.Amount)
	if newSupply.Sign() < 0 {
		return apperror.Math("dex: burn exceeds minted supply for " + coin.Denom.String())
	}
	ledger.SaveBalance(stor, addr, newBal)
	ledger.Supplies.Save(stor, newSupply, []byte(coin.Denom.String()))
	return nil
}

// AddLiquidity escrows amtBase/amtQuote from provider into the pair's
// pool account and mints LP shares, pro-rata to the existing minted
// supply (core/liquidity_pools.go AddLiquidity's sqrt/min formula,
// lifted from uint64 reserves to checked big.Int amounts).
func (m *Manager) AddLiquidity(stor store.Storage, base, quote string, provider types.Address, amtBase, amtQuote *big.Int) (*big.Int, error) {
	params, ok, err := m.State.LoadParams(stor, base, quote)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.NotFound("dex: pair not configured")
	}
	if amtBase.Sign() <= 0 || amtQuote.Sign() <= 0 {
		return nil, apperror.Argument("dex: liquidity amounts must be positive")
	}
	reserve, _, err := m.State.LoadReserve(stor, base, quote)
	if err != nil {
		return nil, err
	}

	lpDenom, err := types.NewDenom(params.LPDenom)
	if err != nil {
		return nil, err
	}
	totalLP, err := m.Ledger.LoadSupply(stor, params.LPDenom)
	if err != nil {
		return nil, err
	}

	var minted *big.Int
	if totalLP.Sign() == 0 {
		minted = new(big.Int).Sqrt(new(big.Int).Mul(amtBase, amtQuote))
	} else {
		fromBase := new(big.Int).Div(new(big.Int).Mul(amtBase, totalLP), reserve.Base.Amount)
		fromQuote := new(big.Int).Div(new(big.Int).Mul(amtQuote, totalLP), reserve.Quote.Amount)
		minted = fromBase
		if fromQuote.Cmp(minted) < 0 {
			minted = fromQuote
		}
	}
	if minted.Sign() <= 0 {
		return nil, apperror.Math("dex: liquidity too small to mint a share")
	}

	baseCoin, err := types.NewCoin(reserve.Base.Denom, amtBase)
	if err != nil {
		return nil, err
	}
	quoteCoin, err := types.NewCoin(reserve.Quote.Denom, amtQuote)
	if err != nil {
		return nil, err
	}
	pool := PoolAddress(base, quote)
	if err := transferBalance(m.Ledger, stor, provider, pool, baseCoin); err != nil {
		return nil, err
	}
	if err := transferBalance(m.Ledger, stor, provider, pool, quoteCoin); err != nil {
		return nil, err
	}

	m.State.SaveReserve(stor, base, quote, types.CoinPair{
		Base:  types.Coin{Denom: reserve.Base.Denom, Amount: new(big.Int).Add(reserve.Base.Amount, amtBase)},
		Quote: types.Coin{Denom: reserve.Quote.Denom, Amount: new(big.Int).Add(reserve.Quote.Amount, amtQuote)},
	})
	lpCoin, err := types.NewCoin(lpDenom, minted)
	if err != nil {
		return nil, err
	}
	if err := m.Ledger.Mint(stor, provider, mustCoins(lpCoin)); err != nil {
		return nil, err
	}
	return minted, nil
}

// RemoveLiquidity burns lpAmount of provider's pool shares and
// withdraws the pro-rata reserve, the inverse of AddLiquidity.
func (m *Manager) RemoveLiquidity(stor store.Storage, base, quote string, provider types.Address, lpAmount *big.Int) (amtBase, amtQuote *big.Int, err error) {
	params, ok, err := m.State.LoadParams(stor, base, quote)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, apperror.NotFound("dex: pair not configured")
	}
	if lpAmount.Sign() <= 0 {
		return nil, nil, apperror.Argument("dex: lp amount must be positive")
	}
	reserve, _, err := m.State.LoadReserve(stor, base, quote)
	if err != nil {
		return nil, nil, err
	}
	totalLP, err := m.Ledger.LoadSupply(stor, params.LPDenom)
	if err != nil {
		return nil, nil, err
	}
	if totalLP.Sign() == 0 {
		return nil, nil, apperror.Math("dex: pool has no liquidity")
	}

	amtBase = new(big.Int).Div(new(big.Int).Mul(lpAmount, reserve.Base.Amount), totalLP)
	amtQuote = new(big.Int).Div(new(big.Int).Mul(lpAmount, reserve.Quote.Amount), totalLP)
	if amtBase.Sign() <= 0 || amtQuote.Sign() <= 0 {
		return nil, nil, apperror.Math("dex: lp amount too small to withdraw")
	}

	lpDenom, err := types.NewDenom(params.LPDenom)
	if err != nil {
		return nil, nil, err
	}
	lpCoin, err := types.NewCoin(lpDenom, lpAmount)
	if err != nil {
		return nil, nil, err
	}
	if err := burnFrom(m.Ledger, stor, provider, lpCoin); err != nil {
		return nil, nil, err
	}

	pool := PoolAddress(base, quote)
	baseCoin, err := types.NewCoin(reserve.Base.Denom, amtBase)
	if err != nil {
		return nil, nil, err
	}
	quoteCoin, err := types.NewCoin(reserve.Quote.Denom, amtQuote)
	if err != nil {
		return nil, nil, err
	}
	if err := transferBalance(m.Ledger, stor, pool, provider, baseCoin); err != nil {
		return nil, nil, err
	}
	if err := transferBalance(m.Ledger, stor, pool, provider, quoteCoin); err != nil {
		return nil, nil, err
	}

	m.State.SaveReserve(stor, base, quote, types.CoinPair{
		Base:  types.Coin{Denom: reserve.Base.Denom, Amount: new(big.Int).Sub(reserve.Base.Amount, amtBase)},
		Quote: types.Coin{Denom: reserve.Quote.Denom, Amount: new(big.Int).Sub(reserve.Quote.Amount, amtQuote)},
	})
	return amtBase, amtQuote, nil
}

func mustCoins(c types.Coin) types.Coins {
	coins, _ := types.NewCoins(c)
	return coins
}

// SubmitOrder escrows the trader's collateral and enqueues an order
// into the pair's incoming inbox, to be merged into the resting book
// and cleared by the next auction pass (spec §4.5 step 1). A limit
// order escrows exactly price*amount (bids, in quote) or amount
// (asks, in base); a market order's Amount is interpreted as that
// same escrow budget directly, since its clearing price isn't known
// until the auction runs.
func (m *Manager) SubmitOrder(stor store.Storage, base, quote string, trader types.Address, kind OrderKind, direction Direction, price, amount types.Decimal256, blockHeight int64) (Order, error) {
	paused, err := m.State.IsPaused(stor, base, quote)
	if err != nil {
		return Order{}, err
	}
	if paused {
		return Order{}, apperror.Conflict("dex: pair " + base + "/" + quote + " is paused")
	}
	params, ok, err := m.State.LoadParams(stor, base, quote)
	if err != nil {
		return Order{}, err
	}
	if !ok {
		return Order{}, apperror.NotFound("dex: pair not configured")
	}
	if amount.Cmp(params.MinOrderSize) < 0 {
		return Order{}, apperror.Argument("dex: order below minimum size")
	}
	if kind == OrderLimit && price.IsZero() {
		return Order{}, apperror.Argument("dex: limit order requires a price")
	}

	reserve, _, err := m.State.LoadReserve(stor, base, quote)
	if err != nil {
		return Order{}, err
	}

	var escrow types.Coin
	if direction == Bid {
		escrowAmt := amount
		if kind == OrderLimit {
			escrowAmt, err = amount.CheckedMul(price)
			if err != nil {
				return Order{}, err
			}
		}
		escrow, err = types.NewCoin(reserve.Quote.Denom, escrowAmt.BigInt())
	} else {
		escrow, err = types.NewCoin(reserve.Base.Denom, amount.BigInt())
	}
	if err != nil {
		return Order{}, err
	}
	if err := transferBalance(m.Ledger, stor, trader, PoolAddress(base, quote), escrow); err != nil {
		return Order{}, err
	}

	id, err := m.State.AllocOrderID(stor, base, quote)
	if err != nil {
		return Order{}, err
	}
	order := Order{
		Kind:      kind,
		User:      &trader,
		ID:        id,
		Direction: direction,
		Price:     price,
		Amount:    amount,
		Remaining: amount,
	}
	if kind == OrderLimit {
		order.CreatedAt = blockHeight
	}
	if err := m.State.AppendIncoming(stor, base, quote, order); err != nil {
		return Order{}, err
	}
	return order, nil
}

// CancelOrder removes a resting limit order and refunds its
// unconsumed escrow. Orders still sitting in the incoming inbox
// (not yet merged into the resting book) cannot be cancelled within
// the same block they were submitted.
func (m *Manager) CancelOrder(stor store.Storage, base, quote string, direction Direction, id uint64, trader types.Address) error {
	orders, err := m.State.ListLimitOrders(stor, base, quote, direction)
	if err != nil {
		return err
	}
	var found *Order
	for i := range orders {
		if orders[i].ID == id {
			found = &orders[i]
			break
		}
	}
	if found == nil {
		return apperror.NotFound("dex: order not found")
	}
	if found.User == nil || *found.User != trader {
		return apperror.Auth("dex: order does not belong to trader")
	}

	reserve, _, err := m.State.LoadReserve(stor, base, quote)
	if err != nil {
		return err
	}
	var refund types.Coin
	if direction == Bid {
		quoteAmt, err := found.Remaining.CheckedMul(found.Price)
		if err != nil {
			return err
		}
		refund, err = types.NewCoin(reserve.Quote.Denom, quoteAmt.BigInt())
		if err != nil {
			return err
		}
	} else {
		refund, err = types.NewCoin(reserve.Base.Denom, found.Remaining.BigInt())
		if err != nil {
			return err
		}
	}
	if err := transferBalance(m.Ledger, stor, PoolAddress(base, quote), trader, refund); err != nil {
		return err
	}
	m.State.RemoveLimitOrder(stor, base, quote, direction, id)
	return nil
}
