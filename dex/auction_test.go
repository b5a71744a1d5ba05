package dex

// auction_test.go — exercises ClearAuction's uniform-price clearing
// against a hand-built six-order book (3 bids, 3 asks) seeded
// directly through State, styled after query/dispatcher_test.go's
// MemStore-plus-namespace-methods setup.

import (
	"math/big"
	"testing"

	"grug/execute"
	"grug/store"
	"grug/types"
)

func testAddr(b byte) types.Address {
	var a types.Address
	a[19] = b
	return a
}

func mustDecimal256(v int64) types.Decimal256 { return types.NewDecimal256FromInt64(v) }

func setupPair(t *testing.T, base, quote string, reserveBase, reserveQuote int64) (*Manager, store.Storage) {
	t.Helper()
	stor := store.NewMemStore()
	state := NewState()
	ledger := execute.NewState()
	mgr := NewManager(state, ledger)

	params := Params{
		LPDenom:       base + "-" + quote + "-lp",
		PoolType:      PoolTypeXyk,
		BucketSizes:   []types.Decimal256{mustDecimal256(1)},
		SwapFeeRate:   types.Decimal256Zero(),
		MinOrderSize:  mustDecimal256(1_000_000), // keeps the thin test reserve from emitting passive orders
		OrderSpacing:  mustDecimal256(1),
		GeometricStep: mustDecimal256(1),
	}
	if err := mgr.CreatePair(stor, base, quote, params); err != nil {
		t.Fatalf("CreatePair: %v", err)
	}
	baseDenom, quoteDenom, err := parseDenoms(base, quote)
	if err != nil {
		t.Fatalf("parseDenoms: %v", err)
	}
	state.SaveReserve(stor, base, quote, types.CoinPair{
		Base:  types.Coin{Denom: baseDenom, Amount: big.NewInt(reserveBase)},
		Quote: types.Coin{Denom: quoteDenom, Amount: big.NewInt(reserveQuote)},
	})
	return mgr, stor
}

func fundPool(t *testing.T, mgr *Manager, stor store.Storage, base, quote string, baseAmt, quoteAmt int64) {
	t.Helper()
	baseDenom, quoteDenom, err := parseDenoms(base, quote)
	if err != nil {
		t.Fatalf("parseDenoms: %v", err)
	}
	baseCoin, err := types.NewCoin(baseDenom, big.NewInt(baseAmt))
	if err != nil {
		t.Fatalf("NewCoin: %v", err)
	}
	quoteCoin, err := types.NewCoin(quoteDenom, big.NewInt(quoteAmt))
	if err != nil {
		t.Fatalf("NewCoin: %v", err)
	}
	coins, err := types.NewCoins(baseCoin, quoteCoin)
	if err != nil {
		t.Fatalf("NewCoins: %v", err)
	}
	mgr.Ledger.SaveBalance(stor, PoolAddress(base, quote), coins)
}

func seedOrder(t *testing.T, mgr *Manager, stor store.Storage, base, quote string, direction Direction, user types.Address, price, amount int64, height int64) {
	t.Helper()
	id, err := mgr.State.AllocOrderID(stor, base, quote)
	if err != nil {
		t.Fatalf("AllocOrderID: %v", err)
	}
	o := Order{
		Kind:      OrderLimit,
		User:      &user,
		ID:        id,
		Direction: direction,
		Price:     mustDecimal256(price),
		Amount:    mustDecimal256(amount),
		Remaining: mustDecimal256(amount),
		CreatedAt: height,
	}
	if err := mgr.State.AppendIncoming(stor, base, quote, o); err != nil {
		t.Fatalf("AppendIncoming: %v", err)
	}
}

// TestClearAuctionSixOrderBook runs 3 bids against 3 asks where the
// top two price levels on each side cross, leaving two bids and one
// ask resting.
func TestClearAuctionSixOrderBook(t *testing.T) {
	base, quote := "uatom", "uusd"
	mgr, stor := setupPair(t, base, quote, 1000, 1000)
	fundPool(t, mgr, stor, base, quote, 1000, 100000)

	buyer1, buyer2, buyer3 := testAddr(1), testAddr(2), testAddr(3)
	seller1, seller2, seller3 := testAddr(11), testAddr(12), testAddr(13)

	seedOrder(t, mgr, stor, base, quote, Bid, buyer1, 110, 5, 1)
	seedOrder(t, mgr, stor, base, quote, Bid, buyer2, 104, 3, 1)
	seedOrder(t, mgr, stor, base, quote, Bid, buyer3, 100, 2, 1)
	seedOrder(t, mgr, stor, base, quote, Ask, seller1, 94, 4, 1)
	seedOrder(t, mgr, stor, base, quote, Ask, seller2, 100, 3, 1)
	seedOrder(t, mgr, stor, base, quote, Ask, seller3, 108, 4, 1)

	result, err := mgr.ClearAuction(stor, base, quote, types.BlockInfo{Height: 2, Timestamp: 200})
	if err != nil {
		t.Fatalf("ClearAuction: %v", err)
	}
	if result == nil {
		t.Fatal("expected a trade, got nil result")
	}
	if result.Fills != 3 {
		t.Fatalf("fills = %d, want 3", result.Fills)
	}
	if result.ClearedVolume.Cmp(mustDecimal256(7)) != 0 {
		t.Fatalf("cleared volume = %s, want 7", result.ClearedVolume.String())
	}
	if result.ExecutionPrice.Cmp(mustDecimal256(102)) != 0 {
		t.Fatalf("execution price = %s, want 102", result.ExecutionPrice.String())
	}

	bids, err := mgr.State.ListLimitOrders(stor, base, quote, Bid)
	if err != nil {
		t.Fatalf("ListLimitOrders bids: %v", err)
	}
	if len(bids) != 2 {
		t.Fatalf("resting bids = %d, want 2 (buyer2 partial, buyer3 untouched)", len(bids))
	}
	asks, err := mgr.State.ListLimitOrders(stor, base, quote, Ask)
	if err != nil {
		t.Fatalf("ListLimitOrders asks: %v", err)
	}
	if len(asks) != 1 {
		t.Fatalf("resting asks = %d, want 1 (seller3 untouched)", len(asks))
	}

	best, err := mgr.State.LoadBestPrices(stor, base, quote)
	if err != nil {
		t.Fatalf("LoadBestPrices: %v", err)
	}
	if best.BestBid == nil || best.BestBid.Cmp(mustDecimal256(104)) != 0 {
		t.Fatalf("best bid = %v, want 104", best.BestBid)
	}
	if best.BestAsk == nil || best.BestAsk.Cmp(mustDecimal256(108)) != 0 {
		t.Fatalf("best ask = %v, want 108", best.BestAsk)
	}

	buyer1Bal, err := mgr.Ledger.LoadBalance(stor, buyer1)
	if err != nil {
		t.Fatalf("LoadBalance buyer1: %v", err)
	}
	if amt := buyer1Bal.Get(base); amt == nil || amt.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("buyer1 base balance = %v, want 5", amt)
	}
	seller1Bal, err := mgr.Ledger.LoadBalance(stor, seller1)
	if err != nil {
		t.Fatalf("LoadBalance seller1: %v", err)
	}
	if amt := seller1Bal.Get(quote); amt == nil || amt.Cmp(big.NewInt(408)) != 0 {
		t.Fatalf("seller1 quote balance = %v, want 408", amt)
	}

	paused, err := mgr.State.IsPaused(stor, base, quote)
	if err != nil {
		t.Fatalf("IsPaused: %v", err)
	}
	if paused {
		t.Fatal("pair should not be paused after a clean clearing pass")
	}
}

// TestClearAuctionMathErrorPausesPair forces a settlement failure (the
// pool account has no funds to pay a matched buyer) and checks that
// the whole pass is discarded and the pair is paused, not partially
// applied.
func TestClearAuctionMathErrorPausesPair(t *testing.T) {
	base, quote := "uatom", "uusd"
	mgr, stor := setupPair(t, base, quote, 1000, 1000)
	// deliberately do not fund the pool account.

	buyer, seller := testAddr(1), testAddr(2)
	seedOrder(t, mgr, stor, base, quote, Bid, buyer, 100, 5, 1)
	seedOrder(t, mgr, stor, base, quote, Ask, seller, 90, 5, 1)

	_, err := mgr.ClearAuction(stor, base, quote, types.BlockInfo{Height: 2, Timestamp: 200})
	if err == nil {
		t.Fatal("expected a math error from the underfunded pool account")
	}

	paused, pausedErr := mgr.State.IsPaused(stor, base, quote)
	if pausedErr != nil {
		t.Fatalf("IsPaused: %v", pausedErr)
	}
	if !paused {
		t.Fatal("pair should be paused after a math error during settlement")
	}

	bids, listErr := mgr.State.ListLimitOrders(stor, base, quote, Bid)
	if listErr != nil {
		t.Fatalf("ListLimitOrders: %v", listErr)
	}
	if len(bids) != 0 {
		t.Fatalf("resting bids = %d, want 0: a discarded pass must not persist the incoming order", len(bids))
	}
}
