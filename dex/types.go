// Package dex implements the uniform-price call-auction matching
// engine of spec §4.5: per-pair order books, passive liquidity
// reflection from an xyk/geometric reserve curve, and liquidity-depth
// bucket bookkeeping.
//
// Grounded on core/liquidity_pools.go's AMM (constant-product pools,
// fee-bps split, pool lifecycle) generalized from a continuous-swap
// AMM into a periodic batch auction that merges passive liquidity
// with resting user orders (spec §4.5 scenario 4 and 5).
package dex

import (
	"grug/types"
)

// PoolType selects how passive liquidity is reflected into synthetic
// orders ahead of each auction (spec §4.5 step 2).
type PoolType string

const (
	PoolTypeXyk       PoolType = "xyk"
	PoolTypeGeometric PoolType = "geometric"
)

// Direction is which side of the book an order rests on.
type Direction string

const (
	Bid Direction = "bid"
	Ask Direction = "ask"
)

// OrderKind distinguishes a user-submitted resting order from a
// market order (fully matched or dropped within one auction) from a
// synthetic passive order derived from the pair's reserve.
type OrderKind string

const (
	OrderLimit   OrderKind = "limit"
	OrderMarket  OrderKind = "market"
	OrderPassive OrderKind = "passive"
)

// Params is a pair's configuration (spec §4.5 "params").
type Params struct {
	LPDenom       string            `json:"lp_denom"`
	PoolType      PoolType          `json:"pool_type"`
	BucketSizes   []types.Decimal256 `json:"bucket_sizes"`
	SwapFeeRate   types.Decimal256  `json:"swap_fee_rate"`
	MinOrderSize  types.Decimal256  `json:"min_order_size"`
	OrderSpacing  types.Decimal256  `json:"order_spacing"`  // xyk ladder spacing
	GeometricStep types.Decimal256  `json:"geometric_step"` // geometric ladder ratio, (0,1]
}

// Order is one resting, market, or passive order in a pair's book
// (spec §3 "Order (DEX)").
type Order struct {
	Kind      OrderKind      `json:"kind"`
	User      *types.Address `json:"user,omitempty"` // nil for passive
	ID        uint64         `json:"id"`
	Direction Direction      `json:"direction"`
	Price     types.Decimal256 `json:"price"` // zero for market orders
	Amount    types.Decimal256 `json:"amount"`
	Remaining types.Decimal256 `json:"remaining"`
	CreatedAt int64          `json:"created_at,omitempty"` // block height, limit only
}

// BestPrices is the resting order book's best bid/ask snapshot after
// the most recent auction (spec §4.5 "resting_order_book").
type BestPrices struct {
	BestBid *types.Decimal256 `json:"best_bid,omitempty"`
	BestAsk *types.Decimal256 `json:"best_ask,omitempty"`
}

// Fill is one match produced by uniform-price clearing, applied back
// to balances by the caller (spec §4.5 steps 4-6).
type Fill struct {
	Order         Order
	BaseAmount    types.Decimal256
	QuoteAmount   types.Decimal256
	FeeQuoteOrBase types.Decimal256
}

// AuctionResult summarizes one pair's auction pass for event/logging
// purposes.
type AuctionResult struct {
	Pair            string
	ExecutionPrice  types.Decimal256
	ClearedVolume   types.Decimal256
	Fills           int
}
