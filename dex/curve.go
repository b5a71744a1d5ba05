package dex

// curve.go — passive liquidity reflection (spec §4.5 step 2): derives
// synthetic bid/ask PassiveOrders from a pair's reserve so the auction
// can clear user orders against pool depth without a separate swap
// path. Two curve types, both capped at a small ladder so the
// resulting order set stays bounded regardless of reserve size.
//
// No teacher analogue: core/liquidity_pools.go's AMM only ever does a
// single continuous constant-product swap, never a priced ladder.
// Built fresh in that file's checked-arithmetic idiom (core/coin.go's
// cap-before-mutate style, generalized to Decimal256).

import (
	"math/big"

	"grug/apperror"
	"grug/types"
)

// maxPassiveLevels bounds both curve types' ladders (spec explicitly
// caps Geometric at 5; Xyk's "truncate when reserve exhausted" gets
// the same cap as a pragmatic upper bound alongside the exhaustion
// check, so neither curve can emit an unbounded order set).
const maxPassiveLevels = 5

var tenPow24 = new(big.Int).Exp(big.NewInt(10), big.NewInt(types.Decimal256Scale), nil)

// GeneratePassiveOrders derives the pair's synthetic bid/ask ladder
// from its current reserve, per the configured PoolType.
func GeneratePassiveOrders(params Params, reserve types.CoinPair) ([]Order, error) {
	switch params.PoolType {
	case PoolTypeGeometric:
		return geometricOrders(params, reserve)
	default:
		return xykOrders(params, reserve)
	}
}

func marginalPrice(reserve types.CoinPair) (types.Decimal256, error) {
	base := types.NewDecimal256FromBigInt(reserve.Base.Amount)
	quote := types.NewDecimal256FromBigInt(reserve.Quote.Amount)
	if base.IsZero() {
		return types.Decimal256{}, apperror.Math("xyk: empty base reserve")
	}
	return quote.CheckedDivFloor(base)
}

func feeAdjustedPrices(params Params, price types.Decimal256) (ask, bid types.Decimal256, err error) {
	one := types.Decimal256One()
	plusFee, err := one.CheckedAdd(params.SwapFeeRate)
	if err != nil {
		return types.Decimal256{}, types.Decimal256{}, err
	}
	minusFee, err := one.CheckedSub(params.SwapFeeRate)
	if err != nil {
		return types.Decimal256{}, types.Decimal256{}, err
	}
	ask, err = price.CheckedMul(plusFee)
	if err != nil {
		return types.Decimal256{}, types.Decimal256{}, err
	}
	bid, err = price.CheckedMul(minusFee)
	if err != nil {
		return types.Decimal256{}, types.Decimal256{}, err
	}
	return ask, bid, nil
}

// xykOrders walks the pool's x*y=k invariant outward from the current
// reserve in order_spacing price steps: each level's cumulative base
// quantity is the amount that would move the pool to that price,
// solved directly from k (spec §4.5 "sizes drawn so cumulative size
// matches the invariant").
func xykOrders(params Params, reserve types.CoinPair) ([]Order, error) {
	price, err := marginalPrice(reserve)
	if err != nil {
		return nil, err
	}
	askStart, bidStart, err := feeAdjustedPrices(params, price)
	if err != nil {
		return nil, err
	}

	baseRes := new(big.Int).Set(reserve.Base.Amount)
	k := new(big.Int).Mul(baseRes, reserve.Quote.Amount)
	if k.Sign() == 0 {
		return nil, apperror.Math("xyk: empty reserve")
	}

	var orders []Order
	orders = append(orders, xykLadder(params, Ask, askStart, baseRes, k)...)
	orders = append(orders, xykLadder(params, Bid, bidStart, baseRes, k)...)
	return orders, nil
}

// xykNewBaseReserve solves x in x^2 * price = k for the hypothetical
// reserve that would put the pool's marginal price at priceAtomics.
func xykNewBaseReserve(k *big.Int, price types.Decimal256) *big.Int {
	if price.IsZero() {
		return new(big.Int)
	}
	num := new(big.Int).Mul(k, tenPow24)
	num.Div(num, price.Atomics().ToBig())
	return new(big.Int).Sqrt(num)
}

func xykLadder(params Params, direction Direction, startPrice types.Decimal256, baseRes *big.Int, k *big.Int) []Order {
	var orders []Order
	prevCum := new(big.Int).Set(baseRes)
	levelPrice := startPrice
	for i := 0; i < maxPassiveLevels; i++ {
		newX := xykNewBaseReserve(k, levelPrice)
		var delta *big.Int
		if direction == Ask {
			if newX.Cmp(prevCum) >= 0 {
				break // price moved the wrong way; reserve can't support this level
			}
			delta = new(big.Int).Sub(prevCum, newX)
		} else {
			if newX.Cmp(prevCum) <= 0 {
				break
			}
			delta = new(big.Int).Sub(newX, prevCum)
		}
		size := types.NewDecimal256FromBigInt(delta)
		if size.Cmp(params.MinOrderSize) < 0 {
			break
		}
		orders = append(orders, Order{
			Kind:      OrderPassive,
			Direction: direction,
			Price:     levelPrice,
			Amount:    size,
			Remaining: size,
		})
		prevCum = newX
		var err error
		if direction == Ask {
			levelPrice, err = levelPrice.CheckedAdd(params.OrderSpacing)
		} else {
			levelPrice, err = levelPrice.CheckedSub(params.OrderSpacing)
		}
		if err != nil {
			break
		}
	}
	return orders
}

// geometricOrders sizes each level as a fixed ratio of the reserve
// remaining after the previous levels, with geometrically widening
// price spacing (spec §4.5 "sizes proportional to ratio ... of
// remaining reserve per step").
func geometricOrders(params Params, reserve types.CoinPair) ([]Order, error) {
	price, err := marginalPrice(reserve)
	if err != nil {
		return nil, err
	}
	askPrice, bidPrice, err := feeAdjustedPrices(params, price)
	if err != nil {
		return nil, err
	}

	var orders []Order

	remainingBase := types.NewDecimal256FromBigInt(reserve.Base.Amount)
	remainingQuote := types.NewDecimal256FromBigInt(reserve.Quote.Amount)

	for i := 0; i < maxPassiveLevels; i++ {
		size, err := remainingBase.CheckedMul(params.GeometricStep)
		if err != nil {
			return nil, err
		}
		if size.Cmp(params.MinOrderSize) < 0 {
			break
		}
		orders = append(orders, Order{Kind: OrderPassive, Direction: Ask, Price: askPrice, Amount: size, Remaining: size})
		remainingBase, err = remainingBase.CheckedSub(size)
		if err != nil {
			return nil, err
		}
		askPrice, err = askPrice.CheckedMul(params.OrderSpacing)
		if err != nil {
			return nil, err
		}
	}

	for i := 0; i < maxPassiveLevels; i++ {
		baseEquiv, err := remainingQuote.CheckedDivFloor(bidPrice)
		if err != nil {
			break // bidPrice collapsed to zero after enough steps down; stop
		}
		size, err := baseEquiv.CheckedMul(params.GeometricStep)
		if err != nil {
			return nil, err
		}
		if size.Cmp(params.MinOrderSize) < 0 {
			break
		}
		spent, err := size.CheckedMul(bidPrice)
		if err != nil {
			return nil, err
		}
		orders = append(orders, Order{Kind: OrderPassive, Direction: Bid, Price: bidPrice, Amount: size, Remaining: size})
		remainingQuote, err = remainingQuote.CheckedSub(spent)
		if err != nil {
			return nil, err
		}
		bidPrice, err = bidPrice.CheckedDivFloor(params.OrderSpacing)
		if err != nil {
			return nil, err
		}
	}

	return orders, nil
}
