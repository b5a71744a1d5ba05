package dex

// auction.go — the uniform-price call auction that clears one pair's
// book at a block boundary (spec §4.5 steps 1-7). Not a WASM cronjob:
// unlike execute/cron.go's contract-invocation scheduler, a pair isn't
// a contract, so this runs as its own built-in pass the ABCI adapter
// calls once per configured pair after a block's transactions have
// run. A MathError discards the whole pass for that pair (via a
// nested store.Buffer, the same copy-on-write discard idiom
// execute/pipeline.go uses per-tx) and sets its Paused flag instead of
// propagating into the block (spec: "a MathError ... pauses trading
// for the pair").

import (
	"math/big"
	"sort"

	"grug/apperror"
	"grug/store"
	"grug/types"
)

// bookOrder pairs a candidate order with whether it must be written
// back to the resting LimitOrders namespace once clearing settles.
type bookOrder struct {
	order     Order
	persisted bool // true: a real resting/incoming limit order; false: market or passive, ephemeral
}

type match struct {
	bidIdx, askIdx int
	volume         types.Decimal256
}

// ClearAuction runs one pair's auction pass. Returns (nil, nil) if the
// pair is paused or no orders crossed; returns the summary otherwise.
// A math error pauses the pair and is returned to the caller for
// logging, mirroring execute.Pipeline.RunCronjobs' log-and-continue
// treatment of a single failing cronjob.
func (m *Manager) ClearAuction(stor store.Storage, base, quote string, block types.BlockInfo) (*AuctionResult, error) {
	paused, err := m.State.IsPaused(stor, base, quote)
	if err != nil {
		return nil, err
	}
	if paused {
		return nil, nil
	}

	buf := store.NewBuffer(stor)
	result, err := m.clearAuctionBuffered(buf, base, quote, block)
	if err != nil {
		buf.Discard()
		if apperror.IsMath(err) {
			m.State.SetPaused(stor, base, quote, true)
		}
		return nil, err
	}
	flushBuffer(stor, buf)
	return result, nil
}

func flushBuffer(dst store.Storage, buf *store.Buffer) {
	for k, op := range buf.PendingBatch() {
		if op.Delete {
			dst.Remove([]byte(k))
		} else {
			dst.Write([]byte(k), op.Insert)
		}
	}
}

func (m *Manager) clearAuctionBuffered(buf *store.Buffer, base, quote string, block types.BlockInfo) (*AuctionResult, error) {
	params, ok, err := m.State.LoadParams(buf, base, quote)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.NotFound("dex: pair not configured")
	}
	reserve, _, err := m.State.LoadReserve(buf, base, quote)
	if err != nil {
		return nil, err
	}

	bids, asks, err := m.loadBook(buf, base, quote, params, reserve)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(bids, func(i, j int) bool { return bidLess(bids[i].order, bids[j].order) })
	sort.SliceStable(asks, func(i, j int) bool { return askLess(asks[i].order, asks[j].order) })

	matches, executionPrice, clearedVolume, err := clear(bids, asks)
	if err != nil {
		return nil, err
	}

	if len(matches) > 0 {
		if err := m.settle(buf, base, quote, reserve, bids, asks, matches, executionPrice, params.SwapFeeRate); err != nil {
			return nil, err
		}
	}

	if err := m.persistBook(buf, base, quote, params, bids, asks); err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		return nil, nil
	}
	return &AuctionResult{
		Pair:           base + "/" + quote,
		ExecutionPrice: executionPrice,
		ClearedVolume:  clearedVolume,
		Fills:          len(matches),
	}, nil
}

// loadBook moves the pair's incoming inbox into the resting book
// (spec §4.5 step 1), reflects passive reserve liquidity into
// synthetic orders (step 2), and returns the full bid/ask candidate
// lists for this auction pass.
func (m *Manager) loadBook(buf *store.Buffer, base, quote string, params Params, reserve types.CoinPair) (bids, asks []bookOrder, err error) {
	existingBids, err := m.State.ListLimitOrders(buf, base, quote, Bid)
	if err != nil {
		return nil, nil, err
	}
	existingAsks, err := m.State.ListLimitOrders(buf, base, quote, Ask)
	if err != nil {
		return nil, nil, err
	}
	for _, o := range existingBids {
		bids = append(bids, bookOrder{order: o, persisted: true})
	}
	for _, o := range existingAsks {
		asks = append(asks, bookOrder{order: o, persisted: true})
	}

	incoming, err := m.State.LoadIncoming(buf, base, quote)
	if err != nil {
		return nil, nil, err
	}
	m.State.ClearIncoming(buf, base, quote)
	for _, o := range incoming {
		bo := bookOrder{order: o, persisted: o.Kind == OrderLimit}
		if o.Direction == Bid {
			bids = append(bids, bo)
		} else {
			asks = append(asks, bo)
		}
	}

	passive, err := GeneratePassiveOrders(params, reserve)
	if err != nil {
		return nil, nil, err
	}
	for _, o := range passive {
		bo := bookOrder{order: o, persisted: false}
		if o.Direction == Bid {
			bids = append(bids, bo)
		} else {
			asks = append(asks, bo)
		}
	}
	return bids, asks, nil
}

// bidLess orders bids by price-time priority, descending: market
// orders (willing to pay any price) first, then by price descending,
// tie-broken FIFO by (CreatedAt, ID) ascending.
func bidLess(a, b Order) bool {
	aMarket, bMarket := a.Kind == OrderMarket, b.Kind == OrderMarket
	if aMarket != bMarket {
		return aMarket
	}
	if !aMarket {
		if c := a.Price.Cmp(b.Price); c != 0 {
			return c > 0
		}
	}
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt < b.CreatedAt
	}
	return a.ID < b.ID
}

// askLess orders asks by price-time priority, ascending.
func askLess(a, b Order) bool {
	aMarket, bMarket := a.Kind == OrderMarket, b.Kind == OrderMarket
	if aMarket != bMarket {
		return aMarket
	}
	if !aMarket {
		if c := a.Price.Cmp(b.Price); c != 0 {
			return c < 0
		}
	}
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt < b.CreatedAt
	}
	return a.ID < b.ID
}

// clear walks the two sorted streams per spec §4.5 step 4 (Walrasian
// uniform-price clearing): while the best remaining bid crosses the
// best remaining ask, match min(bid.remaining, ask.remaining), then
// advance whichever side is exhausted. The execution price is the
// Midpoint of the last crossing bid/ask prices; a market order
// substitutes its counterpart's price as its own for that purpose.
func clear(bids, asks []bookOrder) ([]match, types.Decimal256, types.Decimal256, error) {
	var matches []match
	var lastBidPrice, lastAskPrice types.Decimal256
	haveLast := false
	cleared := types.Decimal256Zero()

	i, j := 0, 0
	for i < len(bids) && j < len(asks) {
		bid, ask := &bids[i].order, &asks[j].order
		if bid.Remaining.IsZero() {
			i++
			continue
		}
		if ask.Remaining.IsZero() {
			j++
			continue
		}
		bidIsMarket, askIsMarket := bid.Kind == OrderMarket, ask.Kind == OrderMarket
		crosses := bidIsMarket || askIsMarket || bid.Price.Cmp(ask.Price) >= 0
		if !crosses {
			break
		}
		if bidIsMarket && askIsMarket {
			return nil, types.Decimal256{}, types.Decimal256{}, apperror.Math("dex: no limit price to clear an all-market match")
		}

		step := bid.Remaining
		if ask.Remaining.Cmp(step) < 0 {
			step = ask.Remaining
		}
		newBidRem, err := bid.Remaining.CheckedSub(step)
		if err != nil {
			return nil, types.Decimal256{}, types.Decimal256{}, err
		}
		newAskRem, err := ask.Remaining.CheckedSub(step)
		if err != nil {
			return nil, types.Decimal256{}, types.Decimal256{}, err
		}
		bid.Remaining, ask.Remaining = newBidRem, newAskRem

		cleared, err = cleared.CheckedAdd(step)
		if err != nil {
			return nil, types.Decimal256{}, types.Decimal256{}, err
		}
		matches = append(matches, match{bidIdx: i, askIdx: j, volume: step})

		lastBidPrice = bid.Price
		if bidIsMarket {
			lastBidPrice = ask.Price
		}
		lastAskPrice = ask.Price
		if askIsMarket {
			lastAskPrice = bid.Price
		}
		haveLast = true

		if bid.Remaining.IsZero() {
			i++
		}
		if ask.Remaining.IsZero() {
			j++
		}
	}

	if !haveLast {
		return nil, types.Decimal256{}, types.Decimal256{}, nil
	}
	return matches, types.Midpoint(lastBidPrice, lastAskPrice), cleared, nil
}

// settle applies every match's balance transfers and reserve deltas.
// A resting user order's counterparty collateral already sits in the
// pair's pool account (escrowed at submission); a passive order has
// no collateral of its own and instead draws on / feeds the pair's
// reserve directly. Settlement pays out exactly the uniform clearing
// amount; it does not reconcile a limit bid's unused price-improvement
// escrow surplus back to the trader (a documented simplification, see
// DESIGN.md).
func (m *Manager) settle(buf *store.Buffer, base, quote string, reserve types.CoinPair, bids, asks []bookOrder, matches []match, executionPrice, feeRate types.Decimal256) error {
	pool := PoolAddress(base, quote)
	baseAmt := new(big.Int)
	quoteAmt := new(big.Int)

	for _, mt := range matches {
		bidOrder := &bids[mt.bidIdx].order
		askOrder := &asks[mt.askIdx].order

		quoteVol, err := mt.volume.CheckedMul(executionPrice)
		if err != nil {
			return err
		}
		fee, err := quoteVol.CheckedMul(feeRate)
		if err != nil {
			return err
		}
		netQuote, err := quoteVol.CheckedSub(fee)
		if err != nil {
			return err
		}

		baseInt := mt.volume.BigInt()
		quoteInt := quoteVol.BigInt()
		netQuoteInt := netQuote.BigInt()
		feeInt := fee.BigInt()

		if bidOrder.User != nil {
			baseCoin, err := types.NewCoin(reserve.Base.Denom, baseInt)
			if err != nil {
				return err
			}
			if err := transferBalance(m.Ledger, buf, pool, *bidOrder.User, baseCoin); err != nil {
				return err
			}
		}
		if askOrder.User != nil {
			quoteCoin, err := types.NewCoin(reserve.Quote.Denom, netQuoteInt)
			if err != nil {
				return err
			}
			if err := transferBalance(m.Ledger, buf, pool, *askOrder.User, quoteCoin); err != nil {
				return err
			}
		}

		if bidOrder.User == nil {
			baseAmt.Add(baseAmt, baseInt)
			quoteAmt.Sub(quoteAmt, netQuoteInt)
		}
		if askOrder.User == nil {
			baseAmt.Sub(baseAmt, baseInt)
			quoteAmt.Add(quoteAmt, quoteInt)
		}
		if bidOrder.User != nil && askOrder.User != nil {
			quoteAmt.Add(quoteAmt, feeInt)
		}
	}

	newBase := new(big.Int).Add(reserve.Base.Amount, baseAmt)
	newQuote := new(big.Int).Add(reserve.Quote.Amount, quoteAmt)
	if newBase.Sign() < 0 || newQuote.Sign() < 0 {
		return apperror.Math("dex: reserve underflow settling auction")
	}
	m.State.SaveReserve(buf, base, quote, types.CoinPair{
		Base:  types.Coin{Denom: reserve.Base.Denom, Amount: newBase},
		Quote: types.Coin{Denom: reserve.Quote.Denom, Amount: newQuote},
	})
	return nil
}

// persistBook writes back every still-open persisted (limit) order,
// removes fully-filled ones, refreshes the pair's best-bid/best-ask
// snapshot, and rebuilds its liquidity-depth buckets (spec §4.5 steps
// 6-7). Ephemeral market/passive orders are never written.
func (m *Manager) persistBook(buf *store.Buffer, base, quote string, params Params, bids, asks []bookOrder) error {
	var restingBids, restingAsks []Order
	for _, bo := range bids {
		if !bo.persisted {
			continue
		}
		if bo.order.Remaining.IsZero() {
			m.State.RemoveLimitOrder(buf, base, quote, Bid, bo.order.ID)
			continue
		}
		m.State.SaveLimitOrder(buf, base, quote, bo.order)
		restingBids = append(restingBids, bo.order)
	}
	for _, bo := range asks {
		if !bo.persisted {
			continue
		}
		if bo.order.Remaining.IsZero() {
			m.State.RemoveLimitOrder(buf, base, quote, Ask, bo.order.ID)
			continue
		}
		m.State.SaveLimitOrder(buf, base, quote, bo.order)
		restingAsks = append(restingAsks, bo.order)
	}

	best := BestPrices{}
	sort.SliceStable(restingBids, func(i, j int) bool { return restingBids[i].Price.Cmp(restingBids[j].Price) > 0 })
	sort.SliceStable(restingAsks, func(i, j int) bool { return restingAsks[i].Price.Cmp(restingAsks[j].Price) < 0 })
	if len(restingBids) > 0 {
		p := restingBids[0].Price
		best.BestBid = &p
	}
	if len(restingAsks) > 0 {
		p := restingAsks[0].Price
		best.BestAsk = &p
	}
	m.State.SaveBestPrices(buf, base, quote, best)

	for _, bucketSize := range params.BucketSizes {
		if err := rebuildDepths(m.State, buf, base, quote, Bid, bucketSize, restingBids); err != nil {
			return err
		}
		if err := rebuildDepths(m.State, buf, base, quote, Ask, bucketSize, restingAsks); err != nil {
			return err
		}
	}
	return nil
}

// rebuildDepths recomputes one bucket size's full depth ladder for one
// side of a pair from its resting orders, replacing whatever was
// stored before (simpler and less error-prone than tracking
// incremental per-fill deltas across an auction pass).
func rebuildDepths(state *State, buf *store.Buffer, base, quote string, direction Direction, bucketSize types.Decimal256, orders []Order) error {
	prefix := append(pairKey(base, quote), byte('|'))
	prefix = append(prefix, []byte(direction)...)
	prefix = append(prefix, byte('|'))
	prefix = append(prefix, []byte(bucketSize.String())...)
	prefix = append(prefix, byte('|'))

	keys, _, err := state.Depths.ScanPage(buf, nil, 0, prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		state.Depths.Remove(buf, k)
	}
	for _, o := range orders {
		if o.Remaining.IsZero() {
			continue
		}
		if err := state.AddDepth(buf, base, quote, direction, bucketSize, o.Price, o.Remaining); err != nil {
			return err
		}
	}
	return nil
}
