package dex

// state.go — typed store.Map namespaces for the DEX module, mirroring
// execute/state.go's pattern (a typed namespace per concern, built
// fresh over whatever Storage is in scope).

import (
	"encoding/json"
	"strconv"

	"grug/apperror"
	"grug/store"
	"grug/types"
)

// State is the set of typed namespaces the auction cronjob and order
// submission handler read and write.
type State struct {
	Params      *store.Map[Params]
	Reserves    *store.Map[types.CoinPair]
	Paused      *store.Map[bool]
	BestPrices  *store.Map[BestPrices]
	Incoming    *store.Map[[]Order]
	LimitOrders *store.Map[Order]
	NextOrderID *store.Map[uint64]
	Depths      *store.Map[types.Decimal256]
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

// NewState constructs the standard DEX namespace set: "dex_params",
// "dex_reserves", "dex_paused", "dex_best_prices", "dex_incoming",
// "dex_limit_orders", "dex_next_order_id", "dex_depths".
func NewState() *State {
	paramsEnc, paramsDec := jsonCodec[Params]()
	reserveEnc, reserveDec := jsonCodec[types.CoinPair]()
	pausedEnc, pausedDec := jsonCodec[bool]()
	bestEnc, bestDec := jsonCodec[BestPrices]()
	incomingEnc, incomingDec := jsonCodec[[]Order]()
	orderEnc, orderDec := jsonCodec[Order]()
	nextIDEnc, nextIDDec := jsonCodec[uint64]()
	depthEnc, depthDec := jsonCodec[types.Decimal256]()

	return &State{
		Params:      store.NewMap("dex_params", paramsEnc, paramsDec),
		Reserves:    store.NewMap("dex_reserves", reserveEnc, reserveDec),
		Paused:      store.NewMap("dex_paused", pausedEnc, pausedDec),
		BestPrices:  store.NewMap("dex_best_prices", bestEnc, bestDec),
		Incoming:    store.NewMap("dex_incoming", incomingEnc, incomingDec),
		LimitOrders: store.NewMap("dex_limit_orders", orderEnc, orderDec),
		NextOrderID: store.NewMap("dex_next_order_id", nextIDEnc, nextIDDec),
		Depths:      store.NewMap("dex_depths", depthEnc, depthDec),
	}
}

// pairKey is the composite key prefix for everything scoped to one
// (base, quote) pair: "<base>/<quote>".
func pairKey(base, quote string) []byte {
	return []byte(base + "/" + quote)
}

func (s *State) LoadParams(stor store.Storage, base, quote string) (Params, bool, error) {
	return s.Params.Load(stor, pairKey(base, quote))
}

func (s *State) SaveParams(stor store.Storage, base, quote string, p Params) {
	s.Params.Save(stor, p, pairKey(base, quote))
}

// ListPairs returns every configured pair's (base, quote, Params),
// for the auction cronjob to iterate deterministically.
func (s *State) ListPairs(stor store.Storage) ([][2]string, []Params, error) {
	keys, values, err := s.Params.ScanPage(stor, nil, 0)
	if err != nil {
		return nil, nil, err
	}
	pairs := make([][2]string, len(keys))
	for i, k := range keys {
		base, quote := splitPairKey(k)
		pairs[i] = [2]string{base, quote}
	}
	return pairs, values, nil
}

func splitPairKey(k []byte) (base, quote string) {
	s := string(k)
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}

func (s *State) LoadReserve(stor store.Storage, base, quote string) (types.CoinPair, bool, error) {
	return s.Reserves.Load(stor, pairKey(base, quote))
}

func (s *State) SaveReserve(stor store.Storage, base, quote string, r types.CoinPair) {
	s.Reserves.Save(stor, r, pairKey(base, quote))
}

// IsPaused reports whether a math error has halted trading on this
// pair (spec §4.5: "a MathError ... pauses trading for the pair").
func (s *State) IsPaused(stor store.Storage, base, quote string) (bool, error) {
	paused, ok, err := s.Paused.Load(stor, pairKey(base, quote))
	if err != nil {
		return false, err
	}
	return ok && paused, nil
}

func (s *State) SetPaused(stor store.Storage, base, quote string, paused bool) {
	s.Paused.Save(stor, paused, pairKey(base, quote))
}

func (s *State) LoadBestPrices(stor store.Storage, base, quote string) (BestPrices, error) {
	bp, ok, err := s.BestPrices.Load(stor, pairKey(base, quote))
	if err != nil {
		return BestPrices{}, err
	}
	if !ok {
		return BestPrices{}, nil
	}
	return bp, nil
}

func (s *State) SaveBestPrices(stor store.Storage, base, quote string, bp BestPrices) {
	s.BestPrices.Save(stor, bp, pairKey(base, quote))
}

// LoadIncoming/SaveIncoming/ClearIncoming manage the per-pair inbox of
// orders submitted during the just-finished block, moved into the
// resting book at the start of the next auction (spec §4.5 step 1).
func (s *State) LoadIncoming(stor store.Storage, base, quote string) ([]Order, error) {
	orders, ok, err := s.Incoming.Load(stor, pairKey(base, quote))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return orders, nil
}

func (s *State) AppendIncoming(stor store.Storage, base, quote string, o Order) error {
	orders, err := s.LoadIncoming(stor, base, quote)
	if err != nil {
		return err
	}
	orders = append(orders, o)
	s.Incoming.Save(stor, orders, pairKey(base, quote))
	return nil
}

func (s *State) ClearIncoming(stor store.Storage, base, quote string) {
	s.Incoming.Remove(stor, pairKey(base, quote))
}

// AllocOrderID allocates the next order id for a pair, starting at 1.
func (s *State) AllocOrderID(stor store.Storage, base, quote string) (uint64, error) {
	cur, ok, err := s.NextOrderID.Load(stor, pairKey(base, quote))
	if err != nil {
		return 0, err
	}
	if !ok {
		cur = 0
	}
	next := cur + 1
	s.NextOrderID.Save(stor, next, pairKey(base, quote))
	return next, nil
}

func orderKey(base, quote string, direction Direction, id uint64) []byte {
	key := append(pairKey(base, quote), byte('|'))
	key = append(key, []byte(direction)...)
	key = append(key, byte('|'))
	return append(key, []byte(strconv.FormatUint(id, 10))...)
}

func (s *State) SaveLimitOrder(stor store.Storage, base, quote string, o Order) {
	s.LimitOrders.Save(stor, o, orderKey(base, quote, o.Direction, o.ID))
}

func (s *State) RemoveLimitOrder(stor store.Storage, base, quote string, direction Direction, id uint64) {
	s.LimitOrders.Remove(stor, orderKey(base, quote, direction, id))
}

// ListLimitOrders returns every resting limit order for one pair and
// direction, in no particular persisted order — the auction pass sorts
// them explicitly by (price, id) before clearing (see auction.go).
func (s *State) ListLimitOrders(stor store.Storage, base, quote string, direction Direction) ([]Order, error) {
	prefix := append(pairKey(base, quote), byte('|'))
	prefix = append(prefix, []byte(direction)...)
	prefix = append(prefix, byte('|'))
	_, values, err := s.LimitOrders.ScanPage(stor, nil, 0, prefix)
	if err != nil {
		return nil, err
	}
	return values, nil
}

// DepthBucket rounds price to the pair's bucket grid: bids round down,
// asks round up (spec §4.5 "Liquidity depths").
func DepthBucket(direction Direction, price types.Decimal256, bucketSize types.Decimal256) (types.Decimal256, error) {
	if bucketSize.IsZero() {
		return types.Decimal256{}, apperror.Argument("bucket size must be non-zero")
	}
	q, err := price.CheckedDivFloor(bucketSize)
	if err != nil {
		return types.Decimal256{}, err
	}
	if direction == Ask {
		qc, err := price.CheckedDivCeil(bucketSize)
		if err != nil {
			return types.Decimal256{}, err
		}
		q = qc
	}
	return q.CheckedMul(bucketSize)
}

func depthKey(base, quote string, direction Direction, bucketSize, bucket types.Decimal256) []byte {
	key := append(pairKey(base, quote), byte('|'))
	key = append(key, []byte(direction)...)
	key = append(key, byte('|'))
	key = append(key, []byte(bucketSize.String())...)
	key = append(key, byte('|'))
	return append(key, []byte(bucket.String())...)
}

// AddDepth adds (or, with a negative-signed delta via SubDepth)
// removes liquidity at price's bucket, deleting the entry once it
// reaches zero (spec §4.5: "zero depths are deleted").
func (s *State) AddDepth(stor store.Storage, base, quote string, direction Direction, bucketSize, price, amount types.Decimal256) error {
	bucket, err := DepthBucket(direction, price, bucketSize)
	if err != nil {
		return err
	}
	key := depthKey(base, quote, direction, bucketSize, bucket)
	cur, ok, err := s.Depths.Load(stor, key)
	if err != nil {
		return err
	}
	if !ok {
		cur = types.Decimal256Zero()
	}
	next, err := cur.CheckedAdd(amount)
	if err != nil {
		return err
	}
	s.Depths.Save(stor, next, key)
	return nil
}

func (s *State) SubDepth(stor store.Storage, base, quote string, direction Direction, bucketSize, price, amount types.Decimal256) error {
	bucket, err := DepthBucket(direction, price, bucketSize)
	if err != nil {
		return err
	}
	key := depthKey(base, quote, direction, bucketSize, bucket)
	cur, ok, err := s.Depths.Load(stor, key)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	next, err := cur.CheckedSub(amount)
	if err != nil {
		return err
	}
	if next.IsZero() {
		s.Depths.Remove(stor, key)
		return nil
	}
	s.Depths.Save(stor, next, key)
	return nil
}
