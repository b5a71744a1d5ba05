package types

// order.go — the DEX Order tagged union. Grounded on
// core/liquidity_pools.go's pool/order bookkeeping shape (teacher has
// no call-auction order type; the fields below are spec-native, see
// DESIGN.md dex/ entries) plus the bid-id-inversion design note of
// spec §9 ("Do not rely on negative integers").

// OrderKind tags the Order union.
type OrderKind string

const (
	OrderLimit   OrderKind = "limit"
	OrderMarket  OrderKind = "market"
	OrderPassive OrderKind = "passive"
)

// Direction is the side of the book an order rests on.
type Direction string

const (
	DirectionBid Direction = "bid"
	DirectionAsk Direction = "ask"
)

// Order is a resting or incoming DEX order (spec §3).
type Order struct {
	Kind            OrderKind
	User            *Address // nil for passive (synthetic) orders
	ID              uint64   // bitwise-inverted for bids, see InvertedOrderID
	Direction       Direction
	Price           Decimal256 // unused for Market orders
	Amount          Decimal256
	Remaining       Decimal256
	CreatedAtHeight uint64 // limit orders only
}

// InvertedOrderID flips every bit (^id) of a monotonically-increasing id so
// that bids sort highest-price-first, oldest-first under a single
// ascending key scan (spec §9 design note — storage-key trick, not
// negative integers).
func InvertedOrderID(id uint64) uint64 {
	return ^id
}
