package types

// decimal.go — the 256-bit fixed-point decimal type used throughout
// DEX execution math.
//
// No direct teacher analogue: core/amm.go prices everything in
// float64, which the spec explicitly disallows for DEX math (checked
// arithmetic, directional rounding). Built fresh in the checked-
// arithmetic idiom used throughout core/coin.go (cap checks before
// mutation). Decimal256 is 256-bit (scale 24) backed by
// github.com/holiman/uint256, per the domain-stack wiring table in
// SPEC_FULL.md §11. An earlier 128-bit Decimal (scale 18, math/big.Int
// backed) mirroring the original's lower-precision price type was
// removed as dead code — every price in this repo's DEX path already
// flows through Decimal256, and nothing else called the 128-bit type.

import (
	"math/big"
	"strings"

	"github.com/holiman/uint256"

	"grug/apperror"
)

const Decimal256Scale = 24

// decimal256Precision = 10^24.
var decimal256Precision = func() *uint256.Int {
	p, _ := uint256.FromDecimal(new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimal256Scale), nil).String())
	return p
}()

// Decimal256 is the 256-bit, 24-digit-scale fixed-point type used for
// DEX execution prices (spec §4.5 uses 24-decimal prices).
type Decimal256 struct {
	atomics *uint256.Int
}

func Decimal256Zero() Decimal256 { return Decimal256{atomics: uint256.NewInt(0)} }
func Decimal256One() Decimal256  { return Decimal256{atomics: new(uint256.Int).Set(decimal256Precision)} }

func NewDecimal256FromAtomics(v *uint256.Int) Decimal256 {
	return Decimal256{atomics: new(uint256.Int).Set(v)}
}

func (d Decimal256) Atomics() *uint256.Int { return new(uint256.Int).Set(d.atomics) }

func (d Decimal256) CheckedAdd(o Decimal256) (Decimal256, error) {
	r, overflow := new(uint256.Int).AddOverflow(d.atomics, o.atomics)
	if overflow {
		return Decimal256{}, apperror.Math("decimal256 overflow")
	}
	return Decimal256{atomics: r}, nil
}

func (d Decimal256) CheckedSub(o Decimal256) (Decimal256, error) {
	if d.atomics.Lt(o.atomics) {
		return Decimal256{}, apperror.Math("decimal256 underflow")
	}
	return Decimal256{atomics: new(uint256.Int).Sub(d.atomics, o.atomics)}, nil
}

func (d Decimal256) CheckedMul(o Decimal256) (Decimal256, error) {
	r, overflow := new(uint256.Int).MulOverflow(d.atomics, o.atomics)
	if overflow {
		return Decimal256{}, apperror.Math("decimal256 overflow")
	}
	return Decimal256{atomics: new(uint256.Int).Div(r, decimal256Precision)}, nil
}

// CheckedDivFloor divides d by o, flooring to the nearest 24-digit unit.
func (d Decimal256) CheckedDivFloor(o Decimal256) (Decimal256, error) {
	if o.atomics.IsZero() {
		return Decimal256{}, apperror.Math("division by zero")
	}
	num, overflow := new(uint256.Int).MulOverflow(d.atomics, decimal256Precision)
	if overflow {
		return Decimal256{}, apperror.Math("decimal256 overflow")
	}
	return Decimal256{atomics: new(uint256.Int).Div(num, o.atomics)}, nil
}

// CheckedDivCeil divides d by o, rounding the result up.
func (d Decimal256) CheckedDivCeil(o Decimal256) (Decimal256, error) {
	if o.atomics.IsZero() {
		return Decimal256{}, apperror.Math("division by zero")
	}
	num, overflow := new(uint256.Int).MulOverflow(d.atomics, decimal256Precision)
	if overflow {
		return Decimal256{}, apperror.Math("decimal256 overflow")
	}
	q, rem := new(uint256.Int).DivMod(num, o.atomics, new(uint256.Int))
	if !rem.IsZero() {
		q.AddOverflow(q, uint256.NewInt(1))
	}
	return Decimal256{atomics: q}, nil
}

// NewDecimal256FromInt64 builds a Decimal256 representing an integer.
func NewDecimal256FromInt64(v int64) Decimal256 {
	return Decimal256{atomics: new(uint256.Int).Mul(uint256.NewInt(uint64(v)), decimal256Precision)}
}

// NewDecimal256FromBigInt lifts a raw integer amount (e.g. a Coin's
// 128-bit Amount) into priced arithmetic, used by the DEX curve math
// to treat reserve balances as Decimal256 values.
func NewDecimal256FromBigInt(v *big.Int) Decimal256 {
	u, _ := uint256.FromBig(v)
	return Decimal256{atomics: new(uint256.Int).Mul(u, decimal256Precision)}
}

// BigInt truncates d back down to a whole-unit integer amount (floor),
// the inverse of NewDecimal256FromBigInt.
func (d Decimal256) BigInt() *big.Int {
	whole := new(uint256.Int).Div(d.atomics, decimal256Precision)
	return whole.ToBig()
}

// Floor rounds d down to a whole unit.
func (d Decimal256) Floor() Decimal256 {
	return NewDecimal256FromBigInt(d.BigInt())
}

// Ceil rounds d up to a whole unit.
func (d Decimal256) Ceil() Decimal256 {
	f := d.Floor()
	if f.Cmp(d) == 0 {
		return f
	}
	r, _ := f.CheckedAdd(Decimal256One())
	return r
}

func (d Decimal256) IsZero() bool { return d.atomics.IsZero() }

func (d Decimal256) Cmp(o Decimal256) int { return d.atomics.Cmp(o.atomics) }

// Midpoint returns the average of two Decimal256 values, used by the
// DEX uniform-price clearing algorithm for the execution price.
func Midpoint(a, b Decimal256) Decimal256 {
	sum := new(uint256.Int).Add(a.atomics, b.atomics)
	return Decimal256{atomics: new(uint256.Int).Div(sum, uint256.NewInt(2))}
}

func (d Decimal256) String() string {
	return d.atomics.ToBig().String()
}

// MarshalJSON writes the raw atomics as a decimal string ("0" for Decimal256{}).
func (d Decimal256) MarshalJSON() ([]byte, error) {
	if d.atomics == nil {
		return []byte(`"0"`), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON reads the form MarshalJSON writes.
func (d *Decimal256) UnmarshalJSON(data []byte) error {
	v, err := uint256.FromDecimal(strings.Trim(string(data), `"`))
	d.atomics = v
	return err
}
