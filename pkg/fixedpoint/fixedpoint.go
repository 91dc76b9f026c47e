// Package fixedpoint implements a signed 128-bit fixed-point number with
// 80 integer bits and 48 fractional bits (I80F48).
//
// Amounts are stored as a raw two's-complement integer split into a signed
// high word and an unsigned low word. Every arithmetic operation is checked:
// results that do not fit return an error instead of wrapping or saturating.
package fixedpoint

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"math/bits"
)

// FracBits is the number of fractional bits in the raw representation.
const FracBits = 48

const fracMask = uint64(1)<<FracBits - 1

var (
	// ErrOverflow is returned when a result does not fit in 128 bits.
	ErrOverflow = errors.New("fixedpoint: overflow")

	// ErrNegative is returned when a negative amount is converted to an unsigned integer.
	ErrNegative = errors.New("fixedpoint: negative value")

	// ErrOutOfRange is returned when an integer part does not fit the requested width.
	ErrOutOfRange = errors.New("fixedpoint: value out of range")

	// ErrInvalidRaw is returned by ParseRaw for malformed input.
	ErrInvalidRaw = errors.New("fixedpoint: invalid raw value")
)

var (
	minRaw   = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	maxRaw   = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	two64    = new(big.Int).Lsh(big.NewInt(1), 64)
	oneFixed = new(big.Int).Lsh(big.NewInt(1), FracBits)
)

// Amount is an I80F48 value. The zero value is 0.
type Amount struct {
	hi int64
	lo uint64
}

// Zero returns the zero amount.
func Zero() Amount { return Amount{} }

// Max returns the largest representable amount. It is used as the
// per-call limit of unlimited minters.
func Max() Amount { return Amount{hi: math.MaxInt64, lo: math.MaxUint64} }

// FromInteger converts a whole number of units.
func FromInteger(n uint64) Amount {
	return Amount{hi: int64(n >> (64 - FracBits)), lo: n << FracBits}
}

// FromBig builds an amount from its raw scaled value.
func FromBig(raw *big.Int) (Amount, error) {
	if raw.Cmp(minRaw) < 0 || raw.Cmp(maxRaw) > 0 {
		return Amount{}, ErrOverflow
	}
	v := new(big.Int).Set(raw)
	if v.Sign() < 0 {
		v.Add(v, new(big.Int).Lsh(two64, 64))
	}
	lo := new(big.Int).And(v, new(big.Int).Sub(two64, big.NewInt(1))).Uint64()
	hi := new(big.Int).Rsh(v, 64).Uint64()
	return Amount{hi: int64(hi), lo: lo}, nil
}

// Big returns the raw scaled value.
func (a Amount) Big() *big.Int {
	v := new(big.Int).SetInt64(a.hi)
	v.Lsh(v, 64)
	return v.Add(v, new(big.Int).SetUint64(a.lo))
}

// ToInteger returns the integer part. The fraction is truncated.
func (a Amount) ToInteger() (uint64, error) {
	if a.hi < 0 {
		return 0, ErrNegative
	}
	if uint64(a.hi)>>FracBits != 0 {
		return 0, ErrOutOfRange
	}
	return uint64(a.hi)<<(64-FracBits) | a.lo>>FracBits, nil
}

// CheckedAdd returns a+b or ErrOverflow.
func (a Amount) CheckedAdd(b Amount) (Amount, error) {
	lo, carry := bits.Add64(a.lo, b.lo, 0)
	hiU, _ := bits.Add64(uint64(a.hi), uint64(b.hi), carry)
	hi := int64(hiU)
	if (a.hi < 0) == (b.hi < 0) && (hi < 0) != (a.hi < 0) {
		return Amount{}, ErrOverflow
	}
	return Amount{hi: hi, lo: lo}, nil
}

// CheckedSub returns a-b or ErrOverflow.
func (a Amount) CheckedSub(b Amount) (Amount, error) {
	lo, borrow := bits.Sub64(a.lo, b.lo, 0)
	hiU, _ := bits.Sub64(uint64(a.hi), uint64(b.hi), borrow)
	hi := int64(hiU)
	if (a.hi < 0) != (b.hi < 0) && (hi < 0) != (a.hi < 0) {
		return Amount{}, ErrOverflow
	}
	return Amount{hi: hi, lo: lo}, nil
}

// Cmp returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	switch {
	case a.hi < b.hi:
		return -1
	case a.hi > b.hi:
		return 1
	case a.lo < b.lo:
		return -1
	case a.lo > b.lo:
		return 1
	}
	return 0
}

// Sign returns -1, 0 or +1.
func (a Amount) Sign() int {
	switch {
	case a.hi < 0:
		return -1
	case a.hi == 0 && a.lo == 0:
		return 0
	}
	return 1
}

// IsZero reports whether a is 0.
func (a Amount) IsZero() bool { return a.hi == 0 && a.lo == 0 }

// IsInteger reports whether the fractional bits are all zero.
func (a Amount) IsInteger() bool { return a.lo&fracMask == 0 }

// IsMax reports whether a equals Max().
func (a Amount) IsMax() bool { return a == Max() }

// RawString returns the raw scaled value in base 10, suitable for NUMERIC columns.
func (a Amount) RawString() string { return a.Big().String() }

// ParseRaw is the inverse of RawString.
func ParseRaw(s string) (Amount, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidRaw, s)
	}
	return FromBig(v)
}

// String formats the value in decimal with up to six fractional digits.
func (a Amount) String() string {
	r := new(big.Rat).SetFrac(a.Big(), oneFixed)
	if r.IsInt() {
		return r.Num().String()
	}
	return r.FloatString(6)
}
