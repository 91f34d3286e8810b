package safemath

import (
	"errors"
	"math/bits"
)

var (
	ErrOverflow     = errors.New("number overflow")
	ErrDivideByZero = errors.New("division by zero")
)

func Add64(a, b uint64) (uint64, bool) {
	v, carry := bits.Add64(a, b, 0)
	return v, carry == 0
}

func Sub64(a, b uint64) (uint64, bool) {
	v, borrow := bits.Sub64(a, b, 0)
	return v, borrow == 0
}

func Mul64(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi == 0
}

// MulDiv64 computes a*b/d with a 128-bit intermediate product, so the
// multiplication itself never overflows. It fails when d is zero or the
// quotient does not fit in 64 bits.
func MulDiv64(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrDivideByZero
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return 0, ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, d)
	return q, nil
}
