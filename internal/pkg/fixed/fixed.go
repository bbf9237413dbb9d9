// Package fixed implements a signed 64-bit binary fixed-point number with
// 32 fractional bits (I32F32) and the transcendental functions needed for
// great-circle geometry.
//
// Every operation is pure integer arithmetic with a fixed rounding rule, so
// results are bit-identical on every platform and compiler:
//
//   - Mul rounds the magnitude half away from zero and re-applies the sign.
//   - MulQ64 rounds the magnitude half up and re-applies the sign.
//   - DivInt and Div truncate toward zero.
//   - Results that do not fit saturate at MaxValue / MinValue.
package fixed

import (
	"fmt"
	"math"
	"math/bits"
	"strconv"
)

// FracBits is the number of fractional bits.
const FracBits = 32

// I32F32 is a fixed-point value stored as bits/2^32.
type I32F32 int64

const (
	// One is 1.0.
	One I32F32 = 1 << FracBits
	// Half is 0.5.
	Half I32F32 = One / 2

	MaxValue I32F32 = math.MaxInt64
	MinValue I32F32 = math.MinInt64 + 1
)

// FromBits reinterprets raw two's complement bits as a fixed-point value.
func FromBits(b int64) I32F32 { return I32F32(b) }

// FromInt converts an integer. Values outside the 31-bit integer range saturate.
func FromInt(n int64) I32F32 {
	if n > math.MaxInt32 {
		return MaxValue
	}
	if n < math.MinInt32 {
		return MinValue
	}
	return I32F32(n << FracBits)
}

// FromFloat64 converts f rounding to the nearest representable value.
// Only used at the edges of the system (parsing user input); the result
// depends solely on the IEEE-754 value of f.
func FromFloat64(f float64) (I32F32, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("fixed: %v is not finite", f)
	}
	scaled := math.Round(f * (1 << FracBits))
	if scaled >= math.MaxInt64 || scaled <= math.MinInt64 {
		return 0, fmt.Errorf("fixed: %v out of range", f)
	}
	return I32F32(int64(scaled)), nil
}

// MustFloat64 is FromFloat64 for constants and tests; it panics on error.
func MustFloat64(f float64) I32F32 {
	v, err := FromFloat64(f)
	if err != nil {
		panic(err)
	}
	return v
}

// Bits returns the raw two's complement representation.
func (x I32F32) Bits() int64 { return int64(x) }

// Float64 returns the nearest float64. For display only.
func (x I32F32) Float64() float64 { return float64(x) / (1 << FracBits) }

func (x I32F32) String() string {
	return strconv.FormatFloat(x.Float64(), 'f', -1, 64)
}

// Abs returns |x|, saturating for MinInt64 bits.
func (x I32F32) Abs() I32F32 {
	if x < 0 {
		if x == math.MinInt64 {
			return MaxValue
		}
		return -x
	}
	return x
}

// Neg returns -x.
func (x I32F32) Neg() I32F32 {
	if x == math.MinInt64 {
		return MaxValue
	}
	return -x
}

// Add returns x+y, saturating on overflow.
func (x I32F32) Add(y I32F32) I32F32 {
	s := x + y
	if (x > 0 && y > 0 && s < 0) || (x < 0 && y < 0 && s >= 0) {
		if x > 0 {
			return MaxValue
		}
		return MinValue
	}
	return s
}

// Sub returns x-y, saturating on overflow.
func (x I32F32) Sub(y I32F32) I32F32 { return x.Add(y.Neg()) }

// Mul returns x*y rounded half away from zero.
func (x I32F32) Mul(y I32F32) I32F32 {
	neg := (x < 0) != (y < 0)
	hi, lo := bits.Mul64(magnitude(x), magnitude(y))
	lo, carry := bits.Add64(lo, 1<<(FracBits-1), 0)
	hi += carry
	if hi>>(FracBits-1) != 0 {
		return saturate(neg)
	}
	return withSign(hi<<FracBits|lo>>FracBits, neg)
}

// MulQ64 multiplies x by an unsigned Q0.64 fraction q (q/2^64), rounding
// the magnitude half up.
func (x I32F32) MulQ64(q uint64) I32F32 {
	hi, lo := bits.Mul64(magnitude(x), q)
	if lo >= 1<<63 {
		hi++
	}
	return withSign(hi, x < 0)
}

// MulInt returns x*n, saturating on overflow.
func (x I32F32) MulInt(n int64) I32F32 {
	neg := (x < 0) != (n < 0)
	un := uint64(n)
	if n < 0 {
		un = uint64(-n)
	}
	hi, lo := bits.Mul64(magnitude(x), un)
	if hi != 0 || lo > math.MaxInt64 {
		return saturate(neg)
	}
	return withSign(lo, neg)
}

// DivInt returns x/n truncated toward zero. Division by zero saturates.
func (x I32F32) DivInt(n int64) I32F32 {
	if n == 0 {
		return saturate(x < 0)
	}
	return I32F32(int64(x) / n)
}

// Div returns x/y truncated toward zero. Division by zero saturates.
func (x I32F32) Div(y I32F32) I32F32 {
	if y == 0 {
		return saturate(x < 0)
	}
	neg := (x < 0) != (y < 0)
	ux, uy := magnitude(x), magnitude(y)
	hi, lo := ux>>(64-FracBits), ux<<FracBits
	if hi >= uy {
		return saturate(neg)
	}
	q, _ := bits.Div64(hi, lo, uy)
	if q > math.MaxInt64 {
		return saturate(neg)
	}
	return withSign(q, neg)
}

// Trunc returns the integer part, truncated toward zero.
func (x I32F32) Trunc() int64 {
	if x < 0 {
		return -(int64(-x) >> FracBits)
	}
	return int64(x) >> FracBits
}

// Round returns the nearest integer, halves rounded away from zero.
func (x I32F32) Round() int64 {
	m := magnitude(x) + uint64(Half)
	r := int64(m >> FracBits)
	if x < 0 {
		return -r
	}
	return r
}

// Clamp limits x to [lo, hi].
func (x I32F32) Clamp(lo, hi I32F32) I32F32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func magnitude(x I32F32) uint64 {
	if x < 0 {
		return uint64(-int64(x))
	}
	return uint64(x)
}

func withSign(m uint64, neg bool) I32F32 {
	if m > math.MaxInt64 {
		return saturate(neg)
	}
	if neg {
		return I32F32(-int64(m))
	}
	return I32F32(m)
}

func saturate(neg bool) I32F32 {
	if neg {
		return MinValue
	}
	return MaxValue
}
