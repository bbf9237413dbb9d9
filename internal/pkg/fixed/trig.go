package fixed

import "math/big"

// Angle constants, rounded to nearest.
const (
	Pi     I32F32 = 13493037705 // round(π·2^32)
	HalfPi I32F32 = 6746518852  // round(π/2·2^32)
	TwoPi  I32F32 = 26986075409 // round(2π·2^32)
)

// sinTerms is the number of Horner steps in the sine polynomial. On
// [0, π/2] the first omitted term is below 2^-40.
const sinTerms = 8

// asinMaxTerms bounds the arcsine series; on [0, 1/2] it converges to zero
// in well under this many steps.
const asinMaxTerms = 64

// Sin returns sin(x) for x in radians. Sin is exactly odd: Sin(-x) == -Sin(x).
func Sin(x I32F32) I32F32 {
	neg := x < 0
	x = x.Abs() % TwoPi
	if x > Pi {
		x -= Pi
		neg = !neg
	}
	if x > HalfPi {
		x = Pi - x
	}
	r := sinPoly(x)
	if neg {
		return -r
	}
	return r
}

// Cos returns cos(x) for x in radians. Cos is exactly even.
func Cos(x I32F32) I32F32 {
	x = x.Abs() % TwoPi
	if x > Pi {
		x = TwoPi - x
	}
	return Sin(HalfPi - x)
}

// sinPoly evaluates the Taylor series of sin on [0, π/2] in Horner form:
// x·(1 − x²/(2·3)·(1 − x²/(4·5)·(1 − …))).
func sinPoly(x I32F32) I32F32 {
	x2 := x.Mul(x)
	t := One
	for k := int64(sinTerms); k >= 1; k-- {
		t = One - x2.Mul(t).DivInt((2*k)*(2*k+1))
	}
	return x.Mul(t)
}

// Asin returns arcsin(x) in radians. Arguments outside [-1, 1] are clamped,
// so rounding noise in the caller never produces a domain error.
func Asin(x I32F32) I32F32 {
	neg := x < 0
	x = x.Abs()
	if x > One {
		x = One
	}
	var r I32F32
	if x <= Half {
		r = asinSeries(x)
	} else {
		// asin(x) = π/2 − 2·asin(√((1−x)/2)); the inner argument is ≤ 1/2.
		r = HalfPi - 2*asinSeries(Sqrt((One-x).DivInt(2)))
	}
	if neg {
		return -r
	}
	return r
}

// asinSeries sums Σ (2n)!/(4^n (n!)^2) · x^(2n+1)/(2n+1) for 0 ≤ x ≤ 1/2.
func asinSeries(x I32F32) I32F32 {
	x2 := x.Mul(x)
	u, sum := x, x
	for n := int64(0); n < asinMaxTerms; n++ {
		u = u.Mul(x2).MulInt(2*n + 1).DivInt(2*n + 2)
		if u == 0 {
			break
		}
		sum += u.DivInt(2*n + 3)
	}
	return sum
}

// Sqrt returns the square root of x rounded toward zero. Negative inputs
// return 0.
func Sqrt(x I32F32) I32F32 {
	if x <= 0 {
		return 0
	}
	n := new(big.Int).Lsh(big.NewInt(int64(x)), FracBits)
	return I32F32(n.Sqrt(n).Int64())
}

// Powi returns x raised to the integer power n by binary exponentiation.
// Negative exponents divide One by the positive power.
func Powi(x I32F32, n int) I32F32 {
	if n < 0 {
		return One.Div(Powi(x, -n))
	}
	result, base := One, x
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base)
		}
		n >>= 1
		if n > 0 {
			base = base.Mul(base)
		}
	}
	return result
}
