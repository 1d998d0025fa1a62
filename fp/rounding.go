// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package fp

import (
	"math"
	"math/big"
)

// Rounding is a floating-point rounding mode.
type Rounding uint8

const (
	// RTE rounds to nearest, ties to even.
	RTE Rounding = iota
	// RTZ rounds toward zero.
	RTZ
)

// String returns the SPIR-V spelling of the mode.
func (r Rounding) String() string {
	if r == RTZ {
		return "RTZ"
	}
	return "RTE"
}

func (r Rounding) bigMode() big.RoundingMode {
	if r == RTZ {
		return big.ToZero
	}
	return big.ToNearestEven
}

// exactPrec is wide enough to hold the exact sum or product of any two
// float64 values.
const exactPrec = 2200

// roundMantissa rounds a > 0 to prec significant bits and returns it as
// frac * 2^exp with 0.5 <= frac < 1.
func (r Rounding) roundMantissa(a float64, prec int) (float64, int) {
	z := new(big.Float).SetPrec(uint(prec)).SetMode(r.bigMode()).SetFloat64(a)
	mant := new(big.Float)
	exp := z.MantExp(mant)
	frac, _ := mant.Float64()
	return frac, exp
}

func exact(x float64) *big.Float {
	return new(big.Float).SetPrec(exactPrec).SetFloat64(x)
}

// round narrows an exact intermediate result to t under r, applying the
// same overflow and subnormal rules as Encode. The result is rounded once:
// below the normal range the subnormal quantum leaves fewer significant
// bits.
func (t Type) round(x *big.Float, r Rounding) float64 {
	if x.Sign() == 0 {
		f, _ := x.Float64()
		return f
	}
	prec := t.MantissaBits() + 1
	if sub := x.MantExp(nil) - 1 + t.Bias() + t.MantissaBits(); sub < prec {
		prec = sub
	}
	if prec <= 0 {
		return t.roundTiny(x, r, prec == 0)
	}
	z := new(big.Float).SetPrec(uint(prec)).SetMode(r.bigMode()).Set(x)
	f, _ := z.Float64()
	if math.IsInf(f, 0) && r == RTZ {
		return math.Copysign(t.Max(), f)
	}
	return t.Decode(t.Encode(f, r))
}

// roundTiny rounds a non-zero x below the smallest denormal to zero or to
// the smallest denormal. upperHalf is set when |x| is at least half of it.
func (t Type) roundTiny(x *big.Float, r Rounding, upperHalf bool) float64 {
	var v float64
	if r == RTE && upperHalf {
		half := new(big.Float).SetMantExp(big.NewFloat(0.5), 1-t.Bias()-t.MantissaBits())
		if new(big.Float).Abs(x).Cmp(half) > 0 {
			v = t.DenormMin()
		}
	}
	if x.Signbit() {
		v = math.Copysign(v, -1)
	}
	return v
}

// Add returns a+b computed exactly and rounded once to t under r.
func (t Type) Add(a, b float64, r Rounding) float64 {
	if nan, ok := propagate(a, b); ok {
		return nan
	}
	if isInf(a) || isInf(b) {
		return a + b
	}
	return t.round(new(big.Float).SetPrec(exactPrec).Add(exact(a), exact(b)), r)
}

// Sub returns a-b computed exactly and rounded once to t under r.
func (t Type) Sub(a, b float64, r Rounding) float64 {
	return t.Add(a, -b, r)
}

// Mul returns a*b computed exactly and rounded once to t under r.
func (t Type) Mul(a, b float64, r Rounding) float64 {
	if nan, ok := propagate(a, b); ok {
		return nan
	}
	if isInf(a) || isInf(b) {
		return a * b
	}
	return t.round(new(big.Float).SetPrec(exactPrec).Mul(exact(a), exact(b)), r)
}

// Dot2 returns a0*b0 + a1*b1 with every product and the sum rounded to t
// under r. No fused multiply-add is assumed.
func (t Type) Dot2(a0, b0, a1, b1 float64, r Rounding) float64 {
	return t.Add(t.Mul(a0, b0, r), t.Mul(a1, b1, r), r)
}

func isInf(x float64) bool { return math.IsInf(x, 0) }

func propagate(a, b float64) (float64, bool) {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN(), true
	}
	return 0, false
}
