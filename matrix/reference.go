// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package matrix

import (
	"math"

	"github.com/gogpu/floatctl/ops"
)

// outcome qualifies a reference result.
type outcome uint8

const (
	// exact: the device must produce the value.
	exact outcome = iota
	// orNaN: the value or any NaN.
	orNaN
	// eitherBound: any bound of a clamp.
	eitherBound
	// zeroAnySign: a zero of either sign.
	zeroAnySign
	// undefined: the operation gives no guarantee.
	undefined
)

type refFunc func(a, b float64) (float64, outcome)

func value(f func(a, b float64) float64) refFunc {
	return func(a, b float64) (float64, outcome) { return f(a, b), exact }
}

func unary(f func(float64) float64) refFunc {
	return func(a, _ float64) (float64, outcome) { return f(a), exact }
}

// domain wraps f with a precondition; arguments outside it are undefined.
func domain(ok func(a, b float64) bool, f refFunc) refFunc {
	return func(a, b float64) (float64, outcome) {
		if !ok(a, b) {
			return 0, undefined
		}
		return f(a, b)
	}
}

func finite(x float64) bool { return !math.IsInf(x, 0) && !math.IsNaN(x) }

func nonZeroFinite(x float64) bool { return finite(x) && x != 0 }

func boolValue(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

func anyNaN(a, b float64) bool { return math.IsNaN(a) || math.IsNaN(b) }

func compare(ordered bool, f func(a, b float64) bool) refFunc {
	return func(a, b float64) (float64, outcome) {
		if anyNaN(a, b) {
			return boolValue(!ordered), exact
		}
		return boolValue(f(a, b)), exact
	}
}

// minmax implements FMin and FMax, which are free to return either
// operand when one is NaN and either zero when both are zeros.
func minmax(less bool) refFunc {
	return func(a, b float64) (float64, outcome) {
		switch {
		case math.IsNaN(a) && math.IsNaN(b):
			return math.NaN(), exact
		case math.IsNaN(a):
			return b, orNaN
		case math.IsNaN(b):
			return a, orNaN
		case a == 0 && b == 0 && math.Signbit(a) != math.Signbit(b):
			return 0, zeroAnySign
		}
		if (b < a) == less {
			return b, exact
		}
		return a, exact
	}
}

// nminmax implements NMin and NMax, which return the non-NaN operand.
func nminmax(less bool) refFunc {
	inner := minmax(less)
	return func(a, b float64) (float64, outcome) {
		switch {
		case math.IsNaN(a) && !math.IsNaN(b):
			return b, exact
		case math.IsNaN(b) && !math.IsNaN(a):
			return a, exact
		}
		return inner(a, b)
	}
}

func clamp(nanBound bool) refFunc {
	return func(a, _ float64) (float64, outcome) {
		switch {
		case math.IsNaN(a) && nanBound:
			return 0, exact
		case math.IsNaN(a):
			return 0, eitherBound
		case a == 0:
			return 0, zeroAnySign
		}
		return math.Min(math.Max(a, 0), 1), exact
	}
}

func sign(a, _ float64) (float64, outcome) {
	switch {
	case math.IsNaN(a):
		return 0, undefined
	case a == 0:
		return 0, zeroAnySign
	case a > 0:
		return 1, exact
	}
	return -1, exact
}

func fmod(a, b float64) float64 { return a - b*math.Floor(a/b) }

func twoProducts(a, b float64) float64 { return a*b + a*b }

// references computes every testable operation in double precision.
var references = map[ops.ID]refFunc{
	ops.Add:     value(func(a, b float64) float64 { return a + b }),
	ops.Sub:     value(func(a, b float64) float64 { return a - b }),
	ops.Mul:     value(func(a, b float64) float64 { return a * b }),
	ops.Div:     value(func(a, b float64) float64 { return a / b }),
	ops.Rem:     domain(func(a, b float64) bool { return finite(a) && nonZeroFinite(b) }, value(math.Mod)),
	ops.Mod:     domain(func(a, b float64) bool { return finite(a) && nonZeroFinite(b) }, value(fmod)),
	ops.Phi:     value(func(a, _ float64) float64 { return a }),
	ops.Select:  value(func(a, _ float64) float64 { return a }),
	ops.Dot:     value(twoProducts),
	ops.VecMulS: value(func(a, b float64) float64 { return a * b }),
	ops.VecMulM: value(twoProducts),
	ops.MatMulS: value(func(a, b float64) float64 { return a * b }),
	ops.MatMulV: value(twoProducts),
	ops.MatMulM: value(twoProducts),
	ops.OutProd: value(func(a, b float64) float64 { return a * b }),
	ops.Negate:  unary(func(a float64) float64 { return -a }),

	ops.OrdEq:   compare(true, func(a, b float64) bool { return a == b }),
	ops.UordEq:  compare(false, func(a, b float64) bool { return a == b }),
	ops.OrdNeq:  compare(true, func(a, b float64) bool { return a != b }),
	ops.UordNeq: compare(false, func(a, b float64) bool { return a != b }),
	ops.OrdLt:   compare(true, func(a, b float64) bool { return a < b }),
	ops.UordLt:  compare(false, func(a, b float64) bool { return a < b }),
	ops.OrdGt:   compare(true, func(a, b float64) bool { return a > b }),
	ops.UordGt:  compare(false, func(a, b float64) bool { return a > b }),
	ops.OrdLe:   compare(true, func(a, b float64) bool { return a <= b }),
	ops.UordLe:  compare(false, func(a, b float64) bool { return a <= b }),
	ops.OrdGe:   compare(true, func(a, b float64) bool { return a >= b }),
	ops.UordGe:  compare(false, func(a, b float64) bool { return a >= b }),

	ops.Atan2: domain(func(a, b float64) bool { return a != 0 || b != 0 }, value(math.Atan2)),
	ops.Pow: domain(func(a, b float64) bool { return !(a < 0) && !(a == 0 && b <= 0) },
		value(math.Pow)),
	ops.Min:      minmax(true),
	ops.Max:      minmax(false),
	ops.NMin:     nminmax(true),
	ops.NMax:     nminmax(false),
	ops.Step:     domain(func(a, b float64) bool { return !anyNaN(a, b) }, value(func(edge, x float64) float64 { return boolValue(!(x < edge)) })),
	ops.Distance: value(func(a, b float64) float64 { return math.Abs(a - b) }),

	ops.Abs:       unary(math.Abs),
	ops.Sign:      sign,
	ops.Floor:     unary(math.Floor),
	ops.Ceil:      unary(math.Ceil),
	ops.Fract:     domain(func(a, _ float64) bool { return !math.IsInf(a, 0) }, unary(func(a float64) float64 { return a - math.Floor(a) })),
	ops.Round:     unary(math.Round),
	ops.RoundEven: unary(math.RoundToEven),
	ops.Trunc:     unary(math.Trunc),
	ops.Radians:   unary(func(a float64) float64 { return a * math.Pi / 180 }),
	ops.Degrees:   unary(func(a float64) float64 { return a * 180 / math.Pi }),
	ops.Sin:       unary(math.Sin),
	ops.Cos:       unary(math.Cos),
	ops.Tan:       unary(math.Tan),
	ops.Asin:      unary(math.Asin),
	ops.Acos:      unary(math.Acos),
	ops.Atan:      unary(math.Atan),
	ops.Sinh:      unary(math.Sinh),
	ops.Cosh:      unary(math.Cosh),
	ops.Tanh:      unary(math.Tanh),
	ops.Asinh:     unary(math.Asinh),
	ops.Acosh:     unary(math.Acosh),
	ops.Atanh:     unary(math.Atanh),
	ops.Exp:       unary(math.Exp),
	ops.Log:       domain(func(a, _ float64) bool { return !(a < 0) }, unary(math.Log)),
	ops.Exp2:      unary(math.Exp2),
	ops.Log2:      domain(func(a, _ float64) bool { return !(a < 0) }, unary(math.Log2)),
	ops.Sqrt:      unary(math.Sqrt),
	ops.InverseSqrt: domain(func(a, _ float64) bool { return !(a < 0) },
		unary(func(a float64) float64 { return 1 / math.Sqrt(a) })),
	ops.Modf: unary(func(a float64) float64 {
		if math.IsInf(a, 0) {
			return math.Copysign(0, a)
		}
		_, frac := math.Modf(a)
		return frac
	}),
	ops.Frexp:     domain(func(a, _ float64) bool { return finite(a) }, unary(func(a float64) float64 { f, _ := math.Frexp(a); return f })),
	ops.Length:    unary(math.Abs),
	ops.Normalize: domain(func(a, _ float64) bool { return nonZeroFinite(a) || math.IsNaN(a) }, unary(func(a float64) float64 { return a / math.Abs(a) })),
	ops.Clamp:     clamp(false),
	ops.NClamp:    clamp(true),
	// diag(a, 1)
	ops.Determinant: unary(func(a float64) float64 { return a*1 - 0*0 }),
	ops.Inverse:     domain(func(a, _ float64) bool { return nonZeroFinite(a) }, unary(func(a float64) float64 { return 1 / a })),
	ops.ReturnVal:   unary(func(a float64) float64 { return a }),
}

func init() {
	references[ops.ModfSt] = references[ops.Modf]
	references[ops.FrexpSt] = references[ops.Frexp]
}
