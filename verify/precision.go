// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package verify

import (
	"math"

	"github.com/gogpu/floatctl/fp"
	"github.com/gogpu/floatctl/ops"
)

// Tolerance bounds the error of an approximate result. The allowed error
// is the larger of ULP units in the last place of the reference and Abs.
type Tolerance struct {
	ULP float64
	Abs float64
}

// Bound returns the allowed absolute error around ref in width t.
func (tol Tolerance) Bound(t fp.Type, ref float64) float64 {
	return math.Max(tol.ULP*t.ULP(ref), tol.Abs)
}

// Allows reports whether got is within the tolerance of ref.
func (tol Tolerance) Allows(t fp.Type, ref, got float64) bool {
	if math.IsNaN(got) || math.IsInf(got, 0) {
		return false
	}
	return math.Abs(got-ref) <= tol.Bound(t, ref)
}

// Precision lists the tolerance of an operation per width.
type Precision [fp.FP64 + 1]Tolerance

func ulps(half, single, double float64) Precision {
	return Precision{fp.FP16: {ULP: half}, fp.FP32: {ULP: single}, fp.FP64: {ULP: double}}
}

func absolute(half, single, double float64) Precision {
	return Precision{fp.FP16: {Abs: half}, fp.FP32: {Abs: single}, fp.FP64: {Abs: double}}
}

// derived covers functions whose precision is inherited from the formula
// implementing them.
var derived = ulps(64, 4096, 4096)

var precisions = map[ops.ID]Precision{
	ops.Sin: absolute(0x1p-7, 0x1p-11, 0x1p-11),
	ops.Cos: absolute(0x1p-7, 0x1p-11, 0x1p-11),

	ops.Exp:  ulps(2, 3, 3),
	ops.Exp2: ulps(2, 3, 3),
	ops.Log: {
		fp.FP16: {ULP: 2, Abs: 0x1p-7},
		fp.FP32: {ULP: 3, Abs: 0x1p-21},
		fp.FP64: {ULP: 3, Abs: 0x1p-21},
	},
	ops.Log2: {
		fp.FP16: {ULP: 2, Abs: 0x1p-7},
		fp.FP32: {ULP: 3, Abs: 0x1p-21},
		fp.FP64: {ULP: 3, Abs: 0x1p-21},
	},

	ops.Asin:  ulps(5, 4096, 4096),
	ops.Acos:  ulps(5, 4096, 4096),
	ops.Atan:  ulps(5, 4096, 4096),
	ops.Atan2: ulps(5, 4096, 4096),

	ops.Sqrt:        ulps(2, 3, 3),
	ops.InverseSqrt: ulps(2, 2, 2),
	ops.Radians:     ulps(2, 3, 3),
	ops.Degrees:     ulps(2, 3, 3),
}

// ToleranceFor returns the tolerance of op in width t.
func ToleranceFor(op ops.ID, t fp.Type) Tolerance {
	if p, ok := precisions[op]; ok {
		return p[t]
	}
	return derived[t]
}
