// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package matrix enumerates the float-controls test cases.
//
// A case pairs an operation with two symbolic arguments, a set of behavior
// flags and the symbolic value the device must produce. Expectations are
// derived from a double-precision reference of each operation, adjusted for
// the behavior flags and rounded into the result width, then mapped back
// onto the value catalog. Results the catalog cannot name are not tested.
package matrix

import (
	"strings"

	"github.com/gogpu/floatctl/fp"
	"github.com/gogpu/floatctl/ops"
	"github.com/gogpu/floatctl/spirv"
	"github.com/gogpu/floatctl/values"
)

// Behavior is a set of float-control behaviors a case enables.
type Behavior uint8

const (
	DenormPreserve Behavior = 1 << iota
	DenormFlushToZero
	ZINPreserve
	RTE
	RTZ
)

var behaviorNames = []struct {
	b    Behavior
	name string
}{
	{DenormPreserve, "denorm_preserve"},
	{DenormFlushToZero, "denorm_flush_to_zero"},
	{ZINPreserve, "signed_zero_inf_nan_preserve"},
	{RTE, "rounding_rte"},
	{RTZ, "rounding_rtz"},
}

// Has reports whether every flag of o is set in b.
func (b Behavior) Has(o Behavior) bool { return b&o == o }

func (b Behavior) String() string {
	if b == 0 {
		return "none"
	}
	var parts []string
	for _, n := range behaviorNames {
		if b.Has(n.b) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Rounding returns the rounding mode requested by b, if any.
func (b Behavior) Rounding() (fp.Rounding, bool) {
	switch {
	case b.Has(RTE):
		return fp.RTE, true
	case b.Has(RTZ):
		return fp.RTZ, true
	}
	return fp.RTE, false
}

// Variant selects how float controls are expressed.
type Variant uint8

const (
	// FloatControls uses the per-entry-point execution modes of
	// SPV_KHR_float_controls.
	FloatControls Variant = iota
	// FloatControls2 uses FPFastMathDefault or FPFastMathMode from
	// SPV_KHR_float_controls2.
	FloatControls2
)

func (v Variant) String() string {
	if v == FloatControls2 {
		return "float_controls2"
	}
	return "float_controls"
}

// OperationTestCase is one row of the matrix.
type OperationTestCase struct {
	Base     string
	Variant  Variant
	Behavior Behavior
	Op       ops.ID
	Arg1     values.ID
	Arg2     values.ID
	Expected values.ID

	// RequireRTE adds the RTE rounding mode so overflow is well defined.
	RequireRTE bool
	// Decorated expresses the controls on the instruction rather than on
	// the entry point.
	Decorated bool
	// FastMath lists the fast-math flags a float controls 2 case allows.
	FastMath spirv.FPFastMathMode
	// InputArgsOnly forbids synthesizing the arguments in the shader.
	InputArgsOnly bool
}

// Name returns the case name.
func (c OperationTestCase) Name() string {
	return c.Op.String() + "_" + c.Base
}

// Args returns the argument ids the operation reads.
func (c OperationTestCase) Args(arity int) []values.ID {
	if arity == 1 {
		return []values.ID{c.Arg1}
	}
	return []values.ID{c.Arg1, c.Arg2}
}

// Builder builds the matrix from injected catalogs.
type Builder struct {
	values *values.Catalogs
	ops    *ops.Catalog
}

// NewBuilder returns a Builder.
func NewBuilder(v *values.Catalogs, o *ops.Catalog) *Builder {
	return &Builder{values: v, ops: o}
}
