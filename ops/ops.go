// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package ops is the catalog of operations under test.
//
// Every operation is a set of SPIR-V templates that compute %${result}
// from %${arg1} and %${arg2} of type %type_${float}. Conversions read their
// argument as %type_${in_float}. The catalog is pure data: it is built once
// by NewCatalog and shared by the matrix builder and the specializer.
package ops

import (
	"github.com/gogpu/floatctl/fault"
	"github.com/gogpu/floatctl/fp"
	"github.com/gogpu/floatctl/tmpl"
)

// ID identifies an operation.
type ID uint8

const (
	Invalid ID = iota

	Add
	Sub
	Mul
	Div
	Rem
	Mod
	Phi
	Select
	Dot
	VecMulS
	VecMulM
	MatMulS
	MatMulV
	MatMulM
	OutProd
	Negate

	OrdEq
	UordEq
	OrdNeq
	UordNeq
	OrdLt
	UordLt
	OrdGt
	UordGt
	OrdLe
	UordLe
	OrdGe
	UordGe

	Atan2
	Pow
	Min
	Max
	NMin
	NMax
	Step
	Distance
	Abs
	Sign
	Floor
	Ceil
	Fract
	Round
	RoundEven
	Trunc
	Radians
	Degrees
	Sin
	Cos
	Tan
	Asin
	Acos
	Atan
	Sinh
	Cosh
	Tanh
	Asinh
	Acosh
	Atanh
	Exp
	Log
	Exp2
	Log2
	Sqrt
	InverseSqrt
	Modf
	ModfSt
	Frexp
	FrexpSt
	Length
	Normalize
	Clamp
	NClamp
	Determinant
	Inverse

	ReturnVal

	ConvFromFP16
	ConvFromFP32
	ConvFromFP64
	ConvFromFP32Rte
	ConvFromFP32Rtz
	ConvFromFP64Rte
	ConvFromFP64Rtz

	PackHalf
	UnpackHalf
	PackDouble
	UnpackDoubleFlush
	UnpackDoublePreserve

	numIDs
)

// String returns the case-name prefix of id.
func (id ID) String() string {
	if id > Invalid && id < numIDs {
		return names[id]
	}
	return "invalid"
}

// Parse looks an operation up by its case-name prefix.
func Parse(name string) (ID, bool) {
	id, ok := byName[name]
	return id, ok
}

// FloatUsage says whether an operation computes with floats or only moves
// them around. Storage-only operations can run on fp16 with 16-bit storage
// alone.
type FloatUsage uint8

const (
	StorageOnly FloatUsage = iota
	Arithmetic
)

func (u FloatUsage) String() string {
	if u == StorageOnly {
		return "storage_only"
	}
	return "arithmetic"
}

// Usage lists the optional snippet fragments an operation references.
type Usage uint8

const (
	UsageConstFloat Usage = 1 << iota
	UsageTypeVector
	UsageTypeMatrix
	UsageTypeFunction
	UsageConstInteger
)

// Has reports whether all bits of o are set in u.
func (u Usage) Has(o Usage) bool { return u&o == o }

// Operation describes one operation under test.
type Operation struct {
	ID         ID
	Name       string
	Arity      int
	FloatUsage FloatUsage
	Usage      Usage

	Annotations *tmpl.Template
	Types       *tmpl.Template
	Constants   *tmpl.Template
	Variables   *tmpl.Template
	Functions   *tmpl.Template
	Commands    *tmpl.Template

	// InputType is the width of the arguments when it differs from the
	// result width. Zero means the same width.
	InputType fp.Type
	// Widths lists the result widths the operation supports.
	Widths []fp.Type
	// FastMathTarget names the id decorated with FPFastMathMode.
	FastMathTarget *tmpl.Template
	// InputArgsOnly is set when the arguments cannot be synthesized in
	// the shader.
	InputArgsOnly bool
	// Decorated is set when the operation carries its own rounding mode
	// decoration.
	Decorated bool
	// Approximate operations are checked against a precision bound
	// instead of bit for bit.
	Approximate bool
	// ControlsAlso lists widths whose float controls affect the result
	// besides the argument and result widths.
	ControlsAlso []fp.Type
}

// WidthUsage is the float usage the shader declarations of o need. A
// storage-only operation still needs arithmetic types once it references
// float constants or composites built from the width.
func (o *Operation) WidthUsage() FloatUsage {
	if o.Usage != 0 {
		return Arithmetic
	}
	return o.FloatUsage
}

// Supports reports whether t is a valid result width.
func (o *Operation) Supports(t fp.Type) bool {
	for _, w := range o.Widths {
		if w == t {
			return true
		}
	}
	return false
}

// ArgType returns the argument width for result width out.
func (o *Operation) ArgType(out fp.Type) fp.Type {
	if o.InputType != 0 {
		return o.InputType
	}
	return out
}

// Names are the ids an operation reads and writes, without '%'.
type Names struct {
	Arg1, Arg2, Result string
}

// DefaultNames are used by single-width shaders.
var DefaultNames = Names{Arg1: "arg1", Arg2: "arg2", Result: "result"}

// Suffixed returns n with suffix appended to every id.
func (n Names) Suffixed(suffix string) Names {
	return Names{Arg1: n.Arg1 + suffix, Arg2: n.Arg2 + suffix, Result: n.Result + suffix}
}

// Rendered holds the expanded templates of an operation.
type Rendered struct {
	Annotations    string
	Types          string
	Constants      string
	Variables      string
	Functions      string
	Commands       string
	FastMathTarget string
}

// Render expands every template of o for result width out.
func (o *Operation) Render(out fp.Type, n Names) Rendered {
	fault.Assert(o.Supports(out), "%s does not support %s", o.Name, out)
	p := tmpl.Params{
		"float":    out.Token(),
		"in_float": o.ArgType(out).Token(),
		"arg1":     n.Arg1,
		"arg2":     n.Arg2,
		"result":   n.Result,
	}
	run := func(t *tmpl.Template) string {
		if t.Empty() {
			return ""
		}
		return t.MustExecute(p)
	}
	return Rendered{
		Annotations:    run(o.Annotations),
		Types:          run(o.Types),
		Constants:      run(o.Constants),
		Variables:      run(o.Variables),
		Functions:      run(o.Functions),
		Commands:       run(o.Commands),
		FastMathTarget: run(o.FastMathTarget),
	}
}

// Catalog maps every ID to its Operation.
type Catalog struct {
	ops [numIDs]*Operation
}

// NewCatalog builds the operation catalog.
func NewCatalog() *Catalog {
	c := &Catalog{}
	for _, o := range definitions() {
		fault.Assert(c.ops[o.ID] == nil, "operation %s defined twice", o.Name)
		o.Name = o.ID.String()
		o.Approximate = approximate[o.ID]
		c.ops[o.ID] = o
	}
	for id := Invalid + 1; id < numIDs; id++ {
		fault.Assert(c.ops[id] != nil, "operation %s not defined", id)
	}
	return c
}

// Get returns the operation for id. Unknown ids are generator defects.
func (c *Catalog) Get(id ID) *Operation {
	fault.Assert(id > Invalid && id < numIDs, "unknown operation %d", id)
	return c.ops[id]
}

// All returns every operation in declaration order.
func (c *Catalog) All() []*Operation {
	out := make([]*Operation, 0, numIDs-1)
	for id := Invalid + 1; id < numIDs; id++ {
		out = append(out, c.ops[id])
	}
	return out
}

var names = [numIDs]string{
	Add: "add", Sub: "sub", Mul: "mul", Div: "div", Rem: "rem", Mod: "mod",
	Phi: "phi", Select: "select", Dot: "dot",
	VecMulS: "vec_mul_s", VecMulM: "vec_mul_m",
	MatMulS: "mat_mul_s", MatMulV: "mat_mul_v", MatMulM: "mat_mul_m",
	OutProd: "out_prod", Negate: "negate",

	OrdEq: "ord_eq", UordEq: "uord_eq", OrdNeq: "ord_neq", UordNeq: "uord_neq",
	OrdLt: "ord_lt", UordLt: "uord_lt", OrdGt: "ord_gt", UordGt: "uord_gt",
	OrdLe: "ord_le", UordLe: "uord_le", OrdGe: "ord_ge", UordGe: "uord_ge",

	Atan2: "atan2", Pow: "pow", Min: "min", Max: "max", NMin: "nmin", NMax: "nmax",
	Step: "step", Distance: "distance", Abs: "abs", Sign: "sign",
	Floor: "floor", Ceil: "ceil", Fract: "fract", Round: "round",
	RoundEven: "round_even", Trunc: "trunc", Radians: "radians", Degrees: "degrees",
	Sin: "sin", Cos: "cos", Tan: "tan", Asin: "asin", Acos: "acos", Atan: "atan",
	Sinh: "sinh", Cosh: "cosh", Tanh: "tanh",
	Asinh: "asinh", Acosh: "acosh", Atanh: "atanh",
	Exp: "exp", Log: "log", Exp2: "exp2", Log2: "log2",
	Sqrt: "sqrt", InverseSqrt: "inverse_sqrt",
	Modf: "modf", ModfSt: "modf_st", Frexp: "frexp", FrexpSt: "frexp_st",
	Length: "length", Normalize: "normalize", Clamp: "clamp", NClamp: "nclamp",
	Determinant: "determinant", Inverse: "inverse",

	ReturnVal: "return_val",

	ConvFromFP16:    "conv_from_fp16",
	ConvFromFP32:    "conv_from_fp32",
	ConvFromFP64:    "conv_from_fp64",
	ConvFromFP32Rte: "conv_from_fp32_rte",
	ConvFromFP32Rtz: "conv_from_fp32_rtz",
	ConvFromFP64Rte: "conv_from_fp64_rte",
	ConvFromFP64Rtz: "conv_from_fp64_rtz",

	PackHalf:             "pack_half",
	UnpackHalf:           "unpack_half",
	PackDouble:           "pack_double",
	UnpackDoubleFlush:    "unpack_double_flush",
	UnpackDoublePreserve: "unpack_double_preserve",
}

var byName = func() map[string]ID {
	m := make(map[string]ID, numIDs)
	for id := Invalid + 1; id < numIDs; id++ {
		m[names[id]] = id
	}
	return m
}()
