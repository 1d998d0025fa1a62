// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package values is the catalog of floating-point test values.
//
// A Values instance maps every ID defined for one width to its exact bit
// pattern and knows how to synthesize the generatable ones in shader code.
// Catalogs are built once and never mutated.
package values

import (
	"bytes"
	"math"

	"github.com/gogpu/floatctl/fault"
	"github.com/gogpu/floatctl/fp"
	"github.com/gogpu/floatctl/tmpl"
)

// Canary fills output buffers before execution. Its patterns are finite
// normal numbers in every width that no test expects.
const Canary = 0xcd

// Values is the catalog of one float width.
type Values struct {
	typ  fp.Type
	bits map[ID]uint64
	ref  map[ID]float64
}

// Conversion arguments. They sit exactly on (fp32 to fp16) or just above
// (fp64 to fp16 and fp32) a rounding tie so RTE and RTZ disagree.
var (
	convFromFP32Arg = 1 + 3*math.Ldexp(1, -11)
	convFromFP64Arg = convFromFP32Arg + 3*math.Ldexp(1, -24)
)

// New builds the catalog for t.
func New(t fp.Type) *Values {
	v := &Values{
		typ:  t,
		bits: make(map[ID]uint64, numIDs),
		ref:  make(map[ID]float64),
	}
	set := func(id ID, x float64) { v.bits[id] = t.Encode(x, fp.RTE) }

	set(MinusInf, math.Inf(-1))
	set(MinusOne, -1)
	set(MinusZero, math.Copysign(0, -1))
	set(Zero, 0)
	set(Half, 0.5)
	set(One, 1)
	set(Two, 2)
	set(Inf, math.Inf(1))
	set(Max, t.Max())
	v.bits[NaN] = t.QuietNaN()

	d := t.Denorm()
	set(Denorm, d)
	set(DenormTimesTwo, 2*d)
	v.approx(DegreesDenorm, d*180/math.Pi)
	v.approx(TrigOne, 1)
	v.approx(PiDiv2, math.Pi/2)
	v.approx(MinusPiDiv2, -math.Pi/2)

	eps := t.Epsilon()
	v.rounding(AddArgA, AddArgB, AddRtzResult, AddRteResult, 1+3*eps, 1, t.Add)
	v.rounding(SubArgA, SubArgB, SubRtzResult, SubRteResult, 2, eps/4, t.Sub)
	v.rounding(MulArgA, MulArgB, MulRtzResult, MulRteResult, 1+eps, 1.5, t.Mul)
	v.rounding(DotArgA, DotArgB, DotRtzResult, DotRteResult, 1+eps, 0.75,
		func(a, b float64, r fp.Rounding) float64 { return t.Dot2(a, b, a, b, r) })

	// 2^-16 is the fp16 primary denormal and 2^-128 the fp32 one.
	smaller := fp.FP16.Denorm()
	bigger := fp.FP32.Denorm()
	switch t {
	case fp.FP16:
		v.bits[ConvToFP16RtzResult] = t.Encode(convFromFP32Arg, fp.RTZ)
		v.bits[ConvToFP16RteResult] = t.Encode(convFromFP32Arg, fp.RTE)
		set(ConvDenormSmaller, smaller)
	case fp.FP32:
		set(ConvFromFP32Arg, convFromFP32Arg)
		v.bits[ConvToFP32RtzResult] = t.Encode(convFromFP64Arg, fp.RTZ)
		v.bits[ConvToFP32RteResult] = t.Encode(convFromFP64Arg, fp.RTE)
		set(ConvDenormSmaller, smaller)
		set(ConvDenormBigger, bigger)
	case fp.FP64:
		set(ConvFromFP32Arg, convFromFP32Arg)
		set(ConvFromFP64Arg, convFromFP64Arg)
		set(ConvDenormSmaller, smaller)
		set(ConvDenormBigger, bigger)
	}
	return v
}

func (v *Values) approx(id ID, x float64) {
	v.ref[id] = x
	v.bits[id] = v.typ.Encode(x, fp.RTE)
}

func (v *Values) rounding(argA, argB, rtz, rte ID, a, b float64, op func(a, b float64, r fp.Rounding) float64) {
	t := v.typ
	fault.Assert(t.Representable(a) && t.Representable(b), "%s: rounding arguments %v, %v not exact", t, a, b)
	v.bits[argA] = t.Encode(a, fp.RTE)
	v.bits[argB] = t.Encode(b, fp.RTE)
	v.bits[rtz] = t.Encode(op(a, b, fp.RTZ), fp.RTZ)
	v.bits[rte] = t.Encode(op(a, b, fp.RTE), fp.RTE)
}

// Type returns the width of the catalog.
func (v *Values) Type() fp.Type { return v.typ }

// Defined reports whether id has a bit pattern in this width.
func (v *Values) Defined(id ID) bool {
	_, ok := v.bits[id]
	return ok
}

// Lookup returns the bit pattern of id.
func (v *Values) Lookup(id ID) (uint64, bool) {
	b, ok := v.bits[id]
	return b, ok
}

// Bits returns the bit pattern of id. An undefined id is a generator
// defect and panics with an internal fault.
func (v *Values) Bits(id ID) uint64 {
	b, ok := v.bits[id]
	fault.Assert(ok, "value %s undefined for %s", id, v.typ)
	return b
}

// Float returns the decoded value of id.
func (v *Values) Float(id ID) float64 {
	return v.typ.Decode(v.Bits(id))
}

// Exact returns the double-precision reference of id. For approximate ids
// this is the unrounded mathematical result.
func (v *Values) Exact(id ID) float64 {
	if x, ok := v.ref[id]; ok {
		return x
	}
	return v.Float(id)
}

// InputBuffer serializes two arguments tightly packed with a stride equal
// to the byte width. Unused arguments are stored as +0.
func (v *Values) InputBuffer(a, b ID) []byte {
	n := v.typ.Bytes()
	buf := make([]byte, 2*n)
	for i, id := range [2]ID{a, b} {
		if id != Unused {
			v.typ.PutBits(buf[i*n:], v.Bits(id))
		}
	}
	return buf
}

// OutputBuffer returns an output buffer holding one canary scalar.
func (v *Values) OutputBuffer() []byte {
	return bytes.Repeat([]byte{Canary}, v.typ.Bytes())
}

// Catalogs holds the catalog of every width.
type Catalogs struct {
	byType [fp.FP64 + 1]*Values
}

// NewCatalogs builds the catalogs of all widths.
func NewCatalogs() *Catalogs {
	c := &Catalogs{}
	for _, t := range fp.Types {
		c.byType[t] = New(t)
	}
	return c
}

// For returns the catalog of t.
func (c *Catalogs) For(t fp.Type) *Values {
	fault.Assert(t.Valid(), "invalid float type %d", t)
	return c.byType[t]
}

// generators synthesize values from the snippet constants so the compiler
// cannot fold them before the instruction under test.
var generators = map[ID]*tmpl.Template{
	Zero: tmpl.MustParse(
		"%${name} = OpFSub %type_${float} %c_${float}_1 %c_${float}_1\n"),
	MinusZero: tmpl.MustParse(
		"%${name}_pos = OpFSub %type_${float} %c_${float}_1 %c_${float}_1\n" +
			"%${name} = OpFNegate %type_${float} %${name}_pos\n"),
	One: tmpl.MustParse(
		"%${name} = OpFAdd %type_${float} %c_${float}_0_5 %c_${float}_0_5\n"),
	MinusOne: tmpl.MustParse(
		"%${name} = OpFSub %type_${float} %c_${float}_0 %c_${float}_1\n"),
	Half: tmpl.MustParse(
		"%${name} = OpFMul %type_${float} %c_${float}_0_5 %c_${float}_1\n"),
	Two: tmpl.MustParse(
		"%${name} = OpFAdd %type_${float} %c_${float}_1 %c_${float}_1\n"),
	Max: tmpl.MustParse(
		"%${name} = OpFMul %type_${float} %c_${float}_max %c_${float}_1\n"),
	Inf: tmpl.MustParse(
		"%${name}_zero = OpFSub %type_${float} %c_${float}_1 %c_${float}_1\n" +
			"%${name} = OpFDiv %type_${float} %c_${float}_1 %${name}_zero\n"),
	MinusInf: tmpl.MustParse(
		"%${name}_zero = OpFSub %type_${float} %c_${float}_1 %c_${float}_1\n" +
			"%${name} = OpFDiv %type_${float} %c_${float}_n1 %${name}_zero\n"),
	NaN: tmpl.MustParse(
		"%${name}_zero = OpFSub %type_${float} %c_${float}_1 %c_${float}_1\n" +
			"%${name} = OpFDiv %type_${float} %${name}_zero %${name}_zero\n"),
	Denorm: tmpl.MustParse(
		"%${name} = OpFSub %type_${float} %c_${float}_denorm_base %c_${float}_denorm_eps\n"),
}

// Generatable reports whether id can be synthesized in shader code.
func Generatable(id ID) bool {
	_, ok := generators[id]
	return ok
}

// Generate returns the instructions computing id into %name. Asking for a
// value that cannot be generated is a generator defect.
func (v *Values) Generate(id ID, name string) string {
	g, ok := generators[id]
	fault.Assert(ok, "value %s cannot be generated", id)
	return g.MustExecute(tmpl.Params{"name": name, "float": v.typ.Token()})
}
