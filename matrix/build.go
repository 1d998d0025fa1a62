// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package matrix

import (
	"math"

	"github.com/gogpu/floatctl/fault"
	"github.com/gogpu/floatctl/fp"
	"github.com/gogpu/floatctl/ops"
	"github.com/gogpu/floatctl/spirv"
	"github.com/gogpu/floatctl/values"
)

type row struct {
	base       string
	arg1, arg2 values.ID
}

var (
	denormBinaryRows = []row{
		{"denorm_op_var", values.Denorm, values.One},
		{"denorm_op_denorm", values.Denorm, values.Denorm},
		{"denorm_op_inf", values.Denorm, values.Inf},
		{"denorm_op_nan", values.Denorm, values.NaN},
	}
	denormUnaryRows = []row{
		{"op_denorm", values.Denorm, values.Unused},
	}
	zinUnaryRows = []row{
		{"op_zero", values.Zero, values.Unused},
		{"op_signed_zero", values.MinusZero, values.Unused},
		{"op_inf", values.Inf, values.Unused},
		{"op_signed_inf", values.MinusInf, values.Unused},
		{"op_nan", values.NaN, values.Unused},
	}
)

// zinBinaryRows returns the signed zero, inf and NaN rows of a binary
// operation whose second argument is arg2.
func zinBinaryRows(arg2 values.ID) []row {
	return []row{
		{"zero_op_var", values.Zero, arg2},
		{"signed_zero_op_var", values.MinusZero, arg2},
		{"inf_op_var", values.Inf, arg2},
		{"signed_inf_op_var", values.MinusInf, arg2},
		{"nan_op_var", values.NaN, arg2},
	}
}

// zinSecondArg picks the second argument of the signed zero, inf and NaN
// rows. The default of one keeps the first argument observable; the
// exceptions make the sign of zero matter.
var zinSecondArg = map[ops.ID]values.ID{
	ops.Phi:  values.Inf,
	ops.Add:  values.MinusZero,
	ops.Sub:  values.Zero,
	ops.Max:  values.MinusOne,
	ops.NMax: values.MinusOne,
}

var zinExtras = []struct {
	op         ops.ID
	row        row
	requireRTE bool
}{
	{ops.Add, row{"max_op_max", values.Max, values.Max}, true},
	{ops.Mul, row{"max_op_two", values.Max, values.Two}, true},
	{ops.Div, row{"one_op_signed_inf", values.One, values.MinusInf}, false},
	{ops.Div, row{"one_op_zero", values.One, values.Zero}, false},
	{ops.Div, row{"one_op_signed_zero", values.One, values.MinusZero}, false},
	{ops.Sub, row{"inf_op_inf", values.Inf, values.Inf}, false},
	{ops.Mul, row{"zero_op_inf", values.Zero, values.Inf}, false},
	{ops.Add, row{"signed_zero_op_zero", values.MinusZero, values.Zero}, false},
}

// roundingArgs maps the operations with rounding rows onto the catalog
// arguments and results of the matching host computation.
var roundingArgs = map[ops.ID][4]values.ID{
	ops.Add:     {values.AddArgA, values.AddArgB, values.AddRteResult, values.AddRtzResult},
	ops.Sub:     {values.SubArgA, values.SubArgB, values.SubRteResult, values.SubRtzResult},
	ops.Mul:     {values.MulArgA, values.MulArgB, values.MulRteResult, values.MulRtzResult},
	ops.VecMulS: {values.MulArgA, values.MulArgB, values.MulRteResult, values.MulRtzResult},
	ops.MatMulS: {values.MulArgA, values.MulArgB, values.MulRteResult, values.MulRtzResult},
	ops.OutProd: {values.MulArgA, values.MulArgB, values.MulRteResult, values.MulRtzResult},
	ops.Dot:     {values.DotArgA, values.DotArgB, values.DotRteResult, values.DotRtzResult},
	ops.VecMulM: {values.DotArgA, values.DotArgB, values.DotRteResult, values.DotRtzResult},
	ops.MatMulV: {values.DotArgA, values.DotArgB, values.DotRteResult, values.DotRtzResult},
	ops.MatMulM: {values.DotArgA, values.DotArgB, values.DotRteResult, values.DotRtzResult},
}

var roundingOrder = []ops.ID{
	ops.Add, ops.Sub, ops.Mul, ops.Dot,
	ops.VecMulS, ops.VecMulM, ops.MatMulS, ops.MatMulV, ops.MatMulM, ops.OutProd,
}

var denormModes = []struct {
	suffix string
	b      Behavior
}{
	{"preserve", DenormPreserve},
	{"flush", DenormFlushToZero},
}

// collector accumulates the cases of one width, dropping those the
// current argument source cannot express.
type collector struct {
	b             *Builder
	t             fp.Type
	argsFromInput bool
	cases         []OperationTestCase
}

func (c *collector) add(tc OperationTestCase) {
	op := c.b.ops.Get(tc.Op)
	if !op.Supports(c.t) {
		return
	}
	tc.InputArgsOnly = tc.InputArgsOnly || op.InputArgsOnly
	if !c.argsFromInput {
		if tc.InputArgsOnly {
			return
		}
		for _, a := range tc.Args(op.Arity) {
			if !values.Generatable(a) {
				return
			}
		}
	}
	fault.Assert(tc.Expected != values.Unused, "%s: unused expectation", tc.Name())
	in := c.b.values.For(op.ArgType(c.t))
	for _, a := range tc.Args(op.Arity) {
		fault.Assert(in.Defined(a), "%s: argument %s undefined for %s", tc.Name(), a, in.Type())
	}
	out := c.b.values.For(c.t)
	if alts := values.Alternatives(tc.Expected); alts != nil {
		for _, a := range alts {
			fault.Assert(out.Defined(a), "%s: alternative %s undefined for %s", tc.Name(), a, c.t)
		}
	} else {
		fault.Assert(out.Defined(tc.Expected), "%s: expectation %s undefined for %s", tc.Name(), tc.Expected, c.t)
	}
	c.cases = append(c.cases, tc)
}

// derived adds a row whose expectation comes from the reference of op.
// Rows the catalog cannot express are skipped.
func (c *collector) derived(id ops.ID, r row, b Behavior, requireRTE bool) {
	op := c.b.ops.Get(id)
	if !op.Supports(c.t) {
		return
	}
	want := c.b.expect(c.t, op, b, r.arg1, r.arg2)
	if want == values.Unused {
		return
	}
	if involvesSpecial(r.arg1, r.arg2, want) {
		b |= ZINPreserve
	}
	c.add(OperationTestCase{
		Base:       r.base,
		Behavior:   b,
		Op:         id,
		Arg1:       r.arg1,
		Arg2:       r.arg2,
		Expected:   want,
		RequireRTE: requireRTE,
	})
}

// involvesSpecial reports whether any id must survive the signed zero,
// inf and NaN optimizations.
func involvesSpecial(ids ...values.ID) bool {
	for _, id := range ids {
		switch id {
		case values.NaN, values.Inf, values.MinusInf, values.MinusZero:
			return true
		}
	}
	return false
}

// Build returns the float controls cases of width t. argsFromInput selects
// buffer-loaded arguments; otherwise the arguments are synthesized in the
// shader and cases that cannot do so are left out.
func (b *Builder) Build(t fp.Type, argsFromInput bool) []OperationTestCase {
	c := &collector{b: b, t: t, argsFromInput: argsFromInput}
	b.denormRows(c)
	b.zinRows(c)
	if argsFromInput {
		b.roundingRows(c)
	}
	b.conversionRows(c)
	b.packRows(c)
	return c.cases
}

func (b *Builder) tested() []*ops.Operation {
	var out []*ops.Operation
	for _, op := range b.ops.All() {
		if _, ok := references[op.ID]; ok {
			out = append(out, op)
		}
	}
	return out
}

func (b *Builder) denormRows(c *collector) {
	for _, m := range denormModes {
		for _, op := range b.tested() {
			if m.b == DenormFlushToZero && op.FloatUsage == ops.StorageOnly {
				continue
			}
			rows := denormUnaryRows
			if op.Arity == 2 {
				rows = denormBinaryRows
			}
			for _, r := range rows {
				r.base += "_" + m.suffix
				c.derived(op.ID, r, m.b, false)
			}
		}
	}
}

func (b *Builder) zinRows(c *collector) {
	for _, op := range b.tested() {
		rows := zinUnaryRows
		if op.Arity == 2 {
			arg2, ok := zinSecondArg[op.ID]
			if !ok {
				arg2 = values.One
			}
			rows = zinBinaryRows(arg2)
		}
		for _, r := range rows {
			c.derived(op.ID, r, ZINPreserve, false)
		}
	}
	for _, e := range zinExtras {
		c.derived(e.op, e.row, ZINPreserve, e.requireRTE)
	}
}

func (b *Builder) roundingRows(c *collector) {
	modes := []struct {
		base string
		b    Behavior
		idx  int
	}{
		{"rounding_rte", RTE, 2},
		{"rounding_rtz", RTZ, 3},
	}
	for _, m := range modes {
		for _, id := range roundingOrder {
			a := roundingArgs[id]
			c.add(OperationTestCase{
				Base:          m.base,
				Behavior:      m.b,
				Op:            id,
				Arg1:          a[0],
				Arg2:          a[1],
				Expected:      a[m.idx],
				InputArgsOnly: true,
			})
		}
	}
}

// conversionRows covers rounding and denormals across widths. Rounding
// modes apply to the result width, denormal modes to both widths.
func (b *Builder) conversionRows(c *collector) {
	type conv struct {
		op       ops.ID
		arg      values.ID
		rte, rtz values.ID
	}
	var rounding []conv
	switch c.t {
	case fp.FP16:
		rounding = []conv{
			{ops.ConvFromFP32, values.ConvFromFP32Arg, values.ConvToFP16RteResult, values.ConvToFP16RtzResult},
			{ops.ConvFromFP64, values.ConvFromFP64Arg, values.ConvToFP16RteResult, values.ConvToFP16RtzResult},
		}
	case fp.FP32:
		rounding = []conv{
			{ops.ConvFromFP64, values.ConvFromFP64Arg, values.ConvToFP32RteResult, values.ConvToFP32RtzResult},
		}
	}
	if c.argsFromInput {
		for _, r := range rounding {
			c.add(OperationTestCase{Base: "rounding_rte", Behavior: RTE, Op: r.op, Arg1: r.arg, Expected: r.rte, InputArgsOnly: true})
			c.add(OperationTestCase{Base: "rounding_rtz", Behavior: RTZ, Op: r.op, Arg1: r.arg, Expected: r.rtz, InputArgsOnly: true})
		}
		if c.t == fp.FP16 {
			for _, d := range []struct {
				op       ops.ID
				arg, res values.ID
			}{
				{ops.ConvFromFP32Rte, values.ConvFromFP32Arg, values.ConvToFP16RteResult},
				{ops.ConvFromFP32Rtz, values.ConvFromFP32Arg, values.ConvToFP16RtzResult},
				{ops.ConvFromFP64Rte, values.ConvFromFP64Arg, values.ConvToFP16RteResult},
				{ops.ConvFromFP64Rtz, values.ConvFromFP64Arg, values.ConvToFP16RtzResult},
			} {
				c.add(OperationTestCase{Base: "rounding", Op: d.op, Arg1: d.arg, Expected: d.res, Decorated: true})
			}
		}
	}

	type denorm struct {
		op                   ops.ID
		arg, preserve, flush values.ID
	}
	var denorms []denorm
	switch c.t {
	case fp.FP16:
		denorms = []denorm{
			{ops.ConvFromFP32, values.ConvDenormSmaller, values.ConvDenormSmaller, values.ZeroOrMinusZero},
			{ops.ConvFromFP64, values.ConvDenormSmaller, values.ConvDenormSmaller, values.ZeroOrMinusZero},
		}
	case fp.FP32:
		denorms = []denorm{
			{ops.ConvFromFP16, values.ConvDenormSmaller, values.ConvDenormSmaller, values.ZeroOrFP16DenormToFP32},
			{ops.ConvFromFP64, values.ConvDenormBigger, values.ConvDenormBigger, values.ZeroOrMinusZero},
		}
	case fp.FP64:
		denorms = []denorm{
			{ops.ConvFromFP16, values.ConvDenormSmaller, values.ConvDenormSmaller, values.ZeroOrFP16DenormToFP64},
			{ops.ConvFromFP32, values.ConvDenormBigger, values.ConvDenormBigger, values.ZeroOrFP32DenormToFP64},
		}
	}
	for _, m := range denormModes {
		for _, d := range denorms {
			want := d.preserve
			if m.b == DenormFlushToZero {
				want = d.flush
			}
			c.add(OperationTestCase{
				Base:          "denorm_" + m.suffix,
				Behavior:      m.b,
				Op:            d.op,
				Arg1:          d.arg,
				Expected:      want,
				InputArgsOnly: true,
			})
		}
	}
}

func (b *Builder) packRows(c *collector) {
	for _, p := range []struct {
		op       ops.ID
		arg      values.ID
		behavior Behavior
		want     values.ID
	}{
		{ops.PackHalf, values.ConvDenormSmaller, DenormPreserve, values.One},
		{ops.PackHalf, values.ConvDenormSmaller, DenormFlushToZero, values.ZeroOrOne},
		{ops.UnpackHalf, values.Zero, DenormPreserve, values.ConvDenormSmaller},
		{ops.UnpackHalf, values.Zero, DenormFlushToZero, values.ZeroOrFP16DenormToFP32},
		{ops.PackDouble, values.Zero, DenormPreserve, values.Denorm},
		{ops.UnpackDoublePreserve, values.Denorm, DenormPreserve, values.One},
		{ops.UnpackDoubleFlush, values.Denorm, DenormFlushToZero, values.One},
	} {
		suffix := "preserve"
		if p.behavior == DenormFlushToZero {
			suffix = "flush"
		}
		c.add(OperationTestCase{
			Base:     "denorm_" + suffix,
			Behavior: p.behavior,
			Op:       p.op,
			Arg1:     p.arg,
			Expected: p.want,
		})
	}
}

// expect evaluates op on the catalog values of a1 and a2 under b and names
// the result, or returns Unused when the result has no name.
func (b *Builder) expect(t fp.Type, op *ops.Operation, beh Behavior, a1, a2 values.ID) values.ID {
	ref, ok := references[op.ID]
	if !ok {
		return values.Unused
	}
	in := b.values.For(op.ArgType(t))
	flush := beh.Has(DenormFlushToZero) && op.FloatUsage == ops.Arithmetic
	load := func(id values.ID) float64 {
		if id == values.Unused {
			return 0
		}
		bits := in.Bits(id)
		x := in.Float(id)
		if flush && in.Type().IsDenorm(bits) {
			return math.Copysign(0, x)
		}
		return x
	}
	x, y := load(a1), load(a2)

	r, oc := ref(x, y)
	if oc == undefined {
		return values.Unused
	}
	if op.Approximate && math.IsNaN(r) && !anyNaN(x, y) {
		return values.Unused
	}

	var bits uint64
	if math.IsNaN(r) {
		bits = t.QuietNaN()
	} else {
		bits = t.Encode(r, fp.RTE)
		if flush && t.IsDenorm(bits) {
			bits = t.Encode(math.Copysign(0, r), fp.RTE)
			if oc == exact {
				oc = zeroAnySign
			}
		}
	}

	switch oc {
	case eitherBound:
		return values.ZeroOrOne
	case zeroAnySign:
		return values.ZeroOrMinusZero
	case orNaN:
		if b.identify(t, bits, r, op.Approximate) == values.One {
			return values.OneOrNaN
		}
		return values.Unused
	}
	return b.identify(t, bits, r, op.Approximate)
}

var (
	approximateIDs = []values.ID{values.TrigOne, values.PiDiv2, values.MinusPiDiv2, values.DegreesDenorm}
	exactIDs       = []values.ID{
		values.Zero, values.MinusZero, values.One, values.MinusOne, values.Half, values.Two,
		values.Inf, values.MinusInf, values.Max, values.Denorm, values.DenormTimesTwo,
	}
)

// identify names a result of width t. Approximate results are matched on
// the double-precision reference before the rounded bits.
func (b *Builder) identify(t fp.Type, bits uint64, ref float64, approx bool) values.ID {
	if t.IsNaN(bits) {
		return values.NaN
	}
	v := b.values.For(t)
	if approx {
		for _, id := range approximateIDs {
			if v.Defined(id) && v.Exact(id) == ref {
				return id
			}
		}
	}
	for _, id := range exactIDs {
		if v.Bits(id) == bits {
			return id
		}
	}
	return values.Unused
}

// BuildFloatControls2 returns the float controls 2 cases of width t. Each
// signed zero, inf and NaN case of an arithmetic operation is expressed
// once through FPFastMathDefault and once through an FPFastMathMode
// decoration, allowing every fast-math flag the case does not depend on.
func (b *Builder) BuildFloatControls2(t fp.Type, argsFromInput bool) []OperationTestCase {
	zin := &collector{b: b, t: t, argsFromInput: argsFromInput}
	b.zinRows(zin)

	var out []OperationTestCase
	for _, tc := range zin.cases {
		op := b.ops.Get(tc.Op)
		if op.FloatUsage != ops.Arithmetic || op.FastMathTarget == nil {
			continue
		}
		tc.Variant = FloatControls2
		tc.Behavior &^= ZINPreserve
		tc.FastMath = FastMathFor(tc.Arg1, tc.Arg2, tc.Expected)

		mode := tc
		mode.Base += "_exec_mode"
		out = append(out, mode)

		dec := tc
		dec.Base += "_decoration"
		dec.Decorated = true
		out = append(out, dec)
	}
	return out
}

// FastMathFor returns the fast-math flags a case over ids may allow:
// NotNaN, NotInf and NSZ are cleared when a NaN, an infinity or a zero is
// involved. AllowTransform survives only when nothing was cleared.
func FastMathFor(ids ...values.ID) spirv.FPFastMathMode {
	m := spirv.FPFastMathAll
	var expanded []values.ID
	for _, id := range ids {
		if alts := values.Alternatives(id); alts != nil {
			expanded = append(expanded, alts...)
			continue
		}
		expanded = append(expanded, id)
	}
	for _, id := range expanded {
		switch id {
		case values.NaN:
			m &^= spirv.FPFastMathNotNaN
		case values.Inf, values.MinusInf:
			m &^= spirv.FPFastMathNotInf
		case values.Zero, values.MinusZero:
			m &^= spirv.FPFastMathNSZ
		}
	}
	if m != spirv.FPFastMathAll {
		m &^= spirv.FPFastMathAllowTransform
	}
	return m
}
