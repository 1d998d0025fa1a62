// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package matrix

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/floatctl/features"
	"github.com/gogpu/floatctl/fp"
	"github.com/gogpu/floatctl/ops"
	"github.com/gogpu/floatctl/spirv"
	"github.com/gogpu/floatctl/values"
)

func newBuilder() *Builder {
	return NewBuilder(values.NewCatalogs(), ops.NewCatalog())
}

func byName(cases []OperationTestCase) map[string]OperationTestCase {
	m := make(map[string]OperationTestCase, len(cases))
	for _, c := range cases {
		m[c.Name()] = c
	}
	return m
}

func TestBuild_Expectations(t *testing.T) {
	b := newBuilder()
	tests := []struct {
		typ  fp.Type
		name string
		want OperationTestCase
	}{
		{fp.FP32, "add_signed_zero_op_var", OperationTestCase{
			Base: "signed_zero_op_var", Behavior: ZINPreserve, Op: ops.Add,
			Arg1: values.MinusZero, Arg2: values.MinusZero, Expected: values.MinusZero,
		}},
		{fp.FP32, "add_denorm_op_denorm_flush", OperationTestCase{
			Base: "denorm_op_denorm_flush", Behavior: DenormFlushToZero, Op: ops.Add,
			Arg1: values.Denorm, Arg2: values.Denorm, Expected: values.Zero,
		}},
		{fp.FP16, "add_denorm_op_denorm_preserve", OperationTestCase{
			Base: "denorm_op_denorm_preserve", Behavior: DenormPreserve, Op: ops.Add,
			Arg1: values.Denorm, Arg2: values.Denorm, Expected: values.DenormTimesTwo,
		}},
		{fp.FP32, "div_one_op_signed_inf", OperationTestCase{
			Base: "one_op_signed_inf", Behavior: ZINPreserve, Op: ops.Div,
			Arg1: values.One, Arg2: values.MinusInf, Expected: values.MinusZero,
		}},
		{fp.FP64, "add_max_op_max", OperationTestCase{
			Base: "max_op_max", Behavior: ZINPreserve, Op: ops.Add,
			Arg1: values.Max, Arg2: values.Max, Expected: values.Inf, RequireRTE: true,
		}},
		{fp.FP32, "mul_denorm_op_inf_preserve", OperationTestCase{
			Base: "denorm_op_inf_preserve", Behavior: DenormPreserve | ZINPreserve, Op: ops.Mul,
			Arg1: values.Denorm, Arg2: values.Inf, Expected: values.Inf,
		}},
		{fp.FP32, "min_nan_op_var", OperationTestCase{
			Base: "nan_op_var", Behavior: ZINPreserve, Op: ops.Min,
			Arg1: values.NaN, Arg2: values.One, Expected: values.OneOrNaN,
		}},
		{fp.FP32, "nmax_nan_op_var", OperationTestCase{
			Base: "nan_op_var", Behavior: ZINPreserve, Op: ops.NMax,
			Arg1: values.NaN, Arg2: values.MinusOne, Expected: values.MinusOne,
		}},
		{fp.FP32, "clamp_op_nan", OperationTestCase{
			Base: "op_nan", Behavior: ZINPreserve, Op: ops.Clamp,
			Arg1: values.NaN, Expected: values.ZeroOrOne,
		}},
		{fp.FP32, "cos_op_denorm_preserve", OperationTestCase{
			Base: "op_denorm_preserve", Behavior: DenormPreserve, Op: ops.Cos,
			Arg1: values.Denorm, Expected: values.TrigOne,
		}},
		{fp.FP16, "degrees_op_denorm_preserve", OperationTestCase{
			Base: "op_denorm_preserve", Behavior: DenormPreserve, Op: ops.Degrees,
			Arg1: values.Denorm, Expected: values.DegreesDenorm,
		}},
		{fp.FP32, "atan_op_inf", OperationTestCase{
			Base: "op_inf", Behavior: ZINPreserve, Op: ops.Atan,
			Arg1: values.Inf, Expected: values.PiDiv2,
		}},
		{fp.FP32, "ord_lt_signed_inf_op_var", OperationTestCase{
			Base: "signed_inf_op_var", Behavior: ZINPreserve, Op: ops.OrdLt,
			Arg1: values.MinusInf, Arg2: values.One, Expected: values.One,
		}},
		{fp.FP32, "uord_eq_nan_op_var", OperationTestCase{
			Base: "nan_op_var", Behavior: ZINPreserve, Op: ops.UordEq,
			Arg1: values.NaN, Arg2: values.One, Expected: values.One,
		}},
		{fp.FP32, "sqrt_op_denorm_flush", OperationTestCase{
			Base: "op_denorm_flush", Behavior: DenormFlushToZero, Op: ops.Sqrt,
			Arg1: values.Denorm, Expected: values.Zero,
		}},
		{fp.FP32, "log_op_denorm_flush", OperationTestCase{
			Base: "op_denorm_flush", Behavior: DenormFlushToZero | ZINPreserve, Op: ops.Log,
			Arg1: values.Denorm, Expected: values.MinusInf,
		}},
		{fp.FP32, "phi_denorm_op_var_preserve", OperationTestCase{
			Base: "denorm_op_var_preserve", Behavior: DenormPreserve, Op: ops.Phi,
			Arg1: values.Denorm, Arg2: values.One, Expected: values.Denorm,
		}},
	}
	cases := map[fp.Type]map[string]OperationTestCase{}
	for _, typ := range fp.Types {
		cases[typ] = byName(b.Build(typ, true))
	}
	for _, tt := range tests {
		t.Run(tt.typ.String()+"/"+tt.name, func(t *testing.T) {
			got, ok := cases[tt.typ][tt.name]
			if !ok {
				t.Fatalf("case %s missing", tt.name)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("case mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuild_Skipped(t *testing.T) {
	b := newBuilder()
	tests := []struct {
		typ  fp.Type
		name string
	}{
		{fp.FP64, "sin_op_denorm_preserve"},
		{fp.FP32, "phi_denorm_op_var_flush"},
		{fp.FP32, "max_nan_op_var"},
		{fp.FP32, "rem_inf_op_var"},
		{fp.FP32, "normalize_op_zero"},
		{fp.FP16, "pack_half_denorm_preserve"},
	}
	for _, tt := range tests {
		if _, ok := byName(b.Build(tt.typ, true))[tt.name]; ok {
			t.Errorf("%s/%s should not be generated", tt.typ, tt.name)
		}
	}
}

func TestBuild_Rounding(t *testing.T) {
	b := newBuilder()
	input := byName(b.Build(fp.FP32, true))
	got, ok := input["add_rounding_rtz"]
	if !ok {
		t.Fatal("add_rounding_rtz missing")
	}
	if got.Expected != values.AddRtzResult || got.Behavior != RTZ || !got.InputArgsOnly {
		t.Errorf("add_rounding_rtz = %+v", got)
	}
	if c := input["conv_from_fp64_rounding_rte"]; c.Expected != values.ConvToFP32RteResult {
		t.Errorf("conv_from_fp64_rounding_rte = %+v", c)
	}

	half := byName(b.Build(fp.FP16, true))
	if c, ok := half["conv_from_fp32_rtz_rounding"]; !ok || !c.Decorated || c.Expected != values.ConvToFP16RtzResult {
		t.Errorf("conv_from_fp32_rtz_rounding = %+v, %v", c, ok)
	}

	for _, c := range b.Build(fp.FP32, false) {
		if c.Behavior.Has(RTE) || c.Behavior.Has(RTZ) {
			t.Errorf("%s: rounding case with generated arguments", c.Name())
		}
	}
}

func TestBuild_GeneratedArgs(t *testing.T) {
	b := newBuilder()
	o := ops.NewCatalog()
	for _, typ := range fp.Types {
		for _, c := range b.Build(typ, false) {
			if c.InputArgsOnly {
				t.Errorf("%s/%s: input-only case generated", typ, c.Name())
			}
			for _, a := range c.Args(o.Get(c.Op).Arity) {
				if !values.Generatable(a) {
					t.Errorf("%s/%s: argument %s cannot be generated", typ, c.Name(), a)
				}
			}
		}
	}
}

func TestBuild_UniqueNamesAndDeterminism(t *testing.T) {
	b := newBuilder()
	for _, typ := range fp.Types {
		first := b.Build(typ, true)
		seen := make(map[string]bool)
		for _, c := range first {
			if seen[c.Name()] {
				t.Errorf("%s: duplicate case %s", typ, c.Name())
			}
			seen[c.Name()] = true
			if c.Expected == values.Unused {
				t.Errorf("%s: %s expects unused", typ, c.Name())
			}
		}
		if diff := cmp.Diff(first, newBuilder().Build(typ, true)); diff != "" {
			t.Errorf("%s: second build differs:\n%s", typ, diff)
		}
	}
}

func TestBuildFloatControls2(t *testing.T) {
	b := newBuilder()
	cases := byName(b.BuildFloatControls2(fp.FP32, true))

	mode, ok := cases["div_one_op_signed_inf_exec_mode"]
	if !ok {
		t.Fatal("div_one_op_signed_inf_exec_mode missing")
	}
	want := spirv.FPFastMathNotNaN | spirv.FPFastMathAllowRecip |
		spirv.FPFastMathAllowContract | spirv.FPFastMathAllowReassoc
	if mode.FastMath != want {
		t.Errorf("FastMath = %v, want %v", mode.FastMath, want)
	}
	if mode.Variant != FloatControls2 || mode.Behavior.Has(ZINPreserve) || mode.Decorated {
		t.Errorf("exec mode case = %+v", mode)
	}
	if dec := cases["div_one_op_signed_inf_decoration"]; !dec.Decorated || dec.FastMath != want {
		t.Errorf("decoration case = %+v", dec)
	}
	if _, ok := cases["phi_zero_op_var_exec_mode"]; ok {
		t.Error("storage-only operation in float controls 2 cases")
	}
	if c := cases["add_max_op_max_exec_mode"]; !c.RequireRTE {
		t.Errorf("add_max_op_max_exec_mode lost RequireRTE: %+v", c)
	}
}

func TestFastMathFor(t *testing.T) {
	tests := []struct {
		ids  []values.ID
		want spirv.FPFastMathMode
	}{
		{[]values.ID{values.One, values.Two, values.Half}, spirv.FPFastMathAll},
		{[]values.ID{values.NaN}, spirv.FPFastMathAll &^ (spirv.FPFastMathNotNaN | spirv.FPFastMathAllowTransform)},
		{[]values.ID{values.OneOrNaN}, spirv.FPFastMathAll &^ (spirv.FPFastMathNotNaN | spirv.FPFastMathAllowTransform)},
		{[]values.ID{values.MinusZero, values.Inf}, spirv.FPFastMathAll &^ (spirv.FPFastMathNSZ | spirv.FPFastMathNotInf | spirv.FPFastMathAllowTransform)},
	}
	for _, tt := range tests {
		if got := FastMathFor(tt.ids...); got != tt.want {
			t.Errorf("FastMathFor(%v) = %v, want %v", tt.ids, got, tt.want)
		}
	}
}

func TestSettingsCases(t *testing.T) {
	cases := newBuilder().SettingsCases()
	if len(cases) != 24 {
		t.Fatalf("got %d settings cases, want 24", len(cases))
	}
	found := false
	for _, c := range cases {
		for i := 1; i < len(c.Widths); i++ {
			if c.Widths[i-1].Type <= c.Widths[i].Type {
				t.Errorf("%s: widths not widest first", c.Name)
			}
		}
		if c.Name == "fp16_denorm_preserve_fp32_denorm_flush" {
			found = true
			if c.DenormIndependence != features.Independence32BitOnly {
				t.Errorf("%s: independence %v", c.Name, c.DenormIndependence)
			}
			want := []SettingsWidth{
				{Type: fp.FP32, Behavior: DenormFlushToZero, Op: ops.Add, Arg1: values.Denorm, Arg2: values.Denorm, Expected: values.Zero},
				{Type: fp.FP16, Behavior: DenormPreserve, Op: ops.Add, Arg1: values.Denorm, Arg2: values.Denorm, Expected: values.DenormTimesTwo},
			}
			if diff := cmp.Diff(want, c.Widths); diff != "" {
				t.Errorf("widths mismatch (-want +got):\n%s", diff)
			}
		}
		if c.Name == "fp16_rte_fp64_rtz" && c.RoundingIndependence != features.IndependenceAll {
			t.Errorf("%s: independence %v", c.Name, c.RoundingIndependence)
		}
	}
	if !found {
		t.Error("fp16_denorm_preserve_fp32_denorm_flush missing")
	}
}

func TestBehaviorString(t *testing.T) {
	if got := (DenormPreserve | ZINPreserve).String(); got != "denorm_preserve|signed_zero_inf_nan_preserve" {
		t.Errorf("String = %q", got)
	}
	if r, ok := RTZ.Rounding(); !ok || r != fp.RTZ {
		t.Errorf("Rounding = %v, %v", r, ok)
	}
}
