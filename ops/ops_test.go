// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ops

import (
	"strings"
	"testing"

	"github.com/gogpu/floatctl/fp"
)

func TestCatalog_Complete(t *testing.T) {
	c := NewCatalog()
	seen := make(map[string]bool)
	for _, o := range c.All() {
		if o.Name == "" || o.Name == "invalid" {
			t.Errorf("operation %d has no name", o.ID)
		}
		if seen[o.Name] {
			t.Errorf("duplicate name %s", o.Name)
		}
		seen[o.Name] = true
		if o.Arity != 1 && o.Arity != 2 {
			t.Errorf("%s: arity %d", o.Name, o.Arity)
		}
		if len(o.Widths) == 0 {
			t.Errorf("%s: no widths", o.Name)
		}
		if o.Commands.Empty() {
			t.Errorf("%s: no commands", o.Name)
		}
		id, ok := Parse(o.Name)
		if !ok || id != o.ID {
			t.Errorf("Parse(%q) = %v, %v", o.Name, id, ok)
		}
	}
	if _, ok := Parse("fma"); ok {
		t.Error("Parse accepted unknown name")
	}
}

func TestGet_Unknown(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Get(Invalid) did not panic")
		}
	}()
	NewCatalog().Get(Invalid)
}

func TestRender_AllWidths(t *testing.T) {
	c := NewCatalog()
	for _, o := range c.All() {
		for _, w := range o.Widths {
			r := o.Render(w, DefaultNames)
			all := r.Annotations + r.Types + r.Constants + r.Variables + r.Functions + r.Commands
			if strings.Contains(all, "${") {
				t.Errorf("%s/%s: unexpanded placeholder:\n%s", o.Name, w, all)
			}
			if !strings.Contains(r.Commands, "%result") {
				t.Errorf("%s/%s: commands do not produce %%result:\n%s", o.Name, w, r.Commands)
			}
			if o.Arity == 2 && !strings.Contains(r.Commands, "%arg2") {
				t.Errorf("%s/%s: binary operation ignores %%arg2", o.Name, w)
			}
			if o.FastMathTarget != nil && !strings.Contains(r.Commands, "%"+r.FastMathTarget+" = ") {
				t.Errorf("%s/%s: fast math target %q not defined", o.Name, w, r.FastMathTarget)
			}
		}
	}
}

func TestRender_Conversion(t *testing.T) {
	o := NewCatalog().Get(ConvFromFP32Rtz)
	if o.ArgType(fp.FP16) != fp.FP32 {
		t.Errorf("ArgType = %v", o.ArgType(fp.FP16))
	}
	r := o.Render(fp.FP16, DefaultNames)
	if want := "%result = OpFConvert %type_f16 %arg1"; !strings.Contains(r.Commands, want) {
		t.Errorf("commands %q lack %q", r.Commands, want)
	}
	if want := "OpDecorate %result FPRoundingMode RTZ"; !strings.Contains(r.Annotations, want) {
		t.Errorf("annotations %q lack %q", r.Annotations, want)
	}
	if !o.Decorated || !o.InputArgsOnly || o.FloatUsage != StorageOnly {
		t.Errorf("metadata = %+v", o)
	}
}

func TestRender_Suffixed(t *testing.T) {
	o := NewCatalog().Get(ReturnVal)
	r := o.Render(fp.FP64, DefaultNames.Suffixed("_f64"))
	if want := "%result_f64 = OpFunctionCall %type_f64 %test_return_val_f64 %arg1_f64"; !strings.Contains(r.Commands, want) {
		t.Errorf("commands %q lack %q", r.Commands, want)
	}
	if !strings.Contains(r.Functions, "%test_return_val_f64 = OpFunction") {
		t.Errorf("functions = %q", r.Functions)
	}
}

func TestSupports(t *testing.T) {
	c := NewCatalog()
	tests := []struct {
		id   ID
		typ  fp.Type
		want bool
	}{
		{Add, fp.FP16, true},
		{Sin, fp.FP64, false},
		{Sqrt, fp.FP64, true},
		{ConvFromFP16, fp.FP16, false},
		{ConvFromFP64, fp.FP32, true},
		{PackHalf, fp.FP32, true},
		{PackDouble, fp.FP32, false},
	}
	for _, tt := range tests {
		if got := c.Get(tt.id).Supports(tt.typ); got != tt.want {
			t.Errorf("%s.Supports(%s) = %v, want %v", tt.id, tt.typ, got, tt.want)
		}
	}
}

func TestUsage(t *testing.T) {
	c := NewCatalog()
	if !c.Get(OrdLt).Usage.Has(UsageConstFloat) {
		t.Error("comparison does not use float constants")
	}
	if !c.Get(MatMulM).Usage.Has(UsageTypeMatrix) || c.Get(Add).Usage != 0 {
		t.Error("matrix usage wrong")
	}
	if c.Get(Phi).FloatUsage != StorageOnly || c.Get(Add).FloatUsage != Arithmetic {
		t.Error("float usage wrong")
	}
	if ret := c.Get(ReturnVal); ret.FloatUsage != StorageOnly || ret.WidthUsage() != Arithmetic {
		t.Error("return_val declares a function type of its width")
	}
	if c.Get(Phi).WidthUsage() != StorageOnly {
		t.Error("phi needs no arithmetic types")
	}
}
