// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package values

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/floatctl/fault"
	"github.com/gogpu/floatctl/fp"
)

func TestDenormIsSubnormalInEveryWidth(t *testing.T) {
	c := NewCatalogs()
	for _, typ := range fp.Types {
		t.Run(typ.String(), func(t *testing.T) {
			v := c.For(typ)
			d := v.Float(Denorm)
			assert.Greater(t, d, 0.0)
			assert.Less(t, d, typ.MinNormal())
			assert.True(t, typ.IsDenorm(v.Bits(Denorm)))
			assert.Equal(t, 2*d, v.Float(DenormTimesTwo))
		})
	}
}

func TestSpecialValues(t *testing.T) {
	v := New(fp.FP32)
	assert.Equal(t, uint64(0x00000000), v.Bits(Zero))
	assert.Equal(t, uint64(0x80000000), v.Bits(MinusZero))
	assert.Equal(t, uint64(0x3f800000), v.Bits(One))
	assert.Equal(t, uint64(0xbf800000), v.Bits(MinusOne))
	assert.Equal(t, uint64(0x7f800000), v.Bits(Inf))
	assert.Equal(t, uint64(0xff800000), v.Bits(MinusInf))
	assert.Equal(t, uint64(0x7f7fffff), v.Bits(Max))
	assert.True(t, fp.FP32.IsNaN(v.Bits(NaN)))
	assert.NotEqual(t, v.Bits(Zero), v.Bits(MinusZero))
}

func TestRoundingResults(t *testing.T) {
	v := New(fp.FP32)

	// 1+3e + 1 under RTZ keeps 2+2e, RTE rounds the tie to 2+4e.
	assert.Equal(t, uint64(0x3f800003), v.Bits(AddArgA))
	assert.Equal(t, uint64(0x40000001), v.Bits(AddRtzResult))
	assert.Equal(t, uint64(0x40000002), v.Bits(AddRteResult))

	for _, typ := range fp.Types {
		c := New(typ)
		for _, pair := range [][2]ID{
			{AddRtzResult, AddRteResult},
			{SubRtzResult, SubRteResult},
			{MulRtzResult, MulRteResult},
			{DotRtzResult, DotRteResult},
		} {
			assert.NotEqual(t, c.Bits(pair[0]), c.Bits(pair[1]), "%s %s", typ, pair[0])
		}
	}
}

func TestConversionValues(t *testing.T) {
	c := NewCatalogs()
	f16, f32, f64 := c.For(fp.FP16), c.For(fp.FP32), c.For(fp.FP64)

	assert.Equal(t, uint64(0x3c01), f16.Bits(ConvToFP16RtzResult))
	assert.Equal(t, uint64(0x3c02), f16.Bits(ConvToFP16RteResult))
	assert.NotEqual(t, f32.Bits(ConvToFP32RtzResult), f32.Bits(ConvToFP32RteResult))

	assert.Equal(t, f16.Bits(Denorm), f16.Bits(ConvDenormSmaller))
	assert.Equal(t, f32.Bits(Denorm), f32.Bits(ConvDenormBigger))
	assert.Equal(t, f16.Float(Denorm), f32.Float(ConvDenormSmaller))
	assert.Equal(t, f16.Float(Denorm), f64.Float(ConvDenormSmaller))
	assert.Equal(t, f32.Float(Denorm), f64.Float(ConvDenormBigger))

	assert.False(t, f16.Defined(ConvFromFP64Arg))
	assert.False(t, f16.Defined(ConvDenormBigger))
	assert.True(t, f64.Defined(ConvFromFP64Arg))
}

func TestBitsUndefinedPanics(t *testing.T) {
	defer func() {
		err, ok := recover().(*fault.Error)
		require.True(t, ok)
		assert.Equal(t, fault.KindInternal, err.Kind)
	}()
	New(fp.FP16).Bits(ConvFromFP64Arg)
}

func TestSentinels(t *testing.T) {
	for _, id := range All() {
		alts := Alternatives(id)
		assert.Equal(t, IsSentinel(id), alts != nil, id.String())
		for _, alt := range alts {
			assert.False(t, IsSentinel(alt), "%s nests sentinel %s", id, alt)
		}
	}
	assert.Equal(t, []ID{Zero, MinusZero}, Alternatives(ZeroOrMinusZero))
	assert.Nil(t, Alternatives(One))
}

func TestApproximateReferences(t *testing.T) {
	v := New(fp.FP32)
	assert.Equal(t, math.Pi/2, v.Exact(PiDiv2))
	assert.Equal(t, 1.0, v.Exact(TrigOne))
	assert.InDelta(t, v.Float(Denorm)*57.29577951308232, v.Exact(DegreesDenorm), 1e-45)
	assert.Equal(t, v.Float(Half), v.Exact(Half))
}

func TestInputBuffer(t *testing.T) {
	tests := []struct {
		typ  fp.Type
		want []byte
	}{
		{fp.FP16, []byte{0x00, 0x3c, 0x00, 0x80}},
		{fp.FP32, []byte{0x00, 0x00, 0x80, 0x3f, 0x00, 0x00, 0x00, 0x80}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, New(tt.typ).InputBuffer(One, MinusZero), tt.typ.String())
	}
	assert.Len(t, New(fp.FP64).InputBuffer(Denorm, Unused), 16)
	assert.Equal(t, []byte{Canary, Canary}, New(fp.FP16).OutputBuffer())
}

func TestGenerate(t *testing.T) {
	v := New(fp.FP16)
	got := v.Generate(NaN, "arg1")
	assert.Contains(t, got, "%arg1_zero = OpFSub %type_f16 %c_f16_1 %c_f16_1")
	assert.Contains(t, got, "%arg1 = OpFDiv %type_f16 %arg1_zero %arg1_zero")
	assert.False(t, strings.Contains(got, "$"))

	assert.True(t, Generatable(Denorm))
	assert.False(t, Generatable(AddArgA))
	assert.Panics(t, func() { v.Generate(AddArgA, "arg1") })
}

func TestIDString(t *testing.T) {
	assert.Equal(t, "minus_zero", MinusZero.String())
	assert.Equal(t, "zero_or_fp32_denorm_to_fp64", ZeroOrFP32DenormToFP64.String())
	assert.Equal(t, "ID(250)", ID(250).String())
	for _, id := range All() {
		assert.NotEmpty(t, id.String())
	}
}
