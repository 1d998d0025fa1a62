// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package specialize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/floatctl/features"
	"github.com/gogpu/floatctl/fp"
	"github.com/gogpu/floatctl/matrix"
	"github.com/gogpu/floatctl/ops"
	"github.com/gogpu/floatctl/snippets"
	"github.com/gogpu/floatctl/spirv"
	"github.com/gogpu/floatctl/values"
)

func newSpecializer(opts Options) *Specializer {
	return New(values.NewCatalogs(), snippets.New(), ops.NewCatalog(), opts)
}

var denormAdd = matrix.OperationTestCase{
	Base:     "denorm_op_denorm_preserve",
	Behavior: matrix.DenormPreserve,
	Op:       ops.Add,
	Arg1:     values.Denorm,
	Arg2:     values.Denorm,
	Expected: values.DenormTimesTwo,
}

func requireLints(t *testing.T, text string) {
	t.Helper()
	require.NoError(t, spirv.Lint(text), text)
}

func TestFragmentSetFor(t *testing.T) {
	tests := []struct {
		name    string
		typ     fp.Type
		usage   ops.FloatUsage
		storage snippets.StorageMode
		args    ArgSource
		stage   Stage
		want    FragmentSet
	}{
		{"fp16 storage only", fp.FP16, ops.StorageOnly, snippets.StorageNative, ArgsInput, StageCompute, FragmentSet{Storage16: true}},
		{"fp16 storage only generated", fp.FP16, ops.StorageOnly, snippets.StorageNative, ArgsGenerated, StageCompute, FragmentSet{Arithmetic: true, Storage16: true}},
		{"fp16 arithmetic", fp.FP16, ops.Arithmetic, snippets.StorageNative, ArgsInput, StageCompute, FragmentSet{Arithmetic: true, Storage16: true}},
		{"fp16 no 16-bit storage", fp.FP16, ops.Arithmetic, snippets.StorageNo16Bit, ArgsInput, StageCompute, FragmentSet{Arithmetic: true, ConvertBuffers: true}},
		{"fp16 vertex", fp.FP16, ops.StorageOnly, snippets.StorageNative, ArgsInput, StageVertex, FragmentSet{Arithmetic: true, Storage16: true}},
		{"fp32", fp.FP32, ops.StorageOnly, snippets.StorageNo16Bit, ArgsInput, StageFragment, FragmentSet{Arithmetic: true}},
		{"fp64", fp.FP64, ops.Arithmetic, snippets.StorageNative, ArgsGenerated, StageCompute, FragmentSet{Arithmetic: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FragmentSetFor(tt.typ, tt.usage, tt.storage, tt.args, tt.stage))
		})
	}

	assert.Panics(t, func() {
		FragmentSetFor(fp.FP16, ops.Arithmetic, snippets.StorageNo16Bit, ArgsInput, StageVertex)
	})
}

func TestCompute_DenormPreserve(t *testing.T) {
	sp := newSpecializer(DefaultOptions())
	spec, err := sp.Compute(denormAdd, fp.FP32, ArgsInput, snippets.StorageNative)
	require.NoError(t, err)
	requireLints(t, spec.Assembly)

	assert.Equal(t, "add_denorm_op_denorm_preserve", spec.Name)
	for _, want := range []string{
		"OpCapability DenormPreserve",
		`OpExtension "SPV_KHR_float_controls"`,
		`OpExtension "SPV_KHR_storage_buffer_storage_class"`,
		"OpExecutionMode %main LocalSize 1 1 1",
		"OpExecutionMode %main DenormPreserve 32",
		"%result = OpFAdd %type_f32 %arg1 %arg2",
		"OpDecorate %type_f32_arr_2 ArrayStride 4",
	} {
		assert.Contains(t, spec.Assembly, want)
	}

	v := values.NewCatalogs().For(fp.FP32)
	require.Len(t, spec.Input, 8)
	assert.Equal(t, v.Bits(values.Denorm), fp.FP32.Bits(spec.Input[0:]))
	assert.Equal(t, v.Bits(values.Denorm), fp.FP32.Bits(spec.Input[4:]))
	assert.Equal(t, []byte{values.Canary, values.Canary, values.Canary, values.Canary}, spec.Output)

	req := spec.Requirements
	assert.True(t, req.FloatControls.DenormPreserve.Has(fp.FP32))
	assert.False(t, req.FloatControls.DenormPreserve.Has(fp.FP16))
	assert.Contains(t, req.Extensions, "VK_KHR_shader_float_controls")
	assert.Contains(t, req.Extensions, "VK_KHR_storage_buffer_storage_class")
	assert.Equal(t, spirv.Version1_0, req.SPIRVVersion)

	require.Len(t, spec.Checks, 1)
	assert.Equal(t, fp.FP32, spec.Checks[0].Storage)
	assert.Equal(t, values.DenormTimesTwo, spec.Checks[0].Expected)
}

func TestCompute_NewerSPIRV(t *testing.T) {
	sp := newSpecializer(Options{SPIRVVersion: spirv.Version1_4})
	spec, err := sp.Compute(denormAdd, fp.FP64, ArgsInput, snippets.StorageNative)
	require.NoError(t, err)
	requireLints(t, spec.Assembly)

	assert.NotContains(t, spec.Assembly, "SPV_KHR_float_controls")
	assert.NotContains(t, spec.Assembly, "SPV_KHR_storage_buffer_storage_class")
	assert.Contains(t, spec.Assembly, "OpCapability Float64")
	assert.Contains(t, spec.Requirements.Extensions, "VK_KHR_spirv_1_4")
	assert.True(t, spec.Requirements.Features.ShaderFloat64)
	assert.Equal(t, spirv.Version1_4, spec.Requirements.SPIRVVersion)
}

func TestCompute_FP16Storage(t *testing.T) {
	sp := newSpecializer(DefaultOptions())
	conv := matrix.OperationTestCase{
		Base:          "denorm_flush",
		Behavior:      matrix.DenormFlushToZero,
		Op:            ops.ConvFromFP16,
		Arg1:          values.ConvDenormSmaller,
		Expected:      values.ZeroOrFP16DenormToFP32,
		InputArgsOnly: true,
	}

	t.Run("native", func(t *testing.T) {
		spec, err := sp.Compute(conv, fp.FP32, ArgsInput, snippets.StorageNative)
		require.NoError(t, err)
		requireLints(t, spec.Assembly)

		assert.Contains(t, spec.Assembly, "OpCapability StorageBuffer16BitAccess")
		assert.Contains(t, spec.Assembly, `OpExtension "SPV_KHR_16bit_storage"`)
		assert.NotContains(t, spec.Assembly, "OpCapability Float16")
		assert.Contains(t, spec.Assembly, "OpExecutionMode %main DenormFlushToZero 16")
		assert.Contains(t, spec.Assembly, "OpExecutionMode %main DenormFlushToZero 32")
		assert.Len(t, spec.Input, 4)

		f := spec.Requirements.Features
		assert.True(t, f.StorageBuffer16BitAccess)
		assert.False(t, f.ShaderFloat16)
	})

	t.Run("converted", func(t *testing.T) {
		spec, err := sp.Compute(conv, fp.FP32, ArgsInput, snippets.StorageNo16Bit)
		require.NoError(t, err)
		requireLints(t, spec.Assembly)

		assert.NotContains(t, spec.Assembly, "StorageBuffer16BitAccess")
		assert.Contains(t, spec.Assembly, "OpCapability Float16")
		assert.Contains(t, spec.Assembly, "%arg1 = OpFConvert %type_f16 %arg1_f32")
		require.Len(t, spec.Input, 8)

		// The fp16 argument is widened exactly.
		v16 := values.NewCatalogs().For(fp.FP16)
		want := fp.FP16.Decode(v16.Bits(values.ConvDenormSmaller))
		assert.Equal(t, want, fp.FP32.Decode(fp.FP32.Bits(spec.Input)))
		assert.True(t, spec.Requirements.Features.ShaderFloat16)
	})
}

func TestCompute_FP16Result(t *testing.T) {
	sp := newSpecializer(DefaultOptions())
	spec, err := sp.Compute(denormAdd, fp.FP16, ArgsInput, snippets.StorageNo16Bit)
	require.NoError(t, err)
	requireLints(t, spec.Assembly)

	assert.Contains(t, spec.Assembly, "%result_f32 = OpFConvert %type_f32 %result")
	assert.Len(t, spec.Output, 4)
	assert.Equal(t, fp.FP32, spec.Checks[0].Storage)
	assert.Equal(t, fp.FP16, spec.Checks[0].Type)
}

// A storage-only operation that declares an fp16 function type still needs
// fp16 arithmetic types.
func TestCompute_FP16FunctionType(t *testing.T) {
	sp := newSpecializer(DefaultOptions())
	tc := matrix.OperationTestCase{
		Base:     "op_denorm_preserve",
		Behavior: matrix.DenormPreserve,
		Op:       ops.ReturnVal,
		Arg1:     values.Denorm,
		Expected: values.Denorm,
	}
	require.NotPanics(t, func() {
		spec, err := sp.Compute(tc, fp.FP16, ArgsInput, snippets.StorageNative)
		require.NoError(t, err)
		requireLints(t, spec.Assembly)

		assert.Contains(t, spec.Assembly, "OpCapability Float16")
		assert.Contains(t, spec.Assembly, "OpCapability StorageBuffer16BitAccess")
		assert.Contains(t, spec.Assembly, "%test_return_val_f16 = OpFunction %type_f16 None %type_f16_funcf")
		assert.True(t, spec.Requirements.Features.ShaderFloat16)
	})
}

func TestCompute_GeneratedArgs(t *testing.T) {
	sp := newSpecializer(DefaultOptions())
	spec, err := sp.Compute(denormAdd, fp.FP16, ArgsGenerated, snippets.StorageNative)
	require.NoError(t, err)
	requireLints(t, spec.Assembly)

	assert.Nil(t, spec.Input)
	assert.NotContains(t, spec.Assembly, "%ssbo_in")
	assert.Contains(t, spec.Assembly, "%c_f16_denorm_base = OpConstant %type_f16")
	assert.Contains(t, spec.Assembly, "%arg1 = OpFSub %type_f16 %c_f16_denorm_base %c_f16_denorm_eps")
	assert.Contains(t, spec.Assembly, "OpCapability Float16")
}

func TestCompute_DecoratedConversion(t *testing.T) {
	sp := newSpecializer(DefaultOptions())
	tc := matrix.OperationTestCase{
		Base:      "rounding",
		Op:        ops.ConvFromFP32Rtz,
		Arg1:      values.ConvFromFP32Arg,
		Expected:  values.ConvToFP16RtzResult,
		Decorated: true,
	}
	spec, err := sp.Compute(tc, fp.FP16, ArgsInput, snippets.StorageNative)
	require.NoError(t, err)
	requireLints(t, spec.Assembly)
	assert.Contains(t, spec.Assembly, "OpDecorate %result FPRoundingMode RTZ")
	assert.NotContains(t, spec.Assembly, "OpExecutionMode %main RoundingMode")

	assert.Panics(t, func() {
		sp.Compute(tc, fp.FP16, ArgsInput, snippets.StorageNo16Bit) //nolint:errcheck
	})
}

func TestCompute_RequireRTE(t *testing.T) {
	sp := newSpecializer(DefaultOptions())
	tc := matrix.OperationTestCase{
		Base:       "max_op_max",
		Behavior:   matrix.ZINPreserve,
		Op:         ops.Add,
		Arg1:       values.Max,
		Arg2:       values.Max,
		Expected:   values.Inf,
		RequireRTE: true,
	}
	spec, err := sp.Compute(tc, fp.FP32, ArgsInput, snippets.StorageNative)
	require.NoError(t, err)
	assert.Contains(t, spec.Assembly, "OpExecutionMode %main RoundingModeRTE 32")
	assert.Contains(t, spec.Assembly, "OpExecutionMode %main SignedZeroInfNanPreserve 32")
	assert.True(t, spec.Requirements.FloatControls.RoundingModeRTE.Has(fp.FP32))

	tc.Behavior |= matrix.RTZ
	assert.Panics(t, func() {
		sp.Compute(tc, fp.FP32, ArgsInput, snippets.StorageNative) //nolint:errcheck
	})
}

func TestCompute_FloatControls2(t *testing.T) {
	sp := newSpecializer(DefaultOptions())
	tc := matrix.OperationTestCase{
		Base:     "signed_zero_op_var_exec_mode",
		Variant:  matrix.FloatControls2,
		Op:       ops.Mul,
		Arg1:     values.MinusZero,
		Arg2:     values.One,
		Expected: values.MinusZero,
		FastMath: matrix.FastMathFor(values.MinusZero, values.One, values.MinusZero),
	}

	spec, err := sp.Compute(tc, fp.FP32, ArgsInput, snippets.StorageNative)
	require.NoError(t, err)
	requireLints(t, spec.Assembly)
	assert.Contains(t, spec.Assembly, "OpCapability FloatControls2")
	assert.Contains(t, spec.Assembly, `OpExtension "SPV_KHR_float_controls2"`)
	assert.Contains(t, spec.Assembly, "OpExecutionModeId %main FPFastMathDefault %type_f32 %c_fast_math_flags")
	assert.Equal(t, spirv.Version1_2, spec.Requirements.SPIRVVersion)
	assert.True(t, spec.Requirements.Features.ShaderFloatControls2)
	assert.Contains(t, spec.Requirements.Extensions, "VK_KHR_shader_float_controls2")

	tc.Base = "signed_zero_op_var_decoration"
	tc.Decorated = true
	spec, err = sp.Compute(tc, fp.FP32, ArgsInput, snippets.StorageNative)
	require.NoError(t, err)
	requireLints(t, spec.Assembly)
	assert.Contains(t, spec.Assembly, "OpDecorate %result FPFastMathMode "+tc.FastMath.String())
	assert.NotContains(t, spec.Assembly, "FPFastMathDefault")
	assert.Equal(t, spirv.Version1_0, spec.Requirements.SPIRVVersion)
}

func TestCompute_MissingValue(t *testing.T) {
	sp := newSpecializer(DefaultOptions())
	tc := denormAdd
	tc.Expected = values.Unused
	_, err := sp.Compute(tc, fp.FP32, ArgsInput, snippets.StorageNative)
	assert.Error(t, err)
}

func TestGraphics(t *testing.T) {
	sp := newSpecializer(DefaultOptions())

	t.Run("vertex", func(t *testing.T) {
		ctx, err := sp.Graphics(denormAdd, fp.FP16, ArgsInput, StageVertex)
		require.NoError(t, err)
		requireLints(t, ctx.Vertex)
		requireLints(t, ctx.Fragment)

		assert.Equal(t, "add_denorm_op_denorm_preserve_vert", ctx.Name)
		assert.Contains(t, ctx.Vertex, "OpExecutionMode %main DenormPreserve 16")
		assert.Contains(t, ctx.Vertex, "OpStore %out_varying %result_varying_bits")
		assert.Contains(t, ctx.Vertex, "OpStore %BP_position %position")
		assert.NotContains(t, ctx.Fragment, "DenormPreserve")
		assert.Contains(t, ctx.Fragment, "%result_varying_bits = OpLoad %type_u32 %in_varying")
		assert.Contains(t, ctx.Fragment, "OpExecutionMode %main OriginUpperLeft")
		assert.True(t, strings.Contains(ctx.Fragment, "%ssbo_out"))
		assert.False(t, strings.Contains(ctx.Fragment, "%ssbo_in"))

		f := ctx.Requirements.Features
		assert.True(t, f.FragmentStoresAndAtomics)
		assert.True(t, f.ShaderFloat16)
		assert.True(t, f.StorageBuffer16BitAccess)
	})

	t.Run("fragment", func(t *testing.T) {
		ctx, err := sp.Graphics(denormAdd, fp.FP64, ArgsGenerated, StageFragment)
		require.NoError(t, err)
		requireLints(t, ctx.Vertex)
		requireLints(t, ctx.Fragment)

		assert.Equal(t, "add_denorm_op_denorm_preserve_frag", ctx.Name)
		assert.NotContains(t, ctx.Vertex, "Float64")
		assert.NotContains(t, ctx.Vertex, "ssbo")
		assert.Contains(t, ctx.Fragment, "OpExecutionMode %main DenormPreserve 64")
		assert.Nil(t, ctx.Input)
		assert.Len(t, ctx.Output, 8)
	})

	t.Run("float controls 2", func(t *testing.T) {
		tc := denormAdd
		tc.Variant = matrix.FloatControls2
		assert.Panics(t, func() {
			sp.Graphics(tc, fp.FP32, ArgsInput, StageVertex) //nolint:errcheck
		})
	})
}

func TestSettings(t *testing.T) {
	sp := newSpecializer(DefaultOptions())
	b := matrix.NewBuilder(values.NewCatalogs(), ops.NewCatalog())

	cases := b.SettingsCases()
	require.NotEmpty(t, cases)
	for _, c := range cases {
		spec, err := sp.Settings(c)
		require.NoError(t, err, c.Name)
		requireLints(t, spec.Assembly)

		inBytes, outBytes := 0, 0
		for i, w := range c.Widths {
			assert.Equal(t, outBytes, spec.Checks[i].Offset, c.Name)
			inBytes += 2 * w.Type.Bytes()
			outBytes += w.Type.Bytes()
		}
		assert.Len(t, spec.Input, inBytes, c.Name)
		assert.Len(t, spec.Output, outBytes, c.Name)
	}

	var mixed matrix.SettingsCase
	for _, c := range cases {
		if c.Name == "fp16_denorm_preserve_fp32_denorm_flush" {
			mixed = c
		}
	}
	require.NotEmpty(t, mixed.Name)
	spec, err := sp.Settings(mixed)
	require.NoError(t, err)
	assert.Contains(t, spec.Assembly, "OpExecutionMode %main DenormPreserve 16")
	assert.Contains(t, spec.Assembly, "OpExecutionMode %main DenormFlushToZero 32")
	assert.Contains(t, spec.Assembly, "OpMemberDecorate %SSBO_in 1 Offset 8")
	assert.Contains(t, spec.Assembly, "OpMemberDecorate %SSBO_out 1 Offset 4")
	assert.Equal(t, features.Independence32BitOnly, spec.Requirements.FloatControls.DenormBehaviorIndependence)
}
