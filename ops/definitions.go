// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ops

import (
	"github.com/gogpu/floatctl/fp"
	"github.com/gogpu/floatctl/tmpl"
)

var (
	allWidths   = []fp.Type{fp.FP16, fp.FP32, fp.FP64}
	smallWidths = []fp.Type{fp.FP16, fp.FP32}
)

// t parses a catalog template; an empty source yields nil.
func t(src string) *tmpl.Template {
	if src == "" {
		return nil
	}
	return tmpl.MustParse(src)
}

// approximate lists the operations whose results carry a precision bound.
var approximate = map[ID]bool{
	Atan2: true, Pow: true, Distance: true,
	Radians: true, Degrees: true,
	Sin: true, Cos: true, Tan: true, Asin: true, Acos: true, Atan: true,
	Sinh: true, Cosh: true, Tanh: true, Asinh: true, Acosh: true, Atanh: true,
	Exp: true, Log: true, Exp2: true, Log2: true,
	Sqrt: true, InverseSqrt: true,
	Length: true, Normalize: true,
	Determinant: true, Inverse: true,
}

var resultTarget = t("${result}")

func arith(id ID, arity int, commands string) *Operation {
	return &Operation{
		ID:             id,
		Arity:          arity,
		FloatUsage:     Arithmetic,
		Commands:       t(commands),
		Widths:         allWidths,
		FastMathTarget: resultTarget,
	}
}

func binary(id ID, opcode string) *Operation {
	return arith(id, 2, "%${result} = "+opcode+" %type_${float} %${arg1} %${arg2}\n")
}

func ext1(id ID, inst string, widths []fp.Type) *Operation {
	o := arith(id, 1, "%${result} = OpExtInst %type_${float} %std450 "+inst+" %${arg1}\n")
	o.Widths = widths
	return o
}

func ext2(id ID, inst string, widths []fp.Type) *Operation {
	o := arith(id, 2, "%${result} = OpExtInst %type_${float} %std450 "+inst+" %${arg1} %${arg2}\n")
	o.Widths = widths
	return o
}

func compare(id ID, opcode string) *Operation {
	o := arith(id, 2, `
%${result}_cmp = `+opcode+` %type_bool %${arg1} %${arg2}
%${result} = OpSelect %type_${float} %${result}_cmp %c_${float}_1 %c_${float}_0
`)
	o.Usage = UsageConstFloat
	o.FastMathTarget = t("${result}_cmp")
	return o
}

func convert(id ID, from fp.Type, widths ...fp.Type) *Operation {
	return &Operation{
		ID:         id,
		Arity:      1,
		FloatUsage: StorageOnly,
		Commands:   t("%${result} = OpFConvert %type_${float} %${arg1}\n"),
		InputType:  from,
		Widths:     widths,
	}
}

func roundedConvert(id ID, from fp.Type, mode string) *Operation {
	o := convert(id, from, fp.FP16)
	o.Annotations = t("OpDecorate %${result} FPRoundingMode " + mode + "\n")
	o.Decorated = true
	o.InputArgsOnly = true
	return o
}

// Vector and matrix operands are built by splatting the scalar arguments,
// so every component of a product holds the same value.
const (
	splatArg1 = "%${result}_v1 = OpCompositeConstruct %type_${float}_vec2 %${arg1} %${arg1}\n"
	splatArg2 = "%${result}_v2 = OpCompositeConstruct %type_${float}_vec2 %${arg2} %${arg2}\n"
	matArg1   = "%${result}_m1 = OpCompositeConstruct %type_${float}_mat2x2 %${result}_v1 %${result}_v1\n"
	matArg2   = "%${result}_m2 = OpCompositeConstruct %type_${float}_mat2x2 %${result}_v2 %${result}_v2\n"
)

func product(id ID, usage Usage, commands string) *Operation {
	o := arith(id, 2, commands)
	o.Usage = usage
	o.FastMathTarget = t("${result}_prod")
	return o
}

// diagonal builds diag(arg1, 1) as %${result}_mat.
const diagonal = `
%${result}_c0 = OpCompositeConstruct %type_${float}_vec2 %${arg1} %c_${float}_0
%${result}_c1 = OpCompositeConstruct %type_${float}_vec2 %c_${float}_0 %c_${float}_1
%${result}_mat = OpCompositeConstruct %type_${float}_mat2x2 %${result}_c0 %${result}_c1
`

func definitions() []*Operation {
	phi := &Operation{
		ID:         Phi,
		Arity:      2,
		FloatUsage: StorageOnly,
		Commands: t(`
OpSelectionMerge %${result}_end None
OpBranchConditional %c_true %${result}_then %${result}_else
%${result}_then = OpLabel
OpBranch %${result}_end
%${result}_else = OpLabel
OpBranch %${result}_end
%${result}_end = OpLabel
%${result} = OpPhi %type_${float} %${arg1} %${result}_then %${arg2} %${result}_else
`),
		Widths: allWidths,
	}
	sel := &Operation{
		ID:         Select,
		Arity:      2,
		FloatUsage: StorageOnly,
		Commands:   t("%${result} = OpSelect %type_${float} %c_true %${arg1} %${arg2}\n"),
		Widths:     allWidths,
	}

	dot := arith(Dot, 2, splatArg1+splatArg2+
		"%${result} = OpDot %type_${float} %${result}_v1 %${result}_v2\n")
	dot.Usage = UsageTypeVector

	modf := arith(Modf, 1, "")
	modf.Usage = UsageTypeFunction
	modf.Variables = t("%${result}_whole = OpVariable %type_${float}_fptr Function\n")
	modf.Commands = t("%${result} = OpExtInst %type_${float} %std450 Modf %${arg1} %${result}_whole\n")

	modfSt := arith(ModfSt, 1, `
%${result}_st = OpExtInst %type_${float}_st %std450 ModfStruct %${arg1}
%${result} = OpCompositeExtract %type_${float} %${result}_st 0
`)
	modfSt.Types = t("%type_${float}_st = OpTypeStruct %type_${float} %type_${float}\n")
	modfSt.FastMathTarget = t("${result}_st")

	frexp := arith(Frexp, 1, "")
	frexp.Variables = t("%${result}_exp = OpVariable %type_i32_fptr Function\n")
	frexp.Commands = t("%${result} = OpExtInst %type_${float} %std450 Frexp %${arg1} %${result}_exp\n")

	frexpSt := arith(FrexpSt, 1, `
%${result}_st = OpExtInst %type_${float}_i32_st %std450 FrexpStruct %${arg1}
%${result} = OpCompositeExtract %type_${float} %${result}_st 0
`)
	frexpSt.Types = t("%type_${float}_i32_st = OpTypeStruct %type_${float} %type_i32\n")
	frexpSt.FastMathTarget = t("${result}_st")

	clamp := arith(Clamp, 1, "%${result} = OpExtInst %type_${float} %std450 FClamp %${arg1} %c_${float}_0 %c_${float}_1\n")
	clamp.Usage = UsageConstFloat
	nclamp := arith(NClamp, 1, "%${result} = OpExtInst %type_${float} %std450 NClamp %${arg1} %c_${float}_0 %c_${float}_1\n")
	nclamp.Usage = UsageConstFloat

	det := arith(Determinant, 1, diagonal+
		"%${result} = OpExtInst %type_${float} %std450 Determinant %${result}_mat\n")
	det.Usage = UsageConstFloat | UsageTypeMatrix
	inv := arith(Inverse, 1, diagonal+`
%${result}_inv = OpExtInst %type_${float}_mat2x2 %std450 MatrixInverse %${result}_mat
%${result} = OpCompositeExtract %type_${float} %${result}_inv 0 0
`)
	inv.Usage = UsageConstFloat | UsageTypeMatrix
	inv.FastMathTarget = t("${result}_inv")

	ret := &Operation{
		ID:         ReturnVal,
		Arity:      1,
		FloatUsage: StorageOnly,
		Usage:      UsageTypeFunction,
		Functions: t(`
%test_return_val_${float} = OpFunction %type_${float} None %type_${float}_funcf
%test_return_val_${float}_param = OpFunctionParameter %type_${float}
%test_return_val_${float}_label = OpLabel
OpReturnValue %test_return_val_${float}_param
OpFunctionEnd
`),
		Commands: t("%${result} = OpFunctionCall %type_${float} %test_return_val_${float} %${arg1}\n"),
		Widths:   allWidths,
	}

	packHalf := arith(PackHalf, 1, `
%${result}_v1 = OpCompositeConstruct %type_${float}_vec2 %${arg1} %c_${float}_0
%${result}_packed = OpExtInst %type_u32 %std450 PackHalf2x16 %${result}_v1
%${result}_low = OpBitwiseAnd %type_u32 %${result}_packed %c_u32_65535
%${result}_is_denorm = OpIEqual %type_bool %${result}_low %c_u32_256
%${result}_is_zero = OpIEqual %type_bool %${result}_low %c_u32_0
%${result}_zero_or_bad = OpSelect %type_${float} %${result}_is_zero %c_${float}_0 %c_${float}_2
%${result} = OpSelect %type_${float} %${result}_is_denorm %c_${float}_1 %${result}_zero_or_bad
`)
	packHalf.Usage = UsageConstFloat | UsageTypeVector | UsageConstInteger
	packHalf.Constants = t(`
%c_u32_256 = OpConstant %type_u32 256
%c_u32_65535 = OpConstant %type_u32 65535
`)
	packHalf.Widths = []fp.Type{fp.FP32}
	packHalf.InputArgsOnly = true
	packHalf.FastMathTarget = nil
	packHalf.ControlsAlso = []fp.Type{fp.FP16}

	unpackHalf := arith(UnpackHalf, 1, `
%${result}_bits = OpBitcast %type_u32 %${arg1}
%${result}_packed = OpBitwiseOr %type_u32 %${result}_bits %c_u32_256
%${result}_v = OpExtInst %type_${float}_vec2 %std450 UnpackHalf2x16 %${result}_packed
%${result} = OpCompositeExtract %type_${float} %${result}_v 0
`)
	unpackHalf.Usage = UsageTypeVector | UsageConstInteger
	unpackHalf.Constants = t("%c_u32_256 = OpConstant %type_u32 256\n")
	unpackHalf.Widths = []fp.Type{fp.FP32}
	unpackHalf.FastMathTarget = nil
	unpackHalf.ControlsAlso = []fp.Type{fp.FP16}

	const denormWords = "%c_u32_vec2_denorm = OpConstantComposite %type_u32_vec2 %c_u32_0 %c_u32_262144\n"
	packDouble := arith(PackDouble, 1, `
%${result}_bits = OpBitcast %type_u32_vec2 %${arg1}
%${result}_words = OpBitwiseOr %type_u32_vec2 %${result}_bits %c_u32_vec2_denorm
%${result} = OpExtInst %type_${float} %std450 PackDouble2x32 %${result}_words
`)
	packDouble.Usage = UsageConstInteger
	packDouble.Constants = t("%c_u32_262144 = OpConstant %type_u32 262144\n" + denormWords)
	packDouble.Widths = []fp.Type{fp.FP64}
	packDouble.FastMathTarget = nil

	const unpackDenormCheck = `
%${result}_words = OpExtInst %type_u32_vec2 %std450 UnpackDouble2x32 %${arg1}
%${result}_eq_denorm = OpIEqual %type_bool_vec2 %${result}_words %c_u32_vec2_denorm
%${result}_is_denorm = OpAll %type_bool %${result}_eq_denorm
`
	unpackPreserve := arith(UnpackDoublePreserve, 1, unpackDenormCheck+
		"%${result} = OpSelect %type_${float} %${result}_is_denorm %c_${float}_1 %c_${float}_0\n")
	unpackFlush := arith(UnpackDoubleFlush, 1, unpackDenormCheck+`
%${result}_eq_zero = OpIEqual %type_bool_vec2 %${result}_words %c_u32_vec2_zero
%${result}_is_zero = OpAll %type_bool %${result}_eq_zero
%${result}_ok = OpLogicalOr %type_bool %${result}_is_denorm %${result}_is_zero
%${result} = OpSelect %type_${float} %${result}_ok %c_${float}_1 %c_${float}_0
`)
	for _, o := range []*Operation{unpackPreserve, unpackFlush} {
		o.Usage = UsageConstFloat | UsageConstInteger
		o.Types = t("%type_bool_vec2 = OpTypeVector %type_bool 2\n")
		o.Constants = t("%c_u32_262144 = OpConstant %type_u32 262144\n" + denormWords +
			"%c_u32_vec2_zero = OpConstantComposite %type_u32_vec2 %c_u32_0 %c_u32_0\n")
		o.Widths = []fp.Type{fp.FP64}
		o.FastMathTarget = nil
	}

	return []*Operation{
		binary(Add, "OpFAdd"),
		binary(Sub, "OpFSub"),
		binary(Mul, "OpFMul"),
		binary(Div, "OpFDiv"),
		binary(Rem, "OpFRem"),
		binary(Mod, "OpFMod"),
		phi,
		sel,
		dot,
		product(VecMulS, UsageTypeVector, splatArg1+`
%${result}_prod = OpVectorTimesScalar %type_${float}_vec2 %${result}_v1 %${arg2}
%${result} = OpCompositeExtract %type_${float} %${result}_prod 0
`),
		product(VecMulM, UsageTypeMatrix, splatArg1+splatArg2+matArg2+`
%${result}_prod = OpVectorTimesMatrix %type_${float}_vec2 %${result}_v1 %${result}_m2
%${result} = OpCompositeExtract %type_${float} %${result}_prod 0
`),
		product(MatMulS, UsageTypeMatrix, splatArg1+matArg1+`
%${result}_prod = OpMatrixTimesScalar %type_${float}_mat2x2 %${result}_m1 %${arg2}
%${result} = OpCompositeExtract %type_${float} %${result}_prod 0 0
`),
		product(MatMulV, UsageTypeMatrix, splatArg1+splatArg2+matArg1+`
%${result}_prod = OpMatrixTimesVector %type_${float}_vec2 %${result}_m1 %${result}_v2
%${result} = OpCompositeExtract %type_${float} %${result}_prod 0
`),
		product(MatMulM, UsageTypeMatrix, splatArg1+splatArg2+matArg1+matArg2+`
%${result}_prod = OpMatrixTimesMatrix %type_${float}_mat2x2 %${result}_m1 %${result}_m2
%${result} = OpCompositeExtract %type_${float} %${result}_prod 0 0
`),
		product(OutProd, UsageTypeMatrix, splatArg1+splatArg2+`
%${result}_prod = OpOuterProduct %type_${float}_mat2x2 %${result}_v1 %${result}_v2
%${result} = OpCompositeExtract %type_${float} %${result}_prod 0 0
`),
		arith(Negate, 1, "%${result} = OpFNegate %type_${float} %${arg1}\n"),

		compare(OrdEq, "OpFOrdEqual"),
		compare(UordEq, "OpFUnordEqual"),
		compare(OrdNeq, "OpFOrdNotEqual"),
		compare(UordNeq, "OpFUnordNotEqual"),
		compare(OrdLt, "OpFOrdLessThan"),
		compare(UordLt, "OpFUnordLessThan"),
		compare(OrdGt, "OpFOrdGreaterThan"),
		compare(UordGt, "OpFUnordGreaterThan"),
		compare(OrdLe, "OpFOrdLessThanEqual"),
		compare(UordLe, "OpFUnordLessThanEqual"),
		compare(OrdGe, "OpFOrdGreaterThanEqual"),
		compare(UordGe, "OpFUnordGreaterThanEqual"),

		ext2(Atan2, "Atan2", smallWidths),
		ext2(Pow, "Pow", smallWidths),
		ext2(Min, "FMin", allWidths),
		ext2(Max, "FMax", allWidths),
		ext2(NMin, "NMin", allWidths),
		ext2(NMax, "NMax", allWidths),
		ext2(Step, "Step", allWidths),
		ext2(Distance, "Distance", allWidths),
		ext1(Abs, "FAbs", allWidths),
		ext1(Sign, "FSign", allWidths),
		ext1(Floor, "Floor", allWidths),
		ext1(Ceil, "Ceil", allWidths),
		ext1(Fract, "Fract", allWidths),
		ext1(Round, "Round", allWidths),
		ext1(RoundEven, "RoundEven", allWidths),
		ext1(Trunc, "Trunc", allWidths),
		ext1(Radians, "Radians", smallWidths),
		ext1(Degrees, "Degrees", smallWidths),
		ext1(Sin, "Sin", smallWidths),
		ext1(Cos, "Cos", smallWidths),
		ext1(Tan, "Tan", smallWidths),
		ext1(Asin, "Asin", smallWidths),
		ext1(Acos, "Acos", smallWidths),
		ext1(Atan, "Atan", smallWidths),
		ext1(Sinh, "Sinh", smallWidths),
		ext1(Cosh, "Cosh", smallWidths),
		ext1(Tanh, "Tanh", smallWidths),
		ext1(Asinh, "Asinh", smallWidths),
		ext1(Acosh, "Acosh", smallWidths),
		ext1(Atanh, "Atanh", smallWidths),
		ext1(Exp, "Exp", smallWidths),
		ext1(Log, "Log", smallWidths),
		ext1(Exp2, "Exp2", smallWidths),
		ext1(Log2, "Log2", smallWidths),
		ext1(Sqrt, "Sqrt", allWidths),
		ext1(InverseSqrt, "InverseSqrt", allWidths),
		modf,
		modfSt,
		frexp,
		frexpSt,
		ext1(Length, "Length", allWidths),
		ext1(Normalize, "Normalize", allWidths),
		clamp,
		nclamp,
		det,
		inv,

		ret,

		convert(ConvFromFP16, fp.FP16, fp.FP32, fp.FP64),
		convert(ConvFromFP32, fp.FP32, fp.FP16, fp.FP64),
		convert(ConvFromFP64, fp.FP64, fp.FP16, fp.FP32),
		roundedConvert(ConvFromFP32Rte, fp.FP32, "RTE"),
		roundedConvert(ConvFromFP32Rtz, fp.FP32, "RTZ"),
		roundedConvert(ConvFromFP64Rte, fp.FP64, "RTE"),
		roundedConvert(ConvFromFP64Rtz, fp.FP64, "RTZ"),

		packHalf,
		unpackHalf,
		packDouble,
		unpackFlush,
		unpackPreserve,
	}
}
