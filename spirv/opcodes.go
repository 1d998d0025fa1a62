// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv

import "strconv"

// OpCode represents a SPIR-V opcode.
type OpCode uint16

var opcodeNames = map[OpCode]string{
	0: "OpNop", 1: "OpUndef", 3: "OpSource", 4: "OpSourceExtension",
	5: "OpName", 6: "OpMemberName", 7: "OpString",
	10: "OpExtension", 11: "OpExtInstImport", 12: "OpExtInst",
	14: "OpMemoryModel", 15: "OpEntryPoint", 16: "OpExecutionMode",
	17: "OpCapability", 19: "OpTypeVoid", 20: "OpTypeBool",
	21: "OpTypeInt", 22: "OpTypeFloat", 23: "OpTypeVector",
	24: "OpTypeMatrix", 28: "OpTypeArray", 29: "OpTypeRuntimeArray",
	30: "OpTypeStruct", 32: "OpTypePointer", 33: "OpTypeFunction",
	41: "OpConstantTrue", 42: "OpConstantFalse", 43: "OpConstant",
	44: "OpConstantComposite", 46: "OpConstantNull",
	54: "OpFunction", 55: "OpFunctionParameter", 56: "OpFunctionEnd",
	57: "OpFunctionCall", 59: "OpVariable",
	61: "OpLoad", 62: "OpStore", 63: "OpCopyMemory",
	65: "OpAccessChain", 66: "OpInBoundsAccessChain",
	71: "OpDecorate", 72: "OpMemberDecorate",
	77: "OpVectorExtractDynamic", 78: "OpVectorInsertDynamic",
	79: "OpVectorShuffle", 80: "OpCompositeConstruct", 81: "OpCompositeExtract",
	82: "OpCompositeInsert", 83: "OpCopyObject", 84: "OpTranspose",
	109: "OpConvertFToU", 110: "OpConvertFToS", 111: "OpConvertSToF",
	112: "OpConvertUToF", 113: "OpUConvert", 114: "OpSConvert",
	115: "OpFConvert", 116: "OpQuantizeToF16", 124: "OpBitcast",
	126: "OpSNegate", 127: "OpFNegate", 128: "OpIAdd", 129: "OpFAdd",
	130: "OpISub", 131: "OpFSub", 132: "OpIMul", 133: "OpFMul",
	134: "OpUDiv", 135: "OpSDiv", 136: "OpFDiv", 137: "OpUMod",
	138: "OpSRem", 139: "OpSMod", 140: "OpFRem", 141: "OpFMod",
	142: "OpVectorTimesScalar", 143: "OpMatrixTimesScalar",
	144: "OpVectorTimesMatrix", 145: "OpMatrixTimesVector",
	146: "OpMatrixTimesMatrix", 147: "OpOuterProduct", 148: "OpDot",
	154: "OpAny", 155: "OpAll",
	156: "OpIsNan", 157: "OpIsInf", 158: "OpIsFinite", 159: "OpIsNormal",
	160: "OpSignBitSet",
	164: "OpLogicalEqual", 165: "OpLogicalNotEqual", 166: "OpLogicalOr",
	167: "OpLogicalAnd", 168: "OpLogicalNot", 169: "OpSelect",
	170: "OpIEqual", 171: "OpINotEqual", 172: "OpUGreaterThan",
	173: "OpSGreaterThan", 174: "OpUGreaterThanEqual", 175: "OpSGreaterThanEqual",
	176: "OpULessThan", 177: "OpSLessThan", 178: "OpULessThanEqual",
	179: "OpSLessThanEqual",
	180: "OpFOrdEqual", 181: "OpFUnordEqual", 182: "OpFOrdNotEqual",
	183: "OpFUnordNotEqual", 184: "OpFOrdLessThan", 185: "OpFUnordLessThan",
	186: "OpFOrdGreaterThan", 187: "OpFUnordGreaterThan",
	188: "OpFOrdLessThanEqual", 189: "OpFUnordLessThanEqual",
	190: "OpFOrdGreaterThanEqual", 191: "OpFUnordGreaterThanEqual",
	194: "OpShiftRightLogical", 195: "OpShiftRightArithmetic",
	196: "OpShiftLeftLogical", 197: "OpBitwiseOr", 198: "OpBitwiseXor",
	199: "OpBitwiseAnd", 200: "OpNot",
	245: "OpPhi", 246: "OpLoopMerge", 247: "OpSelectionMerge",
	248: "OpLabel", 249: "OpBranch", 250: "OpBranchConditional",
	251: "OpSwitch", 252: "OpKill", 253: "OpReturn", 254: "OpReturnValue",
	255: "OpUnreachable",
	331: "OpExecutionModeId", 332: "OpDecorateId",
}

var opcodeByName = func() map[string]OpCode {
	m := make(map[string]OpCode, len(opcodeNames))
	for op, name := range opcodeNames {
		m[name] = op
	}
	return m
}()

// String returns the assembly name of op.
func (op OpCode) String() string {
	if s, ok := opcodeNames[op]; ok {
		return s
	}
	return "Op" + strconv.Itoa(int(op))
}

// LookupOpCode resolves an assembly opcode name.
func LookupOpCode(name string) (OpCode, bool) {
	op, ok := opcodeByName[name]
	return op, ok
}

// glslInstructions lists the GLSL.std.450 extended instructions by name.
var glslInstructions = map[string]uint32{
	"Round": 1, "RoundEven": 2, "Trunc": 3, "FAbs": 4, "FSign": 6,
	"Floor": 8, "Ceil": 9, "Fract": 10, "Radians": 11, "Degrees": 12,
	"Sin": 13, "Cos": 14, "Tan": 15, "Asin": 16, "Acos": 17, "Atan": 18,
	"Sinh": 19, "Cosh": 20, "Tanh": 21, "Asinh": 22, "Acosh": 23, "Atanh": 24,
	"Atan2": 25, "Pow": 26, "Exp": 27, "Log": 28, "Exp2": 29, "Log2": 30,
	"Sqrt": 31, "InverseSqrt": 32, "Determinant": 33, "MatrixInverse": 34,
	"Modf": 35, "ModfStruct": 36, "FMin": 37, "FMax": 40, "FClamp": 43,
	"FMix": 46, "Step": 48, "Fma": 50, "Frexp": 51, "FrexpStruct": 52,
	"Ldexp": 53, "PackHalf2x16": 58, "PackDouble2x32": 59,
	"UnpackHalf2x16": 62, "UnpackDouble2x32": 65,
	"Length": 66, "Distance": 67, "Cross": 68, "Normalize": 69,
	"NMin": 79, "NMax": 80, "NClamp": 81,
}

// GLSLInstruction returns the GLSL.std.450 number of the named extended
// instruction.
func GLSLInstruction(name string) (uint32, bool) {
	n, ok := glslInstructions[name]
	return n, ok
}
