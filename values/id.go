// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package values

import "strconv"

// ID names a floating-point test value or an acceptance class.
type ID uint8

const (
	// Unused marks an absent argument. Using it as an expectation is a
	// generator defect.
	Unused ID = iota

	MinusInf
	MinusOne
	MinusZero
	Zero
	Half
	One
	Two
	Inf
	Max
	NaN

	// Denorm is the primary subnormal of a width.
	Denorm
	DenormTimesTwo
	DegreesDenorm

	// Approximate results of transcendental functions.
	TrigOne
	PiDiv2
	MinusPiDiv2

	// Rounding arguments and the results obtained on the host with an
	// explicit rounding mode.
	AddArgA
	AddArgB
	AddRtzResult
	AddRteResult
	SubArgA
	SubArgB
	SubRtzResult
	SubRteResult
	MulArgA
	MulArgB
	MulRtzResult
	MulRteResult
	DotArgA
	DotArgB
	DotRtzResult
	DotRteResult

	// Conversion arguments and results.
	ConvFromFP32Arg
	ConvFromFP64Arg
	ConvToFP16RtzResult
	ConvToFP16RteResult
	ConvToFP32RtzResult
	ConvToFP32RteResult
	ConvDenormSmaller
	ConvDenormBigger

	// Multi-valued sentinels.
	ZeroOrMinusZero
	OneOrNaN
	ZeroOrOne
	ZeroOrFP16DenormToFP32
	ZeroOrFP16DenormToFP64
	ZeroOrFP32DenormToFP64

	numIDs
)

var idNames = [numIDs]string{
	Unused:                 "unused",
	MinusInf:               "minus_inf",
	MinusOne:               "minus_one",
	MinusZero:              "minus_zero",
	Zero:                   "zero",
	Half:                   "half",
	One:                    "one",
	Two:                    "two",
	Inf:                    "inf",
	Max:                    "max",
	NaN:                    "nan",
	Denorm:                 "denorm",
	DenormTimesTwo:         "denorm_times_two",
	DegreesDenorm:          "degrees_denorm",
	TrigOne:                "trig_one",
	PiDiv2:                 "pi_div_2",
	MinusPiDiv2:            "minus_pi_div_2",
	AddArgA:                "add_arg_a",
	AddArgB:                "add_arg_b",
	AddRtzResult:           "add_rtz_result",
	AddRteResult:           "add_rte_result",
	SubArgA:                "sub_arg_a",
	SubArgB:                "sub_arg_b",
	SubRtzResult:           "sub_rtz_result",
	SubRteResult:           "sub_rte_result",
	MulArgA:                "mul_arg_a",
	MulArgB:                "mul_arg_b",
	MulRtzResult:           "mul_rtz_result",
	MulRteResult:           "mul_rte_result",
	DotArgA:                "dot_arg_a",
	DotArgB:                "dot_arg_b",
	DotRtzResult:           "dot_rtz_result",
	DotRteResult:           "dot_rte_result",
	ConvFromFP32Arg:        "conv_from_fp32_arg",
	ConvFromFP64Arg:        "conv_from_fp64_arg",
	ConvToFP16RtzResult:    "conv_to_fp16_rtz_result",
	ConvToFP16RteResult:    "conv_to_fp16_rte_result",
	ConvToFP32RtzResult:    "conv_to_fp32_rtz_result",
	ConvToFP32RteResult:    "conv_to_fp32_rte_result",
	ConvDenormSmaller:      "conv_denorm_smaller",
	ConvDenormBigger:       "conv_denorm_bigger",
	ZeroOrMinusZero:        "zero_or_minus_zero",
	OneOrNaN:               "one_or_nan",
	ZeroOrOne:              "zero_or_one",
	ZeroOrFP16DenormToFP32: "zero_or_fp16_denorm_to_fp32",
	ZeroOrFP16DenormToFP64: "zero_or_fp16_denorm_to_fp64",
	ZeroOrFP32DenormToFP64: "zero_or_fp32_denorm_to_fp64",
}

// String returns the snake_case name of id.
func (id ID) String() string {
	if id < numIDs {
		return idNames[id]
	}
	return "ID(" + strconv.Itoa(int(id)) + ")"
}

// All returns every ID except Unused, in declaration order.
func All() []ID {
	ids := make([]ID, 0, numIDs-1)
	for id := Unused + 1; id < numIDs; id++ {
		ids = append(ids, id)
	}
	return ids
}

var alternatives = map[ID][]ID{
	ZeroOrMinusZero:        {Zero, MinusZero},
	OneOrNaN:               {One, NaN},
	ZeroOrOne:              {Zero, One},
	ZeroOrFP16DenormToFP32: {Zero, ConvDenormSmaller},
	ZeroOrFP16DenormToFP64: {Zero, ConvDenormSmaller},
	ZeroOrFP32DenormToFP64: {Zero, ConvDenormBigger},
}

// Alternatives returns the acceptable values of a multi-valued sentinel,
// or nil if id is not a sentinel. The alternatives are resolved against the
// catalog of the output width.
func Alternatives(id ID) []ID {
	return alternatives[id]
}

// IsSentinel reports whether id is a multi-valued acceptance class.
func IsSentinel(id ID) bool {
	_, ok := alternatives[id]
	return ok
}

// IsNaNLike reports whether any NaN satisfies id.
func IsNaNLike(id ID) bool {
	return id == NaN
}

// Approximate reports whether id is compared against a double-precision
// reference with a tolerance rather than bit for bit.
func Approximate(id ID) bool {
	switch id {
	case TrigOne, PiDiv2, MinusPiDiv2, DegreesDenorm:
		return true
	}
	return false
}
