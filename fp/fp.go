// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package fp describes the IEEE-754 binary formats exercised by the
// float-controls suite and provides bit-exact encoding, decoding and
// host-side arithmetic with an explicit rounding mode.
//
// A single implementation serves all three widths; every width-specific
// quantity is derived from the Format descriptor.
package fp

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"
)

// Type selects a float width.
type Type uint8

// Float widths. The zero value is not a valid type.
const (
	FP16 Type = iota + 1
	FP32
	FP64
)

// Types lists every float type, narrowest first.
var Types = []Type{FP16, FP32, FP64}

// Format describes the bit layout of a binary floating-point format.
type Format struct {
	Bits         int
	ExponentBits int
	MantissaBits int
}

var formats = [...]Format{
	FP16: {Bits: 16, ExponentBits: 5, MantissaBits: 10},
	FP32: {Bits: 32, ExponentBits: 8, MantissaBits: 23},
	FP64: {Bits: 64, ExponentBits: 11, MantissaBits: 52},
}

// Valid reports whether t names one of the supported widths.
func (t Type) Valid() bool {
	return t >= FP16 && t <= FP64
}

// Format returns the bit layout of t.
func (t Type) Format() Format {
	if !t.Valid() {
		panic("fp: invalid type " + strconv.Itoa(int(t)))
	}
	return formats[t]
}

// String returns the group name of t ("fp16", "fp32", "fp64").
func (t Type) String() string {
	switch t {
	case FP16:
		return "fp16"
	case FP32:
		return "fp32"
	case FP64:
		return "fp64"
	default:
		return "fp?"
	}
}

// Token returns the SPIR-V identifier infix of t ("f16", "f32", "f64").
func (t Type) Token() string {
	return "f" + strconv.Itoa(t.Width())
}

// Width returns the width of t in bits.
func (t Type) Width() int { return t.Format().Bits }

// Bytes returns the width of t in bytes.
func (t Type) Bytes() int { return t.Format().Bits / 8 }

// MantissaBits returns the number of explicitly stored mantissa bits.
func (t Type) MantissaBits() int { return t.Format().MantissaBits }

// Bias returns the exponent bias.
func (t Type) Bias() int { return 1<<(t.Format().ExponentBits-1) - 1 }

func (t Type) expMask() uint64  { return 1<<t.Format().ExponentBits - 1 }
func (t Type) mantMask() uint64 { return 1<<t.Format().MantissaBits - 1 }
func (t Type) signBit() uint64  { return 1 << (t.Format().Bits - 1) }

// Mask returns a mask covering all bits of t.
func (t Type) Mask() uint64 {
	if t.Width() == 64 {
		return math.MaxUint64
	}
	return 1<<t.Width() - 1
}

// MinNormal returns the smallest positive normal value.
func (t Type) MinNormal() float64 { return math.Ldexp(1, 1-t.Bias()) }

// DenormMin returns the smallest positive subnormal value.
func (t Type) DenormMin() float64 { return math.Ldexp(1, 1-t.Bias()-t.MantissaBits()) }

// Epsilon returns the distance from 1.0 to the next representable value.
func (t Type) Epsilon() float64 { return math.Ldexp(1, -t.MantissaBits()) }

// Max returns the largest finite value.
func (t Type) Max() float64 { return math.Ldexp(2-t.Epsilon(), t.Bias()) }

// DenormBase returns the normal constant from which DenormEpsilon is
// subtracted to obtain the suite's primary denormal.
func (t Type) DenormBase() float64 { return 1.25 * t.MinNormal() }

// DenormEpsilon returns the normal constant subtracted from DenormBase.
func (t Type) DenormEpsilon() float64 { return t.MinNormal() }

// Denorm returns the primary denormal, DenormBase - DenormEpsilon.
// The subtraction is exact.
func (t Type) Denorm() float64 { return t.DenormBase() - t.DenormEpsilon() }

// QuietNaN returns the canonical quiet NaN bit pattern.
func (t Type) QuietNaN() uint64 {
	m := t.MantissaBits()
	return t.expMask()<<m | 1<<(m-1)
}

// InfBits returns the bit pattern of +Inf (sign >= 0) or -Inf (sign < 0).
func (t Type) InfBits(sign int) uint64 {
	bits := t.expMask() << t.MantissaBits()
	if sign < 0 {
		bits |= t.signBit()
	}
	return bits
}

// MaxBits returns the bit pattern of the largest finite value.
func (t Type) MaxBits() uint64 {
	m := t.MantissaBits()
	return (t.expMask()-1)<<m | t.mantMask()
}

func (t Type) fields(bits uint64) (sign bool, exp, mant uint64) {
	m := t.MantissaBits()
	return bits&t.signBit() != 0, (bits >> m) & t.expMask(), bits & t.mantMask()
}

// IsNaN reports whether bits encode a NaN of any payload or sign.
func (t Type) IsNaN(bits uint64) bool {
	_, e, m := t.fields(bits)
	return e == t.expMask() && m != 0
}

// IsInf reports whether bits encode an infinity. sign > 0 matches +Inf,
// sign < 0 matches -Inf, sign == 0 matches either.
func (t Type) IsInf(bits uint64, sign int) bool {
	neg, e, m := t.fields(bits)
	if e != t.expMask() || m != 0 {
		return false
	}
	return sign == 0 || (sign > 0) != neg
}

// IsDenorm reports whether bits encode a non-zero subnormal value.
func (t Type) IsDenorm(bits uint64) bool {
	_, e, m := t.fields(bits)
	return e == 0 && m != 0
}

// IsZero reports whether bits encode +0 or -0.
func (t Type) IsZero(bits uint64) bool {
	_, e, m := t.fields(bits)
	return e == 0 && m == 0
}

// Negative reports whether the sign bit is set.
func (t Type) Negative(bits uint64) bool {
	return bits&t.signBit() != 0
}

// Decode returns the value encoded by bits. NaN payloads are not preserved.
func (t Type) Decode(bits uint64) float64 {
	if t == FP64 {
		return math.Float64frombits(bits)
	}
	neg, e, m := t.fields(bits)
	var v float64
	switch {
	case e == t.expMask() && m != 0:
		return math.NaN()
	case e == t.expMask():
		v = math.Inf(1)
	case e == 0:
		v = math.Ldexp(float64(m), 1-t.Bias()-t.MantissaBits())
	default:
		v = math.Ldexp(float64(m|1<<t.MantissaBits()), int(e)-t.Bias()-t.MantissaBits())
	}
	if neg {
		v = math.Copysign(v, -1)
	}
	return v
}

// Encode rounds x to t with rounding mode r and returns its bit pattern.
// Subnormal results are rounded at the subnormal quantum; overflow yields
// Inf under RTE and Max under RTZ. NaN maps to the canonical quiet NaN with
// the sign of x.
func (t Type) Encode(x float64, r Rounding) uint64 {
	if t == FP64 {
		return math.Float64bits(x)
	}
	var sign uint64
	if math.Signbit(x) {
		sign = t.signBit()
	}
	a := math.Abs(x)
	switch {
	case math.IsNaN(x):
		return sign | t.QuietNaN()
	case math.IsInf(x, 0):
		return sign | t.InfBits(1)
	case a == 0:
		return sign
	case a < t.MinNormal():
		// Scaling by a power of two is exact.
		q := a / t.DenormMin()
		if r == RTZ {
			q = math.Trunc(q)
		} else {
			q = math.RoundToEven(q)
		}
		return sign | uint64(q)
	}

	frac, exp := r.roundMantissa(a, t.MantissaBits()+1)
	e := exp - 1
	if e > t.Bias() {
		if r == RTZ {
			return sign | t.MaxBits()
		}
		return sign | t.InfBits(1)
	}
	m := uint64(math.Ldexp(frac, t.MantissaBits()+1)) &^ (1 << t.MantissaBits())
	return sign | uint64(e+t.Bias())<<t.MantissaBits() | m
}

// Representable reports whether x survives a round trip through t
// unchanged. NaN is representable in every width.
func (t Type) Representable(x float64) bool {
	if math.IsNaN(x) {
		return true
	}
	y := t.Decode(t.Encode(x, RTE))
	return y == x && math.Signbit(y) == math.Signbit(x)
}

// ULP returns the spacing of t at the magnitude of x.
func (t Type) ULP(x float64) float64 {
	a := math.Abs(x)
	switch {
	case math.IsInf(a, 0) || math.IsNaN(a):
		return math.Inf(1)
	case a == 0:
		return t.DenormMin()
	}
	_, exp := math.Frexp(a)
	e := exp - 1
	if e < 1-t.Bias() {
		e = 1 - t.Bias()
	}
	return math.Ldexp(1, e-t.MantissaBits())
}

// Literal returns x formatted as a SPIR-V assembly float literal. Values
// with a short decimal form are printed in decimal, everything else as an
// exact hexadecimal float.
func Literal(x float64) string {
	if s := strconv.FormatFloat(x, 'g', -1, 64); !strings.ContainsAny(s, "eE") && len(s) <= 8 {
		return s
	}
	return strconv.FormatFloat(x, 'x', -1, 64)
}

// PutBits stores the low t.Bytes() bytes of bits into buf in little-endian
// order.
func (t Type) PutBits(buf []byte, bits uint64) {
	switch t.Bytes() {
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(bits))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(bits))
	default:
		binary.LittleEndian.PutUint64(buf, bits)
	}
}

// Bits reads one little-endian scalar of width t from buf.
func (t Type) Bits(buf []byte) uint64 {
	switch t.Bytes() {
	case 2:
		return uint64(binary.LittleEndian.Uint16(buf))
	case 4:
		return uint64(binary.LittleEndian.Uint32(buf))
	default:
		return binary.LittleEndian.Uint64(buf)
	}
}

// HexBits formats bits as a zero-padded hexadecimal literal of width t.
func (t Type) HexBits(bits uint64) string {
	s := strconv.FormatUint(bits&t.Mask(), 16)
	return "0x" + strings.Repeat("0", t.Bytes()*2-len(s)) + s
}
