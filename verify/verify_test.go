// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package verify

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/floatctl/fault"
	"github.com/gogpu/floatctl/fp"
	"github.com/gogpu/floatctl/ops"
	"github.com/gogpu/floatctl/values"
)

func newVerifier() *Verifier {
	return New(values.NewCatalogs(), ops.NewCatalog())
}

func store(t fp.Type, bits uint64) []byte {
	buf := make([]byte, t.Bytes())
	t.PutBits(buf, bits)
	return buf
}

func TestVerify_Exact(t *testing.T) {
	v := newVerifier()
	c := Check{Type: fp.FP32, Storage: fp.FP32, Op: ops.Add, Expected: values.MinusZero}

	r := v.Verify(c, store(fp.FP32, 0x80000000))
	assert.True(t, r.OK)
	assert.NoError(t, r.Err())

	r = v.Verify(c, store(fp.FP32, 0))
	assert.False(t, r.OK)
	assert.Equal(t, "0x80000000", r.Expected)
	assert.Equal(t, "0x00000000", r.Actual)
	err := r.Err()
	require.Error(t, err)
	assert.True(t, fault.IsVerification(err))
	assert.Contains(t, err.Error(), "expected 0x80000000")
}

func TestVerify_NaN(t *testing.T) {
	v := newVerifier()
	for _, typ := range fp.Types {
		t.Run(typ.String(), func(t *testing.T) {
			c := Check{Type: typ, Storage: typ, Op: ops.Add, Expected: values.NaN}
			sign := uint64(1) << (typ.Width() - 1)
			mant := uint64(1)<<typ.MantissaBits() - 1
			inf := typ.InfBits(1)
			for _, payload := range []uint64{1, 0x5 & mant, typ.QuietNaN() &^ inf, mant} {
				for _, s := range []uint64{0, sign} {
					bits := s | inf | payload
					assert.True(t, v.Verify(c, store(typ, bits)).OK, "%#x", bits)
				}
			}
			for _, bits := range []uint64{typ.InfBits(1), typ.InfBits(-1), typ.MaxBits(), 0} {
				assert.False(t, v.Verify(c, store(typ, bits)).OK, "%#x", bits)
			}
		})
	}
}

// Every catalog value verifies against its own bit pattern.
func TestVerify_CatalogBits(t *testing.T) {
	v := newVerifier()
	cats := values.NewCatalogs()
	for _, typ := range fp.Types {
		cat := cats.For(typ)
		for _, id := range values.All() {
			if values.IsSentinel(id) || !cat.Defined(id) {
				continue
			}
			c := Check{Type: typ, Storage: typ, Op: ops.Add, Expected: id}
			r := v.Verify(c, store(typ, cat.Bits(id)))
			assert.True(t, r.OK, "%s %s: %v", typ, id, r.Err())
		}
	}
}

func TestVerify_Sentinels(t *testing.T) {
	v := newVerifier()
	tests := []struct {
		name     string
		typ      fp.Type
		expected values.ID
		bits     uint64
		ok       bool
	}{
		{"zero", fp.FP32, values.ZeroOrMinusZero, 0x00000000, true},
		{"minus zero", fp.FP32, values.ZeroOrMinusZero, 0x80000000, true},
		{"denorm is not zero", fp.FP32, values.ZeroOrMinusZero, 0x00000001, false},
		{"one or nan takes one", fp.FP16, values.OneOrNaN, 0x3c00, true},
		{"one or nan takes any nan", fp.FP16, values.OneOrNaN, 0x7e01, true},
		{"one or nan rejects two", fp.FP16, values.OneOrNaN, 0x4000, false},
		{"zero or one", fp.FP64, values.ZeroOrOne, 0x3ff0000000000000, true},
		{"fp16 denorm kept in fp32", fp.FP32, values.ZeroOrFP16DenormToFP32, fp.FP32.Encode(fp.FP16.Denorm(), fp.RTE), true},
		{"fp16 denorm flushed in fp32", fp.FP32, values.ZeroOrFP16DenormToFP32, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Check{Type: tt.typ, Storage: tt.typ, Op: ops.Add, Expected: tt.expected}
			r := v.Verify(c, store(tt.typ, tt.bits))
			assert.Equal(t, tt.ok, r.OK, r.Err())
		})
	}
}

// Two-valued sentinels accept exactly their two patterns.
func TestVerify_SentinelsRejectOthers(t *testing.T) {
	v := newVerifier()
	for _, typ := range fp.Types {
		one := typ.Encode(1, fp.RTE)
		sign := uint64(1) << (typ.Width() - 1)
		patterns := map[string]uint64{
			"one":               one,
			"minus one":         one | sign,
			"two":               typ.Encode(2, fp.RTE),
			"one ulp above one": one + 1,
			"denorm":            1,
			"minus denorm":      sign | 1,
			"inf":               typ.InfBits(1),
			"minus inf":         typ.InfBits(-1),
			"max":               typ.MaxBits(),
			"nan":               typ.QuietNaN(),
			"zero":              0,
			"minus zero":        sign,
		}
		accepts := map[values.ID][]string{
			values.ZeroOrMinusZero: {"zero", "minus zero"},
			values.OneOrNaN:        {"one", "nan"},
		}
		for id, ok := range accepts {
			for name, bits := range patterns {
				c := Check{Type: typ, Storage: typ, Op: ops.Add, Expected: id}
				want := slices.Contains(ok, name)
				assert.Equal(t, want, v.Verify(c, store(typ, bits)).OK, "%s %s %s", typ, id, name)
			}
		}
	}
}

func TestVerify_Approximate(t *testing.T) {
	v := newVerifier()

	// sin(pi/2) within the absolute bound.
	c := Check{Type: fp.FP32, Storage: fp.FP32, Op: ops.Sin, Expected: values.TrigOne}
	near := fp.FP32.Encode(1-0x1p-12, fp.RTE)
	assert.True(t, v.Verify(c, store(fp.FP32, near)).OK)
	far := fp.FP32.Encode(1-0x1p-9, fp.RTE)
	r := v.Verify(c, store(fp.FP32, far))
	assert.False(t, r.OK)
	assert.InDelta(t, 0x1p-11, r.Tolerance, 1e-12)

	// exp(0) = 1 within 3 ulp.
	c = Check{Type: fp.FP32, Storage: fp.FP32, Op: ops.Exp, Expected: values.One}
	assert.True(t, v.Verify(c, store(fp.FP32, 0x3f800001)).OK)
	assert.False(t, v.Verify(c, store(fp.FP32, 0x3f800010)).OK)

	// Zeros are never approximate.
	c = Check{Type: fp.FP32, Storage: fp.FP32, Op: ops.Sin, Expected: values.Zero}
	assert.False(t, v.Verify(c, store(fp.FP32, 0x00000001)).OK)

	// NaN never satisfies an approximate expectation.
	c = Check{Type: fp.FP16, Storage: fp.FP16, Op: ops.Atan, Expected: values.PiDiv2}
	assert.False(t, v.Verify(c, store(fp.FP16, 0x7e00)).OK)
	assert.True(t, v.Verify(c, store(fp.FP16, fp.FP16.Encode(math.Pi/2, fp.RTE))).OK)
}

func TestVerify_ApproximateDenorm(t *testing.T) {
	v := newVerifier()
	denorm := fp.FP32.Encode(fp.FP32.Denorm(), fp.RTE)

	for _, op := range []ops.ID{ops.Sin, ops.Pow} {
		c := Check{Type: fp.FP32, Storage: fp.FP32, Op: op, Expected: values.Denorm}
		assert.True(t, v.Verify(c, store(fp.FP32, denorm)).OK, op)
		assert.True(t, v.Verify(c, store(fp.FP32, denorm+3)).OK, op)

		r := v.Verify(c, store(fp.FP32, 0))
		assert.False(t, r.OK, op)
		assert.Equal(t, "denormal result flushed to zero", r.Reason)
		assert.False(t, v.Verify(c, store(fp.FP32, 0x80000000)).OK, op)

		r = v.Verify(c, store(fp.FP32, denorm|0x80000000))
		assert.False(t, r.OK, op)
		assert.Equal(t, "sign of denormal result lost", r.Reason)
	}

	// Exact operations still require the exact denormal.
	c := Check{Type: fp.FP32, Storage: fp.FP32, Op: ops.Add, Expected: values.Denorm}
	assert.False(t, v.Verify(c, store(fp.FP32, denorm+1)).OK)
}

func TestVerify_Narrowing(t *testing.T) {
	v := newVerifier()
	c := Check{Type: fp.FP16, Storage: fp.FP32, Op: ops.Add, Expected: values.DenormTimesTwo}
	want := fp.FP32.Encode(2*fp.FP16.Denorm(), fp.RTE)

	r := v.Verify(c, store(fp.FP32, want))
	assert.True(t, r.OK, r.Err())

	r = v.Verify(c, store(fp.FP32, want+1))
	assert.False(t, r.OK)
	assert.Contains(t, r.Reason, "not a fp16 value")

	c.Expected = values.NaN
	assert.True(t, v.Verify(c, store(fp.FP32, 0x7fc00000)).OK)
}

func TestVerify_ShortOutput(t *testing.T) {
	v := newVerifier()
	c := Check{Type: fp.FP64, Storage: fp.FP64, Op: ops.Add, Expected: values.One, Offset: 4}
	r := v.Verify(c, make([]byte, 8))
	assert.False(t, r.OK)
	assert.Contains(t, r.Reason, "need 12")
}

func TestVerifyAll(t *testing.T) {
	v := newVerifier()
	out := make([]byte, 12)
	fp.FP64.PutBits(out, 0x3ff0000000000000)
	fp.FP32.PutBits(out[8:], 0x40000000)

	checks := []Check{
		{Type: fp.FP64, Storage: fp.FP64, Op: ops.Add, Expected: values.One},
		{Type: fp.FP32, Storage: fp.FP32, Op: ops.Add, Expected: values.Two, Offset: 8},
	}
	results, err := v.VerifyAll(checks, out)
	require.NoError(t, err)
	require.Len(t, results, 2)

	checks[1].Expected = values.One
	_, err = v.VerifyAll(checks, out)
	require.Error(t, err)
	assert.True(t, fault.IsVerification(err))
}

func TestToleranceFor(t *testing.T) {
	assert.Equal(t, Tolerance{Abs: 0x1p-11}, ToleranceFor(ops.Cos, fp.FP32))
	assert.Equal(t, Tolerance{ULP: 2}, ToleranceFor(ops.InverseSqrt, fp.FP16))
	assert.Equal(t, Tolerance{ULP: 4096}, ToleranceFor(ops.Tan, fp.FP64))
	assert.Equal(t, 3*fp.FP32.ULP(1), ToleranceFor(ops.Exp, fp.FP32).Bound(fp.FP32, 1))

	for _, op := range []ops.ID{ops.Asin, ops.Acos, ops.Atan, ops.Atan2} {
		assert.Equal(t, Tolerance{ULP: 5}, ToleranceFor(op, fp.FP16), op)
		assert.Equal(t, Tolerance{ULP: 4096}, ToleranceFor(op, fp.FP32), op)
	}
	c := Check{Type: fp.FP16, Storage: fp.FP16, Op: ops.Asin, Expected: values.PiDiv2}
	ref := fp.FP16.Encode(math.Pi/2, fp.RTE)
	assert.True(t, newVerifier().Verify(c, store(fp.FP16, ref+5)).OK)
	assert.False(t, newVerifier().Verify(c, store(fp.FP16, ref+7)).OK)
}

// Raising the ULP multiplier never rejects a result a smaller multiplier
// accepted.
func TestTolerance_Monotonic(t *testing.T) {
	multipliers := []float64{0, 1, 2, 3, 5, 64, 4096}
	for _, typ := range fp.Types {
		for _, ref := range []float64{1, 0.75, math.Pi / 2, -3 * typ.MinNormal(), typ.Max() / 4} {
			for i := 1; i < len(multipliers); i++ {
				lo, hi := Tolerance{ULP: multipliers[i-1]}, Tolerance{ULP: multipliers[i]}
				assert.LessOrEqual(t, lo.Bound(typ, ref), hi.Bound(typ, ref))
			}
			u := typ.ULP(ref)
			for k := -5000; k <= 5000; k += 7 {
				got := ref + float64(k)*u
				for i := 1; i < len(multipliers); i++ {
					lo, hi := Tolerance{ULP: multipliers[i-1]}, Tolerance{ULP: multipliers[i]}
					if lo.Allows(typ, ref, got) && !hi.Allows(typ, ref, got) {
						t.Fatalf("%s ref %v: %v accepted at %v ulp, rejected at %v ulp",
							typ, ref, got, multipliers[i-1], multipliers[i])
					}
				}
			}
		}
	}
}
