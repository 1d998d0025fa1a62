// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package verify checks device output against the symbolic expectation of
// a case.
//
// Rules apply in order: a NaN expectation accepts any NaN; a multi-valued
// sentinel accepts any of its alternatives; approximate results are
// compared against their double-precision reference within the precision
// of the operation; everything else must match bit for bit.
//
// A denormal result of an approximate operation is held to the precision
// of the operation but must keep its sign and must not be flushed to zero.
package verify

import (
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/floatctl/fault"
	"github.com/gogpu/floatctl/fp"
	"github.com/gogpu/floatctl/ops"
	"github.com/gogpu/floatctl/values"
)

// Check is one result a case produces.
type Check struct {
	// Type is the width the operation computes in.
	Type fp.Type
	// Storage is the width the result occupies in the output buffer.
	Storage  fp.Type
	Op       ops.ID
	Expected values.ID
	// Offset is the byte offset of the result in the output buffer.
	Offset int
}

// Result is the outcome of one check.
type Result struct {
	Check Check
	OK    bool

	Expected      string
	Actual        string
	ExpectedValue float64
	ActualValue   float64
	// Tolerance is the allowed absolute error of an approximate
	// comparison, zero otherwise.
	Tolerance float64
	Reason    string
}

// Err returns nil for a passing result and a verification fault otherwise.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	msg := fmt.Sprintf("%s %s: expected %s (%v), got %s (%v)",
		r.Check.Op, r.Check.Type, r.Expected, r.ExpectedValue, r.Actual, r.ActualValue)
	if r.Tolerance != 0 {
		msg += fmt.Sprintf(" within %g", r.Tolerance)
	}
	if r.Reason != "" {
		msg += ": " + r.Reason
	}
	return fault.Verification("%s", msg)
}

// Verifier resolves expectations against the value catalogs.
type Verifier struct {
	values *values.Catalogs
	ops    *ops.Catalog
}

// New returns a Verifier.
func New(v *values.Catalogs, o *ops.Catalog) *Verifier {
	return &Verifier{values: v, ops: o}
}

// Verify checks the result c describes in output.
func (v *Verifier) Verify(c Check, output []byte) Result {
	r := Result{Check: c}
	storage := c.Storage
	if storage == 0 {
		storage = c.Type
	}
	n := storage.Bytes()
	if c.Offset < 0 || len(output) < c.Offset+n {
		r.Reason = fmt.Sprintf("output holds %d bytes, need %d", len(output), c.Offset+n)
		return r
	}

	raw := storage.Bits(output[c.Offset:])
	bits := raw
	if storage != c.Type {
		var ok bool
		if bits, ok = narrow(storage, c.Type, raw); !ok {
			r.Actual = storage.HexBits(raw)
			r.ActualValue = storage.Decode(raw)
			r.Reason = fmt.Sprintf("stored value is not a %s value", c.Type)
			return r
		}
	}
	t := c.Type
	r.Actual = t.HexBits(bits)
	r.ActualValue = t.Decode(bits)

	cat := v.values.For(t)
	switch {
	case values.IsNaNLike(c.Expected):
		r.Expected = "NaN"
		r.ExpectedValue = math.NaN()
		r.OK = t.IsNaN(bits)

	case values.IsSentinel(c.Expected):
		alts := values.Alternatives(c.Expected)
		hex := make([]string, len(alts))
		for i, alt := range alts {
			if values.IsNaNLike(alt) {
				hex[i] = "NaN"
				r.OK = r.OK || t.IsNaN(bits)
				continue
			}
			want := cat.Bits(alt)
			hex[i] = t.HexBits(want)
			r.OK = r.OK || want == bits
		}
		r.Expected = c.Expected.String() + "{" + strings.Join(hex, ",") + "}"
		r.ExpectedValue = cat.Exact(alts[0])

	case v.approximateDenorm(c):
		ref := cat.Exact(c.Expected)
		tol := ToleranceFor(c.Op, t)
		r.Expected = t.HexBits(cat.Bits(c.Expected))
		r.ExpectedValue = ref
		r.Tolerance = tol.Bound(t, ref)
		switch {
		case t.IsZero(bits):
			r.Reason = "denormal result flushed to zero"
		case t.Negative(bits) != (ref < 0):
			r.Reason = "sign of denormal result lost"
		default:
			r.OK = tol.Allows(t, ref, r.ActualValue)
		}

	case v.approximate(c):
		ref := cat.Exact(c.Expected)
		tol := ToleranceFor(c.Op, t)
		r.Expected = t.HexBits(cat.Bits(c.Expected))
		r.ExpectedValue = ref
		r.Tolerance = tol.Bound(t, ref)
		r.OK = tol.Allows(t, ref, r.ActualValue)

	default:
		want := cat.Bits(c.Expected)
		r.Expected = t.HexBits(want)
		r.ExpectedValue = t.Decode(want)
		r.OK = want == bits
	}
	return r
}

// approximate reports whether c compares within a tolerance. Zeros,
// denormals and infinities are always compared exactly so flushing and
// overflow stay observable.
func (v *Verifier) approximate(c Check) bool {
	if values.Approximate(c.Expected) {
		return true
	}
	if c.Op == ops.Invalid || !v.ops.Get(c.Op).Approximate {
		return false
	}
	x := v.values.For(c.Type).Exact(c.Expected)
	return !math.IsInf(x, 0) && !math.IsNaN(x) && math.Abs(x) >= c.Type.MinNormal()
}

// approximateDenorm reports whether c expects a denormal result of an
// approximate operation.
func (v *Verifier) approximateDenorm(c Check) bool {
	if c.Op == ops.Invalid || !v.ops.Get(c.Op).Approximate || values.Approximate(c.Expected) {
		return false
	}
	x := v.values.For(c.Type).Exact(c.Expected)
	return x != 0 && math.Abs(x) < c.Type.MinNormal()
}

// VerifyAll checks every result and returns the results with the first
// failure, if any.
func (v *Verifier) VerifyAll(checks []Check, output []byte) ([]Result, error) {
	results := make([]Result, len(checks))
	var first error
	for i, c := range checks {
		results[i] = v.Verify(c, output)
		if err := results[i].Err(); err != nil && first == nil {
			first = err
		}
	}
	return results, first
}

// narrow converts bits stored in a wider width back to t. It fails when
// the stored value is not exactly representable in t.
func narrow(from, t fp.Type, bits uint64) (uint64, bool) {
	if from.IsNaN(bits) {
		return t.QuietNaN(), true
	}
	x := from.Decode(bits)
	if !t.Representable(x) {
		return 0, false
	}
	return t.Encode(x, fp.RTE), true
}
