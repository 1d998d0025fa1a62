// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package floatctl

import (
	"runtime"
	"testing"

	"github.com/gogpu/floatctl/fp"
	"github.com/gogpu/floatctl/matrix"
	"github.com/gogpu/floatctl/specialize"
	"github.com/gogpu/floatctl/spirv"
)

// ---------------------------------------------------------------------------
// Suite slices of increasing size
// ---------------------------------------------------------------------------

type suiteCase struct {
	name string
	opts func() Options
}

func only(types []fp.Type, variants []matrix.Variant, stages []specialize.Stage) func() Options {
	return func() Options {
		o := DefaultOptions()
		o.Types = types
		o.Variants = variants
		o.Stages = stages
		return o
	}
}

var suitesBySize = []suiteCase{
	{"fp32_compute", only([]fp.Type{fp.FP32}, []matrix.Variant{matrix.FloatControls},
		[]specialize.Stage{specialize.StageCompute})},
	{"fp16_compute", only([]fp.Type{fp.FP16}, []matrix.Variant{matrix.FloatControls},
		[]specialize.Stage{specialize.StageCompute})},
	{"fp32_graphics", only([]fp.Type{fp.FP32}, []matrix.Variant{matrix.FloatControls},
		[]specialize.Stage{specialize.StageVertex, specialize.StageFragment})},
	{"float_controls2", only(fp.Types, []matrix.Variant{matrix.FloatControls2},
		[]specialize.Stage{specialize.StageCompute})},
	{"full", DefaultOptions},
}

// ---------------------------------------------------------------------------
// End-to-end generation
// ---------------------------------------------------------------------------

// BenchmarkGenerate benchmarks suite generation by slice size. Reports
// allocations and cases per op.
func BenchmarkGenerate(b *testing.B) {
	for _, sc := range suitesBySize {
		b.Run(sc.name, func(b *testing.B) {
			opts := sc.opts()
			b.ReportAllocs()
			b.ResetTimer()

			var s *Suite
			for i := 0; i < b.N; i++ {
				var err error
				s, err = Generate(opts)
				if err != nil {
					b.Fatalf("generate failed: %v", err)
				}
			}
			b.ReportMetric(float64(s.Count()), "cases/op")
			runtime.KeepAlive(s)
		})
	}
}

// BenchmarkLint benchmarks linting every module of the fp32 compute slice.
func BenchmarkLint(b *testing.B) {
	s, err := Generate(suitesBySize[0].opts())
	if err != nil {
		b.Fatalf("generate failed: %v", err)
	}
	var modules []string
	size := 0
	for _, g := range s.Groups {
		for _, c := range g.Cases {
			modules = append(modules, c.Compute.Assembly)
			size += len(c.Compute.Assembly)
		}
	}
	b.ReportAllocs()
	b.SetBytes(int64(size))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		for _, m := range modules {
			if err := spirv.Lint(m); err != nil {
				b.Fatalf("lint failed: %v", err)
			}
		}
	}
}

// BenchmarkVerify benchmarks checking a passing output buffer.
func BenchmarkVerify(b *testing.B) {
	s, err := Generate(suitesBySize[0].opts())
	if err != nil {
		b.Fatalf("generate failed: %v", err)
	}
	c := s.Find("float_controls/compute/fp32/input_args/add_denorm_op_denorm_flush")
	if c == nil {
		b.Fatal("case missing")
	}
	output := make([]byte, 4)
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := s.Verify(c, output); err != nil {
			b.Fatalf("verify failed: %v", err)
		}
	}
}
