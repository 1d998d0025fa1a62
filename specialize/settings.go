// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package specialize

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/gogpu/floatctl/fault"
	"github.com/gogpu/floatctl/matrix"
	"github.com/gogpu/floatctl/ops"
	"github.com/gogpu/floatctl/snippets"
	"github.com/gogpu/floatctl/spirv"
	"github.com/gogpu/floatctl/values"
	"github.com/gogpu/floatctl/verify"
)

// Settings renders an independence case as one compute shader running
// the operation once per width, each under its own float controls.
//
// Buffer members are packed widest first so every member is naturally
// aligned without padding.
func (s *Specializer) Settings(c matrix.SettingsCase) (*ComputeShaderSpec, error) {
	fault.Assert(len(c.Widths) >= 2, "settings case %s has %d widths", c.Name, len(c.Widths))
	sh := s.newShader(spirv.MaxVersion(s.opts.SPIRVVersion, spirv.Version1_0), spirv.ExecutionModelGLCompute)

	var (
		in, out       []snippets.Member
		input         []byte
		inOff, outOff int
		checks        []verify.Check
	)
	for i, w := range c.Widths {
		if i > 0 {
			fault.Assert(w.Type < c.Widths[i-1].Type, "settings case %s is not ordered widest first", c.Name)
		}
		tc := matrix.OperationTestCase{
			Base:     c.Name,
			Behavior: w.Behavior,
			Op:       w.Op,
			Arg1:     w.Arg1,
			Arg2:     w.Arg2,
			Expected: w.Expected,
		}
		if err := s.checkArgs(tc, w.Type); err != nil {
			return nil, err
		}
		op := s.ops.Get(w.Op)
		tok := w.Type.Token()
		names := ops.DefaultNames.Suffixed("_" + tok)

		sh.bufferWidth(w.Type)
		in = append(in, snippets.Member{Type: "type_" + tok + "_arr_2", Offset: inOff})
		out = append(out, snippets.Member{Type: "type_" + tok, Offset: outOff})
		input = append(input, s.inputImage(w.Type, w.Type, tc.Args(op.Arity))...)

		s.emitOperation(sh, tc, placement{
			t:       w.Type,
			args:    ArgsInput,
			storage: snippets.StorageNative,
			stage:   StageCompute,
			names:   names,
			member:  i,
		})
		sh.body.WriteString(s.snippets.For(w.Type).StoreResult(names.Result, i, snippets.StorageNative))

		checks = append(checks, verify.Check{
			Type:     w.Type,
			Storage:  w.Type,
			Op:       w.Op,
			Expected: w.Expected,
			Offset:   outOff,
		})
		inOff += 2 * w.Type.Bytes()
		outOff += w.Type.Bytes()
	}
	sh.buffer("in", snippets.InputBinding, in)
	sh.buffer("out", snippets.OutputBinding, out)
	sh.req.FloatControls.DenormBehaviorIndependence = c.DenormIndependence
	sh.req.FloatControls.RoundingModeIndependence = c.RoundingIndependence

	text, req, err := sh.build()
	if err != nil {
		return nil, errors.Wrapf(err, "specialize: %s", c.Name)
	}
	return &ComputeShaderSpec{
		Name:         c.Name,
		Assembly:     text,
		Input:        input,
		Output:       bytes.Repeat([]byte{values.Canary}, outOff),
		Requirements: req,
		Checks:       checks,
	}, nil
}
