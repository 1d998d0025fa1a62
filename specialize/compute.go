// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package specialize

import (
	"github.com/pkg/errors"

	"github.com/gogpu/floatctl/fault"
	"github.com/gogpu/floatctl/fp"
	"github.com/gogpu/floatctl/matrix"
	"github.com/gogpu/floatctl/ops"
	"github.com/gogpu/floatctl/snippets"
	"github.com/gogpu/floatctl/spirv"
	"github.com/gogpu/floatctl/values"
	"github.com/gogpu/floatctl/verify"
)

// caseVersion is the SPIR-V version a case is emitted for.
func (s *Specializer) caseVersion(tc matrix.OperationTestCase) spirv.Version {
	v := spirv.MaxVersion(s.opts.SPIRVVersion, spirv.Version1_0)
	if tc.Variant == matrix.FloatControls2 && !tc.Decorated {
		// OpExecutionModeId
		v = spirv.MaxVersion(v, spirv.Version1_2)
	}
	return v
}

// placement describes where the operation of a case runs.
type placement struct {
	t       fp.Type
	args    ArgSource
	storage snippets.StorageMode
	stage   Stage
	names   ops.Names
	member  int // input buffer member holding the arguments
}

// emitOperation adds the arguments, the operation and its float controls
// to sh. The result is left in %<names.Result>.
func (s *Specializer) emitOperation(sh *shader, tc matrix.OperationTestCase, p placement) {
	op := s.ops.Get(tc.Op)
	fault.Assert(op.Supports(p.t), "%s does not support %s", op.Name, p.t)
	fault.Assert(p.args == ArgsInput || !(tc.InputArgsOnly || op.InputArgsOnly),
		"%s needs input arguments", tc.Name())
	fault.Assert(!tc.RequireRTE || !tc.Behavior.Has(matrix.RTZ),
		"%s requires RTE under RTZ", tc.Name())
	fault.Assert(!op.Decorated || (p.storage == snippets.StorageNative && p.stage == StageCompute),
		"%s must store its result directly", tc.Name())

	in := op.ArgType(p.t)
	sh.useWidth(in, FragmentSetFor(in, op.WidthUsage(), p.storage, p.args, p.stage), p.args == ArgsGenerated)
	sh.useWidth(p.t, FragmentSetFor(p.t, op.WidthUsage(), p.storage, p.args, p.stage), op.Usage.Has(ops.UsageConstFloat))

	r := op.Render(p.t, p.names)
	sh.operation(p.t, op, r)

	argNames := []string{p.names.Arg1, p.names.Arg2}
	inSn := s.snippets.For(in)
	for i, id := range tc.Args(op.Arity) {
		if p.args == ArgsGenerated {
			sh.body.WriteString(s.values.For(in).Generate(id, argNames[i]))
			continue
		}
		sh.body.WriteString(inSn.LoadArg(argNames[i], p.member, i, p.storage))
	}
	sh.body.WriteString(r.Commands)

	b := tc.Behavior
	if tc.RequireRTE {
		b |= matrix.RTE
	}
	denorm := append([]fp.Type{in, p.t}, op.ControlsAlso...)
	sh.controls(b, denorm, []fp.Type{p.t})

	if tc.Variant == matrix.FloatControls2 {
		sh.fastMath(p.t, tc.FastMath, tc.Decorated, r.FastMathTarget)
	}
}

// inputBuffer declares the input block with the argument array of the
// operation of tc and returns its image.
func (s *Specializer) inputBuffer(sh *shader, tc matrix.OperationTestCase, t fp.Type, storage snippets.StorageMode) []byte {
	op := s.ops.Get(tc.Op)
	in := op.ArgType(t)
	st := s.snippets.For(in).StorageType(storage)
	if st != in {
		sh.useWidth(st, nonHalfWidths, false)
	}
	sh.bufferWidth(st)
	sh.buffer("in", snippets.InputBinding, []snippets.Member{{Type: "type_" + st.Token() + "_arr_2"}})
	return s.inputImage(in, st, tc.Args(op.Arity))
}

// outputBuffer declares the output block holding one result of width t,
// stores %name into it and returns the storage width.
func (s *Specializer) outputBuffer(sh *shader, t fp.Type, storage snippets.StorageMode, name string) fp.Type {
	sn := s.snippets.For(t)
	st := sn.StorageType(storage)
	if st != t {
		sh.useWidth(st, nonHalfWidths, false)
	}
	sh.bufferWidth(st)
	sh.buffer("out", snippets.OutputBinding, []snippets.Member{{Type: "type_" + st.Token()}})
	sh.body.WriteString(sn.StoreResult(name, 0, storage))
	return st
}

// Compute renders tc as a compute shader computing in width t.
func (s *Specializer) Compute(tc matrix.OperationTestCase, t fp.Type, args ArgSource, storage snippets.StorageMode) (*ComputeShaderSpec, error) {
	if err := s.checkArgs(tc, t); err != nil {
		return nil, err
	}
	sh := s.newShader(s.caseVersion(tc), spirv.ExecutionModelGLCompute)

	var input []byte
	if args == ArgsInput {
		input = s.inputBuffer(sh, tc, t, storage)
	}
	s.emitOperation(sh, tc, placement{
		t:       t,
		args:    args,
		storage: storage,
		stage:   StageCompute,
		names:   ops.DefaultNames,
	})
	st := s.outputBuffer(sh, t, storage, ops.DefaultNames.Result)

	text, req, err := sh.build()
	if err != nil {
		return nil, errors.Wrapf(err, "specialize: %s %s", tc.Name(), t)
	}
	return &ComputeShaderSpec{
		Name:         tc.Name(),
		Assembly:     text,
		Input:        input,
		Output:       canary(st),
		Requirements: req,
		Checks: []verify.Check{{
			Type:     t,
			Storage:  st,
			Op:       tc.Op,
			Expected: tc.Expected,
		}},
	}, nil
}

// checkArgs reports arguments missing from the catalog of their width.
func (s *Specializer) checkArgs(tc matrix.OperationTestCase, t fp.Type) error {
	op := s.ops.Get(tc.Op)
	in := op.ArgType(t)
	v := s.values.For(in)
	for _, id := range tc.Args(op.Arity) {
		if !v.Defined(id) {
			return errors.Errorf("specialize: %s: %s has no %s value", tc.Name(), in, id)
		}
	}
	if tc.Expected == values.Unused {
		return errors.Errorf("specialize: %s has no expectation", tc.Name())
	}
	return nil
}
