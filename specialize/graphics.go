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
	"github.com/gogpu/floatctl/verify"
)

// Graphics renders tc as a vertex and fragment pipeline computing in
// width t. stage selects the stage running the operation. A vertex result
// reaches the fragment stage through a flat integer varying; the fragment
// stage always writes the output buffer. Buffers use native storage.
func (s *Specializer) Graphics(tc matrix.OperationTestCase, t fp.Type, args ArgSource, stage Stage) (*InstanceContext, error) {
	fault.Assert(stage == StageVertex || stage == StageFragment, "graphics stage %s", stage)
	fault.Assert(tc.Variant == matrix.FloatControls, "%s: graphics cases use execution modes", tc.Name())
	if err := s.checkArgs(tc, t); err != nil {
		return nil, err
	}

	version := s.caseVersion(tc)
	vert := s.newShader(version, spirv.ExecutionModelVertex)
	frag := s.newShader(version, spirv.ExecutionModelFragment)

	vert.types = append(vert.types, snippets.VertexInterfaceTypes)
	vert.globals = append(vert.globals, snippets.VertexInterfaceGlobals)
	vert.annotations = append(vert.annotations, snippets.VertexInterfaceDecorations)
	vert.body.WriteString(snippets.VertexPassthrough)

	worker := frag
	if stage == StageVertex {
		worker = vert
	}
	var input []byte
	if args == ArgsInput {
		input = s.inputBuffer(worker, tc, t, snippets.StorageNative)
	}
	s.emitOperation(worker, tc, placement{
		t:       t,
		args:    args,
		storage: snippets.StorageNative,
		stage:   stage,
		names:   ops.DefaultNames,
	})

	if stage == StageVertex {
		op := s.ops.Get(tc.Op)
		sn := s.snippets.For(t)
		s.varying(vert, t, true)
		vert.body.WriteString(sn.VaryingOut(ops.DefaultNames.Result))

		frag.useWidth(t, FragmentSetFor(t, op.WidthUsage(), snippets.StorageNative, args, StageFragment), false)
		s.varying(frag, t, false)
		frag.body.WriteString(sn.VaryingIn(ops.DefaultNames.Result))
	}
	st := s.outputBuffer(frag, t, snippets.StorageNative, ops.DefaultNames.Result)

	vtext, vreq, err := vert.build()
	if err != nil {
		return nil, errors.Wrapf(err, "specialize: %s vertex", tc.Name())
	}
	ftext, freq, err := frag.build()
	if err != nil {
		return nil, errors.Wrapf(err, "specialize: %s fragment", tc.Name())
	}
	req := vreq.Merge(freq)
	req.Features.FragmentStoresAndAtomics = true

	return &InstanceContext{
		Name:         tc.Name() + "_" + stage.String(),
		Stage:        stage,
		Vertex:       vtext,
		Fragment:     ftext,
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

// varying declares the varying carrying a value of width t.
func (s *Specializer) varying(sh *shader, t fp.Type, out bool) {
	types, globals, decorations := s.snippets.VaryingDeclarations(t, out)
	sh.blocks = append(sh.blocks, types)
	sh.globals = append(sh.globals, globals)
	sh.annotations = append(sh.annotations, decorations)
	if t == fp.FP16 {
		sh.use(t).usage |= ops.UsageTypeVector
	}
}
