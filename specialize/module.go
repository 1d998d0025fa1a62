// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package specialize

import (
	"strconv"
	"strings"

	"github.com/gogpu/floatctl/fault"
	"github.com/gogpu/floatctl/features"
	"github.com/gogpu/floatctl/fp"
	"github.com/gogpu/floatctl/matrix"
	"github.com/gogpu/floatctl/ops"
	"github.com/gogpu/floatctl/snippets"
	"github.com/gogpu/floatctl/spirv"
)

// widthUse records what one float width contributes to a module.
type widthUse struct {
	fs        FragmentSet
	constants bool
	usage     ops.Usage
	buffers   bool
}

// shader accumulates the fragments of one entry point and emits them in
// dependency order.
type shader struct {
	sp      *Specializer
	version spirv.Version
	model   spirv.ExecutionModel
	req     features.Requirements

	widths [fp.FP64 + 1]*widthUse

	annotations []string
	types       []string // after the per-width scalar and composite types
	constants   []string // after the per-width constants
	blocks      []string // after the per-width buffer types
	globals     []string
	functions   []string
	variables   strings.Builder
	body        strings.Builder

	modes           []executionMode
	extraCaps       []spirv.Capability
	spirvExtensions []string
	storageBuffer   bool
	floatControls   bool
}

type executionMode struct {
	mode     spirv.ExecutionMode
	id       bool
	operands []string
}

func (s *Specializer) newShader(version spirv.Version, model spirv.ExecutionModel) *shader {
	sh := &shader{sp: s, version: version, model: model}
	sh.req.SPIRVVersion = version
	switch model {
	case spirv.ExecutionModelGLCompute:
		sh.mode(spirv.ExecutionModeLocalSize, "1", "1", "1")
	case spirv.ExecutionModelFragment:
		sh.mode(spirv.ExecutionModeOriginUpperLeft)
	}
	return sh
}

func (sh *shader) mode(m spirv.ExecutionMode, operands ...string) {
	sh.modes = append(sh.modes, executionMode{mode: m, operands: operands})
}

func (sh *shader) modeID(m spirv.ExecutionMode, operands ...string) {
	sh.modes = append(sh.modes, executionMode{mode: m, id: true, operands: operands})
}

func (sh *shader) use(t fp.Type) *widthUse {
	if sh.widths[t] == nil {
		sh.widths[t] = &widthUse{}
	}
	return sh.widths[t]
}

// useWidth declares width t with fragment set fs. constants requests the
// float constants of the width.
func (sh *shader) useWidth(t fp.Type, fs FragmentSet, constants bool) {
	u := sh.use(t)
	u.fs.Arithmetic = u.fs.Arithmetic || fs.Arithmetic
	u.fs.Storage16 = u.fs.Storage16 || fs.Storage16
	u.fs.ConvertBuffers = u.fs.ConvertBuffers || fs.ConvertBuffers
	u.constants = u.constants || constants
}

// buffer declares a storage buffer block with one member per entry of
// members, each member being the named type.
func (sh *shader) buffer(role string, binding int, members []snippets.Member) {
	types, globals, decorations := snippets.BufferBlock(role, binding, members)
	sh.blocks = append(sh.blocks, types)
	sh.globals = append(sh.globals, globals)
	sh.annotations = append(sh.annotations, decorations)
	sh.storageBuffer = true
}

// bufferWidth marks t as stored in buffers.
func (sh *shader) bufferWidth(t fp.Type) {
	sh.use(t).buffers = true
}

// operation adds the rendered non-body parts of an operation.
func (sh *shader) operation(t fp.Type, op *ops.Operation, r ops.Rendered) {
	sh.use(t).usage |= op.Usage
	sh.annotations = append(sh.annotations, r.Annotations)
	sh.types = append(sh.types, r.Types)
	sh.constants = append(sh.constants, r.Constants)
	sh.functions = append(sh.functions, r.Functions)
	sh.variables.WriteString(r.Variables)
}

// controls applies behavior b to the entry point. denorm lists the widths
// receiving the denormal and signed zero modes, rounding those receiving
// the rounding mode.
func (sh *shader) controls(b matrix.Behavior, denorm, rounding []fp.Type) {
	type rule struct {
		flag matrix.Behavior
		mode spirv.ExecutionMode
		cap  spirv.Capability
		dst  *features.Widths
		on   []fp.Type
	}
	fc := &sh.req.FloatControls
	rules := []rule{
		{matrix.DenormPreserve, spirv.ExecutionModeDenormPreserve, spirv.CapabilityDenormPreserve, &fc.DenormPreserve, denorm},
		{matrix.DenormFlushToZero, spirv.ExecutionModeDenormFlushToZero, spirv.CapabilityDenormFlushToZero, &fc.DenormFlushToZero, denorm},
		{matrix.ZINPreserve, spirv.ExecutionModeSignedZeroInfNanPreserve, spirv.CapabilitySignedZeroInfNanPreserve, &fc.SignedZeroInfNanPreserve, denorm},
		{matrix.RTE, spirv.ExecutionModeRoundingModeRTE, spirv.CapabilityRoundingModeRTE, &fc.RoundingModeRTE, rounding},
		{matrix.RTZ, spirv.ExecutionModeRoundingModeRTZ, spirv.CapabilityRoundingModeRTZ, &fc.RoundingModeRTZ, rounding},
	}
	for _, r := range rules {
		if !b.Has(r.flag) {
			continue
		}
		for _, t := range dedupe(r.on) {
			sh.mode(r.mode, strconv.Itoa(t.Width()))
			*r.dst |= features.WidthOf(t)
		}
		sh.floatControls = true
		sh.capability(r.cap)
	}
}

func dedupe(ts []fp.Type) []fp.Type {
	var seen features.Widths
	out := ts[:0:0]
	for _, t := range ts {
		if !seen.Has(t) {
			seen |= features.WidthOf(t)
			out = append(out, t)
		}
	}
	return out
}

// capability adds a capability not derived from the widths.
func (sh *shader) capability(c spirv.Capability) {
	sh.extraCaps = append(sh.extraCaps, c)
}

// fastMath applies a float controls 2 mask to result width t, either as
// the entry point default or as a decoration of target.
func (sh *shader) fastMath(t fp.Type, mask spirv.FPFastMathMode, decorate bool, target string) {
	sh.capability(spirv.CapabilityFloatControls2)
	sh.spirvExtensions = append(sh.spirvExtensions, "SPV_KHR_float_controls2")
	sh.req.AddExtension("VK_KHR_shader_float_controls2")
	sh.req.Features.ShaderFloatControls2 = true
	if decorate {
		fault.Assert(target != "", "fast math decoration without a target")
		sh.annotations = append(sh.annotations,
			"OpDecorate %"+target+" FPFastMathMode "+mask.String()+"\n")
		return
	}
	sh.constants = append(sh.constants,
		"%c_fast_math_flags = OpConstant %type_u32 "+strconv.FormatUint(uint64(mask), 10)+"\n")
	sh.modeID(spirv.ExecutionModeFPFastMathDefault, "%type_"+t.Token(), "%c_fast_math_flags")
}

// build emits the module and folds the width fragments into the
// requirements.
func (sh *shader) build() (string, features.Requirements, error) {
	m := spirv.NewModule(sh.version)
	m.AddCapability(spirv.CapabilityShader)
	req := sh.req

	for _, t := range fp.Types {
		u := sh.widths[t]
		if u == nil {
			continue
		}
		sn := sh.sp.snippets.For(t)
		if t == fp.FP16 {
			fault.Assert(!u.constants || u.fs.Arithmetic,
				"fp16 constants requested in a storage-only shader")
			if u.usage != 0 {
				fault.Assert(u.fs.Arithmetic, "fp16 composites requested in a storage-only shader")
			}
		}
		if u.fs.Arithmetic {
			for _, c := range sn.ArithmeticCapabilities {
				m.AddCapability(c)
			}
			switch t {
			case fp.FP16:
				req.Features.ShaderFloat16 = true
				req.AddExtension("VK_KHR_shader_float16_int8")
			case fp.FP64:
				req.Features.ShaderFloat64 = true
			}
		}
		if u.fs.Storage16 || t == fp.FP64 {
			for _, c := range sn.StorageCapabilities {
				m.AddCapability(c)
			}
			if t == fp.FP64 {
				req.Features.ShaderFloat64 = true
			}
		}
		if u.fs.Storage16 {
			if sh.version.Less(spirv.Version1_3) {
				for _, e := range sn.StorageExtensions {
					m.AddExtension(e)
				}
			}
			req.Features.StorageBuffer16BitAccess = true
			req.AddExtension("VK_KHR_16bit_storage")
		}
	}
	for _, c := range sh.extraCaps {
		m.AddCapability(c)
	}

	if sh.floatControls {
		if sh.version.Less(spirv.Version1_4) {
			m.AddExtension("SPV_KHR_float_controls")
		}
		req.AddExtension("VK_KHR_shader_float_controls")
	}
	for _, e := range sh.spirvExtensions {
		m.AddExtension(e)
	}
	if sh.storageBuffer && sh.version.Less(spirv.Version1_3) {
		m.AddExtension("SPV_KHR_storage_buffer_storage_class")
		req.AddExtension("VK_KHR_storage_buffer_storage_class")
	}
	if sh.version.AtLeast(spirv.Version1_4) {
		req.AddExtension("VK_KHR_spirv_1_4")
	}

	m.AddExtInstImport(snippets.ExtInstImport, "GLSL.std.450")
	m.SetMemoryModel("Logical", "GLSL450")
	m.AddEntryPoint(sh.model, snippets.ComputeEntry, snippets.ComputeEntry)
	for _, em := range sh.modes {
		if em.id {
			m.AddExecutionModeID(snippets.ComputeEntry, em.mode, em.operands...)
		} else {
			m.AddExecutionMode(snippets.ComputeEntry, em.mode, em.operands...)
		}
	}

	for _, a := range sh.annotations {
		m.AddAnnotations(a)
	}
	m.AddTypes(snippets.CommonTypes)
	sh.eachWidth(func(sn *snippets.TypeSnippets, u *widthUse) {
		m.AddTypes(sn.ScalarType)
	})
	sh.eachWidth(func(sn *snippets.TypeSnippets, u *widthUse) {
		if u.usage.Has(ops.UsageTypeVector) || u.usage.Has(ops.UsageTypeMatrix) {
			m.AddTypes(sn.VectorTypes)
		}
		if u.usage.Has(ops.UsageTypeMatrix) {
			m.AddTypes(sn.MatrixTypes)
		}
		if u.usage.Has(ops.UsageTypeFunction) {
			m.AddTypes(sn.FunctionTypes)
		}
	})
	for _, t := range sh.types {
		m.AddTypes(t)
	}
	sh.eachWidth(func(sn *snippets.TypeSnippets, u *widthUse) {
		if u.constants {
			m.AddTypes(sn.Constants)
		}
	})
	for _, c := range sh.constants {
		m.AddTypes(c)
	}
	sh.eachWidth(func(sn *snippets.TypeSnippets, u *widthUse) {
		if u.buffers {
			m.AddTypes(sn.BufferTypes)
			m.AddAnnotations(sn.BufferDecorations)
		}
	})
	for _, b := range sh.blocks {
		m.AddTypes(b)
	}
	for _, g := range sh.globals {
		m.AddGlobals(g)
	}

	for _, f := range sh.functions {
		m.AddFunction(f)
	}
	m.AddFunction(snippets.MainBegin + sh.variables.String() + sh.body.String() + snippets.MainEnd)

	text, err := m.Build()
	return text, req, err
}

func (sh *shader) eachWidth(f func(*snippets.TypeSnippets, *widthUse)) {
	for _, t := range fp.Types {
		if u := sh.widths[t]; u != nil {
			f(sh.sp.snippets.For(t), u)
		}
	}
}
