// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package snippets holds the fixed SPIR-V fragments shared by every
// generated shader: float types and constants of each width, buffer
// layouts, argument loads, result stores and the varying plumbing used by
// the graphics pipelines.
package snippets

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/floatctl/fault"
	"github.com/gogpu/floatctl/fp"
	"github.com/gogpu/floatctl/spirv"
	"github.com/gogpu/floatctl/tmpl"
)

// StorageMode selects how float values travel through buffers.
type StorageMode uint8

const (
	// StorageNative stores values in their own width.
	StorageNative StorageMode = iota
	// StorageNo16Bit stores fp16 values as fp32 and converts them in the
	// shader, for devices without 16-bit storage.
	StorageNo16Bit
)

func (m StorageMode) String() string {
	if m == StorageNo16Bit {
		return "no_16bit_storage"
	}
	return "native"
}

// TypeSnippets is the fragment library of one float width.
type TypeSnippets struct {
	Type  fp.Type
	Width string
	Token string

	DenormBaseLiteral    string
	DenormEpsilonLiteral string

	// ArithmeticCapabilities enable computing with the type.
	ArithmeticCapabilities []spirv.Capability
	// StorageCapabilities and StorageExtensions enable loading and storing
	// the type through storage buffers.
	StorageCapabilities []spirv.Capability
	StorageExtensions   []string

	ScalarType        string
	VectorTypes       string
	MatrixTypes       string
	FunctionTypes     string
	Constants         string
	BufferTypes       string
	BufferDecorations string

	VaryingType string

	load         *tmpl.Template
	loadConvert  *tmpl.Template
	store        *tmpl.Template
	storeConvert *tmpl.Template
	varyingOut   *tmpl.Template
	varyingIn    *tmpl.Template
}

var (
	scalarTypes = tmpl.MustParse(`
%type_${float} = OpTypeFloat ${width}
`)
	vectorTypes = tmpl.MustParse(`
%type_${float}_vec2 = OpTypeVector %type_${float} 2
`)
	matrixTypes = tmpl.MustParse(`
%type_${float}_vec2 = OpTypeVector %type_${float} 2
%type_${float}_mat2x2 = OpTypeMatrix %type_${float}_vec2 2
`)
	functionTypes = tmpl.MustParse(`
%type_${float}_fptr = OpTypePointer Function %type_${float}
%type_${float}_funcf = OpTypeFunction %type_${float} %type_${float}
`)
	constants = tmpl.MustParse(`
%c_${float}_0 = OpConstant %type_${float} 0
%c_${float}_1 = OpConstant %type_${float} 1
%c_${float}_n1 = OpConstant %type_${float} -1
%c_${float}_0_5 = OpConstant %type_${float} 0.5
%c_${float}_2 = OpConstant %type_${float} 2
%c_${float}_max = OpConstant %type_${float} ${max}
%c_${float}_denorm_base = OpConstant %type_${float} ${denorm_base}
%c_${float}_denorm_eps = OpConstant %type_${float} ${denorm_eps}
`)
	bufferTypes = tmpl.MustParse(`
%type_${float}_arr_2 = OpTypeArray %type_${float} %c_i32_2
%type_${float}_ptr_sb = OpTypePointer StorageBuffer %type_${float}
`)
	bufferDecorations = tmpl.MustParse(`
OpDecorate %type_${float}_arr_2 ArrayStride ${bytes}
`)
	loadArg = tmpl.MustParse(`
%${name}_ptr = OpAccessChain %type_${float}_ptr_sb %ssbo_in %c_i32_${member} %c_i32_${index}
%${name} = OpLoad %type_${float} %${name}_ptr
`)
	loadArgConvert = tmpl.MustParse(`
%${name}_ptr = OpAccessChain %type_f32_ptr_sb %ssbo_in %c_i32_${member} %c_i32_${index}
%${name}_f32 = OpLoad %type_f32 %${name}_ptr
%${name} = OpFConvert %type_${float} %${name}_f32
`)
	storeResult = tmpl.MustParse(`
%${name}_out_ptr = OpAccessChain %type_${float}_ptr_sb %ssbo_out %c_i32_${member}
OpStore %${name}_out_ptr %${name}
`)
	storeResultConvert = tmpl.MustParse(`
%${name}_f32 = OpFConvert %type_f32 %${name}
%${name}_out_ptr = OpAccessChain %type_f32_ptr_sb %ssbo_out %c_i32_${member}
OpStore %${name}_out_ptr %${name}_f32
`)
)

// Varying plumbing. The value crosses stages as raw integer bits so
// interpolation and float controls of the fragment stage cannot touch it.
var (
	varyingOut16 = tmpl.MustParse(`
%${name}_varying_vec2 = OpCompositeConstruct %type_f16_vec2 %${name} %${name}
%${name}_varying_bits = OpBitcast %type_u32 %${name}_varying_vec2
OpStore %out_varying %${name}_varying_bits
`)
	varyingIn16 = tmpl.MustParse(`
%${name}_varying_bits = OpLoad %type_u32 %in_varying
%${name}_varying_vec2 = OpBitcast %type_f16_vec2 %${name}_varying_bits
%${name} = OpCompositeExtract %type_f16 %${name}_varying_vec2 0
`)
	varyingOut32 = tmpl.MustParse(`
%${name}_varying_bits = OpBitcast %type_u32 %${name}
OpStore %out_varying %${name}_varying_bits
`)
	varyingIn32 = tmpl.MustParse(`
%${name}_varying_bits = OpLoad %type_u32 %in_varying
%${name} = OpBitcast %type_f32 %${name}_varying_bits
`)
	varyingOut64 = tmpl.MustParse(`
%${name}_varying_bits = OpBitcast %type_u32_vec2 %${name}
OpStore %out_varying %${name}_varying_bits
`)
	varyingIn64 = tmpl.MustParse(`
%${name}_varying_bits = OpLoad %type_u32_vec2 %in_varying
%${name} = OpBitcast %type_f64 %${name}_varying_bits
`)
)

func newTypeSnippets(t fp.Type) *TypeSnippets {
	p := tmpl.Params{
		"float":       t.Token(),
		"width":       strconv.Itoa(t.Width()),
		"bytes":       strconv.Itoa(t.Bytes()),
		"max":         fp.Literal(t.Max()),
		"denorm_base": fp.Literal(t.DenormBase()),
		"denorm_eps":  fp.Literal(t.DenormEpsilon()),
	}
	s := &TypeSnippets{
		Type:                 t,
		Width:                p["width"],
		Token:                p["float"],
		DenormBaseLiteral:    p["denorm_base"],
		DenormEpsilonLiteral: p["denorm_eps"],
		ScalarType:           scalarTypes.MustExecute(p),
		VectorTypes:          vectorTypes.MustExecute(p),
		MatrixTypes:          matrixTypes.MustExecute(p),
		FunctionTypes:        functionTypes.MustExecute(p),
		Constants:            constants.MustExecute(p),
		BufferTypes:          bufferTypes.MustExecute(p),
		BufferDecorations:    bufferDecorations.MustExecute(p),
		VaryingType:          "%type_u32",
		load:                 loadArg,
		loadConvert:          loadArgConvert,
		store:                storeResult,
		storeConvert:         storeResultConvert,
	}
	switch t {
	case fp.FP16:
		s.ArithmeticCapabilities = []spirv.Capability{spirv.CapabilityFloat16}
		s.StorageCapabilities = []spirv.Capability{spirv.CapabilityStorageBuffer16BitAccess}
		s.StorageExtensions = []string{"SPV_KHR_16bit_storage"}
		s.varyingOut, s.varyingIn = varyingOut16, varyingIn16
	case fp.FP32:
		s.varyingOut, s.varyingIn = varyingOut32, varyingIn32
	case fp.FP64:
		s.ArithmeticCapabilities = []spirv.Capability{spirv.CapabilityFloat64}
		s.StorageCapabilities = []spirv.Capability{spirv.CapabilityFloat64}
		s.VaryingType = "%type_u32_vec2"
		s.varyingOut, s.varyingIn = varyingOut64, varyingIn64
	}
	return s
}

// StorageType returns the width values of s occupy in buffers under mode.
func (s *TypeSnippets) StorageType(mode StorageMode) fp.Type {
	if mode == StorageNo16Bit && s.Type == fp.FP16 {
		return fp.FP32
	}
	return s.Type
}

func (s *TypeSnippets) converts(mode StorageMode) bool {
	return s.StorageType(mode) != s.Type
}

// LoadArg returns the instructions loading element index of member of the
// input buffer into %name.
func (s *TypeSnippets) LoadArg(name string, member, index int, mode StorageMode) string {
	t := s.load
	if s.converts(mode) {
		t = s.loadConvert
	}
	return t.MustExecute(tmpl.Params{
		"name":   name,
		"float":  s.Token,
		"member": strconv.Itoa(member),
		"index":  strconv.Itoa(index),
	})
}

// StoreResult returns the instructions storing %name into member of the
// output buffer.
func (s *TypeSnippets) StoreResult(name string, member int, mode StorageMode) string {
	t := s.store
	if s.converts(mode) {
		t = s.storeConvert
	}
	return t.MustExecute(tmpl.Params{
		"name":   name,
		"float":  s.Token,
		"member": strconv.Itoa(member),
	})
}

// VaryingOut returns the vertex-stage instructions writing %name to the
// output varying as integer bits.
func (s *TypeSnippets) VaryingOut(name string) string {
	return s.varyingOut.MustExecute(tmpl.Params{"name": name})
}

// VaryingIn returns the fragment-stage instructions reading %name back from
// the input varying.
func (s *TypeSnippets) VaryingIn(name string) string {
	return s.varyingIn.MustExecute(tmpl.Params{"name": name})
}

// Catalog holds the snippets of every width. It is built once by New and
// never mutated.
type Catalog struct {
	byType [fp.FP64 + 1]*TypeSnippets
}

// New builds the snippet catalog.
func New() *Catalog {
	c := &Catalog{}
	for _, t := range fp.Types {
		c.byType[t] = newTypeSnippets(t)
	}
	return c
}

// For returns the snippets of t.
func (c *Catalog) For(t fp.Type) *TypeSnippets {
	fault.Assert(t.Valid(), "invalid float type %d", t)
	return c.byType[t]
}

// Width-independent fragments.
const (
	CommonTypes = `
%type_void = OpTypeVoid
%type_voidf = OpTypeFunction %type_void
%type_bool = OpTypeBool
%type_i32 = OpTypeInt 32 1
%type_u32 = OpTypeInt 32 0
%type_u32_vec2 = OpTypeVector %type_u32 2
%type_i32_fptr = OpTypePointer Function %type_i32
%c_i32_0 = OpConstant %type_i32 0
%c_i32_1 = OpConstant %type_i32 1
%c_i32_2 = OpConstant %type_i32 2
%c_u32_0 = OpConstant %type_u32 0
%c_u32_1 = OpConstant %type_u32 1
%c_true = OpConstantTrue %type_bool
`

	ExtInstImport = "std450"

	ComputeEntry = "main"

	MainBegin = `
%main = OpFunction %type_void None %type_voidf
%label = OpLabel
`
	MainEnd = `
OpReturn
OpFunctionEnd
`

	// VertexInterfaceTypes declare the position passthrough of the vertex
	// stage.
	VertexInterfaceTypes = `
%type_f32 = OpTypeFloat 32
%type_f32_vec4 = OpTypeVector %type_f32 4
%type_f32_vec4_iptr = OpTypePointer Input %type_f32_vec4
%type_f32_vec4_optr = OpTypePointer Output %type_f32_vec4
`
	VertexInterfaceGlobals = `
%in_position = OpVariable %type_f32_vec4_iptr Input
%BP_position = OpVariable %type_f32_vec4_optr Output
`
	VertexInterfaceDecorations = `
OpDecorate %in_position Location 0
OpDecorate %BP_position BuiltIn Position
`
	VertexPassthrough = `
%position = OpLoad %type_f32_vec4 %in_position
OpStore %BP_position %position
`
)

// VaryingDeclarations returns the types, globals and decorations of the
// flat integer varying carrying a value of width t. out selects the vertex
// output side, otherwise the fragment input side is declared.
func (c *Catalog) VaryingDeclarations(t fp.Type, out bool) (types, globals, decorations string) {
	vt := c.For(t).VaryingType
	class, ptr, name := "Input", vt+"_iptr", "%in_varying"
	if out {
		class, ptr, name = "Output", vt+"_optr", "%out_varying"
	}
	types = fmt.Sprintf("%s = OpTypePointer %s %s\n", ptr, class, vt)
	globals = fmt.Sprintf("%s = OpVariable %s %s\n", name, ptr, class)
	decorations = fmt.Sprintf("OpDecorate %s Location 0\nOpDecorate %s Flat\n", name, name)
	return types, globals, decorations
}

// Member is one member of a buffer block.
type Member struct {
	// Type is the SPIR-V type id of the member without '%'.
	Type string
	// Offset is the byte offset of the member.
	Offset int
}

// BufferBlock returns the declarations of a storage buffer block named
// SSBO_<role> bound to descriptor set 0 at binding, with the given
// members, and its variable %ssbo_<role>.
func BufferBlock(role string, binding int, members []Member) (types, globals, decorations string) {
	block := "%SSBO_" + role
	var tb, db strings.Builder
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = "%" + m.Type
		fmt.Fprintf(&db, "OpMemberDecorate %s %d Offset %d\n", block, i, m.Offset)
	}
	fmt.Fprintf(&tb, "%s = OpTypeStruct %s\n", block, strings.Join(ids, " "))
	fmt.Fprintf(&tb, "%%up_SSBO_%s = OpTypePointer StorageBuffer %s\n", role, block)
	fmt.Fprintf(&db, "OpDecorate %s Block\n", block)
	fmt.Fprintf(&db, "OpDecorate %%ssbo_%s DescriptorSet 0\n", role)
	fmt.Fprintf(&db, "OpDecorate %%ssbo_%s Binding %d\n", role, binding)
	globals = fmt.Sprintf("%%ssbo_%s = OpVariable %%up_SSBO_%s StorageBuffer\n", role, role)
	return tb.String(), globals, db.String()
}

// Buffer bindings.
const (
	InputBinding  = 0
	OutputBinding = 1
)
