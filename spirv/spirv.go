// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Version represents a SPIR-V version.
type Version struct {
	Major uint8
	Minor uint8
}

// SPIR-V versions.
var (
	Version1_0 = Version{1, 0}
	Version1_1 = Version{1, 1}
	Version1_2 = Version{1, 2}
	Version1_3 = Version{1, 3}
	Version1_4 = Version{1, 4}
	Version1_5 = Version{1, 5}
	Version1_6 = Version{1, 6}
)

// String returns the version as "1.3".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Word returns the version in header word format.
func (v Version) Word() uint32 {
	return uint32(v.Major)<<16 | uint32(v.Minor)<<8
}

// Less reports whether v precedes w.
func (v Version) Less(w Version) bool {
	return v.Word() < w.Word()
}

// AtLeast reports whether v is w or later.
func (v Version) AtLeast(w Version) bool {
	return !v.Less(w)
}

// MaxVersion returns the later of v and w.
func MaxVersion(v, w Version) Version {
	if v.Less(w) {
		return w
	}
	return v
}

// ParseVersion parses "1.4" style version strings.
func ParseVersion(s string) (Version, error) {
	major, minor, ok := strings.Cut(s, ".")
	if !ok {
		return Version{}, errors.Errorf("spirv: invalid version %q", s)
	}
	ma, err1 := strconv.ParseUint(major, 10, 8)
	mi, err2 := strconv.ParseUint(minor, 10, 8)
	if err1 != nil || err2 != nil || ma != 1 || mi > 6 {
		return Version{}, errors.Errorf("spirv: unsupported version %q", s)
	}
	return Version{uint8(ma), uint8(mi)}, nil
}

// Capability represents a SPIR-V capability.
type Capability uint32

// Capabilities used by generated modules.
const (
	CapabilityMatrix                             Capability = 0
	CapabilityShader                             Capability = 1
	CapabilityFloat16                            Capability = 9
	CapabilityFloat64                            Capability = 10
	CapabilityInt64                              Capability = 11
	CapabilityInt16                              Capability = 22
	CapabilityStorageBuffer16BitAccess           Capability = 4433
	CapabilityUniformAndStorageBuffer16BitAccess Capability = 4434
	CapabilityStoragePushConstant16              Capability = 4435
	CapabilityStorageInputOutput16               Capability = 4436
	CapabilityDenormPreserve                     Capability = 4464
	CapabilityDenormFlushToZero                  Capability = 4465
	CapabilitySignedZeroInfNanPreserve           Capability = 4466
	CapabilityRoundingModeRTE                    Capability = 4467
	CapabilityRoundingModeRTZ                    Capability = 4468
	CapabilityFloatControls2                     Capability = 6029
)

var capabilityNames = map[Capability]string{
	0: "Matrix", 1: "Shader", 2: "Geometry", 3: "Tessellation",
	4: "Addresses", 5: "Linkage", 6: "Kernel", 7: "Vector16",
	8: "Float16Buffer", 9: "Float16", 10: "Float64", 11: "Int64",
	12: "Int64Atomics", 13: "ImageBasic", 14: "ImageReadWrite", 15: "ImageMipmap",
	17: "Pipes", 18: "Groups", 19: "DeviceEnqueue", 20: "LiteralSampler",
	21: "AtomicStorage", 22: "Int16", 23: "TessellationPointSize",
	24: "GeometryPointSize", 25: "ImageGatherExtended", 39: "InputAttachment",
	38: "Int8", 49: "ImageQuery", 50: "DerivativeControl",
	4423: "SubgroupBallotKHR", 4427: "DrawParameters",
	4433: "StorageBuffer16BitAccess", 4434: "UniformAndStorageBuffer16BitAccess",
	4435: "StoragePushConstant16", 4436: "StorageInputOutput16",
	4437: "DeviceGroup", 4439: "MultiView",
	4441: "VariablePointersStorageBuffer", 4442: "VariablePointers",
	4464: "DenormPreserve", 4465: "DenormFlushToZero",
	4466: "SignedZeroInfNanPreserve", 4467: "RoundingModeRTE", 4468: "RoundingModeRTZ",
	6029: "FloatControls2",
}

// String returns the assembly name of c.
func (c Capability) String() string {
	return lookup(capabilityNames, c)
}

// ExecutionModel is the stage of an entry point.
type ExecutionModel uint32

// Execution models.
const (
	ExecutionModelVertex    ExecutionModel = 0
	ExecutionModelFragment  ExecutionModel = 4
	ExecutionModelGLCompute ExecutionModel = 5
)

var executionModelNames = map[ExecutionModel]string{
	0: "Vertex", 1: "TessellationControl", 2: "TessellationEvaluation",
	3: "Geometry", 4: "Fragment", 5: "GLCompute", 6: "Kernel",
}

func (m ExecutionModel) String() string {
	return lookup(executionModelNames, m)
}

// ExecutionMode configures an entry point.
type ExecutionMode uint32

// Execution modes.
const (
	ExecutionModeOriginUpperLeft          ExecutionMode = 7
	ExecutionModeLocalSize                ExecutionMode = 17
	ExecutionModeDenormPreserve           ExecutionMode = 4459
	ExecutionModeDenormFlushToZero        ExecutionMode = 4460
	ExecutionModeSignedZeroInfNanPreserve ExecutionMode = 4461
	ExecutionModeRoundingModeRTE          ExecutionMode = 4462
	ExecutionModeRoundingModeRTZ          ExecutionMode = 4463
	ExecutionModeFPFastMathDefault        ExecutionMode = 6028
)

var executionModeNames = map[ExecutionMode]string{
	0: "Invocations", 6: "PixelCenterInteger", 7: "OriginUpperLeft",
	8: "OriginLowerLeft", 9: "EarlyFragmentTests", 12: "DepthReplacing",
	17: "LocalSize", 18: "LocalSizeHint", 31: "ContractionOff",
	4459: "DenormPreserve", 4460: "DenormFlushToZero",
	4461: "SignedZeroInfNanPreserve", 4462: "RoundingModeRTE", 4463: "RoundingModeRTZ",
	6028: "FPFastMathDefault",
}

func (m ExecutionMode) String() string {
	return lookup(executionModeNames, m)
}

// Decoration represents a SPIR-V decoration.
type Decoration uint32

// Decorations.
const (
	DecorationBlock          Decoration = 2
	DecorationArrayStride    Decoration = 6
	DecorationBuiltIn        Decoration = 11
	DecorationFlat           Decoration = 14
	DecorationNonWritable    Decoration = 24
	DecorationLocation       Decoration = 30
	DecorationBinding        Decoration = 33
	DecorationDescriptorSet  Decoration = 34
	DecorationOffset         Decoration = 35
	DecorationFPRoundingMode Decoration = 39
	DecorationFPFastMathMode Decoration = 40
)

var decorationNames = map[Decoration]string{
	0: "RelaxedPrecision", 1: "SpecId", 2: "Block", 3: "BufferBlock",
	4: "RowMajor", 5: "ColMajor", 6: "ArrayStride", 7: "MatrixStride",
	11: "BuiltIn", 13: "NoPerspective", 14: "Flat", 18: "Invariant",
	19: "Restrict", 20: "Aliased", 24: "NonWritable", 25: "NonReadable",
	30: "Location", 31: "Component", 33: "Binding", 34: "DescriptorSet",
	35: "Offset", 39: "FPRoundingMode", 40: "FPFastMathMode",
	42: "NoContraction",
}

func (d Decoration) String() string {
	return lookup(decorationNames, d)
}

// FPRoundingMode is the operand of the FPRoundingMode decoration.
type FPRoundingMode uint32

// Rounding modes.
const (
	FPRoundingModeRTE FPRoundingMode = 0
	FPRoundingModeRTZ FPRoundingMode = 1
	FPRoundingModeRTP FPRoundingMode = 2
	FPRoundingModeRTN FPRoundingMode = 3
)

func (m FPRoundingMode) String() string {
	switch m {
	case FPRoundingModeRTE:
		return "RTE"
	case FPRoundingModeRTZ:
		return "RTZ"
	case FPRoundingModeRTP:
		return "RTP"
	case FPRoundingModeRTN:
		return "RTN"
	}
	return strconv.Itoa(int(m))
}

// FPFastMathMode is a set of fast-math permissions.
type FPFastMathMode uint32

// Fast-math flags.
const (
	FPFastMathNone           FPFastMathMode = 0
	FPFastMathNotNaN         FPFastMathMode = 0x1
	FPFastMathNotInf         FPFastMathMode = 0x2
	FPFastMathNSZ            FPFastMathMode = 0x4
	FPFastMathAllowRecip     FPFastMathMode = 0x8
	FPFastMathFast           FPFastMathMode = 0x10
	FPFastMathAllowContract  FPFastMathMode = 0x10000
	FPFastMathAllowReassoc   FPFastMathMode = 0x20000
	FPFastMathAllowTransform FPFastMathMode = 0x40000
)

// FPFastMathAll is every flag a FloatControls2 module may grant.
const FPFastMathAll = FPFastMathNotNaN | FPFastMathNotInf | FPFastMathNSZ |
	FPFastMathAllowRecip | FPFastMathAllowContract | FPFastMathAllowReassoc |
	FPFastMathAllowTransform

var fastMathNames = []struct {
	bit  FPFastMathMode
	name string
}{
	{FPFastMathNotNaN, "NotNaN"},
	{FPFastMathNotInf, "NotInf"},
	{FPFastMathNSZ, "NSZ"},
	{FPFastMathAllowRecip, "AllowRecip"},
	{FPFastMathFast, "Fast"},
	{FPFastMathAllowContract, "AllowContract"},
	{FPFastMathAllowReassoc, "AllowReassoc"},
	{FPFastMathAllowTransform, "AllowTransform"},
}

// String returns the assembly spelling of the mask, e.g. "NotNaN|NSZ".
func (m FPFastMathMode) String() string {
	if m == FPFastMathNone {
		return "None"
	}
	var parts []string
	for _, f := range fastMathNames {
		if m&f.bit != 0 {
			parts = append(parts, f.name)
			m &^= f.bit
		}
	}
	if m != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(m)))
	}
	return strings.Join(parts, "|")
}

// StorageClass is the storage class of a pointer or variable.
type StorageClass uint32

// Storage classes.
const (
	StorageClassUniformConstant StorageClass = 0
	StorageClassInput           StorageClass = 1
	StorageClassUniform         StorageClass = 2
	StorageClassOutput          StorageClass = 3
	StorageClassPrivate         StorageClass = 6
	StorageClassFunction        StorageClass = 7
	StorageClassPushConstant    StorageClass = 9
	StorageClassStorageBuffer   StorageClass = 12
)

var storageClassNames = map[StorageClass]string{
	0: "UniformConstant", 1: "Input", 2: "Uniform", 3: "Output",
	4: "Workgroup", 5: "CrossWorkgroup", 6: "Private", 7: "Function",
	8: "Generic", 9: "PushConstant", 10: "AtomicCounter", 11: "Image",
	12: "StorageBuffer",
}

func (s StorageClass) String() string {
	return lookup(storageClassNames, s)
}

func parseStorageClass(name string) (StorageClass, bool) {
	for k, v := range storageClassNames {
		if v == name {
			return k, true
		}
	}
	return 0, false
}

func lookup[K ~uint32](m map[K]string, v K) string {
	if s, ok := m[v]; ok {
		return s
	}
	return strconv.FormatUint(uint64(v), 10)
}
