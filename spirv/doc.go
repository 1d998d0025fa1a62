// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package spirv provides the SPIR-V vocabulary used by the float controls
// generator and a section-ordered builder for textual SPIR-V modules.
//
// Modules are produced as assembly text, the form spirv-as and the Vulkan
// CTS shader tooling accept. Binary encoding is left to those tools.
//
// # Module Builder
//
// Module collects fragments in any order and emits them in the logical
// layout SPIR-V requires:
//
//	m := spirv.NewModule(spirv.Version1_0)
//	m.AddCapability(spirv.CapabilityShader)
//	m.AddCapability(spirv.CapabilityDenormFlushToZero)
//	m.AddExtension("SPV_KHR_float_controls")
//	m.SetMemoryModel("Logical", "GLSL450")
//	m.AddEntryPoint(spirv.ExecutionModelGLCompute, "main", "main")
//	m.AddExecutionMode("main", spirv.ExecutionModeDenormFlushToZero, "32")
//	m.AddTypes(types)
//	m.AddFunction(body)
//	text, err := m.Build()
//
// Types and globals contributed by independent fragments are de-duplicated
// by result id. Conflicting definitions of one id make Build fail.
//
// # SPIR-V Structure
//
// Build emits, in order:
//   - Capabilities (required features)
//   - Extensions (optional extensions)
//   - Extended instruction imports (GLSL.std.450)
//   - Memory model (addressing and memory model)
//   - Entry points (shader entry functions)
//   - Execution modes (float controls and stage configuration)
//   - Debug names
//   - Annotations (decorations)
//   - Types, constants and global variables
//   - Functions (code)
//
// # Float Controls Vocabulary
//
// Capability, ExecutionMode, Decoration, FPRoundingMode and FPFastMathMode
// cover SPV_KHR_float_controls and SPV_KHR_float_controls2. Each prints its
// assembly name.
//
// # Lint
//
// Lint checks the structural rules template composition can break: known
// opcodes, ids defined once and before use, preamble order and balanced
// functions. It is not a validator.
//
// # References
//
// SPIR-V Specification: https://registry.khronos.org/SPIR-V/specs/unified1/SPIRV.html
package spirv
