// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package specialize turns matrix cases into complete SPIR-V assembly
// modules together with their buffers, device requirements and
// verification checks.
package specialize

import (
	"github.com/gogpu/floatctl/fault"
	"github.com/gogpu/floatctl/features"
	"github.com/gogpu/floatctl/fp"
	"github.com/gogpu/floatctl/ops"
	"github.com/gogpu/floatctl/snippets"
	"github.com/gogpu/floatctl/spirv"
	"github.com/gogpu/floatctl/values"
	"github.com/gogpu/floatctl/verify"
)

// ArgSource selects where operation arguments come from.
type ArgSource uint8

const (
	// ArgsInput loads the arguments from the input buffer.
	ArgsInput ArgSource = iota
	// ArgsGenerated synthesizes the arguments from constants.
	ArgsGenerated
)

func (a ArgSource) String() string {
	if a == ArgsGenerated {
		return "generated_args"
	}
	return "input_args"
}

// Stage is the pipeline stage running the operation.
type Stage uint8

const (
	StageCompute Stage = iota
	StageVertex
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vert"
	case StageFragment:
		return "frag"
	}
	return "comp"
}

// Options configures a Specializer.
type Options struct {
	// SPIRVVersion is the lowest version modules target. Cases needing a
	// newer version are raised to it.
	SPIRVVersion spirv.Version
}

// DefaultOptions targets SPIR-V 1.0.
func DefaultOptions() Options {
	return Options{SPIRVVersion: spirv.Version1_0}
}

// Specializer renders cases. It only reads its catalogs and is safe for
// concurrent use.
type Specializer struct {
	values   *values.Catalogs
	snippets *snippets.Catalog
	ops      *ops.Catalog
	opts     Options
}

// New returns a Specializer over the given catalogs.
func New(v *values.Catalogs, s *snippets.Catalog, o *ops.Catalog, opts Options) *Specializer {
	return &Specializer{values: v, snippets: s, ops: o, opts: opts}
}

// ComputeShaderSpec is a compute case ready to run.
type ComputeShaderSpec struct {
	Name     string
	Assembly string
	// Input is the input buffer image, nil when arguments are generated.
	Input []byte
	// Output is the initial output buffer image.
	Output       []byte
	Requirements features.Requirements
	Checks       []verify.Check
}

// InstanceContext is a graphics case: a vertex and a fragment module
// drawing one primitive. The fragment stage always writes the result.
type InstanceContext struct {
	Name         string
	Stage        Stage
	Vertex       string
	Fragment     string
	Input        []byte
	Output       []byte
	Requirements features.Requirements
	Checks       []verify.Check
}

// FragmentSet tells which 16-bit fragments a width needs.
type FragmentSet struct {
	// Arithmetic enables computing with the width.
	Arithmetic bool
	// Storage16 enables 16-bit storage buffer access.
	Storage16 bool
	// ConvertBuffers stores the width as fp32 and converts in the shader.
	ConvertBuffers bool
}

type fragmentKey struct {
	fp16    bool
	usage   ops.FloatUsage
	storage snippets.StorageMode
	args    ArgSource
	stage   Stage
}

var (
	storageOnly   = FragmentSet{Storage16: true}
	native16      = FragmentSet{Arithmetic: true, Storage16: true}
	converted16   = FragmentSet{Arithmetic: true, ConvertBuffers: true}
	nonHalfWidths = FragmentSet{Arithmetic: true}
)

// fragmentSets is the fp16 decision table. Every fp16 combination the
// generator produces has a row; a missing row is a generator defect.
var fragmentSets = map[fragmentKey]FragmentSet{
	{true, ops.StorageOnly, snippets.StorageNative, ArgsInput, StageCompute}:      storageOnly,
	{true, ops.StorageOnly, snippets.StorageNative, ArgsGenerated, StageCompute}:  native16,
	{true, ops.Arithmetic, snippets.StorageNative, ArgsInput, StageCompute}:       native16,
	{true, ops.Arithmetic, snippets.StorageNative, ArgsGenerated, StageCompute}:   native16,
	{true, ops.StorageOnly, snippets.StorageNo16Bit, ArgsInput, StageCompute}:     converted16,
	{true, ops.StorageOnly, snippets.StorageNo16Bit, ArgsGenerated, StageCompute}: converted16,
	{true, ops.Arithmetic, snippets.StorageNo16Bit, ArgsInput, StageCompute}:      converted16,
	{true, ops.Arithmetic, snippets.StorageNo16Bit, ArgsGenerated, StageCompute}:  converted16,

	// Varyings are bit cast through f16vec2, which needs arithmetic.
	{true, ops.StorageOnly, snippets.StorageNative, ArgsInput, StageVertex}:       native16,
	{true, ops.StorageOnly, snippets.StorageNative, ArgsGenerated, StageVertex}:   native16,
	{true, ops.Arithmetic, snippets.StorageNative, ArgsInput, StageVertex}:        native16,
	{true, ops.Arithmetic, snippets.StorageNative, ArgsGenerated, StageVertex}:    native16,
	{true, ops.StorageOnly, snippets.StorageNative, ArgsInput, StageFragment}:     native16,
	{true, ops.StorageOnly, snippets.StorageNative, ArgsGenerated, StageFragment}: native16,
	{true, ops.Arithmetic, snippets.StorageNative, ArgsInput, StageFragment}:      native16,
	{true, ops.Arithmetic, snippets.StorageNative, ArgsGenerated, StageFragment}:  native16,
}

// FragmentSetFor looks up the fragments width t needs.
func FragmentSetFor(t fp.Type, usage ops.FloatUsage, storage snippets.StorageMode, args ArgSource, stage Stage) FragmentSet {
	if t != fp.FP16 {
		return nonHalfWidths
	}
	fs, ok := fragmentSets[fragmentKey{true, usage, storage, args, stage}]
	fault.Assert(ok, "no fragment set for fp16 %s %s %s %s", usage, storage, args, stage)
	return fs
}

// inputImage serializes the arguments of width t, widening them when the
// buffer stores a wider type.
func (s *Specializer) inputImage(t, storage fp.Type, ids []values.ID) []byte {
	v := s.values.For(t)
	n := storage.Bytes()
	buf := make([]byte, 2*n)
	for i, id := range ids {
		if id == values.Unused {
			continue
		}
		bits := v.Bits(id)
		if storage != t {
			bits = widen(t, storage, bits)
		}
		storage.PutBits(buf[i*n:], bits)
	}
	return buf
}

// widen converts bits of width from into the wider width to. The
// conversion is exact.
func widen(from, to fp.Type, bits uint64) uint64 {
	if from.IsNaN(bits) {
		return to.QuietNaN()
	}
	return to.Encode(from.Decode(bits), fp.RTE)
}

func canary(t fp.Type) []byte {
	buf := make([]byte, t.Bytes())
	for i := range buf {
		buf[i] = values.Canary
	}
	return buf
}
